// SPDX-FileCopyrightText: 2026 The hopwatch authors
//
// SPDX-License-Identifier: Apache-2.0

package trace

import (
	"testing"
	"time"

	"github.com/hopwatch/hopwatch/internal/traceroute"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_Record(t *testing.T) {
	m := newMetrics()

	m.Record(result{
		"8.8.8.8": traceroute.Trace{
			Hops: []traceroute.Hop{
				{Number: 1, Probes: []traceroute.Probe{
					{Addr: "10.0.0.1", RTT: 2 * time.Millisecond},
					{Addr: "10.0.0.1", RTT: 4 * time.Millisecond},
				}},
				{Number: 2, Probes: []traceroute.Probe{{Timeout: true}, {Timeout: true}}},
				{Number: 3, Probes: []traceroute.Probe{{Addr: "8.8.8.8", RTT: 20 * time.Millisecond}}},
			},
		},
	})

	assert.InDelta(t, 3, testutil.ToFloat64(m.pathLength.WithLabelValues("8.8.8.8")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.unreachable.WithLabelValues("8.8.8.8")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.count.WithLabelValues("8.8.8.8")), 0)
	assert.InDelta(t, 0.003, testutil.ToFloat64(m.hopRTT.WithLabelValues("8.8.8.8", "1")), 1e-9)
	assert.InDelta(t, 0.02, testutil.ToFloat64(m.hopRTT.WithLabelValues("8.8.8.8", "3")), 1e-9)
}

func TestMetrics_Remove(t *testing.T) {
	m := newMetrics()

	m.Record(result{
		"8.8.8.8": traceroute.Trace{
			Hops: []traceroute.Hop{
				{Number: 1, Probes: []traceroute.Probe{{Addr: "10.0.0.1", RTT: time.Millisecond}}},
			},
		},
	})

	require.NoError(t, m.Remove("8.8.8.8"))

	err := m.Remove("8.8.8.8")
	require.Error(t, err, "removing an unknown target reports the missing metric")
}

func TestMetrics_List(t *testing.T) {
	m := newMetrics()
	collectors := m.List()
	assert.Len(t, collectors, 4)

	registry := prometheus.NewRegistry()
	for _, c := range collectors {
		require.NoError(t, registry.Register(c))
	}
}

func Test_meanRTT(t *testing.T) {
	tests := []struct {
		name string
		hop  traceroute.Hop
		want time.Duration
	}{
		{
			name: "Averages responding probes",
			hop: traceroute.Hop{Probes: []traceroute.Probe{
				{Addr: "10.0.0.1", RTT: 2 * time.Millisecond},
				{Timeout: true},
				{Addr: "10.0.0.1", RTT: 4 * time.Millisecond},
			}},
			want: 3 * time.Millisecond,
		},
		{
			name: "Fully timed out hop",
			hop:  traceroute.Hop{Probes: []traceroute.Probe{{Timeout: true}}},
			want: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := meanRTT(tt.hop); got != tt.want {
				t.Errorf("meanRTT() = %v, want %v", got, tt.want)
			}
		})
	}
}
