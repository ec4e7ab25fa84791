// SPDX-FileCopyrightText: 2026 The hopwatch authors
//
// SPDX-License-Identifier: Apache-2.0

package trace

import (
	"context"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/hopwatch/hopwatch/internal/traceroute"
	"github.com/hopwatch/hopwatch/pkg/checks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheck(t *testing.T) {
	cases := []struct {
		name string
		c    *Traceroute
		want result
	}{
		{
			name: "No targets",
			c:    newTraceroute(t, Config{Options: traceroute.Options{MaxTTL: 5, Timeout: time.Second}}),
			want: result{},
		},
		{
			name: "Success parses into hops",
			c: newTraceroute(t, Config{
				Options: traceroute.Options{MaxTTL: 3, Timeout: time.Second},
				Targets: []traceroute.Target{{Protocol: traceroute.ProtocolICMP, Address: "8.8.8.8"}},
			}),
			want: result{
				"8.8.8.8": traceroute.Trace{
					Hops: []traceroute.Hop{
						{Number: 1, Probes: []traceroute.Probe{{Addr: "10.0.0.1", Host: "gw.local", RTT: time.Millisecond}}},
						{Number: 2, Probes: []traceroute.Probe{{Timeout: true}, {Timeout: true}, {Timeout: true}}},
						{Number: 3, Probes: []traceroute.Probe{{Addr: "8.8.8.8", Host: "dns.google", RTT: 20 * time.Millisecond}}},
					},
				},
			},
		},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			res := c.c.check(t.Context())

			if !cmp.Equal(res, c.want) {
				diff := cmp.Diff(c.want, res)
				t.Errorf("unexpected result: -want +got\n%s", diff)
			}
		})
	}
}

func TestTraceroute_UpdateConfig(t *testing.T) {
	c := newTraceroute(t, Config{})

	t.Run("Accepts its own config type", func(t *testing.T) {
		cfg := &Config{
			Interval: time.Minute,
			Targets:  []traceroute.Target{{Protocol: traceroute.ProtocolICMP, Address: "example.com"}},
		}
		require.NoError(t, c.UpdateConfig(cfg))
		assert.Equal(t, cfg, c.GetConfig())
	})

	t.Run("Removing a target without metrics succeeds", func(t *testing.T) {
		require.NoError(t, c.UpdateConfig(&Config{Interval: time.Minute}))
	})

	t.Run("Rejects foreign config types", func(t *testing.T) {
		err := c.UpdateConfig(&bogusConfig{})
		var mismatch checks.ErrConfigMismatch
		require.ErrorAs(t, err, &mismatch)
	})
}

func TestTraceroute_Schema(t *testing.T) {
	c := newTraceroute(t, Config{})
	schema, err := c.Schema()
	require.NoError(t, err)
	assert.NotNil(t, schema)
}

func TestTraceroute_GetMetricCollectors(t *testing.T) {
	c := newTraceroute(t, Config{})
	assert.NotEmpty(t, c.GetMetricCollectors())
}

func TestTraceroute_Shutdown(t *testing.T) {
	c := newTraceroute(t, Config{Interval: time.Hour})

	cResult := make(chan checks.ResultDTO, 1)
	done := make(chan error, 1)
	go func() {
		done <- c.Run(t.Context(), cResult)
	}()

	c.Shutdown()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("check did not shut down in time")
	}
}

// newTraceroute builds a check with a mocked traceroute client that
// produces one response hop, a fully timed-out hop and the final hop for
// every target.
func newTraceroute(t testing.TB, cfg Config) *Traceroute {
	t.Helper()
	c, ok := NewCheck().(*Traceroute)
	require.True(t, ok, "NewCheck should return a Traceroute check")
	c.config = cfg
	c.client = &traceroute.ClientMock{
		RunFunc: func(ctx context.Context, targets []traceroute.Target, opts *traceroute.Options) (traceroute.Result, error) {
			res := make(traceroute.Result, len(targets))
			for _, target := range targets {
				res[target] = traceroute.Trace{
					Hops: []traceroute.Hop{
						{Number: 1, Probes: []traceroute.Probe{{Addr: "10.0.0.1", Host: "gw.local", RTT: time.Millisecond}}},
						{Number: 2, Probes: []traceroute.Probe{{Timeout: true}, {Timeout: true}, {Timeout: true}}},
						{Number: 3, Probes: []traceroute.Probe{{Addr: target.Address, Host: "dns.google", RTT: 20 * time.Millisecond}}},
					},
				}
			}
			return res, nil
		},
	}
	return c
}

type bogusConfig struct{}

func (c *bogusConfig) For() string     { return "bogus" }
func (c *bogusConfig) Validate() error { return nil }
