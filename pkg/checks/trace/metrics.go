// SPDX-FileCopyrightText: 2026 The hopwatch authors
//
// SPDX-License-Identifier: Apache-2.0

package trace

import (
	"strconv"
	"time"

	"github.com/hopwatch/hopwatch/internal/traceroute"
	"github.com/hopwatch/hopwatch/pkg/checks"
	"github.com/prometheus/client_golang/prometheus"
)

// metrics defines the metric collectors of the traceroute check
type metrics struct {
	hopRTT      *prometheus.GaugeVec
	pathLength  *prometheus.GaugeVec
	unreachable *prometheus.GaugeVec
	count       *prometheus.CounterVec
}

// newMetrics initializes metric collectors of the traceroute check
func newMetrics() metrics {
	return metrics{
		hopRTT: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "hopwatch_traceroute_hop_rtt_seconds",
				Help: "Mean round-trip time of the responding probes per hop in seconds.",
			},
			[]string{"target", "hop"},
		),
		pathLength: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "hopwatch_traceroute_path_length",
				Help: "Number of hops recorded on the path to the target.",
			},
			[]string{"target"},
		),
		unreachable: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "hopwatch_traceroute_unreachable_hops",
				Help: "Number of hops on the path whose probes all timed out.",
			},
			[]string{"target"},
		),
		count: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "hopwatch_traceroute_check_count",
				Help: "Total number of traceroute runs performed per target.",
			},
			[]string{"target"},
		),
	}
}

// List returns all metric collectors
func (m *metrics) List() []prometheus.Collector {
	return []prometheus.Collector{
		m.hopRTT,
		m.pathLength,
		m.unreachable,
		m.count,
	}
}

// Record sets the metrics of one check run
func (m *metrics) Record(res result) {
	for target, trace := range res {
		m.pathLength.WithLabelValues(target).Set(float64(len(trace.Hops)))
		m.count.WithLabelValues(target).Inc()

		unreachable := 0
		for _, hop := range trace.Hops {
			if hop.Unreachable() {
				unreachable++
				continue
			}
			m.hopRTT.WithLabelValues(target, strconv.Itoa(hop.Number)).Set(meanRTT(hop).Seconds())
		}
		m.unreachable.WithLabelValues(target).Set(float64(unreachable))
	}
}

// Remove removes the metrics of one target
func (m *metrics) Remove(target string) error {
	m.hopRTT.DeletePartialMatch(prometheus.Labels{"target": target})

	if !m.pathLength.DeleteLabelValues(target) {
		return checks.ErrMetricNotFound{Label: target}
	}

	if !m.unreachable.DeleteLabelValues(target) {
		return checks.ErrMetricNotFound{Label: target}
	}

	if !m.count.DeleteLabelValues(target) {
		return checks.ErrMetricNotFound{Label: target}
	}

	return nil
}

// meanRTT averages the RTTs of the responding probes of a hop.
func meanRTT(hop traceroute.Hop) time.Duration {
	rtts := hop.RTTs()
	if len(rtts) == 0 {
		return 0
	}

	var sum time.Duration
	for _, rtt := range rtts {
		sum += rtt
	}
	return sum / time.Duration(len(rtts))
}
