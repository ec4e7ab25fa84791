// SPDX-FileCopyrightText: 2026 The hopwatch authors
//
// SPDX-License-Identifier: Apache-2.0

package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const (
	instanceInfoMetricName = "hopwatch_instance_info"
	instanceInfoHelp       = "Identity and build metadata for this hopwatch instance. Emitted once per instance for fleet inventory and cross-instance correlation."
)

// RegisterInstanceInfo registers the hopwatch_instance_info info-style metric on the given registry.
// It sets the gauge to 1 with labels instance_name and version. The version is the build version
// injected via ldflags; empty strings are allowed.
func RegisterInstanceInfo(registry *prometheus.Registry, instanceName, version string) error {
	info := prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: instanceInfoMetricName,
			Help: instanceInfoHelp,
		},
		[]string{"instance_name", "version"},
	)
	info.WithLabelValues(instanceName, version).Set(1)
	return registry.Register(info)
}
