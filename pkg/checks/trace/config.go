// SPDX-FileCopyrightText: 2026 The hopwatch authors
//
// SPDX-License-Identifier: Apache-2.0

package trace

import (
	"fmt"
	"net"
	"net/url"
	"time"

	"github.com/hopwatch/hopwatch/internal/traceroute"
	"github.com/hopwatch/hopwatch/pkg/checks"
)

// Config is the configuration for the traceroute check
type Config struct {
	// Targets is a list of targets to traceroute to.
	Targets []traceroute.Target `json:"targets" yaml:"targets" mapstructure:"targets"`
	// Interval is the interval at which to run the traceroute check.
	Interval time.Duration `json:"interval" yaml:"interval" mapstructure:"interval"`
	// Options are the options for the traceroute check.
	traceroute.Options `json:",inline" yaml:",inline" mapstructure:",squash"`
}

func (c *Config) For() string {
	return CheckName
}

func (c *Config) Validate() error {
	if c.Interval <= 0 {
		return checks.ErrInvalidConfig{CheckName: CheckName, Field: "traceroute.interval", Reason: "must be greater than 0"}
	}

	if c.Timeout < 0 {
		return checks.ErrInvalidConfig{CheckName: CheckName, Field: "traceroute.timeout", Reason: "must not be negative"}
	}

	if c.MaxTTL < 0 {
		return checks.ErrInvalidConfig{CheckName: CheckName, Field: "traceroute.maxHops", Reason: "must not be negative"}
	}

	if c.Probes < 0 {
		return checks.ErrInvalidConfig{CheckName: CheckName, Field: "traceroute.probes", Reason: "must not be negative"}
	}

	for i, t := range c.Targets {
		if err := t.Validate(); err != nil {
			return checks.ErrInvalidConfig{CheckName: CheckName, Field: fmt.Sprintf("traceroute.targets[%d]", i), Reason: err.Error()}
		}

		ip := net.ParseIP(t.Address)
		if ip != nil {
			continue
		}

		_, err := url.Parse(t.Address)
		if err != nil {
			return checks.ErrInvalidConfig{CheckName: CheckName, Field: fmt.Sprintf("traceroute.targets[%d].address", i), Reason: "invalid url or ip"}
		}
	}
	return nil
}
