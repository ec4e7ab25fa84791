// SPDX-FileCopyrightText: 2026 The hopwatch authors
//
// SPDX-License-Identifier: Apache-2.0

package runtime

import (
	"errors"
	"iter"

	"github.com/hopwatch/hopwatch/pkg/checks"
	"github.com/hopwatch/hopwatch/pkg/checks/trace"
)

// Config holds the runtime configuration for the checks hopwatch
// supports. A nil entry means the check is not configured.
type Config struct {
	Traceroute *trace.Config `yaml:"traceroute" json:"traceroute"`
}

// Empty returns true if no checks are configured
func (c Config) Empty() bool {
	return c.size() == 0
}

func (c Config) Validate() (err error) {
	for cfg := range c.Iter() {
		if vErr := cfg.Validate(); vErr != nil {
			err = errors.Join(err, vErr)
		}
	}

	return err
}

// Iter returns the configured checks as an iterator
func (c Config) Iter() iter.Seq[checks.Runtime] {
	return func(yield func(checks.Runtime) bool) {
		if c.Traceroute != nil {
			if !yield(c.Traceroute) {
				return
			}
		}
	}
}

// For returns the configuration of the check with the given
// name, or nil if that check is not configured
func (c Config) For(name string) checks.Runtime {
	for cfg := range c.Iter() {
		if cfg.For() == name {
			return cfg
		}
	}
	return nil
}

// HasTracerouteCheck returns true if the config has a traceroute check
func (c Config) HasTracerouteCheck() bool {
	return c.Traceroute != nil
}

// size returns the number of checks configured
func (c Config) size() int {
	size := 0
	if c.HasTracerouteCheck() {
		size++
	}
	return size
}
