// SPDX-FileCopyrightText: 2026 The hopwatch authors
//
// SPDX-License-Identifier: Apache-2.0

package traceroute

import (
	"bytes"
	"context"
	"fmt"

	"github.com/hopwatch/hopwatch/internal/helper"
	"github.com/hopwatch/hopwatch/internal/logger"
)

var _ Client = (*execClient)(nil)

// Client is able to run a traceroute to one or more targets.
//
//go:generate go tool moq -out client_moq.go . Client
type Client interface {
	// Run executes the traceroute for the given targets with the specified options.
	// Returns a Result containing the parsed trace for each target, or an error
	// if a target is invalid.
	Run(ctx context.Context, targets []Target, opts *Options) (Result, error)
}

// execClient runs traceroutes by invoking the system traceroute binary.
type execClient struct {
	run commandRunner
}

func NewClient() Client {
	return &execClient{run: runTracerouteCommand}
}

func (c *execClient) Run(ctx context.Context, targets []Target, opts *Options) (Result, error) {
	for _, target := range targets {
		if err := target.Validate(); err != nil {
			return nil, fmt.Errorf("invalid target %s: %w", target, err)
		}
	}

	o := opts.withDefaults()
	res := make(Result, len(targets))
	for _, target := range targets {
		target = target.withDefaults()
		res[target] = c.trace(ctx, target, o)
	}
	return res, nil
}

// trace runs the command for a single target and parses its output.
// A failed invocation yields an empty trace, a broken hop sequence the
// usable prefix; both are logged rather than failing the whole run, so
// the remaining targets still get their results.
func (c *execClient) trace(ctx context.Context, target Target, opts Options) Trace {
	log := logger.FromContext(ctx)

	var out []byte
	retry := helper.Retry(func(ctx context.Context) error {
		var err error
		out, err = c.run(ctx, target, opts)
		return err
	}, opts.Retry)

	if err := retry(ctx); err != nil {
		log.ErrorContext(ctx, "Failed to run traceroute command", "target", target.String(), "error", err)
		return Trace{Hops: []Hop{}}
	}

	hops, anomalies, err := ParseReader(bytes.NewReader(out))
	if err != nil {
		log.WarnContext(ctx, "Trace output broke off, keeping the usable prefix",
			"target", target.String(), "hops", len(hops), "error", err)
	}
	for _, a := range anomalies {
		log.WarnContext(ctx, "Dropped malformed probe token",
			"target", target.String(), "hop", a.Hop, "token", a.Token, "reason", a.Reason)
	}

	return Trace{Hops: hops, Anomalies: anomalies}
}
