// SPDX-FileCopyrightText: 2026 The hopwatch authors
//
// SPDX-License-Identifier: Apache-2.0

package traceroute

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
)

// tracerouteBin is the system utility invoked to produce the raw trace output.
const tracerouteBin = "traceroute"

// commandRunner invokes the traceroute command for a single target and
// returns its raw output. Injectable for tests.
type commandRunner func(ctx context.Context, target Target, opts Options) ([]byte, error)

// commandArgs builds the argument list for the traceroute command.
func commandArgs(target Target, opts Options) []string {
	var args []string
	switch target.Protocol {
	case ProtocolICMP:
		args = append(args, "-I")
	case ProtocolTCP:
		args = append(args, "-T")
	case ProtocolUDP:
	}
	if target.Port != 0 && target.Protocol != ProtocolICMP {
		args = append(args, "-p", strconv.Itoa(target.Port))
	}

	args = append(args,
		"-m", strconv.Itoa(opts.MaxTTL),
		"-q", strconv.Itoa(opts.Probes),
		"-w", strconv.FormatFloat(opts.Timeout.Seconds(), 'f', -1, 64),
	)
	return append(args, target.Address)
}

// runTracerouteCommand executes the traceroute binary and captures its
// standard output. The context bounds the whole invocation; there is no
// further process management.
func runTracerouteCommand(ctx context.Context, target Target, opts Options) ([]byte, error) {
	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, tracerouteBin, commandArgs(target, opts)...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		msg := strings.TrimSpace(stderr.String())
		if msg == "" {
			return nil, fmt.Errorf("failed to run %s for %s: %w", tracerouteBin, target, err)
		}
		return nil, fmt.Errorf("failed to run %s for %s: %w: %s", tracerouteBin, target, err, msg)
	}
	return stdout.Bytes(), nil
}
