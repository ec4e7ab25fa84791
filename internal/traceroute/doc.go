// SPDX-FileCopyrightText: 2026 The hopwatch authors
//
// SPDX-License-Identifier: Apache-2.0

// Package traceroute turns the textual output of the system traceroute
// utility into structured per-hop records.
//
// The package has two halves. [Parse] is the core: a pure, single-pass
// parser that converts raw output lines into an ordered sequence of
// [Hop] records, one per hop line, preserving every probe attempt
// (including timeouts) and tolerating banner lines, missing reverse-DNS
// names and malformed probe tokens. [Client] is the collaborator around
// it: it invokes the traceroute binary for one or more [Target]s with
// configurable [Options], feeds the captured output through the parser
// and reports anomalies through the context logger.
//
// Key behaviors:
//   - Hops with zero responding probes are still emitted, so consumers
//     always see a contiguous hop-number sequence
//   - A malformed probe token is collected as a [MalformedProbeError];
//     the hop keeps its valid probes and is flagged as partial
//   - Broken hop numbering aborts the parse with a [SequenceError]
//     carrying the usable prefix
//   - Probe-level timeouts are data, not errors; real-time waiting
//     happens in the command invocation, never in the parser
//
// Typical usage:
//
//	client := traceroute.NewClient()
//	opts   := &traceroute.Options{MaxTTL: 30, Probes: 3, Timeout: 5 * time.Second}
//	res, err := client.Run(ctx, []traceroute.Target{{Protocol: traceroute.ProtocolICMP, Address: "8.8.8.8"}}, opts)
//	// res maps each Target to its parsed Trace
package traceroute
