// SPDX-FileCopyrightText: 2026 The hopwatch authors
//
// SPDX-License-Identifier: Apache-2.0

package traceroute

import "fmt"

// MalformedProbeError is returned when a probe token claims to be a
// response but lacks a parseable address or round-trip time. It is
// non-fatal: the hop keeps its valid probes and is flagged as partial.
type MalformedProbeError struct {
	// Hop is the hop number the token belongs to.
	Hop int `json:"hop" yaml:"hop"`
	// Token is the offending probe token.
	Token string `json:"token" yaml:"token"`
	// Reason describes why the token could not be parsed.
	Reason string `json:"reason" yaml:"reason"`
}

func (e MalformedProbeError) Error() string {
	return fmt.Sprintf("malformed probe token %q in hop %d: %s", e.Token, e.Hop, e.Reason)
}

// SequenceError is returned when the hop numbering of the output is
// broken: a hop line carries no number, or the number is not the
// successor of the previous one. It aborts the remainder of the parse;
// the hops before the offending line are still returned.
type SequenceError struct {
	// Expected is the hop number the parser was expecting.
	Expected int `json:"expected" yaml:"expected"`
	// Got is the hop number found on the offending line. Zero when the
	// line carries no hop number at all.
	Got int `json:"got" yaml:"got"`
	// Line is the offending raw line.
	Line string `json:"line" yaml:"line"`
}

func (e SequenceError) Error() string {
	if e.Got == 0 {
		return fmt.Sprintf("hop sequence broken: expected hop %d, got a hop line without a number: %q", e.Expected, e.Line)
	}
	return fmt.Sprintf("hop sequence broken: expected hop %d, got hop %d", e.Expected, e.Got)
}
