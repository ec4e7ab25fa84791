// SPDX-FileCopyrightText: 2026 The hopwatch authors
//
// SPDX-License-Identifier: Apache-2.0

package traceroute

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"net"
	"strconv"
	"strings"
	"time"
)

const (
	// timeoutMarker is printed by traceroute for a probe without a response.
	timeoutMarker = "*"
	// rttUnit is the unit traceroute appends to every round-trip time.
	rttUnit = "ms"
)

// Parse converts raw traceroute output lines into an ordered sequence
// of hop records, one per hop line. Banner and header lines are skipped.
// Malformed probe tokens are dropped and collected as
// [MalformedProbeError]s; the affected hop keeps its valid probes and is
// flagged as partial. Broken hop numbering aborts the parse with a
// [SequenceError], returning the hops before the offending line.
//
// Numbering is seeded from the first hop line: a trace may start at any
// positive hop number, and every following hop line must carry the
// previous number plus one.
//
// Parse is a pure function: it carries no state between calls and
// performs no logging.
func Parse(lines []string) ([]Hop, []MalformedProbeError, error) {
	hops := []Hop{}
	var anomalies []MalformedProbeError

	// next is the hop number the following hop line must carry.
	// Zero means no hop line has been seen yet.
	next := 0
	for _, line := range lines {
		tokens := strings.Fields(line)
		if len(tokens) == 0 {
			continue
		}

		number, err := strconv.Atoi(tokens[0])
		if err != nil {
			if isHopLine(tokens) {
				expected := next
				if expected == 0 {
					expected = 1
				}
				return hops, anomalies, &SequenceError{Expected: expected, Line: line}
			}
			// Banner or header line, e.g. "traceroute to ... 30 hops max".
			continue
		}
		if next == 0 {
			if number < 1 {
				return hops, anomalies, &SequenceError{Expected: 1, Got: number, Line: line}
			}
			next = number
		} else if number != next {
			return hops, anomalies, &SequenceError{Expected: next, Got: number, Line: line}
		}

		hop, bad := parseHop(number, tokens[1:])
		hops = append(hops, hop)
		anomalies = append(anomalies, bad...)
		next++
	}

	return hops, anomalies, nil
}

// ParseReader reads raw traceroute output line by line and parses it.
// It is the line-source counterpart of [Parse] for callers holding a
// stream instead of a line slice.
func ParseReader(r io.Reader) ([]Hop, []MalformedProbeError, error) {
	var lines []string
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return nil, nil, fmt.Errorf("failed to read trace output: %w", err)
	}
	return Parse(lines)
}

// isHopLine reports whether the tokens carry probe data. Used to tell a
// hop line with a missing number apart from a skippable banner line.
func isHopLine(tokens []string) bool {
	for _, tok := range tokens {
		if tok == timeoutMarker || tok == rttUnit {
			return true
		}
	}
	return false
}

// parseHop scans the probe tokens of one hop line. The scan keeps the
// address and hostname currently in effect, so repeated RTT values
// attach to the most recent responder and mid-line address changes are
// picked up per probe.
func parseHop(number int, tokens []string) (Hop, []MalformedProbeError) {
	hop := Hop{Number: number, Probes: []Probe{}}
	var bad []MalformedProbeError

	malformed := func(token, reason string) {
		bad = append(bad, MalformedProbeError{Hop: number, Token: token, Reason: reason})
		hop.Partial = true
	}

	var addr, host, pendingHost string
	for i := 0; i < len(tokens); i++ {
		tok := tokens[i]
		switch {
		case tok == timeoutMarker:
			hop.Probes = append(hop.Probes, Probe{Timeout: true})
		case tok == rttUnit:
			malformed(tok, "rtt unit without a preceding value")
		case strings.HasPrefix(tok, "!"):
			// Annotation such as !H or !N, follows an RTT and carries no probe data.
		case isNumeric(tok):
			if i+1 >= len(tokens) || tokens[i+1] != rttUnit {
				malformed(tok, "rtt value without a trailing unit")
				continue
			}
			i++
			if addr == "" {
				malformed(tok, "response without a responding address")
				continue
			}
			rtt, err := parseRTT(tok)
			if err != nil {
				malformed(tok, err.Error())
				continue
			}
			hop.Probes = append(hop.Probes, Probe{Addr: addr, Host: host, RTT: rtt})
		case strings.HasPrefix(tok, "("):
			candidate := strings.Trim(tok, "()")
			if net.ParseIP(candidate) == nil {
				malformed(tok, "not a parseable address")
				pendingHost = ""
				continue
			}
			addr = candidate
			host = pendingHost
			if host == addr {
				// traceroute repeats the address when reverse DNS failed.
				host = ""
			}
			pendingHost = ""
		case net.ParseIP(tok) != nil:
			// Bare address without a parenthesized form (numeric output mode).
			addr = tok
			host = ""
			pendingHost = ""
		default:
			pendingHost = tok
		}
	}

	return hop, bad
}

// isNumeric reports whether the token is a plain floating-point value.
func isNumeric(tok string) bool {
	_, err := strconv.ParseFloat(tok, 64)
	return err == nil
}

// parseRTT parses a round-trip time value in milliseconds. The result
// is rounded to microsecond precision, matching the resolution of the
// traceroute output.
func parseRTT(tok string) (time.Duration, error) {
	ms, err := strconv.ParseFloat(tok, 64)
	if err != nil {
		return 0, fmt.Errorf("not a parseable rtt value")
	}
	if ms < 0 {
		return 0, fmt.Errorf("negative rtt value")
	}
	return time.Duration(math.Round(ms*1000)) * time.Microsecond, nil
}
