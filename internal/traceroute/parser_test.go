// SPDX-FileCopyrightText: 2026 The hopwatch authors
//
// SPDX-License-Identifier: Apache-2.0

package traceroute

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse_WellFormed(t *testing.T) {
	lines := []string{
		"traceroute to google.com (142.250.184.174), 30 hops max, 60 byte packets",
		" 1  router.local (10.0.0.1)  2.1 ms  2.3 ms  2.0 ms",
		" 2  10.103.29.254 (10.103.29.254)  3.638 ms  3.630 ms  3.624 ms",
		" 3  * * *",
		" 4  edge-a.example.net (192.0.2.17)  9.5 ms  edge-b.example.net (192.0.2.18)  10.2 ms  9.8 ms",
	}

	hops, anomalies, err := Parse(lines)
	require.NoError(t, err)
	require.Empty(t, anomalies)

	want := []Hop{
		{
			Number: 1,
			Probes: []Probe{
				{Addr: "10.0.0.1", Host: "router.local", RTT: 2100 * time.Microsecond},
				{Addr: "10.0.0.1", Host: "router.local", RTT: 2300 * time.Microsecond},
				{Addr: "10.0.0.1", Host: "router.local", RTT: 2 * time.Millisecond},
			},
		},
		{
			Number: 2,
			Probes: []Probe{
				{Addr: "10.103.29.254", RTT: 3638 * time.Microsecond},
				{Addr: "10.103.29.254", RTT: 3630 * time.Microsecond},
				{Addr: "10.103.29.254", RTT: 3624 * time.Microsecond},
			},
		},
		{
			Number: 3,
			Probes: []Probe{{Timeout: true}, {Timeout: true}, {Timeout: true}},
		},
		{
			Number: 4,
			Probes: []Probe{
				{Addr: "192.0.2.17", Host: "edge-a.example.net", RTT: 9500 * time.Microsecond},
				{Addr: "192.0.2.18", Host: "edge-b.example.net", RTT: 10200 * time.Microsecond},
				{Addr: "192.0.2.18", Host: "edge-b.example.net", RTT: 9800 * time.Microsecond},
			},
		},
	}

	if !cmp.Equal(hops, want) {
		t.Errorf("unexpected hops: -want +got\n%s", cmp.Diff(want, hops))
	}
}

func TestParse_HopNumbersAreContiguous(t *testing.T) {
	lines := []string{
		"traceroute to example.com (93.184.216.34), 30 hops max, 60 byte packets",
		" 1  gw (10.0.0.1)  1.0 ms  1.1 ms  1.2 ms",
		" 2  * * *",
		" 3  93.184.216.34 (93.184.216.34)  20.0 ms  21.0 ms  19.5 ms",
	}

	hops, anomalies, err := Parse(lines)
	require.NoError(t, err)
	require.Empty(t, anomalies)
	require.Len(t, hops, 3)
	for i, hop := range hops {
		assert.Equal(t, i+1, hop.Number)
	}
}

func TestParse_FullyTimedOutHopIsEmitted(t *testing.T) {
	hops, anomalies, err := Parse([]string{" 5  * * *"})
	require.NoError(t, err)
	require.Empty(t, anomalies)
	require.Len(t, hops, 1)

	hop := hops[0]
	assert.Equal(t, 5, hop.Number)
	assert.Equal(t, []Probe{{Timeout: true}, {Timeout: true}, {Timeout: true}}, hop.Probes)
	assert.Empty(t, hop.Addresses())
	assert.Empty(t, hop.RTTs())
	assert.True(t, hop.Unreachable())
}

func TestParse_NumberingSeededFromFirstHopLine(t *testing.T) {
	lines := []string{
		" 4  gw (10.0.0.1)  1.0 ms  1.1 ms  1.2 ms",
		" 5  * * *",
		" 6  93.184.216.34 (93.184.216.34)  20.0 ms  21.0 ms  19.5 ms",
	}

	hops, anomalies, err := Parse(lines)
	require.NoError(t, err)
	require.Empty(t, anomalies)
	require.Len(t, hops, 3)
	for i, hop := range hops {
		assert.Equal(t, i+4, hop.Number)
	}
}

func TestParse_SeededNumberingStillRequiresSuccessors(t *testing.T) {
	lines := []string{
		" 4  gw (10.0.0.1)  1.0 ms  1.1 ms  1.2 ms",
		" 6  93.184.216.34 (93.184.216.34)  20.0 ms  21.0 ms  19.5 ms",
	}

	hops, _, err := Parse(lines)

	var seqErr *SequenceError
	require.ErrorAs(t, err, &seqErr)
	assert.Equal(t, 5, seqErr.Expected)
	assert.Equal(t, 6, seqErr.Got)

	require.Len(t, hops, 1)
	assert.Equal(t, 4, hops[0].Number)
}

func TestParse_NonPositiveFirstHopNumberFails(t *testing.T) {
	hops, _, err := Parse([]string{" -3  gw (10.0.0.1)  1.0 ms  1.1 ms  1.2 ms"})

	var seqErr *SequenceError
	require.ErrorAs(t, err, &seqErr)
	assert.Equal(t, 1, seqErr.Expected)
	assert.Equal(t, -3, seqErr.Got)
	assert.Empty(t, hops)
}

func TestParse_SkippedHopNumberFailsWithPrefix(t *testing.T) {
	lines := []string{
		" 1  gw (10.0.0.1)  1.0 ms  1.1 ms  1.2 ms",
		" 3  93.184.216.34 (93.184.216.34)  20.0 ms  21.0 ms  19.5 ms",
	}

	hops, _, err := Parse(lines)

	var seqErr *SequenceError
	require.ErrorAs(t, err, &seqErr)
	assert.Equal(t, 2, seqErr.Expected)
	assert.Equal(t, 3, seqErr.Got)

	require.Len(t, hops, 1)
	assert.Equal(t, 1, hops[0].Number)
}

func TestParse_MissingHopNumberFailsWithPrefix(t *testing.T) {
	lines := []string{
		" 1  gw (10.0.0.1)  1.0 ms  1.1 ms  1.2 ms",
		"   gw2 (10.0.0.2)  2.0 ms  * *",
	}

	hops, _, err := Parse(lines)

	var seqErr *SequenceError
	require.ErrorAs(t, err, &seqErr)
	assert.Equal(t, 2, seqErr.Expected)
	assert.Zero(t, seqErr.Got)

	require.Len(t, hops, 1)
}

func TestParse_NonMonotonicNumberFails(t *testing.T) {
	lines := []string{
		" 1  gw (10.0.0.1)  1.0 ms  1.1 ms  1.2 ms",
		" 2  ae0.example.net (192.0.2.5)  4.0 ms  4.1 ms  4.2 ms",
		" 2  ae0.example.net (192.0.2.5)  4.3 ms  4.4 ms  4.5 ms",
	}

	hops, _, err := Parse(lines)

	var seqErr *SequenceError
	require.ErrorAs(t, err, &seqErr)
	assert.Equal(t, 3, seqErr.Expected)
	assert.Equal(t, 2, seqErr.Got)
	require.Len(t, hops, 2)
}

func TestParse_MalformedProbeToken(t *testing.T) {
	tests := []struct {
		name       string
		line       string
		wantProbes int
		wantReason string
	}{
		{
			name:       "RTT without unit",
			line:       " 1  gw (10.0.0.1)  2.1  2.3 ms",
			wantProbes: 1,
			wantReason: "rtt value without a trailing unit",
		},
		{
			name:       "RTT without address",
			line:       " 1  2.1 ms  2.3 ms",
			wantProbes: 0,
			wantReason: "response without a responding address",
		},
		{
			name:       "Unit without value",
			line:       " 1  gw (10.0.0.1)  ms  2.3 ms",
			wantProbes: 1,
			wantReason: "rtt unit without a preceding value",
		},
		{
			name:       "Negative RTT value",
			line:       " 1  gw (10.0.0.1)  -1.0 ms  2.3 ms",
			wantProbes: 1,
			wantReason: "negative rtt value",
		},
		{
			name:       "Unparseable address",
			line:       " 1  gw (bogus)  2.3 ms",
			wantProbes: 0,
			wantReason: "not a parseable address",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hops, anomalies, err := Parse([]string{tt.line})
			require.NoError(t, err, "malformed probes must not fail the parse")

			require.Len(t, hops, 1, "the hop must still be emitted")
			hop := hops[0]
			assert.True(t, hop.Partial, "hop with a dropped token must be partial")
			assert.Len(t, hop.RTTs(), tt.wantProbes)

			require.NotEmpty(t, anomalies)
			assert.Equal(t, 1, anomalies[0].Hop)
			assert.Equal(t, tt.wantReason, anomalies[0].Reason)
		})
	}
}

func TestParse_MalformedTokenKeepsEarlierProbes(t *testing.T) {
	lines := []string{" 1  gw (10.0.0.1)  2.1 ms  2.3 ms  9.9"}

	hops, anomalies, err := Parse(lines)
	require.NoError(t, err)
	require.Len(t, hops, 1)
	require.Len(t, anomalies, 1)

	hop := hops[0]
	assert.True(t, hop.Partial)
	assert.Equal(t, []time.Duration{2100 * time.Microsecond, 2300 * time.Microsecond}, hop.RTTs())
	assert.Equal(t, "9.9", anomalies[0].Token)
}

func TestParse_TimeoutMarkerIsNeverMalformed(t *testing.T) {
	hops, anomalies, err := Parse([]string{" 1  gw (10.0.0.1)  2.1 ms  *  2.3 ms"})
	require.NoError(t, err)
	require.Empty(t, anomalies)

	require.Len(t, hops, 1)
	hop := hops[0]
	assert.False(t, hop.Partial)
	require.Len(t, hop.Probes, 3)
	assert.True(t, hop.Probes[1].Timeout)
	assert.Len(t, hop.RTTs(), 2)
}

func TestParse_MissingHostnameIsAbsent(t *testing.T) {
	hops, _, err := Parse([]string{" 1  10.103.29.254 (10.103.29.254)  3.6 ms"})
	require.NoError(t, err)

	require.Len(t, hops, 1)
	require.Len(t, hops[0].Probes, 1)
	probe := hops[0].Probes[0]
	assert.Equal(t, "10.103.29.254", probe.Addr)
	assert.Empty(t, probe.Host, "hostname equal to the address means reverse DNS failed")
}

func TestParse_NumericOutputMode(t *testing.T) {
	hops, _, err := Parse([]string{" 1  10.0.0.1  0.334 ms  0.311 ms  0.302 ms"})
	require.NoError(t, err)

	require.Len(t, hops, 1)
	assert.Equal(t, []string{"10.0.0.1"}, hops[0].Addresses())
	assert.Empty(t, hops[0].Probes[0].Host)
}

func TestParse_AnnotationsAreIgnored(t *testing.T) {
	hops, anomalies, err := Parse([]string{" 1  gw (10.0.0.1)  2.1 ms !H  2.3 ms !H  *"})
	require.NoError(t, err)
	require.Empty(t, anomalies)

	require.Len(t, hops, 1)
	assert.Len(t, hops[0].Probes, 3)
	assert.Len(t, hops[0].RTTs(), 2)
}

func TestParse_AddressChangeCoalescedInAddressesOnly(t *testing.T) {
	line := " 1  a.example.net (192.0.2.1)  1.0 ms  b.example.net (192.0.2.2)  2.0 ms  a.example.net (192.0.2.1)  1.5 ms"

	hops, _, err := Parse([]string{line})
	require.NoError(t, err)
	require.Len(t, hops, 1)

	hop := hops[0]
	assert.Len(t, hop.Probes, 3, "every probe attempt is preserved individually")
	assert.Equal(t, []string{"192.0.2.1", "192.0.2.2"}, hop.Addresses())
}

func TestParse_EmptyInput(t *testing.T) {
	tests := []struct {
		name  string
		lines []string
	}{
		{name: "No lines", lines: nil},
		{name: "Blank lines", lines: []string{"", "   ", "\t"}},
		{name: "Banner only", lines: []string{"traceroute to example.com (93.184.216.34), 30 hops max, 60 byte packets"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hops, anomalies, err := Parse(tt.lines)
			require.NoError(t, err)
			assert.Empty(t, anomalies)
			assert.Empty(t, hops)
			assert.NotNil(t, hops, "empty output yields an empty sequence, not nil")
		})
	}
}

func TestParse_IsPure(t *testing.T) {
	lines := []string{
		"traceroute to example.com (93.184.216.34), 30 hops max, 60 byte packets",
		" 1  gw (10.0.0.1)  1.0 ms  *  1.2 ms",
		" 2  * * *",
		" 3  93.184.216.34 (93.184.216.34)  20.0 ms  21.0 ms  19.5",
	}

	first, firstAnomalies, firstErr := Parse(lines)
	second, secondAnomalies, secondErr := Parse(lines)

	assert.Equal(t, firstErr, secondErr)
	if !cmp.Equal(first, second) {
		t.Errorf("re-parsing the same input differed: %s", cmp.Diff(first, second))
	}
	assert.Equal(t, firstAnomalies, secondAnomalies)
}

func TestParse_RTTCountMatchesRespondedProbes(t *testing.T) {
	lines := []string{
		" 1  gw (10.0.0.1)  1.0 ms  *  1.2 ms",
		" 2  * * *",
		" 3  cr1.example.net (192.0.2.9)  5.0 ms  5.1 ms  5.2 ms",
	}

	hops, _, err := Parse(lines)
	require.NoError(t, err)

	for _, hop := range hops {
		responded := 0
		for _, p := range hop.Probes {
			if !p.Timeout {
				responded++
			}
		}
		assert.Len(t, hop.RTTs(), responded, "hop %d", hop.Number)
	}
}

func TestParseReader(t *testing.T) {
	out := strings.Join([]string{
		"traceroute to example.com (93.184.216.34), 30 hops max, 60 byte packets",
		" 1  gw (10.0.0.1)  1.0 ms  1.1 ms  1.2 ms",
		" 2  * * *",
	}, "\n")

	hops, anomalies, err := ParseReader(strings.NewReader(out))
	require.NoError(t, err)
	assert.Empty(t, anomalies)
	require.Len(t, hops, 2)
	assert.Equal(t, []string{"10.0.0.1"}, hops[0].Addresses())
}

func TestParseReader_ReadError(t *testing.T) {
	errRead := errors.New("read failed")

	_, _, err := ParseReader(&failingReader{err: errRead})
	require.ErrorIs(t, err, errRead)
}

type failingReader struct {
	err error
}

func (r *failingReader) Read([]byte) (int, error) {
	return 0, r.err
}
