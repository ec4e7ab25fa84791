// SPDX-FileCopyrightText: 2026 The hopwatch authors
//
// SPDX-License-Identifier: Apache-2.0

package traceroute

import (
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/hopwatch/hopwatch/internal/helper"
)

// Result represents the result of a traceroute run, mapping each target
// to the trace parsed from the command output.
type Result map[Target]Trace

// Trace is the parsed output of one traceroute invocation: the ordered
// hop records plus any non-fatal anomalies encountered while parsing.
type Trace struct {
	// Hops are the parsed hop records in ascending hop-number order.
	Hops []Hop `json:"hops" yaml:"hops"`
	// Anomalies are the malformed probe tokens that were dropped while
	// parsing. The affected hops are flagged as partial.
	Anomalies []MalformedProbeError `json:"anomalies,omitempty" yaml:"anomalies,omitempty"`
}

// Protocol represents the probe protocol used for the traceroute.
type Protocol string

// Protocol constants for the traceroute.
const (
	ProtocolICMP Protocol = "icmp"
	ProtocolUDP  Protocol = "udp"
	ProtocolTCP  Protocol = "tcp"
)

func (p Protocol) String() string {
	switch p {
	case ProtocolICMP, ProtocolUDP, ProtocolTCP:
		return string(p)
	default:
		return "unknown"
	}
}

func (p Protocol) IsValid() bool {
	valid := []Protocol{ProtocolICMP, ProtocolUDP, ProtocolTCP}
	return slices.Contains(valid, p)
}

// Options contains the optional configuration for the traceroute.
type Options struct {
	// Retry is the retry configuration for the command invocation.
	Retry helper.RetryConfig `json:"retry" yaml:"retry" mapstructure:"retry"`
	// MaxTTL is the maximum number of hops to probe.
	MaxTTL int `json:"maxHops" yaml:"maxHops" mapstructure:"maxHops"`
	// Probes is the number of probes sent per hop.
	Probes int `json:"probes" yaml:"probes" mapstructure:"probes"`
	// Timeout is the time to wait for a response to each probe.
	Timeout time.Duration `json:"timeout" yaml:"timeout" mapstructure:"timeout"`
}

// Default options for the traceroute command.
const (
	defaultMaxTTL  = 30
	defaultProbes  = 3
	defaultTimeout = 5 * time.Second
)

// withDefaults fills in zero-valued fields with the command defaults.
func (o *Options) withDefaults() Options {
	opts := Options{}
	if o != nil {
		opts = *o
	}
	if opts.MaxTTL == 0 {
		opts.MaxTTL = defaultMaxTTL
	}
	if opts.Probes == 0 {
		opts.Probes = defaultProbes
	}
	if opts.Timeout == 0 {
		opts.Timeout = defaultTimeout
	}
	return opts
}

// Target represents a target for the traceroute.
type Target struct {
	// Protocol is the probe protocol to use for the traceroute.
	// Defaults to ICMP when empty.
	Protocol Protocol `json:"protocol" yaml:"protocol" mapstructure:"protocol"`
	// Address is the hostname or IP address to trace to.
	Address string `json:"address" yaml:"address" mapstructure:"address"`
	// Port is the destination port to probe. Only used for TCP and UDP.
	Port int `json:"port" yaml:"port" mapstructure:"port"`
}

// withDefaults returns the target with an empty protocol replaced by ICMP.
func (t Target) withDefaults() Target {
	if t.Protocol == "" {
		t.Protocol = ProtocolICMP
	}
	return t
}

func (t Target) String() string {
	if t.Port != 0 {
		return net.JoinHostPort(t.Address, strconv.Itoa(t.Port))
	}
	return t.Address
}

func (t Target) Validate() error {
	if t.Address == "" {
		return errors.New("target address cannot be empty")
	}
	if t.Protocol != "" && !t.Protocol.IsValid() {
		return fmt.Errorf("invalid target protocol: %s", t.Protocol)
	}
	if t.Port < 0 || t.Port > 65535 {
		return fmt.Errorf("invalid target port: %d, must be between 0 and 65535", t.Port)
	}
	return nil
}

// Probe is the result of a single probe attempt within a hop. It is
// either a timeout or a response carrying the responding address, the
// reverse-DNS name (empty when resolution failed) and the round-trip time.
type Probe struct {
	// Addr is the responding address. Empty for a timed-out probe.
	Addr string `json:"addr,omitempty" yaml:"addr,omitempty"`
	// Host is the reverse-DNS name of the responder. Empty when the
	// traceroute could not resolve one.
	Host string `json:"host,omitempty" yaml:"host,omitempty"`
	// RTT is the measured round-trip time of the probe.
	RTT time.Duration `json:"-" yaml:"-"`
	// Timeout reports whether the probe received no response.
	Timeout bool `json:"timeout,omitempty" yaml:"timeout,omitempty"`
}

func (p Probe) MarshalJSON() ([]byte, error) {
	type alias Probe
	return json.Marshal(&struct {
		RTT string `json:"rtt,omitempty"`
		alias
	}{
		RTT:   rttString(p),
		alias: alias(p),
	})
}

func rttString(p Probe) string {
	if p.Timeout {
		return ""
	}
	return p.RTT.String()
}

func (p Probe) String() string {
	if p.Timeout {
		return timeoutMarker
	}
	return fmt.Sprintf("%s  %s", p.Addr, p.RTT.String())
}

// Hop is the structured record of one hop along the path. It is built
// while scanning a single hop line and not mutated afterwards.
type Hop struct {
	// Number is the hop number as printed by traceroute.
	Number int `json:"hop" yaml:"hop"`
	// Probes holds every probe attempt for this hop in order, timeouts
	// included. Probes against the same address are kept individually.
	Probes []Probe `json:"probes" yaml:"probes"`
	// Partial reports that at least one malformed probe token was
	// dropped from this hop's line.
	Partial bool `json:"partial,omitempty" yaml:"partial,omitempty"`
}

// Addresses returns the distinct responding addresses of the hop in
// insertion order. Empty for a fully timed-out hop.
func (h Hop) Addresses() []string {
	addrs := []string{}
	for _, p := range h.Probes {
		if p.Timeout {
			continue
		}
		if !slices.Contains(addrs, p.Addr) {
			addrs = append(addrs, p.Addr)
		}
	}
	return addrs
}

// RTTs returns the round-trip times of the responding probes only,
// in probe order. Timed-out probes contribute no value.
func (h Hop) RTTs() []time.Duration {
	rtts := []time.Duration{}
	for _, p := range h.Probes {
		if !p.Timeout {
			rtts = append(rtts, p.RTT)
		}
	}
	return rtts
}

// Unreachable reports whether every probe of the hop timed out.
func (h Hop) Unreachable() bool {
	return len(h.RTTs()) == 0
}

func (h Hop) String() string {
	const maxNameLength = 45

	name := timeoutMarker
	for _, p := range h.Probes {
		if p.Timeout {
			continue
		}
		name = p.Host
		if name == "" || len(name) > maxNameLength {
			name = p.Addr
		}
		break
	}

	probes := make([]string, 0, len(h.Probes))
	for _, p := range h.Probes {
		probes = append(probes, rttOrTimeout(p))
	}

	return fmt.Sprintf("%-2d  %-45.45s  %s",
		h.Number, name, strings.Join(probes, "  "))
}

func rttOrTimeout(p Probe) string {
	if p.Timeout {
		return timeoutMarker
	}
	return p.RTT.String()
}
