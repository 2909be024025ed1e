// Copyright © 2022-2025 Obol Labs Inc. Licensed under the terms of a Business Source License 1.1

package logparse

import (
	"strings"

	"github.com/obolnetwork/ipfslog/app/errors"
	"github.com/obolnetwork/ipfslog/app/z"
)

const (
	defaultPrefix      = "::"
	defaultDelimiter   = "===___END___==="
	defaultHeaderLines = 2
)

// defaultReserved are the address fragments of loopback, private, CGNAT and benchmark ranges
// as well as the logging node's own /ipfs overlay announcements.
var defaultReserved = []string{
	"/ip6/::1",
	"/ip4/192.168",
	"/ip4/127.",
	"/ip4/172.",
	"/ip4/10.",
	"/ip4/169.254",
	"/ipfs",
	"/ip4/198.18",
	"/ip4/198.19",
	"/ip4/100.",
}

// Config defines the log grammar parameters shared by all parsers.
type Config struct {
	// Prefix is the marker preceding every timestamp line.
	Prefix string
	// Delimiter is appended to Prefix to form the end-of-record sentinel.
	Delimiter string
	// PeerPrefixes are the line prefixes that open a new peer group in known-peers logs.
	PeerPrefixes []string
	// Reserved are the address fragments dropped from known-peers logs.
	Reserved []string
	// HeaderLines is the maximum number of header lines between the timestamp
	// and the counters of a bandwidth record.
	HeaderLines int
}

// DefaultConfig returns the default grammar matching the go-ipfs logging scripts.
func DefaultConfig() Config {
	return Config{
		Prefix:       defaultPrefix,
		Delimiter:    defaultDelimiter,
		PeerPrefixes: []string{"Q"},
		Reserved:     append([]string(nil), defaultReserved...),
		HeaderLines:  defaultHeaderLines,
	}
}

// Validate returns an error if the config cannot be used to segment logs.
func (c Config) Validate() error {
	if strings.TrimSpace(c.Prefix) == "" {
		return errors.New("empty timestamp prefix")
	}
	if strings.TrimSpace(c.Delimiter) == "" {
		return errors.New("empty record delimiter")
	}
	if c.HeaderLines < 0 {
		return errors.New("negative header lines", z.Int("header_lines", c.HeaderLines))
	}
	for _, p := range c.PeerPrefixes {
		if p == "" {
			return errors.New("empty peer prefix")
		}
	}

	return nil
}

// sentinel returns the end-of-record marker.
func (c Config) sentinel() string {
	return c.Prefix + c.Delimiter
}
