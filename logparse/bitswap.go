// Copyright © 2022-2025 Obol Labs Inc. Licensed under the terms of a Business Source License 1.1

package logparse

import (
	"context"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/obolnetwork/ipfslog/app/errors"
	"github.com/obolnetwork/ipfslog/app/z"
)

// Bitswap section markers as printed by `ipfs bitswap stat`.
const (
	markerWantlist       = "wantlist"
	markerPartners       = "partners"
	markerBlocksReceived = "blocks received"
	markerBlocksSent     = "blocks sent"
	markerDataReceived   = "data received"
	markerDataSent       = "data sent"
	markerDupBlocks      = "dup blocks"
	markerDupData        = "dup data"
)

var bitswapMarkers = []string{
	markerWantlist,
	markerPartners,
	markerBlocksReceived,
	markerBlocksSent,
	markerDataReceived,
	markerDataSent,
	markerDupBlocks,
	markerDupData,
}

// BitswapRecord is a sample of `ipfs bitswap stat`.
type BitswapRecord struct {
	Timestamp      time.Time `json:"timestamp"`
	Wantlist       []string  `json:"wantlist"`
	Partners       []string  `json:"partners"`
	BlocksReceived int64     `json:"blocks_received"`
	BlocksSent     int64     `json:"blocks_sent"`
	BytesReceived  int64     `json:"bytes_received"`
	BytesSent      int64     `json:"bytes_sent"`
	DupBlocks      int64     `json:"duplicate_blocks"`
	DupBytes       int64     `json:"duplicate_bytes"`
}

// Bitswap parses bitswap logs.
type Bitswap struct {
	cfg Config
}

// NewBitswap returns a new bitswap log parser or an error if the config is invalid.
func NewBitswap(cfg Config) (Bitswap, error) {
	if err := cfg.Validate(); err != nil {
		return Bitswap{}, err
	}

	return Bitswap{cfg: cfg}, nil
}

// ParseFile parses the bitswap log file.
func (p Bitswap) ParseFile(ctx context.Context, path string) (Result[BitswapRecord], error) {
	return runFile(ctx, KindBitswap, path, p.Parse)
}

// Parse parses the raw bitswap log.
func (p Bitswap) Parse(ctx context.Context, raw string) Result[BitswapRecord] {
	return run(ctx, KindBitswap, raw, StrategyDelimiter, p.cfg, func(_ context.Context, b Block) (BitswapRecord, error) {
		return p.parseBlock(b)
	})
}

func (p Bitswap) parseBlock(b Block) (BitswapRecord, error) {
	ts, lines, err := b.splitTimestamp(p.cfg.Prefix)
	if err != nil {
		return BitswapRecord{}, err
	}

	idx, err := findMarkers(lines, bitswapMarkers)
	if err != nil {
		return BitswapRecord{}, errors.Wrap(err, "bitswap block", z.Time("timestamp", ts))
	}

	iWant, iPartners := idx[markerWantlist], idx[markerPartners]
	if iPartners < iWant {
		return BitswapRecord{}, errors.Wrap(ErrShape, "partners section before wantlist", z.Time("timestamp", ts))
	}

	resp := BitswapRecord{
		Timestamp: ts,
		Wantlist:  append([]string{}, lines[iWant+1:iPartners]...),
		Partners:  append([]string{}, lines[iPartners+1:]...),
	}

	counts := []struct {
		marker string
		field  *int64
		bytes  bool
	}{
		{markerBlocksReceived, &resp.BlocksReceived, false},
		{markerBlocksSent, &resp.BlocksSent, false},
		{markerDataReceived, &resp.BytesReceived, true},
		{markerDataSent, &resp.BytesSent, true},
		{markerDupBlocks, &resp.DupBlocks, false},
		{markerDupData, &resp.DupBytes, true},
	}

	for _, c := range counts {
		line := lines[idx[c.marker]]
		_, val, ok := strings.Cut(line, ": ")
		if !ok {
			return BitswapRecord{}, errors.Wrap(ErrField, "missing bitswap value", z.Str("line", line))
		}

		if c.bytes {
			*c.field, err = parseByteCount(val)
		} else {
			*c.field, err = parseCount(val)
		}
		if err != nil {
			return BitswapRecord{}, errors.Wrap(err, "parse bitswap value", z.Str("marker", c.marker))
		}
	}

	return resp, nil
}

// findMarkers returns the index of the first line starting with each marker.
// Matching is anchored on the line prefix so that wantlist CIDs containing
// a marker as substring are never mistaken for a section.
func findMarkers(lines []string, markers []string) (map[string]int, error) {
	resp := make(map[string]int, len(markers))
	for i, line := range lines {
		lower := strings.ToLower(line)
		for _, m := range markers {
			if _, ok := resp[m]; ok {
				continue
			}
			if strings.HasPrefix(lower, m) {
				resp[m] = i
			}
		}
	}

	for _, m := range markers {
		if _, ok := resp[m]; !ok {
			return nil, errors.Wrap(ErrShape, "missing section marker", z.Str("marker", m))
		}
	}

	return resp, nil
}

// parseCount parses a non-negative integer count.
func parseCount(s string) (int64, error) {
	v, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil || v < 0 {
		return 0, errors.Wrap(ErrField, "invalid count", z.Str("value", s))
	}

	return v, nil
}

// parseByteCount parses a byte quantity that is either a plain integer or a "<magnitude> <unit>" pair.
func parseByteCount(s string) (int64, error) {
	if len(strings.Fields(s)) == 1 {
		return parseCount(s)
	}

	v, err := ParseByteRate(s)
	if err != nil {
		return 0, err
	}

	return int64(math.Round(v)), nil
}
