// Copyright © 2022-2025 Obol Labs Inc. Licensed under the terms of a Business Source License 1.1

package logparse

import (
	"context"
	"path/filepath"
	"strings"
	"time"

	"github.com/obolnetwork/ipfslog/app/errors"
	"github.com/obolnetwork/ipfslog/app/z"
)

const defaultBandwidthProtocol = "cumulative"

// bandwidthLabels are the counter labels of a bandwidth record in order.
var bandwidthLabels = []string{"TotalIn", "TotalOut", "RateIn", "RateOut"}

// BandwidthRecord is a sample of `ipfs stats bw` for a protocol.
type BandwidthRecord struct {
	Protocol  string    `json:"protocol"`
	Timestamp time.Time `json:"timestamp"`
	TotalDown float64   `json:"total_down"`
	TotalUp   float64   `json:"total_up"`
	RateIn    float64   `json:"rate_in"`
	RateOut   float64   `json:"rate_out"`
}

// Bandwidth parses bandwidth logs.
type Bandwidth struct {
	cfg Config
}

// NewBandwidth returns a new bandwidth log parser or an error if the config is invalid.
func NewBandwidth(cfg Config) (Bandwidth, error) {
	if err := cfg.Validate(); err != nil {
		return Bandwidth{}, err
	}

	return Bandwidth{cfg: cfg}, nil
}

// ProtocolFromFilename returns the protocol of a bandwidth log named like "bandwidth<protocol>.log".
// It returns "cumulative" for the plain "bandwidth.log".
func ProtocolFromFilename(path string) string {
	name := filepath.Base(path)
	name = strings.ReplaceAll(name, "bandwidth", "")
	name = strings.ReplaceAll(name, ".log", "")
	name = strings.Trim(name, ".-_")

	if name == "" {
		return defaultBandwidthProtocol
	}

	return name
}

// ParseFile parses the bandwidth log file, deriving the protocol from its name.
func (p Bandwidth) ParseFile(ctx context.Context, path string) (Result[BandwidthRecord], error) {
	protocol := ProtocolFromFilename(path)

	return runFile(ctx, KindBandwidth, path, func(ctx context.Context, raw string) Result[BandwidthRecord] {
		return p.Parse(ctx, protocol, raw)
	})
}

// Parse parses the raw bandwidth log of the protocol.
func (p Bandwidth) Parse(ctx context.Context, protocol, raw string) Result[BandwidthRecord] {
	return run(ctx, KindBandwidth, raw, StrategyDelimiter, p.cfg, func(_ context.Context, b Block) (BandwidthRecord, error) {
		return p.parseBlock(protocol, b)
	})
}

// parseBlock parses a block of a timestamp line, one up to HeaderLines header lines and
// exactly the four "Label: magnitude unit" counter lines. A config without header lines
// expects the counters directly after the timestamp.
func (p Bandwidth) parseBlock(protocol string, b Block) (BandwidthRecord, error) {
	ts, lines, err := b.splitTimestamp(p.cfg.Prefix)
	if err != nil {
		return BandwidthRecord{}, err
	}

	n := len(bandwidthLabels)
	minHeaders := min(1, p.cfg.HeaderLines)
	if len(lines) < n+minHeaders || len(lines) > n+p.cfg.HeaderLines {
		return BandwidthRecord{}, errors.Wrap(ErrShape, "unexpected bandwidth line count",
			z.Int("lines", len(b)), z.Time("timestamp", ts))
	}

	counters := lines[len(lines)-n:]
	values := make([]float64, n)

	for i, label := range bandwidthLabels {
		val, ok := cutLabel(counters[i], label)
		if !ok {
			return BandwidthRecord{}, errors.Wrap(ErrShape, "missing bandwidth counter",
				z.Str("label", label), z.Time("timestamp", ts))
		}

		values[i], err = ParseByteRate(val)
		if err != nil {
			return BandwidthRecord{}, errors.Wrap(err, "parse bandwidth counter", z.Str("label", label))
		}
	}

	return BandwidthRecord{
		Protocol:  protocol,
		Timestamp: ts,
		TotalDown: values[0],
		TotalUp:   values[1],
		RateIn:    values[2],
		RateOut:   values[3],
	}, nil
}
