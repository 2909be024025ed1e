// Copyright © 2022-2025 Obol Labs Inc. Licensed under the terms of a Business Source License 1.1

// Package logparse converts the debug logs of a go-ipfs node (bandwidth counters,
// bitswap ledgers, known and open peer listings, DHT events) into typed records.
//
// Each log file is read into memory, segmented into record blocks and every block
// is mapped to a record. Blocks that do not match the expected shape, or contain
// fields that cannot be normalized, are skipped and reported in Result.Skips; they
// never abort the whole file.
package logparse

import (
	"context"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/obolnetwork/ipfslog/app/errors"
	"github.com/obolnetwork/ipfslog/app/log"
	"github.com/obolnetwork/ipfslog/app/tracer"
	"github.com/obolnetwork/ipfslog/app/z"
)

var (
	// ErrShape indicates a record block that doesn't match the expected lines or markers of its log kind.
	ErrShape = errors.NewSentinel("unexpected record shape")
	// ErrField indicates a numeric or unit field that could not be normalized.
	ErrField = errors.NewSentinel("invalid field")
)

// Kind identifies a log type.
type Kind string

const (
	KindBandwidth  Kind = "bandwidth"
	KindBitswap    Kind = "bitswap"
	KindKnownPeers Kind = "knownpeers"
	KindOpenPeers  Kind = "openpeers"
	KindDHT        Kind = "dht"
)

// Kinds returns all supported log kinds.
func Kinds() []Kind {
	return []Kind{KindBandwidth, KindBitswap, KindKnownPeers, KindOpenPeers, KindDHT}
}

// ParseKind returns the kind matching the case-insensitive name.
func ParseKind(name string) (Kind, error) {
	for _, k := range Kinds() {
		if strings.EqualFold(string(k), strings.TrimSpace(name)) {
			return k, nil
		}
	}

	return "", errors.New("unknown log kind", z.Str("kind", name))
}

// Skip describes a record block that was dropped.
type Skip struct {
	// Index is the zero based index of the block in the segmented log.
	Index int
	// Reason is either "shape" or "field".
	Reason string
	Err    error
}

// Result is the outcome of parsing a single log file.
type Result[T any] struct {
	Records []T
	Skips   []Skip
}

// Skipped returns the number of skipped record blocks.
func (r Result[T]) Skipped() int {
	return len(r.Skips)
}

// Blocks returns the total number of record blocks: parsed plus skipped.
func (r Result[T]) Blocks() int {
	return len(r.Records) + len(r.Skips)
}

// run segments the raw log and maps every block to a record with fn, skipping and counting failures.
func run[T any](ctx context.Context, kind Kind, raw string, strategy Strategy, cfg Config,
	fn func(context.Context, Block) (T, error),
) Result[T] {
	var (
		resp   Result[T]
		filter = log.Filter(log.WithFilterBurst(10))
	)

	for i, b := range Segment(raw, strategy, cfg) {
		rec, err := fn(ctx, b)
		if err != nil {
			reason := skipReason(err)
			resp.Skips = append(resp.Skips, Skip{Index: i, Reason: reason, Err: err})
			skippedCounter.WithLabelValues(string(kind), reason).Inc()
			log.Warn(ctx, "Skipping record block", err, z.Int("block", i), z.Str("reason", reason), filter)

			continue
		}

		resp.Records = append(resp.Records, rec)
	}

	recordsCounter.WithLabelValues(string(kind)).Add(float64(len(resp.Records)))

	return resp
}

// runFile reads the file and parses it with run, logging a summary.
func runFile[T any](ctx context.Context, kind Kind, path string, parse func(context.Context, string) Result[T]) (Result[T], error) {
	ctx, span := tracer.Start(ctx, "logparse/"+string(kind),
		trace.WithAttributes(attribute.String("path", path)))
	defer span.End()

	ctx = log.WithCtx(log.WithTopic(ctx, string(kind)), z.Str("path", path))
	t0 := time.Now()

	raw, err := readFile(path)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "read log file")

		return Result[T]{}, err
	}

	resp := parse(ctx, raw)
	span.SetAttributes(
		attribute.Int("records", len(resp.Records)),
		attribute.Int("skipped", resp.Skipped()),
	)

	durationHist.WithLabelValues(string(kind)).Observe(time.Since(t0).Seconds())
	log.Debug(ctx, "Parsed log file",
		z.Int("records", len(resp.Records)),
		z.Int("skipped", resp.Skipped()),
		z.Int("bytes", len(raw)),
	)

	return resp, nil
}

func skipReason(err error) string {
	if errors.Is(err, ErrField) {
		return "field"
	}

	return "shape"
}

// cutLabel returns the value following "label:" if the line starts with the label.
func cutLabel(line, label string) (string, bool) {
	rest, ok := strings.CutPrefix(line, label)
	if !ok {
		return "", false
	}

	rest = strings.TrimSpace(rest)
	rest, ok = strings.CutPrefix(rest, ":")
	if !ok {
		return "", false
	}

	return strings.TrimSpace(rest), true
}
