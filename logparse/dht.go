// Copyright © 2022-2025 Obol Labs Inc. Licensed under the terms of a Business Source License 1.1

package logparse

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/obolnetwork/ipfslog/app/errors"
	"github.com/obolnetwork/ipfslog/app/z"
)

// dhtLocalLayout is the layout of event start times without a zone, interpreted as UTC.
const dhtLocalLayout = "2006-01-02T15:04:05"

// DHTRecord is a single DHT event of the node's event log (`ipfs log tail`).
type DHTRecord struct {
	// Timestamp is the event start, truncated to the second.
	Timestamp time.Time `json:"timestamp"`
	Operation string    `json:"operation"`
	// Key is the content or peer key the event refers to, empty if the event isn't keyed.
	Key string `json:"key"`
}

// dhtEvent is the subset of an event log line that is retained.
type dhtEvent struct {
	Start     string         `json:"Start"`
	Operation string         `json:"Operation"`
	Tags      map[string]any `json:"Tags"`
}

// DHT parses DHT event logs: one JSON event object per line.
type DHT struct {
	cfg Config
}

// NewDHT returns a new DHT event log parser or an error if the config is invalid.
func NewDHT(cfg Config) (DHT, error) {
	if err := cfg.Validate(); err != nil {
		return DHT{}, err
	}

	return DHT{cfg: cfg}, nil
}

// ParseFile parses the DHT event log file.
func (p DHT) ParseFile(ctx context.Context, path string) (Result[DHTRecord], error) {
	return runFile(ctx, KindDHT, path, p.Parse)
}

// Parse parses the raw DHT event log. Lines that aren't JSON events are skipped.
func (p DHT) Parse(ctx context.Context, raw string) Result[DHTRecord] {
	return run(ctx, KindDHT, raw, StrategyLine, p.cfg, func(_ context.Context, b Block) (DHTRecord, error) {
		return parseDHTEvent(b)
	})
}

func parseDHTEvent(b Block) (DHTRecord, error) {
	if len(b) != 1 {
		return DHTRecord{}, errors.Wrap(ErrShape, "unexpected event line count", z.Int("lines", len(b)))
	}

	var event dhtEvent
	if err := json.Unmarshal([]byte(b[0]), &event); err != nil {
		return DHTRecord{}, errors.Wrap(ErrShape, "invalid event json", z.Str("cause", err.Error()))
	}

	if event.Start == "" || event.Operation == "" {
		return DHTRecord{}, errors.Wrap(ErrShape, "missing event start or operation")
	}

	ts, err := parseEventStart(event.Start)
	if err != nil {
		return DHTRecord{}, err
	}

	return DHTRecord{
		Timestamp: ts,
		Operation: event.Operation,
		Key:       eventKey(event.Tags),
	}, nil
}

// parseEventStart returns the UTC start time truncated to the second. Zoneless
// times are interpreted as UTC.
func parseEventStart(start string) (time.Time, error) {
	if ts, err := time.Parse(time.RFC3339Nano, start); err == nil {
		return ts.UTC().Truncate(time.Second), nil
	}

	secs, _, _ := strings.Cut(start, ".")
	ts, err := time.Parse(dhtLocalLayout, secs)
	if err != nil {
		return time.Time{}, errors.Wrap(ErrField, "invalid event start", z.Str("start", start))
	}

	return ts.UTC(), nil
}

// eventKey returns the "key" tag of the event or empty.
func eventKey(tags map[string]any) string {
	switch key := tags["key"].(type) {
	case nil:
		return ""
	case string:
		return key
	default:
		return fmt.Sprint(key)
	}
}
