// Copyright © 2022-2025 Obol Labs Inc. Licensed under the terms of a Business Source License 1.1

package logparse

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/obolnetwork/ipfslog/app/errors"
	"github.com/obolnetwork/ipfslog/app/z"
)

// Strategy defines how a raw log is split into record blocks.
type Strategy int

const (
	// StrategyDelimiter splits on the Prefix+Delimiter end-of-record sentinel.
	StrategyDelimiter Strategy = iota + 1
	// StrategyTimestamp splits before every timestamp line; the log has no end-of-record marker.
	StrategyTimestamp
	// StrategyLine makes every non-blank line a block of its own, for line oriented event logs.
	StrategyLine
)

func (s Strategy) String() string {
	switch s {
	case StrategyDelimiter:
		return "delimiter"
	case StrategyTimestamp:
		return "timestamp"
	case StrategyLine:
		return "line"
	default:
		return "unknown"
	}
}

// minBlockLines is the minimum number of lines of a block: a timestamp plus payload.
const minBlockLines = 2

// Block is the ordered, trimmed and non-blank lines of a single log sample.
type Block []string

// Segment splits the raw log into record blocks using the strategy.
// A timestamp line always opens a new block. Blocks shorter than two lines
// (trailing output, partial final writes) are discarded.
func Segment(raw string, strategy Strategy, cfg Config) []Block {
	if strategy == StrategyLine {
		return segmentLines(raw)
	}

	chunks := []string{raw}
	if strategy == StrategyDelimiter {
		chunks = strings.Split(raw, cfg.sentinel())
	}

	var (
		resp    []Block
		current Block
	)
	flush := func() {
		if len(current) >= minBlockLines {
			resp = append(resp, current)
		}
		current = nil
	}

	for _, chunk := range chunks {
		for _, line := range strings.Split(chunk, "\n") {
			line = strings.TrimSpace(line)
			if line == "" {
				continue
			}

			if isTimestampLine(line, cfg.Prefix) && len(current) > 0 {
				flush()
			}

			current = append(current, line)
		}

		flush()
	}

	return resp
}

// segmentLines returns a single line block per non-blank line.
func segmentLines(raw string) []Block {
	var resp []Block
	for _, line := range strings.Split(raw, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		resp = append(resp, Block{line})
	}

	return resp
}

// isTimestampLine returns true if the line is the prefix followed by an epoch integer.
func isTimestampLine(line, prefix string) bool {
	rest, ok := strings.CutPrefix(line, prefix)
	if !ok {
		return false
	}

	rest = strings.TrimSpace(rest)
	if rest == "" {
		return false
	}

	for _, r := range rest {
		if r < '0' || r > '9' {
			return false
		}
	}

	return true
}

// ParseTimestamp returns the UTC time of a prefixed epoch timestamp line.
func ParseTimestamp(line, prefix string) (time.Time, error) {
	rest, ok := strings.CutPrefix(strings.TrimSpace(line), prefix)
	if !ok {
		return time.Time{}, errors.Wrap(ErrShape, "missing timestamp prefix", z.Str("line", line))
	}

	epoch, err := strconv.ParseInt(strings.TrimSpace(rest), 10, 64)
	if err != nil {
		return time.Time{}, errors.Wrap(ErrShape, "invalid timestamp", z.Str("line", line))
	}

	return time.Unix(epoch, 0).UTC(), nil
}

// splitTimestamp returns the timestamp of the block and the remaining payload lines.
func (b Block) splitTimestamp(prefix string) (time.Time, Block, error) {
	if len(b) == 0 {
		return time.Time{}, nil, errors.Wrap(ErrShape, "empty block")
	}

	ts, err := ParseTimestamp(b[0], prefix)
	if err != nil {
		return time.Time{}, nil, err
	}

	return ts, b[1:], nil
}

// readFile reads the whole log file into memory.
// Logs are held fully resident; very large files require a matching amount of memory.
func readFile(path string) (string, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return "", errors.Wrap(err, "read log file", z.Str("path", path))
	}

	return string(b), nil
}
