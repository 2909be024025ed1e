// Copyright © 2022-2025 Obol Labs Inc. Licensed under the terms of a Business Source License 1.1

package logparse

import (
	"strconv"
	"strings"

	"github.com/obolnetwork/ipfslog/app/errors"
	"github.com/obolnetwork/ipfslog/app/z"
)

// unitMultipliers are the SI byte multipliers reported by go-ipfs.
var unitMultipliers = map[string]float64{
	"b":  1,
	"kb": 1e3,
	"mb": 1e6,
	"gb": 1e9,
}

// unitMultiplier returns the multiplier of the case-insensitive unit with an optional "/s" rate suffix.
func unitMultiplier(unit string) (float64, error) {
	key := strings.ToLower(strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(unit), "/s")))

	m, ok := unitMultipliers[key]
	if !ok {
		return 0, errors.Wrap(ErrField, "unknown byte unit", z.Str("unit", unit))
	}

	return m, nil
}

// Normalize returns the number of bytes (or bytes per second) of the magnitude in the unit.
// E.g. Normalize("12.3", "MB/s") returns 12.3e6.
func Normalize(magnitude, unit string) (float64, error) {
	m, err := unitMultiplier(unit)
	if err != nil {
		return 0, err
	}

	v, err := strconv.ParseFloat(strings.TrimSpace(magnitude), 64)
	if err != nil {
		return 0, errors.Wrap(ErrField, "invalid byte magnitude", z.Str("magnitude", magnitude))
	}
	if v < 0 {
		return 0, errors.Wrap(ErrField, "negative byte magnitude", z.Str("magnitude", magnitude))
	}

	return v * m, nil
}

// ParseByteRate returns the number of bytes of a "<magnitude> <unit>" string like "12.3 MB/s".
func ParseByteRate(s string) (float64, error) {
	fields := strings.Fields(s)
	if len(fields) != 2 {
		return 0, errors.Wrap(ErrField, "invalid byte value", z.Str("value", s))
	}

	return Normalize(fields[0], fields[1])
}

// Render returns the magnitude of bytes in the unit, it is the inverse of Normalize.
func Render(bytes float64, unit string) (float64, error) {
	m, err := unitMultiplier(unit)
	if err != nil {
		return 0, err
	}

	return bytes / m, nil
}
