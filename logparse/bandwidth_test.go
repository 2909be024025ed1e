// Copyright © 2022-2025 Obol Labs Inc. Licensed under the terms of a Business Source License 1.1

package logparse_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/obolnetwork/ipfslog/app/errors"
	"github.com/obolnetwork/ipfslog/logparse"
	"github.com/obolnetwork/ipfslog/testutil"
)

func TestBandwidthCumulative(t *testing.T) {
	raw := "::123456\n===___END___===\nTotalIn: 1.0 GB/s\nTotalOut: 2.0 MB/s\nRateIn: 500 b/s\nRateOut: 0 b/s\n::123456\n===___END___===\n..."

	parser, err := logparse.NewBandwidth(logparse.DefaultConfig())
	require.NoError(t, err)

	res := parser.Parse(context.Background(), logparse.ProtocolFromFilename("bandwidth.log"), raw)

	require.Equal(t, []logparse.BandwidthRecord{{
		Protocol:  "cumulative",
		Timestamp: time.Unix(123456, 0).UTC(),
		TotalDown: 1e9,
		TotalUp:   2e6,
		RateIn:    500,
		RateOut:   0,
	}}, res.Records)

	require.Len(t, res.Skips, 1)
	require.Equal(t, 1, res.Skips[0].Index)
	require.Equal(t, "shape", res.Skips[0].Reason)
	require.True(t, errors.Is(res.Skips[0].Err, logparse.ErrShape))
	require.Equal(t, 2, res.Blocks())
}

func TestProtocolFromFilename(t *testing.T) {
	tests := []struct {
		path string
		want string
	}{
		{"bandwidth.log", "cumulative"},
		{"/var/log/ipfs/bandwidth.log", "cumulative"},
		{"bandwidth-bitswap.log", "bitswap"},
		{"bandwidth_kad.log", "kad"},
		{"bandwidth.identify.log", "identify"},
		{"logs/bandwidthmplex.log", "mplex"},
	}

	for _, test := range tests {
		t.Run(test.path, func(t *testing.T) {
			require.Equal(t, test.want, logparse.ProtocolFromFilename(test.path))
		})
	}
}

func TestBandwidthSkips(t *testing.T) {
	raw := "" +
		// Unknown unit.
		"::100\nBandwidth\nTotalIn: 1 TB\nTotalOut: 1 kB\nRateIn: 1 B/s\nRateOut: 1 B/s\n::===___END___===\n" +
		// Missing counter.
		"::200\nBandwidth\nTotalIn: 1 kB\nTotalOut: 1 kB\nRateIn: 1 B/s\n::===___END___===\n" +
		// Counters out of order.
		"::300\nBandwidth\nTotalOut: 1 kB\nTotalIn: 1 kB\nRateIn: 1 B/s\nRateOut: 1 B/s\n::===___END___===\n" +
		// Too many header lines.
		"::400\nBandwidth\nHeader\nExtra\nTotalIn: 1 kB\nTotalOut: 1 kB\nRateIn: 1 B/s\nRateOut: 1 B/s\n::===___END___===\n" +
		// Valid.
		"::500\nBandwidth\nTotalIn: 4 kB\nTotalOut: 3 kB\nRateIn: 2 B/s\nRateOut: 1 B/s\n::===___END___===\n"

	parser, err := logparse.NewBandwidth(logparse.DefaultConfig())
	require.NoError(t, err)

	res := parser.Parse(context.Background(), "kad", raw)

	require.Len(t, res.Records, 1)
	require.Equal(t, logparse.BandwidthRecord{
		Protocol:  "kad",
		Timestamp: time.Unix(500, 0).UTC(),
		TotalDown: 4000,
		TotalUp:   3000,
		RateIn:    2,
		RateOut:   1,
	}, res.Records[0])

	var reasons []string
	for _, skip := range res.Skips {
		reasons = append(reasons, skip.Reason)
	}
	require.Equal(t, []string{"field", "shape", "shape", "shape"}, reasons)
	require.True(t, errors.Is(res.Skips[0].Err, logparse.ErrField))
}

func TestBandwidthLabelInPayload(t *testing.T) {
	// Header lines that merely contain a label must not be mistaken for counters.
	raw := "::100\nRateOut is reported last\nTotalIn: 1 kB\nTotalOut: 2 kB\nRateIn: 3 B/s\nRateOut: 4 B/s\n::===___END___===\n"

	parser, err := logparse.NewBandwidth(logparse.DefaultConfig())
	require.NoError(t, err)

	res := parser.Parse(context.Background(), "kad", raw)
	require.Empty(t, res.Skips)
	require.Len(t, res.Records, 1)
	require.InEpsilon(t, 4.0, res.Records[0].RateOut, 1e-9)
}

func TestBandwidthParseFile(t *testing.T) {
	raw := "::1525000000\n" +
		"Bandwidth\n" +
		"TotalIn: 1.5 MB\n" +
		"TotalOut: 3.25 kB\n" +
		"RateIn: 12.5 kB/s\n" +
		"RateOut: 0 B/s\n" +
		"::===___END___===\n" +
		"::1525000060\n" +
		"Bandwidth\n" +
		"TotalIn: 2 MB\n" +
		"TotalOut: 4 kB\n" +
		"RateIn: 500 B/s\n" +
		"RateOut: 250 B/s\n" +
		"::===___END___===\n"

	path := testutil.WriteLog(t, "bandwidth-bitswap.log", raw)

	parser, err := logparse.NewBandwidth(logparse.DefaultConfig())
	require.NoError(t, err)

	res, err := parser.ParseFile(context.Background(), path)
	require.NoError(t, err)
	require.Empty(t, res.Skips)

	testutil.RequireGoldenJSON(t, res.Records)
}

func TestBandwidthHeaderRequired(t *testing.T) {
	raw := "::100\nTotalIn: 1 kB\nTotalOut: 2 kB\nRateIn: 3 B/s\nRateOut: 4 B/s\n::===___END___===\n"

	parser, err := logparse.NewBandwidth(logparse.DefaultConfig())
	require.NoError(t, err)

	res := parser.Parse(context.Background(), "kad", raw)
	require.Empty(t, res.Records)
	require.Len(t, res.Skips, 1)
	require.True(t, errors.Is(res.Skips[0].Err, logparse.ErrShape))

	cfg := logparse.DefaultConfig()
	cfg.HeaderLines = 0

	parser, err = logparse.NewBandwidth(cfg)
	require.NoError(t, err)

	res = parser.Parse(context.Background(), "kad", raw)
	require.Empty(t, res.Skips)
	require.Len(t, res.Records, 1)
}
