// Copyright © 2022-2025 Obol Labs Inc. Licensed under the terms of a Business Source License 1.1

package logparse

import (
	"context"
	"io/fs"
	"path/filepath"
	"testing"

	promtestutil "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"github.com/obolnetwork/ipfslog/app/errors"
)

func TestParseKind(t *testing.T) {
	for _, k := range Kinds() {
		got, err := ParseKind(string(k))
		require.NoError(t, err)
		require.Equal(t, k, got)
	}

	got, err := ParseKind(" BitSwap ")
	require.NoError(t, err)
	require.Equal(t, KindBitswap, got)

	_, err = ParseKind("swarm")
	require.ErrorContains(t, err, "unknown log kind")
}

func TestConfigValidate(t *testing.T) {
	require.NoError(t, DefaultConfig().Validate())
	require.Equal(t, "::===___END___===", DefaultConfig().sentinel())

	tests := []struct {
		name   string
		mutate func(*Config)
		err    string
	}{
		{"prefix", func(c *Config) { c.Prefix = " " }, "empty timestamp prefix"},
		{"delimiter", func(c *Config) { c.Delimiter = "" }, "empty record delimiter"},
		{"header lines", func(c *Config) { c.HeaderLines = -1 }, "negative header lines"},
		{"peer prefix", func(c *Config) { c.PeerPrefixes = []string{"Q", ""} }, "empty peer prefix"},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			cfg := DefaultConfig()
			test.mutate(&cfg)
			require.ErrorContains(t, cfg.Validate(), test.err)
		})
	}
}

func TestDefaultConfigIsolated(t *testing.T) {
	a := DefaultConfig()
	a.Reserved[0] = "mutated"
	require.Equal(t, "/ip6/::1", DefaultConfig().Reserved[0])
}

func TestCustomGrammar(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Prefix = "@@"
	cfg.Delimiter = "EOR"

	raw := "@@100\nBandwidth\nTotalIn: 1 kB\nTotalOut: 2 kB\nRateIn: 3 B/s\nRateOut: 4 B/s\n@@EOR\n"
	parser, err := NewBandwidth(cfg)
	require.NoError(t, err)

	res := parser.Parse(context.Background(), "kad", raw)
	require.Empty(t, res.Skips)
	require.Len(t, res.Records, 1)
	require.InEpsilon(t, 1000.0, res.Records[0].TotalDown, 1e-9)
}

func TestSkipMetrics(t *testing.T) {
	shape := skippedCounter.WithLabelValues(string(KindBitswap), "shape")
	field := skippedCounter.WithLabelValues(string(KindBitswap), "field")
	records := recordsCounter.WithLabelValues(string(KindBitswap))

	shape0, field0, records0 := promtestutil.ToFloat64(shape), promtestutil.ToFloat64(field), promtestutil.ToFloat64(records)

	raw := "::100\nwantlist [0 keys]\n::===___END___===\n" +
		"::200\nblocks received: x\nblocks sent: 1\ndata received: 1\ndata sent: 1\n" +
		"dup blocks received: 1\ndup data received: 1\nwantlist [0 keys]\npartners [0]\n::===___END___===\n" +
		"::300\nblocks received: 1\nblocks sent: 1\ndata received: 1\ndata sent: 1\n" +
		"dup blocks received: 1\ndup data received: 1\nwantlist [0 keys]\npartners [0]\n::===___END___===\n"

	parser, err := NewBitswap(DefaultConfig())
	require.NoError(t, err)

	res := parser.Parse(context.Background(), raw)
	require.Len(t, res.Records, 1)
	require.Equal(t, 2, res.Skipped())
	require.Equal(t, 3, res.Blocks())

	require.InDelta(t, 1, promtestutil.ToFloat64(shape)-shape0, 0)
	require.InDelta(t, 1, promtestutil.ToFloat64(field)-field0, 0)
	require.InDelta(t, 1, promtestutil.ToFloat64(records)-records0, 0)
}

func TestUnparsedMetrics(t *testing.T) {
	unparsed := unparsedCounter.WithLabelValues(string(KindOpenPeers))
	before := promtestutil.ToFloat64(unparsed)

	raw := "::100\n/ip4/999.0.0.1/tcp/1/ipfs/QmPeer\n/ip4/8.8.8.8/tcp/1/ipfs/QmPeer\n::===___END___===\n"
	parser, err := NewOpenPeers(DefaultConfig())
	require.NoError(t, err)

	res := parser.Parse(context.Background(), raw)
	require.Len(t, res.Records, 1)
	require.Len(t, res.Records[0].Peers, 2)

	require.InDelta(t, 1, promtestutil.ToFloat64(unparsed)-before, 0)
}

func TestParseFileMissing(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing.log")

	parser, err := NewKnownPeers(DefaultConfig())
	require.NoError(t, err)

	_, err = parser.ParseFile(context.Background(), path)
	require.Error(t, err)
	require.True(t, errors.Is(err, fs.ErrNotExist))
	require.ErrorContains(t, err, "read log file")
}

func TestSkipReason(t *testing.T) {
	require.Equal(t, "field", skipReason(errors.Wrap(ErrField, "x")))
	require.Equal(t, "shape", skipReason(errors.Wrap(ErrShape, "x")))
	require.Equal(t, "shape", skipReason(errors.New("other")))
}

func TestCutLabel(t *testing.T) {
	tests := []struct {
		line  string
		label string
		value string
		ok    bool
	}{
		{"TotalIn: 1 kB", "TotalIn", "1 kB", true},
		{"TotalIn :1 kB", "TotalIn", "1 kB", true},
		{"TotalIn 1 kB", "TotalIn", "", false},
		{"X TotalIn: 1 kB", "TotalIn", "", false},
	}

	for _, test := range tests {
		value, ok := cutLabel(test.line, test.label)
		require.Equal(t, test.ok, ok, test.line)
		require.Equal(t, test.value, value, test.line)
	}
}

func TestNewParsersInvalidConfig(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
		err  string
	}{
		{"zero", Config{}, "empty timestamp prefix"},
		{"no delimiter", Config{Prefix: "::"}, "empty record delimiter"},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			_, err := NewBandwidth(test.cfg)
			require.ErrorContains(t, err, test.err)
			_, err = NewBitswap(test.cfg)
			require.ErrorContains(t, err, test.err)
			_, err = NewKnownPeers(test.cfg)
			require.ErrorContains(t, err, test.err)
			_, err = NewOpenPeers(test.cfg)
			require.ErrorContains(t, err, test.err)
			_, err = NewDHT(test.cfg)
			require.ErrorContains(t, err, test.err)
		})
	}
}
