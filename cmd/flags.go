// Copyright © 2022-2025 Obol Labs Inc. Licensed under the terms of a Business Source License 1.1

package cmd

import (
	"github.com/spf13/pflag"

	"github.com/obolnetwork/ipfslog/app/log"
	"github.com/obolnetwork/ipfslog/logparse"
)

const defaultWorkers = 4

func bindLogFlags(flags *pflag.FlagSet, config *log.Config) {
	def := log.DefaultConfig()
	flags.StringVar(&config.Format, "log-format", def.Format, "Log format; console, logfmt or json")
	flags.StringVar(&config.Level, "log-level", def.Level, "Log level; debug, info, warn or error")
	flags.StringVar(&config.Color, "log-color", def.Color, "Log color; auto, force, disable.")
}

func bindGrammarFlags(flags *pflag.FlagSet, config *logparse.Config) {
	def := logparse.DefaultConfig()
	flags.StringVar(&config.Prefix, "prefix", def.Prefix, "Marker preceding every timestamp line.")
	flags.StringVar(&config.Delimiter, "delimiter", def.Delimiter, "End-of-record marker, appended to the prefix.")
	flags.StringSliceVar(&config.PeerPrefixes, "peer-prefixes", def.PeerPrefixes, "Comma separated line prefixes opening a peer group in known-peers logs.")
	flags.StringSliceVar(&config.Reserved, "reserved-prefixes", def.Reserved, "Comma separated address fragments dropped from known-peers logs.")
	flags.IntVar(&config.HeaderLines, "header-lines", def.HeaderLines, "Maximum number of header lines preceding the bandwidth counters.")
}

func bindOutputFlags(flags *pflag.FlagSet, config *parseConfig) {
	flags.IntVar(&config.Workers, "workers", defaultWorkers, "Number of log files parsed concurrently.")
	flags.BoolVar(&config.JSON, "json", false, "Write records as JSON lines to stdout instead of a summary.")
	flags.StringVar(&config.MetricsFile, "metrics-file", "", "Write parse metrics to this file in the Prometheus text format. Empty disables it.")
	flags.StringVar(&config.TraceFile, "trace-file", "", "Write OpenTelemetry spans as JSON to this file. Empty disables it.")
	flags.StringVar(&config.OTLPAddress, "otlp-address", "", "Export OpenTelemetry spans to this OTLP gRPC collector address, takes precedence over --trace-file. Empty disables it.")
}
