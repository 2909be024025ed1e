// Copyright © 2022-2025 Obol Labs Inc. Licensed under the terms of a Business Source License 1.1

package cmd

import (
	"context"
	"io"
	"os"
	"sort"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/obolnetwork/ipfslog/app/errors"
	"github.com/obolnetwork/ipfslog/app/forkjoin"
	"github.com/obolnetwork/ipfslog/app/log"
	"github.com/obolnetwork/ipfslog/app/promauto"
	"github.com/obolnetwork/ipfslog/app/tracer"
	"github.com/obolnetwork/ipfslog/app/version"
	"github.com/obolnetwork/ipfslog/app/z"
	"github.com/obolnetwork/ipfslog/logparse"
)

// parseConfig is the configuration of the parse commands.
type parseConfig struct {
	Log         log.Config
	Grammar     logparse.Config
	Workers     int
	JSON        bool
	MetricsFile string
	TraceFile   string
	OTLPAddress string
}

var kindDescriptions = map[logparse.Kind]string{
	logparse.KindBandwidth:  "Parse `ipfs stats bw` bandwidth logs",
	logparse.KindBitswap:    "Parse `ipfs bitswap stat` logs",
	logparse.KindKnownPeers: "Parse `ipfs swarm addrs` known peers logs",
	logparse.KindOpenPeers:  "Parse `ipfs swarm peers` open connection logs",
	logparse.KindDHT:        "Parse `ipfs log tail` DHT event logs",
}

type parseFunc func(ctx context.Context, out io.Writer, kind logparse.Kind, conf parseConfig, paths []string) error

// newParseCmd returns the command parsing log files of the kind.
func newParseCmd(kind logparse.Kind, runFunc parseFunc) *cobra.Command {
	var conf parseConfig

	cmd := &cobra.Command{
		Use:   string(kind) + " FILE...",
		Short: kindDescriptions[kind],
		Long: kindDescriptions[kind] + `. Every file is parsed into records, malformed
record blocks are skipped and reported. Bandwidth files are expected to be named
bandwidth<protocol>.log, plain bandwidth.log holds the cumulative counters.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runFunc(cmd.Context(), cmd.OutOrStdout(), kind, conf, args)
		},
	}

	bindLogFlags(cmd.Flags(), &conf.Log)
	bindGrammarFlags(cmd.Flags(), &conf.Grammar)
	bindOutputFlags(cmd.Flags(), &conf)

	return cmd
}

func runParse(ctx context.Context, out io.Writer, kind logparse.Kind, conf parseConfig, paths []string) error {
	ctx, stop, err := setup(ctx, conf)
	if err != nil {
		return err
	}
	defer stop()

	reports, err := parseFiles(ctx, kind, conf, paths)
	if err != nil {
		return err
	}

	if err := writeReports(out, conf.JSON, reports); err != nil {
		return err
	}

	return writeMetrics(conf.MetricsFile)
}

// setup initialises logging and tracing and validates the grammar.
// The returned function flushes the traces.
func setup(ctx context.Context, conf parseConfig) (context.Context, func(), error) {
	if err := log.InitLogger(conf.Log); err != nil {
		return ctx, nil, err
	}

	if err := conf.Grammar.Validate(); err != nil {
		return ctx, nil, errors.Wrap(err, "invalid log grammar")
	}

	ctx = log.WithTopic(ctx, "cmd")
	version.LogInfo(ctx, "ipfslog starting")

	var (
		opts      []tracer.Option
		closeFile = func() error { return nil }
	)
	if conf.TraceFile != "" {
		f, err := os.Create(conf.TraceFile)
		if err != nil {
			return ctx, nil, errors.Wrap(err, "create trace file", z.Str("path", conf.TraceFile))
		}
		opts = append(opts, tracer.WithStdOut(f))
		closeFile = f.Close
	}
	opts = append(opts, tracer.WithOTLPOrNoop(conf.OTLPAddress))

	stopTracer, err := tracer.Init(opts...)
	if err != nil {
		_ = closeFile()
		return ctx, nil, err
	}

	stop := func() {
		// Flush even if the command was interrupted.
		if err := stopTracer(context.WithoutCancel(ctx)); err != nil {
			log.Warn(ctx, "Failed to flush traces", err)
		}
		if err := closeFile(); err != nil {
			log.Warn(ctx, "Failed to close trace file", err)
		}
	}

	return ctx, stop, nil
}

// fileTask is a log file to parse and its position in the command arguments.
type fileTask struct {
	Index int
	Path  string
}

// parseFiles parses the files concurrently and returns the reports in argument order.
func parseFiles(ctx context.Context, kind logparse.Kind, conf parseConfig, paths []string) ([]fileReport, error) {
	var tasks []fileTask
	for i, path := range paths {
		tasks = append(tasks, fileTask{Index: i, Path: path})
	}

	work := func(ctx context.Context, task fileTask) (fileReport, error) {
		return parseFile(ctx, kind, conf.Grammar, task.Path)
	}

	results, cancel := forkjoin.NewWithInputs(ctx, work, tasks,
		forkjoin.WithWorkers(conf.Workers),
		forkjoin.WithInputBuffer(len(tasks)),
	)
	defer cancel()

	flat, err := results.Flatten()
	for _, res := range flat {
		if res.Err != nil {
			log.Error(ctx, "Failed to parse log file", res.Err, z.Str("kind", string(kind)))
		}
	}
	if err != nil {
		return nil, err
	}

	sort.Slice(flat, func(i, j int) bool {
		return flat[i].Input.Index < flat[j].Input.Index
	})

	var resp []fileReport
	for _, res := range flat {
		log.Info(ctx, "Parsed log file",
			z.Str("kind", string(kind)),
			z.Str("path", res.Input.Path),
			z.Int("records", res.Output.Records),
			z.Int("skipped", res.Output.Skipped),
		)
		resp = append(resp, res.Output)
	}

	return resp, nil
}

// writeMetrics writes the parse metrics to the textfile if configured.
func writeMetrics(filename string) error {
	if filename == "" {
		return nil
	}

	return promauto.WriteTextfile(filename, prometheus.Labels{"job": "ipfslog"})
}
