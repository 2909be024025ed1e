// Copyright © 2022-2025 Obol Labs Inc. Licensed under the terms of a Business Source License 1.1

package cmd

import (
	"context"
	"io"
	"path/filepath"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/obolnetwork/ipfslog/app/errors"
	"github.com/obolnetwork/ipfslog/app/log"
	"github.com/obolnetwork/ipfslog/app/z"
	"github.com/obolnetwork/ipfslog/logparse"
)

// kindGlobs are the file name patterns of each log kind in a log directory.
var kindGlobs = map[logparse.Kind]string{
	logparse.KindBandwidth:  "bandwidth*.log",
	logparse.KindBitswap:    "bitswap*.log",
	logparse.KindKnownPeers: "known*peers*.log",
	logparse.KindOpenPeers:  "open*peers*.log",
	logparse.KindDHT:        "dht*.log",
}

type allFunc func(ctx context.Context, out io.Writer, conf parseConfig, dir string) error

// newAllCmd returns the command parsing all the logs of a directory.
func newAllCmd(runFunc allFunc) *cobra.Command {
	var conf parseConfig

	cmd := &cobra.Command{
		Use:   "all DIR",
		Short: "Parse all the logs in a directory",
		Long: `Parses all the logs in a directory, detecting their kind by file name:
bandwidth*.log, bitswap*.log, known*peers*.log, open*peers*.log and dht*.log.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runFunc(cmd.Context(), cmd.OutOrStdout(), conf, args[0])
		},
	}

	bindLogFlags(cmd.Flags(), &conf.Log)
	bindGrammarFlags(cmd.Flags(), &conf.Grammar)
	bindOutputFlags(cmd.Flags(), &conf)

	return cmd
}

// discover returns the log files in the directory by kind.
func discover(dir string) (map[logparse.Kind][]string, error) {
	resp := make(map[logparse.Kind][]string)
	for _, kind := range logparse.Kinds() {
		matches, err := filepath.Glob(filepath.Join(dir, kindGlobs[kind]))
		if err != nil {
			return nil, errors.Wrap(err, "glob log files", z.Str("kind", string(kind)))
		}
		if len(matches) > 0 {
			resp[kind] = matches
		}
	}

	if len(resp) == 0 {
		return nil, errors.New("no log files found", z.Str("dir", dir))
	}

	return resp, nil
}

func runAll(ctx context.Context, out io.Writer, conf parseConfig, dir string) error {
	ctx, stop, err := setup(ctx, conf)
	if err != nil {
		return err
	}
	defer stop()

	files, err := discover(dir)
	if err != nil {
		return err
	}

	kinds := logparse.Kinds()
	reports := make([][]fileReport, len(kinds))

	eg, ectx := errgroup.WithContext(ctx)
	for i, kind := range kinds {
		paths, ok := files[kind]
		if !ok {
			log.Debug(ctx, "No log files of kind", z.Str("kind", string(kind)))
			continue
		}

		eg.Go(func() error {
			var err error
			reports[i], err = parseFiles(ectx, kind, conf, paths)

			return err
		})
	}

	if err := eg.Wait(); err != nil {
		return err
	}

	for _, rep := range reports {
		if err := writeReports(out, conf.JSON, rep); err != nil {
			return err
		}
	}

	return writeMetrics(conf.MetricsFile)
}
