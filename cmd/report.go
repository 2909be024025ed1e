// Copyright © 2022-2025 Obol Labs Inc. Licensed under the terms of a Business Source License 1.1

package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/obolnetwork/ipfslog/app/errors"
	"github.com/obolnetwork/ipfslog/app/z"
	"github.com/obolnetwork/ipfslog/logparse"
)

// fileReport summarises the records parsed from a single log file.
type fileReport struct {
	Kind    logparse.Kind
	Path    string
	Records int
	Skipped int
	First   time.Time
	Last    time.Time
	// Details are kind specific summary fragments.
	Details []string
	// Items are the parsed records.
	Items []any
}

// parseFile parses the file with the parser of the kind and summarises the result.
func parseFile(ctx context.Context, kind logparse.Kind, cfg logparse.Config, path string) (fileReport, error) {
	switch kind {
	case logparse.KindBandwidth:
		parser, err := logparse.NewBandwidth(cfg)
		if err != nil {
			return fileReport{}, err
		}

		return parseWith(ctx, path, parser.ParseFile, bandwidthReport)
	case logparse.KindBitswap:
		parser, err := logparse.NewBitswap(cfg)
		if err != nil {
			return fileReport{}, err
		}

		return parseWith(ctx, path, parser.ParseFile, bitswapReport)
	case logparse.KindKnownPeers:
		parser, err := logparse.NewKnownPeers(cfg)
		if err != nil {
			return fileReport{}, err
		}

		return parseWith(ctx, path, parser.ParseFile, knownPeersReport)
	case logparse.KindOpenPeers:
		parser, err := logparse.NewOpenPeers(cfg)
		if err != nil {
			return fileReport{}, err
		}

		return parseWith(ctx, path, parser.ParseFile, openPeersReport)
	case logparse.KindDHT:
		parser, err := logparse.NewDHT(cfg)
		if err != nil {
			return fileReport{}, err
		}

		return parseWith(ctx, path, parser.ParseFile, dhtReport)
	default:
		return fileReport{}, errors.New("unsupported log kind", z.Str("kind", string(kind)))
	}
}

// parseWith parses the file and summarises the result with report.
func parseWith[T any](ctx context.Context, path string,
	parse func(context.Context, string) (logparse.Result[T], error),
	report func(string, logparse.Result[T]) fileReport,
) (fileReport, error) {
	res, err := parse(ctx, path)
	if err != nil {
		return fileReport{}, err
	}

	return report(path, res), nil
}

// newReport returns the generic report of the result.
func newReport[T any](kind logparse.Kind, path string, res logparse.Result[T], timestamp func(T) time.Time) fileReport {
	resp := fileReport{
		Kind:    kind,
		Path:    path,
		Records: len(res.Records),
		Skipped: res.Skipped(),
	}

	for i, rec := range res.Records {
		ts := timestamp(rec)
		if i == 0 || ts.Before(resp.First) {
			resp.First = ts
		}
		if i == 0 || ts.After(resp.Last) {
			resp.Last = ts
		}

		resp.Items = append(resp.Items, rec)
	}

	return resp
}

func bandwidthReport(path string, res logparse.Result[logparse.BandwidthRecord]) fileReport {
	resp := newReport(logparse.KindBandwidth, path, res, func(r logparse.BandwidthRecord) time.Time { return r.Timestamp })
	if len(res.Records) == 0 {
		return resp
	}

	// Counters are cumulative, the last sample holds the totals.
	last := res.Records[len(res.Records)-1]
	resp.Details = append(resp.Details,
		"protocol "+last.Protocol,
		"down "+humanize.Bytes(uint64(last.TotalDown)),
		"up "+humanize.Bytes(uint64(last.TotalUp)),
	)

	return resp
}

func bitswapReport(path string, res logparse.Result[logparse.BitswapRecord]) fileReport {
	resp := newReport(logparse.KindBitswap, path, res, func(r logparse.BitswapRecord) time.Time { return r.Timestamp })
	if len(res.Records) == 0 {
		return resp
	}

	last := res.Records[len(res.Records)-1]
	resp.Details = append(resp.Details,
		fmt.Sprintf("received %s blocks (%s)", humanize.Comma(last.BlocksReceived), humanize.Bytes(uint64(max(last.BytesReceived, 0)))),
		fmt.Sprintf("sent %s blocks (%s)", humanize.Comma(last.BlocksSent), humanize.Bytes(uint64(max(last.BytesSent, 0)))),
		fmt.Sprintf("%s partners", humanize.Comma(int64(len(last.Partners)))),
	)

	return resp
}

func knownPeersReport(path string, res logparse.Result[logparse.KnownPeersRecord]) fileReport {
	resp := newReport(logparse.KindKnownPeers, path, res, func(r logparse.KnownPeersRecord) time.Time { return r.Timestamp })

	var (
		peers = make(map[string]bool)
		ips   = make(map[string]bool)
	)
	for _, rec := range res.Records {
		for id, info := range rec.Peers {
			peers[id] = true
			for _, ip := range info.IPs {
				ips[ip] = true
			}
		}
	}

	resp.Details = append(resp.Details, peerDetails(peers)...)
	resp.Details = append(resp.Details, humanize.Comma(int64(len(ips)))+" ips")

	return resp
}

func openPeersReport(path string, res logparse.Result[logparse.OpenPeersRecord]) fileReport {
	resp := newReport(logparse.KindOpenPeers, path, res, func(r logparse.OpenPeersRecord) time.Time { return r.Timestamp })

	var (
		peers  = make(map[string]bool)
		ips    = make(map[string]bool)
		relays int
	)
	for _, rec := range res.Records {
		for _, e := range rec.Peers {
			if e.PeerID != "" {
				peers[e.PeerID] = true
			}
			if e.Addr.Kind() == logparse.AddrRelay {
				relays++
			}
		}
		for _, ip := range rec.IPs() {
			ips[ip] = true
		}
	}

	resp.Details = append(resp.Details, peerDetails(peers)...)
	resp.Details = append(resp.Details,
		humanize.Comma(int64(len(ips)))+" ips",
		humanize.Comma(int64(relays))+" relayed connections",
	)

	return resp
}

func dhtReport(path string, res logparse.Result[logparse.DHTRecord]) fileReport {
	resp := newReport(logparse.KindDHT, path, res, func(r logparse.DHTRecord) time.Time { return r.Timestamp })

	var (
		ops  = make(map[string]int)
		keys = make(map[string]bool)
	)
	for _, rec := range res.Records {
		ops[rec.Operation]++
		if rec.Key != "" {
			keys[rec.Key] = true
		}
	}

	resp.Details = append(resp.Details,
		humanize.Comma(int64(len(ops)))+" operations",
		humanize.Comma(int64(len(keys)))+" keys",
	)

	return resp
}

// peerDetails returns the number of distinct and valid libp2p peer identifiers.
func peerDetails(peers map[string]bool) []string {
	var valid int
	for id := range peers {
		if _, err := logparse.DecodePeerID(id); err == nil {
			valid++
		}
	}

	return []string{
		humanize.Comma(int64(len(peers))) + " peers",
		humanize.Comma(int64(valid)) + " valid peer ids",
	}
}

// jsonRecord is a single JSON line of the --json output.
type jsonRecord struct {
	Kind   logparse.Kind `json:"kind"`
	File   string        `json:"file"`
	Record any           `json:"record"`
}

// writeReports writes the records as JSON lines or a human readable summary per file.
func writeReports(out io.Writer, asJSON bool, reports []fileReport) error {
	if asJSON {
		enc := json.NewEncoder(out)
		for _, rep := range reports {
			for _, item := range rep.Items {
				if err := enc.Encode(jsonRecord{Kind: rep.Kind, File: rep.Path, Record: item}); err != nil {
					return errors.Wrap(err, "write json record", z.Str("path", rep.Path))
				}
			}
		}

		return nil
	}

	for _, rep := range reports {
		if _, err := fmt.Fprintln(out, summaryLine(rep)); err != nil {
			return errors.Wrap(err, "write summary")
		}
	}

	return nil
}

// summaryLine returns a single line summary of the report.
func summaryLine(rep fileReport) string {
	fields := []string{
		humanize.Comma(int64(rep.Records)) + " records",
		humanize.Comma(int64(rep.Skipped)) + " skipped",
	}

	if rep.Records > 0 {
		fields = append(fields, fmt.Sprintf("%s .. %s (%s)",
			rep.First.Format(time.RFC3339),
			rep.Last.Format(time.RFC3339),
			rep.Last.Sub(rep.First).String(),
		))
	}

	fields = append(fields, rep.Details...)

	return fmt.Sprintf("%s %s: %s", rep.Kind, rep.Path, strings.Join(fields, ", "))
}
