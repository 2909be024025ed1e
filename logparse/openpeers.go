// Copyright © 2022-2025 Obol Labs Inc. Licensed under the terms of a Business Source License 1.1

package logparse

import (
	"context"
	"time"

	"github.com/obolnetwork/ipfslog/app/log"
	"github.com/obolnetwork/ipfslog/app/z"
)

// PeerEntry is a connected peer and the address of the connection.
type PeerEntry struct {
	PeerID string  `json:"peer_id"`
	Addr   Address `json:"addr"`
}

// OpenPeersRecord is a sample of the open connections of the node (`ipfs swarm peers`).
type OpenPeersRecord struct {
	Timestamp time.Time   `json:"timestamp"`
	Peers     []PeerEntry `json:"peers"`
}

// IPs returns the IP literals of the direct connections, relay connections are skipped.
func (r OpenPeersRecord) IPs() []string {
	var resp []string
	for _, e := range r.Peers {
		if ip, ok := e.Addr.IP(); ok {
			resp = append(resp, ip)
		}
	}

	return resp
}

// OpenPeers parses open-peers logs.
type OpenPeers struct {
	cfg Config
}

// NewOpenPeers returns a new open-peers log parser or an error if the config is invalid.
func NewOpenPeers(cfg Config) (OpenPeers, error) {
	if err := cfg.Validate(); err != nil {
		return OpenPeers{}, err
	}

	return OpenPeers{cfg: cfg}, nil
}

// ParseFile parses the open-peers log file.
func (p OpenPeers) ParseFile(ctx context.Context, path string) (Result[OpenPeersRecord], error) {
	return runFile(ctx, KindOpenPeers, path, p.Parse)
}

// Parse parses the raw open-peers log.
func (p OpenPeers) Parse(ctx context.Context, raw string) Result[OpenPeersRecord] {
	return run(ctx, KindOpenPeers, raw, StrategyDelimiter, p.cfg, p.parseBlock)
}

func (p OpenPeers) parseBlock(ctx context.Context, b Block) (OpenPeersRecord, error) {
	ts, lines, err := b.splitTimestamp(p.cfg.Prefix)
	if err != nil {
		return OpenPeersRecord{}, err
	}

	resp := OpenPeersRecord{
		Timestamp: ts,
		Peers:     make([]PeerEntry, 0, len(lines)),
	}

	var ignored int
	for _, line := range lines {
		if !isRelayToken(line) && !hasPeerMarker(line) {
			ignored++ // Boilerplate, not a connection.
			continue
		}

		addr := ParseAddress(line)
		if addr.Kind() == AddrUnparsed {
			unparsedCounter.WithLabelValues(string(KindOpenPeers)).Inc()
		}

		resp.Peers = append(resp.Peers, PeerEntry{PeerID: addr.PeerID(), Addr: addr})
	}

	if ignored > 0 {
		log.Debug(ctx, "Ignoring non-address lines", z.Int("lines", ignored), z.Time("timestamp", ts))
	}

	return resp, nil
}
