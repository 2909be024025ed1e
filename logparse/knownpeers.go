// Copyright © 2022-2025 Obol Labs Inc. Licensed under the terms of a Business Source License 1.1

package logparse

import (
	"context"
	"strings"
	"time"

	"github.com/obolnetwork/ipfslog/app/log"
	"github.com/obolnetwork/ipfslog/app/z"
)

// PeerInfo is the addresses a known peer announced in a single sample.
type PeerInfo struct {
	// Addrs contains parsed and unparsed addresses in log order.
	Addrs []Address `json:"addrs"`
	// IPs contains the IP literals of the direct addresses, empty if none.
	IPs []string `json:"ips"`
}

// KnownPeersRecord is a sample of the peers known by the node (`ipfs swarm addrs`).
type KnownPeersRecord struct {
	Timestamp time.Time           `json:"timestamp"`
	Peers     map[string]PeerInfo `json:"peers"`
}

// KnownPeers parses known-peers logs.
type KnownPeers struct {
	cfg      Config
	reserved ReservedFilter
}

// NewKnownPeers returns a new known-peers log parser or an error if the config is invalid.
func NewKnownPeers(cfg Config) (KnownPeers, error) {
	if err := cfg.Validate(); err != nil {
		return KnownPeers{}, err
	}

	return KnownPeers{
		cfg:      cfg,
		reserved: ReservedFilter(cfg.Reserved),
	}, nil
}

// ParseFile parses the known-peers log file.
func (p KnownPeers) ParseFile(ctx context.Context, path string) (Result[KnownPeersRecord], error) {
	return runFile(ctx, KindKnownPeers, path, p.Parse)
}

// Parse parses the raw known-peers log. Records are not delimited, every timestamp line opens a new record.
func (p KnownPeers) Parse(ctx context.Context, raw string) Result[KnownPeersRecord] {
	return run(ctx, KindKnownPeers, raw, StrategyTimestamp, p.cfg, p.parseBlock)
}

// peerGroup is a peer header line's identifier followed by its address lines.
type peerGroup struct {
	id    string
	addrs []string
}

func (p KnownPeers) parseBlock(ctx context.Context, b Block) (KnownPeersRecord, error) {
	ts, lines, err := b.splitTimestamp(p.cfg.Prefix)
	if err != nil {
		return KnownPeersRecord{}, err
	}

	groups, orphans := p.chunk(lines)
	if orphans > 0 {
		log.Debug(ctx, "Ignoring lines before first peer", z.Int("lines", orphans), z.Time("timestamp", ts))
	}

	resp := KnownPeersRecord{
		Timestamp: ts,
		Peers:     make(map[string]PeerInfo, len(groups)),
	}

	for _, g := range groups {
		info, ok := resp.Peers[g.id] // Repeated peers are merged.
		if !ok {
			info.IPs = []string{}
		}
		for _, line := range g.addrs {
			if p.reserved.Match(line) {
				continue
			}

			addr := ParseAddress(line)
			if addr.Kind() == AddrUnparsed {
				unparsedCounter.WithLabelValues(string(KindKnownPeers)).Inc()
			}
			info.Addrs = append(info.Addrs, addr)

			if ip, ok := addr.IP(); ok {
				info.IPs = append(info.IPs, ip)
			}
		}
		resp.Peers[g.id] = info
	}

	return resp, nil
}

// chunk groups the lines by peer header. It returns the groups and the number
// of leading lines (boilerplate) before the first header.
func (p KnownPeers) chunk(lines []string) ([]peerGroup, int) {
	var (
		resp    []peerGroup
		orphans int
	)

	for _, line := range lines {
		if p.isPeerHeader(line) {
			resp = append(resp, peerGroup{id: strings.Fields(line)[0]})
			continue
		}

		if len(resp) == 0 {
			orphans++
			continue
		}

		last := &resp[len(resp)-1]
		last.addrs = append(last.addrs, line)
	}

	return resp, orphans
}

// isPeerHeader returns true if the line opens a new peer group: it starts with
// a peer identifier prefix or contains a parenthesis (e.g. "QmPeer (3)").
func (p KnownPeers) isPeerHeader(line string) bool {
	if strings.Contains(line, "(") {
		return true
	}

	for _, prefix := range p.cfg.PeerPrefixes {
		if strings.HasPrefix(line, prefix) {
			return true
		}
	}

	return false
}
