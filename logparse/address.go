// Copyright © 2022-2025 Obol Labs Inc. Licensed under the terms of a Business Source License 1.1

package logparse

import (
	"encoding/json"
	"strings"

	"github.com/libp2p/go-libp2p/core/peer"
	ma "github.com/multiformats/go-multiaddr"

	"github.com/obolnetwork/ipfslog/app/errors"
)

const circuitSegment = "p2p-circuit"

// peerMarkers are the multiaddr segments preceding an embedded peer identifier.
var peerMarkers = []string{"/ipfs/", "/p2p/"}

// AddrKind identifies the variant of an Address.
type AddrKind int

const (
	// AddrUnparsed is a raw token that could not be parsed as a multiaddr.
	AddrUnparsed AddrKind = iota
	// AddrDirect is a multiaddr transport path with an optional peer identifier.
	AddrDirect
	// AddrRelay is a circuit relay address; it never has an IP literal.
	AddrRelay
)

func (k AddrKind) String() string {
	switch k {
	case AddrDirect:
		return "direct"
	case AddrRelay:
		return "relay"
	default:
		return "unparsed"
	}
}

// Address is a parsed network address token.
// It is a tagged variant, see Kind.
type Address struct {
	kind   AddrKind
	raw    string
	maddr  ma.Multiaddr
	marker string
	peerID string
	relay  []string
	dest   []string
}

// ParseAddress parses a single address token. It never fails:
// tokens that are not valid multiaddrs are returned as AddrUnparsed.
func ParseAddress(token string) Address {
	token = strings.TrimSpace(token)

	if isRelayToken(token) {
		return parseRelay(token)
	}

	path, marker, peerID := splitPeerID(token)
	if path == "" {
		if peerID == "" {
			return Address{kind: AddrUnparsed, raw: token}
		}

		return Address{kind: AddrDirect, raw: token, marker: marker, peerID: peerID}
	}

	maddr, err := ma.NewMultiaddr(path)
	if err != nil {
		return Address{kind: AddrUnparsed, raw: token, peerID: peerID}
	}

	return Address{
		kind:   AddrDirect,
		raw:    token,
		maddr:  maddr,
		marker: marker,
		peerID: peerID,
	}
}

// Unparsed returns an address retaining the raw token.
func Unparsed(raw string) Address {
	return Address{kind: AddrUnparsed, raw: raw}
}

// isRelayToken returns true if the token contains a circuit relay segment.
func isRelayToken(token string) bool {
	for _, seg := range strings.Split(token, "/") {
		if seg == circuitSegment {
			return true
		}
	}

	return false
}

// hasPeerMarker returns true if the token embeds a peer identifier.
func hasPeerMarker(token string) bool {
	for _, m := range peerMarkers {
		if strings.Contains(token, m) {
			return true
		}
	}

	return false
}

// splitPeerID splits the token on the first peer marker into the transport path and the peer identifier.
func splitPeerID(token string) (path, marker, peerID string) {
	idx := -1
	for _, m := range peerMarkers {
		if i := strings.Index(token, m); i >= 0 && (idx < 0 || i < idx) {
			idx, marker = i, m
		}
	}

	if idx < 0 {
		return token, "", ""
	}

	return token[:idx], marker, strings.TrimSpace(token[idx+len(marker):])
}

// parseRelay splits the token on the circuit segment into relay and destination segments.
// For "/ipfs/<relay>/p2p-circuit/ipfs/<dest>" the relay is [ipfs <relay>] and the destination [ipfs <dest>].
func parseRelay(token string) Address {
	segs := strings.Split(strings.TrimPrefix(token, "/"), "/")

	var relay, dest []string
	for i, seg := range segs {
		if seg == circuitSegment {
			relay = append([]string{}, segs[:i]...)
			dest = append([]string{}, segs[i+1:]...)

			break
		}
	}

	var peerID string
	if n := len(dest); n >= 2 && (dest[n-2] == "ipfs" || dest[n-2] == "p2p") {
		peerID = dest[n-1]
	}

	return Address{
		kind:   AddrRelay,
		raw:    token,
		relay:  relay,
		dest:   dest,
		peerID: peerID,
	}
}

// Kind returns the address variant.
func (a Address) Kind() AddrKind {
	return a.kind
}

// Raw returns the original token.
func (a Address) Raw() string {
	return a.raw
}

// Multiaddr returns the transport path of a direct address or nil.
func (a Address) Multiaddr() ma.Multiaddr {
	return a.maddr
}

// PeerID returns the embedded peer identifier, the destination peer of relay addresses, or empty.
func (a Address) PeerID() string {
	return a.peerID
}

// Relay returns the relay-side and destination-side segments of a relay address.
func (a Address) Relay() (relay []string, dest []string) {
	return a.relay, a.dest
}

// IP returns the IPv4 (or else IPv6) literal of a direct address.
// Relay and unparsed addresses never have an IP literal.
func (a Address) IP() (string, bool) {
	if a.kind != AddrDirect || a.maddr == nil {
		return "", false
	}

	for _, code := range []int{ma.P_IP4, ma.P_IP6} {
		if ip, err := a.maddr.ValueForProtocol(code); err == nil && ip != "" {
			return ip, true
		}
	}

	return "", false
}

// Protocols returns the protocol names of a direct address's transport path, e.g. [ip4 tcp].
func (a Address) Protocols() []string {
	if a.kind != AddrDirect || a.maddr == nil {
		return nil
	}

	var resp []string
	for _, p := range a.maddr.Protocols() {
		resp = append(resp, p.Name)
	}

	return resp
}

// String returns the canonical rendering of the address.
func (a Address) String() string {
	switch a.kind {
	case AddrDirect:
		var resp string
		if a.maddr != nil {
			resp = a.maddr.String()
		}
		if a.peerID != "" {
			resp += a.marker + a.peerID
		}

		return resp
	case AddrRelay:
		var resp string
		if len(a.relay) > 0 {
			resp = "/" + strings.Join(a.relay, "/")
		}
		resp += "/" + circuitSegment
		if len(a.dest) > 0 {
			resp += "/" + strings.Join(a.dest, "/")
		}

		return resp
	default:
		return a.raw
	}
}

// addressJSON is the json representation of an Address.
type addressJSON struct {
	Kind        string   `json:"kind"`
	Addr        string   `json:"addr"`
	PeerID      string   `json:"peer_id,omitempty"`
	IP          string   `json:"ip,omitempty"`
	Protocols   []string `json:"protocols,omitempty"`
	Relay       []string `json:"relay,omitempty"`
	Destination []string `json:"destination,omitempty"`
}

// MarshalJSON implements json.Marshaler.
func (a Address) MarshalJSON() ([]byte, error) {
	ip, _ := a.IP()

	b, err := json.Marshal(addressJSON{
		Kind:        a.kind.String(),
		Addr:        a.String(),
		PeerID:      a.peerID,
		IP:          ip,
		Protocols:   a.Protocols(),
		Relay:       a.relay,
		Destination: a.dest,
	})
	if err != nil {
		return nil, errors.Wrap(err, "marshal address")
	}

	return b, nil
}

// DecodePeerID returns the libp2p peer ID of the identifier or an error if it isn't a valid multihash.
func DecodePeerID(id string) (peer.ID, error) {
	pid, err := peer.Decode(id)
	if err != nil {
		return "", errors.Wrap(err, "decode peer id")
	}

	return pid, nil
}

// ReservedFilter matches address lines containing reserved (local, private or self) fragments.
type ReservedFilter []string

// Match returns true if the line contains any reserved fragment.
func (f ReservedFilter) Match(line string) bool {
	for _, fragment := range f {
		if fragment != "" && strings.Contains(line, fragment) {
			return true
		}
	}

	return false
}
