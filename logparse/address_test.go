// Copyright © 2022-2025 Obol Labs Inc. Licensed under the terms of a Business Source License 1.1

package logparse_test

import (
	"crypto/rand"
	"encoding/json"
	"testing"

	"github.com/libp2p/go-libp2p/core/crypto"
	"github.com/libp2p/go-libp2p/core/peer"
	"github.com/stretchr/testify/require"

	"github.com/obolnetwork/ipfslog/logparse"
)

func TestParseAddressDirect(t *testing.T) {
	addr := logparse.ParseAddress("/ip4/10.0.0.5/tcp/4001/ipfs/QmPeerA")

	require.Equal(t, logparse.AddrDirect, addr.Kind())
	require.Equal(t, "QmPeerA", addr.PeerID())
	require.Equal(t, []string{"ip4", "tcp"}, addr.Protocols())
	require.Equal(t, "/ip4/10.0.0.5/tcp/4001/ipfs/QmPeerA", addr.String())
	require.Equal(t, "/ip4/10.0.0.5/tcp/4001", addr.Multiaddr().String())

	ip, ok := addr.IP()
	require.True(t, ok)
	require.Equal(t, "10.0.0.5", ip)
}

func TestParseAddressVariants(t *testing.T) {
	tests := []struct {
		token     string
		kind      logparse.AddrKind
		ip        string
		peerID    string
		protocols []string
		str       string
	}{
		{
			token:     "/ip4/8.8.8.8/tcp/4001",
			kind:      logparse.AddrDirect,
			ip:        "8.8.8.8",
			protocols: []string{"ip4", "tcp"},
			str:       "/ip4/8.8.8.8/tcp/4001",
		},
		{
			token:     "/ip6/2001:db8::1/tcp/4001/p2p/QmPeerB",
			kind:      logparse.AddrDirect,
			ip:        "2001:db8::1",
			peerID:    "QmPeerB",
			protocols: []string{"ip6", "tcp"},
			str:       "/ip6/2001:db8::1/tcp/4001/p2p/QmPeerB",
		},
		{
			token:     "/dns4/example.com/tcp/4001",
			kind:      logparse.AddrDirect,
			protocols: []string{"dns4", "tcp"},
			str:       "/dns4/example.com/tcp/4001",
		},
		{
			token:  "/ipfs/QmPeerC",
			kind:   logparse.AddrDirect,
			peerID: "QmPeerC",
			str:    "/ipfs/QmPeerC",
		},
		{
			token:  "/ipfs/QmRelay/p2p-circuit/ipfs/QmDest",
			kind:   logparse.AddrRelay,
			peerID: "QmDest",
			str:    "/ipfs/QmRelay/p2p-circuit/ipfs/QmDest",
		},
		{
			token: "/ip4/1.2.3.4/tcp/4001/p2p/QmRelay/p2p-circuit",
			kind:  logparse.AddrRelay,
			str:   "/ip4/1.2.3.4/tcp/4001/p2p/QmRelay/p2p-circuit",
		},
		{
			token: "not an address",
			kind:  logparse.AddrUnparsed,
			str:   "not an address",
		},
		{
			token:  "/ip4/300.1.1.1/tcp/4001/ipfs/QmPeerD",
			kind:   logparse.AddrUnparsed,
			peerID: "QmPeerD",
			str:    "/ip4/300.1.1.1/tcp/4001/ipfs/QmPeerD",
		},
		{
			token: "/ip4/1.2.3.4/bogus/1",
			kind:  logparse.AddrUnparsed,
			str:   "/ip4/1.2.3.4/bogus/1",
		},
	}

	for _, test := range tests {
		t.Run(test.token, func(t *testing.T) {
			addr := logparse.ParseAddress(test.token)
			require.Equal(t, test.kind, addr.Kind())
			require.Equal(t, test.peerID, addr.PeerID())
			require.Equal(t, test.protocols, addr.Protocols())
			require.Equal(t, test.str, addr.String())
			require.Equal(t, test.token, addr.Raw())

			ip, ok := addr.IP()
			require.Equal(t, test.ip != "", ok)
			require.Equal(t, test.ip, ip)
		})
	}
}

func TestRelayNeverHasIP(t *testing.T) {
	for _, token := range []string{
		"/ipfs/QmRelay/p2p-circuit/ipfs/QmDest",
		"/ip4/1.2.3.4/tcp/4001/ipfs/QmRelay/p2p-circuit/ipfs/QmDest",
		"/p2p-circuit",
		"/ip6/2001:db8::1/tcp/1/p2p-circuit/ip4/5.6.7.8/tcp/1",
	} {
		addr := logparse.ParseAddress(token)
		require.Equal(t, logparse.AddrRelay, addr.Kind(), token)

		ip, ok := addr.IP()
		require.False(t, ok, token)
		require.Empty(t, ip, token)
		require.Empty(t, addr.Protocols(), token)
	}
}

func TestRelaySegments(t *testing.T) {
	addr := logparse.ParseAddress("/ipfs/QmRelay/p2p-circuit/ipfs/QmDest")

	relay, dest := addr.Relay()
	require.Equal(t, []string{"ipfs", "QmRelay"}, relay)
	require.Equal(t, []string{"ipfs", "QmDest"}, dest)

	relay, dest = logparse.ParseAddress("/p2p-circuit").Relay()
	require.Empty(t, relay)
	require.Empty(t, dest)
}

func TestAddressJSON(t *testing.T) {
	b, err := json.Marshal(logparse.ParseAddress("/ip4/10.0.0.5/tcp/4001/ipfs/QmPeerA"))
	require.NoError(t, err)
	require.JSONEq(t, `{
		"kind": "direct",
		"addr": "/ip4/10.0.0.5/tcp/4001/ipfs/QmPeerA",
		"peer_id": "QmPeerA",
		"ip": "10.0.0.5",
		"protocols": ["ip4", "tcp"]
	}`, string(b))

	b, err = json.Marshal(logparse.ParseAddress("/ipfs/QmRelay/p2p-circuit/ipfs/QmDest"))
	require.NoError(t, err)
	require.JSONEq(t, `{
		"kind": "relay",
		"addr": "/ipfs/QmRelay/p2p-circuit/ipfs/QmDest",
		"peer_id": "QmDest",
		"relay": ["ipfs", "QmRelay"],
		"destination": ["ipfs", "QmDest"]
	}`, string(b))

	b, err = json.Marshal(logparse.Unparsed("garbage"))
	require.NoError(t, err)
	require.JSONEq(t, `{"kind": "unparsed", "addr": "garbage"}`, string(b))
}

func TestDecodePeerID(t *testing.T) {
	_, pubkey, err := crypto.GenerateEd25519Key(rand.Reader)
	require.NoError(t, err)
	id, err := peer.IDFromPublicKey(pubkey)
	require.NoError(t, err)

	decoded, err := logparse.DecodePeerID(id.String())
	require.NoError(t, err)
	require.Equal(t, id, decoded)

	_, err = logparse.DecodePeerID("QmPeerA")
	require.ErrorContains(t, err, "decode peer id")
}

func TestReservedFilter(t *testing.T) {
	filter := logparse.ReservedFilter(logparse.DefaultConfig().Reserved)

	for _, line := range []string{
		"/ip6/::1/tcp/4001",
		"/ip4/127.0.0.1/tcp/4001",
		"/ip4/192.168.1.10/udp/4001",
		"/ip4/10.1.2.3/tcp/4001",
		"/ip4/172.17.0.2/tcp/4001",
		"/ip4/169.254.0.1/tcp/4001",
		"/ip4/100.64.0.1/tcp/4001",
		"/ip4/198.18.0.1/tcp/4001",
		"/ip4/8.8.8.8/tcp/4001/ipfs/QmSelf",
	} {
		require.True(t, filter.Match(line), line)
	}

	for _, line := range []string{
		"/ip4/8.8.8.8/tcp/4001",
		"/ip6/2001:db8::1/tcp/4001",
		"/dns4/example.com/tcp/4001",
	} {
		require.False(t, filter.Match(line), line)
	}

	require.False(t, logparse.ReservedFilter{""}.Match("/ip4/8.8.8.8/tcp/4001"))
}
