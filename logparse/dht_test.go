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

const dhtLog = `{"Start":"2018-04-29T11:06:40.123456789Z","Operation":"handleFindPeer","Tags":{"key":"QmKeyA","peer":"QmPeer"}}
{"Start":"2018-04-29T13:06:41.5+02:00","Operation":"handleGetProviders","Tags":{}}

{"Start":"2018-04-29T11:06:42.75","Operation":"handleAddProvider","Tags":{"key":42}}
{"Start":"2018-04-29T11:06:43Z","Operation":"handlePutValue"}
`

func TestDHTParse(t *testing.T) {
	parser, err := logparse.NewDHT(logparse.DefaultConfig())
	require.NoError(t, err)

	res := parser.Parse(context.Background(), dhtLog)
	require.Empty(t, res.Skips)
	require.Equal(t, []logparse.DHTRecord{
		{Timestamp: time.Date(2018, 4, 29, 11, 6, 40, 0, time.UTC), Operation: "handleFindPeer", Key: "QmKeyA"},
		{Timestamp: time.Date(2018, 4, 29, 11, 6, 41, 0, time.UTC), Operation: "handleGetProviders", Key: ""},
		{Timestamp: time.Date(2018, 4, 29, 11, 6, 42, 0, time.UTC), Operation: "handleAddProvider", Key: "42"},
		{Timestamp: time.Date(2018, 4, 29, 11, 6, 43, 0, time.UTC), Operation: "handlePutValue", Key: ""},
	}, res.Records)
}

func TestDHTSkips(t *testing.T) {
	raw := "" +
		`{"Start":"2018-04-29T11:06:40Z","Operation":"handleFindPeer"}` + "\n" +
		`{"Start":"2018-04-29T11:06:4` + "\n" +
		`{"Operation":"handleFindPeer"}` + "\n" +
		`{"Start":"yesterday","Operation":"handleFindPeer"}` + "\n" +
		`::1525000000` + "\n" +
		`{"Start":"2018-04-29T11:06:50Z","Operation":"handleGetValue","Tags":{"key":"QmKey"}}` + "\n"

	parser, err := logparse.NewDHT(logparse.DefaultConfig())
	require.NoError(t, err)

	res := parser.Parse(context.Background(), raw)
	require.Len(t, res.Records, 2)
	require.Equal(t, "QmKey", res.Records[1].Key)
	require.Equal(t, 6, res.Blocks())

	var (
		indexes []int
		reasons []string
	)
	for _, skip := range res.Skips {
		indexes = append(indexes, skip.Index)
		reasons = append(reasons, skip.Reason)
	}
	require.Equal(t, []int{1, 2, 3, 4}, indexes)
	require.Equal(t, []string{"shape", "shape", "field", "shape"}, reasons)
	require.True(t, errors.Is(res.Skips[2].Err, logparse.ErrField))
}

func TestDHTParseFile(t *testing.T) {
	path := testutil.WriteLog(t, "dht.all.log", dhtLog)

	parser, err := logparse.NewDHT(logparse.DefaultConfig())
	require.NoError(t, err)

	res, err := parser.ParseFile(context.Background(), path)
	require.NoError(t, err)
	require.Len(t, res.Records, 4)
	require.Zero(t, res.Skipped())
}
