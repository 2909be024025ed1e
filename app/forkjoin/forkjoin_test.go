// Copyright © 2022-2025 Obol Labs Inc. Licensed under the terms of a Business Source License 1.1

package forkjoin_test

import (
	"context"
	"sort"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/obolnetwork/ipfslog/app/errors"
	"github.com/obolnetwork/ipfslog/app/forkjoin"
)

func TestForkJoin(t *testing.T) {
	ctx := context.Background()

	const n = 100

	testErr := errors.New("test error")

	tests := []struct {
		name        string
		work        forkjoin.Work[int, int]
		failFast    bool
		expectedErr error
		allOutput   bool
	}{
		{
			name:      "happy",
			work:      func(_ context.Context, i int) (int, error) { return i, nil },
			allOutput: true,
		},
		{
			name:        "fail fast",
			expectedErr: testErr,
			failFast:    true,
			work: func(ctx context.Context, i int) (int, error) {
				if i == 0 {
					return 0, testErr
				}
				<-ctx.Done() // Hangs unless failing fast.

				return 0, ctx.Err()
			},
		},
		{
			name:        "all errors processed",
			allOutput:   true,
			expectedErr: testErr,
			work: func(_ context.Context, i int) (int, error) {
				return i, testErr
			},
		},
		{
			name:        "only cancelled",
			expectedErr: context.Canceled,
			failFast:    true,
			work: func(_ context.Context, i int) (int, error) {
				if i < n/2 {
					return 0, context.Canceled
				}

				return 0, nil
			},
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			defer goleak.VerifyNone(t)

			opts := []forkjoin.Option{forkjoin.WithInputBuffer(n)}
			if test.failFast {
				opts = append(opts, forkjoin.WithFailFast())
			}

			fork, join, cancel := forkjoin.New[int, int](ctx, test.work, opts...)
			defer cancel()

			var expected []int
			for i := range n {
				fork(i)
				expected = append(expected, i)
			}

			results, err := join().Flatten()
			require.Len(t, results, n)

			if test.expectedErr != nil {
				require.ErrorIs(t, err, test.expectedErr)
			} else {
				require.NoError(t, err)
			}

			if test.allOutput {
				var outputs []int
				for _, res := range results {
					require.Equal(t, res.Input, res.Output)
					outputs = append(outputs, res.Output)
				}
				sort.Ints(outputs)
				require.Equal(t, expected, outputs)
			}
		})
	}
}

func TestWorkersBounded(t *testing.T) {
	defer goleak.VerifyNone(t)

	var active, peak atomic.Int32
	work := func(_ context.Context, i int) (int, error) {
		cur := active.Add(1)
		for {
			prev := peak.Load()
			if cur <= prev || peak.CompareAndSwap(prev, cur) {
				break
			}
		}
		active.Add(-1)

		return i, nil
	}

	results, cancel := forkjoin.NewWithInputs(context.Background(), work, []int{1, 2, 3, 4, 5, 6, 7, 8}, forkjoin.WithWorkers(2))
	defer cancel()

	resp, err := results.Flatten()
	require.NoError(t, err)
	require.Len(t, resp, 8)
	require.LessOrEqual(t, peak.Load(), int32(2))
}

func TestPanic(t *testing.T) {
	defer goleak.VerifyNone(t)

	fork, join, cancel := forkjoin.New[int, int](context.Background(), nil)
	join()
	cancel()

	// Calling fork after join panics
	require.Panics(t, func() {
		fork(0)
	})

	// Calling join again panics
	require.Panics(t, func() {
		join()
	})
}

func TestLeak(t *testing.T) {
	defer goleak.VerifyNone(t)

	fork, join, cancel := forkjoin.New[int, int](
		context.Background(),
		func(_ context.Context, i int) (int, error) { return i, nil },
	)
	fork(1)
	fork(2)

	results := join()
	<-results // Read 1 or 2
	cancel()  // Leaks if not called.
}
