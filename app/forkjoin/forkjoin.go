// Copyright © 2022-2025 Obol Labs Inc. Licensed under the terms of a Business Source License 1.1

// Package forkjoin runs work concurrently on a bounded pool of workers (fork)
// and then waits for all the results (join).
package forkjoin

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/obolnetwork/ipfslog/app/errors"
)

const (
	defaultWorkers  = 4
	defaultInputBuf = 64
)

// Fork enqueues the input to be processed asynchronously.
// It blocks while the input buffer is full and panics if called after Join.
type Fork[I any] func(I)

// Join closes the input queue and returns the results channel.
// It must only be called once.
type Join[I, O any] func() Results[I, O]

// Work is the function the workers call for every input.
type Work[I, O any] func(ctx context.Context, input I) (output O, err error)

// Results is the channel of results, closed once all inputs are processed.
type Results[I, O any] <-chan Result[I, O]

// Result contains the input and resulting output of the work function.
type Result[I, O any] struct {
	Input  I
	Output O
	Err    error
}

// Flatten blocks until all results are available and returns all of them as well
// as the first error that isn't a context cancellation (if any, else the first cancellation).
func (r Results[I, O]) Flatten() ([]Result[I, O], error) {
	var (
		resp      []Result[I, O]
		cancelErr error
		firstErr  error
	)
	for result := range r {
		resp = append(resp, result)

		switch {
		case result.Err == nil:
		case errors.Is(result.Err, context.Canceled):
			if cancelErr == nil {
				cancelErr = result.Err
			}
		case firstErr == nil:
			firstErr = result.Err
		}
	}

	if firstErr != nil {
		return resp, firstErr
	}

	return resp, cancelErr
}

type options struct {
	workers  int
	inputBuf int
	failFast bool
}

// Option configures a fork join.
type Option func(*options)

// WithWorkers returns an option configuring the number of concurrent workers, values below one are ignored.
func WithWorkers(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.workers = n
		}
	}
}

// WithInputBuffer returns an option configuring the input buffer length.
func WithInputBuffer(n int) Option {
	return func(o *options) {
		o.inputBuf = n
	}
}

// WithFailFast returns an option that cancels all remaining work on the first error.
// Remaining results then contain context cancelled errors.
func WithFailFast() Option {
	return func(o *options) {
		o.failFast = true
	}
}

// New returns fork, join and cancel functions for work with input type I and output type O.
// By default every input is processed even if others fail, see WithFailFast.
// Cancel must always be called; after Join it also waits for the workers to return.
//
// Usage:
//
//	fork, join, cancel := forkjoin.New(ctx, parseFile, forkjoin.WithWorkers(4))
//	defer cancel()
//
//	for _, path := range paths {
//	  fork(path)
//	}
//
//	results, err := join().Flatten()
func New[I, O any](rootCtx context.Context, work Work[I, O], opts ...Option) (Fork[I], Join[I, O], context.CancelFunc) {
	o := options{
		workers:  defaultWorkers,
		inputBuf: defaultInputBuf,
	}
	for _, opt := range opts {
		opt(&o)
	}

	var (
		pending    sync.WaitGroup // Forked inputs without delivered results.
		workers    sync.WaitGroup
		joined     atomic.Bool
		zero       O
		input      = make(chan I, o.inputBuf)
		results    = make(chan Result[I, O])
		dropOutput = make(chan struct{})
		dropOnce   sync.Once
		done       = make(chan struct{})
	)

	workCtx, cancelWorkers := context.WithCancel(rootCtx)

	// deliver sends the result asynchronously so workers never block on a slow consumer.
	deliver := func(res Result[I, O]) {
		go func() {
			defer pending.Done()
			select {
			case results <- res:
			case <-dropOutput:
			}
		}()
	}

	for range o.workers {
		workers.Add(1)
		go func() {
			defer workers.Done()
			for in := range input { // Closed by join.
				if err := workCtx.Err(); err != nil {
					deliver(Result[I, O]{Input: in, Output: zero, Err: err})
					continue
				}

				out, err := work(workCtx, in)
				if err != nil && o.failFast {
					cancelWorkers()
				}

				deliver(Result[I, O]{Input: in, Output: out, Err: err})
			}
		}()
	}

	fork := func(in I) {
		pending.Add(1)
		select {
		case input <- in:
		case <-rootCtx.Done():
			pending.Done()
		}
	}

	join := func() Results[I, O] {
		close(input)
		joined.Store(true)

		go func() {
			workers.Wait()
			pending.Wait()
			close(results)
			close(done)
		}()

		return results
	}

	cancel := func() {
		dropOnce.Do(func() { close(dropOutput) })
		cancelWorkers()
		if joined.Load() {
			<-done
		}
	}

	return fork, join, cancel
}

// NewWithInputs calls New, forks all the inputs and joins.
func NewWithInputs[I, O any](ctx context.Context, work Work[I, O], inputs []I, opts ...Option,
) (Results[I, O], context.CancelFunc) {
	fork, join, cancel := New[I, O](ctx, work, opts...)
	for _, in := range inputs {
		fork(in)
	}

	return join(), cancel
}
