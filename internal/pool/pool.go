// Copyright 2026 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package pool runs independent tasks on a fixed number of workers.
//
// A task is launched with Launch, which returns a handle, and its
// result is collected with Join. Join is the only synchronization a
// caller needs: a task's inputs must not be mutated until it has been
// joined.
package pool

import (
	"runtime"

	"golang.org/x/sync/errgroup"
)

// Pool is a fixed-size set of workers.
type Pool struct {
	g   errgroup.Group
	ids chan int // Free worker indexes
	n   int
}

// New returns a pool of n workers. If n <= 0, it uses GOMAXPROCS.
func New(n int) *Pool {
	if n <= 0 {
		n = runtime.GOMAXPROCS(-1)
	}
	p := &Pool{ids: make(chan int, n), n: n}
	p.g.SetLimit(n)
	for i := 0; i < n; i++ {
		p.ids <- i
	}
	return p
}

// Workers returns the number of workers in p. Worker indexes passed to
// tasks are in [0, Workers()).
func (p *Pool) Workers() int {
	return p.n
}

// Close waits for all launched tasks to finish.
func (p *Pool) Close() {
	p.g.Wait()
}

// Task is the handle of a launched task producing a T.
type Task[T any] struct {
	done  chan struct{}
	val   T
	panic any
}

// Launch schedules fn to run on a worker of p and returns its handle.
// fn receives the index of the worker running it; no two tasks run on
// the same worker index at the same time. Launch blocks only while all
// workers are busy.
func Launch[T any](p *Pool, fn func(worker int) T) *Task[T] {
	t := &Task[T]{done: make(chan struct{})}
	p.g.Go(func() error {
		id := <-p.ids
		defer func() {
			if r := recover(); r != nil {
				t.panic = r
			}
			p.ids <- id
			close(t.done)
		}()
		t.val = fn(id)
		return nil
	})
	return t
}

// Join blocks until t has finished and returns its result. If the task
// panicked, Join panics with the same value on the calling goroutine.
func (t *Task[T]) Join() T {
	<-t.done
	if t.panic != nil {
		panic(t.panic)
	}
	return t.val
}

// JoinAll joins every task in ts in order and returns their results.
func JoinAll[T any](ts []*Task[T]) []T {
	out := make([]T, len(ts))
	for i, t := range ts {
		out[i] = t.Join()
	}
	return out
}
