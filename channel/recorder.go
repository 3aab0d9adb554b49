// Copyright (c) 2026 by Koanworks.

// Package channel holds small channel helpers for tests.
package channel

import "sync"

// Recorder collects everything sent to its channel so a test can assert
// on the complete sequence once the producers are done.
type Recorder[T any] struct {
	mx   sync.Mutex
	data []T
	ch   chan T
	done chan struct{}
}

func NewRecorder[T any]() *Recorder[T] {
	r := &Recorder[T]{
		ch:   make(chan T, 16),
		done: make(chan struct{}),
	}

	go func() {
		defer close(r.done)
		for v := range r.ch {
			r.mx.Lock()
			r.data = append(r.data, v)
			r.mx.Unlock()
		}
	}()

	return r
}

// C is the channel producers send recorded values to.
func (r *Recorder[T]) C() chan<- T {
	return r.ch
}

// Snapshot returns a copy of the values recorded so far, without
// stopping the intake.
func (r *Recorder[T]) Snapshot() []T {
	r.mx.Lock()
	defer r.mx.Unlock()

	return append([]T(nil), r.data...)
}

// Stop closes the intake, waits until every sent value has been
// recorded and returns the full sequence. Sending after Stop panics.
func (r *Recorder[T]) Stop() []T {
	close(r.ch)
	<-r.done

	r.mx.Lock()
	defer r.mx.Unlock()

	return r.data
}
