// Copyright (c) 2026 by Koanworks.
// Licensed under the Apache License, Version 2.0.
// See the LICENSE file or http://www.apache.org/licenses/LICENSE-2.0 for details.

package signal

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/koanworks/presence/peerlink"
)

var ErrClosed = errors.New("signaler closed")

// Loopback is an in-process signaler: two crossed channels standing in for a
// signaling server, so a handshake can complete with no server deployed.
// NewLoopbackPair returns the two ends; closing either end settles pending
// operations on both.
type Loopback struct {
	out  chan<- peerlink.SignalEnvelope
	in   <-chan peerlink.SignalEnvelope
	done chan struct{}
	once *sync.Once
}

const loopbackBuffer = 16

func NewLoopbackPair() (*Loopback, *Loopback) {
	ab := make(chan peerlink.SignalEnvelope, loopbackBuffer)
	ba := make(chan peerlink.SignalEnvelope, loopbackBuffer)
	done := make(chan struct{})
	once := &sync.Once{}

	a := &Loopback{out: ab, in: ba, done: done, once: once}
	b := &Loopback{out: ba, in: ab, done: done, once: once}

	return a, b
}

func (l *Loopback) Send(ctx context.Context, env peerlink.SignalEnvelope) error {
	select {
	case l.out <- env:
		return nil
	case <-l.done:
		return fmt.Errorf("signal: %w", ErrClosed)
	case <-ctx.Done():
		return fmt.Errorf("signal: failed to send: %w", ctx.Err())
	}
}

func (l *Loopback) Receive(ctx context.Context) (peerlink.SignalEnvelope, error) {
	select {
	case env := <-l.in:
		return env, nil
	case <-l.done:
		return peerlink.SignalEnvelope{}, fmt.Errorf("signal: %w", ErrClosed)
	case <-ctx.Done():
		return peerlink.SignalEnvelope{}, fmt.Errorf("signal: failed to receive: %w", ctx.Err())
	}
}

func (l *Loopback) Close() error {
	l.once.Do(func() { close(l.done) })
	return nil
}
