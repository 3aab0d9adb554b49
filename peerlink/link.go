// Copyright (c) 2026 by Koanworks.
// Licensed under the Apache License, Version 2.0.
// See the LICENSE file or http://www.apache.org/licenses/LICENSE-2.0 for details.

package peerlink

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pion/webrtc/v4"
)

// Role decides which endpoint produces the offer during the handshake.
type Role uint8

const (
	RoleInitiator Role = iota
	RoleResponder
)

const dataChannelLabel = "presence"

var _ = interface {
	// Connect performs the handshake and blocks until the data channel is
	// open, the configured timeout expires, or the link is closed.
	Connect(ctx context.Context) error

	// Send transmits one payload. Valid only while the link is open.
	Send(data []byte) error

	// Close tears the link down. Safe to call any number of times.
	Close() error

	State() State
}((*Link)(nil))

// Link is one peer-to-peer channel: an unordered, zero-retransmit WebRTC
// data channel between two session endpoints. A link owns exactly one data
// channel and is torn down as a unit.
//
// Registered callbacks are invoked sequentially on a single dispatch
// goroutine, never concurrently; a slow handler delays delivery of later
// events. Register callbacks before calling Connect.
type Link struct {
	localID  string
	remoteID string

	cfg      Config
	role     Role
	signaler Signaler
	log      *slog.Logger

	mx           sync.Mutex
	state        State
	lastActivity time.Time
	pc           *webrtc.PeerConnection
	dc           *webrtc.DataChannel

	onOpen    func()
	onClose   func()
	onMessage func(data []byte)

	events    chan func()
	openCh    chan struct{}
	openOnce  sync.Once
	closedCh  chan struct{}
	closeOnce sync.Once
}

const eventQueueSize = 128

// New creates an idle link. The caller must eventually Close it, even when
// Connect is never called, to release the dispatch goroutine.
func New(signaler Signaler, role Role, opts ...func(*Link)) *Link {
	l := &Link{
		localID:  uuid.NewString(),
		cfg:      DefaultConfig(),
		role:     role,
		signaler: signaler,
		log:      slog.Default(),
		state:    StateIdle,
		events:   make(chan func(), eventQueueSize),
		openCh:   make(chan struct{}),
		closedCh: make(chan struct{}),
	}

	for _, opt := range opts {
		opt(l)
	}

	l.log = l.log.With("peer", l.localID)

	go l.dispatch()

	return l
}

var WithConfig = func(cfg Config) func(*Link) {
	return func(l *Link) {
		// a non-nil empty list explicitly disables STUN (host candidates only)
		if cfg.STUNServers != nil {
			l.cfg.STUNServers = cfg.STUNServers
		}
		if cfg.ConnectTimeout > 0 {
			l.cfg.ConnectTimeout = cfg.ConnectTimeout
		}
	}
}

var WithLogger = func(log *slog.Logger) func(*Link) {
	return func(l *Link) {
		if log != nil {
			l.log = log
		}
	}
}

var WithLocalID = func(id string) func(*Link) {
	return func(l *Link) {
		if id != "" {
			l.localID = id
		}
	}
}

var WithRemoteID = func(id string) func(*Link) {
	return func(l *Link) {
		l.remoteID = id
	}
}

func (l *Link) LocalID() string  { return l.localID }
func (l *Link) RemoteID() string { return l.remoteID }

func (l *Link) State() State {
	l.mx.Lock()
	defer l.mx.Unlock()
	return l.state
}

// LastActivity returns when the link last sent or received data.
func (l *Link) LastActivity() time.Time {
	l.mx.Lock()
	defer l.mx.Unlock()
	return l.lastActivity
}

func (l *Link) OnOpen(fn func()) {
	l.mx.Lock()
	l.onOpen = fn
	l.mx.Unlock()
}

func (l *Link) OnClose(fn func()) {
	l.mx.Lock()
	l.onClose = fn
	l.mx.Unlock()
}

func (l *Link) OnMessage(fn func(data []byte)) {
	l.mx.Lock()
	l.onMessage = fn
	l.mx.Unlock()
}

// Connect runs the offer/answer handshake through the signaler and waits for
// the data channel to open. It must be called at most once; on any failure
// the link transitions to Closed with all resources released, and the caller
// creates a new link to retry.
func (l *Link) Connect(ctx context.Context) error {
	l.mx.Lock()
	switch l.state {
	case StateClosed:
		l.mx.Unlock()
		return fmt.Errorf("peerlink: %w", ErrClosed)
	case StateConnecting, StateOpen:
		l.mx.Unlock()
		return fmt.Errorf("peerlink: %w", ErrAlreadyStarted)
	}
	l.state = StateConnecting
	l.mx.Unlock()

	ctx, cancel := context.WithTimeout(ctx, l.cfg.ConnectTimeout)
	defer cancel()

	// Close while connecting settles the pending Connect as failure.
	go func() {
		select {
		case <-l.closedCh:
			cancel()
		case <-ctx.Done():
		}
	}()

	err := l.handshake(ctx)
	if err == nil {
		select {
		case <-l.openCh:
			l.log.Debug("link open", "remote", l.remoteID)
			return nil
		case <-ctx.Done():
			err = ctx.Err()
		}
	}

	_ = l.Close()

	if errors.Is(err, context.Canceled) {
		return fmt.Errorf("peerlink: %w", ErrClosed)
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("peerlink: %w", ErrConnectTimeout)
	}

	return fmt.Errorf("peerlink: failed to connect: %w", err)
}

func (l *Link) handshake(ctx context.Context) error {
	pc, err := webrtc.NewPeerConnection(webrtc.Configuration{
		ICEServers: []webrtc.ICEServer{{URLs: l.cfg.STUNServers}},
	})
	if err != nil {
		return fmt.Errorf("failed to create peer connection: %w", err)
	}

	l.mx.Lock()
	if l.state != StateConnecting {
		l.mx.Unlock()
		_ = pc.Close()
		return ErrClosed
	}
	l.pc = pc
	l.mx.Unlock()

	pc.OnConnectionStateChange(func(st webrtc.PeerConnectionState) {
		switch st {
		case webrtc.PeerConnectionStateFailed,
			webrtc.PeerConnectionStateDisconnected,
			webrtc.PeerConnectionStateClosed:
			l.log.Debug("peer connection lost", "state", st.String())
			go func() { _ = l.Close() }()
		}
	})

	if l.role == RoleInitiator {
		return l.offer(ctx, pc)
	}
	return l.answer(ctx, pc)
}

func (l *Link) offer(ctx context.Context, pc *webrtc.PeerConnection) error {
	ordered := false
	var retransmits uint16
	dc, err := pc.CreateDataChannel(dataChannelLabel, &webrtc.DataChannelInit{
		Ordered:        &ordered,
		MaxRetransmits: &retransmits,
	})
	if err != nil {
		return fmt.Errorf("failed to create data channel: %w", err)
	}
	l.bindChannel(dc)

	offer, err := pc.CreateOffer(nil)
	if err != nil {
		return fmt.Errorf("failed to create offer: %w", err)
	}
	if err := pc.SetLocalDescription(offer); err != nil {
		return fmt.Errorf("failed to set local description: %w", err)
	}

	if err := l.waitGathering(ctx, pc); err != nil {
		return err
	}
	if err := l.sendDescription(ctx, SignalOffer, pc.LocalDescription()); err != nil {
		return err
	}

	answer, err := l.receiveDescription(ctx, SignalAnswer)
	if err != nil {
		return err
	}
	if err := pc.SetRemoteDescription(answer); err != nil {
		return fmt.Errorf("failed to set remote description: %w", err)
	}

	return nil
}

func (l *Link) answer(ctx context.Context, pc *webrtc.PeerConnection) error {
	pc.OnDataChannel(func(dc *webrtc.DataChannel) {
		l.bindChannel(dc)
	})

	offer, err := l.receiveDescription(ctx, SignalOffer)
	if err != nil {
		return err
	}
	if err := pc.SetRemoteDescription(offer); err != nil {
		return fmt.Errorf("failed to set remote description: %w", err)
	}

	answer, err := pc.CreateAnswer(nil)
	if err != nil {
		return fmt.Errorf("failed to create answer: %w", err)
	}
	if err := pc.SetLocalDescription(answer); err != nil {
		return fmt.Errorf("failed to set local description: %w", err)
	}

	if err := l.waitGathering(ctx, pc); err != nil {
		return err
	}

	return l.sendDescription(ctx, SignalAnswer, pc.LocalDescription())
}

// Candidates are not trickled; the handshake waits for gathering to finish
// and ships the complete description in one envelope.
func (l *Link) waitGathering(ctx context.Context, pc *webrtc.PeerConnection) error {
	select {
	case <-webrtc.GatheringCompletePromise(pc):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (l *Link) sendDescription(ctx context.Context, kind SignalKind, desc *webrtc.SessionDescription) error {
	payload, err := json.Marshal(desc)
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", kind, err)
	}

	err = l.signaler.Send(ctx, SignalEnvelope{
		Kind:    kind,
		From:    l.localID,
		To:      l.remoteID,
		Payload: payload,
	})
	if err != nil {
		return fmt.Errorf("failed to send %s: %w", kind, err)
	}

	return nil
}

func (l *Link) receiveDescription(ctx context.Context, kind SignalKind) (webrtc.SessionDescription, error) {
	for {
		env, err := l.signaler.Receive(ctx)
		if err != nil {
			return webrtc.SessionDescription{}, fmt.Errorf("failed to receive %s: %w", kind, err)
		}

		if env.Kind != kind {
			l.log.Debug("ignoring signaling message", "kind", env.Kind, "want", kind)
			continue
		}

		if env.From != "" {
			l.mx.Lock()
			l.remoteID = env.From
			l.mx.Unlock()
		}

		var desc webrtc.SessionDescription
		if err := json.Unmarshal(env.Payload, &desc); err != nil {
			return webrtc.SessionDescription{}, fmt.Errorf("failed to decode %s: %w", kind, err)
		}

		return desc, nil
	}
}

func (l *Link) bindChannel(dc *webrtc.DataChannel) {
	l.mx.Lock()
	l.dc = dc
	l.mx.Unlock()

	dc.OnOpen(func() {
		l.mx.Lock()
		opened := l.state == StateConnecting
		if opened {
			l.state = StateOpen
			l.lastActivity = time.Now()
		}
		l.mx.Unlock()

		if !opened {
			return
		}

		l.openOnce.Do(func() { close(l.openCh) })
		l.enqueue(func() { l.emitOpen() })
	})

	dc.OnClose(func() {
		go func() { _ = l.Close() }()
	})

	dc.OnMessage(func(msg webrtc.DataChannelMessage) {
		l.mx.Lock()
		l.lastActivity = time.Now()
		l.mx.Unlock()

		data := msg.Data
		l.enqueue(func() { l.emitMessage(data) })
	})
}

// Send transmits one payload over the data channel. It is valid only while
// the link is open. Transmission over an unreliable channel is expected to
// fail occasionally; callers may absorb the error, since a subsequent
// snapshot corrects state.
func (l *Link) Send(data []byte) error {
	l.mx.Lock()
	if l.state != StateOpen || l.dc == nil {
		l.mx.Unlock()
		return fmt.Errorf("peerlink: %w", ErrNotOpen)
	}
	dc := l.dc
	l.lastActivity = time.Now()
	l.mx.Unlock()

	if err := dc.Send(data); err != nil {
		return fmt.Errorf("peerlink: failed to send: %w", err)
	}

	return nil
}

// Close transitions the link to Closed and releases the channel and
// connection handles. It is safe to call any number of times and on every
// exit path, including from a failed Connect.
func (l *Link) Close() (err error) {
	l.closeOnce.Do(func() {
		l.mx.Lock()
		prev := l.state
		l.state = StateClosed
		pc := l.pc
		l.pc = nil
		l.dc = nil
		l.mx.Unlock()

		if prev == StateConnecting || prev == StateOpen {
			l.enqueue(func() { l.emitClose() })
		}

		close(l.closedCh)

		if pc != nil {
			if errClose := pc.Close(); errClose != nil {
				err = fmt.Errorf("peerlink: failed to close peer connection: %w", errClose)
			}
		}
	})

	return err
}

// Done is closed once the link has fully closed.
func (l *Link) Done() <-chan struct{} {
	return l.closedCh
}

func (l *Link) dispatch() {
	for {
		select {
		case fn := <-l.events:
			fn()
		case <-l.closedCh:
			for {
				select {
				case fn := <-l.events:
					fn()
				default:
					return
				}
			}
		}
	}
}

func (l *Link) enqueue(fn func()) {
	select {
	case l.events <- fn:
	case <-l.closedCh:
		// late events after close are dropped, except the close
		// notification itself which is enqueued before closedCh closes
	}
}

func (l *Link) emitOpen() {
	l.mx.Lock()
	fn := l.onOpen
	l.mx.Unlock()

	if fn != nil {
		fn()
	}
}

func (l *Link) emitClose() {
	l.mx.Lock()
	fn := l.onClose
	l.mx.Unlock()

	if fn != nil {
		fn()
	}
}

func (l *Link) emitMessage(data []byte) {
	l.mx.Lock()
	fn := l.onMessage
	l.mx.Unlock()

	if fn != nil {
		fn(data)
	}
}
