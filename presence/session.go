// Copyright (c) 2026 by Koanworks.

package presence

import (
	"context"
	"log/slog"
	"time"

	"github.com/koanworks/presence/config"
	"github.com/koanworks/presence/peerlink"
	"github.com/koanworks/presence/replay"
	"github.com/koanworks/presence/sched"
	"github.com/koanworks/presence/snapshot"
)

// ******************************************************************************

var _ interface {
	// Start runs the session. It's a blocking call: it returns when the peer
	// disconnects and the entity has been torn down, or when the context is
	// cancelled. Everything the session owns runs on this one goroutine.
	Start(ctx context.Context) error

	// Publish encodes a local snapshot and sends it to the remote peer.
	// Safe to call from any goroutine.
	Publish(s snapshot.Snapshot) error

	// Rate returns the recent inbound snapshot rate in arrivals per second.
	Rate() float64

	// Jitter returns how unevenly inbound snapshots have been arriving.
	Jitter() time.Duration
} = (*Session)(nil)

//******************************************************************************

// Session drives one remote peer: it pulls inbound snapshots off the
// transport, reconciles them into the peer's entity at a fixed tick
// rate and reports lifecycle events to the host.
type Session struct {
	transport Transport
	loader    AssetLoader
	scene     Scene
	notifier  Notifier

	modelID      string
	tickInterval time.Duration
	smoothing    float64
	crossfade    time.Duration

	queue    *sched.Queue
	monitor  *Monitor
	entity   *Entity
	recorder *replay.Writer
	finished bool

	openCh   chan struct{}
	closedCh chan struct{}
	inbound  chan arrival
	assetCh  chan assetResult

	log *slog.Logger
}

type arrival struct {
	data     []byte
	received time.Time
}

type assetResult struct {
	asset Asset
	err   error
}

func New(transport Transport, loader AssetLoader, opts ...func(*Session)) *Session {
	defaults := config.Default()

	s := &Session{
		transport:    transport,
		loader:       loader,
		modelID:      defaults.Avatar.ModelID,
		tickInterval: defaults.TickInterval(),
		smoothing:    defaults.Sim.Smoothing,
		crossfade:    defaults.Sim.Crossfade,
		queue:        sched.NewQueue(),
		monitor:      NewMonitor(defaultMonitorWindow),
		openCh:       make(chan struct{}, 1),
		closedCh:     make(chan struct{}, 1),
		inbound:      make(chan arrival, 128),
		assetCh:      make(chan assetResult, 1),
		log:          slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}

	return s
}

var WithConfig = func(cfg config.Config) func(*Session) {
	return func(s *Session) {
		s.modelID = cfg.Avatar.ModelID
		s.tickInterval = cfg.TickInterval()
		s.smoothing = cfg.Sim.Smoothing
		s.crossfade = cfg.Sim.Crossfade
	}
}

var WithLogger = func(log *slog.Logger) func(*Session) {
	return func(s *Session) {
		if log != nil {
			s.log = log
		}
	}
}

var WithScene = func(scene Scene) func(*Session) {
	return func(s *Session) {
		s.scene = scene
	}
}

var WithNotifier = func(notifier Notifier) func(*Session) {
	return func(s *Session) {
		s.notifier = notifier
	}
}

// WithRecorder logs every inbound payload to a replay writer.
var WithRecorder = func(w *replay.Writer) func(*Session) {
	return func(s *Session) {
		s.recorder = w
	}
}

func (s *Session) Start(ctx context.Context) error {
	s.transport.OnOpen(func() {
		select {
		case s.openCh <- struct{}{}:
		default:
		}
	})
	s.transport.OnClose(func() {
		select {
		case s.closedCh <- struct{}{}:
		default:
		}
	})
	s.transport.OnMessage(func(data []byte) {
		buf := make([]byte, len(data))
		copy(buf, data)

		select {
		case s.inbound <- arrival{data: buf, received: time.Now()}:
		default:
			s.log.Warn("inbound queue full, dropping snapshot")
		}
	})

	// The link may have opened before the callbacks were registered.
	if s.transport.State() == peerlink.StateOpen {
		select {
		case s.openCh <- struct{}{}:
		default:
		}
	}

	ticker := time.NewTicker(s.tickInterval)
	defer ticker.Stop()

	last := time.Now()

	for {
		select {
		case <-ctx.Done():
			s.removeEntity()
			err := s.transport.Close()
			s.log.Info("session stopped")
			return err

		case <-s.openCh:
			s.handleOpen(ctx)

		case res := <-s.assetCh:
			s.handleAsset(res)

		case in := <-s.inbound:
			// An open queued in the same round is handled first, so a
			// snapshot arriving right after the channel opened is not
			// dropped for want of an entity.
			select {
			case <-s.openCh:
				s.handleOpen(ctx)
			default:
			}
			s.handlePayload(in)

		case <-s.closedCh:
			if s.entity == nil {
				s.log.Info("session stopped")
				return nil
			}
			s.handleDisconnect()

		case now := <-ticker.C:
			dt := now.Sub(last)
			last = now

			s.step(dt)

			if s.finished {
				s.log.Info("session stopped")
				return nil
			}
		}
	}
}

func (s *Session) handleOpen(ctx context.Context) {
	if s.entity != nil {
		return
	}

	peerID := s.transport.RemoteID()
	s.entity = newEntity(peerID, s.smoothing, s.crossfade, s.log.With("peer", peerID))

	s.log.Info("peer connected",
		"peer", peerID,
		"model", s.modelID)

	if s.notifier != nil {
		s.notifier.PeerJoined(peerID)
	}

	go func() {
		asset, err := s.loader.Load(ctx, s.modelID)
		select {
		case s.assetCh <- assetResult{asset: asset, err: err}:
		case <-ctx.Done():
		}
	}()
}

func (s *Session) handleAsset(res assetResult) {
	if s.entity == nil {
		return
	}

	if res.err != nil {
		// The entity keeps moving as a bare transform.
		s.log.Error("failed to load avatar asset",
			"model", s.modelID,
			"error", res.err.Error())
		return
	}

	s.entity.attach(res.asset)

	if s.scene != nil && res.asset.Renderable != nil {
		s.scene.AddRenderable(s.entity.PeerID(), res.asset.Renderable)
	}

	s.log.Debug("avatar asset attached",
		"model", s.modelID,
		"clips", len(res.asset.Clips))
}

func (s *Session) handlePayload(in arrival) {
	s.monitor.Observe(in.received)

	if s.recorder != nil {
		if err := s.recorder.Append(in.data); err != nil {
			s.log.Debug("failed to record payload",
				"error", err.Error())
		}
	}

	snap, err := snapshot.Parse(in.data, in.received)
	if err != nil {
		s.log.Debug("dropping malformed snapshot",
			"error", err.Error())
		return
	}

	if s.entity == nil {
		return
	}
	s.entity.apply(snap)
}

// handleDisconnect reports the peer gone right away but keeps ticking
// for one more crossfade interval so the avatar's fade-out finishes
// before the renderable disappears.
func (s *Session) handleDisconnect() {
	peerID := s.entity.PeerID()

	s.log.Info("peer disconnected",
		"peer", peerID)

	if s.notifier != nil {
		s.notifier.PeerLeft(peerID)
	}

	s.queue.Schedule(s.crossfade, func() {
		s.removeEntity()
		s.finished = true
	})
}

func (s *Session) step(dt time.Duration) {
	s.queue.Advance(dt)

	if s.entity == nil {
		return
	}

	s.entity.tick(dt)

	if s.scene != nil {
		s.scene.SetTransform(s.entity.PeerID(), s.entity.Position(), s.entity.Orientation())
	}
}

func (s *Session) removeEntity() {
	if s.entity == nil {
		return
	}

	if s.scene != nil {
		s.scene.RemoveRenderable(s.entity.PeerID())
	}
	s.entity = nil
	s.queue.CancelAll()
}

func (s *Session) Publish(snap snapshot.Snapshot) error {
	data, err := snapshot.Encode(snap)
	if err != nil {
		return err
	}
	return s.transport.Send(data)
}

func (s *Session) Rate() float64 {
	return s.monitor.Rate()
}

func (s *Session) Jitter() time.Duration {
	return s.monitor.Jitter()
}
