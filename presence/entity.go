// Copyright (c) 2026 by Koanworks.

package presence

import (
	"errors"
	"log/slog"
	"time"

	"github.com/koanworks/presence/anim"
	"github.com/koanworks/presence/geo"
	"github.com/koanworks/presence/reconcile"
	"github.com/koanworks/presence/snapshot"
)

// Entity is one remote peer's avatar: a registry of its animation
// clips, the mixer blending them and the reconciler smoothing its
// transform. It is created as soon as the link opens, with an empty
// registry; the clips arrive later when the asset loads, and until
// then animation requests resolve to nothing and the entity moves as
// a bare transform.
//
// An entity is owned by the session loop.
type Entity struct {
	peerID     string
	registry   *anim.Registry
	mixer      *anim.Mixer
	rec        *reconcile.Reconciler
	renderable Renderable
	loaded     bool
	log        *slog.Logger
}

func newEntity(peerID string, smoothing float64, crossfade time.Duration, log *slog.Logger) *Entity {
	registry := anim.NewRegistry()
	mixer := anim.NewMixer(registry,
		anim.WithCrossfade(crossfade),
		anim.WithMixerLogger(log),
	)

	return &Entity{
		peerID:   peerID,
		registry: registry,
		mixer:    mixer,
		rec: reconcile.New(mixer,
			reconcile.WithSmoothing(smoothing),
			reconcile.WithLogger(log),
		),
		log: log,
	}
}

// attach installs the loaded asset: registers its clips and starts the
// idle animation. Duplicate clip names (after synonym folding) keep the
// first registration.
func (e *Entity) attach(asset Asset) {
	for _, clip := range asset.Clips {
		if err := e.registry.Add(clip.Name, clip.Action); err != nil {
			if errors.Is(err, anim.ErrDuplicateClip) {
				e.log.Warn("skipping duplicate animation clip",
					"clip", clip.Name)
				continue
			}
			e.log.Warn("skipping unusable animation clip",
				"clip", clip.Name,
				"error", err.Error())
		}
	}

	e.renderable = asset.Renderable
	e.loaded = true

	e.rec.ResolveAnimation(anim.IdleName, "")
}

func (e *Entity) apply(s snapshot.Snapshot) {
	e.rec.IngestSnapshot(s)
}

func (e *Entity) tick(dt time.Duration) {
	e.rec.Tick(dt)
}

func (e *Entity) PeerID() string {
	return e.peerID
}

func (e *Entity) Position() geo.Vec3 {
	return e.rec.Position()
}

func (e *Entity) Orientation() geo.Quat {
	return e.rec.Orientation()
}

func (e *Entity) Animation() string {
	return e.rec.Animation()
}

// Loaded reports whether the avatar asset has been attached.
func (e *Entity) Loaded() bool {
	return e.loaded
}
