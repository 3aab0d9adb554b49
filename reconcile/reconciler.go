// Copyright (c) 2026 by Koanworks.
// Licensed under the Apache License, Version 2.0.
// See the LICENSE file or http://www.apache.org/licenses/LICENSE-2.0 for details.

package reconcile

import (
	"log/slog"
	"math"
	"time"

	"github.com/koanworks/presence/anim"
	"github.com/koanworks/presence/geo"
	"github.com/koanworks/presence/snapshot"
)

// DefaultSmoothing is the fixed per-tick convergence factor. It is applied
// as-is every tick regardless of tick length, which couples convergence
// speed to tick frequency; WithTimeScaledSmoothing removes that coupling.
const DefaultSmoothing = 0.1

// referenceTickRate is the tick frequency the fixed smoothing factor was
// tuned against. Time-scaled smoothing converges at the same speed as the
// fixed factor running at this rate.
const referenceTickRate = 60.0

// Reconciler turns an unreliable stream of state snapshots for one remote
// entity into continuously sampled visual state. Snapshots move the target;
// every tick the current state advances a fraction of the way toward the
// target and in-flight animation crossfades progress.
//
// A reconciler is owned by a single goroutine. Snapshot ingestion and
// ticking must happen on the same owner; there is no internal locking.
type Reconciler struct {
	smoothing  float64
	timeScaled bool
	mixer      *anim.Mixer
	log        *slog.Logger

	currentPos geo.Vec3
	targetPos  geo.Vec3

	currentRot  geo.Quat
	targetRot   geo.Quat
	targetEuler geo.Vec3

	lastReceived  time.Time
	ingested      int
	staleArrivals int
}

func New(mixer *anim.Mixer, opts ...func(*Reconciler)) *Reconciler {
	r := &Reconciler{
		smoothing:  DefaultSmoothing,
		mixer:      mixer,
		log:        slog.Default(),
		currentRot: geo.IdentityQuat(),
		targetRot:  geo.IdentityQuat(),
	}

	for _, opt := range opts {
		opt(r)
	}

	return r
}

var WithLogger = func(log *slog.Logger) func(*Reconciler) {
	return func(r *Reconciler) {
		if log != nil {
			r.log = log
		}
	}
}

var WithSmoothing = func(factor float64) func(*Reconciler) {
	return func(r *Reconciler) {
		if factor > 0 && factor <= 1 {
			r.smoothing = factor
		}
	}
}

// WithTimeScaledSmoothing makes convergence independent of tick frequency:
// the smoothing factor is rescaled by the actual tick length so that a
// reconciler ticked at any rate converges like the fixed factor at 60 Hz.
var WithTimeScaledSmoothing = func() func(*Reconciler) {
	return func(r *Reconciler) {
		r.timeScaled = true
	}
}

// WithInitialState places the entity before the first snapshot arrives, so
// it does not glide in from the origin.
var WithInitialState = func(pos geo.Vec3, yaw float64) func(*Reconciler) {
	return func(r *Reconciler) {
		r.currentPos = pos
		r.targetPos = pos
		r.targetEuler = geo.Vec3{Y: yaw}
		r.currentRot = geo.FromYaw(yaw)
		r.targetRot = r.currentRot
	}
}

// IngestSnapshot applies one inbound snapshot to the target state. Each
// field is validated independently: invalid axes are rejected in isolation
// and the valid remainder is still applied. A snapshot with no usable data
// is dropped with no state change. The newest arrival always overwrites the
// target; there are no sequence numbers, so a stale snapshot delivered late
// will regress the target until the next fresh one.
func (r *Reconciler) IngestSnapshot(s snapshot.Snapshot) {
	if s.Empty() {
		r.log.Debug("dropping snapshot with no usable data")
		return
	}

	if !s.Received.IsZero() {
		if s.Received.Before(r.lastReceived) {
			r.staleArrivals++
			r.log.Debug("applying stale snapshot",
				"received", s.Received,
				"newest", r.lastReceived)
		} else {
			r.lastReceived = s.Received
		}
	}
	r.ingested++

	if geo.IsFinite(s.Position.X) {
		r.targetPos.X = s.Position.X
	}
	if geo.IsFinite(s.Position.Y) {
		r.targetPos.Y = s.Position.Y
	}
	if geo.IsFinite(s.Position.Z) {
		r.targetPos.Z = s.Position.Z
	}

	switch s.Rotation.Kind {
	case snapshot.RotationYaw:
		if geo.IsFinite(s.Rotation.Yaw) {
			r.targetEuler = geo.Vec3{Y: s.Rotation.Yaw}
			r.targetRot = geo.FromYaw(s.Rotation.Yaw)
		}
	case snapshot.RotationEuler:
		e := s.Rotation.Euler
		if geo.IsFinite(e.X) {
			r.targetEuler.X = e.X
		}
		if geo.IsFinite(e.Y) {
			r.targetEuler.Y = e.Y
		}
		if geo.IsFinite(e.Z) {
			r.targetEuler.Z = e.Z
		}
		r.targetRot = geo.FromEuler(r.targetEuler)
	}

	if s.Animation != "" {
		r.ResolveAnimation(s.Animation, "")
	}
}

// Tick advances the current state a fraction of the way toward the target
// and progresses animation blending. It never blocks and never fails; with
// no fresh target the entity simply holds its last good state.
func (r *Reconciler) Tick(dt time.Duration) {
	factor := r.smoothing
	if r.timeScaled {
		factor = 1 - math.Pow(1-r.smoothing, dt.Seconds()*referenceTickRate)
	}

	r.currentPos = geo.Lerp(r.currentPos, r.targetPos, factor)
	r.currentRot = geo.Slerp(r.currentRot, r.targetRot, factor)

	if r.mixer != nil {
		r.mixer.Update(dt)
	}
}

// ResolveAnimation requests a transition to the named animation, retrying
// with fallback and then the registry's own chain when the name is unknown.
// Requesting the animation that is already playing is a no-op.
func (r *Reconciler) ResolveAnimation(name, fallback string) {
	if r.mixer == nil {
		return
	}
	r.mixer.Play(name, fallback)
}

func (r *Reconciler) Position() geo.Vec3 {
	return r.currentPos
}

func (r *Reconciler) Orientation() geo.Quat {
	return r.currentRot
}

func (r *Reconciler) TargetPosition() geo.Vec3 {
	return r.targetPos
}

func (r *Reconciler) Animation() string {
	if r.mixer == nil {
		return ""
	}
	return r.mixer.Current()
}

// Ingested returns how many snapshots carried usable data.
func (r *Reconciler) Ingested() int {
	return r.ingested
}

// StaleArrivals returns how many applied snapshots carried a receipt time
// older than the newest one seen. They are diagnostics only; stale data is
// still applied under the last-write-wins policy.
func (r *Reconciler) StaleArrivals() int {
	return r.staleArrivals
}
