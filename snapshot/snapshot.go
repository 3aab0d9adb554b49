// Copyright (c) 2026 by Koanworks.
// Licensed under the Apache License, Version 2.0.
// See the LICENSE file or http://www.apache.org/licenses/LICENSE-2.0 for details.

package snapshot

import (
	"math"
	"time"

	"github.com/koanworks/presence/geo"
)

// Snapshot is one inbound state update for a remote entity. It is transient:
// consumed immediately to move target state, never retained.
//
// Position axes and Euler rotation axes use NaN to mean "not provided or not
// valid, leave the corresponding target unchanged". Validity is per field; a
// snapshot with some invalid axes still applies its valid ones.
type Snapshot struct {
	Position  geo.Vec3
	Rotation  Rotation
	Animation string // empty means unchanged
	Received  time.Time
}

// New returns a snapshot with no fields set. Callers building snapshots in
// code should start from New rather than the zero value, because the zero
// Vec3 is a valid position at the origin.
func New(received time.Time) Snapshot {
	return Snapshot{
		Position: geo.Vec3{X: math.NaN(), Y: math.NaN(), Z: math.NaN()},
		Received: received,
	}
}

type RotationKind uint8

const (
	RotationNone RotationKind = iota
	RotationYaw
	RotationEuler
)

// Rotation carries either a single yaw angle or a full 3-axis Euler rotation,
// both in radians. Orientations are interpolated as quaternions downstream;
// this type only mirrors the two wire forms.
type Rotation struct {
	Kind  RotationKind
	Yaw   float64
	Euler geo.Vec3
}

// Empty reports whether the snapshot carries no applicable data at all. Such
// snapshots are dropped with no state change.
func (s Snapshot) Empty() bool {
	if s.Animation != "" {
		return false
	}

	if geo.IsFinite(s.Position.X) || geo.IsFinite(s.Position.Y) || geo.IsFinite(s.Position.Z) {
		return false
	}

	switch s.Rotation.Kind {
	case RotationYaw:
		return !geo.IsFinite(s.Rotation.Yaw)
	case RotationEuler:
		e := s.Rotation.Euler
		return !geo.IsFinite(e.X) && !geo.IsFinite(e.Y) && !geo.IsFinite(e.Z)
	}

	return true
}
