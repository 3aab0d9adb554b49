// Copyright (c) 2026 by Koanworks.
// Licensed under the Apache License, Version 2.0.
// See the LICENSE file or http://www.apache.org/licenses/LICENSE-2.0 for details.

// Package presence ties a peer link to a reconciled remote avatar. A
// Session owns one remote peer: it receives snapshots off the link,
// feeds them to the entity's reconciler and drives the fixed-rate tick
// loop that moves the avatar and advances animation blends.
//
// The session talks to the host application through small capability
// interfaces (Scene, AssetLoader, Notifier) so that rendering, asset
// IO and UI stay out of this package.
package presence

import (
	"context"

	"github.com/koanworks/presence/anim"
	"github.com/koanworks/presence/geo"
	"github.com/koanworks/presence/peerlink"
)

// Transport is the wire the session receives snapshots on. A
// *peerlink.Link is the production implementation; tests substitute
// an in-process fake.
type Transport interface {
	OnOpen(fn func())
	OnClose(fn func())
	OnMessage(fn func(data []byte))
	Send(data []byte) error
	RemoteID() string
	State() peerlink.State
	Close() error
}

var _ Transport = (*peerlink.Link)(nil)

// Renderable is an opaque handle to whatever the host's scene places
// in the world for a peer. The session never looks inside it.
type Renderable any

// Clip pairs a logical animation name with its playable action. Clips
// are ordered; the first one doubles as the last-resort fallback when
// neither the requested name nor an idle clip exists.
type Clip struct {
	Name   string
	Action anim.Action
}

// Asset is the loaded visual representation of a peer's avatar.
type Asset struct {
	Renderable Renderable
	Clips      []Clip
}

// AssetLoader fetches avatar assets. Load is called off the session
// loop and may take as long as it needs; the avatar moves as a bare
// transform until the asset arrives.
type AssetLoader interface {
	Load(ctx context.Context, modelID string) (Asset, error)
}

// Scene is the host's world: it holds renderables and receives the
// reconciled pose every tick.
type Scene interface {
	AddRenderable(peerID string, r Renderable)
	SetTransform(peerID string, pos geo.Vec3, rot geo.Quat)
	RemoveRenderable(peerID string)
}

// Notifier receives peer lifecycle events, typically to drive UI.
type Notifier interface {
	PeerJoined(peerID string)
	PeerLeft(peerID string)
}
