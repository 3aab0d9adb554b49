// Copyright (c) 2026 by Koanworks.
// Licensed under the Apache License, Version 2.0.
// See the LICENSE file or http://www.apache.org/licenses/LICENSE-2.0 for details.

package peerlink

import (
	"context"
	"encoding/json"
)

type SignalKind string

const (
	SignalOffer  SignalKind = "offer"
	SignalAnswer SignalKind = "answer"
)

// SignalEnvelope is one signaling message exchanged while establishing a
// link: a complete session description, addressed by peer ID. Candidates
// are never trickled separately; they travel inside the description.
type SignalEnvelope struct {
	Kind    SignalKind      `json:"type"`
	From    string          `json:"from,omitempty"`
	To      string          `json:"to,omitempty"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Signaler carries signaling messages between the two endpoints of a link.
// The signal package provides an in-process loopback pair and a websocket
// client for a signaling server.
type Signaler interface {
	// Send delivers one envelope to the remote endpoint.
	Send(ctx context.Context, env SignalEnvelope) error

	// Receive blocks until the next inbound envelope or context end.
	Receive(ctx context.Context) (SignalEnvelope, error)
}
