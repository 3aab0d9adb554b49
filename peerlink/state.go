// Copyright (c) 2026 by Koanworks.
// Licensed under the Apache License, Version 2.0.
// See the LICENSE file or http://www.apache.org/licenses/LICENSE-2.0 for details.

package peerlink

// State is the lifecycle of one link:
//
//	Idle -> Connecting -> Open -> Closed
//
// with Connecting -> Closed on handshake failure or timeout and Open -> Closed
// on remote hangup or explicit close. A closed link is never reused; the
// caller creates a new one to reconnect.
type State uint8

const (
	StateIdle State = iota
	StateConnecting
	StateOpen
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateConnecting:
		return "connecting"
	case StateOpen:
		return "open"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}
