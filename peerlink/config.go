// Copyright (c) 2026 by Koanworks.
// Licensed under the Apache License, Version 2.0.
// See the LICENSE file or http://www.apache.org/licenses/LICENSE-2.0 for details.

package peerlink

import "time"

const DefaultConnectTimeout = 10 * time.Second

// DefaultSTUNServers returns the public rendezvous servers used when no
// custom list is configured.
func DefaultSTUNServers() []string {
	return []string{
		"stun:stun.l.google.com:19302",
		"stun:stun1.l.google.com:19302",
		"stun:stun2.l.google.com:19302",
		"stun:stun3.l.google.com:19302",
		"stun:stun4.l.google.com:19302",
	}
}

// Config carries the transport settings of a link. The data channel itself
// is always unordered with zero retransmits; real-time position data prefers
// freshness over completeness, and a later snapshot corrects anything lost.
type Config struct {
	STUNServers    []string
	ConnectTimeout time.Duration
}

func DefaultConfig() Config {
	return Config{
		STUNServers:    DefaultSTUNServers(),
		ConnectTimeout: DefaultConnectTimeout,
	}
}
