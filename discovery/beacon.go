// Copyright (c) 2026 by Koanworks.
// Licensed under the Apache License, Version 2.0.
// See the LICENSE file or http://www.apache.org/licenses/LICENSE-2.0 for details.

package discovery

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

// Beacon announces a peer waiting for company on the local network. It is
// how peers find each other when no signaling server is deployed.
type Beacon struct {
	PeerID string `json:"peerId"`
	Name   string `json:"name,omitempty"`
	Room   string `json:"room,omitempty"`
}

// beaconMagic prefixes every beacon datagram so foreign multicast traffic on
// the same group is cheaply ignored.
var beaconMagic = []byte("PRSNC1")

var ErrNotBeacon = errors.New("not a presence beacon")

func (b Beacon) Validate() error {
	if b.PeerID == "" {
		return errors.New("peer id is missing for the beacon")
	}
	return nil
}

func EncodeBeacon(b Beacon) ([]byte, error) {
	if err := b.Validate(); err != nil {
		return nil, fmt.Errorf("discovery: %w", err)
	}

	body, err := json.Marshal(b)
	if err != nil {
		return nil, fmt.Errorf("discovery: failed to encode beacon: %w", err)
	}

	return append(append([]byte{}, beaconMagic...), body...), nil
}

func DecodeBeacon(data []byte) (Beacon, error) {
	if !bytes.HasPrefix(data, beaconMagic) {
		return Beacon{}, ErrNotBeacon
	}

	var b Beacon
	if err := json.Unmarshal(data[len(beaconMagic):], &b); err != nil {
		return Beacon{}, fmt.Errorf("discovery: failed to decode beacon: %w", err)
	}

	if err := b.Validate(); err != nil {
		return Beacon{}, fmt.Errorf("discovery: %w", err)
	}

	return b, nil
}
