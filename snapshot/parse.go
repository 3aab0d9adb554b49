// Copyright (c) 2026 by Koanworks.
// Licensed under the Apache License, Version 2.0.
// See the LICENSE file or http://www.apache.org/licenses/LICENSE-2.0 for details.

package snapshot

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"time"

	"github.com/koanworks/presence/geo"
	"github.com/santhosh-tekuri/jsonschema/v5"
)

// The wire shape of an inbound snapshot message:
//
//	{ "position": {"x":..,"y":..,"z":..} | null,
//	  "rotation": <yaw number> | {"x":..,"y":..,"z":..} | null,
//	  "animation": <string> | null }
//
// Any field may be absent or null; absent fields leave the corresponding
// target unchanged.
const schemaJSON = `{
	"$schema": "https://json-schema.org/draft/2020-12/schema",
	"type": "object",
	"properties": {
		"position": {
			"type": ["object", "null"],
			"properties": {
				"x": {"type": ["number", "null"]},
				"y": {"type": ["number", "null"]},
				"z": {"type": ["number", "null"]}
			}
		},
		"rotation": {
			"anyOf": [
				{"type": "number"},
				{"type": "null"},
				{
					"type": "object",
					"properties": {
						"x": {"type": ["number", "null"]},
						"y": {"type": ["number", "null"]},
						"z": {"type": ["number", "null"]}
					}
				}
			]
		},
		"animation": {"type": ["string", "null"]}
	}
}`

var wireSchema = jsonschema.MustCompileString("snapshot.schema.json", schemaJSON)

type wireAxes struct {
	X *float64 `json:"x"`
	Y *float64 `json:"y"`
	Z *float64 `json:"z"`
}

type wireMessage struct {
	Position  *wireAxes       `json:"position"`
	Rotation  json.RawMessage `json:"rotation"`
	Animation *string         `json:"animation"`
}

// Parse decodes and validates one inbound snapshot payload. Malformed
// payloads (bad JSON, wrong field types) return an error so the caller can
// log and drop them; they never carry partial state.
func Parse(data []byte, received time.Time) (Snapshot, error) {
	var generic any
	if err := json.Unmarshal(data, &generic); err != nil {
		return Snapshot{}, fmt.Errorf("snapshot: failed to decode payload: %w", err)
	}

	if err := wireSchema.Validate(generic); err != nil {
		return Snapshot{}, fmt.Errorf("snapshot: payload does not match wire shape: %w", err)
	}

	var msg wireMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return Snapshot{}, fmt.Errorf("snapshot: failed to decode payload: %w", err)
	}

	s := Snapshot{
		Position: vecFromAxes(msg.Position),
		Rotation: rotationFromWire(msg.Rotation),
		Received: received,
	}
	if msg.Animation != nil {
		s.Animation = *msg.Animation
	}

	return s, nil
}

// Encode builds the wire form of a snapshot. Only valid fields are written.
func Encode(s Snapshot) ([]byte, error) {
	msg := wireMessage{}

	if axes := axesFromVec(s.Position); axes != nil {
		msg.Position = axes
	}

	switch s.Rotation.Kind {
	case RotationYaw:
		if geo.IsFinite(s.Rotation.Yaw) {
			raw, err := json.Marshal(s.Rotation.Yaw)
			if err != nil {
				return nil, fmt.Errorf("snapshot: failed to encode rotation: %w", err)
			}
			msg.Rotation = raw
		}
	case RotationEuler:
		if axes := axesFromVec(s.Rotation.Euler); axes != nil {
			raw, err := json.Marshal(axes)
			if err != nil {
				return nil, fmt.Errorf("snapshot: failed to encode rotation: %w", err)
			}
			msg.Rotation = raw
		}
	}

	if s.Animation != "" {
		msg.Animation = &s.Animation
	}

	data, err := json.Marshal(msg)
	if err != nil {
		return nil, fmt.Errorf("snapshot: failed to encode payload: %w", err)
	}

	return data, nil
}

func vecFromAxes(axes *wireAxes) geo.Vec3 {
	v := geo.Vec3{X: math.NaN(), Y: math.NaN(), Z: math.NaN()}
	if axes == nil {
		return v
	}

	if axes.X != nil && geo.IsFinite(*axes.X) {
		v.X = *axes.X
	}
	if axes.Y != nil && geo.IsFinite(*axes.Y) {
		v.Y = *axes.Y
	}
	if axes.Z != nil && geo.IsFinite(*axes.Z) {
		v.Z = *axes.Z
	}

	return v
}

func axesFromVec(v geo.Vec3) *wireAxes {
	var axes wireAxes
	any := false

	if geo.IsFinite(v.X) {
		x := v.X
		axes.X = &x
		any = true
	}
	if geo.IsFinite(v.Y) {
		y := v.Y
		axes.Y = &y
		any = true
	}
	if geo.IsFinite(v.Z) {
		z := v.Z
		axes.Z = &z
		any = true
	}

	if !any {
		return nil
	}
	return &axes
}

func rotationFromWire(raw json.RawMessage) Rotation {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return Rotation{Kind: RotationNone}
	}

	if raw[0] == '{' {
		var axes wireAxes
		if err := json.Unmarshal(raw, &axes); err != nil {
			return Rotation{Kind: RotationNone}
		}
		return Rotation{Kind: RotationEuler, Euler: vecFromAxes(&axes)}
	}

	var yaw float64
	if err := json.Unmarshal(raw, &yaw); err != nil || !geo.IsFinite(yaw) {
		return Rotation{Kind: RotationNone}
	}

	return Rotation{Kind: RotationYaw, Yaw: yaw}
}
