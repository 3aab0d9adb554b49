// Copyright (c) 2026 by Koanworks.
// Licensed under the Apache License, Version 2.0.
// See the LICENSE file or http://www.apache.org/licenses/LICENSE-2.0 for details.

package anim

import (
	"errors"
	"strings"
)

// Action is a playable animation clip handle owned by the host's rendering
// layer. The mixer drives playback and blend weight; it never inspects the
// clip itself.
type Action interface {
	// Play resets the clip to its first frame and starts playing it.
	Play()

	// Stop halts playback.
	Stop()

	// SetWeight sets the clip's blend weight in [0, 1].
	SetWeight(w float64)
}

var ErrDuplicateClip = errors.New("duplicate clip name")

// IdleName is the idle-equivalent clip every humanoid model is expected to
// carry. It is the second-to-last stop of the fallback chain.
const IdleName = "idle"

// Producers and consumers need not agree on exact vocabulary; common
// synonyms are folded onto canonical clip names before lookup.
var synonyms = map[string]string{
	"run":      "walking",
	"running":  "walking",
	"walk":     "walking",
	"stand":    IdleName,
	"standing": IdleName,
}

// Canonical normalizes an animation name: trims, lowercases and maps known
// synonyms onto the canonical clip name.
func Canonical(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	if mapped, ok := synonyms[name]; ok {
		return mapped
	}
	return name
}

// Registry maps logical animation names to playable actions for one entity.
// It is built once when the entity's visual asset loads and is read-only
// afterwards.
type Registry struct {
	actions map[string]Action
	order   []string
}

func NewRegistry() *Registry {
	return &Registry{
		actions: make(map[string]Action),
	}
}

// Add registers a clip under the canonical form of name. Registering the
// same canonical name twice is an error; keys are unique.
func (r *Registry) Add(name string, action Action) error {
	key := Canonical(name)
	if key == "" {
		return errors.New("anim: empty clip name")
	}

	if _, exists := r.actions[key]; exists {
		return ErrDuplicateClip
	}

	r.actions[key] = action
	r.order = append(r.order, key)

	return nil
}

func (r *Registry) Get(name string) (Action, bool) {
	action, ok := r.actions[Canonical(name)]
	return action, ok
}

func (r *Registry) Len() int {
	return len(r.order)
}

// Names returns the registered canonical clip names in registration order.
func (r *Registry) Names() []string {
	names := make([]string, len(r.order))
	copy(names, r.order)
	return names
}

// Resolve walks the fallback chain for a requested animation:
// requested -> explicit fallback -> idle-equivalent -> first registered clip.
// It returns the resolved canonical name and action, or ok=false when the
// chain is exhausted (an empty registry, or no idle clip and no clips at
// all).
func (r *Registry) Resolve(requested, fallback string) (string, Action, bool) {
	for _, candidate := range []string{requested, fallback, IdleName} {
		if candidate == "" {
			continue
		}
		key := Canonical(candidate)
		if action, ok := r.actions[key]; ok {
			return key, action, true
		}
	}

	if len(r.order) > 0 {
		key := r.order[0]
		return key, r.actions[key], true
	}

	return "", nil, false
}
