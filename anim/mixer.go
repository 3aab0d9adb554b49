// Copyright (c) 2026 by Koanworks.
// Licensed under the Apache License, Version 2.0.
// See the LICENSE file or http://www.apache.org/licenses/LICENSE-2.0 for details.

package anim

import (
	"log/slog"
	"time"

	"github.com/tanema/gween"
	"github.com/tanema/gween/ease"
)

const DefaultCrossfade = 200 * time.Millisecond

// Mixer plays one animation at a time and blends transitions with timed
// crossfades: the old action fades out while the new action fades in over
// the same duration. The current animation name updates the moment a
// transition starts, so a second transition during an in-flight crossfade
// retargets the fades instead of queuing.
//
// A mixer is owned by a single goroutine; it is not safe for concurrent use.
type Mixer struct {
	registry *Registry
	fadeDur  time.Duration
	current  string // empty until the first transition
	fades    map[string]*fade
	weights  map[string]float64
	log      *slog.Logger
}

type fade struct {
	action Action
	tween  *gween.Tween
}

func NewMixer(registry *Registry, opts ...func(*Mixer)) *Mixer {
	m := &Mixer{
		registry: registry,
		fadeDur:  DefaultCrossfade,
		fades:    make(map[string]*fade),
		weights:  make(map[string]float64),
		log:      slog.Default(),
	}

	for _, opt := range opts {
		opt(m)
	}

	return m
}

var WithCrossfade = func(d time.Duration) func(*Mixer) {
	return func(m *Mixer) {
		if d > 0 {
			m.fadeDur = d
		}
	}
}

var WithMixerLogger = func(log *slog.Logger) func(*Mixer) {
	return func(m *Mixer) {
		if log != nil {
			m.log = log
		}
	}
}

// Current returns the name of the currently playing animation, or the empty
// string while stopped.
func (m *Mixer) Current() string {
	return m.current
}

// Weights returns a copy of the blend-weight table for clips participating
// in playback or an in-flight crossfade.
func (m *Mixer) Weights() map[string]float64 {
	w := make(map[string]float64, len(m.weights))
	for name, weight := range m.weights {
		w[name] = weight
	}
	return w
}

// Play resolves requested through the registry's fallback chain and, if the
// resolved clip differs from the current one, starts a crossfade. Requesting
// the clip that is already playing is a no-op, not a restart. An exhausted
// fallback chain is a silent no-op; visual continuity wins over error
// visibility.
func (m *Mixer) Play(requested, fallback string) {
	name, action, ok := m.registry.Resolve(requested, fallback)
	if !ok {
		m.log.Debug("no clip resolved for animation request",
			"requested", requested,
			"fallback", fallback)
		return
	}

	if name == m.current {
		return
	}

	previous := m.current
	m.current = name

	// Fade the new clip in from whatever weight it already has. The clip
	// only restarts from frame zero when it was fully faded out.
	from := m.weights[name]
	if from == 0 {
		action.Play()
	}
	m.fades[name] = &fade{
		action: action,
		tween:  gween.New(float32(from), 1, float32(m.fadeDur.Seconds()), ease.Linear),
	}

	if previous != "" {
		if prevAction, okPrev := m.registry.Get(previous); okPrev {
			m.fades[previous] = &fade{
				action: prevAction,
				tween:  gween.New(float32(m.weights[previous]), 0, float32(m.fadeDur.Seconds()), ease.Linear),
			}
		}
	}
}

// Update advances all in-flight crossfades by dt and applies the resulting
// blend weights to the actions. Fully faded-out clips are stopped.
func (m *Mixer) Update(dt time.Duration) {
	for name, f := range m.fades {
		value, finished := f.tween.Update(float32(dt.Seconds()))

		weight := float64(value)
		m.weights[name] = weight
		f.action.SetWeight(weight)

		if !finished {
			continue
		}

		delete(m.fades, name)

		if weight == 0 && name != m.current {
			f.action.Stop()
			delete(m.weights, name)
		}
	}
}

// Stop halts playback of every participating clip and clears the mixer back
// to the stopped state.
func (m *Mixer) Stop() {
	for name := range m.weights {
		if action, ok := m.registry.Get(name); ok {
			action.SetWeight(0)
			action.Stop()
		}
	}

	m.fades = make(map[string]*fade)
	m.weights = make(map[string]float64)
	m.current = ""
}
