// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package movement

import (
	"math/rand/v2"

	"github.com/relabs-tech/gps_simulator/internal/geo"
)

// DefaultStepDeg is roughly 11 m of latitude.
const DefaultStepDeg = 0.0001

// RandomWalk jitters the position independently on every tick.
type RandomWalk struct {
	pos  Position
	step float64
	rng  *rand.Rand
}

// NewRandomWalk starts a walk at start. A non-positive step uses DefaultStepDeg.
func NewRandomWalk(start Position, step float64, rng *rand.Rand) *RandomWalk {
	if step <= 0 {
		step = DefaultStepDeg
	}
	return &RandomWalk{pos: start, step: step, rng: rng}
}

func (w *RandomWalk) Kind() Kind { return KindRandomWalk }

func (w *RandomWalk) Next() Step {
	w.pos.Lat = geo.ClampLatitude(w.pos.Lat + uniform(w.rng, -w.step, w.step))
	w.pos.Lon = geo.WrapLongitude(w.pos.Lon + uniform(w.rng, -w.step, w.step))
	return Step{Position: w.pos}
}
