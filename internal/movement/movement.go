// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package movement produces simulated trajectories. Each model owns its own
// state and random source, so several simulated devices can run side by
// side without sharing anything.
package movement

import (
	"fmt"
	"math/rand/v2"
	"strings"
	"time"
)

// Position is a WGS84 coordinate in decimal degrees.
type Position struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Step is what a model reports for one tick. Speed (km/h) and Heading
// (degrees) are only meaningful when HasMotion is set.
type Step struct {
	Position
	Speed     float64
	Heading   float64
	HasMotion bool
}

// Kind selects one of the movement models.
type Kind int

const (
	KindRandomWalk Kind = iota
	KindPresetPath
	KindVehicle
)

func (k Kind) String() string {
	switch k {
	case KindRandomWalk:
		return "random_walk"
	case KindPresetPath:
		return "preset_path"
	case KindVehicle:
		return "vehicle"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// ParseKind accepts the config spelling ("random_walk") as well as the
// labels shown in the simulator UI ("Random Walk").
func ParseKind(s string) (Kind, error) {
	norm := strings.ToLower(strings.TrimSpace(s))
	norm = strings.NewReplacer(" ", "_", "-", "_").Replace(norm)
	switch norm {
	case "random_walk", "random":
		return KindRandomWalk, nil
	case "preset_path", "preset", "replay":
		return KindPresetPath, nil
	case "vehicle", "kinematic", "kinematic_vehicle":
		return KindVehicle, nil
	}
	return 0, fmt.Errorf("unknown movement model %q", s)
}

// Model is anything that can advance a simulated position by one tick.
type Model interface {
	Kind() Kind
	Next() Step
}

// Options carries the construction parameters for New. Fields a model
// does not use are ignored.
type Options struct {
	Start    Position
	StepDeg  float64       // random walk perturbation bound
	Path     Path          // preset replay
	Interval time.Duration // vehicle tick length
	Rand     *rand.Rand    // nil means a randomly seeded source
}

// New builds the model selected by kind.
func New(kind Kind, opts Options) (Model, error) {
	rng := opts.Rand
	if rng == nil {
		rng = NewRand(0)
	}

	switch kind {
	case KindRandomWalk:
		return NewRandomWalk(opts.Start, opts.StepDeg, rng), nil
	case KindPresetPath:
		return NewReplay(opts.Path, opts.Start), nil
	case KindVehicle:
		return NewVehicle(opts.Start, opts.Interval, rng), nil
	default:
		return nil, fmt.Errorf("unknown movement model %v", kind)
	}
}

// NewRand returns a PCG-backed source. A zero seed draws one at random.
func NewRand(seed uint64) *rand.Rand {
	if seed == 0 {
		return rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}

func uniform(rng *rand.Rand, lo, hi float64) float64 {
	return lo + rng.Float64()*(hi-lo)
}
