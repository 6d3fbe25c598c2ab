// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package movement

import (
	"math"
	"math/rand/v2"
	"time"

	"github.com/relabs-tech/gps_simulator/internal/geo"
)

// Vehicle tuning. Speeds are km/h, angles degrees, counts are ticks.
const (
	SpeedChangeRate = 0.5
	TurnRate        = 2.0
	MinTargetSpeed  = 20.0
	MaxTargetSpeed  = 50.0
	MinStraight     = 10
	MaxStraight     = 30
	JitterDeg       = 0.00001

	newTargetProbability  = 0.1
	sharpTurnProbability  = 0.3
	correctionProbability = 0.2
)

// sharp turns as taken at an intersection
var sharpTurns = [...]float64{90, -90, 45, -45}

// VehicleState is the kinematic state carried between ticks.
type VehicleState struct {
	CurrentSpeed    float64 `json:"current_speed"`
	TargetSpeed     float64 `json:"target_speed"`
	CurrentHeading  float64 `json:"current_heading"`
	StraightCounter int     `json:"straight_segment_counter"`
	MaxStraight     int     `json:"max_straight_segment"`
}

// Vehicle moves like a car on a road network: it eases towards a target
// speed, drives straight for a while, then turns sharply or curves.
type Vehicle struct {
	pos      Position
	state    VehicleState
	interval time.Duration
	rng      *rand.Rand
}

// NewVehicle starts at rest with a random heading and target speed.
// A non-positive interval means one second per tick.
func NewVehicle(start Position, interval time.Duration, rng *rand.Rand) *Vehicle {
	if interval <= 0 {
		interval = time.Second
	}
	v := &Vehicle{pos: start, interval: interval, rng: rng}
	v.state = VehicleState{
		CurrentSpeed:   0,
		TargetSpeed:    uniform(rng, MinTargetSpeed, MaxTargetSpeed),
		CurrentHeading: uniform(rng, 0, 360),
		MaxStraight:    v.straightThreshold(),
	}
	return v
}

func (v *Vehicle) Kind() Kind { return KindVehicle }

// State returns a copy of the kinematic state.
func (v *Vehicle) State() VehicleState { return v.state }

func (v *Vehicle) Next() Step {
	v.updateSpeed()
	v.updateHeading()
	v.updatePosition()

	return Step{
		Position:  v.pos,
		Speed:     v.state.CurrentSpeed,
		Heading:   v.state.CurrentHeading,
		HasMotion: true,
	}
}

func (v *Vehicle) updateSpeed() {
	s := &v.state
	switch {
	case math.Abs(s.CurrentSpeed-s.TargetSpeed) < SpeedChangeRate:
		s.CurrentSpeed = s.TargetSpeed
		if v.rng.Float64() < newTargetProbability {
			s.TargetSpeed = uniform(v.rng, MinTargetSpeed, MaxTargetSpeed)
		}
	case s.CurrentSpeed < s.TargetSpeed:
		s.CurrentSpeed += SpeedChangeRate
	default:
		s.CurrentSpeed -= SpeedChangeRate
	}
}

func (v *Vehicle) updateHeading() {
	s := &v.state
	s.StraightCounter++

	if s.StraightCounter >= s.MaxStraight {
		var turn float64
		if v.rng.Float64() < sharpTurnProbability {
			turn = sharpTurns[v.rng.IntN(len(sharpTurns))]
		} else {
			turn = uniform(v.rng, -3*TurnRate, 3*TurnRate)
		}
		s.CurrentHeading = geo.NormalizeHeading(s.CurrentHeading + turn)
		s.StraightCounter = 0
		s.MaxStraight = v.straightThreshold()
		return
	}

	if v.rng.Float64() < correctionProbability {
		turn := uniform(v.rng, -TurnRate/2, TurnRate/2)
		s.CurrentHeading = geo.NormalizeHeading(s.CurrentHeading + turn)
	}
}

func (v *Vehicle) updatePosition() {
	lat, lon := geo.Project(v.pos.Lat, v.pos.Lon, v.state.CurrentHeading, v.state.CurrentSpeed, v.interval)
	// receiver jitter
	lat += uniform(v.rng, -JitterDeg, JitterDeg)
	lon += uniform(v.rng, -JitterDeg, JitterDeg)
	v.pos = Position{Lat: geo.ClampLatitude(lat), Lon: geo.WrapLongitude(lon)}
}

func (v *Vehicle) straightThreshold() int {
	return MinStraight + v.rng.IntN(MaxStraight-MinStraight+1)
}
