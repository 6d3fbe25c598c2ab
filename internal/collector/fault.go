// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package collector

import (
	"context"
	"errors"
	"math"
	"math/rand/v2"
	"time"
)

// ErrPacketLost is returned for a submission the fault injector dropped.
var ErrPacketLost = errors.New("packet lost")

const (
	DefaultMaxDelay        = 3 * time.Second
	DefaultLossProbability = 0.2
)

// FaultInjector imitates a flaky uplink: a uniform random delay in
// [0, MaxDelay] followed by a loss draw.
type FaultInjector struct {
	MaxDelay        time.Duration
	LossProbability float64

	// Float64 returns values in [0,1) and must be safe for concurrent
	// use. Nil uses math/rand/v2.
	Float64 func() float64
	// Sleep waits d or until ctx is done. Nil uses a timer.
	Sleep func(ctx context.Context, d time.Duration) error
}

func NewFaultInjector(maxDelay time.Duration, lossProbability float64) *FaultInjector {
	return &FaultInjector{MaxDelay: maxDelay, LossProbability: lossProbability}
}

// Apply delays, then decides the packet's fate. It returns ErrPacketLost,
// the context's error if the delay was cut short, or nil.
func (fi *FaultInjector) Apply(ctx context.Context) error {
	draw := fi.Float64
	if draw == nil {
		draw = rand.Float64
	}
	sleep := fi.Sleep
	if sleep == nil {
		sleep = sleepContext
	}

	if fi.MaxDelay > 0 {
		// rounding to the nanosecond makes MaxDelay itself reachable
		delay := time.Duration(math.Round(draw() * float64(fi.MaxDelay)))
		if err := sleep(ctx, delay); err != nil {
			return err
		}
	}
	if draw() < fi.LossProbability {
		return ErrPacketLost
	}
	return nil
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
