// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package emitter

import (
	"context"
	"errors"
	"time"

	"github.com/relabs-tech/gps_simulator/internal/gps"
)

// Sink receives the emitter's output. HandleFix is called once per produced
// fix, HandleLoss once per tick lost to simulated signal loss. Calls are
// never concurrent for a given emitter run.
type Sink interface {
	HandleFix(ctx context.Context, f gps.Fix) error
	HandleLoss(ctx context.Context, at time.Time)
}

// Funcs adapts plain functions to a Sink. Either may be nil.
type Funcs struct {
	Fix  func(ctx context.Context, f gps.Fix) error
	Loss func(ctx context.Context, at time.Time)
}

func (s Funcs) HandleFix(ctx context.Context, f gps.Fix) error {
	if s.Fix == nil {
		return nil
	}
	return s.Fix(ctx, f)
}

func (s Funcs) HandleLoss(ctx context.Context, at time.Time) {
	if s.Loss != nil {
		s.Loss(ctx, at)
	}
}

// Multi delivers to every sink in order. A failing sink does not prevent
// delivery to the rest; their errors are joined.
type Multi []Sink

func (m Multi) HandleFix(ctx context.Context, f gps.Fix) error {
	var errs []error
	for _, s := range m {
		if err := s.HandleFix(ctx, f); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (m Multi) HandleLoss(ctx context.Context, at time.Time) {
	for _, s := range m {
		s.HandleLoss(ctx, at)
	}
}
