// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package emitter drives a movement model at a fixed cadence and hands the
// resulting fixes to a Sink.
package emitter

import (
	"context"
	"errors"
	"log"
	"math"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/relabs-tech/gps_simulator/internal/geo"
	"github.com/relabs-tech/gps_simulator/internal/gps"
	"github.com/relabs-tech/gps_simulator/internal/metrics"
	"github.com/relabs-tech/gps_simulator/internal/movement"
)

// DefaultInterval is the tick length when Options.Interval is unset.
const DefaultInterval = time.Second

// ErrRunning is returned by Start and Run while a run is already active.
// The active run is left untouched.
var ErrRunning = errors.New("emitter: already running")

// Options configures an Emitter.
type Options struct {
	DeviceID string
	Interval time.Duration

	// SignalLoss is the per-tick probability of losing the fix entirely.
	SignalLoss float64

	// DeriveMetadata fills speed and heading from consecutive fixes for
	// models that do not report them, and attaches Accuracy.
	DeriveMetadata bool
	Accuracy       float64 // meters

	Rand   *rand.Rand
	Now    func() time.Time
	Logger *log.Logger
}

// Emitter runs at most one simulation at a time.
type Emitter struct {
	opts   Options
	rng    *rand.Rand
	now    func() time.Time
	logger *log.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// New fills in defaults for any unset option.
func New(opts Options) *Emitter {
	if opts.Interval <= 0 {
		opts.Interval = DefaultInterval
	}
	e := &Emitter{opts: opts, rng: opts.Rand, now: opts.Now, logger: opts.Logger}
	if e.rng == nil {
		e.rng = movement.NewRand(0)
	}
	if e.now == nil {
		e.now = time.Now
	}
	if e.logger == nil {
		e.logger = log.Default()
	}
	return e
}

// Start begins ticking model into sink on a new goroutine. The first fix is
// produced immediately.
func (e *Emitter) Start(model movement.Model, sink Sink) error {
	_, err := e.start(context.Background(), model, sink)
	return err
}

// Run is the blocking form of Start. It returns once ctx is cancelled or
// Stop is called, after the in-flight tick has completed.
func (e *Emitter) Run(ctx context.Context, model movement.Model, sink Sink) error {
	done, err := e.start(ctx, model, sink)
	if err != nil {
		return err
	}
	<-done
	return nil
}

// Stop cancels the active run and waits for its current tick, sink delivery
// included, to finish. Calling Stop with nothing running is a no-op.
func (e *Emitter) Stop() {
	e.mu.Lock()
	cancel, done := e.cancel, e.done
	e.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
}

// Running reports whether a run is active.
func (e *Emitter) Running() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.activeLocked()
}

func (e *Emitter) activeLocked() bool {
	if e.done == nil {
		return false
	}
	select {
	case <-e.done:
		return false
	default:
		return true
	}
}

func (e *Emitter) start(parent context.Context, model movement.Model, sink Sink) (<-chan struct{}, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.activeLocked() {
		return nil, ErrRunning
	}

	ctx, cancel := context.WithCancel(parent)
	done := make(chan struct{})
	e.cancel, e.done = cancel, done

	go func() {
		defer close(done)
		defer cancel()
		e.loop(ctx, model, sink)
	}()
	return done, nil
}

// run holds what one run remembers between ticks.
type run struct {
	model   movement.Model
	sink    Sink
	label   string
	prev    *gps.Fix
	prevAt  time.Time
	heading float64
}

func (e *Emitter) loop(ctx context.Context, model movement.Model, sink Sink) {
	r := &run{model: model, sink: sink, label: model.Kind().String()}
	e.logger.Printf("emitter: %s started for %s every %s", r.label, e.opts.DeviceID, e.opts.Interval)

	timer := time.NewTimer(0)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			e.logger.Printf("emitter: %s stopped for %s", r.label, e.opts.DeviceID)
			return
		case <-timer.C:
		}

		// Delivery outlives Stop: a publish already underway finishes on
		// the sink's own timeout.
		e.tick(context.WithoutCancel(ctx), r)
		timer.Reset(e.opts.Interval)
	}
}

func (e *Emitter) tick(ctx context.Context, r *run) {
	at := e.now()

	if e.opts.SignalLoss > 0 && e.rng.Float64() < e.opts.SignalLoss {
		metrics.SignalLossTotal.WithLabelValues(r.label).Inc()
		r.sink.HandleLoss(ctx, at)
		return
	}

	fix := e.buildFix(r, r.model.Next(), at)
	metrics.FixesEmittedTotal.WithLabelValues(r.label).Inc()

	if err := r.sink.HandleFix(ctx, fix); err != nil {
		metrics.SinkErrorsTotal.Inc()
		e.logger.Printf("emitter: delivery failed, continuing: %v", err)
	}
}

func (e *Emitter) buildFix(r *run, step movement.Step, at time.Time) gps.Fix {
	fix := gps.Fix{
		DeviceID:  e.opts.DeviceID,
		Latitude:  round6(step.Lat),
		Longitude: round6(step.Lon),
		Timestamp: gps.FormatTime(at),
	}

	switch {
	case step.HasMotion:
		fix.Speed = gps.Float(step.Speed)
		fix.Heading = gps.Float(step.Heading)
	case e.opts.DeriveMetadata && r.prev != nil:
		dist := geo.Distance(r.prev.Latitude, r.prev.Longitude, fix.Latitude, fix.Longitude)
		// keep the last heading while standing still
		if dist > 0 {
			r.heading = geo.Bearing(r.prev.Latitude, r.prev.Longitude, fix.Latitude, fix.Longitude)
		}
		fix.Speed = gps.Float(geo.SpeedKmh(dist, at.Sub(r.prevAt)))
		fix.Heading = gps.Float(r.heading)
	}

	if e.opts.DeriveMetadata && e.opts.Accuracy > 0 {
		fix.Accuracy = gps.Float(e.opts.Accuracy)
	}

	prev := fix
	r.prev, r.prevAt = &prev, at
	return fix
}

func round6(v float64) float64 {
	return math.Round(v*1e6) / 1e6
}
