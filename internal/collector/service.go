// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package collector is the ingestion side: it validates submitted fixes,
// optionally degrades them through fault injection, keeps a bounded
// history and forwards every accepted fix to live subscribers.
package collector

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/relabs-tech/gps_simulator/internal/gps"
	"github.com/relabs-tech/gps_simulator/internal/metrics"
)

// ErrInvalidFix is gps.ErrInvalid under the collector's name, so either
// matches with errors.Is.
var ErrInvalidFix = gps.ErrInvalid

// Broadcaster pushes an accepted fix to whoever is listening. It must not
// block on slow listeners.
type Broadcaster interface {
	Broadcast(f gps.Fix)
}

type Receipt struct {
	Stored int
}

type Service struct {
	history     *History
	faults      *FaultInjector
	broadcaster Broadcaster
	now         func() time.Time
	logger      *log.Logger
}

type Options struct {
	History     *History
	Faults      *FaultInjector
	Broadcaster Broadcaster // optional
	Now         func() time.Time
	Logger      *log.Logger
}

func NewService(opts Options) *Service {
	s := &Service{
		history:     opts.History,
		faults:      opts.Faults,
		broadcaster: opts.Broadcaster,
		now:         opts.Now,
		logger:      opts.Logger,
	}
	if s.history == nil {
		s.history = NewHistory(DefaultHistoryCapacity)
	}
	if s.faults == nil {
		s.faults = NewFaultInjector(DefaultMaxDelay, DefaultLossProbability)
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.logger == nil {
		s.logger = log.Default()
	}
	return s
}

// Submit validates f, runs fault injection when simulateIssues is set and
// stores the fix stamped with the server's receive time. A dropped or
// rejected fix leaves the history untouched.
func (s *Service) Submit(ctx context.Context, f gps.Fix, simulateIssues bool) (Receipt, error) {
	start := time.Now()
	defer func() { metrics.SubmitDuration.Observe(time.Since(start).Seconds()) }()
	metrics.FixesReceivedTotal.Inc()

	if err := f.Validate(); err != nil {
		metrics.FixesRejectedTotal.Inc()
		return Receipt{}, err
	}

	if simulateIssues {
		if err := s.faults.Apply(ctx); err != nil {
			if errors.Is(err, ErrPacketLost) {
				metrics.FixesDroppedTotal.Inc()
				s.logger.Printf("collector: dropped fix from %s (simulated loss)", f.DeviceID)
			}
			return Receipt{}, err
		}
	}

	if f.Timestamp != "" {
		f.DeviceTimestamp = f.Timestamp
	}
	f.Timestamp = gps.FormatTime(s.now())

	n := s.history.Append(f)
	metrics.FixesStoredTotal.Inc()

	if s.broadcaster != nil {
		s.broadcaster.Broadcast(f)
	}
	return Receipt{Stored: n}, nil
}

// History returns the retained fixes, oldest first.
func (s *Service) History() []gps.Fix {
	return s.history.Snapshot()
}
