// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package collector

import (
	"context"
	"io"
	"log"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relabs-tech/gps_simulator/internal/gps"
)

var serverTime = time.Date(2026, 10, 18, 9, 30, 0, 0, time.UTC)

type recordingBroadcaster struct {
	mu    sync.Mutex
	fixes []gps.Fix
}

func (b *recordingBroadcaster) Broadcast(f gps.Fix) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.fixes = append(b.fixes, f)
}

func (b *recordingBroadcaster) count() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.fixes)
}

// fixedFaults never sleeps and always draws v.
func fixedFaults(lossProbability, v float64) *FaultInjector {
	return &FaultInjector{
		MaxDelay:        DefaultMaxDelay,
		LossProbability: lossProbability,
		Float64:         func() float64 { return v },
		Sleep:           func(context.Context, time.Duration) error { return nil },
	}
}

func newTestService(faults *FaultInjector, b Broadcaster) *Service {
	return NewService(Options{
		History:     NewHistory(DefaultHistoryCapacity),
		Faults:      faults,
		Broadcaster: b,
		Now:         func() time.Time { return serverTime },
		Logger:      log.New(io.Discard, "", 0),
	})
}

func t1() gps.Fix {
	return gps.Fix{
		DeviceID:  "SIM001",
		Latitude:  37.7749,
		Longitude: -122.4194,
		Timestamp: "2026-10-18T09:29:59.500Z",
	}
}

func TestSubmitStoresWithServerTimestamp(t *testing.T) {
	b := &recordingBroadcaster{}
	svc := newTestService(fixedFaults(0, 0.5), b)

	r, err := svc.Submit(context.Background(), t1(), false)
	require.NoError(t, err)
	assert.Equal(t, 1, r.Stored)

	hist := svc.History()
	require.Len(t, hist, 1)
	assert.Equal(t, "2026-10-18T09:30:00.000Z", hist[0].Timestamp)
	assert.Equal(t, "2026-10-18T09:29:59.500Z", hist[0].DeviceTimestamp)
	assert.Equal(t, 1, b.count())
	assert.Equal(t, hist[0], b.fixes[0])
}

func TestSubmitWithoutDeviceTimestamp(t *testing.T) {
	svc := newTestService(fixedFaults(0, 0.5), nil)
	f := t1()
	f.Timestamp = ""

	_, err := svc.Submit(context.Background(), f, false)
	require.NoError(t, err)
	assert.Empty(t, svc.History()[0].DeviceTimestamp)
}

func TestSubmitInducedLossLeavesStateUntouched(t *testing.T) {
	b := &recordingBroadcaster{}
	svc := newTestService(fixedFaults(1, 0.5), b)

	_, err := svc.Submit(context.Background(), t1(), false)
	require.NoError(t, err, "faults only apply when simulate_issues is set")

	for i := 0; i < 5; i++ {
		_, err := svc.Submit(context.Background(), t1(), true)
		assert.ErrorIs(t, err, ErrPacketLost)
	}
	assert.Len(t, svc.History(), 1)
	assert.Equal(t, 1, b.count())
}

func TestSubmitSurvivesFaultsBelowThreshold(t *testing.T) {
	svc := newTestService(fixedFaults(0.2, 0.5), nil)

	r, err := svc.Submit(context.Background(), t1(), true)
	require.NoError(t, err)
	assert.Equal(t, 1, r.Stored)
}

func TestSubmitRejectsInvalid(t *testing.T) {
	b := &recordingBroadcaster{}
	svc := newTestService(fixedFaults(0, 0.5), b)

	f := t1()
	f.Latitude = 91
	_, err := svc.Submit(context.Background(), f, false)
	assert.ErrorIs(t, err, ErrInvalidFix)

	f = t1()
	f.DeviceID = ""
	_, err = svc.Submit(context.Background(), f, false)
	assert.ErrorIs(t, err, ErrInvalidFix)

	assert.Empty(t, svc.History())
	assert.Zero(t, b.count())
}

func TestSubmitStoredCountCapsAtCapacity(t *testing.T) {
	svc := newTestService(fixedFaults(0, 0.5), nil)

	var last Receipt
	for i := 0; i < 150; i++ {
		r, err := svc.Submit(context.Background(), t1(), false)
		require.NoError(t, err)
		last = r
	}
	assert.Equal(t, 100, last.Stored)
	assert.Len(t, svc.History(), 100)
}

func TestFaultInjectorDelayScalesWithDraw(t *testing.T) {
	var slept time.Duration
	fi := &FaultInjector{
		MaxDelay:        3 * time.Second,
		LossProbability: 0.2,
		Float64:         func() float64 { return 0.5 },
		Sleep: func(_ context.Context, d time.Duration) error {
			slept = d
			return nil
		},
	}

	require.NoError(t, fi.Apply(context.Background()))
	assert.Equal(t, 1500*time.Millisecond, slept)
}

func TestFaultInjectorDelayBounds(t *testing.T) {
	for _, tc := range []struct {
		draw float64
		want time.Duration
	}{
		{0, 0},
		{math.Nextafter(1, 0), 3 * time.Second},
	} {
		var slept time.Duration
		fi := &FaultInjector{
			MaxDelay: 3 * time.Second,
			Float64:  func() float64 { return tc.draw },
			Sleep: func(_ context.Context, d time.Duration) error {
				slept = d
				return nil
			},
		}
		require.NoError(t, fi.Apply(context.Background()))
		assert.Equal(t, tc.want, slept, "draw %v", tc.draw)
	}
}

func TestFaultInjectorLossDraw(t *testing.T) {
	draws := []float64{0, 0.1} // delay draw, then loss draw
	fi := &FaultInjector{
		MaxDelay:        time.Second,
		LossProbability: 0.2,
		Float64: func() float64 {
			v := draws[0]
			draws = draws[1:]
			return v
		},
		Sleep: func(context.Context, time.Duration) error { return nil },
	}
	assert.ErrorIs(t, fi.Apply(context.Background()), ErrPacketLost)
}

func TestFaultInjectorHonoursContext(t *testing.T) {
	fi := &FaultInjector{
		MaxDelay:        time.Hour,
		LossProbability: 0,
		Float64:         func() float64 { return 0.99 },
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	start := time.Now()
	err := fi.Apply(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), time.Second)
}

func TestFaultInjectorDefaultsToRealRandomness(t *testing.T) {
	fi := NewFaultInjector(0, 0)
	assert.NoError(t, fi.Apply(context.Background()))

	fi = NewFaultInjector(0, 1)
	assert.ErrorIs(t, fi.Apply(context.Background()), ErrPacketLost)
}
