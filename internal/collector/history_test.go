// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package collector

import (
	"fmt"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relabs-tech/gps_simulator/internal/gps"
	"github.com/relabs-tech/gps_simulator/internal/metrics"
)

func numbered(i int) gps.Fix {
	return gps.Fix{DeviceID: fmt.Sprintf("dev-%d", i), Latitude: float64(i % 90), Longitude: 0}
}

func TestHistoryKeepsMostRecent(t *testing.T) {
	h := NewHistory(100)
	for i := 0; i < 150; i++ {
		h.Append(numbered(i))
	}

	snap := h.Snapshot()
	require.Len(t, snap, 100)
	assert.Equal(t, "dev-50", snap[0].DeviceID)
	assert.Equal(t, "dev-149", snap[99].DeviceID)
	for i := 1; i < len(snap); i++ {
		assert.Equal(t, fmt.Sprintf("dev-%d", 50+i), snap[i].DeviceID)
	}
}

func TestHistoryAppendReportsSize(t *testing.T) {
	h := NewHistory(3)
	assert.Equal(t, 1, h.Append(numbered(0)))
	assert.Equal(t, 2, h.Append(numbered(1)))
	assert.Equal(t, 3, h.Append(numbered(2)))
	assert.Equal(t, 3, h.Append(numbered(3)))
	assert.Equal(t, 3, h.Len())
	assert.Equal(t, 3, h.Cap())
}

func TestHistoryDefaultCapacity(t *testing.T) {
	assert.Equal(t, DefaultHistoryCapacity, NewHistory(0).Cap())
}

func TestHistorySnapshotIsACopy(t *testing.T) {
	h := NewHistory(2)
	h.Append(numbered(1))

	snap := h.Snapshot()
	snap[0].DeviceID = "mutated"
	assert.Equal(t, "dev-1", h.Snapshot()[0].DeviceID)
}

func TestHistoryEmptySnapshot(t *testing.T) {
	snap := NewHistory(5).Snapshot()
	assert.NotNil(t, snap)
	assert.Empty(t, snap)
}

func TestHistoryConcurrentAppends(t *testing.T) {
	const writers, perWriter = 20, 50
	h := NewHistory(writers * perWriter)

	var wg sync.WaitGroup
	for w := 0; w < writers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < perWriter; i++ {
				h.Append(numbered(w*perWriter + i))
				_ = h.Snapshot()
			}
		}(w)
	}
	wg.Wait()

	assert.Equal(t, writers*perWriter, h.Len())
	seen := make(map[string]bool)
	for _, f := range h.Snapshot() {
		seen[f.DeviceID] = true
	}
	assert.Len(t, seen, writers*perWriter, "no append may be lost")
}

func TestHistoryConcurrentEviction(t *testing.T) {
	h := NewHistory(10)

	var wg sync.WaitGroup
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < 100; i++ {
				h.Append(numbered(w*100 + i))
				assert.LessOrEqual(t, len(h.Snapshot()), 10)
			}
		}(w)
	}
	wg.Wait()
	assert.Equal(t, 10, h.Len())
}

func TestHistorySizeGaugeTracksConcurrentAppends(t *testing.T) {
	const writers, perWriter = 16, 40
	h := NewHistory(writers * perWriter)

	var wg sync.WaitGroup
	for w := 0; w < writers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < perWriter; i++ {
				h.Append(numbered(w*perWriter + i))
			}
		}(w)
	}
	wg.Wait()

	assert.Equal(t, float64(h.Len()), testutil.ToFloat64(metrics.HistorySize))
}
