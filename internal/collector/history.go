// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package collector

import (
	"sync"

	"github.com/relabs-tech/gps_simulator/internal/gps"
	"github.com/relabs-tech/gps_simulator/internal/metrics"
)

// DefaultHistoryCapacity is how many accepted fixes the collector keeps.
const DefaultHistoryCapacity = 100

// History is a fixed-capacity ring of the most recent accepted fixes.
// Appends evict the oldest entry once full.
type History struct {
	mu    sync.RWMutex
	buf   []gps.Fix
	start int // index of the oldest entry
	n     int
}

func NewHistory(capacity int) *History {
	if capacity <= 0 {
		capacity = DefaultHistoryCapacity
	}
	return &History{buf: make([]gps.Fix, capacity)}
}

// Append stores f and returns the number of entries held afterwards. The
// history-size gauge is updated under the same lock.
func (h *History) Append(f gps.Fix) int {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.n < len(h.buf) {
		h.buf[(h.start+h.n)%len(h.buf)] = f
		h.n++
	} else {
		h.buf[h.start] = f
		h.start = (h.start + 1) % len(h.buf)
	}
	metrics.HistorySize.Set(float64(h.n))
	return h.n
}

// Snapshot returns a copy of the held fixes, oldest first.
func (h *History) Snapshot() []gps.Fix {
	h.mu.RLock()
	defer h.mu.RUnlock()

	out := make([]gps.Fix, h.n)
	for i := 0; i < h.n; i++ {
		out[i] = h.buf[(h.start+i)%len(h.buf)]
	}
	return out
}

func (h *History) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.n
}

func (h *History) Cap() int {
	return len(h.buf)
}
