// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package broadcast

import (
	"github.com/relabs-tech/gps_simulator/internal/gps"
)

// Broadcaster matches collector.Broadcaster.
type Broadcaster interface {
	Broadcast(f gps.Fix)
}

// Multi hands each fix to every member in order.
type Multi []Broadcaster

func (m Multi) Broadcast(f gps.Fix) {
	for _, b := range m {
		b.Broadcast(f)
	}
}
