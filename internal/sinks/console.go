// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package sinks holds the destinations a simulator can feed: a console
// view, the collector's HTTP endpoint, an MQTT topic and an NMEA stream.
package sinks

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/relabs-tech/gps_simulator/internal/gps"
)

// Console prints one JSON object per fix, the way the simulator's output
// pane shows them.
type Console struct {
	mu sync.Mutex
	w  io.Writer
}

func NewConsole(w io.Writer) *Console {
	return &Console{w: w}
}

func (c *Console) HandleFix(_ context.Context, f gps.Fix) error {
	payload, err := json.Marshal(f)
	if err != nil {
		return fmt.Errorf("console: marshal fix: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	_, err = fmt.Fprintf(c.w, "%s\n", payload)
	return err
}

func (c *Console) HandleLoss(_ context.Context, at time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Fprintf(c.w, "signal lost at %s\n", gps.FormatTime(at))
}
