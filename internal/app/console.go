// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/relabs-tech/gps_simulator/internal/config"
	"github.com/relabs-tech/gps_simulator/internal/emitter"
	"github.com/relabs-tech/gps_simulator/internal/gps"
	"github.com/relabs-tech/gps_simulator/internal/movement"
)

// RunConsole runs the configured model offline and prints each fix, with
// no collector or broker involved.
func RunConsole(cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rng := movement.NewRand(cfg.SimSeed)
	model, err := buildModel(cfg, rng)
	if err != nil {
		return err
	}

	em := emitter.New(emitterOptions(cfg, rng))
	return em.Run(ctx, model, printer(os.Stdout))
}

func printer(w io.Writer) emitter.Sink {
	return emitter.Funcs{
		Fix: func(_ context.Context, f gps.Fix) error {
			_, err := fmt.Fprintln(w, formatFix(f))
			return err
		},
		Loss: func(_ context.Context, at time.Time) {
			fmt.Fprintf(w, "[LOSS]  no fix at %s\n", gps.FormatTime(at))
		},
	}
}

// formatFix renders one fix for terminal output.
func formatFix(f gps.Fix) string {
	s := fmt.Sprintf("[FIX ]  %s  LAT=%10.6f  LON=%11.6f", f.DeviceID, f.Latitude, f.Longitude)
	if f.Speed != nil {
		s += fmt.Sprintf("  SPD=%5.1fkm/h", *f.Speed)
	}
	if f.Heading != nil {
		s += fmt.Sprintf("  HDG=%5.1f°", *f.Heading)
	}
	if f.Accuracy != nil {
		s += fmt.Sprintf("  ACC=%.1fm", *f.Accuracy)
	}
	return s + "  " + f.Timestamp
}
