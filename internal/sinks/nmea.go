// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package sinks

import (
	"context"
	"fmt"
	"io"
	"log"
	"sync"
	"time"

	serial "github.com/jacobsa/go-serial/serial"

	"github.com/relabs-tech/gps_simulator/internal/gps"
)

// NMEA writes each fix as a $GPRMC sentence, so anything that reads a
// serial GPS can consume the simulator.
type NMEA struct {
	mu     sync.Mutex
	w      io.Writer
	now    func() time.Time
	logger *log.Logger
}

func NewNMEA(w io.Writer, logger *log.Logger) *NMEA {
	if logger == nil {
		logger = log.Default()
	}
	return &NMEA{w: w, now: time.Now, logger: logger}
}

// OpenSerial opens portName 8N1 at baudRate for writing NMEA.
func OpenSerial(portName string, baudRate int) (io.ReadWriteCloser, error) {
	opts := serial.OpenOptions{
		PortName:        portName,
		BaudRate:        uint(baudRate),
		DataBits:        8,
		StopBits:        1,
		MinimumReadSize: 1,
		ParityMode:      serial.PARITY_NONE,
	}
	port, err := serial.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open serial port %s: %w", portName, err)
	}
	return port, nil
}

func (n *NMEA) HandleFix(_ context.Context, f gps.Fix) error {
	at := n.now()
	if t, err := time.Parse(gps.TimeLayout, f.Timestamp); err == nil {
		at = t
	}

	n.mu.Lock()
	defer n.mu.Unlock()
	if _, err := io.WriteString(n.w, gps.FormatRMC(f, at)); err != nil {
		return fmt.Errorf("nmea sink: %w", err)
	}
	return nil
}

func (n *NMEA) HandleLoss(_ context.Context, at time.Time) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if _, err := io.WriteString(n.w, gps.FormatVoidRMC(at)); err != nil {
		n.logger.Printf("nmea: write void sentence: %v", err)
	}
}
