// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package sinks

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/relabs-tech/gps_simulator/internal/gps"
)

// ErrPacketLost is returned when the collector reports an induced loss.
var ErrPacketLost = errors.New("collector dropped the fix")

// StatusError is any other non-200 answer from the collector.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("collector answered %d: %s", e.Code, e.Body)
}

// SubmitResponse is the collector's reply body.
type SubmitResponse struct {
	Status        string `json:"status"`
	StoredEntries int    `json:"stored_entries,omitempty"`
	Error         string `json:"error,omitempty"`
}

// HTTP posts each fix to the collector's ingestion endpoint.
type HTTP struct {
	endpoint       string
	simulateIssues bool
	client         *http.Client
	logger         *log.Logger
}

// NewHTTP targets endpoint (e.g. http://localhost:5000/api/gps). timeout
// bounds each request, fault-injection delay included.
func NewHTTP(endpoint string, simulateIssues bool, timeout time.Duration, logger *log.Logger) *HTTP {
	if logger == nil {
		logger = log.Default()
	}
	return &HTTP{
		endpoint:       endpoint,
		simulateIssues: simulateIssues,
		client:         &http.Client{Timeout: timeout},
		logger:         logger,
	}
}

func (h *HTTP) HandleFix(ctx context.Context, f gps.Fix) error {
	target, err := url.Parse(h.endpoint)
	if err != nil {
		return fmt.Errorf("http sink: bad endpoint %q: %w", h.endpoint, err)
	}
	q := target.Query()
	q.Set("simulate_issues", strconv.FormatBool(h.simulateIssues))
	target.RawQuery = q.Encode()

	payload, err := json.Marshal(f)
	if err != nil {
		return fmt.Errorf("http sink: marshal fix: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target.String(), bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("http sink: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := h.client.Do(req)
	if err != nil {
		return fmt.Errorf("http sink: connection error: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err != nil {
		return fmt.Errorf("http sink: read response: %w", err)
	}

	switch resp.StatusCode {
	case http.StatusOK:
		var sr SubmitResponse
		if err := json.Unmarshal(body, &sr); err != nil {
			return fmt.Errorf("http sink: decode response: %w", err)
		}
		h.logger.Printf("simulator: data sent: %s", describe(f, sr.StoredEntries))
		return nil
	case http.StatusRequestTimeout:
		return ErrPacketLost
	default:
		return &StatusError{Code: resp.StatusCode, Body: string(bytes.TrimSpace(body))}
	}
}

func (h *HTTP) HandleLoss(_ context.Context, at time.Time) {
	h.logger.Printf("simulator: no signal at %s, nothing sent", gps.FormatTime(at))
}

func describe(f gps.Fix, stored int) string {
	s := fmt.Sprintf("Lat=%.6f, Lon=%.6f", f.Latitude, f.Longitude)
	if f.Speed != nil {
		s += fmt.Sprintf(", Speed=%.1fkm/h", *f.Speed)
	}
	if f.Heading != nil {
		s += fmt.Sprintf(", Heading=%.1f°", *f.Heading)
	}
	return s + fmt.Sprintf(" (stored=%d)", stored)
}
