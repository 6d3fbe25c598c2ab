// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package gps

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"time"
)

// TimeLayout is the ISO-8601 UTC layout used for every timestamp on the wire.
const TimeLayout = "2006-01-02T15:04:05.000Z07:00"

// ErrInvalid marks a fix that is missing required fields or carries values
// outside their domain.
var ErrInvalid = errors.New("invalid fix")

// Fix represents a single GPS reading suitable for JSON, HTTP and MQTT.
type Fix struct {
	DeviceID  string  `json:"device_id"`
	Latitude  float64 `json:"latitude"`  // decimal degrees
	Longitude float64 `json:"longitude"` // decimal degrees
	Timestamp string  `json:"timestamp"` // e.g. "2026-10-18T09:30:00.000Z"

	// DeviceTimestamp keeps what the device sent when the collector
	// stamps its own receive time into Timestamp.
	DeviceTimestamp string `json:"device_timestamp,omitempty"`

	Speed    *float64 `json:"speed,omitempty"`    // km/h
	Heading  *float64 `json:"heading,omitempty"`  // degrees clockwise from north
	Accuracy *float64 `json:"accuracy,omitempty"` // meters
}

// Float returns a pointer to v, for the optional Fix fields.
func Float(v float64) *float64 { return &v }

// FormatTime renders t in TimeLayout, always in UTC.
func FormatTime(t time.Time) string {
	return t.UTC().Format(TimeLayout)
}

// Validate checks the domain of every populated field.
func (f Fix) Validate() error {
	if f.DeviceID == "" {
		return fmt.Errorf("%w: device_id is required", ErrInvalid)
	}
	if math.IsNaN(f.Latitude) || f.Latitude < -90 || f.Latitude > 90 {
		return fmt.Errorf("%w: latitude %v out of range [-90,90]", ErrInvalid, f.Latitude)
	}
	if math.IsNaN(f.Longitude) || f.Longitude < -180 || f.Longitude > 180 {
		return fmt.Errorf("%w: longitude %v out of range [-180,180]", ErrInvalid, f.Longitude)
	}
	if f.Speed != nil && (math.IsNaN(*f.Speed) || *f.Speed < 0) {
		return fmt.Errorf("%w: speed %v must be >= 0", ErrInvalid, *f.Speed)
	}
	if f.Heading != nil && (math.IsNaN(*f.Heading) || *f.Heading < 0 || *f.Heading >= 360) {
		return fmt.Errorf("%w: heading %v out of range [0,360)", ErrInvalid, *f.Heading)
	}
	if f.Accuracy != nil && (math.IsNaN(*f.Accuracy) || *f.Accuracy <= 0) {
		return fmt.Errorf("%w: accuracy %v must be > 0", ErrInvalid, *f.Accuracy)
	}
	return nil
}

// submission mirrors Fix with pointers so missing coordinates can be told
// apart from a legitimate 0.
type submission struct {
	DeviceID  string   `json:"device_id"`
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
	Timestamp string   `json:"timestamp"`
	Speed     *float64 `json:"speed"`
	Heading   *float64 `json:"heading"`
	Accuracy  *float64 `json:"accuracy"`
}

// Decode reads one Fix-shaped JSON object and validates it. Every failure
// wraps ErrInvalid.
func Decode(r io.Reader) (Fix, error) {
	var s submission
	if err := json.NewDecoder(r).Decode(&s); err != nil {
		return Fix{}, fmt.Errorf("%w: %w", ErrInvalid, err)
	}
	if s.Latitude == nil {
		return Fix{}, fmt.Errorf("%w: latitude is required", ErrInvalid)
	}
	if s.Longitude == nil {
		return Fix{}, fmt.Errorf("%w: longitude is required", ErrInvalid)
	}

	f := Fix{
		DeviceID:  s.DeviceID,
		Latitude:  *s.Latitude,
		Longitude: *s.Longitude,
		Timestamp: s.Timestamp,
		Speed:     s.Speed,
		Heading:   s.Heading,
		Accuracy:  s.Accuracy,
	}
	if err := f.Validate(); err != nil {
		return Fix{}, err
	}
	return f, nil
}
