// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package gps

import (
	"fmt"
	"math"
	"strings"
	"time"

	nmea "github.com/adrianmo/go-nmea"
)

const knotsPerKmh = 1 / 1.852

// FormatRMC renders f as a $GPRMC sentence (with CRLF) stamped at t, the way
// a serial receiver would emit it.
func FormatRMC(f Fix, t time.Time) string {
	t = t.UTC()

	var speedKnots, course float64
	if f.Speed != nil {
		speedKnots = *f.Speed * knotsPerKmh
	}
	if f.Heading != nil {
		course = *f.Heading
	}

	lat, ns := nmeaCoord(f.Latitude, 2, "N", "S")
	lon, ew := nmeaCoord(f.Longitude, 3, "E", "W")

	body := fmt.Sprintf("GPRMC,%02d%02d%02d.%02d,A,%s,%s,%s,%s,%.2f,%.1f,%02d%02d%02d,,,A",
		t.Hour(), t.Minute(), t.Second(), t.Nanosecond()/int(10*time.Millisecond),
		lat, ns, lon, ew,
		speedKnots, course,
		t.Day(), int(t.Month()), t.Year()%100,
	)
	return "$" + body + "*" + nmea.Checksum(body) + "\r\n"
}

// nmeaCoord converts decimal degrees into (d)ddmm.mmmm plus hemisphere.
func nmeaCoord(v float64, degDigits int, pos, neg string) (string, string) {
	hemi := pos
	if v < 0 {
		hemi = neg
	}
	// round on total minutes so 59.99999 never prints as 60.0000
	minutes := math.Round(math.Abs(v)*60*10000) / 10000
	deg := int(minutes / 60)
	minutes -= float64(deg) * 60
	return fmt.Sprintf("%0*d%07.4f", degDigits, deg, minutes), hemi
}

// ParsePosition extracts a position from an RMC, GGA or GLL sentence.
// valid is false for sentences that parse but report no fix, and for
// sentence types that carry no position.
func ParsePosition(line string) (lat, lon float64, valid bool, err error) {
	s, err := nmea.Parse(strings.TrimSpace(line))
	if err != nil {
		return 0, 0, false, err
	}

	switch m := s.(type) {
	case nmea.RMC:
		return m.Latitude, m.Longitude, m.Validity == nmea.ValidRMC, nil
	case nmea.GGA:
		return m.Latitude, m.Longitude, m.FixQuality != nmea.Invalid, nil
	case nmea.GLL:
		return m.Latitude, m.Longitude, m.Validity == nmea.ValidGLL, nil
	default:
		return 0, 0, false, nil
	}
}

// FormatVoidRMC renders the sentence a receiver emits while it has no fix.
func FormatVoidRMC(t time.Time) string {
	t = t.UTC()
	body := fmt.Sprintf("GPRMC,%02d%02d%02d.%02d,V,,,,,,,%02d%02d%02d,,,N",
		t.Hour(), t.Minute(), t.Second(), t.Nanosecond()/int(10*time.Millisecond),
		t.Day(), int(t.Month()), t.Year()%100,
	)
	return "$" + body + "*" + nmea.Checksum(body) + "\r\n"
}
