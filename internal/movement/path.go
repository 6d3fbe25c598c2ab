// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package movement

import (
	"bufio"
	"fmt"
	"io"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/relabs-tech/gps_simulator/internal/gps"
)

// DefaultPathFile is the preset path looked up when none is configured.
const DefaultPathFile = "preset_path.txt"

// Path is an ordered list of coordinates for replay.
type Path []Position

// ReadPath parses one coordinate per line. A line is either "lat,lon" or a
// raw NMEA sentence (RMC, GGA or GLL) as logged from a receiver; sentences
// without a valid fix are skipped. Blank lines and '#' comments are ignored.
// The first malformed line aborts the parse.
func ReadPath(r io.Reader) (Path, error) {
	var path Path
	scanner := bufio.NewScanner(r)
	lineNum := 0

	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		if strings.HasPrefix(line, "$") {
			lat, lon, valid, err := gps.ParsePosition(line)
			if err != nil {
				return nil, fmt.Errorf("line %d: %w", lineNum, err)
			}
			if valid {
				path = append(path, Position{Lat: lat, Lon: lon})
			}
			continue
		}

		p, err := parseLatLon(line)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", lineNum, err)
		}
		path = append(path, p)
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading path: %w", err)
	}
	return path, nil
}

func parseLatLon(line string) (Position, error) {
	parts := strings.Split(line, ",")
	if len(parts) != 2 {
		return Position{}, fmt.Errorf("expected \"lat,lon\", got %q", line)
	}
	lat, err := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	if err != nil {
		return Position{}, fmt.Errorf("invalid latitude %q: %w", parts[0], err)
	}
	lon, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err != nil {
		return Position{}, fmt.Errorf("invalid longitude %q: %w", parts[1], err)
	}
	if lat < -90 || lat > 90 || lon < -180 || lon > 180 {
		return Position{}, fmt.Errorf("coordinate %q out of range", line)
	}
	return Position{Lat: lat, Lon: lon}, nil
}

// LoadPath reads a preset path file. A missing or malformed file is logged
// and yields an empty path; replay then simply holds position.
func LoadPath(name string) Path {
	f, err := os.Open(name)
	if err != nil {
		log.Printf("preset: cannot open %s, using empty path: %v", name, err)
		return nil
	}
	defer f.Close()

	path, err := ReadPath(f)
	if err != nil {
		log.Printf("preset: %s is malformed, using empty path: %v", name, err)
		return nil
	}
	log.Printf("preset: loaded %d points from %s", len(path), name)
	return path
}
