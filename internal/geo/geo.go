// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package geo holds the spherical-earth helpers used by the movement models
// and by fix metadata derivation. All angles are taken and returned in
// degrees; distances are in meters.
package geo

import (
	"math"
	"time"
)

// EarthRadius is the mean Earth radius in meters.
const EarthRadius = 6371000.0

func toRad(deg float64) float64 { return deg * math.Pi / 180.0 }
func toDeg(rad float64) float64 { return rad * 180.0 / math.Pi }

// Distance returns the haversine great-circle distance between two points.
func Distance(lat1, lon1, lat2, lon2 float64) float64 {
	phi1 := toRad(lat1)
	phi2 := toRad(lat2)
	dPhi := toRad(lat2 - lat1)
	dLambda := toRad(lon2 - lon1)

	a := math.Sin(dPhi/2)*math.Sin(dPhi/2) +
		math.Cos(phi1)*math.Cos(phi2)*math.Sin(dLambda/2)*math.Sin(dLambda/2)
	// rounding can push a a hair outside [0,1] for antipodal points
	a = math.Min(1, math.Max(0, a))
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return EarthRadius * c
}

// Bearing returns the initial bearing from point 1 towards point 2 in
// [0,360). Coincident points yield 0.
func Bearing(lat1, lon1, lat2, lon2 float64) float64 {
	phi1 := toRad(lat1)
	phi2 := toRad(lat2)
	dLambda := toRad(lon2 - lon1)

	y := math.Sin(dLambda) * math.Cos(phi2)
	x := math.Cos(phi1)*math.Sin(phi2) - math.Sin(phi1)*math.Cos(phi2)*math.Cos(dLambda)

	return NormalizeHeading(toDeg(math.Atan2(y, x)))
}

// Project moves a point along headingDeg at speedKmh for interval and
// returns the destination using the direct geodesic formula on a sphere.
// A zero distance returns the input point unchanged.
func Project(lat, lon, headingDeg, speedKmh float64, interval time.Duration) (float64, float64) {
	distance := speedKmh * 1000.0 / 3600.0 * interval.Seconds()
	if distance == 0 {
		return lat, lon
	}

	delta := distance / EarthRadius
	theta := toRad(headingDeg)
	phi1 := toRad(lat)
	lambda1 := toRad(lon)

	sinPhi2 := math.Sin(phi1)*math.Cos(delta) + math.Cos(phi1)*math.Sin(delta)*math.Cos(theta)
	sinPhi2 = math.Min(1, math.Max(-1, sinPhi2))
	phi2 := math.Asin(sinPhi2)
	lambda2 := lambda1 + math.Atan2(
		math.Sin(theta)*math.Sin(delta)*math.Cos(phi1),
		math.Cos(delta)-math.Sin(phi1)*math.Sin(phi2),
	)

	return toDeg(phi2), WrapLongitude(toDeg(lambda2))
}

// NormalizeHeading folds any angle, negative ones included, into [0,360).
func NormalizeHeading(deg float64) float64 {
	h := math.Mod(math.Mod(deg, 360)+360, 360)
	if h >= 360 {
		// -1e-15 + 360 rounds to 360
		h = 0
	}
	return h
}

// WrapLongitude folds a longitude into [-180,180].
func WrapLongitude(lon float64) float64 {
	if lon >= -180 && lon <= 180 {
		return lon
	}
	return math.Mod(math.Mod(lon+180, 360)+360, 360) - 180
}

// ClampLatitude limits a latitude to [-90,90].
func ClampLatitude(lat float64) float64 {
	return math.Max(-90, math.Min(90, lat))
}

// SpeedKmh converts a distance covered over elapsed into km/h.
func SpeedKmh(meters float64, elapsed time.Duration) float64 {
	if elapsed <= 0 {
		return 0
	}
	return meters / elapsed.Seconds() * 3.6
}
