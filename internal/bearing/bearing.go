// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package bearing computes great-circle bearings and the signed relative
// bearing a listener has to turn to face a target. Everything here is pure.
package bearing

import (
	geo "github.com/kellydunn/golang-geo"

	"github.com/relabs-tech/audio_compass/internal/angle"
)

// GreatCircle returns the initial bearing from one coordinate to another in
// [0, 360), degrees clockwise from true north:
//
//	atan2(sin(Δlon)·cos(lat2), cos(lat1)·sin(lat2) − sin(lat1)·cos(lat2)·cos(Δlon))
//
// Identical coordinates have no defined bearing; 0 is returned for them.
// A nil coordinate also yields 0.
func GreatCircle(from, to *geo.Point) float64 {
	if from == nil || to == nil {
		return 0
	}
	if from.Lat() == to.Lat() && from.Lng() == to.Lng() {
		return 0
	}
	return angle.Normalize(from.BearingTo(to))
}

// Relative returns the signed angle in (-180, 180] between the current
// heading and a target bearing: 0 is straight ahead, positive means the
// target is to the right.
func Relative(heading, bearing float64) float64 {
	return angle.ShortestDelta(heading, bearing)
}

// Distance returns the great-circle distance between two coordinates in
// metres.
func Distance(from, to *geo.Point) float64 {
	if from == nil || to == nil {
		return 0
	}
	return from.GreatCircleDistance(to) * 1000
}
