// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package angle holds the circular-angle helpers shared by the heading and
// bearing code. All angles are in degrees unless the name says otherwise.
package angle

import "math"

// Normalize reduces deg into [0, 360). Non-finite input yields 0 so that a
// bad sample can never push a heading out of range.
func Normalize(deg float64) float64 {
	if math.IsNaN(deg) || math.IsInf(deg, 0) {
		return 0
	}
	r := math.Mod(deg, 360)
	if r < 0 {
		r += 360
	}
	// -1e-14 + 360 rounds to 360.
	if r >= 360 {
		r = 0
	}
	return r
}

// ShortestDelta returns the signed rotation in (-180, 180] that takes from
// onto to along the shorter arc.
func ShortestDelta(from, to float64) float64 {
	d := math.Mod(to-from, 360)
	if math.IsNaN(d) {
		return 0
	}
	if d > 180 {
		d -= 360
	} else if d <= -180 {
		d += 360
	}
	return d
}

// DegToRad converts degrees to radians.
func DegToRad(deg float64) float64 {
	return deg * math.Pi / 180
}

// RadToDeg converts radians to degrees.
func RadToDeg(rad float64) float64 {
	return rad * 180 / math.Pi
}
