// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package spatial

import (
	"math"

	"github.com/golang/geo/r3"
	geo "github.com/kellydunn/golang-geo"

	"github.com/relabs-tech/audio_compass/internal/angle"
	"github.com/relabs-tech/audio_compass/internal/bearing"
)

// Position maps a relative bearing in degrees (0 ahead, positive to the
// right) onto the listener frame: +x right, +y up, -z ahead. Sources ahead
// sit above the ear line and sources behind sit below it, which breaks the
// front/back symmetry of azimuth-only rendering.
func Position(relative, distance, elevation float64) r3.Vector {
	s, c := math.Sincos(angle.DegToRad(relative))
	return r3.Vector{
		X: s * distance,
		Y: c * elevation,
		Z: -c * distance,
	}
}

// NorthRelative is the relative bearing of true north for a heading.
func NorthRelative(heading float64) float64 {
	return bearing.Relative(heading, 0)
}

// WaypointRelative returns the relative bearing and distance in metres of
// a coordinate seen from the listener.
func WaypointRelative(heading float64, listener, target *geo.Point) (relative, distance float64) {
	b := bearing.GreatCircle(listener, target)
	return bearing.Relative(heading, b), bearing.Distance(listener, target)
}
