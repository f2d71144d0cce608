// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package bearing

import (
	"testing"

	geo "github.com/kellydunn/golang-geo"
	"go.viam.com/test"
)

func TestGreatCircleCardinal(t *testing.T) {
	origin := geo.NewPoint(0, 0)

	test.That(t, GreatCircle(origin, geo.NewPoint(0, 1)), test.ShouldAlmostEqual, 90, 1e-9)
	test.That(t, GreatCircle(origin, geo.NewPoint(1, 0)), test.ShouldAlmostEqual, 0, 1e-9)
	test.That(t, GreatCircle(origin, geo.NewPoint(-1, 0)), test.ShouldAlmostEqual, 180, 1e-9)
	test.That(t, GreatCircle(origin, geo.NewPoint(0, -1)), test.ShouldAlmostEqual, 270, 1e-9)
}

func TestGreatCircleKnownRoute(t *testing.T) {
	// same pair as the heading helpers in the movement sensor code
	from := geo.NewPoint(8.46696, -17.03663)
	to := geo.NewPoint(56.74367734077241, 29.369620000000015)
	test.That(t, GreatCircle(from, to), test.ShouldAlmostEqual, 27.2412, 1e-3)
	test.That(t, GreatCircle(to, from), test.ShouldAlmostEqual, 235.6498, 1e-3)
}

func TestGreatCircleIdenticalPointsIsZero(t *testing.T) {
	p := geo.NewPoint(52.52, 13.405)
	test.That(t, GreatCircle(p, geo.NewPoint(52.52, 13.405)), test.ShouldEqual, 0)
	test.That(t, GreatCircle(nil, p), test.ShouldEqual, 0)
}

func TestRelativeRoundTrip(t *testing.T) {
	pairs := [][2]*geo.Point{
		{geo.NewPoint(0, 0), geo.NewPoint(0, 1)},
		{geo.NewPoint(48.8566, 2.3522), geo.NewPoint(51.5074, -0.1278)},
		{geo.NewPoint(-33.8688, 151.2093), geo.NewPoint(-36.8485, 174.7633)},
		{geo.NewPoint(64.1466, -21.9426), geo.NewPoint(64.1, -21.95)},
	}
	for _, p := range pairs {
		b := GreatCircle(p[0], p[1])
		test.That(t, Relative(b, b), test.ShouldEqual, 0)
	}
}

func TestRelative(t *testing.T) {
	test.That(t, Relative(0, 90), test.ShouldAlmostEqual, 90)
	test.That(t, Relative(350, 10), test.ShouldAlmostEqual, 20)
	test.That(t, Relative(10, 350), test.ShouldAlmostEqual, -20)
	test.That(t, Relative(90, 270), test.ShouldAlmostEqual, 180)
}

func TestDistance(t *testing.T) {
	// one degree of longitude on the equator is roughly 111 km
	d := Distance(geo.NewPoint(0, 0), geo.NewPoint(0, 1))
	test.That(t, d, test.ShouldBeBetween, 110000, 112500)
	test.That(t, Distance(nil, nil), test.ShouldEqual, 0)
}
