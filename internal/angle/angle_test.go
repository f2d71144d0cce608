// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package angle

import (
	"math"
	"testing"

	"go.viam.com/test"
)

var samples = []float64{
	0, 0.5, 90, 179.999, 180, 180.001, 270, 359.999, 360, 360.5, 720, 1e6 + 0.25,
	-0.5, -90, -180, -359.999, -360, -721, -1e6, 1e-14, -1e-14,
}

func TestNormalize(t *testing.T) {
	test.That(t, Normalize(0), test.ShouldEqual, 0)
	test.That(t, Normalize(360), test.ShouldEqual, 0)
	test.That(t, Normalize(-90), test.ShouldEqual, 270)
	test.That(t, Normalize(450), test.ShouldEqual, 90)
	test.That(t, Normalize(-1e-14), test.ShouldBeLessThan, 360)
	test.That(t, Normalize(math.NaN()), test.ShouldEqual, 0)
	test.That(t, Normalize(math.Inf(-1)), test.ShouldEqual, 0)

	for _, s := range samples {
		n := Normalize(s)
		test.That(t, n, test.ShouldBeGreaterThanOrEqualTo, 0)
		test.That(t, n, test.ShouldBeLessThan, 360)
		// idempotent
		test.That(t, Normalize(n), test.ShouldEqual, n)
	}
}

func TestShortestDelta(t *testing.T) {
	test.That(t, ShortestDelta(350, 10), test.ShouldAlmostEqual, 20)
	test.That(t, ShortestDelta(10, 350), test.ShouldAlmostEqual, -20)
	test.That(t, ShortestDelta(0, 180), test.ShouldAlmostEqual, 180)
	test.That(t, ShortestDelta(180, 0), test.ShouldAlmostEqual, 180)
	test.That(t, ShortestDelta(90, 90), test.ShouldEqual, 0)
	test.That(t, ShortestDelta(0, 540), test.ShouldAlmostEqual, 180)

	for _, a := range samples {
		for _, b := range samples {
			d := ShortestDelta(a, b)
			test.That(t, d, test.ShouldBeGreaterThan, -180)
			test.That(t, d, test.ShouldBeLessThanOrEqualTo, 180)

			// a + delta lands on b (modulo 360, within float noise)
			landed := ShortestDelta(Normalize(a+d), Normalize(b))
			test.That(t, math.Abs(landed), test.ShouldBeLessThan, 1e-6)
		}
	}
}

func TestDegRadConversion(t *testing.T) {
	test.That(t, DegToRad(180), test.ShouldAlmostEqual, math.Pi)
	test.That(t, RadToDeg(math.Pi/2), test.ShouldAlmostEqual, 90)
	test.That(t, RadToDeg(DegToRad(37.5)), test.ShouldAlmostEqual, 37.5)
}
