// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package gps models listener fixes and decodes them from NMEA sentences.
package gps

import (
	"math"

	nmea "github.com/adrianmo/go-nmea"
	geo "github.com/kellydunn/golang-geo"
)

// Fix represents a single combined GPS fix suitable for JSON and MQTT.
type Fix struct {
	Time       string  `json:"time"`        // e.g. "12:34:56.0000"
	Date       string  `json:"date"`        // DD/MM/YY as reported by the receiver
	Latitude   float64 `json:"lat"`         // decimal degrees
	Longitude  float64 `json:"lon"`         // decimal degrees
	SpeedKnots float64 `json:"speed_knots"` // speed over ground
	CourseDeg  float64 `json:"course_deg"`  // course over ground
	Validity   string  `json:"validity"`    // "A" (valid) / "V" (void)

	// From GGA, when the receiver sends it.
	Quality    string  `json:"quality,omitempty"`
	Satellites int64   `json:"satellites,omitempty"`
	HDOP       float64 `json:"hdop,omitempty"`
	AltitudeM  float64 `json:"altitude_m,omitempty"`
}

// Valid reports whether the fix can place the listener.
func (f Fix) Valid() bool {
	if f.Validity != nmea.ValidRMC {
		return false
	}
	if math.IsNaN(f.Latitude) || math.IsNaN(f.Longitude) {
		return false
	}
	return f.Latitude >= -90 && f.Latitude <= 90 && f.Longitude >= -180 && f.Longitude <= 180
}

// Point returns the fix position, or nil when the fix is not valid.
func (f Fix) Point() *geo.Point {
	if !f.Valid() {
		return nil
	}
	return geo.NewPoint(f.Latitude, f.Longitude)
}
