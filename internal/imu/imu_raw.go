// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package imu holds the raw inertial sample published by IMU producers.
package imu

import "math"

// IMURaw is one raw accel/gyro/mag sample as published on the IMU topic.
// Units are device counts; magnetometer counts are µT×10.
type IMURaw struct {
	Source string `json:"source"` // "left", "right" or "head"

	Ax int16 `json:"ax"`
	Ay int16 `json:"ay"`
	Az int16 `json:"az"`

	Gx int16 `json:"gx"`
	Gy int16 `json:"gy"`
	Gz int16 `json:"gz"`

	Mx int16 `json:"mx"`
	My int16 `json:"my"`
	Mz int16 `json:"mz"`
}

// MagNorm returns the magnetometer vector length in counts.
func (r IMURaw) MagNorm() float64 {
	x, y, z := float64(r.Mx), float64(r.My), float64(r.Mz)
	return math.Sqrt(x*x + y*y + z*z)
}

// HasMag reports whether the sample carries any magnetometer reading.
func (r IMURaw) HasMag() bool {
	return r.Mx != 0 || r.My != 0 || r.Mz != 0
}
