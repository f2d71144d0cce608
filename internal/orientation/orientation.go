// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package orientation fuses compass heading and head attitude samples into
// the headings used for display and for audio.
package orientation

import (
	"math"
	"time"

	"github.com/relabs-tech/audio_compass/internal/angle"
	"github.com/relabs-tech/audio_compass/internal/imu"
)

// Attitude is a head-mounted sensor sample in radians. Yaw follows the
// right-handed z-up convention: positive yaw is a turn to the left.
type Attitude struct {
	Yaw   float64   `json:"yaw"`
	Pitch float64   `json:"pitch"`
	Roll  float64   `json:"roll"`
	Time  time.Time `json:"time"`
}

// YawDegrees returns the yaw in degrees.
func (a Attitude) YawDegrees() float64 {
	return angle.RadToDeg(a.Yaw)
}

// HeadingSample is one magnetic compass reading. Accuracy is the expected
// error in degrees; a negative value means the sensor could not tell.
type HeadingSample struct {
	Heading  float64   `json:"heading"`
	Accuracy float64   `json:"accuracy"`
	Time     time.Time `json:"time"`
}

// Reading is what a Source produces per tick.
type Reading struct {
	Heading      HeadingSample
	Attitude     Attitude
	HaveAttitude bool
}

// Source is anything that can provide sensor readings over time: the mock
// source, a replay, or a bridge from real sensors.
type Source interface {
	Next() (Reading, error)
}

// TiltFromAccel computes roll and pitch (radians) from accelerometer data.
// Yaw is left at 0; it cannot be observed from gravity alone.
//
//	roll  = atan2(ay, az)
//	pitch = atan2(-ax, sqrt(ay² + az²))
func TiltFromAccel(ax, ay, az float64) Attitude {
	return Attitude{
		Roll:  math.Atan2(ay, az),
		Pitch: math.Atan2(-ax, math.Sqrt(ay*ay+az*az)),
	}
}

// Plausible range of the earth's field strength in µT. Readings outside it
// point at nearby iron or a missing calibration.
const (
	minEarthFieldUT = 20.0
	maxEarthFieldUT = 70.0

	// imuHeadingAccuracy is the accuracy reported for a plausible reading.
	imuHeadingAccuracy = 15.0
)

// HeadingFromIMU derives a tilt-compensated magnetic heading from a raw IMU
// sample. The magnetometer is expected in the accelerometer frame (x
// forward, y right) and in µT×10 counts. ok is false when the sample
// carries no magnetometer data.
func HeadingFromIMU(raw imu.IMURaw, at time.Time) (HeadingSample, bool) {
	if !raw.HasMag() {
		return HeadingSample{}, false
	}

	tilt := TiltFromAccel(float64(raw.Ax), float64(raw.Ay), float64(raw.Az))
	mx := float64(raw.Mx) / 10
	my := float64(raw.My) / 10
	mz := float64(raw.Mz) / 10

	sr, cr := math.Sincos(tilt.Roll)
	sp, cp := math.Sincos(tilt.Pitch)
	xh := mx*cp + my*sr*sp + mz*cr*sp
	yh := my*cr - mz*sr

	accuracy := imuHeadingAccuracy
	if norm := raw.MagNorm() / 10; norm < minEarthFieldUT || norm > maxEarthFieldUT {
		accuracy = -1
	}

	return HeadingSample{
		Heading:  angle.Normalize(angle.RadToDeg(math.Atan2(-yh, xh))),
		Accuracy: accuracy,
		Time:     at,
	}, true
}
