// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package orientation

import (
	"time"

	"github.com/benbjohnson/clock"
	geo "github.com/kellydunn/golang-geo"

	"github.com/relabs-tech/audio_compass/internal/angle"
)

// Config tunes the fusion engine.
type Config struct {
	// DeviceSmoothing is the factor applied to the raw compass heading.
	DeviceSmoothing float64
	// AudioSmoothing is the factor applied to the combined heading.
	AudioSmoothing float64
	// CalibrationThreshold is the accuracy, in degrees, above which the
	// compass is reported as needing calibration.
	CalibrationThreshold float64
	// HeadTimeout drops head tracking when no attitude arrives for this
	// long. Zero keeps the last attitude forever.
	HeadTimeout time.Duration
	// InboxSize bounds the number of queued sensor samples.
	InboxSize int
}

// DefaultConfig returns the engine defaults.
func DefaultConfig() Config {
	return Config{
		DeviceSmoothing:      0.25,
		AudioSmoothing:       0.15,
		CalibrationThreshold: 25,
		HeadTimeout:          500 * time.Millisecond,
		InboxSize:            64,
	}
}

// State is a consistent snapshot of everything the engine knows. Headings
// are in degrees [0, 360).
type State struct {
	// Seq increases by one for every processed event.
	Seq uint64 `json:"seq"`

	HaveHeading     bool    `json:"have_heading"`
	RawHeading      float64 `json:"raw_heading"`
	DeviceHeading   float64 `json:"device_heading"`
	CombinedHeading float64 `json:"combined_heading"`

	Accuracy          float64 `json:"accuracy"`
	CalibrationNeeded bool    `json:"calibration_needed"`

	HeadTracking bool     `json:"head_tracking"`
	Head         Attitude `json:"head"`

	// A lock taken before the first compass sample waits for it to capture
	// the reference; HaveReference is false until then.
	Locked           bool    `json:"locked"`
	HaveReference    bool    `json:"have_reference"`
	ReferenceHeading float64 `json:"reference_heading"`
	HaveLockedYaw    bool    `json:"have_locked_yaw"`
	LockedYaw        float64 `json:"locked_yaw"` // degrees

	HaveListener bool    `json:"have_listener"`
	Latitude     float64 `json:"lat"`
	Longitude    float64 `json:"lon"`

	UpdatedAt time.Time `json:"updated_at"`
}

// Listener returns the listener location, or nil when none is known.
func (s State) Listener() *geo.Point {
	if !s.HaveListener {
		return nil
	}
	return geo.NewPoint(s.Latitude, s.Longitude)
}

// fusion is the synchronous heart of the engine. Every method runs on the
// engine goroutine; nothing here is safe for concurrent use.
type fusion struct {
	cfg    Config
	clk    clock.Clock
	device *Smoother
	audio  *Smoother
	state  State
	headAt time.Time
}

func newFusion(cfg Config, clk clock.Clock) *fusion {
	return &fusion{
		cfg:    cfg,
		clk:    clk,
		device: NewSmoother(cfg.DeviceSmoothing),
		audio:  NewSmoother(cfg.AudioSmoothing),
	}
}

func (f *fusion) heading(s HeadingSample) {
	st := &f.state
	st.RawHeading = angle.Normalize(s.Heading)
	st.DeviceHeading = f.device.Update(st.RawHeading)
	st.HaveHeading = true
	st.Accuracy = s.Accuracy
	st.CalibrationNeeded = s.Accuracy < 0 || s.Accuracy > f.cfg.CalibrationThreshold
	if st.Locked && !st.HaveReference {
		f.captureReference()
	}
	f.recompute()
}

func (f *fusion) attitude(a Attitude) {
	st := &f.state
	st.Head = a
	st.HeadTracking = true
	f.headAt = f.clk.Now()
	if st.Locked && st.HaveReference && !st.HaveLockedYaw {
		st.LockedYaw = a.YawDegrees()
		st.HaveLockedYaw = true
	}
	f.recompute()
}

func (f *fusion) headLost() {
	f.state.HeadTracking = false
	f.recompute()
}

func (f *fusion) location(lat, lon float64) {
	st := &f.state
	st.Latitude = lat
	st.Longitude = lon
	st.HaveListener = true
}

func (f *fusion) setLocked(locked bool) {
	st := &f.state
	if st.Locked == locked {
		return
	}
	st.Locked = locked
	if locked {
		if st.HaveHeading {
			f.captureReference()
		}
	} else {
		st.HaveReference = false
		st.ReferenceHeading = 0
		st.HaveLockedYaw = false
		st.LockedYaw = 0
	}
	f.recompute()
}

// captureReference freezes the smoothed device heading and the current head
// yaw, if any, as the lock reference.
func (f *fusion) captureReference() {
	st := &f.state
	st.ReferenceHeading = st.DeviceHeading
	st.HaveReference = true
	st.HaveLockedYaw = st.HeadTracking
	if st.HeadTracking {
		st.LockedYaw = st.Head.YawDegrees()
	}
}

// expire drops head tracking once the last attitude is older than the
// configured timeout.
func (f *fusion) expire() bool {
	st := &f.state
	if !st.HeadTracking || f.cfg.HeadTimeout <= 0 {
		return false
	}
	if f.clk.Now().Sub(f.headAt) <= f.cfg.HeadTimeout {
		return false
	}
	st.HeadTracking = false
	return true
}

// target is the combined heading before audio smoothing. Normal mode works
// from the raw compass heading; the device smoother only feeds the display
// and the lock reference.
func (f *fusion) target() float64 {
	st := f.state
	if st.Locked {
		if st.HeadTracking && st.HaveLockedYaw {
			return angle.Normalize(st.ReferenceHeading - (st.Head.YawDegrees() - st.LockedYaw))
		}
		return st.ReferenceHeading
	}
	if st.HeadTracking {
		return angle.Normalize(st.RawHeading - st.Head.YawDegrees())
	}
	return st.RawHeading
}

func (f *fusion) recompute() {
	f.expire()
	st := &f.state
	if !st.HaveHeading {
		return
	}
	st.CombinedHeading = f.audio.Update(f.target())
}
