// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package tone

import (
	"fmt"
	"math"

	"github.com/pkg/errors"
)

// ErrInvalidProfile is returned when a profile cannot produce a usable buffer.
var ErrInvalidProfile = errors.New("invalid tone profile")

// Profile is the acoustic recipe for one looping beacon sound. Times are in
// seconds, rates are per unit of ping progress (0..1) unless noted.
//
// Profiles are values: an edit produces a new Profile with the same ID. Use
// Key, not ==, to tell whether two profiles synthesize the same buffer.
type Profile struct {
	ID   string `json:"id"`
	Name string `json:"name"`

	Frequency    float64 `json:"frequency_hz"`
	PingDuration float64 `json:"ping_duration_s"`
	PingInterval float64 `json:"ping_interval_s"`

	EchoDelay       float64 `json:"echo_delay_s"`
	EchoAttenuation float64 `json:"echo_attenuation"`

	// Harmonics scales the 1x, 2x, 3x and 4x partials of the ping.
	Harmonics [4]float64 `json:"harmonics"`

	// The click is a short high-frequency transient at ping onset that
	// helps front/back localization. ClickDecay is per second.
	ClickFrequency float64 `json:"click_frequency_hz"`
	ClickAmplitude float64 `json:"click_amplitude"`
	ClickDecay     float64 `json:"click_decay"`

	PingDecay float64 `json:"ping_decay"`
	EchoDecay float64 `json:"echo_decay"`

	// SweepAmount is the fraction the fundamental falls by over one ping.
	SweepAmount float64 `json:"sweep_amount"`
}

// Key is a comparable identity for a profile. Float fields are compared by
// bit pattern, so a profile holding NaN still matches itself.
type Key struct {
	ID     string
	Name   string
	params [15]uint64
}

// Key returns the profile's identity. Profiles with equal keys synthesize
// identical buffers.
func (p Profile) Key() Key {
	k := Key{ID: p.ID, Name: p.Name}
	for i, v := range []float64{
		p.Frequency, p.PingDuration, p.PingInterval,
		p.EchoDelay, p.EchoAttenuation,
		p.Harmonics[0], p.Harmonics[1], p.Harmonics[2], p.Harmonics[3],
		p.ClickFrequency, p.ClickAmplitude, p.ClickDecay,
		p.PingDecay, p.EchoDecay, p.SweepAmount,
	} {
		k.params[i] = math.Float64bits(v)
	}
	return k
}

// Validate checks the fields synthesis depends on. The timing relations
// between duration, interval and echo are only reported by Warnings.
func (p Profile) Validate(sampleRate int) error {
	if sampleRate <= 0 {
		return errors.Wrapf(ErrInvalidProfile, "sample rate must be positive, got %d", sampleRate)
	}
	positive := []struct {
		name string
		v    float64
	}{
		{"frequency", p.Frequency},
		{"ping duration", p.PingDuration},
		{"ping interval", p.PingInterval},
		{"ping decay", p.PingDecay},
	}
	for _, f := range positive {
		if !finite(f.v) || f.v <= 0 {
			return errors.Wrapf(ErrInvalidProfile, "%s must be positive, got %v", f.name, f.v)
		}
	}

	nonNegative := []struct {
		name string
		v    float64
	}{
		{"echo delay", p.EchoDelay},
		{"echo attenuation", p.EchoAttenuation},
		{"echo decay", p.EchoDecay},
		{"click frequency", p.ClickFrequency},
		{"click amplitude", p.ClickAmplitude},
		{"click decay", p.ClickDecay},
		{"sweep amount", p.SweepAmount},
	}
	for i, h := range p.Harmonics {
		nonNegative = append(nonNegative, struct {
			name string
			v    float64
		}{fmt.Sprintf("harmonic %d", i+1), h})
	}
	for _, f := range nonNegative {
		if !finite(f.v) || f.v < 0 {
			return errors.Wrapf(ErrInvalidProfile, "%s must not be negative, got %v", f.name, f.v)
		}
	}

	if p.SweepAmount >= 1 {
		return errors.Wrapf(ErrInvalidProfile, "sweep amount must be below 1, got %v", p.SweepAmount)
	}
	nyquist := float64(sampleRate) / 2
	if p.Frequency >= nyquist {
		return errors.Wrapf(ErrInvalidProfile, "frequency %.1f Hz is at or above nyquist %.1f Hz", p.Frequency, nyquist)
	}
	// the sweep only lowers the pitch, so each partial peaks at onset
	for i, h := range p.Harmonics {
		if h == 0 {
			continue
		}
		if f := float64(i+1) * p.Frequency; f >= nyquist {
			return errors.Wrapf(ErrInvalidProfile, "harmonic %d at %.1f Hz is at or above nyquist %.1f Hz", i+1, f, nyquist)
		}
	}
	if p.ClickAmplitude > 0 && p.ClickFrequency >= nyquist {
		return errors.Wrapf(ErrInvalidProfile, "click frequency %.1f Hz is at or above nyquist %.1f Hz", p.ClickFrequency, nyquist)
	}
	return nil
}

// Warnings lists timing relations that are expected but not enforced.
func (p Profile) Warnings() []string {
	var w []string
	if p.PingDuration >= p.PingInterval {
		w = append(w, fmt.Sprintf("ping duration %.3fs is not shorter than interval %.3fs", p.PingDuration, p.PingInterval))
	}
	if p.EchoDelay+p.PingDuration > p.PingInterval {
		w = append(w, fmt.Sprintf("echo ends at %.3fs, after the %.3fs interval", p.EchoDelay+p.PingDuration, p.PingInterval))
	}
	return w
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// Built-in profile IDs. DefaultID is what a waypoint falls back to when its
// profile no longer exists.
const (
	DefaultID = "default"
	NorthID   = "north-bell"
	SonarID   = "sonar"
)

// Default returns the fallback profile.
func Default() Profile {
	return Profile{
		ID:              DefaultID,
		Name:            "Beacon",
		Frequency:       880,
		PingDuration:    0.12,
		PingInterval:    1.0,
		EchoDelay:       0.25,
		EchoAttenuation: 0.35,
		Harmonics:       [4]float64{1.0, 0.45, 0.2, 0.1},
		ClickFrequency:  6000,
		ClickAmplitude:  0.3,
		ClickDecay:      900,
		PingDecay:       5,
		EchoDecay:       6,
		SweepAmount:     0.04,
	}
}

// Defaults returns the built-in profiles, fallback first.
func Defaults() []Profile {
	north := Profile{
		ID:              NorthID,
		Name:            "North bell",
		Frequency:       660,
		PingDuration:    0.3,
		PingInterval:    2.0,
		EchoDelay:       0.45,
		EchoAttenuation: 0.3,
		Harmonics:       [4]float64{1.0, 0.6, 0.35, 0.25},
		ClickFrequency:  5000,
		ClickAmplitude:  0.25,
		ClickDecay:      700,
		PingDecay:       3.5,
		EchoDecay:       4,
		SweepAmount:     0.02,
	}
	sonar := Profile{
		ID:              SonarID,
		Name:            "Sonar",
		Frequency:       1200,
		PingDuration:    0.08,
		PingInterval:    0.75,
		EchoDelay:       0.3,
		EchoAttenuation: 0.5,
		Harmonics:       [4]float64{1.0, 0.2, 0.05, 0.02},
		ClickFrequency:  8000,
		ClickAmplitude:  0.4,
		ClickDecay:      1200,
		PingDecay:       7,
		EchoDecay:       7,
		SweepAmount:     0.12,
	}
	return []Profile{Default(), north, sonar}
}
