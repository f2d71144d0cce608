// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package tone turns declarative tone profiles into looping mono buffers.
//
// Synthesis is CPU bound and deterministic. It is meant to run ahead of
// playback on a worker goroutine, never on an audio callback.
package tone

import (
	"math"
	"time"

	"github.com/pkg/errors"
)

const (
	// DefaultSampleRate is the rate buffers are rendered at unless told otherwise.
	DefaultSampleRate = 44100

	// MinLoopDuration is the shortest loop produced, in seconds.
	MinLoopDuration = 2.0
)

// Buffer is an immutable mono sample loop.
type Buffer struct {
	Samples    []float32
	SampleRate int
}

// Len returns the number of frames in the loop.
func (b Buffer) Len() int {
	return len(b.Samples)
}

// Duration returns the loop length.
func (b Buffer) Duration() time.Duration {
	if b.SampleRate <= 0 {
		return 0
	}
	return time.Duration(float64(len(b.Samples)) / float64(b.SampleRate) * float64(time.Second))
}

// LoopDuration returns the loop length in seconds for a profile: the
// smallest whole number of ping intervals that reaches MinLoopDuration, so
// the loop point always falls on a cycle boundary.
func LoopDuration(p Profile) float64 {
	if p.PingInterval <= 0 {
		return 0
	}
	cycles := math.Ceil(MinLoopDuration / p.PingInterval)
	if cycles < 1 {
		cycles = 1
	}
	return cycles * p.PingInterval
}

// Synthesize renders one loop of the profile. Identical profiles and sample
// rates always produce bit-identical buffers.
func Synthesize(p Profile, sampleRate int) (Buffer, error) {
	if err := p.Validate(sampleRate); err != nil {
		return Buffer{}, err
	}

	frames := int(math.Round(LoopDuration(p) * float64(sampleRate)))
	if frames <= 0 {
		return Buffer{}, errors.Wrapf(ErrInvalidProfile, "profile %q renders no samples", p.Name)
	}

	out := make([]float32, frames)
	sr := float64(sampleRate)
	for i := range out {
		t := float64(i) / sr
		cycle := math.Mod(t, p.PingInterval)

		var s float64
		if cycle < p.PingDuration {
			progress := cycle / p.PingDuration
			s += math.Exp(-p.PingDecay*progress) * p.stack(cycle)
			s += p.click(cycle)
		}
		if echo := cycle - p.EchoDelay; echo >= 0 && echo < p.PingDuration {
			progress := echo / p.PingDuration
			s += p.EchoAttenuation * math.Exp(-p.EchoDecay*progress) * p.stack(echo)
		}
		out[i] = float32(math.Tanh(s))
	}

	return Buffer{Samples: out, SampleRate: sampleRate}, nil
}

// stack evaluates the harmonic partials at time t into a ping. The
// fundamental falls linearly by SweepAmount over the ping, so the phase is
// the integral of that frequency ramp.
func (p Profile) stack(t float64) float64 {
	phase := 2 * math.Pi * p.Frequency * (t - p.SweepAmount*t*t/(2*p.PingDuration))
	var s float64
	for n, amp := range p.Harmonics {
		if amp == 0 {
			continue
		}
		s += amp * math.Sin(float64(n+1)*phase)
	}
	return s
}

func (p Profile) click(t float64) float64 {
	if p.ClickAmplitude == 0 {
		return 0
	}
	return p.ClickAmplitude * math.Exp(-p.ClickDecay*t) * math.Sin(2*math.Pi*p.ClickFrequency*t)
}
