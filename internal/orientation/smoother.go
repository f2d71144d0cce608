// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package orientation

import (
	"math"

	"github.com/relabs-tech/audio_compass/internal/angle"
)

// Smoother is a first-order low-pass filter on the circle. Each update moves
// the value a fixed fraction of the shortest signed distance to the target,
// so it never swings the long way around 0/360.
//
// A Smoother is not safe for concurrent use.
type Smoother struct {
	alpha   float64
	value   float64
	started bool
}

// NewSmoother returns a smoother with the given factor. Factors outside
// (0, 1] are clamped; 1 disables smoothing.
func NewSmoother(alpha float64) *Smoother {
	switch {
	case math.IsNaN(alpha) || alpha <= 0:
		alpha = 0.01
	case alpha > 1:
		alpha = 1
	}
	return &Smoother{alpha: alpha}
}

// Alpha returns the effective factor.
func (s *Smoother) Alpha() float64 { return s.alpha }

// Update moves toward target and returns the new value in [0, 360). The
// first update after construction takes the target as is.
func (s *Smoother) Update(target float64) float64 {
	target = angle.Normalize(target)
	if !s.started {
		s.value = target
		s.started = true
		return s.value
	}
	s.value = angle.Normalize(s.value + s.alpha*angle.ShortestDelta(s.value, target))
	return s.value
}

// Value returns the current value, 0 before the first update.
func (s *Smoother) Value() float64 { return s.value }

// Started reports whether the smoother has seen a sample.
func (s *Smoother) Started() bool { return s.started }

// Reset jumps to v, as if it had been the first sample.
func (s *Smoother) Reset(v float64) {
	s.value = angle.Normalize(v)
	s.started = true
}

// SettlingSamples returns how many updates it takes for a step to decay
// below the given fraction of its size.
func (s *Smoother) SettlingSamples(fraction float64) int {
	if s.alpha >= 1 || fraction >= 1 {
		return 1
	}
	if fraction <= 0 {
		return math.MaxInt32
	}
	return int(math.Ceil(math.Log(fraction) / math.Log(1-s.alpha)))
}
