// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package orientation

import (
	"math"

	"github.com/benbjohnson/clock"

	"github.com/relabs-tech/audio_compass/internal/angle"
)

type mockSource struct {
	clk   clock.Clock
	start float64
}

// NewMockSource creates a source that slowly walks the compass heading
// around the dial while the head sways left and right.
func NewMockSource(clk clock.Clock) Source {
	if clk == nil {
		clk = clock.New()
	}
	return &mockSource{clk: clk, start: seconds(clk)}
}

func seconds(clk clock.Clock) float64 {
	return float64(clk.Now().UnixNano()) / 1e9
}

func (m *mockSource) Next() (Reading, error) {
	now := m.clk.Now()
	elapsed := seconds(m.clk) - m.start

	// accuracy wanders between good and poor so the calibration flag shows up
	accuracy := 15 + 15*math.Sin(elapsed*0.1)

	return Reading{
		Heading: HeadingSample{
			Heading:  angle.Normalize(elapsed * 12),
			Accuracy: accuracy,
			Time:     now,
		},
		Attitude: Attitude{
			Yaw:   0.6 * math.Sin(elapsed*0.5),
			Pitch: 0.15 * math.Cos(elapsed*0.7),
			Roll:  0.1 * math.Sin(elapsed),
			Time:  now,
		},
		HaveAttitude: true,
	}, nil
}
