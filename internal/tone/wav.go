// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package tone

import (
	"io"
	"math"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/pkg/errors"
)

const wavBitDepth = 16

// WriteWAV writes the buffer as a 16-bit mono PCM WAV file.
func WriteWAV(w io.WriteSeeker, b Buffer) error {
	if b.SampleRate <= 0 {
		return errors.New("buffer has no sample rate")
	}
	enc := wav.NewEncoder(w, b.SampleRate, wavBitDepth, 1, 1)
	ib := &audio.IntBuffer{
		Format:         &audio.Format{NumChannels: 1, SampleRate: b.SampleRate},
		Data:           ToPCM16(b.Samples),
		SourceBitDepth: wavBitDepth,
	}
	if err := enc.Write(ib); err != nil {
		return errors.Wrap(err, "writing wav samples")
	}
	return errors.Wrap(enc.Close(), "closing wav encoder")
}

// ToPCM16 converts [-1,1] float samples to clipped 16-bit integer values.
func ToPCM16(samples []float32) []int {
	out := make([]int, len(samples))
	for i, s := range samples {
		v := math.Round(float64(s) * math.MaxInt16)
		if v > math.MaxInt16 {
			v = math.MaxInt16
		} else if v < math.MinInt16 {
			v = math.MinInt16
		}
		out[i] = int(v)
	}
	return out
}
