// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package render

import (
	"context"
	"io"
	"math"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/gopxl/beep/v2"
	"github.com/pkg/errors"
	"go.uber.org/multierr"
)

const captureBitDepth = 16

// Capture pulls stereo audio from a streamer and writes it as a 16-bit WAV.
type Capture struct {
	w          io.WriteSeeker
	closer     io.Closer
	enc        *wav.Encoder
	src        beep.Streamer
	sampleRate int
	frames     int
	scratch    [][2]float64
	closed     bool
}

// NewCapture writes src to w. If w is also an io.Closer it is closed by
// Close.
func NewCapture(w io.WriteSeeker, src beep.Streamer, sampleRate int) *Capture {
	c := &Capture{
		w:          w,
		enc:        wav.NewEncoder(w, sampleRate, captureBitDepth, 2, 1),
		src:        src,
		sampleRate: sampleRate,
	}
	if closer, ok := w.(io.Closer); ok {
		c.closer = closer
	}
	return c
}

// Write pulls n frames from the source and appends them.
func (c *Capture) Write(n int) error {
	if n <= 0 {
		return nil
	}
	if cap(c.scratch) < n {
		c.scratch = make([][2]float64, n)
	}
	samples := c.scratch[:n]
	got, _ := c.src.Stream(samples)
	clear(samples[got:])

	data := make([]int, 0, 2*n)
	for _, s := range samples {
		data = append(data, pcm16(s[0]), pcm16(s[1]))
	}
	buf := &audio.IntBuffer{
		Format:         &audio.Format{NumChannels: 2, SampleRate: c.sampleRate},
		Data:           data,
		SourceBitDepth: captureBitDepth,
	}
	if err := c.enc.Write(buf); err != nil {
		return errors.Wrap(err, "writing captured audio")
	}
	c.frames += n
	return nil
}

// WriteDuration pulls d worth of audio.
func (c *Capture) WriteDuration(d time.Duration) error {
	return c.Write(beep.SampleRate(c.sampleRate).N(d))
}

// Frames returns how many frames were written.
func (c *Capture) Frames() int { return c.frames }

// Run captures in real time, one chunk per tick, until ctx is done. It
// closes the capture on return.
func (c *Capture) Run(ctx context.Context, clk clock.Clock, chunk time.Duration) (err error) {
	defer func() {
		err = multierr.Combine(err, c.Close())
	}()
	ticker := clk.Ticker(chunk)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if err := c.WriteDuration(chunk); err != nil {
				return err
			}
		}
	}
}

// Close finalizes the WAV header and closes the writer.
func (c *Capture) Close() error {
	if c.closed {
		return nil
	}
	c.closed = true
	err := errors.Wrap(c.enc.Close(), "closing wav encoder")
	if c.closer != nil {
		err = multierr.Combine(err, c.closer.Close())
	}
	return err
}

func pcm16(v float64) int {
	v = math.Round(v * math.MaxInt16)
	return int(math.Max(math.MinInt16, math.Min(math.MaxInt16, v)))
}
