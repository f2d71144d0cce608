// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package render

import (
	"math"
	"sync"

	"github.com/edaniels/golog"
	"github.com/golang/geo/r3"
	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/effects"
	"github.com/pkg/errors"

	"github.com/relabs-tech/audio_compass/internal/tone"
)

// sources straight behind are this much quieter than sources ahead
const rearGain = 0.7

// loop plays a mono buffer forever.
type loop struct {
	samples []float32
	pos     int
}

func (l *loop) Stream(samples [][2]float64) (int, bool) {
	if len(l.samples) == 0 {
		return 0, false
	}
	for i := range samples {
		v := float64(l.samples[l.pos])
		samples[i][0], samples[i][1] = v, v
		l.pos++
		if l.pos == len(l.samples) {
			l.pos = 0
		}
	}
	return len(samples), true
}

func (l *loop) Err() error { return nil }

// panner places a mono stream in the stereo field with equal-power gains.
type panner struct {
	s           beep.Streamer
	left, right float64
}

// Gains returns the left and right gain for a listener-frame position
// (+x right, -z ahead).
func Gains(pos r3.Vector) (left, right float64) {
	if pos.X == 0 && pos.Z == 0 {
		return math.Sqrt2 / 2, math.Sqrt2 / 2
	}
	az := math.Atan2(pos.X, -pos.Z)
	theta := (math.Sin(az) + 1) * math.Pi / 4
	shade := rearGain + (1-rearGain)*(1+math.Cos(az))/2
	return math.Cos(theta) * shade, math.Sin(theta) * shade
}

func (p *panner) Stream(samples [][2]float64) (int, bool) {
	n, ok := p.s.Stream(samples)
	for i := range samples[:n] {
		samples[i][0] *= p.left
		samples[i][1] *= p.right
	}
	return n, ok
}

func (p *panner) Err() error { return p.s.Err() }

type voice struct {
	loop   *loop
	pan    *panner
	volume *effects.Volume
	ctrl   *beep.Ctrl
}

// Mixer is a software stereo renderer. It is not a head-related transfer
// function: azimuth becomes an equal-power pan and sources behind the
// listener are shaded down. Mixer is itself a beep.Streamer, so it can feed
// a speaker or a Capture.
type Mixer struct {
	mu         sync.Mutex
	sampleRate beep.SampleRate
	mixer      beep.Mixer
	voices     map[string]*voice
	path       string
	logger     golog.Logger
}

// NewMixer creates an empty mixer.
func NewMixer(sampleRate int, logger golog.Logger) *Mixer {
	return &Mixer{
		sampleRate: beep.SampleRate(sampleRate),
		voices:     map[string]*voice{},
		logger:     logger,
	}
}

// SampleRate returns the output rate.
func (m *Mixer) SampleRate() beep.SampleRate { return m.sampleRate }

// Attach adds a paused voice for buf.
func (m *Mixer) Attach(id string, buf tone.Buffer) error {
	if buf.SampleRate != int(m.sampleRate) {
		return errors.Errorf("buffer for %q is %d Hz, mixer runs at %d Hz", id, buf.SampleRate, m.sampleRate)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.voices[id]; ok {
		return errors.Errorf("voice %q already attached", id)
	}
	l := &loop{samples: buf.Samples}
	p := &panner{s: l}
	p.left, p.right = Gains(r3.Vector{Z: -1})
	vol := &effects.Volume{Streamer: p, Base: 2}
	ctrl := &beep.Ctrl{Streamer: vol, Paused: true}
	m.voices[id] = &voice{loop: l, pan: p, volume: vol, ctrl: ctrl}
	m.mixer.Add(ctrl)
	return nil
}

func (m *Mixer) voice(id string) (*voice, error) {
	v, ok := m.voices[id]
	if !ok {
		return nil, errors.Errorf("no voice %q", id)
	}
	return v, nil
}

// SetPosition re-pans a voice.
func (m *Mixer) SetPosition(id string, pos r3.Vector) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, err := m.voice(id)
	if err != nil {
		return err
	}
	v.pan.left, v.pan.right = Gains(pos)
	return nil
}

// SetVolume sets a linear gain; 0 or less mutes.
func (m *Mixer) SetVolume(id string, volume float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, err := m.voice(id)
	if err != nil {
		return err
	}
	v.volume.Silent = volume <= 0
	if volume > 0 {
		v.volume.Volume = math.Log2(volume)
	}
	return nil
}

// Play resumes a voice.
func (m *Mixer) Play(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, err := m.voice(id)
	if err != nil {
		return err
	}
	v.ctrl.Paused = false
	return nil
}

// Stop pauses a voice and rewinds it.
func (m *Mixer) Stop(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, err := m.voice(id)
	if err != nil {
		return err
	}
	v.ctrl.Paused = true
	v.loop.pos = 0
	return nil
}

// Release detaches a voice. The beep mixer drops it on the next stream
// call, once its Ctrl reports it is drained.
func (m *Mixer) Release(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, err := m.voice(id)
	if err != nil {
		return err
	}
	v.ctrl.Streamer = nil
	delete(m.voices, id)
	return nil
}

// SetRenderPath only records the path: the mixer has a single stereo output.
func (m *Mixer) SetRenderPath(path string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.path = path
	if m.logger != nil {
		m.logger.Infow("render path set", "path", path)
	}
	return nil
}

// Len returns the number of attached voices.
func (m *Mixer) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.voices)
}

// Stream mixes every playing voice. It always fills samples, with silence
// when nothing plays.
func (m *Mixer) Stream(samples [][2]float64) (int, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	clear(samples)
	n, _ := m.mixer.Stream(samples)
	clear(samples[n:])
	return len(samples), true
}

// Err always returns nil.
func (m *Mixer) Err() error { return nil }
