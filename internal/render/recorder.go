// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package render holds renderer implementations for spatial sources.
package render

import (
	"sync"

	"github.com/edaniels/golog"
	"github.com/golang/geo/r3"
	"github.com/pkg/errors"

	"github.com/relabs-tech/audio_compass/internal/tone"
)

// Op names a renderer call.
type Op string

// Renderer operations.
const (
	OpAttach   Op = "attach"
	OpPosition Op = "position"
	OpVolume   Op = "volume"
	OpPlay     Op = "play"
	OpStop     Op = "stop"
	OpRelease  Op = "release"
	OpPath     Op = "path"
)

// Call is one recorded renderer call.
type Call struct {
	Op       Op
	ID       string
	Position r3.Vector
	Volume   float64
	Frames   int
	Path     string
}

// Voice is the recorder's view of one attached source.
type Voice struct {
	Buffer   tone.Buffer
	Position r3.Vector
	Volume   float64
	Playing  bool
}

// Recorder is a renderer that only remembers what it was told. It backs
// dry runs and tests.
type Recorder struct {
	mu     sync.Mutex
	logger golog.Logger
	calls  []Call
	voices map[string]*Voice
	path   string

	// FailAttach makes Attach fail for these ids.
	FailAttach map[string]bool
}

// NewRecorder creates an empty recorder. logger may be nil.
func NewRecorder(logger golog.Logger) *Recorder {
	return &Recorder{logger: logger, voices: map[string]*Voice{}, FailAttach: map[string]bool{}}
}

func (r *Recorder) record(c Call) {
	r.calls = append(r.calls, c)
	if r.logger != nil {
		r.logger.Debugw("renderer call", "op", c.Op, "id", c.ID, "x", c.Position.X, "y", c.Position.Y, "z", c.Position.Z)
	}
}

func (r *Recorder) voice(id string) (*Voice, error) {
	v, ok := r.voices[id]
	if !ok {
		return nil, errors.Errorf("no voice %q", id)
	}
	return v, nil
}

// Attach registers a buffer under id.
func (r *Recorder) Attach(id string, buf tone.Buffer) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.FailAttach[id] {
		return errors.Errorf("attach of %q refused", id)
	}
	if _, ok := r.voices[id]; ok {
		return errors.Errorf("voice %q already attached", id)
	}
	r.voices[id] = &Voice{Buffer: buf, Volume: 1}
	r.record(Call{Op: OpAttach, ID: id, Frames: buf.Len()})
	return nil
}

// SetPosition moves a voice.
func (r *Recorder) SetPosition(id string, pos r3.Vector) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	v, err := r.voice(id)
	if err != nil {
		return err
	}
	v.Position = pos
	r.record(Call{Op: OpPosition, ID: id, Position: pos})
	return nil
}

// SetVolume changes a voice's gain.
func (r *Recorder) SetVolume(id string, volume float64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	v, err := r.voice(id)
	if err != nil {
		return err
	}
	v.Volume = volume
	r.record(Call{Op: OpVolume, ID: id, Volume: volume})
	return nil
}

// Play starts a voice.
func (r *Recorder) Play(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	v, err := r.voice(id)
	if err != nil {
		return err
	}
	v.Playing = true
	r.record(Call{Op: OpPlay, ID: id})
	return nil
}

// Stop halts a voice.
func (r *Recorder) Stop(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	v, err := r.voice(id)
	if err != nil {
		return err
	}
	v.Playing = false
	r.record(Call{Op: OpStop, ID: id})
	return nil
}

// Release forgets a voice.
func (r *Recorder) Release(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, err := r.voice(id); err != nil {
		return err
	}
	delete(r.voices, id)
	r.record(Call{Op: OpRelease, ID: id})
	return nil
}

// SetRenderPath records the output path.
func (r *Recorder) SetRenderPath(path string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.path = path
	r.record(Call{Op: OpPath, Path: path})
	return nil
}

// Calls returns a copy of every recorded call.
func (r *Recorder) Calls() []Call {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Call(nil), r.calls...)
}

// Count returns how many calls of op were recorded.
func (r *Recorder) Count(op Op) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, c := range r.calls {
		if c.Op == op {
			n++
		}
	}
	return n
}

// Reset forgets recorded calls but keeps voices.
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = nil
}

// Voice returns a copy of one voice.
func (r *Recorder) Voice(id string) (Voice, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	v, ok := r.voices[id]
	if !ok {
		return Voice{}, false
	}
	return *v, true
}

// Voices returns the attached ids count.
func (r *Recorder) Voices() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.voices)
}

// Path returns the last render path set.
func (r *Recorder) Path() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.path
}
