// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"encoding/json"
	"math"
	"time"

	"github.com/pkg/errors"

	"github.com/relabs-tech/audio_compass/internal/gps"
	"github.com/relabs-tech/audio_compass/internal/imu"
	"github.com/relabs-tech/audio_compass/internal/orientation"
	"github.com/relabs-tech/audio_compass/internal/spatial"
)

// HeadingMessage is the payload on the heading topic.
type HeadingMessage struct {
	Heading  *float64 `json:"heading"`
	Accuracy *float64 `json:"accuracy,omitempty"`
}

// HeadMessage is the payload on the head attitude topic. Available false
// means the head sensor went away.
type HeadMessage struct {
	Yaw       float64 `json:"yaw"`
	Pitch     float64 `json:"pitch"`
	Roll      float64 `json:"roll"`
	Available *bool   `json:"available,omitempty"`
}

// LockMessage sets the lock; an empty payload toggles it.
type LockMessage struct {
	Locked *bool `json:"locked,omitempty"`
}

// StateMessage is published on the state topic.
type StateMessage struct {
	State   orientation.State `json:"state"`
	Sources []spatial.Source  `json:"sources"`
	// Failed maps skipped source ids to why their tone could not be built.
	Failed  map[string]string `json:"failed,omitempty"`
	Dropped uint64            `json:"dropped"`
}

// DecodeHeading parses a heading payload. A missing accuracy is reported
// as -1 (unknown).
func DecodeHeading(payload []byte, at time.Time) (orientation.HeadingSample, error) {
	var m HeadingMessage
	if err := json.Unmarshal(payload, &m); err != nil {
		return orientation.HeadingSample{}, errors.Wrap(err, "decoding heading")
	}
	if m.Heading == nil {
		return orientation.HeadingSample{}, errors.New("heading payload has no heading")
	}
	if !finite(*m.Heading) {
		return orientation.HeadingSample{}, errors.Errorf("heading %v is not finite", *m.Heading)
	}
	accuracy := -1.0
	if m.Accuracy != nil && finite(*m.Accuracy) {
		accuracy = *m.Accuracy
	}
	return orientation.HeadingSample{Heading: *m.Heading, Accuracy: accuracy, Time: at}, nil
}

// DecodeHead parses a head attitude payload. lost is true when the payload
// announces that the head sensor is gone.
func DecodeHead(payload []byte, at time.Time) (att orientation.Attitude, lost bool, err error) {
	var m HeadMessage
	if err := json.Unmarshal(payload, &m); err != nil {
		return orientation.Attitude{}, false, errors.Wrap(err, "decoding head attitude")
	}
	if m.Available != nil && !*m.Available {
		return orientation.Attitude{}, true, nil
	}
	if !finite(m.Yaw) || !finite(m.Pitch) || !finite(m.Roll) {
		return orientation.Attitude{}, false, errors.New("head attitude is not finite")
	}
	return orientation.Attitude{Yaw: m.Yaw, Pitch: m.Pitch, Roll: m.Roll, Time: at}, false, nil
}

// DecodeFix parses a GPS fix payload. Void fixes are returned with ok false.
func DecodeFix(payload []byte) (fix gps.Fix, ok bool, err error) {
	if err := json.Unmarshal(payload, &fix); err != nil {
		return gps.Fix{}, false, errors.Wrap(err, "decoding gps fix")
	}
	return fix, fix.Valid(), nil
}

// DecodeIMU derives a heading from a raw IMU payload. ok is false when the
// sample carries no magnetometer data.
func DecodeIMU(payload []byte, at time.Time) (sample orientation.HeadingSample, ok bool, err error) {
	var raw imu.IMURaw
	if err := json.Unmarshal(payload, &raw); err != nil {
		return orientation.HeadingSample{}, false, errors.Wrap(err, "decoding imu sample")
	}
	sample, ok = orientation.HeadingFromIMU(raw, at)
	return sample, ok, nil
}

// DecodeLock parses a lock command. It returns nil for a toggle.
func DecodeLock(payload []byte) (*bool, error) {
	if len(payload) == 0 {
		return nil, nil
	}
	var m LockMessage
	if err := json.Unmarshal(payload, &m); err != nil {
		return nil, errors.Wrap(err, "decoding lock command")
	}
	return m.Locked, nil
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
