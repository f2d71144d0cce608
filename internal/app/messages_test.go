// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"encoding/json"
	"testing"
	"time"

	"go.viam.com/test"

	"github.com/relabs-tech/audio_compass/internal/orientation"
	"github.com/relabs-tech/audio_compass/internal/spatial"
)

var at = time.Unix(1700000000, 0)

func TestDecodeHeading(t *testing.T) {
	s, err := DecodeHeading([]byte(`{"heading":123.5,"accuracy":12}`), at)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, s.Heading, test.ShouldEqual, 123.5)
	test.That(t, s.Accuracy, test.ShouldEqual, 12.0)
	test.That(t, s.Time, test.ShouldEqual, at)

	s, err = DecodeHeading([]byte(`{"heading":10}`), at)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, s.Accuracy, test.ShouldEqual, -1.0)

	for _, bad := range []string{``, `{`, `{"accuracy":3}`, `{"heading":"north"}`} {
		_, err := DecodeHeading([]byte(bad), at)
		test.That(t, err, test.ShouldNotBeNil)
	}
}

func TestDecodeHead(t *testing.T) {
	att, lost, err := DecodeHead([]byte(`{"yaw":0.5,"pitch":0.1,"roll":-0.2}`), at)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, lost, test.ShouldBeFalse)
	test.That(t, att.Yaw, test.ShouldEqual, 0.5)
	test.That(t, att.Roll, test.ShouldEqual, -0.2)
	test.That(t, att.Time, test.ShouldEqual, at)

	_, lost, err = DecodeHead([]byte(`{"available":false}`), at)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, lost, test.ShouldBeTrue)

	_, lost, err = DecodeHead([]byte(`{"yaw":1,"available":true}`), at)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, lost, test.ShouldBeFalse)

	_, _, err = DecodeHead([]byte(`[1,2,3]`), at)
	test.That(t, err, test.ShouldNotBeNil)
}

func TestDecodeFix(t *testing.T) {
	fix, ok, err := DecodeFix([]byte(`{"lat":48.85,"lon":2.35,"validity":"A"}`))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, fix.Latitude, test.ShouldEqual, 48.85)

	_, ok, err = DecodeFix([]byte(`{"lat":48.85,"lon":2.35,"validity":"V"}`))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, ok, test.ShouldBeFalse)

	_, _, err = DecodeFix([]byte(`nope`))
	test.That(t, err, test.ShouldNotBeNil)
}

func TestDecodeIMU(t *testing.T) {
	// level, field pointing along +x: heading north
	s, ok, err := DecodeIMU([]byte(`{"source":"left","az":16384,"mx":300}`), at)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, s.Heading, test.ShouldAlmostEqual, 0.0, 1e-9)
	test.That(t, s.Accuracy, test.ShouldBeGreaterThan, 0)

	_, ok, err = DecodeIMU([]byte(`{"source":"left","az":16384}`), at)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, ok, test.ShouldBeFalse)
}

func TestDecodeLock(t *testing.T) {
	locked, err := DecodeLock(nil)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, locked, test.ShouldBeNil)

	locked, err = DecodeLock([]byte(`{}`))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, locked, test.ShouldBeNil)

	locked, err = DecodeLock([]byte(`{"locked":true}`))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, *locked, test.ShouldBeTrue)

	_, err = DecodeLock([]byte(`{"locked":"yes"}`))
	test.That(t, err, test.ShouldNotBeNil)
}

func TestStateMessageJSON(t *testing.T) {
	msg := StateMessage{
		State: orientation.State{Seq: 7, HaveHeading: true, CombinedHeading: 42},
		Sources: []spatial.Source{
			{ID: spatial.NorthID, Name: "North", Relative: 318, HavePosition: true},
		},
	}
	raw, err := json.Marshal(msg)
	test.That(t, err, test.ShouldBeNil)

	var back map[string]interface{}
	test.That(t, json.Unmarshal(raw, &back), test.ShouldBeNil)
	test.That(t, back, test.ShouldContainKey, "state")
	test.That(t, back, test.ShouldContainKey, "sources")

	var decoded StateMessage
	test.That(t, json.Unmarshal(raw, &decoded), test.ShouldBeNil)
	test.That(t, decoded.State.Seq, test.ShouldEqual, 7)
	test.That(t, decoded.Sources, test.ShouldHaveLength, 1)
	test.That(t, decoded.Sources[0].Relative, test.ShouldEqual, 318.0)
}

func TestReadingMessages(t *testing.T) {
	r := orientation.Reading{
		Heading:      orientation.HeadingSample{Heading: 90, Accuracy: 10},
		Attitude:     orientation.Attitude{Yaw: 0.3},
		HaveAttitude: true,
	}
	heading, head := readingMessages(r)
	test.That(t, *heading.Heading, test.ShouldEqual, 90.0)
	test.That(t, *heading.Accuracy, test.ShouldEqual, 10.0)
	test.That(t, head, test.ShouldNotBeNil)
	test.That(t, head.Yaw, test.ShouldEqual, 0.3)

	r.HaveAttitude = false
	_, head = readingMessages(r)
	test.That(t, head, test.ShouldBeNil)
}
