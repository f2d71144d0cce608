// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"go.viam.com/test"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "compass_config.txt")
	test.That(t, os.WriteFile(path, []byte(body), 0o644), test.ShouldBeNil)
	return path
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
# broker
MQTT_BROKER = tcp://broker:1883
TOPIC_HEADING=sensors/heading

DEVICE_SMOOTHING=0.5
HEAD_TIMEOUT_MS=0
SOURCE_VOLUME=0.25
RENDER_BACKEND=wav
RENDER_WAV_PATH=/tmp/out.wav
LOG_DEBUG=true
`)
	cfg, err := Load(path)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, cfg.MQTTBroker, test.ShouldEqual, "tcp://broker:1883")
	test.That(t, cfg.TopicHeading, test.ShouldEqual, "sensors/heading")
	test.That(t, cfg.TopicState, test.ShouldEqual, Default().TopicState)
	test.That(t, cfg.RenderBackend, test.ShouldEqual, BackendWAV)
	test.That(t, cfg.LogDebug, test.ShouldBeTrue)

	fusion := cfg.Fusion()
	test.That(t, fusion.DeviceSmoothing, test.ShouldEqual, 0.5)
	test.That(t, fusion.AudioSmoothing, test.ShouldEqual, 0.15)
	test.That(t, fusion.HeadTimeout, test.ShouldEqual, time.Duration(0))

	sp := cfg.Spatial()
	test.That(t, sp.Volume, test.ShouldEqual, 0.25)
	test.That(t, sp.FrameInterval, test.ShouldEqual, 16*time.Millisecond)
	test.That(t, sp.RenderPath, test.ShouldEqual, "headphones")
}

func TestLoadRejects(t *testing.T) {
	cases := []struct {
		name string
		body string
	}{
		{"missing equals", "MQTT_BROKER\n"},
		{"unknown key", "FOO=bar\n"},
		{"not a number", "GPS_BAUD_RATE=fast\n"},
		{"zero smoothing", "AUDIO_SMOOTHING=0\n"},
		{"smoothing above one", "DEVICE_SMOOTHING=1.5\n"},
		{"volume out of range", "SOURCE_VOLUME=2\n"},
		{"bad backend", "RENDER_BACKEND=alsa\n"},
		{"bad bool", "LOG_DEBUG=maybe\n"},
		{"empty broker", "MQTT_BROKER=\n"},
		{"wav without path", "RENDER_BACKEND=wav\nRENDER_WAV_PATH=\n"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tc.body))
			test.That(t, err, test.ShouldNotBeNil)
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.txt"))
	test.That(t, err, test.ShouldNotBeNil)
}

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	test.That(t, cfg.validate(), test.ShouldBeNil)
	test.That(t, cfg.StatePublishInterval(), test.ShouldEqual, 100*time.Millisecond)
	test.That(t, cfg.ProducerInterval(), test.ShouldEqual, 50*time.Millisecond)
	test.That(t, cfg.Fusion().HeadTimeout, test.ShouldEqual, 500*time.Millisecond)
}

func TestInitGlobal(t *testing.T) {
	path := writeConfig(t, "WEB_SERVER_PORT=9090\n")
	test.That(t, InitGlobal(path), test.ShouldBeNil)
	test.That(t, Get().WebServerPort, test.ShouldEqual, 9090)

	// only the first call loads
	test.That(t, InitGlobal(writeConfig(t, "WEB_SERVER_PORT=1\n")), test.ShouldBeNil)
	test.That(t, Get().WebServerPort, test.ShouldEqual, 9090)
}
