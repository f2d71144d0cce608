// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package tonegen

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.viam.com/test"

	"github.com/relabs-tech/audio_compass/internal/catalog"
	"github.com/relabs-tech/audio_compass/internal/tone"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	err := NewApp(&out).Run(append([]string{"tonegen"}, args...))
	return out.String(), err
}

func TestInitAndList(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.toml")

	out, err := run(t, "--catalog", path, "init")
	test.That(t, err, test.ShouldBeNil)
	test.That(t, out, test.ShouldContainSubstring, "wrote")

	_, err = run(t, "--catalog", path, "init")
	test.That(t, err, test.ShouldNotBeNil)
	_, err = run(t, "--catalog", path, "init", "--force")
	test.That(t, err, test.ShouldBeNil)

	out, err = run(t, "--catalog", path, "list")
	test.That(t, err, test.ShouldBeNil)
	for _, p := range tone.Defaults() {
		test.That(t, out, test.ShouldContainSubstring, p.ID)
	}
	test.That(t, out, test.ShouldContainSubstring, "north: enabled=true")
}

func TestWaypointCommands(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.toml")
	_, err := run(t, "--catalog", path, "init")
	test.That(t, err, test.ShouldBeNil)

	_, err = run(t, "--catalog", path, "waypoint", "add", "--name", "Harbour", "--lat", "43.3", "--lon", "5.36", "--profile", tone.SonarID)
	test.That(t, err, test.ShouldBeNil)

	cat, err := catalog.Load(path)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, cat.Waypoints, test.ShouldHaveLength, 1)
	id := cat.Waypoints[0].ID
	test.That(t, cat.Waypoints[0].ProfileID, test.ShouldEqual, tone.SonarID)

	_, err = run(t, "--catalog", path, "waypoint", "disable", id)
	test.That(t, err, test.ShouldBeNil)
	cat, err = catalog.Load(path)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, cat.Waypoints[0].Enabled, test.ShouldBeFalse)

	_, err = run(t, "--catalog", path, "waypoint", "enable", "nope")
	test.That(t, err, test.ShouldNotBeNil)

	_, err = run(t, "--catalog", path, "waypoint", "add", "--name", "Nowhere", "--lat", "95", "--lon", "0")
	test.That(t, err, test.ShouldNotBeNil)
}

func TestRender(t *testing.T) {
	dir := t.TempDir()
	wav := filepath.Join(dir, "north.wav")
	out, err := run(t, "--catalog", filepath.Join(dir, "missing.toml"), "--rate", "16000",
		"render", "--profile", tone.NorthID, "--out", wav)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, out, test.ShouldContainSubstring, "North bell")

	info, err := os.Stat(wav)
	test.That(t, err, test.ShouldBeNil)
	// 2s loop, 16-bit mono
	test.That(t, info.Size(), test.ShouldBeGreaterThanOrEqualTo, 2*16000*2)

	_, err = run(t, "render", "--profile", "nope", "--out", wav)
	test.That(t, err, test.ShouldNotBeNil)
	_, err = run(t, "render")
	test.That(t, err, test.ShouldNotBeNil)
}

func TestPreview(t *testing.T) {
	dir := t.TempDir()
	wav := filepath.Join(dir, "preview.wav")
	out, err := run(t, "--catalog", filepath.Join(dir, "missing.toml"), "--rate", "16000",
		"preview", "--heading", "90", "--length", "500ms", "--out", wav)
	test.That(t, err, test.ShouldBeNil)
	// north is to the left when facing east
	test.That(t, strings.TrimSpace(out), test.ShouldContainSubstring, "North@270°")

	info, err := os.Stat(wav)
	test.That(t, err, test.ShouldBeNil)
	// 0.5s, 16-bit stereo
	test.That(t, info.Size(), test.ShouldBeGreaterThanOrEqualTo, 8000*4)

	_, err = run(t, "preview", "--lat", "1", "--out", wav)
	test.That(t, err, test.ShouldNotBeNil)
}
