// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package catalog

import (
	"bytes"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/pkg/errors"
	"periph.io/x/conn/v3/physic"

	"github.com/relabs-tech/audio_compass/internal/tone"
)

// frequency reads "880Hz", "6kHz" or a bare number of hertz.
type frequency physic.Frequency

func (f *frequency) UnmarshalText(text []byte) error {
	var v physic.Frequency
	if err := v.Set(string(text)); err != nil {
		return err
	}
	*f = frequency(v)
	return nil
}

// MarshalText writes plain hertz; physic.Frequency.String rounds to
// three decimals of its SI prefix.
func (f frequency) MarshalText() ([]byte, error) {
	return []byte(strconv.FormatFloat(f.hertz(), 'f', -1, 64) + "Hz"), nil
}

func (f frequency) hertz() float64 {
	return float64(f) / float64(physic.Hertz)
}

func toFrequency(hz float64) frequency {
	return frequency(math.Round(hz * float64(physic.Hertz)))
}

func toDuration(sec float64) time.Duration {
	return time.Duration(math.Round(sec * float64(time.Second)))
}

type fileNorth struct {
	Enabled bool   `toml:"enabled"`
	Profile string `toml:"profile"`
}

type fileProfile struct {
	ID              string        `toml:"id"`
	Name            string        `toml:"name"`
	Frequency       frequency     `toml:"frequency"`
	PingDuration    time.Duration `toml:"ping_duration"`
	PingInterval    time.Duration `toml:"ping_interval"`
	EchoDelay       time.Duration `toml:"echo_delay"`
	EchoAttenuation float64       `toml:"echo_attenuation"`
	Harmonics       []float64     `toml:"harmonics"`
	ClickFrequency  frequency     `toml:"click_frequency"`
	ClickAmplitude  float64       `toml:"click_amplitude"`
	ClickDecay      float64       `toml:"click_decay"`
	PingDecay       float64       `toml:"ping_decay"`
	EchoDecay       float64       `toml:"echo_decay"`
	Sweep           float64       `toml:"sweep"`
}

type fileWaypoint struct {
	ID      string  `toml:"id"`
	Name    string  `toml:"name"`
	Lat     float64 `toml:"lat"`
	Lon     float64 `toml:"lon"`
	Profile string  `toml:"profile"`
	Enabled *bool   `toml:"enabled"`
}

type file struct {
	North     fileNorth      `toml:"north"`
	Profiles  []fileProfile  `toml:"profile"`
	Waypoints []fileWaypoint `toml:"waypoint"`
}

func (fp fileProfile) profile() (tone.Profile, error) {
	p := tone.Profile{
		ID:              fp.ID,
		Name:            fp.Name,
		Frequency:       fp.Frequency.hertz(),
		PingDuration:    fp.PingDuration.Seconds(),
		PingInterval:    fp.PingInterval.Seconds(),
		EchoDelay:       fp.EchoDelay.Seconds(),
		EchoAttenuation: fp.EchoAttenuation,
		ClickFrequency:  fp.ClickFrequency.hertz(),
		ClickAmplitude:  fp.ClickAmplitude,
		ClickDecay:      fp.ClickDecay,
		PingDecay:       fp.PingDecay,
		EchoDecay:       fp.EchoDecay,
		SweepAmount:     fp.Sweep,
	}
	if len(fp.Harmonics) > len(p.Harmonics) {
		return p, errors.Errorf("profile %q has %d harmonics, at most %d allowed", fp.ID, len(fp.Harmonics), len(p.Harmonics))
	}
	copy(p.Harmonics[:], fp.Harmonics)
	return p, nil
}

func fromProfile(p tone.Profile) fileProfile {
	return fileProfile{
		ID:              p.ID,
		Name:            p.Name,
		Frequency:       toFrequency(p.Frequency),
		PingDuration:    toDuration(p.PingDuration),
		PingInterval:    toDuration(p.PingInterval),
		EchoDelay:       toDuration(p.EchoDelay),
		EchoAttenuation: p.EchoAttenuation,
		Harmonics:       append([]float64(nil), p.Harmonics[:]...),
		ClickFrequency:  toFrequency(p.ClickFrequency),
		ClickAmplitude:  p.ClickAmplitude,
		ClickDecay:      p.ClickDecay,
		PingDecay:       p.PingDecay,
		EchoDecay:       p.EchoDecay,
		Sweep:           p.SweepAmount,
	}
}

// Parse decodes a TOML catalog. Waypoints without an enabled key are
// enabled.
func Parse(data []byte) (*Catalog, error) {
	var f file
	md, err := toml.Decode(string(data), &f)
	if err != nil {
		return nil, errors.Wrap(err, "decoding catalog")
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return nil, errors.Errorf("unknown catalog keys: %v", undecoded)
	}

	c := &Catalog{North: North{Enabled: f.North.Enabled, ProfileID: f.North.Profile}}
	if !md.IsDefined("north") {
		c.North = Default().North
	}
	for _, fp := range f.Profiles {
		p, err := fp.profile()
		if err != nil {
			return nil, err
		}
		c.Profiles = append(c.Profiles, p)
	}
	for _, fw := range f.Waypoints {
		enabled := true
		if fw.Enabled != nil {
			enabled = *fw.Enabled
		}
		c.Waypoints = append(c.Waypoints, Waypoint{
			ID:        fw.ID,
			Name:      fw.Name,
			Latitude:  fw.Lat,
			Longitude: fw.Lon,
			ProfileID: fw.Profile,
			Enabled:   enabled,
		})
	}
	return c, nil
}

// Load reads a catalog file and checks its structure. Profiles with bad
// tone parameters are kept; they only fail the sources that use them.
func Load(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "reading catalog %s", path)
	}
	c, err := Parse(data)
	if err != nil {
		return nil, errors.Wrapf(err, "catalog %s", path)
	}
	if err := c.Validate(); err != nil {
		return nil, errors.Wrapf(err, "catalog %s", path)
	}
	return c, nil
}

// LoadOrDefault is Load, except that a missing file yields Default().
func LoadOrDefault(path string) (*Catalog, error) {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return Default(), nil
	}
	return Load(path)
}

// Encode renders the catalog as TOML.
func (c *Catalog) Encode() ([]byte, error) {
	f := file{North: fileNorth{Enabled: c.North.Enabled, Profile: c.North.ProfileID}}
	for _, p := range c.Profiles {
		f.Profiles = append(f.Profiles, fromProfile(p))
	}
	for _, w := range c.Waypoints {
		enabled := w.Enabled
		f.Waypoints = append(f.Waypoints, fileWaypoint{
			ID:      w.ID,
			Name:    w.Name,
			Lat:     w.Latitude,
			Lon:     w.Longitude,
			Profile: w.ProfileID,
			Enabled: &enabled,
		})
	}

	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(f); err != nil {
		return nil, errors.Wrap(err, "encoding catalog")
	}
	return buf.Bytes(), nil
}

// Save writes the catalog next to path and renames it into place, so a
// watcher never sees a half written file.
func (c *Catalog) Save(path string) error {
	data, err := c.Encode()
	if err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), ".catalog-*.toml")
	if err != nil {
		return errors.Wrap(err, "creating temp catalog")
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return errors.Wrap(err, "writing temp catalog")
	}
	if err := tmp.Close(); err != nil {
		return errors.Wrap(err, "closing temp catalog")
	}
	return errors.Wrapf(os.Rename(tmp.Name(), path), "replacing %s", path)
}
