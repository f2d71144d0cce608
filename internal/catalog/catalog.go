// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package catalog stores waypoints and tone profiles.
package catalog

import (
	"math"
	"sort"

	"github.com/google/uuid"
	geo "github.com/kellydunn/golang-geo"
	"github.com/pkg/errors"
	"go.uber.org/multierr"

	"github.com/relabs-tech/audio_compass/internal/spatial"
	"github.com/relabs-tech/audio_compass/internal/tone"
)

// ErrNotFound is returned when an id does not exist in the catalog.
var ErrNotFound = errors.New("not found in catalog")

// Waypoint is a saved place that can be heard as a beacon.
type Waypoint struct {
	ID        string
	Name      string
	Latitude  float64
	Longitude float64
	ProfileID string
	Enabled   bool
}

// Point returns the waypoint coordinate.
func (w Waypoint) Point() *geo.Point {
	return geo.NewPoint(w.Latitude, w.Longitude)
}

// North configures the always-present north beacon.
type North struct {
	Enabled   bool
	ProfileID string
}

// Catalog is the full set of profiles and waypoints. It is treated as a
// value: loaders produce a new Catalog rather than mutating a shared one.
type Catalog struct {
	North     North
	Profiles  []tone.Profile
	Waypoints []Waypoint
}

// Default returns a catalog with the built-in profiles, north enabled and no
// waypoints.
func Default() *Catalog {
	return &Catalog{
		North:    North{Enabled: true, ProfileID: tone.NorthID},
		Profiles: tone.Defaults(),
	}
}

// Profile looks up a profile by id.
func (c *Catalog) Profile(id string) (tone.Profile, error) {
	for _, p := range c.Profiles {
		if p.ID == id {
			return p, nil
		}
	}
	return tone.Profile{}, errors.Wrapf(ErrNotFound, "profile %q", id)
}

// ResolveProfile returns the profile for id, falling back to the catalog's
// default profile and then to the built-in one. A waypoint whose profile
// was deleted keeps sounding with the default.
func (c *Catalog) ResolveProfile(id string) tone.Profile {
	if p, err := c.Profile(id); err == nil {
		return p
	}
	if p, err := c.Profile(tone.DefaultID); err == nil {
		return p
	}
	return tone.Default()
}

// Waypoint looks up a waypoint by id.
func (c *Catalog) Waypoint(id string) (Waypoint, error) {
	for _, w := range c.Waypoints {
		if w.ID == id {
			return w, nil
		}
	}
	return Waypoint{}, errors.Wrapf(ErrNotFound, "waypoint %q", id)
}

// EnabledWaypoints returns the enabled waypoints sorted by name.
func (c *Catalog) EnabledWaypoints() []Waypoint {
	var out []Waypoint
	for _, w := range c.Waypoints {
		if w.Enabled {
			out = append(out, w)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// AddWaypoint appends an enabled waypoint with a fresh id.
func (c *Catalog) AddWaypoint(name string, lat, lon float64, profileID string) Waypoint {
	w := Waypoint{
		ID:        uuid.NewString(),
		Name:      name,
		Latitude:  lat,
		Longitude: lon,
		ProfileID: profileID,
		Enabled:   true,
	}
	c.Waypoints = append(c.Waypoints, w)
	return w
}

// SetEnabled toggles a waypoint.
func (c *Catalog) SetEnabled(id string, enabled bool) error {
	for i := range c.Waypoints {
		if c.Waypoints[i].ID == id {
			c.Waypoints[i].Enabled = enabled
			return nil
		}
	}
	return errors.Wrapf(ErrNotFound, "waypoint %q", id)
}

// PutProfile adds a profile or replaces the one with the same id.
func (c *Catalog) PutProfile(p tone.Profile) {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	for i := range c.Profiles {
		if c.Profiles[i].ID == p.ID {
			c.Profiles[i] = p
			return
		}
	}
	c.Profiles = append(c.Profiles, p)
}

// RemoveProfile deletes a profile. Waypoints referring to it keep the id and
// resolve to the default profile.
func (c *Catalog) RemoveProfile(id string) error {
	for i := range c.Profiles {
		if c.Profiles[i].ID == id {
			c.Profiles = append(c.Profiles[:i], c.Profiles[i+1:]...)
			return nil
		}
	}
	return errors.Wrapf(ErrNotFound, "profile %q", id)
}

// Validate reports every structural problem in the catalog at once:
// missing or duplicate ids and impossible coordinates. Tone parameters are
// not checked here; see ProfileErrors.
func (c *Catalog) Validate() error {
	var err error
	seen := map[string]bool{}
	for _, p := range c.Profiles {
		if p.ID == "" {
			err = multierr.Append(err, errors.Errorf("profile %q has no id", p.Name))
			continue
		}
		if seen[p.ID] {
			err = multierr.Append(err, errors.Errorf("duplicate profile id %q", p.ID))
		}
		seen[p.ID] = true
	}

	seen = map[string]bool{spatial.NorthID: true}
	for _, w := range c.Waypoints {
		if w.ID == "" {
			err = multierr.Append(err, errors.Errorf("waypoint %q has no id", w.Name))
			continue
		}
		if seen[w.ID] {
			err = multierr.Append(err, errors.Errorf("duplicate or reserved waypoint id %q", w.ID))
		}
		seen[w.ID] = true
		if !validLatLon(w.Latitude, w.Longitude) {
			err = multierr.Append(err, errors.Errorf("waypoint %q has invalid coordinate %.6f,%.6f", w.ID, w.Latitude, w.Longitude))
		}
	}
	return err
}

// ProfileErrors returns the profiles that cannot be synthesized at
// sampleRate, keyed by id. Sources using them are skipped by reconcile
// while the rest of the catalog keeps playing.
func (c *Catalog) ProfileErrors(sampleRate int) map[string]error {
	out := map[string]error{}
	for _, p := range c.Profiles {
		if err := p.Validate(sampleRate); err != nil {
			out[p.ID] = err
		}
	}
	return out
}

func validLatLon(lat, lon float64) bool {
	if math.IsNaN(lat) || math.IsNaN(lon) {
		return false
	}
	return lat >= -90 && lat <= 90 && lon >= -180 && lon <= 180
}

// Targets converts the catalog into the desired source set: north first
// when enabled, then every enabled waypoint.
func (c *Catalog) Targets() []spatial.Target {
	var out []spatial.Target
	if c.North.Enabled {
		out = append(out, spatial.Target{
			ID:      spatial.NorthID,
			Name:    "North",
			Profile: c.ResolveProfile(c.North.ProfileID),
		})
	}
	for _, w := range c.EnabledWaypoints() {
		out = append(out, spatial.Target{
			ID:         w.ID,
			Name:       w.Name,
			Profile:    c.ResolveProfile(w.ProfileID),
			Coordinate: w.Point(),
		})
	}
	return out
}
