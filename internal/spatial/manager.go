// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package spatial keeps one looping audio source per desired beacon and
// steers each of them to its real-world bearing.
package spatial

import (
	"context"
	"runtime"
	"sort"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/edaniels/golog"
	"github.com/golang/geo/r3"
	geo "github.com/kellydunn/golang-geo"
	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"github.com/relabs-tech/audio_compass/internal/tone"
)

// NorthID is the source id of the true north beacon.
const NorthID = "north"

// ErrUnknownSource is returned for operations on ids that are not active.
var ErrUnknownSource = errors.New("unknown audio source")

// Renderer is the 3D audio boundary. Implementations spatialize each
// attached buffer at its position; they are called with the manager's
// lock held and must not call back into it.
type Renderer interface {
	Attach(id string, buf tone.Buffer) error
	SetPosition(id string, pos r3.Vector) error
	SetVolume(id string, volume float64) error
	Play(id string) error
	Stop(id string) error
	Release(id string) error
}

// PathSetter is implemented by renderers that can switch their output path
// (for example headphones or speakers).
type PathSetter interface {
	SetRenderPath(path string) error
}

// Target is one desired source.
type Target struct {
	ID      string
	Name    string
	Profile tone.Profile
	// Coordinate is nil for north, which is a direction rather than a place.
	Coordinate *geo.Point
}

// Source is a snapshot of an active source.
type Source struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	ProfileID    string    `json:"profile_id"`
	Lat          float64   `json:"lat,omitempty"`
	Lon          float64   `json:"lon,omitempty"`
	Position     r3.Vector `json:"position"`
	Relative     float64   `json:"relative_bearing"`
	Distance     float64   `json:"distance_m,omitempty"`
	Volume       float64   `json:"volume"`
	Playing      bool      `json:"playing"`
	HavePosition bool      `json:"have_position"`
}

// Config holds the presentation settings.
type Config struct {
	Distance        float64
	ElevationFactor float64
	Volume          float64
	SampleRate      int
	Workers         int
	FrameInterval   time.Duration
	RenderPath      string
}

// DefaultConfig returns the manager defaults.
func DefaultConfig() Config {
	return Config{
		Distance:        2,
		ElevationFactor: 0.5,
		Volume:          1,
		SampleRate:      tone.DefaultSampleRate,
		Workers:         runtime.NumCPU(),
		FrameInterval:   16 * time.Millisecond,
	}
}

// Report describes what a reconcile changed.
type Report struct {
	Added   []string
	Removed []string
	Updated []string
	Failed  map[string]error
}

// Changed reports whether the reconcile touched anything.
func (r Report) Changed() bool {
	return len(r.Added)+len(r.Removed)+len(r.Updated)+len(r.Failed) > 0
}

type source struct {
	target   Target
	buf      tone.Buffer
	position r3.Vector
	placed   bool
	relative float64
	distance float64
	volume   float64
	playing  bool
}

type sharedBuffer struct {
	buf  tone.Buffer
	refs int
}

// failure remembers a source whose profile cannot be synthesized, so the
// same target is not retried until its profile changes.
type failure struct {
	key tone.Key
	err error
}

// Manager owns the active sources. Reconcile, UpdatePositions and the
// volume setters may be called from any goroutine.
type Manager struct {
	cfg      Config
	renderer Renderer
	clk      clock.Clock
	logger   golog.Logger

	synthesize func(tone.Profile, int) (tone.Buffer, error)

	reconcileMu sync.Mutex

	mu           sync.Mutex
	sources      map[string]*source
	failed       map[string]failure
	buffers      map[tone.Key]*sharedBuffer
	heading      float64
	listener     *geo.Point
	lastSeq      uint64
	frameUpdates uint64
}

// NewManager creates a manager around a renderer.
func NewManager(cfg Config, renderer Renderer, clk clock.Clock, logger golog.Logger) *Manager {
	def := DefaultConfig()
	if cfg.SampleRate <= 0 {
		cfg.SampleRate = def.SampleRate
	}
	if cfg.Workers <= 0 {
		cfg.Workers = def.Workers
	}
	if cfg.FrameInterval <= 0 {
		cfg.FrameInterval = def.FrameInterval
	}
	if clk == nil {
		clk = clock.New()
	}
	m := &Manager{
		cfg:        cfg,
		renderer:   renderer,
		clk:        clk,
		logger:     logger,
		synthesize: tone.Synthesize,
		sources:    map[string]*source{},
		failed:     map[string]failure{},
		buffers:    map[tone.Key]*sharedBuffer{},
	}
	if ps, ok := renderer.(PathSetter); ok && cfg.RenderPath != "" {
		if err := ps.SetRenderPath(cfg.RenderPath); err != nil {
			logger.Warnw("renderer rejected render path", "path", cfg.RenderPath, "error", err)
		}
	}
	return m
}

// Reconcile makes the active sources match targets. Sources that are no
// longer wanted are stopped and released, new ones are synthesized and
// started, and a source whose profile changed is recreated. Calling it
// again with the same targets does nothing. Synthesis failures skip the
// source and are listed in the report; they never fail the call. A failed
// target is only retried once its profile changes.
func (m *Manager) Reconcile(ctx context.Context, targets []Target) Report {
	m.reconcileMu.Lock()
	defer m.reconcileMu.Unlock()

	report := Report{Failed: map[string]error{}}
	desired := make(map[string]Target, len(targets))
	order := make([]string, 0, len(targets))
	for _, t := range targets {
		if _, dup := desired[t.ID]; dup {
			m.logger.Warnw("duplicate source id ignored", "id", t.ID)
			continue
		}
		desired[t.ID] = t
		order = append(order, t.ID)
	}

	m.mu.Lock()
	var create []Target
	for _, id := range order {
		t := desired[id]
		s, ok := m.sources[id]
		switch {
		case !ok:
			if f, known := m.failed[id]; known && f.key == t.Profile.Key() {
				continue
			}
			create = append(create, t)
		case s.target.Profile.Key() != t.Profile.Key():
			m.destroyLocked(id)
			report.Removed = append(report.Removed, id)
			create = append(create, t)
		case !samePlace(s.target.Coordinate, t.Coordinate) || s.target.Name != t.Name:
			s.target = t
			m.placeLocked(s)
			report.Updated = append(report.Updated, id)
		}
	}
	for id := range m.sources {
		if _, ok := desired[id]; !ok {
			m.destroyLocked(id)
			report.Removed = append(report.Removed, id)
		}
	}
	for id := range m.failed {
		if _, ok := desired[id]; !ok {
			delete(m.failed, id)
		}
	}
	var missing []tone.Profile
	seen := map[tone.Key]bool{}
	for _, t := range create {
		key := t.Profile.Key()
		if _, ok := m.buffers[key]; !ok && !seen[key] {
			seen[key] = true
			missing = append(missing, t.Profile)
		}
	}
	m.mu.Unlock()

	// synthesis runs without the lock so the frame loop keeps going
	built, errs := m.synthesizeAll(ctx, missing)

	m.mu.Lock()
	defer m.mu.Unlock()
	for _, t := range create {
		key := t.Profile.Key()
		delete(m.failed, t.ID)
		buf, ok := m.buffers[key]
		if !ok {
			if err, failed := errs[key]; failed {
				report.Failed[t.ID] = err
				if ctx.Err() == nil {
					m.failed[t.ID] = failure{key: key, err: err}
				}
				m.logger.Warnw("skipping source, synthesis failed", "id", t.ID, "profile", t.Profile.ID, "error", err)
				continue
			}
			buf = &sharedBuffer{buf: built[key]}
			m.buffers[key] = buf
		}
		if err := m.createLocked(t, buf); err != nil {
			report.Failed[t.ID] = err
			m.logger.Warnw("renderer refused source", "id", t.ID, "error", err)
			continue
		}
		report.Added = append(report.Added, t.ID)
	}
	m.dropUnusedBuffersLocked()

	sort.Strings(report.Removed)
	if report.Changed() {
		m.logger.Infow("sources reconciled",
			"added", report.Added, "removed", report.Removed, "updated", report.Updated, "failed", len(report.Failed), "active", len(m.sources))
	}
	return report
}

func samePlace(a, b *geo.Point) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Lat() == b.Lat() && a.Lng() == b.Lng()
}

func (m *Manager) synthesizeAll(ctx context.Context, profiles []tone.Profile) (map[tone.Key]tone.Buffer, map[tone.Key]error) {
	built := make(map[tone.Key]tone.Buffer, len(profiles))
	errs := map[tone.Key]error{}
	if len(profiles) == 0 {
		return built, errs
	}

	bufs := make([]tone.Buffer, len(profiles))
	fails := make([]error, len(profiles))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(m.cfg.Workers)
	for i, p := range profiles {
		i, p := i, p
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				fails[i] = err
				return nil
			}
			start := m.clk.Now()
			bufs[i], fails[i] = m.synthesize(p, m.cfg.SampleRate)
			if fails[i] == nil && bufs[i].Len() == 0 {
				fails[i] = errors.Wrapf(tone.ErrInvalidProfile, "profile %q produced an empty buffer", p.ID)
			}
			m.logger.Debugw("synthesized tone", "profile", p.ID, "frames", bufs[i].Len(), "took", m.clk.Since(start))
			return nil
		})
	}
	_ = g.Wait()

	for i, p := range profiles {
		key := p.Key()
		if fails[i] != nil {
			errs[key] = fails[i]
			continue
		}
		built[key] = bufs[i]
	}
	return built, errs
}

func (m *Manager) createLocked(t Target, shared *sharedBuffer) error {
	if err := m.renderer.Attach(t.ID, shared.buf); err != nil {
		return errors.Wrapf(err, "attaching %s", t.ID)
	}
	s := &source{target: t, buf: shared.buf, volume: m.cfg.Volume}
	shared.refs++
	m.sources[t.ID] = s

	if err := m.renderer.SetVolume(t.ID, s.volume); err != nil {
		m.logger.Warnw("renderer refused volume", "id", t.ID, "error", err)
	}
	m.placeLocked(s)
	if err := m.renderer.Play(t.ID); err != nil {
		m.destroyLocked(t.ID)
		return errors.Wrapf(err, "playing %s", t.ID)
	}
	s.playing = true
	return nil
}

func (m *Manager) destroyLocked(id string) {
	s, ok := m.sources[id]
	if !ok {
		return
	}
	delete(m.sources, id)
	if s.playing {
		if err := m.renderer.Stop(id); err != nil {
			m.logger.Warnw("renderer failed to stop source", "id", id, "error", err)
		}
	}
	if err := m.renderer.Release(id); err != nil {
		m.logger.Warnw("renderer failed to release source", "id", id, "error", err)
	}
	if shared, ok := m.buffers[s.target.Profile.Key()]; ok {
		shared.refs--
	}
}

func (m *Manager) dropUnusedBuffersLocked() {
	for p, shared := range m.buffers {
		if shared.refs <= 0 {
			delete(m.buffers, p)
		}
	}
}

// placeLocked positions a source from the last known heading and listener.
// A new waypoint with no listener yet starts straight ahead; an existing one
// keeps its last position.
func (m *Manager) placeLocked(s *source) {
	var rel float64
	switch {
	case s.target.Coordinate == nil:
		rel = NorthRelative(m.heading)
	case m.listener != nil:
		rel, s.distance = WaypointRelative(m.heading, m.listener, s.target.Coordinate)
	case s.placed:
		return
	}

	pos := Position(rel, m.cfg.Distance, m.cfg.ElevationFactor)
	if s.placed && pos == s.position {
		return
	}
	s.relative = rel
	s.position = pos
	s.placed = true
	if err := m.renderer.SetPosition(s.target.ID, pos); err != nil {
		m.logger.Warnw("renderer refused position", "id", s.target.ID, "error", err)
	}
}

// UpdatePositions steers every source for a combined heading. With a nil
// listener only north moves; waypoints keep their last position.
func (m *Manager) UpdatePositions(heading float64, listener *geo.Point) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.heading = heading
	m.listener = listener
	for _, s := range m.sources {
		m.placeLocked(s)
	}
	m.frameUpdates++
}

// SetVolume changes the volume of one source.
func (m *Manager) SetVolume(id string, volume float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sources[id]
	if !ok {
		return errors.Wrapf(ErrUnknownSource, "%q", id)
	}
	s.volume = volume
	return errors.Wrapf(m.renderer.SetVolume(id, volume), "setting volume of %s", id)
}

// Sources returns a snapshot of the active sources, north first.
func (m *Manager) Sources() []Source {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Source, 0, len(m.sources))
	for _, s := range m.sources {
		snap := Source{
			ID:           s.target.ID,
			Name:         s.target.Name,
			ProfileID:    s.target.Profile.ID,
			Position:     s.position,
			Relative:     s.relative,
			Distance:     s.distance,
			Volume:       s.volume,
			Playing:      s.playing,
			HavePosition: s.placed,
		}
		if c := s.target.Coordinate; c != nil {
			snap.Lat, snap.Lon = c.Lat(), c.Lng()
		}
		out = append(out, snap)
	}
	sort.Slice(out, func(i, j int) bool {
		if (out[i].ID == NorthID) != (out[j].ID == NorthID) {
			return out[i].ID == NorthID
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// Failures returns the sources skipped because their profile could not be
// synthesized, keyed by source id.
func (m *Manager) Failures() map[string]error {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]error, len(m.failed))
	for id, f := range m.failed {
		out[id] = f.err
	}
	return out
}

// Len returns the number of active sources.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sources)
}

// SharedBuffers returns how many distinct buffers are held.
func (m *Manager) SharedBuffers() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.buffers)
}

// Close stops and releases every source.
func (m *Manager) Close(ctx context.Context) {
	m.Reconcile(ctx, nil)
}
