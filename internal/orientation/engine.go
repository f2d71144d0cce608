// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package orientation

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/edaniels/golog"
	"github.com/pkg/errors"
)

// ErrStopped is returned by commands sent to an engine that is not running.
var ErrStopped = errors.New("orientation engine stopped")

type eventKind int

const (
	evHeading eventKind = iota
	evAttitude
	evHeadLost
	evLocation
	evLock
	evToggleLock
	evTick
)

type event struct {
	kind     eventKind
	heading  HeadingSample
	attitude Attitude
	lat, lon float64
	locked   bool
}

// Engine owns the fusion state. Sensor callbacks submit samples from any
// goroutine; a single goroutine (Run) applies them in arrival order and
// publishes an immutable snapshot after each one.
//
// Sensor samples never block: when the inbox is full they are dropped and
// counted, since a newer sample will follow shortly. Commands (lock, head
// lost) wait for room.
type Engine struct {
	cfg    Config
	clk    clock.Clock
	logger golog.Logger

	core    *fusion
	inbox   chan event
	stopped chan struct{}
	running atomic.Bool

	latest  atomic.Pointer[State]
	dropped atomic.Uint64
	bcast   *Broadcaster
}

// NewEngine creates an engine. Call Run to start processing.
func NewEngine(cfg Config, clk clock.Clock, logger golog.Logger) *Engine {
	if clk == nil {
		clk = clock.New()
	}
	if cfg.InboxSize <= 0 {
		cfg.InboxSize = DefaultConfig().InboxSize
	}
	e := &Engine{
		cfg:     cfg,
		clk:     clk,
		logger:  logger,
		core:    newFusion(cfg, clk),
		inbox:   make(chan event, cfg.InboxSize),
		stopped: make(chan struct{}),
		bcast:   NewBroadcaster(),
	}
	e.latest.Store(&State{})
	return e
}

// Run processes events until ctx is done. It may only be called once.
func (e *Engine) Run(ctx context.Context) error {
	if !e.running.CompareAndSwap(false, true) {
		return errors.New("orientation engine already running")
	}
	defer close(e.stopped)
	defer e.bcast.Close()

	var expiry <-chan time.Time
	if e.cfg.HeadTimeout > 0 {
		t := e.clk.Ticker(e.cfg.HeadTimeout / 2)
		defer t.Stop()
		expiry = t.C
	}

	e.logger.Debugw("orientation engine started", "inbox", e.cfg.InboxSize, "head_timeout", e.cfg.HeadTimeout)
	for {
		select {
		case <-ctx.Done():
			e.logger.Debugw("orientation engine stopped", "dropped", e.Dropped())
			return nil
		case ev := <-e.inbox:
			e.apply(ev)
		case <-expiry:
			e.apply(event{kind: evTick})
		}
	}
}

func (e *Engine) apply(ev event) {
	f := e.core
	switch ev.kind {
	case evHeading:
		f.heading(ev.heading)
	case evAttitude:
		f.attitude(ev.attitude)
	case evHeadLost:
		f.headLost()
	case evLocation:
		f.location(ev.lat, ev.lon)
	case evLock:
		f.setLocked(ev.locked)
		e.logger.Infow("heading lock changed", "locked", f.state.Locked, "reference", f.state.ReferenceHeading)
	case evToggleLock:
		f.setLocked(!f.state.Locked)
		e.logger.Infow("heading lock changed", "locked", f.state.Locked, "reference", f.state.ReferenceHeading)
	case evTick:
		if !f.expire() {
			return
		}
		e.logger.Debug("head tracking timed out")
		f.recompute()
	}

	f.state.Seq++
	f.state.UpdatedAt = e.clk.Now()
	st := f.state
	e.latest.Store(&st)
	e.bcast.Publish(st)
}

func (e *Engine) submit(ev event) bool {
	select {
	case e.inbox <- ev:
		return true
	default:
		if n := e.dropped.Add(1); n%100 == 1 {
			e.logger.Warnw("orientation inbox full, dropping samples", "dropped", n)
		}
		return false
	}
}

func (e *Engine) command(ctx context.Context, ev event) error {
	select {
	case <-e.stopped:
		return ErrStopped
	default:
	}
	select {
	case e.inbox <- ev:
		return nil
	case <-e.stopped:
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

// SubmitHeading queues a compass sample. It returns false if the sample was
// dropped.
func (e *Engine) SubmitHeading(s HeadingSample) bool {
	return e.submit(event{kind: evHeading, heading: s})
}

// SubmitAttitude queues a head attitude sample.
func (e *Engine) SubmitAttitude(a Attitude) bool {
	return e.submit(event{kind: evAttitude, attitude: a})
}

// SubmitLocation queues a listener position.
func (e *Engine) SubmitLocation(lat, lon float64) bool {
	return e.submit(event{kind: evLocation, lat: lat, lon: lon})
}

// HeadLost reports that the head sensor became unavailable.
func (e *Engine) HeadLost(ctx context.Context) error {
	return e.command(ctx, event{kind: evHeadLost})
}

// SetLocked enables or disables heading lock.
func (e *Engine) SetLocked(ctx context.Context, locked bool) error {
	return e.command(ctx, event{kind: evLock, locked: locked})
}

// ToggleLock flips heading lock.
func (e *Engine) ToggleLock(ctx context.Context) error {
	return e.command(ctx, event{kind: evToggleLock})
}

// Latest returns the most recent snapshot. It never blocks on the engine.
func (e *Engine) Latest() State {
	return *e.latest.Load()
}

// Subscribe returns a channel that always holds the latest state.
func (e *Engine) Subscribe() (int, <-chan State) {
	return e.bcast.Subscribe(1)
}

// Unsubscribe stops delivery to a subscription.
func (e *Engine) Unsubscribe(id int) {
	e.bcast.Unsubscribe(id)
}

// Dropped returns how many sensor samples were discarded.
func (e *Engine) Dropped() uint64 {
	return e.dropped.Load()
}
