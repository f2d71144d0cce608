// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package orientation

import (
	"context"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/edaniels/golog"
	"github.com/pkg/errors"
	"go.viam.com/test"
)

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("timed out waiting for engine")
		}
		time.Sleep(time.Millisecond)
	}
}

func startEngine(t *testing.T, cfg Config, clk clock.Clock) (*Engine, func()) {
	t.Helper()
	e := NewEngine(cfg, clk, golog.NewTestLogger(t))
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- e.Run(ctx) }()
	return e, func() {
		cancel()
		test.That(t, <-done, test.ShouldBeNil)
	}
}

func TestEngineAppliesInOrder(t *testing.T) {
	cfg := DefaultConfig()
	cfg.DeviceSmoothing = 1
	cfg.AudioSmoothing = 1
	e, stop := startEngine(t, cfg, clock.NewMock())
	defer stop()

	test.That(t, e.Latest().Seq, test.ShouldEqual, 0)
	for _, h := range []float64{10, 20, 30} {
		test.That(t, e.SubmitHeading(HeadingSample{Heading: h}), test.ShouldBeTrue)
	}
	test.That(t, e.SubmitLocation(1, 2), test.ShouldBeTrue)
	waitFor(t, func() bool { return e.Latest().Seq == 4 })

	st := e.Latest()
	test.That(t, st.CombinedHeading, test.ShouldAlmostEqual, 30)
	test.That(t, st.HaveListener, test.ShouldBeTrue)
	test.That(t, e.Dropped(), test.ShouldEqual, 0)
}

func TestEngineLockCommands(t *testing.T) {
	cfg := DefaultConfig()
	cfg.DeviceSmoothing = 1
	cfg.AudioSmoothing = 1
	e, stop := startEngine(t, cfg, clock.NewMock())
	defer stop()

	ctx := context.Background()
	e.SubmitHeading(HeadingSample{Heading: 45})
	test.That(t, e.SetLocked(ctx, true), test.ShouldBeNil)
	waitFor(t, func() bool { return e.Latest().Seq == 2 })
	test.That(t, e.Latest().Locked, test.ShouldBeTrue)
	test.That(t, e.Latest().ReferenceHeading, test.ShouldAlmostEqual, 45)

	test.That(t, e.ToggleLock(ctx), test.ShouldBeNil)
	waitFor(t, func() bool { return e.Latest().Seq == 3 })
	test.That(t, e.Latest().Locked, test.ShouldBeFalse)
}

func TestEngineSubscribe(t *testing.T) {
	e, stop := startEngine(t, DefaultConfig(), clock.NewMock())
	defer stop()

	id, ch := e.Subscribe()
	defer e.Unsubscribe(id)

	e.SubmitHeading(HeadingSample{Heading: 270, Accuracy: 40})
	select {
	case st := <-ch:
		test.That(t, st.Seq, test.ShouldEqual, 1)
		test.That(t, st.CalibrationNeeded, test.ShouldBeTrue)
	case <-time.After(2 * time.Second):
		t.Fatal("no state delivered")
	}
}

func TestEngineDropsWhenFull(t *testing.T) {
	cfg := DefaultConfig()
	cfg.InboxSize = 2
	e := NewEngine(cfg, clock.NewMock(), golog.NewTestLogger(t))

	test.That(t, e.SubmitHeading(HeadingSample{Heading: 1}), test.ShouldBeTrue)
	test.That(t, e.SubmitAttitude(Attitude{}), test.ShouldBeTrue)
	test.That(t, e.SubmitHeading(HeadingSample{Heading: 3}), test.ShouldBeFalse)
	test.That(t, e.Dropped(), test.ShouldEqual, 1)

	// commands wait for room instead of dropping
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err := e.SetLocked(ctx, true)
	test.That(t, errors.Is(err, context.DeadlineExceeded), test.ShouldBeTrue)
}

func TestEngineStopped(t *testing.T) {
	e := NewEngine(DefaultConfig(), clock.NewMock(), golog.NewTestLogger(t))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	test.That(t, e.Run(ctx), test.ShouldBeNil)

	test.That(t, e.SetLocked(context.Background(), true), test.ShouldEqual, ErrStopped)
	test.That(t, e.Run(context.Background()), test.ShouldNotBeNil)
}

func TestEngineHeadTimeout(t *testing.T) {
	clk := clock.NewMock()
	cfg := DefaultConfig()
	cfg.DeviceSmoothing = 1
	cfg.AudioSmoothing = 1
	e, stop := startEngine(t, cfg, clk)
	defer stop()

	e.SubmitHeading(HeadingSample{Heading: 100})
	e.SubmitAttitude(yaw(20))
	waitFor(t, func() bool { return e.Latest().Seq == 2 })
	test.That(t, e.Latest().HeadTracking, test.ShouldBeTrue)
	test.That(t, e.Latest().CombinedHeading, test.ShouldAlmostEqual, 80)

	clk.Add(time.Second)
	waitFor(t, func() bool { return !e.Latest().HeadTracking })
	test.That(t, e.Latest().CombinedHeading, test.ShouldAlmostEqual, 100)
}

func TestEngineSubscribeAfterStop(t *testing.T) {
	e, stop := startEngine(t, DefaultConfig(), clock.NewMock())
	e.SubmitHeading(HeadingSample{Heading: 10})
	waitFor(t, func() bool { return e.Latest().Seq == 1 })
	stop()

	_, ch := e.Subscribe()
	select {
	case st, ok := <-ch:
		test.That(t, ok, test.ShouldBeTrue)
		test.That(t, st.Seq, test.ShouldEqual, 1)
	case <-time.After(time.Second):
		t.Fatal("last state not delivered")
	}
	select {
	case _, ok := <-ch:
		test.That(t, ok, test.ShouldBeFalse)
	case <-time.After(time.Second):
		t.Fatal("subscription after stop left open")
	}
}
