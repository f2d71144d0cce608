// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package orientation

import (
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"go.viam.com/test"

	"github.com/relabs-tech/audio_compass/internal/angle"
)

func unsmoothed(clk clock.Clock) *fusion {
	cfg := DefaultConfig()
	cfg.DeviceSmoothing = 1
	cfg.AudioSmoothing = 1
	return newFusion(cfg, clk)
}

func yaw(deg float64) Attitude {
	return Attitude{Yaw: angle.DegToRad(deg)}
}

func TestFusionDeviceOnly(t *testing.T) {
	f := unsmoothed(clock.NewMock())
	f.heading(HeadingSample{Heading: 90, Accuracy: 5})
	test.That(t, f.state.HaveHeading, test.ShouldBeTrue)
	test.That(t, f.state.DeviceHeading, test.ShouldAlmostEqual, 90)
	test.That(t, f.state.CombinedHeading, test.ShouldAlmostEqual, 90)

	f.heading(HeadingSample{Heading: 450})
	test.That(t, f.state.RawHeading, test.ShouldAlmostEqual, 90)
}

func TestFusionHeadTracking(t *testing.T) {
	f := unsmoothed(clock.NewMock())
	f.heading(HeadingSample{Heading: 90})
	f.attitude(yaw(30))
	test.That(t, f.state.HeadTracking, test.ShouldBeTrue)
	test.That(t, f.state.CombinedHeading, test.ShouldAlmostEqual, 60)

	f.attitude(yaw(-100))
	test.That(t, f.state.CombinedHeading, test.ShouldAlmostEqual, 190)

	f.headLost()
	test.That(t, f.state.HeadTracking, test.ShouldBeFalse)
	test.That(t, f.state.CombinedHeading, test.ShouldAlmostEqual, 90)
}

func TestFusionNormalModeUsesRawHeading(t *testing.T) {
	cfg := DefaultConfig()
	f := newFusion(cfg, clock.NewMock())
	f.heading(HeadingSample{Heading: 0})
	f.heading(HeadingSample{Heading: 90})
	test.That(t, f.state.DeviceHeading, test.ShouldAlmostEqual, 90*cfg.DeviceSmoothing)
	test.That(t, f.state.CombinedHeading, test.ShouldAlmostEqual, 90*cfg.AudioSmoothing)

	// the audio path only sees the audio smoother
	audio := NewSmoother(cfg.AudioSmoothing)
	audio.Reset(f.state.CombinedHeading)
	for _, tc := range []struct {
		heading, yaw float64
		head         bool
	}{
		{90, 30, true},
		{350, 30, true},
		{10, -45, true},
		{10, 0, false},
		{200, 0, false},
	} {
		if tc.head {
			f.attitude(yaw(tc.yaw))
			audio.Update(angle.Normalize(f.state.RawHeading - tc.yaw))
		} else {
			f.headLost()
			audio.Update(f.state.RawHeading)
		}
		f.heading(HeadingSample{Heading: tc.heading})
		want := angle.Normalize(tc.heading - tc.yaw)
		if !tc.head {
			want = tc.heading
		}
		test.That(t, audio.Update(want), test.ShouldAlmostEqual, f.state.CombinedHeading, 1e-9)
	}
}

func TestFusionNoHeadingYet(t *testing.T) {
	f := unsmoothed(clock.NewMock())
	f.attitude(yaw(45))
	test.That(t, f.state.HaveHeading, test.ShouldBeFalse)
	test.That(t, f.state.CombinedHeading, test.ShouldEqual, 0)
}

func TestFusionLockFreezesReference(t *testing.T) {
	f := unsmoothed(clock.NewMock())
	f.heading(HeadingSample{Heading: 90})
	f.attitude(yaw(10))
	f.setLocked(true)

	test.That(t, f.state.Locked, test.ShouldBeTrue)
	test.That(t, f.state.ReferenceHeading, test.ShouldAlmostEqual, 90)
	test.That(t, f.state.LockedYaw, test.ShouldAlmostEqual, 10)
	test.That(t, f.state.CombinedHeading, test.ShouldAlmostEqual, 90)

	f.attitude(yaw(25))
	test.That(t, f.state.CombinedHeading, test.ShouldAlmostEqual, 75)

	// compass movement no longer matters
	f.heading(HeadingSample{Heading: 180})
	test.That(t, f.state.DeviceHeading, test.ShouldAlmostEqual, 180)
	test.That(t, f.state.CombinedHeading, test.ShouldAlmostEqual, 75)

	// locking twice keeps the original reference
	f.setLocked(true)
	test.That(t, f.state.ReferenceHeading, test.ShouldAlmostEqual, 90)

	f.setLocked(false)
	test.That(t, f.state.Locked, test.ShouldBeFalse)
	test.That(t, f.state.HaveLockedYaw, test.ShouldBeFalse)
	test.That(t, f.state.CombinedHeading, test.ShouldAlmostEqual, 155)
}

func TestFusionLockYawDeltaIsNegated(t *testing.T) {
	cfg := DefaultConfig()
	f := newFusion(cfg, clock.NewMock())
	f.heading(HeadingSample{Heading: 300})
	f.attitude(yaw(-20))
	f.setLocked(true)

	prevYaw := -20.0
	prevTarget := f.target()
	for _, y := range []float64{-20, -5, 40, 170, -170, 3, 3, 90} {
		f.attitude(yaw(y))
		got := angle.ShortestDelta(prevTarget, f.target())
		want := -angle.ShortestDelta(prevYaw, y)
		test.That(t, got, test.ShouldAlmostEqual, want, 1e-9)
		prevYaw, prevTarget = y, f.target()
	}
}

func TestFusionLockIdenticalSamplesHoldSteady(t *testing.T) {
	f := newFusion(DefaultConfig(), clock.NewMock())
	f.heading(HeadingSample{Heading: 42})
	f.attitude(yaw(12))
	f.setLocked(true)
	target := f.target()
	test.That(t, target, test.ShouldAlmostEqual, 42)
	for i := 0; i < 60; i++ {
		f.attitude(yaw(12))
		test.That(t, f.target(), test.ShouldAlmostEqual, target)
	}
	test.That(t, f.state.CombinedHeading, test.ShouldAlmostEqual, target, 1e-3)
}

func TestFusionLockAfterSmoothing(t *testing.T) {
	cfg := DefaultConfig()
	f := newFusion(cfg, clock.NewMock())
	f.heading(HeadingSample{Heading: 0})
	f.heading(HeadingSample{Heading: 90})
	device := f.state.DeviceHeading
	combined := f.state.CombinedHeading

	f.setLocked(true)
	test.That(t, f.state.HaveReference, test.ShouldBeTrue)
	test.That(t, f.state.ReferenceHeading, test.ShouldAlmostEqual, device)
	test.That(t, f.state.CombinedHeading, test.ShouldAlmostEqual, combined+(device-combined)*cfg.AudioSmoothing)

	// the compass keeps moving; audio settles on the reference
	prev := f.state.CombinedHeading
	for i := 0; i < 50; i++ {
		f.heading(HeadingSample{Heading: 180})
		test.That(t, f.state.ReferenceHeading, test.ShouldAlmostEqual, device)
		test.That(t, f.state.CombinedHeading, test.ShouldBeGreaterThanOrEqualTo, prev)
		test.That(t, f.state.CombinedHeading, test.ShouldBeLessThanOrEqualTo, device+1e-9)
		prev = f.state.CombinedHeading
	}
	test.That(t, f.state.CombinedHeading, test.ShouldAlmostEqual, device, 1e-2)

	f.attitude(yaw(10))
	test.That(t, f.state.LockedYaw, test.ShouldAlmostEqual, 10)
	test.That(t, f.target(), test.ShouldAlmostEqual, device)
	f.attitude(yaw(40))
	test.That(t, f.target(), test.ShouldAlmostEqual, angle.Normalize(device-30))
}

func TestFusionLockBeforeFirstHeading(t *testing.T) {
	f := newFusion(DefaultConfig(), clock.NewMock())
	f.setLocked(true)
	test.That(t, f.state.Locked, test.ShouldBeTrue)
	test.That(t, f.state.HaveReference, test.ShouldBeFalse)
	test.That(t, f.state.CombinedHeading, test.ShouldEqual, 0)

	f.attitude(yaw(15))
	test.That(t, f.state.HaveLockedYaw, test.ShouldBeFalse)

	// the first compass sample becomes the reference
	f.heading(HeadingSample{Heading: 120})
	test.That(t, f.state.HaveReference, test.ShouldBeTrue)
	test.That(t, f.state.ReferenceHeading, test.ShouldAlmostEqual, 120)
	test.That(t, f.state.LockedYaw, test.ShouldAlmostEqual, 15)
	test.That(t, f.state.CombinedHeading, test.ShouldAlmostEqual, 120)

	f.heading(HeadingSample{Heading: 200})
	test.That(t, f.state.ReferenceHeading, test.ShouldAlmostEqual, 120)

	f.setLocked(false)
	test.That(t, f.state.HaveReference, test.ShouldBeFalse)
}

func TestFusionLockCapturesLaterHead(t *testing.T) {
	f := unsmoothed(clock.NewMock())
	f.heading(HeadingSample{Heading: 200})
	f.setLocked(true)
	test.That(t, f.state.HaveLockedYaw, test.ShouldBeFalse)
	test.That(t, f.state.CombinedHeading, test.ShouldAlmostEqual, 200)

	f.attitude(yaw(50))
	test.That(t, f.state.HaveLockedYaw, test.ShouldBeTrue)
	test.That(t, f.state.LockedYaw, test.ShouldAlmostEqual, 50)
	test.That(t, f.state.CombinedHeading, test.ShouldAlmostEqual, 200)

	f.attitude(yaw(60))
	test.That(t, f.state.CombinedHeading, test.ShouldAlmostEqual, 190)
}

func TestFusionCalibrationFlag(t *testing.T) {
	f := unsmoothed(clock.NewMock())
	for _, tc := range []struct {
		accuracy float64
		needed   bool
	}{
		{5, false},
		{25, false},
		{25.1, true},
		{-1, true},
		{0, false},
	} {
		f.heading(HeadingSample{Heading: 10, Accuracy: tc.accuracy})
		test.That(t, f.state.CalibrationNeeded, test.ShouldEqual, tc.needed)
		test.That(t, f.state.Accuracy, test.ShouldEqual, tc.accuracy)
	}
}

func TestFusionHeadTimeout(t *testing.T) {
	clk := clock.NewMock()
	f := unsmoothed(clk)
	f.heading(HeadingSample{Heading: 100})
	f.attitude(yaw(20))
	test.That(t, f.state.CombinedHeading, test.ShouldAlmostEqual, 80)

	clk.Add(400 * time.Millisecond)
	test.That(t, f.expire(), test.ShouldBeFalse)

	clk.Add(200 * time.Millisecond)
	test.That(t, f.expire(), test.ShouldBeTrue)
	f.recompute()
	test.That(t, f.state.HeadTracking, test.ShouldBeFalse)
	test.That(t, f.state.CombinedHeading, test.ShouldAlmostEqual, 100)

	// a stale head is also dropped by the next compass sample
	f.attitude(yaw(20))
	clk.Add(time.Second)
	f.heading(HeadingSample{Heading: 100})
	test.That(t, f.state.HeadTracking, test.ShouldBeFalse)
	test.That(t, f.state.CombinedHeading, test.ShouldAlmostEqual, 100)
}

func TestStateListener(t *testing.T) {
	var st State
	test.That(t, st.Listener(), test.ShouldBeNil)

	f := unsmoothed(clock.NewMock())
	f.location(48.85, 2.35)
	p := f.state.Listener()
	test.That(t, p, test.ShouldNotBeNil)
	test.That(t, p.Lat(), test.ShouldAlmostEqual, 48.85)
	test.That(t, p.Lng(), test.ShouldAlmostEqual, 2.35)
}
