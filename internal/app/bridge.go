// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"context"
	"time"

	"github.com/benbjohnson/clock"
	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/edaniels/golog"

	"github.com/relabs-tech/audio_compass/internal/config"
	"github.com/relabs-tech/audio_compass/internal/orientation"
)

const commandTimeout = time.Second

// SensorSink is the part of the orientation engine the bridge feeds.
type SensorSink interface {
	SubmitHeading(s orientation.HeadingSample) bool
	SubmitAttitude(a orientation.Attitude) bool
	SubmitLocation(lat, lon float64) bool
	HeadLost(ctx context.Context) error
	SetLocked(ctx context.Context, locked bool) error
	ToggleLock(ctx context.Context) error
}

// Bridge turns MQTT payloads into engine events. Handlers only decode and
// hand off; malformed payloads are logged and dropped.
type Bridge struct {
	sink   SensorSink
	clk    clock.Clock
	logger golog.Logger
}

// NewBridge returns a bridge feeding sink.
func NewBridge(sink SensorSink, clk clock.Clock, logger golog.Logger) *Bridge {
	if clk == nil {
		clk = clock.New()
	}
	return &Bridge{sink: sink, clk: clk, logger: logger}
}

// Subscribe registers the sensor and command topics. Empty topic names are
// skipped.
func (b *Bridge) Subscribe(client mqtt.Client, cfg *config.Config) error {
	topics := []struct {
		topic   string
		handler func([]byte)
	}{
		{cfg.TopicHeading, b.HandleHeading},
		{cfg.TopicHeadAttitude, b.HandleHead},
		{cfg.TopicLocation, b.HandleLocation},
		{cfg.TopicIMURaw, b.HandleIMU},
		{cfg.TopicLock, b.HandleLock},
	}
	for _, t := range topics {
		if t.topic == "" {
			continue
		}
		if err := subscribe(client, t.topic, t.handler); err != nil {
			return err
		}
		b.logger.Infow("subscribed", "topic", t.topic)
	}
	return nil
}

// HandleHeading handles a compass heading payload.
func (b *Bridge) HandleHeading(payload []byte) {
	s, err := DecodeHeading(payload, b.clk.Now())
	if err != nil {
		b.logger.Warnw("dropping heading", "error", err)
		return
	}
	b.sink.SubmitHeading(s)
}

// HandleHead handles a head attitude payload.
func (b *Bridge) HandleHead(payload []byte) {
	att, lost, err := DecodeHead(payload, b.clk.Now())
	if err != nil {
		b.logger.Warnw("dropping head attitude", "error", err)
		return
	}
	if lost {
		b.command("head lost", b.sink.HeadLost)
		return
	}
	b.sink.SubmitAttitude(att)
}

// HandleLocation handles a GPS fix payload. Void fixes leave the listener
// where it was.
func (b *Bridge) HandleLocation(payload []byte) {
	fix, ok, err := DecodeFix(payload)
	if err != nil {
		b.logger.Warnw("dropping gps fix", "error", err)
		return
	}
	if !ok {
		b.logger.Debugw("ignoring void gps fix", "validity", fix.Validity)
		return
	}
	b.sink.SubmitLocation(fix.Latitude, fix.Longitude)
}

// HandleIMU handles a raw IMU payload carrying magnetometer data.
func (b *Bridge) HandleIMU(payload []byte) {
	s, ok, err := DecodeIMU(payload, b.clk.Now())
	if err != nil {
		b.logger.Warnw("dropping imu sample", "error", err)
		return
	}
	if ok {
		b.sink.SubmitHeading(s)
	}
}

// HandleLock handles a lock command.
func (b *Bridge) HandleLock(payload []byte) {
	locked, err := DecodeLock(payload)
	if err != nil {
		b.logger.Warnw("dropping lock command", "error", err)
		return
	}
	if locked == nil {
		b.command("toggle lock", b.sink.ToggleLock)
		return
	}
	want := *locked
	b.command("set lock", func(ctx context.Context) error {
		return b.sink.SetLocked(ctx, want)
	})
}

func (b *Bridge) command(name string, fn func(context.Context) error) {
	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()
	if err := fn(ctx); err != nil {
		b.logger.Warnw("command failed", "command", name, "error", err)
	}
}
