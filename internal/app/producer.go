// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"context"

	"github.com/benbjohnson/clock"
	"github.com/edaniels/golog"

	"github.com/relabs-tech/audio_compass/internal/config"
	"github.com/relabs-tech/audio_compass/internal/orientation"
)

// readingMessages converts a sensor reading into the heading and head
// payloads. head is nil when the reading has no attitude.
func readingMessages(r orientation.Reading) (HeadingMessage, *HeadMessage) {
	heading := r.Heading.Heading
	accuracy := r.Heading.Accuracy
	hm := HeadingMessage{Heading: &heading, Accuracy: &accuracy}
	if !r.HaveAttitude {
		return hm, nil
	}
	return hm, &HeadMessage{Yaw: r.Attitude.Yaw, Pitch: r.Attitude.Pitch, Roll: r.Attitude.Roll}
}

// RunProducer publishes mock heading and head attitude samples until ctx
// is done.
func RunProducer(ctx context.Context, logger golog.Logger) error {
	cfg := config.Get()
	clk := clock.New()

	client, err := connectMQTT(cfg.MQTTBroker, cfg.MQTTClientIDProducer, logger)
	if err != nil {
		return err
	}
	defer client.Disconnect(disconnectQuiesceMS)

	src := orientation.NewMockSource(clk)
	ticker := clk.Ticker(cfg.ProducerInterval())
	defer ticker.Stop()

	logger.Infow("mock producer started", "interval", cfg.ProducerInterval())
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}

		reading, err := src.Next()
		if err != nil {
			logger.Warnw("mock source error", "error", err)
			continue
		}
		heading, head := readingMessages(reading)
		if err := publishJSON(client, cfg.TopicHeading, false, heading); err != nil {
			logger.Warnw("heading publish failed", "error", err)
			continue
		}
		if head != nil {
			if err := publishJSON(client, cfg.TopicHeadAttitude, false, head); err != nil {
				logger.Warnw("head publish failed", "error", err)
				continue
			}
		}
		logger.Debugw("published sample", "heading", reading.Heading.Heading, "yaw", reading.Attitude.Yaw)
	}
}
