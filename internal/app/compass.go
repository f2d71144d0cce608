// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"context"
	"os"
	"time"

	"github.com/benbjohnson/clock"
	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/edaniels/golog"
	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"github.com/relabs-tech/audio_compass/internal/catalog"
	"github.com/relabs-tech/audio_compass/internal/config"
	"github.com/relabs-tech/audio_compass/internal/orientation"
	"github.com/relabs-tech/audio_compass/internal/render"
	"github.com/relabs-tech/audio_compass/internal/spatial"
)

const (
	captureChunk = 100 * time.Millisecond
	closeTimeout = 2 * time.Second
)

// snapshot builds the published view of the engine and the sources.
func snapshot(engine *orientation.Engine, manager *spatial.Manager) StateMessage {
	msg := StateMessage{
		State:   engine.Latest(),
		Sources: manager.Sources(),
		Dropped: engine.Dropped(),
	}
	for id, err := range manager.Failures() {
		if msg.Failed == nil {
			msg.Failed = map[string]string{}
		}
		msg.Failed[id] = err.Error()
	}
	return msg
}

// backend is a renderer plus whatever has to run alongside it.
type backend struct {
	renderer spatial.Renderer
	run      func(ctx context.Context) error
}

func newBackend(cfg *config.Config, clk clock.Clock, logger golog.Logger) (*backend, error) {
	switch cfg.RenderBackend {
	case config.BackendWAV:
		f, err := os.Create(cfg.RenderWAVPath)
		if err != nil {
			return nil, errors.Wrap(err, "creating render capture")
		}
		mixer := render.NewMixer(cfg.SampleRate, logger)
		capture := render.NewCapture(f, mixer, cfg.SampleRate)
		logger.Infow("rendering to wav", "path", cfg.RenderWAVPath, "sample_rate", cfg.SampleRate)
		return &backend{
			renderer: mixer,
			run: func(ctx context.Context) error {
				return capture.Run(ctx, clk, captureChunk)
			},
		}, nil
	default:
		return &backend{renderer: render.NewRecorder(logger)}, nil
	}
}

// loadCatalog loads the catalog and warns about profiles that cannot be
// synthesized; their sources are skipped, the rest play.
func loadCatalog(path string, sampleRate int, logger golog.Logger) (*catalog.Catalog, error) {
	cat, err := catalog.LoadOrDefault(path)
	if err != nil {
		return nil, err
	}
	for id, perr := range cat.ProfileErrors(sampleRate) {
		logger.Warnw("profile cannot be synthesized", "profile", id, "error", perr)
	}
	return cat, nil
}

func logFailures(logger golog.Logger, report spatial.Report) {
	for id, err := range report.Failed {
		logger.Warnw("source skipped", "id", id, "error", err)
	}
}

// RunCompass runs the fusion engine and the spatial audio sources, fed by
// the sensor topics, until ctx is done. The catalog file is reloaded when
// it changes and the fused state is published on the state topic.
func RunCompass(ctx context.Context, logger golog.Logger) error {
	cfg := config.Get()
	clk := clock.New()

	cat, err := loadCatalog(cfg.CatalogPath, cfg.SampleRate, logger)
	if err != nil {
		return err
	}

	engine := orientation.NewEngine(cfg.Fusion(), clk, logger.Named("fusion"))
	be, err := newBackend(cfg, clk, logger.Named("render"))
	if err != nil {
		return err
	}
	manager := spatial.NewManager(cfg.Spatial(), be.renderer, clk, logger.Named("spatial"))
	logFailures(logger, manager.Reconcile(ctx, cat.Targets()))

	client, err := connectMQTT(cfg.MQTTBroker, cfg.MQTTClientIDCompass, logger)
	if err != nil {
		return err
	}
	defer client.Disconnect(disconnectQuiesceMS)

	if err := NewBridge(engine, clk, logger.Named("bridge")).Subscribe(client, cfg); err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return engine.Run(gctx)
	})
	g.Go(func() error {
		return manager.Run(gctx, engine)
	})
	g.Go(func() error {
		return publishStates(gctx, client, cfg.TopicState, cfg.StatePublishInterval(), clk, engine, manager, logger)
	})
	if be.run != nil {
		g.Go(func() error {
			return be.run(gctx)
		})
	}

	watcher, err := catalog.NewWatcher(cfg.CatalogPath, cfg.SampleRate, logger.Named("catalog"))
	if err != nil {
		logger.Warnw("catalog changes will not be picked up", "error", err)
	} else {
		g.Go(func() error {
			return watcher.Run(gctx, func(c *catalog.Catalog) {
				logFailures(logger, manager.Reconcile(gctx, c.Targets()))
			})
		})
	}

	logger.Infow("audio compass running", "sources", manager.Len(), "backend", cfg.RenderBackend)
	err = g.Wait()

	closeCtx, cancel := context.WithTimeout(context.Background(), closeTimeout)
	defer cancel()
	manager.Close(closeCtx)
	logger.Info("audio compass stopped")
	return err
}

// publishStates publishes the state whenever it changed since the last
// tick. The message is retained so late subscribers see the latest state.
func publishStates(
	ctx context.Context,
	client mqtt.Client,
	topic string,
	interval time.Duration,
	clk clock.Clock,
	engine *orientation.Engine,
	manager *spatial.Manager,
	logger golog.Logger,
) error {
	ticker := clk.Ticker(interval)
	defer ticker.Stop()

	var lastSeq uint64
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			msg := snapshot(engine, manager)
			if msg.State.Seq == lastSeq {
				continue
			}
			lastSeq = msg.State.Seq
			if err := publishJSON(client, topic, true, msg); err != nil {
				logger.Warnw("state publish failed", "error", err)
			}
		}
	}
}
