// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/edaniels/golog"
	"golang.org/x/sync/errgroup"

	"github.com/relabs-tech/audio_compass/internal/catalog"
	"github.com/relabs-tech/audio_compass/internal/config"
	"github.com/relabs-tech/audio_compass/internal/orientation"
	"github.com/relabs-tech/audio_compass/internal/render"
	"github.com/relabs-tech/audio_compass/internal/spatial"
)

const consolePrintInterval = 500 * time.Millisecond

// RunMockConsole runs the whole pipeline in process on the mock source,
// with a recording renderer, and prints the state until ctx is done.
func RunMockConsole(ctx context.Context, logger golog.Logger) error {
	cfg := config.Get()
	cat, err := loadCatalog(cfg.CatalogPath, cfg.SampleRate, logger)
	if err != nil {
		return err
	}
	clk := clock.New()
	return runLocal(ctx, cfg, cat, orientation.NewMockSource(clk), clk, os.Stdout, logger)
}

// runLocal feeds src into an engine at the producer interval and prints a
// snapshot of engine and sources at the console interval.
func runLocal(
	ctx context.Context,
	cfg *config.Config,
	cat *catalog.Catalog,
	src orientation.Source,
	clk clock.Clock,
	out io.Writer,
	logger golog.Logger,
) error {
	engine := orientation.NewEngine(cfg.Fusion(), clk, logger.Named("fusion"))
	manager := spatial.NewManager(cfg.Spatial(), render.NewRecorder(nil), clk, logger.Named("spatial"))
	logFailures(logger, manager.Reconcile(ctx, cat.Targets()))

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return engine.Run(gctx)
	})
	g.Go(func() error {
		return manager.Run(gctx, engine)
	})
	g.Go(func() error {
		ticker := clk.Ticker(cfg.ProducerInterval())
		defer ticker.Stop()
		for {
			select {
			case <-gctx.Done():
				return nil
			case <-ticker.C:
			}
			r, err := src.Next()
			if err != nil {
				return err
			}
			engine.SubmitHeading(r.Heading)
			if r.HaveAttitude {
				engine.SubmitAttitude(r.Attitude)
			}
		}
	})
	g.Go(func() error {
		ticker := clk.Ticker(consolePrintInterval)
		defer ticker.Stop()
		for {
			select {
			case <-gctx.Done():
				return nil
			case <-ticker.C:
				fmt.Fprint(out, formatState(snapshot(engine, manager)))
			}
		}
	})

	err := g.Wait()
	manager.Close(context.Background())
	return err
}
