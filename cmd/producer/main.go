// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/edaniels/golog"

	"github.com/relabs-tech/audio_compass/internal/app"
	"github.com/relabs-tech/audio_compass/internal/config"
)

func main() {
	configPath := flag.String("config", "./compass_config.txt", "path to configuration file")
	flag.Parse()

	logger := golog.NewDevelopmentLogger("producer")
	if err := config.InitGlobal(*configPath); err != nil {
		logger.Fatalw("failed to load config", "path", *configPath, "error", err)
	}
	logger = app.NewLogger("producer", config.Get().LogDebug)
	logger.Info("starting mock heading producer (mock → MQTT)")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := app.RunProducer(ctx, logger); err != nil {
		logger.Fatalw("fatal", "error", err)
	}
}
