// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"bufio"
	"context"
	"io"

	"github.com/edaniels/golog"
	"github.com/jacobsa/go-serial/serial"
	"github.com/pkg/errors"

	"github.com/relabs-tech/audio_compass/internal/config"
	"github.com/relabs-tech/audio_compass/internal/gps"
)

// RunGPSProducer opens the GPS serial port, parses NMEA sentences, and
// publishes each RMC fix as JSON on the location topic.
func RunGPSProducer(ctx context.Context, logger golog.Logger) error {
	cfg := config.Get()

	client, err := connectMQTT(cfg.MQTTBroker, cfg.MQTTClientIDGPS, logger)
	if err != nil {
		return err
	}
	defer client.Disconnect(disconnectQuiesceMS)

	serialOpts := serial.OpenOptions{
		PortName:              cfg.GPSSerialPort,
		BaudRate:              uint(cfg.GPSBaudRate),
		DataBits:              8,
		StopBits:              1,
		MinimumReadSize:       1,
		ParityMode:            serial.PARITY_NONE,
		InterCharacterTimeout: 0,
	}
	port, err := serial.Open(serialOpts)
	if err != nil {
		return errors.Wrapf(err, "opening gps port %s", cfg.GPSSerialPort)
	}
	logger.Infow("gps serial port opened", "port", serialOpts.PortName, "baud", serialOpts.BaudRate)

	// the blocking read only returns once the port is closed
	go func() {
		<-ctx.Done()
		port.Close()
	}()

	err = readFixes(port, logger, func(fix gps.Fix) {
		if err := publishJSON(client, cfg.TopicLocation, true, fix); err != nil {
			logger.Warnw("gps publish failed", "error", err)
			return
		}
		logger.Debugw("published gps fix", "lat", fix.Latitude, "lon", fix.Longitude, "validity", fix.Validity)
	})
	if ctx.Err() != nil {
		return nil
	}
	return err
}

// readFixes feeds lines from r to an NMEA parser and calls publish for
// every completed fix until r fails.
func readFixes(r io.Reader, logger golog.Logger, publish func(gps.Fix)) error {
	reader := bufio.NewReader(r)
	parser := gps.NewParser()
	for {
		line, err := reader.ReadString('\n')
		if line != "" {
			fix, ok, perr := parser.Feed(line)
			switch {
			case perr != nil:
				// noisy receivers send partial sentences
				logger.Debugw("nmea parse error", "error", perr)
			case ok:
				publish(fix)
			}
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return errors.Wrap(err, "reading gps port")
		}
	}
}
