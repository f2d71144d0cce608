// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/edaniels/golog"

	"github.com/relabs-tech/audio_compass/internal/config"
	"github.com/relabs-tech/audio_compass/internal/gps"
	"github.com/relabs-tech/audio_compass/internal/orientation"
)

func lockLabel(st orientation.State) string {
	if !st.HaveReference {
		return "LOCKED ref=pending"
	}
	return fmt.Sprintf("LOCKED ref=%6.1f°", st.ReferenceHeading)
}

// formatState renders one state message as console lines.
func formatState(msg StateMessage) string {
	st := msg.State
	var b strings.Builder

	if !st.HaveHeading {
		fmt.Fprintf(&b, "[HDG ]  waiting for compass\n")
	} else {
		fmt.Fprintf(&b, "[HDG ]  raw=%6.1f° device=%6.1f° audio=%6.1f° acc=%5.1f°",
			st.RawHeading, st.DeviceHeading, st.CombinedHeading, st.Accuracy)
		if st.CalibrationNeeded {
			b.WriteString("  CALIBRATE")
		}
		b.WriteByte('\n')
	}
	if st.HeadTracking {
		fmt.Fprintf(&b, "[HEAD]  yaw=%6.1f°", st.Head.YawDegrees())
		if st.Locked {
			b.WriteString("  " + lockLabel(st))
		}
		b.WriteByte('\n')
	} else if st.Locked {
		fmt.Fprintf(&b, "[HEAD]  no head sensor  %s\n", lockLabel(st))
	}
	if st.HaveListener {
		fmt.Fprintf(&b, "[GPS ]  lat=%.6f lon=%.6f\n", st.Latitude, st.Longitude)
	}
	for _, s := range msg.Sources {
		fmt.Fprintf(&b, "[SRC ]  %-16s rel=%6.1f°", s.Name, s.Relative)
		if s.Distance > 0 {
			fmt.Fprintf(&b, " dist=%8.0fm", s.Distance)
		}
		if !s.HavePosition {
			b.WriteString(" (unplaced)")
		}
		b.WriteByte('\n')
	}
	ids := make([]string, 0, len(msg.Failed))
	for id := range msg.Failed {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		fmt.Fprintf(&b, "[SRC ]  %-16s FAILED %s\n", id, msg.Failed[id])
	}
	return b.String()
}

// RunConsoleMQTT prints the published compass state and the raw GPS fixes
// until ctx is done.
func RunConsoleMQTT(ctx context.Context, logger golog.Logger) error {
	cfg := config.Get()
	out := os.Stdout

	client, err := connectMQTT(cfg.MQTTBroker, cfg.MQTTClientIDConsole, logger)
	if err != nil {
		return err
	}
	defer client.Disconnect(disconnectQuiesceMS)

	if err := subscribe(client, cfg.TopicState, func(payload []byte) {
		var msg StateMessage
		if err := json.Unmarshal(payload, &msg); err != nil {
			logger.Warnw("state unmarshal error", "error", err)
			return
		}
		fmt.Fprint(out, formatState(msg))
	}); err != nil {
		return err
	}
	logger.Infow("subscribed", "topic", cfg.TopicState)

	if err := subscribe(client, cfg.TopicLocation, func(payload []byte) {
		var f gps.Fix
		if err := json.Unmarshal(payload, &f); err != nil {
			logger.Warnw("gps unmarshal error", "error", err)
			return
		}
		fmt.Fprintf(out,
			"[FIX ]  time=%s date=%s lat=%.6f lon=%.6f speed=%.1fkn course=%.1f° validity=%s sats=%d\n",
			f.Time, f.Date, f.Latitude, f.Longitude, f.SpeedKnots, f.CourseDeg, f.Validity, f.Satellites,
		)
	}); err != nil {
		return err
	}
	logger.Infow("subscribed", "topic", cfg.TopicLocation)

	<-ctx.Done()
	logger.Info("console: shutting down")
	return nil
}
