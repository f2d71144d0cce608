// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package spatial

import (
	"context"

	"github.com/relabs-tech/audio_compass/internal/orientation"
)

// StateReader exposes the latest fused orientation.
type StateReader interface {
	Latest() orientation.State
}

// Run updates source positions at the configured frame interval until ctx
// is done. Only the latest state is read at each tick; states that arrived
// in between are skipped, and a tick with no new state does nothing.
func (m *Manager) Run(ctx context.Context, states StateReader) error {
	ticker := m.clk.Ticker(m.cfg.FrameInterval)
	defer ticker.Stop()

	m.logger.Debugw("frame loop started", "interval", m.cfg.FrameInterval)
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			m.Frame(states.Latest())
		}
	}
}

// Frame applies one state if it is newer than the last one applied. It
// reports whether positions were updated.
func (m *Manager) Frame(st orientation.State) bool {
	m.mu.Lock()
	if st.Seq == m.lastSeq || !st.HaveHeading {
		m.mu.Unlock()
		return false
	}
	m.lastSeq = st.Seq
	m.mu.Unlock()

	m.UpdatePositions(st.CombinedHeading, st.Listener())
	return true
}

// Frames returns how many position updates have been applied.
func (m *Manager) Frames() uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.frameUpdates
}
