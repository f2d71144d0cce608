// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package app wires the compass components into the runnable programs.
package app

import "github.com/edaniels/golog"

// NewLogger returns the logger a program runs with.
func NewLogger(name string, debug bool) golog.Logger {
	if debug {
		return golog.NewDebugLogger(name)
	}
	return golog.NewDevelopmentLogger(name)
}
