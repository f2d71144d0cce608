// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package catalog

import (
	"context"
	"path/filepath"
	"time"

	"github.com/bep/debounce"
	"github.com/edaniels/golog"
	"github.com/fsnotify/fsnotify"
	"github.com/pkg/errors"
)

// editors often write a file in several steps
const reloadDelay = 150 * time.Millisecond

// Watcher reloads a catalog file when it changes on disk.
type Watcher struct {
	path       string
	sampleRate int
	logger     golog.Logger
	fs         *fsnotify.Watcher
}

// NewWatcher starts watching the directory holding path. The directory is
// watched rather than the file so that atomic renames are seen. Profiles
// that cannot be synthesized at sampleRate are logged on every reload.
func NewWatcher(path string, sampleRate int, logger golog.Logger) (*Watcher, error) {
	fs, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, errors.Wrap(err, "creating catalog watcher")
	}
	if err := fs.Add(filepath.Dir(path)); err != nil {
		fs.Close()
		return nil, errors.Wrapf(err, "watching %s", filepath.Dir(path))
	}
	return &Watcher{
		path:       filepath.Clean(path),
		sampleRate: sampleRate,
		logger:     logger,
		fs:         fs,
	}, nil
}

// Run calls onChange with every successfully loaded version of the file
// until ctx is done. Edits that do not load are logged and skipped, so the
// previous catalog stays in effect. onChange runs on the Run goroutine.
func (w *Watcher) Run(ctx context.Context, onChange func(*Catalog)) error {
	defer w.fs.Close()

	trigger := make(chan struct{}, 1)
	debounced := debounce.New(reloadDelay)
	poke := func() {
		select {
		case trigger <- struct{}{}:
		default:
		}
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.fs.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != w.path {
				continue
			}
			if ev.Has(fsnotify.Write) || ev.Has(fsnotify.Create) {
				debounced(poke)
			}
		case err, ok := <-w.fs.Errors:
			if !ok {
				return nil
			}
			w.logger.Warnw("catalog watcher error", "error", err)
		case <-trigger:
			c, err := Load(w.path)
			if err != nil {
				w.logger.Warnw("ignoring catalog change", "path", w.path, "error", err)
				continue
			}
			for id, perr := range c.ProfileErrors(w.sampleRate) {
				w.logger.Warnw("profile cannot be synthesized", "profile", id, "error", perr)
			}
			w.logger.Infow("catalog reloaded", "path", w.path, "profiles", len(c.Profiles), "waypoints", len(c.Waypoints))
			onChange(c)
		}
	}
}

// Close stops watching without running.
func (w *Watcher) Close() error {
	return w.fs.Close()
}
