// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package tonegen is the offline catalog and tone tool.
package tonegen

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/edaniels/golog"
	geo "github.com/kellydunn/golang-geo"
	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"
	"go.uber.org/multierr"

	"github.com/relabs-tech/audio_compass/internal/catalog"
	"github.com/relabs-tech/audio_compass/internal/render"
	"github.com/relabs-tech/audio_compass/internal/spatial"
	"github.com/relabs-tech/audio_compass/internal/tone"
)

const (
	flagCatalog = "catalog"
	flagRate    = "rate"
	flagDebug   = "debug"
	flagOut     = "out"
	flagForce   = "force"
	flagProfile = "profile"
	flagHeading = "heading"
	flagLat     = "lat"
	flagLon     = "lon"
	flagLength  = "length"
	flagName    = "name"
)

// NewApp returns the tonegen command line application writing to out.
func NewApp(out io.Writer) *cli.App {
	return &cli.App{
		Name:            "tonegen",
		Usage:           "manage the audio compass catalog and render its tones",
		HideHelpCommand: true,
		Writer:          out,
		ErrWriter:       out,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    flagCatalog,
				Aliases: []string{"c"},
				Value:   "catalog.toml",
				Usage:   "catalog `FILE`",
			},
			&cli.IntFlag{
				Name:  flagRate,
				Value: tone.DefaultSampleRate,
				Usage: "sample rate in Hz",
			},
			&cli.BoolFlag{
				Name:  flagDebug,
				Usage: "enable debug logging",
			},
		},
		Commands: []*cli.Command{
			{
				Name:   "init",
				Usage:  "write the built-in catalog",
				Flags:  []cli.Flag{&cli.BoolFlag{Name: flagForce, Usage: "overwrite an existing catalog"}},
				Action: InitAction,
			},
			{
				Name:   "list",
				Usage:  "list profiles and waypoints",
				Action: ListAction,
			},
			{
				Name:  "render",
				Usage: "render one loop of a profile",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: flagProfile, Aliases: []string{"p"}, Value: tone.DefaultID, Usage: "profile `ID`"},
					outFlag(),
				},
				Action: RenderAction,
			},
			{
				Name:  "preview",
				Usage: "mix every enabled source for a fixed heading and location",
				Flags: []cli.Flag{
					&cli.Float64Flag{Name: flagHeading, Usage: "listener heading in degrees"},
					&cli.Float64Flag{Name: flagLat, Usage: "listener latitude"},
					&cli.Float64Flag{Name: flagLon, Usage: "listener longitude"},
					&cli.DurationFlag{Name: flagLength, Value: 4 * time.Second, Usage: "length of the preview"},
					outFlag(),
				},
				Action: PreviewAction,
			},
			{
				Name:            "waypoint",
				Usage:           "edit waypoints",
				HideHelpCommand: true,
				Subcommands: []*cli.Command{
					{
						Name:  "add",
						Usage: "add an enabled waypoint",
						Flags: []cli.Flag{
							&cli.StringFlag{Name: flagName, Required: true},
							&cli.Float64Flag{Name: flagLat, Required: true},
							&cli.Float64Flag{Name: flagLon, Required: true},
							&cli.StringFlag{Name: flagProfile, Value: tone.DefaultID},
						},
						Action: AddWaypointAction,
					},
					{
						Name:      "enable",
						ArgsUsage: "<id>",
						Action:    func(c *cli.Context) error { return setEnabled(c, true) },
					},
					{
						Name:      "disable",
						ArgsUsage: "<id>",
						Action:    func(c *cli.Context) error { return setEnabled(c, false) },
					},
				},
			},
		},
	}
}

func outFlag() cli.Flag {
	return &cli.StringFlag{
		Name:     flagOut,
		Aliases:  []string{"o"},
		Usage:    "write the WAV to `FILE`",
		Required: true,
	}
}

func logger(c *cli.Context) golog.Logger {
	if c.Bool(flagDebug) {
		return golog.NewDebugLogger("tonegen")
	}
	return golog.NewDevelopmentLogger("tonegen")
}

func loadCatalog(c *cli.Context) (*catalog.Catalog, error) {
	return catalog.LoadOrDefault(c.String(flagCatalog))
}

// InitAction writes the built-in catalog.
func InitAction(c *cli.Context) error {
	path := c.String(flagCatalog)
	if _, err := os.Stat(path); err == nil && !c.Bool(flagForce) {
		return errors.Errorf("%s already exists, use --%s to overwrite", path, flagForce)
	}
	if err := catalog.Default().Save(path); err != nil {
		return err
	}
	fmt.Fprintf(c.App.Writer, "wrote %s\n", path)
	return nil
}

// ListAction prints the catalog.
func ListAction(c *cli.Context) error {
	cat, err := loadCatalog(c)
	if err != nil {
		return err
	}
	w := c.App.Writer
	fmt.Fprintf(w, "north: enabled=%t profile=%s\n", cat.North.Enabled, cat.North.ProfileID)
	fmt.Fprintln(w, "profiles:")
	invalid := cat.ProfileErrors(c.Int(flagRate))
	for _, p := range cat.Profiles {
		fmt.Fprintf(w, "\t%-12s %-14s %7.1f Hz every %.2fs (loop %.2fs)\n",
			p.ID, p.Name, p.Frequency, p.PingInterval, tone.LoopDuration(p))
		if err, bad := invalid[p.ID]; bad {
			fmt.Fprintf(w, "\t\tunusable: %s\n", err)
		}
		for _, warn := range p.Warnings() {
			fmt.Fprintf(w, "\t\twarning: %s\n", warn)
		}
	}
	fmt.Fprintln(w, "waypoints:")
	for _, wp := range cat.Waypoints {
		state := "off"
		if wp.Enabled {
			state = "on"
		}
		fmt.Fprintf(w, "\t%s %-3s %-20s %.6f,%.6f profile=%s\n",
			wp.ID, state, wp.Name, wp.Latitude, wp.Longitude, cat.ResolveProfile(wp.ProfileID).ID)
	}
	return nil
}

// RenderAction writes one loop of a profile.
func RenderAction(c *cli.Context) (err error) {
	cat, err := loadCatalog(c)
	if err != nil {
		return err
	}
	p, err := cat.Profile(c.String(flagProfile))
	if err != nil {
		return err
	}
	buf, err := tone.Synthesize(p, c.Int(flagRate))
	if err != nil {
		return err
	}

	f, err := os.Create(c.String(flagOut))
	if err != nil {
		return errors.Wrap(err, "creating output")
	}
	defer func() {
		err = multierr.Combine(err, f.Close())
	}()
	if err := tone.WriteWAV(f, buf); err != nil {
		return err
	}
	fmt.Fprintf(c.App.Writer, "rendered %s (%s) to %s\n", p.Name, buf.Duration(), c.String(flagOut))
	return nil
}

// PreviewAction mixes the enabled sources as heard at one heading.
func PreviewAction(c *cli.Context) error {
	cat, err := loadCatalog(c)
	if err != nil {
		return err
	}
	var listener *geo.Point
	if c.IsSet(flagLat) != c.IsSet(flagLon) {
		return errors.Errorf("--%s and --%s go together", flagLat, flagLon)
	}
	if c.IsSet(flagLat) {
		listener = geo.NewPoint(c.Float64(flagLat), c.Float64(flagLon))
	}

	rate := c.Int(flagRate)
	log := logger(c)
	mixer := render.NewMixer(rate, log)
	cfg := spatial.DefaultConfig()
	cfg.SampleRate = rate
	manager := spatial.NewManager(cfg, mixer, nil, log)

	ctx := context.Background()
	report := manager.Reconcile(ctx, cat.Targets())
	defer manager.Close(ctx)
	for id, ferr := range report.Failed {
		log.Warnw("source skipped", "id", id, "error", ferr)
	}
	manager.UpdatePositions(c.Float64(flagHeading), listener)

	f, err := os.Create(c.String(flagOut))
	if err != nil {
		return errors.Wrap(err, "creating output")
	}
	capture := render.NewCapture(f, mixer, rate)
	err = capture.WriteDuration(c.Duration(flagLength))
	if cerr := capture.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return err
	}

	names := make([]string, 0, manager.Len())
	for _, s := range manager.Sources() {
		names = append(names, fmt.Sprintf("%s@%.0f°", s.Name, s.Relative))
	}
	fmt.Fprintf(c.App.Writer, "previewed %s to %s\n", strings.Join(names, ", "), c.String(flagOut))
	return nil
}

// AddWaypointAction adds a waypoint and saves the catalog.
func AddWaypointAction(c *cli.Context) error {
	cat, err := loadCatalog(c)
	if err != nil {
		return err
	}
	wp := cat.AddWaypoint(c.String(flagName), c.Float64(flagLat), c.Float64(flagLon), c.String(flagProfile))
	if err := cat.Validate(); err != nil {
		return err
	}
	if err := cat.Save(c.String(flagCatalog)); err != nil {
		return err
	}
	fmt.Fprintf(c.App.Writer, "added %s (%s)\n", wp.Name, wp.ID)
	return nil
}

func setEnabled(c *cli.Context, enabled bool) error {
	if c.Args().Len() != 1 {
		return errors.New("expected exactly one waypoint id")
	}
	cat, err := loadCatalog(c)
	if err != nil {
		return err
	}
	if err := cat.SetEnabled(c.Args().First(), enabled); err != nil {
		return err
	}
	return cat.Save(c.String(flagCatalog))
}
