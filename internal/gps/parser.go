// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package gps

import (
	"strings"

	nmea "github.com/adrianmo/go-nmea"
	"github.com/pkg/errors"
)

// Parser accumulates NMEA sentences into fixes. RMC completes a fix; GGA
// only refreshes the quality fields carried into the next one.
type Parser struct {
	current Fix
}

// NewParser returns an empty parser.
func NewParser() *Parser {
	return &Parser{}
}

// Feed parses one line. It returns the updated fix and true when the line
// was an RMC sentence. Lines that are not NMEA sentences are ignored
// without error.
func (p *Parser) Feed(line string) (Fix, bool, error) {
	line = strings.TrimSpace(line)
	if line == "" || !strings.HasPrefix(line, "$") {
		return Fix{}, false, nil
	}

	sentence, err := nmea.Parse(line)
	if err != nil {
		return Fix{}, false, errors.Wrapf(err, "parsing %q", line)
	}

	switch m := sentence.(type) {
	case nmea.RMC:
		p.current.Time = m.Time.String()
		p.current.Date = m.Date.String()
		p.current.Latitude = m.Latitude
		p.current.Longitude = m.Longitude
		p.current.SpeedKnots = m.Speed
		p.current.CourseDeg = m.Course
		p.current.Validity = string(m.Validity)
		return p.current, true, nil
	case nmea.GGA:
		p.current.Quality = m.FixQuality
		p.current.Satellites = m.NumSatellites
		p.current.HDOP = m.HDOP
		p.current.AltitudeM = m.Altitude
	}
	return Fix{}, false, nil
}

// Current returns the fix as accumulated so far.
func (p *Parser) Current() Fix {
	return p.current
}
