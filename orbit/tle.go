/*
Copyright © 2026 the popcover authors.
This file is part of popcover.

popcover is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

popcover is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with popcover.  If not, see <http://www.gnu.org/licenses/>.
*/

// Package orbit provides the satellite ground track used by coverage
// sweeps: two-line element parsing, orbital period, and a simple
// circular-orbit sub-satellite point model.
package orbit

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

// ISS holds orbital elements for the International Space Station, used
// when no other satellite is given.
const ISS = `ISS (ZARYA)
1 25544U 98067A   25277.51233796  .00016717  00000-0  30327-3 0  9993
2 25544  51.6416 255.4363 0006753 133.5855 226.5447 15.49479347343467
`

// Elements holds the orbital elements of one satellite, as read from a
// two-line element set. Angles are in degrees.
type Elements struct {
	Name    string
	NoradID int
	Epoch   time.Time

	Inclination  float64
	RAAN         float64
	Eccentricity float64
	ArgPerigee   float64
	MeanAnomaly  float64

	// MeanMotion is in revolutions per day.
	MeanMotion float64

	Line1, Line2 string
}

// PeriodSeconds returns the orbital period in seconds.
func (e Elements) PeriodSeconds() float64 {
	return 86400 / e.MeanMotion
}

// MeanMotion returns the mean motion in revolutions per day from
// columns 53-63 of TLE line 2.
func MeanMotion(line2 string) (float64, error) {
	f, err := field(line2, 52, 63)
	if err != nil {
		return 0, fmt.Errorf("orbit: mean motion: %w", err)
	}
	if !(f > 0) {
		return 0, fmt.Errorf("orbit: mean motion must be positive but is %g", f)
	}
	return f, nil
}

// ParseElements parses a single two-line element set.
func ParseElements(name, line1, line2 string) (Elements, error) {
	line1 = strings.TrimRight(line1, "\r\n ")
	line2 = strings.TrimRight(line2, "\r\n ")
	if !strings.HasPrefix(line1, "1 ") || !strings.HasPrefix(line2, "2 ") {
		return Elements{}, fmt.Errorf("orbit: TLE lines must begin with '1 ' and '2 '")
	}
	if len(line1) < 32 {
		return Elements{}, fmt.Errorf("orbit: TLE line 1 is too short (%d characters)", len(line1))
	}
	if len(line2) < 63 {
		return Elements{}, fmt.Errorf("orbit: TLE line 2 is too short (%d characters)", len(line2))
	}

	e := Elements{Name: strings.TrimSpace(name), Line1: line1, Line2: line2}
	var err error
	if e.NoradID, err = strconv.Atoi(strings.TrimSpace(line1[2:7])); err != nil {
		return Elements{}, fmt.Errorf("orbit: NORAD ID: %w", err)
	}
	if e.Epoch, err = parseEpoch(strings.TrimSpace(line1[18:32])); err != nil {
		return Elements{}, err
	}

	for _, f := range []struct {
		dst        *float64
		begin, end int
		name       string
	}{
		{&e.Inclination, 8, 16, "inclination"},
		{&e.RAAN, 17, 25, "right ascension of the ascending node"},
		{&e.ArgPerigee, 34, 42, "argument of perigee"},
		{&e.MeanAnomaly, 43, 51, "mean anomaly"},
	} {
		if *f.dst, err = field(line2, f.begin, f.end); err != nil {
			return Elements{}, fmt.Errorf("orbit: %s: %w", f.name, err)
		}
	}
	// Eccentricity has an implied leading decimal point.
	if e.Eccentricity, err = strconv.ParseFloat("0."+strings.TrimSpace(line2[26:33]), 64); err != nil {
		return Elements{}, fmt.Errorf("orbit: eccentricity: %w", err)
	}
	if e.MeanMotion, err = MeanMotion(line2); err != nil {
		return Elements{}, err
	}
	return e, nil
}

// ParseTLE reads satellites in three-line format (a name line followed by
// the two element lines). Malformed entries are skipped with a warning.
func ParseTLE(r io.Reader, log logrus.FieldLogger) ([]Elements, error) {
	s := bufio.NewScanner(r)
	var lines []string
	for s.Scan() {
		if l := strings.TrimRight(s.Text(), "\r\n "); l != "" {
			lines = append(lines, l)
		}
	}
	if err := s.Err(); err != nil {
		return nil, fmt.Errorf("orbit: reading TLE data: %w", err)
	}

	var o []Elements
	for i := 0; i+2 < len(lines); {
		if !strings.HasPrefix(lines[i+1], "1 ") || !strings.HasPrefix(lines[i+2], "2 ") {
			log.WithField("line", i+1).Warn("skipping malformed TLE entry")
			i++
			continue
		}
		e, err := ParseElements(lines[i], lines[i+1], lines[i+2])
		if err != nil {
			log.WithError(err).WithField("name", strings.TrimSpace(lines[i])).Warn("skipping invalid TLE entry")
		} else {
			o = append(o, e)
		}
		i += 3
	}
	if len(o) == 0 {
		return nil, fmt.Errorf("orbit: no valid TLE entries found")
	}
	return o, nil
}

func field(line string, begin, end int) (float64, error) {
	if len(line) < end {
		return 0, fmt.Errorf("line is too short (%d characters)", len(line))
	}
	return strconv.ParseFloat(strings.TrimSpace(line[begin:end]), 64)
}

// parseEpoch converts a TLE epoch in YYDDD.DDDDDDDD format to a time.
// Years 57-99 are in the 1900s and 00-56 in the 2000s.
func parseEpoch(s string) (time.Time, error) {
	if len(s) < 5 {
		return time.Time{}, fmt.Errorf("orbit: epoch %q is too short", s)
	}
	year, err := strconv.Atoi(s[:2])
	if err != nil {
		return time.Time{}, fmt.Errorf("orbit: epoch year %q: %w", s[:2], err)
	}
	if year >= 57 {
		year += 1900
	} else {
		year += 2000
	}
	day, err := strconv.ParseFloat(s[2:], 64)
	if err != nil {
		return time.Time{}, fmt.Errorf("orbit: epoch day %q: %w", s[2:], err)
	}
	t := time.Date(year, 1, 1, 0, 0, 0, 0, time.UTC)
	return t.Add(time.Duration((day - 1) * float64(24*time.Hour))), nil
}
