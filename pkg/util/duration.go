package util

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"
)

var (
	durationPartRegex = regexp.MustCompile(`^(\d+(?:\.\d+)?)\s*([a-z]+)\s*`)
	bareHoursRegex    = regexp.MustCompile(`^\d+(?:\.\d+)?$`)
)

var durationUnits = map[string]time.Duration{
	"h": time.Hour, "hr": time.Hour, "hrs": time.Hour, "hour": time.Hour, "hours": time.Hour,
	"m": time.Minute, "min": time.Minute, "mins": time.Minute, "minute": time.Minute, "minutes": time.Minute,
	"s": time.Second, "sec": time.Second, "secs": time.Second, "second": time.Second, "seconds": time.Second,
}

// ParseDuration parses human durations such as "2h", "1.5h", "1h30m", "90 min" or a bare
// number of hours ("3"). The result is rounded to whole seconds.
func ParseDuration(s string) (time.Duration, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return 0, fmt.Errorf("empty duration")
	}

	if bareHoursRegex.MatchString(s) {
		hours, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, fmt.Errorf("invalid duration %q: %w", s, err)
		}
		return roundSeconds(hours * float64(time.Hour))
	}

	var total float64
	rest := s
	for rest != "" {
		match := durationPartRegex.FindStringSubmatch(rest)
		if match == nil {
			return 0, fmt.Errorf("invalid duration %q: expected <number><unit> near %q", s, rest)
		}
		unit, ok := durationUnits[match[2]]
		if !ok {
			return 0, fmt.Errorf("invalid duration %q: unknown unit %q", s, match[2])
		}
		value, err := strconv.ParseFloat(match[1], 64)
		if err != nil {
			return 0, fmt.Errorf("invalid duration %q: %w", s, err)
		}
		total += value * float64(unit)
		rest = rest[len(match[0]):]
	}
	return roundSeconds(total)
}

func roundSeconds(ns float64) (time.Duration, error) {
	if ns > math.MaxInt64 {
		return 0, fmt.Errorf("duration too large")
	}
	return time.Duration(ns).Round(time.Second), nil
}

// FormatDuration renders d in the compact form ParseDuration reads back, e.g. "1h30m".
func FormatDuration(d time.Duration) string {
	d = d.Round(time.Second)
	if d == 0 {
		return "0h"
	}
	sign := ""
	if d < 0 {
		sign = "-"
		d = -d
	}

	var b strings.Builder
	b.WriteString(sign)
	if h := d / time.Hour; h > 0 {
		fmt.Fprintf(&b, "%dh", h)
	}
	if m := (d % time.Hour) / time.Minute; m > 0 {
		fmt.Fprintf(&b, "%dm", m)
	}
	if s := (d % time.Minute) / time.Second; s > 0 {
		fmt.Fprintf(&b, "%ds", s)
	}
	return b.String()
}

// FormatClock renders d as HH:MM:SS.
func FormatClock(d time.Duration) string {
	d = d.Round(time.Second)
	if d < 0 {
		d = 0
	}
	h := d / time.Hour
	m := (d % time.Hour) / time.Minute
	s := (d % time.Minute) / time.Second
	return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
}
