// Copyright 2025 Readium Foundation. All rights reserved.
// Use of this source code is governed by a BSD-style license
// that can be found in the LICENSE file exposed on Github (readium) in the project repository.

package smil

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/rickb777/date/period"
)

// ParseClockValue converts a SMIL clock value to seconds. Full ("1:02:03.5") and
// partial ("02:03.5") clocks, timecounts with a metric ("3.5s", "200ms", "2min",
// "1h", "45") and ISO 8601 durations ("PT1M30S") are accepted.
func ParseClockValue(value string) (float64, error) {
	v := strings.TrimSpace(value)
	if v == "" {
		return 0, fmt.Errorf("empty clock value")
	}

	if strings.HasPrefix(v, "P") {
		return isoDurationToSc(v)
	}

	if strings.Contains(v, ":") {
		parts := strings.Split(v, ":")
		if len(parts) > 3 {
			return 0, fmt.Errorf("invalid clock value %q", value)
		}
		var total float64
		for _, p := range parts {
			n, err := strconv.ParseFloat(p, 64)
			if err != nil || n < 0 {
				return 0, fmt.Errorf("invalid clock value %q", value)
			}
			total = total*60 + n
		}
		return total, nil
	}

	factor := 1.0
	switch {
	case strings.HasSuffix(v, "ms"):
		factor, v = 0.001, strings.TrimSuffix(v, "ms")
	case strings.HasSuffix(v, "min"):
		factor, v = 60, strings.TrimSuffix(v, "min")
	case strings.HasSuffix(v, "h"):
		factor, v = 3600, strings.TrimSuffix(v, "h")
	case strings.HasSuffix(v, "s"):
		v = strings.TrimSuffix(v, "s")
	}
	n, err := strconv.ParseFloat(v, 64)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("invalid clock value %q", value)
	}
	return n * factor, nil
}

// isoDurationToSc transforms an ISO duration to a number of seconds
func isoDurationToSc(iso string) (float64, error) {
	p, err := period.Parse(iso)
	if err != nil {
		return 0, fmt.Errorf("invalid duration %q: %w", iso, err)
	}
	return float64(p.Hours()*3600 + p.Minutes()*60 + p.Seconds()), nil
}

func formatSeconds(s float64) string {
	return strconv.FormatFloat(s, 'f', -1, 64)
}
