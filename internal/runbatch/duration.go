// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package runbatch

import (
	"fmt"
	"strings"
	"time"
)

// Precision is the smallest unit FormatDuration prints.
type Precision int

// Precisions for FormatDuration.
const (
	PrecisionDay Precision = iota
	PrecisionHour
	PrecisionMinute
	PrecisionSecond
)

var units = []struct {
	suffix string
	secs   int64
}{
	{"d", 86400},
	{"h", 3600},
	{"m", 60},
	{"s", 1},
}

// FormatDuration renders d as "1d 2h 3m 4s", omitting zero units and everything below p.
// Durations shorter than one unit of p render as "< 1s", "< 1m" and so on.
func FormatDuration(d time.Duration, p Precision) string {
	if p < PrecisionDay || p > PrecisionSecond {
		p = PrecisionSecond
	}

	rest := int64(d / time.Second)
	if rest < 0 {
		rest = 0
	}

	parts := make([]string, 0, len(units))

	for i, u := range units {
		v := rest / u.secs
		rest %= u.secs

		if v != 0 {
			parts = append(parts, fmt.Sprintf("%d%s", v, u.suffix))
		}

		if Precision(i) == p {
			break
		}
	}

	if len(parts) == 0 {
		return "< 1" + units[p].suffix
	}

	return strings.Join(parts, " ")
}
