package feed

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// parseDuration parses an iCalendar DURATION value such as "PT1H30M",
// "P1DT2H" or "-P2W". Days are taken as 24 hours.
func parseDuration(s string) (time.Duration, error) {
	v := strings.ToUpper(strings.TrimSpace(s))
	sign := time.Duration(1)
	switch {
	case strings.HasPrefix(v, "-"):
		sign, v = -1, v[1:]
	case strings.HasPrefix(v, "+"):
		v = v[1:]
	}
	if !strings.HasPrefix(v, "P") || len(v) < 3 {
		return 0, fmt.Errorf("malformed duration %q", s)
	}
	v = v[1:]

	var (
		total  time.Duration
		inTime bool
		num    strings.Builder
	)
	for _, r := range v {
		switch {
		case r >= '0' && r <= '9':
			num.WriteRune(r)
			continue
		case r == 'T':
			if inTime || num.Len() > 0 {
				return 0, fmt.Errorf("malformed duration %q", s)
			}
			inTime = true
			continue
		}

		if num.Len() == 0 {
			return 0, fmt.Errorf("malformed duration %q", s)
		}
		n, err := strconv.Atoi(num.String())
		if err != nil {
			return 0, fmt.Errorf("malformed duration %q: %w", s, err)
		}
		num.Reset()

		var unit time.Duration
		switch {
		case r == 'W' && !inTime:
			unit = 7 * 24 * time.Hour
		case r == 'D' && !inTime:
			unit = 24 * time.Hour
		case r == 'H' && inTime:
			unit = time.Hour
		case r == 'M' && inTime:
			unit = time.Minute
		case r == 'S' && inTime:
			unit = time.Second
		default:
			return 0, fmt.Errorf("malformed duration %q", s)
		}
		total += time.Duration(n) * unit
	}
	if num.Len() > 0 || strings.HasSuffix(v, "T") {
		return 0, fmt.Errorf("malformed duration %q", s)
	}
	return sign * total, nil
}
