package trip

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// parseISODuration parses the subset of ISO-8601 durations the planner
// emits: an optional nD day part followed by an optional T section with
// hours, minutes and seconds, e.g. "PT32M", "PT1H5M", "P1DT2H".
func parseISODuration(s string) (time.Duration, error) {
	orig := s
	if !strings.HasPrefix(s, "P") {
		return 0, fmt.Errorf("invalid ISO duration %q", orig)
	}
	s = s[1:]

	var total time.Duration
	inTime := false
	num := ""
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9':
			num += string(r)
		case r == 'T':
			if inTime || num != "" {
				return 0, fmt.Errorf("invalid ISO duration %q", orig)
			}
			inTime = true
		default:
			if num == "" {
				return 0, fmt.Errorf("invalid ISO duration %q", orig)
			}
			n, err := strconv.Atoi(num)
			if err != nil {
				return 0, fmt.Errorf("invalid ISO duration %q", orig)
			}
			num = ""
			switch {
			case r == 'D' && !inTime:
				total += time.Duration(n) * 24 * time.Hour
			case r == 'H' && inTime:
				total += time.Duration(n) * time.Hour
			case r == 'M' && inTime:
				total += time.Duration(n) * time.Minute
			case r == 'S' && inTime:
				total += time.Duration(n) * time.Second
			default:
				return 0, fmt.Errorf("invalid ISO duration %q: unit %q", orig, string(r))
			}
		}
	}
	if num != "" {
		return 0, fmt.Errorf("invalid ISO duration %q: trailing number", orig)
	}
	return total, nil
}
