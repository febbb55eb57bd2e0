package timerange

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// MinutesPerDay is the modulus for overnight arithmetic.
const MinutesPerDay = 24 * 60

// ErrMalformed is returned by ParseClock for values that are not HH:MM.
var ErrMalformed = errors.New("timerange: malformed time")

// ParseClock parses "HH:MM" (hour may be a single digit) into minutes after
// midnight. Blank input reports ok=false with a nil error.
func ParseClock(raw string) (minutes int, ok bool, err error) {
	value := strings.TrimSpace(raw)
	if value == "" {
		return 0, false, nil
	}

	hh, mm, found := strings.Cut(value, ":")
	if !found || len(hh) == 0 || len(hh) > 2 || len(mm) != 2 {
		return 0, false, fmt.Errorf("%w: %q", ErrMalformed, raw)
	}
	hour, err := strconv.Atoi(hh)
	if err != nil || hour < 0 || hour > 23 {
		return 0, false, fmt.Errorf("%w: %q", ErrMalformed, raw)
	}
	minute, err := strconv.Atoi(mm)
	if err != nil || minute < 0 || minute > 59 {
		return 0, false, fmt.Errorf("%w: %q", ErrMalformed, raw)
	}
	return hour*60 + minute, true, nil
}

// FormatClock renders minutes after midnight as HH:MM.
func FormatClock(minutes int) string {
	minutes = ((minutes % MinutesPerDay) + MinutesPerDay) % MinutesPerDay
	return fmt.Sprintf("%02d:%02d", minutes/60, minutes%60)
}

// forward returns the minutes from a to b moving forward on the clock face.
func forward(a, b int) int {
	return ((b-a)%MinutesPerDay + MinutesPerDay) % MinutesPerDay
}
