package tock

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// ErrInvalidFormat is returned by TimeToMS for input that is not MM:SS.
var ErrInvalidFormat = errors.New("tock: invalid time format")

// maxMS is the largest millisecond count that still fits a time.Duration.
const maxMS = math.MaxInt64 / int64(time.Millisecond)

// MsToTime formats ms as "MM:SS:m". Minutes and seconds are two digits,
// minutes wrap at 60 and the millisecond field is not padded, so 1500
// renders as "00:01:500" and 5 as "00:00:5".
func MsToTime(ms int64) string {
	sign := ""
	if ms < 0 {
		sign = "-"
		ms = -ms
	}
	millis := ms % 1000
	seconds := (ms / 1000) % 60
	minutes := (ms / (60 * 1000)) % 60
	return fmt.Sprintf("%s%02d:%02d:%d", sign, minutes, seconds, millis)
}

// FormatDuration is MsToTime for a time.Duration.
func FormatDuration(d time.Duration) string {
	return MsToTime(d.Milliseconds())
}

// TimeToMS parses "MM:SS" into milliseconds. A trailing ":mmm" field, as
// produced by MsToTime, is accepted but ignored. Values too large for a
// time.Duration are rejected.
func TimeToMS(s string) (int64, error) {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) != 2 && len(parts) != 3 {
		return 0, fmt.Errorf("%w: %q: want MM:SS", ErrInvalidFormat, s)
	}

	minutes, err := parseField(parts[0])
	if err != nil {
		return 0, fmt.Errorf("%w: %q: minutes: %v", ErrInvalidFormat, s, err)
	}
	seconds, err := parseField(parts[1])
	if err != nil {
		return 0, fmt.Errorf("%w: %q: seconds: %v", ErrInvalidFormat, s, err)
	}
	if len(parts) == 3 {
		if _, err := parseField(parts[2]); err != nil {
			return 0, fmt.Errorf("%w: %q: milliseconds: %v", ErrInvalidFormat, s, err)
		}
	}

	if minutes > maxMS/60000 || seconds > maxMS/1000 || minutes*60000 > maxMS-seconds*1000 {
		return 0, fmt.Errorf("%w: %q: out of range", ErrInvalidFormat, s)
	}
	return minutes*60000 + seconds*1000, nil
}

// parseField accepts unsigned decimal digits only.
func parseField(f string) (int64, error) {
	if f == "" {
		return 0, errors.New("empty field")
	}
	for _, r := range f {
		if r < '0' || r > '9' {
			return 0, fmt.Errorf("unexpected character %q", r)
		}
	}
	return strconv.ParseInt(f, 10, 64)
}

// tenths renders a tick count as tenths with one decimal: 0 -> "0.0",
// 7 -> "0.7", 30 -> "3.0".
func tenths(ticks int64) string {
	return strconv.FormatInt(ticks/10, 10) + "." + strconv.FormatInt(ticks%10, 10)
}
