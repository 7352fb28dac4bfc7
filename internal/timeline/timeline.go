// Package timeline provides clock-time arithmetic for schedule windows.
//
// Schedule windows are stored as "HH:MM" strings plus a signed day offset
// relative to the service day. All comparisons happen on a single linear
// minute axis where minute 0 is midnight of the service day and earlier
// calendar days are negative.
package timeline

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// MinutesPerDay is the length of one calendar day on the minute axis.
const MinutesPerDay = 24 * 60

// ErrInvalidTimeFormat is returned when a clock time string is not
// strict 24-hour "HH:MM".
var ErrInvalidTimeFormat = errors.New("invalid time format, expected HH:MM")

var clockPattern = regexp.MustCompile(`^([01]\d|2[0-3]):[0-5]\d$`)

// IsValidTime reports whether s is a strict 24-hour "HH:MM" clock time.
func IsValidTime(s string) bool {
	return clockPattern.MatchString(s)
}

// ToMinutes parses a 24-hour "HH:MM" clock time into minutes since
// midnight (0-1439).
func ToMinutes(s string) (int, error) {
	if !clockPattern.MatchString(s) {
		return 0, fmt.Errorf("%w: %q", ErrInvalidTimeFormat, s)
	}
	hour, _ := strconv.Atoi(s[:2])
	minute, _ := strconv.Atoi(s[3:])
	return hour*60 + minute, nil
}

// AbsoluteMinutes places a clock time on the minute axis of a service day.
// A dayOffset of 0 means the service day itself, 1 means the day before,
// and so on. The time string must already be validated; malformed input
// resolves as midnight.
func AbsoluteMinutes(clock string, dayOffset int) int {
	minutes, _ := ToMinutes(clock)
	return minutes - dayOffset*MinutesPerDay
}

// Overlaps reports whether two half-open intervals [aStart, aEnd) and
// [bStart, bEnd) intersect. Touching endpoints do not overlap, which is
// what allows back-to-back slots.
func Overlaps(aStart, aEnd, bStart, bEnd int) bool {
	return aStart < bEnd && bStart < aEnd
}

// OrderEndMinutesOnServiceDay returns the order-window close time expressed
// in service-day minutes. When the window closes on an earlier day
// (endDayOffset > 0) any same-day fulfillment time is valid, so the close
// collapses to midnight of the service day.
func OrderEndMinutesOnServiceDay(endTime string, endDayOffset int) int {
	if endDayOffset > 0 {
		return 0
	}
	minutes, _ := ToMinutes(endTime)
	return minutes
}

// FormatClock12 renders a 24-hour "HH:MM" time as "H:MM AM/PM".
// Unparsable input is echoed back unchanged.
func FormatClock12(clock string) string {
	minutes, err := ToMinutes(clock)
	if err != nil {
		return clock
	}
	hour := minutes / 60
	minute := minutes % 60
	suffix := "AM"
	switch {
	case hour == 0:
		hour = 12
	case hour == 12:
		suffix = "PM"
	case hour > 12:
		hour -= 12
		suffix = "PM"
	}
	return fmt.Sprintf("%d:%02d %s", hour, minute, suffix)
}

// DayNames lists the interchange day-of-week values, Monday first.
var DayNames = []string{
	"monday", "tuesday", "wednesday", "thursday", "friday", "saturday", "sunday",
}

// DayName returns the lowercase interchange name for a weekday.
func DayName(d time.Weekday) string {
	return strings.ToLower(d.String())
}

// IsDayName reports whether s is one of the interchange day names.
func IsDayName(s string) bool {
	for _, name := range DayNames {
		if s == name {
			return true
		}
	}
	return false
}
