// Package schedule implements the booking rules for room reservations:
// date and time-of-day validation, the half-open overlap test used for
// conflict detection, and the free-slot grid behind the availability
// endpoint. Everything here is pure; persistence and ownership live in
// the service and repository layers.
package schedule

import (
	"errors"
	"fmt"
	"regexp"
	"time"
)

// Business hours. Reservations start at or after opening, end at or
// before closing, and align to the slot size.
const (
	OpenMinute  = 9 * 60  // 09:00
	CloseMinute = 18 * 60 // 18:00
	SlotMinutes = 30
	SlotsPerDay = (CloseMinute - OpenMinute) / SlotMinutes // 18

	MinDurationMinutes = 30
	MaxDurationMinutes = 180
)

var (
	// ErrInvalidDate reports a date that is not DD/MM/YYYY or does not
	// name a real calendar day (e.g. 31/02/2024).
	ErrInvalidDate = errors.New("invalid date, expected DD/MM/YYYY")
	// ErrInvalidTime reports a time that is not HH:MM, falls outside
	// business hours, or is not aligned to a 30-minute boundary.
	ErrInvalidTime = errors.New("invalid time, expected HH:MM between 09:00 and 18:00 on a 30-minute boundary")
	// ErrEndNotAfterStart reports a range whose end is at or before its start.
	ErrEndNotAfterStart = errors.New("end time must be after start time")
	// ErrInvalidDuration reports a range shorter than 30 minutes, longer
	// than 3 hours, or not a multiple of 30 minutes.
	ErrInvalidDuration = errors.New("duration must be between 30 minutes and 3 hours in 30-minute steps")
	// ErrPastDate reports a date before the current calendar day.
	ErrPastDate = errors.New("date must not be before today")
)

var dateRe = regexp.MustCompile(`^(\d{2})/(\d{2})/(\d{4})$`)

// ParseDate parses a DD/MM/YYYY date into a UTC midnight time.Time. The
// reconstructed date must round-trip to the same day, month and year;
// impossible dates such as 31/02/2024 fail with ErrInvalidDate because
// time.Date normalizes them onto a different day.
func ParseDate(s string) (time.Time, error) {
	m := dateRe.FindStringSubmatch(s)
	if m == nil {
		return time.Time{}, ErrInvalidDate
	}
	day := atoi2(m[1])
	month := atoi2(m[2])
	year := atoi2(m[3])
	t := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	if t.Day() != day || int(t.Month()) != month || t.Year() != year {
		return time.Time{}, ErrInvalidDate
	}
	return t, nil
}

// FormatDate renders a date as DD/MM/YYYY for display.
func FormatDate(t time.Time) string {
	return fmt.Sprintf("%02d/%02d/%04d", t.Day(), int(t.Month()), t.Year())
}

// atoi2 converts a string of ASCII digits to an int. The inputs come from
// dateRe capture groups, so every byte is known to be a digit.
func atoi2(s string) int {
	n := 0
	for i := 0; i < len(s); i++ {
		n = n*10 + int(s[i]-'0')
	}
	return n
}

// ParseClock parses an "HH:MM" time of day into minutes since midnight.
// It checks the wall-clock format only; business-hour policy is applied
// by ValidateRange.
func ParseClock(s string) (int, error) {
	if len(s) != 5 || s[2] != ':' {
		return 0, ErrInvalidTime
	}
	for _, i := range [4]int{0, 1, 3, 4} {
		if s[i] < '0' || s[i] > '9' {
			return 0, ErrInvalidTime
		}
	}
	h := int(s[0]-'0')*10 + int(s[1]-'0')
	m := int(s[3]-'0')*10 + int(s[4]-'0')
	if h > 23 || m > 59 {
		return 0, ErrInvalidTime
	}
	return h*60 + m, nil
}

// FormatClock renders minutes since midnight as zero-padded "HH:MM".
func FormatClock(minutes int) string {
	return fmt.Sprintf("%02d:%02d", minutes/60, minutes%60)
}

// ValidateRange checks a start/end pair against the booking policy: both
// must be valid HH:MM values aligned to 30 minutes, the start inside
// [09:00, 18:00) and the end inside (09:00, 18:00], the end after the
// start, and the duration between 30 and 180 minutes in 30-minute steps.
func ValidateRange(start, end string) error {
	s, err := ParseClock(start)
	if err != nil {
		return err
	}
	e, err := ParseClock(end)
	if err != nil {
		return err
	}
	if s%SlotMinutes != 0 || e%SlotMinutes != 0 {
		return ErrInvalidTime
	}
	if s < OpenMinute || s >= CloseMinute {
		return ErrInvalidTime
	}
	if e <= OpenMinute || e > CloseMinute {
		return ErrInvalidTime
	}
	if e <= s {
		return ErrEndNotAfterStart
	}
	dur := e - s
	if dur < MinDurationMinutes || dur > MaxDurationMinutes || dur%SlotMinutes != 0 {
		return ErrInvalidDuration
	}
	return nil
}

// ValidateNotPast rejects days before the current calendar day. Both
// values are truncated to midnight before comparing, so a booking for
// later today is still accepted.
func ValidateNotPast(day, now time.Time) error {
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	if day.Before(today) {
		return ErrPastDate
	}
	return nil
}

// Overlaps reports whether two half-open intervals [aStart, aEnd) and
// [bStart, bEnd) on the same room and day intersect. Back-to-back
// bookings, where one ends exactly when the other starts, do not overlap.
// Lexicographic comparison is correct for the zero-padded HH:MM format.
func Overlaps(aStart, aEnd, bStart, bEnd string) bool {
	return aStart < bEnd && bStart < aEnd
}
