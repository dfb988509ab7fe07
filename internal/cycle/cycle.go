// Package cycle turns a reported period start date into a cycle day and phase.
package cycle

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// DateLayout is the calendar date format accepted from users.
const DateLayout = "2006-01-02"

// Validation errors.
var (
	// ErrFutureStartDate is returned when the period start date is after today.
	ErrFutureStartDate = errors.New("start date is in the future")

	// ErrNonPositiveDuration is returned when the period duration is zero or negative.
	ErrNonPositiveDuration = errors.New("period duration must be positive")

	// ErrInvalidDuration is returned when the period duration is not a whole number.
	ErrInvalidDuration = errors.New("period duration is not a number")

	// ErrInvalidDate is returned when a start date cannot be parsed.
	ErrInvalidDate = errors.New("invalid start date")
)

// Input is one validated pair of answers from the user.
type Input struct {
	StartDate      time.Time // Calendar date, midnight UTC
	PeriodDuration int       // Typical period length in days
}

// NewInput validates the answers against today's date.
// The start date may be today but not later.
func NewInput(startDate time.Time, periodDuration int, today time.Time) (Input, error) {
	start := dateOf(startDate)
	if start.After(dateOf(today)) {
		return Input{}, ErrFutureStartDate
	}
	if periodDuration <= 0 {
		return Input{}, ErrNonPositiveDuration
	}
	return Input{StartDate: start, PeriodDuration: periodDuration}, nil
}

// ParseDate parses a YYYY-MM-DD calendar date.
func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(DateLayout, strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
	}
	return t, nil
}

// ParseDuration parses a period duration typed by the user.
// Non-numeric text yields ErrInvalidDuration, values below 1 ErrNonPositiveDuration.
func ParseDuration(s string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidDuration, s)
	}
	if n <= 0 {
		return 0, ErrNonPositiveDuration
	}
	return n, nil
}

// Day returns the 1-indexed cycle day of today for a cycle that began on start.
// Day 1 is the start date itself. Only the calendar dates are compared.
func Day(start, today time.Time) int {
	// Unix seconds rather than Sub, which saturates beyond ~292 years.
	days := (dateOf(today).Unix() - dateOf(start).Unix()) / secondsPerDay
	return int(days) + 1
}

const secondsPerDay = 24 * 60 * 60

// Calculator computes cycle days against a clock.
type Calculator struct {
	Now func() time.Time
}

// NewCalculator returns a Calculator using the system clock.
func NewCalculator() Calculator {
	return Calculator{Now: time.Now}
}

// Today returns the calculator's current calendar date.
func (c Calculator) Today() time.Time {
	if c.Now == nil {
		return dateOf(time.Now())
	}
	return dateOf(c.Now())
}

// CycleDay returns the cycle day of today for a cycle that began on start.
func (c Calculator) CycleDay(start time.Time) int {
	return Day(start, c.Today())
}

// dateOf drops the time of day, keeping the calendar date as seen in t's location.
func dateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
