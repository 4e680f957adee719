package metrics

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// ErrValidation marks a record rejected before it reaches the gateway.
var ErrValidation = errors.New("validation failed")

// ValidationError names the offending form field.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s %s", e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

const (
	MaxSleepHours = 24.0
	SleepStep     = 0.5
)

// Validate checks the entry form constraints: date, steps and mood are
// required, sleep is a half-hour multiple in [0, 24], notes are optional.
func Validate(r MetricRecord) error {
	if r.Date.IsZero() {
		return &ValidationError{Field: "date", Reason: "is required"}
	}
	if r.Steps < 0 {
		return &ValidationError{Field: "steps", Reason: "must be a non-negative integer"}
	}
	if err := checkSleep(r.SleepHours); err != nil {
		return err
	}
	if !r.Mood.Known() {
		return &ValidationError{Field: "mood", Reason: fmt.Sprintf("must be one of %v", Moods)}
	}
	return nil
}

func checkSleep(h float64) error {
	if math.IsNaN(h) || h < 0 || h > MaxSleepHours {
		return &ValidationError{Field: "sleep", Reason: "must be between 0 and 24"}
	}
	if math.Mod(h, SleepStep) != 0 {
		return &ValidationError{Field: "sleep", Reason: "must be in steps of 0.5"}
	}
	return nil
}

// ParseSteps parses the steps form input.
func ParseSteps(s string) (int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, &ValidationError{Field: "steps", Reason: "is required"}
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return 0, &ValidationError{Field: "steps", Reason: "must be a non-negative integer"}
	}
	return n, nil
}

// ParseSleep parses the sleep-hours form input.
func ParseSleep(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, &ValidationError{Field: "sleep", Reason: "is required"}
	}
	h, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, &ValidationError{Field: "sleep", Reason: "must be a number"}
	}
	if err := checkSleep(h); err != nil {
		return 0, err
	}
	return h, nil
}
