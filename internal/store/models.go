package store

import (
	"time"

	"github.com/sadopc/wellness/internal/metrics"
)

type User struct {
	ID           string
	Email        string
	PasswordHash string
	CreatedAt    time.Time
}

// Token is a bearer credential issued at login. A nil ExpiresAt never
// expires.
type Token struct {
	Token     string
	UserID    string
	CreatedAt time.Time
	ExpiresAt *time.Time
}

// MetricFilter narrows ListMetrics to an inclusive calendar-day range.
type MetricFilter struct {
	From *time.Time
	To   *time.Time
}

// Metric is a stored record with its owner and bookkeeping timestamps.
type Metric struct {
	metrics.MetricRecord
	UserID    string
	CreatedAt time.Time
	UpdatedAt time.Time
}
