package store

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/sadopc/wellness/internal/metrics"
)

const dateLayout = "2006-01-02"

const metricColumns = `id, user_id, date, steps, sleep, mood, notes, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanMetric(r rowScanner) (*Metric, error) {
	m := &Metric{}
	var date, createdAt, updatedAt string
	err := r.Scan(&m.ID, &m.UserID, &date, &m.Steps, &m.SleepHours, &m.Mood, &m.Notes, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}
	m.Date, _ = metrics.ParseDay(date)
	m.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	m.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)
	return m, nil
}

// UpsertMetric stores rec for userID. A user has at most one record per
// calendar day; posting the same day again replaces it and keeps its id.
func (s *Store) UpsertMetric(userID string, rec metrics.MetricRecord) (*Metric, error) {
	now := time.Now().UTC().Format(time.RFC3339)
	_, err := s.db.Exec(
		`INSERT INTO metrics (id, user_id, date, steps, sleep, mood, notes, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(user_id, date) DO UPDATE SET
			steps = excluded.steps,
			sleep = excluded.sleep,
			mood = excluded.mood,
			notes = excluded.notes,
			updated_at = excluded.updated_at`,
		uuid.NewString(), userID, rec.Date.String(), rec.Steps, rec.SleepHours, string(rec.Mood), rec.Notes, now, now,
	)
	if err != nil {
		return nil, fmt.Errorf("upsert metric: %w", err)
	}

	m, err := scanMetric(s.db.QueryRow(
		`SELECT `+metricColumns+` FROM metrics WHERE user_id = ? AND date = ?`, userID, rec.Date.String(),
	))
	if err != nil {
		return nil, fmt.Errorf("read upserted metric: %w", err)
	}
	return m, nil
}

func (s *Store) GetMetric(userID, id string) (*Metric, error) {
	m, err := scanMetric(s.db.QueryRow(
		`SELECT `+metricColumns+` FROM metrics WHERE id = ? AND user_id = ?`, id, userID,
	))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get metric %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get metric %s: %w", id, err)
	}
	return m, nil
}

// UpdateMetric replaces every field of the record except its id and owner.
func (s *Store) UpdateMetric(userID, id string, rec metrics.MetricRecord) (*Metric, error) {
	now := time.Now().UTC().Format(time.RFC3339)
	res, err := s.db.Exec(
		`UPDATE metrics SET date = ?, steps = ?, sleep = ?, mood = ?, notes = ?, updated_at = ?
		 WHERE id = ? AND user_id = ?`,
		rec.Date.String(), rec.Steps, rec.SleepHours, string(rec.Mood), rec.Notes, now, id, userID,
	)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE") {
			return nil, fmt.Errorf("update metric %s: %w", id, ErrDuplicateDay)
		}
		return nil, fmt.Errorf("update metric %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, fmt.Errorf("update metric %s: %w", id, ErrNotFound)
	}
	return s.GetMetric(userID, id)
}

func (s *Store) DeleteMetric(userID, id string) error {
	res, err := s.db.Exec(`DELETE FROM metrics WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return fmt.Errorf("delete metric %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("delete metric %s: %w", id, ErrNotFound)
	}
	return nil
}

// ListMetrics returns the user's records, newest day first.
func (s *Store) ListMetrics(userID string, f MetricFilter) ([]Metric, error) {
	query := `SELECT ` + metricColumns + ` FROM metrics WHERE user_id = ?`
	args := []any{userID}

	if f.From != nil {
		query += ` AND date >= ?`
		args = append(args, f.From.UTC().Format(dateLayout))
	}
	if f.To != nil {
		query += ` AND date <= ?`
		args = append(args, f.To.UTC().Format(dateLayout))
	}
	query += ` ORDER BY date DESC`

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("list metrics: %w", err)
	}
	defer rows.Close()

	var out []Metric
	for rows.Next() {
		m, err := scanMetric(rows)
		if err != nil {
			return nil, fmt.Errorf("scan metric: %w", err)
		}
		out = append(out, *m)
	}
	return out, rows.Err()
}

// Summary aggregates all of the user's records. With no records only
// TotalEntries is set.
func (s *Store) Summary(userID string) (metrics.SummaryStats, error) {
	var (
		total    int
		avgSteps sql.NullFloat64
		avgSleep sql.NullFloat64
	)
	err := s.db.QueryRow(
		`SELECT COUNT(*), AVG(steps), AVG(sleep) FROM metrics WHERE user_id = ?`, userID,
	).Scan(&total, &avgSteps, &avgSleep)
	if err != nil {
		return metrics.SummaryStats{}, fmt.Errorf("summary: %w", err)
	}

	stats := metrics.SummaryStats{TotalEntries: &total}
	if total == 0 {
		return stats, nil
	}
	if avgSteps.Valid {
		stats.AverageSteps = &avgSteps.Float64
	}
	if avgSleep.Valid {
		stats.AverageSleepHours = &avgSleep.Float64
	}

	var mood string
	err = s.db.QueryRow(
		`SELECT mood FROM metrics WHERE user_id = ?
		 GROUP BY mood ORDER BY COUNT(*) DESC, mood ASC LIMIT 1`, userID,
	).Scan(&mood)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return metrics.SummaryStats{}, fmt.Errorf("summary mood: %w", err)
	}
	if mood != "" {
		stats.MostCommonMood = &mood
	}
	return stats, nil
}
