package store

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/sadopc/wellness/internal/metrics"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := NewMemory()
	if err != nil {
		t.Fatalf("new memory store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func newTestUser(t *testing.T, s *Store, email string) *User {
	t.Helper()
	u, err := s.CreateUser(email, "secret")
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	return u
}

func rec(date string, steps int, sleep float64, mood metrics.Mood) metrics.MetricRecord {
	return metrics.MetricRecord{Date: metrics.MustDay(date), Steps: steps, SleepHours: sleep, Mood: mood}
}

// ============================================================
// Store initialization
// ============================================================

func TestNewMemory(t *testing.T) {
	s, err := NewMemory()
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()

	var version int
	s.db.QueryRow("PRAGMA user_version").Scan(&version)
	if version != currentVersion {
		t.Fatalf("expected user_version %d, got %d", currentVersion, version)
	}
}

func TestNewWithPath(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", "wellness.db")
	s, err := New(path)
	if err != nil {
		t.Fatal(err)
	}
	u := newTestUser(t, s, "persist@example.com")
	s.Close()

	// Reopen without re-migrating; data survives.
	s2, err := New(path)
	if err != nil {
		t.Fatal(err)
	}
	defer s2.Close()
	if _, err := s2.GetUser(u.ID); err != nil {
		t.Fatalf("user lost after reopen: %v", err)
	}
}

func TestDefaultDBPath(t *testing.T) {
	path, err := DefaultDBPath()
	if err != nil {
		t.Fatal(err)
	}
	if filepath.Base(path) != "wellness.db" {
		t.Fatalf("unexpected path %q", path)
	}
}

func TestPragmasConfigured(t *testing.T) {
	s := newTestStore(t)

	var fk int
	s.db.QueryRow("PRAGMA foreign_keys").Scan(&fk)
	if fk != 1 {
		t.Fatalf("expected foreign_keys=1, got %d", fk)
	}
}

func TestMigrationIdempotent(t *testing.T) {
	s := newTestStore(t)
	if err := s.migrate(); err != nil {
		t.Fatalf("second migration failed: %v", err)
	}
}

// ============================================================
// Users and tokens
// ============================================================

func TestCreateUserAndAuthenticate(t *testing.T) {
	s := newTestStore(t)
	u := newTestUser(t, s, "me@example.com")
	if u.ID == "" || u.Email != "me@example.com" {
		t.Fatalf("unexpected user %+v", u)
	}
	if u.PasswordHash == "secret" {
		t.Fatal("password stored in clear text")
	}

	got, err := s.Authenticate("ME@example.com", "secret")
	if err != nil {
		t.Fatalf("authenticate: %v", err)
	}
	if got.ID != u.ID {
		t.Fatalf("authenticated %q, want %q", got.ID, u.ID)
	}

	if _, err := s.Authenticate("me@example.com", "wrong"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("wrong password: err = %v", err)
	}
	if _, err := s.Authenticate("nobody@example.com", "secret"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("unknown email: err = %v", err)
	}
}

func TestCreateUserDuplicateEmail(t *testing.T) {
	s := newTestStore(t)
	newTestUser(t, s, "dup@example.com")

	_, err := s.CreateUser("dup@example.com", "other")
	if !errors.Is(err, ErrEmailTaken) {
		t.Fatalf("err = %v, want ErrEmailTaken", err)
	}
}

func TestGetUserNotFound(t *testing.T) {
	s := newTestStore(t)
	if _, err := s.GetUser("missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestTokenLifecycle(t *testing.T) {
	s := newTestStore(t)
	u := newTestUser(t, s, "tok@example.com")

	tok, err := s.IssueToken(u.ID, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(tok.Token) != 64 {
		t.Fatalf("token length = %d, want 64", len(tok.Token))
	}

	got, err := s.UserForToken(tok.Token)
	if err != nil {
		t.Fatalf("user for token: %v", err)
	}
	if got.ID != u.ID {
		t.Fatalf("token resolved to %q, want %q", got.ID, u.ID)
	}

	if err := s.RevokeToken(tok.Token); err != nil {
		t.Fatal(err)
	}
	if _, err := s.UserForToken(tok.Token); !errors.Is(err, ErrNotFound) {
		t.Fatalf("revoked token: err = %v", err)
	}
}

func TestTokenExpiry(t *testing.T) {
	s := newTestStore(t)
	u := newTestUser(t, s, "exp@example.com")

	tok, err := s.IssueToken(u.ID, time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := s.UserForToken(tok.Token); err != nil {
		t.Fatalf("fresh token rejected: %v", err)
	}

	past := time.Now().UTC().Add(-time.Minute).Format(time.RFC3339)
	if _, err := s.db.Exec(`UPDATE tokens SET expires_at = ? WHERE token = ?`, past, tok.Token); err != nil {
		t.Fatal(err)
	}
	if _, err := s.UserForToken(tok.Token); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expired token: err = %v", err)
	}
}

// ============================================================
// Metrics
// ============================================================

func TestUpsertMetricByDay(t *testing.T) {
	s := newTestStore(t)
	u := newTestUser(t, s, "m@example.com")

	first, err := s.UpsertMetric(u.ID, rec("2024-01-01", 1000, 7, metrics.MoodHappy))
	if err != nil {
		t.Fatal(err)
	}
	if first.ID == "" {
		t.Fatal("expected generated id")
	}

	second, err := s.UpsertMetric(u.ID, rec("2024-01-01", 2000, 8, metrics.MoodTired))
	if err != nil {
		t.Fatal(err)
	}
	if second.ID != first.ID {
		t.Fatalf("same day should keep id: %q vs %q", second.ID, first.ID)
	}
	if second.Steps != 2000 || second.Mood != metrics.MoodTired {
		t.Fatalf("upsert did not replace fields: %+v", second.MetricRecord)
	}

	all, err := s.ListMetrics(u.ID, MetricFilter{})
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 1 {
		t.Fatalf("expected 1 record, got %d", len(all))
	}
}

func TestGetUpdateDeleteMetric(t *testing.T) {
	s := newTestStore(t)
	u := newTestUser(t, s, "crud@example.com")
	m, _ := s.UpsertMetric(u.ID, rec("2024-01-02", 500, 6.5, metrics.MoodNeutral))

	got, err := s.GetMetric(u.ID, m.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Date.String() != "2024-01-02" || got.SleepHours != 6.5 {
		t.Fatalf("unexpected metric %+v", got.MetricRecord)
	}

	upd := rec("2024-01-03", 900, 7.5, metrics.MoodStressed)
	upd.Notes = "long day"
	updated, err := s.UpdateMetric(u.ID, m.ID, upd)
	if err != nil {
		t.Fatal(err)
	}
	if updated.Date.String() != "2024-01-03" || updated.Notes != "long day" {
		t.Fatalf("update not applied: %+v", updated.MetricRecord)
	}

	if err := s.DeleteMetric(u.ID, m.ID); err != nil {
		t.Fatal(err)
	}
	if _, err := s.GetMetric(u.ID, m.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("deleted metric: err = %v", err)
	}
	if err := s.DeleteMetric(u.ID, m.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("second delete: err = %v", err)
	}
}

func TestUpdateMetricDuplicateDay(t *testing.T) {
	s := newTestStore(t)
	u := newTestUser(t, s, "dupday@example.com")
	s.UpsertMetric(u.ID, rec("2024-01-01", 1, 1, metrics.MoodHappy))
	b, _ := s.UpsertMetric(u.ID, rec("2024-01-02", 2, 2, metrics.MoodHappy))

	_, err := s.UpdateMetric(u.ID, b.ID, rec("2024-01-01", 3, 3, metrics.MoodHappy))
	if !errors.Is(err, ErrDuplicateDay) {
		t.Fatalf("err = %v, want ErrDuplicateDay", err)
	}
}

func TestMetricsIsolatedPerUser(t *testing.T) {
	s := newTestStore(t)
	alice := newTestUser(t, s, "alice@example.com")
	bob := newTestUser(t, s, "bob@example.com")

	m, _ := s.UpsertMetric(alice.ID, rec("2024-01-01", 1, 1, metrics.MoodHappy))

	if _, err := s.GetMetric(bob.ID, m.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("bob read alice's metric: err = %v", err)
	}
	if err := s.DeleteMetric(bob.ID, m.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("bob deleted alice's metric: err = %v", err)
	}
	list, _ := s.ListMetrics(bob.ID, MetricFilter{})
	if len(list) != 0 {
		t.Fatalf("bob sees %d metrics", len(list))
	}
}

func TestListMetricsWithDateFilter(t *testing.T) {
	s := newTestStore(t)
	u := newTestUser(t, s, "range@example.com")
	for _, d := range []string{"2023-12-31", "2024-01-01", "2024-01-04", "2024-01-07", "2024-01-08"} {
		if _, err := s.UpsertMetric(u.ID, rec(d, 1, 1, metrics.MoodHappy)); err != nil {
			t.Fatal(err)
		}
	}

	from := time.Date(2024, 1, 1, 10, 30, 0, 0, time.UTC)
	to := time.Date(2024, 1, 7, 8, 0, 0, 0, time.UTC)
	list, err := s.ListMetrics(u.ID, MetricFilter{From: &from, To: &to})
	if err != nil {
		t.Fatal(err)
	}

	var got []string
	for _, m := range list {
		got = append(got, m.Date.String())
	}
	want := []string{"2024-01-07", "2024-01-04", "2024-01-01"}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got %v, want %v", got, want)
		}
	}
}

func TestSummary(t *testing.T) {
	s := newTestStore(t)
	u := newTestUser(t, s, "sum@example.com")
	s.UpsertMetric(u.ID, rec("2024-01-01", 1000, 7, metrics.MoodHappy))
	s.UpsertMetric(u.ID, rec("2024-01-02", 5000, 8, metrics.MoodTired))
	s.UpsertMetric(u.ID, rec("2024-01-03", 8000, 9, metrics.MoodHappy))

	stats, err := s.Summary(u.ID)
	if err != nil {
		t.Fatal(err)
	}
	cards := metrics.Cards(stats)
	want := []string{"4667", "8 hrs", "Happy", "3"}
	for i, c := range cards {
		if c.Value != want[i] {
			t.Fatalf("card %s = %q, want %q", c.Title, c.Value, want[i])
		}
	}
}

func TestSummaryEmpty(t *testing.T) {
	s := newTestStore(t)
	u := newTestUser(t, s, "empty@example.com")

	stats, err := s.Summary(u.ID)
	if err != nil {
		t.Fatal(err)
	}
	if stats.TotalEntries == nil || *stats.TotalEntries != 0 {
		t.Fatalf("total = %v, want 0", stats.TotalEntries)
	}
	if stats.AverageSteps != nil || stats.MostCommonMood != nil {
		t.Fatal("empty summary should omit averages and mood")
	}
}
