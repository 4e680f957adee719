// Package session holds the dashboard's in-memory view of one user's data:
// the records for the active date range, the gateway summary, and the
// loading/error flags, plus the flows that mutate them.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sadopc/wellness/internal/gateway"
	"github.com/sadopc/wellness/internal/metrics"
)

// Gateway is the slice of the remote API the controller drives.
type Gateway interface {
	ListMetrics(ctx context.Context, r metrics.DateRange) ([]metrics.MetricRecord, error)
	Summary(ctx context.Context) (metrics.SummaryStats, error)
	CreateMetric(ctx context.Context, r metrics.MetricRecord) (metrics.MetricRecord, error)
	UpdateMetric(ctx context.Context, id string, r metrics.MetricRecord) (metrics.MetricRecord, error)
	DeleteMetric(ctx context.Context, id string) error
	MoodSummary(ctx context.Context) (string, error)
}

// State is the controller lifecycle.
type State int

const (
	StateIdle State = iota
	StateLoading
	StateReady
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateLoading:
		return "loading"
	case StateReady:
		return "ready"
	case StateFailed:
		return "failed"
	}
	return "idle"
}

// Banner messages shown to the user.
const (
	MsgLoadFailed    = "Failed to load data. Please try again."
	MsgDeleteFailed  = "Failed to delete entry"
	MsgSaveFailed    = "Failed to save metric"
	MsgSummaryFailed = "Failed to refresh summary"
	MsgAuthExpired   = "Session expired. Please log in again."
)

// FallbackMoodSummary is shown whenever the narrative cannot be fetched.
const FallbackMoodSummary = "Based on your recent entries, you've been feeling mostly Happy this week. Your step count has been consistent, and you're maintaining good sleep habits. Keep up the great work! Consider adding a short walk to your routine to maintain your positive mood."

var (
	// ErrSuperseded is returned by a Load whose result was discarded because
	// a later Load was issued before it completed.
	ErrSuperseded = errors.New("load superseded by a newer request")
	ErrNotFound   = errors.New("record not loaded")
	// ErrNotConfirmed guards deletes that skipped the confirmation step.
	ErrNotConfirmed = errors.New("delete not confirmed")
)

// Snapshot is a consistent copy of the session state.
type Snapshot struct {
	State   State
	Range   metrics.DateRange
	Records []metrics.MetricRecord
	Summary metrics.SummaryStats
	// HasSummary is false until the first summary arrives.
	HasSummary bool
	Error      string
}

// Controller owns the session state. Bubble Tea commands call it from
// their own goroutines, so every field is guarded by mu.
type Controller struct {
	gw  Gateway
	log *zap.Logger

	mu         sync.Mutex
	state      State
	rng        metrics.DateRange
	records    []metrics.MetricRecord
	summary    metrics.SummaryStats
	hasSummary bool
	errMsg     string
	seq        uint64
	pending    map[string]struct{}
}

// Option configures a Controller.
type Option func(*Controller)

// WithLogger sets the controller logger.
func WithLogger(l *zap.Logger) Option {
	return func(c *Controller) { c.log = l }
}

// New returns an idle controller.
func New(gw Gateway, opts ...Option) *Controller {
	c := &Controller{
		gw:      gw,
		log:     zap.NewNop(),
		pending: make(map[string]struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Snapshot returns a copy of the current state.
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Snapshot{
		State:      c.state,
		Range:      c.rng,
		Records:    append([]metrics.MetricRecord{}, c.records...),
		Summary:    c.summary,
		HasSummary: c.hasSummary,
		Error:      c.errMsg,
	}
}

// Records returns a copy of the loaded records in gateway order.
func (c *Controller) Records() []metrics.MetricRecord {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]metrics.MetricRecord{}, c.records...)
}

// Load enters Loading for r and fetches records and summary concurrently.
// Both must succeed for the state to become Ready; either failure moves to
// Failed with an empty record set. If another Load starts before this one
// finishes, this result is dropped and ErrSuperseded is returned.
func (c *Controller) Load(ctx context.Context, r metrics.DateRange) error {
	c.mu.Lock()
	c.seq++
	seq := c.seq
	c.state = StateLoading
	c.rng = r
	c.errMsg = ""
	c.mu.Unlock()

	c.log.Debug("loading session data", zap.Uint64("seq", seq), zap.Time("start", r.Start), zap.Time("end", r.End))

	var (
		records []metrics.MetricRecord
		summary metrics.SummaryStats
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		recs, err := c.gw.ListMetrics(gctx, r)
		if errors.Is(err, metrics.ErrMalformedResponse) {
			c.log.Warn("absorbing malformed metrics response", zap.Error(err))
			recs, err = []metrics.MetricRecord{}, nil
		}
		if err != nil {
			return fmt.Errorf("list metrics: %w", err)
		}
		records = recs
		return nil
	})
	g.Go(func() error {
		s, err := c.gw.Summary(gctx)
		if errors.Is(err, metrics.ErrMalformedResponse) {
			c.log.Warn("absorbing malformed summary response", zap.Error(err))
			s, err = metrics.SummaryStats{}, nil
		}
		if err != nil {
			return fmt.Errorf("fetch summary: %w", err)
		}
		summary = s
		return nil
	})
	err := g.Wait()

	c.mu.Lock()
	defer c.mu.Unlock()

	if seq != c.seq {
		c.log.Debug("discarding superseded load", zap.Uint64("seq", seq), zap.Uint64("latest", c.seq))
		return ErrSuperseded
	}

	if err != nil {
		c.state = StateFailed
		c.records = []metrics.MetricRecord{}
		c.errMsg = MsgLoadFailed
		if gateway.IsAuthExpired(err) {
			c.errMsg = MsgAuthExpired
		}
		c.log.Error("load failed", zap.Error(err))
		return err
	}

	if records == nil {
		records = []metrics.MetricRecord{}
	}
	c.state = StateReady
	c.records = records
	c.summary = summary
	c.hasSummary = true
	c.pending = make(map[string]struct{})
	c.log.Info("session loaded", zap.Int("records", len(records)))
	return nil
}

// Refresh reloads the active range.
func (c *Controller) Refresh(ctx context.Context) error {
	c.mu.Lock()
	r := c.rng
	c.mu.Unlock()
	return c.Load(ctx, r)
}

// DeleteRequest is a staged delete awaiting explicit confirmation.
type DeleteRequest struct {
	Record    metrics.MetricRecord
	confirmed bool
}

// Confirm records the user's explicit approval.
func (d *DeleteRequest) Confirm() { d.confirmed = true }

// Confirmed reports whether Confirm was called.
func (d *DeleteRequest) Confirmed() bool { return d.confirmed }

// RequestDelete stages a delete of the loaded record with the given id.
func (c *Controller) RequestDelete(id string) (*DeleteRequest, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, r := range c.records {
		if r.ID == id {
			return &DeleteRequest{Record: r}, nil
		}
	}
	return nil, fmt.Errorf("delete %q: %w", id, ErrNotFound)
}

// Delete removes a confirmed record. The record leaves the local set at
// once, tagged pending; if the gateway refuses, it is put back at its
// original position and the error banner is set. On success the summary
// (and only the summary) is re-fetched.
//
// A Load or Reset that lands while the gateway call is in flight owns the
// record set from then on: a failed delete is not reinserted into it, and
// a successful one is removed from it again.
func (c *Controller) Delete(ctx context.Context, req *DeleteRequest) error {
	if req == nil || !req.Confirmed() {
		return ErrNotConfirmed
	}
	id := req.Record.ID

	c.mu.Lock()
	idx := c.indexOf(id)
	if idx < 0 {
		c.mu.Unlock()
		return fmt.Errorf("delete %q: %w", id, ErrNotFound)
	}
	seq := c.seq
	removed := c.records[idx]
	c.records = append(c.records[:idx:idx], c.records[idx+1:]...)
	c.pending[id] = struct{}{}
	c.errMsg = ""
	c.mu.Unlock()

	if err := c.gw.DeleteMetric(ctx, id); err != nil {
		c.mu.Lock()
		delete(c.pending, id)
		stale := seq != c.seq
		if !stale && c.indexOf(id) < 0 {
			c.reinsert(idx, removed)
		}
		if c.state != StateIdle {
			c.errMsg = MsgDeleteFailed
			if gateway.IsAuthExpired(err) {
				c.errMsg = MsgAuthExpired
			}
		}
		c.mu.Unlock()
		c.log.Error("delete failed", zap.String("id", id), zap.Bool("stale", stale), zap.Error(err))
		return fmt.Errorf("delete %q: %w", id, err)
	}

	c.mu.Lock()
	delete(c.pending, id)
	if i := c.indexOf(id); i >= 0 {
		c.records = append(c.records[:i:i], c.records[i+1:]...)
	}
	idle := c.state == StateIdle
	seq = c.seq
	c.mu.Unlock()
	c.log.Info("record deleted", zap.String("id", id))

	if idle {
		return nil
	}

	summary, err := c.gw.Summary(ctx)
	c.mu.Lock()
	defer c.mu.Unlock()
	if seq != c.seq {
		return nil
	}
	if err != nil && !errors.Is(err, metrics.ErrMalformedResponse) {
		c.errMsg = MsgSummaryFailed
		c.log.Warn("summary refresh after delete failed", zap.Error(err))
		return fmt.Errorf("refresh summary: %w", err)
	}
	c.summary = summary
	c.hasSummary = true
	return nil
}

// indexOf returns the position of id in the record set, or -1. Callers
// hold mu.
func (c *Controller) indexOf(id string) int {
	for i, r := range c.records {
		if r.ID == id {
			return i
		}
	}
	return -1
}

// reinsert puts r back at idx, clamped to the current length. Callers
// hold mu.
func (c *Controller) reinsert(idx int, r metrics.MetricRecord) {
	if idx > len(c.records) {
		idx = len(c.records)
	}
	c.records = append(c.records, metrics.MetricRecord{})
	copy(c.records[idx+1:], c.records[idx:])
	c.records[idx] = r
}

// Pending reports whether a delete of id is awaiting the gateway.
func (c *Controller) Pending(id string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.pending[id]
	return ok
}

// Save validates r, creates it (empty ID) or updates it, then reloads the
// active range.
func (c *Controller) Save(ctx context.Context, r metrics.MetricRecord) (metrics.MetricRecord, error) {
	if err := metrics.Validate(r); err != nil {
		return metrics.MetricRecord{}, err
	}

	var (
		saved metrics.MetricRecord
		err   error
	)
	if r.ID == "" {
		saved, err = c.gw.CreateMetric(ctx, r)
	} else {
		saved, err = c.gw.UpdateMetric(ctx, r.ID, r)
	}
	if err != nil {
		c.mu.Lock()
		c.errMsg = gateway.UserMessage(err, MsgSaveFailed)
		c.mu.Unlock()
		c.log.Error("save failed", zap.String("id", r.ID), zap.Error(err))
		return metrics.MetricRecord{}, fmt.Errorf("save metric: %w", err)
	}

	if err := c.Refresh(ctx); err != nil && !errors.Is(err, ErrSuperseded) {
		return saved, err
	}
	return saved, nil
}

// MoodSummary returns the gateway narrative, or FallbackMoodSummary when the
// call fails for any reason. It never reports an error.
func (c *Controller) MoodSummary(ctx context.Context) string {
	text, err := c.gw.MoodSummary(ctx)
	if err != nil || text == "" {
		c.log.Warn("mood summary unavailable, using fallback", zap.Error(err))
		return FallbackMoodSummary
	}
	return text
}

// Reset drops all state, e.g. after logout or an expired credential.
// In-flight loads are invalidated.
func (c *Controller) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.seq++
	c.state = StateIdle
	c.records = nil
	c.summary = metrics.SummaryStats{}
	c.hasSummary = false
	c.errMsg = ""
	c.pending = make(map[string]struct{})
}

// ClearError dismisses the banner.
func (c *Controller) ClearError() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.errMsg = ""
}
