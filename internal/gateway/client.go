package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/sadopc/wellness/internal/metrics"
)

const (
	defaultTimeout = 10 * time.Second
	maxBodyBytes   = 10 << 20
)

// User is the account the credential belongs to.
type User struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

// Credentials is the login/register payload.
type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type authResponse struct {
	Token string `json:"token"`
	User  User   `json:"user"`
}

// Client talks to the metrics gateway. Every request goes through the
// session's auth interceptor.
type Client struct {
	baseURL string
	session *Session
	http    *http.Client
	log     *zap.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithTimeout overrides the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.http.Timeout = d }
}

// WithLogger sets the client logger.
func WithLogger(l *zap.Logger) Option {
	return func(c *Client) { c.log = l }
}

// WithTransport replaces the underlying round tripper (the auth interceptor
// still wraps it).
func WithTransport(rt http.RoundTripper) Option {
	return func(c *Client) {
		c.http.Transport.(*authTransport).base = rt
	}
}

// New creates a client for the gateway rooted at baseURL, e.g.
// http://localhost:5000/api.
func New(baseURL string, session *Session, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		session: session,
		log:     zap.NewNop(),
	}
	at := &authTransport{base: http.DefaultTransport, session: session}
	c.http = &http.Client{Timeout: defaultTimeout, Transport: at}
	for _, opt := range opts {
		opt(c)
	}
	at.log = c.log
	return c
}

// Session returns the credential holder shared with the interceptor.
func (c *Client) Session() *Session { return c.session }

// Authenticated reports whether a credential is held.
func (c *Client) Authenticated() bool { return c.session.Authenticated() }

func (c *Client) do(ctx context.Context, method, path string, query url.Values, payload any) ([]byte, error) {
	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("encode %s %s: %w", method, path, err)
		}
		body = bytes.NewReader(data)
	}

	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, method, u, body)
	if err != nil {
		return nil, fmt.Errorf("build %s %s: %w", method, path, err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	hadToken := c.session.Authenticated()
	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.log.Warn("gateway unreachable", zap.String("method", method), zap.String("path", path), zap.Error(err))
		return nil, fmt.Errorf("%s %s: %w: %w", method, path, ErrNetwork, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("%s %s: read body: %w: %w", method, path, ErrNetwork, err)
	}

	c.log.Debug("gateway call",
		zap.String("method", method),
		zap.String("path", path),
		zap.Int("status", resp.StatusCode),
		zap.Duration("took", time.Since(start)),
	)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &StatusError{
			Method:     method,
			Path:       path,
			StatusCode: resp.StatusCode,
			Message:    errorMessage(data),
			Expired:    resp.StatusCode == http.StatusUnauthorized && hadToken,
		}
	}
	return data, nil
}

func errorMessage(body []byte) string {
	var e struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if err := json.Unmarshal(body, &e); err != nil {
		return ""
	}
	if e.Message != "" {
		return e.Message
	}
	return e.Error
}

// Register creates an account and stores the returned credential.
func (c *Client) Register(ctx context.Context, creds Credentials) (User, error) {
	return c.authenticate(ctx, "/auth/register", creds)
}

// Login exchanges credentials for a token and stores it.
func (c *Client) Login(ctx context.Context, creds Credentials) (User, error) {
	return c.authenticate(ctx, "/auth/login", creds)
}

func (c *Client) authenticate(ctx context.Context, path string, creds Credentials) (User, error) {
	data, err := c.do(ctx, http.MethodPost, path, nil, creds)
	if err != nil {
		return User{}, err
	}
	var ar authResponse
	if err := json.Unmarshal(data, &ar); err != nil || ar.Token == "" {
		return User{}, fmt.Errorf("POST %s: %w", path, metrics.ErrMalformedResponse)
	}
	if err := c.session.SetToken(ar.Token); err != nil {
		return User{}, err
	}
	return ar.User, nil
}

// Logout forgets the local credential.
func (c *Client) Logout() error {
	return c.session.Logout()
}

// Me returns the account behind the current credential.
func (c *Client) Me(ctx context.Context) (User, error) {
	data, err := c.do(ctx, http.MethodGet, "/auth/me", nil, nil)
	if err != nil {
		return User{}, err
	}
	var u User
	if err := json.Unmarshal(data, &u); err != nil {
		return User{}, fmt.Errorf("GET /auth/me: %w", metrics.ErrMalformedResponse)
	}
	return u, nil
}

// isoLayout matches the millisecond UTC timestamps browsers send.
const isoLayout = "2006-01-02T15:04:05.000Z"

// ListMetrics fetches the records in r. A body of unknown shape yields an
// empty slice together with an error wrapping metrics.ErrMalformedResponse.
func (c *Client) ListMetrics(ctx context.Context, r metrics.DateRange) ([]metrics.MetricRecord, error) {
	q := url.Values{}
	q.Set("startDate", r.Start.UTC().Format(isoLayout))
	q.Set("endDate", r.End.UTC().Format(isoLayout))

	data, err := c.do(ctx, http.MethodGet, "/metrics", q, nil)
	if err != nil {
		return nil, err
	}
	records, shape, err := metrics.DecodeRecords(data)
	if err != nil {
		c.log.Warn("unrecognized metrics response", zap.Int("bytes", len(data)))
		return records, err
	}
	c.log.Debug("decoded metrics", zap.Stringer("shape", shape), zap.Int("count", len(records)))
	return records, nil
}

// GetMetric fetches one record by id.
func (c *Client) GetMetric(ctx context.Context, id string) (metrics.MetricRecord, error) {
	data, err := c.do(ctx, http.MethodGet, "/metrics/"+url.PathEscape(id), nil, nil)
	if err != nil {
		return metrics.MetricRecord{}, err
	}
	return metrics.DecodeRecord(data)
}

// CreateMetric posts a new entry. The gateway may upsert by date.
func (c *Client) CreateMetric(ctx context.Context, r metrics.MetricRecord) (metrics.MetricRecord, error) {
	r.ID = ""
	data, err := c.do(ctx, http.MethodPost, "/metrics", nil, r)
	if err != nil {
		return metrics.MetricRecord{}, err
	}
	return decodeEcho(data, r), nil
}

// UpdateMetric replaces the entry with the given id.
func (c *Client) UpdateMetric(ctx context.Context, id string, r metrics.MetricRecord) (metrics.MetricRecord, error) {
	r.ID = ""
	data, err := c.do(ctx, http.MethodPut, "/metrics/"+url.PathEscape(id), nil, r)
	if err != nil {
		return metrics.MetricRecord{}, err
	}
	out := decodeEcho(data, r)
	if out.ID == "" {
		out.ID = id
	}
	return out, nil
}

// decodeEcho prefers the gateway's copy of a saved record and falls back to
// what was sent; no content contract is assumed for mutations.
func decodeEcho(data []byte, sent metrics.MetricRecord) metrics.MetricRecord {
	rec, err := metrics.DecodeRecord(data)
	if err != nil {
		return sent
	}
	return rec
}

// DeleteMetric removes the entry with the given id.
func (c *Client) DeleteMetric(ctx context.Context, id string) error {
	_, err := c.do(ctx, http.MethodDelete, "/metrics/"+url.PathEscape(id), nil, nil)
	return err
}

// Summary fetches the server-side aggregate.
func (c *Client) Summary(ctx context.Context) (metrics.SummaryStats, error) {
	data, err := c.do(ctx, http.MethodGet, "/metrics/summary", nil, nil)
	if err != nil {
		return metrics.SummaryStats{}, err
	}
	return metrics.DecodeSummary(data)
}

// ExportCSV returns the gateway-generated CSV bytes.
func (c *Client) ExportCSV(ctx context.Context) ([]byte, error) {
	data, err := c.do(ctx, http.MethodGet, "/metrics/export/csv", nil, nil)
	if err != nil {
		return nil, err
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, fmt.Errorf("GET /metrics/export/csv: empty body: %w", ErrNetwork)
	}
	return data, nil
}

// MoodSummary fetches the narrative, sent as {"summary": "..."}, a JSON
// string, or plain text.
func (c *Client) MoodSummary(ctx context.Context) (string, error) {
	data, err := c.do(ctx, http.MethodGet, "/metrics/ai/summary", nil, nil)
	if err != nil {
		return "", err
	}
	text := parseNarrative(data)
	if text == "" {
		return "", fmt.Errorf("GET /metrics/ai/summary: %w", metrics.ErrMalformedResponse)
	}
	return text, nil
}

func parseNarrative(data []byte) string {
	var obj struct {
		Summary string `json:"summary"`
	}
	if err := json.Unmarshal(data, &obj); err == nil && obj.Summary != "" {
		return obj.Summary
	}
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		return strings.TrimSpace(s)
	}
	trimmed := strings.TrimSpace(string(data))
	if strings.HasPrefix(trimmed, "{") || strings.HasPrefix(trimmed, "[") {
		return ""
	}
	return trimmed
}

// IsAuthExpired reports whether err came from a rejected credential.
func IsAuthExpired(err error) bool {
	return errors.Is(err, ErrAuthExpired)
}
