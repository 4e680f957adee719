package tui

import (
	"context"
	"strconv"
	"time"

	"github.com/sadopc/wellness/internal/export"
	"github.com/sadopc/wellness/internal/gateway"
)

// viewState represents the currently active view.
type viewState int

const (
	viewDashboard viewState = iota
	viewChart
	viewInsights
)

var viewNames = []string{"Dashboard", "Chart", "Insights"}

// requestTimeout bounds every gateway round trip started from the UI.
const requestTimeout = 15 * time.Second

// --- Messages ---

type statusMsg struct {
	text    string
	isError bool
}

// loadedMsg reports a finished controller load; the view re-reads the
// snapshot when it arrives.
type loadedMsg struct {
	err error
}

type deletedMsg struct {
	err error
}

type savedMsg struct {
	err error
}

type moodMsg struct {
	text string
}

type authDoneMsg struct {
	user gateway.User
	err  error
}

type exportDoneMsg struct {
	result export.Result
	err    error
}

type loggedOutMsg struct{}

// --- Helpers ---

func requestContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), requestTimeout)
}

func formatSleep(h float64) string {
	return strconv.FormatFloat(h, 'f', -1, 64)
}

func truncate(s string, n int) string {
	r := []rune(s)
	if n <= 0 || len(r) <= n {
		return s
	}
	if n == 1 {
		return "…"
	}
	return string(r[:n-1]) + "…"
}
