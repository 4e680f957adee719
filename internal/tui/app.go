package tui

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"go.uber.org/zap"

	"github.com/sadopc/wellness/internal/export"
	"github.com/sadopc/wellness/internal/gateway"
	"github.com/sadopc/wellness/internal/metrics"
	"github.com/sadopc/wellness/internal/session"
)

// Auth is the account side of the gateway.
type Auth interface {
	Login(ctx context.Context, c gateway.Credentials) (gateway.User, error)
	Register(ctx context.Context, c gateway.Credentials) (gateway.User, error)
	Logout() error
	Authenticated() bool
}

type exportFormat struct {
	name string
	run  func(*export.Exporter, context.Context, []metrics.MetricRecord) (export.Result, error)
}

var exportFormats = []exportFormat{
	{"CSV", (*export.Exporter).CSV},
	{"Printable report", (*export.Exporter).Report},
	{"PDF", (*export.Exporter).PDF},
	{"JSON", (*export.Exporter).JSON},
}

// App is the root Bubble Tea model.
type App struct {
	ctrl     *session.Controller
	auth     Auth
	exporter *export.Exporter
	log      *zap.Logger
	now      func() time.Time

	width  int
	height int

	loggedIn      bool
	activeView    viewState
	showHelp      bool
	exportPicking bool
	exportCursor  int
	exporting     bool

	login     loginModel
	dashboard dashboardModel
	chart     chartModel
	insights  insightsModel

	help      help.Model
	status    string
	statusErr bool
}

func NewApp(ctrl *session.Controller, auth Auth, exp *export.Exporter, log *zap.Logger) App {
	if log == nil {
		log = zap.NewNop()
	}
	h := help.New()
	h.ShowAll = false

	layout := export.DefaultDateLayout
	if exp != nil && exp.DateLayout != "" {
		layout = exp.DateLayout
	}

	a := App{
		ctrl:       ctrl,
		auth:       auth,
		exporter:   exp,
		log:        log,
		now:        time.Now,
		loggedIn:   auth.Authenticated(),
		activeView: viewDashboard,
		login:      newLoginModel(auth),
		dashboard:  newDashboardModel(ctrl, layout),
		chart:      newChartModel(layout),
		insights:   newInsightsModel(ctrl),
		help:       h,
	}
	if a.loggedIn {
		a.dashboard.loading = true
		a.dashboard.snap.Range = metrics.DefaultRange(a.now())
	} else {
		a.login, _ = a.login.show()
	}
	return a
}

func (a App) Init() tea.Cmd {
	if !a.loggedIn {
		return a.login.form.Init()
	}
	_, cmd := a.dashboard.load(a.dashboard.snap.Range)
	return cmd
}

func (a App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		a.help.Width = msg.Width
		contentHeight := a.height - 4 // header + footer
		a.login.setSize(a.width, contentHeight)
		a.dashboard.setSize(a.width, contentHeight)
		a.chart.setSize(a.width, contentHeight)
		a.insights.setSize(a.width, contentHeight)
		return a, nil

	case authDoneMsg:
		var cmd tea.Cmd
		a.login, cmd = a.login.update(msg)
		if msg.err != nil {
			a.log.Warn("authentication failed", zap.Error(msg.err))
			return a, cmd
		}
		a.loggedIn = true
		a.activeView = viewDashboard
		a.setStatus("Signed in as "+msg.user.Email, false)
		a.dashboard, cmd = a.dashboard.load(metrics.DefaultRange(a.now()))
		return a, cmd

	case loggedOutMsg:
		return a.toLogin("")

	case loadedMsg:
		if gateway.IsAuthExpired(msg.err) {
			return a.toLogin(session.MsgAuthExpired)
		}
		return a.afterDataChange(msg)

	case deletedMsg:
		if gateway.IsAuthExpired(msg.err) {
			return a.toLogin(session.MsgAuthExpired)
		}
		return a.afterDataChange(msg)

	case savedMsg:
		if gateway.IsAuthExpired(msg.err) {
			return a.toLogin(session.MsgAuthExpired)
		}
		return a.afterDataChange(msg)

	case moodMsg:
		var cmd tea.Cmd
		a.insights, cmd = a.insights.update(msg)
		return a, cmd

	case spinner.TickMsg:
		// Spinners ignore ticks carrying another spinner's ID.
		var c1, c2 tea.Cmd
		a.dashboard, c1 = a.dashboard.update(msg)
		a.insights, c2 = a.insights.update(msg)
		return a, tea.Batch(c1, c2)

	case statusMsg:
		a.setStatus(msg.text, msg.isError)
		return a, nil

	case exportDoneMsg:
		a.exporting = false
		a.exportPicking = false
		a.setStatus(exportStatus(msg))
		return a, nil

	case tea.KeyMsg:
		if !a.loggedIn {
			if msg.String() == "ctrl+c" {
				return a, tea.Quit
			}
			var cmd tea.Cmd
			a.login, cmd = a.login.update(msg)
			return a, cmd
		}

		// Export picker
		if a.exportPicking {
			return a.updateExportPicker(msg)
		}

		// If a child view is capturing input (e.g. form), delegate first.
		if a.isFormActive() {
			return a.updateActiveView(msg)
		}

		switch {
		case key.Matches(msg, keys.Export):
			a.exportPicking = true
			a.exportCursor = 0
			return a, nil
		case key.Matches(msg, keys.Quit):
			return a, tea.Quit
		case key.Matches(msg, keys.Help):
			a.showHelp = !a.showHelp
			a.help.ShowAll = a.showHelp
			return a, nil
		case key.Matches(msg, keys.Logout):
			return a, a.logout()
		case key.Matches(msg, keys.Mood):
			a.activeView = viewInsights
			var cmd tea.Cmd
			a.insights, cmd = a.insights.fetch()
			return a, cmd
		case key.Matches(msg, keys.Tab1):
			a.activeView = viewDashboard
			return a, nil
		case key.Matches(msg, keys.Tab2):
			a.activeView = viewChart
			return a, nil
		case key.Matches(msg, keys.Tab3):
			return a.openInsights()
		case key.Matches(msg, keys.Tab):
			a.activeView = (a.activeView + 1) % viewState(len(viewNames))
			if a.activeView == viewInsights {
				return a.openInsights()
			}
			return a, nil
		}
	}

	if !a.loggedIn {
		var cmd tea.Cmd
		a.login, cmd = a.login.update(msg)
		return a, cmd
	}
	return a.updateActiveView(msg)
}

func (a *App) setStatus(text string, isError bool) {
	a.status = text
	a.statusErr = isError
}

// afterDataChange hands a controller result to the dashboard and refreshes
// the views derived from the same snapshot.
func (a App) afterDataChange(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	a.dashboard, cmd = a.dashboard.update(msg)
	a.chart.setRecords(a.dashboard.snap.Records)
	a.insights.setSummary(a.dashboard.snap.Summary)
	return a, cmd
}

func (a App) openInsights() (tea.Model, tea.Cmd) {
	a.activeView = viewInsights
	if a.insights.narrative != "" {
		return a, nil
	}
	var cmd tea.Cmd
	a.insights, cmd = a.insights.fetch()
	return a, cmd
}

// toLogin drops all session data and shows the credential form with an
// optional banner.
func (a App) toLogin(banner string) (tea.Model, tea.Cmd) {
	a.ctrl.Reset()
	a.loggedIn = false
	a.exportPicking = false
	a.activeView = viewDashboard
	a.dashboard.formActive = false
	a.dashboard.form = nil
	a.dashboard.loading = false
	a.dashboard.syncSnapshot()
	a.chart.setRecords(nil)
	a.insights.narrative = ""
	a.insights.setSummary(metrics.SummaryStats{})
	a.setStatus("", false)
	if banner != "" {
		a.log.Info("session ended", zap.String("reason", banner))
	}

	a.login.err = banner
	var cmd tea.Cmd
	a.login, cmd = a.login.show()
	return a, cmd
}

func (a App) logout() tea.Cmd {
	auth, log := a.auth, a.log
	return func() tea.Msg {
		if err := auth.Logout(); err != nil {
			log.Warn("logout failed", zap.Error(err))
		}
		return loggedOutMsg{}
	}
}

func (a App) updateActiveView(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	switch a.activeView {
	case viewDashboard:
		a.dashboard, cmd = a.dashboard.update(msg)
	case viewInsights:
		a.insights, cmd = a.insights.update(msg)
	}
	return a, cmd
}

func (a App) isFormActive() bool {
	return a.activeView == viewDashboard && a.dashboard.formActive
}

func (a App) View() string {
	if a.width == 0 {
		return "Loading..."
	}

	header := a.renderHeader()
	footer := a.renderFooter()

	var content string
	switch {
	case !a.loggedIn:
		content = a.login.view()
	case a.activeView == viewDashboard:
		content = a.dashboard.view()
	case a.activeView == viewChart:
		content = a.chart.view()
	case a.activeView == viewInsights:
		content = a.insights.view()
	}

	// Calculate available height for content
	headerHeight := lipgloss.Height(header)
	footerHeight := lipgloss.Height(footer)
	contentHeight := max(1, a.height-headerHeight-footerHeight)

	// Show export picker overlay
	if a.exportPicking {
		content = a.renderExportPicker()
	}

	content = lipgloss.NewStyle().
		Width(a.width).
		Height(contentHeight).
		Render(content)

	return lipgloss.JoinVertical(lipgloss.Left, header, content, footer)
}

func (a App) renderHeader() string {
	title := brandStyle.Render("wellness")
	if !a.loggedIn {
		return headerStyle.Render(title)
	}

	var tabs []string
	for i, name := range viewNames {
		if viewState(i) == a.activeView {
			tabs = append(tabs, activeTabStyle.Render(name))
		} else {
			tabs = append(tabs, inactiveTabStyle.Render(name))
		}
	}
	tabRow := lipgloss.JoinHorizontal(lipgloss.Bottom, tabs...)

	gap := max(1, a.width-lipgloss.Width(title)-lipgloss.Width(tabRow)-4)
	spacer := lipgloss.NewStyle().Width(gap).Render("")

	return headerStyle.Render(
		lipgloss.JoinHorizontal(lipgloss.Bottom, title, spacer, tabRow),
	)
}

func (a App) renderFooter() string {
	left := ""
	if a.loggedIn {
		left = footerStyle.Render(a.help.View(keys))
	} else {
		left = footerStyle.Render("ctrl+c quit")
	}

	right := ""
	if a.exporting {
		right = busyStyle.Render(" Exporting...")
	} else if a.status != "" {
		style := mutedStyle
		if a.statusErr {
			style = errorStyle
		}
		right = style.Render(" " + a.status)
	}

	gap := max(1, a.width-lipgloss.Width(left)-lipgloss.Width(right)-2)
	spacer := lipgloss.NewStyle().Width(gap).Render("")

	return lipgloss.JoinHorizontal(lipgloss.Bottom, left, spacer, right)
}

func (a App) renderExportPicker() string {
	title := titleStyle.Render("Export Format")
	var rows []string
	rows = append(rows, title)
	rows = append(rows, mutedStyle.Render(fmt.Sprintf("%d entries in the current range", len(a.dashboard.snap.Records))))
	rows = append(rows, "")
	for i, f := range exportFormats {
		cursor := "  "
		style := normalItemStyle
		if i == a.exportCursor {
			cursor = "> "
			style = selectedItemStyle
		}
		rows = append(rows, style.Render(cursor+f.name))
	}
	rows = append(rows, "")
	rows = append(rows, mutedStyle.Render("  enter: export  esc: cancel"))

	w := a.width - 4
	return activePanelStyle.Width(w).Render(lipgloss.JoinVertical(lipgloss.Left, rows...))
}

func (a App) updateExportPicker(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, keys.Up):
		if a.exportCursor > 0 {
			a.exportCursor--
		}
	case key.Matches(msg, keys.Down):
		if a.exportCursor < len(exportFormats)-1 {
			a.exportCursor++
		}
	case key.Matches(msg, keys.Enter):
		a.exportPicking = false
		if a.exporting {
			return a, nil
		}
		a.exporting = true
		return a, a.doExport(a.exportCursor)
	case key.Matches(msg, keys.Back):
		a.exportPicking = false
	}
	return a, nil
}

// doExport runs the chosen export over the records currently shown.
func (a App) doExport(format int) tea.Cmd {
	exp := a.exporter
	records := a.ctrl.Records()
	f := exportFormats[format]
	log := a.log
	return func() tea.Msg {
		if exp == nil {
			return exportDoneMsg{err: errors.New("export is not configured")}
		}
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
		defer cancel()
		res, err := f.run(exp, ctx, records)
		if err != nil && !errors.Is(err, export.ErrNoData) {
			log.Error("export failed", zap.String("format", f.name), zap.Error(err))
		}
		return exportDoneMsg{result: res, err: err}
	}
}

func exportStatus(msg exportDoneMsg) (string, bool) {
	switch {
	case errors.Is(msg.err, export.ErrNoData):
		return export.MsgNoData, true
	case msg.err != nil:
		return fmt.Sprintf("Export error: %v", msg.err), true
	case msg.result.Fallback != nil && errors.Is(msg.result.Fallback, export.ErrGatewayUnavailable):
		return "Exported to " + msg.result.Path + " (generated locally)", false
	case errors.Is(msg.result.Fallback, export.ErrNoBrowser):
		return "No Chrome found for PDF, wrote printable report to " + msg.result.Path, false
	case msg.result.Fallback != nil:
		return "PDF unavailable, wrote printable report to " + msg.result.Path, false
	}
	return "Exported to " + msg.result.Path, false
}
