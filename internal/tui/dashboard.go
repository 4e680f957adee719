package tui

import (
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/sadopc/wellness/internal/metrics"
	"github.com/sadopc/wellness/internal/session"
)

const (
	formFilter = "filter"
	formEntry  = "entry"
	formDelete = "delete"
)

type dashboardModel struct {
	ctrl       *session.Controller
	dateLayout string
	width      int
	height     int

	snap    session.Snapshot
	loading bool
	cursor  int
	spinner spinner.Model

	formActive bool
	form       *huh.Form
	formType   string
	formErr    string

	// Form field pointers (survive value copies)
	fStart   *string
	fEnd     *string
	fDate    *string
	fSteps   *string
	fSleep   *string
	fMood    *string
	fNotes   *string
	fConfirm *bool

	editingID     string
	pendingDelete *session.DeleteRequest
}

func newDashboardModel(c *session.Controller, dateLayout string) dashboardModel {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = highlightStyle

	start, end, date, steps, sleep, mood, notes := "", "", "", "", "", string(metrics.MoodHappy), ""
	confirm := false
	return dashboardModel{
		ctrl:       c,
		dateLayout: dateLayout,
		spinner:    sp,
		snap:       c.Snapshot(),
		fStart:     &start,
		fEnd:       &end,
		fDate:      &date,
		fSteps:     &steps,
		fSleep:     &sleep,
		fMood:      &mood,
		fNotes:     &notes,
		fConfirm:   &confirm,
	}
}

func (d *dashboardModel) setSize(w, h int) {
	d.width = w
	d.height = h
}

// load starts a controller load for r and the loading spinner.
func (d dashboardModel) load(r metrics.DateRange) (dashboardModel, tea.Cmd) {
	d.loading = true
	d.snap.Range = r
	ctrl := d.ctrl
	return d, tea.Batch(d.spinner.Tick, func() tea.Msg {
		ctx, cancel := requestContext()
		defer cancel()
		return loadedMsg{err: ctrl.Load(ctx, r)}
	})
}

func (d dashboardModel) refresh() (dashboardModel, tea.Cmd) {
	return d.load(d.snap.Range)
}

func (d dashboardModel) selected() (metrics.MetricRecord, bool) {
	if d.cursor < 0 || d.cursor >= len(d.snap.Records) {
		return metrics.MetricRecord{}, false
	}
	return d.snap.Records[d.cursor], true
}

func (d *dashboardModel) syncSnapshot() {
	d.snap = d.ctrl.Snapshot()
	if d.cursor >= len(d.snap.Records) {
		d.cursor = max(0, len(d.snap.Records)-1)
	}
}

func (d dashboardModel) update(msg tea.Msg) (dashboardModel, tea.Cmd) {
	switch msg := msg.(type) {
	case loadedMsg:
		if errors.Is(msg.err, session.ErrSuperseded) {
			return d, nil
		}
		d.loading = false
		d.syncSnapshot()
		return d, nil

	case deletedMsg:
		d.syncSnapshot()
		if msg.err != nil {
			return d, nil
		}
		return d, statusCmd("Entry deleted", false)

	case savedMsg:
		if errors.Is(msg.err, metrics.ErrValidation) {
			d.formErr = msg.err.Error()
			return d.showEntryForm(d.editingID)
		}
		d.syncSnapshot()
		if msg.err != nil {
			return d, nil
		}
		return d, statusCmd("Entry saved", false)

	case spinner.TickMsg:
		if !d.loading {
			return d, nil
		}
		var cmd tea.Cmd
		d.spinner, cmd = d.spinner.Update(msg)
		return d, cmd
	}

	if d.formActive && d.form != nil {
		return d.updateForm(msg)
	}

	if msg, ok := msg.(tea.KeyMsg); ok {
		switch {
		case key.Matches(msg, keys.Up):
			if d.cursor > 0 {
				d.cursor--
			}
		case key.Matches(msg, keys.Down):
			if d.cursor < len(d.snap.Records)-1 {
				d.cursor++
			}
		case key.Matches(msg, keys.Refresh):
			return d.refresh()
		case key.Matches(msg, keys.Filter):
			return d.showFilterForm()
		case key.Matches(msg, keys.New):
			d.formErr = ""
			return d.showEntryForm("")
		case key.Matches(msg, keys.Edit), key.Matches(msg, keys.Enter):
			if r, ok := d.selected(); ok {
				d.formErr = ""
				return d.showEntryForm(r.ID)
			}
		case key.Matches(msg, keys.Delete):
			if r, ok := d.selected(); ok {
				return d.showDeleteConfirm(r.ID)
			}
		}
	}
	return d, nil
}

func statusCmd(text string, isError bool) tea.Cmd {
	return func() tea.Msg { return statusMsg{text: text, isError: isError} }
}

func (d dashboardModel) view() string {
	if d.width < 20 {
		return "Terminal too small"
	}
	w := d.width - 4

	if d.formActive && d.form != nil {
		return d.renderForm(w)
	}

	var sections []string
	if d.snap.Error != "" {
		sections = append(sections, bannerStyle.Render(d.snap.Error))
	}
	sections = append(sections, d.renderRangeLine(), d.renderCards(w), d.renderTable(w))
	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func (d dashboardModel) renderRangeLine() string {
	r := d.snap.Range
	label := "No range selected"
	if !r.Start.IsZero() {
		label = fmt.Sprintf("%s – %s", r.Start.Format(d.dateLayout), r.End.Format(d.dateLayout))
	}
	line := titleStyle.Render("Range") + "  " + highlightStyle.Render(label)
	if d.loading {
		line += "  " + d.spinner.View() + mutedStyle.Render(" loading")
	}
	return " " + line
}

func (d dashboardModel) renderCards(w int) string {
	cards := metrics.Cards(d.snap.Summary)
	cardWidth := max(14, (w-len(cards)*2)/len(cards))

	var rendered []string
	for _, c := range cards {
		body := lipgloss.JoinVertical(lipgloss.Center,
			mutedStyle.Render(c.Icon+" "+c.Title),
			cardValueStyle.Render(c.Value),
		)
		rendered = append(rendered, cardStyle.Width(cardWidth).Render(body))
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, rendered...)
}

func (d dashboardModel) renderTable(w int) string {
	title := titleStyle.Render("Entries")
	if len(d.snap.Records) == 0 {
		hint := "No entries for this range. Press a to add one."
		if d.loading {
			hint = "Loading..."
		}
		return panelStyle.Width(w).Render(lipgloss.JoinVertical(lipgloss.Left,
			title, "", mutedStyle.Render(hint),
		))
	}

	notesWidth := max(8, w-58)
	var rows []string
	rows = append(rows, title, "")
	rows = append(rows, mutedStyle.Render(fmt.Sprintf("  %-12s %8s %8s  %-14s %s", "Date", "Steps", "Sleep", "Mood", "Notes")))
	rows = append(rows, mutedStyle.Render("  "+strings.Repeat("─", min(w-6, 70))))

	for i, r := range d.snap.Records {
		cursor := "  "
		style := normalItemStyle
		if i == d.cursor {
			cursor = "> "
			style = selectedItemStyle
		}
		mood := string(r.Mood)
		if e := r.Mood.Emoji(); e != "" {
			mood = e + " " + mood
		}
		row := fmt.Sprintf("%s%-12s %8d %8s  %-14s %s",
			cursor,
			r.Date.Format(d.dateLayout),
			r.Steps,
			formatSleep(r.SleepHours)+"h",
			mood,
			truncate(r.Notes, notesWidth),
		)
		rows = append(rows, style.Render(row))
	}
	rows = append(rows, "", mutedStyle.Render("  a: add  e: edit  d: delete  f: date range  r: refresh"))

	return panelStyle.Width(w).Render(strings.Join(rows, "\n"))
}
