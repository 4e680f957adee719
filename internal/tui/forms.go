package tui

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/sadopc/wellness/internal/metrics"
)

// inputDayLayout is what the date inputs accept.
const inputDayLayout = "2006-01-02"

func validateDay(s string) error {
	if _, err := time.Parse(inputDayLayout, strings.TrimSpace(s)); err != nil {
		return errors.New("use YYYY-MM-DD")
	}
	return nil
}

func validateSteps(s string) error {
	_, err := metrics.ParseSteps(s)
	return err
}

func validateSleep(s string) error {
	_, err := metrics.ParseSleep(s)
	return err
}

// rangeFromInputs turns two calendar days into a range covering both days
// completely.
func rangeFromInputs(start, end string) (metrics.DateRange, error) {
	return metrics.RangeFromDays(start, end)
}

func (d dashboardModel) showFilterForm() (dashboardModel, tea.Cmd) {
	r := d.snap.Range
	if r.Start.IsZero() {
		r = metrics.DefaultRange(time.Now())
	}
	*d.fStart = r.Start.Format(inputDayLayout)
	*d.fEnd = r.End.Format(inputDayLayout)
	d.formType = formFilter
	d.formErr = ""

	start := d.fStart
	d.form = huh.NewForm(
		huh.NewGroup(
			huh.NewInput().Title("Start date").Placeholder(inputDayLayout).Value(d.fStart).Validate(validateDay),
			huh.NewInput().Title("End date").Placeholder(inputDayLayout).Value(d.fEnd).Validate(func(s string) error {
				if err := validateDay(s); err != nil {
					return err
				}
				if _, err := rangeFromInputs(*start, s); err != nil {
					return errors.New("end date must not be before start date")
				}
				return nil
			}),
		),
	).WithShowHelp(true).WithShowErrors(true)

	d.formActive = true
	return d, d.form.Init()
}

func (d dashboardModel) showEntryForm(id string) (dashboardModel, tea.Cmd) {
	d.editingID = id
	d.formType = formEntry

	rec, found := metrics.MetricRecord{}, false
	if id != "" {
		for _, r := range d.snap.Records {
			if r.ID == id {
				rec, found = r, true
				break
			}
		}
	}
	// A validation round trip keeps what the user typed.
	if d.formErr == "" {
		if found {
			*d.fDate = rec.Date.String()
			*d.fSteps = strconv.Itoa(rec.Steps)
			*d.fSleep = formatSleep(rec.SleepHours)
			*d.fMood = string(rec.Mood)
			*d.fNotes = rec.Notes
		} else {
			*d.fDate = time.Now().Format(inputDayLayout)
			*d.fSteps = ""
			*d.fSleep = ""
			*d.fMood = string(metrics.MoodHappy)
			*d.fNotes = ""
		}
	}

	moodOptions := make([]huh.Option[string], 0, len(metrics.Moods)+1)
	for _, m := range metrics.Moods {
		moodOptions = append(moodOptions, huh.NewOption(m.Label(), string(m)))
	}
	if found && !rec.Mood.Known() && rec.Mood != "" {
		moodOptions = append(moodOptions, huh.NewOption(string(rec.Mood), string(rec.Mood)))
	}

	d.form = huh.NewForm(
		huh.NewGroup(
			huh.NewInput().Title("Date").Placeholder(inputDayLayout).Value(d.fDate).Validate(validateDay),
			huh.NewInput().Title("Steps").Value(d.fSteps).Validate(validateSteps),
			huh.NewInput().Title("Sleep (hours)").Value(d.fSleep).Validate(validateSleep),
			huh.NewSelect[string]().Title("Mood").Options(moodOptions...).Value(d.fMood),
			huh.NewText().Title("Notes").Lines(3).Value(d.fNotes),
		),
	).WithShowHelp(true).WithShowErrors(true)

	d.formActive = true
	return d, d.form.Init()
}

func (d dashboardModel) showDeleteConfirm(id string) (dashboardModel, tea.Cmd) {
	req, err := d.ctrl.RequestDelete(id)
	if err != nil {
		return d, statusCmd("Entry no longer loaded", true)
	}
	d.pendingDelete = req
	d.formType = formDelete
	*d.fConfirm = false

	title := "Delete this entry?"
	if r, ok := d.selected(); ok {
		title = fmt.Sprintf("Delete the entry for %s?", r.Date.Format(d.dateLayout))
	}
	d.form = huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title(title).
				Description("This cannot be undone.").
				Affirmative("Delete").
				Negative("Cancel").
				Value(d.fConfirm),
		),
	).WithShowHelp(true)

	d.formActive = true
	return d, d.form.Init()
}

// entryFromForm builds the record the entry form describes.
func (d dashboardModel) entryFromForm() (metrics.MetricRecord, error) {
	day, err := metrics.ParseDay(*d.fDate)
	if err != nil {
		return metrics.MetricRecord{}, &metrics.ValidationError{Field: "date", Reason: "use YYYY-MM-DD"}
	}
	steps, err := metrics.ParseSteps(*d.fSteps)
	if err != nil {
		return metrics.MetricRecord{}, err
	}
	sleep, err := metrics.ParseSleep(*d.fSleep)
	if err != nil {
		return metrics.MetricRecord{}, err
	}
	return metrics.MetricRecord{
		ID:         d.editingID,
		Date:       day,
		Steps:      steps,
		SleepHours: sleep,
		Mood:       metrics.Mood(*d.fMood),
		Notes:      strings.TrimSpace(*d.fNotes),
	}, nil
}

func (d dashboardModel) updateForm(msg tea.Msg) (dashboardModel, tea.Cmd) {
	// Check for escape to cancel form
	if msg, ok := msg.(tea.KeyMsg); ok {
		if msg.String() == "esc" {
			d.formActive = false
			d.form = nil
			d.formErr = ""
			d.pendingDelete = nil
			return d, nil
		}
	}

	form, cmd := d.form.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		d.form = f
	}

	if d.form.State == huh.StateAborted {
		d.formActive = false
		d.form = nil
		d.pendingDelete = nil
		return d, nil
	}
	if d.form.State != huh.StateCompleted {
		return d, cmd
	}

	d.formActive = false
	switch d.formType {
	case formFilter:
		r, err := rangeFromInputs(*d.fStart, *d.fEnd)
		if err != nil {
			d.formErr = "End date must not be before start date"
			return d.showFilterFormWithError()
		}
		d.form = nil
		return d.load(r)

	case formEntry:
		rec, err := d.entryFromForm()
		if err != nil {
			d.formErr = err.Error()
			return d.showEntryForm(d.editingID)
		}
		d.form = nil
		d.formErr = ""
		ctrl := d.ctrl
		return d, func() tea.Msg {
			ctx, cancel := requestContext()
			defer cancel()
			_, err := ctrl.Save(ctx, rec)
			return savedMsg{err: err}
		}

	case formDelete:
		d.form = nil
		req := d.pendingDelete
		d.pendingDelete = nil
		if req == nil || !*d.fConfirm {
			return d, nil
		}
		req.Confirm()
		ctrl := d.ctrl
		return d, func() tea.Msg {
			ctx, cancel := requestContext()
			defer cancel()
			return deletedMsg{err: ctrl.Delete(ctx, req)}
		}
	}
	d.form = nil
	return d, nil
}

func (d dashboardModel) showFilterFormWithError() (dashboardModel, tea.Cmd) {
	errText := d.formErr
	d, cmd := d.showFilterForm()
	d.formErr = errText
	return d, cmd
}

func (d dashboardModel) renderForm(w int) string {
	var title string
	switch d.formType {
	case formFilter:
		title = "Date Range"
	case formEntry:
		title = "New Entry"
		if d.editingID != "" {
			title = "Edit Entry"
		}
	case formDelete:
		title = "Delete Entry"
	}

	rows := []string{titleStyle.Render(title), ""}
	if d.formErr != "" {
		rows = append(rows, errorStyle.Render(d.formErr), "")
	}
	rows = append(rows, d.form.View())
	return panelStyle.Width(w).Render(lipgloss.JoinVertical(lipgloss.Left, rows...))
}
