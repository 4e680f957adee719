package tui

import (
	"fmt"
	"strings"

	"github.com/NimbleMarkets/ntcharts/barchart"
	"github.com/charmbracelet/lipgloss"

	"github.com/sadopc/wellness/internal/metrics"
)

// chartModel draws steps and sleep per logged day for the loaded range.
type chartModel struct {
	width      int
	height     int
	dateLayout string

	records []metrics.MetricRecord

	steps barchart.Model
	sleep barchart.Model
}

func newChartModel(dateLayout string) chartModel {
	return chartModel{
		dateLayout: dateLayout,
		steps:      barchart.New(60, 8),
		sleep:      barchart.New(60, 8),
	}
}

func (c *chartModel) setSize(w, h int) {
	c.width = w
	c.height = h
	c.buildCharts()
}

// setRecords replaces the plotted records. Records arrive newest first and
// are plotted oldest first.
func (c *chartModel) setRecords(records []metrics.MetricRecord) {
	c.records = make([]metrics.MetricRecord, len(records))
	for i, r := range records {
		c.records[len(records)-1-i] = r
	}
	c.buildCharts()
}

func (c *chartModel) buildCharts() {
	chartWidth := max(20, c.width-8)
	chartHeight := 8
	if c.height > 36 {
		chartHeight = 12
	}

	c.steps = barchart.New(chartWidth, chartHeight)
	c.sleep = barchart.New(chartWidth, chartHeight)

	var stepBars, sleepBars []barchart.BarData
	for _, r := range c.records {
		label := r.Date.Format("Jan 02")
		stepBars = append(stepBars, barchart.BarData{
			Label:  label,
			Values: []barchart.BarValue{{Name: "Steps", Value: float64(r.Steps), Style: stepsBarStyle}},
		})
		sleepBars = append(sleepBars, barchart.BarData{
			Label:  label,
			Values: []barchart.BarValue{{Name: "Sleep", Value: r.SleepHours, Style: sleepBarStyle}},
		})
	}
	if len(stepBars) == 0 {
		return
	}

	c.steps.PushAll(stepBars)
	c.steps.Draw()
	c.sleep.PushAll(sleepBars)
	c.sleep.Draw()
}

func (c chartModel) view() string {
	w := c.width - 4
	title := titleStyle.Render("Trends")

	if len(c.records) == 0 {
		return panelStyle.Width(w).Render(lipgloss.JoinVertical(lipgloss.Left,
			title, "", mutedStyle.Render("No entries in the selected range"),
		))
	}

	first, last := c.records[0].Date, c.records[len(c.records)-1].Date
	dateLabel := mutedStyle.Render(fmt.Sprintf("%s – %s", first.Format(c.dateLayout), last.Format(c.dateLayout)))
	header := lipgloss.JoinHorizontal(lipgloss.Bottom, title, "  ", dateLabel)

	return panelStyle.Width(w).Render(lipgloss.JoinVertical(lipgloss.Left,
		header, "",
		stepsBarStyle.Render("● Steps"), c.steps.View(), "",
		sleepBarStyle.Render("● Sleep (hrs)"), c.sleep.View(), "",
		c.renderMoodTally(),
	))
}

// renderMoodTally counts moods in the plotted records in form order, with
// unknown moods last.
func (c chartModel) renderMoodTally() string {
	counts := make(map[metrics.Mood]int)
	var unknown []metrics.Mood
	for _, r := range c.records {
		if !r.Mood.Known() && counts[r.Mood] == 0 {
			unknown = append(unknown, r.Mood)
		}
		counts[r.Mood]++
	}

	var items []string
	for _, m := range append(append([]metrics.Mood{}, metrics.Moods...), unknown...) {
		if n := counts[m]; n > 0 {
			items = append(items, moodStyle(m).Render(fmt.Sprintf("%s %d", m.Label(), n)))
		}
	}
	return "  " + strings.Join(items, "  ")
}
