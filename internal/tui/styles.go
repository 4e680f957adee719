package tui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/sadopc/wellness/internal/metrics"
)

// Palette. Steps and sleep keep the same hue in cards, table and charts.
var (
	colorBrand = lipgloss.Color("#3FB68B")
	colorSteps = lipgloss.Color("#F4A259")
	colorSleep = lipgloss.Color("#5B8DEF")
	colorText  = lipgloss.Color("#D8DEE9")
	colorDim   = lipgloss.Color("#6B7280")
	colorFrame = lipgloss.Color("#3B4252")
	colorAlert = lipgloss.Color("#E06C75")
	colorBusy  = lipgloss.Color("#E5C07B")
)

// moodColors tints each known mood; unknown moods render in colorText.
var moodColors = map[metrics.Mood]lipgloss.Color{
	metrics.MoodHappy:    lipgloss.Color("#98C379"),
	metrics.MoodNeutral:  lipgloss.Color("#ABB2BF"),
	metrics.MoodTired:    lipgloss.Color("#C678DD"),
	metrics.MoodStressed: lipgloss.Color("#E06C75"),
}

var (
	// View tabs
	activeTabStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(colorBrand).
			Border(lipgloss.NormalBorder(), false, false, true, false).
			BorderForeground(colorBrand).
			Padding(0, 2)

	inactiveTabStyle = lipgloss.NewStyle().
				Foreground(colorDim).
				Padding(0, 2)

	brandStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(colorBrand)

	panelStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(colorFrame).
			Padding(1, 2)

	// Export picker overlay
	activePanelStyle = lipgloss.NewStyle().
				Border(lipgloss.RoundedBorder()).
				BorderForeground(colorBrand).
				Padding(1, 2)

	// Summary cards
	cardStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(colorFrame).
			Padding(0, 1).
			Align(lipgloss.Center)

	cardValueStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(colorBrand)

	// Load failures and auth expiry
	bannerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(colorAlert).
			Border(lipgloss.NormalBorder(), false, false, false, true).
			BorderForeground(colorAlert).
			Padding(0, 1)

	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(colorText)

	busyStyle = lipgloss.NewStyle().
			Foreground(colorBusy)

	errorStyle = lipgloss.NewStyle().
			Foreground(colorAlert)

	mutedStyle = lipgloss.NewStyle().
			Foreground(colorDim)

	highlightStyle = lipgloss.NewStyle().
			Foreground(colorSleep)

	headerStyle = lipgloss.NewStyle().
			Padding(0, 1)

	footerStyle = lipgloss.NewStyle().
			Foreground(colorDim).
			Padding(0, 1)

	// Entry table rows and picker items
	selectedItemStyle = lipgloss.NewStyle().
				Foreground(colorBrand).
				Bold(true)

	normalItemStyle = lipgloss.NewStyle().
			Foreground(colorText)

	stepsBarStyle = lipgloss.NewStyle().Foreground(colorSteps)
	sleepBarStyle = lipgloss.NewStyle().Foreground(colorSleep)
)

// moodStyle colors a mood label.
func moodStyle(m metrics.Mood) lipgloss.Style {
	c, ok := moodColors[m]
	if !ok {
		c = colorText
	}
	return lipgloss.NewStyle().Foreground(c)
}
