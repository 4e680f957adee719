package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"

	"github.com/sadopc/wellness/internal/metrics"
	"github.com/sadopc/wellness/internal/session"
)

// insightsModel shows the mood narrative next to the summary cards,
// rendered as markdown.
type insightsModel struct {
	ctrl   *session.Controller
	width  int
	height int

	narrative string
	summary   metrics.SummaryStats
	fetching  bool
	spinner   spinner.Model

	renderer *glamour.TermRenderer
	rendered string
}

func newInsightsModel(c *session.Controller) insightsModel {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = highlightStyle
	return insightsModel{ctrl: c, spinner: sp}
}

func (i *insightsModel) setSize(w, h int) {
	i.width = w
	i.height = h
	i.renderer, _ = glamour.NewTermRenderer(
		glamour.WithStylePath("dark"),
		glamour.WithWordWrap(max(20, w-10)),
	)
	i.render()
}

// fetch requests a fresh narrative. It never fails; the controller
// substitutes a fallback text.
func (i insightsModel) fetch() (insightsModel, tea.Cmd) {
	if i.fetching {
		return i, nil
	}
	i.fetching = true
	ctrl := i.ctrl
	return i, tea.Batch(i.spinner.Tick, func() tea.Msg {
		ctx, cancel := requestContext()
		defer cancel()
		return moodMsg{text: ctrl.MoodSummary(ctx)}
	})
}

func (i *insightsModel) setSummary(s metrics.SummaryStats) {
	i.summary = s
	i.render()
}

func (i insightsModel) update(msg tea.Msg) (insightsModel, tea.Cmd) {
	switch msg := msg.(type) {
	case moodMsg:
		i.fetching = false
		i.narrative = msg.text
		i.render()
		return i, nil

	case spinner.TickMsg:
		if !i.fetching {
			return i, nil
		}
		var cmd tea.Cmd
		i.spinner, cmd = i.spinner.Update(msg)
		return i, cmd

	case tea.KeyMsg:
		if key.Matches(msg, keys.Mood) || key.Matches(msg, keys.Refresh) {
			return i.fetch()
		}
	}
	return i, nil
}

func (i insightsModel) markdown() string {
	var b strings.Builder
	b.WriteString("# Mood Insights\n\n")
	if i.narrative == "" {
		b.WriteString("_Press m to generate a summary of your recent mood._\n\n")
	} else {
		b.WriteString(i.narrative + "\n\n")
	}
	b.WriteString("## At a glance\n\n")
	for _, c := range metrics.Cards(i.summary) {
		fmt.Fprintf(&b, "- **%s**: %s\n", c.Title, c.Value)
	}
	return b.String()
}

func (i *insightsModel) render() {
	md := i.markdown()
	if i.renderer == nil {
		i.rendered = md
		return
	}
	out, err := i.renderer.Render(md)
	if err != nil {
		i.rendered = md
		return
	}
	i.rendered = out
}

func (i insightsModel) view() string {
	w := i.width - 4
	body := i.rendered
	if body == "" {
		body = i.markdown()
	}
	if i.fetching {
		body = i.spinner.View() + mutedStyle.Render(" Generating summary...") + "\n" + body
	}
	return panelStyle.Width(w).Render(body)
}
