package server

import (
	"fmt"
	"math"
	"strings"

	"github.com/sadopc/wellness/internal/metrics"
)

const (
	stepsGoal = 7000
	sleepGoal = 7.0
)

// MoodNarrative writes a short, deterministic wellness summary from the
// aggregate. The same stats always produce the same text.
func MoodNarrative(st metrics.SummaryStats) string {
	if st.TotalEntries == nil || *st.TotalEntries == 0 {
		return "You haven't logged any entries yet. Add a few days of steps, sleep and mood to see a summary here."
	}

	var b strings.Builder
	mood := "Neutral"
	if st.MostCommonMood != nil && *st.MostCommonMood != "" {
		mood = *st.MostCommonMood
	}
	fmt.Fprintf(&b, "Based on your recent entries, you've been feeling mostly %s.", mood)

	if st.AverageSteps != nil {
		steps := int(math.Round(*st.AverageSteps))
		if steps >= stepsGoal {
			fmt.Fprintf(&b, " You're averaging %d steps a day, which is a solid level of activity.", steps)
		} else {
			fmt.Fprintf(&b, " You're averaging %d steps a day. Consider adding a short walk to your routine.", steps)
		}
	}
	if st.AverageSleepHours != nil {
		sleep := math.Round(*st.AverageSleepHours*10) / 10
		if sleep >= sleepGoal {
			fmt.Fprintf(&b, " Your sleep averages %.1f hours, so you're maintaining good sleep habits.", sleep)
		} else {
			fmt.Fprintf(&b, " Your sleep averages %.1f hours; aiming for at least %.0f could help your energy.", sleep, sleepGoal)
		}
	}

	switch metrics.Mood(mood) {
	case metrics.MoodStressed:
		b.WriteString(" Stress has come up often. A few minutes of breathing exercises or a walk outside may help.")
	case metrics.MoodTired:
		b.WriteString(" Feeling tired is common when sleep runs short; a consistent bedtime can make a difference.")
	default:
		b.WriteString(" Keep up the great work!")
	}
	return b.String()
}
