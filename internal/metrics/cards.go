package metrics

import (
	"math"
	"strconv"
)

// Card is one summary tile on the dashboard.
type Card struct {
	Title string
	Value string
	Icon  string
}

// Cards renders the four fixed summary tiles. Absent fields fall back to
// defaults instead of failing: 0, 0 hrs, N/A, 0.
func Cards(s SummaryStats) []Card {
	steps := 0.0
	if s.AverageSteps != nil {
		steps = *s.AverageSteps
	}
	sleep := 0.0
	if s.AverageSleepHours != nil {
		sleep = *s.AverageSleepHours
	}
	mood := "N/A"
	if s.MostCommonMood != nil && *s.MostCommonMood != "" {
		mood = *s.MostCommonMood
	}
	total := 0
	if s.TotalEntries != nil {
		total = *s.TotalEntries
	}

	return []Card{
		{Title: "Average Steps", Value: roundString(steps), Icon: "👣"},
		{Title: "Average Sleep", Value: roundString(sleep) + " hrs", Icon: "😴"},
		{Title: "Most Common Mood", Value: mood, Icon: "😊"},
		{Title: "Total Entries", Value: strconv.Itoa(total), Icon: "📊"},
	}
}

func roundString(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return "0"
	}
	return strconv.FormatInt(int64(math.Round(v)), 10)
}
