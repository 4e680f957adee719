package metrics

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleRecords = `[
	{"_id": "a1", "date": "2024-01-01T00:00:00.000Z", "steps": 1000, "sleep": 7.5, "mood": "Happy", "notes": "walk"},
	{"_id": "a2", "date": "2024-01-03", "steps": 5000, "sleep": 6, "mood": "Tired"},
	{"_id": "a3", "date": "2024-01-07T23:30:00-05:00", "steps": 8000, "sleep": 8, "mood": "Stressed", "notes": null}
]`

func wantSample() []MetricRecord {
	return []MetricRecord{
		{ID: "a1", Date: MustDay("2024-01-01"), Steps: 1000, SleepHours: 7.5, Mood: MoodHappy, Notes: "walk"},
		{ID: "a2", Date: MustDay("2024-01-03"), Steps: 5000, SleepHours: 6, Mood: MoodTired},
		{ID: "a3", Date: MustDay("2024-01-07"), Steps: 8000, SleepHours: 8, Mood: MoodStressed},
	}
}

var dayComparer = cmp.Comparer(func(a, b Day) bool { return a.Time().Equal(b.Time()) })

// ============================================================
// Normalizer
// ============================================================

func TestDecodeRecordsShapesAgree(t *testing.T) {
	bodies := map[Shape]string{
		ShapeBare:           sampleRecords,
		ShapeWrappedMetrics: `{"metrics": ` + sampleRecords + `}`,
		ShapeWrappedData:    `{"data": ` + sampleRecords + `, "total": 3}`,
	}

	for shape, body := range bodies {
		t.Run(shape.String(), func(t *testing.T) {
			got, gotShape, err := DecodeRecords([]byte(body))
			require.NoError(t, err)
			assert.Equal(t, shape, gotShape)
			if diff := cmp.Diff(wantSample(), got, dayComparer); diff != "" {
				t.Fatalf("records mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestDecodeRecordsUnknownShapes(t *testing.T) {
	bodies := []string{
		``,
		`null`,
		`"nope"`,
		`42`,
		`{}`,
		`{"items": []}`,
		`{"metrics": {"a": 1}}`,
		`{"data": "x"}`,
		`{broken`,
	}
	for _, body := range bodies {
		got, shape, err := DecodeRecords([]byte(body))
		require.Error(t, err, "body %q", body)
		assert.True(t, errors.Is(err, ErrMalformedResponse))
		assert.Equal(t, ShapeUnknown, shape)
		assert.NotNil(t, got)
		assert.Empty(t, got)
	}
}

func TestDecodeRecordsLenientFields(t *testing.T) {
	body := `[
		{"id": "b1", "date": "garbage", "steps": "1200", "sleep": "x", "mood": "Elated"},
		7,
		{"_id": "b2"}
	]`
	got, shape, err := DecodeRecords([]byte(body))
	require.NoError(t, err)
	assert.Equal(t, ShapeBare, shape)
	require.Len(t, got, 2)

	assert.Equal(t, "b1", got[0].ID)
	assert.True(t, got[0].Date.IsZero())
	assert.Equal(t, 1200, got[0].Steps)
	assert.Equal(t, 0.0, got[0].SleepHours)
	assert.Equal(t, Mood("Elated"), got[0].Mood)
	assert.Equal(t, "", got[0].Mood.Emoji())

	assert.Equal(t, "b2", got[1].ID)
	assert.Equal(t, 0, got[1].Steps)
	assert.Equal(t, "", got[1].Notes)
}

func TestDecodeRecordsEmptyArray(t *testing.T) {
	got, shape, err := DecodeRecords([]byte(`{"metrics": []}`))
	require.NoError(t, err)
	assert.Equal(t, ShapeWrappedMetrics, shape)
	assert.Empty(t, got)
}

func TestDecodeSummary(t *testing.T) {
	bare, err := DecodeSummary([]byte(`{"avgSteps": 4666.67, "avgSleep": 7.2, "commonMood": "Happy", "totalEntries": 3}`))
	require.NoError(t, err)
	wrapped, err := DecodeSummary([]byte(`{"summary": {"avgSteps": 4666.67, "avgSleep": 7.2, "commonMood": "Happy", "totalEntries": 3}}`))
	require.NoError(t, err)
	assert.Equal(t, bare, wrapped)

	require.NotNil(t, bare.AverageSteps)
	assert.InDelta(t, 4666.67, *bare.AverageSteps, 0.001)
	require.NotNil(t, bare.TotalEntries)
	assert.Equal(t, 3, *bare.TotalEntries)
}

func TestDecodeSummaryPartialAndMalformed(t *testing.T) {
	s, err := DecodeSummary([]byte(`{"avgSteps": 100}`))
	require.NoError(t, err)
	assert.NotNil(t, s.AverageSteps)
	assert.Nil(t, s.AverageSleepHours)
	assert.Nil(t, s.MostCommonMood)
	assert.Nil(t, s.TotalEntries)

	s, err = DecodeSummary([]byte(`[1,2]`))
	assert.ErrorIs(t, err, ErrMalformedResponse)
	assert.Equal(t, SummaryStats{}, s)
}

// ============================================================
// Cards
// ============================================================

func cardValues(cards []Card) []string {
	var out []string
	for _, c := range cards {
		out = append(out, c.Value)
	}
	return out
}

func TestCardsDefaults(t *testing.T) {
	s, err := DecodeSummary([]byte(`{}`))
	require.NoError(t, err)
	assert.Equal(t, []string{"0", "0 hrs", "N/A", "0"}, cardValues(Cards(s)))
}

func TestCardsRounding(t *testing.T) {
	steps := (1000.0 + 5000.0 + 8000.0) / 3
	sleep := 7.5
	mood := "Happy"
	total := 3
	cards := Cards(SummaryStats{
		AverageSteps:      &steps,
		AverageSleepHours: &sleep,
		MostCommonMood:    &mood,
		TotalEntries:      &total,
	})
	require.Len(t, cards, 4)
	assert.Equal(t, []string{"4667", "8 hrs", "Happy", "3"}, cardValues(cards))
	assert.Equal(t, "Average Steps", cards[0].Title)
	assert.Equal(t, "Total Entries", cards[3].Title)
}

// ============================================================
// Day / Mood
// ============================================================

func TestParseDayKeepsWallDate(t *testing.T) {
	cases := map[string]string{
		"2024-01-05":                "2024-01-05",
		"2024-01-05T23:00:00-05:00": "2024-01-05",
		"2024-01-05T01:00:00+09:00": "2024-01-05",
		"2024-01-05T00:00:00.000Z":  "2024-01-05",
	}
	for in, want := range cases {
		d, err := ParseDay(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, d.String(), in)
	}

	_, err := ParseDay("05/01/2024")
	assert.Error(t, err)
}

func TestDayJSONRoundTrip(t *testing.T) {
	r := MetricRecord{Date: MustDay("2024-02-29"), Steps: 10, SleepHours: 8, Mood: MoodNeutral}
	data, err := json.Marshal(r)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"date":"2024-02-29T00:00:00Z"`)
	assert.NotContains(t, string(data), `"_id"`)

	got, _, err := DecodeRecords([]byte("[" + string(data) + "]"))
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "2024-02-29", got[0].Date.String())
}

func TestDayFormat(t *testing.T) {
	assert.Equal(t, "1/7/2024", MustDay("2024-01-07").Format("1/2/2006"))
}

func TestMoodLabel(t *testing.T) {
	assert.Equal(t, "😊 Happy", MoodHappy.Label())
	assert.Equal(t, "Elated", Mood("Elated").Label())
	assert.True(t, MoodTired.Known())
	assert.False(t, Mood("").Known())
}

func TestDefaultRange(t *testing.T) {
	now := time.Date(2024, 1, 8, 12, 0, 0, 0, time.UTC)
	r := DefaultRange(now)
	assert.Equal(t, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), r.Start)
	assert.Equal(t, time.Date(2024, 1, 8, 23, 59, 59, 0, time.UTC), r.End)
	assert.NoError(t, r.Validate())

	inverted := DateRange{Start: r.End, End: r.Start}
	assert.ErrorIs(t, inverted.Validate(), ErrValidation)
}

func TestDefaultRangeUsesLocalCalendarDay(t *testing.T) {
	sydney := time.FixedZone("AEDT", 11*60*60)
	// Still January 7th in UTC.
	now := time.Date(2024, 1, 8, 8, 0, 0, 0, sydney)

	r := DefaultRange(now)
	assert.Equal(t, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), r.Start)
	assert.Equal(t, time.Date(2024, 1, 8, 23, 59, 59, 0, time.UTC), r.End)

	today := NewDay(now)
	assert.Equal(t, "2024-01-08", today.String())
	assert.False(t, today.Time().Before(r.Start))
	assert.False(t, today.Time().After(r.End))
}

func TestRangeFromDays(t *testing.T) {
	r, err := RangeFromDays("2024-01-01", " 2024-01-01 ")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 1, 1, 23, 59, 59, 0, time.UTC), r.End)

	_, err = RangeFromDays("2024-01-02", "2024-01-01")
	assert.ErrorIs(t, err, ErrValidation)

	_, err = RangeFromDays("Jan 1", "2024-01-01")
	assert.Error(t, err)
}

// ============================================================
// Validation
// ============================================================

func TestValidate(t *testing.T) {
	valid := MetricRecord{Date: MustDay("2024-01-01"), Steps: 0, SleepHours: 7.5, Mood: MoodHappy}
	assert.NoError(t, Validate(valid))

	tests := []struct {
		name  string
		edit  func(*MetricRecord)
		field string
	}{
		{"missing date", func(r *MetricRecord) { r.Date = Day{} }, "date"},
		{"negative steps", func(r *MetricRecord) { r.Steps = -1 }, "steps"},
		{"sleep over 24", func(r *MetricRecord) { r.SleepHours = 24.5 }, "sleep"},
		{"sleep off step", func(r *MetricRecord) { r.SleepHours = 7.25 }, "sleep"},
		{"unknown mood", func(r *MetricRecord) { r.Mood = "Elated" }, "mood"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := valid
			tt.edit(&r)
			err := Validate(r)
			require.ErrorIs(t, err, ErrValidation)
			var ve *ValidationError
			require.True(t, errors.As(err, &ve))
			assert.Equal(t, tt.field, ve.Field)
		})
	}
}

func TestParseFormInputs(t *testing.T) {
	n, err := ParseSteps(" 8000 ")
	require.NoError(t, err)
	assert.Equal(t, 8000, n)

	for _, bad := range []string{"", "-3", "1.5", "abc"} {
		_, err := ParseSteps(bad)
		assert.ErrorIs(t, err, ErrValidation, bad)
	}

	h, err := ParseSleep("6.5")
	require.NoError(t, err)
	assert.Equal(t, 6.5, h)

	for _, bad := range []string{"", "25", "-1", "6.3", "x"} {
		_, err := ParseSleep(bad)
		assert.ErrorIs(t, err, ErrValidation, bad)
	}
}
