package metrics

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrMalformedResponse marks a gateway body that matches none of the known
// shapes. Callers absorb it: the user sees defaults, never the error.
var ErrMalformedResponse = errors.New("malformed gateway response")

// Shape identifies which of the accepted record-list layouts a body used.
type Shape int

const (
	ShapeUnknown Shape = iota
	ShapeBare
	ShapeWrappedMetrics
	ShapeWrappedData
)

func (s Shape) String() string {
	switch s {
	case ShapeBare:
		return "bare"
	case ShapeWrappedMetrics:
		return "wrapped(metrics)"
	case ShapeWrappedData:
		return "wrapped(data)"
	}
	return "unknown"
}

// wireRecord mirrors a gateway record with lenient field types.
type wireRecord struct {
	ID    string     `json:"_id"`
	AltID string     `json:"id"`
	Date  Day        `json:"date"`
	Steps laxNumber  `json:"steps"`
	Sleep laxNumber  `json:"sleep"`
	Mood  laxString  `json:"mood"`
	Notes *laxString `json:"notes"`
}

func (w wireRecord) record() MetricRecord {
	id := w.ID
	if id == "" {
		id = w.AltID
	}
	r := MetricRecord{
		ID:         id,
		Date:       w.Date,
		Steps:      int(w.Steps),
		SleepHours: float64(w.Sleep),
		Mood:       Mood(w.Mood),
	}
	if w.Notes != nil {
		r.Notes = string(*w.Notes)
	}
	return r
}

// laxNumber decodes a JSON number or numeric string; anything else is 0.
type laxNumber float64

func (n *laxNumber) UnmarshalJSON(b []byte) error {
	var f float64
	if err := json.Unmarshal(b, &f); err == nil {
		*n = laxNumber(f)
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		if f, err := strconv.ParseFloat(strings.TrimSpace(s), 64); err == nil {
			*n = laxNumber(f)
			return nil
		}
	}
	*n = 0
	return nil
}

// laxString decodes a JSON string; other scalars are rendered as text and
// objects/arrays become "".
type laxString string

func (s *laxString) UnmarshalJSON(b []byte) error {
	var str string
	if err := json.Unmarshal(b, &str); err == nil {
		*s = laxString(str)
		return nil
	}
	trimmed := bytes.TrimSpace(b)
	if len(trimmed) == 0 || trimmed[0] == '{' || trimmed[0] == '[' || bytes.Equal(trimmed, []byte("null")) {
		*s = ""
		return nil
	}
	*s = laxString(trimmed)
	return nil
}

// DecodeRecords converts a gateway record-list body into the canonical
// sequence. It recognizes a bare array and objects wrapping the array under
// "metrics" or "data". Any other body yields an empty, non-nil sequence and
// an error wrapping ErrMalformedResponse.
func DecodeRecords(body []byte) ([]MetricRecord, Shape, error) {
	raw, shape := sniff(body)
	if shape == ShapeUnknown {
		return []MetricRecord{}, ShapeUnknown, fmt.Errorf("decode records: %w", ErrMalformedResponse)
	}

	var elems []json.RawMessage
	if err := json.Unmarshal(raw, &elems); err != nil {
		return []MetricRecord{}, ShapeUnknown, fmt.Errorf("decode records: %w", ErrMalformedResponse)
	}

	records := make([]MetricRecord, 0, len(elems))
	for _, e := range elems {
		var w wireRecord
		if err := json.Unmarshal(e, &w); err != nil {
			// Non-object elements carry no record; skip them.
			continue
		}
		records = append(records, w.record())
	}
	return records, shape, nil
}

func sniff(body []byte) (json.RawMessage, Shape) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return nil, ShapeUnknown
	}
	switch trimmed[0] {
	case '[':
		return trimmed, ShapeBare
	case '{':
		var wrapper map[string]json.RawMessage
		if err := json.Unmarshal(trimmed, &wrapper); err != nil {
			return nil, ShapeUnknown
		}
		if v, ok := wrapper["metrics"]; ok && isArray(v) {
			return v, ShapeWrappedMetrics
		}
		if v, ok := wrapper["data"]; ok && isArray(v) {
			return v, ShapeWrappedData
		}
	}
	return nil, ShapeUnknown
}

func isArray(raw json.RawMessage) bool {
	t := bytes.TrimSpace(raw)
	return len(t) > 0 && t[0] == '['
}

type wireSummary struct {
	AvgSteps     *laxNumber `json:"avgSteps"`
	AvgSleep     *laxNumber `json:"avgSleep"`
	CommonMood   *laxString `json:"commonMood"`
	TotalEntries *laxNumber `json:"totalEntries"`
}

// DecodeSummary reads a stats object, bare or wrapped as {"summary": {...}}.
// Missing fields stay nil; a malformed body yields empty stats and an error
// wrapping ErrMalformedResponse.
func DecodeSummary(body []byte) (SummaryStats, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return SummaryStats{}, fmt.Errorf("decode summary: %w", ErrMalformedResponse)
	}

	var wrapper map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &wrapper); err != nil {
		return SummaryStats{}, fmt.Errorf("decode summary: %w", ErrMalformedResponse)
	}
	if inner, ok := wrapper["summary"]; ok {
		if t := bytes.TrimSpace(inner); len(t) > 0 && t[0] == '{' {
			trimmed = t
		}
	}

	var w wireSummary
	if err := json.Unmarshal(trimmed, &w); err != nil {
		return SummaryStats{}, fmt.Errorf("decode summary: %w", ErrMalformedResponse)
	}

	var s SummaryStats
	if w.AvgSteps != nil {
		v := float64(*w.AvgSteps)
		s.AverageSteps = &v
	}
	if w.AvgSleep != nil {
		v := float64(*w.AvgSleep)
		s.AverageSleepHours = &v
	}
	if w.CommonMood != nil && *w.CommonMood != "" {
		v := string(*w.CommonMood)
		s.MostCommonMood = &v
	}
	if w.TotalEntries != nil {
		v := int(*w.TotalEntries)
		s.TotalEntries = &v
	}
	return s, nil
}

// DecodeRecord reads a single record returned by create, update or get. The
// object may be bare or wrapped under "metric" or "data".
func DecodeRecord(body []byte) (MetricRecord, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return MetricRecord{}, fmt.Errorf("decode record: %w", ErrMalformedResponse)
	}

	var wrapper map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &wrapper); err != nil {
		return MetricRecord{}, fmt.Errorf("decode record: %w", ErrMalformedResponse)
	}
	for _, key := range []string{"metric", "data"} {
		if inner, ok := wrapper[key]; ok {
			if t := bytes.TrimSpace(inner); len(t) > 0 && t[0] == '{' {
				trimmed = t
				break
			}
		}
	}

	var w wireRecord
	if err := json.Unmarshal(trimmed, &w); err != nil {
		return MetricRecord{}, fmt.Errorf("decode record: %w", ErrMalformedResponse)
	}
	return w.record(), nil
}
