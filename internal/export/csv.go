package export

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/sadopc/wellness/internal/metrics"
)

// DefaultDateLayout renders dates as month/day/year without padding.
const DefaultDateLayout = "1/2/2006"

const csvHeader = "Date,Steps,Sleep Hours,Mood,Notes"

// WriteCSV writes the header and one row per record, in order. Every row
// field is double-quoted and lines are joined by "\n" with no trailing
// newline. Embedded quotes are doubled and line breaks inside a field
// become spaces.
func WriteCSV(w io.Writer, records []metrics.MetricRecord, dateLayout string) error {
	if dateLayout == "" {
		dateLayout = DefaultDateLayout
	}
	bw := bufio.NewWriter(w)
	if _, err := bw.WriteString(csvHeader); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	for i, r := range records {
		row := []string{
			quote(r.Date.Format(dateLayout)),
			quote(strconv.Itoa(r.Steps)),
			quote(formatSleep(r.SleepHours)),
			quote(string(r.Mood)),
			quote(r.Notes),
		}
		if _, err := bw.WriteString("\n" + strings.Join(row, ",")); err != nil {
			return fmt.Errorf("write csv row %d: %w", i, err)
		}
	}
	return bw.Flush()
}

// lineBreaks flattens multi-line notes so every record stays on one line.
var lineBreaks = strings.NewReplacer("\r\n", " ", "\r", " ", "\n", " ")

func quote(s string) string {
	s = lineBreaks.Replace(s)
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}

func formatSleep(h float64) string {
	return strconv.FormatFloat(h, 'f', -1, 64)
}
