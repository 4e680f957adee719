package export

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/sadopc/wellness/internal/metrics"
)

func sampleData() []metrics.MetricRecord {
	return []metrics.MetricRecord{
		{ID: "a", Date: metrics.MustDay("2024-01-07"), Steps: 8000, SleepHours: 7.5, Mood: metrics.MoodHappy, Notes: "morning run"},
		{ID: "b", Date: metrics.MustDay("2024-01-01"), Steps: 1000, SleepHours: 8, Mood: metrics.MoodTired},
		{ID: "c", Date: metrics.MustDay("2024-01-03"), Steps: 5000, SleepHours: 6, Mood: metrics.Mood("Elated"), Notes: "new mood"},
	}
}

type fakeCSVSource struct {
	data  []byte
	err   error
	calls int
}

func (f *fakeCSVSource) ExportCSV(ctx context.Context) ([]byte, error) {
	f.calls++
	return f.data, f.err
}

type fakeRenderer struct {
	html string
	err  error
}

func (f *fakeRenderer) RenderPDF(ctx context.Context, html string) ([]byte, error) {
	f.html = html
	if f.err != nil {
		return nil, f.err
	}
	return []byte("%PDF-1.4 fake"), nil
}

type fakeOpener struct{ opened []string }

func (f *fakeOpener) Open(path string) error {
	f.opened = append(f.opened, path)
	return nil
}

func testExporter(t *testing.T, gw CSVSource) *Exporter {
	t.Helper()
	e := NewExporter(t.TempDir(), gw, nil)
	e.Renderer = &fakeRenderer{}
	e.Opener = &fakeOpener{}
	e.Now = func() time.Time { return time.Date(2024, 1, 8, 9, 0, 0, 0, time.UTC) }
	return e
}

func dirEntries(t *testing.T, dir string) []string {
	t.Helper()
	ents, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	var names []string
	for _, e := range ents {
		names = append(names, e.Name())
	}
	return names
}

// ============================================================
// CSV
// ============================================================

func TestWriteCSV(t *testing.T) {
	var sb strings.Builder
	if err := WriteCSV(&sb, sampleData(), ""); err != nil {
		t.Fatalf("WriteCSV: %v", err)
	}
	out := sb.String()

	lines := strings.Split(out, "\n")
	if len(lines) != 4 {
		t.Fatalf("expected 4 lines (1 header + 3 data), got %d", len(lines))
	}
	if lines[0] != "Date,Steps,Sleep Hours,Mood,Notes" {
		t.Fatalf("header = %q", lines[0])
	}
	if lines[1] != `"1/7/2024","8000","7.5","Happy","morning run"` {
		t.Fatalf("row 1 = %q", lines[1])
	}
	if lines[2] != `"1/1/2024","1000","8","Tired",""` {
		t.Fatalf("row 2 = %q", lines[2])
	}
	if strings.HasSuffix(out, "\n") {
		t.Fatal("output should not end with a newline")
	}
}

func TestWriteCSVKeepsOrder(t *testing.T) {
	var sb strings.Builder
	if err := WriteCSV(&sb, sampleData(), "2006-01-02"); err != nil {
		t.Fatal(err)
	}
	r := csv.NewReader(strings.NewReader(sb.String()))
	rows, err := r.ReadAll()
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"2024-01-07", "2024-01-01", "2024-01-03"}
	for i, w := range want {
		if rows[i+1][0] != w {
			t.Fatalf("row %d date = %q, want %q", i+1, rows[i+1][0], w)
		}
	}
}

func TestWriteCSVEmpty(t *testing.T) {
	var sb strings.Builder
	if err := WriteCSV(&sb, nil, ""); err != nil {
		t.Fatal(err)
	}
	if sb.String() != "Date,Steps,Sleep Hours,Mood,Notes" {
		t.Fatalf("got %q, want header only", sb.String())
	}
}

func TestWriteCSVSpecialCharacters(t *testing.T) {
	recs := []metrics.MetricRecord{
		{Date: metrics.MustDay("2024-01-01"), Steps: 1, SleepHours: 1, Mood: metrics.MoodHappy, Notes: `notes with "quotes" and, commas`},
	}
	var sb strings.Builder
	if err := WriteCSV(&sb, recs, ""); err != nil {
		t.Fatal(err)
	}

	r := csv.NewReader(strings.NewReader(sb.String()))
	rows, err := r.ReadAll()
	if err != nil {
		t.Fatalf("CSV should be valid even with special chars: %v", err)
	}
	if rows[1][4] != `notes with "quotes" and, commas` {
		t.Fatalf("notes mangled: %q", rows[1][4])
	}
}

func TestWriteCSVMultilineNotes(t *testing.T) {
	recs := []metrics.MetricRecord{
		{Date: metrics.MustDay("2024-01-01"), Steps: 1, SleepHours: 1, Mood: metrics.MoodHappy, Notes: "line one\nline two\r\nline three\rend"},
		{Date: metrics.MustDay("2024-01-02"), Steps: 2, SleepHours: 2, Mood: metrics.MoodTired},
	}
	var sb strings.Builder
	if err := WriteCSV(&sb, recs, ""); err != nil {
		t.Fatal(err)
	}

	lines := strings.Split(sb.String(), "\n")
	if len(lines) != len(recs)+1 {
		t.Fatalf("%d records produced %d lines, want %d", len(recs), len(lines), len(recs)+1)
	}
	if lines[1] != `"1/1/2024","1","1","Happy","line one line two line three end"` {
		t.Fatalf("row 1 = %q", lines[1])
	}
	if strings.Contains(sb.String(), "\r") {
		t.Fatal("carriage return leaked into output")
	}
}

func TestExporterCSVGatewayFirst(t *testing.T) {
	gw := &fakeCSVSource{data: []byte("Date,Steps\n\"server\",\"1\"")}
	e := testExporter(t, gw)

	res, err := e.CSV(context.Background(), sampleData())
	if err != nil {
		t.Fatalf("CSV: %v", err)
	}
	if res.Source != SourceGateway {
		t.Fatalf("source = %v, want gateway", res.Source)
	}
	data, _ := os.ReadFile(res.Path)
	if !strings.Contains(string(data), "server") {
		t.Fatalf("expected gateway bytes, got %q", data)
	}
	if filepath.Base(res.Path) != CSVFile {
		t.Fatalf("file = %q, want %q", filepath.Base(res.Path), CSVFile)
	}
}

func TestExporterCSVFallback(t *testing.T) {
	gw := &fakeCSVSource{err: errors.New("connection refused")}
	e := testExporter(t, gw)

	res, err := e.CSV(context.Background(), sampleData())
	if err != nil {
		t.Fatalf("CSV: %v", err)
	}
	if res.Source != SourceLocal {
		t.Fatalf("source = %v, want local", res.Source)
	}
	if !errors.Is(res.Fallback, ErrGatewayUnavailable) {
		t.Fatalf("fallback = %v, want ErrGatewayUnavailable", res.Fallback)
	}
	data, _ := os.ReadFile(res.Path)
	if !strings.HasPrefix(string(data), "Date,Steps,Sleep Hours,Mood,Notes\n") {
		t.Fatalf("unexpected local csv: %q", data)
	}
	if res.Rows != 3 {
		t.Fatalf("rows = %d, want 3", res.Rows)
	}
}

func TestExporterRefusesEmpty(t *testing.T) {
	gw := &fakeCSVSource{data: []byte("x")}
	e := testExporter(t, gw)

	exports := map[string]func(context.Context, []metrics.MetricRecord) (Result, error){
		"csv":    e.CSV,
		"report": e.Report,
		"pdf":    e.PDF,
		"json":   e.JSON,
	}
	for name, fn := range exports {
		_, err := fn(context.Background(), []metrics.MetricRecord{})
		if !errors.Is(err, ErrNoData) {
			t.Fatalf("%s: err = %v, want ErrNoData", name, err)
		}
	}
	if gw.calls != 0 {
		t.Fatalf("gateway called %d times for empty export", gw.calls)
	}
	if names := dirEntries(t, e.Dir); len(names) != 0 {
		t.Fatalf("empty export wrote files: %v", names)
	}
}

func TestExporterBadDir(t *testing.T) {
	e := testExporter(t, nil)
	blocker := filepath.Join(e.Dir, "file")
	if err := os.WriteFile(blocker, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	e.Dir = filepath.Join(blocker, "sub")

	if _, err := e.CSV(context.Background(), sampleData()); err == nil {
		t.Fatal("expected error for bad path")
	}
}

// ============================================================
// Report / PDF
// ============================================================

func TestWriteReport(t *testing.T) {
	var sb strings.Builder
	gen := time.Date(2024, 1, 8, 0, 0, 0, 0, time.UTC)
	if err := WriteReport(&sb, sampleData(), gen, ReportOptions{AutoPrint: true}); err != nil {
		t.Fatal(err)
	}
	out := sb.String()

	for _, want := range []string{
		"Wellness Tracker Report",
		"Generated on: 1/8/2024",
		"<th>Sleep (hrs)</th>",
		"😊 Happy",
		"😴 Tired",
		"<td>Elated</td>",
		"<td>N/A</td>",
		"morning run",
		"window.print()",
		"250",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("report missing %q", want)
		}
	}

	first := strings.Index(out, "1/7/2024")
	second := strings.Index(out, "1/1/2024")
	if first < 0 || second < 0 || first > second {
		t.Fatal("report rows not in record order")
	}
}

func TestWriteReportEscapesNotes(t *testing.T) {
	recs := []metrics.MetricRecord{
		{Date: metrics.MustDay("2024-01-01"), Mood: metrics.MoodHappy, Notes: "<script>alert(1)</script>"},
	}
	var sb strings.Builder
	if err := WriteReport(&sb, recs, time.Now(), ReportOptions{}); err != nil {
		t.Fatal(err)
	}
	if strings.Contains(sb.String(), "<script>alert(1)") {
		t.Fatal("notes should be HTML-escaped")
	}
	if strings.Contains(sb.String(), "window.print") {
		t.Fatal("print script should be omitted without AutoPrint")
	}
}

func TestExporterReportOpens(t *testing.T) {
	e := testExporter(t, nil)
	res, err := e.Report(context.Background(), sampleData())
	if err != nil {
		t.Fatal(err)
	}
	op := e.Opener.(*fakeOpener)
	if len(op.opened) != 1 || op.opened[0] != res.Path {
		t.Fatalf("opened = %v, want [%s]", op.opened, res.Path)
	}
	if filepath.Base(res.Path) != ReportFile {
		t.Fatalf("file = %q", filepath.Base(res.Path))
	}
}

func TestExporterPDF(t *testing.T) {
	e := testExporter(t, nil)
	res, err := e.PDF(context.Background(), sampleData())
	if err != nil {
		t.Fatal(err)
	}
	if filepath.Base(res.Path) != PDFFile {
		t.Fatalf("file = %q", filepath.Base(res.Path))
	}
	r := e.Renderer.(*fakeRenderer)
	if !strings.Contains(r.html, "<th>Sleep (hrs)</th>") {
		t.Fatal("renderer should receive the report table")
	}
	if strings.Contains(r.html, "window.print") {
		t.Fatal("pdf source should not auto-print")
	}
}

func TestExporterPDFFallsBackToReport(t *testing.T) {
	e := testExporter(t, nil)
	e.Renderer = &fakeRenderer{err: errors.New("chrome not found")}

	res, err := e.PDF(context.Background(), sampleData())
	if err != nil {
		t.Fatal(err)
	}
	if filepath.Base(res.Path) != ReportFile {
		t.Fatalf("file = %q, want report fallback", filepath.Base(res.Path))
	}
	if res.Fallback == nil {
		t.Fatal("fallback error should be recorded")
	}
}

// ============================================================
// JSON
// ============================================================

func TestExporterJSON(t *testing.T) {
	e := testExporter(t, nil)
	res, err := e.JSON(context.Background(), sampleData())
	if err != nil {
		t.Fatal(err)
	}

	data, err := os.ReadFile(res.Path)
	if err != nil {
		t.Fatal(err)
	}
	var result jsonExport
	if err := json.Unmarshal(data, &result); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if result.Count != 3 || len(result.Entries) != 3 {
		t.Fatalf("count = %d entries = %d, want 3", result.Count, len(result.Entries))
	}
	if result.Entries[0].Date != "2024-01-07" || result.Entries[0].SleepHours != 7.5 {
		t.Fatalf("first entry = %+v", result.Entries[0])
	}
	if _, err := time.Parse(time.RFC3339, result.ExportedAt); err != nil {
		t.Fatalf("exported_at is not valid RFC3339: %q", result.ExportedAt)
	}
	if !strings.Contains(string(data), "\n  ") {
		t.Fatal("JSON should be pretty-printed")
	}
}

func TestWriteAtomicLeavesNoTempFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "out.txt")
	if err := writeAtomic(path, strings.NewReader("hello")); err != nil {
		t.Fatal(err)
	}
	names := dirEntries(t, dir)
	if len(names) != 1 || names[0] != "out.txt" {
		t.Fatalf("dir = %v, want [out.txt]", names)
	}
}

func TestChromeRendererWithoutBrowser(t *testing.T) {
	orig := lookPath
	lookPath = func() (string, bool) { return "", false }
	t.Cleanup(func() { lookPath = orig })

	if _, err := (ChromeRenderer{}).RenderPDF(context.Background(), "<p>hi</p>"); !errors.Is(err, ErrNoBrowser) {
		t.Fatalf("err = %v, want ErrNoBrowser", err)
	}

	e := testExporter(t, nil)
	e.Renderer = ChromeRenderer{}
	res, err := e.PDF(context.Background(), sampleData())
	if err != nil {
		t.Fatal(err)
	}
	if !errors.Is(res.Fallback, ErrNoBrowser) {
		t.Fatalf("fallback = %v, want ErrNoBrowser", res.Fallback)
	}
	if filepath.Base(res.Path) != ReportFile {
		t.Fatalf("file = %q, want the printable report", filepath.Base(res.Path))
	}
}

func TestFileURLRelativePath(t *testing.T) {
	u, err := fileURL(filepath.Join("out", ReportFile))
	if err != nil {
		t.Fatal(err)
	}
	wd, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	want := "file://" + filepath.ToSlash(filepath.Join(wd, "out", ReportFile))
	if u != want {
		t.Fatalf("url = %q, want %q", u, want)
	}
}
