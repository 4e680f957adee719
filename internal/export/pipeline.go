package export

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/sadopc/wellness/internal/metrics"
)

// Output file names.
const (
	CSVFile    = "wellness_data.csv"
	ReportFile = "wellness_report.html"
	PDFFile    = "wellness_report.pdf"
	JSONFile   = "wellness_data.json"
)

// MsgNoData is the user-facing text for ErrNoData.
const MsgNoData = "No data available to export"

var (
	// ErrNoData refuses an export of an empty record set. No file is written.
	ErrNoData = errors.New("no data available to export")
	// ErrGatewayUnavailable marks a failed server-side export; the pipeline
	// recovers from it by generating output locally.
	ErrGatewayUnavailable = errors.New("gateway export unavailable")
)

// Source says which tier produced an export.
type Source int

const (
	SourceLocal Source = iota
	SourceGateway
)

func (s Source) String() string {
	if s == SourceGateway {
		return "gateway"
	}
	return "local"
}

// Result describes a written export.
type Result struct {
	Path   string
	Source Source
	Rows   int
	// Fallback holds the error that forced local generation, if any.
	Fallback error
}

// CSVSource produces server-generated CSV.
type CSVSource interface {
	ExportCSV(ctx context.Context) ([]byte, error)
}

// Exporter writes exports of the loaded record set into Dir.
type Exporter struct {
	Dir        string
	DateLayout string

	// Gateway is tried first for CSV; nil means local only.
	Gateway  CSVSource
	Renderer PDFRenderer
	Opener   Opener
	Now      func() time.Time
	Log      *zap.Logger
}

// NewExporter returns an exporter with the default renderer, opener and
// clock.
func NewExporter(dir string, gw CSVSource, log *zap.Logger) *Exporter {
	if log == nil {
		log = zap.NewNop()
	}
	return &Exporter{
		Dir:        dir,
		DateLayout: DefaultDateLayout,
		Gateway:    gw,
		Renderer:   ChromeRenderer{},
		Opener:     BrowserOpener{},
		Now:        time.Now,
		Log:        log,
	}
}

func (e *Exporter) now() time.Time {
	if e.Now == nil {
		return time.Now()
	}
	return e.Now()
}

func (e *Exporter) log() *zap.Logger {
	if e.Log == nil {
		return zap.NewNop()
	}
	return e.Log
}

// CSV writes wellness_data.csv. The gateway export is tried first; if it
// fails the file is generated from records instead.
func (e *Exporter) CSV(ctx context.Context, records []metrics.MetricRecord) (Result, error) {
	if len(records) == 0 {
		return Result{}, ErrNoData
	}
	path := filepath.Join(e.Dir, CSVFile)

	var fallback error
	if e.Gateway != nil {
		data, err := e.Gateway.ExportCSV(ctx)
		if err == nil {
			if err := writeAtomic(path, bytes.NewReader(data)); err != nil {
				return Result{}, err
			}
			e.log().Info("csv exported", zap.String("path", path), zap.Stringer("source", SourceGateway))
			return Result{Path: path, Source: SourceGateway, Rows: len(records)}, nil
		}
		fallback = fmt.Errorf("%w: %w", ErrGatewayUnavailable, err)
		e.log().Warn("gateway csv export failed, generating locally", zap.Error(err))
	}

	var buf bytes.Buffer
	if err := WriteCSV(&buf, records, e.DateLayout); err != nil {
		return Result{}, err
	}
	if err := writeAtomic(path, &buf); err != nil {
		return Result{}, err
	}
	e.log().Info("csv exported", zap.String("path", path), zap.Stringer("source", SourceLocal))
	return Result{Path: path, Source: SourceLocal, Rows: len(records), Fallback: fallback}, nil
}

// Report writes the printable HTML report and opens it for printing.
func (e *Exporter) Report(ctx context.Context, records []metrics.MetricRecord) (Result, error) {
	if len(records) == 0 {
		return Result{}, ErrNoData
	}
	res, err := e.writeReport(records)
	if err != nil {
		return Result{}, err
	}
	if e.Opener != nil {
		if err := e.Opener.Open(res.Path); err != nil {
			return Result{}, fmt.Errorf("open report: %w", err)
		}
	}
	return res, nil
}

func (e *Exporter) writeReport(records []metrics.MetricRecord) (Result, error) {
	path := filepath.Join(e.Dir, ReportFile)
	var buf bytes.Buffer
	opts := ReportOptions{DateLayout: e.DateLayout, AutoPrint: true}
	if err := WriteReport(&buf, records, e.now(), opts); err != nil {
		return Result{}, err
	}
	if err := writeAtomic(path, &buf); err != nil {
		return Result{}, err
	}
	e.log().Info("report exported", zap.String("path", path))
	return Result{Path: path, Source: SourceLocal, Rows: len(records)}, nil
}

// PDF renders the report through Renderer. If the renderer cannot
// run, the printable HTML report is written instead and the result carries
// the renderer error as Fallback.
func (e *Exporter) PDF(ctx context.Context, records []metrics.MetricRecord) (Result, error) {
	if len(records) == 0 {
		return Result{}, ErrNoData
	}
	if e.Renderer == nil {
		return e.writeReport(records)
	}

	var html bytes.Buffer
	opts := ReportOptions{DateLayout: e.DateLayout}
	if err := WriteReport(&html, records, e.now(), opts); err != nil {
		return Result{}, err
	}

	data, err := e.Renderer.RenderPDF(ctx, html.String())
	if err != nil {
		e.log().Warn("pdf renderer unavailable, writing printable report", zap.Error(err))
		res, rerr := e.writeReport(records)
		if rerr != nil {
			return Result{}, rerr
		}
		res.Fallback = err
		return res, nil
	}

	path := filepath.Join(e.Dir, PDFFile)
	if err := writeAtomic(path, bytes.NewReader(data)); err != nil {
		return Result{}, err
	}
	e.log().Info("pdf exported", zap.String("path", path), zap.Int("bytes", len(data)))
	return Result{Path: path, Source: SourceLocal, Rows: len(records)}, nil
}

// JSON writes wellness_data.json.
func (e *Exporter) JSON(ctx context.Context, records []metrics.MetricRecord) (Result, error) {
	if len(records) == 0 {
		return Result{}, ErrNoData
	}
	path := filepath.Join(e.Dir, JSONFile)
	var buf bytes.Buffer
	if err := WriteJSON(&buf, records, e.now()); err != nil {
		return Result{}, err
	}
	if err := writeAtomic(path, &buf); err != nil {
		return Result{}, err
	}
	e.log().Info("json exported", zap.String("path", path))
	return Result{Path: path, Source: SourceLocal, Rows: len(records)}, nil
}

// writeAtomic writes to a temp file next to path and renames it into place,
// so a failed export never leaves a partial file.
func writeAtomic(path string, r io.Reader) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create export dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".wellness-export-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := io.Copy(tmp, r); err != nil {
		tmp.Close()
		return fmt.Errorf("write %s: %w", filepath.Base(path), err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close %s: %w", filepath.Base(path), err)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		return fmt.Errorf("chmod %s: %w", filepath.Base(path), err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("rename %s: %w", filepath.Base(path), err)
	}
	return nil
}
