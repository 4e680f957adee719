package export

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"path/filepath"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
)

// PDFRenderer turns an HTML document into PDF bytes.
type PDFRenderer interface {
	RenderPDF(ctx context.Context, html string) ([]byte, error)
}

// ErrNoBrowser means no Chrome or Chromium is installed and none was
// configured.
var ErrNoBrowser = errors.New("no chrome or chromium installation found")

// lookPath finds an installed browser.
var lookPath = launcher.LookPath

// ChromeRenderer prints HTML through a headless Chrome driven by rod.
type ChromeRenderer struct {
	// Bin is the browser binary; empty searches the usual install
	// locations. A browser is never downloaded during an export.
	Bin string
	// ControlURL connects to an already running browser instead of launching.
	ControlURL string
}

func (c ChromeRenderer) RenderPDF(ctx context.Context, html string) ([]byte, error) {
	controlURL := c.ControlURL
	if controlURL == "" {
		bin := c.Bin
		if bin == "" {
			found, ok := lookPath()
			if !ok {
				return nil, ErrNoBrowser
			}
			bin = found
		}
		l := launcher.New().Headless(true).Bin(bin)
		u, err := l.Launch()
		if err != nil {
			return nil, fmt.Errorf("launch chrome: %w", err)
		}
		defer l.Kill()
		controlURL = u
	}

	browser := rod.New().ControlURL(controlURL).Context(ctx)
	if err := browser.Connect(); err != nil {
		return nil, fmt.Errorf("connect to chrome: %w", err)
	}
	defer func() { _ = browser.Close() }()

	page, err := browser.Page(proto.TargetCreateTarget{URL: "about:blank"})
	if err != nil {
		return nil, fmt.Errorf("open page: %w", err)
	}
	defer func() { _ = page.Close() }()

	if err := page.SetDocumentContent(html); err != nil {
		return nil, fmt.Errorf("load report: %w", err)
	}
	if err := page.WaitLoad(); err != nil {
		return nil, fmt.Errorf("wait for report: %w", err)
	}

	stream, err := page.PDF(&proto.PagePrintToPDF{PrintBackground: true})
	if err != nil {
		return nil, fmt.Errorf("print to pdf: %w", err)
	}
	data, err := io.ReadAll(stream)
	if err != nil {
		return nil, fmt.Errorf("read pdf stream: %w", err)
	}
	return data, nil
}

// Opener shows a local file to the user.
type Opener interface {
	Open(path string) error
}

// BrowserOpener opens files in the system's default browser.
type BrowserOpener struct{}

func (BrowserOpener) Open(path string) error {
	u, err := fileURL(path)
	if err != nil {
		return err
	}
	launcher.Open(u)
	return nil
}

// fileURL turns a possibly relative path into an absolute file:// URL.
func fileURL(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("resolve %s: %w", path, err)
	}
	u := url.URL{Scheme: "file", Path: filepath.ToSlash(abs)}
	return u.String(), nil
}
