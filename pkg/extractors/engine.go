// Package extractors drives the content walker over a document and turns
// every distinct image it reaches into an output file.
package extractors

import (
	"context"
	"fmt"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/pyhub-apps/pdfimages-golang/pkg/content"
	"github.com/pyhub-apps/pdfimages-golang/pkg/imageio"
	"github.com/pyhub-apps/pdfimages-golang/pkg/pdf"
)

// ImageEncoder writes one image as <prefix>-<counter>.<suffix>.
// *imageio.Encoder implements it.
type ImageEncoder interface {
	Encode(img pdf.Image, prefix string, counter int, directJPEG, noColorConvert bool) (*imageio.OutputFile, error)
}

// Failure records an image that could not be written.
type Failure struct {
	Page    int
	Image   pdf.ObjectKey
	Counter int
	Err     error
}

// PageFailure records a page skipped because its content could not be
// decoded.
type PageFailure struct {
	Page int
	Err  error
}

// Report lists what an extraction produced.
type Report struct {
	Source       string
	Prefix       string
	Pages        int
	Files        []imageio.OutputFile
	Failures     []Failure
	SkippedPages []PageFailure
}

// Summary returns the one-line result message.
func (r *Report) Summary() string {
	return fmt.Sprintf("The images from file %s were extracted using the prefix %s", r.Source, r.Prefix)
}

// EngineOption configures an Engine
type EngineOption func(*Engine)

// WithEncoder replaces the default encoder
func WithEncoder(enc ImageEncoder) EngineOption {
	return func(e *Engine) {
		e.encoder = enc
	}
}

// WithSource names the input file in the report and in errors
func WithSource(name string) EngineOption {
	return func(e *Engine) {
		e.report.Source = name
	}
}

// WithDirectJPEG passes JPEG and JPEG 2000 streams through whatever their
// colour space
func WithDirectJPEG(v bool) EngineOption {
	return func(e *Engine) {
		e.directJPEG = v
	}
}

// WithNoColorConvert writes samples in their native colour space where
// possible
func WithNoColorConvert(v bool) EngineOption {
	return func(e *Engine) {
		e.noColorConvert = v
	}
}

// WithContinueOnPageError skips pages whose content cannot be decoded
// instead of aborting
func WithContinueOnPageError(v bool) EngineOption {
	return func(e *Engine) {
		e.continueOnPageError = v
	}
}

// WithLogger sets the logger
func WithLogger(log logrus.FieldLogger) EngineOption {
	return func(e *Engine) {
		e.log = log
	}
}

// Engine receives walker callbacks for one document. It remembers which
// images were written and numbers output files across pages.
type Engine struct {
	content.NopHandler

	encoder             ImageEncoder
	prefix              string
	directJPEG          bool
	noColorConvert      bool
	continueOnPageError bool
	log                 logrus.FieldLogger

	seen    map[pdf.ObjectKey]bool
	counter int
	report  *Report
}

// NewEngine creates an engine writing files named after prefix
func NewEngine(prefix string, opts ...EngineOption) *Engine {
	e := &Engine{
		prefix: prefix,
		log:    logrus.StandardLogger(),
		seen:   map[pdf.ObjectKey]bool{},
		report: &Report{Prefix: prefix},
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.encoder == nil {
		e.encoder = imageio.NewEncoder(imageio.WithLogger(e.log))
	}
	return e
}

// Counter returns the last number handed out.
func (e *Engine) Counter() int {
	return e.counter
}

// Report returns the report built so far.
func (e *Engine) Report() *Report {
	return e.report
}

// ExtractDocument walks every page of doc in order. The permission check
// comes first, and ctx is checked between pages.
func (e *Engine) ExtractDocument(ctx context.Context, doc pdf.Document) (*Report, error) {
	if !doc.CanExtractContent() {
		return e.report, &pdf.PermissionError{File: e.report.Source}
	}

	for i := 0; i < doc.PageCount(); i++ {
		if err := ctx.Err(); err != nil {
			return e.report, errors.Wrapf(err, "stopped before page %d", i+1)
		}

		page, err := doc.GetPage(i)
		if err != nil {
			return e.report, errors.Wrapf(err, "failed to get page %d", i+1)
		}

		if err := e.ProcessPage(page); err != nil {
			var sde *pdf.StreamDecodeError
			if e.continueOnPageError && errors.As(err, &sde) {
				e.log.WithFields(logrus.Fields{"page": page.GetPageNumber()}).WithError(err).
					Warn("page skipped")
				e.report.SkippedPages = append(e.report.SkippedPages, PageFailure{Page: page.GetPageNumber(), Err: err})
				continue
			}
			return e.report, errors.Wrapf(err, "page %d", page.GetPageNumber())
		}
	}
	return e.report, nil
}

// ProcessPage walks one page. A page that writes nothing still uses up a
// number, so numbering never goes backwards between pages.
func (e *Engine) ProcessPage(page pdf.Page) error {
	before := e.counter
	w := content.NewWalker(e, content.WithLogger(e.log))
	err := w.WalkPage(page)
	if e.counter == before {
		e.counter++
	}
	e.report.Pages++
	return err
}

// DrawImage writes img unless an image with the same identity was already
// written. Stencil masks paint with the fill colour, which may be a pattern
// holding images of its own.
func (e *Engine) DrawImage(w *content.Walker, img pdf.Image) error {
	if img.IsStencil() {
		if err := e.processColor(w, w.State().FillColor); err != nil {
			return err
		}
	}

	key := img.Key()
	if !key.IsZero() {
		if e.seen[key] {
			return nil
		}
		e.seen[key] = true
	}

	e.counter++
	out, err := e.encoder.Encode(img, e.prefix, e.counter, e.directJPEG, e.noColorConvert)
	if err != nil {
		if !pdf.IsUnsupported(err) {
			return err
		}
		e.log.WithFields(logrus.Fields{
			"page":  w.PageNumber(),
			"image": key.String(),
		}).WithError(err).Warn("image not extracted")
		e.report.Failures = append(e.report.Failures, Failure{
			Page:    w.PageNumber(),
			Image:   key,
			Counter: e.counter,
			Err:     err,
		})
		return nil
	}
	e.report.Files = append(e.report.Files, *out)
	return nil
}

// PaintPath follows the colours a path is painted with
func (e *Engine) PaintPath(w *content.Walker, op *content.Operator) error {
	gs := w.State()
	if op.Fills() {
		if err := e.processColor(w, gs.FillColor); err != nil {
			return err
		}
	}
	if op.Strokes() {
		return e.processColor(w, gs.StrokeColor)
	}
	return nil
}

// ShowText follows the colours glyphs are painted with under the current
// text rendering mode
func (e *Engine) ShowText(w *content.Walker, op *content.Operator) error {
	gs := w.State()
	if gs.TextFills() {
		if err := e.processColor(w, gs.FillColor); err != nil {
			return err
		}
	}
	if gs.TextStrokes() {
		return e.processColor(w, gs.StrokeColor)
	}
	return nil
}

// processColor walks the cell of a tiling pattern colour. Other colours and
// shading patterns hold no images.
func (e *Engine) processColor(w *content.Walker, c content.Color) error {
	if !c.IsPattern() || c.Tile == nil {
		return nil
	}
	return w.WalkTilingPattern(c.Tile)
}
