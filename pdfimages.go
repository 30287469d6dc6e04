// Package pdfimages extracts the embedded raster images of a PDF document
// and writes each distinct image once, keeping its original compression
// where possible
package pdfimages

import (
	"context"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/pyhub-apps/pdfimages-golang/pkg/extractors"
	"github.com/pyhub-apps/pdfimages-golang/pkg/imageio"
	"github.com/pyhub-apps/pdfimages-golang/pkg/pdf"
)

// Re-export types from the implementation packages for the public API
type (
	Document               = pdf.Document
	Report                 = extractors.Report
	Failure                = extractors.Failure
	PageFailure            = extractors.PageFailure
	OutputFile             = imageio.OutputFile
	TIFFCompression        = imageio.TIFFCompression
	PermissionError        = pdf.PermissionError
	StreamDecodeError      = pdf.StreamDecodeError
	UnsupportedFormatError = pdf.UnsupportedFormatError
	IOError                = pdf.IOError
)

// TIFF compressions for non-bitonal images
const (
	CompressionLZW     = imageio.CompressionLZW
	CompressionDeflate = imageio.CompressionDeflate
)

// Option configures an extraction
type Option func(*options)

type options struct {
	password            string
	prefix              string
	outputDir           string
	dpi                 int
	directJPEG          bool
	noColorConvert      bool
	continueOnPageError bool
	tiffCompression     TIFFCompression
	log                 logrus.FieldLogger
}

func defaultOptions() *options {
	return &options{
		dpi:             imageio.DefaultDPI,
		tiffCompression: CompressionLZW,
		log:             logrus.StandardLogger(),
	}
}

func (o *options) validate() error {
	if o.dpi <= 0 || o.dpi > imageio.MaxDPI {
		return errors.Errorf("invalid DPI %d, want 1 to %d", o.dpi, imageio.MaxDPI)
	}
	switch o.tiffCompression {
	case CompressionLZW, CompressionDeflate:
	default:
		return errors.Errorf("invalid TIFF compression %q", o.tiffCompression)
	}
	return nil
}

// WithPassword opens encrypted documents with a user or owner password
func WithPassword(password string) Option {
	return func(o *options) {
		o.password = password
	}
}

// WithPrefix sets the output file prefix. The default is the input path
// without its extension.
func WithPrefix(prefix string) Option {
	return func(o *options) {
		o.prefix = prefix
	}
}

// WithOutputDir writes files into dir instead of next to the prefix
func WithOutputDir(dir string) Option {
	return func(o *options) {
		o.outputDir = dir
	}
}

// WithDPI sets the resolution recorded in JPEG, PNG and TIFF files
func WithDPI(dpi int) Option {
	return func(o *options) {
		o.dpi = dpi
	}
}

// WithDirectJPEG writes JPEG and JPEG 2000 streams unchanged whatever their
// colour space
func WithDirectJPEG(v bool) Option {
	return func(o *options) {
		o.directJPEG = v
	}
}

// WithNoColorConvert keeps samples in their own colour space where a raw
// raster can be produced
func WithNoColorConvert(v bool) Option {
	return func(o *options) {
		o.noColorConvert = v
	}
}

// WithTIFFCompression selects LZW or Deflate for non-bitonal TIFF output
func WithTIFFCompression(c TIFFCompression) Option {
	return func(o *options) {
		o.tiffCompression = c
	}
}

// WithContinueOnPageError skips pages whose content stream is malformed
func WithContinueOnPageError(v bool) Option {
	return func(o *options) {
		o.continueOnPageError = v
	}
}

// WithLogger sets the logger
func WithLogger(log logrus.FieldLogger) Option {
	return func(o *options) {
		o.log = log
	}
}

// DefaultPrefix returns path without its extension
func DefaultPrefix(path string) string {
	return strings.TrimSuffix(path, filepath.Ext(path))
}

// Open opens a PDF file and returns a Document
func Open(path string) (Document, error) {
	return pdf.Open(path)
}

// OpenWithPassword opens a password-protected PDF file
func OpenWithPassword(path string, password string) (Document, error) {
	return pdf.OpenWithPassword(path, password)
}

// ExtractImages writes every distinct image of the file at path and returns
// the summary line.
func ExtractImages(path string, opts ...Option) (string, error) {
	report, err := Extract(context.Background(), path, opts...)
	if err != nil {
		return "", err
	}
	return report.Summary(), nil
}

// Extract writes every distinct image of the file at path. The report is
// returned together with any error, listing what was written before it.
func Extract(ctx context.Context, path string, opts ...Option) (*Report, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(o)
	}
	if err := o.validate(); err != nil {
		return nil, err
	}

	doc, err := pdf.OpenWithPassword(path, o.password)
	if err != nil {
		return nil, err
	}
	defer doc.Close()

	return extract(ctx, doc, path, o)
}

// ExtractDocument works like Extract on a document that is already open.
// source names the document in the report; the default prefix is derived
// from it.
func ExtractDocument(ctx context.Context, doc Document, source string, opts ...Option) (*Report, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(o)
	}
	if err := o.validate(); err != nil {
		return nil, err
	}
	return extract(ctx, doc, source, o)
}

func extract(ctx context.Context, doc Document, source string, o *options) (*Report, error) {
	prefix := o.prefix
	if prefix == "" {
		prefix = DefaultPrefix(source)
	}

	enc := imageio.NewEncoder(
		imageio.WithDPI(o.dpi),
		imageio.WithOutputDir(o.outputDir),
		imageio.WithTIFFCompression(o.tiffCompression),
		imageio.WithLogger(o.log),
	)
	engine := extractors.NewEngine(prefix,
		extractors.WithEncoder(enc),
		extractors.WithSource(source),
		extractors.WithDirectJPEG(o.directJPEG),
		extractors.WithNoColorConvert(o.noColorConvert),
		extractors.WithContinueOnPageError(o.continueOnPageError),
		extractors.WithLogger(o.log),
	)

	o.log.WithFields(logrus.Fields{"file": source, "pages": doc.PageCount()}).Debug("extracting images")
	report, err := engine.ExtractDocument(ctx, doc)
	if err != nil {
		return report, errors.WithMessage(err, source)
	}
	return report, nil
}
