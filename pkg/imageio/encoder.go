// Package imageio chooses an output format for each extracted image and
// writes it, either as the original compressed stream or re-encoded with
// resolution metadata.
package imageio

import (
	"bytes"
	"fmt"
	"image"
	"io"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/pyhub-apps/pdfimages-golang/pkg/pdf"
)

// DefaultDPI is the resolution recorded when none is configured.
const DefaultDPI = 72

// MaxDPI is the largest resolution a JFIF density field can hold.
const MaxDPI = 65535

// Strategy is how the bytes of an output file are produced.
type Strategy int

const (
	// Passthrough copies the embedded compressed stream unchanged
	Passthrough Strategy = iota
	// Raw writes the samples in their own colour space
	Raw
	// Reencode decodes to gray or RGB and encodes again
	Reencode
	// Bitonal thresholds to 1 bit and writes CCITT Group 4
	Bitonal
)

func (s Strategy) String() string {
	switch s {
	case Passthrough:
		return "passthrough"
	case Raw:
		return "raw"
	case Reencode:
		return "reencode"
	case Bitonal:
		return "bitonal"
	}
	return fmt.Sprintf("Strategy(%d)", int(s))
}

// TIFFCompression selects the compression of non-bitonal TIFF files.
type TIFFCompression string

const (
	CompressionLZW     TIFFCompression = "lzw"
	CompressionDeflate TIFFCompression = "deflate"
)

// Decision is the output format chosen for one image.
type Decision struct {
	Suffix   string
	Strategy Strategy
}

// OutputFile describes a written image.
type OutputFile struct {
	Path     string
	Suffix   string
	Size     int
	Strategy Strategy
}

// Meta carries the per-file metadata handed to a writer.
type Meta struct {
	DPI             int
	Profile         []byte // ICC profile to embed, if any
	Bitonal         bool
	TIFFCompression TIFFCompression
}

// WriterFunc encodes img into w.
type WriterFunc func(w io.Writer, img image.Image, meta *Meta) error

// Option configures an Encoder
type Option func(*Encoder)

// WithDPI sets the resolution recorded in written files
func WithDPI(dpi int) Option {
	return func(e *Encoder) {
		if dpi > 0 && dpi <= MaxDPI {
			e.dpi = dpi
		}
	}
}

// WithOutputDir places output files in dir
func WithOutputDir(dir string) Option {
	return func(e *Encoder) {
		e.dir = dir
	}
}

// WithTIFFCompression selects LZW or Deflate for non-bitonal TIFF files
func WithTIFFCompression(c TIFFCompression) Option {
	return func(e *Encoder) {
		if c != "" {
			e.tiffCompression = c
		}
	}
}

// WithLogger sets the logger
func WithLogger(log logrus.FieldLogger) Option {
	return func(e *Encoder) {
		e.log = log
	}
}

// Encoder writes images to files named <prefix>-<counter>.<suffix>.
type Encoder struct {
	dir             string
	dpi             int
	tiffCompression TIFFCompression
	log             logrus.FieldLogger
	writers         map[string]WriterFunc
}

// NewEncoder creates an encoder with writers for png, jpg and tiff.
func NewEncoder(opts ...Option) *Encoder {
	e := &Encoder{
		dpi:             DefaultDPI,
		tiffCompression: CompressionLZW,
		log:             logrus.StandardLogger(),
		writers:         map[string]WriterFunc{},
	}
	e.RegisterWriter("png", writePNG)
	e.RegisterWriter("jpg", writeJPEG)
	e.RegisterWriter("tiff", writeTIFF)
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// RegisterWriter adds or replaces the writer for a suffix.
func (e *Encoder) RegisterWriter(suffix string, w WriterFunc) {
	e.writers[suffix] = w
}

// Decide picks the output format for img. The raw raster is returned when
// the Raw strategy applies.
func Decide(img pdf.Image, directJPEG, noColorConvert bool) (Decision, *pdf.Raster, error) {
	if img.HasMask() {
		return Decision{"png", Reencode}, nil, nil
	}

	if noColorConvert {
		raster, err := img.RawRaster()
		if err != nil {
			return Decision{}, nil, err
		}
		if raster != nil {
			if raster.Channels > 3 {
				return Decision{"tiff", Raw}, raster, nil
			}
			return Decision{"png", Raw}, raster, nil
		}
	}

	cs := img.ColorSpace()
	switch c := img.Compression(); {
	case c == pdf.CompressionJPEG && (directJPEG || cs.IsPlainGrayOrRGB()):
		return Decision{"jpg", Passthrough}, nil, nil
	case c == pdf.CompressionJPEG:
		return Decision{"jpg", Reencode}, nil, nil
	case c == pdf.CompressionJPX && (directJPEG || cs.IsPlainGrayOrRGB()):
		return Decision{"jp2", Passthrough}, nil, nil
	case c == pdf.CompressionJPX:
		return Decision{"jp2", Reencode}, nil, nil
	case c == pdf.CompressionCCITT && cs.Name() == pdf.DeviceGray && img.BitsPerComponent() == 1:
		return Decision{"tiff", Bitonal}, nil, nil
	case c.Suffix() == "" || c.Suffix() == "jb2":
		return Decision{"png", Reencode}, nil, nil
	default:
		return Decision{c.Suffix(), Reencode}, nil, nil
	}
}

// Encode writes one image as <prefix>-<counter>.<suffix>. An
// *pdf.UnsupportedFormatError is returned, and no file created, when the
// image cannot be produced in the chosen format.
func (e *Encoder) Encode(img pdf.Image, prefix string, counter int, directJPEG, noColorConvert bool) (*OutputFile, error) {
	d, raster, err := Decide(img, directJPEG, noColorConvert)
	if err != nil {
		return nil, err
	}

	data, err := e.render(img, d, raster)
	if err != nil {
		return nil, err
	}

	name := fmt.Sprintf("%s-%d.%s", prefix, counter, d.Suffix)
	if e.dir != "" {
		name = filepath.Join(e.dir, name)
	}
	if err := writeFile(name, data); err != nil {
		return nil, err
	}

	e.log.WithFields(logrus.Fields{
		"file":     name,
		"format":   d.Suffix,
		"strategy": d.Strategy.String(),
		"image":    img.Key().String(),
	}).Debug("image written")
	return &OutputFile{Path: name, Suffix: d.Suffix, Size: len(data), Strategy: d.Strategy}, nil
}

// render produces the complete file contents in memory.
func (e *Encoder) render(img pdf.Image, d Decision, raster *pdf.Raster) ([]byte, error) {
	if d.Strategy == Passthrough {
		return img.Stream()
	}

	write, ok := e.writers[d.Suffix]
	if !ok {
		return nil, &pdf.UnsupportedFormatError{Format: d.Suffix, Reason: "no writer for format " + d.Suffix}
	}
	meta := &Meta{DPI: e.dpi, TIFFCompression: e.tiffCompression, Bitonal: d.Strategy == Bitonal}

	var src image.Image
	switch d.Strategy {
	case Raw:
		var err error
		if src, err = rasterImage(raster); err != nil {
			return nil, err
		}
		if d.Suffix == "png" {
			meta.Profile = embeddableRasterProfile(raster)
		}
	default:
		var err error
		if src, err = img.Decode(); err != nil {
			return nil, err
		}
		meta.Profile = embeddableProfile(img.ColorSpace())
	}

	var buf bytes.Buffer
	if err := write(&buf, src, meta); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func rasterImage(r *pdf.Raster) (image.Image, error) {
	if r.Channels == 4 {
		return cmykImage(r.Width, r.Height, r.Depth, r.Pix), nil
	}
	return r.Image()
}

// embeddableRasterProfile applies the same test as embeddableProfile to the
// profile attached to a raw raster.
func embeddableRasterProfile(r *pdf.Raster) []byte {
	if r.Channels != 3 || len(r.Profile) == 0 {
		return nil
	}
	return embeddableProfile(&pdf.ColorSpace{Family: pdf.ICCBased, N: 3, Profile: r.Profile})
}

// writeFile creates, writes and syncs one output file.
func writeFile(name string, data []byte) (err error) {
	f, err := os.Create(name)
	if err != nil {
		return &pdf.IOError{Path: name, Err: err}
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = &pdf.IOError{Path: name, Err: cerr}
		}
	}()

	if _, err := f.Write(data); err != nil {
		return &pdf.IOError{Path: name, Err: errors.WithStack(err)}
	}
	if err := f.Sync(); err != nil {
		return &pdf.IOError{Path: name, Err: err}
	}
	return nil
}
