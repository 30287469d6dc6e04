package pdf

import (
	"image"
)

// Document represents an opened PDF document
type Document interface {
	// PageCount returns the total number of pages
	PageCount() int

	// GetPage returns a specific page by index (0-based)
	GetPage(index int) (Page, error)

	// CanExtractContent reports whether the security handler permits
	// extracting text and graphics
	CanExtractContent() bool

	// Close releases resources associated with the document
	Close() error
}

// Page represents a single page in a PDF document
type Page interface {
	// GetPageNumber returns the page number (1-based)
	GetPageNumber() int

	// Content returns the decoded, concatenated content streams
	Content() ([]byte, error)

	// Resources returns the page's resource dictionary, inherited entries
	// included
	Resources() Resources
}

// Resources resolves named resources of a page, form or pattern. Lookups of
// names that are not present return a nil value and a nil error.
type Resources interface {
	XObject(name string) (XObject, error)
	ExtGState(name string) (*ExtGState, error)
	ExtGStateNames() []string
	Pattern(name string) (Pattern, error)
	ColorSpace(name string) (*ColorSpace, error)
}

// XObject is either an Image or a Form.
type XObject interface {
	Key() ObjectKey
}

// Form is a self-contained content stream with its own resources: a form
// XObject, a transparency group or a tiling pattern cell.
type Form interface {
	Key() ObjectKey
	Content() ([]byte, error)

	// Resources may return nil, in which case the enclosing resources apply.
	Resources() Resources
}

// Image is a sampled image, either an image XObject or an inline image.
type Image interface {
	Key() ObjectKey
	Compression() Compression
	ColorSpace() *ColorSpace
	Width() int
	Height() int
	BitsPerComponent() int

	// IsStencil reports whether the image is an image mask painted with
	// the current fill colour
	IsStencil() bool

	// HasMask reports an explicit /Mask (stream or colour key) or an /SMask
	HasMask() bool

	// Stream returns the stream bytes still encoded with the image's native
	// compression, with any preceding transport filters removed
	Stream() ([]byte, error)

	// Decode returns the image converted to gray or RGB, with alpha when the
	// image is masked
	Decode() (image.Image, error)

	// RawRaster returns the samples in the native colour space, or nil when
	// the colour space or compression does not allow it
	RawRaster() (*Raster, error)
}

// Pattern is a tiling or shading pattern resource.
type Pattern interface {
	PatternType() int
}

// TilingPattern is a pattern whose cell is a content stream.
type TilingPattern interface {
	Pattern
	Form
}

// Pattern types.
const (
	PatternTiling  = 1
	PatternShading = 2
)
