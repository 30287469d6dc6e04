package pdf

import (
	"fmt"
	"image"

	"github.com/pkg/errors"
)

// ObjectKey identifies an indirect object. The zero key marks objects
// without a stable identity, such as inline images.
type ObjectKey struct {
	Num int
	Gen int
}

// IsZero reports whether k carries no identity.
func (k ObjectKey) IsZero() bool {
	return k.Num == 0 && k.Gen == 0
}

func (k ObjectKey) String() string {
	return fmt.Sprintf("%d %d R", k.Num, k.Gen)
}

// Compression is the native compression of an image stream, taken from its
// filter pipeline.
type Compression int

const (
	CompressionRaw   Compression = iota // Flate, LZW, RunLength or no filter
	CompressionJPEG                     // DCTDecode
	CompressionJPX                      // JPXDecode
	CompressionCCITT                    // CCITTFaxDecode
	CompressionJBIG2                    // JBIG2Decode
	CompressionOther                    // filters we cannot classify
)

// Suffix returns the natural file suffix for the compression, or "" when
// none is known.
func (c Compression) Suffix() string {
	switch c {
	case CompressionRaw:
		return "png"
	case CompressionJPEG:
		return "jpg"
	case CompressionJPX:
		return "jpx"
	case CompressionCCITT:
		return "tiff"
	case CompressionJBIG2:
		return "jb2"
	}
	return ""
}

func (c Compression) String() string {
	switch c {
	case CompressionRaw:
		return "raw"
	case CompressionJPEG:
		return "jpeg"
	case CompressionJPX:
		return "jpeg2000"
	case CompressionCCITT:
		return "ccitt"
	case CompressionJBIG2:
		return "jbig2"
	}
	return "other"
}

// Standard filter names.
const (
	FilterASCIIHex  = "ASCIIHexDecode"
	FilterASCII85   = "ASCII85Decode"
	FilterLZW       = "LZWDecode"
	FilterFlate     = "FlateDecode"
	FilterRunLength = "RunLengthDecode"
	FilterCCITTFax  = "CCITTFaxDecode"
	FilterJBIG2     = "JBIG2Decode"
	FilterDCT       = "DCTDecode"
	FilterJPX       = "JPXDecode"
)

// Filter is one stage of a stream's filter pipeline.
type Filter struct {
	Name  string
	Parms map[string]int
}

func compressionOf(filters []Filter) Compression {
	if len(filters) == 0 {
		return CompressionRaw
	}
	other := false
	for _, f := range filters {
		switch f.Name {
		case FilterDCT:
			return CompressionJPEG
		case FilterJPX:
			return CompressionJPX
		case FilterCCITTFax:
			return CompressionCCITT
		case FilterJBIG2:
			return CompressionJBIG2
		case FilterFlate, FilterLZW, FilterRunLength:
		default:
			other = true
		}
	}
	if other && !hasFilter(filters, FilterFlate, FilterLZW, FilterRunLength) {
		return CompressionOther
	}
	return CompressionRaw
}

func hasFilter(filters []Filter, names ...string) bool {
	for _, f := range filters {
		for _, n := range names {
			if f.Name == n {
				return true
			}
		}
	}
	return false
}

// ExtGState is an extended graphics state resource. Only the entries that
// matter for image discovery are kept.
type ExtGState struct {
	Name     string
	SoftMask *SoftMask // nil when absent or /None
}

// SoftMask is the /SMask entry of an extended graphics state.
type SoftMask struct {
	Subtype string // Alpha or Luminosity
	Group   Form   // transparency group XObject
}

// Raster holds image samples in their native colour space.
type Raster struct {
	Width    int
	Height   int
	Channels int
	Depth    int    // bits per sample, 8 or 16
	Pix      []byte // interleaved samples, rows without padding, 16-bit big-endian
	Profile  []byte // ICC profile of the source colour space, if any
}

// Stride returns the number of bytes per row.
func (r *Raster) Stride() int {
	return r.Width * r.Channels * r.Depth / 8
}

// Image converts a gray or RGB raster into an image.Image without any
// colour conversion.
func (r *Raster) Image() (image.Image, error) {
	rect := image.Rect(0, 0, r.Width, r.Height)
	stride := r.Stride()
	switch {
	case r.Channels == 1 && r.Depth == 8:
		return &image.Gray{Pix: r.Pix, Stride: stride, Rect: rect}, nil
	case r.Channels == 1 && r.Depth == 16:
		return &image.Gray16{Pix: r.Pix, Stride: stride, Rect: rect}, nil
	case r.Channels == 3 && r.Depth == 8:
		img := image.NewNRGBA(rect)
		for i, j := 0, 0; i+2 < len(r.Pix) && j < len(img.Pix); i, j = i+3, j+4 {
			img.Pix[j], img.Pix[j+1], img.Pix[j+2], img.Pix[j+3] = r.Pix[i], r.Pix[i+1], r.Pix[i+2], 0xff
		}
		return img, nil
	case r.Channels == 3 && r.Depth == 16:
		img := image.NewNRGBA64(rect)
		for i, j := 0, 0; i+5 < len(r.Pix) && j < len(img.Pix); i, j = i+6, j+8 {
			copy(img.Pix[j:j+6], r.Pix[i:i+6])
			img.Pix[j+6], img.Pix[j+7] = 0xff, 0xff
		}
		return img, nil
	}
	return nil, errors.Errorf("raster with %d channels at depth %d has no image model", r.Channels, r.Depth)
}
