package pdf

import (
	"bytes"
	"image"
	"image/jpeg"
	"io"

	"github.com/pdfcpu/pdfcpu/pkg/filter"
	"github.com/pkg/errors"
	"golang.org/x/image/ccitt"
	"golang.org/x/image/draw"
)

// ImageParams describes a sampled image independently of where it was
// found. Image XObjects and inline images are both built from it.
type ImageParams struct {
	Key              ObjectKey
	Width            int
	Height           int
	BitsPerComponent int
	ColorSpace       *ColorSpace
	ImageMask        bool
	Decode           []float64
	Filters          []Filter
	Data             []byte // stream data as stored, all filters applied

	ColorKey []int        // /Mask given as colour key ranges
	Mask     *ImageParams // /Mask given as a stencil stream
	SoftMask *ImageParams // /SMask
}

type sampledImage struct {
	p ImageParams
}

// NewImage returns an Image over p.
func NewImage(p ImageParams) Image {
	return &sampledImage{p: p}
}

func (im *sampledImage) Key() ObjectKey { return im.p.Key }

func (im *sampledImage) Compression() Compression { return compressionOf(im.p.Filters) }

func (im *sampledImage) Width() int { return im.p.Width }

func (im *sampledImage) Height() int { return im.p.Height }

func (im *sampledImage) IsStencil() bool { return im.p.ImageMask }

func (im *sampledImage) HasMask() bool {
	return im.p.SoftMask != nil || im.p.Mask != nil || len(im.p.ColorKey) > 0
}

func (im *sampledImage) ColorSpace() *ColorSpace {
	if im.p.ImageMask || im.p.ColorSpace == nil {
		return NewDeviceColorSpace(DeviceGray)
	}
	return im.p.ColorSpace
}

func (im *sampledImage) BitsPerComponent() int {
	if im.p.ImageMask || im.Compression() == CompressionCCITT {
		return 1
	}
	if im.p.BitsPerComponent <= 0 {
		return 8
	}
	return im.p.BitsPerComponent
}

func (im *sampledImage) name() string {
	if im.p.Key.IsZero() {
		return "inline image"
	}
	return "image " + im.p.Key.String()
}

// Stream applies the transport filters in front of the image filter and
// returns what remains.
func (im *sampledImage) Stream() ([]byte, error) {
	data, _, err := applyFilters(im.p.Data, im.p.Filters)
	if err != nil {
		return nil, decodeError(im.name(), err)
	}
	return data, nil
}

// applyFilters runs data through filters up to the first image filter,
// which is returned undecoded together with its input.
func applyFilters(data []byte, filters []Filter) ([]byte, *Filter, error) {
	for i := range filters {
		f := &filters[i]
		switch f.Name {
		case FilterDCT, FilterJPX, FilterCCITTFax, FilterJBIG2:
			return data, f, nil
		}
		fl, err := filter.NewFilter(f.Name, f.Parms)
		if err != nil {
			return nil, nil, errors.Wrapf(err, "filter %s", f.Name)
		}
		r, err := fl.Decode(bytes.NewReader(data))
		if err != nil {
			return nil, nil, errors.Wrapf(err, "filter %s", f.Name)
		}
		if data, err = io.ReadAll(r); err != nil {
			return nil, nil, errors.Wrapf(err, "filter %s", f.Name)
		}
	}
	return data, nil, nil
}

// samples returns the packed image samples with every filter applied.
func (im *sampledImage) samples() ([]byte, error) {
	data, term, err := applyFilters(im.p.Data, im.p.Filters)
	if err != nil {
		return nil, decodeError(im.name(), err)
	}
	if term == nil {
		return data, nil
	}
	switch term.Name {
	case FilterCCITTFax:
		return decodeCCITT(data, term.Parms, im.p.Height)
	case FilterJPX:
		return nil, unsupported("jpx", "JPEG 2000 decoding is not available")
	case FilterJBIG2:
		return nil, unsupported("jb2", "JBIG2 decoding is not available")
	}
	return nil, unsupported(term.Name, "no sample decoder")
}

func decodeCCITT(data []byte, parms map[string]int, height int) ([]byte, error) {
	k := parms["K"]
	if k > 0 {
		return nil, unsupported("tiff", "CCITT mixed 1-D/2-D encoding (K=%d)", k)
	}
	cols := 1728
	if c, ok := parms["Columns"]; ok {
		cols = c
	}
	rows, ok := parms["Rows"]
	if !ok || rows <= 0 {
		rows = height
	}
	mode := ccitt.Group3
	if k < 0 {
		mode = ccitt.Group4
	}
	opts := &ccitt.Options{Invert: parms["BlackIs1"] == 1, Align: parms["EncodedByteAlign"] == 1}
	out, err := io.ReadAll(ccitt.NewReader(bytes.NewReader(data), ccitt.MSB, mode, cols, rows, opts))
	if err != nil {
		return nil, decodeError("CCITT data", err)
	}
	return out, nil
}

// Decode converts the image to gray or RGB and applies any mask.
func (im *sampledImage) Decode() (image.Image, error) {
	var (
		img image.Image
		err error
	)
	if im.Compression() == CompressionJPEG {
		img, err = im.decodeJPEG()
	} else {
		img, err = im.decodeSamples()
	}
	if err != nil {
		return nil, err
	}

	switch {
	case im.p.SoftMask != nil:
		alpha, err := NewImage(*im.p.SoftMask).Decode()
		if err != nil {
			return nil, errors.Wrap(err, "soft mask")
		}
		return applyAlpha(img, alpha, false), nil
	case im.p.Mask != nil:
		m := *im.p.Mask
		m.ImageMask = true
		alpha, err := NewImage(m).Decode()
		if err != nil {
			return nil, errors.Wrap(err, "mask")
		}
		return applyAlpha(img, alpha, true), nil
	}
	return img, nil
}

func (im *sampledImage) decodeJPEG() (image.Image, error) {
	data, err := im.Stream()
	if err != nil {
		return nil, err
	}
	src, err := jpeg.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, decodeError(im.name(), err)
	}
	inverted := len(im.p.Decode) >= 2 && im.p.Decode[0] > im.p.Decode[1]
	switch s := src.(type) {
	case *image.Gray:
		if inverted {
			invert(s.Pix)
		}
		return s, nil
	case *image.CMYK:
		if inverted {
			invert(s.Pix)
		}
	}
	b := src.Bounds()
	dst := image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(dst, dst.Bounds(), src, b.Min, draw.Src)
	return dst, nil
}

func invert(pix []byte) {
	for i := range pix {
		pix[i] = 0xff - pix[i]
	}
}

// applyAlpha merges a mask image into img. Stencil masks paint where the
// mask is black; soft masks use the mask's gray level as alpha.
func applyAlpha(img, mask image.Image, stencil bool) *image.NRGBA {
	b := img.Bounds()
	dst := image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(dst, dst.Bounds(), img, b.Min, draw.Src)

	alpha := image.NewGray(dst.Bounds())
	if mask.Bounds().Dx() == dst.Bounds().Dx() && mask.Bounds().Dy() == dst.Bounds().Dy() {
		draw.Draw(alpha, alpha.Bounds(), mask, mask.Bounds().Min, draw.Src)
	} else {
		draw.NearestNeighbor.Scale(alpha, alpha.Bounds(), mask, mask.Bounds(), draw.Src, nil)
	}

	for i, a := range alpha.Pix {
		if stencil {
			a = 0xff - a
		}
		dst.Pix[4*i+3] = a
	}
	return dst
}
