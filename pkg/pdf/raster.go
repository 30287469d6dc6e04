package pdf

import (
	"bytes"
	"image"
	"image/jpeg"

	"github.com/pkg/errors"
)

// sampleAt returns the i-th packed sample of row.
func sampleAt(row []byte, i, bpc int) uint16 {
	switch bpc {
	case 8:
		return uint16(row[i])
	case 16:
		return uint16(row[2*i])<<8 | uint16(row[2*i+1])
	}
	off := i * bpc
	shift := uint(8 - bpc - off%8)
	return uint16(row[off/8]>>shift) & (1<<uint(bpc) - 1)
}

// rowLayout validates the sample geometry and pads short data.
func (im *sampledImage) rowLayout(data []byte, n, bpc int) ([]byte, int, error) {
	switch bpc {
	case 1, 2, 4, 8, 16:
	default:
		return nil, 0, decodeError(im.name(), errors.Errorf("invalid BitsPerComponent %d", bpc))
	}
	if im.p.Width <= 0 || im.p.Height <= 0 {
		return nil, 0, decodeError(im.name(), errors.Errorf("invalid size %dx%d", im.p.Width, im.p.Height))
	}
	stride := (im.p.Width*n*bpc + 7) / 8
	if need := stride * im.p.Height; len(data) < need {
		padded := make([]byte, need)
		copy(padded, data)
		data = padded
	}
	return data, stride, nil
}

// decodeSamples converts non-JPEG samples to *image.Gray or *image.NRGBA.
func (im *sampledImage) decodeSamples() (image.Image, error) {
	data, err := im.samples()
	if err != nil {
		return nil, err
	}
	cs := im.ColorSpace()
	if cs.IsPattern() {
		return nil, decodeError(im.name(), errors.New("image in Pattern colour space"))
	}
	n := cs.Components()
	bpc := im.BitsPerComponent()
	data, stride, err := im.rowLayout(data, n, bpc)
	if err != nil {
		return nil, err
	}

	dec := im.p.Decode
	if len(dec) < 2*n {
		dec = cs.defaultDecode(bpc)
	}
	maxVal := float64(int(1)<<uint(bpc) - 1)
	keyed := len(im.p.ColorKey) >= 2*n

	w, h := im.p.Width, im.p.Height
	var (
		gray *image.Gray
		rgba *image.NRGBA
	)
	if cs.isGray() && !keyed {
		gray = image.NewGray(image.Rect(0, 0, w, h))
	} else {
		rgba = image.NewNRGBA(image.Rect(0, 0, w, h))
	}

	raw := make([]uint16, n)
	comps := make([]float64, n)
	for y := 0; y < h; y++ {
		row := data[y*stride : (y+1)*stride]
		for x := 0; x < w; x++ {
			for c := 0; c < n; c++ {
				raw[c] = sampleAt(row, x*n+c, bpc)
				comps[c] = dec[2*c] + float64(raw[c])*(dec[2*c+1]-dec[2*c])/maxVal
			}
			r, g, b := cs.RGB(comps)
			if gray != nil {
				gray.Pix[y*gray.Stride+x] = to8(r)
				continue
			}
			o := y*rgba.Stride + 4*x
			rgba.Pix[o], rgba.Pix[o+1], rgba.Pix[o+2], rgba.Pix[o+3] = to8(r), to8(g), to8(b), 0xff
			if keyed && inColorKey(raw, im.p.ColorKey) {
				rgba.Pix[o+3] = 0
			}
		}
	}
	if gray != nil {
		return gray, nil
	}
	return rgba, nil
}

func inColorKey(raw []uint16, key []int) bool {
	for c, v := range raw {
		if int(v) < key[2*c] || int(v) > key[2*c+1] {
			return false
		}
	}
	return true
}

func to8(v float64) uint8 {
	return uint8(clamp01(v)*255 + 0.5)
}

// RawRaster returns the samples in their native colour space. Bit depths
// below 8 are scaled up to 8.
func (im *sampledImage) RawRaster() (*Raster, error) {
	cs := im.ColorSpace()
	if im.p.ImageMask || !cs.rawChannels() {
		return nil, nil
	}
	switch im.Compression() {
	case CompressionJPX, CompressionJBIG2, CompressionOther:
		return nil, nil
	case CompressionJPEG:
		return im.rawJPEG(cs)
	}

	data, err := im.samples()
	if err != nil {
		return nil, err
	}
	n := cs.Components()
	bpc := im.BitsPerComponent()
	data, stride, err := im.rowLayout(data, n, bpc)
	if err != nil {
		return nil, err
	}
	r := &Raster{Width: im.p.Width, Height: im.p.Height, Channels: n, Depth: 8, Profile: cs.Profile}
	if bpc == 16 {
		r.Depth = 16
		r.Pix = make([]byte, 0, r.Stride()*r.Height)
		for y := 0; y < r.Height; y++ {
			r.Pix = append(r.Pix, data[y*stride:y*stride+r.Stride()]...)
		}
		return r, nil
	}
	maxVal := int(1)<<uint(bpc) - 1
	r.Pix = make([]byte, r.Stride()*r.Height)
	for y := 0; y < r.Height; y++ {
		row := data[y*stride : (y+1)*stride]
		out := r.Pix[y*r.Stride():]
		for i := 0; i < r.Width*n; i++ {
			out[i] = uint8(int(sampleAt(row, i, bpc)) * 255 / maxVal)
		}
	}
	return r, nil
}

func (im *sampledImage) rawJPEG(cs *ColorSpace) (*Raster, error) {
	data, err := im.Stream()
	if err != nil {
		return nil, err
	}
	src, err := jpeg.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, decodeError(im.name(), err)
	}
	b := src.Bounds()
	r := &Raster{Width: b.Dx(), Height: b.Dy(), Depth: 8, Profile: cs.Profile}
	switch s := src.(type) {
	case *image.Gray:
		r.Channels = 1
		r.Pix = make([]byte, 0, r.Width*r.Height)
		for y := b.Min.Y; y < b.Max.Y; y++ {
			o := s.PixOffset(b.Min.X, y)
			r.Pix = append(r.Pix, s.Pix[o:o+r.Width]...)
		}
	case *image.CMYK:
		r.Channels = 4
		r.Pix = make([]byte, 0, 4*r.Width*r.Height)
		for y := b.Min.Y; y < b.Max.Y; y++ {
			o := s.PixOffset(b.Min.X, y)
			r.Pix = append(r.Pix, s.Pix[o:o+4*r.Width]...)
		}
	default:
		r.Channels = 3
		r.Pix = make([]byte, 0, 3*r.Width*r.Height)
		for y := b.Min.Y; y < b.Max.Y; y++ {
			for x := b.Min.X; x < b.Max.X; x++ {
				cr, cg, cb, _ := src.At(x, y).RGBA()
				r.Pix = append(r.Pix, uint8(cr>>8), uint8(cg>>8), uint8(cb>>8))
			}
		}
	}
	return r, nil
}
