package imageio

import (
	"image"
	"image/color"
)

// toBitonal thresholds img at mid gray.
func toBitonal(img image.Image) *bitonal {
	r := img.Bounds()
	out := newBitonal(r.Dx(), r.Dy())
	if g, ok := img.(*image.Gray); ok {
		for y := 0; y < r.Dy(); y++ {
			off := g.PixOffset(r.Min.X, r.Min.Y+y)
			row := g.Pix[off : off+r.Dx()]
			for x, v := range row {
				if v < 0x80 {
					out.set(x, y)
				}
			}
		}
		return out
	}
	for y := 0; y < r.Dy(); y++ {
		for x := 0; x < r.Dx(); x++ {
			if color.GrayModel.Convert(img.At(r.Min.X+x, r.Min.Y+y)).(color.Gray).Y < 0x80 {
				out.set(x, y)
			}
		}
	}
	return out
}

// cmykImage wraps 4-channel samples without converting them. 16-bit
// samples keep their high byte.
func cmykImage(width, height, depth int, pix []byte) *image.CMYK {
	img := image.NewCMYK(image.Rect(0, 0, width, height))
	if depth == 16 {
		for i := range img.Pix {
			if 2*i < len(pix) {
				img.Pix[i] = pix[2*i]
			}
		}
		return img
	}
	copy(img.Pix, pix)
	return img
}
