package pdf

import (
	"math"
)

// Colour space families.
const (
	DeviceGray = "DeviceGray"
	DeviceRGB  = "DeviceRGB"
	DeviceCMYK = "DeviceCMYK"
	CalGray    = "CalGray"
	CalRGB     = "CalRGB"
	Lab        = "Lab"
	ICCBased   = "ICCBased"
	Indexed    = "Indexed"
	Separation = "Separation"
	DeviceN    = "DeviceN"
	PatternCS  = "Pattern"
)

// ColorSpace describes a PDF colour space closely enough to convert samples
// to RGB.
type ColorSpace struct {
	Family string
	N      int // components per sample

	// Base is the base space of Indexed and Pattern spaces, and the
	// alternate space of ICCBased, Separation and DeviceN spaces.
	Base *ColorSpace

	HiVal  int    // Indexed
	Lookup []byte // Indexed

	Profile []byte // ICCBased

	WhitePoint [3]float64 // Lab
	Range      []float64  // Lab a* and b* ranges
}

// NewDeviceColorSpace returns one of the three device colour spaces.
func NewDeviceColorSpace(family string) *ColorSpace {
	switch family {
	case DeviceRGB:
		return &ColorSpace{Family: DeviceRGB, N: 3}
	case DeviceCMYK:
		return &ColorSpace{Family: DeviceCMYK, N: 4}
	}
	return &ColorSpace{Family: DeviceGray, N: 1}
}

// Name returns the family name of cs, which is what the extraction policy
// compares against.
func (cs *ColorSpace) Name() string {
	if cs == nil {
		return ""
	}
	return cs.Family
}

// IsPattern reports whether cs is a Pattern colour space.
func (cs *ColorSpace) IsPattern() bool {
	return cs != nil && cs.Family == PatternCS
}

// IsPlainGrayOrRGB reports whether cs is DeviceGray or DeviceRGB.
func (cs *ColorSpace) IsPlainGrayOrRGB() bool {
	return cs != nil && (cs.Family == DeviceGray || cs.Family == DeviceRGB)
}

// Components returns the number of components per sample.
func (cs *ColorSpace) Components() int {
	if cs == nil {
		return 1
	}
	switch cs.Family {
	case DeviceGray, CalGray, Indexed, Separation:
		return 1
	case DeviceRGB, CalRGB, Lab:
		return 3
	case DeviceCMYK:
		return 4
	}
	if cs.N > 0 {
		return cs.N
	}
	return 1
}

// isGray reports whether samples in cs map to a single gray channel.
func (cs *ColorSpace) isGray() bool {
	switch cs.Family {
	case DeviceGray, CalGray:
		return true
	case ICCBased:
		return cs.N == 1
	}
	return false
}

// rawChannels reports whether samples of cs can be written unconverted.
func (cs *ColorSpace) rawChannels() bool {
	switch cs.Family {
	case DeviceGray, DeviceRGB, DeviceCMYK, CalGray, CalRGB, Lab, ICCBased:
		return true
	}
	return false
}

// defaultDecode returns the default Decode array for samples of bpc bits.
func (cs *ColorSpace) defaultDecode(bpc int) []float64 {
	switch cs.Family {
	case Indexed:
		return []float64{0, float64(int(1)<<uint(bpc) - 1)}
	case Lab:
		r := cs.labRange()
		return []float64{0, 100, r[0], r[1], r[2], r[3]}
	}
	n := cs.Components()
	d := make([]float64, 2*n)
	for i := 0; i < n; i++ {
		d[2*i+1] = 1
	}
	return d
}

func (cs *ColorSpace) labRange() []float64 {
	if len(cs.Range) == 4 {
		return cs.Range
	}
	return []float64{-100, 100, -100, 100}
}

// RGB converts colour components of cs, already mapped through the Decode
// array, to RGB values in [0, 1].
func (cs *ColorSpace) RGB(c []float64) (r, g, b float64) {
	if cs == nil || len(c) == 0 {
		return 0, 0, 0
	}
	switch cs.Family {
	case DeviceGray, CalGray:
		v := clamp01(c[0])
		return v, v, v
	case DeviceRGB, CalRGB:
		if len(c) < 3 {
			break
		}
		return clamp01(c[0]), clamp01(c[1]), clamp01(c[2])
	case DeviceCMYK:
		if len(c) < 4 {
			break
		}
		return cmykToRGB(c[0], c[1], c[2], c[3])
	case Lab:
		if len(c) < 3 {
			break
		}
		return labToRGB(c[0], c[1], c[2], cs.WhitePoint)
	case ICCBased:
		if cs.Base != nil {
			return cs.Base.RGB(c)
		}
		return NewDeviceColorSpace(deviceFamilyFor(cs.N)).RGB(c)
	case Indexed:
		return cs.indexedRGB(c[0])
	case Separation:
		v := 1 - clamp01(c[0])
		return v, v, v
	case DeviceN:
		if len(c) == 4 {
			return cmykToRGB(c[0], c[1], c[2], c[3])
		}
		m := 0.0
		for _, t := range c {
			m = math.Max(m, t)
		}
		v := 1 - clamp01(m)
		return v, v, v
	}
	return 0, 0, 0
}

func (cs *ColorSpace) indexedRGB(v float64) (r, g, b float64) {
	base := cs.Base
	if base == nil {
		base = NewDeviceColorSpace(DeviceRGB)
	}
	idx := int(v + 0.5)
	if idx < 0 {
		idx = 0
	}
	if idx > cs.HiVal {
		idx = cs.HiVal
	}
	n := base.Components()
	dec := base.defaultDecode(8)
	comps := make([]float64, n)
	for j := 0; j < n; j++ {
		k := idx*n + j
		if k >= len(cs.Lookup) {
			break
		}
		lo, hi := dec[2*j], dec[2*j+1]
		comps[j] = lo + float64(cs.Lookup[k])*(hi-lo)/255
	}
	return base.RGB(comps)
}

func deviceFamilyFor(n int) string {
	switch n {
	case 3:
		return DeviceRGB
	case 4:
		return DeviceCMYK
	}
	return DeviceGray
}

func cmykToRGB(c, m, y, k float64) (float64, float64, float64) {
	c, m, y, k = clamp01(c), clamp01(m), clamp01(y), clamp01(k)
	return (1 - c) * (1 - k), (1 - m) * (1 - k), (1 - y) * (1 - k)
}

// labToRGB converts CIE L*a*b* relative to white point wp to sRGB.
func labToRGB(l, a, b float64, wp [3]float64) (float64, float64, float64) {
	if wp[1] == 0 {
		wp = [3]float64{0.9505, 1, 1.089}
	}
	fy := (l + 16) / 116
	fx := fy + a/500
	fz := fy - b/200
	finv := func(t float64) float64 {
		if t > 6.0/29 {
			return t * t * t
		}
		return 3 * (6.0 / 29) * (6.0 / 29) * (t - 4.0/29)
	}
	x := wp[0] * finv(fx)
	y := wp[1] * finv(fy)
	z := wp[2] * finv(fz)

	rl := 3.2406*x - 1.5372*y - 0.4986*z
	gl := -0.9689*x + 1.8758*y + 0.0415*z
	bl := 0.0557*x - 0.2040*y + 1.0570*z
	return srgbGamma(rl), srgbGamma(gl), srgbGamma(bl)
}

func srgbGamma(v float64) float64 {
	v = clamp01(v)
	if v <= 0.0031308 {
		return 12.92 * v
	}
	return 1.055*math.Pow(v, 1/2.4) - 0.055
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
