package pdf

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
)

func TestColorSpaceRGB(t *testing.T) {
	indexed := &ColorSpace{
		Family: Indexed,
		N:      1,
		Base:   NewDeviceColorSpace(DeviceRGB),
		HiVal:  1,
		Lookup: []byte{255, 0, 0, 0, 0, 255},
	}

	tests := []struct {
		name string
		cs   *ColorSpace
		in   []float64
		want [3]float64
	}{
		{"gray", NewDeviceColorSpace(DeviceGray), []float64{0.5}, [3]float64{0.5, 0.5, 0.5}},
		{"rgb clamps", NewDeviceColorSpace(DeviceRGB), []float64{1.5, -1, 0.25}, [3]float64{1, 0, 0.25}},
		{"cmyk red", NewDeviceColorSpace(DeviceCMYK), []float64{0, 1, 1, 0}, [3]float64{1, 0, 0}},
		{"cmyk black", NewDeviceColorSpace(DeviceCMYK), []float64{0, 0, 0, 1}, [3]float64{0, 0, 0}},
		{"indexed first", indexed, []float64{0}, [3]float64{1, 0, 0}},
		{"indexed last", indexed, []float64{1}, [3]float64{0, 0, 1}},
		{"indexed beyond hival", indexed, []float64{7}, [3]float64{0, 0, 1}},
		{"separation full tint", &ColorSpace{Family: Separation, N: 1}, []float64{1}, [3]float64{0, 0, 0}},
		{"separation no tint", &ColorSpace{Family: Separation, N: 1}, []float64{0}, [3]float64{1, 1, 1}},
		{"devicen four inks", &ColorSpace{Family: DeviceN, N: 4}, []float64{1, 0, 0, 0}, [3]float64{0, 1, 1}},
		{"devicen two inks", &ColorSpace{Family: DeviceN, N: 2}, []float64{0.25, 0.5}, [3]float64{0.5, 0.5, 0.5}},
		{"icc without base", &ColorSpace{Family: ICCBased, N: 4}, []float64{0, 0, 1, 0}, [3]float64{1, 1, 0}},
		{"icc with base", &ColorSpace{Family: ICCBased, N: 1, Base: NewDeviceColorSpace(DeviceGray)}, []float64{0.2}, [3]float64{0.2, 0.2, 0.2}},
		{"lab white", &ColorSpace{Family: Lab, N: 3}, []float64{100, 0, 0}, [3]float64{1, 1, 1}},
		{"lab black", &ColorSpace{Family: Lab, N: 3}, []float64{0, 0, 0}, [3]float64{0, 0, 0}},
		{"nil space", nil, []float64{1}, [3]float64{0, 0, 0}},
		{"short rgb", NewDeviceColorSpace(DeviceRGB), []float64{1}, [3]float64{0, 0, 0}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, g, b := tt.cs.RGB(tt.in)
			got := [3]float64{r, g, b}
			if diff := cmp.Diff(tt.want, got, cmpopts.EquateApprox(0, 0.01)); diff != "" {
				t.Errorf("RGB mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestColorSpaceComponents(t *testing.T) {
	tests := []struct {
		cs   *ColorSpace
		want int
	}{
		{nil, 1},
		{NewDeviceColorSpace(DeviceGray), 1},
		{NewDeviceColorSpace(DeviceRGB), 3},
		{NewDeviceColorSpace(DeviceCMYK), 4},
		{&ColorSpace{Family: CalRGB}, 3},
		{&ColorSpace{Family: Lab}, 3},
		{&ColorSpace{Family: Indexed, N: 1, Base: NewDeviceColorSpace(DeviceCMYK)}, 1},
		{&ColorSpace{Family: ICCBased, N: 4}, 4},
		{&ColorSpace{Family: DeviceN, N: 5}, 5},
		{&ColorSpace{Family: DeviceN}, 1},
	}
	for _, tt := range tests {
		if got := tt.cs.Components(); got != tt.want {
			t.Errorf("%s: Components() = %d, want %d", tt.cs.Name(), got, tt.want)
		}
	}
}

func TestDefaultDecode(t *testing.T) {
	tests := []struct {
		name string
		cs   *ColorSpace
		bpc  int
		want []float64
	}{
		{"gray", NewDeviceColorSpace(DeviceGray), 8, []float64{0, 1}},
		{"rgb", NewDeviceColorSpace(DeviceRGB), 8, []float64{0, 1, 0, 1, 0, 1}},
		{"indexed 4 bit", &ColorSpace{Family: Indexed, N: 1}, 4, []float64{0, 15}},
		{"indexed 8 bit", &ColorSpace{Family: Indexed, N: 1}, 8, []float64{0, 255}},
		{"lab default range", &ColorSpace{Family: Lab, N: 3}, 8, []float64{0, 100, -100, 100, -100, 100}},
		{"lab own range", &ColorSpace{Family: Lab, N: 3, Range: []float64{-128, 127, -50, 50}}, 8, []float64{0, 100, -128, 127, -50, 50}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if diff := cmp.Diff(tt.want, tt.cs.defaultDecode(tt.bpc)); diff != "" {
				t.Errorf("defaultDecode mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestColorSpacePredicates(t *testing.T) {
	gray := NewDeviceColorSpace(DeviceGray)
	rgb := NewDeviceColorSpace(DeviceRGB)
	cmyk := NewDeviceColorSpace(DeviceCMYK)
	pattern := &ColorSpace{Family: PatternCS}

	if !gray.IsPlainGrayOrRGB() || !rgb.IsPlainGrayOrRGB() || cmyk.IsPlainGrayOrRGB() {
		t.Error("IsPlainGrayOrRGB misclassifies device spaces")
	}
	if !pattern.IsPattern() || rgb.IsPattern() {
		t.Error("IsPattern misclassifies")
	}
	var none *ColorSpace
	if none.Name() != "" || none.IsPattern() || none.IsPlainGrayOrRGB() {
		t.Error("nil colour space should be empty")
	}
	if !(&ColorSpace{Family: ICCBased, N: 1}).isGray() || (&ColorSpace{Family: ICCBased, N: 3}).isGray() {
		t.Error("isGray misclassifies ICCBased")
	}
	if (&ColorSpace{Family: Indexed}).rawChannels() || !cmyk.rawChannels() {
		t.Error("rawChannels misclassifies")
	}
}
