package imageio

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/hhrutter/tiff"
	"github.com/sirupsen/logrus/hooks/test"

	"github.com/pyhub-apps/pdfimages-golang/pkg/pdf"
)

func jpegBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{uint8(16 * x), uint8(16 * y), 0x80, 0xff})
		}
	}
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: 90}); err != nil {
		t.Fatalf("Failed to build JPEG: %v", err)
	}
	return buf.Bytes()
}

func jpegImage(t *testing.T, key int, cs string) pdf.Image {
	return pdf.NewImage(pdf.ImageParams{
		Key:              pdf.ObjectKey{Num: key},
		Width:            8,
		Height:           8,
		BitsPerComponent: 8,
		ColorSpace:       pdf.NewDeviceColorSpace(cs),
		Filters:          []pdf.Filter{{Name: pdf.FilterDCT}},
		Data:             jpegBytes(t, 8, 8),
	})
}

func rawImage(key int, cs *pdf.ColorSpace, w, h int, data []byte) pdf.Image {
	return pdf.NewImage(pdf.ImageParams{
		Key:              pdf.ObjectKey{Num: key},
		Width:            w,
		Height:           h,
		BitsPerComponent: 8,
		ColorSpace:       cs,
		Data:             data,
	})
}

func newTestEncoder(t *testing.T) (*Encoder, string) {
	dir := t.TempDir()
	log, _ := test.NewNullLogger()
	return NewEncoder(WithOutputDir(dir), WithLogger(log)), dir
}

func TestDecide(t *testing.T) {
	gray := pdf.NewDeviceColorSpace(pdf.DeviceGray)
	cmyk := pdf.NewDeviceColorSpace(pdf.DeviceCMYK)
	masked := pdf.ImageParams{
		Width: 2, Height: 1, BitsPerComponent: 8, ColorSpace: gray,
		Filters:  []pdf.Filter{{Name: pdf.FilterDCT}},
		SoftMask: &pdf.ImageParams{Width: 2, Height: 1, BitsPerComponent: 8, ColorSpace: gray},
	}
	withFilter := func(cs *pdf.ColorSpace, bpc int, names ...string) pdf.Image {
		p := pdf.ImageParams{Width: 4, Height: 4, BitsPerComponent: bpc, ColorSpace: cs}
		for _, n := range names {
			p.Filters = append(p.Filters, pdf.Filter{Name: n})
		}
		return pdf.NewImage(p)
	}

	tests := []struct {
		name           string
		img            pdf.Image
		directJPEG     bool
		noColorConvert bool
		want           Decision
	}{
		{"soft mask wins over JPEG", pdf.NewImage(masked), true, false, Decision{"png", Reencode}},
		{"raw gray without conversion", withFilter(gray, 8), false, true, Decision{"png", Raw}},
		{"raw CMYK without conversion", withFilter(cmyk, 8), false, true, Decision{"tiff", Raw}},
		{"gray JPEG", withFilter(gray, 8, pdf.FilterDCT), false, false, Decision{"jpg", Passthrough}},
		{"CMYK JPEG", withFilter(cmyk, 8, pdf.FilterDCT), false, false, Decision{"jpg", Reencode}},
		{"CMYK JPEG direct", withFilter(cmyk, 8, pdf.FilterDCT), true, false, Decision{"jpg", Passthrough}},
		{"JPX RGB", withFilter(pdf.NewDeviceColorSpace(pdf.DeviceRGB), 8, pdf.FilterJPX), false, false, Decision{"jp2", Passthrough}},
		{"JPX CMYK", withFilter(cmyk, 8, pdf.FilterJPX), false, false, Decision{"jp2", Reencode}},
		{"CCITT", withFilter(gray, 1, pdf.FilterCCITTFax), false, false, Decision{"tiff", Bitonal}},
		{"JBIG2", withFilter(gray, 1, pdf.FilterJBIG2), false, false, Decision{"png", Reencode}},
		{"unknown filter", withFilter(gray, 8, "Crypt"), false, false, Decision{"png", Reencode}},
		{"flate", withFilter(gray, 8, pdf.FilterFlate), false, false, Decision{"png", Reencode}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, _, err := Decide(tt.img, tt.directJPEG, tt.noColorConvert)
			if err != nil {
				t.Fatalf("Decide failed: %v", err)
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("decision mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestEncodeJPEGPassthrough(t *testing.T) {
	enc, dir := newTestEncoder(t)
	img := jpegImage(t, 3, pdf.DeviceRGB)

	out, err := enc.Encode(img, "doc", 1, false, false)
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	if out.Path != filepath.Join(dir, "doc-1.jpg") || out.Strategy != Passthrough {
		t.Errorf("output = %+v", out)
	}

	want, _ := img.Stream()
	got, err := os.ReadFile(out.Path)
	if err != nil {
		t.Fatalf("Failed to read output: %v", err)
	}
	if !bytes.Equal(got, want) {
		t.Error("passthrough output differs from the embedded stream")
	}
}

func TestEncodeCMYKJPEGIsConverted(t *testing.T) {
	enc, _ := newTestEncoder(t)
	img := jpegImage(t, 4, pdf.DeviceCMYK)

	out, err := enc.Encode(img, "doc", 2, false, false)
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	if out.Suffix != "jpg" || out.Strategy != Reencode {
		t.Errorf("output = %+v", out)
	}

	data, _ := os.ReadFile(out.Path)
	orig, _ := img.Stream()
	if bytes.Equal(data, orig) {
		t.Error("CMYK JPEG was passed through unchanged")
	}
	cfg, err := jpeg.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("output is not a JPEG: %v", err)
	}
	if cfg.ColorModel != color.YCbCrModel {
		t.Errorf("output colour model = %v, want YCbCr", cfg.ColorModel)
	}
	if string(data[6:11]) != "JFIF\x00" {
		t.Error("re-encoded JPEG has no JFIF header")
	}
}

func TestEncodeSoftMaskedImageKeepsAlpha(t *testing.T) {
	enc, _ := newTestEncoder(t)
	gray := pdf.NewDeviceColorSpace(pdf.DeviceGray)
	img := pdf.NewImage(pdf.ImageParams{
		Key: pdf.ObjectKey{Num: 9}, Width: 2, Height: 1, BitsPerComponent: 8,
		ColorSpace: pdf.NewDeviceColorSpace(pdf.DeviceRGB),
		Data:       []byte{255, 0, 0, 0, 0, 255},
		SoftMask:   &pdf.ImageParams{Width: 2, Height: 1, BitsPerComponent: 8, ColorSpace: gray, Data: []byte{255, 64}},
	})

	out, err := enc.Encode(img, "doc", 3, true, true)
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	if out.Suffix != "png" {
		t.Fatalf("suffix = %s, want png", out.Suffix)
	}

	f, err := os.Open(out.Path)
	if err != nil {
		t.Fatalf("Failed to open output: %v", err)
	}
	defer f.Close()
	dec, err := png.Decode(f)
	if err != nil {
		t.Fatalf("Failed to decode PNG: %v", err)
	}
	got := color.NRGBAModel.Convert(dec.At(1, 0)).(color.NRGBA)
	if got != (color.NRGBA{0, 0, 255, 64}) {
		t.Errorf("pixel = %v, want blue at alpha 64", got)
	}
}

func TestEncodeRawCMYKToTIFF(t *testing.T) {
	enc, _ := newTestEncoder(t)
	img := rawImage(5, pdf.NewDeviceColorSpace(pdf.DeviceCMYK), 2, 1, []byte{10, 20, 30, 40, 50, 60, 70, 80})

	out, err := enc.Encode(img, "doc", 4, false, true)
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	if out.Suffix != "tiff" || out.Strategy != Raw {
		t.Fatalf("output = %+v", out)
	}

	f, err := os.Open(out.Path)
	if err != nil {
		t.Fatalf("Failed to open output: %v", err)
	}
	defer f.Close()
	dec, err := tiff.Decode(f)
	if err != nil {
		t.Fatalf("Failed to decode TIFF: %v", err)
	}
	cmyk, ok := dec.(*image.CMYK)
	if !ok {
		t.Fatalf("decoded %T, want *image.CMYK", dec)
	}
	if diff := cmp.Diff([]byte{10, 20, 30, 40, 50, 60, 70, 80}, cmyk.Pix); diff != "" {
		t.Errorf("samples mismatch (-want +got):\n%s", diff)
	}
}

func TestEncodeJPXWithoutWriter(t *testing.T) {
	enc, dir := newTestEncoder(t)
	img := pdf.NewImage(pdf.ImageParams{
		Key: pdf.ObjectKey{Num: 6}, Width: 1, Height: 1,
		ColorSpace: pdf.NewDeviceColorSpace(pdf.DeviceCMYK),
		Filters:    []pdf.Filter{{Name: pdf.FilterJPX}},
		Data:       []byte{0, 0, 0, 12, 'j', 'P'},
	})

	_, err := enc.Encode(img, "doc", 5, false, false)
	if !pdf.IsUnsupported(err) {
		t.Fatalf("expected UnsupportedFormatError, got %v", err)
	}
	if ue := err.(*pdf.UnsupportedFormatError); ue.Format != "jp2" {
		t.Errorf("format = %q, want jp2", ue.Format)
	}
	entries, _ := os.ReadDir(dir)
	if len(entries) != 0 {
		t.Errorf("%d files written for an unsupported image", len(entries))
	}
}

func TestEncodeJPXPassthrough(t *testing.T) {
	enc, _ := newTestEncoder(t)
	data := []byte{0, 0, 0, 12, 'j', 'P', ' ', ' '}
	img := pdf.NewImage(pdf.ImageParams{
		Key: pdf.ObjectKey{Num: 7}, Width: 1, Height: 1,
		ColorSpace: pdf.NewDeviceColorSpace(pdf.DeviceRGB),
		Filters:    []pdf.Filter{{Name: pdf.FilterJPX}},
		Data:       data,
	})

	out, err := enc.Encode(img, "doc", 6, false, false)
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	got, _ := os.ReadFile(out.Path)
	if filepath.Ext(out.Path) != ".jp2" || !bytes.Equal(got, data) {
		t.Errorf("output %s = %v", out.Path, got)
	}
}

func TestRegisterWriter(t *testing.T) {
	enc, _ := newTestEncoder(t)
	called := false
	enc.RegisterWriter("png", func(w io.Writer, img image.Image, meta *Meta) error {
		called = true
		if meta.DPI != DefaultDPI {
			t.Errorf("DPI = %d, want %d", meta.DPI, DefaultDPI)
		}
		_, err := w.Write([]byte("png"))
		return err
	})

	img := rawImage(8, pdf.NewDeviceColorSpace(pdf.DeviceGray), 1, 1, []byte{0})
	out, err := enc.Encode(img, "doc", 7, false, false)
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	if !called || out.Size != 3 {
		t.Errorf("custom writer not used: %+v", out)
	}
}

func TestEncodeIOError(t *testing.T) {
	log, _ := test.NewNullLogger()
	enc := NewEncoder(WithOutputDir(filepath.Join(t.TempDir(), "missing")), WithLogger(log))
	img := rawImage(1, pdf.NewDeviceColorSpace(pdf.DeviceGray), 1, 1, []byte{0})

	_, err := enc.Encode(img, "doc", 1, false, false)
	if _, ok := err.(*pdf.IOError); !ok {
		t.Fatalf("expected *pdf.IOError, got %T: %v", err, err)
	}
}
