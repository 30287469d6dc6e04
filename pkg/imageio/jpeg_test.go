package imageio

import (
	"bytes"
	"image/jpeg"
	"testing"
)

func TestSetJFIFDensity(t *testing.T) {
	// image/jpeg writes no APP0, so the first call inserts one
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, grayRamp(4, 4), nil); err != nil {
		t.Fatalf("Failed to build JPEG: %v", err)
	}

	inserted, err := setJFIFDensity(buf.Bytes(), 300)
	if err != nil {
		t.Fatalf("setJFIFDensity failed: %v", err)
	}
	if len(inserted) != buf.Len()+18 {
		t.Errorf("length = %d, want %d", len(inserted), buf.Len()+18)
	}
	checkDensity(t, inserted, 300)

	patched, err := setJFIFDensity(inserted, 96)
	if err != nil {
		t.Fatalf("setJFIFDensity failed: %v", err)
	}
	if len(patched) != len(inserted) {
		t.Errorf("existing APP0 was not patched in place")
	}
	checkDensity(t, patched, 96)
	checkDensity(t, inserted, 300)

	if _, err := jpeg.Decode(bytes.NewReader(patched)); err != nil {
		t.Errorf("patched JPEG does not decode: %v", err)
	}

	clamped, err := setJFIFDensity(patched, MaxDPI+1)
	if err != nil {
		t.Fatalf("setJFIFDensity failed: %v", err)
	}
	checkDensity(t, clamped, MaxDPI)

	if _, err := setJFIFDensity([]byte{0x89, 'P', 'N', 'G'}, 72); err == nil {
		t.Error("expected an error for data without SOI")
	}
}

func checkDensity(t *testing.T, data []byte, dpi int) {
	t.Helper()
	if string(data[6:11]) != "JFIF\x00" {
		t.Fatalf("no JFIF header: %q", data[6:11])
	}
	if data[13] != 1 {
		t.Errorf("density unit = %d, want dots per inch", data[13])
	}
	x := int(data[14])<<8 | int(data[15])
	y := int(data[16])<<8 | int(data[17])
	if x != dpi || y != dpi {
		t.Errorf("density = %dx%d, want %d", x, y, dpi)
	}
}
