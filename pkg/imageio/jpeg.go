package imageio

import (
	"bytes"
	"encoding/binary"
	"image"
	"image/jpeg"
	"io"

	"github.com/pkg/errors"
)

// writeJPEG re-encodes img at maximum quality and records the resolution in
// a JFIF header.
func writeJPEG(w io.Writer, img image.Image, meta *Meta) error {
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: 100}); err != nil {
		return errors.Wrap(err, "jpeg")
	}
	data, err := setJFIFDensity(buf.Bytes(), meta.DPI)
	if err != nil {
		return err
	}
	_, err = w.Write(data)
	return err
}

// setJFIFDensity sets the density of an existing JFIF APP0 segment, or
// inserts one right after SOI.
func setJFIFDensity(data []byte, dpi int) ([]byte, error) {
	if len(data) < 4 || data[0] != 0xFF || data[1] != 0xD8 {
		return nil, errors.New("jpeg: missing SOI")
	}
	if dpi > MaxDPI {
		dpi = MaxDPI
	}
	d := uint16(dpi)

	if data[2] == 0xFF && data[3] == 0xE0 && len(data) >= 20 && string(data[6:11]) == "JFIF\x00" {
		out := append([]byte(nil), data...)
		out[13] = 1 // dots per inch
		binary.BigEndian.PutUint16(out[14:], d)
		binary.BigEndian.PutUint16(out[16:], d)
		return out, nil
	}

	app0 := []byte{
		0xFF, 0xE0, 0x00, 0x10,
		'J', 'F', 'I', 'F', 0x00,
		0x01, 0x01, // version 1.01
		0x01,       // dots per inch
		0, 0, 0, 0, // density, set below
		0x00, 0x00, // no thumbnail
	}
	binary.BigEndian.PutUint16(app0[12:], d)
	binary.BigEndian.PutUint16(app0[14:], d)

	out := make([]byte, 0, len(data)+len(app0))
	out = append(out, data[:2]...)
	out = append(out, app0...)
	return append(out, data[2:]...), nil
}
