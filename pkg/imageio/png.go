package imageio

import (
	"bytes"
	"compress/zlib"
	"encoding/binary"
	"hash/crc32"
	"image"
	"image/png"
	"io"
	"math"

	"github.com/pkg/errors"
)

const iccProfileName = "ICC Profile"

// writePNG encodes img at best compression and adds a pHYs chunk, plus an
// iCCP chunk when meta carries a profile and the image is in colour.
func writePNG(w io.Writer, img image.Image, meta *Meta) error {
	var buf bytes.Buffer
	enc := png.Encoder{CompressionLevel: png.BestCompression}
	if err := enc.Encode(&buf, img); err != nil {
		return errors.Wrap(err, "png")
	}

	chunks := [][]byte{physChunk(meta.DPI)}
	if len(meta.Profile) > 0 && !isGrayImage(img) {
		iccp, err := iccpChunk(meta.Profile)
		if err != nil {
			return err
		}
		chunks = append(chunks, iccp)
	}

	data, err := insertChunks(buf.Bytes(), chunks...)
	if err != nil {
		return err
	}
	_, err = w.Write(data)
	return err
}

// physChunk states the resolution in pixels per metre.
func physChunk(dpi int) []byte {
	ppm := uint32(math.Round(float64(dpi) / 0.0254))
	data := make([]byte, 9)
	binary.BigEndian.PutUint32(data, ppm)
	binary.BigEndian.PutUint32(data[4:], ppm)
	data[8] = 1 // metre
	return pngChunk("pHYs", data)
}

func iccpChunk(profile []byte) ([]byte, error) {
	var data bytes.Buffer
	data.WriteString(iccProfileName)
	data.WriteByte(0)
	data.WriteByte(0) // deflate
	zw := zlib.NewWriter(&data)
	if _, err := zw.Write(profile); err != nil {
		return nil, errors.Wrap(err, "iCCP")
	}
	if err := zw.Close(); err != nil {
		return nil, errors.Wrap(err, "iCCP")
	}
	return pngChunk("iCCP", data.Bytes()), nil
}

func pngChunk(typ string, data []byte) []byte {
	out := make([]byte, 8, 12+len(data))
	binary.BigEndian.PutUint32(out, uint32(len(data)))
	copy(out[4:], typ)
	out = append(out, data...)
	crc := crc32.ChecksumIEEE(out[4:])
	return binary.BigEndian.AppendUint32(out, crc)
}

// insertChunks places chunks directly after IHDR, where both pHYs and iCCP
// are allowed.
func insertChunks(data []byte, chunks ...[]byte) ([]byte, error) {
	const ihdrEnd = 8 + 4 + 4 + 13 + 4
	if len(data) < ihdrEnd || string(data[12:16]) != "IHDR" {
		return nil, errors.New("png: IHDR not found")
	}
	n := len(data)
	for _, c := range chunks {
		n += len(c)
	}
	out := make([]byte, 0, n)
	out = append(out, data[:ihdrEnd]...)
	for _, c := range chunks {
		out = append(out, c...)
	}
	return append(out, data[ihdrEnd:]...), nil
}

func isGrayImage(img image.Image) bool {
	switch img.(type) {
	case *image.Gray, *image.Gray16:
		return true
	}
	return false
}
