package imageio

import (
	"bytes"
	"encoding/binary"
	"image"
	"io"
	"sort"

	"github.com/hhrutter/tiff"
	"github.com/pkg/errors"
)

// TIFF tags written or rewritten here.
const (
	tagImageWidth      = 256
	tagImageLength     = 257
	tagBitsPerSample   = 258
	tagCompression     = 259
	tagPhotometric     = 262
	tagStripOffsets    = 273
	tagSamplesPerPixel = 277
	tagRowsPerStrip    = 278
	tagStripByteCounts = 279
	tagXResolution     = 282
	tagYResolution     = 283
	tagResolutionUnit  = 296
	tagSoftware        = 305
)

const (
	typeASCII    = 2
	typeShort    = 3
	typeLong     = 4
	typeRational = 5
)

// TIFF compression values.
const (
	tiffCompressionG4      = 4
	tiffCompressionLZW     = 5
	tiffCompressionDeflate = 8
)

const softwareName = "pdfimages-golang"

var typeSize = map[uint16]int{
	1: 1, typeASCII: 1, typeShort: 2, typeLong: 4, typeRational: 8,
	6: 1, 7: 1, 8: 2, 9: 4, 10: 8, 11: 4, 12: 8,
}

// ifdEntry holds the value bytes of one IFD entry in the file's byte order.
type ifdEntry struct {
	tag   uint16
	typ   uint16
	count uint32
	value []byte
}

type ifdBuilder struct {
	order   binary.ByteOrder
	entries map[uint16]ifdEntry
}

func newIFDBuilder(order binary.ByteOrder) *ifdBuilder {
	return &ifdBuilder{order: order, entries: map[uint16]ifdEntry{}}
}

func (b *ifdBuilder) short(tag uint16, vals ...uint16) {
	v := make([]byte, 2*len(vals))
	for i, x := range vals {
		b.order.PutUint16(v[2*i:], x)
	}
	b.entries[tag] = ifdEntry{tag, typeShort, uint32(len(vals)), v}
}

func (b *ifdBuilder) long(tag uint16, vals ...uint32) {
	v := make([]byte, 4*len(vals))
	for i, x := range vals {
		b.order.PutUint32(v[4*i:], x)
	}
	b.entries[tag] = ifdEntry{tag, typeLong, uint32(len(vals)), v}
}

func (b *ifdBuilder) rational(tag uint16, num, den uint32) {
	v := make([]byte, 8)
	b.order.PutUint32(v, num)
	b.order.PutUint32(v[4:], den)
	b.entries[tag] = ifdEntry{tag, typeRational, 1, v}
}

func (b *ifdBuilder) ascii(tag uint16, s string) {
	v := append([]byte(s), 0)
	b.entries[tag] = ifdEntry{tag, typeASCII, uint32(len(v)), v}
}

// resolution sets the DPI tags and the Software tag.
func (b *ifdBuilder) resolution(dpi int) {
	b.rational(tagXResolution, uint32(dpi), 1)
	b.rational(tagYResolution, uint32(dpi), 1)
	b.short(tagResolutionUnit, 2)
	b.ascii(tagSoftware, softwareName)
}

// write emits a single-strip TIFF file: header, strip, IFD, then the values
// that do not fit into their entries.
func (b *ifdBuilder) write(w io.Writer, strip []byte) error {
	var buf bytes.Buffer
	if b.order == binary.BigEndian {
		buf.WriteString("MM\x00\x2A")
	} else {
		buf.WriteString("II\x2A\x00")
	}

	ifdOffset := 8 + len(strip)
	ifdOffset += ifdOffset & 1
	var u32 [4]byte
	b.order.PutUint32(u32[:], uint32(ifdOffset))
	buf.Write(u32[:])
	buf.Write(strip)
	if len(strip)&1 == 1 {
		buf.WriteByte(0)
	}

	b.long(tagStripOffsets, 8)
	b.long(tagStripByteCounts, uint32(len(strip)))

	tags := make([]int, 0, len(b.entries))
	for t := range b.entries {
		tags = append(tags, int(t))
	}
	sort.Ints(tags)

	extra := ifdOffset + 2 + 12*len(tags) + 4
	var values bytes.Buffer
	var u16 [2]byte
	b.order.PutUint16(u16[:], uint16(len(tags)))
	buf.Write(u16[:])
	for _, t := range tags {
		e := b.entries[uint16(t)]
		var ent [12]byte
		b.order.PutUint16(ent[0:], e.tag)
		b.order.PutUint16(ent[2:], e.typ)
		b.order.PutUint32(ent[4:], e.count)
		if len(e.value) <= 4 {
			copy(ent[8:], e.value)
		} else {
			b.order.PutUint32(ent[8:], uint32(extra+values.Len()))
			values.Write(e.value)
			if values.Len()&1 == 1 {
				values.WriteByte(0)
			}
		}
		buf.Write(ent[:])
	}
	buf.Write([]byte{0, 0, 0, 0})
	buf.Write(values.Bytes())

	_, err := w.Write(buf.Bytes())
	return err
}

// parseTIFF reads the first IFD of a TIFF file in either byte order.
func parseTIFF(data []byte) (*ifdBuilder, error) {
	if len(data) < 8 {
		return nil, errors.New("tiff: short header")
	}
	var order binary.ByteOrder
	switch string(data[:4]) {
	case "II\x2A\x00":
		order = binary.LittleEndian
	case "MM\x00\x2A":
		order = binary.BigEndian
	default:
		return nil, errors.New("tiff: bad header")
	}

	off := int(order.Uint32(data[4:]))
	if off+2 > len(data) {
		return nil, errors.New("tiff: IFD offset out of range")
	}
	n := int(order.Uint16(data[off:]))
	if off+2+12*n > len(data) {
		return nil, errors.New("tiff: truncated IFD")
	}

	b := newIFDBuilder(order)
	for i := 0; i < n; i++ {
		p := data[off+2+12*i:]
		e := ifdEntry{tag: order.Uint16(p), typ: order.Uint16(p[2:]), count: order.Uint32(p[4:])}
		size := typeSize[e.typ] * int(e.count)
		if size <= 4 {
			e.value = append([]byte(nil), p[8:8+size]...)
		} else {
			vo := int(order.Uint32(p[8:]))
			if vo+size > len(data) {
				return nil, errors.Errorf("tiff: value of tag %d out of range", e.tag)
			}
			e.value = append([]byte(nil), data[vo:vo+size]...)
		}
		b.entries[e.tag] = e
	}
	return b, nil
}

// strip returns the image data of a single-strip file.
func (b *ifdBuilder) strip(data []byte) ([]byte, error) {
	so, ok1 := b.entries[tagStripOffsets]
	sc, ok2 := b.entries[tagStripByteCounts]
	if !ok1 || !ok2 || so.count != 1 || sc.count != 1 {
		return nil, errors.New("tiff: expected a single strip")
	}
	start := int(entryUint(b.order, so))
	length := int(entryUint(b.order, sc))
	if start+length > len(data) {
		return nil, errors.New("tiff: strip out of range")
	}
	return data[start : start+length], nil
}

// retagTIFF rewrites a single-strip TIFF so that it carries the given
// resolution and the Software tag.
func retagTIFF(data []byte, dpi int) ([]byte, error) {
	b, err := parseTIFF(data)
	if err != nil {
		return nil, err
	}
	strip, err := b.strip(data)
	if err != nil {
		return nil, err
	}

	b.resolution(dpi)
	var out bytes.Buffer
	if err := b.write(&out, strip); err != nil {
		return nil, err
	}
	return out.Bytes(), nil
}

func entryUint(order binary.ByteOrder, e ifdEntry) uint32 {
	if e.typ == typeShort {
		return uint32(order.Uint16(e.value))
	}
	return order.Uint32(e.value)
}

// writeTIFF encodes gray, RGB or CMYK images with LZW or Deflate.
func writeTIFF(w io.Writer, img image.Image, meta *Meta) error {
	if meta.Bitonal {
		return writeBitonalTIFF(w, img, meta.DPI)
	}

	opt := &tiff.Options{Compression: tiff.LZW}
	if meta.TIFFCompression == CompressionDeflate {
		opt.Compression = tiff.Deflate
	}
	var buf bytes.Buffer
	if err := tiff.Encode(&buf, img, opt); err != nil {
		return errors.Wrap(err, "tiff")
	}
	data, err := retagTIFF(buf.Bytes(), meta.DPI)
	if err != nil {
		return err
	}
	_, err = w.Write(data)
	return err
}

// writeBitonalTIFF thresholds img to black and white and writes it with
// CCITT Group 4 compression.
func writeBitonalTIFF(w io.Writer, img image.Image, dpi int) error {
	bits := toBitonal(img)
	b := newIFDBuilder(binary.LittleEndian)
	b.long(tagImageWidth, uint32(bits.width))
	b.long(tagImageLength, uint32(bits.height))
	b.short(tagBitsPerSample, 1)
	b.short(tagCompression, tiffCompressionG4)
	b.short(tagPhotometric, 0) // WhiteIsZero
	b.short(tagSamplesPerPixel, 1)
	b.long(tagRowsPerStrip, uint32(bits.height))
	b.resolution(dpi)
	return b.write(w, encodeG4(bits))
}
