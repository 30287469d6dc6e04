package imageio

import "bytes"

// code is a variable length bit code, right aligned in bits.
type code struct {
	bits uint16
	n    uint8
}

var (
	codePass  = code{0x1, 4} // 0001
	codeHoriz = code{0x1, 3} // 001
	codeEOL   = code{0x1, 12}

	// indexed by b1 - a1 + 3
	codeVertical = [7]code{
		{0x03, 7}, // VR3 0000011
		{0x03, 6}, // VR2 000011
		{0x03, 3}, // VR1 011
		{0x01, 1}, // V0  1
		{0x02, 3}, // VL1 010
		{0x02, 6}, // VL2 000010
		{0x02, 7}, // VL3 0000010
	}
)

var whiteTerm = [64]code{
	{0x35, 8}, {0x07, 6}, {0x07, 4}, {0x08, 4}, {0x0B, 4}, {0x0C, 4}, {0x0E, 4}, {0x0F, 4},
	{0x13, 5}, {0x14, 5}, {0x07, 5}, {0x08, 5}, {0x08, 6}, {0x03, 6}, {0x34, 6}, {0x35, 6},
	{0x2A, 6}, {0x2B, 6}, {0x27, 7}, {0x0C, 7}, {0x08, 7}, {0x17, 7}, {0x03, 7}, {0x04, 7},
	{0x28, 7}, {0x2B, 7}, {0x13, 7}, {0x24, 7}, {0x18, 7}, {0x02, 8}, {0x03, 8}, {0x1A, 8},
	{0x1B, 8}, {0x12, 8}, {0x13, 8}, {0x14, 8}, {0x15, 8}, {0x16, 8}, {0x17, 8}, {0x28, 8},
	{0x29, 8}, {0x2A, 8}, {0x2B, 8}, {0x2C, 8}, {0x2D, 8}, {0x04, 8}, {0x05, 8}, {0x0A, 8},
	{0x0B, 8}, {0x52, 8}, {0x53, 8}, {0x54, 8}, {0x55, 8}, {0x24, 8}, {0x25, 8}, {0x58, 8},
	{0x59, 8}, {0x5A, 8}, {0x5B, 8}, {0x4A, 8}, {0x4B, 8}, {0x32, 8}, {0x33, 8}, {0x34, 8},
}

// makeup codes for 64, 128, ... 1728
var whiteMakeup = [27]code{
	{0x1B, 5}, {0x12, 5}, {0x17, 6}, {0x37, 7}, {0x36, 8}, {0x37, 8}, {0x64, 8}, {0x65, 8},
	{0x68, 8}, {0x67, 8}, {0xCC, 9}, {0xCD, 9}, {0xD2, 9}, {0xD3, 9}, {0xD4, 9}, {0xD5, 9},
	{0xD6, 9}, {0xD7, 9}, {0xD8, 9}, {0xD9, 9}, {0xDA, 9}, {0xDB, 9}, {0x98, 9}, {0x99, 9},
	{0x9A, 9}, {0x18, 6}, {0x9B, 9},
}

var blackTerm = [64]code{
	{0x37, 10}, {0x02, 3}, {0x03, 2}, {0x02, 2}, {0x03, 3}, {0x03, 4}, {0x02, 4}, {0x03, 5},
	{0x05, 6}, {0x04, 6}, {0x04, 7}, {0x05, 7}, {0x07, 7}, {0x04, 8}, {0x07, 8}, {0x18, 9},
	{0x17, 10}, {0x18, 10}, {0x08, 10}, {0x67, 11}, {0x68, 11}, {0x6C, 11}, {0x37, 11}, {0x28, 11},
	{0x17, 11}, {0x18, 11}, {0xCA, 12}, {0xCB, 12}, {0xCC, 12}, {0xCD, 12}, {0x68, 12}, {0x69, 12},
	{0x6A, 12}, {0x6B, 12}, {0xD2, 12}, {0xD3, 12}, {0xD4, 12}, {0xD5, 12}, {0xD6, 12}, {0xD7, 12},
	{0x6C, 12}, {0x6D, 12}, {0xDA, 12}, {0xDB, 12}, {0x54, 12}, {0x55, 12}, {0x56, 12}, {0x57, 12},
	{0x64, 12}, {0x65, 12}, {0x52, 12}, {0x53, 12}, {0x24, 12}, {0x37, 12}, {0x38, 12}, {0x27, 12},
	{0x28, 12}, {0x58, 12}, {0x59, 12}, {0x2B, 12}, {0x2C, 12}, {0x5A, 12}, {0x66, 12}, {0x67, 12},
}

var blackMakeup = [27]code{
	{0x0F, 10}, {0xC8, 12}, {0xC9, 12}, {0x5B, 12}, {0x33, 12}, {0x34, 12}, {0x35, 12}, {0x6C, 13},
	{0x6D, 13}, {0x4A, 13}, {0x4B, 13}, {0x4C, 13}, {0x4D, 13}, {0x72, 13}, {0x73, 13}, {0x74, 13},
	{0x75, 13}, {0x76, 13}, {0x77, 13}, {0x52, 13}, {0x53, 13}, {0x54, 13}, {0x55, 13}, {0x5A, 13},
	{0x5B, 13}, {0x64, 13}, {0x65, 13},
}

// shared makeup codes for 1792, 1856, ... 2560
var extMakeup = [13]code{
	{0x08, 11}, {0x0C, 11}, {0x0D, 11}, {0x12, 12}, {0x13, 12}, {0x14, 12}, {0x15, 12},
	{0x16, 12}, {0x17, 12}, {0x1C, 12}, {0x1D, 12}, {0x1E, 12}, {0x1F, 12},
}

type bitWriter struct {
	buf   bytes.Buffer
	acc   uint32
	nbits uint
}

func (w *bitWriter) put(c code) {
	w.acc = w.acc<<c.n | uint32(c.bits)
	w.nbits += uint(c.n)
	for w.nbits >= 8 {
		w.nbits -= 8
		w.buf.WriteByte(byte(w.acc >> w.nbits))
	}
	w.acc &= 1<<w.nbits - 1
}

func (w *bitWriter) flush() []byte {
	if w.nbits > 0 {
		w.buf.WriteByte(byte(w.acc << (8 - w.nbits)))
		w.acc, w.nbits = 0, 0
	}
	return w.buf.Bytes()
}

// putRun writes a run length using makeup codes for the part above 63.
func (w *bitWriter) putRun(n int, black bool) {
	term, makeup := &whiteTerm, &whiteMakeup
	if black {
		term, makeup = &blackTerm, &blackMakeup
	}
	for n >= 2624 {
		w.put(extMakeup[len(extMakeup)-1])
		n -= 2560
	}
	if n >= 64 {
		m := n / 64
		if m <= len(makeup) {
			w.put(makeup[m-1])
		} else {
			w.put(extMakeup[m-len(makeup)-1])
		}
		n -= m * 64
	}
	w.put(term[n])
}

// bitonal is a 1-bit image with rows packed most significant bit first. A
// set bit is black.
type bitonal struct {
	width, height int
	stride        int
	pix           []byte
}

func newBitonal(w, h int) *bitonal {
	stride := (w + 7) / 8
	return &bitonal{width: w, height: h, stride: stride, pix: make([]byte, stride*h)}
}

func (b *bitonal) set(x, y int) {
	b.pix[y*b.stride+x/8] |= 0x80 >> uint(x%8)
}

func (b *bitonal) row(y int) []byte {
	return b.pix[y*b.stride : (y+1)*b.stride]
}

func pixel(row []byte, x int) bool {
	return row[x/8]&(0x80>>uint(x%8)) != 0
}

// nextChange returns the first position >= start whose colour differs from
// black, or width.
func nextChange(row []byte, start, width int, black bool) int {
	for x := start; x < width; x++ {
		if pixel(row, x) != black {
			return x
		}
	}
	return width
}

func colourAt(row []byte, x, width int) bool {
	if row == nil || x >= width {
		return false
	}
	return pixel(row, x)
}

// encodeG4 compresses b with CCITT T.6 two-dimensional coding and
// terminates the data with EOFB.
func encodeG4(b *bitonal) []byte {
	w := &bitWriter{}
	width := b.width
	ref := make([]byte, b.stride) // imaginary all-white line above the image

	for y := 0; y < b.height; y++ {
		cur := b.row(y)
		encodeRow(w, cur, ref, width)
		ref = cur
	}
	w.put(codeEOL)
	w.put(codeEOL)
	return w.flush()
}

func encodeRow(w *bitWriter, cur, ref []byte, width int) {
	a0 := 0
	a1 := 0
	if !colourAt(cur, 0, width) {
		a1 = nextChange(cur, 0, width, false)
	}
	b1 := 0
	if !colourAt(ref, 0, width) {
		b1 = nextChange(ref, 0, width, false)
	}

	for {
		b2 := width
		if b1 < width {
			b2 = nextChange(ref, b1, width, colourAt(ref, b1, width))
		}
		if b2 < a1 {
			w.put(codePass)
			a0 = b2
		} else if d := b1 - a1; d >= -3 && d <= 3 {
			w.put(codeVertical[d+3])
			a0 = a1
		} else {
			a2 := width
			if a1 < width {
				a2 = nextChange(cur, a1, width, colourAt(cur, a1, width))
			}
			w.put(codeHoriz)
			if a0+a1 == 0 || !colourAt(cur, a0, width) {
				w.putRun(a1-a0, false)
				w.putRun(a2-a1, true)
			} else {
				w.putRun(a1-a0, true)
				w.putRun(a2-a1, false)
			}
			a0 = a2
		}
		if a0 >= width {
			return
		}
		c := colourAt(cur, a0, width)
		a1 = nextChange(cur, a0, width, c)
		b1 = nextChange(ref, a0, width, !c)
		b1 = nextChange(ref, b1, width, c)
	}
}
