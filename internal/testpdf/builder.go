// Package testpdf assembles small PDF files for tests.
package testpdf

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
)

// Builder collects numbered objects and writes them with a matching
// cross-reference table.
type Builder struct {
	objects [][]byte
}

// Add appends an object body and returns its object number.
func (b *Builder) Add(body string) int {
	b.objects = append(b.objects, []byte(body))
	return len(b.objects)
}

// AddStream appends a stream object. dict is the dictionary contents
// without the Length entry.
func (b *Builder) AddStream(dict string, data []byte) int {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "<< %s /Length %d >>\nstream\n", dict, len(data))
	buf.Write(data)
	buf.WriteString("\nendstream")
	b.objects = append(b.objects, buf.Bytes())
	return len(b.objects)
}

// Set replaces the body of object num, for objects that refer forward.
func (b *Builder) Set(num int, body string) {
	b.objects[num-1] = []byte(body)
}

// Reserve allocates an object number to be filled in with Set.
func (b *Builder) Reserve() int {
	return b.Add("null")
}

// Bytes writes the file with root as the catalog.
func (b *Builder) Bytes(root int) []byte {
	var buf bytes.Buffer
	buf.WriteString("%PDF-1.7\n%\xe2\xe3\xcf\xd3\n")
	offsets := make([]int, len(b.objects))
	for i, body := range b.objects {
		offsets[i] = buf.Len()
		fmt.Fprintf(&buf, "%d 0 obj\n", i+1)
		buf.Write(body)
		buf.WriteString("\nendobj\n")
	}

	xref := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n0000000000 65535 f \n", len(b.objects)+1)
	for _, off := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root %d 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(b.objects)+1, root, xref)
	return buf.Bytes()
}

// ImagePages builds a catalog with one page per image XObject. Each page
// draws its image twice, at two sizes.
func ImagePages(b *Builder, images ...int) (root int) {
	pages := b.Reserve()
	kids := ""
	for _, img := range images {
		c := b.AddStream("", []byte("q 10 0 0 10 0 0 cm /Im0 Do Q q 5 0 0 5 0 0 cm /Im0 Do Q"))
		p := b.Add(fmt.Sprintf("<< /Type /Page /Parent %d 0 R /MediaBox [0 0 10 10] /Resources << /XObject << /Im0 %d 0 R >> >> /Contents %d 0 R >>", pages, img, c))
		kids += fmt.Sprintf("%d 0 R ", p)
	}
	b.Set(pages, fmt.Sprintf("<< /Type /Pages /Kids [%s] /Count %d >>", kids, len(images)))
	return b.Add(fmt.Sprintf("<< /Type /Catalog /Pages %d 0 R >>", pages))
}

// JPEG encodes a w×h test picture. Gray pictures give a one-component
// JPEG.
func JPEG(w, h int, gray bool) []byte {
	var img image.Image
	if gray {
		g := image.NewGray(image.Rect(0, 0, w, h))
		for i := range g.Pix {
			g.Pix[i] = uint8(i * 7)
		}
		img = g
	} else {
		rgb := image.NewRGBA(image.Rect(0, 0, w, h))
		for y := 0; y < h; y++ {
			for x := 0; x < w; x++ {
				rgb.Set(x, y, color.RGBA{uint8(20 * x), uint8(20 * y), 0x60, 0xff})
			}
		}
		img = rgb
	}
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: 90}); err != nil {
		panic(err)
	}
	return buf.Bytes()
}
