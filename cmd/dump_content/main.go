package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/pyhub-apps/pdfimages-golang/pkg/content"
	"github.com/pyhub-apps/pdfimages-golang/pkg/pdf"
)

// printer lists what a page paints, indented by pattern depth.
type printer struct {
	depth int
}

func (p *printer) line(format string, args ...interface{}) {
	fmt.Printf("%s%s\n", strings.Repeat("  ", p.depth), fmt.Sprintf(format, args...))
}

func colorString(c content.Color) string {
	if c.IsPattern() {
		return "pattern " + c.Pattern
	}
	return fmt.Sprintf("%s %v", c.Space.Name(), c.Components)
}

func (p *printer) ConstructPath(w *content.Walker, op *content.Operator) error { return nil }

func (p *printer) PaintPath(w *content.Walker, op *content.Operator) error {
	gs := w.State()
	switch {
	case op.Fills() && op.Strokes():
		p.line("%s  fill=%s stroke=%s", op.Name, colorString(gs.FillColor), colorString(gs.StrokeColor))
	case op.Fills():
		p.line("%s  fill=%s", op.Name, colorString(gs.FillColor))
	default:
		p.line("%s  stroke=%s", op.Name, colorString(gs.StrokeColor))
	}
	return p.follow(w, op.Fills(), op.Strokes())
}

func (p *printer) DrawImage(w *content.Walker, img pdf.Image) error {
	key := "inline"
	if !img.Key().IsZero() {
		key = img.Key().String()
	}
	p.line("image %s  %dx%d %s %s bpc=%d stencil=%v mask=%v",
		key, img.Width(), img.Height(), img.Compression(), img.ColorSpace().Name(),
		img.BitsPerComponent(), img.IsStencil(), img.HasMask())
	if img.IsStencil() {
		return p.follow(w, true, false)
	}
	return nil
}

func (p *printer) FillShading(w *content.Walker, name string) error {
	p.line("sh %s", name)
	return nil
}

func (p *printer) ShowText(w *content.Walker, op *content.Operator) error {
	gs := w.State()
	p.line("%s  mode=%d", op.Name, gs.RenderMode)
	return p.follow(w, gs.TextFills(), gs.TextStrokes())
}

// follow descends into tiling patterns used by the fill or stroke colour.
func (p *printer) follow(w *content.Walker, fill, stroke bool) error {
	gs := w.State()
	var colors []content.Color
	if fill {
		colors = append(colors, gs.FillColor)
	}
	if stroke {
		colors = append(colors, gs.StrokeColor)
	}
	for _, c := range colors {
		if !c.IsPattern() || c.Tile == nil {
			continue
		}
		tp := c.Tile
		p.line("pattern %s %s {", c.Pattern, tp.Key())
		p.depth++
		err := w.WalkTilingPattern(tp)
		p.depth--
		p.line("}")
		if err != nil {
			return err
		}
	}
	return nil
}

func main() {
	password := flag.String("password", "", "user or owner password")
	pageNum := flag.Int("page", 0, "page to dump (default: all)")
	flag.Parse()
	if flag.NArg() != 1 {
		fmt.Println("Usage: dump_content [-password pw] [-page n] <pdf_file>")
		os.Exit(2)
	}

	doc, err := pdf.OpenWithPassword(flag.Arg(0), *password)
	if err != nil {
		log.Fatalf("Failed to open PDF: %v", err)
	}
	defer doc.Close()

	fmt.Printf("Document has %d pages\n", doc.PageCount())

	logger := logrus.New()
	logger.SetOutput(os.Stderr)
	p := &printer{}
	w := content.NewWalker(p, content.WithLogger(logger))

	for i := 0; i < doc.PageCount(); i++ {
		if *pageNum > 0 && i+1 != *pageNum {
			continue
		}
		page, err := doc.GetPage(i)
		if err != nil {
			log.Printf("Failed to get page %d: %v", i+1, err)
			continue
		}
		fmt.Printf("\n=== Page %d ===\n", page.GetPageNumber())
		if err := w.WalkPage(page); err != nil {
			log.Printf("Page %d: %v", page.GetPageNumber(), err)
		}
	}
}
