package extractors

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"

	"github.com/pyhub-apps/pdfimages-golang/pkg/imageio"
	"github.com/pyhub-apps/pdfimages-golang/pkg/pdf"
)

type fakeResources struct {
	xobjects map[string]pdf.XObject
	patterns map[string]pdf.Pattern
}

func (r *fakeResources) XObject(name string) (pdf.XObject, error) {
	if x, ok := r.xobjects[name]; ok {
		return x, nil
	}
	return nil, nil
}
func (r *fakeResources) ExtGState(string) (*pdf.ExtGState, error) { return nil, nil }
func (r *fakeResources) ExtGStateNames() []string                 { return nil }
func (r *fakeResources) Pattern(name string) (pdf.Pattern, error) {
	if p, ok := r.patterns[name]; ok {
		return p, nil
	}
	return nil, nil
}
func (r *fakeResources) ColorSpace(string) (*pdf.ColorSpace, error) { return nil, nil }

type fakePattern struct {
	key     pdf.ObjectKey
	content string
	res     pdf.Resources
}

func (p *fakePattern) Key() pdf.ObjectKey       { return p.key }
func (p *fakePattern) Content() ([]byte, error) { return []byte(p.content), nil }
func (p *fakePattern) Resources() pdf.Resources { return p.res }
func (p *fakePattern) PatternType() int         { return pdf.PatternTiling }

type shading struct{}

func (shading) PatternType() int { return pdf.PatternShading }

type fakePage struct {
	num     int
	content string
	res     pdf.Resources
}

func (p *fakePage) GetPageNumber() int       { return p.num }
func (p *fakePage) Content() ([]byte, error) { return []byte(p.content), nil }
func (p *fakePage) Resources() pdf.Resources { return p.res }

type fakeDoc struct {
	pages  []pdf.Page
	denied bool
}

func (d *fakeDoc) PageCount() int                  { return len(d.pages) }
func (d *fakeDoc) GetPage(i int) (pdf.Page, error) { return d.pages[i], nil }
func (d *fakeDoc) CanExtractContent() bool         { return !d.denied }
func (d *fakeDoc) Close() error                    { return nil }

type encodeCall struct {
	Key     int
	Counter int
}

// recordingEncoder notes what it was asked to write and fails for the keys
// listed in unsupported.
type recordingEncoder struct {
	calls       []encodeCall
	unsupported map[int]bool
}

func (r *recordingEncoder) Encode(img pdf.Image, prefix string, counter int, directJPEG, noColorConvert bool) (*imageio.OutputFile, error) {
	r.calls = append(r.calls, encodeCall{img.Key().Num, counter})
	if r.unsupported[img.Key().Num] {
		return nil, &pdf.UnsupportedFormatError{Format: "jp2", Reason: "no writer for format jp2"}
	}
	return &imageio.OutputFile{Path: prefix, Suffix: "png"}, nil
}

func grayImage(num int) pdf.Image {
	return pdf.NewImage(pdf.ImageParams{
		Key:              pdf.ObjectKey{Num: num},
		Width:            1,
		Height:           1,
		BitsPerComponent: 8,
		ColorSpace:       pdf.NewDeviceColorSpace(pdf.DeviceGray),
		Data:             []byte{0x80},
	})
}

func stencilImage(num int) pdf.Image {
	return pdf.NewImage(pdf.ImageParams{
		Key:       pdf.ObjectKey{Num: num},
		Width:     1,
		Height:    1,
		ImageMask: true,
		Data:      []byte{0x00},
	})
}

func quietLogger() logrus.FieldLogger {
	log, _ := test.NewNullLogger()
	return log
}

func newTestEngine(enc ImageEncoder, opts ...EngineOption) *Engine {
	opts = append([]EngineOption{WithEncoder(enc), WithLogger(quietLogger()), WithSource("doc.pdf")}, opts...)
	return NewEngine("doc", opts...)
}

func imagePage(num int, content string, images map[string]pdf.XObject) *fakePage {
	return &fakePage{num: num, content: content, res: &fakeResources{xobjects: images}}
}

func TestEngineDeduplicatesByKey(t *testing.T) {
	enc := &recordingEncoder{}
	e := newTestEngine(enc)
	page := imagePage(1, "/Im1 Do q /Im1 Do Q /Im2 Do /Im1 Do", map[string]pdf.XObject{
		"Im1": grayImage(5),
		"Im2": grayImage(6),
	})

	if err := e.ProcessPage(page); err != nil {
		t.Fatalf("ProcessPage failed: %v", err)
	}
	want := []encodeCall{{5, 1}, {6, 2}}
	if diff := cmp.Diff(want, enc.calls); diff != "" {
		t.Errorf("encode calls mismatch (-want +got):\n%s", diff)
	}
}

func TestEngineInlineImagesAreNotDeduplicated(t *testing.T) {
	enc := &recordingEncoder{}
	e := newTestEngine(enc)
	inline := "BI /W 1 /H 1 /CS /G /BPC 8 ID \x80 EI\n"
	page := imagePage(1, inline+inline, nil)

	if err := e.ProcessPage(page); err != nil {
		t.Fatalf("ProcessPage failed: %v", err)
	}
	want := []encodeCall{{0, 1}, {0, 2}}
	if diff := cmp.Diff(want, enc.calls); diff != "" {
		t.Errorf("encode calls mismatch (-want +got):\n%s", diff)
	}
}

func TestEngineCountersAcrossEmptyPages(t *testing.T) {
	enc := &recordingEncoder{}
	e := newTestEngine(enc)
	images := map[string]pdf.XObject{"Im1": grayImage(1), "Im2": grayImage(2)}
	doc := &fakeDoc{pages: []pdf.Page{
		imagePage(1, "/Im1 Do", images),
		imagePage(2, "0 0 1 1 re f", images),
		imagePage(3, "/Im1 Do", images), // already written
		imagePage(4, "/Im2 Do", images),
	}}

	report, err := e.ExtractDocument(context.Background(), doc)
	if err != nil {
		t.Fatalf("ExtractDocument failed: %v", err)
	}
	want := []encodeCall{{1, 1}, {2, 4}}
	if diff := cmp.Diff(want, enc.calls); diff != "" {
		t.Errorf("encode calls mismatch (-want +got):\n%s", diff)
	}
	if report.Pages != 4 || e.Counter() != 4 {
		t.Errorf("pages = %d, counter = %d", report.Pages, e.Counter())
	}
}

func TestEngineTilingPatterns(t *testing.T) {
	cell := &fakePattern{
		key:     pdf.ObjectKey{Num: 20},
		content: "/Tile Do",
		res:     &fakeResources{xobjects: map[string]pdf.XObject{"Tile": grayImage(21)}},
	}
	patterns := map[string]pdf.Pattern{"P0": cell, "Sh": shading{}}

	// forms whose own resources bind P0 to a different cell
	other := &fakePattern{
		key:     pdf.ObjectKey{Num: 22},
		content: "/Tile Do",
		res:     &fakeResources{xobjects: map[string]pdf.XObject{"Tile": grayImage(23)}},
	}
	formRes := &fakeResources{patterns: map[string]pdf.Pattern{"P0": other}}
	paintForm := &fakePattern{key: pdf.ObjectKey{Num: 40}, content: "0 0 5 5 re f", res: formRes}
	setForm := &fakePattern{key: pdf.ObjectKey{Num: 41}, content: "/Pattern cs /P0 scn 0 0 5 5 re f", res: formRes}

	tests := []struct {
		name    string
		content string
		want    []encodeCall
	}{
		{"fill", "/Pattern cs /P0 scn 0 0 5 5 re f", []encodeCall{{21, 1}}},
		{"stroke", "/Pattern CS /P0 SCN 0 0 m 5 5 l S", []encodeCall{{21, 1}}},
		{"fill colour on stroke", "/Pattern cs /P0 scn 0 0 m 5 5 l S", nil},
		{"shading pattern", "/Pattern cs /Sh scn 0 0 5 5 re f", nil},
		{"text fill", "/Pattern cs /P0 scn BT (a) Tj ET", []encodeCall{{21, 1}}},
		{"text stroke", "/Pattern CS /P0 SCN BT 1 Tr (a) Tj ET", []encodeCall{{21, 1}}},
		{"invisible text", "/Pattern cs /P0 scn BT 3 Tr (a) Tj ET", nil},
		{"stencil", "/Pattern cs /P0 scn /Mask Do", []encodeCall{{21, 1}, {30, 2}}},
		{"painted twice", "/Pattern cs /P0 scn 0 0 5 5 re f 0 0 5 5 re B", []encodeCall{{21, 1}}},
		{"painted in form", "/Pattern cs /P0 scn /Fm0 Do", []encodeCall{{21, 1}}},
		{"set in form", "/Pattern cs /P0 scn /Fm1 Do", []encodeCall{{23, 1}}},
		{"unknown pattern", "/Pattern cs /P9 scn 0 0 5 5 re f", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			enc := &recordingEncoder{}
			e := newTestEngine(enc)
			page := &fakePage{num: 1, content: tt.content, res: &fakeResources{
				xobjects: map[string]pdf.XObject{"Mask": stencilImage(30), "Fm0": paintForm, "Fm1": setForm},
				patterns: patterns,
			}}
			if err := e.ProcessPage(page); err != nil {
				t.Fatalf("ProcessPage failed: %v", err)
			}
			if diff := cmp.Diff(tt.want, enc.calls); diff != "" {
				t.Errorf("encode calls mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestEngineUnsupportedImageContinues(t *testing.T) {
	enc := &recordingEncoder{unsupported: map[int]bool{7: true}}
	e := newTestEngine(enc)
	page := imagePage(2, "/A Do /B Do", map[string]pdf.XObject{"A": grayImage(7), "B": grayImage(8)})

	if err := e.ProcessPage(page); err != nil {
		t.Fatalf("ProcessPage failed: %v", err)
	}
	r := e.Report()
	if len(r.Files) != 1 || len(r.Failures) != 1 {
		t.Fatalf("files = %d, failures = %d", len(r.Files), len(r.Failures))
	}
	f := r.Failures[0]
	if f.Page != 2 || f.Image.Num != 7 || f.Counter != 1 || !pdf.IsUnsupported(f.Err) {
		t.Errorf("failure = %+v", f)
	}
}

func TestEnginePermissionDenied(t *testing.T) {
	enc := &recordingEncoder{}
	e := newTestEngine(enc)
	doc := &fakeDoc{denied: true, pages: []pdf.Page{imagePage(1, "/Im1 Do", map[string]pdf.XObject{"Im1": grayImage(1)})}}

	_, err := e.ExtractDocument(context.Background(), doc)
	var pe *pdf.PermissionError
	if !errors.As(err, &pe) {
		t.Fatalf("expected PermissionError, got %v", err)
	}
	if pe.File != "doc.pdf" {
		t.Errorf("file = %q", pe.File)
	}
	if len(enc.calls) != 0 {
		t.Errorf("%d images encoded without permission", len(enc.calls))
	}
}

func TestEnginePageErrors(t *testing.T) {
	images := map[string]pdf.XObject{"Im1": grayImage(1), "Im2": grayImage(2)}
	pages := []pdf.Page{
		imagePage(1, "/Im1 Do", images),
		imagePage(2, "(unterminated", images),
		imagePage(3, "/Im2 Do", images),
	}

	t.Run("abort", func(t *testing.T) {
		enc := &recordingEncoder{}
		_, err := newTestEngine(enc).ExtractDocument(context.Background(), &fakeDoc{pages: pages})
		var sde *pdf.StreamDecodeError
		if !errors.As(err, &sde) {
			t.Fatalf("expected StreamDecodeError, got %v", err)
		}
		if sde.Page != 2 {
			t.Errorf("page = %d, want 2", sde.Page)
		}
		if len(enc.calls) != 1 {
			t.Errorf("%d images encoded, want 1", len(enc.calls))
		}
	})

	t.Run("continue", func(t *testing.T) {
		enc := &recordingEncoder{}
		report, err := newTestEngine(enc, WithContinueOnPageError(true)).
			ExtractDocument(context.Background(), &fakeDoc{pages: pages})
		if err != nil {
			t.Fatalf("ExtractDocument failed: %v", err)
		}
		want := []encodeCall{{1, 1}, {2, 3}}
		if diff := cmp.Diff(want, enc.calls); diff != "" {
			t.Errorf("encode calls mismatch (-want +got):\n%s", diff)
		}
		if len(report.SkippedPages) != 1 || report.SkippedPages[0].Page != 2 {
			t.Errorf("skipped pages = %+v", report.SkippedPages)
		}
	})
}

func TestEngineCancelled(t *testing.T) {
	enc := &recordingEncoder{}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := newTestEngine(enc).ExtractDocument(ctx, &fakeDoc{pages: []pdf.Page{imagePage(1, "", nil)}})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestEngineWritesFiles(t *testing.T) {
	dir := t.TempDir()
	enc := imageio.NewEncoder(imageio.WithOutputDir(dir), imageio.WithLogger(quietLogger()))
	e := newTestEngine(enc)
	page := imagePage(1, "/Im1 Do", map[string]pdf.XObject{"Im1": grayImage(1)})

	if err := e.ProcessPage(page); err != nil {
		t.Fatalf("ProcessPage failed: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "doc-1.png")); err != nil {
		t.Errorf("output missing: %v", err)
	}
	if got := e.Report().Summary(); got != "The images from file doc.pdf were extracted using the prefix doc" {
		t.Errorf("summary = %q", got)
	}
}
