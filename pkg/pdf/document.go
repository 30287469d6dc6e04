package pdf

import (
	"io"
	"os"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/pkg/errors"
)

// permExtract is bit 5 of the standard security handler's /P entry.
const permExtract = 1 << 4

// ownerOnly is passed as user password while testing a password as owner
// password, so that only an owner match can succeed.
const ownerOnly = "pdfimages owner password check, never a user password"

// PDFDocument is a Document read completely into a pdfcpu context.
type PDFDocument struct {
	ctx   *model.Context
	path  string
	pages []Page
	owner bool // opened with the owner password
}

// Open reads the PDF at path.
func Open(path string) (Document, error) {
	return OpenWithPassword(path, "")
}

// OpenWithPassword reads an encrypted PDF with a user or owner password.
func OpenWithPassword(path string, password string) (Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open file")
	}
	defer f.Close()

	doc, err := OpenReader(f, password)
	if err != nil {
		return nil, errors.Wrap(err, path)
	}
	doc.path = path
	return doc, nil
}

// OpenReader reads a whole PDF from rs and validates it. A non-empty
// password is tried as owner password first, then as user password.
func OpenReader(rs io.ReadSeeker, password string) (*PDFDocument, error) {
	var (
		ctx   *model.Context
		err   error
		owner bool
	)
	if password != "" {
		ctx, err = readContext(rs, ownerOnly, password)
		owner = err == nil
	}
	if !owner {
		if _, err := rs.Seek(0, io.SeekStart); err != nil {
			return nil, errors.Wrap(err, "failed to rewind input")
		}
		if ctx, err = readContext(rs, password, password); err != nil {
			return nil, err
		}
	}

	pages := make([]Page, 0, ctx.PageCount)
	for n := 1; n <= ctx.PageCount; n++ {
		p, err := NewPDFCPUPage(ctx, n)
		if err != nil {
			return nil, errors.Wrapf(err, "page %d", n)
		}
		pages = append(pages, p)
	}
	return &PDFDocument{ctx: ctx, pages: pages, owner: owner}, nil
}

func readContext(rs io.ReadSeeker, userPW, ownerPW string) (*model.Context, error) {
	conf := model.NewDefaultConfiguration()
	conf.UserPW, conf.OwnerPW = userPW, ownerPW

	ctx, err := api.ReadContext(rs, conf)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read PDF context")
	}
	if err := api.ValidateContext(ctx); err != nil {
		return nil, errors.Wrap(err, "invalid PDF")
	}
	return ctx, nil
}

// Path returns the file the document was opened from, if any.
func (d *PDFDocument) Path() string { return d.path }

func (d *PDFDocument) GetPage(index int) (Page, error) {
	if index < 0 || index >= len(d.pages) {
		return nil, errors.Errorf("page index %d out of range [0, %d)", index, len(d.pages))
	}
	return d.pages[index], nil
}

func (d *PDFDocument) PageCount() int { return len(d.pages) }

// CanExtractContent checks the extraction bit of an encrypted document.
// Unencrypted documents and the owner password allow everything.
func (d *PDFDocument) CanExtractContent() bool {
	if d.owner || d.ctx == nil || d.ctx.E == nil {
		return true
	}
	return d.ctx.E.P&permExtract != 0
}

// Close drops the parsed context. The file itself is closed by Open.
func (d *PDFDocument) Close() error {
	d.ctx, d.pages = nil, nil
	return nil
}
