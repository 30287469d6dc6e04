package pdf

import (
	"bytes"

	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"
	"github.com/pkg/errors"
)

// PDFCPUPage is one page of a PDFDocument with its resources resolved.
type PDFCPUPage struct {
	ctx        *model.Context
	pageNumber int
	pageDict   types.Dict
	resources  *pdfcpuResources
}

// NewPDFCPUPage loads page pageNumber (1-based) of ctx.
func NewPDFCPUPage(ctx *model.Context, pageNumber int) (*PDFCPUPage, error) {
	if ctx == nil {
		return nil, errors.New("context is nil")
	}

	if pageNumber < 1 || pageNumber > ctx.PageCount {
		return nil, errors.Errorf("page number %d out of range [1, %d]", pageNumber, ctx.PageCount)
	}

	// attrs.Resources is the nearest /Resources up the page tree, unpruned.
	// Consolidation would drop entries the content never names, such as a
	// soft mask ExtGState or images drawn by a form without its own resources.
	pageDict, _, attrs, err := ctx.PageDict(pageNumber, false)
	if err != nil {
		return nil, errors.Wrap(err, "failed to get page dict")
	}

	var resDict types.Dict
	if attrs != nil && attrs.Resources != nil {
		resDict = attrs.Resources
	} else if d, err := ctx.DereferenceDict(pageDict["Resources"]); err == nil {
		resDict = d
	}

	return &PDFCPUPage{
		ctx:        ctx,
		pageNumber: pageNumber,
		pageDict:   pageDict,
		resources:  newResources(ctx, resDict),
	}, nil
}

// GetPageNumber returns the page number (1-based)
func (p *PDFCPUPage) GetPageNumber() int {
	return p.pageNumber
}

// Resources returns the page's resources
func (p *PDFCPUPage) Resources() Resources {
	return p.resources
}

// Content decodes the page's content streams and joins them with a newline
func (p *PDFCPUPage) Content() ([]byte, error) {
	contents, ok := p.pageDict["Contents"]
	if !ok || contents == nil {
		return nil, nil
	}

	var streams [][]byte
	switch v := contents.(type) {
	case types.IndirectRef, *types.IndirectRef:
		data, err := streamContent(p.ctx, v)
		if err != nil {
			return nil, err
		}
		streams = append(streams, data)

	case types.Array:
		for i, item := range v {
			data, err := streamContent(p.ctx, item)
			if err != nil {
				return nil, errors.Wrapf(err, "content stream %d", i)
			}
			streams = append(streams, data)
		}

	default:
		return nil, decodeError("content", errors.Errorf("unexpected Contents type %T", contents))
	}

	return joinContentStreams(streams), nil
}

// streamContent dereferences o and returns the fully decoded stream data.
func streamContent(ctx *model.Context, o types.Object) ([]byte, error) {
	if ref, ok := o.(*types.IndirectRef); ok {
		o = *ref
	}
	sd, _, err := ctx.DereferenceStreamDict(o)
	if err != nil {
		return nil, decodeError("stream", err)
	}
	if sd == nil {
		return nil, nil
	}
	if len(sd.Content) > 0 {
		return sd.Content, nil
	}
	if err := sd.Decode(); err != nil {
		return nil, decodeError("stream", err)
	}
	return sd.Content, nil
}

// joinContentStreams concatenates the streams of a page, each followed by a
// newline so that tokens never run together across stream boundaries.
func joinContentStreams(streams [][]byte) []byte {
	if len(streams) == 0 {
		return nil
	}
	return append(bytes.Join(streams, []byte{'\n'}), '\n')
}
