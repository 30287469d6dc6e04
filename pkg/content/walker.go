package content

import (
	"io"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/pyhub-apps/pdfimages-golang/pkg/pdf"
)

// Handler receives the drawing operators a Walker encounters. The walker is
// passed along so handlers can read the graphics state and resources in
// scope, or start nested walks.
type Handler interface {
	ConstructPath(w *Walker, op *Operator) error
	PaintPath(w *Walker, op *Operator) error
	DrawImage(w *Walker, img pdf.Image) error
	FillShading(w *Walker, name string) error
	ShowText(w *Walker, op *Operator) error
}

// NopHandler ignores every callback. Embed it to implement only some.
type NopHandler struct{}

func (NopHandler) ConstructPath(*Walker, *Operator) error { return nil }
func (NopHandler) PaintPath(*Walker, *Operator) error     { return nil }
func (NopHandler) DrawImage(*Walker, pdf.Image) error     { return nil }
func (NopHandler) FillShading(*Walker, string) error      { return nil }
func (NopHandler) ShowText(*Walker, *Operator) error      { return nil }

// WalkerOption configures a Walker
type WalkerOption func(*Walker)

// WithLogger sets the logger for skipped operators and resources
func WithLogger(log logrus.FieldLogger) WalkerOption {
	return func(w *Walker) {
		w.log = log
	}
}

// Walker replays content streams against a graphics state stack
type Walker struct {
	handler Handler
	log     logrus.FieldLogger

	page   int
	res    pdf.Resources
	stack  *StateStack
	active map[pdf.ObjectKey]bool
}

// NewWalker creates a walker reporting to h
func NewWalker(h Handler, opts ...WalkerOption) *Walker {
	w := &Walker{
		handler: h,
		log:     logrus.StandardLogger(),
		res:     noResources{},
		stack:   NewStateStack(),
		active:  map[pdf.ObjectKey]bool{},
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// State returns the current graphics state
func (w *Walker) State() *GraphicsState {
	return w.stack.Current()
}

// Resources returns the resources in scope
func (w *Walker) Resources() pdf.Resources {
	return w.res
}

// PageNumber returns the page being walked
func (w *Walker) PageNumber() int {
	return w.page
}

// WalkPage replays the page's content, then walks the transparency group of
// every extended graphics state on the page that carries a soft mask.
func (w *Walker) WalkPage(page pdf.Page) error {
	w.page = page.GetPageNumber()
	w.res = page.Resources()
	if w.res == nil {
		w.res = noResources{}
	}
	w.stack = NewStateStack()
	w.active = map[pdf.ObjectKey]bool{}

	data, err := page.Content()
	if err != nil {
		return w.pageError(err)
	}
	if err := w.run(data); err != nil {
		return w.pageError(err)
	}

	for _, name := range w.res.ExtGStateNames() {
		egs, err := w.res.ExtGState(name)
		if err != nil {
			return w.pageError(errors.Wrapf(err, "ExtGState %s", name))
		}
		if egs == nil || egs.SoftMask == nil || egs.SoftMask.Group == nil {
			continue
		}
		w.State().ApplyExtGState(egs)
		if err := w.WalkSoftMask(egs.SoftMask); err != nil {
			return w.pageError(err)
		}
	}
	return nil
}

// WalkForm walks a form XObject starting from a snapshot of the current
// state
func (w *Walker) WalkForm(f pdf.Form) error {
	return w.walkNested(f, w.State().Clone(), "form")
}

// WalkSoftMask walks a soft mask's transparency group
func (w *Walker) WalkSoftMask(sm *pdf.SoftMask) error {
	return w.walkNested(sm.Group, w.State().Clone(), "soft mask")
}

// WalkTilingPattern walks a pattern cell. Patterns start from the default
// graphics state.
func (w *Walker) WalkTilingPattern(p pdf.TilingPattern) error {
	return w.walkNested(p, NewGraphicsState(), "tiling pattern")
}

// walkNested runs f's content on its own stack. A stream that is already
// being walked further up is skipped.
func (w *Walker) walkNested(f pdf.Form, initial *GraphicsState, kind string) error {
	key := f.Key()
	if !key.IsZero() {
		if w.active[key] {
			w.log.WithFields(logrus.Fields{"page": w.page, "stream": key.String()}).
				Debugf("skipping recursive %s", kind)
			return nil
		}
		w.active[key] = true
		defer delete(w.active, key)
	}

	data, err := f.Content()
	if err != nil {
		return err
	}

	res := f.Resources()
	if res == nil {
		res = w.res
	}
	savedRes, savedStack := w.res, w.stack
	w.res, w.stack = res, NewStateStackFrom(initial)
	defer func() {
		w.res, w.stack = savedRes, savedStack
	}()

	if err := w.run(data); err != nil {
		return errors.Wrapf(err, "%s %s", kind, key)
	}
	return nil
}

func (w *Walker) run(data []byte) error {
	p := NewParser(data)
	for {
		op, err := p.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
		if err := w.dispatch(op); err != nil {
			return err
		}
	}
}

// pageError stamps the page number onto stream decode errors
func (w *Walker) pageError(err error) error {
	var sde *pdf.StreamDecodeError
	if errors.As(err, &sde) && sde.Page == 0 {
		sde.Page = w.page
	}
	return err
}

func (w *Walker) dispatch(op *Operator) error {
	if !op.hasOperands() {
		w.log.WithFields(logrus.Fields{"page": w.page, "operator": op.Name, "offset": op.Offset}).
			Warn("missing operands, operator skipped")
		return nil
	}

	gs := w.stack.Current()
	switch op.Kind {
	case OpSave:
		w.stack.Save()

	case OpRestore:
		if !w.stack.Restore() {
			w.log.WithFields(logrus.Fields{"page": w.page, "offset": op.Offset}).Debug("unbalanced Q")
		}

	case OpSetExtGState:
		name, _ := op.nameOperand(0)
		egs, err := w.res.ExtGState(name)
		if err != nil || egs == nil {
			w.log.WithFields(logrus.Fields{"page": w.page, "name": name}).WithError(err).
				Warn("ExtGState not applied")
			return nil
		}
		gs.ApplyExtGState(egs)

	case OpSetFillColorSpace:
		gs.FillColor = NewColor(w.colorSpace(op))
	case OpSetStrokeColorSpace:
		gs.StrokeColor = NewColor(w.colorSpace(op))

	case OpSetFillColor:
		w.setColor(&gs.FillColor, op)
	case OpSetStrokeColor:
		w.setColor(&gs.StrokeColor, op)

	case OpSetFillGray, OpSetFillRGB, OpSetFillCMYK:
		gs.FillColor = deviceColor(op)
	case OpSetStrokeGray, OpSetStrokeRGB, OpSetStrokeCMYK:
		gs.StrokeColor = deviceColor(op)

	case OpSetRenderMode:
		if n := op.numbers(); len(n) > 0 {
			gs.RenderMode = int(n[0])
		}

	case OpPathConstruct, OpClip, OpEndPath:
		return w.handler.ConstructPath(w, op)

	case OpStroke, OpFill, OpFillStroke:
		return w.handler.PaintPath(w, op)

	case OpXObject:
		name, _ := op.nameOperand(0)
		return w.doXObject(name)

	case OpInlineImage:
		img, err := op.Inline.Image(w.res)
		if err != nil {
			return &pdf.StreamDecodeError{Stream: "inline image", Offset: op.Offset, Err: err}
		}
		return w.handler.DrawImage(w, img)

	case OpShading:
		name, _ := op.nameOperand(0)
		return w.handler.FillShading(w, name)

	case OpShowText:
		return w.handler.ShowText(w, op)
	}
	return nil
}

func (w *Walker) doXObject(name string) error {
	x, err := w.res.XObject(name)
	if err != nil {
		return err
	}
	switch x := x.(type) {
	case nil:
		w.log.WithFields(logrus.Fields{"page": w.page, "name": name}).Warn("XObject not found")
	case pdf.Image:
		return w.handler.DrawImage(w, x)
	case pdf.Form:
		return w.WalkForm(x)
	}
	return nil
}

// colorSpace resolves the operand of cs/CS
func (w *Walker) colorSpace(op *Operator) *pdf.ColorSpace {
	name, _ := op.nameOperand(0)
	switch name {
	case pdf.DeviceGray, pdf.DeviceRGB, pdf.DeviceCMYK:
		return pdf.NewDeviceColorSpace(name)
	case pdf.PatternCS:
		return &pdf.ColorSpace{Family: pdf.PatternCS}
	}
	cs, err := w.res.ColorSpace(name)
	if err != nil || cs == nil {
		w.log.WithFields(logrus.Fields{"page": w.page, "name": name}).WithError(err).
			Warn("colour space not found, using DeviceGray")
		return pdf.NewDeviceColorSpace(pdf.DeviceGray)
	}
	return cs
}

// setColor applies sc/scn operands: components, then an optional pattern
// name. A tiling pattern is looked up now, since the colour may be used
// inside a form whose resources do not carry it.
func (w *Walker) setColor(c *Color, op *Operator) {
	c.Components = op.numbers()
	c.Pattern, c.Tile = "", nil
	if n := len(op.Operands); n > 0 {
		if name, ok := op.Operands[n-1].(Name); ok {
			c.Pattern = string(name)
		}
	}
	if c.Pattern == "" || !c.IsPattern() {
		return
	}
	p, err := w.res.Pattern(c.Pattern)
	if err != nil || p == nil {
		w.log.WithFields(logrus.Fields{"page": w.page, "name": c.Pattern}).WithError(err).
			Warn("pattern not found")
		return
	}
	if tp, ok := p.(pdf.TilingPattern); ok && tp.PatternType() == pdf.PatternTiling {
		c.Tile = tp
	}
}

func deviceColor(op *Operator) Color {
	family := pdf.DeviceGray
	switch op.Kind {
	case OpSetFillRGB, OpSetStrokeRGB:
		family = pdf.DeviceRGB
	case OpSetFillCMYK, OpSetStrokeCMYK:
		family = pdf.DeviceCMYK
	}
	return Color{Space: pdf.NewDeviceColorSpace(family), Components: op.numbers()}
}

// noResources stands in for a missing resource dictionary
type noResources struct{}

func (noResources) XObject(string) (pdf.XObject, error)        { return nil, nil }
func (noResources) ExtGState(string) (*pdf.ExtGState, error)   { return nil, nil }
func (noResources) ExtGStateNames() []string                   { return nil }
func (noResources) Pattern(string) (pdf.Pattern, error)        { return nil, nil }
func (noResources) ColorSpace(string) (*pdf.ColorSpace, error) { return nil, nil }
