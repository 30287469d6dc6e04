package pdf

import (
	"sort"

	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"
	"github.com/pkg/errors"
)

// pdfcpuResources resolves named resources out of a pdfcpu resource dict.
type pdfcpuResources struct {
	ctx  *model.Context
	dict types.Dict
}

func newResources(ctx *model.Context, d types.Dict) *pdfcpuResources {
	return &pdfcpuResources{ctx: ctx, dict: d}
}

// entry returns /Category/name, still indirect.
func (r *pdfcpuResources) entry(category, name string) (types.Object, error) {
	if r == nil || r.dict == nil {
		return nil, nil
	}
	sub, err := r.ctx.DereferenceDict(r.dict[category])
	if err != nil || sub == nil {
		return nil, errors.Wrapf(err, "resources /%s", category)
	}
	return sub[name], nil
}

func (r *pdfcpuResources) XObject(name string) (XObject, error) {
	o, err := r.entry("XObject", name)
	if err != nil || o == nil {
		return nil, err
	}
	key, _ := objectKey(o)
	sd, _, err := r.ctx.DereferenceStreamDict(deref(o))
	if err != nil {
		return nil, decodeError("XObject "+name, err)
	}
	if sd == nil {
		return nil, nil
	}
	switch subtype(sd.Dict) {
	case "Image":
		p, err := imageParams(r.ctx, sd, key, r)
		if err != nil {
			return nil, err
		}
		return NewImage(*p), nil
	case "Form":
		return newForm(r.ctx, sd, key), nil
	}
	return nil, nil
}

func (r *pdfcpuResources) ExtGState(name string) (*ExtGState, error) {
	o, err := r.entry("ExtGState", name)
	if err != nil || o == nil {
		return nil, err
	}
	d, err := r.ctx.DereferenceDict(o)
	if err != nil || d == nil {
		return nil, errors.Wrapf(err, "ExtGState %s", name)
	}
	gs := &ExtGState{Name: name}
	sm, err := r.ctx.Dereference(d["SMask"])
	if err != nil {
		return nil, errors.Wrapf(err, "ExtGState %s /SMask", name)
	}
	smd, ok := sm.(types.Dict)
	if !ok {
		// absent or /None
		return gs, nil
	}
	g, ok := smd["G"]
	if !ok {
		return gs, nil
	}
	key, _ := objectKey(g)
	sd, _, err := r.ctx.DereferenceStreamDict(deref(g))
	if err != nil {
		return nil, decodeError("soft mask group", err)
	}
	if sd == nil {
		return gs, nil
	}
	s := ""
	if n := smd.NameEntry("S"); n != nil {
		s = *n
	}
	gs.SoftMask = &SoftMask{Subtype: s, Group: newForm(r.ctx, sd, key)}
	return gs, nil
}

// ExtGStateNames returns the names in the ExtGState category, sorted so
// that walks are deterministic.
func (r *pdfcpuResources) ExtGStateNames() []string {
	if r == nil || r.dict == nil {
		return nil
	}
	sub, err := r.ctx.DereferenceDict(r.dict["ExtGState"])
	if err != nil || sub == nil {
		return nil
	}
	names := make([]string, 0, len(sub))
	for k := range sub {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

func (r *pdfcpuResources) Pattern(name string) (Pattern, error) {
	o, err := r.entry("Pattern", name)
	if err != nil || o == nil {
		return nil, err
	}
	key, _ := objectKey(o)
	obj, err := r.ctx.Dereference(deref(o))
	if err != nil {
		return nil, errors.Wrapf(err, "pattern %s", name)
	}
	switch v := obj.(type) {
	case types.StreamDict:
		if t := v.IntEntry("PatternType"); t != nil && *t == PatternTiling {
			return &pdfcpuForm{ctx: r.ctx, key: key, sd: &v, patternType: PatternTiling}, nil
		}
	case types.Dict:
		return shadingPattern{}, nil
	}
	return nil, nil
}

func (r *pdfcpuResources) ColorSpace(name string) (*ColorSpace, error) {
	o, err := r.entry("ColorSpace", name)
	if err != nil || o == nil {
		return nil, err
	}
	return parseColorSpace(r.ctx, o, r, 0)
}

type shadingPattern struct{}

func (shadingPattern) PatternType() int { return PatternShading }

// pdfcpuForm is a form XObject, transparency group or tiling pattern.
type pdfcpuForm struct {
	ctx         *model.Context
	key         ObjectKey
	sd          *types.StreamDict
	patternType int
}

func newForm(ctx *model.Context, sd *types.StreamDict, key ObjectKey) *pdfcpuForm {
	return &pdfcpuForm{ctx: ctx, key: key, sd: sd}
}

func (f *pdfcpuForm) Key() ObjectKey { return f.key }

func (f *pdfcpuForm) PatternType() int { return f.patternType }

func (f *pdfcpuForm) Content() ([]byte, error) {
	if len(f.sd.Content) > 0 {
		return f.sd.Content, nil
	}
	if err := f.sd.Decode(); err != nil {
		return nil, decodeError("form "+f.key.String(), err)
	}
	return f.sd.Content, nil
}

func (f *pdfcpuForm) Resources() Resources {
	d, err := f.ctx.DereferenceDict(f.sd.Dict["Resources"])
	if err != nil || d == nil {
		return nil
	}
	return newResources(f.ctx, d)
}

func subtype(d types.Dict) string {
	if n := d.NameEntry("Subtype"); n != nil {
		return *n
	}
	return ""
}

func deref(o types.Object) types.Object {
	if ref, ok := o.(*types.IndirectRef); ok {
		return *ref
	}
	return o
}

func objectKey(o types.Object) (ObjectKey, bool) {
	switch ref := o.(type) {
	case types.IndirectRef:
		return ObjectKey{Num: int(ref.ObjectNumber), Gen: int(ref.GenerationNumber)}, true
	case *types.IndirectRef:
		return ObjectKey{Num: int(ref.ObjectNumber), Gen: int(ref.GenerationNumber)}, true
	}
	return ObjectKey{}, false
}
