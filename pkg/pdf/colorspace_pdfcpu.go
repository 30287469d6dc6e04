package pdf

import (
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"
	"github.com/pkg/errors"
)

const maxColorSpaceDepth = 8

// parseColorSpace builds a ColorSpace from a name or array object. Names
// other than the device families are looked up in res.
func parseColorSpace(ctx *model.Context, o types.Object, res *pdfcpuResources, depth int) (*ColorSpace, error) {
	if depth > maxColorSpaceDepth {
		return nil, errors.New("colour space nesting too deep")
	}
	o, err := ctx.Dereference(deref(o))
	if err != nil {
		return nil, errors.Wrap(err, "colour space")
	}

	switch v := o.(type) {
	case types.Name:
		switch fam := string(v); fam {
		case DeviceGray, DeviceRGB, DeviceCMYK:
			return NewDeviceColorSpace(fam), nil
		case PatternCS:
			return &ColorSpace{Family: PatternCS}, nil
		default:
			if res == nil {
				return nil, errors.Errorf("unknown colour space /%s", fam)
			}
			named, err := res.entry("ColorSpace", fam)
			if err != nil || named == nil {
				return nil, errors.Errorf("unknown colour space /%s", fam)
			}
			return parseColorSpace(ctx, named, res, depth+1)
		}

	case types.Array:
		if len(v) == 0 {
			return nil, errors.New("empty colour space array")
		}
		fam, ok := v[0].(types.Name)
		if !ok {
			return nil, errors.Errorf("colour space family %v", v[0])
		}
		return parseColorSpaceArray(ctx, string(fam), v, res, depth)
	}

	return nil, errors.Errorf("unexpected colour space object %T", o)
}

func parseColorSpaceArray(ctx *model.Context, fam string, a types.Array, res *pdfcpuResources, depth int) (*ColorSpace, error) {
	switch fam {
	case DeviceGray, DeviceRGB, DeviceCMYK:
		return NewDeviceColorSpace(fam), nil

	case CalGray:
		return &ColorSpace{Family: CalGray, N: 1}, nil

	case CalRGB:
		return &ColorSpace{Family: CalRGB, N: 3}, nil

	case Lab:
		cs := &ColorSpace{Family: Lab, N: 3}
		if len(a) > 1 {
			d, err := ctx.DereferenceDict(a[1])
			if err == nil && d != nil {
				if wp := numbers(ctx, d["WhitePoint"]); len(wp) == 3 {
					copy(cs.WhitePoint[:], wp)
				}
				if r := numbers(ctx, d["Range"]); len(r) == 4 {
					cs.Range = r
				}
			}
		}
		return cs, nil

	case ICCBased:
		if len(a) < 2 {
			return nil, errors.New("ICCBased without stream")
		}
		sd, _, err := ctx.DereferenceStreamDict(deref(a[1]))
		if err != nil || sd == nil {
			return nil, errors.Wrap(err, "ICCBased stream")
		}
		cs := &ColorSpace{Family: ICCBased, N: 3}
		if n := sd.IntEntry("N"); n != nil {
			cs.N = *n
		}
		if err := sd.Decode(); err == nil {
			cs.Profile = sd.Content
		}
		if alt, ok := sd.Dict["Alternate"]; ok {
			if base, err := parseColorSpace(ctx, alt, res, depth+1); err == nil {
				cs.Base = base
			}
		}
		if cs.Base == nil {
			cs.Base = NewDeviceColorSpace(deviceFamilyFor(cs.N))
		}
		return cs, nil

	case Indexed, "I":
		if len(a) < 4 {
			return nil, errors.New("malformed Indexed colour space")
		}
		base, err := parseColorSpace(ctx, a[1], res, depth+1)
		if err != nil {
			return nil, errors.Wrap(err, "Indexed base")
		}
		hival := 255
		if n := number(ctx, a[2]); n >= 0 {
			hival = int(n)
		}
		lookup, err := lookupBytes(ctx, a[3])
		if err != nil {
			return nil, errors.Wrap(err, "Indexed lookup")
		}
		return &ColorSpace{Family: Indexed, N: 1, Base: base, HiVal: hival, Lookup: lookup}, nil

	case Separation:
		cs := &ColorSpace{Family: Separation, N: 1}
		if len(a) > 2 {
			cs.Base, _ = parseColorSpace(ctx, a[2], res, depth+1)
		}
		return cs, nil

	case DeviceN:
		cs := &ColorSpace{Family: DeviceN, N: 1}
		if len(a) > 1 {
			if names, err := ctx.DereferenceArray(a[1]); err == nil {
				cs.N = len(names)
			}
		}
		if len(a) > 2 {
			cs.Base, _ = parseColorSpace(ctx, a[2], res, depth+1)
		}
		return cs, nil

	case PatternCS:
		cs := &ColorSpace{Family: PatternCS}
		if len(a) > 1 {
			cs.Base, _ = parseColorSpace(ctx, a[1], res, depth+1)
		}
		return cs, nil
	}

	return nil, errors.Errorf("unsupported colour space family %s", fam)
}

func lookupBytes(ctx *model.Context, o types.Object) ([]byte, error) {
	o, err := ctx.Dereference(deref(o))
	if err != nil {
		return nil, err
	}
	switch v := o.(type) {
	case types.StringLiteral:
		return types.Unescape(v.Value())
	case types.HexLiteral:
		return v.Bytes()
	case types.StreamDict:
		if err := v.Decode(); err != nil {
			return nil, err
		}
		return v.Content, nil
	}
	return nil, errors.Errorf("unexpected lookup object %T", o)
}

// number returns o as a float, or -1.
func number(ctx *model.Context, o types.Object) float64 {
	o, err := ctx.Dereference(deref(o))
	if err != nil {
		return -1
	}
	switch v := o.(type) {
	case types.Integer:
		return float64(v)
	case types.Float:
		return float64(v)
	}
	return -1
}

func numbers(ctx *model.Context, o types.Object) []float64 {
	a, err := ctx.DereferenceArray(deref(o))
	if err != nil {
		return nil
	}
	out := make([]float64, 0, len(a))
	for _, e := range a {
		e, err := ctx.Dereference(deref(e))
		if err != nil {
			return nil
		}
		switch v := e.(type) {
		case types.Integer:
			out = append(out, float64(v))
		case types.Float:
			out = append(out, float64(v))
		default:
			return nil
		}
	}
	return out
}
