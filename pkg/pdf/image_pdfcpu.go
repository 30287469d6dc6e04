package pdf

import (
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"
	"github.com/pkg/errors"
)

// imageParams reads an image XObject's dictionary. Masks are resolved one
// level deep.
func imageParams(ctx *model.Context, sd *types.StreamDict, key ObjectKey, res *pdfcpuResources) (*ImageParams, error) {
	p := &ImageParams{
		Key:     key,
		Data:    sd.Raw,
		Filters: filterPipeline(sd.FilterPipeline),
	}
	p.Width = intEntry(ctx, sd.Dict, "Width", 0)
	p.Height = intEntry(ctx, sd.Dict, "Height", 0)
	p.BitsPerComponent = intEntry(ctx, sd.Dict, "BitsPerComponent", 0)
	if b, err := ctx.Dereference(sd.Dict["ImageMask"]); err == nil {
		if v, ok := b.(types.Boolean); ok {
			p.ImageMask = bool(v)
		}
	}
	p.Decode = numbers(ctx, sd.Dict["Decode"])

	if cs, ok := sd.Dict["ColorSpace"]; ok && !p.ImageMask {
		parsed, err := parseColorSpace(ctx, cs, res, 0)
		if err != nil {
			return nil, decodeError("image "+key.String(), errors.Wrap(err, "ColorSpace"))
		}
		p.ColorSpace = parsed
	}

	if sm, ok := sd.Dict["SMask"]; ok {
		msd, _, err := ctx.DereferenceStreamDict(deref(sm))
		if err != nil {
			return nil, decodeError("image "+key.String(), errors.Wrap(err, "SMask"))
		}
		if msd != nil {
			mk, _ := objectKey(sm)
			p.SoftMask = maskParams(ctx, msd, mk)
		}
	}

	if m, ok := sd.Dict["Mask"]; ok {
		obj, err := ctx.Dereference(deref(m))
		if err != nil {
			return nil, decodeError("image "+key.String(), errors.Wrap(err, "Mask"))
		}
		switch v := obj.(type) {
		case types.StreamDict:
			mk, _ := objectKey(m)
			p.Mask = maskParams(ctx, &v, mk)
		case types.Array:
			for _, f := range numbers(ctx, v) {
				p.ColorKey = append(p.ColorKey, int(f))
			}
		}
	}

	return p, nil
}

func maskParams(ctx *model.Context, sd *types.StreamDict, key ObjectKey) *ImageParams {
	m := &ImageParams{
		Key:              key,
		Data:             sd.Raw,
		Filters:          filterPipeline(sd.FilterPipeline),
		Width:            intEntry(ctx, sd.Dict, "Width", 0),
		Height:           intEntry(ctx, sd.Dict, "Height", 0),
		BitsPerComponent: intEntry(ctx, sd.Dict, "BitsPerComponent", 8),
		ColorSpace:       NewDeviceColorSpace(DeviceGray),
		Decode:           numbers(ctx, sd.Dict["Decode"]),
	}
	if b, err := ctx.Dereference(sd.Dict["ImageMask"]); err == nil {
		if v, ok := b.(types.Boolean); ok {
			m.ImageMask = bool(v)
		}
	}
	return m
}

func filterPipeline(fp []types.PDFFilter) []Filter {
	if len(fp) == 0 {
		return nil
	}
	out := make([]Filter, 0, len(fp))
	for _, f := range fp {
		out = append(out, Filter{Name: f.Name, Parms: filterParms(f.DecodeParms)})
	}
	return out
}

// filterParms flattens a DecodeParms dict into what pdfcpu's filters take.
func filterParms(d types.Dict) map[string]int {
	if len(d) == 0 {
		return nil
	}
	parms := map[string]int{}
	for k, v := range d {
		switch v := v.(type) {
		case types.Integer:
			parms[k] = int(v)
		case types.Boolean:
			if v {
				parms[k] = 1
			} else {
				parms[k] = 0
			}
		}
	}
	return parms
}

func intEntry(ctx *model.Context, d types.Dict, key string, def int) int {
	if n := number(ctx, d[key]); n >= 0 {
		return int(n)
	}
	return def
}
