package content

import (
	"github.com/pkg/errors"

	"github.com/pyhub-apps/pdfimages-golang/pkg/pdf"
)

// InlineImage is the dictionary and data of a BI ... ID ... EI sequence.
type InlineImage struct {
	Dict map[string]interface{}
	Data []byte
}

var inlineKeys = map[string]string{
	"W": "Width", "H": "Height", "BPC": "BitsPerComponent", "CS": "ColorSpace",
	"IM": "ImageMask", "D": "Decode", "DP": "DecodeParms", "F": "Filter", "I": "Interpolate",
}

var inlineFilters = map[string]string{
	"AHx": pdf.FilterASCIIHex, "A85": pdf.FilterASCII85, "LZW": pdf.FilterLZW,
	"Fl": pdf.FilterFlate, "RL": pdf.FilterRunLength, "CCF": pdf.FilterCCITTFax,
	"DCT": pdf.FilterDCT,
}

var inlineColorSpaces = map[string]string{
	"G": pdf.DeviceGray, "RGB": pdf.DeviceRGB, "CMYK": pdf.DeviceCMYK, "I": pdf.Indexed,
}

// get returns the entry for a full key or its abbreviation.
func (ii *InlineImage) get(key string) (interface{}, bool) {
	if v, ok := ii.Dict[key]; ok {
		return v, true
	}
	for abbr, full := range inlineKeys {
		if full == key {
			v, ok := ii.Dict[abbr]
			return v, ok
		}
	}
	return nil, false
}

func (ii *InlineImage) intValue(key string, def int) int {
	if v, ok := ii.get(key); ok {
		if f, ok := v.(float64); ok {
			return int(f)
		}
	}
	return def
}

func (ii *InlineImage) isMask() bool {
	v, _ := ii.get("ImageMask")
	b, _ := v.(bool)
	return b
}

// filters returns the expanded filter pipeline.
func (ii *InlineImage) filters() []pdf.Filter {
	v, _ := ii.get("Filter")
	var names []interface{}
	switch f := v.(type) {
	case Name:
		names = []interface{}{f}
	case []interface{}:
		names = f
	}
	dp, _ := ii.get("DecodeParms")
	var parms []interface{}
	switch p := dp.(type) {
	case map[string]interface{}:
		parms = []interface{}{p}
	case []interface{}:
		parms = p
	}

	out := make([]pdf.Filter, 0, len(names))
	for i, n := range names {
		name, ok := n.(Name)
		if !ok {
			continue
		}
		f := pdf.Filter{Name: string(name)}
		if full, ok := inlineFilters[f.Name]; ok {
			f.Name = full
		}
		if i < len(parms) {
			if d, ok := parms[i].(map[string]interface{}); ok {
				f.Parms = map[string]int{}
				for k, v := range d {
					switch v := v.(type) {
					case float64:
						f.Parms[k] = int(v)
					case bool:
						if v {
							f.Parms[k] = 1
						} else {
							f.Parms[k] = 0
						}
					}
				}
			}
		}
		out = append(out, f)
	}
	return out
}

// dataLength returns the exact data length of an unfiltered image in a
// device colour space, or -1 when it has to be found by scanning for EI.
func (ii *InlineImage) dataLength() int {
	if len(ii.filters()) > 0 {
		return -1
	}
	n := 0
	if ii.isMask() {
		n = 1
	} else {
		v, _ := ii.get("ColorSpace")
		name, ok := v.(Name)
		if !ok {
			return -1
		}
		full := string(name)
		if f, ok := inlineColorSpaces[full]; ok {
			full = f
		}
		switch full {
		case pdf.DeviceGray:
			n = 1
		case pdf.DeviceRGB:
			n = 3
		case pdf.DeviceCMYK:
			n = 4
		default:
			return -1
		}
	}
	w, h := ii.intValue("Width", 0), ii.intValue("Height", 0)
	bpc := ii.intValue("BitsPerComponent", 8)
	if ii.isMask() {
		bpc = 1
	}
	if w <= 0 || h <= 0 {
		return -1
	}
	return h * ((w*n*bpc + 7) / 8)
}

// Image builds a pdf.Image; named colour spaces resolve through res.
func (ii *InlineImage) Image(res pdf.Resources) (pdf.Image, error) {
	p := pdf.ImageParams{
		Width:            ii.intValue("Width", 0),
		Height:           ii.intValue("Height", 0),
		BitsPerComponent: ii.intValue("BitsPerComponent", 0),
		ImageMask:        ii.isMask(),
		Filters:          ii.filters(),
		Data:             ii.Data,
	}
	if v, ok := ii.get("Decode"); ok {
		if a, ok := v.([]interface{}); ok {
			for _, e := range a {
				if f, ok := e.(float64); ok {
					p.Decode = append(p.Decode, f)
				}
			}
		}
	}
	if !p.ImageMask {
		v, _ := ii.get("ColorSpace")
		cs, err := inlineColorSpace(v, res)
		if err != nil {
			return nil, err
		}
		p.ColorSpace = cs
	}
	return pdf.NewImage(p), nil
}

func inlineColorSpace(v interface{}, res pdf.Resources) (*pdf.ColorSpace, error) {
	switch cs := v.(type) {
	case nil:
		return pdf.NewDeviceColorSpace(pdf.DeviceGray), nil
	case Name:
		name := string(cs)
		if full, ok := inlineColorSpaces[name]; ok {
			name = full
		}
		switch name {
		case pdf.DeviceGray, pdf.DeviceRGB, pdf.DeviceCMYK:
			return pdf.NewDeviceColorSpace(name), nil
		}
		named, err := res.ColorSpace(string(cs))
		if err != nil {
			return nil, err
		}
		if named == nil {
			return nil, errors.Errorf("inline image colour space /%s not found", cs)
		}
		return named, nil
	case []interface{}:
		if len(cs) == 4 {
			if fam, ok := cs[0].(Name); ok && (fam == "I" || fam == pdf.Indexed) {
				base, err := inlineColorSpace(cs[1], res)
				if err != nil {
					return nil, err
				}
				hival, _ := cs[2].(float64)
				lookup, _ := cs[3].([]byte)
				return &pdf.ColorSpace{Family: pdf.Indexed, N: 1, Base: base, HiVal: int(hival), Lookup: lookup}, nil
			}
		}
	}
	return nil, errors.Errorf("unsupported inline image colour space %v", v)
}
