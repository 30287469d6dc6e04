package imageio

import (
	"bytes"
	"encoding/binary"
	"strings"
	"unicode/utf16"

	"seehuhn.de/go/icc"

	"github.com/pyhub-apps/pdfimages-golang/pkg/pdf"
)

// embeddableProfile returns the ICC profile worth embedding in an RGB
// output file: an RGB profile that is not sRGB. Indexed spaces are judged
// by their base.
func embeddableProfile(cs *pdf.ColorSpace) []byte {
	if cs != nil && cs.Family == pdf.Indexed {
		cs = cs.Base
	}
	if cs == nil || cs.Family != pdf.ICCBased || len(cs.Profile) == 0 {
		return nil
	}
	p, err := icc.Decode(cs.Profile)
	if err != nil || p.ColorSpace != icc.RGBSpace {
		return nil
	}
	if isSRGB(cs.Profile) {
		return nil
	}
	return cs.Profile
}

func isSRGB(profile []byte) bool {
	if bytes.Equal(profile, icc.SRGBv2Profile) || bytes.Equal(profile, icc.SRGBv4Profile) {
		return true
	}
	return strings.Contains(profileDescription(profile), "sRGB")
}

// profileDescription reads the 'desc' tag in either its v2 textDescription
// or v4 multiLocalizedUnicode form.
func profileDescription(p []byte) string {
	if len(p) < 132 {
		return ""
	}
	n := int(binary.BigEndian.Uint32(p[128:]))
	for i := 0; i < n; i++ {
		e := 132 + 12*i
		if e+12 > len(p) {
			return ""
		}
		if string(p[e:e+4]) != "desc" {
			continue
		}
		off := int(binary.BigEndian.Uint32(p[e+4:]))
		size := int(binary.BigEndian.Uint32(p[e+8:]))
		if off < 0 || size < 12 || off+size > len(p) {
			return ""
		}
		return decodeDesc(p[off : off+size])
	}
	return ""
}

func decodeDesc(t []byte) string {
	switch string(t[:4]) {
	case "desc":
		l := int(binary.BigEndian.Uint32(t[8:]))
		if 12+l > len(t) {
			return ""
		}
		return strings.TrimRight(string(t[12:12+l]), "\x00")
	case "mluc":
		if len(t) < 28 {
			return ""
		}
		l := int(binary.BigEndian.Uint32(t[20:]))
		off := int(binary.BigEndian.Uint32(t[24:]))
		if off+l > len(t) {
			return ""
		}
		u := make([]uint16, l/2)
		for i := range u {
			u[i] = binary.BigEndian.Uint16(t[off+2*i:])
		}
		return string(utf16.Decode(u))
	}
	return ""
}
