package imageio

import (
	"bytes"
	"io"
	"math/rand"
	"testing"

	"golang.org/x/image/ccitt"
)

func decodeG4(t *testing.T, data []byte, w, h int) *bitonal {
	t.Helper()
	r := ccitt.NewReader(bytes.NewReader(data), ccitt.MSB, ccitt.Group4, w, h, &ccitt.Options{Invert: true})
	pix, err := io.ReadAll(r)
	if err != nil {
		t.Fatalf("Failed to decode G4 data: %v", err)
	}
	out := newBitonal(w, h)
	if len(pix) != len(out.pix) {
		t.Fatalf("decoded %d bytes, want %d", len(pix), len(out.pix))
	}
	out.pix = pix
	return out
}

func assertSamePixels(t *testing.T, want, got *bitonal) {
	t.Helper()
	for y := 0; y < want.height; y++ {
		for x := 0; x < want.width; x++ {
			if pixel(want.row(y), x) != pixel(got.row(y), x) {
				t.Fatalf("pixel (%d,%d): want black=%v", x, y, pixel(want.row(y), x))
			}
		}
	}
}

func TestG4RoundTrip(t *testing.T) {
	patterns := map[string]func(b *bitonal){
		"blank": func(b *bitonal) {},
		"solid": func(b *bitonal) {
			for y := 0; y < b.height; y++ {
				for x := 0; x < b.width; x++ {
					b.set(x, y)
				}
			}
		},
		"checkerboard": func(b *bitonal) {
			for y := 0; y < b.height; y++ {
				for x := 0; x < b.width; x++ {
					if (x/3+y/2)%2 == 0 {
						b.set(x, y)
					}
				}
			}
		},
		"diagonal": func(b *bitonal) {
			for y := 0; y < b.height; y++ {
				for x := y; x < b.width && x < y+5; x++ {
					b.set(x, y)
				}
			}
		},
		"noise": func(b *bitonal) {
			rng := rand.New(rand.NewSource(1))
			for y := 0; y < b.height; y++ {
				for x := 0; x < b.width; x++ {
					if rng.Intn(3) == 0 {
						b.set(x, y)
					}
				}
			}
		},
		"edges": func(b *bitonal) {
			for y := 0; y < b.height; y++ {
				b.set(0, y)
				b.set(b.width-1, y)
			}
		},
	}

	for name, fill := range patterns {
		t.Run(name, func(t *testing.T) {
			b := newBitonal(37, 23)
			fill(b)
			got := decodeG4(t, encodeG4(b), b.width, b.height)
			assertSamePixels(t, b, got)
		})
	}
}

func TestG4LongRuns(t *testing.T) {
	// Runs past 2623 pixels need the shared makeup codes, several times
	// over for the widest rows.
	for _, width := range []int{64, 1728, 1800, 2623, 2624, 5300} {
		b := newBitonal(width, 3)
		for x := width / 3; x < width; x++ {
			b.set(x, 1)
		}
		b.set(width-1, 2)

		got := decodeG4(t, encodeG4(b), width, 3)
		assertSamePixels(t, b, got)
	}
}

func TestPutRun(t *testing.T) {
	tests := []struct {
		run   int
		black bool
		want  []code
	}{
		{0, false, []code{whiteTerm[0]}},
		{63, true, []code{blackTerm[63]}},
		{64, false, []code{whiteMakeup[0], whiteTerm[0]}},
		{1728, true, []code{blackMakeup[26], blackTerm[0]}},
		{1800, false, []code{extMakeup[0], whiteTerm[8]}},
		{2700, true, []code{extMakeup[12], blackMakeup[1], blackTerm[12]}},
	}

	for _, tt := range tests {
		var want bitWriter
		for _, c := range tt.want {
			want.put(c)
		}
		var got bitWriter
		got.putRun(tt.run, tt.black)
		if !bytes.Equal(got.flush(), want.flush()) {
			t.Errorf("putRun(%d, %v) wrote a different code sequence", tt.run, tt.black)
		}
	}
}
