package content

import (
	"github.com/pyhub-apps/pdfimages-golang/pkg/pdf"
)

// Text rendering modes.
const (
	RenderFill           = 0
	RenderStroke         = 1
	RenderFillStroke     = 2
	RenderInvisible      = 3
	RenderFillClip       = 4
	RenderStrokeClip     = 5
	RenderFillStrokeClip = 6
	RenderClip           = 7
)

// Color is a fill or stroke colour together with its colour space
type Color struct {
	Space      *pdf.ColorSpace
	Components []float64
	Pattern    string // pattern resource name when Space is a Pattern space

	// Tile is the tiling pattern Pattern named in the resources in scope
	// when the colour was set. Nil for shading patterns and other colours.
	Tile pdf.TilingPattern
}

// NewColor returns the initial colour of cs
func NewColor(cs *pdf.ColorSpace) Color {
	c := Color{Space: cs}
	if cs.IsPattern() {
		return c
	}
	c.Components = make([]float64, cs.Components())
	if cs.Name() == pdf.DeviceCMYK {
		c.Components[3] = 1
	}
	return c
}

// IsPattern reports whether the colour paints with a pattern
func (c Color) IsPattern() bool {
	return c.Space.IsPattern()
}

func (c Color) clone() Color {
	if c.Components != nil {
		c.Components = append([]float64(nil), c.Components...)
	}
	return c
}

// GraphicsState represents the parts of the PDF graphics state that decide
// which images get painted
type GraphicsState struct {
	FillColor   Color
	StrokeColor Color
	RenderMode  int           // Text rendering mode
	SoftMask    *pdf.SoftMask // Active soft mask, nil for /None
}

// NewGraphicsState creates a new graphics state with defaults
func NewGraphicsState() *GraphicsState {
	gray := pdf.NewDeviceColorSpace(pdf.DeviceGray)
	return &GraphicsState{
		FillColor:   NewColor(gray),
		StrokeColor: NewColor(gray),
		RenderMode:  RenderFill,
	}
}

// Clone creates a copy of the graphics state
func (gs *GraphicsState) Clone() *GraphicsState {
	newState := *gs
	newState.FillColor = gs.FillColor.clone()
	newState.StrokeColor = gs.StrokeColor.clone()
	return &newState
}

// ApplyExtGState copies the entries of an extended graphics state
func (gs *GraphicsState) ApplyExtGState(egs *pdf.ExtGState) {
	if egs == nil {
		return
	}
	gs.SoftMask = egs.SoftMask
}

// TextFills reports whether the text rendering mode fills glyphs
func (gs *GraphicsState) TextFills() bool {
	switch gs.RenderMode {
	case RenderFill, RenderFillStroke, RenderFillClip, RenderFillStrokeClip:
		return true
	}
	return false
}

// TextStrokes reports whether the text rendering mode strokes glyphs
func (gs *GraphicsState) TextStrokes() bool {
	switch gs.RenderMode {
	case RenderStroke, RenderFillStroke, RenderStrokeClip, RenderFillStrokeClip:
		return true
	}
	return false
}

// StateStack manages graphics state stack for save/restore operations
type StateStack struct {
	states []*GraphicsState
}

// NewStateStack creates a new state stack
func NewStateStack() *StateStack {
	return NewStateStackFrom(NewGraphicsState())
}

// NewStateStackFrom creates a stack whose bottom state is initial
func NewStateStackFrom(initial *GraphicsState) *StateStack {
	return &StateStack{
		states: []*GraphicsState{initial},
	}
}

// Current returns the current graphics state
func (s *StateStack) Current() *GraphicsState {
	return s.states[len(s.states)-1]
}

// Save saves the current graphics state
func (s *StateStack) Save() {
	current := s.Current()
	s.states = append(s.states, current.Clone())
}

// Restore restores the previous graphics state. It reports false on an
// unbalanced Q, leaving the bottom state in place.
func (s *StateStack) Restore() bool {
	if len(s.states) > 1 {
		s.states = s.states[:len(s.states)-1]
		return true
	}
	return false
}

// Depth returns the number of saved states
func (s *StateStack) Depth() int {
	return len(s.states) - 1
}
