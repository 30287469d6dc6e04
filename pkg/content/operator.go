package content

import (
	"io"

	"github.com/pkg/errors"

	"github.com/pyhub-apps/pdfimages-golang/pkg/pdf"
)

// OpKind classifies content stream operators.
type OpKind int

const (
	OpUnknown OpKind = iota
	OpSave
	OpRestore
	OpSetExtGState
	OpSetStrokeColorSpace
	OpSetFillColorSpace
	OpSetStrokeColor
	OpSetFillColor
	OpSetStrokeGray
	OpSetFillGray
	OpSetStrokeRGB
	OpSetFillRGB
	OpSetStrokeCMYK
	OpSetFillCMYK
	OpSetRenderMode
	OpPathConstruct
	OpClip
	OpEndPath
	OpStroke
	OpFill
	OpFillStroke
	OpXObject
	OpInlineImage
	OpShading
	OpShowText
)

var opKinds = map[string]OpKind{
	"q": OpSave, "Q": OpRestore,
	"gs": OpSetExtGState,
	"CS": OpSetStrokeColorSpace, "cs": OpSetFillColorSpace,
	"SC": OpSetStrokeColor, "SCN": OpSetStrokeColor,
	"sc": OpSetFillColor, "scn": OpSetFillColor,
	"G": OpSetStrokeGray, "g": OpSetFillGray,
	"RG": OpSetStrokeRGB, "rg": OpSetFillRGB,
	"K": OpSetStrokeCMYK, "k": OpSetFillCMYK,
	"Tr": OpSetRenderMode,
	"m": OpPathConstruct, "l": OpPathConstruct, "c": OpPathConstruct, "v": OpPathConstruct,
	"y": OpPathConstruct, "h": OpPathConstruct, "re": OpPathConstruct,
	"W": OpClip, "W*": OpClip,
	"n": OpEndPath,
	"S": OpStroke, "s": OpStroke,
	"f": OpFill, "F": OpFill, "f*": OpFill,
	"B": OpFillStroke, "B*": OpFillStroke, "b": OpFillStroke, "b*": OpFillStroke,
	"Do": OpXObject,
	"BI": OpInlineImage,
	"sh": OpShading,
	"Tj": OpShowText, "TJ": OpShowText, "'": OpShowText, "\"": OpShowText,
}

// minOperands holds the operand counts checked before dispatch.
var minOperands = map[string]int{
	"gs": 1, "CS": 1, "cs": 1,
	"G": 1, "g": 1, "RG": 3, "rg": 3, "K": 4, "k": 4,
	"Tr": 1,
	"m": 2, "l": 2, "c": 6, "v": 4, "y": 4, "re": 4,
	"Do": 1, "sh": 1,
	"Tj": 1, "TJ": 1, "'": 1, "\"": 3,
}

// Operator is one content stream operator with its operands.
type Operator struct {
	Kind     OpKind
	Name     string
	Operands []interface{}
	Inline   *InlineImage // set for OpInlineImage
	Offset   int
}

// Fills reports whether a painting operator fills.
func (op *Operator) Fills() bool {
	return op.Kind == OpFill || op.Kind == OpFillStroke
}

// Strokes reports whether a painting operator strokes.
func (op *Operator) Strokes() bool {
	return op.Kind == OpStroke || op.Kind == OpFillStroke
}

// hasOperands reports whether op carries enough operands to be applied.
func (op *Operator) hasOperands() bool {
	return len(op.Operands) >= minOperands[op.Name]
}

// nameOperand returns operand i as a name.
func (op *Operator) nameOperand(i int) (string, bool) {
	if i >= len(op.Operands) {
		return "", false
	}
	n, ok := op.Operands[i].(Name)
	return string(n), ok
}

// numbers returns the leading numeric operands.
func (op *Operator) numbers() []float64 {
	out := make([]float64, 0, len(op.Operands))
	for _, o := range op.Operands {
		f, ok := o.(float64)
		if !ok {
			break
		}
		out = append(out, f)
	}
	return out
}

// Parser turns content stream bytes into operators.
type Parser struct {
	lex      *ContentLexer
	operands []interface{}
}

// NewParser creates a parser over decoded content stream data.
func NewParser(data []byte) *Parser {
	return &Parser{lex: NewContentLexer(data)}
}

// Next returns the next operator, or io.EOF at the end of the stream.
// Lexical errors are returned as *pdf.StreamDecodeError.
func (p *Parser) Next() (*Operator, error) {
	for {
		tok, err := p.lex.NextToken()
		if err == io.EOF {
			return nil, io.EOF
		}
		if err != nil {
			return nil, syntaxError(err)
		}
		if tok.Type == TokenOperand {
			p.operands = append(p.operands, tok.Value)
			continue
		}

		name := tok.Value.(string)
		op := &Operator{Kind: opKinds[name], Name: name, Operands: p.operands, Offset: tok.Offset}
		p.operands = nil
		if op.Kind == OpInlineImage {
			if op.Inline, err = p.readInlineImage(tok.Offset); err != nil {
				return nil, err
			}
		}
		return op, nil
	}
}

// readInlineImage reads the key/value pairs after BI, then the image data.
func (p *Parser) readInlineImage(offset int) (*InlineImage, error) {
	dict := map[string]interface{}{}
	var key Name
	haveKey := false
	for {
		tok, err := p.lex.NextToken()
		if err == io.EOF {
			return nil, &pdf.StreamDecodeError{Stream: "content stream", Offset: offset, Err: errors.New("inline image without ID")}
		}
		if err != nil {
			return nil, syntaxError(err)
		}
		if tok.Type == TokenOperator {
			if tok.Value.(string) != "ID" {
				return nil, &pdf.StreamDecodeError{Stream: "content stream", Offset: tok.Offset,
					Err: errors.Errorf("unexpected %s in inline image dictionary", tok.Value)}
			}
			break
		}
		if !haveKey {
			n, ok := tok.Value.(Name)
			if !ok {
				return nil, &pdf.StreamDecodeError{Stream: "content stream", Offset: tok.Offset,
					Err: errors.New("inline image key is not a name")}
			}
			key, haveKey = n, true
			continue
		}
		dict[string(key)] = tok.Value
		haveKey = false
	}

	ii := &InlineImage{Dict: dict}
	data, err := p.lex.readInlineData(ii.dataLength())
	if err != nil {
		return nil, syntaxError(err)
	}
	ii.Data = data
	return ii, nil
}

func syntaxError(err error) error {
	var se *SyntaxError
	if errors.As(err, &se) {
		return &pdf.StreamDecodeError{Stream: "content stream", Offset: se.Offset, Err: errors.New(se.Msg)}
	}
	return &pdf.StreamDecodeError{Stream: "content stream", Offset: -1, Err: err}
}
