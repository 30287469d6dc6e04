package content

import (
	"bytes"
	"fmt"
	"io"
	"strconv"
)

// Name is a PDF name operand, without the leading slash.
type Name string

// ContentLexer tokenizes PDF content streams
type ContentLexer struct {
	data []byte
	pos  int
}

// TokenType for content streams
type TokenType int

const (
	TokenOperator TokenType = iota
	TokenOperand
)

// Token represents a content stream token. Operand values are float64,
// bool, nil, Name, []byte (strings), []interface{} or map[string]interface{}.
type Token struct {
	Type   TokenType
	Value  interface{}
	Offset int
}

// SyntaxError is a lexical error at a byte offset.
type SyntaxError struct {
	Offset int
	Msg    string
}

func (e *SyntaxError) Error() string {
	return e.Msg + " at offset " + strconv.Itoa(e.Offset)
}

// NewContentLexer creates a new content lexer
func NewContentLexer(data []byte) *ContentLexer {
	return &ContentLexer{data: data, pos: 0}
}

// Offset returns the current read position.
func (l *ContentLexer) Offset() int {
	return l.pos
}

func (l *ContentLexer) errorf(offset int, format string, args ...interface{}) error {
	return &SyntaxError{Offset: offset, Msg: fmt.Sprintf(format, args...)}
}

// NextToken returns the next token from the content stream, or io.EOF.
func (l *ContentLexer) NextToken() (*Token, error) {
	l.skipWhitespace()
	if l.pos >= len(l.data) {
		return nil, io.EOF
	}

	start := l.pos
	switch ch := l.data[l.pos]; {
	case ch == ']' || ch == ')' || ch == '}' || ch == '{':
		return nil, l.errorf(start, "unexpected %q", ch)
	case ch == '>':
		return nil, l.errorf(start, "unexpected '>'")
	case isRegular(ch) && !isNumberStart(ch):
		word := l.readWord()
		switch word {
		case "true":
			return &Token{Type: TokenOperand, Value: true, Offset: start}, nil
		case "false":
			return &Token{Type: TokenOperand, Value: false, Offset: start}, nil
		case "null":
			return &Token{Type: TokenOperand, Value: nil, Offset: start}, nil
		}
		return &Token{Type: TokenOperator, Value: word, Offset: start}, nil
	}

	v, err := l.readObject()
	if err != nil {
		return nil, err
	}
	return &Token{Type: TokenOperand, Value: v, Offset: start}, nil
}

// readObject reads one operand starting at the current position
func (l *ContentLexer) readObject() (interface{}, error) {
	ch := l.data[l.pos]
	switch {
	case ch == '(':
		return l.readString()
	case ch == '<':
		if l.pos+1 < len(l.data) && l.data[l.pos+1] == '<' {
			return l.readDict()
		}
		return l.readHexString()
	case ch == '[':
		return l.readArray()
	case ch == '/':
		return l.readName(), nil
	case isNumberStart(ch):
		return l.readNumber(), nil
	}

	start := l.pos
	switch word := l.readWord(); word {
	case "true":
		return true, nil
	case "false":
		return false, nil
	case "null":
		return nil, nil
	case "":
		return nil, l.errorf(start, "unexpected %q", ch)
	default:
		return nil, l.errorf(start, "unexpected keyword %q inside object", word)
	}
}

// skipWhitespace skips whitespace characters and comments
func (l *ContentLexer) skipWhitespace() {
	for l.pos < len(l.data) {
		ch := l.data[l.pos]
		if ch == '%' {
			for l.pos < len(l.data) && l.data[l.pos] != '\n' && l.data[l.pos] != '\r' {
				l.pos++
			}
			continue
		}
		if !isWhitespace(ch) {
			break
		}
		l.pos++
	}
}

// readString reads a string literal
func (l *ContentLexer) readString() ([]byte, error) {
	begin := l.pos
	l.pos++ // Skip (
	start := l.pos
	parenCount := 1
	escaped := false

	for l.pos < len(l.data) && parenCount > 0 {
		ch := l.data[l.pos]
		if escaped {
			escaped = false
		} else {
			switch ch {
			case '\\':
				escaped = true
			case '(':
				parenCount++
			case ')':
				parenCount--
			}
		}
		l.pos++
	}

	if parenCount > 0 {
		return nil, l.errorf(begin, "unterminated string")
	}

	return processEscapes(l.data[start : l.pos-1]), nil
}

// readHexString reads a hexadecimal string
func (l *ContentLexer) readHexString() ([]byte, error) {
	begin := l.pos
	l.pos++ // Skip <
	start := l.pos

	for l.pos < len(l.data) && l.data[l.pos] != '>' {
		l.pos++
	}
	if l.pos >= len(l.data) {
		return nil, l.errorf(begin, "unterminated hex string")
	}

	hex := l.data[start:l.pos]
	l.pos++ // Skip >

	clean := make([]byte, 0, len(hex)+1)
	for _, b := range hex {
		switch {
		case isHex(b):
			clean = append(clean, b)
		case isWhitespace(b):
		default:
			return nil, l.errorf(begin, "invalid hex digit %q", b)
		}
	}
	if len(clean)%2 == 1 {
		clean = append(clean, '0')
	}

	result := make([]byte, len(clean)/2)
	for i := range result {
		v, _ := strconv.ParseUint(string(clean[2*i:2*i+2]), 16, 8)
		result[i] = byte(v)
	}
	return result, nil
}

// readArray reads a possibly nested array
func (l *ContentLexer) readArray() ([]interface{}, error) {
	begin := l.pos
	l.pos++ // Skip [
	array := []interface{}{}

	for {
		l.skipWhitespace()
		if l.pos >= len(l.data) {
			return nil, l.errorf(begin, "unterminated array")
		}
		if l.data[l.pos] == ']' {
			l.pos++
			return array, nil
		}
		v, err := l.readObject()
		if err != nil {
			return nil, err
		}
		array = append(array, v)
	}
}

// readDict reads a dictionary; keys must be names
func (l *ContentLexer) readDict() (map[string]interface{}, error) {
	begin := l.pos
	l.pos += 2 // Skip <<
	dict := map[string]interface{}{}

	for {
		l.skipWhitespace()
		if l.pos+1 >= len(l.data) {
			return nil, l.errorf(begin, "unterminated dictionary")
		}
		if l.data[l.pos] == '>' && l.data[l.pos+1] == '>' {
			l.pos += 2
			return dict, nil
		}
		if l.data[l.pos] != '/' {
			return nil, l.errorf(l.pos, "dictionary key is not a name")
		}
		key := l.readName()
		l.skipWhitespace()
		if l.pos >= len(l.data) {
			return nil, l.errorf(begin, "unterminated dictionary")
		}
		v, err := l.readObject()
		if err != nil {
			return nil, err
		}
		dict[string(key)] = v
	}
}

// readName reads a name object, resolving #xx escapes
func (l *ContentLexer) readName() Name {
	l.pos++ // Skip /
	start := l.pos
	for l.pos < len(l.data) && isRegular(l.data[l.pos]) {
		l.pos++
	}

	raw := l.data[start:l.pos]
	if bytes.IndexByte(raw, '#') < 0 {
		return Name(raw)
	}
	out := make([]byte, 0, len(raw))
	for i := 0; i < len(raw); i++ {
		if raw[i] == '#' && i+2 < len(raw) && isHex(raw[i+1]) && isHex(raw[i+2]) {
			v, _ := strconv.ParseUint(string(raw[i+1:i+3]), 16, 8)
			out = append(out, byte(v))
			i += 2
			continue
		}
		out = append(out, raw[i])
	}
	return Name(out)
}

// readNumber reads a numeric value; malformed numbers read as 0
func (l *ContentLexer) readNumber() float64 {
	start := l.pos
	hasDecimal := false

	for l.pos < len(l.data) {
		ch := l.data[l.pos]
		if ch == '.' {
			if hasDecimal {
				break
			}
			hasDecimal = true
		} else if ch == '+' || ch == '-' {
			if l.pos != start {
				break
			}
		} else if ch < '0' || ch > '9' {
			break
		}
		l.pos++
	}

	val, err := strconv.ParseFloat(string(l.data[start:l.pos]), 64)
	if err != nil {
		return 0
	}
	return val
}

// readWord reads a run of regular characters
func (l *ContentLexer) readWord() string {
	start := l.pos
	for l.pos < len(l.data) && isRegular(l.data[l.pos]) {
		l.pos++
	}
	return string(l.data[start:l.pos])
}

// readInlineData reads the data of an inline image, which starts after the
// single whitespace following ID. With n >= 0 exactly n bytes are taken;
// otherwise the data runs up to a whitespace-delimited EI.
func (l *ContentLexer) readInlineData(n int) ([]byte, error) {
	begin := l.pos
	if l.pos < len(l.data) && isWhitespace(l.data[l.pos]) {
		l.pos++
	}
	start := l.pos

	if n >= 0 && start+n <= len(l.data) {
		end := start + n
		l.pos = end
		l.skipWhitespace()
		if bytes.HasPrefix(l.data[l.pos:], []byte("EI")) && l.atDelimiter(l.pos+2) {
			l.pos += 2
			return l.data[start:end], nil
		}
		l.pos = start
	}

	for i := start; i+1 < len(l.data); i++ {
		if l.data[i] != 'E' || l.data[i+1] != 'I' {
			continue
		}
		if i > start && !isWhitespace(l.data[i-1]) {
			continue
		}
		if !l.atDelimiter(i + 2) {
			continue
		}
		end := i
		if end > start {
			end-- // whitespace before EI
		}
		l.pos = i + 2
		return l.data[start:end], nil
	}
	return nil, l.errorf(begin, "unterminated inline image")
}

func (l *ContentLexer) atDelimiter(i int) bool {
	return i >= len(l.data) || !isRegular(l.data[i])
}

func isWhitespace(ch byte) bool {
	switch ch {
	case ' ', '\t', '\r', '\n', '\f', 0:
		return true
	}
	return false
}

func isDelimiter(ch byte) bool {
	switch ch {
	case '(', ')', '<', '>', '[', ']', '{', '}', '/', '%':
		return true
	}
	return false
}

func isRegular(ch byte) bool {
	return !isWhitespace(ch) && !isDelimiter(ch)
}

func isNumberStart(ch byte) bool {
	return ch == '+' || ch == '-' || ch == '.' || (ch >= '0' && ch <= '9')
}

func isHex(b byte) bool {
	return (b >= '0' && b <= '9') || (b >= 'a' && b <= 'f') || (b >= 'A' && b <= 'F')
}

// processEscapes processes escape sequences in a string
func processEscapes(text []byte) []byte {
	var result []byte
	escaped := false

	for i := 0; i < len(text); i++ {
		if escaped {
			switch text[i] {
			case 'n':
				result = append(result, '\n')
			case 'r':
				result = append(result, '\r')
			case 't':
				result = append(result, '\t')
			case 'b':
				result = append(result, '\b')
			case 'f':
				result = append(result, '\f')
			case '\\', '(', ')':
				result = append(result, text[i])
			case '\r':
				// line continuation
				if i+1 < len(text) && text[i+1] == '\n' {
					i++
				}
			case '\n':
			default:
				if text[i] >= '0' && text[i] <= '7' {
					j := i
					for j < len(text) && j < i+3 && text[j] >= '0' && text[j] <= '7' {
						j++
					}
					val, _ := strconv.ParseUint(string(text[i:j]), 8, 16)
					result = append(result, byte(val))
					i = j - 1
				} else {
					result = append(result, text[i])
				}
			}
			escaped = false
		} else if text[i] == '\\' {
			escaped = true
		} else {
			result = append(result, text[i])
		}
	}

	return result
}
