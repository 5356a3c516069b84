package extract

import (
	"strconv"
	"strings"
	"unicode"
	"unicode/utf16"

	"github.com/ledongthuc/pdf"
)

// tjSpace is the TJ adjustment, in thousandths of an em, past which a gap is
// treated as a word break.
const tjSpace = -200

type operandKind int

const (
	kindOther operandKind = iota
	kindString
	kindNumber
	kindName
	kindArray
)

type operand struct {
	kind operandKind
	str  []byte
	num  float64
	arr  []operand
}

// contentText renders the text-showing operators of a page content stream.
// Strings are decoded with the encoding of the font selected by Tf, looked
// up by resource name in fonts. Without one they are read as Latin-1, or
// UTF-16BE when they carry a byte order mark.
func contentText(stream []byte, fonts map[string]pdf.TextEncoding) string {
	lx := &lexer{src: stream}
	tw := &textWriter{fonts: fonts}

	var stack [][]operand
	var operands []operand

	for {
		tok, ok := lx.next()
		if !ok {
			break
		}

		switch tok.kind {
		case tokArrayOpen:
			stack = append(stack, operands)
			operands = nil
		case tokArrayClose:
			if len(stack) == 0 {
				continue
			}
			arr := operands
			operands = stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			operands = append(operands, operand{kind: kindArray, arr: arr})
		case tokString:
			operands = append(operands, operand{kind: kindString, str: tok.data})
		case tokNumber:
			n, _ := strconv.ParseFloat(string(tok.data), 64)
			operands = append(operands, operand{kind: kindNumber, num: n})
		case tokName:
			operands = append(operands, operand{kind: kindName, str: tok.data})
		case tokOther:
			operands = append(operands, operand{kind: kindOther})
		case tokOperator:
			if len(stack) > 0 {
				// unbalanced array; drop it
				stack = nil
			}
			tw.apply(string(tok.data), operands)
			operands = operands[:0]
		}
	}

	return tw.String()
}

type textWriter struct {
	fonts map[string]pdf.TextEncoding
	enc   pdf.TextEncoding
	lines []string
	line  strings.Builder
}

func (w *textWriter) apply(op string, operands []operand) {
	switch op {
	case "Tf":
		w.enc = nil
		if len(operands) == 2 && operands[0].kind == kindName {
			w.enc = w.fonts[string(operands[0].str)]
		}
	case "Tj":
		w.show(lastString(operands))
	case "'":
		w.newline()
		w.show(lastString(operands))
	case "\"":
		w.newline()
		w.show(lastString(operands))
	case "TJ":
		if len(operands) == 0 || operands[len(operands)-1].kind != kindArray {
			return
		}
		for _, el := range operands[len(operands)-1].arr {
			switch el.kind {
			case kindString:
				w.show(el.str)
			case kindNumber:
				if el.num < tjSpace {
					w.space()
				}
			}
		}
	case "Td", "TD":
		if len(operands) == 2 && operands[1].kind == kindNumber && operands[1].num == 0 {
			w.space()
			return
		}
		w.newline()
	case "T*", "Tm", "ET":
		w.newline()
	}
}

func (w *textWriter) show(raw []byte) {
	if raw == nil {
		return
	}
	w.line.WriteString(strings.Map(dropControl, w.decode(raw)))
}

func (w *textWriter) decode(raw []byte) string {
	if w.enc == nil || hasUTF16BOM(raw) {
		return decodePDFString(raw)
	}
	return w.enc.Decode(string(raw))
}

// dropControl removes control runes left over from glyph codes that
// had no mapping.
func dropControl(r rune) rune {
	if unicode.IsControl(r) && !unicode.IsSpace(r) {
		return -1
	}
	return r
}

func hasUTF16BOM(raw []byte) bool {
	return len(raw) >= 2 && raw[0] == 0xFE && raw[1] == 0xFF
}

func (w *textWriter) space() {
	s := w.line.String()
	if s != "" && !strings.HasSuffix(s, " ") {
		w.line.WriteByte(' ')
	}
}

func (w *textWriter) newline() {
	if line := strings.TrimSpace(w.line.String()); line != "" {
		w.lines = append(w.lines, line)
	}
	w.line.Reset()
}

func (w *textWriter) String() string {
	w.newline()
	return strings.Join(w.lines, "\n")
}

func lastString(operands []operand) []byte {
	for i := len(operands) - 1; i >= 0; i-- {
		if operands[i].kind == kindString {
			return operands[i].str
		}
	}
	return nil
}

func decodePDFString(raw []byte) string {
	if hasUTF16BOM(raw) {
		body := raw[2:]
		units := make([]uint16, 0, len(body)/2)
		for i := 0; i+1 < len(body); i += 2 {
			units = append(units, uint16(body[i])<<8|uint16(body[i+1]))
		}
		return string(utf16.Decode(units))
	}

	runes := make([]rune, len(raw))
	for i, b := range raw {
		runes[i] = rune(b)
	}
	return string(runes)
}

type tokenKind int

const (
	tokOperator tokenKind = iota
	tokString
	tokNumber
	tokArrayOpen
	tokArrayClose
	tokName
	tokOther
)

type token struct {
	kind tokenKind
	data []byte
}

type lexer struct {
	src []byte
	pos int
}

func isSpace(c byte) bool {
	switch c {
	case ' ', '\t', '\r', '\n', '\f', 0:
		return true
	}
	return false
}

func isDelim(c byte) bool {
	switch c {
	case '(', ')', '<', '>', '[', ']', '{', '}', '/', '%':
		return true
	}
	return false
}

func (l *lexer) next() (token, bool) {
	for l.pos < len(l.src) {
		c := l.src[l.pos]

		switch {
		case isSpace(c):
			l.pos++
		case c == '%':
			for l.pos < len(l.src) && l.src[l.pos] != '\n' && l.src[l.pos] != '\r' {
				l.pos++
			}
		case c == '(':
			l.pos++
			return token{kind: tokString, data: l.literal()}, true
		case c == '<':
			if l.pos+1 < len(l.src) && l.src[l.pos+1] == '<' {
				l.pos += 2
				return token{kind: tokOther}, true
			}
			l.pos++
			return token{kind: tokString, data: l.hex()}, true
		case c == '>':
			l.pos++
			if l.pos < len(l.src) && l.src[l.pos] == '>' {
				l.pos++
			}
			return token{kind: tokOther}, true
		case c == '[':
			l.pos++
			return token{kind: tokArrayOpen}, true
		case c == ']':
			l.pos++
			return token{kind: tokArrayClose}, true
		case c == '/':
			l.pos++
			return token{kind: tokName, data: l.regular()}, true
		case c == '{' || c == '}' || c == ')':
			l.pos++
		default:
			word := l.regular()
			if isNumber(word) {
				return token{kind: tokNumber, data: word}, true
			}
			if string(word) == "BI" {
				l.skipInlineImage()
				continue
			}
			return token{kind: tokOperator, data: word}, true
		}
	}

	return token{}, false
}

func (l *lexer) regular() []byte {
	start := l.pos
	for l.pos < len(l.src) && !isSpace(l.src[l.pos]) && !isDelim(l.src[l.pos]) {
		l.pos++
	}
	if l.pos == start {
		// lone delimiter we do not understand
		l.pos++
	}
	return l.src[start:l.pos]
}

func isNumber(word []byte) bool {
	if len(word) == 0 {
		return false
	}
	digits := 0
	for i, c := range word {
		switch {
		case c >= '0' && c <= '9':
			digits++
		case c == '.':
		case (c == '-' || c == '+') && i == 0:
		default:
			return false
		}
	}
	return digits > 0
}

// literal reads a (string) body after the opening parenthesis.
func (l *lexer) literal() []byte {
	var out []byte
	depth := 1

	for l.pos < len(l.src) {
		c := l.src[l.pos]
		l.pos++

		switch c {
		case '(':
			depth++
			out = append(out, c)
		case ')':
			depth--
			if depth == 0 {
				return out
			}
			out = append(out, c)
		case '\\':
			if l.pos >= len(l.src) {
				return out
			}
			out = l.escape(out)
		default:
			out = append(out, c)
		}
	}

	return out
}

func (l *lexer) escape(out []byte) []byte {
	c := l.src[l.pos]
	l.pos++

	switch c {
	case 'n':
		return append(out, '\n')
	case 'r':
		return append(out, '\r')
	case 't':
		return append(out, '\t')
	case 'b':
		return append(out, '\b')
	case 'f':
		return append(out, '\f')
	case '\r':
		if l.pos < len(l.src) && l.src[l.pos] == '\n' {
			l.pos++
		}
		return out
	case '\n':
		return out
	}

	if c >= '0' && c <= '7' {
		v := int(c - '0')
		for i := 0; i < 2 && l.pos < len(l.src); i++ {
			d := l.src[l.pos]
			if d < '0' || d > '7' {
				break
			}
			v = v*8 + int(d-'0')
			l.pos++
		}
		return append(out, byte(v))
	}

	// \( \) \\ and unknown escapes keep the character
	return append(out, c)
}

// hex reads a <hex string> body after the opening angle bracket.
func (l *lexer) hex() []byte {
	var digits []byte
	for l.pos < len(l.src) && l.src[l.pos] != '>' {
		c := l.src[l.pos]
		if !isSpace(c) {
			digits = append(digits, c)
		}
		l.pos++
	}
	l.pos++ // '>'

	if len(digits)%2 == 1 {
		digits = append(digits, '0')
	}

	out := make([]byte, 0, len(digits)/2)
	for i := 0; i < len(digits); i += 2 {
		v, err := strconv.ParseUint(string(digits[i:i+2]), 16, 8)
		if err != nil {
			continue
		}
		out = append(out, byte(v))
	}
	return out
}

// skipInlineImage moves past BI ... ID <data> EI.
func (l *lexer) skipInlineImage() {
	for l.pos+2 < len(l.src) {
		if isSpace(l.src[l.pos]) && l.src[l.pos+1] == 'E' && l.src[l.pos+2] == 'I' &&
			(l.pos+3 == len(l.src) || isSpace(l.src[l.pos+3])) {
			l.pos += 3
			return
		}
		l.pos++
	}
	l.pos = len(l.src)
}
