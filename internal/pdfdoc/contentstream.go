package pdfdoc

import (
	"bytes"
	"fmt"
	"strconv"
)

type operandKind int

const (
	operandNumber operandKind = iota
	operandName
	operandString
	operandArray
	operandDict
	operandOther
)

// operand is one argument of a content stream operator.
type operand struct {
	kind  operandKind
	num   float64
	name  string
	str   []byte
	items []operand
}

// operation is an operator with its operands and the exact source bytes
// they were parsed from.
type operation struct {
	operator string
	operands []operand
	raw      []byte
}

func (op operation) number(i int) float64 {
	if i < len(op.operands) && op.operands[i].kind == operandNumber {
		return op.operands[i].num
	}
	return 0
}

func (op operation) nameAt(i int) string {
	if i < len(op.operands) && op.operands[i].kind == operandName {
		return op.operands[i].name
	}
	return ""
}

// contentLexer scans page content streams.
type contentLexer struct {
	data []byte
	pos  int
}

func isSpace(c byte) bool {
	switch c {
	case ' ', '\t', '\r', '\n', '\f', 0:
		return true
	}
	return false
}

func isDelimiter(c byte) bool {
	switch c {
	case '(', ')', '<', '>', '[', ']', '{', '}', '/', '%':
		return true
	}
	return false
}

func (l *contentLexer) skipSpace() {
	for l.pos < len(l.data) {
		c := l.data[l.pos]
		if isSpace(c) {
			l.pos++
			continue
		}
		if c == '%' {
			for l.pos < len(l.data) && l.data[l.pos] != '\n' && l.data[l.pos] != '\r' {
				l.pos++
			}
			continue
		}
		return
	}
}

func (l *contentLexer) eof() bool {
	l.skipSpace()
	return l.pos >= len(l.data)
}

// next reads one object. keyword is non-empty when the object is an operator.
func (l *contentLexer) next() (op operand, keyword string, err error) {
	l.skipSpace()
	if l.pos >= len(l.data) {
		return operand{}, "", fmt.Errorf("unexpected end of content at offset %d", l.pos)
	}
	c := l.data[l.pos]
	switch {
	case c == '/':
		l.pos++
		start := l.pos
		for l.pos < len(l.data) && !isSpace(l.data[l.pos]) && !isDelimiter(l.data[l.pos]) {
			l.pos++
		}
		return operand{kind: operandName, name: string(l.data[start:l.pos])}, "", nil
	case c == '(':
		s, err := l.literalString()
		return operand{kind: operandString, str: s}, "", err
	case c == '<' && l.pos+1 < len(l.data) && l.data[l.pos+1] == '<':
		l.pos += 2
		items, err := l.collect(">>")
		return operand{kind: operandDict, items: items}, "", err
	case c == '<':
		s, err := l.hexString()
		return operand{kind: operandString, str: s}, "", err
	case c == '[':
		l.pos++
		items, err := l.collect("]")
		return operand{kind: operandArray, items: items}, "", err
	case c == '+' || c == '-' || c == '.' || (c >= '0' && c <= '9'):
		start := l.pos
		l.pos++
		for l.pos < len(l.data) && !isSpace(l.data[l.pos]) && !isDelimiter(l.data[l.pos]) {
			l.pos++
		}
		f, perr := strconv.ParseFloat(string(l.data[start:l.pos]), 64)
		if perr != nil {
			return operand{kind: operandOther}, "", nil
		}
		return operand{kind: operandNumber, num: f}, "", nil
	case c == ']' || c == ')' || c == '>' || c == '{' || c == '}':
		l.pos++
		return operand{kind: operandOther}, "", nil
	default:
		start := l.pos
		for l.pos < len(l.data) && !isSpace(l.data[l.pos]) && !isDelimiter(l.data[l.pos]) {
			l.pos++
		}
		word := string(l.data[start:l.pos])
		switch word {
		case "true", "false", "null":
			return operand{kind: operandOther, name: word}, "", nil
		}
		return operand{}, word, nil
	}
}

// collect reads objects up to the closing token.
func (l *contentLexer) collect(closing string) ([]operand, error) {
	var items []operand
	for {
		l.skipSpace()
		if l.pos >= len(l.data) {
			return items, fmt.Errorf("unterminated %q", closing)
		}
		if bytes.HasPrefix(l.data[l.pos:], []byte(closing)) {
			l.pos += len(closing)
			return items, nil
		}
		item, kw, err := l.next()
		if err != nil {
			return items, err
		}
		if kw != "" {
			item = operand{kind: operandOther, name: kw}
		}
		items = append(items, item)
	}
}

func (l *contentLexer) literalString() ([]byte, error) {
	l.pos++ // (
	var out []byte
	depth := 1
	for l.pos < len(l.data) {
		c := l.data[l.pos]
		l.pos++
		switch c {
		case '\\':
			if l.pos >= len(l.data) {
				return out, fmt.Errorf("unterminated string")
			}
			e := l.data[l.pos]
			l.pos++
			switch e {
			case 'n':
				out = append(out, '\n')
			case 'r':
				out = append(out, '\r')
			case 't':
				out = append(out, '\t')
			case 'b':
				out = append(out, '\b')
			case 'f':
				out = append(out, '\f')
			case '\r':
				if l.pos < len(l.data) && l.data[l.pos] == '\n' {
					l.pos++
				}
			case '\n':
			default:
				if e >= '0' && e <= '7' {
					v := int(e - '0')
					for i := 0; i < 2 && l.pos < len(l.data) && l.data[l.pos] >= '0' && l.data[l.pos] <= '7'; i++ {
						v = v*8 + int(l.data[l.pos]-'0')
						l.pos++
					}
					out = append(out, byte(v))
					continue
				}
				out = append(out, e)
			}
		case '(':
			depth++
			out = append(out, c)
		case ')':
			depth--
			if depth == 0 {
				return out, nil
			}
			out = append(out, c)
		default:
			out = append(out, c)
		}
	}
	return out, fmt.Errorf("unterminated string")
}

func (l *contentLexer) hexString() ([]byte, error) {
	l.pos++ // <
	var digits []byte
	for l.pos < len(l.data) {
		c := l.data[l.pos]
		l.pos++
		if c == '>' {
			if len(digits)%2 == 1 {
				digits = append(digits, '0')
			}
			out := make([]byte, len(digits)/2)
			for i := range out {
				v, err := strconv.ParseUint(string(digits[2*i:2*i+2]), 16, 8)
				if err != nil {
					return nil, fmt.Errorf("bad hex string: %w", err)
				}
				out[i] = byte(v)
			}
			return out, nil
		}
		if !isSpace(c) {
			digits = append(digits, c)
		}
	}
	return nil, fmt.Errorf("unterminated hex string")
}

// skipInlineImage moves past the binary data of an inline image and its
// closing EI operator.
func (l *contentLexer) skipInlineImage() error {
	idx := bytes.Index(l.data[l.pos:], []byte("ID"))
	if idx < 0 {
		return fmt.Errorf("inline image without ID")
	}
	l.pos += idx + 2
	for l.pos < len(l.data) {
		idx := bytes.Index(l.data[l.pos:], []byte("EI"))
		if idx < 0 {
			return fmt.Errorf("inline image without EI")
		}
		at := l.pos + idx
		before := at == 0 || isSpace(l.data[at-1])
		after := at+2 >= len(l.data) || isSpace(l.data[at+2]) || isDelimiter(l.data[at+2])
		l.pos = at + 2
		if before && after {
			return nil
		}
	}
	return fmt.Errorf("inline image without EI")
}

// parseContent splits a content stream into operations.
func parseContent(data []byte) ([]operation, error) {
	l := &contentLexer{data: data}
	var ops []operation
	var operands []operand
	start := -1

	for !l.eof() {
		if start < 0 {
			start = l.pos
		}
		obj, kw, err := l.next()
		if err != nil {
			return nil, err
		}
		if kw == "" {
			operands = append(operands, obj)
			continue
		}
		if kw == "BI" {
			if err := l.skipInlineImage(); err != nil {
				return nil, err
			}
		}
		ops = append(ops, operation{
			operator: kw,
			operands: operands,
			raw:      data[start:l.pos],
		})
		operands = nil
		start = -1
	}
	return ops, nil
}

// serializeOps joins operations back into a content stream.
func serializeOps(ops []operation) []byte {
	var buf bytes.Buffer
	for _, op := range ops {
		buf.Write(op.raw)
		buf.WriteByte('\n')
	}
	return buf.Bytes()
}

// isWrapped reports whether content is enclosed in a balanced q/Q pair.
func isWrapped(content []byte) bool {
	ops, err := parseContent(content)
	if err != nil || len(ops) < 2 {
		return false
	}
	if ops[0].operator != "q" || ops[len(ops)-1].operator != "Q" {
		return false
	}
	depth := 0
	for i, op := range ops {
		switch op.operator {
		case "q":
			depth++
		case "Q":
			depth--
		}
		if depth == 0 && i != len(ops)-1 {
			return false
		}
	}
	return depth == 0
}
