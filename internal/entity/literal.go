package entity

import (
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"
)

// The registry file stores one Python-style tuple literal per line, e.g.
//
//	('character', 'Kim Shin', '{"age-range": "30s"}', 'kim_shin_character.png')
//
// The parser below accepts exactly the literal subset that the store emits:
// single- or double-quoted strings, integers, floats, lists, tuples, None,
// True and False. It is a scoped recursive-descent parser, not an evaluator;
// anything outside that subset is a parse error and the offending line is
// skipped by the loader.

type literalParser struct {
	src string
	pos int
}

// parseLiteral parses a single literal value and requires the whole input to
// be consumed.
func parseLiteral(src string) (any, error) {
	p := &literalParser{src: src}
	v, err := p.value()
	if err != nil {
		return nil, err
	}
	p.skipSpace()
	if p.pos != len(p.src) {
		return nil, fmt.Errorf("trailing data at offset %d", p.pos)
	}
	return v, nil
}

func (p *literalParser) skipSpace() {
	for p.pos < len(p.src) && (p.src[p.pos] == ' ' || p.src[p.pos] == '\t') {
		p.pos++
	}
}

func (p *literalParser) value() (any, error) {
	p.skipSpace()
	if p.pos >= len(p.src) {
		return nil, fmt.Errorf("unexpected end of input")
	}

	switch c := p.src[p.pos]; {
	case c == '\'' || c == '"':
		return p.stringLit(c)
	case c == '(':
		return p.sequence('(', ')')
	case c == '[':
		return p.sequence('[', ']')
	case c == '-' || (c >= '0' && c <= '9'):
		return p.number()
	default:
		return p.keyword()
	}
}

func (p *literalParser) keyword() (any, error) {
	for _, kw := range []struct {
		word string
		val  any
	}{
		{"None", nil},
		{"True", true},
		{"False", false},
	} {
		if strings.HasPrefix(p.src[p.pos:], kw.word) {
			p.pos += len(kw.word)
			return kw.val, nil
		}
	}
	return nil, fmt.Errorf("unexpected character %q at offset %d", p.src[p.pos], p.pos)
}

func (p *literalParser) stringLit(quote byte) (string, error) {
	p.pos++ // opening quote
	var b strings.Builder
	for p.pos < len(p.src) {
		c := p.src[p.pos]
		switch {
		case c == quote:
			p.pos++
			return b.String(), nil
		case c == '\\':
			if p.pos+1 >= len(p.src) {
				return "", fmt.Errorf("dangling escape at offset %d", p.pos)
			}
			esc := p.src[p.pos+1]
			p.pos += 2
			switch esc {
			case '\\', '\'', '"':
				b.WriteByte(esc)
			case 'n':
				b.WriteByte('\n')
			case 't':
				b.WriteByte('\t')
			case 'r':
				b.WriteByte('\r')
			case 'x':
				if p.pos+2 > len(p.src) {
					return "", fmt.Errorf("truncated \\x escape at offset %d", p.pos)
				}
				n, err := strconv.ParseUint(p.src[p.pos:p.pos+2], 16, 8)
				if err != nil {
					return "", fmt.Errorf("bad \\x escape at offset %d", p.pos)
				}
				b.WriteByte(byte(n))
				p.pos += 2
			case 'u':
				if p.pos+4 > len(p.src) {
					return "", fmt.Errorf("truncated \\u escape at offset %d", p.pos)
				}
				n, err := strconv.ParseUint(p.src[p.pos:p.pos+4], 16, 32)
				if err != nil {
					return "", fmt.Errorf("bad \\u escape at offset %d", p.pos)
				}
				b.WriteRune(rune(n))
				p.pos += 4
			default:
				return "", fmt.Errorf("unsupported escape \\%c at offset %d", esc, p.pos-1)
			}
		default:
			r, size := utf8.DecodeRuneInString(p.src[p.pos:])
			b.WriteRune(r)
			p.pos += size
		}
	}
	return "", fmt.Errorf("unterminated string")
}

func (p *literalParser) sequence(open, close byte) (any, error) {
	p.pos++ // opening bracket
	var items []any
	for {
		p.skipSpace()
		if p.pos >= len(p.src) {
			return nil, fmt.Errorf("unterminated %c...%c", open, close)
		}
		if p.src[p.pos] == close {
			p.pos++
			break
		}
		v, err := p.value()
		if err != nil {
			return nil, err
		}
		items = append(items, v)

		p.skipSpace()
		if p.pos < len(p.src) && p.src[p.pos] == ',' {
			p.pos++
			continue
		}
		if p.pos < len(p.src) && p.src[p.pos] == close {
			p.pos++
			break
		}
		return nil, fmt.Errorf("expected ',' or '%c' at offset %d", close, p.pos)
	}
	if open == '(' {
		return tuple(items), nil
	}
	return items, nil
}

// tuple distinguishes (...) from [...] in parse results.
type tuple []any

func (p *literalParser) number() (any, error) {
	start := p.pos
	if p.src[p.pos] == '-' {
		p.pos++
	}
	isFloat := false
	for p.pos < len(p.src) {
		c := p.src[p.pos]
		if c >= '0' && c <= '9' {
			p.pos++
			continue
		}
		if c == '.' || c == 'e' || c == 'E' || c == '+' || c == '-' {
			// '+'/'-' only valid inside an exponent; ParseFloat rejects
			// the rest.
			if c == '+' || c == '-' {
				prev := p.src[p.pos-1]
				if prev != 'e' && prev != 'E' {
					break
				}
			}
			isFloat = isFloat || c == '.' || c == 'e' || c == 'E'
			p.pos++
			continue
		}
		break
	}
	text := p.src[start:p.pos]
	if !isFloat {
		n, err := strconv.ParseInt(text, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("bad integer %q", text)
		}
		return n, nil
	}
	f, err := strconv.ParseFloat(text, 64)
	if err != nil {
		return nil, fmt.Errorf("bad number %q", text)
	}
	return f, nil
}

// quoteString renders s as a single-quoted literal the parser accepts back.
func quoteString(s string) string {
	var b strings.Builder
	b.WriteByte('\'')
	for _, r := range s {
		switch r {
		case '\\':
			b.WriteString(`\\`)
		case '\'':
			b.WriteString(`\'`)
		case '\n':
			b.WriteString(`\n`)
		case '\t':
			b.WriteString(`\t`)
		case '\r':
			b.WriteString(`\r`)
		default:
			b.WriteRune(r)
		}
	}
	b.WriteByte('\'')
	return b.String()
}
