package swim

import (
	"fmt"
	"strconv"
	"strings"
)

// envelope is one WARP frame: @tag(node:..., lane:...) optionally followed by a body.
type envelope struct {
	Tag  string
	Node string
	Lane string
	Body interface{}
}

// formatCommand renders an outgoing WARP command such as @sync or @unlink.
func formatCommand(tag, node, lane string) string {
	return fmt.Sprintf("@%s(node:%s,lane:%s)", tag, strconv.Quote(node), strconv.Quote(lane))
}

// -----------------------------------------------------------------------------

func parseEnvelope(text string) (envelope, error) {
	p := &reconParser{s: text}
	p.skipSpace()
	if !p.consume('@') {
		return envelope{}, p.errorf("expected @ at start of envelope")
	}
	env := envelope{Tag: p.ident()}
	if env.Tag == "" {
		return envelope{}, p.errorf("missing envelope tag")
	}

	p.skipSpace()
	if p.peek() == '(' {
		p.i++
		headers, err := p.slots(')')
		if err != nil {
			return envelope{}, err
		}
		env.Node, _ = headers["node"].(string)
		env.Lane, _ = headers["lane"].(string)
	}

	p.skipSpace()
	if p.done() {
		return env, nil
	}
	body, err := p.value()
	if err != nil {
		return envelope{}, err
	}
	env.Body = body
	return env, nil
}

// -----------------------------------------------------------------------------

// reconParser reads the subset of Recon that value lanes produce: records,
// attributes, numbers, strings, identifiers and absent slot values.
type reconParser struct {
	s string
	i int
}

func (p *reconParser) errorf(format string, args ...interface{}) error {
	return fmt.Errorf("recon: %s at offset %d", fmt.Sprintf(format, args...), p.i)
}

func (p *reconParser) done() bool { return p.i >= len(p.s) }

func (p *reconParser) peek() byte {
	if p.done() {
		return 0
	}
	return p.s[p.i]
}

func (p *reconParser) consume(c byte) bool {
	if p.peek() == c {
		p.i++
		return true
	}
	return false
}

func (p *reconParser) skipSpace() {
	for !p.done() {
		switch p.s[p.i] {
		case ' ', '\t', '\r':
			p.i++
		default:
			return
		}
	}
}

func isIdentStart(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isIdentPart(c byte) bool {
	return isIdentStart(c) || c == '-' || (c >= '0' && c <= '9')
}

func (p *reconParser) ident() string {
	start := p.i
	if p.done() || !isIdentStart(p.s[p.i]) {
		return ""
	}
	for !p.done() && isIdentPart(p.s[p.i]) {
		p.i++
	}
	return p.s[start:p.i]
}

func isSeparator(c byte) bool {
	return c == ',' || c == ';' || c == '\n'
}

// slots reads key:value items up to closer. Positional items are keyed by index.
func (p *reconParser) slots(closer byte) (map[string]interface{}, error) {
	out := map[string]interface{}{}
	index := 0
	for {
		p.skipSpace()
		for !p.done() && isSeparator(p.peek()) {
			p.i++
			p.skipSpace()
		}
		if p.done() {
			return nil, p.errorf("unterminated block, expected %q", closer)
		}
		if p.consume(closer) {
			return out, nil
		}

		item, err := p.value()
		if err != nil {
			return nil, err
		}
		p.skipSpace()
		if !p.consume(':') {
			out[strconv.Itoa(index)] = item
			index++
			continue
		}

		key := fmt.Sprint(item)
		p.skipSpace()
		if c := p.peek(); isSeparator(c) || c == closer {
			// absent value
			out[key] = nil
			continue
		}
		val, err := p.value()
		if err != nil {
			return nil, err
		}
		out[key] = val
	}
}

func (p *reconParser) value() (interface{}, error) {
	p.skipSpace()
	c := p.peek()
	switch {
	case c == '{':
		p.i++
		return p.slots('}')
	case c == '"' || c == '\'':
		return p.quoted(c)
	case c == '-' || c == '+' || c == '.' || (c >= '0' && c <= '9'):
		return p.number()
	case c == '@':
		p.i++
		tag := p.ident()
		var args interface{}
		if p.consume('(') {
			m, err := p.slots(')')
			if err != nil {
				return nil, err
			}
			args = m
		}
		return map[string]interface{}{"@" + tag: args}, nil
	case isIdentStart(c):
		id := p.ident()
		switch id {
		case "true":
			return true, nil
		case "false":
			return false, nil
		}
		return id, nil
	case c == 0:
		return nil, p.errorf("unexpected end of input")
	}
	return nil, p.errorf("unexpected character %q", c)
}

func (p *reconParser) quoted(quote byte) (string, error) {
	p.i++
	var b strings.Builder
	for !p.done() {
		c := p.s[p.i]
		p.i++
		switch c {
		case quote:
			return b.String(), nil
		case '\\':
			if p.done() {
				return "", p.errorf("unterminated escape")
			}
			esc := p.s[p.i]
			p.i++
			switch esc {
			case 'n':
				b.WriteByte('\n')
			case 't':
				b.WriteByte('\t')
			case 'r':
				b.WriteByte('\r')
			default:
				b.WriteByte(esc)
			}
		default:
			b.WriteByte(c)
		}
	}
	return "", p.errorf("unterminated string")
}

func (p *reconParser) number() (float64, error) {
	start := p.i
	for !p.done() {
		c := p.s[p.i]
		if (c >= '0' && c <= '9') || c == '.' || c == '-' || c == '+' || c == 'e' || c == 'E' {
			p.i++
			continue
		}
		break
	}
	f, err := strconv.ParseFloat(p.s[start:p.i], 64)
	if err != nil {
		return 0, p.errorf("invalid number %q", p.s[start:p.i])
	}
	return f, nil
}
