package resource

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"unicode"
)

// The Metadata response header is a dict-literal-looking string, not JSON:
//
//	{'lastmodifiedby': 'arn:...:assumed-role/x/c360_user_alice', 'rev': 3}
//
// ParseMetadata accepts exactly that shape: string keys, and values that
// are quoted strings, numbers, True/False, or None. Anything else is a
// parse error. The input is untrusted header content, so nothing here may
// ever evaluate it.
func ParseMetadata(s string) (map[string]any, error) {
	p := &metadataParser{input: []rune(s)}

	p.skipSpaces()
	if !p.consume('{') {
		return nil, p.errorf("expected '{'")
	}

	out := map[string]any{}
	p.skipSpaces()
	if p.consume('}') {
		return out, p.expectEnd()
	}

	for {
		p.skipSpaces()
		key, err := p.quotedString()
		if err != nil {
			return nil, err
		}
		p.skipSpaces()
		if !p.consume(':') {
			return nil, p.errorf("expected ':' after key %q", key)
		}
		p.skipSpaces()
		value, err := p.value()
		if err != nil {
			return nil, err
		}
		out[key] = value

		p.skipSpaces()
		if p.consume(',') {
			continue
		}
		if p.consume('}') {
			return out, p.expectEnd()
		}
		return nil, p.errorf("expected ',' or '}'")
	}
}

type metadataParser struct {
	input []rune
	pos   int
}

func (p *metadataParser) errorf(format string, args ...any) error {
	where := fmt.Sprintf(" at offset %d", p.pos)
	return fmt.Errorf("malformed metadata header: "+format+where, args...)
}

func (p *metadataParser) skipSpaces() {
	for p.pos < len(p.input) && unicode.IsSpace(p.input[p.pos]) {
		p.pos += 1
	}
}

func (p *metadataParser) consume(r rune) bool {
	if p.pos < len(p.input) && p.input[p.pos] == r {
		p.pos += 1
		return true
	}
	return false
}

func (p *metadataParser) expectEnd() error {
	p.skipSpaces()
	if p.pos != len(p.input) {
		return p.errorf("trailing content")
	}
	return nil
}

func (p *metadataParser) quotedString() (string, error) {
	if p.pos >= len(p.input) {
		return "", p.errorf("expected string")
	}
	quote := p.input[p.pos]
	if quote != '\'' && quote != '"' {
		return "", p.errorf("expected string")
	}
	p.pos += 1

	b := strings.Builder{}
	for p.pos < len(p.input) {
		r := p.input[p.pos]
		p.pos += 1
		switch r {
		case quote:
			return b.String(), nil
		case '\\':
			if p.pos >= len(p.input) {
				return "", p.errorf("unterminated escape")
			}
			esc := p.input[p.pos]
			p.pos += 1
			switch esc {
			case '\\', '\'', '"':
				b.WriteRune(esc)
			case 'n':
				b.WriteRune('\n')
			case 't':
				b.WriteRune('\t')
			default:
				return "", p.errorf("unsupported escape '\\%c'", esc)
			}
		default:
			b.WriteRune(r)
		}
	}
	return "", p.errorf("unterminated string")
}

func (p *metadataParser) value() (any, error) {
	if p.pos >= len(p.input) {
		return nil, p.errorf("expected value")
	}

	switch r := p.input[p.pos]; {
	case r == '\'' || r == '"':
		return p.quotedString()
	case p.keyword("True"):
		return true, nil
	case p.keyword("False"):
		return false, nil
	case p.keyword("None"):
		return nil, nil
	case r == '-' || unicode.IsDigit(r):
		return p.number()
	default:
		return nil, p.errorf("unsupported value")
	}
}

func (p *metadataParser) keyword(word string) bool {
	end := p.pos + len(word)
	if end > len(p.input) || string(p.input[p.pos:end]) != word {
		return false
	}
	// must not be a prefix of a longer token
	if end < len(p.input) {
		next := p.input[end]
		if unicode.IsLetter(next) || unicode.IsDigit(next) || next == '_' {
			return false
		}
	}
	p.pos = end
	return true
}

func (p *metadataParser) number() (any, error) {
	start := p.pos
	p.consume('-')
	for p.pos < len(p.input) {
		r := p.input[p.pos]
		if unicode.IsDigit(r) || r == '.' || r == 'e' || r == 'E' || r == '+' || r == '-' {
			p.pos += 1
			continue
		}
		break
	}
	text := string(p.input[start:p.pos])
	if i, err := strconv.ParseInt(text, 10, 64); err == nil {
		return i, nil
	}
	f, err := strconv.ParseFloat(text, 64)
	if err != nil {
		return nil, p.errorf("bad number %q", text)
	}
	return f, nil
}

var userPrincipal = regexp.MustCompile(`c360_user_([A-Za-z0-9._@-]+)`)

// lastModifiedBy extracts the user identifier from the principal ARN in
// the metadata mapping. When the ARN does not embed one, the raw
// principal is returned as-is.
func lastModifiedBy(metadata map[string]any) string {
	principal, _ := metadata["lastmodifiedby"].(string)
	if principal == "" {
		return ""
	}
	if m := userPrincipal.FindStringSubmatch(principal); m != nil {
		return m[1]
	}
	return principal
}
