package template

import (
	"bytes"
	"fmt"
	"strings"

	"go.trai.ch/stale/internal/core/domain"
)

const importKeyword = "@import"

// directive is one @import statement and the names it lists.
type directive struct {
	line  int
	names []string
}

// parser extracts @import directives from template source.
// Everything other than directives, comments and strings is skipped.
type parser struct {
	src      []byte
	pos      int
	line     int
	indented bool
}

func parse(src []byte, syntax string) ([]directive, error) {
	p := &parser{src: src, line: 1, indented: syntax == domain.SyntaxIndented}
	return p.directives()
}

func (p *parser) directives() ([]directive, error) {
	var out []directive
	for p.pos < len(p.src) {
		switch {
		case p.hasPrefix("//"):
			p.skipLine()
		case p.hasPrefix("/*"):
			p.skipBlockComment()
		case p.peek() == '"' || p.peek() == '\'':
			// Strings outside directives may contain anything, including "@import".
			if _, err := p.quoted(); err != nil {
				return nil, err
			}
		case p.atKeyword():
			d, err := p.directive()
			if err != nil {
				return nil, err
			}
			if len(d.names) > 0 {
				out = append(out, d)
			}
		default:
			p.advance()
		}
	}
	return out, nil
}

func (p *parser) directive() (directive, error) {
	d := directive{line: p.line}
	p.pos += len(importKeyword)

	for {
		p.skipBlanks(false)
		if p.atEnd() {
			return d, p.errorf("expected string after %s", importKeyword)
		}

		name, err := p.item()
		if err != nil {
			return d, err
		}
		if name != "" {
			d.names = append(d.names, name)
		}

		p.skipBlanks(false)
		switch {
		case p.peek() == ',':
			p.advance()
			// A trailing comma continues the list on the next line in both dialects.
			p.skipBlanks(true)
		case p.peek() == ';':
			p.advance()
			return d, nil
		case p.atEnd() && p.indented:
			return d, nil
		default:
			return d, p.errorf(`expected ";" after %s`, importKeyword)
		}
	}
}

// item reads one entry of an import list. url(...) entries and remote
// stylesheets yield an empty name: they never refer to a local template.
func (p *parser) item() (string, error) {
	switch {
	case p.peek() == '"' || p.peek() == '\'':
		name, err := p.quoted()
		if err != nil {
			return "", err
		}
		if name == "" {
			return "", p.errorf("empty import")
		}
		if isRemote(name) {
			return "", nil
		}
		return name, nil
	case p.hasPrefix("url("):
		return "", p.skipURL()
	case p.indented && isNameByte(p.peek()):
		return p.bare(), nil
	default:
		return "", p.errorf("expected string after %s", importKeyword)
	}
}

func (p *parser) quoted() (string, error) {
	quote := p.peek()
	startLine := p.line
	p.advance()
	start := p.pos
	for p.pos < len(p.src) {
		switch p.src[p.pos] {
		case quote:
			s := string(p.src[start:p.pos])
			p.advance()
			return s, nil
		case '\n':
			return "", fmt.Errorf("line %d: unterminated string", startLine)
		case '\\':
			p.advance()
		}
		p.advance()
	}
	return "", fmt.Errorf("line %d: unterminated string", startLine)
}

func (p *parser) skipURL() error {
	startLine := p.line
	for p.pos < len(p.src) {
		if c := p.peek(); c == ')' {
			p.advance()
			return nil
		} else if c == '\n' {
			break
		}
		p.advance()
	}
	return fmt.Errorf("line %d: unterminated url()", startLine)
}

func (p *parser) bare() string {
	start := p.pos
	for p.pos < len(p.src) && isNameByte(p.src[p.pos]) {
		p.pos++
	}
	return string(p.src[start:p.pos])
}

// skipBlanks skips spaces and tabs, and newlines too when the directive
// cannot end at a line break.
func (p *parser) skipBlanks(acrossLines bool) {
	for p.pos < len(p.src) {
		switch p.src[p.pos] {
		case ' ', '\t', '\r':
			p.pos++
		case '\n':
			if !acrossLines && p.indented {
				return
			}
			p.advance()
		default:
			if p.hasPrefix("/*") {
				p.skipBlockComment()
				continue
			}
			return
		}
	}
}

func (p *parser) skipLine() {
	for p.pos < len(p.src) && p.src[p.pos] != '\n' {
		p.pos++
	}
}

func (p *parser) skipBlockComment() {
	p.pos += 2
	for p.pos < len(p.src) && !p.hasPrefix("*/") {
		p.advance()
	}
	p.pos = min(p.pos+2, len(p.src))
}

// atKeyword reports whether an @import keyword starts at the current position.
func (p *parser) atKeyword() bool {
	if !p.hasPrefix(importKeyword) {
		return false
	}
	next := p.pos + len(importKeyword)
	return next == len(p.src) || !isNameByte(p.src[next])
}

// atEnd reports whether the directive reached a line break or the end of input.
func (p *parser) atEnd() bool {
	return p.pos >= len(p.src) || p.src[p.pos] == '\n'
}

func (p *parser) peek() byte {
	if p.pos >= len(p.src) {
		return 0
	}
	return p.src[p.pos]
}

func (p *parser) advance() {
	if p.pos < len(p.src) && p.src[p.pos] == '\n' {
		p.line++
	}
	p.pos++
}

func (p *parser) hasPrefix(s string) bool {
	return bytes.HasPrefix(p.src[p.pos:], []byte(s))
}

func (p *parser) errorf(format string, args ...any) error {
	return fmt.Errorf("line %d: %s", p.line, fmt.Sprintf(format, args...))
}

func isNameByte(c byte) bool {
	return c == '_' || c == '-' || c == '.' || c == '/' ||
		('a' <= c && c <= 'z') || ('A' <= c && c <= 'Z') || ('0' <= c && c <= '9')
}

func isRemote(name string) bool {
	return strings.HasPrefix(name, "http://") ||
		strings.HasPrefix(name, "https://") ||
		strings.HasPrefix(name, "//")
}
