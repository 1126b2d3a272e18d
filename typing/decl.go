package typing

import (
	"fmt"
	"strings"
)

// declNode is the parsed form of a type declaration string such as
// "geom.Point" or "collections.HashMap<string, Array<int64>>", before any
// name in it has been resolved against a Registry.
type declNode struct {
	name string
	args []*declNode
}

// parseDecl parses a single type declaration. The grammar is:
//
//	decl := qualifiedName ('<' decl (',' decl)* '>')?
//	qualifiedName := identifier ('.' identifier)*
func parseDecl(decl string) (*declNode, error) {
	p := &declParser{s: []rune(strings.TrimSpace(decl))}
	n, err := p.parse()
	if err != nil {
		return nil, err
	}
	p.skipSpace()
	if p.pos != len(p.s) {
		return nil, fmt.Errorf("typing: trailing characters in declaration %q", decl)
	}
	return n, nil
}

type declParser struct {
	s   []rune
	pos int
}

func (p *declParser) skipSpace() {
	for p.pos < len(p.s) && (p.s[p.pos] == ' ' || p.s[p.pos] == '\t') {
		p.pos++
	}
}

func (p *declParser) parse() (*declNode, error) {
	p.skipSpace()
	start := p.pos
	for p.pos < len(p.s) && (isNameRune(p.s[p.pos]) || p.s[p.pos] == '.') {
		p.pos++
	}
	if p.pos == start {
		return nil, fmt.Errorf("typing: expected a type name at offset %d", start)
	}
	node := &declNode{name: string(p.s[start:p.pos])}
	p.skipSpace()
	if p.pos < len(p.s) && p.s[p.pos] == '<' {
		p.pos++
		for {
			arg, err := p.parse()
			if err != nil {
				return nil, err
			}
			node.args = append(node.args, arg)
			p.skipSpace()
			if p.pos >= len(p.s) {
				return nil, fmt.Errorf("typing: unterminated generic argument list in %q", string(p.s))
			}
			if p.s[p.pos] == ',' {
				p.pos++
				continue
			}
			if p.s[p.pos] == '>' {
				p.pos++
				break
			}
			return nil, fmt.Errorf("typing: expected ',' or '>' at offset %d", p.pos)
		}
	}
	return node, nil
}

func isNameRune(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r == '_'
}
