package object

import (
	"fmt"
	"strconv"
)

// scanner walks a pack/unpack format string rune by rune. Both Pack and
// Unpack share this plumbing; the source's equivalent (rpc_object_vpack /
// rpc_object_unpack_layer) duplicates the scanning logic across two large
// functions, but the token grammar is the same, so here it is factored out
// once.
type scanner struct {
	runes []rune
	pos   int
}

func newScanner(format string) *scanner {
	return &scanner{runes: []rune(format)}
}

func (s *scanner) eof() bool { return s.pos >= len(s.runes) }

func (s *scanner) peek() rune {
	if s.eof() {
		return 0
	}
	return s.runes[s.pos]
}

func (s *scanner) next() (rune, error) {
	if s.eof() {
		return 0, fmt.Errorf("object: unexpected end of format string")
	}
	r := s.runes[s.pos]
	s.pos++
	return r, nil
}

func (s *scanner) expect(r rune) error {
	got, err := s.next()
	if err != nil {
		return err
	}
	if got != r {
		return fmt.Errorf("object: expected %q, got %q at offset %d", r, got, s.pos-1)
	}
	return nil
}

func isIdentRune(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r == '_'
}

// tryPrefix looks for an identifier run immediately followed by ':' at
// the scanner's current position (the key:/index: override syntax); if
// found it consumes through the colon and returns the identifier text. If
// not found the scanner position is left unchanged.
func (s *scanner) tryPrefix() (string, bool) {
	start := s.pos
	for !s.eof() && isIdentRune(s.peek()) {
		s.pos++
	}
	if s.pos > start && !s.eof() && s.peek() == ':' {
		prefix := string(s.runes[start:s.pos])
		s.pos++
		return prefix, true
	}
	s.pos = start
	return "", false
}

// readTypeName consumes a '<' ... '>' type-name token used to attach a
// type-registry back-pointer to the value that follows, matching the
// <type> wrapper in rpc_object_vpack's format grammar.
func (s *scanner) readTypeName() (string, error) {
	if err := s.expect('<'); err != nil {
		return "", err
	}
	start := s.pos
	for !s.eof() && s.peek() != '>' {
		s.pos++
	}
	if s.eof() {
		return "", fmt.Errorf("object: unterminated <type> in format string")
	}
	name := string(s.runes[start:s.pos])
	s.pos++ // consume '>'
	return name, nil
}

const scalarTokens = "nbBfiudsv"

func isScalarToken(prefix string) bool {
	return len(prefix) == 1 && containsRune(scalarTokens, rune(prefix[0]))
}

func containsRune(s string, r rune) bool {
	for _, c := range s {
		if c == r {
			return true
		}
	}
	return false
}

func parseDigits(s string) (int, error) {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("object: expected a numeric index, got %q", s)
	}
	return n, nil
}

// PackBinder attaches a type-registry instance to a freshly-built Value for
// the '<type>' pack token. Package typing implements this to avoid an
// import cycle (typing depends on object, not the reverse).
type PackBinder interface {
	Wrap(typeName string, value *Value) (*Value, error)
}
