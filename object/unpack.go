package object

import "fmt"

// Unpack walks obj according to format, binding scalar leaves into the Go
// pointers supplied in outs, the counterpart of rpc_object_unpack. It
// recognises Pack's scalar and container tokens (see Pack's doc comment;
// the "<type>" wrapper is not accepted) plus two unpack-only tokens:
//
//	*    skip this position without binding anything
//	R    (array only, must be the final element) binds a *Value pointer
//	     to a new Array holding every remaining element from this
//	     position to the end
//
// Dict entries resolve their key exactly as Pack does: an explicit
// "literal:" prefix is used as-is, while a bare scalar-token prefix (by
// convention "s:") or no prefix at all consumes the next entry of outs as
// the key string. Array entries bind by position unless given an "N:"
// index prefix. Unpack returns the number of leaves actually bound.
func Unpack(obj *Value, format string, outs ...any) (int, error) {
	u := &unpacker{s: newScanner(format), outs: outs}
	if err := u.parseValue(obj); err != nil {
		return u.bound, err
	}
	if !u.s.eof() {
		return u.bound, fmt.Errorf("object: trailing characters in unpack format at offset %d", u.s.pos)
	}
	if u.outIdx != len(u.outs) {
		return u.bound, fmt.Errorf("object: %d unused unpack out-parameters", len(u.outs)-u.outIdx)
	}
	return u.bound, nil
}

type unpacker struct {
	s      *scanner
	outs   []any
	outIdx int
	bound  int
}

func (u *unpacker) nextOut() (any, error) {
	if u.outIdx >= len(u.outs) {
		return nil, fmt.Errorf("object: not enough out-parameters for unpack format")
	}
	o := u.outs[u.outIdx]
	u.outIdx++
	return o, nil
}

func (u *unpacker) parseValue(cur *Value) error {
	switch u.s.peek() {
	case '[':
		return u.parseArray(cur)
	case '{':
		return u.parseDict(cur)
	}
	ch, err := u.s.next()
	if err != nil {
		return err
	}
	if ch == '*' {
		return nil
	}
	out, err := u.nextOut()
	if err != nil {
		return err
	}
	switch ch {
	case 'n':
		return nil
	case 'b':
		p, ok := out.(*bool)
		if !ok {
			return fmt.Errorf("object: 'b' expects a *bool out-parameter, got %T", out)
		}
		*p = cur.Bool()
	case 'f':
		p, ok := out.(*int)
		if !ok {
			return fmt.Errorf("object: 'f' expects a *int out-parameter, got %T", out)
		}
		*p = cur.FD()
	case 'i':
		p, ok := out.(*int64)
		if !ok {
			return fmt.Errorf("object: 'i' expects a *int64 out-parameter, got %T", out)
		}
		*p = cur.Int64()
	case 'u':
		p, ok := out.(*uint64)
		if !ok {
			return fmt.Errorf("object: 'u' expects a *uint64 out-parameter, got %T", out)
		}
		*p = cur.Uint64()
	case 'd':
		p, ok := out.(*float64)
		if !ok {
			return fmt.Errorf("object: 'd' expects a *float64 out-parameter, got %T", out)
		}
		*p = cur.Double()
	case 's':
		p, ok := out.(*string)
		if !ok {
			return fmt.Errorf("object: 's' expects a *string out-parameter, got %T", out)
		}
		*p = cur.String()
	case 'B':
		p, ok := out.(*[]byte)
		if !ok {
			return fmt.Errorf("object: 'B' expects a *[]byte out-parameter, got %T", out)
		}
		*p = cur.Data()
	case 'v':
		p, ok := out.(**Value)
		if !ok {
			return fmt.Errorf("object: 'v' expects a **Value out-parameter, got %T", out)
		}
		*p = cur.Retain()
	default:
		return fmt.Errorf("object: unknown unpack token %q", ch)
	}
	u.bound++
	return nil
}

func (u *unpacker) parseArray(cur *Value) error {
	if err := u.s.expect('['); err != nil {
		return err
	}
	if cur.Tag() != Array {
		return fmt.Errorf("object: array unpack format applied to a %s value", cur.Tag())
	}
	if u.s.peek() == ']' {
		u.s.next()
		return nil
	}
	idx := 0
	for {
		if prefix, ok := u.s.tryPrefix(); ok {
			n, err := parseDigits(prefix)
			if err != nil {
				return err
			}
			idx = n
		}
		if u.s.peek() == 'R' {
			u.s.next()
			out, err := u.nextOut()
			if err != nil {
				return err
			}
			p, ok := out.(**Value)
			if !ok {
				return fmt.Errorf("object: 'R' expects a **Value out-parameter, got %T", out)
			}
			tail := cur.Slice(idx, -1)
			rest := make([]*Value, len(tail))
			for i, e := range tail {
				rest[i] = e.Retain()
			}
			*p = NewArrayFrom(rest)
			u.bound++
			if err := u.s.expect(']'); err != nil {
				return err
			}
			return nil
		}
		if err := u.parseValue(cur.Get(idx)); err != nil {
			return err
		}
		idx++
		switch u.s.peek() {
		case ',':
			u.s.next()
			continue
		case ']':
			u.s.next()
			return nil
		default:
			return fmt.Errorf("object: expected ',' or ']' in array format")
		}
	}
}

func (u *unpacker) parseDict(cur *Value) error {
	if err := u.s.expect('{'); err != nil {
		return err
	}
	if cur.Tag() != Dict {
		return fmt.Errorf("object: dict unpack format applied to a %s value", cur.Tag())
	}
	if u.s.peek() == '}' {
		u.s.next()
		return nil
	}
	for {
		key, err := u.dictKey()
		if err != nil {
			return err
		}
		if err := u.parseValue(cur.DictGet(key)); err != nil {
			return err
		}
		switch u.s.peek() {
		case ',':
			u.s.next()
			continue
		case '}':
			u.s.next()
			return nil
		default:
			return fmt.Errorf("object: expected ',' or '}' in dict format")
		}
	}
}

func (u *unpacker) dictKey() (string, error) {
	if prefix, ok := u.s.tryPrefix(); ok && !isScalarToken(prefix) {
		return prefix, nil
	}
	out, err := u.nextOut()
	if err != nil {
		return "", err
	}
	key, ok := out.(string)
	if !ok {
		return "", fmt.Errorf("object: dict key out-parameter must be a string, got %T", out)
	}
	return key, nil
}
