package object

import "fmt"

// Pack builds a Value tree from a compact format string and a matching
// list of arguments, the Go counterpart of rpc_object_pack. Recognised
// tokens:
//
//	n          null
//	b          bool, consumes one bool argument
//	B          binary, consumes one []byte and one bool (copy) argument
//	f          file descriptor, consumes one int argument
//	i          int64, consumes one int/int64 argument
//	u          uint64, consumes one uint/uint64 argument
//	d          double, consumes one float64 argument
//	s          string, consumes one string argument
//	v          embeds an already-built *Value argument as-is
//	[ ... ]    array; comma-separated elements, each optionally prefixed
//	           by "N:" to set an explicit index instead of appending
//	{ ... }    dict; comma-separated entries, each optionally prefixed by
//	           "key:" to use a literal key instead of consuming a string
//	           argument (a bare scalar-token prefix like "s:" still pulls
//	           the key from the argument stream, matching
//	           rpc_object_pack's own "{s:i}"-style format strings)
//	<type> v   wraps v with a type-registry instance named "type" (only
//	           valid via PackWithBinder)
//
// Every returned Value (and every Value nested inside it) carries exactly
// one reference owned by the caller.
func Pack(format string, args ...any) (*Value, error) {
	return PackWithBinder(format, nil, args...)
}

// PackWithBinder is Pack with support for the "<type>" token: typeName is
// looked up via binder.Wrap to attach a type-registry instance to the
// value that follows it.
func PackWithBinder(format string, binder PackBinder, args ...any) (*Value, error) {
	p := &packer{s: newScanner(format), args: args, binder: binder}
	v, err := p.parseValue()
	if err != nil {
		return nil, err
	}
	if !p.s.eof() {
		v.Release()
		return nil, fmt.Errorf("object: trailing characters in pack format at offset %d", p.s.pos)
	}
	if p.argIdx != len(p.args) {
		v.Release()
		return nil, fmt.Errorf("object: %d unused pack arguments", len(p.args)-p.argIdx)
	}
	return v, nil
}

type packer struct {
	s      *scanner
	args   []any
	argIdx int
	binder PackBinder
}

func (p *packer) nextArg() (any, error) {
	if p.argIdx >= len(p.args) {
		return nil, fmt.Errorf("object: not enough arguments for pack format")
	}
	a := p.args[p.argIdx]
	p.argIdx++
	return a, nil
}

func (p *packer) parseValue() (*Value, error) {
	switch p.s.peek() {
	case '<':
		typeName, err := p.s.readTypeName()
		if err != nil {
			return nil, err
		}
		inner, err := p.parseValue()
		if err != nil {
			return nil, err
		}
		if p.binder == nil {
			inner.Release()
			return nil, fmt.Errorf("object: <%s> requires a type binder", typeName)
		}
		return p.binder.Wrap(typeName, inner)
	case '[':
		return p.parseArray()
	case '{':
		return p.parseDict()
	}
	ch, err := p.s.next()
	if err != nil {
		return nil, err
	}
	switch ch {
	case 'n':
		return NewNull(), nil
	case 'b':
		arg, err := p.nextArg()
		if err != nil {
			return nil, err
		}
		b, ok := arg.(bool)
		if !ok {
			return nil, fmt.Errorf("object: 'b' expects a bool argument, got %T", arg)
		}
		return NewBool(b), nil
	case 'B':
		dataArg, err := p.nextArg()
		if err != nil {
			return nil, err
		}
		data, ok := dataArg.([]byte)
		if !ok {
			return nil, fmt.Errorf("object: 'B' expects a []byte argument, got %T", dataArg)
		}
		copyArg, err := p.nextArg()
		if err != nil {
			return nil, err
		}
		cp, ok := copyArg.(bool)
		if !ok {
			return nil, fmt.Errorf("object: 'B' expects a bool copy-flag argument, got %T", copyArg)
		}
		return NewData(data, cp), nil
	case 'f':
		arg, err := p.nextArg()
		if err != nil {
			return nil, err
		}
		fd, ok := arg.(int)
		if !ok {
			return nil, fmt.Errorf("object: 'f' expects an int argument, got %T", arg)
		}
		return NewFD(fd), nil
	case 'i':
		arg, err := p.nextArg()
		if err != nil {
			return nil, err
		}
		i, err := asInt64(arg)
		if err != nil {
			return nil, err
		}
		return NewInt64(i), nil
	case 'u':
		arg, err := p.nextArg()
		if err != nil {
			return nil, err
		}
		u, err := asUint64(arg)
		if err != nil {
			return nil, err
		}
		return NewUint64(u), nil
	case 'd':
		arg, err := p.nextArg()
		if err != nil {
			return nil, err
		}
		d, ok := arg.(float64)
		if !ok {
			return nil, fmt.Errorf("object: 'd' expects a float64 argument, got %T", arg)
		}
		return NewDouble(d), nil
	case 's':
		arg, err := p.nextArg()
		if err != nil {
			return nil, err
		}
		str, ok := arg.(string)
		if !ok {
			return nil, fmt.Errorf("object: 's' expects a string argument, got %T", arg)
		}
		return NewString(str), nil
	case 'v':
		arg, err := p.nextArg()
		if err != nil {
			return nil, err
		}
		val, ok := arg.(*Value)
		if !ok {
			return nil, fmt.Errorf("object: 'v' expects a *Value argument, got %T", arg)
		}
		return val.Retain(), nil
	default:
		return nil, fmt.Errorf("object: unknown pack token %q", ch)
	}
}

func (p *packer) parseArray() (*Value, error) {
	if err := p.s.expect('['); err != nil {
		return nil, err
	}
	arr := NewArray()
	if p.s.peek() == ']' {
		p.s.next()
		return arr, nil
	}
	for {
		idx := -1
		if prefix, ok := p.s.tryPrefix(); ok {
			n, err := parseDigits(prefix)
			if err != nil {
				arr.Release()
				return nil, err
			}
			idx = n
		}
		val, err := p.parseValue()
		if err != nil {
			arr.Release()
			return nil, err
		}
		if idx >= 0 {
			arr.Set(idx, val)
		} else {
			arr.Append(val)
		}
		val.Release()
		switch p.s.peek() {
		case ',':
			p.s.next()
			continue
		case ']':
			p.s.next()
			return arr, nil
		default:
			arr.Release()
			return nil, fmt.Errorf("object: expected ',' or ']' in array format")
		}
	}
}

func (p *packer) parseDict() (*Value, error) {
	if err := p.s.expect('{'); err != nil {
		return nil, err
	}
	dict := NewDict()
	if p.s.peek() == '}' {
		p.s.next()
		return dict, nil
	}
	for {
		key, err := p.dictKey()
		if err != nil {
			dict.Release()
			return nil, err
		}
		val, err := p.parseValue()
		if err != nil {
			dict.Release()
			return nil, err
		}
		dict.DictSet(key, val)
		val.Release()
		switch p.s.peek() {
		case ',':
			p.s.next()
			continue
		case '}':
			p.s.next()
			return dict, nil
		default:
			dict.Release()
			return nil, fmt.Errorf("object: expected ',' or '}' in dict format")
		}
	}
}

// dictKey resolves the key for one dict entry: an explicit literal prefix
// wins, a scalar-token prefix (conventionally "s") or no prefix at all
// both pull the next string argument from the stream.
func (p *packer) dictKey() (string, error) {
	if prefix, ok := p.s.tryPrefix(); ok && !isScalarToken(prefix) {
		return prefix, nil
	}
	arg, err := p.nextArg()
	if err != nil {
		return "", err
	}
	key, ok := arg.(string)
	if !ok {
		return "", fmt.Errorf("object: dict key argument must be a string, got %T", arg)
	}
	return key, nil
}

func asInt64(arg any) (int64, error) {
	switch a := arg.(type) {
	case int64:
		return a, nil
	case int:
		return int64(a), nil
	case int32:
		return int64(a), nil
	default:
		return 0, fmt.Errorf("object: 'i' expects an integer argument, got %T", arg)
	}
}

func asUint64(arg any) (uint64, error) {
	switch a := arg.(type) {
	case uint64:
		return a, nil
	case uint:
		return uint64(a), nil
	case uint32:
		return uint64(a), nil
	default:
		return 0, fmt.Errorf("object: 'u' expects an unsigned integer argument, got %T", arg)
	}
}
