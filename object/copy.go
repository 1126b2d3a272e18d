package object

// Copy produces a deep, independent duplicate of v, matching rpc_copy.
// Scalars are duplicated by value. Descriptors and shared-memory segments
// are duplicated at the OS level (dup(2)) so the copy's lifetime is
// independent of v's. Containers recurse; the returned tree shares no
// *Value pointers with v.
func (v *Value) Copy() (*Value, error) {
	if v == nil {
		return nil, nil
	}
	switch v.tag {
	case Null:
		return NewNull(), nil
	case Bool:
		return NewBool(v.b), nil
	case Int64:
		return NewInt64(v.i), nil
	case Uint64:
		return NewUint64(v.u), nil
	case Double:
		return NewDouble(v.d), nil
	case Date:
		return NewDate(v.date), nil
	case String:
		return NewString(v.str), nil
	case Binary:
		return NewData(v.bin.data, true), nil
	case FD:
		return v.Dup()
	case Shmem:
		nfd, err := dupShmemFD(v.shmem.fd)
		if err != nil {
			return nil, err
		}
		return NewShmemFromFD(nfd, v.shmem.offset, v.shmem.size), nil
	case Error:
		extra, err := v.err.extra.Copy()
		if err != nil {
			return nil, err
		}
		stack, err := v.err.stack.Copy()
		if err != nil {
			return nil, err
		}
		return NewErrorWithStack(v.err.code, v.err.message, extra, stack), nil
	case Array:
		out := make([]*Value, len(v.arr))
		for i, e := range v.arr {
			c, err := e.Copy()
			if err != nil {
				for _, done := range out[:i] {
					done.Release()
				}
				return nil, err
			}
			out[i] = c
		}
		return NewArrayFrom(out), nil
	case Dict:
		out := make(map[string]*Value, len(v.dict))
		for k, e := range v.dict {
			c, err := e.Copy()
			if err != nil {
				for _, done := range out {
					done.Release()
				}
				return nil, err
			}
			out[k] = c
		}
		return NewDictFrom(out), nil
	default:
		return NewNull(), nil
	}
}
