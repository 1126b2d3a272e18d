package object

// NewDictFrom creates a Value of tag Dict taking ownership of values (no
// extra Retain is performed, matching NewArrayFrom's contract).
func NewDictFrom(values map[string]*Value) *Value {
	v := newValue(Dict)
	if values == nil {
		values = map[string]*Value{}
	}
	v.dict = values
	return v
}

// NewDict creates an empty Value of tag Dict.
func NewDict() *Value { return NewDictFrom(nil) }

// NewArray creates an empty Value of tag Array.
func NewArray() *Value { return NewArrayFrom(nil) }

// DictGet returns the value stored under key, or nil if absent or v is
// not a Dict, matching rpc_dictionary_get_value.
func (v *Value) DictGet(key string) *Value {
	if v == nil || v.tag != Dict {
		return nil
	}
	return v.dict[key]
}

// DictHas reports whether key is present in a Dict.
func (v *Value) DictHas(key string) bool {
	if v == nil || v.tag != Dict {
		return false
	}
	_, ok := v.dict[key]
	return ok
}

// DictSet stores value under key, retaining it and releasing whatever
// Value previously occupied that key, matching rpc_dictionary_set_value.
func (v *Value) DictSet(key string, value *Value) {
	if v == nil || v.tag != Dict {
		return
	}
	if old, ok := v.dict[key]; ok {
		old.Release()
	}
	v.dict[key] = value.Retain()
}

// DictRemove deletes and releases the value stored under key, matching
// rpc_dictionary_remove_key.
func (v *Value) DictRemove(key string) {
	if v == nil || v.tag != Dict {
		return
	}
	if old, ok := v.dict[key]; ok {
		old.Release()
		delete(v.dict, key)
	}
}

// Keys returns the dictionary's keys in unspecified order.
func (v *Value) Keys() []string {
	if v == nil || v.tag != Dict {
		return nil
	}
	keys := make([]string, 0, len(v.dict))
	for k := range v.dict {
		keys = append(keys, k)
	}
	return keys
}

// DictApply calls fn for each key/value pair, stopping early if fn
// returns false, mirroring rpc_dictionary_apply. Iteration order is the
// unordered Go map order, consistent with a Dict's hash being order-
// independent.
func (v *Value) DictApply(fn func(key string, value *Value) bool) {
	if v == nil || v.tag != Dict {
		return
	}
	for k, e := range v.dict {
		if !fn(k, e) {
			return
		}
	}
}

func (v *Value) dictSetScalar(key string, value *Value) { v.DictSet(key, value) }

// DictSetBool, DictSetInt64, DictSetUint64, DictSetDouble and
// DictSetString are typed convenience wrappers, mirroring
// rpc_dictionary_set_bool and its siblings.
func (v *Value) DictSetBool(key string, b bool)      { v.dictSetScalar(key, NewBool(b)) }
func (v *Value) DictSetInt64(key string, i int64)     { v.dictSetScalar(key, NewInt64(i)) }
func (v *Value) DictSetUint64(key string, u uint64)   { v.dictSetScalar(key, NewUint64(u)) }
func (v *Value) DictSetDouble(key string, d float64)  { v.dictSetScalar(key, NewDouble(d)) }
func (v *Value) DictSetString(key string, s string)   { v.dictSetScalar(key, NewString(s)) }
func (v *Value) DictSetFD(key string, fd int)         { v.dictSetScalar(key, NewFD(fd)) }
func (v *Value) DictSetData(key string, b []byte)     { v.dictSetScalar(key, NewData(b, true)) }

// DictGetBool, DictGetInt64, DictGetUint64, DictGetDouble and
// DictGetString read back the typed payload stored under key, returning
// the same fallback as the scalar accessor (zero value, or -1 for
// DictGetInt64) if key is absent or holds a different tag.
func (v *Value) DictGetBool(key string) bool      { return v.DictGet(key).Bool() }
func (v *Value) DictGetInt64(key string) int64    { return v.DictGet(key).Int64() }
func (v *Value) DictGetUint64(key string) uint64  { return v.DictGet(key).Uint64() }
func (v *Value) DictGetDouble(key string) float64 { return v.DictGet(key).Double() }
func (v *Value) DictGetString(key string) string  { return v.DictGet(key).String() }
func (v *Value) DictGetData(key string) []byte    { return v.DictGet(key).Data() }
