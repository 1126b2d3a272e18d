package object

import "sort"

// NewArrayFrom creates a Value of tag Array taking ownership of values
// (no extra Retain is performed; pass values already Retained for this
// array if the caller keeps its own reference).
func NewArrayFrom(values []*Value) *Value {
	v := newValue(Array)
	v.arr = values
	return v
}

// Count returns the number of elements in an Array, or the number of keys
// in a Dict; 0 for any other tag.
func (v *Value) Count() int {
	if v == nil {
		return 0
	}
	switch v.tag {
	case Array:
		return len(v.arr)
	case Dict:
		return len(v.dict)
	default:
		return 0
	}
}

// Get returns the element at idx, or nil if out of range or v is not an
// Array, matching rpc_array_get_value's out-of-bounds behaviour.
func (v *Value) Get(idx int) *Value {
	if v == nil || v.tag != Array || idx < 0 || idx >= len(v.arr) {
		return nil
	}
	return v.arr[idx]
}

// Set stores value at idx, extending the array with Null padding and
// retaining value; it releases whatever Value previously lived at idx.
// Matches rpc_array_set_value's auto-grow behaviour.
func (v *Value) Set(idx int, value *Value) {
	if v == nil || v.tag != Array || idx < 0 {
		return
	}
	for len(v.arr) <= idx {
		v.arr = append(v.arr, NewNull())
	}
	if v.arr[idx] != nil {
		v.arr[idx].Release()
	}
	v.arr[idx] = value.Retain()
}

// Append adds value to the end of the array, retaining it.
func (v *Value) Append(value *Value) {
	if v == nil || v.tag != Array {
		return
	}
	v.arr = append(v.arr, value.Retain())
}

// RemoveAt deletes and releases the element at idx, shifting later
// elements down, matching rpc_array_remove_value.
func (v *Value) RemoveAt(idx int) {
	if v == nil || v.tag != Array || idx < 0 || idx >= len(v.arr) {
		return
	}
	v.arr[idx].Release()
	v.arr = append(v.arr[:idx], v.arr[idx+1:]...)
}

// Slice returns the elements from start for length elements (length < 0
// means "to the end"), without retaining them or copying the backing
// array; used by the 'R' unpack token to capture array tails.
func (v *Value) Slice(start, length int) []*Value {
	if v == nil || v.tag != Array || start < 0 || start > len(v.arr) {
		return nil
	}
	end := len(v.arr)
	if length >= 0 && start+length < end {
		end = start + length
	}
	return v.arr[start:end]
}

// Apply calls fn for each element in order, stopping early if fn returns
// false, mirroring rpc_array_apply.
func (v *Value) Apply(fn func(idx int, value *Value) bool) {
	if v == nil || v.tag != Array {
		return
	}
	for i, e := range v.arr {
		if !fn(i, e) {
			return
		}
	}
}

// ReverseApply calls fn for each element from last to first, mirroring
// rpc_array_reverse_apply.
func (v *Value) ReverseApply(fn func(idx int, value *Value) bool) {
	if v == nil || v.tag != Array {
		return
	}
	for i := len(v.arr) - 1; i >= 0; i-- {
		if !fn(i, v.arr[i]) {
			return
		}
	}
}

// Contains reports whether value is structurally Equal to any element.
func (v *Value) Contains(value *Value) bool {
	found := false
	v.Apply(func(_ int, e *Value) bool {
		if Equal(e, value) {
			found = true
			return false
		}
		return true
	})
	return found
}

// Sort orders the array in place using less, mirroring rpc_array_sort's
// caller-supplied comparator.
func (v *Value) Sort(less func(a, b *Value) bool) {
	if v == nil || v.tag != Array {
		return
	}
	sort.SliceStable(v.arr, func(i, j int) bool { return less(v.arr[i], v.arr[j]) })
}

func (v *Value) arraySetScalar(idx int, value *Value) { v.Set(idx, value) }

// SetBool, SetInt64, SetUint64, SetDouble and SetString are typed
// convenience wrappers over Set, mirroring rpc_array_set_bool and its
// siblings in the source.
func (v *Value) SetBool(idx int, b bool)        { v.arraySetScalar(idx, NewBool(b)) }
func (v *Value) SetInt64(idx int, i int64)      { v.arraySetScalar(idx, NewInt64(i)) }
func (v *Value) SetUint64(idx int, u uint64)    { v.arraySetScalar(idx, NewUint64(u)) }
func (v *Value) SetDouble(idx int, d float64)   { v.arraySetScalar(idx, NewDouble(d)) }
func (v *Value) SetString(idx int, s string)    { v.arraySetScalar(idx, NewString(s)) }
func (v *Value) SetFD(idx int, fd int)          { v.arraySetScalar(idx, NewFD(fd)) }
func (v *Value) SetData(idx int, b []byte)      { v.arraySetScalar(idx, NewData(b, true)) }

// GetBool, GetInt64, GetUint64, GetDouble and GetString read back the
// typed payload of the element at idx, returning the same fallback as the
// scalar accessor (zero value, or -1 for GetInt64) if idx is out of range
// or the element has a different tag.
func (v *Value) GetBool(idx int) bool       { return v.Get(idx).Bool() }
func (v *Value) GetInt64(idx int) int64     { return v.Get(idx).Int64() }
func (v *Value) GetUint64(idx int) uint64   { return v.Get(idx).Uint64() }
func (v *Value) GetDouble(idx int) float64  { return v.Get(idx).Double() }
func (v *Value) GetString(idx int) string   { return v.Get(idx).String() }
func (v *Value) GetData(idx int) []byte     { return v.Get(idx).Data() }
