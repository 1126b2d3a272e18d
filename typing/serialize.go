package typing

import "github.com/cheewill/go-librpc/object"

// TypeField and ValueField are the reserved dictionary keys a serialized
// typed value is wrapped in, matching RPCT_TYPE_FIELD/RPCT_VALUE_FIELD.
const (
	TypeField  = "%type"
	ValueField = "%value"
)

// Serialize renders v into a plain object.Value tree where every sub-value
// that carries a type-registry back-pointer is replaced by a two-key Dict
// {"%type": canonicalForm, "%value": rawValue}, matching rpct_serialize.
// The result carries no Instance back-pointers itself, making it safe to
// hand to package codec for wire encoding.
func Serialize(v *object.Value) *object.Value {
	inner := serializeChildren(v)
	if ti := v.TypeInstance(); ti != nil {
		wrapper := object.NewDict()
		wrapper.DictSetString(TypeField, ti.CanonicalForm())
		wrapper.DictSet(ValueField, inner)
		inner.Release()
		return wrapper
	}
	return inner
}

func serializeChildren(v *object.Value) *object.Value {
	if v == nil {
		return object.NewNull()
	}
	switch v.Tag() {
	case object.Array:
		out := make([]*object.Value, 0, v.Count())
		v.Apply(func(_ int, e *object.Value) bool {
			out = append(out, Serialize(e))
			return true
		})
		return object.NewArrayFrom(out)
	case object.Dict:
		out := make(map[string]*object.Value, v.Count())
		v.DictApply(func(k string, e *object.Value) bool {
			out[k] = Serialize(e)
			return true
		})
		return object.NewDictFrom(out)
	default:
		return v.Retain()
	}
}

// Deserialize reverses Serialize against reg: every {"%type","%value"}
// Dict it encounters is unwrapped and its declared type instance is
// resolved and re-attached, matching rpct_deserialize.
func Deserialize(reg *Registry, v *object.Value) (*object.Value, error) {
	if v.Tag() == object.Dict && v.Count() == 2 && v.DictHas(TypeField) && v.DictHas(ValueField) {
		typei, err := reg.NewInstance(v.DictGetString(TypeField))
		if err != nil {
			return nil, err
		}
		inner, err := Deserialize(reg, v.DictGet(ValueField))
		if err != nil {
			return nil, err
		}
		return inner.SetTypeInstance(typei), nil
	}
	switch v.Tag() {
	case object.Array:
		out := make([]*object.Value, 0, v.Count())
		var err error
		v.Apply(func(_ int, e *object.Value) bool {
			var c *object.Value
			if c, err = Deserialize(reg, e); err != nil {
				return false
			}
			out = append(out, c)
			return true
		})
		if err != nil {
			for _, o := range out {
				o.Release()
			}
			return nil, err
		}
		return object.NewArrayFrom(out), nil
	case object.Dict:
		out := make(map[string]*object.Value, v.Count())
		var err error
		v.DictApply(func(k string, e *object.Value) bool {
			var c *object.Value
			if c, err = Deserialize(reg, e); err != nil {
				return false
			}
			out[k] = c
			return true
		})
		if err != nil {
			for _, o := range out {
				o.Release()
			}
			return nil, err
		}
		return object.NewDictFrom(out), nil
	default:
		return v.Retain(), nil
	}
}
