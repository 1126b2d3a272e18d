package typing

import (
	"fmt"

	"github.com/cheewill/go-librpc/object"
)

type fieldError struct {
	path    string
	message string
}

// Validate reports whether obj conforms to typei, the Go counterpart of
// rpct_validate. It returns an object.Value Array of {path, message} Dicts
// describing every violation found (empty if ok is true); unlike the
// source, which stops at the first error via its out-parameter, this
// walks the whole tree and reports every violation in one pass.
func Validate(typei *Instance, obj *object.Value) (errs *object.Value, ok bool) {
	var collected []fieldError
	validateInto("", typei, obj, &collected)
	arr := object.NewArray()
	for _, fe := range collected {
		d := object.NewDict()
		d.DictSetString("path", fe.path)
		d.DictSetString("message", fe.message)
		arr.Append(d)
		d.Release()
	}
	return arr, len(collected) == 0
}

func validateInto(path string, typei *Instance, obj *object.Value, errs *[]fieldError) {
	if typei == nil {
		return
	}
	t := typei.Type()
	switch t.Class() {
	case BuiltinClass:
		validateBuiltin(path, typei, t, obj, errs)
	case StructClass:
		validateStruct(path, t, obj, errs)
	case UnionClass:
		validateUnion(path, t, obj, errs)
	case EnumClass:
		validateEnum(path, t, obj, errs)
	case TypedefClass:
		validateInto(path, t.Definition(), obj, errs)
	}
}

func validateBuiltin(path string, typei *Instance, t *Type, obj *object.Value, errs *[]fieldError) {
	switch {
	case t.builtinTag == object.Array && len(t.genericVars) == 1:
		if obj.Tag() != object.Array {
			addErr(errs, path, fmt.Sprintf("expected array, got %s", obj.Tag()))
			return
		}
		elemType := typei.GenericVar(t.genericVars[0])
		obj.Apply(func(i int, e *object.Value) bool {
			validateInto(fmt.Sprintf("%s[%d]", path, i), elemType, e, errs)
			return true
		})
	case t.builtinTag == object.Dict && len(t.genericVars) == 2:
		if obj.Tag() != object.Dict {
			addErr(errs, path, fmt.Sprintf("expected dictionary, got %s", obj.Tag()))
			return
		}
		valType := typei.GenericVar(t.genericVars[1])
		obj.DictApply(func(k string, e *object.Value) bool {
			validateInto(path+"."+k, valType, e, errs)
			return true
		})
	default:
		if obj.Tag() != t.builtinTag {
			addErr(errs, path, fmt.Sprintf("expected %s, got %s", t.builtinTag, obj.Tag()))
		}
	}
}

func validateStruct(path string, t *Type, obj *object.Value, errs *[]fieldError) {
	if obj.Tag() != object.Dict {
		addErr(errs, path, fmt.Sprintf("expected struct %s (dict), got %s", t.QualifiedName(), obj.Tag()))
		return
	}
	members := structMembers(t)
	known := make(map[string]struct{}, len(members))
	for _, m := range members {
		known[m.Name()] = struct{}{}
		child := obj.DictGet(m.Name())
		if child == nil {
			addErr(errs, path+"."+m.Name(), "missing required member")
			continue
		}
		validateInto(path+"."+m.Name(), m.Typei(), child, errs)
	}
	for _, k := range obj.Keys() {
		if _, ok := known[k]; !ok {
			addErr(errs, path+"."+k, fmt.Sprintf("%q is not a member of struct %s", k, t.QualifiedName()))
		}
	}
}

func structMembers(t *Type) []*Member {
	var members []*Member
	if t.parent != nil {
		members = append(members, structMembers(t.parent)...)
	}
	return append(members, t.members...)
}

// validateUnion expects the same tagged-dict convention Serialize/
// Deserialize use: a Dict carrying a TypeField discriminator naming the
// variant, and a ValueField holding that variant's value.
func validateUnion(path string, t *Type, obj *object.Value, errs *[]fieldError) {
	if obj.Tag() != object.Dict {
		addErr(errs, path, fmt.Sprintf("expected a %s-tagged union dict for %s", TypeField, t.QualifiedName()))
		return
	}
	branch := obj.DictGetString(TypeField)
	m := t.Member(branch)
	if m == nil {
		addErr(errs, path, fmt.Sprintf("%q is not a branch of union %s", branch, t.QualifiedName()))
		return
	}
	validateInto(path+"."+branch, m.Typei(), obj.DictGet(ValueField), errs)
}

func validateEnum(path string, t *Type, obj *object.Value, errs *[]fieldError) {
	if obj.Tag() != object.String {
		addErr(errs, path, fmt.Sprintf("expected enum %s (string), got %s", t.QualifiedName(), obj.Tag()))
		return
	}
	if t.Member(obj.String()) == nil {
		addErr(errs, path, fmt.Sprintf("%q is not a value of enum %s", obj.String(), t.QualifiedName()))
	}
}

func addErr(errs *[]fieldError, path, message string) {
	*errs = append(*errs, fieldError{path: path, message: message})
}
