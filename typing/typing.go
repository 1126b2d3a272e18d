// Package typing implements the IDL-driven type registry layered on top
// of package object's untyped value graph: named struct/union/enum/typedef
// declarations, interface descriptions (methods/properties/events), and
// the validate/serialize/deserialize operations that relate a Type-
// Instance to the object.Value trees it accepts.
//
// Ported from the rpct_* prototypes of include/rpc/typing.h. Unlike the C
// library, which keeps all loaded types in process-global state, the
// registry here is a value a caller owns (typically one per
// service.Context); Default returns a package-level instance for callers
// that want the global-registry convenience the source offers.
package typing

import "github.com/cheewill/go-librpc/object"

// Class is the rpct_class_t type classification.
type Class int

const (
	StructClass Class = iota
	UnionClass
	EnumClass
	TypedefClass
	BuiltinClass
)

func (c Class) String() string {
	switch c {
	case StructClass:
		return "struct"
	case UnionClass:
		return "union"
	case EnumClass:
		return "enum"
	case TypedefClass:
		return "typedef"
	case BuiltinClass:
		return "builtin"
	default:
		return "unknown"
	}
}

// Type is an unspecialized type declaration (rpct_type_t): "Point",
// "HashMap<K, V>" before any generic variable has been bound to a
// concrete type.
type Type struct {
	name        string
	module      string
	description string
	class       Class
	parent      *Type     // struct inheritance, or nil
	definition  *Instance // TypedefClass: the aliased type instance
	builtinTag  object.Tag
	genericVars []string
	members     []*Member
	memberIndex map[string]*Member
}

// Name returns the type's unqualified name.
func (t *Type) Name() string { return t.name }

// Module returns the module the type was declared in ("" for builtins).
func (t *Type) Module() string { return t.module }

// QualifiedName returns "module.Name", or just "Name" for builtins.
func (t *Type) QualifiedName() string {
	if t.module == "" {
		return t.name
	}
	return t.module + "." + t.name
}

// Description returns the type's doc text, or "".
func (t *Type) Description() string { return t.description }

// Class returns the type's class.
func (t *Type) Class() Class { return t.class }

// Parent returns the base type in a struct's inheritance chain, or nil.
func (t *Type) Parent() *Type { return t.parent }

// Definition returns the underlying type instance of a TypedefClass type,
// or nil for every other class.
func (t *Type) Definition() *Instance { return t.definition }

// GenericVars returns the names of the type's generic placeholders, in
// declaration order; empty for non-generic types.
func (t *Type) GenericVars() []string { return t.genericVars }

// Member looks up a struct/union/enum member by name.
func (t *Type) Member(name string) *Member { return t.memberIndex[name] }

// Members returns every member of the type, in declaration order.
func (t *Type) Members() []*Member { return t.members }

// Member is a struct field, union branch, or enum value (rpct_member_t).
// Enum members carry a nil Typei, matching rpct_member_get_typei's
// documented NULL return for that case.
type Member struct {
	name        string
	description string
	typei       *Instance
}

func (m *Member) Name() string        { return m.name }
func (m *Member) Description() string { return m.description }
func (m *Member) Typei() *Instance     { return m.typei }

// Instance is a specialized (or partially specialized) type, binding some
// or all of a Type's generic variables to concrete Instances
// (rpct_typei_t). A non-generic Type has exactly one Instance, itself.
type Instance struct {
	typ      *Type
	generics map[string]*Instance
}

// Type returns the unspecialized Type this Instance specializes.
func (i *Instance) Type() *Type { return i.typ }

// GenericVar returns the Instance bound to a named generic variable, or
// nil if that variable is unspecialized (a partially-specialized Instance)
// or name is not one of the Type's generic variables.
func (i *Instance) GenericVar(name string) *Instance { return i.generics[name] }

// CanonicalForm renders the type declaration string identifying this
// Instance, e.g. "geom.Point" or "collections.HashMap<string,double>".
// Two Instances with identical canonical forms are defined to accept the
// same set of Values (§8's canonical-form injectivity property).
// CanonicalForm implements object.TypeBinder, letting a *Instance be
// attached directly as a Value's type back-pointer.
func (i *Instance) CanonicalForm() string {
	base := i.typ.QualifiedName()
	if len(i.typ.genericVars) == 0 {
		return base
	}
	args := make([]string, len(i.typ.genericVars))
	for idx, v := range i.typ.genericVars {
		if bound := i.generics[v]; bound != nil {
			args[idx] = bound.CanonicalForm()
		} else {
			args[idx] = v
		}
	}
	s := base + "<"
	for idx, a := range args {
		if idx > 0 {
			s += ","
		}
		s += a
	}
	return s + ">"
}

// Interface is a named collection of methods, properties and events
// (rpct_interface_t).
type Interface struct {
	name        string
	description string
	members     []*InterfaceMember
	memberIndex map[string]*InterfaceMember
}

func (f *Interface) Name() string        { return f.name }
func (f *Interface) Description() string { return f.description }
func (f *Interface) Member(name string) *InterfaceMember { return f.memberIndex[name] }
func (f *Interface) Members() []*InterfaceMember          { return f.members }

// MemberKind distinguishes the three shapes an InterfaceMember can take.
type MemberKind int

const (
	Method MemberKind = iota
	Property
	Event
)

func (k MemberKind) String() string {
	switch k {
	case Method:
		return "method"
	case Property:
		return "property"
	case Event:
		return "event"
	default:
		return "unknown"
	}
}

// InterfaceMember is a method, property or event declaration
// (rpct_if_member_t).
type InterfaceMember struct {
	kind         MemberKind
	name         string
	description  string
	returnType   *Instance   // Method
	arguments    []*Argument // Method
	propertyType *Instance   // Property
	eventType    *Instance   // Event, may be nil (no payload)
}

func (m *InterfaceMember) Kind() MemberKind     { return m.kind }
func (m *InterfaceMember) Name() string         { return m.name }
func (m *InterfaceMember) Description() string  { return m.description }
func (m *InterfaceMember) ReturnType() *Instance { return m.returnType }
func (m *InterfaceMember) Arguments() []*Argument { return m.arguments }
func (m *InterfaceMember) PropertyType() *Instance { return m.propertyType }
func (m *InterfaceMember) EventType() *Instance    { return m.eventType }

// Argument is a single formal parameter of a method (rpct_argument_t).
type Argument struct {
	name        string
	description string
	typei       *Instance
}

func (a *Argument) Name() string        { return a.name }
func (a *Argument) Description() string { return a.description }
func (a *Argument) Typei() *Instance     { return a.typei }
