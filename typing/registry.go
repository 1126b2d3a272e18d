package typing

import (
	"fmt"
	"sync"

	"github.com/cheewill/go-librpc/object"
)

// Registry holds every Type and Interface a caller has loaded, and
// resolves type declaration strings into Instances against that state.
// Unlike the rpct_* global registry, a Registry is an ordinary value: a
// service.Context owns one, and nothing prevents a process running more
// than one Context (and therefore more than one independent Registry)
// side by side.
type Registry struct {
	mu         sync.RWMutex
	types      map[string]*Type
	interfaces map[string]*Interface
	pending    []*idlFile
}

// NewRegistry returns a Registry pre-populated with the builtin scalar and
// container types that back the object package's Tags.
func NewRegistry() *Registry {
	r := &Registry{
		types:      map[string]*Type{},
		interfaces: map[string]*Interface{},
	}
	for _, b := range builtinTypes() {
		r.types[b.QualifiedName()] = b
	}
	return r
}

func builtinTypes() []*Type {
	scalar := func(tag object.Tag) *Type {
		return &Type{name: tag.String(), class: BuiltinClass, builtinTag: tag}
	}
	array := &Type{name: "array", class: BuiltinClass, builtinTag: object.Array, genericVars: []string{"V"}}
	dict := &Type{name: "dict", class: BuiltinClass, builtinTag: object.Dict, genericVars: []string{"K", "V"}}
	return []*Type{
		scalar(object.Null), scalar(object.Bool), scalar(object.Int64), scalar(object.Uint64),
		scalar(object.Double), scalar(object.Date), scalar(object.String), scalar(object.Binary),
		scalar(object.FD), scalar(object.Shmem), scalar(object.Error), array, dict,
	}
}

var (
	defaultOnce sync.Once
	defaultReg  *Registry
)

// Default returns a process-wide Registry, for callers that want the
// global-registry convenience rpct_init's process-global state offered.
// New code should generally prefer owning a Registry explicitly.
func Default() *Registry {
	defaultOnce.Do(func() { defaultReg = NewRegistry() })
	return defaultReg
}

// Type looks up a previously-registered type by its qualified name
// ("module.Name", or bare "Name" for builtins).
func (r *Registry) Type(qualifiedName string) *Type {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.types[qualifiedName]
}

// Interface looks up a previously-registered interface by name.
func (r *Registry) Interface(name string) *Interface {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.interfaces[name]
}

// Types returns every registered type, in no particular order.
func (r *Registry) Types() []*Type {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Type, 0, len(r.types))
	for _, t := range r.types {
		out = append(out, t)
	}
	return out
}

func (r *Registry) registerType(t *Type) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := t.QualifiedName()
	if _, exists := r.types[key]; exists {
		return fmt.Errorf("typing: type %q already registered", key)
	}
	r.types[key] = t
	return nil
}

func (r *Registry) registerInterface(i *Interface) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.interfaces[i.name]; exists {
		return fmt.Errorf("typing: interface %q already registered", i.name)
	}
	r.interfaces[i.name] = i
	return nil
}

// NewInstance resolves a type declaration string ("geom.Point",
// "array<int64>") into an Instance, the Go counterpart of rpct_new_typei.
func (r *Registry) NewInstance(decl string) (*Instance, error) {
	return r.NewInstanceInModule(decl, "")
}

// NewInstanceInModule is NewInstance with an implicit module context: a
// bare name is first looked up as "module.Name" before falling back to an
// unqualified (builtin) lookup.
func (r *Registry) NewInstanceInModule(decl, module string) (*Instance, error) {
	node, err := parseDecl(decl)
	if err != nil {
		return nil, err
	}
	return r.resolve(node, module)
}

func (r *Registry) resolve(node *declNode, module string) (*Instance, error) {
	t, err := r.lookupType(node.name, module)
	if err != nil {
		return nil, err
	}
	if len(node.args) > len(t.genericVars) {
		return nil, fmt.Errorf("typing: %s takes at most %d generic arguments, got %d",
			t.QualifiedName(), len(t.genericVars), len(node.args))
	}
	generics := map[string]*Instance{}
	for idx, arg := range node.args {
		inst, err := r.resolve(arg, module)
		if err != nil {
			return nil, err
		}
		generics[t.genericVars[idx]] = inst
	}
	return &Instance{typ: t, generics: generics}, nil
}

func (r *Registry) lookupType(name, module string) (*Type, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if containsDot(name) {
		if t, ok := r.types[name]; ok {
			return t, nil
		}
		return nil, fmt.Errorf("typing: unknown type %q", name)
	}
	if module != "" {
		if t, ok := r.types[module+"."+name]; ok {
			return t, nil
		}
	}
	if t, ok := r.types[name]; ok {
		return t, nil
	}
	return nil, fmt.Errorf("typing: unknown type %q", name)
}

func containsDot(s string) bool {
	for _, r := range s {
		if r == '.' {
			return true
		}
	}
	return false
}

// Wrap implements object.PackBinder, letting a Registry be passed directly
// to object.PackWithBinder so a format string's "<type>" tokens resolve
// against this Registry and attach the resulting Instance to the value.
func (r *Registry) Wrap(typeName string, value *object.Value) (*object.Value, error) {
	typei, err := r.NewInstance(typeName)
	if err != nil {
		value.Release()
		return nil, err
	}
	return value.SetTypeInstance(typei), nil
}
