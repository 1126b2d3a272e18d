package typing

import (
	"fmt"
	"io/fs"
	"path"
	"strings"

	goccy "github.com/goccy/go-json"
)

// The on-disk IDL format is plain JSON, one file per module, structured
// after the struct/union/enum/typedef/interface vocabulary of typing.h.
// Loading happens in two passes, matching rpct_read_file followed by
// rpct_load_types: ReadFile parses every declared type/interface name into
// a stub entry (so forward and cross-file references resolve regardless
// of load order), and Resolve fills in each stub's body once every file
// that might be referenced has been read.

type idlFile struct {
	Module      string        `json:"module"`
	Description string        `json:"description"`
	Types       []idlType     `json:"types"`
	Interfaces  []idlInterface `json:"interfaces"`
}

type idlType struct {
	Name        string      `json:"name"`
	Class       string      `json:"class"`
	Description string      `json:"description"`
	Parent      string      `json:"parent,omitempty"`
	Generics    []string    `json:"generics,omitempty"`
	Members     []idlMember `json:"members,omitempty"`
	Definition  string      `json:"definition,omitempty"`
}

type idlMember struct {
	Name        string `json:"name"`
	Type        string `json:"type,omitempty"`
	Description string `json:"description,omitempty"`
}

type idlInterface struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Methods     []idlMethod    `json:"methods,omitempty"`
	Properties  []idlProperty  `json:"properties,omitempty"`
	Events      []idlEvent     `json:"events,omitempty"`
}

type idlMethod struct {
	Name        string        `json:"name"`
	Description string        `json:"description,omitempty"`
	Returns     string        `json:"returns,omitempty"`
	Arguments   []idlArgument `json:"arguments,omitempty"`
}

type idlArgument struct {
	Name        string `json:"name"`
	Type        string `json:"type"`
	Description string `json:"description,omitempty"`
}

type idlProperty struct {
	Name        string `json:"name"`
	Type        string `json:"type"`
	Description string `json:"description,omitempty"`
}

type idlEvent struct {
	Name        string `json:"name"`
	Type        string `json:"type,omitempty"`
	Description string `json:"description,omitempty"`
}

func parseClass(s string) Class {
	switch s {
	case "struct":
		return StructClass
	case "union":
		return UnionClass
	case "enum":
		return EnumClass
	case "typedef":
		return TypedefClass
	default:
		return StructClass
	}
}

// ReadFile parses one IDL JSON document and registers a stub Type for
// every type it declares and a stub Interface for every interface it
// declares, without yet resolving member/argument/definition type
// instances. Call Resolve once every relevant file has been read.
func (r *Registry) ReadFile(fsys fs.FS, filePath string) error {
	data, err := fs.ReadFile(fsys, filePath)
	if err != nil {
		return fmt.Errorf("typing: reading %s: %w", filePath, err)
	}
	var f idlFile
	if err := goccy.Unmarshal(data, &f); err != nil {
		return fmt.Errorf("typing: parsing %s: %w", filePath, err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	for _, it := range f.Types {
		t := &Type{
			name:        it.Name,
			module:      f.Module,
			description: it.Description,
			class:       parseClass(it.Class),
			genericVars: it.Generics,
			memberIndex: map[string]*Member{},
		}
		key := t.QualifiedName()
		if _, exists := r.types[key]; exists {
			return fmt.Errorf("typing: type %q already registered (in %s)", key, filePath)
		}
		r.types[key] = t
	}
	for _, ii := range f.Interfaces {
		if _, exists := r.interfaces[ii.Name]; exists {
			return fmt.Errorf("typing: interface %q already registered (in %s)", ii.Name, filePath)
		}
		r.interfaces[ii.Name] = &Interface{
			name:        ii.Name,
			description: ii.Description,
			memberIndex: map[string]*InterfaceMember{},
		}
	}
	r.pending = append(r.pending, &f)
	return nil
}

// LoadDir reads and resolves every ".json" IDL file under root, walking
// subdirectories, the counterpart of rpct_load_types_dir.
func (r *Registry) LoadDir(fsys fs.FS, root string) error {
	err := fs.WalkDir(fsys, root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || path.Ext(p) != ".json" {
			return nil
		}
		return r.ReadFile(fsys, p)
	})
	if err != nil {
		return err
	}
	return r.Resolve()
}

// Resolve fills in the body of every type and interface registered via
// ReadFile since the last Resolve call: struct/union/enum members, typedef
// definitions, and interface method/property/event signatures. It is
// meant to be called once loading is complete, not interleaved with
// concurrent validation/serialization traffic.
func (r *Registry) Resolve() error {
	r.mu.Lock()
	pending := r.pending
	r.pending = nil
	r.mu.Unlock()

	for _, f := range pending {
		if err := r.resolveFile(f); err != nil {
			return err
		}
	}
	return nil
}

func (r *Registry) resolveFile(f *idlFile) error {
	module := f.Module
	for _, it := range f.Types {
		t := r.Type(qualify(module, it.Name))
		if t == nil {
			return fmt.Errorf("typing: internal error: stub for %q missing", qualify(module, it.Name))
		}
		if it.Parent != "" {
			parent, err := r.lookupType(it.Parent, module)
			if err != nil {
				return err
			}
			t.parent = parent
		}
		if it.Class == "typedef" {
			def, err := r.resolveDecl(it.Definition, module)
			if err != nil {
				return err
			}
			t.definition = def
			continue
		}
		for _, m := range it.Members {
			var typei *Instance
			if t.class != EnumClass && m.Type != "" {
				var err error
				typei, err = r.resolveDecl(m.Type, module)
				if err != nil {
					return err
				}
			}
			member := &Member{name: m.Name, description: m.Description, typei: typei}
			t.members = append(t.members, member)
			t.memberIndex[m.Name] = member
		}
	}
	for _, ii := range f.Interfaces {
		iface := r.Interface(ii.Name)
		if iface == nil {
			return fmt.Errorf("typing: internal error: stub for interface %q missing", ii.Name)
		}
		for _, me := range ii.Methods {
			ret, err := r.resolveDeclOptional(me.Returns, module)
			if err != nil {
				return err
			}
			args := make([]*Argument, 0, len(me.Arguments))
			for _, a := range me.Arguments {
				at, err := r.resolveDecl(a.Type, module)
				if err != nil {
					return err
				}
				args = append(args, &Argument{name: a.Name, description: a.Description, typei: at})
			}
			im := &InterfaceMember{kind: Method, name: me.Name, description: me.Description, returnType: ret, arguments: args}
			iface.members = append(iface.members, im)
			iface.memberIndex[me.Name] = im
		}
		for _, p := range ii.Properties {
			pt, err := r.resolveDecl(p.Type, module)
			if err != nil {
				return err
			}
			im := &InterfaceMember{kind: Property, name: p.Name, description: p.Description, propertyType: pt}
			iface.members = append(iface.members, im)
			iface.memberIndex[p.Name] = im
		}
		for _, e := range ii.Events {
			et, err := r.resolveDeclOptional(e.Type, module)
			if err != nil {
				return err
			}
			im := &InterfaceMember{kind: Event, name: e.Name, description: e.Description, eventType: et}
			iface.members = append(iface.members, im)
			iface.memberIndex[e.Name] = im
		}
	}
	return nil
}

func (r *Registry) resolveDecl(decl, module string) (*Instance, error) {
	node, err := parseDecl(decl)
	if err != nil {
		return nil, err
	}
	return r.resolve(node, module)
}

func (r *Registry) resolveDeclOptional(decl, module string) (*Instance, error) {
	if strings.TrimSpace(decl) == "" {
		return nil, nil
	}
	return r.resolveDecl(decl, module)
}

func qualify(module, name string) string {
	if module == "" {
		return name
	}
	return module + "." + name
}
