package typegraph

import (
	"fmt"
	"sort"
	"strings"
)

// Kind distinguishes classes from interfaces
type Kind int

const (
	// KindClass is a class with at most one superclass
	KindClass Kind = iota
	// KindInterface is an interface; it only has superinterfaces
	KindInterface
)

// String returns the string representation of the kind
func (k Kind) String() string {
	switch k {
	case KindClass:
		return "class"
	case KindInterface:
		return "interface"
	default:
		return "unknown"
	}
}

// Modifier is a bit set of declaration modifiers
type Modifier uint16

const (
	ModPublic Modifier = 1 << iota
	ModProtected
	ModPrivate
	ModStatic
	ModFinal
	ModAbstract
)

const accessMask = ModPublic | ModProtected | ModPrivate

var modifierNames = []struct {
	mod  Modifier
	name string
}{
	{ModPublic, "public"},
	{ModProtected, "protected"},
	{ModPrivate, "private"},
	{ModStatic, "static"},
	{ModFinal, "final"},
	{ModAbstract, "abstract"},
}

// ParseModifier parses a single modifier keyword
func ParseModifier(s string) (Modifier, error) {
	for _, m := range modifierNames {
		if m.name == s {
			return m.mod, nil
		}
	}
	return 0, fmt.Errorf("unknown modifier %q", s)
}

// Has reports whether all bits of o are set
func (m Modifier) Has(o Modifier) bool {
	return m&o == o
}

// PackagePrivate reports whether no access modifier is set
func (m Modifier) PackagePrivate() bool {
	return m&accessMask == 0
}

// String returns the modifiers as space-separated keywords
func (m Modifier) String() string {
	var parts []string
	for _, n := range modifierNames {
		if m.Has(n.mod) {
			parts = append(parts, n.name)
		}
	}
	return strings.Join(parts, " ")
}

// Signature identifies a method across types: name plus ordered parameter types
type Signature struct {
	Name   string
	Params []string
}

// NewSignature creates a signature
func NewSignature(name string, params ...string) Signature {
	return Signature{Name: name, Params: params}
}

// ParseSignature parses "name(type1,type2)". A bare name has no parameters.
func ParseSignature(s string) (Signature, error) {
	s = strings.TrimSpace(s)
	open := strings.IndexByte(s, '(')
	if open < 0 {
		if s == "" || strings.ContainsAny(s, ")") {
			return Signature{}, fmt.Errorf("invalid signature %q", s)
		}
		return Signature{Name: s}, nil
	}
	if !strings.HasSuffix(s, ")") || open == 0 {
		return Signature{}, fmt.Errorf("invalid signature %q", s)
	}
	name := strings.TrimSpace(s[:open])
	inner := strings.TrimSpace(s[open+1 : len(s)-1])
	if name == "" {
		return Signature{}, fmt.Errorf("invalid signature %q", s)
	}
	sig := Signature{Name: name}
	if inner == "" {
		return sig, nil
	}
	for _, p := range strings.Split(inner, ",") {
		p = strings.TrimSpace(p)
		if p == "" {
			return Signature{}, fmt.Errorf("invalid signature %q: empty parameter type", s)
		}
		sig.Params = append(sig.Params, p)
	}
	return sig, nil
}

// Key returns the canonical form "name(type1,type2)"
func (s Signature) Key() string {
	return s.Name + "(" + strings.Join(s.Params, ",") + ")"
}

// String implements fmt.Stringer
func (s Signature) String() string {
	return s.Key()
}

// Equal reports whether both signatures have the same name and parameter types
func (s Signature) Equal(o Signature) bool {
	if s.Name != o.Name || len(s.Params) != len(o.Params) {
		return false
	}
	for i := range s.Params {
		if s.Params[i] != o.Params[i] {
			return false
		}
	}
	return true
}

// Annotation is a metadata instance attached to a type or member
type Annotation struct {
	Type       string         `json:"type"`
	Attributes map[string]any `json:"attributes,omitempty"`
}

// Attr returns a copy of an attribute value
func (a Annotation) Attr(name string) (any, bool) {
	v, ok := a.Attributes[name]
	return cloneValue(v), ok
}

// clone copies the annotation and its attribute values
func (a Annotation) clone() Annotation {
	return Annotation{Type: a.Type, Attributes: cloneAttributes(a.Attributes)}
}

func cloneAttributes(attrs map[string]any) map[string]any {
	if attrs == nil {
		return nil
	}
	out := make(map[string]any, len(attrs))
	for k, v := range attrs {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch v := v.(type) {
	case map[string]any:
		return cloneAttributes(v)
	case []any:
		out := make([]any, len(v))
		for i, e := range v {
			out[i] = cloneValue(e)
		}
		return out
	default:
		return v
	}
}

// AnnotationSet holds at most one annotation per annotation type
type AnnotationSet struct {
	byType map[string]Annotation
	order  []string
}

// NewAnnotationSet creates a set, rejecting repeated annotation types
func NewAnnotationSet(annotations ...Annotation) (AnnotationSet, error) {
	set := AnnotationSet{byType: make(map[string]Annotation, len(annotations))}
	for _, a := range annotations {
		if a.Type == "" {
			return AnnotationSet{}, fmt.Errorf("annotation without a type")
		}
		if _, exists := set.byType[a.Type]; exists {
			return AnnotationSet{}, fmt.Errorf("annotation %s declared more than once", a.Type)
		}
		set.byType[a.Type] = a.clone()
		set.order = append(set.order, a.Type)
	}
	return set, nil
}

// Get returns a copy of the annotation of the given type
func (s AnnotationSet) Get(annotationType string) (Annotation, bool) {
	a, ok := s.byType[annotationType]
	if !ok {
		return Annotation{}, false
	}
	return a.clone(), true
}

// Has reports whether an annotation of the given type is present
func (s AnnotationSet) Has(annotationType string) bool {
	_, ok := s.byType[annotationType]
	return ok
}

// Len returns the number of annotations
func (s AnnotationSet) Len() int {
	return len(s.order)
}

// All returns the annotations in declaration order
func (s AnnotationSet) All() []Annotation {
	out := make([]Annotation, 0, len(s.order))
	for _, t := range s.order {
		out = append(out, s.byType[t].clone())
	}
	return out
}

// Types returns the annotation types sorted by name
func (s AnnotationSet) Types() []string {
	out := make([]string, len(s.order))
	copy(out, s.order)
	sort.Strings(out)
	return out
}

// TypeNode is an immutable class or interface
type TypeNode struct {
	name        string
	pkg         string
	kind        Kind
	modifiers   Modifier
	super       *TypeNode
	interfaces  []*TypeNode
	members     []*Member
	memberIndex map[string]*Member
	annotations AnnotationSet
}

// Name returns the simple name
func (t *TypeNode) Name() string { return t.name }

// Package returns the package identifier
func (t *TypeNode) Package() string { return t.pkg }

// QualifiedName returns package and name joined by a dot
func (t *TypeNode) QualifiedName() string {
	return qualify(t.pkg, t.name)
}

// Kind returns whether the node is a class or an interface
func (t *TypeNode) Kind() Kind { return t.kind }

// Modifiers returns the type modifiers
func (t *TypeNode) Modifiers() Modifier { return t.modifiers }

// Super returns the superclass, or nil at the root
func (t *TypeNode) Super() *TypeNode { return t.super }

// Interfaces returns the directly implemented interfaces in declaration order
func (t *TypeNode) Interfaces() []*TypeNode {
	out := make([]*TypeNode, len(t.interfaces))
	copy(out, t.interfaces)
	return out
}

// Members returns the declared members in declaration order
func (t *TypeNode) Members() []*Member {
	out := make([]*Member, len(t.members))
	copy(out, t.members)
	return out
}

// Annotations returns the annotations declared directly on the type
func (t *TypeNode) Annotations() AnnotationSet { return t.annotations }

// String implements fmt.Stringer
func (t *TypeNode) String() string {
	return t.QualifiedName()
}

// Member is a method declared by exactly one TypeNode. Two members with equal
// signatures on different owners are distinct.
type Member struct {
	owner       *TypeNode
	name        string
	params      []string
	returns     string
	modifiers   Modifier
	annotations AnnotationSet
}

// Owner returns the declaring type
func (m *Member) Owner() *TypeNode { return m.owner }

// Name returns the method name
func (m *Member) Name() string { return m.name }

// Params returns the parameter types
func (m *Member) Params() []string {
	out := make([]string, len(m.params))
	copy(out, m.params)
	return out
}

// Returns returns the declared result type, if any
func (m *Member) Returns() string { return m.returns }

// Signature returns the member signature
func (m *Member) Signature() Signature {
	return Signature{Name: m.name, Params: m.Params()}
}

// Modifiers returns the member modifiers
func (m *Member) Modifiers() Modifier { return m.modifiers }

// Annotations returns the annotations declared directly on the member
func (m *Member) Annotations() AnnotationSet { return m.annotations }

// String returns "pkg.Type.name(params)"
func (m *Member) String() string {
	return m.owner.QualifiedName() + "." + m.Signature().Key()
}

func qualify(pkg, name string) string {
	if pkg == "" {
		return name
	}
	return pkg + "." + name
}
