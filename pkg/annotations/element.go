package annotations

import (
	"github.com/conduit-lang/lineage/pkg/typegraph"
)

// Element is a program element that can carry annotations. The set of
// implementations is closed: Class, Method and Generic.
type Element interface {
	// Key identifies the element within its graph
	Key() string
	element()
}

// Class is a class or interface
type Class struct {
	Type *typegraph.TypeNode
}

// Method is a method declared on a type
type Method struct {
	Member *typegraph.Member
}

// Generic is any other annotated element, such as a field or a parameter.
// Only its own annotations are considered.
type Generic struct {
	Name        string
	Annotations typegraph.AnnotationSet
}

// ClassOf returns the Class element for t
func ClassOf(t *typegraph.TypeNode) Class { return Class{Type: t} }

// MethodOf returns the Method element for m
func MethodOf(m *typegraph.Member) Method { return Method{Member: m} }

// Key returns the qualified type name
func (c Class) Key() string {
	if c.Type == nil {
		return ""
	}
	return c.Type.QualifiedName()
}

// Key returns the qualified member name with its signature
func (m Method) Key() string {
	if m.Member == nil {
		return ""
	}
	return m.Member.String()
}

// Key returns the element name
func (g Generic) Key() string { return g.Name }

func (Class) element()   {}
func (Method) element()  {}
func (Generic) element() {}
