package annotations

import (
	"github.com/conduit-lang/lineage/pkg/fault"
	"github.com/conduit-lang/lineage/pkg/typegraph"
)

// Find returns the annotation of the given type for element, following
// inheritance for classes and methods. A nil element or an empty annotation
// type is a precondition violation and panics.
func Find(element Element, annotationType string) (typegraph.Annotation, bool) {
	a, _, ok := find(element, annotationType)
	return a, ok
}

// FindClass resolves an annotation on a type and its ancestors
func FindClass(t *typegraph.TypeNode, annotationType string) (typegraph.Annotation, bool) {
	return Find(Class{Type: t}, annotationType)
}

// FindMethod resolves an annotation on a method and the method it overrides
func FindMethod(m *typegraph.Member, annotationType string) (typegraph.Annotation, bool) {
	return Find(Method{Member: m}, annotationType)
}

// find also returns the key of the element that declares the annotation
func find(element Element, annotationType string) (typegraph.Annotation, string, bool) {
	checkArgs("annotations.Find", element, annotationType)

	switch e := element.(type) {
	case Class:
		if e.Type == nil {
			panic(fault.Precondition("annotations.Find", "class type"))
		}
		return findOnType(e.Type, annotationType)
	case Method:
		if e.Member == nil {
			panic(fault.Precondition("annotations.Find", "method member"))
		}
		return findOnMethod(e.Member, annotationType)
	case Generic:
		a, ok := e.Annotations.Get(annotationType)
		if !ok {
			return typegraph.Annotation{}, "", false
		}
		return a, e.Name, true
	default:
		panic(fault.Runtimef("annotations.Find: unsupported element %T", element))
	}
}

func checkArgs(op string, element Element, annotationType string) {
	if element == nil {
		panic(fault.Precondition(op, "element"))
	}
	if annotationType == "" {
		panic(fault.Precondition(op, "annotationType"))
	}
}

func findOnType(t *typegraph.TypeNode, annotationType string) (typegraph.Annotation, string, bool) {
	for n := range typegraph.Hierarchy(t) {
		if a, ok := n.Annotations().Get(annotationType); ok {
			return a, n.QualifiedName(), true
		}
	}
	return typegraph.Annotation{}, "", false
}

func findOnMethod(m *typegraph.Member, annotationType string) (typegraph.Annotation, string, bool) {
	if a, ok := m.Annotations().Get(annotationType); ok {
		return a, m.String(), true
	}

	declaring := m.Owner()
	sig := m.Signature()
	for t := range typegraph.Ancestors(declaring) {
		source, ok := typegraph.DeclaredMember(t, sig)
		if !ok || !overrides(m, source) {
			continue
		}
		if a, ok := source.Annotations().Get(annotationType); ok {
			return a, source.String(), true
		}
	}
	return typegraph.Annotation{}, "", false
}

// overrides reports whether m can override source
func overrides(m, source *typegraph.Member) bool {
	switch {
	case typegraph.IsPrivate(m), typegraph.IsStatic(m):
		return false
	case typegraph.IsPrivate(source), typegraph.IsStatic(source):
		return false
	case typegraph.IsFinal(source):
		return false
	case typegraph.IsPackagePrivate(m) || typegraph.IsPackagePrivate(source):
		return typegraph.SamePackage(m.Owner(), source.Owner())
	}
	return true
}
