package server

import (
	"github.com/conduit-lang/lineage/pkg/typegraph"
)

// TypeView is the JSON form of a type
type TypeView struct {
	Name        string                 `json:"name"`
	Package     string                 `json:"package,omitempty"`
	Kind        string                 `json:"kind"`
	Modifiers   string                 `json:"modifiers,omitempty"`
	Extends     string                 `json:"extends,omitempty"`
	Implements  []string               `json:"implements,omitempty"`
	Annotations []typegraph.Annotation `json:"annotations,omitempty"`
	Methods     []MethodView           `json:"methods,omitempty"`
}

// MethodView is the JSON form of a member
type MethodView struct {
	Signature   string                 `json:"signature"`
	Returns     string                 `json:"returns,omitempty"`
	Modifiers   string                 `json:"modifiers,omitempty"`
	Annotations []typegraph.Annotation `json:"annotations,omitempty"`
}

// ViewOf describes t. Methods are only included when withMembers is set.
func ViewOf(t *typegraph.TypeNode, withMembers bool) TypeView {
	v := TypeView{
		Name:        t.QualifiedName(),
		Package:     t.Package(),
		Kind:        t.Kind().String(),
		Modifiers:   t.Modifiers().String(),
		Annotations: t.Annotations().All(),
	}
	if super := t.Super(); super != nil {
		v.Extends = super.QualifiedName()
	}
	for _, iface := range t.Interfaces() {
		v.Implements = append(v.Implements, iface.QualifiedName())
	}
	if withMembers {
		for _, m := range t.Members() {
			v.Methods = append(v.Methods, MethodViewOf(m))
		}
	}
	return v
}

// MethodViewOf describes m
func MethodViewOf(m *typegraph.Member) MethodView {
	return MethodView{
		Signature:   m.Signature().Key(),
		Returns:     m.Returns(),
		Modifiers:   m.Modifiers().String(),
		Annotations: m.Annotations().All(),
	}
}
