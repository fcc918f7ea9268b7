package annotations

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/conduit-lang/lineage/pkg/fault"
	"github.com/conduit-lang/lineage/pkg/typegraph"
)

func annotation(typ string, attrs map[string]any) typegraph.AnnotationDef {
	return typegraph.AnnotationDef{Type: typ, Attributes: attrs}
}

func build(t *testing.T, types ...typegraph.TypeDef) *typegraph.Graph {
	t.Helper()
	g, err := typegraph.NewBuilder().Add(types...).Build()
	require.NoError(t, err)
	return g
}

func method(t *testing.T, g *typegraph.Graph, typeName, sig string) *typegraph.Member {
	t.Helper()
	s, err := typegraph.ParseSignature(sig)
	require.NoError(t, err)
	m, ok := g.Method(typeName, s)
	require.True(t, ok, "%s.%s not declared", typeName, sig)
	return m
}

func class(t *testing.T, g *typegraph.Graph, name string) *typegraph.TypeNode {
	t.Helper()
	n, ok := g.Type(name)
	require.True(t, ok, "%s not declared", name)
	return n
}

func publicMethod(name string, annotations ...typegraph.AnnotationDef) typegraph.MemberDef {
	return typegraph.MemberDef{Name: name, Modifiers: []string{"public"}, Annotations: annotations}
}

func TestFind_Class(t *testing.T) {
	g := build(t,
		typegraph.TypeDef{Name: "Named", Package: "app", Kind: "interface",
			Annotations: []typegraph.AnnotationDef{annotation("Documented", nil)}},
		typegraph.TypeDef{Name: "Grandparent", Package: "app",
			Annotations: []typegraph.AnnotationDef{annotation("Entity", map[string]any{"table": "grandparents"})}},
		typegraph.TypeDef{Name: "Parent", Package: "app", Extends: "app.Grandparent", Implements: []string{"app.Named"}},
		typegraph.TypeDef{Name: "Child", Package: "app", Extends: "app.Parent",
			Annotations: []typegraph.AnnotationDef{annotation("Audited", nil)}},
		typegraph.TypeDef{Name: "Override", Package: "app", Extends: "app.Parent",
			Annotations: []typegraph.AnnotationDef{annotation("Entity", map[string]any{"table": "overrides"})}},
	)

	tests := []struct {
		name       string
		typeName   string
		annotation string
		wantFound  bool
		wantTable  any
	}{
		{"own annotation", "app.Child", "Audited", true, nil},
		{"inherited from superclass chain", "app.Child", "Entity", true, "grandparents"},
		{"inherited from interface", "app.Child", "Documented", true, nil},
		{"own annotation wins", "app.Override", "Entity", true, "overrides"},
		{"annotation below is not visible", "app.Parent", "Audited", false, nil},
		{"absent everywhere", "app.Child", "Missing", false, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a, ok := Find(Class{Type: class(t, g, tt.typeName)}, tt.annotation)
			require.Equal(t, tt.wantFound, ok)
			if !ok {
				assert.Equal(t, typegraph.Annotation{}, a)
				return
			}
			assert.Equal(t, tt.annotation, a.Type)
			if tt.wantTable != nil {
				table, _ := a.Attr("table")
				assert.Equal(t, tt.wantTable, table)
			}
		})
	}
}

func TestFind_MethodClimbsPastUnannotatedOverride(t *testing.T) {
	g := build(t,
		typegraph.TypeDef{Name: "Grandparent", Package: "app", Methods: []typegraph.MemberDef{
			publicMethod("compute", annotation("Cacheable", map[string]any{"ttl": 60})),
		}},
		typegraph.TypeDef{Name: "Parent", Package: "app", Extends: "app.Grandparent", Methods: []typegraph.MemberDef{
			publicMethod("compute"),
		}},
		typegraph.TypeDef{Name: "Child", Package: "app", Extends: "app.Parent", Methods: []typegraph.MemberDef{
			publicMethod("compute"),
		}},
	)

	a, source, ok := find(Method{Member: method(t, g, "app.Child", "compute()")}, "Cacheable")
	require.True(t, ok, "Parent.compute has no annotation, the walk goes on to Grandparent.compute")
	assert.Equal(t, "app.Grandparent.compute()", source)
	assert.Equal(t, float64(60), a.Attributes["ttl"])

	a, ok = FindMethod(method(t, g, "app.Parent", "compute()"), "Cacheable")
	require.True(t, ok)
	assert.Equal(t, float64(60), a.Attributes["ttl"])
}

func TestFind_MethodSkipsTypesWithoutDeclaration(t *testing.T) {
	g := build(t,
		typegraph.TypeDef{Name: "Grandparent", Package: "app", Methods: []typegraph.MemberDef{
			publicMethod("compute", annotation("Cacheable", map[string]any{"ttl": 60})),
		}},
		typegraph.TypeDef{Name: "Parent", Package: "app", Extends: "app.Grandparent"},
		typegraph.TypeDef{Name: "Child", Package: "app", Extends: "app.Parent", Methods: []typegraph.MemberDef{
			publicMethod("compute"),
		}},
	)

	a, ok := FindMethod(method(t, g, "app.Child", "compute()"), "Cacheable")
	require.True(t, ok)
	assert.Equal(t, "Cacheable", a.Type)
}

func TestFind_MethodOwnAnnotation(t *testing.T) {
	g := build(t,
		typegraph.TypeDef{Name: "Parent", Package: "app", Methods: []typegraph.MemberDef{
			publicMethod("run", annotation("Timed", map[string]any{"unit": "ms"})),
		}},
		typegraph.TypeDef{Name: "Child", Package: "app", Extends: "app.Parent", Methods: []typegraph.MemberDef{
			{Name: "run", Modifiers: []string{"private"}, Annotations: []typegraph.AnnotationDef{
				annotation("Timed", map[string]any{"unit": "s"}),
			}},
		}},
	)

	a, ok := FindMethod(method(t, g, "app.Child", "run()"), "Timed")
	require.True(t, ok)
	assert.Equal(t, "s", a.Attributes["unit"], "own annotation is returned before any eligibility check")
}

func TestFind_MethodEligibility(t *testing.T) {
	tests := []struct {
		name       string
		parentPkg  string
		parentMods []string
		childPkg   string
		childMods  []string
		wantFound  bool
	}{
		{"public overrides public", "app", []string{"public"}, "app", []string{"public"}, true},
		{"protected overrides protected", "app", []string{"protected"}, "other", []string{"protected"}, true},
		{"private method does not override", "app", []string{"public"}, "app", []string{"private"}, false},
		{"static method does not override", "app", []string{"public"}, "app", []string{"public", "static"}, false},
		{"private source is not overridden", "app", []string{"private"}, "app", []string{"public"}, false},
		{"static source is not overridden", "app", []string{"public", "static"}, "app", []string{"public"}, false},
		{"final source is not overridden", "app", []string{"public", "final"}, "app", []string{"public"}, false},
		{"package-private in same package", "app", nil, "app", nil, true},
		{"package-private across packages", "app", nil, "other", nil, false},
		{"package-private source across packages", "app", nil, "other", []string{"public"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := build(t,
				typegraph.TypeDef{Name: "A", Package: tt.parentPkg, Methods: []typegraph.MemberDef{
					{Name: "m", Modifiers: tt.parentMods, Annotations: []typegraph.AnnotationDef{annotation("X", nil)}},
				}},
				typegraph.TypeDef{Name: "B", Package: tt.childPkg, Extends: tt.parentPkg + ".A", Methods: []typegraph.MemberDef{
					{Name: "m", Modifiers: tt.childMods},
				}},
			)

			_, ok := FindMethod(method(t, g, tt.childPkg+".B", "m()"), "X")
			assert.Equal(t, tt.wantFound, ok)
		})
	}
}

func TestFind_MethodIneligibleSourceContinuesWalking(t *testing.T) {
	g := build(t,
		typegraph.TypeDef{Name: "A", Package: "app", Methods: []typegraph.MemberDef{
			publicMethod("m", annotation("X", map[string]any{"from": "A"})),
		}},
		typegraph.TypeDef{Name: "B", Package: "app", Extends: "app.A", Methods: []typegraph.MemberDef{
			{Name: "m", Modifiers: []string{"private"}},
		}},
		typegraph.TypeDef{Name: "C", Package: "app", Extends: "app.B", Methods: []typegraph.MemberDef{
			publicMethod("m"),
		}},
	)

	a, ok := FindMethod(method(t, g, "app.C", "m()"), "X")
	require.True(t, ok)
	assert.Equal(t, "A", a.Attributes["from"])
}

func TestFind_MethodFromInterface(t *testing.T) {
	g := build(t,
		typegraph.TypeDef{Name: "Repository", Package: "app", Kind: "interface", Methods: []typegraph.MemberDef{
			{Name: "save", Params: []string{"app.Entity"}, Annotations: []typegraph.AnnotationDef{
				annotation("Transactional", nil),
			}},
		}},
		typegraph.TypeDef{Name: "Entity", Package: "app"},
		typegraph.TypeDef{Name: "SQLRepository", Package: "app.sql", Implements: []string{"app.Repository"},
			Methods: []typegraph.MemberDef{
				{Name: "save", Params: []string{"app.Entity"}, Modifiers: []string{"public"}},
				{Name: "save", Params: []string{"string"}, Modifiers: []string{"public"}},
			}},
	)

	_, ok := FindMethod(method(t, g, "app.sql.SQLRepository", "save(app.Entity)"), "Transactional")
	assert.True(t, ok, "interface methods are public")

	_, ok = FindMethod(method(t, g, "app.sql.SQLRepository", "save(string)"), "Transactional")
	assert.False(t, ok, "parameter types are part of the signature")
}

func TestFind_Generic(t *testing.T) {
	set, err := typegraph.NewAnnotationSet(typegraph.Annotation{Type: "NotNull"})
	require.NoError(t, err)

	field := Generic{Name: "app.User#email", Annotations: set}
	a, ok := Find(field, "NotNull")
	require.True(t, ok)
	assert.Equal(t, "NotNull", a.Type)

	_, ok = Find(field, "Column")
	assert.False(t, ok)

	_, ok = Find(Generic{Name: "empty"}, "NotNull")
	assert.False(t, ok)
}

func TestFind_Preconditions(t *testing.T) {
	g := build(t, typegraph.TypeDef{Name: "A", Package: "app"})
	a := class(t, g, "app.A")

	tests := []struct {
		name       string
		element    Element
		annotation string
	}{
		{"nil element", nil, "X"},
		{"empty annotation type", Class{Type: a}, ""},
		{"class without type", Class{}, "X"},
		{"method without member", Method{}, "X"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			defer func() {
				err, ok := recover().(error)
				require.True(t, ok)
				assert.ErrorIs(t, err, fault.ErrNilArgument)
			}()
			Find(tt.element, tt.annotation)
		})
	}
}

func TestElementKeys(t *testing.T) {
	g := build(t, typegraph.TypeDef{Name: "A", Package: "app", Methods: []typegraph.MemberDef{
		{Name: "m", Params: []string{"int", "string"}},
	}})

	assert.Equal(t, "app.A", ClassOf(class(t, g, "app.A")).Key())
	assert.Equal(t, "app.A.m(int,string)", MethodOf(method(t, g, "app.A", "m(int, string)")).Key())
	assert.Equal(t, "field", Generic{Name: "field"}.Key())
	assert.Equal(t, "", Class{}.Key())
}
