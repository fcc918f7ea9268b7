package typegraph

import (
	"encoding/json"
	"fmt"
	"strings"
)

// ErrorCode categorizes graph build errors
type ErrorCode string

const (
	CodeEmptyName           ErrorCode = "empty_name"
	CodeInvalidKind         ErrorCode = "invalid_kind"
	CodeInvalidModifier     ErrorCode = "invalid_modifier"
	CodeDuplicateType       ErrorCode = "duplicate_type"
	CodeUnknownType         ErrorCode = "unknown_type"
	CodeInvalidSupertype    ErrorCode = "invalid_supertype"
	CodeFinalSupertype      ErrorCode = "final_supertype"
	CodeInheritanceCycle    ErrorCode = "inheritance_cycle"
	CodeDuplicateMember     ErrorCode = "duplicate_member"
	CodeDuplicateAnnotation ErrorCode = "duplicate_annotation"
	CodeInvalidAttribute    ErrorCode = "invalid_attribute"
)

// BuildError describes one problem found while building a graph
type BuildError struct {
	Code    ErrorCode
	Type    string // qualified type name, if known
	Member  string // member signature, if the problem is on a member
	Message string
}

// Error implements the error interface
func (e *BuildError) Error() string {
	var b strings.Builder
	b.WriteByte('[')
	b.WriteString(string(e.Code))
	b.WriteByte(']')
	if e.Type != "" {
		b.WriteByte(' ')
		b.WriteString(e.Type)
		if e.Member != "" {
			b.WriteByte('.')
			b.WriteString(e.Member)
		}
	}
	if e.Message != "" {
		b.WriteString(": ")
		b.WriteString(e.Message)
	}
	return b.String()
}

// Is reports whether target is a BuildError with the same code
func (e *BuildError) Is(target error) bool {
	if t, ok := target.(*BuildError); ok {
		return e.Code == t.Code
	}
	return false
}

// BuildErrors is returned by Build when the definition is invalid
type BuildErrors []*BuildError

func (errs BuildErrors) Error() string {
	msgs := make([]string, len(errs))
	for i, e := range errs {
		msgs[i] = e.Error()
	}
	if len(msgs) == 1 {
		return msgs[0]
	}
	return fmt.Sprintf("%d graph errors: %s", len(msgs), strings.Join(msgs, "; "))
}

// Unwrap exposes the individual errors to errors.Is and errors.As
func (errs BuildErrors) Unwrap() []error {
	out := make([]error, len(errs))
	for i, e := range errs {
		out[i] = e
	}
	return out
}

// Builder assembles a Definition programmatically
type Builder struct {
	def Definition
}

// NewBuilder creates an empty builder
func NewBuilder() *Builder {
	return &Builder{}
}

// Add appends type definitions
func (b *Builder) Add(types ...TypeDef) *Builder {
	b.def.Types = append(b.def.Types, types...)
	return b
}

// Definition returns the accumulated definition
func (b *Builder) Definition() Definition {
	return b.def
}

// Build builds the graph
func (b *Builder) Build() (*Graph, error) {
	return Build(b.def)
}

type builder struct {
	defs  []TypeDef
	nodes map[string]*TypeNode
	order []*TypeNode
	errs  BuildErrors
}

// Build validates def and resolves it into an immutable graph. All problems
// found are reported together as BuildErrors.
func Build(def Definition) (*Graph, error) {
	b := &builder{
		defs:  def.Types,
		nodes: make(map[string]*TypeNode, len(def.Types)),
	}

	// Phase 1: create nodes so references can resolve regardless of order
	b.declareTypes()

	// Phase 2: resolve superclass and interface edges
	b.linkSupertypes()

	// Phase 3: reject cycles introduced by the edges
	b.checkCycles()

	// Phase 4: members and annotations
	b.declareMembers()

	if len(b.errs) > 0 {
		return nil, b.errs
	}
	return newGraph(def, b.order), nil
}

func (b *builder) fail(code ErrorCode, typeName, member, format string, args ...any) {
	b.errs = append(b.errs, &BuildError{
		Code:    code,
		Type:    typeName,
		Member:  member,
		Message: fmt.Sprintf(format, args...),
	})
}

func (b *builder) declareTypes() {
	for i := range b.defs {
		def := &b.defs[i]
		if strings.TrimSpace(def.Name) == "" {
			b.fail(CodeEmptyName, "", "", "type #%d has no name", i)
			b.order = append(b.order, nil)
			continue
		}
		qn := qualify(def.Package, def.Name)

		kind, err := parseKind(def.Kind)
		if err != nil {
			b.fail(CodeInvalidKind, qn, "", "%v", err)
		}
		mods, err := parseModifiers(def.Modifiers)
		if err != nil {
			b.fail(CodeInvalidModifier, qn, "", "%v", err)
		}
		if hasEmptyAnnotationType(def.Annotations) {
			b.fail(CodeEmptyName, qn, "", "annotation without a type")
		}
		annotations, dup, err := newAnnotationSet(def.Annotations)
		if dup != "" {
			b.fail(CodeDuplicateAnnotation, qn, "", "annotation %s declared more than once", dup)
		}
		if err != nil {
			b.fail(CodeInvalidAttribute, qn, "", "%v", err)
		}

		if _, exists := b.nodes[qn]; exists {
			b.fail(CodeDuplicateType, qn, "", "type declared more than once")
			b.order = append(b.order, nil)
			continue
		}
		node := &TypeNode{
			name:        def.Name,
			pkg:         def.Package,
			kind:        kind,
			modifiers:   mods,
			memberIndex: make(map[string]*Member),
			annotations: annotations,
		}
		b.nodes[qn] = node
		b.order = append(b.order, node)
	}
}

func (b *builder) linkSupertypes() {
	for i, node := range b.order {
		if node == nil {
			continue
		}
		def := &b.defs[i]
		qn := node.QualifiedName()

		if def.Extends != "" {
			super, ok := b.nodes[def.Extends]
			switch {
			case !ok:
				b.fail(CodeUnknownType, qn, "", "superclass %s is not defined", def.Extends)
			case node.kind == KindInterface:
				b.fail(CodeInvalidSupertype, qn, "", "interface cannot extend a class; list %s under implements", def.Extends)
			case super.kind != KindClass:
				b.fail(CodeInvalidSupertype, qn, "", "%s is an interface and cannot be extended", def.Extends)
			case super.modifiers.Has(ModFinal):
				b.fail(CodeFinalSupertype, qn, "", "%s is final", def.Extends)
			default:
				node.super = super
			}
		}

		for _, name := range def.Implements {
			iface, ok := b.nodes[name]
			switch {
			case !ok:
				b.fail(CodeUnknownType, qn, "", "interface %s is not defined", name)
			case iface.kind != KindInterface:
				b.fail(CodeInvalidSupertype, qn, "", "%s is a class and cannot be implemented", name)
			default:
				node.interfaces = append(node.interfaces, iface)
			}
		}
	}
}

func (b *builder) checkCycles() {
	const (
		unvisited = iota
		visiting
		done
	)
	state := make(map[*TypeNode]int, len(b.nodes))
	reported := make(map[*TypeNode]bool)

	var visit func(n *TypeNode, path []*TypeNode)
	visit = func(n *TypeNode, path []*TypeNode) {
		switch state[n] {
		case done:
			return
		case visiting:
			if reported[n] {
				return
			}
			reported[n] = true
			names := make([]string, 0, len(path)+1)
			start := 0
			for i, p := range path {
				if p == n {
					start = i
				}
			}
			for _, p := range path[start:] {
				names = append(names, p.QualifiedName())
			}
			names = append(names, n.QualifiedName())
			b.fail(CodeInheritanceCycle, n.QualifiedName(), "", "%s", strings.Join(names, " -> "))
			return
		}
		state[n] = visiting
		path = append(path, n)
		if n.super != nil {
			visit(n.super, path)
		}
		for _, iface := range n.interfaces {
			visit(iface, path)
		}
		state[n] = done
	}

	for _, node := range b.order {
		if node != nil {
			visit(node, nil)
		}
	}
}

func (b *builder) declareMembers() {
	for i, node := range b.order {
		if node == nil {
			continue
		}
		qn := node.QualifiedName()
		for _, md := range b.defs[i].Methods {
			if strings.TrimSpace(md.Name) == "" {
				b.fail(CodeEmptyName, qn, "", "method without a name")
				continue
			}
			sig := Signature{Name: md.Name, Params: append([]string(nil), md.Params...)}
			key := sig.Key()

			mods, err := parseModifiers(md.Modifiers)
			if err != nil {
				b.fail(CodeInvalidModifier, qn, key, "%v", err)
				continue
			}
			// interface members without an access modifier are public
			if node.kind == KindInterface && mods.PackagePrivate() {
				mods |= ModPublic
			}

			if hasEmptyAnnotationType(md.Annotations) {
				b.fail(CodeEmptyName, qn, key, "annotation without a type")
				continue
			}
			annotations, dup, err := newAnnotationSet(md.Annotations)
			if dup != "" {
				b.fail(CodeDuplicateAnnotation, qn, key, "annotation %s declared more than once", dup)
				continue
			}
			if err != nil {
				b.fail(CodeInvalidAttribute, qn, key, "%v", err)
				continue
			}
			if _, exists := node.memberIndex[key]; exists {
				b.fail(CodeDuplicateMember, qn, key, "method declared more than once")
				continue
			}

			m := &Member{
				owner:       node,
				name:        md.Name,
				params:      sig.Params,
				returns:     md.Returns,
				modifiers:   mods,
				annotations: annotations,
			}
			node.members = append(node.members, m)
			node.memberIndex[key] = m
		}
	}
}

func parseKind(s string) (Kind, error) {
	switch s {
	case "", "class":
		return KindClass, nil
	case "interface":
		return KindInterface, nil
	default:
		return KindClass, fmt.Errorf("unknown kind %q", s)
	}
}

func parseModifiers(names []string) (Modifier, error) {
	var mods Modifier
	for _, name := range names {
		m, err := ParseModifier(name)
		if err != nil {
			return 0, err
		}
		mods |= m
	}
	access := mods & accessMask
	if access != 0 && access&(access-1) != 0 {
		return 0, fmt.Errorf("conflicting access modifiers: %s", access)
	}
	return mods, nil
}

// newAnnotationSet returns the set and the first duplicated type, if any.
// The error reports attributes that have no JSON form.
func newAnnotationSet(defs []AnnotationDef) (AnnotationSet, string, error) {
	set := AnnotationSet{byType: make(map[string]Annotation, len(defs))}
	for _, d := range defs {
		if _, exists := set.byType[d.Type]; exists {
			return AnnotationSet{}, d.Type, nil
		}
		attrs, err := normalizeAttributes(d.Attributes)
		if err != nil {
			return AnnotationSet{}, "", fmt.Errorf("annotation %s: attributes cannot be encoded as JSON: %w", d.Type, err)
		}
		set.byType[d.Type] = Annotation{Type: d.Type, Attributes: attrs}
		set.order = append(set.order, d.Type)
	}
	return set, "", nil
}

// normalizeAttributes returns attrs as they decode from JSON. Numbers become
// float64 and nested mappings become map[string]any.
func normalizeAttributes(attrs map[string]any) (map[string]any, error) {
	if len(attrs) == 0 {
		return nil, nil
	}
	data, err := json.Marshal(attrs)
	if err != nil {
		return nil, err
	}
	var out map[string]any
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func hasEmptyAnnotationType(defs []AnnotationDef) bool {
	for _, d := range defs {
		if strings.TrimSpace(d.Type) == "" {
			return true
		}
	}
	return false
}
