package typegraph

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"
)

// Graph is a validated, immutable set of types with pre-computed indexes.
// It is safe for concurrent use.
type Graph struct {
	def   Definition
	types []*TypeNode

	// Pre-computed indexes (built once in newGraph)
	byName      map[string]*TypeNode   // qualified name -> node
	bySimple    map[string][]*TypeNode // simple name -> nodes
	subtypes    map[*TypeNode][]*TypeNode
	fingerprint string
}

func newGraph(def Definition, nodes []*TypeNode) *Graph {
	def.Types = append([]TypeDef(nil), def.Types...)
	g := &Graph{
		def:      def,
		types:    make([]*TypeNode, 0, len(nodes)),
		byName:   make(map[string]*TypeNode, len(nodes)),
		bySimple: make(map[string][]*TypeNode, len(nodes)),
		subtypes: make(map[*TypeNode][]*TypeNode),
	}

	for _, n := range nodes {
		g.types = append(g.types, n)
		g.byName[n.QualifiedName()] = n
		g.bySimple[n.name] = append(g.bySimple[n.name], n)
		if n.super != nil {
			g.subtypes[n.super] = append(g.subtypes[n.super], n)
		}
		for _, iface := range n.interfaces {
			g.subtypes[iface] = append(g.subtypes[iface], n)
		}
	}

	g.fingerprint = fingerprint(def)
	return g
}

// fingerprint hashes the canonical JSON form of the definition. Build rejects
// attributes without a JSON form, so marshaling cannot fail here.
func fingerprint(def Definition) string {
	data, err := json.Marshal(def)
	if err != nil {
		panic(fmt.Sprintf("typegraph: fingerprint: %v", err))
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:8])
}

// Type finds a type by qualified name, or by simple name when that name is unique
func (g *Graph) Type(name string) (*TypeNode, bool) {
	if n, ok := g.byName[name]; ok {
		return n, true
	}
	if candidates := g.bySimple[name]; len(candidates) == 1 {
		return candidates[0], true
	}
	return nil, false
}

// Types returns all types in definition order
func (g *Graph) Types() []*TypeNode {
	out := make([]*TypeNode, len(g.types))
	copy(out, g.types)
	return out
}

// Len returns the number of types
func (g *Graph) Len() int {
	return len(g.types)
}

// Method finds the member a type declares with the given signature
func (g *Graph) Method(typeName string, sig Signature) (*Member, bool) {
	t, ok := g.Type(typeName)
	if !ok {
		return nil, false
	}
	return DeclaredMember(t, sig)
}

// Subtypes returns the direct subtypes of t sorted by qualified name
func (g *Graph) Subtypes(t *TypeNode) []*TypeNode {
	out := make([]*TypeNode, len(g.subtypes[t]))
	copy(out, g.subtypes[t])
	sort.Slice(out, func(i, j int) bool {
		return out[i].QualifiedName() < out[j].QualifiedName()
	})
	return out
}

// Definition returns the definition the graph was built from
func (g *Graph) Definition() Definition {
	return g.def
}

// Fingerprint identifies the graph content; equal definitions share a fingerprint
func (g *Graph) Fingerprint() string {
	return g.fingerprint
}
