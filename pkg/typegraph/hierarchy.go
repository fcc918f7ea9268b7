package typegraph

import "iter"

// Hierarchy yields t and then its supertypes breadth-first: each node enqueues
// its superclass and then its interfaces. No node is yielded twice. The
// sequence can be ranged over any number of times.
func Hierarchy(t *TypeNode) iter.Seq[*TypeNode] {
	return func(yield func(*TypeNode) bool) {
		if t == nil {
			return
		}
		visited := map[*TypeNode]bool{t: true}
		queue := []*TypeNode{t}
		for len(queue) > 0 {
			n := queue[0]
			queue = queue[1:]
			if !yield(n) {
				return
			}
			if n.super != nil && !visited[n.super] {
				visited[n.super] = true
				queue = append(queue, n.super)
			}
			for _, iface := range n.interfaces {
				if !visited[iface] {
					visited[iface] = true
					queue = append(queue, iface)
				}
			}
		}
	}
}

// Ancestors yields the supertypes of t in Hierarchy order, excluding t
func Ancestors(t *TypeNode) iter.Seq[*TypeNode] {
	return func(yield func(*TypeNode) bool) {
		for n := range Hierarchy(t) {
			if n == t {
				continue
			}
			if !yield(n) {
				return
			}
		}
	}
}

// Find returns the first present result of query over Hierarchy(t)
func Find[A any](t *TypeNode, query func(*TypeNode) (A, bool)) (A, bool) {
	for n := range Hierarchy(t) {
		if v, ok := query(n); ok {
			return v, true
		}
	}
	var zero A
	return zero, false
}

// DeclaredMember returns the member t declares with the given signature
func DeclaredMember(t *TypeNode, sig Signature) (*Member, bool) {
	if t == nil {
		return nil, false
	}
	m, ok := t.memberIndex[sig.Key()]
	return m, ok
}

// IsPrivate reports whether m is private
func IsPrivate(m *Member) bool { return m.modifiers.Has(ModPrivate) }

// IsStatic reports whether m is static
func IsStatic(m *Member) bool { return m.modifiers.Has(ModStatic) }

// IsFinal reports whether m is final
func IsFinal(m *Member) bool { return m.modifiers.Has(ModFinal) }

// IsPackagePrivate reports whether m has no access modifier
func IsPackagePrivate(m *Member) bool { return m.modifiers.PackagePrivate() }

// SamePackage reports whether both types have exactly the same package identifier
func SamePackage(a, b *TypeNode) bool {
	return a.pkg == b.pkg
}
