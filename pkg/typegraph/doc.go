// Package typegraph provides an immutable graph of classes, interfaces and
// their members for hierarchy queries.
//
// # Overview
//
// A Graph is built once from a Definition (usually decoded from a JSON or YAML
// file) and never changes afterwards. Every TypeNode knows its package, its
// superclass, the interfaces it implements, the members it declares and the
// annotations attached to it.
//
// # Core Structures
//
//   - Definition, TypeDef, MemberDef, AnnotationDef: the serializable input
//   - Graph: indexed, validated set of TypeNodes
//   - TypeNode: a class or interface
//   - Member: a method declared by exactly one TypeNode
//   - Signature: method name plus ordered parameter types
//   - Annotation, AnnotationSet: metadata attached to a type or member
//
// # Hierarchy Walks
//
// Hierarchy yields a type followed by its supertypes in breadth-first order.
// Each dequeued node enqueues its superclass first and then its interfaces in
// declaration order. A node is yielded at most once, so diamonds through
// shared interfaces are visited a single time:
//
//	for ancestor := range typegraph.Ancestors(child) {
//		if m, ok := typegraph.DeclaredMember(ancestor, sig); ok {
//			fmt.Println(m)
//		}
//	}
//
// # Example Definition
//
//	version: "1"
//	types:
//	  - name: Repository
//	    package: app.data
//	    kind: interface
//	    methods:
//	      - name: save
//	        params: [app.data.Entity]
//	        annotations:
//	          - type: tx.Transactional
//	  - name: SQLRepository
//	    package: app.data.sql
//	    implements: [app.data.Repository]
//	    methods:
//	      - name: save
//	        params: [app.data.Entity]
//	        modifiers: [public]
package typegraph
