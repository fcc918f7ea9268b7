// Package annotations resolves annotations on elements of a typegraph.Graph,
// including annotations inherited through the type hierarchy.
//
// # Elements
//
// An Element is one of Class, Method or Generic. Find dispatches on the kind:
//
//   - Class: the type's own annotation, else the first match in Ancestors order.
//   - Method: the method's own annotation, else the annotation of the
//     closest overridden method that declares it. Private and static methods
//     do not override; final methods cannot be overridden; package-private
//     methods only override within their package.
//   - Generic: the element's own annotation only.
//
// An overridden method without the annotation does not end the method walk.
// The lookup keeps climbing, so an annotation on a grandparent method is
// found through an unannotated parent override.
//
// # Resolver
//
// Resolver wraps Find for callers that look elements up by name, log through
// zap and optionally cache results keyed by the graph fingerprint:
//
//	r := annotations.NewResolver(graph, annotations.Config{Logger: logger})
//	res, err := r.FindNamed(ctx, "app.Child", "compute()", "Cacheable")
//	if err != nil {
//		return err
//	}
//	if res.Found {
//		fmt.Println(res.Annotation.Attributes["ttl"], "from", res.Source)
//	}
package annotations
