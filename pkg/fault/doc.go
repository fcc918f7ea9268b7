// Package fault bridges error-returning logic into callback shapes that cannot
// return errors.
//
// # Classification
//
// Every error is either checked or unchecked:
//
//   - Checked errors are ordinary Go errors. They must be handled by the caller
//     or explicitly rethrown.
//   - Unchecked errors implement the Unchecked marker interface (or are Go
//     runtime errors). They may propagate freely by panicking.
//
// Two checked error kinds are carriers: ExecutionError and InvocationError.
// They exist only to transport another error across a framework boundary and
// Unwrap strips exactly one of them.
//
// # Raising and catching
//
// Rethrow, Propagate and ThrowIfUnchecked raise errors by panicking. Catch and
// Try are the receiving side:
//
//	err := fault.Catch(func() {
//		items.ForEach(fault.ConsumerOf(save).Unwrapping().Accept)
//	})
//	if errors.Is(err, ErrConflict) {
//		// err is the error save returned, not a wrapper
//	}
//
// A checked error raised with Rethrow travels inside a private carrier that
// Catch removes, so the caller observes the original error value. Propagate
// always adds a visible PropagatedError boundary instead.
//
// # Function shapes
//
// Runnable, Supplier, Consumer, BiConsumer, Function, BiFunction and Predicate
// are error-returning function types. Each has a non-throwing method (Run, Get,
// Accept, Apply, Test) that rethrows failures, and an Unwrapping method that
// strips one carrier before rethrowing.
package fault
