package fault

// Unwrap strips one carrier layer. If err is an ExecutionError or an
// InvocationError with a non-nil cause, the cause is returned; otherwise err is
// returned unchanged. Nested carriers are left in place.
func Unwrap(err error) error {
	if err == nil {
		panic(Precondition("fault.Unwrap", "err"))
	}
	if c, ok := err.(carrier); ok {
		if cause := c.carried(); cause != nil {
			return cause
		}
	}
	return err
}

// Rethrow raises err. Unchecked errors are raised as they are; checked errors
// are raised inside a carrier that Catch and Try remove again, so the receiver
// observes err itself. Rethrow never returns.
func Rethrow(err error) {
	if err == nil {
		panic(Precondition("fault.Rethrow", "err"))
	}
	if IsUnchecked(err) {
		panic(err)
	}
	panic(&thrown{err: err})
}

// Propagate raises err inside a new PropagatedError, even when err is already
// unchecked. Propagate never returns.
func Propagate(err error) {
	if err == nil {
		panic(Precondition("fault.Propagate", "err"))
	}
	panic(&PropagatedError{Cause: err})
}

// ThrowIfUnchecked raises err unmodified when it is unchecked and returns
// normally otherwise.
func ThrowIfUnchecked(err error) {
	if err == nil {
		panic(Precondition("fault.ThrowIfUnchecked", "err"))
	}
	if IsUnchecked(err) {
		panic(err)
	}
}

// Catch runs fn and returns the error it raised, if any. Errors raised with
// Rethrow are returned without their carrier. Panics that are not unchecked
// errors are re-raised.
func Catch(fn func()) (err error) {
	if fn == nil {
		panic(Precondition("fault.Catch", "fn"))
	}
	defer func() {
		if r := recover(); r != nil {
			err = recovered(r)
		}
	}()
	fn()
	return nil
}

// Try runs fn and returns its result, or the error it raised.
func Try[R any](fn func() R) (result R, err error) {
	if fn == nil {
		panic(Precondition("fault.Try", "fn"))
	}
	defer func() {
		if r := recover(); r != nil {
			err = recovered(r)
		}
	}()
	return fn(), nil
}

func recovered(r any) error {
	err, ok := r.(error)
	if !ok || !IsUnchecked(err) {
		panic(r)
	}
	if t, ok := err.(*thrown); ok {
		return t.err
	}
	return err
}

func rethrowUnwrapped(err error) {
	Rethrow(Unwrap(err))
}
