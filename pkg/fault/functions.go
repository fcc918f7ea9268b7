package fault

// Runnable is a task that may fail
type Runnable func() error

// RunnableOf returns fn as a Runnable
func RunnableOf(fn func() error) Runnable {
	return fn
}

// Run runs the task and rethrows its error
func (r Runnable) Run() {
	if err := r(); err != nil {
		Rethrow(err)
	}
}

// Unwrapping returns a Runnable that raises the unwrapped error of r instead
// of returning it
func (r Runnable) Unwrapping() Runnable {
	if r == nil {
		panic(Precondition("fault.Runnable.Unwrapping", "runnable"))
	}
	return func() error {
		if err := r(); err != nil {
			rethrowUnwrapped(err)
		}
		return nil
	}
}

// Supplier produces a value or fails
type Supplier[R any] func() (R, error)

// SupplierOf returns fn as a Supplier
func SupplierOf[R any](fn func() (R, error)) Supplier[R] {
	return fn
}

// Get returns the supplied value and rethrows any error
func (s Supplier[R]) Get() R {
	v, err := s()
	if err != nil {
		Rethrow(err)
	}
	return v
}

// Unwrapping returns a Supplier that raises the unwrapped error of s
func (s Supplier[R]) Unwrapping() Supplier[R] {
	if s == nil {
		panic(Precondition("fault.Supplier.Unwrapping", "supplier"))
	}
	return func() (R, error) {
		v, err := s()
		if err != nil {
			rethrowUnwrapped(err)
		}
		return v, nil
	}
}

// Consumer accepts a value and may fail
type Consumer[T any] func(T) error

// ConsumerOf returns fn as a Consumer
func ConsumerOf[T any](fn func(T) error) Consumer[T] {
	return fn
}

// Accept consumes input and rethrows any error
func (c Consumer[T]) Accept(input T) {
	if err := c(input); err != nil {
		Rethrow(err)
	}
}

// Unwrapping returns a Consumer that raises the unwrapped error of c
func (c Consumer[T]) Unwrapping() Consumer[T] {
	if c == nil {
		panic(Precondition("fault.Consumer.Unwrapping", "consumer"))
	}
	return func(input T) error {
		if err := c(input); err != nil {
			rethrowUnwrapped(err)
		}
		return nil
	}
}

// BiConsumer accepts two values and may fail
type BiConsumer[T, U any] func(T, U) error

// BiConsumerOf returns fn as a BiConsumer
func BiConsumerOf[T, U any](fn func(T, U) error) BiConsumer[T, U] {
	return fn
}

// Accept consumes both inputs and rethrows any error
func (c BiConsumer[T, U]) Accept(first T, second U) {
	if err := c(first, second); err != nil {
		Rethrow(err)
	}
}

// Unwrapping returns a BiConsumer that raises the unwrapped error of c
func (c BiConsumer[T, U]) Unwrapping() BiConsumer[T, U] {
	if c == nil {
		panic(Precondition("fault.BiConsumer.Unwrapping", "consumer"))
	}
	return func(first T, second U) error {
		if err := c(first, second); err != nil {
			rethrowUnwrapped(err)
		}
		return nil
	}
}

// Function maps a value and may fail
type Function[T, R any] func(T) (R, error)

// FunctionOf returns fn as a Function
func FunctionOf[T, R any](fn func(T) (R, error)) Function[T, R] {
	return fn
}

// Apply maps input and rethrows any error
func (f Function[T, R]) Apply(input T) R {
	v, err := f(input)
	if err != nil {
		Rethrow(err)
	}
	return v
}

// Unwrapping returns a Function that raises the unwrapped error of f
func (f Function[T, R]) Unwrapping() Function[T, R] {
	if f == nil {
		panic(Precondition("fault.Function.Unwrapping", "function"))
	}
	return func(input T) (R, error) {
		v, err := f(input)
		if err != nil {
			rethrowUnwrapped(err)
		}
		return v, nil
	}
}

// BiFunction maps two values and may fail
type BiFunction[T, U, R any] func(T, U) (R, error)

// BiFunctionOf returns fn as a BiFunction
func BiFunctionOf[T, U, R any](fn func(T, U) (R, error)) BiFunction[T, U, R] {
	return fn
}

// Apply maps both inputs and rethrows any error
func (f BiFunction[T, U, R]) Apply(first T, second U) R {
	v, err := f(first, second)
	if err != nil {
		Rethrow(err)
	}
	return v
}

// Unwrapping returns a BiFunction that raises the unwrapped error of f
func (f BiFunction[T, U, R]) Unwrapping() BiFunction[T, U, R] {
	if f == nil {
		panic(Precondition("fault.BiFunction.Unwrapping", "function"))
	}
	return func(first T, second U) (R, error) {
		v, err := f(first, second)
		if err != nil {
			rethrowUnwrapped(err)
		}
		return v, nil
	}
}

// Predicate tests a value and may fail
type Predicate[T any] func(T) (bool, error)

// PredicateOf returns fn as a Predicate
func PredicateOf[T any](fn func(T) (bool, error)) Predicate[T] {
	return fn
}

// Test evaluates the predicate and rethrows any error
func (p Predicate[T]) Test(input T) bool {
	ok, err := p(input)
	if err != nil {
		Rethrow(err)
	}
	return ok
}

// Unwrapping returns a Predicate that raises the unwrapped error of p
func (p Predicate[T]) Unwrapping() Predicate[T] {
	if p == nil {
		panic(Precondition("fault.Predicate.Unwrapping", "predicate"))
	}
	return func(input T) (bool, error) {
		ok, err := p(input)
		if err != nil {
			rethrowUnwrapped(err)
		}
		return ok, nil
	}
}
