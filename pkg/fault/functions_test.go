package fault

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func applyBi(fn func(string, string) string) {
	fn("kitten", "kitty")
}

func TestBiFunction(t *testing.T) {
	t.Run("of rethrows the original error", func(t *testing.T) {
		te := newTestError()
		f := BiFunctionOf(func(a, b string) (string, error) { return "", te })
		err := Catch(func() { applyBi(f.Apply) })
		assert.Same(t, te, err)
	})

	t.Run("unwrapping strips an invocation carrier", func(t *testing.T) {
		te := newTestError()
		f := BiFunctionOf(func(a, b string) (string, error) { return "", Invocation(te) })
		err := Catch(func() { applyBi(f.Unwrapping().Apply) })
		assert.Same(t, te, err)
	})

	t.Run("success passes the value through", func(t *testing.T) {
		f := BiFunctionOf(func(a, b string) (string, error) { return a + b, nil })
		assert.Equal(t, "kittenkitty", f.Unwrapping().Apply("kitten", "kitty"))
	})
}

func TestConsumer(t *testing.T) {
	t.Run("accept rethrows", func(t *testing.T) {
		te := newTestError()
		c := ConsumerOf(func(string) error { return te })
		assert.Same(t, te, Catch(func() { c.Accept("x") }))
	})

	t.Run("unwrapping strips an execution carrier", func(t *testing.T) {
		te := newTestError()
		c := ConsumerOf(func(string) error { return Execution(te) })
		assert.Same(t, te, Catch(func() { _ = c.Unwrapping()("x") }))
	})

	t.Run("unwrapping keeps non-carriers", func(t *testing.T) {
		re := Runtime("unchecked")
		c := ConsumerOf(func(string) error { return re })
		assert.Same(t, re, Catch(func() { c.Unwrapping().Accept("x") }))
	})

	t.Run("collects values when nothing fails", func(t *testing.T) {
		var seen []string
		c := ConsumerOf(func(s string) error {
			seen = append(seen, s)
			return nil
		}).Unwrapping()
		for _, s := range []string{"a", "b"} {
			c.Accept(s)
		}
		assert.Equal(t, []string{"a", "b"}, seen)
	})

	t.Run("nil consumer is a precondition violation", func(t *testing.T) {
		var c Consumer[string]
		assert.Panics(t, func() { c.Unwrapping() })
	})
}

func TestBiConsumer(t *testing.T) {
	te := newTestError()
	c := BiConsumerOf(func(string, int) error { return Invocation(te) })

	err := Catch(func() { c.Accept("x", 1) })
	var inv *InvocationError
	require.ErrorAs(t, err, &inv)
	assert.Same(t, te, inv.Target)

	assert.Same(t, te, Catch(func() { c.Unwrapping().Accept("x", 1) }))
}

func TestFunction(t *testing.T) {
	upper := FunctionOf(func(s string) (string, error) { return strings.ToUpper(s), nil })
	assert.Equal(t, "KITTEN", upper.Apply("kitten"))

	te := newTestError()
	failing := FunctionOf(func(string) (int, error) { return 0, Execution(te) })
	_, err := Try(func() int { return failing.Unwrapping().Apply("x") })
	assert.Same(t, te, err)
}

func TestSupplier(t *testing.T) {
	s := SupplierOf(func() (int, error) { return 3, nil })
	assert.Equal(t, 3, s.Get())

	te := newTestError()
	failing := SupplierOf(func() (int, error) { return 0, Invocation(te) })
	_, err := Try(failing.Unwrapping().Get)
	assert.Same(t, te, err)
}

func TestRunnable(t *testing.T) {
	te := newTestError()
	r := RunnableOf(func() error { return te })
	assert.Same(t, te, Catch(r.Run))
	assert.Same(t, te, Catch(r.Unwrapping().Run))
	assert.NoError(t, Catch(RunnableOf(func() error { return nil }).Run))
}

func TestPredicate(t *testing.T) {
	even := PredicateOf(func(n int) (bool, error) { return n%2 == 0, nil })
	assert.True(t, even.Test(2))
	assert.False(t, even.Test(3))

	te := newTestError()
	failing := PredicateOf(func(int) (bool, error) { return false, Execution(te) })
	_, err := Try(func() bool { return failing.Unwrapping().Test(1) })
	assert.Same(t, te, err)
}
