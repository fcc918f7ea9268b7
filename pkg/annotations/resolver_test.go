package annotations

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/conduit-lang/lineage/pkg/typegraph"
)

type mapCache struct {
	mu      sync.Mutex
	entries map[string][]byte
	sets    int
	failSet bool
}

func newMapCache() *mapCache {
	return &mapCache{entries: make(map[string][]byte)}
}

func (c *mapCache) Get(_ context.Context, key string) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.entries[key]
	if !ok {
		return nil, errors.New("miss")
	}
	return v, nil
}

func (c *mapCache) Set(_ context.Context, key string, value []byte, _ time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.failSet {
		return errors.New("cache unavailable")
	}
	c.sets++
	c.entries[key] = value
	return nil
}

func cacheableGraph(t *testing.T) *typegraph.Graph {
	t.Helper()
	return build(t,
		typegraph.TypeDef{Name: "Grandparent", Package: "app",
			Annotations: []typegraph.AnnotationDef{annotation("Entity", nil)},
			Methods: []typegraph.MemberDef{
				publicMethod("compute", annotation("Cacheable", map[string]any{"ttl": 60})),
				publicMethod("load", annotation("Cacheable", map[string]any{"ttl": 5})),
			}},
		typegraph.TypeDef{Name: "Parent", Package: "app", Extends: "app.Grandparent", Methods: []typegraph.MemberDef{
			publicMethod("compute"),
		}},
		typegraph.TypeDef{Name: "Child", Package: "app", Extends: "app.Parent", Methods: []typegraph.MemberDef{
			publicMethod("compute"),
			publicMethod("load"),
		}},
	)
}

func TestResolver_FindNamed(t *testing.T) {
	r := NewResolver(cacheableGraph(t), Config{})
	ctx := context.Background()

	t.Run("class", func(t *testing.T) {
		res, err := r.FindNamed(ctx, "Child", "", "Entity")
		require.NoError(t, err)
		assert.True(t, res.Found)
		assert.Equal(t, "app.Child", res.Element)
		assert.Equal(t, "app.Grandparent", res.Source)
	})

	t.Run("inherited method annotation", func(t *testing.T) {
		res, err := r.FindNamed(ctx, "app.Child", "load()", "Cacheable")
		require.NoError(t, err)
		require.True(t, res.Found)
		assert.Equal(t, "app.Grandparent.load()", res.Source)
		assert.Equal(t, float64(5), res.Annotation.Attributes["ttl"])
	})

	t.Run("annotation behind an unannotated override", func(t *testing.T) {
		res, err := r.FindNamed(ctx, "app.Child", "compute", "Cacheable")
		require.NoError(t, err)
		require.True(t, res.Found)
		assert.Equal(t, "app.Grandparent.compute()", res.Source)
		assert.Equal(t, float64(60), res.Annotation.Attributes["ttl"])
	})

	t.Run("absent method annotation", func(t *testing.T) {
		res, err := r.FindNamed(ctx, "app.Child", "compute()", "Timed")
		require.NoError(t, err)
		assert.False(t, res.Found)
		assert.Empty(t, res.Source)
	})

	t.Run("unknown type", func(t *testing.T) {
		_, err := r.FindNamed(ctx, "app.Missing", "", "Entity")
		assert.ErrorIs(t, err, ErrUnknownType)
	})

	t.Run("unknown method", func(t *testing.T) {
		_, err := r.FindNamed(ctx, "app.Child", "missing(int)", "Cacheable")
		assert.ErrorIs(t, err, ErrUnknownMethod)
	})

	t.Run("malformed signature", func(t *testing.T) {
		_, err := r.FindNamed(ctx, "app.Child", "compute(", "Cacheable")
		assert.Error(t, err)
	})
}

func TestResolver_Cache(t *testing.T) {
	g := cacheableGraph(t)
	cache := newMapCache()
	r := NewResolver(g, Config{Cache: cache, TTL: time.Minute})
	ctx := context.Background()

	first, err := r.FindNamed(ctx, "app.Child", "load()", "Cacheable")
	require.NoError(t, err)
	assert.False(t, first.Cached)
	assert.Equal(t, 1, cache.sets)

	second, err := r.FindNamed(ctx, "app.Child", "load()", "Cacheable")
	require.NoError(t, err)
	assert.True(t, second.Cached)
	assert.Equal(t, first.Source, second.Source)
	assert.True(t, second.Found)
	assert.Equal(t, 1, cache.sets)

	second.Cached = false
	assert.Equal(t, first, second, "a cached resolution matches the fresh one")

	t.Run("absence is cached", func(t *testing.T) {
		_, err := r.FindNamed(ctx, "app.Child", "compute()", "Timed")
		require.NoError(t, err)
		res, err := r.FindNamed(ctx, "app.Child", "compute()", "Timed")
		require.NoError(t, err)
		assert.True(t, res.Cached)
		assert.False(t, res.Found)
	})

	t.Run("keys include the graph fingerprint", func(t *testing.T) {
		key := CacheKey(g.Fingerprint(), "app.Child.load()", "Cacheable")
		_, ok := cache.entries[key]
		assert.True(t, ok)
	})

	t.Run("generic elements are not cached", func(t *testing.T) {
		before := cache.sets
		set, err := typegraph.NewAnnotationSet(typegraph.Annotation{Type: "NotNull"})
		require.NoError(t, err)
		res := r.Resolve(ctx, Generic{Name: "field", Annotations: set}, "NotNull")
		assert.True(t, res.Found)
		assert.Equal(t, before, cache.sets)
	})
}

func TestResolver_CacheFailuresAreLogged(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	cache := newMapCache()
	cache.failSet = true
	r := NewResolver(cacheableGraph(t), Config{Logger: zap.New(core), Cache: cache})

	res, err := r.FindNamed(context.Background(), "app.Child", "", "Entity")
	require.NoError(t, err)
	assert.True(t, res.Found)

	assert.Equal(t, 1, logs.FilterMessage("annotation resolved").Len())
	warnings := logs.FilterMessage("failed to cache resolution").All()
	require.Len(t, warnings, 1)
	assert.Equal(t, zapcore.WarnLevel, warnings[0].Level)
}

func TestResolver_DiscardsUnreadableEntries(t *testing.T) {
	g := cacheableGraph(t)
	cache := newMapCache()
	cache.entries[CacheKey(g.Fingerprint(), "app.Child", "Entity")] = []byte("{not json")
	r := NewResolver(g, Config{Cache: cache})

	res, err := r.FindNamed(context.Background(), "app.Child", "", "Entity")
	require.NoError(t, err)
	assert.False(t, res.Cached)
	assert.True(t, res.Found)
}

func TestResolver_Preconditions(t *testing.T) {
	r := NewResolver(cacheableGraph(t), Config{})
	assert.Panics(t, func() { r.Resolve(context.Background(), nil, "X") })
	assert.Panics(t, func() { _, _ = r.FindNamed(context.Background(), "app.Child", "", "") })
}
