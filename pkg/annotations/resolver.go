package annotations

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/conduit-lang/lineage/pkg/typegraph"
)

var (
	// ErrUnknownType is returned when a type name does not resolve
	ErrUnknownType = errors.New("unknown type")
	// ErrUnknownMethod is returned when a type does not declare the signature
	ErrUnknownMethod = errors.New("unknown method")
)

// ResultCache stores encoded resolutions. internal/cache backends satisfy it.
type ResultCache interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// Config configures a Resolver
type Config struct {
	// Logger receives debug output for every resolution; nil disables logging
	Logger *zap.Logger
	// Cache stores results per graph fingerprint; nil disables caching
	Cache ResultCache
	// TTL is passed to the cache; zero uses the backend default
	TTL time.Duration
}

// Resolution is the outcome of a lookup
type Resolution struct {
	Element    string               `json:"element"`
	Annotation typegraph.Annotation `json:"annotation"`
	Found      bool                 `json:"found"`
	// Source is the key of the element that declares the annotation
	Source string `json:"source,omitempty"`
	Cached bool   `json:"-"`
}

// Resolver resolves annotations against one graph
type Resolver struct {
	graph  *typegraph.Graph
	logger *zap.Logger
	cache  ResultCache
	ttl    time.Duration
}

// NewResolver creates a resolver for g
func NewResolver(g *typegraph.Graph, cfg Config) *Resolver {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Resolver{
		graph:  g,
		logger: logger,
		cache:  cfg.Cache,
		ttl:    cfg.TTL,
	}
}

// Graph returns the graph the resolver works on
func (r *Resolver) Graph() *typegraph.Graph { return r.graph }

// Resolve finds annotationType on element. Cache failures are logged and
// otherwise ignored.
func (r *Resolver) Resolve(ctx context.Context, element Element, annotationType string) Resolution {
	checkArgs("annotations.Resolver.Resolve", element, annotationType)

	key := ""
	if _, generic := element.(Generic); !generic {
		key = CacheKey(r.graph.Fingerprint(), element.Key(), annotationType)
	}

	if res, ok := r.cached(ctx, key); ok {
		r.logger.Debug("annotation resolved",
			zap.String("element", res.Element),
			zap.String("annotation", annotationType),
			zap.Bool("found", res.Found),
			zap.Bool("cached", true),
		)
		return res
	}

	a, source, found := find(element, annotationType)
	res := Resolution{
		Element:    element.Key(),
		Annotation: a,
		Found:      found,
		Source:     source,
	}

	r.logger.Debug("annotation resolved",
		zap.String("element", res.Element),
		zap.String("annotation", annotationType),
		zap.Bool("found", found),
		zap.String("source", source),
	)

	r.store(ctx, key, res)
	return res
}

// FindClass resolves annotationType on the named type
func (r *Resolver) FindClass(ctx context.Context, typeName, annotationType string) (Resolution, error) {
	t, ok := r.graph.Type(typeName)
	if !ok {
		return Resolution{}, fmt.Errorf("%w: %s", ErrUnknownType, typeName)
	}
	return r.Resolve(ctx, Class{Type: t}, annotationType), nil
}

// FindMethod resolves annotationType on a method of the named type
func (r *Resolver) FindMethod(ctx context.Context, typeName string, sig typegraph.Signature, annotationType string) (Resolution, error) {
	if _, ok := r.graph.Type(typeName); !ok {
		return Resolution{}, fmt.Errorf("%w: %s", ErrUnknownType, typeName)
	}
	m, ok := r.graph.Method(typeName, sig)
	if !ok {
		return Resolution{}, fmt.Errorf("%w: %s.%s", ErrUnknownMethod, typeName, sig.Key())
	}
	return r.Resolve(ctx, Method{Member: m}, annotationType), nil
}

// FindNamed resolves annotationType on a type, or on one of its methods when
// signature is not empty. The signature uses the "name(type1,type2)" form.
func (r *Resolver) FindNamed(ctx context.Context, typeName, signature, annotationType string) (Resolution, error) {
	if signature == "" {
		return r.FindClass(ctx, typeName, annotationType)
	}
	sig, err := typegraph.ParseSignature(signature)
	if err != nil {
		return Resolution{}, err
	}
	return r.FindMethod(ctx, typeName, sig, annotationType)
}

func (r *Resolver) cached(ctx context.Context, key string) (Resolution, bool) {
	if r.cache == nil || key == "" {
		return Resolution{}, false
	}
	data, err := r.cache.Get(ctx, key)
	if err != nil {
		return Resolution{}, false
	}
	var res Resolution
	if err := json.Unmarshal(data, &res); err != nil {
		r.logger.Warn("discarding unreadable cache entry", zap.String("key", key), zap.Error(err))
		return Resolution{}, false
	}
	res.Cached = true
	return res, true
}

func (r *Resolver) store(ctx context.Context, key string, res Resolution) {
	if r.cache == nil || key == "" {
		return
	}
	data, err := json.Marshal(res)
	if err != nil {
		r.logger.Warn("failed to encode resolution", zap.String("key", key), zap.Error(err))
		return
	}
	if err := r.cache.Set(ctx, key, data, r.ttl); err != nil {
		r.logger.Warn("failed to cache resolution", zap.String("key", key), zap.Error(err))
	}
}

// CacheKey derives the cache key of a resolution
func CacheKey(fingerprint, elementKey, annotationType string) string {
	return "resolve:" + fingerprint + ":" + elementKey + "@" + annotationType
}
