package commands

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"go.uber.org/zap"

	"github.com/conduit-lang/lineage/internal/cache"
	"github.com/conduit-lang/lineage/internal/cli/config"
	"github.com/conduit-lang/lineage/internal/cli/ui"
	"github.com/conduit-lang/lineage/internal/logging"
	"github.com/conduit-lang/lineage/pkg/annotations"
	"github.com/conduit-lang/lineage/pkg/typegraph"
)

// session is the loaded configuration and logger of one command run
type session struct {
	opts   *globalOptions
	config *config.Config
	logger *zap.Logger

	cacheOpened bool
	cache       cache.Cache
}

func (o *globalOptions) open() (*session, error) {
	cfg, err := config.Load(o.configPath)
	if err != nil {
		return nil, err
	}
	if o.graphPath != "" {
		cfg.Graph.Path = o.graphPath
	}
	if o.logLevel != "" {
		cfg.Log.Level = o.logLevel
	}

	logger, err := logging.New(cfg.Log)
	if err != nil {
		return nil, err
	}
	if cfg.File != "" {
		logger.Debug("configuration loaded", zap.String("file", cfg.File))
	}
	return &session{opts: o, config: cfg, logger: logger}, nil
}

func (s *session) close() {
	if s.cache != nil {
		if err := s.cache.Close(); err != nil {
			s.logger.Warn("failed to close cache", zap.Error(err))
		}
	}
	_ = s.logger.Sync()
}

func (s *session) json() bool {
	return s.opts.format == FormatJSON
}

// loadGraph builds the graph at path, or at graph.path when path is empty
func (s *session) loadGraph(path string) (*typegraph.Graph, error) {
	if path == "" {
		path = s.config.Graph.Path
	}
	g, err := typegraph.LoadFile(path)
	if err != nil {
		var buildErrs typegraph.BuildErrors
		if errors.As(err, &buildErrs) {
			return nil, report(ui.GraphInvalid(path, err, s.opts.noColor))
		}
		return nil, fmt.Errorf("failed to load graph %s: %w", path, err)
	}
	s.logger.Debug("graph loaded",
		zap.String("path", path),
		zap.Int("types", g.Len()),
		zap.String("fingerprint", g.Fingerprint()),
	)
	return g, nil
}

// lookupType finds name in g or reports it with suggestions
func (s *session) lookupType(g *typegraph.Graph, name string) (*typegraph.TypeNode, error) {
	if t, ok := g.Type(name); ok {
		return t, nil
	}
	return nil, report(ui.TypeNotFound(name, typeNames(g), s.opts.noColor))
}

// resolver creates a resolver for g backed by the configured cache. The
// cache is opened once per session and shared by every resolver.
func (s *session) resolver(g *typegraph.Graph) (*annotations.Resolver, error) {
	if !s.cacheOpened {
		c, err := cache.Open(s.config.Cache, s.logger)
		if err != nil {
			return nil, err
		}
		s.cache, s.cacheOpened = c, true
	}
	cfg := annotations.Config{Logger: s.logger, TTL: s.config.Cache.TTL}
	if s.cache != nil {
		cfg.Cache = s.cache
	}
	return annotations.NewResolver(g, cfg), nil
}

func typeNames(g *typegraph.Graph) []string {
	types := g.Types()
	names := make([]string, len(types))
	for i, t := range types {
		names[i] = t.QualifiedName()
	}
	return names
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
