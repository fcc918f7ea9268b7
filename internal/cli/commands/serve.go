package commands

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/conduit-lang/lineage/internal/server"
	"github.com/conduit-lang/lineage/internal/store"
	"github.com/conduit-lang/lineage/internal/watch"
	"github.com/conduit-lang/lineage/pkg/typegraph"
)

// newServeCommand creates the serve command
func newServeCommand(opts *globalOptions) *cobra.Command {
	var (
		host       string
		port       int
		snapshot   string
		issueToken string
		tokenTTL   time.Duration
		watchGraph bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the graph over HTTP",
		Long: `Serve the graph and annotation lookups over HTTP.

Routes:
  GET /healthz
  GET /types
  GET /types/{name}
  GET /types/{name}/ancestors
  GET /types/{name}/annotations/{annotation}
  GET /types/{name}/methods/{signature}/annotations/{annotation}

When server.jwt_secret is set every route except /healthz requires an
HS256 bearer token. Use --issue-token to mint one.`,
		Example: `  lineage serve --port 9000
  lineage serve --snapshot billing
  lineage serve --watch
  lineage serve --issue-token ci --token-ttl 24h`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := opts.open()
			if err != nil {
				return err
			}
			defer s.close()

			cfg := s.config.Server
			if cmd.Flags().Changed("host") {
				cfg.Host = host
			}
			if cmd.Flags().Changed("port") {
				cfg.Port = port
			}

			if issueToken != "" {
				tokens, err := server.NewTokenService(cfg.JWTSecret)
				if err != nil {
					return fmt.Errorf("cannot issue tokens: %w", err)
				}
				token, err := tokens.Issue(issueToken, tokenTTL)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), token)
				return nil
			}

			g, err := s.serveGraph(cmd.Context(), snapshot)
			if err != nil {
				return err
			}
			resolver, err := s.resolver(g)
			if err != nil {
				return err
			}

			srv, err := server.New(resolver, cfg, s.logger)
			if err != nil {
				return err
			}

			if watchGraph {
				if snapshot != "" {
					return errors.New("--watch cannot be combined with --snapshot")
				}
				fw, err := s.watchGraph(srv)
				if err != nil {
					return err
				}
				defer fw.Stop()
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			color.New(color.FgGreen, color.Bold).Fprintf(cmd.OutOrStdout(), "Serving %d types on http://%s\n", g.Len(), cfg.Address())
			return srv.ListenAndServe(ctx)
		},
	}

	defaults := server.DefaultConfig()
	cmd.Flags().StringVar(&host, "host", defaults.Host, "Listen host, overrides server.host")
	cmd.Flags().IntVarP(&port, "port", "p", defaults.Port, "Listen port, overrides server.port")
	cmd.Flags().StringVar(&snapshot, "snapshot", "", "Serve a stored snapshot (id or name) instead of the graph file")
	cmd.Flags().StringVar(&issueToken, "issue-token", "", "Print a bearer token for this subject and exit")
	cmd.Flags().DurationVar(&tokenTTL, "token-ttl", time.Hour, "Lifetime of issued tokens")
	cmd.Flags().BoolVarP(&watchGraph, "watch", "w", false, "Reload the graph file when it changes")

	return cmd
}

// serveGraph loads the graph file, or the named snapshot when ref is set
func (s *session) serveGraph(ctx context.Context, ref string) (*typegraph.Graph, error) {
	if ref == "" {
		return s.loadGraph("")
	}

	st, err := s.openStore(ctx)
	if err != nil {
		return nil, err
	}
	defer st.Close()

	snap, err := findSnapshot(ctx, st, ref)
	if errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("no snapshot %q", ref)
	}
	if err != nil {
		return nil, err
	}

	g, err := snap.Graph()
	if err != nil {
		return nil, fmt.Errorf("snapshot %s version %d: %w", snap.Name, snap.Version, err)
	}
	s.logger.Info("serving snapshot",
		zap.String("name", snap.Name),
		zap.Int("version", snap.Version),
		zap.String("fingerprint", snap.Fingerprint),
	)
	return g, nil
}

// watchGraph reloads the graph file into srv whenever it changes. A graph
// that fails to build is logged and the previous one keeps being served.
func (s *session) watchGraph(srv *server.Server) (*watch.FileWatcher, error) {
	path := s.config.Graph.Path
	reload := func([]string) error {
		g, err := typegraph.LoadFile(path)
		if err != nil {
			s.logger.Warn("graph reload failed, keeping previous graph", zap.String("path", path), zap.Error(err))
			return nil
		}
		resolver, err := s.resolver(g)
		if err != nil {
			return err
		}
		srv.Swap(resolver)
		s.logger.Info("graph reloaded",
			zap.String("path", path),
			zap.Int("types", g.Len()),
			zap.String("fingerprint", g.Fingerprint()),
		)
		return nil
	}

	fw, err := watch.NewFileWatcher([]string{path}, watch.DefaultDelay, reload, s.logger)
	if err != nil {
		return nil, err
	}
	if err := fw.Start(); err != nil {
		return nil, err
	}
	return fw, nil
}
