package commands

import (
	"fmt"
	"os"
	"strconv"

	"github.com/AlecAivazis/survey/v2"
	"github.com/spf13/cobra"

	"github.com/conduit-lang/lineage/internal/cache"
	"github.com/conduit-lang/lineage/internal/cli/config"
	"github.com/conduit-lang/lineage/internal/cli/ui"
	"github.com/conduit-lang/lineage/internal/logging"
	"github.com/conduit-lang/lineage/internal/server"
	"github.com/conduit-lang/lineage/internal/store"
)

// newInitCommand creates the init command
func newInitCommand(opts *globalOptions) *cobra.Command {
	var (
		interactive bool
		force       bool
	)

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a lineage.yml configuration file",
		Long: `Write a lineage.yml configuration file with default settings.

Use --interactive to be asked for the graph file, cache backend and
snapshot database instead.`,
		Example: `  lineage init
  lineage init --interactive
  lineage init --config deploy/lineage.yml --force`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path := opts.configPath
			if path == "" {
				path = config.FileName + ".yml"
			}
			if _, err := os.Stat(path); err == nil && !force {
				return fmt.Errorf("%s already exists (use --force to overwrite)", path)
			}

			cfg := defaultConfig()
			if opts.graphPath != "" {
				cfg.Graph.Path = opts.graphPath
			}
			if interactive {
				if err := askConfig(cfg); err != nil {
					return err
				}
			}

			if err := config.Write(path, cfg); err != nil {
				return err
			}
			ui.WriteSuccess(cmd.OutOrStdout(), "Wrote "+path, opts.noColor)
			return nil
		},
	}

	cmd.Flags().BoolVarP(&interactive, "interactive", "i", false, "Ask for each setting")
	cmd.Flags().BoolVarP(&force, "force", "f", false, "Overwrite an existing file")
	return cmd
}

func defaultConfig() *config.Config {
	return &config.Config{
		Graph:  config.GraphConfig{Path: "graph.yml"},
		Log:    logging.DefaultConfig(),
		Cache:  cache.Config{Backend: cache.BackendNone, Redis: cache.DefaultRedisConfig()},
		Store:  store.Config{Driver: store.DriverSQLite, DSN: "lineage.db"},
		Server: server.DefaultConfig(),
	}
}

func askConfig(cfg *config.Config) error {
	answers := struct {
		Graph  string
		Cache  string
		Redis  string
		Driver string
		DSN    string
		Port   string
	}{}

	questions := []*survey.Question{
		{
			Name:     "graph",
			Prompt:   &survey.Input{Message: "Graph file (.json, .yaml):", Default: cfg.Graph.Path},
			Validate: survey.Required,
		},
		{
			Name: "cache",
			Prompt: &survey.Select{
				Message: "Resolution cache:",
				Options: []string{cache.BackendNone, cache.BackendMemory, cache.BackendRedis},
				Default: cfg.Cache.Backend,
			},
		},
	}
	if err := survey.Ask(questions, &answers); err != nil {
		return err
	}
	cfg.Graph.Path = answers.Graph
	cfg.Cache.Backend = answers.Cache

	if cfg.Cache.Backend == cache.BackendRedis {
		prompt := &survey.Input{Message: "Redis address:", Default: cfg.Cache.Redis.Addr}
		if err := survey.AskOne(prompt, &answers.Redis, survey.WithValidator(survey.Required)); err != nil {
			return err
		}
		cfg.Cache.Redis.Addr = answers.Redis
	}

	storeQuestions := []*survey.Question{
		{
			Name: "driver",
			Prompt: &survey.Select{
				Message: "Snapshot database:",
				Options: []string{store.DriverSQLite, store.DriverPostgres, store.DriverPgx},
				Default: cfg.Store.Driver,
			},
		},
		{
			Name:     "dsn",
			Prompt:   &survey.Input{Message: "Database DSN:", Default: cfg.Store.DSN},
			Validate: survey.Required,
		},
		{
			Name:     "port",
			Prompt:   &survey.Input{Message: "HTTP port:", Default: strconv.Itoa(cfg.Server.Port)},
			Validate: validatePort,
		},
	}
	if err := survey.Ask(storeQuestions, &answers); err != nil {
		return err
	}
	cfg.Store.Driver = answers.Driver
	cfg.Store.DSN = answers.DSN
	cfg.Server.Port, _ = strconv.Atoi(answers.Port)
	return nil
}

func validatePort(ans interface{}) error {
	s, _ := ans.(string)
	if p, err := strconv.Atoi(s); err != nil || p < 1 || p > 65535 {
		return fmt.Errorf("port must be between 1 and 65535")
	}
	return nil
}
