package commands

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/AlecAivazis/survey/v2"
	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/conduit-lang/lineage/internal/cli/ui"
	"github.com/conduit-lang/lineage/internal/store"
	"github.com/conduit-lang/lineage/pkg/typegraph"
)

// newSnapshotCommand creates the snapshot command group
func newSnapshotCommand(opts *globalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "snapshot",
		Short: "Store and inspect versioned graph snapshots",
		Long: `Store and inspect versioned graph snapshots.

Snapshots are kept in the database configured under store. Every save of a
name creates the next version of that name.`,
		Example: `  lineage snapshot save --name billing
  lineage snapshot list
  lineage snapshot show billing
  lineage snapshot show 2f1c7a6e-0c1f-4c55-9a55-0d7c8e8b7a11 --output graph.yaml
  lineage snapshot delete 2f1c7a6e-0c1f-4c55-9a55-0d7c8e8b7a11 --yes`,
	}

	cmd.AddCommand(newSnapshotSaveCommand(opts))
	cmd.AddCommand(newSnapshotListCommand(opts))
	cmd.AddCommand(newSnapshotShowCommand(opts))
	cmd.AddCommand(newSnapshotDeleteCommand(opts))

	return cmd
}

func (s *session) openStore(ctx context.Context) (*store.Store, error) {
	return store.Open(ctx, s.config.Store, s.logger)
}

func newSnapshotSaveCommand(opts *globalOptions) *cobra.Command {
	var name string

	cmd := &cobra.Command{
		Use:   "save [graph-file]",
		Short: "Save the graph as the next snapshot version",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := opts.open()
			if err != nil {
				return err
			}
			defer s.close()

			path := s.config.Graph.Path
			if len(args) == 1 {
				path = args[0]
			}
			g, err := s.loadGraph(path)
			if err != nil {
				return err
			}
			if name == "" {
				name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
			}

			st, err := s.openStore(cmd.Context())
			if err != nil {
				return err
			}
			defer st.Close()

			snap, err := st.Save(cmd.Context(), name, g)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if s.json() {
				return writeJSON(out, summary(snap))
			}
			ui.WriteSuccess(out, fmt.Sprintf("Saved %s version %d (%s)", snap.Name, snap.Version, snap.ID), opts.noColor)
			return nil
		},
	}

	cmd.Flags().StringVarP(&name, "name", "n", "", "Snapshot name (default: graph file name)")
	return cmd
}

func newSnapshotListCommand(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List stored snapshots",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := opts.open()
			if err != nil {
				return err
			}
			defer s.close()

			st, err := s.openStore(cmd.Context())
			if err != nil {
				return err
			}
			defer st.Close()

			snaps, err := st.List(cmd.Context())
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if s.json() {
				summaries := make([]snapshotSummary, len(snaps))
				for i, snap := range snaps {
					summaries[i] = summary(snap)
				}
				return writeJSON(out, summaries)
			}

			table := ui.NewTable(out, opts.noColor, "ID", "NAME", "VERSION", "TYPES", "FINGERPRINT", "CREATED")
			for _, snap := range snaps {
				table.AddRow(
					snap.ID.String(),
					snap.Name,
					strconv.Itoa(snap.Version),
					strconv.Itoa(snap.Types),
					snap.Fingerprint,
					snap.CreatedAt.Local().Format(time.DateTime),
				)
			}
			table.Render()
			return nil
		},
	}
}

func newSnapshotShowCommand(opts *globalOptions) *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "show <id|name>",
		Short: "Show a snapshot, or the latest version of a name",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := opts.open()
			if err != nil {
				return err
			}
			defer s.close()

			st, err := s.openStore(cmd.Context())
			if err != nil {
				return err
			}
			defer st.Close()

			snap, err := findSnapshot(cmd.Context(), st, args[0])
			if err != nil {
				return err
			}

			if output != "" {
				if err := exportDefinition(output, snap.Definition); err != nil {
					return err
				}
			}

			out := cmd.OutOrStdout()
			if s.json() {
				return writeJSON(out, snap)
			}

			table := ui.NewKeyValueTable(out, opts.noColor)
			table.AddRow("ID", snap.ID.String())
			table.AddRow("Name", snap.Name)
			table.AddRow("Version", strconv.Itoa(snap.Version))
			table.AddRow("Fingerprint", snap.Fingerprint)
			table.AddRow("Types", strconv.Itoa(snap.Types))
			table.AddRow("Created", snap.CreatedAt.Local().Format(time.DateTime))
			table.Render()

			if output != "" {
				ui.WriteSuccess(out, "Definition written to "+output, opts.noColor)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "Write the stored definition to a .json or .yaml file")
	return cmd
}

func newSnapshotDeleteCommand(opts *globalOptions) *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a snapshot",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := uuid.Parse(args[0])
			if err != nil {
				return fmt.Errorf("invalid snapshot id %q: %w", args[0], err)
			}

			if !yes {
				confirmed := false
				prompt := &survey.Confirm{
					Message: fmt.Sprintf("Delete snapshot %s?", id),
				}
				if err := survey.AskOne(prompt, &confirmed); err != nil {
					return err
				}
				if !confirmed {
					return nil
				}
			}

			s, err := opts.open()
			if err != nil {
				return err
			}
			defer s.close()

			st, err := s.openStore(cmd.Context())
			if err != nil {
				return err
			}
			defer st.Close()

			if err := st.Delete(cmd.Context(), id); err != nil {
				return err
			}
			ui.WriteSuccess(cmd.OutOrStdout(), "Deleted snapshot "+id.String(), opts.noColor)
			return nil
		},
	}

	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Do not ask for confirmation")
	return cmd
}

// findSnapshot resolves ref as a snapshot id, or else as the name of the
// latest version
func findSnapshot(ctx context.Context, st *store.Store, ref string) (*store.Snapshot, error) {
	if id, err := uuid.Parse(ref); err == nil {
		return st.Get(ctx, id)
	}
	return st.Latest(ctx, ref)
}

// snapshotSummary is a snapshot without its definition
type snapshotSummary struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	Version     int       `json:"version"`
	Fingerprint string    `json:"fingerprint"`
	Types       int       `json:"types"`
	CreatedAt   time.Time `json:"created_at"`
}

func summary(snap *store.Snapshot) snapshotSummary {
	return snapshotSummary{
		ID:          snap.ID,
		Name:        snap.Name,
		Version:     snap.Version,
		Fingerprint: snap.Fingerprint,
		Types:       snap.Types,
		CreatedAt:   snap.CreatedAt,
	}
}

func exportDefinition(path string, def typegraph.Definition) error {
	format, err := typegraph.FormatFromPath(path)
	if err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	if err := typegraph.Encode(f, def, format); err != nil {
		f.Close()
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return f.Close()
}
