package commands

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/conduit-lang/lineage/internal/cli/ui"
	"github.com/conduit-lang/lineage/internal/server"
	"github.com/conduit-lang/lineage/pkg/typegraph"
)

// newValidateCommand creates the validate command
func newValidateCommand(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "validate [graph-file]",
		Short: "Check a graph file",
		Long: `Decode and build a graph file, reporting every problem found.

The file is JSON or YAML depending on its extension. Without an argument the
file configured as graph.path is checked.`,
		Example: `  lineage validate
  lineage validate model/types.yaml`,
		Args: cobra.MaximumNArgs(1),
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

			out := cmd.OutOrStdout()
			if s.json() {
				return writeJSON(out, map[string]any{
					"path":        path,
					"valid":       true,
					"types":       g.Len(),
					"fingerprint": g.Fingerprint(),
				})
			}
			ui.WriteSuccess(out, fmt.Sprintf("%s is valid: %d types, fingerprint %s", path, g.Len(), g.Fingerprint()), opts.noColor)
			return nil
		},
	}
}

// newTypesCommand creates the types command
func newTypesCommand(opts *globalOptions) *cobra.Command {
	var pkg string

	cmd := &cobra.Command{
		Use:   "types",
		Short: "List the types of the graph",
		Example: `  lineage types
  lineage types --package app.model --format json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := opts.open()
			if err != nil {
				return err
			}
			defer s.close()

			g, err := s.loadGraph("")
			if err != nil {
				return err
			}

			var types []*typegraph.TypeNode
			for _, t := range g.Types() {
				if pkg == "" || t.Package() == pkg {
					types = append(types, t)
				}
			}

			out := cmd.OutOrStdout()
			if s.json() {
				views := make([]server.TypeView, len(types))
				for i, t := range types {
					views[i] = server.ViewOf(t, false)
				}
				return writeJSON(out, views)
			}

			table := ui.NewTable(out, opts.noColor, "NAME", "KIND", "EXTENDS", "IMPLEMENTS", "ANNOTATIONS")
			for _, t := range types {
				extends := ""
				if super := t.Super(); super != nil {
					extends = super.QualifiedName()
				}
				table.AddRow(t.QualifiedName(), t.Kind().String(), extends, joinNames(t.Interfaces()), strings.Join(t.Annotations().Types(), ", "))
			}
			table.Render()
			return nil
		},
	}

	cmd.Flags().StringVar(&pkg, "package", "", "Only list types of this package")
	return cmd
}

// newAncestorsCommand creates the ancestors command
func newAncestorsCommand(opts *globalOptions) *cobra.Command {
	var self bool

	cmd := &cobra.Command{
		Use:   "ancestors <type>",
		Short: "Show the supertypes of a type in lookup order",
		Long: `Show the supertypes of a type in the order annotation lookup visits them.

The walk is breadth-first: the superclass of each type comes before its
interfaces, and a type reachable along several paths is listed once.`,
		Example: `  lineage ancestors app.Child
  lineage ancestors Child --self`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := opts.open()
			if err != nil {
				return err
			}
			defer s.close()

			g, err := s.loadGraph("")
			if err != nil {
				return err
			}
			t, err := s.lookupType(g, args[0])
			if err != nil {
				return err
			}

			walk := typegraph.Ancestors(t)
			if self {
				walk = typegraph.Hierarchy(t)
			}
			var chain []*typegraph.TypeNode
			for a := range walk {
				chain = append(chain, a)
			}

			out := cmd.OutOrStdout()
			if s.json() {
				names := make([]string, len(chain))
				for i, a := range chain {
					names[i] = a.QualifiedName()
				}
				return writeJSON(out, map[string]any{"type": t.QualifiedName(), "ancestors": names})
			}

			table := ui.NewTable(out, opts.noColor, "#", "TYPE", "KIND")
			for i, a := range chain {
				table.AddRow(strconv.Itoa(i+1), a.QualifiedName(), a.Kind().String())
			}
			table.Render()
			return nil
		},
	}

	cmd.Flags().BoolVar(&self, "self", false, "Include the type itself")
	return cmd
}

// newMembersCommand creates the members command
func newMembersCommand(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "members <type>",
		Short: "Show the methods declared by a type",
		Example: `  lineage members app.Repository
  lineage members Repository --format json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := opts.open()
			if err != nil {
				return err
			}
			defer s.close()

			g, err := s.loadGraph("")
			if err != nil {
				return err
			}
			t, err := s.lookupType(g, args[0])
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if s.json() {
				return writeJSON(out, server.ViewOf(t, true))
			}

			ui.Header(out, t.QualifiedName(), opts.noColor)
			table := ui.NewTable(out, opts.noColor, "SIGNATURE", "RETURNS", "MODIFIERS", "ANNOTATIONS")
			for _, m := range t.Members() {
				table.AddRow(m.Signature().Key(), m.Returns(), m.Modifiers().String(), strings.Join(m.Annotations().Types(), ", "))
			}
			table.Render()
			return nil
		},
	}
}

func joinNames(types []*typegraph.TypeNode) string {
	names := make([]string, len(types))
	for i, t := range types {
		names[i] = t.QualifiedName()
	}
	return strings.Join(names, ", ")
}
