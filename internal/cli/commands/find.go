package commands

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/conduit-lang/lineage/internal/cli/ui"
	"github.com/conduit-lang/lineage/pkg/annotations"
)

// newFindCommand creates the find command
func newFindCommand(opts *globalOptions) *cobra.Command {
	var annotationType string

	cmd := &cobra.Command{
		Use:   "find <type> [method-signature]",
		Short: "Find an annotation on a type or method, following inheritance",
		Long: `Find an annotation on a type, or on one of its methods, the way an
inherited-annotation lookup does.

For a type, the type itself is checked first, then its supertypes in
breadth-first order. For a method, the method is checked first, then the
methods it overrides in the supertypes, closest first.

Results are cached when cache.backend is memory or redis.`,
		Example: `  # Annotation on a class or any of its supertypes
  lineage find app.Child --annotation Marker

  # Annotation on a method or the method it overrides
  lineage find app.Child 'load(java.lang.String)' --annotation Cacheable`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if annotationType == "" {
				return errors.New("--annotation is required")
			}

			s, err := opts.open()
			if err != nil {
				return err
			}
			defer s.close()

			g, err := s.loadGraph("")
			if err != nil {
				return err
			}
			resolver, err := s.resolver(g)
			if err != nil {
				return err
			}

			signature := ""
			if len(args) == 2 {
				signature = args[1]
			}
			res, err := resolver.FindNamed(cmd.Context(), args[0], signature, annotationType)
			if errors.Is(err, annotations.ErrUnknownType) {
				return report(ui.TypeNotFound(args[0], typeNames(g), opts.noColor))
			}
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if s.json() {
				return writeJSON(out, res)
			}

			table := ui.NewKeyValueTable(out, opts.noColor)
			table.AddRow("Element", res.Element)
			table.AddRow("Annotation", annotationType)
			if !res.Found {
				table.AddRow("Found", "no")
				table.Render()
				return nil
			}
			table.AddRow("Found", "yes")
			table.AddRow("Declared on", res.Source)
			if attrs := formatAttributes(res.Annotation.Attributes); attrs != "" {
				table.AddRow("Attributes", attrs)
			}
			if res.Cached {
				table.AddRow("Cached", "yes")
			}
			table.Render()
			return nil
		},
	}

	cmd.Flags().StringVarP(&annotationType, "annotation", "a", "", "Annotation type to look for (required)")
	return cmd
}

func formatAttributes(attrs map[string]any) string {
	keys := make([]string, 0, len(attrs))
	for k := range attrs {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = fmt.Sprintf("%s=%v", k, attrs[k])
	}
	return strings.Join(parts, ", ")
}
