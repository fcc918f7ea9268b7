package commands

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/conduit-lang/lineage/internal/cli/config"
	"github.com/conduit-lang/lineage/internal/server"
	"github.com/conduit-lang/lineage/internal/store"
	"github.com/conduit-lang/lineage/internal/watch"
	"github.com/conduit-lang/lineage/pkg/typegraph"
)

const testGraph = `version: "1"
types:
  - name: Marked
    package: app
    kind: interface
    annotations:
      - type: Marker
  - name: Base
    package: app
    annotations:
      - type: Entity
        attributes:
          table: bases
    methods:
      - name: load
        params: [java.lang.String]
        returns: app.Base
        modifiers: [public]
        annotations:
          - type: Cacheable
  - name: Child
    package: app
    extends: app.Base
    implements: [app.Marked]
    methods:
      - name: load
        params: [java.lang.String]
        returns: app.Base
        modifiers: [public]
`

// workspace writes a graph and a config file into a temporary directory and
// returns the config path
func workspace(t *testing.T, graph string) string {
	t.Helper()
	dir := t.TempDir()
	graphPath := filepath.Join(dir, "graph.yaml")
	require.NoError(t, os.WriteFile(graphPath, []byte(graph), 0o644))

	cfg := "graph:\n  path: " + graphPath + "\n" +
		"store:\n  driver: sqlite3\n  dsn: " + filepath.Join(dir, "lineage.db") + "\n" +
		"cache:\n  backend: memory\n" +
		"log:\n  level: error\n"
	cfgPath := filepath.Join(dir, "lineage.yml")
	require.NoError(t, os.WriteFile(cfgPath, []byte(cfg), 0o644))
	return cfgPath
}

func run(t *testing.T, cfgPath string, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCommand()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(append([]string{"--config", cfgPath, "--no-color"}, args...))
	err := cmd.Execute()
	return out.String(), err
}

func TestNewRootCommand(t *testing.T) {
	cmd := NewRootCommand()
	assert.Equal(t, "lineage", cmd.Use)
	assert.NotEmpty(t, cmd.Short)
	assert.NotEmpty(t, cmd.Long)

	for _, name := range []string{"config", "graph", "format", "no-color", "log-level"} {
		assert.NotNil(t, cmd.PersistentFlags().Lookup(name), name)
	}
	assert.Equal(t, FormatTable, cmd.PersistentFlags().Lookup("format").DefValue)

	for _, name := range []string{"version", "init", "validate", "types", "ancestors", "members", "find", "snapshot", "serve"} {
		sub, _, err := cmd.Find([]string{name})
		require.NoError(t, err)
		assert.Equal(t, name, sub.Name())
	}
}

func TestVersionCommand(t *testing.T) {
	Version = "1.0.0-test"
	GitCommit = "abc123"
	BuildDate = "2026-01-01"
	GoVersion = "go1.23"

	cmd := NewVersionCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.Run(cmd, nil)

	assert.Contains(t, out.String(), "1.0.0-test")
	assert.Contains(t, out.String(), "abc123")
	assert.Contains(t, out.String(), "go1.23")
}

func TestFormatFlag_Invalid(t *testing.T) {
	_, err := run(t, workspace(t, testGraph), "types", "--format", "xml")
	assert.EqualError(t, err, "--format must be table or json")
}

func TestValidateCommand(t *testing.T) {
	cfgPath := workspace(t, testGraph)

	t.Run("valid graph", func(t *testing.T) {
		out, err := run(t, cfgPath, "validate")
		require.NoError(t, err)
		assert.Contains(t, out, "✓")
		assert.Contains(t, out, "is valid: 3 types")
	})

	t.Run("json output", func(t *testing.T) {
		out, err := run(t, cfgPath, "validate", "--format", "json")
		require.NoError(t, err)
		var got map[string]any
		require.NoError(t, json.Unmarshal([]byte(out), &got))
		assert.Equal(t, true, got["valid"])
		assert.Equal(t, float64(3), got["types"])
		assert.NotEmpty(t, got["fingerprint"])
	})

	t.Run("invalid graph is reported per problem", func(t *testing.T) {
		bad := filepath.Join(t.TempDir(), "bad.yaml")
		content := "types:\n  - name: A\n    package: app\n    extends: app.Missing\n  - name: A\n    package: app\n"
		require.NoError(t, os.WriteFile(bad, []byte(content), 0o644))

		_, err := run(t, cfgPath, "validate", bad)
		var rep *reportError
		require.ErrorAs(t, err, &rep)
		assert.Equal(t, bad, rep.msg.Problem)
		assert.Len(t, rep.msg.Details, 2)
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := run(t, cfgPath, "validate", filepath.Join(t.TempDir(), "none.json"))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to load graph")
	})
}

func TestTypesCommand(t *testing.T) {
	cfgPath := workspace(t, testGraph)

	out, err := run(t, cfgPath, "types")
	require.NoError(t, err)
	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	require.Len(t, lines, 5)
	assert.True(t, strings.HasPrefix(lines[0], "NAME"))
	assert.Contains(t, lines[2], "app.Marked")
	assert.Contains(t, lines[2], "interface")
	assert.Contains(t, lines[4], "app.Base")
	assert.Contains(t, lines[4], "app.Marked")

	out, err = run(t, cfgPath, "types", "--format", "json", "--package", "other")
	require.NoError(t, err)
	assert.Equal(t, "[]\n", out)
}

func TestAncestorsCommand(t *testing.T) {
	cfgPath := workspace(t, testGraph)

	tests := []struct {
		name string
		args []string
		want []string
	}{
		{"excludes the type", []string{"ancestors", "app.Child"}, []string{"app.Base", "app.Marked"}},
		{"simple name", []string{"ancestors", "Child"}, []string{"app.Base", "app.Marked"}},
		{"with self", []string{"ancestors", "Child", "--self"}, []string{"app.Child", "app.Base", "app.Marked"}},
		{"root type", []string{"ancestors", "app.Marked"}, []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := run(t, cfgPath, append(tt.args, "--format", "json")...)
			require.NoError(t, err)
			var got struct {
				Ancestors []string `json:"ancestors"`
			}
			require.NoError(t, json.Unmarshal([]byte(out), &got))
			if len(tt.want) == 0 {
				assert.Empty(t, got.Ancestors)
				return
			}
			assert.Equal(t, tt.want, got.Ancestors)
		})
	}

	t.Run("unknown type suggests close names", func(t *testing.T) {
		_, err := run(t, cfgPath, "ancestors", "Chld")
		var rep *reportError
		require.ErrorAs(t, err, &rep)
		assert.Equal(t, "Chld", rep.msg.Problem)
		assert.Equal(t, []string{"app.Child"}, rep.msg.Suggestions)
	})
}

func TestMembersCommand(t *testing.T) {
	cfgPath := workspace(t, testGraph)

	out, err := run(t, cfgPath, "members", "app.Base")
	require.NoError(t, err)
	assert.Contains(t, out, "load(java.lang.String)")
	assert.Contains(t, out, "Cacheable")

	out, err = run(t, cfgPath, "members", "app.Child", "--format", "json")
	require.NoError(t, err)
	var view struct {
		Name    string `json:"name"`
		Extends string `json:"extends"`
		Methods []struct {
			Signature string `json:"signature"`
		} `json:"methods"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &view))
	assert.Equal(t, "app.Child", view.Name)
	assert.Equal(t, "app.Base", view.Extends)
	require.Len(t, view.Methods, 1)
	assert.Equal(t, "load(java.lang.String)", view.Methods[0].Signature)
}

type findResult struct {
	Element    string `json:"element"`
	Found      bool   `json:"found"`
	Source     string `json:"source"`
	Annotation struct {
		Type       string         `json:"type"`
		Attributes map[string]any `json:"attributes"`
	} `json:"annotation"`
}

func TestFindCommand(t *testing.T) {
	cfgPath := workspace(t, testGraph)

	tests := []struct {
		name       string
		args       []string
		wantFound  bool
		wantSource string
	}{
		{"annotation on an interface", []string{"app.Child", "-a", "Marker"}, true, "app.Marked"},
		{"annotation on the superclass", []string{"Child", "--annotation", "Entity"}, true, "app.Base"},
		{"absent on type", []string{"app.Child", "-a", "Missing"}, false, ""},
		{"inherited method annotation", []string{"app.Child", "load(java.lang.String)", "-a", "Cacheable"}, true, "app.Base.load(java.lang.String)"},
		{"method annotation not on class", []string{"app.Child", "-a", "Cacheable"}, false, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := run(t, cfgPath, append([]string{"find", "--format", "json"}, tt.args...)...)
			require.NoError(t, err)
			var got findResult
			require.NoError(t, json.Unmarshal([]byte(out), &got))
			assert.Equal(t, tt.wantFound, got.Found)
			assert.Equal(t, tt.wantSource, got.Source)
		})
	}

	t.Run("table output lists attributes", func(t *testing.T) {
		out, err := run(t, cfgPath, "find", "app.Child", "-a", "Entity")
		require.NoError(t, err)
		assert.Contains(t, out, "yes")
		assert.Contains(t, out, "table=bases")
		assert.Contains(t, out, "app.Base")
	})

	t.Run("annotation flag is required", func(t *testing.T) {
		_, err := run(t, cfgPath, "find", "app.Child")
		assert.EqualError(t, err, "--annotation is required")
	})

	t.Run("unknown method", func(t *testing.T) {
		_, err := run(t, cfgPath, "find", "app.Child", "save()", "-a", "Cacheable")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "unknown method")
	})

	t.Run("unknown type", func(t *testing.T) {
		_, err := run(t, cfgPath, "find", "app.Nope", "-a", "Marker")
		var rep *reportError
		assert.ErrorAs(t, err, &rep)
	})
}

func TestSnapshotCommands(t *testing.T) {
	cfgPath := workspace(t, testGraph)

	out, err := run(t, cfgPath, "snapshot", "save", "--name", "billing", "--format", "json")
	require.NoError(t, err)
	var first snapshotSummary
	require.NoError(t, json.Unmarshal([]byte(out), &first))
	assert.Equal(t, "billing", first.Name)
	assert.Equal(t, 1, first.Version)
	assert.Equal(t, 3, first.Types)

	out, err = run(t, cfgPath, "snapshot", "save", "--name", "billing")
	require.NoError(t, err)
	assert.Contains(t, out, "Saved billing version 2")

	out, err = run(t, cfgPath, "snapshot", "list", "--format", "json")
	require.NoError(t, err)
	var listed []snapshotSummary
	require.NoError(t, json.Unmarshal([]byte(out), &listed))
	assert.Len(t, listed, 2)

	t.Run("show latest by name and export", func(t *testing.T) {
		export := filepath.Join(t.TempDir(), "export.json")
		out, err := run(t, cfgPath, "snapshot", "show", "billing", "--output", export)
		require.NoError(t, err)
		assert.Contains(t, out, "billing")
		assert.Contains(t, out, "Definition written to")

		g, err := typegraph.LoadFile(export)
		require.NoError(t, err)
		assert.Equal(t, first.Fingerprint, g.Fingerprint())
	})

	t.Run("delete by id", func(t *testing.T) {
		out, err := run(t, cfgPath, "snapshot", "delete", first.ID.String(), "--yes")
		require.NoError(t, err)
		assert.Contains(t, out, "Deleted snapshot")

		_, err = run(t, cfgPath, "snapshot", "show", first.ID.String())
		assert.True(t, errors.Is(err, store.ErrNotFound))
	})

	t.Run("delete rejects a malformed id", func(t *testing.T) {
		_, err := run(t, cfgPath, "snapshot", "delete", "not-a-uuid", "--yes")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid snapshot id")
	})
}

func TestServeCommand_IssueToken(t *testing.T) {
	cfgPath := workspace(t, testGraph)

	_, err := run(t, cfgPath, "serve", "--issue-token", "ci")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cannot issue tokens")

	t.Setenv("LINEAGE_SERVER_JWT_SECRET", "s3cret")
	out, err := run(t, cfgPath, "serve", "--issue-token", "ci")
	require.NoError(t, err)
	assert.Len(t, strings.Split(strings.TrimSpace(out), "."), 3)
}

func TestServeCommand_UnknownSnapshot(t *testing.T) {
	cfgPath := workspace(t, testGraph)

	_, err := run(t, cfgPath, "serve", "--snapshot", "missing")
	assert.EqualError(t, err, `no snapshot "missing"`)
}

func TestServeCommand_WatchRejectsSnapshot(t *testing.T) {
	cfgPath := workspace(t, testGraph)

	_, err := run(t, cfgPath, "snapshot", "save", "--name", "billing")
	require.NoError(t, err)

	_, err = run(t, cfgPath, "serve", "--snapshot", "billing", "--watch")
	assert.EqualError(t, err, "--watch cannot be combined with --snapshot")
}

func TestSession_WatchGraphReloads(t *testing.T) {
	cfgPath := workspace(t, testGraph)
	s, err := (&globalOptions{configPath: cfgPath, format: FormatTable}).open()
	require.NoError(t, err)
	defer s.close()

	g, err := s.loadGraph("")
	require.NoError(t, err)
	resolver, err := s.resolver(g)
	require.NoError(t, err)
	srv, err := server.New(resolver, s.config.Server, s.logger)
	require.NoError(t, err)

	fw, err := s.watchGraph(srv)
	require.NoError(t, err)
	defer fw.Stop()

	t.Run("broken graph keeps the previous one", func(t *testing.T) {
		require.NoError(t, os.WriteFile(s.config.Graph.Path, []byte("types:\n  - name: A\n    extends: Missing\n"), 0o644))
		time.Sleep(3 * watch.DefaultDelay)
		assert.Same(t, resolver, srv.Resolver())
	})

	t.Run("valid graph is swapped in", func(t *testing.T) {
		next := testGraph + "  - name: Extra\n    package: app\n"
		require.NoError(t, os.WriteFile(s.config.Graph.Path, []byte(next), 0o644))
		require.Eventually(t, func() bool {
			return srv.Resolver().Graph().Len() == 4
		}, 2*time.Second, 20*time.Millisecond)
	})
}

func TestInitCommand(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "lineage.yml")

	out, err := run(t, path, "init", "--graph", "model/types.json")
	require.NoError(t, err)
	assert.Contains(t, out, "Wrote "+path)

	cfg, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, "model/types.json", cfg.Graph.Path)
	assert.Equal(t, store.DriverSQLite, cfg.Store.Driver)

	_, err = run(t, path, "init")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already exists")

	_, err = run(t, path, "init", "--force")
	assert.NoError(t, err)
}

func TestValidatePort(t *testing.T) {
	assert.NoError(t, validatePort("8080"))
	assert.Error(t, validatePort("0"))
	assert.Error(t, validatePort("http"))
}
