package ui

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"

	"github.com/conduit-lang/lineage/pkg/typegraph"
)

// Level is the severity of a message
type Level int

const (
	LevelError Level = iota
	LevelWarning
	LevelInfo
)

// Message is a problem report with optional suggestions and follow-up commands
type Message struct {
	Level        Level
	Context      string
	Problem      string
	Details      []string
	Suggestions  []string
	HelpCommands []string
	NoColor      bool
}

// Format renders the message.
//
// Example output:
//
//	✗ TYPE NOT FOUND: Usr
//
//	   Did you mean: app.User?
//
//	   → See all types: lineage types
func (m Message) Format() string {
	var b strings.Builder

	var attrs []color.Attribute
	symbol := "✗"
	switch m.Level {
	case LevelWarning:
		attrs, symbol = []color.Attribute{color.FgYellow}, "!"
	case LevelInfo:
		attrs, symbol = []color.Attribute{color.FgCyan}, "i"
	default:
		attrs = []color.Attribute{color.FgRed}
	}
	head := newColor(m.NoColor, append(attrs, color.Bold)...)
	body := newColor(m.NoColor, attrs...)

	if m.Context != "" {
		head.Fprintf(&b, "%s %s: %s\n", symbol, strings.ToUpper(m.Context), m.Problem)
	} else {
		head.Fprintf(&b, "%s %s\n", symbol, m.Problem)
	}
	for _, d := range m.Details {
		body.Fprintf(&b, "   %s\n", d)
	}
	if len(m.Suggestions) > 0 {
		b.WriteString("\n")
		newColor(m.NoColor, color.FgYellow).Fprintf(&b, "   Did you mean: %s?\n", strings.Join(m.Suggestions, ", "))
	}
	if len(m.HelpCommands) > 0 {
		b.WriteString("\n")
		cyan := newColor(m.NoColor, color.FgCyan)
		for _, cmd := range m.HelpCommands {
			cyan.Fprintf(&b, "   → %s\n", cmd)
		}
	}
	return b.String()
}

// Write writes the formatted message to w
func (m Message) Write(w io.Writer) {
	fmt.Fprint(w, m.Format())
}

// TypeNotFound reports an unknown type name with close matches from known
func TypeNotFound(name string, known []string, noColor bool) Message {
	return Message{
		Context:     "type not found",
		Problem:     name,
		Suggestions: FindSimilar(name, known, 2),
		HelpCommands: []string{
			"See all types: lineage types",
		},
		NoColor: noColor,
	}
}

// GraphInvalid reports every problem found while building a graph. Errors
// that are not build errors are reported as a single detail line.
func GraphInvalid(path string, err error, noColor bool) Message {
	m := Message{
		Context: "invalid graph",
		Problem: path,
		HelpCommands: []string{
			"Check a graph file: lineage validate " + path,
		},
		NoColor: noColor,
	}
	var buildErrs typegraph.BuildErrors
	if errors.As(err, &buildErrs) {
		for _, be := range buildErrs {
			m.Details = append(m.Details, be.Error())
		}
		return m
	}
	m.Details = []string{err.Error()}
	return m
}

// FormatSuccess formats a success line
func FormatSuccess(message string, noColor bool) string {
	return newColor(noColor, color.FgGreen, color.Bold).Sprintf("✓ %s", message)
}

// WriteSuccess writes a success line to w
func WriteSuccess(w io.Writer, message string, noColor bool) {
	fmt.Fprintln(w, FormatSuccess(message, noColor))
}
