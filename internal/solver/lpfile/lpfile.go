// Package lpfile writes solver models in CPLEX LP format so they can be
// inspected or handed to an external solver.
package lpfile

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/stitts-dev/fpl-squad/internal/solver"
)

const maxLineLength = 200

// Write emits m in CPLEX LP format
func Write(w io.Writer, m *solver.Model) error {
	if err := m.Validate(); err != nil {
		return err
	}

	names := variableNames(m)
	bw := bufio.NewWriter(w)

	fmt.Fprintf(bw, "\\* %s *\\\n", sanitize(m.Name, "model"))
	if m.Maximize {
		bw.WriteString("Maximize\n")
	} else {
		bw.WriteString("Minimize\n")
	}
	writeExpression(bw, "OBJ", m.Objective(), names)
	bw.WriteString("\n")

	bw.WriteString("Subject To\n")
	used := make(map[string]int)
	for i, c := range m.Constraints() {
		name := uniqueName(sanitize(c.Name, fmt.Sprintf("_C%d", i+1)), used)
		if len(c.Terms) == 0 {
			if len(names) == 0 {
				fmt.Fprintf(bw, "\\* %s: constant constraint 0 %s %s *\\\n", name, c.Sense, formatNumber(c.RHS))
				continue
			}
			c.Terms = []solver.Term{{Var: 0, Coef: 0}}
		}
		writeExpression(bw, name, c.Terms, names)
		fmt.Fprintf(bw, " %s %s\n", c.Sense, formatNumber(c.RHS))
	}

	if len(names) > 0 {
		bw.WriteString("Binaries\n")
		for _, n := range names {
			bw.WriteString(n)
			bw.WriteString("\n")
		}
	}
	bw.WriteString("End\n")

	return bw.Flush()
}

func writeExpression(bw *bufio.Writer, label string, terms []solver.Term, names []string) {
	line := label + ":"
	if len(terms) == 0 {
		bw.WriteString(line)
		return
	}
	for i, t := range terms {
		var part string
		switch {
		case i == 0 && t.Coef < 0:
			part = fmt.Sprintf(" -%s %s", formatNumber(-t.Coef), names[t.Var])
		case i == 0:
			part = fmt.Sprintf(" %s %s", formatNumber(t.Coef), names[t.Var])
		case t.Coef < 0:
			part = fmt.Sprintf(" - %s %s", formatNumber(-t.Coef), names[t.Var])
		default:
			part = fmt.Sprintf(" + %s %s", formatNumber(t.Coef), names[t.Var])
		}
		if len(line)+len(part) > maxLineLength {
			bw.WriteString(line)
			bw.WriteString("\n")
			line = ""
		}
		line += part
	}
	bw.WriteString(line)
}

func variableNames(m *solver.Model) []string {
	used := make(map[string]int)
	names := make([]string, m.NumVariables())
	for i := range names {
		names[i] = uniqueName(sanitize(m.VariableName(i), fmt.Sprintf("x_%d", i)), used)
	}
	return names
}

// sanitize keeps the characters the LP format allows in names
func sanitize(name, fallback string) string {
	var b strings.Builder
	for _, r := range strings.TrimSpace(name) {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case strings.ContainsRune("!\"#$%&()/,.;?@_`'{}|~", r):
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	out := b.String()
	if out == "" {
		return fallback
	}
	if out[0] >= '0' && out[0] <= '9' || out[0] == '.' {
		out = "_" + out
	}
	return out
}

func uniqueName(name string, used map[string]int) string {
	n := used[name]
	used[name] = n + 1
	if n == 0 {
		return name
	}
	return fmt.Sprintf("%s_%d", name, n)
}

func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'g', 12, 64)
}

// FileExporter writes the model to Path, replacing any existing file
type FileExporter struct {
	Path string
}

func (e FileExporter) Export(_ context.Context, m *solver.Model) error {
	f, err := os.Create(e.Path)
	if err != nil {
		return fmt.Errorf("failed to create LP file: %w", err)
	}
	if err := Write(f, m); err != nil {
		f.Close()
		return fmt.Errorf("failed to write LP file: %w", err)
	}
	return f.Close()
}

// WriterExporter writes the model to W
type WriterExporter struct {
	W io.Writer
}

func (e WriterExporter) Export(_ context.Context, m *solver.Model) error {
	return Write(e.W, m)
}
