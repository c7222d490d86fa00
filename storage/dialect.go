package storage

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/lib/pq"
)

var identRegexp = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// dialect covers the few places Postgres and SQLite SQL differ.
type dialect struct {
	driver string
}

func (d dialect) postgres() bool {
	return d.driver == "postgres"
}

// placeholder returns the n-th (1-based) bind parameter.
func (d dialect) placeholder(n int) string {
	if d.postgres() {
		return fmt.Sprintf("$%d", n)
	}
	return "?"
}

// placeholders returns a parenthesised tuple of count parameters starting at
// the (1-based) position start.
func (d dialect) placeholders(start, count int) string {
	parts := make([]string, count)
	for i := range parts {
		parts[i] = d.placeholder(start + i)
	}
	return "(" + strings.Join(parts, ",") + ")"
}

// inFilter renders "col matches one of values" starting at parameter start.
// Postgres binds the whole list as one array parameter.
func (d dialect) inFilter(col string, start int, values []string) (string, []any) {
	if d.postgres() {
		return fmt.Sprintf("%s = ANY(%s)", col, d.placeholder(start)), []any{pq.Array(values)}
	}
	args := make([]any, len(values))
	for i, v := range values {
		args[i] = v
	}
	return fmt.Sprintf("%s IN %s", col, d.placeholders(start, len(values))), args
}

func validateTable(name string) error {
	if !identRegexp.MatchString(name) {
		return fmt.Errorf("store: invalid table name %q", name)
	}
	return nil
}

func chunkStrings(values []string, size int) [][]string {
	var out [][]string
	for i := 0; i < len(values); i += size {
		end := i + size
		if end > len(values) {
			end = len(values)
		}
		out = append(out, values[i:end])
	}
	return out
}
