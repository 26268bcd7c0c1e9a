package transport

import (
	"fmt"
	"strings"

	"github.com/hugr-lab/runway-go/plan"
)

// SQL rendering for the local executor. The remote path ships the plan tree
// as-is and lets the executor bind arguments; locally the plan is rendered
// to a single DuckDB statement with literals inlined.

// renderPlan converts a plan to executable DuckDB SQL.
func renderPlan(p *plan.Plan) (string, error) {
	if err := p.Validate(); err != nil {
		return "", err
	}

	switch p.Root {
	case plan.KindSQL:
		return substituteArgs(p.SQL.Query, p.SQL.Args), nil
	case plan.KindTable:
		return "SELECT * FROM " + quoteIdent(p.Table.Name), nil
	case plan.KindRange:
		// Partition hints are meaningless in-process; a single stream is produced.
		return fmt.Sprintf(`SELECT "range" AS id FROM range(%d, %d, %d)`,
			p.Range.Start, p.Range.End, p.Range.Step), nil
	case plan.KindCommand:
		return p.Command.Statement, nil
	default:
		return "", fmt.Errorf("%w: unknown plan kind %q", plan.ErrInvalidOperation, p.Root)
	}
}

// substituteArgs replaces :name tokens with quoted literal values.
// Longer names are replaced first so :id does not clobber :id2.
func substituteArgs(query string, args map[string]string) string {
	if len(args) == 0 {
		return query
	}

	names := make([]string, 0, len(args))
	for name := range args {
		names = append(names, name)
	}
	for i := 0; i < len(names); i++ {
		for j := i + 1; j < len(names); j++ {
			if len(names[j]) > len(names[i]) {
				names[i], names[j] = names[j], names[i]
			}
		}
	}

	for _, name := range names {
		query = strings.ReplaceAll(query, ":"+name, quoteLiteral(args[name]))
	}
	return query
}

// quoteLiteral renders a string literal with single quotes doubled.
func quoteLiteral(v string) string {
	return "'" + strings.ReplaceAll(v, "'", "''") + "'"
}

// quoteIdent quotes each dot-separated part of a possibly qualified name.
func quoteIdent(name string) string {
	parts := strings.Split(name, ".")
	for i, p := range parts {
		parts[i] = `"` + strings.ReplaceAll(p, `"`, `""`) + `"`
	}
	return strings.Join(parts, ".")
}
