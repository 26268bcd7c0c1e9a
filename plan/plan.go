// Package plan defines the immutable logical plan values a session sends to
// a remote executor, plus the constructors that validate and freeze them.
//
// Plans are value objects: they own no connections or buffers, are safe to
// share between goroutines, and can be re-sent any number of times.
// Construction is pure - no I/O, no allocation from the session arena.
package plan

import (
	"errors"
	"fmt"
	"regexp"
	"sort"
)

// ErrInvalidOperation is returned when a plan request is malformed.
// Invalid requests fail locally, before any network interaction.
var ErrInvalidOperation = errors.New("invalid operation")

// Kind identifies the root node variant of a plan.
type Kind string

const (
	// KindSQL is a parameterized text query producing rows.
	KindSQL Kind = "sql"
	// KindTable is a reference to a qualified or unqualified table name.
	KindTable Kind = "table"
	// KindRange is a numeric range generator.
	KindRange Kind = "range"
	// KindCommand is a statement executed for effect, yielding no rows.
	KindCommand Kind = "command"
)

// Plan is an immutable tree with a single root node. Exactly one of the
// node fields is set, selected by Root.
type Plan struct {
	Root Kind

	SQL     *SQLNode
	Table   *TableNode
	Range   *RangeNode
	Command *CommandNode
}

// SQLNode is a parameterized text query. Args maps argument names to
// literal values bound server-side; names appear in the query text in
// :name form.
type SQLNode struct {
	Query string
	Args  map[string]string
}

// TableNode references a table by its qualified or unqualified name.
type TableNode struct {
	Name string
}

// RangeNode generates the half-open integer sequence [Start, End) with the
// given step. Partitions is an optional parallelism hint for the remote
// executor; 0 means executor-chosen.
type RangeNode struct {
	Start      int64
	End        int64
	Step       int64
	Partitions int32
}

// CommandNode is a statement executed for its effect (DDL, settings).
// It never produces a result stream.
type CommandNode struct {
	Statement string
}

// namedArgPattern matches :name argument tokens in query text. This is a
// token scan, not SQL parsing: quoted strings containing something that
// looks like an argument will count as usage.
var namedArgPattern = regexp.MustCompile(`:([A-Za-z_][A-Za-z0-9_]*)`)

// SQL builds a plan for a parameterized text query.
//
// Every key in args must appear in the query text as a :name token;
// an unused key fails with ErrInvalidOperation rather than silently
// shipping a typo'd binding. The query text itself is sent unchanged.
func SQL(query string, args map[string]string) (*Plan, error) {
	if query == "" {
		return nil, fmt.Errorf("%w: query text cannot be empty", ErrInvalidOperation)
	}

	if len(args) > 0 {
		used := make(map[string]bool)
		for _, m := range namedArgPattern.FindAllStringSubmatch(query, -1) {
			used[m[1]] = true
		}

		var unused []string
		for name := range args {
			if !used[name] {
				unused = append(unused, name)
			}
		}
		if len(unused) > 0 {
			sort.Strings(unused)
			return nil, fmt.Errorf("%w: named argument %q is not used in the query",
				ErrInvalidOperation, unused[0])
		}
	}

	node := &SQLNode{Query: query}
	if len(args) > 0 {
		// Copy so later mutation of the caller's map cannot leak into the plan.
		node.Args = make(map[string]string, len(args))
		for k, v := range args {
			node.Args[k] = v
		}
	}

	return &Plan{Root: KindSQL, SQL: node}, nil
}

// Table builds a plan that reads a named table.
// The name may be qualified ("main.users") or unqualified ("users");
// resolution happens on the executor.
func Table(name string) (*Plan, error) {
	if name == "" {
		return nil, fmt.Errorf("%w: table name cannot be empty", ErrInvalidOperation)
	}
	return &Plan{Root: KindTable, Table: &TableNode{Name: name}}, nil
}

// Range builds a plan generating the integer sequence [start, end) with the
// given step. A zero step fails with ErrInvalidOperation. start == end is
// well-formed and evaluates to an empty sequence. A negative partition
// count fails; zero leaves partitioning to the executor.
func Range(start, end, step int64, partitions int32) (*Plan, error) {
	if step == 0 {
		return nil, fmt.Errorf("%w: range step cannot be zero", ErrInvalidOperation)
	}
	if partitions < 0 {
		return nil, fmt.Errorf("%w: range partitions cannot be negative, got %d",
			ErrInvalidOperation, partitions)
	}
	return &Plan{Root: KindRange, Range: &RangeNode{
		Start:      start,
		End:        end,
		Step:       step,
		Partitions: partitions,
	}}, nil
}

// Command builds a plan executed for effect only. Dispatching it drains the
// executor's acknowledgement and yields no result stream.
func Command(statement string) (*Plan, error) {
	if statement == "" {
		return nil, fmt.Errorf("%w: command statement cannot be empty", ErrInvalidOperation)
	}
	return &Plan{Root: KindCommand, Command: &CommandNode{Statement: statement}}, nil
}

// ProducesRows reports whether executing the plan yields a result stream.
func (p *Plan) ProducesRows() bool {
	return p.Root != KindCommand
}

// Validate checks that the plan tree is structurally sound: the root kind
// is known and exactly the matching node is present. Plans built through
// the package constructors always pass; Validate guards plans decoded from
// the wire.
func (p *Plan) Validate() error {
	if p == nil {
		return fmt.Errorf("%w: nil plan", ErrInvalidOperation)
	}

	set := 0
	for _, n := range []bool{p.SQL != nil, p.Table != nil, p.Range != nil, p.Command != nil} {
		if n {
			set++
		}
	}
	if set != 1 {
		return fmt.Errorf("%w: plan must have exactly one root node, found %d",
			ErrInvalidOperation, set)
	}

	switch p.Root {
	case KindSQL:
		if p.SQL == nil {
			return fmt.Errorf("%w: sql plan missing sql node", ErrInvalidOperation)
		}
		if p.SQL.Query == "" {
			return fmt.Errorf("%w: query text cannot be empty", ErrInvalidOperation)
		}
	case KindTable:
		if p.Table == nil {
			return fmt.Errorf("%w: table plan missing table node", ErrInvalidOperation)
		}
		if p.Table.Name == "" {
			return fmt.Errorf("%w: table name cannot be empty", ErrInvalidOperation)
		}
	case KindRange:
		if p.Range == nil {
			return fmt.Errorf("%w: range plan missing range node", ErrInvalidOperation)
		}
		if p.Range.Step == 0 {
			return fmt.Errorf("%w: range step cannot be zero", ErrInvalidOperation)
		}
	case KindCommand:
		if p.Command == nil {
			return fmt.Errorf("%w: command plan missing command node", ErrInvalidOperation)
		}
		if p.Command.Statement == "" {
			return fmt.Errorf("%w: command statement cannot be empty", ErrInvalidOperation)
		}
	default:
		return fmt.Errorf("%w: unknown plan kind %q", ErrInvalidOperation, p.Root)
	}

	return nil
}

// String returns a short human-readable description for logging.
func (p *Plan) String() string {
	switch p.Root {
	case KindSQL:
		return fmt.Sprintf("sql(%d args)", len(p.SQL.Args))
	case KindTable:
		return "table(" + p.Table.Name + ")"
	case KindRange:
		return fmt.Sprintf("range(%d, %d, %d)", p.Range.Start, p.Range.End, p.Range.Step)
	case KindCommand:
		return "command"
	default:
		return "unknown"
	}
}
