package transport

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"sync"

	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/duckdb/duckdb-go/v2"

	"github.com/hugr-lab/runway-go/plan"
)

// Local is an in-process DuckDB implementation of Client, used when a
// session is built without a remote target. Plans are rendered to SQL,
// executed through database/sql, and the rows are framed into Arrow
// batches built from the allocator the session passes to Execute - so
// local result streams are arena-accounted exactly like remote ones.
type Local struct {
	db     *sql.DB
	logger *slog.Logger

	closeOnce sync.Once
	closeErr  error
}

// OpenLocal creates an in-memory DuckDB executor.
// Pass a path to work against a database file instead.
func OpenLocal(path string, logger *slog.Logger) (*Local, error) {
	if logger == nil {
		logger = slog.Default()
	}

	connector, err := duckdb.NewConnector(path, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to open local executor: %w", err)
	}

	return &Local{
		db:     sql.OpenDB(connector),
		logger: logger,
	}, nil
}

// Execute implements Client. The caller owns the returned reader; releasing
// it closes the underlying rows and returns every leased byte.
func (l *Local) Execute(ctx context.Context, p *plan.Plan, mem memory.Allocator) (array.RecordReader, error) {
	query, err := renderPlan(p)
	if err != nil {
		return nil, err
	}

	l.logger.Debug("Executing locally", "plan", p.String())

	rows, err := l.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}

	reader, err := newRowsReader(rows, mem)
	if err != nil {
		rows.Close()
		return nil, err
	}
	return reader, nil
}

// ExecuteCommand implements Client.
func (l *Local) ExecuteCommand(ctx context.Context, p *plan.Plan) error {
	stmt, err := renderPlan(p)
	if err != nil {
		return err
	}

	_, err = l.db.ExecContext(ctx, stmt)
	return err
}

// Analyze implements Client. Schema requests run a LIMIT 0 wrapper around
// the rendered query; explanations run EXPLAIN.
func (l *Local) Analyze(ctx context.Context, p *plan.Plan, mode AnalyzeMode) (*Metadata, error) {
	query, err := renderPlan(p)
	if err != nil {
		return nil, err
	}

	switch mode {
	case AnalyzeSchema:
		rows, err := l.db.QueryContext(ctx, "SELECT * FROM ("+query+") LIMIT 0")
		if err != nil {
			return nil, err
		}
		defer rows.Close()

		schema, err := schemaForRows(rows)
		if err != nil {
			return nil, err
		}
		return &Metadata{Schema: schema}, nil

	case AnalyzeExplain:
		rows, err := l.db.QueryContext(ctx, "EXPLAIN "+query)
		if err != nil {
			return nil, err
		}
		defer rows.Close()

		var explain string
		for rows.Next() {
			var key, value string
			if err := rows.Scan(&key, &value); err != nil {
				return nil, err
			}
			explain += value
		}
		if err := rows.Err(); err != nil {
			return nil, err
		}
		return &Metadata{Explain: explain}, nil

	default:
		return nil, fmt.Errorf("unknown analyze mode: %d", mode)
	}
}

// Shutdown implements Client. Safe to call more than once.
func (l *Local) Shutdown() error {
	l.closeOnce.Do(func() {
		l.closeErr = l.db.Close()
	})
	return l.closeErr
}
