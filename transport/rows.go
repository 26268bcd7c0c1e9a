package transport

import (
	"database/sql"
	"fmt"
	"reflect"
	"sync/atomic"
	"time"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
)

// rowsBatchSize is the number of rows framed into each Arrow batch.
const rowsBatchSize = 1024

var timeType = reflect.TypeOf(time.Time{})

// rowsReader adapts database/sql rows to an array.RecordReader. Each
// Next builds one batch from the supplied allocator, so every advance
// is a fresh lease against the session arena.
type rowsReader struct {
	refs   int64
	rows   *sql.Rows
	schema *arrow.Schema
	mem    memory.Allocator

	cur  arrow.RecordBatch
	err  error
	done bool
}

func newRowsReader(rows *sql.Rows, mem memory.Allocator) (*rowsReader, error) {
	schema, err := schemaForRows(rows)
	if err != nil {
		return nil, err
	}
	return &rowsReader{
		refs:   1,
		rows:   rows,
		schema: schema,
		mem:    mem,
	}, nil
}

// schemaForRows derives an Arrow schema from the driver's column scan
// types. Types without a direct mapping fall back to strings.
func schemaForRows(rows *sql.Rows) (*arrow.Schema, error) {
	cols, err := rows.ColumnTypes()
	if err != nil {
		return nil, err
	}

	fields := make([]arrow.Field, len(cols))
	for i, col := range cols {
		fields[i] = arrow.Field{
			Name:     col.Name(),
			Type:     arrowTypeFor(col.ScanType()),
			Nullable: true,
		}
	}
	return arrow.NewSchema(fields, nil), nil
}

func arrowTypeFor(t reflect.Type) arrow.DataType {
	if t == nil {
		return arrow.BinaryTypes.String
	}
	if t == timeType {
		return arrow.FixedWidthTypes.Timestamp_us
	}
	switch t.Kind() {
	case reflect.Bool:
		return arrow.FixedWidthTypes.Boolean
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return arrow.PrimitiveTypes.Int64
	case reflect.Float32, reflect.Float64:
		return arrow.PrimitiveTypes.Float64
	case reflect.Slice:
		if t.Elem().Kind() == reflect.Uint8 {
			return arrow.BinaryTypes.Binary
		}
	}
	return arrow.BinaryTypes.String
}

func (r *rowsReader) Schema() *arrow.Schema { return r.schema }

func (r *rowsReader) Next() bool {
	if r.cur != nil {
		r.cur.Release()
		r.cur = nil
	}
	if r.done || r.err != nil {
		return false
	}

	b := array.NewRecordBuilder(r.mem, r.schema)
	defer b.Release()

	dests := make([]any, len(r.schema.Fields()))
	for i, f := range r.schema.Fields() {
		dests[i] = scanDestFor(f.Type)
	}

	n := 0
	for n < rowsBatchSize {
		if !r.rows.Next() {
			r.done = true
			r.err = r.rows.Err()
			break
		}
		if err := r.rows.Scan(dests...); err != nil {
			r.err = err
			r.done = true
			break
		}
		for i, dest := range dests {
			appendScanned(b.Field(i), dest)
		}
		n++
	}

	if n == 0 || r.err != nil {
		return false
	}
	r.cur = b.NewRecordBatch()
	return true
}

func scanDestFor(t arrow.DataType) any {
	switch t.ID() {
	case arrow.BOOL:
		return new(sql.NullBool)
	case arrow.INT64:
		return new(sql.NullInt64)
	case arrow.FLOAT64:
		return new(sql.NullFloat64)
	case arrow.TIMESTAMP:
		return new(sql.NullTime)
	case arrow.BINARY:
		return new([]byte)
	default:
		return new(sql.NullString)
	}
}

func appendScanned(fb array.Builder, dest any) {
	switch d := dest.(type) {
	case *sql.NullBool:
		if !d.Valid {
			fb.AppendNull()
			return
		}
		fb.(*array.BooleanBuilder).Append(d.Bool)
	case *sql.NullInt64:
		if !d.Valid {
			fb.AppendNull()
			return
		}
		fb.(*array.Int64Builder).Append(d.Int64)
	case *sql.NullFloat64:
		if !d.Valid {
			fb.AppendNull()
			return
		}
		fb.(*array.Float64Builder).Append(d.Float64)
	case *sql.NullTime:
		if !d.Valid {
			fb.AppendNull()
			return
		}
		fb.(*array.TimestampBuilder).Append(arrow.Timestamp(d.Time.UnixMicro()))
	case *[]byte:
		if *d == nil {
			fb.AppendNull()
			return
		}
		fb.(*array.BinaryBuilder).Append(*d)
	case *sql.NullString:
		if !d.Valid {
			fb.AppendNull()
			return
		}
		fb.(*array.StringBuilder).Append(d.String)
	default:
		panic(fmt.Sprintf("unsupported scan destination: %T", dest))
	}
}

func (r *rowsReader) RecordBatch() arrow.RecordBatch { return r.cur }

// Record is kept for code written against the pre-v18.1 reader interface.
func (r *rowsReader) Record() arrow.RecordBatch { return r.cur }

func (r *rowsReader) Err() error { return r.err }

func (r *rowsReader) Retain() { atomic.AddInt64(&r.refs, 1) }

func (r *rowsReader) Release() {
	if atomic.AddInt64(&r.refs, -1) != 0 {
		return
	}
	if r.cur != nil {
		r.cur.Release()
		r.cur = nil
	}
	r.rows.Close()
}
