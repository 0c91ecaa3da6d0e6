package datarecording

import (
	"context"
	"database/sql"
	"fmt"
	"reflect"
	"strings"
)

// QueryParams selects and orders the rows of a table.
type QueryParams struct {
	// Where is a condition without the WHERE keyword, for example
	// "Chain = ? AND Success = ?".
	Where string

	// Args fill the placeholders of Where.
	Args []any

	// Limit caps the number of rows. Zero means no cap.
	Limit int

	// Offset skips rows. It only applies together with Limit.
	Offset int

	// OrderBy is a sort clause without ORDER BY, for example "Start DESC".
	OrderBy string
}

// DataReader reads recorded tables back into Go structs.
type DataReader interface {
	// MapTable tells the reader which struct the rows of a table decode
	// into. A table must be mapped before it is queried.
	MapTable(tableName string, sampleEntry any)

	// ListTables returns the names of the tables in the database.
	ListTables() []string

	// Query returns pointers to structs of the mapped type, together with
	// the number of matching rows ignoring Limit and Offset.
	Query(ctx context.Context, tableName string, params QueryParams) (
		results []any,
		totalCount int,
		err error,
	)

	// Close closes the database.
	Close() error
}

// QueryAs maps the table to T, queries it and returns the rows as values.
func QueryAs[T any](
	ctx context.Context,
	r DataReader,
	tableName string,
	params QueryParams,
) ([]T, int, error) {
	var sample T

	r.MapTable(tableName, sample)

	rows, total, err := r.Query(ctx, tableName, params)
	if err != nil {
		return nil, 0, err
	}

	out := make([]T, 0, len(rows))
	for _, row := range rows {
		out = append(out, *row.(*T))
	}

	return out, total, nil
}

type sqliteReader struct {
	db      *sql.DB
	typeMap map[string]reflect.Type
}

// NewReader opens a recording for reading.
func NewReader(dbFilename string) DataReader {
	db, err := sql.Open("sqlite3", dbFilename)
	if err != nil {
		panic(err)
	}

	return NewReaderWithDB(db)
}

// NewReaderWithDB creates a reader on an open database.
func NewReaderWithDB(db *sql.DB) DataReader {
	return &sqliteReader{
		db:      db,
		typeMap: make(map[string]reflect.Type),
	}
}

func (r *sqliteReader) MapTable(tableName string, sampleEntry any) {
	r.typeMap[tableName] = reflect.TypeOf(sampleEntry)
}

func (r *sqliteReader) ListTables() []string {
	rows, err := r.db.QueryContext(context.Background(),
		"SELECT name FROM sqlite_master WHERE type = 'table' ORDER BY name")
	if err != nil {
		panic(err)
	}
	defer rows.Close()

	tables := []string{}

	for rows.Next() {
		var name string

		err := rows.Scan(&name)
		if err != nil {
			panic(err)
		}

		tables = append(tables, name)
	}

	if err := rows.Err(); err != nil {
		panic(err)
	}

	return tables
}

func (r *sqliteReader) Query(
	ctx context.Context,
	tableName string,
	params QueryParams,
) ([]any, int, error) {
	structType, ok := r.typeMap[tableName]
	if !ok {
		return nil, 0, fmt.Errorf("table %s is not mapped", tableName)
	}

	var total int

	err := r.db.QueryRowContext(ctx,
		selectSQL("COUNT(*)", tableName, QueryParams{Where: params.Where}),
		params.Args...,
	).Scan(&total)
	if err != nil {
		return nil, 0, fmt.Errorf("counting %s: %w", tableName, err)
	}

	rows, err := r.db.QueryContext(ctx,
		selectSQL("*", tableName, params), params.Args...)
	if err != nil {
		return nil, 0, fmt.Errorf("querying %s: %w", tableName, err)
	}
	defer rows.Close()

	results, err := decodeRows(rows, structType)
	if err != nil {
		return nil, 0, fmt.Errorf("decoding %s: %w", tableName, err)
	}

	return results, total, nil
}

func (r *sqliteReader) Close() error {
	return r.db.Close()
}

func selectSQL(columns, tableName string, params QueryParams) string {
	var b strings.Builder

	fmt.Fprintf(&b, "SELECT %s FROM %s", columns, tableName)

	if params.Where != "" {
		b.WriteString(" WHERE " + params.Where)
	}

	if params.OrderBy != "" {
		b.WriteString(" ORDER BY " + params.OrderBy)
	}

	if params.Limit > 0 {
		fmt.Fprintf(&b, " LIMIT %d", params.Limit)

		if params.Offset > 0 {
			fmt.Fprintf(&b, " OFFSET %d", params.Offset)
		}
	}

	return b.String()
}

// decodeRows fills one struct per row, matching columns to fields by name.
// Columns without a field are read and dropped.
func decodeRows(rows *sql.Rows, structType reflect.Type) ([]any, error) {
	columns, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	var results []any

	for rows.Next() {
		ptr := reflect.New(structType)
		targets := make([]any, len(columns))

		for i, col := range columns {
			field := ptr.Elem().FieldByName(col)
			if field.IsValid() && field.CanSet() {
				targets[i] = field.Addr().Interface()
				continue
			}

			targets[i] = new(any)
		}

		err := rows.Scan(targets...)
		if err != nil {
			return nil, err
		}

		results = append(results, ptr.Interface())
	}

	return results, rows.Err()
}
