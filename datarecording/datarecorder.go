// Package datarecording stores scheduler data into SQLite databases.
package datarecording

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"reflect"
	"sort"
	"strings"
	"sync"

	"github.com/fatih/structs"

	// Need to use SQLite connections.
	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/xid"
	"github.com/tebeka/atexit"
)

// DataRecorder is a backend that can record and store data
type DataRecorder interface {
	// CreateTable creates a new table named after the fields of the sample
	// entry.
	CreateTable(tableName string, sampleEntry any)

	// InsertData buffers an entry for a table that already exists.
	InsertData(tableName string, entry any)

	// ListTables returns the names of all tables.
	ListTables() []string

	// Flush writes all the buffered entries into the database.
	Flush()

	// Close flushes, records the end of the run, and closes the database.
	Close() error
}

// NewDataRecorder creates a recorder that writes into path + ".sqlite3". An
// empty path picks a unique name. The file must not exist yet.
func NewDataRecorder(path string) DataRecorder {
	w := newSQLiteWriter(path)
	w.init()

	w.exec = newExecRecorder(w)
	w.exec.Start()

	atexit.Register(func() { _ = w.Close() })

	return w
}

// NewDataRecorderWithDB creates a recorder on an open database.
func NewDataRecorderWithDB(db *sql.DB) DataRecorder {
	w := newSQLiteWriter("")
	w.DB = db

	atexit.Register(func() { w.Flush() })

	return w
}

type table struct {
	structType reflect.Type
	entries    []any
}

// sqliteWriter is the writer that writes data into SQLite database
type sqliteWriter struct {
	*sql.DB

	lock       sync.Mutex
	dbName     string
	tables     map[string]*table
	batchSize  int
	entryCount int
	exec       *execRecorder
	closed     bool
}

func newSQLiteWriter(path string) *sqliteWriter {
	return &sqliteWriter{
		dbName:    path,
		batchSize: 100000,
		tables:    make(map[string]*table),
	}
}

// init establishes a connection to the database.
func (t *sqliteWriter) init() {
	if t.dbName == "" {
		t.dbName = "mtloop_recording_" + xid.New().String()
	}

	filename := t.dbName + ".sqlite3"

	_, err := os.Stat(filename)
	if err == nil {
		panic(fmt.Errorf("file %s already exists", filename))
	}

	fmt.Fprintf(os.Stderr, "Database created for recording: %s\n", filename)

	db, err := sql.Open("sqlite3", filename)
	if err != nil {
		panic(err)
	}

	t.DB = db
}

func isAllowedType(kind reflect.Kind) bool {
	switch kind {
	case
		reflect.Bool,
		reflect.Int,
		reflect.Int8,
		reflect.Int16,
		reflect.Int32,
		reflect.Int64,
		reflect.Uint,
		reflect.Uint8,
		reflect.Uint16,
		reflect.Uint32,
		reflect.Uint64,
		reflect.Float32,
		reflect.Float64,
		reflect.String:
		return true
	default:
		return false
	}
}

func checkStructFields(entry any) error {
	types := reflect.TypeOf(entry)
	if types == nil || types.Kind() != reflect.Struct {
		return errors.New("entry must be a struct")
	}

	for i := 0; i < types.NumField(); i++ {
		field := types.Field(i)

		if !field.IsExported() {
			return fmt.Errorf("field %s is not exported", field.Name)
		}

		if !isAllowedType(field.Type.Kind()) {
			return fmt.Errorf("field %s has unsupported type %s",
				field.Name, field.Type)
		}
	}

	return nil
}

func (t *sqliteWriter) CreateTable(tableName string, sampleEntry any) {
	err := checkStructFields(sampleEntry)
	if err != nil {
		panic(err)
	}

	t.lock.Lock()
	defer t.lock.Unlock()

	if _, exists := t.tables[tableName]; exists {
		panic(fmt.Sprintf("table %s already exists", tableName))
	}

	n := structs.Names(sampleEntry)
	fields := strings.Join(n, ", \n\t")

	createTableSQL := `CREATE TABLE ` + tableName +
		` (` + "\n\t" + fields + "\n" + `);`
	t.mustExecute(createTableSQL)

	t.tables[tableName] = &table{
		structType: reflect.TypeOf(sampleEntry),
	}
}

func (t *sqliteWriter) InsertData(tableName string, entry any) {
	t.lock.Lock()

	table, exists := t.tables[tableName]
	if !exists {
		t.lock.Unlock()
		panic(fmt.Sprintf("table %s does not exist", tableName))
	}

	if reflect.TypeOf(entry) != table.structType {
		t.lock.Unlock()
		panic(fmt.Sprintf("entry of type %T does not fit table %s",
			entry, tableName))
	}

	table.entries = append(table.entries, entry)
	t.entryCount++
	full := t.entryCount >= t.batchSize

	t.lock.Unlock()

	if full {
		t.Flush()
	}
}

func (t *sqliteWriter) ListTables() []string {
	t.lock.Lock()
	defer t.lock.Unlock()

	tables := make([]string, 0, len(t.tables))
	for table := range t.tables {
		tables = append(tables, table)
	}

	sort.Strings(tables)

	return tables
}

func (t *sqliteWriter) Flush() {
	t.lock.Lock()
	defer t.lock.Unlock()

	if t.entryCount == 0 || t.closed {
		return
	}

	tx, err := t.Begin()
	if err != nil {
		panic(err)
	}

	for tableName, table := range t.tables {
		if len(table.entries) == 0 {
			continue
		}

		stmt, err := tx.Prepare(insertStatement(tableName, table.entries[0]))
		if err != nil {
			panic(err)
		}

		for _, entry := range table.entries {
			_, err := stmt.Exec(fieldValues(entry)...)
			if err != nil {
				panic(err)
			}
		}

		stmt.Close()

		table.entries = nil
	}

	err = tx.Commit()
	if err != nil {
		panic(err)
	}

	t.entryCount = 0
}

func (t *sqliteWriter) Close() error {
	if t.exec != nil {
		t.exec.End()
		t.exec = nil
	}

	t.Flush()

	t.lock.Lock()
	defer t.lock.Unlock()

	if t.closed {
		return nil
	}

	t.closed = true

	return t.DB.Close()
}

func (t *sqliteWriter) mustExecute(query string) sql.Result {
	res, err := t.Exec(query)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to execute: %s\n", query)
		panic(err)
	}

	return res
}

func insertStatement(table string, entry any) string {
	n := structs.Names(entry)
	for i := 0; i < len(n); i++ {
		n[i] = "?"
	}

	return "INSERT INTO " + table + " VALUES (" + strings.Join(n, ", ") + ")"
}

func fieldValues(entry any) []any {
	v := reflect.ValueOf(entry)
	values := make([]any, 0, v.NumField())

	for i := 0; i < v.NumField(); i++ {
		values = append(values, v.Field(i).Interface())
	}

	return values
}
