// Package backup streams database contents to and from NDJSON snapshots.
// Snapshots are portable between the postgres production store and local
// sqlite files, which makes them usable both for disaster recovery and for
// seeding developer environments.
package backup

import (
	"bufio"
	"bytes"
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"sort"
	"strings"
	"time"

	_ "github.com/lib/pq"           // postgres driver
	_ "github.com/mattn/go-sqlite3" // sqlite driver
)

const (
	defaultBatchSize = 512
	formatVersion    = 1
)

var errNoTablesSelected = errors.New("backup: no tables selected")

type columnKind int

const (
	kindString columnKind = iota
	kindInt
	kindFloat
	kindBool
	kindTime
	kindDate
)

type column struct {
	Name     string
	Kind     columnKind
	Nullable bool
}

type table struct {
	Name       string
	Columns    []column
	PrimaryKey []string
}

// tables describes the full persistent schema in export order. Card rows
// come first so an import never references a card that does not exist yet.
var tables = []table{
	{
		Name:       "cards",
		PrimaryKey: []string{"id"},
		Columns: []column{
			{Name: "id", Kind: kindString},
			{Name: "user_id", Kind: kindInt},
			{Name: "question_id", Kind: kindString},
			{Name: "topic", Kind: kindString},
			{Name: "subtopic", Kind: kindString, Nullable: true},
			{Name: "status", Kind: kindString},
			{Name: "interval_days", Kind: kindInt},
			{Name: "ease_factor", Kind: kindFloat},
			{Name: "repetition_count", Kind: kindInt},
			{Name: "next_review_date", Kind: kindDate},
			{Name: "last_reviewed_at", Kind: kindTime, Nullable: true},
			{Name: "is_due", Kind: kindBool},
			{Name: "total_attempts", Kind: kindInt},
			{Name: "successful_attempts", Kind: kindInt},
			{Name: "failed_attempts", Kind: kindInt},
			{Name: "current_attempt_number", Kind: kindInt},
			{Name: "is_active", Kind: kindBool},
			{Name: "archived_at", Kind: kindTime, Nullable: true},
			{Name: "archive_reason", Kind: kindString, Nullable: true},
			{Name: "created_from_attempt_id", Kind: kindString, Nullable: true},
			{Name: "session_id", Kind: kindString, Nullable: true},
			{Name: "created_at", Kind: kindTime},
			{Name: "updated_at", Kind: kindTime},
		},
	},
	{
		Name:       "review_attempts",
		PrimaryKey: []string{"id"},
		Columns: []column{
			{Name: "id", Kind: kindString},
			{Name: "card_id", Kind: kindString},
			{Name: "user_id", Kind: kindInt},
			{Name: "question_id", Kind: kindString},
			{Name: "attempt_number", Kind: kindInt},
			{Name: "was_correct", Kind: kindBool},
			{Name: "user_answer", Kind: kindString},
			{Name: "correct_answer", Kind: kindString},
			{Name: "time_spent_ms", Kind: kindInt},
			{Name: "attempted_at", Kind: kindTime},
			{Name: "before_status", Kind: kindString},
			{Name: "before_interval_days", Kind: kindInt},
			{Name: "before_ease_factor", Kind: kindFloat},
			{Name: "before_repetition_count", Kind: kindInt},
			{Name: "after_status", Kind: kindString},
			{Name: "after_interval_days", Kind: kindInt},
			{Name: "after_ease_factor", Kind: kindFloat},
			{Name: "after_repetition_count", Kind: kindInt},
			{Name: "review_session_id", Kind: kindString, Nullable: true},
			{Name: "created_at", Kind: kindTime},
		},
	},
	{
		Name:       "review_sessions",
		PrimaryKey: []string{"id"},
		Columns: []column{
			{Name: "id", Kind: kindString},
			{Name: "user_id", Kind: kindInt},
			{Name: "cards_reviewed", Kind: kindInt},
			{Name: "cards_correct", Kind: kindInt},
			{Name: "cards_failed", Kind: kindInt},
			{Name: "total_time_spent_ms", Kind: kindInt},
			{Name: "session_type", Kind: kindString},
			{Name: "started_at", Kind: kindTime},
			{Name: "completed_at", Kind: kindTime},
			{Name: "created_at", Kind: kindTime},
		},
	},
	{
		Name:       "mistake_index",
		PrimaryKey: []string{"user_id", "question_id"},
		Columns: []column{
			{Name: "user_id", Kind: kindInt},
			{Name: "question_id", Kind: kindString},
			{Name: "card_id", Kind: kindString},
			{Name: "has_card", Kind: kindBool},
			{Name: "is_active", Kind: kindBool},
			{Name: "status", Kind: kindString},
			{Name: "bucket", Kind: kindString},
			{Name: "updated_at", Kind: kindTime},
		},
	},
}

// ProgressReporter receives per-table progress callbacks during export.
type ProgressReporter interface {
	StartTable(table string, total int)
	Increment(table string, delta int)
	FinishTable(table string)
}

type noopProgress struct{}

func (noopProgress) StartTable(string, int) {}
func (noopProgress) Increment(string, int)  {}
func (noopProgress) FinishTable(string)     {}

// Service reads and writes NDJSON snapshots against a SQL database.
type Service struct {
	driver     string
	dsn        string
	batchSize  int
	tableIndex map[string]table
	schemaHash string
}

type Option func(*Service)

func WithBatchSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.batchSize = size
		}
	}
}

// NewService constructs a backup service bound to the provided database driver and DSN.
func NewService(driver, dsn string, opts ...Option) (*Service, error) {
	driver = strings.TrimSpace(strings.ToLower(driver))
	switch driver {
	case "postgres", "sqlite3":
	case "":
		return nil, errors.New("backup: driver is required")
	default:
		return nil, fmt.Errorf("backup: unsupported driver %q", driver)
	}
	dsn = strings.TrimSpace(dsn)
	if dsn == "" {
		return nil, errors.New("backup: DSN is required")
	}

	tableIndex := make(map[string]table, len(tables))
	for _, tbl := range tables {
		tableIndex[tbl.Name] = tbl
	}

	svc := &Service{
		driver:     driver,
		dsn:        dsn,
		batchSize:  defaultBatchSize,
		tableIndex: tableIndex,
		schemaHash: computeSchemaHash(tables),
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc, nil
}

type ExportOption func(*exportConfig)

type exportConfig struct {
	tables   []string
	reporter ProgressReporter
}

// WithTables restricts export to the provided table names (snake_case as in DB).
func WithTables(names []string) ExportOption {
	return func(cfg *exportConfig) {
		if len(names) == 0 {
			return
		}
		cfg.tables = append([]string{}, names...)
	}
}

// WithProgressReporter registers a reporter that receives progress callbacks during export.
func WithProgressReporter(reporter ProgressReporter) ExportOption {
	return func(cfg *exportConfig) {
		cfg.reporter = reporter
	}
}

type ImportOption func(*importConfig)

type importConfig struct {
	tables []string
}

// WithImportTables restricts import to the provided table names.
func WithImportTables(names []string) ImportOption {
	return func(cfg *importConfig) {
		if len(names) == 0 {
			return
		}
		cfg.tables = append([]string{}, names...)
	}
}

type record struct {
	Type       string         `json:"type"`
	Version    int            `json:"version,omitempty"`
	ExportedAt *time.Time     `json:"exported_at,omitempty"`
	SchemaHash string         `json:"schema_hash,omitempty"`
	Tables     []string       `json:"tables,omitempty"`
	RowCounts  map[string]int `json:"row_counts,omitempty"`
	Payload    any            `json:"payload,omitempty"`
}

type rawRecord struct {
	Type       string          `json:"type"`
	Version    int             `json:"version"`
	ExportedAt *time.Time      `json:"exported_at"`
	SchemaHash string          `json:"schema_hash"`
	Tables     []string        `json:"tables"`
	RowCounts  map[string]int  `json:"row_counts"`
	Payload    json.RawMessage `json:"payload"`
}

// Export writes a meta record followed by one NDJSON line per row.
func (s *Service) Export(ctx context.Context, w io.Writer, opts ...ExportOption) error {
	cfg := exportConfig{}
	for _, opt := range opts {
		opt(&cfg)
	}
	selected, err := s.selectTables(cfg.tables)
	if err != nil {
		return err
	}
	reporter := cfg.reporter
	if reporter == nil {
		reporter = noopProgress{}
	}

	db, err := s.openDB(ctx)
	if err != nil {
		return err
	}
	defer db.Close()

	counts := make(map[string]int, len(selected))
	for _, tbl := range selected {
		count, err := countTableRows(ctx, db, tbl.Name)
		if err != nil {
			return fmt.Errorf("count table %s: %w", tbl.Name, err)
		}
		counts[tbl.Name] = count
	}

	writer := bufio.NewWriter(w)
	defer writer.Flush()

	now := time.Now().UTC()
	meta := record{
		Type:       "meta",
		Version:    formatVersion,
		ExportedAt: &now,
		SchemaHash: s.schemaHash,
		Tables:     tableNames(selected),
		RowCounts:  counts,
	}
	if err := writeRecord(writer, meta); err != nil {
		return err
	}

	for _, tbl := range selected {
		reporter.StartTable(tbl.Name, counts[tbl.Name])
		if err := s.exportTable(ctx, db, tbl, reporter, writer); err != nil {
			return err
		}
		reporter.FinishTable(tbl.Name)
	}
	return writer.Flush()
}

// Import replays a snapshot into the database inside one transaction.
// Existing rows with matching primary keys are overwritten.
func (s *Service) Import(ctx context.Context, r io.Reader, opts ...ImportOption) error {
	cfg := importConfig{}
	for _, opt := range opts {
		opt(&cfg)
	}
	selected, err := s.selectTables(cfg.tables)
	if err != nil {
		return err
	}
	tableFilter := make(map[string]table, len(selected))
	for _, tbl := range selected {
		tableFilter[tbl.Name] = tbl
	}

	db, err := s.openDB(ctx)
	if err != nil {
		return err
	}
	defer db.Close()

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	commit := false
	defer func() {
		if !commit {
			_ = tx.Rollback()
		}
	}()

	br := bufio.NewReader(r)
	var (
		metaSeen bool
		meta     rawRecord
	)

	for {
		line, err := br.ReadBytes('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return fmt.Errorf("read backup: %w", err)
		}
		line = bytes.TrimSpace(line)
		if len(line) > 0 {
			var rec rawRecord
			if err := json.Unmarshal(line, &rec); err != nil {
				return fmt.Errorf("decode record: %w", err)
			}

			switch rec.Type {
			case "meta":
				metaSeen = true
				meta = rec
			default:
				tbl, ok := tableFilter[rec.Type]
				if !ok {
					// Skip records for tables not requested.
					break
				}
				if len(rec.Payload) == 0 {
					return fmt.Errorf("backup: missing payload for table %s", rec.Type)
				}
				if err := s.importRow(ctx, tx, tbl, rec.Payload); err != nil {
					return err
				}
			}
		}
		if errors.Is(err, io.EOF) {
			break
		}
	}

	if !metaSeen {
		return errors.New("backup: missing meta record")
	}
	if meta.Version != formatVersion {
		return fmt.Errorf("backup: unsupported format version %d", meta.Version)
	}
	if meta.SchemaHash != "" && meta.SchemaHash != s.schemaHash {
		return errors.New("backup: snapshot schema does not match current schema")
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit import: %w", err)
	}
	commit = true
	return nil
}

func (s *Service) exportTable(ctx context.Context, db *sql.DB, tbl table, reporter ProgressReporter, w io.Writer) error {
	columns := columnNames(tbl)
	orderBy := strings.Join(tbl.PrimaryKey, ", ")
	batch := s.batchSize
	if batch <= 0 {
		batch = defaultBatchSize
	}

	for offset := 0; ; offset += batch {
		query := fmt.Sprintf("SELECT %s FROM %s ORDER BY %s LIMIT %d OFFSET %d",
			strings.Join(columns, ", "), tbl.Name, orderBy, batch, offset)
		rows, err := db.QueryContext(ctx, query)
		if err != nil {
			return fmt.Errorf("query %s: %w", tbl.Name, err)
		}

		rowCount := 0
		for rows.Next() {
			values := make([]any, len(columns))
			dest := make([]any, len(columns))
			for i := range dest {
				dest[i] = &values[i]
			}
			if err := rows.Scan(dest...); err != nil {
				rows.Close()
				return fmt.Errorf("scan %s: %w", tbl.Name, err)
			}
			rowMap, err := encodeRow(tbl, values)
			if err != nil {
				rows.Close()
				return fmt.Errorf("encode %s row: %w", tbl.Name, err)
			}
			if err := writeRecord(w, record{Type: tbl.Name, Payload: rowMap}); err != nil {
				rows.Close()
				return err
			}
			reporter.Increment(tbl.Name, 1)
			rowCount++
		}
		if err := rows.Err(); err != nil {
			rows.Close()
			return fmt.Errorf("iterate %s: %w", tbl.Name, err)
		}
		rows.Close()
		if rowCount < batch {
			return nil
		}
	}
}

func (s *Service) importRow(ctx context.Context, tx *sql.Tx, tbl table, payload json.RawMessage) error {
	args, err := decodeRow(tbl, payload)
	if err != nil {
		return fmt.Errorf("decode payload for %s: %w", tbl.Name, err)
	}

	cols := columnNames(tbl)
	placeholders := make([]string, len(cols))
	for i := range cols {
		if s.driver == "postgres" {
			placeholders[i] = fmt.Sprintf("$%d", i+1)
		} else {
			placeholders[i] = "?"
		}
	}

	assignments := make([]string, 0, len(cols))
	for _, col := range cols {
		assignments = append(assignments, fmt.Sprintf("%s = excluded.%s", col, col))
	}

	query := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s) ON CONFLICT (%s) DO UPDATE SET %s",
		tbl.Name,
		strings.Join(cols, ", "),
		strings.Join(placeholders, ", "),
		strings.Join(tbl.PrimaryKey, ", "),
		strings.Join(assignments, ", "),
	)
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("insert %s: %w", tbl.Name, err)
	}
	return nil
}

// encodeRow turns scanned driver values into a JSON-friendly ordered map.
func encodeRow(tbl table, values []any) (map[string]any, error) {
	row := make(map[string]any, len(tbl.Columns))
	for i, col := range tbl.Columns {
		val := values[i]
		if val == nil {
			row[col.Name] = nil
			continue
		}
		switch v := val.(type) {
		case []byte:
			row[col.Name] = string(v)
		case time.Time:
			if col.Kind == kindDate {
				row[col.Name] = v.Format("2006-01-02")
			} else {
				row[col.Name] = v.UTC().Format(time.RFC3339Nano)
			}
		case int64, float64, bool, string:
			row[col.Name] = v
		default:
			return nil, fmt.Errorf("unsupported value type %T for column %s", val, col.Name)
		}
	}
	return row, nil
}

// decodeRow converts a JSON payload back into positional driver arguments.
func decodeRow(tbl table, payload json.RawMessage) ([]any, error) {
	var row map[string]any
	if err := json.Unmarshal(payload, &row); err != nil {
		return nil, err
	}

	args := make([]any, 0, len(tbl.Columns))
	for _, col := range tbl.Columns {
		raw, ok := row[col.Name]
		if !ok || raw == nil {
			if !col.Nullable && !ok {
				return nil, fmt.Errorf("missing value for column %s", col.Name)
			}
			args = append(args, nil)
			continue
		}
		val, err := coerceValue(col, raw)
		if err != nil {
			return nil, fmt.Errorf("column %s: %w", col.Name, err)
		}
		args = append(args, val)
	}
	return args, nil
}

func coerceValue(col column, raw any) (any, error) {
	switch col.Kind {
	case kindString, kindDate:
		s, ok := raw.(string)
		if !ok {
			return nil, fmt.Errorf("expected string, got %T", raw)
		}
		return s, nil
	case kindInt:
		f, ok := raw.(float64)
		if !ok || f != math.Trunc(f) {
			return nil, fmt.Errorf("expected integer, got %v", raw)
		}
		return int64(f), nil
	case kindFloat:
		f, ok := raw.(float64)
		if !ok {
			return nil, fmt.Errorf("expected number, got %T", raw)
		}
		return f, nil
	case kindBool:
		b, ok := raw.(bool)
		if !ok {
			return nil, fmt.Errorf("expected bool, got %T", raw)
		}
		return b, nil
	case kindTime:
		s, ok := raw.(string)
		if !ok {
			return nil, fmt.Errorf("expected timestamp string, got %T", raw)
		}
		t, err := time.Parse(time.RFC3339Nano, s)
		if err != nil {
			return nil, err
		}
		return t, nil
	default:
		return nil, fmt.Errorf("unknown column kind %d", col.Kind)
	}
}

func (s *Service) selectTables(names []string) ([]table, error) {
	if len(names) == 0 {
		return tables, nil
	}
	selected := make([]table, 0, len(names))
	seen := make(map[string]bool, len(names))
	for _, tbl := range tables {
		for _, name := range names {
			if strings.EqualFold(name, tbl.Name) && !seen[tbl.Name] {
				selected = append(selected, tbl)
				seen[tbl.Name] = true
			}
		}
	}
	for _, name := range names {
		if !seen[strings.ToLower(name)] {
			return nil, fmt.Errorf("backup: unknown table %q", name)
		}
	}
	if len(selected) == 0 {
		return nil, errNoTablesSelected
	}
	return selected, nil
}

func (s *Service) openDB(ctx context.Context) (*sql.DB, error) {
	db, err := sql.Open(s.driver, s.dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return db, nil
}

func countTableRows(ctx context.Context, db *sql.DB, name string) (int, error) {
	var count int
	err := db.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+name).Scan(&count)
	return count, err
}

func writeRecord(w io.Writer, rec record) error {
	payload, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal record: %w", err)
	}
	if _, err := w.Write(append(payload, '\n')); err != nil {
		return fmt.Errorf("write record: %w", err)
	}
	return nil
}

func columnNames(tbl table) []string {
	names := make([]string, 0, len(tbl.Columns))
	for _, col := range tbl.Columns {
		names = append(names, col.Name)
	}
	return names
}

func tableNames(tbls []table) []string {
	names := make([]string, 0, len(tbls))
	for _, tbl := range tbls {
		names = append(names, tbl.Name)
	}
	return names
}

func computeSchemaHash(tbls []table) string {
	parts := make([]string, 0, len(tbls))
	for _, tbl := range tbls {
		cols := columnNames(tbl)
		sort.Strings(cols)
		parts = append(parts, tbl.Name+"("+strings.Join(cols, ",")+")")
	}
	sort.Strings(parts)
	sum := sha256.Sum256([]byte(strings.Join(parts, ";")))
	return hex.EncodeToString(sum[:])
}
