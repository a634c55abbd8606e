package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"FinPanel/internal/domain/repository"
	"FinPanel/pkg/logger"
)

// keyChunk bounds the tuples per key lookup; insertChunk bounds rows per INSERT.
const (
	keyChunk    = 500
	insertChunk = 2000
)

// ClickHouseRowWriter implements repository.RowWriter on ReplacingMergeTree tables:
// absent keys are inserted, present keys are re-inserted with a newer version only on Update.
type ClickHouseRowWriter struct {
	db     *sql.DB
	now    func() time.Time
	logger *logger.Logger
}

// NewClickHouseRowWriter creates a writer on db.
func NewClickHouseRowWriter(db *sql.DB) *ClickHouseRowWriter {
	return &ClickHouseRowWriter{db: db, now: time.Now}
}

// SetLogger sets the logger.
func (w *ClickHouseRowWriter) SetLogger(l *logger.Logger) { w.logger = l }

// UpsertBatch implements repository.RowWriter.
func (w *ClickHouseRowWriter) UpsertBatch(ctx context.Context, b repository.Batch) (repository.UpsertResult, error) {
	var res repository.UpsertResult
	if len(b.Rows) == 0 {
		return res, nil
	}
	if err := b.Validate(); err != nil {
		return res, err
	}

	existing, err := w.existingKeys(ctx, b)
	if err != nil {
		return res, err
	}
	fresh, present := partitionRows(b, existing)
	res.Inserted = len(fresh)

	toWrite := fresh
	if b.Update {
		toWrite = append(toWrite, present...)
		res.Updated = len(present)
	} else {
		res.Unchanged = len(present)
	}

	version := uint64(w.now().UnixNano())
	for start := 0; start < len(toWrite); start += insertChunk {
		end := start + insertChunk
		if end > len(toWrite) {
			end = len(toWrite)
		}
		q, args := buildInsert(b, toWrite[start:end], version)
		if _, err := w.db.ExecContext(ctx, q, args...); err != nil {
			return repository.UpsertResult{}, fmt.Errorf("insert %s: %w", b.Table, err)
		}
	}

	if w.logger != nil {
		w.logger.Debug("upsert batch",
			logger.String("table", b.Table),
			logger.Int("inserted", res.Inserted),
			logger.Int("updated", res.Updated),
			logger.Int("unchanged", res.Unchanged),
		)
	}
	return res, nil
}

func (w *ClickHouseRowWriter) existingKeys(ctx context.Context, b repository.Batch) (map[string]bool, error) {
	existing := make(map[string]bool)
	for start := 0; start < len(b.Rows); start += keyChunk {
		end := start + keyChunk
		if end > len(b.Rows) {
			end = len(b.Rows)
		}
		q, args := buildKeyQuery(b, b.Rows[start:end])
		if err := w.scanKeys(ctx, b, q, args, existing); err != nil {
			return nil, err
		}
	}
	return existing, nil
}

func (w *ClickHouseRowWriter) scanKeys(ctx context.Context, b repository.Batch, q string, args []any, into map[string]bool) error {
	rows, err := w.db.QueryContext(ctx, q, args...)
	if err != nil {
		return fmt.Errorf("lookup keys %s: %w", b.Table, err)
	}
	defer rows.Close()

	vals := make([]any, len(b.KeyColumns))
	ptrs := make([]any, len(vals))
	for i := range vals {
		ptrs[i] = &vals[i]
	}
	for rows.Next() {
		if err := rows.Scan(ptrs...); err != nil {
			return fmt.Errorf("scan keys %s: %w", b.Table, err)
		}
		rec := make(repository.Record, len(vals))
		for i, k := range b.KeyColumns {
			rec[k] = vals[i]
		}
		into[b.Key(rec)] = true
	}
	return rows.Err()
}

// partitionRows splits rows into absent and present keys. Duplicate keys inside a batch keep
// the last row.
func partitionRows(b repository.Batch, existing map[string]bool) (fresh, present []repository.Record) {
	last := make(map[string]int, len(b.Rows))
	for i, r := range b.Rows {
		last[b.Key(r)] = i
	}
	for i, r := range b.Rows {
		k := b.Key(r)
		if last[k] != i {
			continue
		}
		if existing[k] {
			present = append(present, r)
		} else {
			fresh = append(fresh, r)
		}
	}
	return fresh, present
}

func buildKeyQuery(b repository.Batch, rows []repository.Record) (string, []any) {
	tuple := "(" + strings.TrimSuffix(strings.Repeat("?, ", len(b.KeyColumns)), ", ") + ")"
	tuples := make([]string, len(rows))
	args := make([]any, 0, len(rows)*len(b.KeyColumns))
	for i, r := range rows {
		tuples[i] = tuple
		for _, k := range b.KeyColumns {
			args = append(args, r[k])
		}
	}
	keys := strings.Join(b.KeyColumns, ", ")
	q := fmt.Sprintf("SELECT %s FROM %s FINAL WHERE (%s) IN (%s)", keys, b.Table, keys, strings.Join(tuples, ", "))
	return q, args
}

func buildInsert(b repository.Batch, rows []repository.Record, version uint64) (string, []any) {
	cols := append(append([]string{}, b.Columns...), VersionColumn)
	tuple := "(" + strings.TrimSuffix(strings.Repeat("?, ", len(cols)), ", ") + ")"
	values := make([]string, len(rows))
	args := make([]any, 0, len(rows)*len(cols))
	for i, r := range rows {
		values[i] = tuple
		for _, c := range b.Columns {
			args = append(args, r[c])
		}
		args = append(args, version)
	}
	q := fmt.Sprintf("INSERT INTO %s (%s) VALUES %s", b.Table, strings.Join(cols, ", "), strings.Join(values, ", "))
	return q, args
}
