package repository

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Record is one row keyed by column name.
type Record map[string]any

// Batch is a set of rows for one table identified by an application-defined unique key.
type Batch struct {
	Table      string
	Columns    []string
	KeyColumns []string
	Rows       []Record
	// Update rewrites rows whose key already exists.
	Update bool
}

// UpsertResult counts what happened to a batch.
type UpsertResult struct {
	Inserted  int
	Updated   int
	Unchanged int
}

// Add accumulates another result.
func (r *UpsertResult) Add(o UpsertResult) {
	r.Inserted += o.Inserted
	r.Updated += o.Updated
	r.Unchanged += o.Unchanged
}

// RowWriter upserts keyed batches. Implementations own all dialect-specific SQL.
type RowWriter interface {
	UpsertBatch(ctx context.Context, b Batch) (UpsertResult, error)
}

// Validate checks that every key column is a declared column and every row carries all columns.
func (b Batch) Validate() error {
	if b.Table == "" {
		return fmt.Errorf("batch: table is required")
	}
	if len(b.KeyColumns) == 0 {
		return fmt.Errorf("batch %s: key columns are required", b.Table)
	}
	declared := make(map[string]bool, len(b.Columns))
	for _, c := range b.Columns {
		declared[c] = true
	}
	for _, k := range b.KeyColumns {
		if !declared[k] {
			return fmt.Errorf("batch %s: key column %q is not a column", b.Table, k)
		}
	}
	for i, r := range b.Rows {
		for _, c := range b.Columns {
			if _, ok := r[c]; !ok {
				return fmt.Errorf("batch %s: row %d lacks column %q", b.Table, i, c)
			}
		}
	}
	return nil
}

// Key renders the key tuple of a row for set membership. Times compare by instant.
func (b Batch) Key(r Record) string {
	parts := make([]string, len(b.KeyColumns))
	for i, k := range b.KeyColumns {
		parts[i] = KeyPart(r[k])
	}
	return strings.Join(parts, "\x1f")
}

// KeyPart renders one key value.
func KeyPart(v any) string {
	switch x := v.(type) {
	case time.Time:
		return strconv.FormatInt(x.Unix(), 10)
	case *time.Time:
		return strconv.FormatInt(x.Unix(), 10)
	case string:
		return x
	default:
		return fmt.Sprint(x)
	}
}
