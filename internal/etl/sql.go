package etl

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/BartekS5/lake-etl/pkg/lake"
	"github.com/BartekS5/lake-etl/pkg/logger"
)

// maxSQLParams stays under the SQL Server limit of 2100 parameters per
// statement.
const maxSQLParams = 2000

// SQLLoader overwrites one existing SQL Server table per dataset.
type SQLLoader struct {
	DB        *sql.DB
	BatchSize int
}

func NewSQLLoader(db *sql.DB, batchSize int) *SQLLoader {
	return &SQLLoader{DB: db, BatchSize: batchSize}
}

func (l *SQLLoader) Name() string { return "sql" }

// Load replaces the table contents inside one transaction.
func (l *SQLLoader) Load(ctx context.Context, table lake.Table) (err error) {
	records := table.Records()

	tx, err := l.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx, "DELETE FROM "+quoteIdent(table.Name())); err != nil {
		return fmt.Errorf("clear table %s: %w", table.Name(), err)
	}

	if len(records) > 0 {
		cols := records[0].Columns()
		perStmt := rowsPerStatement(len(cols), l.BatchSize)
		for start := 0; start < len(records); start += perStmt {
			end := min(start+perStmt, len(records))
			args := make([]interface{}, 0, (end-start)*len(cols))
			for _, r := range records[start:end] {
				args = append(args, r.Values()...)
			}
			query := BuildInsert(table.Name(), cols, end-start)
			if _, err = tx.ExecContext(ctx, query, args...); err != nil {
				return fmt.Errorf("insert into %s (rows %d-%d): %w", table.Name(), start, end-1, err)
			}
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit %s: %w", table.Name(), err)
	}
	logger.Infof("SQL Loader: %s replaced with %d rows", table.Name(), len(records))
	return nil
}

func rowsPerStatement(cols, batch int) int {
	n := maxSQLParams / max(cols, 1)
	if batch > 0 && batch < n {
		n = batch
	}
	return max(n, 1)
}

// BuildInsert returns a multi-row INSERT with @pN placeholders numbered
// row by row.
func BuildInsert(table string, cols []string, rows int) string {
	quoted := make([]string, len(cols))
	for i, c := range cols {
		quoted[i] = quoteIdent(c)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "INSERT INTO %s (%s) VALUES ", quoteIdent(table), strings.Join(quoted, ", "))
	n := 1
	for r := 0; r < rows; r++ {
		if r > 0 {
			b.WriteString(", ")
		}
		b.WriteByte('(')
		for c := range cols {
			if c > 0 {
				b.WriteString(", ")
			}
			fmt.Fprintf(&b, "@p%d", n)
			n++
		}
		b.WriteByte(')')
	}
	return b.String()
}

func quoteIdent(name string) string {
	return "[" + strings.ReplaceAll(name, "]", "]]") + "]"
}
