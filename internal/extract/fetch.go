package extract

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/pgharvest/pgharvest/internal/dataset"
)

// Querier is the slice of a database session the extractor needs. *sql.DB
// satisfies it.
type Querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// Fetch executes the SQL text verbatim and drains the result set into an
// in-memory table. Column kinds are mapped from the driver's reported
// database types.
func Fetch(ctx context.Context, session Querier, sqlText string) (*dataset.Table, error) {
	rows, err := session.QueryContext(ctx, sqlText)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	columnTypes, err := rows.ColumnTypes()
	if err != nil {
		return nil, fmt.Errorf("read column types: %w", err)
	}

	table := &dataset.Table{Columns: make([]dataset.Column, 0, len(columnTypes))}
	for _, columnType := range columnTypes {
		table.Columns = append(table.Columns, dataset.Column{
			Name: columnType.Name(),
			Kind: kindForDatabaseType(columnType.DatabaseTypeName()),
		})
	}

	for rows.Next() {
		values := make([]any, len(columnTypes))
		scanTargets := make([]any, len(columnTypes))
		for i := range values {
			scanTargets[i] = &values[i]
		}
		if err := rows.Scan(scanTargets...); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		table.Rows = append(table.Rows, normalizeValues(values))
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return table, nil
}

func kindForDatabaseType(databaseType string) dataset.Kind {
	switch strings.ToUpper(databaseType) {
	case "INT2", "INT4", "INT8", "SMALLINT", "INT", "INTEGER", "BIGINT", "SERIAL", "BIGSERIAL":
		return dataset.KindInt64
	case "FLOAT4", "FLOAT8", "REAL", "DOUBLE PRECISION", "NUMERIC", "DECIMAL":
		return dataset.KindFloat64
	case "BOOL", "BOOLEAN":
		return dataset.KindBool
	case "DATE", "TIMESTAMP", "TIMESTAMPTZ":
		return dataset.KindTimestamp
	case "TIME", "TIMETZ", "INTERVAL":
		return dataset.KindDuration
	default:
		return dataset.KindString
	}
}

func normalizeValues(values []any) []any {
	for i, v := range values {
		switch value := v.(type) {
		case []byte:
			values[i] = string(value)
		case int32:
			values[i] = int64(value)
		case int:
			values[i] = int64(value)
		case float32:
			values[i] = float64(value)
		}
	}
	return values
}
