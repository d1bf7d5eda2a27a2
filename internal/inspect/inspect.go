// Package inspect verifies materialized datasets by reading them back with
// an embedded duckdb instance.
package inspect

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	_ "github.com/marcboeker/go-duckdb/v2"
)

type PartitionCount struct {
	Partition string
	Rows      int64
}

type Summary struct {
	TotalRows  int64
	Files      int
	Partitions []PartitionCount
}

// Summarize counts the rows of every parquet file under datasetRoot, grouped
// by partition directory. Hive partition columns are resolved from the paths,
// so the counts cover exactly what a downstream hive-aware reader would see.
func Summarize(ctx context.Context, datasetRoot string) (Summary, error) {
	if strings.TrimSpace(datasetRoot) == "" {
		return Summary{}, fmt.Errorf("dataset path is required")
	}

	db, err := sql.Open("duckdb", "")
	if err != nil {
		return Summary{}, fmt.Errorf("open duckdb: %w", err)
	}
	defer func() { _ = db.Close() }()

	glob := filepath.ToSlash(filepath.Join(datasetRoot, "**", "*.parquet"))
	query := fmt.Sprintf(
		`SELECT filename, COUNT(*) FROM read_parquet(%s, hive_partitioning=1, filename=1) GROUP BY filename`,
		quoteString(glob),
	)

	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return Summary{}, fmt.Errorf("read dataset %q: %w", datasetRoot, err)
	}
	defer func() { _ = rows.Close() }()

	perPartition := map[string]int64{}
	summary := Summary{}
	root := filepath.ToSlash(datasetRoot)
	for rows.Next() {
		var filename string
		var count int64
		if err := rows.Scan(&filename, &count); err != nil {
			return Summary{}, fmt.Errorf("scan count row: %w", err)
		}
		summary.TotalRows += count
		summary.Files++
		perPartition[partitionOf(root, filename)] += count
	}
	if err := rows.Err(); err != nil {
		return Summary{}, fmt.Errorf("iterate count rows: %w", err)
	}

	for partition, count := range perPartition {
		summary.Partitions = append(summary.Partitions, PartitionCount{Partition: partition, Rows: count})
	}
	sort.Slice(summary.Partitions, func(i, j int) bool {
		return summary.Partitions[i].Partition < summary.Partitions[j].Partition
	})
	return summary, nil
}

func partitionOf(root, filename string) string {
	dir := filepath.ToSlash(filepath.Dir(filename))
	relative := strings.TrimPrefix(strings.TrimPrefix(dir, root), "/")
	if relative == "" {
		return "."
	}
	return relative
}

func quoteString(value string) string {
	return "'" + strings.ReplaceAll(value, "'", "''") + "'"
}
