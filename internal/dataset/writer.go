package dataset

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/parquet-go/parquet-go"
)

// hiveDefaultPartition stands in for empty partition values, matching the
// convention of hive-style readers.
const hiveDefaultPartition = "__HIVE_DEFAULT_PARTITION__"

// writePartitioned writes the table under root as one directory per partition
// value combination, nested in partition key order, with at most
// maxRowsPerFile rows per parquet file. Partition columns are encoded in the
// directory path and excluded from file contents. Existing partition
// directories are merged into, not replaced: new part files are added next to
// whatever is already there.
func writePartitioned(ctx context.Context, t *Table, name, root string, partitionKeys []string, maxRowsPerFile int) (int, error) {
	keyIndexes := make([]int, 0, len(partitionKeys))
	for _, key := range partitionKeys {
		index := t.ColumnIndex(key)
		if index < 0 {
			return 0, fmt.Errorf("partition column %q not in schema", key)
		}
		keyIndexes = append(keyIndexes, index)
	}

	dataColumns := make([]int, 0, len(t.Columns))
	for i := range t.Columns {
		if !containsInt(keyIndexes, i) {
			dataColumns = append(dataColumns, i)
		}
	}
	if len(dataColumns) == 0 {
		return 0, fmt.Errorf("dataset %q has no data columns outside the partition keys", name)
	}

	schema := buildSchema(name, t, dataColumns)

	// Group rows by partition path, preserving first-seen order and row order
	// within each partition.
	groups := map[string][]int{}
	order := make([]string, 0)
	for rowIndex, row := range t.Rows {
		segments := make([]string, 0, len(keyIndexes))
		for k, columnIndex := range keyIndexes {
			segments = append(segments, partitionSegment(partitionKeys[k], Stringify(row[columnIndex])))
		}
		dir := filepath.Join(segments...)
		if _, ok := groups[dir]; !ok {
			order = append(order, dir)
		}
		groups[dir] = append(groups[dir], rowIndex)
	}

	files := 0
	for _, dir := range order {
		if err := ctx.Err(); err != nil {
			return files, err
		}
		partitionDir := filepath.Join(root, dir)
		if err := os.MkdirAll(partitionDir, 0o755); err != nil {
			return files, fmt.Errorf("create partition dir %q: %w", partitionDir, err)
		}
		rowIndexes := groups[dir]
		for sequence := nextSequence(partitionDir); len(rowIndexes) > 0; sequence++ {
			chunk := rowIndexes
			if len(chunk) > maxRowsPerFile {
				chunk = chunk[:maxRowsPerFile]
			}
			rowIndexes = rowIndexes[len(chunk):]
			if err := writeFile(filepath.Join(partitionDir, fmt.Sprintf("part-%05d.parquet", sequence)), t, schema, dataColumns, chunk); err != nil {
				return files, err
			}
			files++
		}
	}
	return files, nil
}

// nextSequence numbers part files after whatever is already in the partition
// directory, so reruns merge new files in instead of replacing earlier ones.
// The next number comes from the highest existing index, not the file count:
// a gap in the sequence must not cause a later file to be overwritten.
func nextSequence(partitionDir string) int {
	entries, err := os.ReadDir(partitionDir)
	if err != nil {
		return 0
	}
	sequence := 0
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasPrefix(name, "part-") || !strings.HasSuffix(name, ".parquet") {
			continue
		}
		index, err := strconv.Atoi(strings.TrimSuffix(strings.TrimPrefix(name, "part-"), ".parquet"))
		if err != nil {
			continue
		}
		if index+1 > sequence {
			sequence = index + 1
		}
	}
	return sequence
}

func buildSchema(name string, t *Table, dataColumns []int) *parquet.Schema {
	group := parquet.Group{}
	for _, index := range dataColumns {
		group[t.Columns[index].Name] = parquet.Optional(leafNode(t.Columns[index].Kind))
	}
	return parquet.NewSchema(name, group)
}

func leafNode(kind Kind) parquet.Node {
	switch kind {
	case KindInt64:
		return parquet.Int(64)
	case KindFloat64:
		return parquet.Leaf(parquet.DoubleType)
	case KindBool:
		return parquet.Leaf(parquet.BooleanType)
	case KindTimestamp:
		return parquet.Timestamp(parquet.Millisecond)
	default:
		// Repeated values dominate extract output, so string columns are
		// dictionary encoded.
		return parquet.Encoded(parquet.String(), &parquet.RLEDictionary)
	}
}

func writeFile(path string, t *Table, schema *parquet.Schema, dataColumns []int, rowIndexes []int) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create parquet file %q: %w", path, err)
	}

	writer := parquet.NewGenericWriter[map[string]any](file, schema, parquet.Compression(&parquet.Snappy))
	records := make([]map[string]any, 0, len(rowIndexes))
	for _, rowIndex := range rowIndexes {
		record := make(map[string]any, len(dataColumns))
		for _, columnIndex := range dataColumns {
			value := cellValue(t.Rows[rowIndex][columnIndex], t.Columns[columnIndex].Kind)
			if value != nil {
				record[t.Columns[columnIndex].Name] = value
			}
		}
		records = append(records, record)
	}
	if _, err := writer.Write(records); err != nil {
		_ = file.Close()
		return fmt.Errorf("write parquet rows to %q: %w", path, err)
	}
	if err := writer.Close(); err != nil {
		_ = file.Close()
		return fmt.Errorf("close parquet writer for %q: %w", path, err)
	}
	if err := file.Close(); err != nil {
		return fmt.Errorf("close parquet file %q: %w", path, err)
	}
	return nil
}

// cellValue coerces a scanned database value into the representation the
// parquet schema expects for the column kind. NUMERIC columns arrive from the
// driver as strings, so numeric kinds parse text rather than drop it.
func cellValue(v any, kind Kind) any {
	if v == nil {
		return nil
	}
	switch kind {
	case KindInt64:
		switch value := v.(type) {
		case int64:
			return value
		case int32:
			return int64(value)
		case int:
			return int64(value)
		case string:
			return parseInt64(value)
		case []byte:
			return parseInt64(string(value))
		}
		return nil
	case KindFloat64:
		switch value := v.(type) {
		case float64:
			return value
		case float32:
			return float64(value)
		case int64:
			return float64(value)
		case string:
			return parseFloat64(value)
		case []byte:
			return parseFloat64(string(value))
		}
		return nil
	case KindBool:
		if value, ok := v.(bool); ok {
			return value
		}
		return nil
	case KindTimestamp:
		if value, ok := v.(time.Time); ok {
			return value.UnixMilli()
		}
		return nil
	default:
		return Stringify(v)
	}
}

func parseInt64(s string) any {
	if value, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64); err == nil {
		return value
	}
	return nil
}

func parseFloat64(s string) any {
	if value, err := strconv.ParseFloat(strings.TrimSpace(s), 64); err == nil {
		return value
	}
	return nil
}

func partitionSegment(column, value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		value = hiveDefaultPartition
	}
	value = strings.NewReplacer("/", "_", string(filepath.Separator), "_", "=", "_").Replace(value)
	return column + "=" + value
}

func containsInt(values []int, v int) bool {
	for _, value := range values {
		if value == v {
			return true
		}
	}
	return false
}
