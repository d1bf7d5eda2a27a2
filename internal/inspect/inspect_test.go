package inspect

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/parquet-go/parquet-go"
)

type saleRow struct {
	ID   int64  `parquet:"id"`
	Nome string `parquet:"Nome"`
}

func writeParquet(t *testing.T, path string, rows []saleRow) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("MkdirAll() error = %v", err)
	}
	file, err := os.Create(path)
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	writer := parquet.NewGenericWriter[saleRow](file)
	if _, err := writer.Write(rows); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if err := file.Close(); err != nil {
		t.Fatalf("file.Close() error = %v", err)
	}
}

func TestSummarizeCountsRowsPerPartition(t *testing.T) {
	root := t.TempDir()
	writeParquet(t, filepath.Join(root, "idEmpresa=42", "Ano=2024", "Mes=01", "part-00000.parquet"), []saleRow{
		{ID: 1, Nome: "a"},
		{ID: 2, Nome: "b"},
	})
	writeParquet(t, filepath.Join(root, "idEmpresa=42", "Ano=2024", "Mes=02", "part-00000.parquet"), []saleRow{
		{ID: 3, Nome: "c"},
	})

	summary, err := Summarize(context.Background(), root)
	if err != nil {
		t.Fatalf("Summarize() error = %v", err)
	}
	if summary.TotalRows != 3 {
		t.Fatalf("TotalRows = %d, want 3", summary.TotalRows)
	}
	if summary.Files != 2 {
		t.Fatalf("Files = %d, want 2", summary.Files)
	}
	if len(summary.Partitions) != 2 {
		t.Fatalf("Partitions = %+v", summary.Partitions)
	}
	if summary.Partitions[0].Partition != "idEmpresa=42/Ano=2024/Mes=01" || summary.Partitions[0].Rows != 2 {
		t.Fatalf("Partitions[0] = %+v", summary.Partitions[0])
	}
	if summary.Partitions[1].Partition != "idEmpresa=42/Ano=2024/Mes=02" || summary.Partitions[1].Rows != 1 {
		t.Fatalf("Partitions[1] = %+v", summary.Partitions[1])
	}
}

func TestSummarizeRequiresPath(t *testing.T) {
	if _, err := Summarize(context.Background(), "  "); err == nil {
		t.Fatal("expected error for empty path")
	}
}
