package extract

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadSpecs(t *testing.T) {
	path := filepath.Join(t.TempDir(), "queries.json")
	content := `[
		{"name": "Vendas", "query": "SELECT * FROM vendas"},
		{"name": "Compras", "query": "SELECT * FROM compras"}
	]`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	specs, err := LoadSpecs(path)
	if err != nil {
		t.Fatalf("LoadSpecs() error = %v", err)
	}
	if len(specs) != 2 {
		t.Fatalf("specs = %+v", specs)
	}
	if specs[0].Name != "Vendas" || specs[1].Name != "Compras" {
		t.Fatalf("spec order = %+v", specs)
	}
}

func TestLoadSpecsRejectsUnnamedEntries(t *testing.T) {
	path := filepath.Join(t.TempDir(), "queries.json")
	if err := os.WriteFile(path, []byte(`[{"name": "  ", "query": "SELECT 1"}]`), 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	if _, err := LoadSpecs(path); err == nil {
		t.Fatal("expected error for unnamed query")
	}
}

func TestLoadSpecsMissingFile(t *testing.T) {
	if _, err := LoadSpecs(filepath.Join(t.TempDir(), "nope.json")); err == nil {
		t.Fatal("expected error for missing file")
	}
}
