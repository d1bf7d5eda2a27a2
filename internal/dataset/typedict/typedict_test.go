package typedict

import (
	"testing"

	"github.com/pgharvest/pgharvest/internal/dataset"
)

func TestAdjustAppliesRulesInOrder(t *testing.T) {
	dict := New(map[string][]Rule{
		"Vendas": {
			Cast("ValorVenda", dataset.KindString),
			Renamed("CodigoProduto", "idProduto"),
			Dropped("xmin"),
		},
	})
	table := &dataset.Table{
		Columns: []dataset.Column{
			{Name: "ValorVenda", Kind: dataset.KindFloat64},
			{Name: "CodigoProduto", Kind: dataset.KindInt64},
			{Name: "xmin", Kind: dataset.KindString},
		},
		Rows: [][]any{{float64(10.5), int64(7), "abc"}},
	}

	adjusted, err := dict.Adjust(table, "Vendas")
	if err != nil {
		t.Fatalf("Adjust() error = %v", err)
	}
	if adjusted.Columns[0].Kind != dataset.KindString {
		t.Fatalf("ValorVenda kind = %v", adjusted.Columns[0].Kind)
	}
	if adjusted.Rows[0][0] != "10.5" {
		t.Fatalf("ValorVenda value = %v", adjusted.Rows[0][0])
	}
	if adjusted.ColumnIndex("idProduto") < 0 {
		t.Fatal("CodigoProduto was not renamed")
	}
	if adjusted.ColumnIndex("xmin") >= 0 {
		t.Fatal("xmin was not dropped")
	}
	if len(adjusted.Rows[0]) != 2 {
		t.Fatalf("row width = %d, want 2", len(adjusted.Rows[0]))
	}
}

func TestAdjustUnknownDatasetPassesThrough(t *testing.T) {
	dict := Default()
	table := &dataset.Table{
		Columns: []dataset.Column{{Name: "id", Kind: dataset.KindInt64}},
		Rows:    [][]any{{int64(1)}},
	}
	adjusted, err := dict.Adjust(table, "Estoque")
	if err != nil {
		t.Fatalf("Adjust() error = %v", err)
	}
	if len(adjusted.Columns) != 1 || adjusted.Columns[0].Name != "id" {
		t.Fatalf("columns = %+v", adjusted.Columns)
	}
}

func TestAdjustMissingColumnsAreIgnored(t *testing.T) {
	dict := Default()
	table := &dataset.Table{
		Columns: []dataset.Column{{Name: "id", Kind: dataset.KindInt64}},
		Rows:    [][]any{{int64(1)}},
	}
	if _, err := dict.Adjust(table, "Vendas"); err != nil {
		t.Fatalf("Adjust() error = %v", err)
	}
}
