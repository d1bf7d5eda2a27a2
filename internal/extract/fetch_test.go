package extract

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/pgharvest/pgharvest/internal/dataset"
)

func TestFetchBuildsTable(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New() error = %v", err)
	}
	defer func() { _ = db.Close() }()
	mock.ExpectQuery("SELECT").WillReturnRows(
		sqlmock.NewRows([]string{"id", "Nome"}).
			AddRow(int64(1), []byte("Loja A")).
			AddRow(int64(2), "Loja B"),
	)

	table, err := Fetch(context.Background(), db, "SELECT * FROM lojas")
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	if table.NumRows() != 2 {
		t.Fatalf("rows = %d", table.NumRows())
	}
	if table.Columns[0].Name != "id" || table.Columns[1].Name != "Nome" {
		t.Fatalf("columns = %+v", table.Columns)
	}
	if table.Rows[0][1] != "Loja A" {
		t.Fatalf("byte slice not normalized to string: %v", table.Rows[0][1])
	}
}

func TestKindForDatabaseType(t *testing.T) {
	cases := map[string]dataset.Kind{
		"INT8":        dataset.KindInt64,
		"int4":        dataset.KindInt64,
		"NUMERIC":     dataset.KindFloat64,
		"FLOAT8":      dataset.KindFloat64,
		"BOOL":        dataset.KindBool,
		"DATE":        dataset.KindTimestamp,
		"TIMESTAMPTZ": dataset.KindTimestamp,
		"TIME":        dataset.KindDuration,
		"INTERVAL":    dataset.KindDuration,
		"VARCHAR":     dataset.KindString,
		"":            dataset.KindString,
	}
	for databaseType, want := range cases {
		if got := kindForDatabaseType(databaseType); got != want {
			t.Errorf("kindForDatabaseType(%q) = %v, want %v", databaseType, got, want)
		}
	}
}
