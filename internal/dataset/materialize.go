package dataset

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"time"

	"github.com/pgharvest/pgharvest/internal/observability"
)

// Column names injected or derived by the materializer. idEmpresa and idEmp
// both carry the tenant id; the duplicate exists for older downstream
// consumers.
const (
	TenantColumn       = "idEmpresa"
	TenantColumnLegacy = "idEmp"
	UpdateColumn       = "DataHoraAtualizacao"
	TimeOfDayColumn    = "HoraVenda"
	YearColumn         = "Ano"
	MonthColumn        = "Mes"
)

const (
	timeOfDaySentinel = "00:00:00"
	updateTimeFormat  = "02/01/2006 15:04:05"
	businessTimezone  = "America/Sao_Paulo"
)

// ErrMissingTenantColumn is returned when the per-dataset adjustment leaves
// the output without the mandatory tenant id column.
var ErrMissingTenantColumn = errors.New("column idEmpresa is required for partitioning")

var timeOfDayPattern = regexp.MustCompile(`\d{2}:\d{2}:\d{2}`)

// dateColumnByDataset names the business date column that drives Ano/Mes
// partitioning for each dataset that has one.
var dateColumnByDataset = map[string]string{
	"Vendas":  "DataVenda",
	"Compras": "DataEmissaoNF",
}

// Adjuster applies per-dataset column adjustments (rename, cast, drop) after
// schema augmentation and before validation.
type Adjuster interface {
	Adjust(t *Table, name string) (*Table, error)
}

type AdjusterFunc func(t *Table, name string) (*Table, error)

func (f AdjusterFunc) Adjust(t *Table, name string) (*Table, error) {
	return f(t, name)
}

// Materializer turns a raw query result into a hive-partitioned parquet
// dataset on local disk.
type Materializer struct {
	TenantID       string
	Adjuster       Adjuster
	Logger         *slog.Logger
	Clock          func() time.Time
	MaxRowsPerFile int
}

// Materialize normalizes, augments and writes the table under
// <tempRoot>/<name>. It returns the dataset root and the immediate child
// partition directories. The partition listing is intentionally shallow: it
// stops at the tenant-id level even when Ano/Mes subdirectories exist below,
// because downstream consumers key off that level.
//
// A Materializer is shared across workers; defaults are resolved locally, no
// fields are written.
func (m *Materializer) Materialize(ctx context.Context, t *Table, name, tempRoot string) (string, []string, error) {
	if t == nil || t.NumRows() == 0 {
		return "", nil, fmt.Errorf("dataset %q has no rows to materialize", name)
	}
	clock := m.Clock
	if clock == nil {
		clock = time.Now
	}
	maxRowsPerFile := m.MaxRowsPerFile
	if maxRowsPerFile <= 0 {
		maxRowsPerFile = 500_000
	}

	start := clock()
	datasetRoot := filepath.Join(tempRoot, name)

	m.normalizeTimeOfDay(t)

	now := businessTime(clock())
	t.AppendConstant(UpdateColumn, KindString, now.Format(updateTimeFormat))
	t.AppendConstant(TenantColumn, KindString, m.TenantID)
	t.AppendConstant(TenantColumnLegacy, KindString, m.TenantID)

	partitionKeys := m.derivePartitionKeys(t, name)

	if m.Adjuster != nil {
		adjusted, err := m.Adjuster.Adjust(t, name)
		if err != nil {
			return "", nil, fmt.Errorf("adjust types for %q: %w", name, err)
		}
		t = adjusted
	}

	if t.ColumnIndex(TenantColumn) < 0 {
		return "", nil, fmt.Errorf("dataset %q: %w", name, ErrMissingTenantColumn)
	}

	if err := os.MkdirAll(datasetRoot, 0o755); err != nil {
		return "", nil, fmt.Errorf("create dataset dir %q: %w", datasetRoot, err)
	}

	files, err := writePartitioned(ctx, t, name, datasetRoot, partitionKeys, maxRowsPerFile)
	if err != nil {
		return "", nil, fmt.Errorf("write dataset %q: %w", name, err)
	}

	partitions, err := listPartitions(datasetRoot)
	if err != nil {
		return "", nil, err
	}

	elapsed := clock().Sub(start)
	observability.ObserveMaterialize(files, elapsed)
	if m.Logger != nil {
		m.Logger.InfoContext(ctx, "dataset materialized",
			slog.String("dataset", name),
			slog.Int("rows", t.NumRows()),
			slog.Int("files", files),
			slog.Int("partitions", len(partitions)),
			slog.String("path", datasetRoot),
		)
	}
	return datasetRoot, partitions, nil
}

func businessTime(now time.Time) time.Time {
	if loc, err := time.LoadLocation(businessTimezone); err == nil {
		return now.In(loc)
	}
	return now
}

// normalizeTimeOfDay rewrites the time-of-day column to fixed HH:MM:SS text.
// Best effort: malformed or missing values degrade to the 00:00:00 sentinel,
// never to an error.
func (m *Materializer) normalizeTimeOfDay(t *Table) {
	index := t.ColumnIndex(TimeOfDayColumn)
	if index < 0 {
		return
	}
	kind := t.Columns[index].Kind
	if kind != KindDuration && kind != KindString {
		return
	}
	t.Columns[index].Kind = KindString
	for i := range t.Rows {
		t.Rows[i][index] = normalizeTimeValue(t.Rows[i][index], kind)
	}
}

func normalizeTimeValue(v any, kind Kind) string {
	if v == nil {
		return timeOfDaySentinel
	}
	if kind == KindDuration {
		switch value := v.(type) {
		case time.Duration:
			if value < 0 {
				return timeOfDaySentinel
			}
			value = value.Round(time.Second)
			h := value / time.Hour
			mi := (value % time.Hour) / time.Minute
			s := (value % time.Minute) / time.Second
			return fmt.Sprintf("%02d:%02d:%02d", h, mi, s)
		case time.Time:
			return value.Format("15:04:05")
		}
	}
	if match := timeOfDayPattern.FindString(Stringify(v)); match != "" {
		return match
	}
	return timeOfDaySentinel
}

// derivePartitionKeys fixes the partition key set for this run. When the
// dataset's recognized date column is present, its text form yields Ano
// (chars 0-3) and Mes (chars 5-6) columns.
func (m *Materializer) derivePartitionKeys(t *Table, name string) []string {
	dateColumn, ok := dateColumnByDataset[name]
	if !ok {
		return []string{TenantColumn}
	}
	index := t.ColumnIndex(dateColumn)
	if index < 0 {
		return []string{TenantColumn}
	}

	t.CastToString(index)
	t.AppendDerived(YearColumn, KindString, func(row []any) any {
		return sliceString(Stringify(row[index]), 0, 4)
	})
	t.AppendDerived(MonthColumn, KindString, func(row []any) any {
		return sliceString(Stringify(row[index]), 5, 2)
	})
	return []string{TenantColumn, YearColumn, MonthColumn}
}

func sliceString(s string, offset, length int) string {
	if offset >= len(s) {
		return ""
	}
	end := offset + length
	if end > len(s) {
		end = len(s)
	}
	return s[offset:end]
}

func listPartitions(datasetRoot string) ([]string, error) {
	entries, err := os.ReadDir(datasetRoot)
	if err != nil {
		return nil, fmt.Errorf("list partitions in %q: %w", datasetRoot, err)
	}
	partitions := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			partitions = append(partitions, filepath.Join(datasetRoot, entry.Name()))
		}
	}
	return partitions, nil
}
