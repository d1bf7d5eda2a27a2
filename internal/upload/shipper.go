package upload

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/pgharvest/pgharvest/internal/extract"
	"github.com/pgharvest/pgharvest/internal/observability"
	"github.com/pgharvest/pgharvest/internal/storage"
)

// Shipper uploads a run's materialized datasets to the object store. Objects
// are keyed <query>/<partition path>/<file>, preserving the hive layout, so
// the remote tree mirrors the local one.
type Shipper struct {
	Store  storage.ObjectStore
	Logger *slog.Logger
}

type DatasetReport struct {
	Files int
	Bytes int64
}

// Ship uploads every dataset recorded in the run result. A dataset that fails
// mid-upload is reported and skipped; sibling datasets still ship.
func (s *Shipper) Ship(ctx context.Context, result extract.RunResult) (map[string]DatasetReport, error) {
	if s.Store == nil {
		return nil, fmt.Errorf("object store is required")
	}

	reports := map[string]DatasetReport{}
	for name, root := range result.DatasetPaths {
		report, err := s.shipDataset(ctx, name, root)
		if err != nil {
			if s.Logger != nil {
				s.Logger.ErrorContext(ctx, "dataset upload failed",
					slog.String("dataset", name),
					slog.Any("error", err),
				)
			}
			continue
		}
		reports[name] = report
		observability.AddUploadedBytes(report.Bytes)
		if s.Logger != nil {
			s.Logger.InfoContext(ctx, "dataset uploaded",
				slog.String("dataset", name),
				slog.Int("files", report.Files),
				slog.Int64("bytes", report.Bytes),
			)
		}
	}
	return reports, nil
}

func (s *Shipper) shipDataset(ctx context.Context, name, root string) (DatasetReport, error) {
	report := DatasetReport{}
	err := filepath.WalkDir(root, func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".parquet") {
			return nil
		}
		relative, err := filepath.Rel(root, path)
		if err != nil {
			return fmt.Errorf("relativize %q: %w", path, err)
		}
		size, err := s.putFile(ctx, filepath.ToSlash(filepath.Join(name, relative)), path)
		if err != nil {
			return err
		}
		report.Files++
		report.Bytes += size
		return nil
	})
	if err != nil {
		return DatasetReport{}, err
	}
	return report, nil
}

func (s *Shipper) putFile(ctx context.Context, key, path string) (int64, error) {
	file, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("open %q: %w", path, err)
	}
	defer func() { _ = file.Close() }()

	info, err := file.Stat()
	if err != nil {
		return 0, fmt.Errorf("stat %q: %w", path, err)
	}

	put, err := s.Store.Put(ctx, key, file, info.Size(), storage.PutOptions{ContentType: "application/octet-stream"})
	if err != nil {
		return 0, fmt.Errorf("put %q: %w", key, err)
	}
	return put.Size, nil
}
