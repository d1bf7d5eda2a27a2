package extract

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/pgharvest/pgharvest/internal/source"
)

// SourceSessions opens sessions against the configured source database.
type SourceSessions struct {
	Config source.Config
}

func (s SourceSessions) Open(ctx context.Context) (Session, error) {
	db, err := source.Open(ctx, s.Config)
	if err != nil {
		return nil, err
	}
	return db, nil
}

// LoadSpecs reads the query list from a JSON file of {"name", "query"}
// objects, in order.
func LoadSpecs(path string) ([]QuerySpec, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read queries file %q: %w", path, err)
	}
	var specs []QuerySpec
	if err := json.Unmarshal(data, &specs); err != nil {
		return nil, fmt.Errorf("parse queries file %q: %w", path, err)
	}
	for i, spec := range specs {
		if normalizeName(spec.Name) == "" {
			return nil, fmt.Errorf("queries file %q: entry %d has no name", path, i)
		}
	}
	return specs, nil
}
