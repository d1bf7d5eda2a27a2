package config

import (
	"log/slog"
	"testing"
)

func mapLookup(values map[string]string) LookupFunc {
	return func(key string) (string, bool) {
		value, ok := values[key]
		return value, ok
	}
}

func TestLoadDefaultsForDevProfile(t *testing.T) {
	lookup := mapLookup(map[string]string{"PGHARVEST_TENANT_ID": "1042"})
	cfg, err := Load("pgharvest-extractor", lookup)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Profile != ProfileDev {
		t.Fatalf("Profile = %q, want %q", cfg.Profile, ProfileDev)
	}
	if cfg.Source.Host != "localhost" || cfg.Source.Port != 5432 {
		t.Fatalf("Source = %+v", cfg.Source)
	}
	if cfg.Extract.Workers != 4 {
		t.Fatalf("Extract.Workers = %d", cfg.Extract.Workers)
	}
	if cfg.Extract.Parallel {
		t.Fatal("Extract.Parallel should default to false")
	}
	if cfg.Extract.TempRoot != "/tmp/pgharvest" {
		t.Fatalf("Extract.TempRoot = %q", cfg.Extract.TempRoot)
	}
	if cfg.ObjectStore.Enabled {
		t.Fatal("ObjectStore.Enabled should default to false in dev")
	}
	if cfg.Observability.LogLevel != slog.LevelDebug {
		t.Fatalf("LogLevel = %v", cfg.Observability.LogLevel)
	}
}

func TestLoadProdProfileDefaults(t *testing.T) {
	lookup := mapLookup(map[string]string{
		"PGHARVEST_PROFILE":   "prod",
		"PGHARVEST_TENANT_ID": "1042",
	})
	cfg, err := Load("pgharvest-extractor", lookup)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if !cfg.ObjectStore.Enabled {
		t.Fatal("ObjectStore.Enabled should default to true in prod")
	}
	if !cfg.ObjectStore.UseSSL {
		t.Fatal("ObjectStore.UseSSL should default to true in prod")
	}
	if cfg.ObjectStore.AutoCreateBucket {
		t.Fatal("ObjectStore.AutoCreateBucket should default to false in prod")
	}
	if cfg.Observability.LogLevel != slog.LevelInfo {
		t.Fatalf("LogLevel = %v", cfg.Observability.LogLevel)
	}
}

func TestLoadAppliesOverrides(t *testing.T) {
	lookup := mapLookup(map[string]string{
		"PGHARVEST_TENANT_ID":   "77",
		"PGHARVEST_SOURCE_HOST": "db.internal",
		"PGHARVEST_SOURCE_PORT": "5433",
		"PGHARVEST_PARALLEL":    "true",
		"PGHARVEST_WORKERS":     "8",
		"PGHARVEST_TEMP_ROOT":   "/var/tmp/extract",
		"PGHARVEST_LOG_LEVEL":   "warn",
	})
	cfg, err := Load("pgharvest-extractor", lookup)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Extract.TenantID != "77" {
		t.Fatalf("TenantID = %q", cfg.Extract.TenantID)
	}
	if cfg.Source.Host != "db.internal" || cfg.Source.Port != 5433 {
		t.Fatalf("Source = %+v", cfg.Source)
	}
	if !cfg.Extract.Parallel || cfg.Extract.Workers != 8 {
		t.Fatalf("Extract = %+v", cfg.Extract)
	}
	if cfg.Extract.TempRoot != "/var/tmp/extract" {
		t.Fatalf("TempRoot = %q", cfg.Extract.TempRoot)
	}
	if cfg.Observability.LogLevel != slog.LevelWarn {
		t.Fatalf("LogLevel = %v", cfg.Observability.LogLevel)
	}
}

func TestLoadRejectsInvalidProfile(t *testing.T) {
	lookup := mapLookup(map[string]string{"PGHARVEST_PROFILE": "staging"})
	if _, err := Load("pgharvest-extractor", lookup); err == nil {
		t.Fatal("expected error for invalid profile")
	}
}

func TestLoadRequiresTenantID(t *testing.T) {
	lookup := mapLookup(map[string]string{})
	if _, err := Load("pgharvest-extractor", lookup); err == nil {
		t.Fatal("expected error for missing tenant id")
	}
}

func TestLoadRejectsInvalidWorkerCount(t *testing.T) {
	lookup := mapLookup(map[string]string{
		"PGHARVEST_TENANT_ID": "1042",
		"PGHARVEST_WORKERS":   "0",
	})
	if _, err := Load("pgharvest-extractor", lookup); err == nil {
		t.Fatal("expected error for zero workers")
	}
}
