package config

import "testing"

func TestDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Port != 8080 {
		t.Errorf("Port = %d, want 8080", cfg.Port)
	}
	if cfg.StorageBackend != StorageLocal {
		t.Errorf("StorageBackend = %s, want %s", cfg.StorageBackend, StorageLocal)
	}
	if cfg.ActivitiesPath != "./activities" {
		t.Errorf("ActivitiesPath = %s, want ./activities", cfg.ActivitiesPath)
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("STORAGE_BACKEND", StorageSQLite)
	t.Setenv("PARENT_PIN", "4321")
	t.Setenv("DEBUG", "true")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Port != 9090 {
		t.Errorf("Port = %d, want 9090", cfg.Port)
	}
	if cfg.StorageBackend != StorageSQLite {
		t.Errorf("StorageBackend = %s, want %s", cfg.StorageBackend, StorageSQLite)
	}
	if cfg.ParentPIN != "4321" {
		t.Errorf("ParentPIN = %s, want 4321", cfg.ParentPIN)
	}
	if !cfg.Debug {
		t.Errorf("Debug = false, want true")
	}
}

func TestInvalidIntFallsBack(t *testing.T) {
	t.Setenv("PORT", "not-a-number")
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Port != 8080 {
		t.Errorf("Port = %d, want default 8080", cfg.Port)
	}
}
