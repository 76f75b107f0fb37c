package config

import (
	"reflect"
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	for _, k := range []string{"MAX_UPLOAD_BYTES", "ALLOWED_TYPES", "TURSO_DATABASE_URL", "DB_BACKEND", "BACKUP_RETENTION_DAYS", "BASE_URL"} {
		t.Setenv(k, "")
	}
	cfg := Load()

	if cfg.MaxUploadBytes != 5*1024*1024 {
		t.Errorf("MaxUploadBytes = %d", cfg.MaxUploadBytes)
	}
	if !reflect.DeepEqual(cfg.AllowedTypes, []string{"jpg", "jpeg", "png", "gif"}) {
		t.Errorf("AllowedTypes = %v", cfg.AllowedTypes)
	}
	if cfg.DBBackend != "sqlite" {
		t.Errorf("DBBackend = %q", cfg.DBBackend)
	}
	if cfg.BackupRetentionDays != 30 || cfg.AutoBackupIntervalDays != 7 {
		t.Errorf("backup windows = %d/%d", cfg.BackupRetentionDays, cfg.AutoBackupIntervalDays)
	}
	if cfg.S3Enabled() {
		t.Error("S3 should be disabled without settings")
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("ALLOWED_TYPES", " PNG, .gif ,")
	t.Setenv("TURSO_DATABASE_URL", "libsql://photos.example.turso.io")
	t.Setenv("DB_BACKEND", "")
	t.Setenv("BACKUP_ASYNC", "true")
	t.Setenv("BASE_URL", "https://photos.example.com/")
	cfg := Load()

	if !reflect.DeepEqual(cfg.AllowedTypes, []string{"png", "gif"}) {
		t.Errorf("AllowedTypes = %v", cfg.AllowedTypes)
	}
	if cfg.DBBackend != "turso" {
		t.Errorf("DBBackend = %q, want turso", cfg.DBBackend)
	}
	if !cfg.BackupAsync {
		t.Error("BackupAsync should be true")
	}
	if cfg.BaseURL != "https://photos.example.com" {
		t.Errorf("BaseURL = %q", cfg.BaseURL)
	}
}
