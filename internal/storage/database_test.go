package storage

import (
	"path/filepath"
	"testing"
)

func TestNew(t *testing.T) {
	tmpDir := t.TempDir()
	dbPath := filepath.Join(tmpDir, "index.db")

	tests := []struct {
		name    string
		path    string
		wantErr bool
	}{
		{
			name:    "valid path",
			path:    dbPath,
			wantErr: false,
		},
		{
			name:    "invalid path",
			path:    "/invalid/path/to/index.db",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, err := New(tt.path)

			if tt.wantErr {
				if err == nil {
					t.Errorf("New() expected error, got nil")
				}
				if db != nil {
					_ = db.Close()
				}
				return
			}

			if err != nil {
				t.Errorf("New() unexpected error: %v", err)
				return
			}

			if db == nil {
				t.Fatal("New() returned nil database")
			}

			// Verify connection pool settings
			if db.Stats().MaxOpenConnections != 25 {
				t.Errorf("New() MaxOpenConnections = %v, want 25", db.Stats().MaxOpenConnections)
			}

			_ = db.Close()
		})
	}
}

func TestMigrate(t *testing.T) {
	tmpDir := t.TempDir()
	dbPath := filepath.Join(tmpDir, "index.db")

	db, err := New(dbPath)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer func() {
		_ = db.Close()
	}()

	if err := Migrate(db); err != nil {
		t.Fatalf("Migrate() error = %v", err)
	}

	var count int
	err = db.QueryRow("SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name='chunks'").Scan(&count)
	if err != nil {
		t.Fatalf("Failed to check chunks table: %v", err)
	}
	if count != 1 {
		t.Error("Migrate() chunks table not created")
	}
}

func TestMigrate_Idempotent(t *testing.T) {
	tmpDir := t.TempDir()
	dbPath := filepath.Join(tmpDir, "index.db")

	db, err := New(dbPath)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer func() {
		_ = db.Close()
	}()

	if err := Migrate(db); err != nil {
		t.Fatalf("Migrate() first run error = %v", err)
	}

	if err := Migrate(db); err != nil {
		t.Fatalf("Migrate() second run error = %v", err)
	}
}

func TestNew_Ping(t *testing.T) {
	tmpDir := t.TempDir()
	dbPath := filepath.Join(tmpDir, "index.db")

	db, err := New(dbPath)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer func() {
		_ = db.Close()
	}()

	if err := db.Ping(); err != nil {
		t.Errorf("Ping() error = %v", err)
	}
}
