package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/plew99/cytokines-metaanalysis/internal/store"
)

func TestCheckSQLite(t *testing.T) {
	result := checkSQLite()

	if result.error {
		t.Errorf("SQLite check failed: %s", result.message)
	}

	if result.message == "" {
		t.Error("expected version information in message")
	}
}

func TestCheckDatabase_NonExistent(t *testing.T) {
	// Check a database that doesn't exist
	dbPath := filepath.Join(t.TempDir(), "nonexistent.db")

	result := checkDatabase(dbPath)

	// Should not error - database will be created on first run
	if result.error {
		t.Errorf("non-existent database check should not error: %s", result.message)
	}

	if result.message == "" {
		t.Error("expected message about database creation")
	}
}

func TestCheckDatabase_Existing(t *testing.T) {
	// Create a real database
	dbPath := filepath.Join(t.TempDir(), "test.db")

	db, err := store.Open(dbPath)
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}

	study := &store.Study{Title: "M00022"}
	if err := db.InsertStudy(study); err != nil {
		t.Fatalf("failed to insert test study: %v", err)
	}
	db.Close()

	// Now check the database
	result := checkDatabase(dbPath)

	if result.error {
		t.Errorf("database check failed: %s", result.message)
	}

	if result.message == "" {
		t.Error("expected message with database info")
	}
}

func TestCheckDatabase_Empty(t *testing.T) {
	// Test with empty database path
	result := checkDatabase("")

	if !result.warning {
		t.Error("expected warning for empty database path")
	}
}

func TestCheckWritableDir_Valid(t *testing.T) {
	dir := t.TempDir()

	result := checkWritableDir("Reports directory", dir)

	if result.error {
		t.Errorf("writable directory check failed: %s", result.message)
	}
}

func TestCheckWritableDir_Create(t *testing.T) {
	tmpDir := t.TempDir()
	newDir := filepath.Join(tmpDir, "newdir")

	result := checkWritableDir("Reports directory", newDir)

	if result.error {
		t.Errorf("writable directory check failed: %s", result.message)
	}

	// Verify directory was created
	if _, err := os.Stat(newDir); os.IsNotExist(err) {
		t.Error("expected directory to be created")
	}
}

func TestCheckWritableDir_File(t *testing.T) {
	// Create a file instead of directory
	tmpDir := t.TempDir()
	filePath := filepath.Join(tmpDir, "file.txt")
	if err := os.WriteFile(filePath, []byte("test"), 0644); err != nil {
		t.Fatalf("failed to create test file: %v", err)
	}

	result := checkWritableDir("Reports directory", filePath)

	if !result.error {
		t.Error("expected error when path is a file, not a directory")
	}
}
