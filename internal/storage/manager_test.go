// manager_test.go - Tests for storage layer
package storage

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/eda-explorer/backend/internal/models"
)

func createTestStore(t *testing.T, maxBytes int64) *LocalStore {
	t.Helper()
	store, err := NewLocalStore(t.TempDir(), maxBytes)
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	return store
}

func TestNewLocalStore(t *testing.T) {
	t.Run("creates upload directory", func(t *testing.T) {
		uploadDir := filepath.Join(t.TempDir(), "uploads")

		if _, err := NewLocalStore(uploadDir, 0); err != nil {
			t.Fatalf("Failed to create store: %v", err)
		}
		if _, err := os.Stat(uploadDir); os.IsNotExist(err) {
			t.Error("Expected upload directory to be created")
		}
	})
}

func TestLocalStore_Save(t *testing.T) {
	t.Run("saves file and guesses kind", func(t *testing.T) {
		store := createTestStore(t, 0)

		info, err := store.Save("sales.xlsx", strings.NewReader("PK..."))
		if err != nil {
			t.Fatalf("Failed to save file: %v", err)
		}
		if info.ID == "" {
			t.Error("Expected ID to be set")
		}
		if info.Kind != models.FileKindExcel {
			t.Errorf("Expected kind excel, got %v", info.Kind)
		}
		if info.Status != StatusUploaded {
			t.Errorf("Expected status %q, got %q", StatusUploaded, info.Status)
		}
		if info.Size != 5 {
			t.Errorf("Expected size 5, got %d", info.Size)
		}
	})

	t.Run("strips directories from name", func(t *testing.T) {
		store := createTestStore(t, 0)

		info, err := store.Save("../../etc/data.csv", strings.NewReader("a\n"))
		if err != nil {
			t.Fatalf("Failed to save file: %v", err)
		}
		if info.Name != "data.csv" {
			t.Errorf("Expected name data.csv, got %q", info.Name)
		}
		if info.Kind != models.FileKindCSV {
			t.Errorf("Expected kind csv, got %v", info.Kind)
		}
	})

	t.Run("rejects empty name", func(t *testing.T) {
		store := createTestStore(t, 0)
		if _, err := store.Save("  ", strings.NewReader("a")); err == nil {
			t.Error("Expected error for empty name")
		}
	})

	t.Run("enforces size limit", func(t *testing.T) {
		store := createTestStore(t, 4)

		_, err := store.Save("big.csv", strings.NewReader("0123456789"))
		if !errors.Is(err, ErrFileTooLarge) {
			t.Fatalf("Expected ErrFileTooLarge, got %v", err)
		}
		entries, _ := os.ReadDir(store.uploadDir)
		if len(entries) != 0 {
			t.Errorf("Expected partial file to be removed, found %d entries", len(entries))
		}

		if _, err := store.Save("ok.csv", strings.NewReader("0123")); err != nil {
			t.Errorf("Expected file at the limit to be accepted: %v", err)
		}
	})
}

func TestLocalStore_ReadFile(t *testing.T) {
	store := createTestStore(t, 0)

	info, err := store.Save("a.csv", strings.NewReader("x,y\n1,2\n"))
	if err != nil {
		t.Fatalf("Failed to save file: %v", err)
	}

	data, err := store.ReadFile(info.ID)
	if err != nil {
		t.Fatalf("Failed to read file: %v", err)
	}
	if string(data) != "x,y\n1,2\n" {
		t.Errorf("Unexpected content %q", data)
	}

	if _, err := store.ReadFile("missing"); !errors.Is(err, ErrFileNotFound) {
		t.Errorf("Expected ErrFileNotFound, got %v", err)
	}
}

func TestLocalStore_List(t *testing.T) {
	store := createTestStore(t, 0)

	for _, name := range []string{"one.csv", "two.csv", "three.csv"} {
		if _, err := store.Save(name, strings.NewReader(name)); err != nil {
			t.Fatalf("Failed to save %s: %v", name, err)
		}
		time.Sleep(2 * time.Millisecond)
	}

	list, err := store.List(2)
	if err != nil {
		t.Fatalf("Failed to list: %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("Expected 2 files, got %d", len(list))
	}
	if list[0].Name != "three.csv" || list[1].Name != "two.csv" {
		t.Errorf("Expected newest first, got %s, %s", list[0].Name, list[1].Name)
	}

	all, _ := store.List(0)
	if len(all) != 3 {
		t.Errorf("Expected 3 files with no limit, got %d", len(all))
	}
}

func TestLocalStore_DeleteRenameStatus(t *testing.T) {
	store := createTestStore(t, 0)

	info, err := store.Save("a.csv", strings.NewReader("x\n"))
	if err != nil {
		t.Fatalf("Failed to save file: %v", err)
	}

	t.Run("rename", func(t *testing.T) {
		renamed, err := store.Rename(info.ID, "b.csv")
		if err != nil {
			t.Fatalf("Failed to rename: %v", err)
		}
		if renamed.Name != "b.csv" {
			t.Errorf("Expected b.csv, got %s", renamed.Name)
		}
		if _, err := store.Rename("missing", "x"); !errors.Is(err, ErrFileNotFound) {
			t.Errorf("Expected ErrFileNotFound, got %v", err)
		}
	})

	t.Run("status", func(t *testing.T) {
		if err := store.SetStatus(info.ID, StatusLoaded); err != nil {
			t.Fatalf("Failed to set status: %v", err)
		}
		got, _ := store.Get(info.ID)
		if got.Status != StatusLoaded {
			t.Errorf("Expected status loaded, got %s", got.Status)
		}
	})

	t.Run("delete", func(t *testing.T) {
		path, _ := store.GetFilePath(info.ID)
		if err := store.Delete(info.ID); err != nil {
			t.Fatalf("Failed to delete: %v", err)
		}
		if _, err := os.Stat(path); !os.IsNotExist(err) {
			t.Error("Expected file to be removed from disk")
		}
		if _, err := store.Get(info.ID); !errors.Is(err, ErrFileNotFound) {
			t.Errorf("Expected ErrFileNotFound, got %v", err)
		}
		if err := store.Delete(info.ID); !errors.Is(err, ErrFileNotFound) {
			t.Errorf("Expected ErrFileNotFound on second delete, got %v", err)
		}
	})
}

func TestLocalStore_GetReturnsCopy(t *testing.T) {
	store := createTestStore(t, 0)

	info, _ := store.Save("a.csv", strings.NewReader("x\n"))
	got, _ := store.Get(info.ID)
	got.Name = "changed"

	again, _ := store.Get(info.ID)
	if again.Name != "a.csv" {
		t.Errorf("Expected stored metadata to be unchanged, got %s", again.Name)
	}
}

func TestLocalStore_PurgeOlderThan(t *testing.T) {
	store := createTestStore(t, 0)

	old, _ := store.Save("old.csv", strings.NewReader("x\n"))
	fresh, _ := store.Save("fresh.csv", strings.NewReader("y\n"))

	store.mu.Lock()
	store.files[old.ID].UploadedAt = time.Now().Add(-2 * time.Hour)
	store.mu.Unlock()

	if n := store.PurgeOlderThan(time.Hour); n != 1 {
		t.Errorf("Expected 1 file purged, got %d", n)
	}
	if _, err := store.Get(old.ID); !errors.Is(err, ErrFileNotFound) {
		t.Error("Expected old file to be purged")
	}
	if _, err := store.Get(fresh.ID); err != nil {
		t.Errorf("Expected fresh file to remain: %v", err)
	}
}
