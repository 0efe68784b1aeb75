package objectstore

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func TestLocalFetch(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "schema.json"), []byte(`{"tables":[]}`), 0644); err != nil {
		t.Fatal(err)
	}

	store, err := NewLocal(dir)
	if err != nil {
		t.Fatalf("NewLocal: %v", err)
	}

	data, err := store.Fetch(context.Background(), "schema.json")
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if string(data) != `{"tables":[]}` {
		t.Errorf("Fetch = %q", data)
	}

	if _, err := store.Fetch(context.Background(), "missing.json"); err == nil {
		t.Error("expected error for missing object")
	}
}

func TestLocalDownload(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "facts.db"), []byte("payload"), 0644); err != nil {
		t.Fatal(err)
	}

	store, err := NewLocal(dir)
	if err != nil {
		t.Fatal(err)
	}

	dest := filepath.Join(t.TempDir(), "nested", "facts.db")
	if err := store.Download(context.Background(), "facts.db", dest); err != nil {
		t.Fatalf("Download: %v", err)
	}

	data, err := os.ReadFile(dest)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "payload" {
		t.Errorf("downloaded contents = %q", data)
	}
}

func TestLocalRejectsEscapingKeys(t *testing.T) {
	store, err := NewLocal(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	if _, err := store.Fetch(context.Background(), "../outside.txt"); err == nil {
		t.Error("expected error for key escaping the store root")
	}
}

func TestNewLocalRequiresDirectory(t *testing.T) {
	if _, err := NewLocal(filepath.Join(t.TempDir(), "missing")); err == nil {
		t.Error("expected error for missing directory")
	}
}
