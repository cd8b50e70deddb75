package testutil

import (
	"os"
	"testing"

	"github.com/mycelicmemory/docstore/internal/columnar"
)

func TestNewTestStore(t *testing.T) {
	ts := NewTestStore(t, 4)

	if ts.Dimension() != 4 {
		t.Errorf("expected dimension 4, got %d", ts.Dimension())
	}
}

func TestSeedNodeAndCount(t *testing.T) {
	ts := NewTestStore(t, 4)

	ts.AssertRowCount(columnar.All(), 0)

	ts.SeedNode("", "text", "hello")
	ts.SeedNode("", "text", "world")

	ts.AssertRowCount(columnar.All(), 2)
}

func TestSeedNodeExplicitID(t *testing.T) {
	ts := NewTestStore(t, 4)

	id := ts.SeedNode("fixed-id", "text", "content")
	if id != "fixed-id" {
		t.Errorf("expected fixed-id, got %s", id)
	}
	ts.AssertRowCount(columnar.ByID("fixed-id"), 1)
}

func TestTempDir(t *testing.T) {
	dir := TempDir(t)

	info, err := os.Stat(dir)
	if err != nil {
		t.Fatalf("temp directory doesn't exist: %v", err)
	}
	if !info.IsDir() {
		t.Error("path is not a directory")
	}
}

func TestTempFile(t *testing.T) {
	content := []byte("test content")
	path := TempFile(t, "test.txt", content)

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read temp file: %v", err)
	}

	if string(data) != string(content) {
		t.Errorf("expected content %q, got %q", string(content), string(data))
	}
}

func TestAssertNoError(t *testing.T) {
	AssertNoError(t, nil)
}

func TestAssertEqual(t *testing.T) {
	AssertEqual(t, 1, 1)
	AssertEqual(t, "test", "test")
	AssertEqual(t, true, true)
}
