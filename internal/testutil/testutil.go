// Package testutil provides shared test helpers for docstore packages.
package testutil

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/mycelicmemory/docstore/internal/columnar"
	"github.com/mycelicmemory/docstore/internal/schema"
)

// TestStore wraps a columnar.Table opened against a temp directory,
// closed automatically at test completion.
type TestStore struct {
	*columnar.Table
	Path string
	t    *testing.T
}

// NewTestStore opens a fresh table with the given vector dimension in
// a temp directory. The table is closed when the test completes.
func NewTestStore(t *testing.T, dim int) *TestStore {
	t.Helper()

	dir := t.TempDir()
	table, err := columnar.Open(dir, dim, 0)
	if err != nil {
		t.Fatalf("failed to open test store: %v", err)
	}

	ts := &TestStore{Table: table, Path: dir, t: t}
	t.Cleanup(func() { table.Close() })
	return ts
}

// SeedNode inserts a minimal row with the given id and content,
// generating a fresh id when id is empty, and returns the id used.
func (ts *TestStore) SeedNode(id, nodeType, content string) string {
	ts.t.Helper()

	if id == "" {
		id = uuid.NewString()
	}
	now := time.Now().UTC().Format(schema.TimeFormat)
	row := schema.Row{
		ID:        id,
		Type:      nodeType,
		Content:   content,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := ts.Upsert(context.Background(), row); err != nil {
		ts.t.Fatalf("failed to seed node %s: %v", id, err)
	}
	return id
}

// MustCount returns the number of rows matching p, failing the test on
// error.
func (ts *TestStore) MustCount(p columnar.Predicate) int {
	ts.t.Helper()

	rows, err := ts.Scan(context.Background(), p, 0)
	if err != nil {
		ts.t.Fatalf("scan failed: %v", err)
	}
	return len(rows)
}

// AssertRowCount asserts that p matches exactly n rows.
func (ts *TestStore) AssertRowCount(p columnar.Predicate, expected int) {
	ts.t.Helper()

	actual := ts.MustCount(p)
	if actual != expected {
		ts.t.Errorf("expected %d rows, got %d", expected, actual)
	}
}

// TempDir creates a temporary directory for testing, cleaned up
// automatically after the test completes.
func TempDir(t *testing.T) string {
	t.Helper()
	return t.TempDir()
}

// TempFile creates a temporary file with the given content, cleaned up
// automatically after the test completes.
func TempFile(t *testing.T, name string, content []byte) string {
	t.Helper()

	dir := t.TempDir()
	path := filepath.Join(dir, name)

	if err := os.WriteFile(path, content, 0644); err != nil {
		t.Fatalf("failed to create temp file: %v", err)
	}

	return path
}

// AssertNoError fails the test if err is not nil.
func AssertNoError(t *testing.T, err error) {
	t.Helper()

	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

// AssertError fails the test if err is nil.
func AssertError(t *testing.T, err error) {
	t.Helper()

	if err == nil {
		t.Fatal("expected error, got nil")
	}
}

// AssertEqual fails the test if got != want.
func AssertEqual(t *testing.T, got, want interface{}) {
	t.Helper()

	if got != want {
		t.Errorf("got %v, want %v", got, want)
	}
}
