package docstore

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/mycelicmemory/docstore/internal/imagecodec"
	"github.com/mycelicmemory/docstore/internal/relationship"
	"github.com/mycelicmemory/docstore/internal/schema"
	"github.com/mycelicmemory/docstore/pkg/config"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.Store.Path = filepath.Join(t.TempDir(), "data")
	cfg.Store.VectorDimension = 4
	s, err := Open(cfg)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestStoreAndGetRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	id, err := s.Store(ctx, schema.Node{Type: schema.TypeText, Content: "hello"})
	if err != nil {
		t.Fatalf("store: %v", err)
	}

	got, ok, err := s.Get(ctx, id)
	if err != nil || !ok {
		t.Fatalf("get: ok=%v err=%v", ok, err)
	}
	if got.Content != "hello" {
		t.Fatalf("expected content hello, got %v", got.Content)
	}
}

func TestUpsertSameIDOverwrites(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if _, err := s.Store(ctx, schema.Node{ID: "fixed", Type: schema.TypeText, Content: "v1"}); err != nil {
		t.Fatalf("store v1: %v", err)
	}
	if _, err := s.Store(ctx, schema.Node{ID: "fixed", Type: schema.TypeText, Content: "v2"}); err != nil {
		t.Fatalf("store v2: %v", err)
	}

	got, ok, err := s.Get(ctx, "fixed")
	if err != nil || !ok {
		t.Fatalf("get: ok=%v err=%v", ok, err)
	}
	if got.Content != "v2" {
		t.Fatalf("expected upsert to overwrite, got %v", got.Content)
	}
}

func TestStoreWithVectorRejectsWrongLength(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, err := s.StoreWithVector(ctx, schema.Node{
		Type:      schema.TypeText,
		Content:   "x",
		Embedding: []float32{1, 2},
	})
	if err == nil {
		t.Fatal("expected error for mismatched vector length")
	}
}

func TestDeleteRemovesNode(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	id, _ := s.Store(ctx, schema.Node{Type: schema.TypeText, Content: "gone"})
	if err := s.Delete(ctx, id); err != nil {
		t.Fatalf("delete: %v", err)
	}
	_, ok, err := s.Get(ctx, id)
	if err != nil {
		t.Fatalf("get after delete: %v", err)
	}
	if ok {
		t.Fatal("expected node to be gone")
	}
}

func TestDeleteNonexistentErrors(t *testing.T) {
	s := newTestStore(t)
	if err := s.Delete(context.Background(), "missing"); err == nil {
		t.Fatal("expected error deleting nonexistent node")
	}
}

func TestDanglingParentIDAllowed(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	id, err := s.Store(ctx, schema.Node{Type: schema.TypeText, Content: "orphan", ParentID: "does-not-exist"})
	if err != nil {
		t.Fatalf("store with dangling parent: %v", err)
	}
	got, ok, err := s.Get(ctx, id)
	if err != nil || !ok {
		t.Fatalf("get: ok=%v err=%v", ok, err)
	}
	if got.ParentID != "does-not-exist" {
		t.Fatalf("expected dangling parent_id preserved, got %q", got.ParentID)
	}
}

func TestChildrenIDsAlwaysDerived(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	parentID, _ := s.Store(ctx, schema.Node{Type: schema.TypeProject, Content: "parent"})

	// ChildrenIDs supplied on write is advisory and must be ignored.
	childID, _ := s.Store(ctx, schema.Node{
		Type:        schema.TypeTask,
		Content:     "child",
		ParentID:    parentID,
		ChildrenIDs: []string{"bogus"},
	})

	children, err := s.FindChildren(ctx, parentID)
	if err != nil {
		t.Fatalf("find children: %v", err)
	}
	if len(children) != 1 || children[0].ID != childID {
		t.Fatalf("expected derived children [%s], got %+v", childID, children)
	}

	got, _, _ := s.Get(ctx, childID)
	if len(got.ChildrenIDs) != 0 {
		t.Fatalf("expected no children for leaf node, got %+v", got.ChildrenIDs)
	}
}

func TestFindByRootAndType(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	rootID, _ := s.Store(ctx, schema.Node{Type: schema.TypeProject, Content: "root"})
	taskID, _ := s.Store(ctx, schema.Node{Type: schema.TypeTask, Content: "task", RootID: rootID})
	noteID, _ := s.Store(ctx, schema.Node{Type: schema.TypeText, Content: "note", RootID: rootID})

	all, err := s.FindByRoot(ctx, rootID)
	if err != nil {
		t.Fatalf("find by root: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("expected 2 nodes under root, got %d", len(all))
	}

	tasks, err := s.FindByRootAndType(ctx, rootID, schema.TypeTask)
	if err != nil {
		t.Fatalf("find by root and type: %v", err)
	}
	if len(tasks) != 1 || tasks[0].ID != taskID {
		t.Fatalf("expected only task %s, got %+v", taskID, tasks)
	}
	_ = noteID
}

func TestReassignSubtreeRootDoesNotHappenAutomatically(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	rootID, _ := s.Store(ctx, schema.Node{Type: schema.TypeProject, Content: "root"})
	childID, _ := s.Store(ctx, schema.Node{Type: schema.TypeTask, Content: "child", RootID: rootID})

	// Reparenting alone (changing ParentID) must not recompute RootID.
	newParentID, _ := s.Store(ctx, schema.Node{Type: schema.TypeProject, Content: "new parent"})
	child, _, _ := s.Get(ctx, childID)
	child.ParentID = newParentID
	if _, err := s.Store(ctx, child); err != nil {
		t.Fatalf("reparent: %v", err)
	}

	got, _, _ := s.Get(ctx, childID)
	if got.RootID != rootID {
		t.Fatalf("expected root_id unchanged by reparenting, got %q", got.RootID)
	}

	moved, err := s.ReassignSubtreeRoot(ctx, rootID, newParentID)
	if err != nil {
		t.Fatalf("reassign subtree root: %v", err)
	}
	if moved == 0 {
		t.Fatal("expected at least one row reassigned")
	}
}

func TestScanTextSubstringMatch(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	s.Store(ctx, schema.Node{Type: schema.TypeText, Content: "the quick brown fox"})
	s.Store(ctx, schema.Node{Type: schema.TypeText, Content: "lazy dog"})

	hits, err := s.ScanText(ctx, "quick", 0)
	if err != nil {
		t.Fatalf("scan text: %v", err)
	}
	if len(hits) != 1 {
		t.Fatalf("expected 1 hit, got %d", len(hits))
	}
}

func TestFindMentioning(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	targetID, _ := s.Store(ctx, schema.Node{Type: schema.TypeText, Content: "target"})
	mentionerID, _ := s.Store(ctx, schema.Node{
		Type:     schema.TypeText,
		Content:  "mentions target",
		Mentions: []string{targetID},
	})

	hits, err := s.FindMentioning(ctx, targetID)
	if err != nil {
		t.Fatalf("find mentioning: %v", err)
	}
	if len(hits) != 1 || hits[0].ID != mentionerID {
		t.Fatalf("expected mentioner %s, got %+v", mentionerID, hits)
	}
}

func TestSetRelationshipUpdatesBothSides(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	parentID, _ := s.Store(ctx, schema.Node{Type: schema.TypeProject, Content: "parent"})
	childID, _ := s.Store(ctx, schema.Node{Type: schema.TypeTask, Content: "child"})

	if err := s.SetRelationship(ctx, parentID, childID); err != nil {
		t.Fatalf("set relationship: %v", err)
	}

	child, _, _ := s.Get(ctx, childID)
	if child.ParentID != parentID {
		t.Fatalf("expected child.parent_id = %s, got %q", parentID, child.ParentID)
	}

	children, err := s.FindChildren(ctx, parentID)
	if err != nil {
		t.Fatalf("find children: %v", err)
	}
	if len(children) != 1 || children[0].ID != childID {
		t.Fatalf("expected 1 child %s, got %+v", childID, children)
	}
}

func TestANNSearchReturnsNearestByCosine(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	aID, _ := s.StoreWithVector(ctx, schema.Node{Type: schema.TypeText, Content: "a", Embedding: []float32{1, 0, 0, 0}})
	s.StoreWithVector(ctx, schema.Node{Type: schema.TypeText, Content: "b", Embedding: []float32{0, 1, 0, 0}})

	result, err := s.ANN(ctx, ANNQuery{Vector: []float32{1, 0, 0, 0}, K: 1})
	if err != nil {
		t.Fatalf("ann: %v", err)
	}
	if len(result.Hits) != 1 || result.Hits[0].ID != aID {
		t.Fatalf("expected nearest neighbor %s, got %+v", aID, result.Hits)
	}
}

func TestMultimodalFiltersByType(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	textID, _ := s.StoreWithVector(ctx, schema.Node{Type: schema.TypeText, Content: "t", Embedding: []float32{1, 0, 0, 0}})
	s.StoreWithVector(ctx, schema.Node{Type: schema.TypeImage, Content: "i", Embedding: []float32{1, 0, 0, 0}})

	nodes, err := s.Multimodal(ctx, MultimodalQuery{
		Vector:        []float32{1, 0, 0, 0},
		AcceptedTypes: []string{schema.TypeText},
		MinSimilarity: 0,
	})
	if err != nil {
		t.Fatalf("multimodal: %v", err)
	}
	if len(nodes) != 1 || nodes[0].ID != textID {
		t.Fatalf("expected only text node, got %+v", nodes)
	}
}

func TestHybridSearchFusesFactors(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	s.StoreWithVector(ctx, schema.Node{Type: schema.TypeText, Content: "close match", Embedding: []float32{1, 0, 0, 0}})

	results, partial, err := s.Hybrid(ctx, HybridQuery{Vector: []float32{1, 0, 0, 0}})
	if err != nil {
		t.Fatalf("hybrid: %v", err)
	}
	if partial {
		t.Fatal("did not expect a partial result")
	}
	if len(results) != 1 {
		t.Fatalf("expected 1 result, got %d", len(results))
	}
	if results[0].Factors.Semantic <= 0 {
		t.Fatalf("expected positive semantic factor, got %+v", results[0].Factors)
	}
}

func TestStoreAndGetImage(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	img := imagecodec.Image{Bytes: []byte{0xde, 0xad, 0xbe, 0xef}, Filename: "x.png", MimeType: "image/png"}
	id, err := s.StoreImage(ctx, schema.Node{Content: "a picture"}, img)
	if err != nil {
		t.Fatalf("store image: %v", err)
	}

	got, err := s.GetImage(ctx, id)
	if err != nil {
		t.Fatalf("get image: %v", err)
	}
	if string(got.Bytes) != string(img.Bytes) {
		t.Fatalf("expected byte-identical round trip, got %v", got.Bytes)
	}
	if got.Filename != img.Filename {
		t.Fatalf("expected filename %q, got %q", img.Filename, got.Filename)
	}
}

func TestRelationshipsSurface(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	a, _ := s.Store(ctx, schema.Node{Type: schema.TypeText, Content: "a"})
	b, _ := s.Store(ctx, schema.Node{Type: schema.TypeText, Content: "b"})

	edge, err := s.Relationships().Create(ctx, &relationship.CreateOptions{
		SourceMemoryID:   a,
		TargetMemoryID:   b,
		RelationshipType: "references",
		Strength:         0.8,
	})
	if err != nil {
		t.Fatalf("create relationship: %v", err)
	}
	if edge.SourceID != a || edge.TargetID != b {
		t.Fatalf("unexpected edge %+v", edge)
	}
}
