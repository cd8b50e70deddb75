package relationship

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/mycelicmemory/docstore/internal/columnar"
	"github.com/mycelicmemory/docstore/internal/schema"
	"github.com/mycelicmemory/docstore/pkg/config"
)

func newTestService(t *testing.T) *Service {
	t.Helper()
	table, err := columnar.Open(t.TempDir(), 4, 0)
	if err != nil {
		t.Fatalf("open table: %v", err)
	}
	t.Cleanup(func() { table.Close() })
	return NewService(table, config.DefaultConfig())
}

func createTestNode(t *testing.T, svc *Service, content string) string {
	t.Helper()
	id := uuid.NewString()
	row := schema.Row{
		ID:        id,
		Type:      "text",
		Content:   content,
		CreatedAt: time.Now().UTC().Format(time.RFC3339Nano),
		UpdatedAt: time.Now().UTC().Format(time.RFC3339Nano),
	}
	if err := svc.table.Upsert(context.Background(), row); err != nil {
		t.Fatalf("seed node: %v", err)
	}
	return id
}

func TestCreateRelationship(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	a := createTestNode(t, svc, "a")
	b := createTestNode(t, svc, "b")

	edge, err := svc.Create(ctx, &CreateOptions{
		SourceMemoryID:   a,
		TargetMemoryID:   b,
		RelationshipType: "references",
		Strength:         0.7,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if edge.ID == "" {
		t.Fatal("expected generated id")
	}
	if edge.Strength != 0.7 {
		t.Fatalf("expected strength 0.7, got %f", edge.Strength)
	}
}

func TestCreateWithAllTypes(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	a := createTestNode(t, svc, "a")
	b := createTestNode(t, svc, "b")

	for _, rt := range Types {
		t.Run(rt, func(t *testing.T) {
			if _, err := svc.Create(ctx, &CreateOptions{
				SourceMemoryID:   a,
				TargetMemoryID:   b,
				RelationshipType: rt,
				Strength:         0.5,
			}); err != nil {
				t.Fatalf("create %s: %v", rt, err)
			}
		})
	}
}

func TestCreateInvalidType(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	a := createTestNode(t, svc, "a")
	b := createTestNode(t, svc, "b")

	_, err := svc.Create(ctx, &CreateOptions{
		SourceMemoryID:   a,
		TargetMemoryID:   b,
		RelationshipType: "invalid",
	})
	if err == nil {
		t.Fatal("expected error for invalid relationship type")
	}
}

func TestCreateNonexistentSourceAndTarget(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	b := createTestNode(t, svc, "b")

	if _, err := svc.Create(ctx, &CreateOptions{
		SourceMemoryID:   "missing",
		TargetMemoryID:   b,
		RelationshipType: "references",
	}); err == nil {
		t.Fatal("expected error for nonexistent source")
	}

	a := createTestNode(t, svc, "a")
	if _, err := svc.Create(ctx, &CreateOptions{
		SourceMemoryID:   a,
		TargetMemoryID:   "missing",
		RelationshipType: "references",
	}); err == nil {
		t.Fatal("expected error for nonexistent target")
	}
}

func TestCreateDefaultStrength(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	a := createTestNode(t, svc, "a")
	b := createTestNode(t, svc, "b")

	edge, err := svc.Create(ctx, &CreateOptions{
		SourceMemoryID:   a,
		TargetMemoryID:   b,
		RelationshipType: "similar",
		Strength:         -1,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if edge.Strength != 0.5 {
		t.Fatalf("expected default strength 0.5, got %f", edge.Strength)
	}
}

func TestCreateCappedStrength(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	a := createTestNode(t, svc, "a")
	b := createTestNode(t, svc, "b")

	edge, err := svc.Create(ctx, &CreateOptions{
		SourceMemoryID:   a,
		TargetMemoryID:   b,
		RelationshipType: "similar",
		Strength:         5,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if edge.Strength != 1.0 {
		t.Fatalf("expected capped strength 1.0, got %f", edge.Strength)
	}
}

func TestFindRelatedBasicAndTypeFilter(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	a := createTestNode(t, svc, "a")
	b := createTestNode(t, svc, "b")
	c := createTestNode(t, svc, "c")

	if _, err := svc.Create(ctx, &CreateOptions{SourceMemoryID: a, TargetMemoryID: b, RelationshipType: "references", Strength: 0.9}); err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := svc.Create(ctx, &CreateOptions{SourceMemoryID: a, TargetMemoryID: c, RelationshipType: "causes", Strength: 0.4}); err != nil {
		t.Fatalf("create: %v", err)
	}

	all, err := svc.FindRelated(ctx, &FindRelatedOptions{MemoryID: a})
	if err != nil {
		t.Fatalf("find related: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("expected 2 edges, got %d", len(all))
	}

	filtered, err := svc.FindRelated(ctx, &FindRelatedOptions{MemoryID: a, Type: "causes"})
	if err != nil {
		t.Fatalf("find related filtered: %v", err)
	}
	if len(filtered) != 1 {
		t.Fatalf("expected 1 edge, got %d", len(filtered))
	}
}

func TestFindRelatedRequiresID(t *testing.T) {
	svc := newTestService(t)
	if _, err := svc.FindRelated(context.Background(), &FindRelatedOptions{}); err == nil {
		t.Fatal("expected error for empty memory id")
	}
}

func TestFindRelatedNonexistent(t *testing.T) {
	svc := newTestService(t)
	if _, err := svc.FindRelated(context.Background(), &FindRelatedOptions{MemoryID: "missing"}); err == nil {
		t.Fatal("expected error for nonexistent node")
	}
}

func TestMapGraphDepthsAndDefaults(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	a := createTestNode(t, svc, "a")
	b := createTestNode(t, svc, "b")
	c := createTestNode(t, svc, "c")
	d := createTestNode(t, svc, "d")

	mustCreate := func(src, dst string) {
		if _, err := svc.Create(ctx, &CreateOptions{SourceMemoryID: src, TargetMemoryID: dst, RelationshipType: "sequential", Strength: 0.6}); err != nil {
			t.Fatalf("create: %v", err)
		}
	}
	mustCreate(a, b)
	mustCreate(b, c)
	mustCreate(c, d)

	r1, err := svc.MapGraph(ctx, &MapGraphOptions{RootID: a, Depth: 1})
	if err != nil {
		t.Fatalf("map graph depth 1: %v", err)
	}
	if r1.TotalNodes != 2 {
		t.Fatalf("expected 2 nodes at depth 1, got %d", r1.TotalNodes)
	}

	r2, err := svc.MapGraph(ctx, &MapGraphOptions{RootID: a, Depth: 2})
	if err != nil {
		t.Fatalf("map graph depth 2: %v", err)
	}
	if r2.TotalNodes != 3 {
		t.Fatalf("expected 3 nodes at depth 2, got %d", r2.TotalNodes)
	}

	rDefault, err := svc.MapGraph(ctx, &MapGraphOptions{RootID: a})
	if err != nil {
		t.Fatalf("map graph default: %v", err)
	}
	if rDefault.MaxDepth != 2 {
		t.Fatalf("expected default depth 2, got %d", rDefault.MaxDepth)
	}

	rMax, err := svc.MapGraph(ctx, &MapGraphOptions{RootID: a, Depth: 10})
	if err != nil {
		t.Fatalf("map graph max: %v", err)
	}
	if rMax.MaxDepth != 5 {
		t.Fatalf("expected capped depth 5, got %d", rMax.MaxDepth)
	}
}

func TestMapGraphRequiresRootAndExistence(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	if _, err := svc.MapGraph(ctx, &MapGraphOptions{}); err == nil {
		t.Fatal("expected error for empty root id")
	}
	if _, err := svc.MapGraph(ctx, &MapGraphOptions{RootID: "missing"}); err == nil {
		t.Fatal("expected error for nonexistent root")
	}
}

func TestMapGraphTypeAndStrengthFilters(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	a := createTestNode(t, svc, "a")
	b := createTestNode(t, svc, "b")
	c := createTestNode(t, svc, "c")

	if _, err := svc.Create(ctx, &CreateOptions{SourceMemoryID: a, TargetMemoryID: b, RelationshipType: "references", Strength: 0.9}); err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := svc.Create(ctx, &CreateOptions{SourceMemoryID: a, TargetMemoryID: c, RelationshipType: "causes", Strength: 0.1}); err != nil {
		t.Fatalf("create: %v", err)
	}

	byType, err := svc.MapGraph(ctx, &MapGraphOptions{RootID: a, Depth: 1, IncludeTypes: []string{"references"}})
	if err != nil {
		t.Fatalf("map graph by type: %v", err)
	}
	if len(byType.Edges) != 1 || byType.Edges[0].RelationshipType != "references" {
		t.Fatalf("expected only references edge, got %+v", byType.Edges)
	}

	byStrength, err := svc.MapGraph(ctx, &MapGraphOptions{RootID: a, Depth: 1, MinStrength: 0.5})
	if err != nil {
		t.Fatalf("map graph by strength: %v", err)
	}
	if len(byStrength.Edges) != 1 || byStrength.Edges[0].RelationshipType != "references" {
		t.Fatalf("expected only high-strength edge, got %+v", byStrength.Edges)
	}
}

func TestDiscoverReturnsEmpty(t *testing.T) {
	svc := newTestService(t)
	edges, err := svc.Discover(context.Background(), &DiscoverOptions{Limit: 10})
	if err != nil {
		t.Fatalf("discover: %v", err)
	}
	if len(edges) != 0 {
		t.Fatalf("expected no edges, got %d", len(edges))
	}
}

func TestGetRelationshipTypes(t *testing.T) {
	infos := GetRelationshipTypes()
	if len(infos) != 7 {
		t.Fatalf("expected 7 relationship types, got %d", len(infos))
	}
	for _, info := range infos {
		if info.Name == "" || info.Description == "" {
			t.Fatalf("expected non-empty name/description, got %+v", info)
		}
	}
}

func TestValidateRelationshipType(t *testing.T) {
	cases := []struct {
		in      string
		wantErr bool
	}{
		{"references", false},
		{"REFERENCES", false},
		{"invalid", true},
		{"relates", true},
		{"links", true},
		{"", true},
	}
	for _, c := range cases {
		err := ValidateRelationshipType(c.in)
		if (err != nil) != c.wantErr {
			t.Fatalf("ValidateRelationshipType(%q): got err=%v, want err=%v", c.in, err, c.wantErr)
		}
	}
}
