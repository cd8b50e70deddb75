package relationship

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/mycelicmemory/docstore/internal/columnar"
	"github.com/mycelicmemory/docstore/internal/docerr"
	"github.com/mycelicmemory/docstore/internal/logging"
	"github.com/mycelicmemory/docstore/pkg/config"
)

var log = logging.GetLogger("relationship")

// edgeSchema is applied once per Table via ApplyExtensionSchema; it
// lives alongside the nodes table in the same database file.
const edgeSchema = `
CREATE TABLE IF NOT EXISTS node_relationships (
	id TEXT PRIMARY KEY,
	source_id TEXT NOT NULL,
	target_id TEXT NOT NULL,
	relationship_type TEXT NOT NULL,
	strength REAL NOT NULL,
	context TEXT,
	created_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_node_rel_source ON node_relationships(source_id);
CREATE INDEX IF NOT EXISTS idx_node_rel_target ON node_relationships(target_id);
CREATE INDEX IF NOT EXISTS idx_node_rel_type ON node_relationships(relationship_type);
`

// Types are the seven recognized relationship types, carried over from
// the teacher's RelationshipTypes (internal/database/schema.go).
var Types = []string{"references", "contradicts", "expands", "similar", "sequential", "causes", "enables"}

type relationshipTypeInfo struct {
	Name        string
	Description string
}

var typeDescriptions = map[string]string{
	"references":  "source references target",
	"contradicts": "source contradicts target",
	"expands":     "source expands on target",
	"similar":     "source is similar to target",
	"sequential":  "source precedes target in sequence",
	"causes":      "source causes target",
	"enables":     "source enables target",
}

// ValidateRelationshipType reports whether t (case-insensitively)
// names one of the recognized relationship types.
func ValidateRelationshipType(t string) error {
	lower := strings.ToLower(strings.TrimSpace(t))
	for _, rt := range Types {
		if rt == lower {
			return nil
		}
	}
	return docerr.New("validate_relationship_type", docerr.KindInvalidInput, fmt.Errorf("unknown relationship type %q", t))
}

// GetRelationshipTypes returns the recognized relationship types with
// their descriptions.
func GetRelationshipTypes() []relationshipTypeInfo {
	out := make([]relationshipTypeInfo, 0, len(Types))
	for _, t := range Types {
		out = append(out, relationshipTypeInfo{Name: t, Description: typeDescriptions[t]})
	}
	return out
}

// Edge is one relationship row.
type Edge struct {
	ID               string
	SourceID         string
	TargetID         string
	RelationshipType string
	Strength         float64
	Context          string
	CreatedAt        string
}

// Service is the graph-relationship surface over a columnar table.
type Service struct {
	table *columnar.Table
	cfg   *config.Config
}

// NewService wraps table with relationship operations. It applies its
// edge-table schema immediately, the way the teacher's NewService
// assumed an already-initialized database.
func NewService(table *columnar.Table, cfg *config.Config) *Service {
	if err := table.ApplyExtensionSchema(edgeSchema); err != nil {
		log.Error("failed to apply relationship schema", "error", err)
	}
	return &Service{table: table, cfg: cfg}
}

// CreateOptions configures Create.
type CreateOptions struct {
	SourceMemoryID   string
	TargetMemoryID   string
	RelationshipType string
	Strength         float64
	Context          string
}

// Create validates and stores a new edge. Relationship type is
// validated case-insensitively; strength is clamped to [0,1], with
// negative or otherwise invalid input defaulting to 0.5.
func (s *Service) Create(ctx context.Context, opts *CreateOptions) (*Edge, error) {
	relType := strings.ToLower(strings.TrimSpace(opts.RelationshipType))
	if err := ValidateRelationshipType(relType); err != nil {
		return nil, err
	}

	if ok, err := s.table.Exists(ctx, opts.SourceMemoryID); err != nil {
		return nil, err
	} else if !ok {
		return nil, docerr.New("create_relationship", docerr.KindNotFound, fmt.Errorf("source %s not found", opts.SourceMemoryID))
	}
	if ok, err := s.table.Exists(ctx, opts.TargetMemoryID); err != nil {
		return nil, err
	} else if !ok {
		return nil, docerr.New("create_relationship", docerr.KindNotFound, fmt.Errorf("target %s not found", opts.TargetMemoryID))
	}

	strength := opts.Strength
	if strength < 0 {
		strength = 0.5
	} else if strength > 1 {
		strength = 1.0
	}

	edge := &Edge{
		ID:               uuid.NewString(),
		SourceID:         opts.SourceMemoryID,
		TargetID:         opts.TargetMemoryID,
		RelationshipType: relType,
		Strength:         strength,
		Context:          opts.Context,
		CreatedAt:        time.Now().UTC().Format(time.RFC3339Nano),
	}

	_, err := s.table.Exec(ctx,
		`INSERT INTO node_relationships (id, source_id, target_id, relationship_type, strength, context, created_at) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		edge.ID, edge.SourceID, edge.TargetID, edge.RelationshipType, edge.Strength, edge.Context, edge.CreatedAt,
	)
	if err != nil {
		return nil, docerr.New("create_relationship", docerr.KindIO, err)
	}
	return edge, nil
}

// FindRelatedOptions configures FindRelated.
type FindRelatedOptions struct {
	MemoryID string
	Type     string
}

// FindRelated returns edges where id participates as source or target,
// optionally filtered by relationship type.
func (s *Service) FindRelated(ctx context.Context, opts *FindRelatedOptions) ([]*Edge, error) {
	if opts.MemoryID == "" {
		return nil, docerr.New("find_related", docerr.KindInvalidInput, fmt.Errorf("memory_id is required"))
	}
	if ok, err := s.table.Exists(ctx, opts.MemoryID); err != nil {
		return nil, err
	} else if !ok {
		return nil, docerr.New("find_related", docerr.KindNotFound, fmt.Errorf("memory %s not found", opts.MemoryID))
	}

	query := `SELECT id, source_id, target_id, relationship_type, strength, context, created_at
		FROM node_relationships WHERE (source_id = ? OR target_id = ?)`
	args := []any{opts.MemoryID, opts.MemoryID}
	if opts.Type != "" {
		query += " AND relationship_type = ?"
		args = append(args, strings.ToLower(opts.Type))
	}

	rows, err := s.table.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var edges []*Edge
	for rows.Next() {
		e := &Edge{}
		var ctxStr *string
		if err := rows.Scan(&e.ID, &e.SourceID, &e.TargetID, &e.RelationshipType, &e.Strength, &ctxStr, &e.CreatedAt); err != nil {
			return nil, docerr.New("find_related", docerr.KindIO, err)
		}
		if ctxStr != nil {
			e.Context = *ctxStr
		}
		edges = append(edges, e)
	}
	return edges, rows.Err()
}

// MapGraphOptions configures MapGraph.
type MapGraphOptions struct {
	RootID       string
	Depth        int
	IncludeTypes []string
	MinStrength  float64
}

// MapGraphResult is the BFS traversal outcome.
type MapGraphResult struct {
	TotalNodes int
	MaxDepth   int
	Edges      []*Edge
}

const (
	defaultMapGraphDepth = 2
	maxMapGraphDepth     = 5
)

// MapGraph performs a breadth-first traversal outward from RootID,
// following edges in either direction, up to Depth hops (default 2,
// capped at 5). Grounded on the teacher's GetGraph BFS
// (visited-map + queue + edge dedup).
func (s *Service) MapGraph(ctx context.Context, opts *MapGraphOptions) (*MapGraphResult, error) {
	if opts.RootID == "" {
		return nil, docerr.New("map_graph", docerr.KindInvalidInput, fmt.Errorf("root_id is required"))
	}
	if ok, err := s.table.Exists(ctx, opts.RootID); err != nil {
		return nil, err
	} else if !ok {
		return nil, docerr.New("map_graph", docerr.KindNotFound, fmt.Errorf("root %s not found", opts.RootID))
	}

	depth := opts.Depth
	if depth <= 0 {
		depth = defaultMapGraphDepth
	}
	if depth > maxMapGraphDepth {
		depth = maxMapGraphDepth
	}

	includeTypes := make(map[string]bool, len(opts.IncludeTypes))
	for _, t := range opts.IncludeTypes {
		includeTypes[strings.ToLower(t)] = true
	}

	visited := map[string]bool{opts.RootID: true}
	queue := []string{opts.RootID}
	var edges []*Edge
	seenEdges := map[string]bool{}

	for level := 0; level < depth && len(queue) > 0; level++ {
		var next []string
		for _, nodeID := range queue {
			neighbors, err := s.FindRelated(ctx, &FindRelatedOptions{MemoryID: nodeID})
			if err != nil {
				return nil, err
			}
			for _, e := range neighbors {
				if len(includeTypes) > 0 && !includeTypes[e.RelationshipType] {
					continue
				}
				if e.Strength < opts.MinStrength {
					continue
				}
				if !seenEdges[e.ID] {
					seenEdges[e.ID] = true
					edges = append(edges, e)
				}
				other := e.TargetID
				if other == nodeID {
					other = e.SourceID
				}
				if !visited[other] {
					visited[other] = true
					next = append(next, other)
				}
			}
		}
		queue = next
	}

	return &MapGraphResult{
		TotalNodes: len(visited),
		MaxDepth:   depth,
		Edges:      edges,
	}, nil
}

// DiscoverOptions configures Discover.
type DiscoverOptions struct {
	Limit int
}

// Discover suggests candidate relationships by content similarity.
// Not yet implemented — mirrors the teacher's own stubbed Discover,
// which the test suite explicitly expects to return empty.
func (s *Service) Discover(ctx context.Context, opts *DiscoverOptions) ([]*Edge, error) {
	return nil, nil
}
