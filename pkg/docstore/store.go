// Package docstore is the Store Facade (C6): the single public entry
// point composing the columnar adapter, hierarchy index, ranker, and
// image codec into the operations described in spec.md §4. Grounded on
// the teacher's top-level assistant package, which wired database,
// search, and relationships behind one constructor the same way.
package docstore

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/mycelicmemory/docstore/internal/columnar"
	"github.com/mycelicmemory/docstore/internal/docerr"
	"github.com/mycelicmemory/docstore/internal/hierarchy"
	"github.com/mycelicmemory/docstore/internal/imagecodec"
	"github.com/mycelicmemory/docstore/internal/logging"
	"github.com/mycelicmemory/docstore/internal/ranker"
	"github.com/mycelicmemory/docstore/internal/relationship"
	"github.com/mycelicmemory/docstore/internal/schema"
	"github.com/mycelicmemory/docstore/pkg/config"
)

var log = logging.GetLogger("docstore")

// Store is the single-process document store: one columnar table, one
// hierarchy index, one relationship graph, sharing the reader-writer
// discipline enforced inside the columnar table (spec.md §5).
type Store struct {
	cfg          *config.Config
	table        *columnar.Table
	hierarchy    *hierarchy.Index
	relationship *relationship.Service
}

// Open opens or creates a store at cfg.Store.Path with the configured
// vector dimension. One process should hold at most one Store per path.
func Open(cfg *config.Config) (*Store, error) {
	if err := cfg.Validate(); err != nil {
		return nil, docerr.New("open", docerr.KindInvalidInput, err)
	}
	table, err := columnar.Open(cfg.Store.Path, cfg.Store.VectorDimension, cfg.Store.DefaultBatchSize)
	if err != nil {
		return nil, err
	}
	s := &Store{
		cfg:          cfg,
		table:        table,
		hierarchy:    hierarchy.New(table),
		relationship: relationship.NewService(table, cfg),
	}
	log.Info("store opened", "path", cfg.Store.Path, "dim", cfg.Store.VectorDimension)
	return s, nil
}

// Close releases the underlying table.
func (s *Store) Close() error {
	return s.table.Close()
}

// Store upserts n without an embedding. If n.ID is empty a fresh id is
// generated. Returns the id written (spec.md §4.1 "store"). Concurrent
// writes to the same id are serialized by the table's exclusive lock,
// so the last writer wins.
func (s *Store) Store(ctx context.Context, n schema.Node) (string, error) {
	return s.storeNode(ctx, n, true)
}

// StoreWithVector upserts n with an embedding. len(n.Embedding) must
// equal the store's fixed dimension (spec.md §3 invariant 2; §4.1
// "store_with_vector").
func (s *Store) StoreWithVector(ctx context.Context, n schema.Node) (string, error) {
	if len(n.Embedding) != s.table.Dimension() {
		return "", docerr.New("store_with_vector", docerr.KindInvalidInput,
			fmt.Errorf("embedding length %d does not match store dimension %d", len(n.Embedding), s.table.Dimension()))
	}
	return s.storeNode(ctx, n, false)
}

func (s *Store) storeNode(ctx context.Context, n schema.Node, allowNullVector bool) (string, error) {
	if n.ID == "" {
		n.ID = uuid.NewString()
	}
	row, err := schema.NodeToRow(n, s.table.Dimension(), allowNullVector)
	if err != nil {
		return "", err
	}
	if err := s.table.Upsert(ctx, row); err != nil {
		return "", err
	}
	return n.ID, nil
}

// StoreBatch upserts many nodes through the columnar adapter's Append
// path instead of one Upsert per node, so a bulk write (e.g. the
// legacy importer) is chunked by the store's configured batch size
// rather than opening one transaction per row. Nodes without an id get
// a fresh one; the ids actually written are returned in order.
func (s *Store) StoreBatch(ctx context.Context, nodes []schema.Node) ([]string, error) {
	ids := make([]string, len(nodes))
	rows := make([]schema.Row, len(nodes))
	for i, n := range nodes {
		if n.ID == "" {
			n.ID = uuid.NewString()
		}
		row, err := schema.NodeToRow(n, s.table.Dimension(), true)
		if err != nil {
			return nil, err
		}
		ids[i] = n.ID
		rows[i] = row
	}
	if err := s.table.Append(ctx, rows); err != nil {
		return nil, err
	}
	return ids, nil
}

// Get returns the node with the given id, or ok=false if absent
// (spec.md §4.1 "get").
func (s *Store) Get(ctx context.Context, id string) (schema.Node, bool, error) {
	row, ok, err := s.table.Get(ctx, id)
	if err != nil || !ok {
		return schema.Node{}, ok, err
	}
	n, err := schema.RowToNode(row)
	if err != nil {
		return schema.Node{}, false, err
	}
	return n, true, nil
}

// Delete removes the node with the given id. Dangling parent_id
// references left in child rows are permitted by spec.md §3
// invariant 3 and are not repaired; a predecessor's next_sibling is
// left pointing at the deleted id, and
// internal/hierarchy.RepairSiblingChain is the optional pass that
// drops such a link.
func (s *Store) Delete(ctx context.Context, id string) error {
	n, err := s.table.DeleteByPredicate(ctx, columnar.ByID(id))
	if err != nil {
		return err
	}
	if n == 0 {
		return docerr.New("delete", docerr.KindNotFound, fmt.Errorf("node %s not found", id))
	}
	return nil
}

// UpdateVector replaces the embedding on an existing node without
// touching its other fields (spec.md §4.1 "update_vector").
func (s *Store) UpdateVector(ctx context.Context, id string, vector []float32) error {
	if len(vector) != s.table.Dimension() {
		return docerr.New("update_vector", docerr.KindInvalidInput,
			fmt.Errorf("vector length %d does not match store dimension %d", len(vector), s.table.Dimension()))
	}
	row, ok, err := s.table.Get(ctx, id)
	if err != nil {
		return err
	}
	if !ok {
		return docerr.New("update_vector", docerr.KindNotFound, fmt.Errorf("node %s not found", id))
	}
	row.Vector = vector
	row.UpdatedAt = time.Now().UTC().Format(schema.TimeFormat)
	return s.table.Upsert(ctx, row)
}

// FindChildren returns the immediate children of parentID (spec.md
// §4.3 "find_children").
func (s *Store) FindChildren(ctx context.Context, parentID string) ([]schema.Node, error) {
	rows, err := s.hierarchy.GetChildren(ctx, parentID)
	if err != nil {
		return nil, err
	}
	return rowsToNodes(rows)
}

// FindByRoot returns every node sharing rootID (spec.md §4.3
// "find_by_root").
func (s *Store) FindByRoot(ctx context.Context, rootID string) ([]schema.Node, error) {
	rows, err := s.hierarchy.GetByRoot(ctx, rootID)
	if err != nil {
		return nil, err
	}
	return rowsToNodes(rows)
}

// FindByRootAndType is the type-filtered variant of FindByRoot
// (spec.md §4.3 "find_by_root_and_type").
func (s *Store) FindByRootAndType(ctx context.Context, rootID, typ string) ([]schema.Node, error) {
	rows, err := s.hierarchy.GetByRootAndType(ctx, rootID, typ)
	if err != nil {
		return nil, err
	}
	return rowsToNodes(rows)
}

// ScanText returns nodes whose serialized content contains substr
// (spec.md §4.6 "scan_text": substring filtering, not full-text
// search).
func (s *Store) ScanText(ctx context.Context, substr string, limit int) ([]schema.Node, error) {
	rows, err := s.table.Scan(ctx, columnar.ContentContains(substr), limit)
	if err != nil {
		return nil, err
	}
	return rowsToNodes(rows)
}

// FindMentioning returns nodes whose mentions list contains id
// (SPEC_FULL.md §3 supplement over the mentions column).
func (s *Store) FindMentioning(ctx context.Context, id string) ([]schema.Node, error) {
	rows, err := s.table.Scan(ctx, columnar.MentionsID(id), 0)
	if err != nil {
		return nil, err
	}
	return rowsToNodes(rows)
}

// SetRelationship links childID under parentID (spec.md §4.3
// "set_relationship").
func (s *Store) SetRelationship(ctx context.Context, parentID, childID string) error {
	return s.hierarchy.SetRelationship(ctx, parentID, childID)
}

// ReassignSubtreeRoot is the optional root_id repair helper spec.md §9
// leaves to the caller; never invoked automatically.
func (s *Store) ReassignSubtreeRoot(ctx context.Context, oldRoot, newRoot string) (int, error) {
	return s.hierarchy.ReassignSubtreeRoot(ctx, oldRoot, newRoot)
}

// RepairSiblingChain is the optional sibling-chain repair helper
// spec.md §9 leaves to the caller; never invoked automatically.
func (s *Store) RepairSiblingChain(ctx context.Context, headID string) (int, error) {
	return s.hierarchy.RepairSiblingChain(ctx, headID)
}

// ANNQuery configures ANN.
type ANNQuery struct {
	Vector        []float32
	K             int
	MaxCandidates int
}

// ANN returns up to K nearest neighbors by cosine similarity (spec.md
// §4.2 "ann").
func (s *Store) ANN(ctx context.Context, q ANNQuery) (columnar.ANNResult, error) {
	maxCandidates := q.MaxCandidates
	if maxCandidates <= 0 {
		maxCandidates = s.cfg.Store.MaxANNCandidates
	}
	return s.table.ANNSearch(ctx, q.Vector, q.K, maxCandidates)
}

// MultimodalQuery configures Multimodal.
type MultimodalQuery struct {
	Vector        []float32
	AcceptedTypes []string
	MinSimilarity float64
	MaxResults    int
}

// Multimodal filters ANN hits by accepted type tags (spec.md §4.4
// "Multimodal filter").
func (s *Store) Multimodal(ctx context.Context, q MultimodalQuery) ([]schema.Node, error) {
	maxResults := q.MaxResults
	if maxResults <= 0 {
		maxResults = s.cfg.Search.MaxResults
	}
	return ranker.Multimodal(ctx, s.table, q.Vector, q.AcceptedTypes, q.MinSimilarity, maxResults, s.cfg.Store.MaxANNCandidates)
}

// HybridQuery configures Hybrid, overriding the store's default search
// weights for a single call. Weight fields are pointers so an explicit
// override of 0 (a valid weight) is distinguishable from "not set" —
// nil falls back to the store's configured default.
type HybridQuery struct {
	Vector                 []float32
	QueryType              string
	SemanticWeight         *float64
	StructuralWeight       *float64
	TemporalWeight         *float64
	MaxResults             int
	MinSimilarityThreshold float64
	EnableCrossModal       *bool
	SearchTimeoutMS        int
}

// Hybrid runs the fused semantic/structural/temporal/cross-modal
// ranking described in spec.md §4.4. The returned bool reports whether
// the result is partial (timeout or index unavailable fallback cap).
func (s *Store) Hybrid(ctx context.Context, q HybridQuery) ([]ranker.Result, bool, error) {
	cfg := ranker.Config{
		SemanticWeight:         derefOr(q.SemanticWeight, s.cfg.Search.SemanticWeight),
		StructuralWeight:       derefOr(q.StructuralWeight, s.cfg.Search.StructuralWeight),
		TemporalWeight:         derefOr(q.TemporalWeight, s.cfg.Search.TemporalWeight),
		MaxResults:             coalesceInt(q.MaxResults, s.cfg.Search.MaxResults),
		MinSimilarityThreshold: q.MinSimilarityThreshold,
		EnableCrossModal:       s.cfg.Search.EnableCrossModal,
		SearchTimeoutMS:        coalesceInt(q.SearchTimeoutMS, s.cfg.Search.SearchTimeoutMS),
		QueryType:              q.QueryType,
		MaxANNCandidates:       s.cfg.Store.MaxANNCandidates,
	}
	if q.EnableCrossModal != nil {
		cfg.EnableCrossModal = *q.EnableCrossModal
	}
	if cfg.MinSimilarityThreshold == 0 {
		cfg.MinSimilarityThreshold = s.cfg.Search.MinSimilarityThreshold
	}
	return ranker.HybridSearch(ctx, s.table, q.Vector, cfg)
}

// StoreImage stores img as a node of type schema.TypeImage, base64
// envelope-encoded into the node's metadata (spec.md §4.5 "store
// image"). Returns the id written.
func (s *Store) StoreImage(ctx context.Context, n schema.Node, img imagecodec.Image) (string, error) {
	n.Type = schema.TypeImage
	extra, _ := n.Metadata.(map[string]any)
	n.Metadata = imagecodec.Encode(img, extra)
	if n.Embedding != nil {
		return s.StoreWithVector(ctx, n)
	}
	return s.Store(ctx, n)
}

// GetImage retrieves and decodes the image payload stored on node id
// (spec.md §4.5 "get image").
func (s *Store) GetImage(ctx context.Context, id string) (imagecodec.Image, error) {
	n, ok, err := s.Get(ctx, id)
	if err != nil {
		return imagecodec.Image{}, err
	}
	if !ok {
		return imagecodec.Image{}, docerr.New("get_image", docerr.KindNotFound, fmt.Errorf("node %s not found", id))
	}
	return imagecodec.Decode(n.Metadata)
}

// Relationships exposes the typed graph-edge surface (SPEC_FULL.md §4
// supplement; not named in spec.md's Facade operations).
func (s *Store) Relationships() *relationship.Service {
	return s.relationship
}

func rowsToNodes(rows []schema.Row) ([]schema.Node, error) {
	nodes := make([]schema.Node, 0, len(rows))
	for _, r := range rows {
		n, err := schema.RowToNode(r)
		if err != nil {
			return nil, err
		}
		nodes = append(nodes, n)
	}
	return nodes, nil
}

// derefOr returns *v if v is non-nil, else fallback. Used for
// HybridQuery's weight overrides so an explicit 0 weight is honored
// instead of being mistaken for "unset".
func derefOr(v *float64, fallback float64) float64 {
	if v != nil {
		return *v
	}
	return fallback
}

func coalesceInt(v, fallback int) int {
	if v == 0 {
		return fallback
	}
	return v
}
