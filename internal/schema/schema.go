// Package schema is the single source of truth for the row layout: it
// converts between the caller-facing Node and the on-disk Row, the way
// the teacher's database package owned its memories table column set.
package schema

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/mycelicmemory/docstore/internal/docerr"
)

// Recognized type tags. Type is a plain string so callers may extend it
// freely; these constants only drive ranking heuristics and filters.
const (
	TypeText    = "text"
	TypeDate    = "date"
	TypeTask    = "task"
	TypeImage   = "image"
	TypeProject = "project"
)

// TimeFormat is the fixed, lexicographically sortable timestamp format
// used for created_at/updated_at (ISO-8601 UTC).
const TimeFormat = time.RFC3339Nano

// Node is the caller-facing entity: one logical record in the store.
type Node struct {
	ID          string
	Type        string
	Content     any // scalar string, object, or array
	Metadata    any // optional structured value
	CreatedAt   string
	UpdatedAt   string
	ParentID    string
	NextSibling string
	RootID      string
	Embedding   []float32

	// ChildrenIDs is always derived on read (§3 invariant 6); a value
	// supplied on write is advisory and reconciled away.
	ChildrenIDs []string
	// Mentions is a caller-populated list of node ids referenced from
	// Content; the store never parses it out itself (SPEC_FULL.md §3).
	Mentions []string
}

// Row is the physical columnar record, one per node.
type Row struct {
	ID          string
	Type        string
	Content     string // serialized
	Metadata    *string
	Vector      []float32
	VectorModel *string
	ParentID    *string
	ChildrenIDs []string // derived, never trusted on write
	Mentions    []string
	NextSibling *string
	RootID      *string
	CreatedAt   string
	UpdatedAt   string
}

// NodeToRow serializes a Node into its physical Row representation.
// dim is the store's fixed vector dimension; a non-null vector whose
// length differs from dim fails loudly rather than being truncated or
// padded. allowNullVector controls whether a missing embedding is
// stored as NULL (true) or a zero vector of length dim (false).
func NodeToRow(n Node, dim int, allowNullVector bool) (Row, error) {
	content, err := json.Marshal(n.Content)
	if err != nil {
		return Row{}, docerr.New("node_to_row", docerr.KindInvalidInput, fmt.Errorf("marshal content: %w", err))
	}

	var metaPtr *string
	if n.Metadata != nil {
		meta, err := json.Marshal(n.Metadata)
		if err != nil {
			return Row{}, docerr.New("node_to_row", docerr.KindInvalidInput, fmt.Errorf("marshal metadata: %w", err))
		}
		s := string(meta)
		metaPtr = &s
	}

	var vec []float32
	switch {
	case n.Embedding != nil:
		if len(n.Embedding) != dim {
			return Row{}, docerr.New("node_to_row", docerr.KindInvalidInput,
				fmt.Errorf("vector length %d does not match store dimension %d", len(n.Embedding), dim))
		}
		vec = n.Embedding
	case allowNullVector:
		vec = nil
	default:
		vec = make([]float32, dim)
	}

	now := time.Now().UTC().Format(TimeFormat)
	createdAt := n.CreatedAt
	if createdAt == "" {
		createdAt = now
	}
	updatedAt := n.UpdatedAt
	if updatedAt == "" {
		updatedAt = now
	}

	row := Row{
		ID:          n.ID,
		Type:        n.Type,
		Content:     string(content),
		Metadata:    metaPtr,
		Vector:      vec,
		ParentID:    strPtrOrNil(n.ParentID),
		ChildrenIDs: n.ChildrenIDs,
		Mentions:    n.Mentions,
		NextSibling: strPtrOrNil(n.NextSibling),
		RootID:      strPtrOrNil(n.RootID),
		CreatedAt:   createdAt,
		UpdatedAt:   updatedAt,
	}
	return row, nil
}

// RowToNode is the inverse of NodeToRow: it restores structured values
// and re-attaches relationship fields. It never infers a missing
// relationship field.
func RowToNode(r Row) (Node, error) {
	var content any
	if err := json.Unmarshal([]byte(r.Content), &content); err != nil {
		return Node{}, docerr.New("row_to_node", docerr.KindCorrupt, fmt.Errorf("unmarshal content for %s: %w", r.ID, err))
	}

	var meta any
	if r.Metadata != nil {
		if err := json.Unmarshal([]byte(*r.Metadata), &meta); err != nil {
			return Node{}, docerr.New("row_to_node", docerr.KindCorrupt, fmt.Errorf("unmarshal metadata for %s: %w", r.ID, err))
		}
	}

	n := Node{
		ID:          r.ID,
		Type:        r.Type,
		Content:     content,
		Metadata:    meta,
		CreatedAt:   r.CreatedAt,
		UpdatedAt:   r.UpdatedAt,
		ParentID:    derefOrEmpty(r.ParentID),
		NextSibling: derefOrEmpty(r.NextSibling),
		RootID:      derefOrEmpty(r.RootID),
		Embedding:   r.Vector,
		ChildrenIDs: r.ChildrenIDs,
		Mentions:    r.Mentions,
	}
	return n, nil
}

func strPtrOrNil(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func derefOrEmpty(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
