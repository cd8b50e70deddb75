// Package hierarchy is the Hierarchy Index (C3): it answers
// parent/child and root-scoped queries without full scans, dispatching
// the underlying predicate scans through columnar, and offers optional
// root_id and sibling-chain repair passes. Grounded on the teacher's BFS GetGraph traversal
// in internal/database/operations.go (visited-map + queue + depth
// cap), adapted from relationship-edge traversal to parent/child/root
// traversal.
package hierarchy

import (
	"context"
	"fmt"

	"github.com/mycelicmemory/docstore/internal/columnar"
	"github.com/mycelicmemory/docstore/internal/docerr"
	"github.com/mycelicmemory/docstore/internal/logging"
	"github.com/mycelicmemory/docstore/internal/schema"
)

var log = logging.GetLogger("hierarchy")

// Index is the hierarchy query surface over a columnar table.
type Index struct {
	table *columnar.Table
}

// New wraps table with hierarchy query operations.
func New(table *columnar.Table) *Index {
	return &Index{table: table}
}

// GetChildren returns rows where parent_id = parentID.
func (idx *Index) GetChildren(ctx context.Context, parentID string) ([]schema.Row, error) {
	return idx.table.Scan(ctx, columnar.ByParent(parentID), 0)
}

// GetByRoot returns all rows where root_id = rootID (the NS-115
// optimization: O(rows-in-subtree) rather than O(all-rows)).
func (idx *Index) GetByRoot(ctx context.Context, rootID string) ([]schema.Row, error) {
	return idx.table.Scan(ctx, columnar.ByRoot(rootID), 0)
}

// GetByRootAndType is the type-filtered variant of GetByRoot.
func (idx *Index) GetByRootAndType(ctx context.Context, rootID, typ string) ([]schema.Row, error) {
	return idx.table.Scan(ctx, columnar.ByRootAndType(rootID, typ), 0)
}

// SetRelationship performs the two-document update described in
// spec.md §4.3: it writes child.parent_id = parentID, then rewrites the
// parent row. children_ids has no stored column; the parent's
// children_ids on read-back is derived from the live parent_id columns,
// so it includes childID once the first write commits. Both updates
// are prepared before either commits; true atomicity across
// the two rows is not guaranteed. If the second update fails after the
// first succeeded, the inconsistency is logged and surfaced as
// docerr.KindInconsistentState — the caller should retry or reconcile.
func (idx *Index) SetRelationship(ctx context.Context, parentID, childID string) error {
	parentRow, ok, err := idx.table.Get(ctx, parentID)
	if err != nil {
		return err
	}
	if !ok {
		return docerr.New("set_relationship", docerr.KindNotFound, fmt.Errorf("parent %s not found", parentID))
	}
	childRow, ok, err := idx.table.Get(ctx, childID)
	if err != nil {
		return err
	}
	if !ok {
		return docerr.New("set_relationship", docerr.KindNotFound, fmt.Errorf("child %s not found", childID))
	}

	// Prepare both updates before committing either.
	childRow.ParentID = &parentID
	parentRow.ChildrenIDs = appendUnique(parentRow.ChildrenIDs, childID)

	if err := idx.table.Upsert(ctx, childRow); err != nil {
		return docerr.New("set_relationship", docerr.KindIO, fmt.Errorf("update child %s: %w", childID, err))
	}

	if err := idx.table.Upsert(ctx, parentRow); err != nil {
		log.Error("relationship half-committed: child parent_id updated but parent children_ids was not",
			"parent_id", parentID, "child_id", childID, "error", err)
		return docerr.New("set_relationship", docerr.KindInconsistentState,
			fmt.Errorf("child %s now points at parent %s, but parent's children_ids was not updated: %w", childID, parentID, err))
	}
	return nil
}

// ReassignSubtreeRoot bulk-updates root_id for every row currently
// scoped under oldRoot to newRoot. spec.md §9 leaves root_id recompute
// on reparenting explicitly to the caller; this is the optional helper
// it permits, never invoked automatically.
func (idx *Index) ReassignSubtreeRoot(ctx context.Context, oldRoot, newRoot string) (int, error) {
	rows, err := idx.GetByRoot(ctx, oldRoot)
	if err != nil {
		return 0, err
	}
	for _, r := range rows {
		r.RootID = &newRoot
		if err := idx.table.Upsert(ctx, r); err != nil {
			return 0, docerr.New("reassign_subtree_root", docerr.KindIO, fmt.Errorf("update %s: %w", r.ID, err))
		}
	}
	return len(rows), nil
}

// RepairSiblingChain walks the sibling chain forward from headID (the
// store does not track which child starts a chain, so the caller
// passes the chain head) and drops the first link whose target no
// longer exists, which ends the chain at that node (spec.md §9 open
// question). The walk is bounded at maxChainSteps links and fails with
// docerr.KindInconsistentState ("cycle suspected") beyond that. It is
// an optional pass, never invoked automatically.
func (idx *Index) RepairSiblingChain(ctx context.Context, headID string) (int, error) {
	const maxChainSteps = 1024
	repaired := 0
	currentID := headID
	for steps := 0; currentID != ""; steps++ {
		if steps >= maxChainSteps {
			return repaired, docerr.New("repair_sibling_chain", docerr.KindInconsistentState,
				fmt.Errorf("cycle suspected: sibling chain from %s exceeds %d links", headID, maxChainSteps))
		}
		row, ok, err := idx.table.Get(ctx, currentID)
		if err != nil {
			return repaired, err
		}
		if !ok {
			break
		}
		if row.NextSibling == nil {
			break
		}
		nextID := *row.NextSibling
		_, nextExists, err := idx.table.Get(ctx, nextID)
		if err != nil {
			return repaired, err
		}
		if !nextExists {
			row.NextSibling = nil
			if err := idx.table.Upsert(ctx, row); err != nil {
				return repaired, docerr.New("repair_sibling_chain", docerr.KindIO, err)
			}
			repaired++
			break
		}
		currentID = nextID
	}
	return repaired, nil
}

func appendUnique(ids []string, id string) []string {
	for _, existing := range ids {
		if existing == id {
			return ids
		}
	}
	return append(ids, id)
}
