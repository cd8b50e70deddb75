// Package ranker is the Vector & Hybrid Ranker (C4): it turns a query
// vector plus configuration into a ranked list of documents, fusing
// semantic, structural, temporal, and cross-modal signals. Grounded on
// the teacher's internal/search/engine.go (SearchOptions/SearchResult
// shape, hybridSearch/mergeResults dispatch), generalized from a
// keyword+semantic memory search into the spec's four-component fused
// score over the Node model.
package ranker

import (
	"context"
	"sort"
	"time"

	"github.com/mycelicmemory/docstore/internal/columnar"
	"github.com/mycelicmemory/docstore/internal/docerr"
	"github.com/mycelicmemory/docstore/internal/schema"
)

// Config is the per-query hybrid search configuration (spec.md §6).
type Config struct {
	SemanticWeight         float64
	StructuralWeight       float64
	TemporalWeight         float64
	MaxResults             int
	MinSimilarityThreshold float64
	EnableCrossModal       bool
	SearchTimeoutMS        int

	// QueryType is the type tag of the query's own modality (e.g.
	// "text"); needed to decide cross-modal gating (spec.md §4.4).
	QueryType string

	// MaxANNCandidates bounds the ANN/linear-scan fallback candidate
	// set (spec.md §6 max_ann_candidates, default 10000).
	MaxANNCandidates int
}

// Factors is the sub-score breakdown behind a fused score, carried
// alongside each hit the way original_source's RelevanceFactors
// exposed relevance diagnostics (SPEC_FULL.md §3 supplement).
type Factors struct {
	Semantic   float64
	Structural float64
	Temporal   float64
	CrossModal float64 // 0 when absent
}

// Result is one ranked hit.
type Result struct {
	Node    schema.Node
	Score   float64
	Factors Factors
}

// HybridSearch fuses semantic similarity, structural proximity,
// temporal recency, and an optional cross-modal bonus, per spec.md
// §4.4. It is cooperatively cancellable on ctx and respects
// cfg.SearchTimeoutMS, returning whatever it has collected so far,
// flagged partial, on expiry.
func HybridSearch(ctx context.Context, table *columnar.Table, query []float32, cfg Config) ([]Result, bool, error) {
	deadline := time.Now().Add(time.Duration(cfg.SearchTimeoutMS) * time.Millisecond)
	candidateCap := resolveCap(cfg.MaxANNCandidates)

	ann, err := table.ANNSearch(ctx, query, candidateCap, candidateCap)
	if err != nil {
		return nil, false, docerr.New("hybrid_search", docerr.KindIndexUnavailable, err)
	}

	var results []Result
	partial := ann.Partial

	for _, hit := range ann.Hits {
		if time.Now().After(deadline) {
			partial = true
			break
		}
		select {
		case <-ctx.Done():
			return results, true, nil
		default:
		}

		sSem := clamp01(float64(hit.Score))
		if sSem < cfg.MinSimilarityThreshold {
			continue
		}

		row, ok, err := table.Get(ctx, hit.ID)
		if err != nil || !ok {
			continue
		}
		node, err := schema.RowToNode(row)
		if err != nil {
			continue
		}

		factors := Factors{
			Semantic:   sSem,
			Structural: structuralScore(node),
			Temporal:   temporalScore(node.CreatedAt),
		}
		score := cfg.SemanticWeight*factors.Semantic +
			cfg.StructuralWeight*factors.Structural +
			cfg.TemporalWeight*factors.Temporal

		if cfg.EnableCrossModal && cfg.QueryType != "" && node.Type != cfg.QueryType {
			factors.CrossModal = 0.9
			score += 0.1 * factors.CrossModal
		}

		results = append(results, Result{Node: node, Score: score, Factors: factors})
	}

	sortResults(results)

	max := cfg.MaxResults
	if max > 0 && len(results) > max {
		results = results[:max]
	}
	return results, partial, nil
}

// Multimodal returns documents whose type is in acceptedTypes and
// whose cosine similarity to query exceeds the configured floor
// (spec.md §4.4 "Multimodal filter").
func Multimodal(ctx context.Context, table *columnar.Table, query []float32, acceptedTypes []string, minSimilarity float64, maxResults int, maxANNCandidates int) ([]schema.Node, error) {
	candidateCap := resolveCap(maxANNCandidates)
	ann, err := table.ANNSearch(ctx, query, candidateCap, candidateCap)
	if err != nil {
		return nil, docerr.New("multimodal", docerr.KindIndexUnavailable, err)
	}

	accepted := make(map[string]bool, len(acceptedTypes))
	for _, t := range acceptedTypes {
		accepted[t] = true
	}

	var nodes []schema.Node
	for _, hit := range ann.Hits {
		if float64(hit.Score) <= minSimilarity {
			continue
		}
		row, ok, err := table.Get(ctx, hit.ID)
		if err != nil || !ok {
			continue
		}
		if len(accepted) > 0 && !accepted[row.Type] {
			continue
		}
		node, err := schema.RowToNode(row)
		if err != nil {
			continue
		}
		nodes = append(nodes, node)
		if maxResults > 0 && len(nodes) >= maxResults {
			break
		}
	}
	return nodes, nil
}

// structuralScore implements the default policy from spec.md §4.4:
// 0.8 if the node has a parent or any derived children, else 0.2.
func structuralScore(n schema.Node) float64 {
	if n.ParentID != "" || len(n.ChildrenIDs) > 0 {
		return 0.8
	}
	return 0.2
}

// temporalScore implements the default bucket policy from spec.md
// §4.4: age <= 1 day -> 1.0; <= 7 days -> 0.8; else -> 0.5.
func temporalScore(createdAt string) float64 {
	t, err := time.Parse(schema.TimeFormat, createdAt)
	if err != nil {
		return 0.5
	}
	age := time.Since(t)
	switch {
	case age <= 24*time.Hour:
		return 1.0
	case age <= 7*24*time.Hour:
		return 0.8
	default:
		return 0.5
	}
}

// sortResults orders by fused score descending; ties break by higher
// s_sem, then higher s_temp, then id ascending (spec.md §4.4).
func sortResults(results []Result) {
	sort.SliceStable(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		if results[i].Factors.Semantic != results[j].Factors.Semantic {
			return results[i].Factors.Semantic > results[j].Factors.Semantic
		}
		if results[i].Factors.Temporal != results[j].Factors.Temporal {
			return results[i].Factors.Temporal > results[j].Factors.Temporal
		}
		return results[i].Node.ID < results[j].Node.ID
	})
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func resolveCap(configured int) int {
	if configured <= 0 {
		return 10000
	}
	return configured
}
