package api

import (
	"github.com/gin-gonic/gin"

	"github.com/mycelicmemory/docstore/pkg/docstore"
)

// ANNRequest drives a raw nearest-neighbor search.
type ANNRequest struct {
	Vector        []float32 `json:"vector" binding:"required"`
	K             int       `json:"k"`
	MaxCandidates int       `json:"max_candidates"`
}

func (s *Server) annSearch(c *gin.Context) {
	var req ANNRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequestError(c, err.Error())
		return
	}
	k := req.K
	if k <= 0 {
		k = DefaultLimit
	}
	result, err := s.store.ANN(c.Request.Context(), docstore.ANNQuery{
		Vector: req.Vector, K: k, MaxCandidates: req.MaxCandidates,
	})
	if err != nil {
		writeStoreError(c, err)
		return
	}
	SuccessResponse(c, "ok", gin.H{
		"hits":    result.Hits,
		"partial": result.Partial,
	})
}

// MultimodalRequest filters ANN hits by accepted type tags.
type MultimodalRequest struct {
	Vector        []float32 `json:"vector" binding:"required"`
	AcceptedTypes []string  `json:"accepted_types"`
	MinSimilarity float64   `json:"min_similarity"`
	MaxResults    int       `json:"max_results"`
}

func (s *Server) multimodalSearch(c *gin.Context) {
	var req MultimodalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequestError(c, err.Error())
		return
	}
	nodes, err := s.store.Multimodal(c.Request.Context(), docstore.MultimodalQuery{
		Vector:        req.Vector,
		AcceptedTypes: req.AcceptedTypes,
		MinSimilarity: req.MinSimilarity,
		MaxResults:    req.MaxResults,
	})
	if err != nil {
		writeStoreError(c, err)
		return
	}
	SuccessResponse(c, "ok", toNodeResponses(nodes))
}

// HybridRequest mirrors docstore.HybridQuery over the wire. Weight
// fields are pointers so an omitted field falls back to the store's
// configured default while an explicit 0 is honored as a real
// override.
type HybridRequest struct {
	Vector                 []float32 `json:"vector" binding:"required"`
	QueryType              string    `json:"query_type"`
	SemanticWeight         *float64  `json:"semantic_weight"`
	StructuralWeight       *float64  `json:"structural_weight"`
	TemporalWeight         *float64  `json:"temporal_weight"`
	MaxResults             int       `json:"max_results"`
	MinSimilarityThreshold float64   `json:"min_similarity_threshold"`
	EnableCrossModal       *bool     `json:"enable_cross_modal"`
	SearchTimeoutMS        int       `json:"search_timeout_ms"`
}

func (s *Server) hybridSearch(c *gin.Context) {
	var req HybridRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequestError(c, err.Error())
		return
	}
	results, partial, err := s.store.Hybrid(c.Request.Context(), docstore.HybridQuery{
		Vector:                 req.Vector,
		QueryType:              req.QueryType,
		SemanticWeight:         req.SemanticWeight,
		StructuralWeight:       req.StructuralWeight,
		TemporalWeight:         req.TemporalWeight,
		MaxResults:             req.MaxResults,
		MinSimilarityThreshold: req.MinSimilarityThreshold,
		EnableCrossModal:       req.EnableCrossModal,
		SearchTimeoutMS:        req.SearchTimeoutMS,
	})
	if err != nil {
		writeStoreError(c, err)
		return
	}
	SuccessResponse(c, "ok", gin.H{
		"results": results,
		"partial": partial,
	})
}
