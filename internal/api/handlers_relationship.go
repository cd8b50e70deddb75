package api

import (
	"github.com/gin-gonic/gin"

	"github.com/mycelicmemory/docstore/internal/relationship"
)

// CreateRelationshipRequest creates a typed graph edge between two
// nodes, separate from the hierarchy's parent/child link.
type CreateRelationshipRequest struct {
	SourceID         string  `json:"source_id" binding:"required"`
	TargetID         string  `json:"target_id" binding:"required"`
	RelationshipType string  `json:"relationship_type" binding:"required"`
	Strength         float64 `json:"strength"`
	Context          string  `json:"context"`
}

func (s *Server) createRelationship(c *gin.Context) {
	var req CreateRelationshipRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequestError(c, err.Error())
		return
	}
	edge, err := s.store.Relationships().Create(c.Request.Context(), &relationship.CreateOptions{
		SourceMemoryID:   req.SourceID,
		TargetMemoryID:   req.TargetID,
		RelationshipType: req.RelationshipType,
		Strength:         req.Strength,
		Context:          req.Context,
	})
	if err != nil {
		writeStoreError(c, err)
		return
	}
	CreatedResponse(c, "relationship created", edge)
}

func (s *Server) findRelated(c *gin.Context) {
	edges, err := s.store.Relationships().FindRelated(c.Request.Context(), &relationship.FindRelatedOptions{
		MemoryID: c.Param("id"),
		Type:     c.Query("type"),
	})
	if err != nil {
		writeStoreError(c, err)
		return
	}
	SuccessResponse(c, "ok", edges)
}

func (s *Server) mapGraph(c *gin.Context) {
	result, err := s.store.Relationships().MapGraph(c.Request.Context(), &relationship.MapGraphOptions{
		RootID:      c.Param("id"),
		Depth:       queryInt(c, "depth", 0),
		MinStrength: 0,
	})
	if err != nil {
		writeStoreError(c, err)
		return
	}
	SuccessResponse(c, "ok", result)
}
