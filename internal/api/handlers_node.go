package api

import (
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mycelicmemory/docstore/internal/docerr"
	"github.com/mycelicmemory/docstore/internal/schema"
)

// NodeRequest is the wire shape for creating or upserting a node.
type NodeRequest struct {
	ID        string    `json:"id"`
	Type      string    `json:"type" binding:"required"`
	Content   any       `json:"content"`
	Metadata  any       `json:"metadata"`
	ParentID  string    `json:"parent_id"`
	RootID    string    `json:"root_id"`
	Mentions  []string  `json:"mentions"`
	Embedding []float32 `json:"embedding"`
}

// NodeResponse is the wire shape returned for a node.
type NodeResponse struct {
	ID          string   `json:"id"`
	Type        string   `json:"type"`
	Content     any      `json:"content"`
	Metadata    any      `json:"metadata,omitempty"`
	ParentID    string   `json:"parent_id,omitempty"`
	RootID      string   `json:"root_id,omitempty"`
	NextSibling string   `json:"next_sibling,omitempty"`
	ChildrenIDs []string `json:"children_ids"`
	Mentions    []string `json:"mentions,omitempty"`
	CreatedAt   string   `json:"created_at"`
	UpdatedAt   string   `json:"updated_at"`
}

func toNodeResponse(n schema.Node) NodeResponse {
	return NodeResponse{
		ID:          n.ID,
		Type:        n.Type,
		Content:     n.Content,
		Metadata:    n.Metadata,
		ParentID:    n.ParentID,
		RootID:      n.RootID,
		NextSibling: n.NextSibling,
		ChildrenIDs: n.ChildrenIDs,
		Mentions:    n.Mentions,
		CreatedAt:   n.CreatedAt,
		UpdatedAt:   n.UpdatedAt,
	}
}

func (s *Server) createNode(c *gin.Context) {
	var req NodeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequestError(c, err.Error())
		return
	}
	if err := validateNodeContentLength(req.Content); err != nil {
		BadRequestError(c, err.Error())
		return
	}
	n := schema.Node{
		ID: req.ID, Type: req.Type, Content: req.Content, Metadata: req.Metadata,
		ParentID: req.ParentID, RootID: req.RootID, Mentions: req.Mentions,
	}
	id, err := s.store.Store(c.Request.Context(), n)
	if err != nil {
		writeStoreError(c, err)
		return
	}
	CreatedResponse(c, "node stored", gin.H{"id": id})
}

func (s *Server) createNodeWithVector(c *gin.Context) {
	var req NodeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequestError(c, err.Error())
		return
	}
	if err := validateNodeContentLength(req.Content); err != nil {
		BadRequestError(c, err.Error())
		return
	}
	n := schema.Node{
		ID: req.ID, Type: req.Type, Content: req.Content, Metadata: req.Metadata,
		ParentID: req.ParentID, RootID: req.RootID, Mentions: req.Mentions,
		Embedding: req.Embedding,
	}
	id, err := s.store.StoreWithVector(c.Request.Context(), n)
	if err != nil {
		writeStoreError(c, err)
		return
	}
	CreatedResponse(c, "node stored", gin.H{"id": id})
}

func (s *Server) getNode(c *gin.Context) {
	id := c.Param("id")
	n, ok, err := s.store.Get(c.Request.Context(), id)
	if err != nil {
		writeStoreError(c, err)
		return
	}
	if !ok {
		NotFoundErrorWithID(c, id)
		return
	}
	SuccessResponse(c, "ok", toNodeResponse(n))
}

func (s *Server) deleteNode(c *gin.Context) {
	id := c.Param("id")
	if err := s.store.Delete(c.Request.Context(), id); err != nil {
		writeStoreError(c, err)
		return
	}
	SuccessResponse(c, "node deleted", nil)
}

// UpdateVectorRequest is the wire shape for replacing a node's embedding.
type UpdateVectorRequest struct {
	Embedding []float32 `json:"embedding" binding:"required"`
}

func (s *Server) updateVector(c *gin.Context) {
	var req UpdateVectorRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequestError(c, err.Error())
		return
	}
	if err := s.store.UpdateVector(c.Request.Context(), c.Param("id"), req.Embedding); err != nil {
		writeStoreError(c, err)
		return
	}
	SuccessResponse(c, "vector updated", nil)
}

func (s *Server) getChildren(c *gin.Context) {
	nodes, err := s.store.FindChildren(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeStoreError(c, err)
		return
	}
	SuccessResponse(c, "ok", toNodeResponses(nodes))
}

func (s *Server) getByRoot(c *gin.Context) {
	ctx := c.Request.Context()
	rootID := c.Param("id")
	var nodes []schema.Node
	var err error
	if typ := c.Query("type"); typ != "" {
		nodes, err = s.store.FindByRootAndType(ctx, rootID, typ)
	} else {
		nodes, err = s.store.FindByRoot(ctx, rootID)
	}
	if err != nil {
		writeStoreError(c, err)
		return
	}
	SuccessResponse(c, "ok", toNodeResponses(nodes))
}

func (s *Server) getMentioning(c *gin.Context) {
	nodes, err := s.store.FindMentioning(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeStoreError(c, err)
		return
	}
	SuccessResponse(c, "ok", toNodeResponses(nodes))
}

// SetRelationshipRequest names the new child of the node in the URL.
type SetRelationshipRequest struct {
	ChildID string `json:"child_id" binding:"required"`
}

func (s *Server) setRelationship(c *gin.Context) {
	var req SetRelationshipRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequestError(c, err.Error())
		return
	}
	if err := s.store.SetRelationship(c.Request.Context(), c.Param("id"), req.ChildID); err != nil {
		writeStoreError(c, err)
		return
	}
	SuccessResponse(c, "relationship set", nil)
}

func (s *Server) scanText(c *gin.Context) {
	q := c.Query("q")
	if err := validateQuery(q); err != nil {
		BadRequestError(c, err.Error())
		return
	}
	limit := clampLimit(queryInt(c, "limit", DefaultLimit))
	nodes, err := s.store.ScanText(c.Request.Context(), q, limit)
	if err != nil {
		writeStoreError(c, err)
		return
	}
	SuccessResponse(c, "ok", toNodeResponses(nodes))
}

func validateNodeContentLength(content any) error {
	raw, err := json.Marshal(content)
	if err != nil {
		return err
	}
	return validateContentLength(string(raw))
}

func toNodeResponses(nodes []schema.Node) []NodeResponse {
	out := make([]NodeResponse, 0, len(nodes))
	for _, n := range nodes {
		out = append(out, toNodeResponse(n))
	}
	return out
}

func queryInt(c *gin.Context, key string, fallback int) int {
	v := c.Query(key)
	if v == "" {
		return fallback
	}
	n := 0
	for _, r := range v {
		if r < '0' || r > '9' {
			return fallback
		}
		n = n*10 + int(r-'0')
	}
	return n
}

// writeStoreError maps a Facade error's docerr.Kind to an HTTP status.
func writeStoreError(c *gin.Context, err error) {
	var de *docerr.Error
	if e, ok := err.(*docerr.Error); ok {
		de = e
	}
	if de == nil {
		InternalError(c, err.Error())
		return
	}
	switch de.Kind {
	case docerr.KindNotFound:
		NotFoundError(c, de.Error())
	case docerr.KindInvalidInput:
		BadRequestError(c, de.Error())
	case docerr.KindTimeout:
		ErrorResponse(c, http.StatusGatewayTimeout, de.Error())
	case docerr.KindIndexUnavailable:
		ErrorResponse(c, http.StatusServiceUnavailable, de.Error())
	default:
		InternalError(c, de.Error())
	}
}

func (s *Server) healthHandler(c *gin.Context) {
	SuccessResponse(c, "ok", gin.H{"status": "healthy"})
}
