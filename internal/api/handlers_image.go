package api

import (
	"encoding/base64"

	"github.com/gin-gonic/gin"

	"github.com/mycelicmemory/docstore/internal/imagecodec"
	"github.com/mycelicmemory/docstore/internal/schema"
)

// StoreImageRequest carries a base64-encoded image payload.
type StoreImageRequest struct {
	ID         string            `json:"id"`
	ParentID   string            `json:"parent_id"`
	RootID     string            `json:"root_id"`
	Mentions   []string          `json:"mentions"`
	Embedding  []float32         `json:"embedding"`
	DataBase64 string            `json:"data_base64" binding:"required"`
	Filename   string            `json:"filename"`
	MimeType   string            `json:"mime_type"`
	Width      int               `json:"width"`
	Height     int               `json:"height"`
	EXIF       map[string]string `json:"exif"`
}

func (s *Server) storeImage(c *gin.Context) {
	var req StoreImageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequestError(c, err.Error())
		return
	}
	raw, err := base64.StdEncoding.DecodeString(req.DataBase64)
	if err != nil {
		BadRequestError(c, "data_base64: "+err.Error())
		return
	}
	n := schema.Node{
		ID: req.ID, ParentID: req.ParentID, RootID: req.RootID,
		Mentions: req.Mentions, Embedding: req.Embedding,
	}
	img := imagecodec.Image{
		Bytes: raw, Filename: req.Filename, MimeType: req.MimeType,
		Width: req.Width, Height: req.Height, EXIF: req.EXIF,
	}
	id, err := s.store.StoreImage(c.Request.Context(), n, img)
	if err != nil {
		writeStoreError(c, err)
		return
	}
	CreatedResponse(c, "image stored", gin.H{"id": id})
}

// ImageResponse is the wire shape for a decoded image payload.
type ImageResponse struct {
	DataBase64 string            `json:"data_base64"`
	Filename   string            `json:"filename,omitempty"`
	MimeType   string            `json:"mime_type,omitempty"`
	Width      int               `json:"width,omitempty"`
	Height     int               `json:"height,omitempty"`
	EXIF       map[string]string `json:"exif,omitempty"`
}

func (s *Server) getImage(c *gin.Context) {
	img, err := s.store.GetImage(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeStoreError(c, err)
		return
	}
	SuccessResponse(c, "ok", ImageResponse{
		DataBase64: base64.StdEncoding.EncodeToString(img.Bytes),
		Filename:   img.Filename,
		MimeType:   img.MimeType,
		Width:      img.Width,
		Height:     img.Height,
		EXIF:       img.EXIF,
	})
}
