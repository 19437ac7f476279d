package handler

import (
	"context"
	"io"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/ignatzorin/escrow-backend/internal/interface/http/response"
	"github.com/ignatzorin/escrow-backend/internal/storage"
)

// BlobStore хранилище загруженных изображений.
type BlobStore interface {
	Save(ctx context.Context, category string, ownerID uuid.UUID, r io.Reader) (*storage.StoredFile, error)
}

// UploadHandler принимает квитанции, изображения чата и доказательства по спорам.
// Возвращает постоянный URL, который затем передаётся в slip_url, image_url или evidence.
type UploadHandler struct {
	store BlobStore
}

func NewUploadHandler(store BlobStore) *UploadHandler {
	return &UploadHandler{store: store}
}

// Upload POST /api/uploads (multipart: file, category=slips|chat|evidence)
func (h *UploadHandler) Upload(c *gin.Context) {
	identity, ok := requireIdentity(c)
	if !ok {
		return
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		response.ValidationFailed(c, "file", "поле file обязательно")
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		response.BadRequest(c, "не удалось прочитать файл")
		return
	}
	defer file.Close()

	stored, err := h.store.Save(c.Request.Context(), c.DefaultPostForm("category", storage.CategoryChat), identity.UserID, file)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, stored)
}
