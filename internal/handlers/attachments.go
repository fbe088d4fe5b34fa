package handlers

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gofrs/uuid"
	"gorm.io/gorm"

	"pulse-board/backend/internal/models"
	"pulse-board/backend/internal/storage"
)

const maxAttachmentSize = 10 << 20 // 10 MiB

type AttachmentHandler struct {
	db      *gorm.DB
	storage storage.ObjectStorage
}

func NewAttachmentHandler(db *gorm.DB, objectStorage storage.ObjectStorage) *AttachmentHandler {
	return &AttachmentHandler{db: db, storage: objectStorage}
}

// Upload stores the multipart file in object storage and records the
// attachment metadata row against the task.
func (h *AttachmentHandler) Upload(c *gin.Context) {
	actor, ok := actorID(c)
	if !ok {
		respondError(c, http.StatusUnauthorized, "user not authenticated")
		return
	}
	taskID, ok := taskIDParam(c)
	if !ok {
		return
	}

	var task models.Task
	if err := h.db.First(&task, "id = ?", taskID).Error; err != nil {
		respondError(c, http.StatusNotFound, "task not found")
		return
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		respondError(c, http.StatusBadRequest, "file is required")
		return
	}
	if fileHeader.Size > maxAttachmentSize {
		respondError(c, http.StatusBadRequest, "file exceeds the 10MB limit")
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		respondError(c, http.StatusInternalServerError, "failed to read upload")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, maxAttachmentSize+1))
	if err != nil {
		respondError(c, http.StatusInternalServerError, "failed to read upload")
		return
	}

	mimeType := fileHeader.Header.Get("Content-Type")
	fileID, err := h.storage.Put(data, fileHeader.Filename, mimeType)
	if err != nil {
		respondError(c, http.StatusInternalServerError, "failed to store file")
		return
	}

	attachment := models.Attachment{
		ID:         uuid.Must(uuid.NewV4()),
		TaskID:     taskID,
		FileID:     fileID,
		Name:       fileHeader.Filename,
		MimeType:   mimeType,
		Size:       int64(len(data)),
		UploadedBy: actor,
	}
	if err := h.db.Create(&attachment).Error; err != nil {
		// Best-effort cleanup of the orphaned blob; the sweep catches
		// anything this misses.
		h.storage.Delete(fileID)
		respondError(c, http.StatusInternalServerError, "failed to save attachment")
		return
	}
	c.JSON(http.StatusCreated, gin.H{"success": true, "data": attachment})
}

func (h *AttachmentHandler) ListByTask(c *gin.Context) {
	taskID, ok := taskIDParam(c)
	if !ok {
		return
	}

	var attachments []models.Attachment
	if err := h.db.Where("task_id = ?", taskID).Order("created_at ASC").Find(&attachments).Error; err != nil {
		respondError(c, http.StatusInternalServerError, "failed to list attachments")
		return
	}
	respondOK(c, attachments)
}

func (h *AttachmentHandler) Download(c *gin.Context) {
	attachment, ok := h.loadAttachment(c)
	if !ok {
		return
	}

	data, err := h.storage.Get(attachment.FileID)
	if err != nil {
		if err == storage.ErrFileNotFound {
			respondError(c, http.StatusNotFound, "attachment content no longer available")
			return
		}
		respondError(c, http.StatusInternalServerError, "failed to fetch attachment")
		return
	}

	c.Header("Content-Disposition", `attachment; filename="`+attachment.Name+`"`)
	c.Data(http.StatusOK, attachment.MimeType, data)
}

func (h *AttachmentHandler) Delete(c *gin.Context) {
	actor, ok := actorID(c)
	if !ok {
		respondError(c, http.StatusUnauthorized, "user not authenticated")
		return
	}

	attachment, ok := h.loadAttachment(c)
	if !ok {
		return
	}
	if attachment.UploadedBy != actor {
		respondError(c, http.StatusForbidden, "only the uploader can delete an attachment")
		return
	}

	if err := h.db.Delete(&models.Attachment{}, "id = ?", attachment.ID).Error; err != nil {
		respondError(c, http.StatusInternalServerError, "failed to delete attachment")
		return
	}
	// Blob removal after the row commit is best-effort.
	h.storage.Delete(attachment.FileID)
	c.JSON(http.StatusNoContent, nil)
}

func (h *AttachmentHandler) loadAttachment(c *gin.Context) (models.Attachment, bool) {
	idStr := c.Param("attachment_id")
	var attachment models.Attachment
	if err := h.db.First(&attachment, "id = ?", uuid.FromStringOrNil(idStr)).Error; err != nil {
		respondError(c, http.StatusNotFound, "attachment not found")
		return attachment, false
	}
	return attachment, true
}
