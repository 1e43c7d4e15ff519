package handlers

import (
	"fmt"
	"mime/multipart"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"alfredoptarigan/async-cv-evaluator/internal/models"
	"alfredoptarigan/async-cv-evaluator/internal/repositories"
	"alfredoptarigan/async-cv-evaluator/internal/services"
)

type UploadHandler struct {
	docRepo        repositories.DocumentRepository
	storageService services.StorageService
	maxFileSize    int64
	log            *zap.Logger
}

func NewUploadHandler(
	docRepo repositories.DocumentRepository,
	storageService services.StorageService,
	maxFileSize int64,
	log *zap.Logger,
) *UploadHandler {
	return &UploadHandler{
		docRepo:        docRepo,
		storageService: storageService,
		maxFileSize:    maxFileSize,
		log:            log,
	}
}

// HandleUpload handles POST /upload. Both the CV (field "cv") and the project
// report (field "report" or "project_report") are required.
func (h *UploadHandler) HandleUpload(c *fiber.Ctx) error {
	form, err := c.MultipartForm()
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(models.ErrorResponse{
			Error: "failed to parse multipart form",
		})
	}

	cvFile := firstFile(form, "cv")
	reportFile := firstFile(form, "report", "project_report")
	if cvFile == nil || reportFile == nil {
		return c.Status(fiber.StatusBadRequest).JSON(models.ErrorResponse{
			Error: "Both CV and project report are required",
		})
	}

	cvDoc, err := h.store(cvFile, models.DocumentTypeCV)
	if err != nil {
		return err
	}

	reportDoc, err := h.store(reportFile, models.DocumentTypeReport)
	if err != nil {
		h.discard(cvDoc)
		return err
	}

	return c.Status(fiber.StatusCreated).JSON(models.UploadResult{
		CVID:      cvDoc.ID.String(),
		ReportID:  reportDoc.ID.String(),
		Documents: []models.UploadResponse{uploadResponse(cvDoc), uploadResponse(reportDoc)},
	})
}

func (h *UploadHandler) store(file *multipart.FileHeader, fileType string) (*models.Document, error) {
	if file.Size > h.maxFileSize {
		return nil, fiber.NewError(fiber.StatusBadRequest,
			fmt.Sprintf("%s file too large. Max size: %d bytes", fileType, h.maxFileSize))
	}

	filename, filePath, err := h.storageService.SaveFile(file, fileType)
	if err != nil {
		h.log.Warn("failed to save upload", zap.String("file_type", fileType), zap.Error(err))
		return nil, fiber.NewError(fiber.StatusBadRequest, fmt.Sprintf("failed to save %s file: %v", fileType, err))
	}

	now := time.Now()
	doc := &models.Document{
		ID:               uuid.New(),
		Filename:         filename,
		OriginalFileName: file.Filename,
		FileType:         fileType,
		FilePath:         filePath,
		Size:             file.Size,
		CreatedAt:        now,
		UpdatedAt:        now,
	}

	if err := h.docRepo.Create(doc); err != nil {
		if delErr := h.storageService.DeleteFile(filename); delErr != nil {
			h.log.Warn("failed to clean up upload", zap.String("file", filename), zap.Error(delErr))
		}
		h.log.Error("failed to register document", zap.String("file", filename), zap.Error(err))
		return nil, fiber.NewError(fiber.StatusInternalServerError, fmt.Sprintf("failed to save %s document record", fileType))
	}

	h.log.Info("document uploaded", zap.String("document_id", doc.ID.String()), zap.String("file_type", fileType), zap.Int64("size", file.Size))
	return doc, nil
}

// discard removes a stored document whose sibling upload failed.
func (h *UploadHandler) discard(doc *models.Document) {
	if err := h.docRepo.Delete(doc.ID); err != nil {
		h.log.Warn("failed to remove document record", zap.String("document_id", doc.ID.String()), zap.Error(err))
	}
	if err := h.storageService.DeleteFile(doc.Filename); err != nil {
		h.log.Warn("failed to clean up upload", zap.String("file", doc.Filename), zap.Error(err))
	}
}

func firstFile(form *multipart.Form, fields ...string) *multipart.FileHeader {
	for _, field := range fields {
		if files := form.File[field]; len(files) > 0 {
			return files[0]
		}
	}
	return nil
}

func uploadResponse(doc *models.Document) models.UploadResponse {
	return models.UploadResponse{
		ID:           doc.ID.String(),
		Filename:     doc.Filename,
		OriginalName: doc.OriginalFileName,
		FileType:     doc.FileType,
	}
}
