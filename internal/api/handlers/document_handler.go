package handlers

import (
	"io"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/docqa/backend/internal/ingestion"
	"github.com/docqa/backend/internal/storage/models"
	"github.com/docqa/backend/pkg/logger"
)

type DocumentHandler struct {
	processor   *ingestion.Processor
	maxFileSize int64
}

func NewDocumentHandler(processor *ingestion.Processor, maxFileSize int64) *DocumentHandler {
	return &DocumentHandler{
		processor:   processor,
		maxFileSize: maxFileSize,
	}
}

// UploadDocuments accepts one or more files under the "files" multipart
// field. Files are processed independently; the response reports one outcome
// per file and succeeds even when some files fail.
func (h *DocumentHandler) UploadDocuments(c *fiber.Ctx) error {
	form, err := c.MultipartForm()
	if err != nil {
		logger.Error("Failed to parse multipart form", zap.Error(err))
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid multipart form",
		})
	}

	files := form.File["files"]
	if len(files) == 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "At least one file is required",
		})
	}

	var batch []ingestion.BatchFile
	var outcomes []ingestion.FileOutcome

	for _, fileHeader := range files {
		if fileHeader.Size > h.maxFileSize {
			outcomes = append(outcomes, ingestion.FileOutcome{
				Filename: fileHeader.Filename,
				Status:   "error",
				Error:    "file exceeds maximum size",
			})
			continue
		}

		f, err := fileHeader.Open()
		if err != nil {
			outcomes = append(outcomes, ingestion.FileOutcome{
				Filename: fileHeader.Filename,
				Status:   "error",
				Error:    "failed to open file",
			})
			continue
		}

		data, err := io.ReadAll(f)
		f.Close()
		if err != nil {
			outcomes = append(outcomes, ingestion.FileOutcome{
				Filename: fileHeader.Filename,
				Status:   "error",
				Error:    "failed to read file",
			})
			continue
		}

		batch = append(batch, ingestion.BatchFile{
			Filename: fileHeader.Filename,
			Data:     data,
		})
	}

	outcomes = append(outcomes, h.processor.IngestBatch(c.Context(), batch)...)

	return c.JSON(fiber.Map{
		"results": outcomes,
	})
}

func (h *DocumentHandler) ListDocuments(c *fiber.Ctx) error {
	docs, err := h.processor.List()
	if err != nil {
		logger.Error("Failed to list documents", zap.Error(err))
		return errorResponse(c, err)
	}

	if docs == nil {
		docs = []models.Document{}
	}

	return c.JSON(fiber.Map{
		"documents": docs,
	})
}

func (h *DocumentHandler) GetStats(c *fiber.Ctx) error {
	stats, err := h.processor.Stats(c.Context())
	if err != nil {
		logger.Error("Failed to get stats", zap.Error(err))
		return errorResponse(c, err)
	}

	return c.JSON(stats)
}

func (h *DocumentHandler) DeleteDocument(c *fiber.Ctx) error {
	filename := c.Params("filename")
	if filename == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Filename is required",
		})
	}

	removed, err := h.processor.Delete(c.Context(), filename)
	if err != nil {
		logger.Error("Failed to delete document",
			zap.String("filename", filename),
			zap.Error(err),
		)
		return errorResponse(c, err)
	}

	return c.JSON(fiber.Map{
		"filename":         filename,
		"segments_removed": removed,
	})
}

func (h *DocumentHandler) ClearDocuments(c *fiber.Ctx) error {
	if err := h.processor.Clear(c.Context()); err != nil {
		logger.Error("Failed to clear documents", zap.Error(err))
		return errorResponse(c, err)
	}

	return c.JSON(fiber.Map{
		"message": "All documents cleared",
	})
}
