package handlers

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/docqa/backend/internal/query"
	"github.com/docqa/backend/internal/storage/models"
	"github.com/docqa/backend/pkg/apperr"
	"github.com/docqa/backend/pkg/logger"
)

type QueryHandler struct {
	engine *query.Engine
}

func NewQueryHandler(engine *query.Engine) *QueryHandler {
	return &QueryHandler{
		engine: engine,
	}
}

func (h *QueryHandler) HandleQuery(c *fiber.Ctx) error {
	req, ok := parseQueryRequest(c)
	if !ok {
		return nil
	}

	response, err := h.engine.Answer(c.Context(), req)
	if err != nil {
		logger.Error("Failed to process query", zap.Error(err))
		return errorResponse(c, err)
	}

	return c.JSON(response)
}

// HandleQueryStream answers over server-sent events. Event order is sources,
// deltas, then done or error; the connection closes after the terminal event.
func (h *QueryHandler) HandleQueryStream(c *fiber.Ctx) error {
	req, ok := parseQueryRequest(c)
	if !ok {
		return nil
	}

	c.Set("Content-Type", "text/event-stream")
	c.Set("Cache-Control", "no-cache")
	c.Set("Connection", "keep-alive")

	// The fiber context is released once the handler returns; the stream
	// writer must not touch it. Detach the pipeline onto its own context.
	ctx, cancel := context.WithCancel(context.Background())
	events := h.engine.Stream(ctx, req)

	c.Context().SetBodyStreamWriter(func(w *bufio.Writer) {
		defer cancel()

		for event := range events {
			data, err := json.Marshal(event)
			if err != nil {
				logger.Error("Failed to marshal stream event", zap.Error(err))
				return
			}

			fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event.Type, data)
			if err := w.Flush(); err != nil {
				// Client went away; stop the pipeline.
				return
			}
		}
	})

	return nil
}

func (h *QueryHandler) GetQueryHistory(c *fiber.Ctx) error {
	limit := c.QueryInt("limit", 20)

	records, err := h.engine.History(limit)
	if err != nil {
		logger.Error("Failed to get query history", zap.Error(err))
		return errorResponse(c, err)
	}

	if records == nil {
		records = []models.QueryRecord{}
	}

	return c.JSON(fiber.Map{
		"history": records,
	})
}

// parseQueryRequest extracts the query request. It writes the error response
// itself and reports false when the request is unusable.
func parseQueryRequest(c *fiber.Ctx) (query.QueryRequest, bool) {
	// The validation middleware has already parsed and sanitized the body.
	if body, ok := c.Locals("sanitized_body").(map[string]interface{}); ok {
		req := query.QueryRequest{}
		if q, ok := body["question"].(string); ok {
			req.Question = q
		}
		if k, ok := body["top_k"].(float64); ok {
			req.TopK = int(k)
		}
		return req, true
	}

	var req query.QueryRequest
	if err := c.BodyParser(&req); err != nil {
		c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
		return req, false
	}
	if req.Question == "" {
		c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Question is required",
		})
		return req, false
	}
	return req, true
}

func errorResponse(c *fiber.Ctx, err error) error {
	status := fiber.StatusInternalServerError

	switch apperr.KindOf(err) {
	case apperr.KindInvalidInput, apperr.KindUnsupportedFormat:
		status = fiber.StatusBadRequest
	case apperr.KindNotFound:
		status = fiber.StatusNotFound
	case apperr.KindAllProvidersFailed:
		status = fiber.StatusBadGateway
	}

	return c.Status(status).JSON(fiber.Map{
		"error": err.Error(),
		"kind":  apperr.KindOf(err),
	})
}
