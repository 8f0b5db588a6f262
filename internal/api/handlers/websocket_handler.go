package handlers

import (
	"context"

	"github.com/gofiber/websocket/v2"
	"go.uber.org/zap"

	"github.com/docqa/backend/internal/query"
	"github.com/docqa/backend/pkg/logger"
)

type WebSocketHandler struct {
	engine            *query.Engine
	maxQuestionLength int
}

func NewWebSocketHandler(engine *query.Engine, maxQuestionLength int) *WebSocketHandler {
	return &WebSocketHandler{
		engine:            engine,
		maxQuestionLength: maxQuestionLength,
	}
}

// HandleConnection serves streamed answers over one WebSocket connection.
// Each incoming question message produces the same event sequence as the SSE
// endpoint: sources, deltas, then done or error.
func (h *WebSocketHandler) HandleConnection(c *websocket.Conn) {
	logger.Info("WebSocket connection established")

	defer func() {
		c.Close()
		logger.Info("WebSocket connection closed")
	}()

	for {
		var msg struct {
			Type     string `json:"type"`
			Question string `json:"question"`
			TopK     int    `json:"top_k"`
		}

		err := c.ReadJSON(&msg)
		if err != nil {
			logger.Debug("WebSocket read ended", zap.Error(err))
			break
		}

		if msg.Type != "question" {
			continue
		}

		if msg.Question == "" || len(msg.Question) > h.maxQuestionLength {
			h.sendError(c, "Question must be non-empty and within the length limit")
			continue
		}

		if err := h.streamAnswer(c, msg.Question, msg.TopK); err != nil {
			logger.Error("Failed to stream answer", zap.Error(err))
			break
		}
	}
}

func (h *WebSocketHandler) streamAnswer(c *websocket.Conn, question string, topK int) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	events := h.engine.Stream(ctx, query.QueryRequest{
		Question: question,
		TopK:     topK,
	})

	for event := range events {
		if err := c.WriteJSON(event); err != nil {
			return err
		}
	}

	return nil
}

func (h *WebSocketHandler) sendError(c *websocket.Conn, errorMsg string) {
	msg := query.StreamEvent{
		Type:  query.EventError,
		Error: errorMsg,
	}

	c.WriteJSON(msg)
}
