package server

import (
	"context"
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/verdantiq/esgcopilot/internal/assistant"
)

// ChatService runs one turn of the retrieval-augmented conversation.
type ChatService interface {
	Chat(ctx context.Context, in assistant.ChatInput) (assistant.ChatOutput, error)
}

type ChatHandler struct {
	Assistant ChatService
}

func (h *ChatHandler) Register(g *echo.Group) {
	g.POST("/ai-chat", h.chat)
}

func (h *ChatHandler) chat(c echo.Context) error {
	var req struct {
		Message   string `json:"message"`
		TaskID    string `json:"taskId"`
		UserID    string `json:"userId"`
		SessionID string `json:"sessionId"`
		Company   string `json:"company"`
		FirstName string `json:"firstName"`
		LastName  string `json:"lastName"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	chatRequests.Inc()

	out, err := h.Assistant.Chat(c.Request().Context(), assistant.ChatInput{
		Message:   req.Message,
		TaskID:    req.TaskID,
		UserID:    req.UserID,
		SessionID: req.SessionID,
		Company:   req.Company,
		FirstName: req.FirstName,
		LastName:  req.LastName,
	})
	if err != nil {
		if errors.Is(err, assistant.ErrMissingMessage) {
			return echo.NewHTTPError(http.StatusBadRequest, "message required")
		}
		chatFailures.Inc()
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"response":        out.Response,
		"sourceDocuments": out.SourceDocuments,
		"question":        out.Question,
		"memoryType":      out.MemoryType,
	})
}
