package http

import (
	"net/http"
	"strconv"

	"promptbot/internal/entities"
	"promptbot/internal/usecases"

	"github.com/gin-gonic/gin"
)

type chatRequest struct {
	Text           string `json:"text" binding:"required"`
	PromptID       string `json:"promptId"`
	ConversationID string `json:"conversationId"`
}

// Chat runs the pipeline for an authenticated API caller. Nothing is delivered; the
// reply is the response body.
func (h *Handler) Chat(c *gin.Context) {
	var req chatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, entities.Reply{Error: "text is required"})
		return
	}
	if req.PromptID != "" && !ValidPromptID(req.PromptID) {
		c.JSON(http.StatusBadRequest, entities.Reply{Error: "invalid prompt id"})
		return
	}
	if !ValidateLength(req.Text, 1, MaxMessageLength) {
		c.JSON(http.StatusBadRequest, entities.Reply{Error: "message too long"})
		return
	}

	userID := c.GetInt(ctxUserID)
	sender := strconv.Itoa(userID)
	conversationID := ""
	if req.ConversationID != "" {
		// scoped to the caller so ids cannot collide across users
		conversationID = usecases.ChannelAPI + ":" + sender + ":" + SanitizeString(req.ConversationID)
	}

	result, err := h.deps.Pipeline.Run(c.Request.Context(), usecases.PipelineRequest{
		Message:        sanitizeIncoming(entities.IncomingMessage{From: sender, Text: req.Text}),
		PromptID:       req.PromptID,
		Channel:        usecases.ChannelAPI,
		ConversationID: conversationID,
		Credentials:    usecases.Credentials{UserID: userID},
	})
	if err != nil {
		writeRunError(c, err, result)
		return
	}
	c.JSON(http.StatusOK, result.Reply)
}
