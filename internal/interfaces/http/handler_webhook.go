package http

import (
	"net/http"
	"strings"

	"promptbot/internal/entities"
	"promptbot/internal/usecases"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

// webhookEnabled short-circuits every webhook route while the webhook is disabled.
func (h *Handler) webhookEnabled() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !h.deps.Webhook.Enabled {
			c.AbortWithStatusJSON(http.StatusServiceUnavailable, entities.Reply{Error: "webhook disabled"})
			return
		}
		c.Next()
	}
}

// VerifyWebhook answers the subscription handshake.
func (h *Handler) VerifyWebhook(c *gin.Context) {
	challenge, ok := h.deps.Verifier.Verify(
		c.Query("hub.mode"),
		c.Query("hub.verify_token"),
		c.Query("hub.challenge"),
	)
	if !ok {
		log.Warn().Str("mode", c.Query("hub.mode")).Msg("webhook verification rejected")
		c.Status(http.StatusForbidden)
		return
	}
	c.String(http.StatusOK, challenge)
}

// webhookResult is the outcome of one message of a multi-message body.
type webhookResult struct {
	MessageID string         `json:"messageId,omitempty"`
	Status    int            `json:"status"`
	Reply     entities.Reply `json:"reply"`
}

// ReceiveWebhook runs the pipeline for every text message in the body. The caller is
// identified by its bearer token when one is sent, otherwise by the sender's number.
// A single message answers with its own status and reply. A body with several messages
// runs each one independently and answers 200 with one result per message.
func (h *Handler) ReceiveWebhook(c *gin.Context) {
	body, err := c.GetRawData()
	if err != nil {
		c.JSON(http.StatusBadRequest, entities.Reply{Error: "unreadable body"})
		return
	}

	messages, promptID, err := parseInbound(body)
	if err != nil {
		c.JSON(http.StatusBadRequest, entities.Reply{Error: err.Error()})
		return
	}
	if q := c.Query("promptId"); q != "" {
		promptID = q
	}
	if promptID != "" && !ValidPromptID(promptID) {
		c.JSON(http.StatusBadRequest, entities.Reply{Error: "invalid prompt id"})
		return
	}
	if len(messages) == 0 {
		// status notifications carry no text
		c.JSON(http.StatusOK, entities.Reply{})
		return
	}

	token := bearerToken(c)
	if len(messages) == 1 {
		c.JSON(h.runInbound(c, messages[0], promptID, token))
		return
	}

	results := make([]webhookResult, 0, len(messages))
	for _, msg := range messages {
		status, reply := h.runInbound(c, msg, promptID, token)
		results = append(results, webhookResult{MessageID: msg.MessageID, Status: status, Reply: reply})
	}
	c.JSON(http.StatusOK, gin.H{"results": results})
}

func (h *Handler) runInbound(c *gin.Context, msg entities.IncomingMessage, promptID, token string) (int, entities.Reply) {
	msg = sanitizeIncoming(msg)
	if !ValidateLength(msg.Text, 0, MaxMessageLength) {
		return http.StatusBadRequest, entities.Reply{Error: "message too long"}
	}
	cred := usecases.Credentials{BearerToken: token}
	if token == "" {
		cred.Phone = msg.From
	}

	result, err := h.deps.Pipeline.Run(c.Request.Context(), usecases.PipelineRequest{
		Message:     msg,
		PromptID:    promptID,
		Channel:     usecases.ChannelWebhook,
		Credentials: cred,
		Deliver:     true,
	})
	if err != nil {
		return runErrorReply(err, result)
	}
	return http.StatusOK, result.Reply
}

type sendRequest struct {
	To            string `json:"to" binding:"required"`
	Text          string `json:"text" binding:"required"`
	CorrelationID string `json:"correlationId"`
}

// SendMessage pushes a message straight to the webhook channel without the pipeline.
func (h *Handler) SendMessage(c *gin.Context) {
	var req sendRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "to and text are required"})
		return
	}
	req.Text = SanitizeString(req.Text)
	if !ValidateLength(req.Text, 1, MaxMessageLength) || !ValidateLength(req.To, 1, MaxRecipientLen) {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "message too long"})
		return
	}
	if h.deps.Outbound == nil {
		c.JSON(http.StatusOK, gin.H{"success": false})
		return
	}

	err := h.deps.Outbound.Send(c.Request.Context(), entities.OutgoingMessage{
		To:            strings.TrimSpace(req.To),
		Text:          req.Text,
		CorrelationID: req.CorrelationID,
	})
	if err != nil {
		log.Error().Err(err).Int("user_id", c.GetInt(ctxUserID)).Msg("direct send failed")
		c.JSON(http.StatusOK, gin.H{"success": false})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}
