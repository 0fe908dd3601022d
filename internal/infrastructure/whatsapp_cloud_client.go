package infrastructure

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"promptbot/internal/entities"
)

// WhatsAppCloudClient delivers replies through the WhatsApp Business Cloud API.
type WhatsAppCloudClient struct {
	apiURL      string
	senderID    string
	bearerToken string
	httpClient  *http.Client
}

func NewWhatsAppCloudClient(apiURL, senderID, bearerToken string) *WhatsAppCloudClient {
	return &WhatsAppCloudClient{
		apiURL:      strings.TrimRight(apiURL, "/"),
		senderID:    senderID,
		bearerToken: bearerToken,
		httpClient:  &http.Client{Timeout: 15 * time.Second},
	}
}

type cloudTextMessage struct {
	MessagingProduct string `json:"messaging_product"`
	RecipientType    string `json:"recipient_type"`
	To               string `json:"to"`
	Type             string `json:"type"`
	Text             struct {
		Body string `json:"body"`
	} `json:"text"`
	BizOpaqueCallbackData string `json:"biz_opaque_callback_data,omitempty"`
}

// Send posts a text message to {apiURL}/{senderID}/messages. Any non-2xx status is a failure.
func (w *WhatsAppCloudClient) Send(ctx context.Context, msg entities.OutgoingMessage) error {
	payload := cloudTextMessage{
		MessagingProduct:      "whatsapp",
		RecipientType:         "individual",
		To:                    msg.To,
		Type:                  "text",
		BizOpaqueCallbackData: msg.CorrelationID,
	}
	payload.Text.Body = msg.Text

	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}

	url := fmt.Sprintf("%s/%s/messages", w.apiURL, w.senderID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+w.bearerToken)
	req.Header.Set("Content-Type", "application/json")

	resp, err := w.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("send message: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("send message: status %d: %s", resp.StatusCode, truncate(string(body), 200))
	}
	return nil
}
