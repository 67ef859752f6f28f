package notify

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	json "github.com/goccy/go-json"
)

// DefaultTelegramURL is the Telegram Bot API base URL.
const DefaultTelegramURL = "https://api.telegram.org"

// TelegramSender delivers notifications via the Telegram Bot API.
type TelegramSender struct {
	baseURL string
	token   string
	chatID  string
	topicID int64
	client  *http.Client
}

type telegramMessage struct {
	ChatID          string `json:"chat_id"`
	Text            string `json:"text"`
	MessageThreadID int64  `json:"message_thread_id,omitempty"`
}

// NewTelegramSender creates a TelegramSender posting to chatID, optionally
// inside a forum topic when topicID is non-zero.
func NewTelegramSender(baseURL, token, chatID string, topicID int64) *TelegramSender {
	if baseURL == "" {
		baseURL = DefaultTelegramURL
	}

	return &TelegramSender{
		baseURL: baseURL,
		token:   token,
		chatID:  chatID,
		topicID: topicID,
		client:  &http.Client{Timeout: 10 * time.Second},
	}
}

// Send posts a plain-text message to the configured chat.
func (t *TelegramSender) Send(ctx context.Context, title, message string) error {
	url := fmt.Sprintf("%s/bot%s/sendMessage", t.baseURL, t.token)

	body, err := json.Marshal(telegramMessage{
		ChatID:          t.chatID,
		Text:            title + "\n" + message,
		MessageThreadID: t.topicID,
	})
	if err != nil {
		return fmt.Errorf("telegram: marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("telegram: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.client.Do(req)
	if err != nil {
		return fmt.Errorf("telegram: send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("telegram: unexpected status %d: %s", resp.StatusCode, string(respBody))
	}

	return nil
}

// Name returns the sender identifier.
func (t *TelegramSender) Name() string {
	return "telegram"
}
