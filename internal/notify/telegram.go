package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
)

const (
	DefaultTelegramAPIURL = "https://api.telegram.org"

	placeholderToken = "your_telegram_bot_token_here"
)

// TelegramSink sends HTML messages through the Telegram Bot API.
type TelegramSink struct {
	baseURL    string
	configured bool
	httpClient *http.Client
}

// NewTelegramSink creates a sink for the bot identified by token. An empty
// apiURL uses DefaultTelegramAPIURL.
func NewTelegramSink(apiURL, token string) *TelegramSink {
	if apiURL == "" {
		apiURL = DefaultTelegramAPIURL
	}
	token = strings.TrimSpace(token)
	return &TelegramSink{
		baseURL:    strings.TrimRight(apiURL, "/") + "/bot" + token,
		configured: token != "" && token != placeholderToken,
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
}

// Configured reports whether a real bot token was supplied.
func (s *TelegramSink) Configured() bool {
	return s.configured
}

type telegramMessage struct {
	ChatID                string `json:"chat_id"`
	Text                  string `json:"text"`
	ParseMode             string `json:"parse_mode"`
	DisableWebPagePreview bool   `json:"disable_web_page_preview"`
}

type telegramResponse struct {
	OK          bool   `json:"ok"`
	Description string `json:"description"`
	Result      struct {
		MessageID int64 `json:"message_id"`
	} `json:"result"`
}

// Send posts message to the chat identified by recipient.
func (s *TelegramSink) Send(ctx context.Context, recipient, message string) error {
	if !s.configured {
		return errors.New("telegram bot token not configured")
	}
	if recipient == "" {
		return errors.New("chat id is required")
	}

	body, err := json.Marshal(telegramMessage{
		ChatID:                recipient,
		Text:                  message,
		ParseMode:             "HTML",
		DisableWebPagePreview: true,
	})
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/sendMessage", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	var data telegramResponse
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		return fmt.Errorf("decode response (status %d): %w", resp.StatusCode, err)
	}
	if resp.StatusCode != http.StatusOK || !data.OK {
		if data.Description != "" {
			return errors.New(data.Description)
		}
		return fmt.Errorf("telegram api error (%d)", resp.StatusCode)
	}
	return nil
}
