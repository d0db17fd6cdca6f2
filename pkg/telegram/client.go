package telegram

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

// DefaultAPIHost is the production Bot API endpoint. Tests point the
// client at an httptest server instead.
const DefaultAPIHost = "https://api.telegram.org"

const defaultTimeout = 10 * time.Second

// Config holds Telegram client configuration.
type Config struct {
	Token   string
	APIHost string
	Timeout time.Duration
}

// Client is a minimal Bot API client: the service only ever calls
// sendMessage with HTML text and an optional inline link button.
type Client struct {
	token   string
	apiHost string
	http    *http.Client
}

// NewClient creates a Telegram client for the given bot token.
func NewClient(cfg Config) (*Client, error) {
	if strings.TrimSpace(cfg.Token) == "" {
		return nil, errors.New("telegram bot token is empty")
	}
	host := cfg.APIHost
	if host == "" {
		host = DefaultAPIHost
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{
		token:   cfg.Token,
		apiHost: strings.TrimRight(host, "/"),
		http:    &http.Client{Timeout: timeout},
	}, nil
}

type sendMessageRequest struct {
	ChatID      string       `json:"chat_id"`
	Text        string       `json:"text"`
	ParseMode   string       `json:"parse_mode"`
	ReplyMarkup *replyMarkup `json:"reply_markup,omitempty"`
}

type replyMarkup struct {
	InlineKeyboard [][]inlineButton `json:"inline_keyboard"`
}

type inlineButton struct {
	Text string `json:"text"`
	URL  string `json:"url"`
}

type sendMessageResponse struct {
	OK          bool   `json:"ok"`
	Description string `json:"description"`
	Result      struct {
		MessageID int64 `json:"message_id"`
	} `json:"result"`
}

// SendMessage delivers one HTML-formatted message to a chat. A
// non-empty link becomes an inline button under the message. Returns
// the Telegram message id on success.
func (c *Client) SendMessage(ctx context.Context, chatID, text, link string) (int64, error) {
	payload := sendMessageRequest{
		ChatID:    chatID,
		Text:      text,
		ParseMode: "HTML",
	}
	if link != "" {
		payload.ReplyMarkup = &replyMarkup{
			InlineKeyboard: [][]inlineButton{{{Text: "Открыть", URL: link}}},
		}
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return 0, fmt.Errorf("failed to encode sendMessage payload: %w", err)
	}

	url := fmt.Sprintf("%s/bot%s/sendMessage", c.apiHost, c.token)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return 0, fmt.Errorf("failed to build sendMessage request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, fmt.Errorf("sendMessage request failed: %w", err)
	}
	defer resp.Body.Close()

	var out sendMessageResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil && resp.StatusCode == http.StatusOK {
		return 0, fmt.Errorf("failed to decode sendMessage response: %w", err)
	}

	if resp.StatusCode != http.StatusOK || !out.OK {
		desc := out.Description
		if desc == "" {
			desc = resp.Status
		}
		return 0, fmt.Errorf("telegram sendMessage failed: %s", desc)
	}

	return out.Result.MessageID, nil
}
