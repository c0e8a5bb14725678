package telegram

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/wonny/twscan/pkg/httputil"
	"github.com/wonny/twscan/pkg/logger"
)

// MaxTextLength is the Bot API limit for one message
const MaxTextLength = 4096

// Client sends messages through the Telegram Bot API
type Client struct {
	httpClient *httputil.Client
	logger     *logger.Logger
	baseURL    string
	token      string
	chatID     string
}

// NewClient creates a Telegram client
func NewClient(httpClient *httputil.Client, log *logger.Logger, baseURL, token, chatID string) *Client {
	if baseURL == "" {
		baseURL = "https://api.telegram.org"
	}
	return &Client{
		httpClient: httpClient,
		logger:     log.WithField("notifier", "telegram"),
		baseURL:    strings.TrimRight(baseURL, "/"),
		token:      token,
		chatID:     chatID,
	}
}

// Name implements contracts.Notifier
func (c *Client) Name() string { return "telegram" }

// Send implements contracts.Notifier. Text is sent without parse mode.
func (c *Client) Send(ctx context.Context, text string) error {
	if r := []rune(text); len(r) > MaxTextLength {
		text = string(r[:MaxTextLength-1]) + "…"
	}

	payload := map[string]interface{}{
		"chat_id":                  c.chatID,
		"text":                     text,
		"disable_web_page_preview": true,
	}

	resp, err := c.httpClient.PostJSON(ctx, fmt.Sprintf("%s/bot%s/sendMessage", c.baseURL, c.token), payload)
	if err != nil {
		// the URL carries the token
		return fmt.Errorf("telegram sendMessage failed")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("telegram sendMessage: status %d: %s", resp.StatusCode, body)
	}

	c.logger.Debug("Telegram message sent")
	return nil
}
