package line

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/wonny/twscan/pkg/httputil"
	"github.com/wonny/twscan/pkg/logger"
)

// MaxTextLength is the Messaging API limit for one text message
const MaxTextLength = 5000

// Client pushes text messages through the LINE Messaging API
// ⭐ SSOT: LINE push 호출은 이 클라이언트에서만
type Client struct {
	httpClient *httputil.Client
	logger     *logger.Logger
	baseURL    string
	token      string
	userID     string
}

// NewClient creates a LINE push client
func NewClient(httpClient *httputil.Client, log *logger.Logger, baseURL, token, userID string) *Client {
	if baseURL == "" {
		baseURL = "https://api.line.me"
	}
	return &Client{
		httpClient: httpClient,
		logger:     log.WithField("notifier", "line"),
		baseURL:    strings.TrimRight(baseURL, "/"),
		token:      token,
		userID:     userID,
	}
}

// Name implements contracts.Notifier
func (c *Client) Name() string { return "line" }

type textMessage struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type pushRequest struct {
	To       string        `json:"to"`
	Messages []textMessage `json:"messages"`
}

// Send implements contracts.Notifier
func (c *Client) Send(ctx context.Context, text string) error {
	payload, err := json.Marshal(pushRequest{
		To:       c.userID,
		Messages: []textMessage{{Type: "text", Text: truncateRunes(text, MaxTextLength)}},
	})
	if err != nil {
		return fmt.Errorf("marshal push: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v2/bot/message/push", bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("create push request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("line push: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("line push: status %d: %s", resp.StatusCode, body)
	}

	c.logger.Debug("LINE message sent")
	return nil
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
