package line

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/twscan/pkg/config"
	"github.com/wonny/twscan/pkg/httputil"
	"github.com/wonny/twscan/pkg/logger"
)

func TestSend(t *testing.T) {
	var got pushRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v2/bot/message/push", r.URL.Path)
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Write([]byte(`{}`))
	}))
	defer server.Close()

	httpClient := httputil.New(&config.Config{}, logger.Nop()).DisableRetry()
	c := NewClient(httpClient, logger.Nop(), server.URL, "tok", "U123")

	require.NoError(t, c.Send(context.Background(), "📊 日報"))
	assert.Equal(t, "U123", got.To)
	require.Len(t, got.Messages, 1)
	assert.Equal(t, "text", got.Messages[0].Type)
	assert.Equal(t, "📊 日報", got.Messages[0].Text)
}

func TestSend_Error(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"message":"Authentication failed"}`))
	}))
	defer server.Close()

	httpClient := httputil.New(&config.Config{}, logger.Nop()).DisableRetry()
	c := NewClient(httpClient, logger.Nop(), server.URL, "bad", "U123")

	err := c.Send(context.Background(), "hi")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "401")
}

func TestTruncateRunes(t *testing.T) {
	long := strings.Repeat("綠", MaxTextLength+10)
	out := truncateRunes(long, MaxTextLength)

	assert.Equal(t, MaxTextLength, utf8.RuneCountInString(out))
	assert.Equal(t, "short", truncateRunes("short", MaxTextLength))
}
