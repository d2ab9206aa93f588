package notify

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTelegramSink_Send(t *testing.T) {
	var got telegramMessage
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/botabc123/sendMessage", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Write([]byte(`{"ok":true,"result":{"message_id":99}}`))
	}))
	defer srv.Close()

	sink := NewTelegramSink(srv.URL, "abc123")
	require.True(t, sink.Configured())
	require.NoError(t, sink.Send(context.Background(), "42", "<b>hi</b>"))

	assert.Equal(t, "42", got.ChatID)
	assert.Equal(t, "<b>hi</b>", got.Text)
	assert.Equal(t, "HTML", got.ParseMode)
	assert.True(t, got.DisableWebPagePreview)
}

func TestTelegramSink_Errors(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantErr string
	}{
		{"api description", http.StatusBadRequest, `{"ok":false,"description":"Bad Request: chat not found"}`, "Bad Request: chat not found"},
		{"not ok without description", http.StatusOK, `{"ok":false}`, "telegram api error (200)"},
		{"invalid json", http.StatusBadGateway, `<html>`, "decode response (status 502)"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			err := NewTelegramSink(srv.URL, "abc123").Send(context.Background(), "42", "hi")
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestTelegramSink_NotConfigured(t *testing.T) {
	for _, token := range []string{"", "  ", placeholderToken} {
		sink := NewTelegramSink("", token)
		assert.False(t, sink.Configured())
		assert.Error(t, sink.Send(context.Background(), "42", "hi"))
	}
}

func TestTelegramSink_MissingRecipient(t *testing.T) {
	err := NewTelegramSink("", "abc123").Send(context.Background(), "", "hi")
	assert.EqualError(t, err, "chat id is required")
}
