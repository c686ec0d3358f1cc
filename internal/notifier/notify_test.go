package notifier

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNotify_PostsJSON(t *testing.T) {
	var got WebhookNotify
	var contentType string
	server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		contentType = request.Header.Get("Content-Type")
		require.NoError(t, json.NewDecoder(request.Body).Decode(&got))
		writer.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	notifier := NewWebhookNotifier(server.URL, time.Second)
	err := notifier.Notify(context.Background(), WebhookNotify{
		UserID: "u1",
		Event:  EventRefreshFromNewIP,
		NewIP:  "10.0.0.2",
		OldIP:  "10.0.0.1",
	})
	require.NoError(t, err)

	assert.Equal(t, "application/json", contentType)
	assert.Equal(t, "u1", got.UserID)
	assert.Equal(t, EventRefreshFromNewIP, got.Event)
	assert.Equal(t, "10.0.0.2", got.NewIP)
	assert.NotEmpty(t, got.TimeStamp)
}

func TestNotify_ErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		writer.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	err := NewWebhookNotifier(server.URL, time.Second).Notify(context.Background(), WebhookNotify{Event: EventRefreshTokenReuse})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "502")
}

func TestNotify_EmptyURLIsNoop(t *testing.T) {
	assert.NoError(t, NewWebhookNotifier("", time.Second).Notify(context.Background(), WebhookNotify{}))

	var nilNotifier *WebhookNotifier
	assert.NoError(t, nilNotifier.Notify(context.Background(), WebhookNotify{}))
}

func TestNotify_Timeout(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		select {
		case <-release:
		case <-request.Context().Done():
		}
	}))
	defer server.Close()
	defer close(release)

	err := NewWebhookNotifier(server.URL, 50*time.Millisecond).Notify(context.Background(), WebhookNotify{Event: EventRefreshTokenReuse})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ошибка отправки webhook")
}
