package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "hedge-mcp/internal/common/errors"
	"hedge-mcp/internal/common/logger"
)

func newTestClient(baseURL string, maxRetries int) *Client {
	return NewClient(&Config{
		BaseURL:    baseURL,
		APIKey:     "test-key",
		Timeout:    2 * time.Second,
		MaxRetries: maxRetries,
	}, logger.NewNoOpLogger())
}

func TestComplete(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat-messages", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		var body map[string]interface{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "summarize HKD exposure", body["query"])
		assert.NotNil(t, body["context"])

		json.NewEncoder(w).Encode(map[string]string{"answer": "HKD exposure is 75% utilized"})
	}))
	defer server.Close()

	c := newTestClient(server.URL, 0)
	answer, err := c.Complete(context.Background(), "summarize HKD exposure",
		map[string]interface{}{"positions": []string{}})
	require.NoError(t, err)
	assert.Equal(t, "HKD exposure is 75% utilized", answer)
}

func TestCompleteRetriesThenSucceeds(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		json.NewEncoder(w).Encode(map[string]string{"answer": "ok"})
	}))
	defer server.Close()

	c := newTestClient(server.URL, 3)
	answer, err := c.Complete(context.Background(), "hello", nil)
	require.NoError(t, err)
	assert.Equal(t, "ok", answer)
	assert.Equal(t, int32(3), calls.Load())
}

func TestCompleteExhaustsRetries(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	c := newTestClient(server.URL, 1)
	_, err := c.Complete(context.Background(), "hello", nil)
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrCodeLLMFailed, apperrors.Normalize(err).Code)
}

func TestCompleteTimeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
		json.NewEncoder(w).Encode(map[string]string{"answer": "too late"})
	}))
	defer server.Close()

	c := newTestClient(server.URL, 0)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := c.Complete(ctx, "hello", nil)
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrCodeLLMTimeout, apperrors.Normalize(err).Code)
}

func TestCompleteBadJSON(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("not json"))
	}))
	defer server.Close()

	c := newTestClient(server.URL, 0)
	_, err := c.Complete(context.Background(), "hello", nil)
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrCodeLLMFailed, apperrors.Normalize(err).Code)
}
