// Package llm calls the chat completion endpoint used when the local
// pipeline cannot resolve a prompt on its own.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	apperrors "hedge-mcp/internal/common/errors"
	"hedge-mcp/internal/common/logger"
)

// Config tunes the upstream call. Timeout bounds the whole exchange,
// retries included.
type Config struct {
	BaseURL    string
	APIKey     string
	Timeout    time.Duration
	MaxRetries int
}

type Client struct {
	config *Config
	client *http.Client
	logger logger.Logger
}

func NewClient(config *Config, log logger.Logger) *Client {
	return &Client{
		config: config,
		client: &http.Client{
			Timeout: config.Timeout,
		},
		logger: log.WithFields(map[string]interface{}{"component": "llm"}),
	}
}

// Complete sends the user query plus a context blob of fetched rows to
// the chat endpoint and returns the structured answer text. Timeouts
// and failures come back as typed errors; the caller decides whether a
// missing answer is fatal.
func (c *Client) Complete(ctx context.Context, query string, contextBlob map[string]interface{}) (string, error) {
	requestBody := map[string]interface{}{
		"query": query,
	}
	if len(contextBlob) > 0 {
		requestBody["context"] = contextBlob
	}

	body, _ := json.Marshal(requestBody)

	var resp *http.Response
	var lastErr error

	for attempt := 0; attempt <= c.config.MaxRetries; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(100*(1<<(attempt-1))) * time.Millisecond
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return "", apperrors.NewLLMTimeoutError()
			}
		}

		req, err := http.NewRequestWithContext(ctx, "POST", c.config.BaseURL+"/v1/chat-messages", bytes.NewBuffer(body))
		if err != nil {
			return "", apperrors.NewLLMFailedError(err)
		}
		req.Header.Set("Content-Type", "application/json")
		if c.config.APIKey != "" {
			req.Header.Set("Authorization", "Bearer "+c.config.APIKey)
		}

		resp, lastErr = c.client.Do(req)

		// If the context expired during the request, report a timeout
		// immediately instead of burning the remaining retries.
		if ctx.Err() != nil ||
			errors.Is(lastErr, context.DeadlineExceeded) ||
			errors.Is(lastErr, context.Canceled) {
			return "", apperrors.NewLLMTimeoutError()
		}

		if lastErr == nil {
			if resp.StatusCode == http.StatusOK {
				break
			}
			resp.Body.Close()
			lastErr = fmt.Errorf("status %d", resp.StatusCode)
			resp = nil
		}
	}

	if lastErr != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return "", apperrors.NewLLMTimeoutError()
		}
		return "", apperrors.NewLLMFailedError(lastErr)
	}
	if resp == nil {
		return "", apperrors.NewLLMFailedError(fmt.Errorf("no successful response after retries"))
	}
	defer resp.Body.Close()

	var apiResponse struct {
		Answer string `json:"answer"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&apiResponse); err != nil {
		return "", apperrors.NewLLMFailedError(fmt.Errorf("decode error: %v", err))
	}

	c.logger.Info("llm completion succeeded", map[string]interface{}{
		"answerLength": len(apiResponse.Answer),
	})

	return apiResponse.Answer, nil
}
