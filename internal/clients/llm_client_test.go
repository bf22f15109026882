package clients

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func completion(content string) string {
	payload, _ := json.Marshal(map[string]any{
		"id":    "cmpl-1",
		"model": "test-model",
		"choices": []map[string]any{
			{"index": 0, "message": map[string]string{"role": "assistant", "content": content}, "finish_reason": "stop"},
		},
	})
	return string(payload)
}

func newTestClient(url string, opts ...Option) *OpenAICompatibleClient {
	opts = append([]Option{WithRetryDelay(time.Millisecond), WithMaxRetries(2)}, opts...)
	return NewOpenAICompatibleClient(url, "secret", "test-model", opts...)
}

func TestChat_SendsMessagesAndReturnsContent(t *testing.T) {
	var got chatRequest
	var auth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(completion("Market Structure: higher highs")))
	}))
	defer srv.Close()

	out, err := newTestClient(srv.URL).Chat(context.Background(), "be careful", "analyse")
	require.NoError(t, err)
	assert.Equal(t, "Market Structure: higher highs", out)
	assert.Equal(t, "Bearer secret", auth)
	assert.Equal(t, "test-model", got.Model)
	require.Len(t, got.Messages, 2)
	assert.Equal(t, "system", got.Messages[0].Role)
	assert.Equal(t, "be careful", got.Messages[0].Content)
	assert.Equal(t, "analyse", got.Messages[1].Content)
}

func TestChatWithImage_EncodesDataURL(t *testing.T) {
	var raw map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&raw))
		_, _ = w.Write([]byte(completion("Chart Type: Candlestick")))
	}))
	defer srv.Close()

	out, err := newTestClient(srv.URL).ChatWithImage(context.Background(), "", "describe", []byte("png-bytes"), "image/png")
	require.NoError(t, err)
	assert.Equal(t, "Chart Type: Candlestick", out)

	messages := raw["messages"].([]any)
	require.Len(t, messages, 1)
	parts := messages[0].(map[string]any)["content"].([]any)
	require.Len(t, parts, 2)
	assert.Equal(t, "describe", parts[0].(map[string]any)["text"])
	url := parts[1].(map[string]any)["image_url"].(map[string]any)["url"].(string)
	assert.Equal(t, "data:image/png;base64,cG5nLWJ5dGVz", url)
}

func TestChatWithImage_EmptyImage(t *testing.T) {
	_, err := newTestClient("http://unused").ChatWithImage(context.Background(), "", "describe", nil, "image/png")
	assert.ErrorIs(t, err, ErrEmptyImage)
}

func TestChat_EmptyAPIKey(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
	}))
	defer srv.Close()

	c := NewOpenAICompatibleClient(srv.URL, "", "m")
	_, err := c.Chat(context.Background(), "", "hi")
	assert.True(t, errors.Is(err, ErrEmptyAPIKey))
	assert.Zero(t, atomic.LoadInt32(&calls))
}

func TestChat_StripsThinking(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(completion("<think>\nlet me see\n</think>\n\nMomentum Analysis: fading")))
	}))
	defer srv.Close()

	out, err := newTestClient(srv.URL).Chat(context.Background(), "", "x")
	require.NoError(t, err)
	assert.Equal(t, "Momentum Analysis: fading", out)
}

func TestChat_RetryPolicy(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		wantCalls int32
	}{
		{name: "server error is retried", status: http.StatusBadGateway, wantCalls: 3},
		{name: "rate limit is retried", status: http.StatusTooManyRequests, wantCalls: 3},
		{name: "bad request is not retried", status: http.StatusBadRequest, wantCalls: 1},
		{name: "not found is not retried", status: http.StatusNotFound, wantCalls: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var calls int32
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				atomic.AddInt32(&calls, 1)
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(`{"error":"nope"}`))
			}))
			defer srv.Close()

			_, err := newTestClient(srv.URL).Chat(context.Background(), "", "x")
			require.Error(t, err)

			var statusErr *StatusError
			require.True(t, errors.As(err, &statusErr))
			assert.Equal(t, tt.status, statusErr.StatusCode)
			assert.Equal(t, tt.wantCalls, atomic.LoadInt32(&calls))
		})
	}
}

func TestChat_RecoversAfterTransientFailure(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(completion("ok")))
	}))
	defer srv.Close()

	out, err := newTestClient(srv.URL).Chat(context.Background(), "", "x")
	require.NoError(t, err)
	assert.Equal(t, "ok", out)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestChat_ResponseErrors(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantErr string
	}{
		{name: "no choices", body: `{"choices":[]}`, wantErr: "no choices"},
		{name: "api error", body: `{"error":{"message":"model overloaded","type":"server"}}`, wantErr: "model overloaded"},
		{name: "invalid json", body: `not json`, wantErr: "unmarshal"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			_, err := newTestClient(srv.URL, WithMaxRetries(0)).Chat(context.Background(), "", "x")
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestChat_ContextCancelled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := newTestClient(srv.URL).Chat(ctx, "", "x")
	require.Error(t, err)
}

func TestStripThinking(t *testing.T) {
	assert.Equal(t, "answer", StripThinking("<think>a</think>answer"))
	assert.Equal(t, "a b", StripThinking("a <think>x\ny</think>b"))
	assert.Equal(t, "before  after", StripThinking("before <think>1</think> <think>2</think>after"))
	assert.Equal(t, "no tags", StripThinking("  no tags  "))
	assert.True(t, strings.HasPrefix(StripThinking("<think>x</think>\nSection"), "Section"))
}

func TestNewOpenAICompatibleClient_Defaults(t *testing.T) {
	c := NewOpenAICompatibleClient("", "k", "m", WithTimeout(5*time.Second))
	assert.Equal(t, DefaultAPIURL, c.apiURL)
	assert.Equal(t, 5*time.Second, c.httpClient.Timeout)
	assert.Equal(t, "m", c.Model())
	assert.Equal(t, defaultMaxRetries, c.maxRetries)
}
