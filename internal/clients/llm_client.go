package clients

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/vadiminshakov/chartsense/pkg/retrier"
)

const (
	// DefaultAPIURL is the Hugging Face OpenAI-compatible router.
	DefaultAPIURL = "https://router.huggingface.co/v1/chat/completions"

	defaultTimeout    = 60 * time.Second
	defaultMaxRetries = 2
	defaultRetryDelay = 2 * time.Second
	defaultMaxTokens  = 2048
	maxErrorBody      = 512
)

var (
	// ErrEmptyAPIKey is returned before any request when no API key is configured.
	ErrEmptyAPIKey = errors.New("LLM API key is empty")
	// ErrEmptyImage is returned by ChatWithImage for a zero-length image.
	ErrEmptyImage = errors.New("image payload is empty")
	// ErrNoChoices is returned when the API answers without any completion.
	ErrNoChoices = errors.New("LLM API returned no choices")
)

var thinkBlock = regexp.MustCompile(`(?s)<think>.*?</think>`)

// ChatClient is the model surface the pipeline depends on.
type ChatClient interface {
	Chat(ctx context.Context, system, user string) (string, error)
	ChatWithImage(ctx context.Context, system, prompt string, image []byte, mimeType string) (string, error)
	Model() string
}

// StatusError is a non-200 answer from the API.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("LLM API returned status %d: %s", e.StatusCode, e.Body)
}

// Retryable reports whether the request may succeed when repeated.
func (e *StatusError) Retryable() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= http.StatusInternalServerError
}

// OpenAICompatibleClient talks to any OpenAI-compatible chat-completions endpoint.
type OpenAICompatibleClient struct {
	apiURL      string
	apiKey      string
	model       string
	httpClient  *http.Client
	logger      *zap.Logger
	maxRetries  int
	retryDelay  time.Duration
	temperature float64
	maxTokens   int
}

// Option configures an OpenAICompatibleClient.
type Option func(*OpenAICompatibleClient)

// WithTimeout sets the per-request HTTP timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *OpenAICompatibleClient) {
		if d > 0 {
			c.httpClient.Timeout = d
		}
	}
}

// WithMaxRetries sets how many times a failed request is repeated.
func WithMaxRetries(n int) Option {
	return func(c *OpenAICompatibleClient) {
		c.maxRetries = n
	}
}

// WithRetryDelay sets the initial backoff between attempts.
func WithRetryDelay(d time.Duration) Option {
	return func(c *OpenAICompatibleClient) {
		c.retryDelay = d
	}
}

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *OpenAICompatibleClient) {
		if h != nil {
			c.httpClient = h
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(c *OpenAICompatibleClient) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithTemperature sets the sampling temperature.
func WithTemperature(t float64) Option {
	return func(c *OpenAICompatibleClient) {
		c.temperature = t
	}
}

// WithMaxTokens caps the completion length.
func WithMaxTokens(n int) Option {
	return func(c *OpenAICompatibleClient) {
		if n > 0 {
			c.maxTokens = n
		}
	}
}

// NewOpenAICompatibleClient creates a new client for OpenAI-compatible APIs.
// An empty apiURL selects DefaultAPIURL.
func NewOpenAICompatibleClient(apiURL, apiKey, model string, opts ...Option) *OpenAICompatibleClient {
	if apiURL == "" {
		apiURL = DefaultAPIURL
	}
	c := &OpenAICompatibleClient{
		apiURL:      apiURL,
		apiKey:      apiKey,
		model:       model,
		httpClient:  &http.Client{Timeout: defaultTimeout},
		logger:      zap.NewNop(),
		maxRetries:  defaultMaxRetries,
		retryDelay:  defaultRetryDelay,
		temperature: 0.3,
		maxTokens:   defaultMaxTokens,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Model returns the configured model id.
func (c *OpenAICompatibleClient) Model() string {
	return c.model
}

type chatRequest struct {
	Model       string    `json:"model"`
	Messages    []message `json:"messages"`
	Temperature float64   `json:"temperature"`
	MaxTokens   int       `json:"max_tokens,omitempty"`
}

// message content is either a plain string or a list of contentPart.
type message struct {
	Role    string `json:"role"`
	Content any    `json:"content"`
}

type contentPart struct {
	Type     string    `json:"type"`
	Text     string    `json:"text,omitempty"`
	ImageURL *imageURL `json:"image_url,omitempty"`
}

type imageURL struct {
	URL string `json:"url"`
}

type chatResponse struct {
	ID      string    `json:"id"`
	Model   string    `json:"model"`
	Choices []choice  `json:"choices"`
	Usage   usage     `json:"usage"`
	Error   *apiError `json:"error,omitempty"`
}

type choice struct {
	Index        int             `json:"index"`
	Message      responseMessage `json:"message"`
	FinishReason string          `json:"finish_reason"`
}

type responseMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

type apiError struct {
	Message string `json:"message"`
	Type    string `json:"type"`
	Code    any    `json:"code"`
}

// Chat sends a text-only conversation and returns the cleaned completion.
func (c *OpenAICompatibleClient) Chat(ctx context.Context, system, user string) (string, error) {
	messages := make([]message, 0, 2)
	if system != "" {
		messages = append(messages, message{Role: "system", Content: system})
	}
	messages = append(messages, message{Role: "user", Content: user})

	return c.complete(ctx, messages)
}

// ChatWithImage sends the prompt together with an inline base64 image.
func (c *OpenAICompatibleClient) ChatWithImage(ctx context.Context, system, prompt string, image []byte, mimeType string) (string, error) {
	if len(image) == 0 {
		return "", ErrEmptyImage
	}
	if mimeType == "" {
		mimeType = "image/png"
	}

	dataURL := "data:" + mimeType + ";base64," + base64.StdEncoding.EncodeToString(image)
	messages := make([]message, 0, 2)
	if system != "" {
		messages = append(messages, message{Role: "system", Content: system})
	}
	messages = append(messages, message{
		Role: "user",
		Content: []contentPart{
			{Type: "text", Text: prompt},
			{Type: "image_url", ImageURL: &imageURL{URL: dataURL}},
		},
	})

	return c.complete(ctx, messages)
}

func (c *OpenAICompatibleClient) complete(ctx context.Context, messages []message) (string, error) {
	if c.apiKey == "" {
		return "", ErrEmptyAPIKey
	}

	reqBody := chatRequest{
		Model:       c.model,
		Messages:    messages,
		Temperature: c.temperature,
		MaxTokens:   c.maxTokens,
	}

	r := retrier.New(
		retrier.WithMaxRetries(c.maxRetries),
		retrier.WithInitialInterval(c.retryDelay),
		retrier.WithMaxInterval(4*c.retryDelay+time.Second),
		retrier.WithRetryIf(isRetryable),
		retrier.WithOnRetry(func(attempt int, err error) {
			c.logger.Warn("retrying LLM request",
				zap.String("model", c.model),
				zap.Int("attempt", attempt),
				zap.Error(err))
		}),
	)

	started := time.Now()
	content, err := retrier.DoWithData(r, ctx, func(ctx context.Context) (string, error) {
		return c.sendRequest(ctx, reqBody)
	})
	if err != nil {
		c.logger.Error("LLM request failed", zap.String("model", c.model), zap.Error(err))
		return "", errors.Wrapf(err, "model %s", c.model)
	}

	c.logger.Debug("LLM request completed",
		zap.String("model", c.model),
		zap.Duration("elapsed", time.Since(started)),
		zap.Int("chars", len(content)))

	return content, nil
}

func (c *OpenAICompatibleClient) sendRequest(ctx context.Context, reqBody chatRequest) (string, error) {
	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return "", errors.Wrap(err, "failed to marshal request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiURL, bytes.NewBuffer(jsonData))
	if err != nil {
		return "", errors.Wrap(err, "failed to create HTTP request")
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", errors.Wrap(err, "HTTP request failed")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", errors.Wrap(err, "failed to read response body")
	}

	if resp.StatusCode != http.StatusOK {
		return "", &StatusError{StatusCode: resp.StatusCode, Body: truncate(string(body), maxErrorBody)}
	}

	var chatResp chatResponse
	if err := json.Unmarshal(body, &chatResp); err != nil {
		return "", errors.Wrap(err, "failed to unmarshal response")
	}

	if chatResp.Error != nil {
		return "", errors.Errorf("LLM API error: %s (type: %s)", chatResp.Error.Message, chatResp.Error.Type)
	}

	if len(chatResp.Choices) == 0 {
		return "", ErrNoChoices
	}

	return StripThinking(chatResp.Choices[0].Message.Content), nil
}

// StripThinking removes <think>...</think> blocks emitted by reasoning models.
func StripThinking(text string) string {
	return strings.TrimSpace(thinkBlock.ReplaceAllString(text, ""))
}

func isRetryable(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return statusErr.Retryable()
	}
	return true
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
