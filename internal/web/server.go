// Package web exposes the analysis pipeline over HTTP.
package web

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	"golang.org/x/crypto/acme/autocert"

	"github.com/vadiminshakov/chartsense/internal/domain"
	"github.com/vadiminshakov/chartsense/internal/services/chartimage"
	"github.com/vadiminshakov/chartsense/internal/services/chat"
	"github.com/vadiminshakov/chartsense/internal/services/orchestrator"
	"github.com/vadiminshakov/chartsense/internal/services/safety"
)

const (
	serviceName          = "chartsense"
	defaultPollInterval  = 2 * time.Second
	defaultMaxUpload     = chartimage.DefaultMaxBytes
	defaultRatePerSecond = 1.0
	defaultRateBurst     = 5
	maxValidateBody      = 1 << 20
	multipartOverhead    = 1 << 20
	defaultValidateScore = 0.5
)

// Analyzer runs the chart pipeline.
type Analyzer interface {
	Analyze(ctx context.Context, req orchestrator.Request) (*orchestrator.Result, error)
}

// TextValidator gates arbitrary text.
type TextValidator interface {
	ValidateAndSanitize(output string, confidence float64, strict bool) (bool, string, []string)
}

// Chatter answers follow-up questions about an analysis.
type Chatter interface {
	Reply(ctx context.Context, req chat.Request) (*chat.Reply, error)
}

// JournalReader reads journaled analysis events.
type JournalReader interface {
	EventsAfter(index uint64) ([]domain.AnalysisEventRecord, error)
}

// Server exposes the JSON API and the analysis event stream.
type Server struct {
	addr           string
	logger         *zap.Logger
	analyzer       Analyzer
	validator      TextValidator
	journal        JournalReader
	chat           Chatter
	limiter        *clientLimiter
	maxUpload      int64
	pollInterval   time.Duration
	visionModel    string
	reasoningModel string
	now            func() time.Time
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithRateLimit sets the per-client token bucket. rps <= 0 disables limiting.
func WithRateLimit(rps float64, burst int) Option {
	return func(s *Server) {
		s.limiter = newClientLimiter(rps, burst)
	}
}

// WithMaxUploadBytes caps the chart upload size.
func WithMaxUploadBytes(n int64) Option {
	return func(s *Server) {
		if n > 0 {
			s.maxUpload = n
		}
	}
}

// WithPollInterval sets how often the event stream polls the journal.
func WithPollInterval(d time.Duration) Option {
	return func(s *Server) {
		if d > 0 {
			s.pollInterval = d
		}
	}
}

// WithChat enables the follow-up chat endpoint.
func WithChat(c Chatter) Option {
	return func(s *Server) {
		s.chat = c
	}
}

// WithModels sets the model ids reported by the health endpoint.
func WithModels(vision, reasoning string) Option {
	return func(s *Server) {
		s.visionModel = domain.NormalizeModelName(vision)
		s.reasoningModel = domain.NormalizeModelName(reasoning)
	}
}

// NewServer creates a new web server instance. journal may be nil, which
// disables the event stream.
func NewServer(addr string, analyzer Analyzer, validator TextValidator, journal JournalReader, opts ...Option) *Server {
	s := &Server{
		addr:         addr,
		logger:       zap.NewNop(),
		analyzer:     analyzer,
		validator:    validator,
		journal:      journal,
		limiter:      newClientLimiter(defaultRatePerSecond, defaultRateBurst),
		maxUpload:    defaultMaxUpload,
		pollInterval: defaultPollInterval,
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Handler returns the routed API.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", s.handleRoot)
	mux.HandleFunc("GET /api/health", s.handleHealth)
	mux.Handle("POST /api/analyze", s.limiter.middleware(http.HandlerFunc(s.handleAnalyze)))
	mux.Handle("POST /api/validate", s.limiter.middleware(http.HandlerFunc(s.handleValidate)))
	mux.Handle("POST /api/chat", s.limiter.middleware(http.HandlerFunc(s.handleChat)))
	mux.HandleFunc("GET /api/analyses/stream", s.handleAnalysisStream)
	return mux
}

// Start runs the HTTP server (blocking) and shuts it down when ctx is cancelled.
func (s *Server) Start(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	server := &http.Server{
		Addr:              s.addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	s.logger.Info("api listening", zap.String("addr", s.addr))
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return errors.Wrap(err, "serve http")
	}
	return nil
}

// StartWithAutoTLS runs an HTTPS server with automatic TLS certificates via ACME.
// It also starts an HTTP server on port 80 to handle ACME HTTP-01 challenges.
func (s *Server) StartWithAutoTLS(ctx context.Context, domains []string, cacheDir string) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if len(domains) == 0 {
		return errors.New("no domains provided for automatic TLS")
	}
	if cacheDir == "" {
		cacheDir = "cert-cache"
	}

	manager := &autocert.Manager{
		Prompt:     autocert.AcceptTOS,
		HostPolicy: autocert.HostWhitelist(domains...),
		Cache:      autocert.DirCache(cacheDir),
	}

	httpSrv := &http.Server{
		Addr:              ":80",
		Handler:           manager.HTTPHandler(nil),
		ReadHeaderTimeout: 15 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	tlsConfig := manager.TLSConfig()
	tlsConfig.MinVersion = tls.VersionTLS12

	httpsSrv := &http.Server{
		Addr:              s.addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 15 * time.Second,
		IdleTimeout:       120 * time.Second,
		TLSConfig:         tlsConfig,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := httpSrv.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Warn("http (acme) server shutdown", zap.Error(err))
		}
		if err := httpsSrv.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Warn("https server shutdown", zap.Error(err))
		}
	}()

	go func() {
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("http (acme) server", zap.Error(err))
		}
	}()

	s.logger.Info("api listening with automatic TLS", zap.String("addr", s.addr), zap.Strings("domains", domains))
	if err := httpsSrv.ListenAndServeTLS("", ""); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return errors.Wrap(err, "serve https")
	}
	return nil
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "online", "service": serviceName})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "healthy",
		"timestamp": s.now().UTC().Format(time.RFC3339),
		"models": map[string]string{
			"vision":    s.visionModel,
			"reasoning": s.reasoningModel,
		},
	})
}

func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	if s.analyzer == nil {
		writeError(w, http.StatusServiceUnavailable, "analyzer not available")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, s.maxUpload+multipartOverhead)
	if err := r.ParseMultipartForm(s.maxUpload); err != nil {
		writeError(w, http.StatusBadRequest, "expected multipart form with a chart file")
		return
	}
	defer func() {
		if r.MultipartForm != nil {
			_ = r.MultipartForm.RemoveAll()
		}
	}()

	file, header, err := r.FormFile("chart")
	if err != nil {
		writeError(w, http.StatusBadRequest, "missing chart file")
		return
	}
	defer file.Close()

	if ct := header.Header.Get("Content-Type"); ct != "" && !strings.HasPrefix(ct, "image/") {
		writeError(w, http.StatusBadRequest, "file must be an image (PNG, JPEG, WEBP, GIF)")
		return
	}

	data, err := io.ReadAll(io.LimitReader(file, s.maxUpload+1))
	if err != nil {
		writeError(w, http.StatusBadRequest, "failed to read chart file")
		return
	}

	userCtx := map[string]string{}
	for _, key := range []string{orchestrator.ContextAsset, orchestrator.ContextTimeframe, orchestrator.ContextDescription} {
		if v := r.FormValue(key); v != "" {
			userCtx[key] = v
		}
	}

	s.logger.Info("analyzing chart", zap.String("filename", header.Filename), zap.Int("bytes", len(data)))
	result, err := s.analyzer.Analyze(r.Context(), orchestrator.Request{Image: data, Context: userCtx})
	if err != nil {
		status, message := analyzeErrorStatus(err)
		if status >= http.StatusInternalServerError {
			s.logger.Error("analysis failed", zap.Error(err))
		}
		writeJSON(w, status, map[string]any{
			"success": false,
			"error":   message,
			"message": safety.ErrorMessage(),
		})
		return
	}

	writeJSON(w, http.StatusOK, result)
}

type validateRequest struct {
	Text       string   `json:"text"`
	Confidence *float64 `json:"confidence"`
	StrictMode bool     `json:"strict_mode"`
}

type validateResponse struct {
	Safe     bool     `json:"safe"`
	Output   string   `json:"output"`
	Warnings []string `json:"warnings"`
}

func (s *Server) handleValidate(w http.ResponseWriter, r *http.Request) {
	if s.validator == nil {
		writeError(w, http.StatusServiceUnavailable, "validator not available")
		return
	}

	var req validateRequest
	dec := json.NewDecoder(io.LimitReader(r.Body, maxValidateBody))
	if err := dec.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		writeError(w, http.StatusBadRequest, "text is required")
		return
	}

	confidence := defaultValidateScore
	if req.Confidence != nil {
		confidence = *req.Confidence
	}

	ok, output, warnings := s.validator.ValidateAndSanitize(req.Text, confidence, req.StrictMode)
	writeJSON(w, http.StatusOK, validateResponse{Safe: ok, Output: output, Warnings: warnings})
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	if s.chat == nil {
		writeError(w, http.StatusServiceUnavailable, "chat not available")
		return
	}

	var req chat.Request
	dec := json.NewDecoder(io.LimitReader(r.Body, maxValidateBody))
	if err := dec.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	reply, err := s.chat.Reply(r.Context(), req)
	if err != nil {
		status := http.StatusBadGateway
		message := "chat failed"
		switch {
		case errors.Is(err, chat.ErrEmptyMessage):
			status, message = http.StatusBadRequest, "message is required"
		case errors.Is(err, context.DeadlineExceeded):
			status, message = http.StatusGatewayTimeout, "chat timed out"
		default:
			s.logger.Error("chat failed", zap.Error(err))
		}
		writeJSON(w, status, map[string]any{"success": false, "error": message})
		return
	}

	writeJSON(w, http.StatusOK, reply)
}

func analyzeErrorStatus(err error) (int, string) {
	switch {
	case errors.Is(err, chartimage.ErrEmpty):
		return http.StatusBadRequest, "chart image is empty"
	case errors.Is(err, chartimage.ErrTooLarge):
		return http.StatusRequestEntityTooLarge, "chart image exceeds the size limit"
	case errors.Is(err, chartimage.ErrUnsupportedFormat):
		return http.StatusUnsupportedMediaType, "unsupported image format"
	case errors.Is(err, chartimage.ErrCorrupt), errors.Is(err, chartimage.ErrDimensions):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, "analysis timed out"
	default:
		return http.StatusBadGateway, "analysis failed"
	}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
