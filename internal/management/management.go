// Package management provides a lightweight HTTP API for running
// conversions and inspecting the converter at runtime.
//
// Endpoints:
//
//	GET  /status            - health, uptime, word list state
//	GET  /metrics           - counter and latency snapshot
//	POST /convert           - charting text in, JSON visit array out
//	POST /anonymize         - free text in, redacted text out
//	POST /wordlist/reload   - reload the list from disk, or from the body if non-empty
//
// The server speaks HTTP/1.1 and cleartext HTTP/2 (h2c).
package management

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	"medirecord-converter/internal/anonymizer"
	"medirecord-converter/internal/config"
	"medirecord-converter/internal/convert"
	"medirecord-converter/internal/logger"
	"medirecord-converter/internal/metrics"
)

// RequestIDHeader carries the per-request correlation ID.
const RequestIDHeader = "X-Request-Id"

// ReplacementsHeader reports how many words a request redacted.
const ReplacementsHeader = "X-Replacements"

// Server is the management API server.
type Server struct {
	cfg       *config.Config
	startTime time.Time
	conv      *convert.Converter
	engine    *anonymizer.Engine
	token     string           // bearer token for auth; empty = no auth
	metrics   *metrics.Metrics // nil = no metrics
	log       *logger.Logger
}

// New creates a management server. engine and m may be nil.
func New(cfg *config.Config, conv *convert.Converter, engine *anonymizer.Engine, m *metrics.Metrics, log *logger.Logger) *Server {
	if log == nil {
		log = logger.Discard()
	}
	s := &Server{
		cfg:       cfg,
		startTime: time.Now(),
		conv:      conv,
		engine:    engine,
		token:     cfg.ManagementToken,
		metrics:   m,
		log:       log,
	}
	if s.token != "" {
		s.log.Info("auth", "Bearer token authentication enabled")
	}
	return s
}

// Handler returns the HTTP handler for the management API.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/status", s.handleStatus)
	mux.HandleFunc("/metrics", s.handleMetrics)
	mux.HandleFunc("/convert", s.handleConvert)
	mux.HandleFunc("/anonymize", s.handleAnonymize)
	mux.HandleFunc("/wordlist/reload", s.handleReload)
	return s.requestID(s.authMiddleware(mux))
}

// requestID tags every request with an ID, reusing a caller-supplied one.
func (s *Server) requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(RequestIDHeader)
		if _, err := uuid.Parse(id); err != nil {
			id = uuid.NewString()
		}
		w.Header().Set(RequestIDHeader, id)
		r = r.WithContext(context.WithValue(r.Context(), requestIDKey{}, id))
		next.ServeHTTP(w, r)
	})
}

type requestIDKey struct{}

func requestIDFrom(r *http.Request) string {
	id, _ := r.Context().Value(requestIDKey{}).(string)
	return id
}

// authMiddleware checks for a valid Bearer token if one is configured.
func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.token == "" {
			next.ServeHTTP(w, r)
			return
		}
		auth := r.Header.Get("Authorization")
		const prefix = "Bearer "
		if !strings.HasPrefix(auth, prefix) ||
			subtle.ConstantTimeCompare([]byte(strings.TrimSpace(auth[len(prefix):])), []byte(s.token)) != 1 {
			s.log.Warnf("unauthorized", "[%s] %s to %s", requestIDFrom(r), r.RemoteAddr, r.URL.Path)
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "GET only", http.StatusMethodNotAllowed)
		return
	}
	type response struct {
		Status             string            `json:"status"`
		Uptime             string            `json:"uptime"`
		Anonymize          bool              `json:"anonymize"`
		AnonymizeScope     string            `json:"anonymizeScope"`
		ContinuationPolicy string            `json:"continuationPolicy"`
		WordList           *anonymizer.Stats `json:"wordList,omitempty"`
	}

	opts := s.conv.Options()
	resp := response{
		Status:             "running",
		Uptime:             time.Since(s.startTime).Round(time.Second).String(),
		Anonymize:          opts.Anonymize,
		AnonymizeScope:     opts.Scope,
		ContinuationPolicy: s.cfg.ContinuationPolicy,
	}
	if s.engine != nil {
		st := s.engine.Stats()
		resp.WordList = &st
	}
	writeJSON(w, http.StatusOK, resp, s.log)
}

func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "GET only", http.StatusMethodNotAllowed)
		return
	}
	if s.metrics == nil {
		http.Error(w, "metrics not enabled", http.StatusServiceUnavailable)
		return
	}
	writeJSON(w, http.StatusOK, s.metrics.Snapshot(), s.log)
}

// handleConvert accepts an optional ?anonymize=true|false override.
func (s *Server) handleConvert(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "POST only", http.StatusMethodNotAllowed)
		return
	}
	text, ok := s.readBody(w, r)
	if !ok {
		return
	}

	conv := s.conv
	if v := r.URL.Query().Get("anonymize"); v != "" {
		on, err := strconv.ParseBool(v)
		if err != nil {
			http.Error(w, "invalid anonymize parameter", http.StatusBadRequest)
			return
		}
		conv = conv.WithAnonymize(on)
	}

	res, err := conv.Convert(text)
	if err != nil {
		s.log.Errorf("convert_failed", "[%s] %v", requestIDFrom(r), err)
		http.Error(w, "conversion failed", http.StatusInternalServerError)
		return
	}
	s.log.Infof("convert", "[%s] %d bytes -> %d visits, %d replacements",
		requestIDFrom(r), len(text), len(res.Visits), res.Replacements)

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set(ReplacementsHeader, strconv.Itoa(res.Replacements))
	w.WriteHeader(http.StatusOK)
	io.WriteString(w, res.JSON+"\n") //nolint:errcheck // client gone
}

func (s *Server) handleAnonymize(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "POST only", http.StatusMethodNotAllowed)
		return
	}
	if s.engine == nil || !s.engine.Loaded() {
		http.Error(w, "no word list loaded", http.StatusServiceUnavailable)
		return
	}
	text, ok := s.readBody(w, r)
	if !ok {
		return
	}
	out, n := s.conv.Redact(text)
	s.log.Infof("anonymize", "[%s] %d bytes, %d replacements", requestIDFrom(r), len(text), n)

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set(ReplacementsHeader, strconv.Itoa(n))
	w.WriteHeader(http.StatusOK)
	io.WriteString(w, out) //nolint:errcheck // client gone
}

// handleReload reloads the configured list when the body is empty, or
// installs the body as the new list otherwise.
func (s *Server) handleReload(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "POST only", http.StatusMethodNotAllowed)
		return
	}
	if s.engine == nil {
		http.Error(w, "anonymization not enabled", http.StatusServiceUnavailable)
		return
	}
	body, ok := s.readBody(w, r)
	if !ok {
		return
	}

	if strings.TrimSpace(body) != "" {
		words := anonymizer.ParseWordList(body)
		s.engine.SetWords(words)
		s.log.Infof("wordlist_set", "[%s] %d words from request body", requestIDFrom(r), len(words))
	} else if !s.engine.Load() {
		writeJSON(w, http.StatusInternalServerError, map[string]any{
			"error":    "replacement list could not be loaded",
			"wordList": s.engine.Stats(),
		}, s.log)
		return
	}
	writeJSON(w, http.StatusOK, s.engine.Stats(), s.log)
}

// readBody reads at most cfg.MaxInputBytes and reports false after writing
// an error response.
func (s *Server) readBody(w http.ResponseWriter, r *http.Request) (string, bool) {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxInputBytes)
	data, err := io.ReadAll(r.Body)
	if err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			http.Error(w, fmt.Sprintf("request body exceeds %d bytes", tooBig.Limit), http.StatusRequestEntityTooLarge)
			return "", false
		}
		http.Error(w, "could not read request body", http.StatusBadRequest)
		return "", false
	}
	return string(data), true
}

func writeJSON(w http.ResponseWriter, status int, v any, log *logger.Logger) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		log.Errorf("json_encode", "%v", err)
	}
}

// Addr returns the configured listen address.
func (s *Server) Addr() string {
	return net.JoinHostPort(s.cfg.BindAddress, strconv.Itoa(s.cfg.ManagementPort))
}

func (s *Server) httpServer() *http.Server {
	return &http.Server{
		Addr:              s.Addr(),
		Handler:           h2c.NewHandler(s.Handler(), &http2.Server{}),
		ReadHeaderTimeout: 10 * time.Second,
	}
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := s.httpServer()
	errCh := make(chan error, 1)
	go func() {
		s.log.Infof("listen", "Listening on %s (HTTP/1.1, h2c)", srv.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	s.log.Info("shutdown", "stopping management server")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}
