// Package mcphttp serves the MCP JSON-RPC endpoint and the health check
// over HTTP.
package mcphttp

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/ampgate/ampgate/internal/usecase"
	"github.com/ampgate/ampgate/pkg/shared/mcpjsonrpc"
)

// Handlers holds dependencies for the HTTP surface.
type Handlers struct {
	dispatcher  *usecase.Dispatcher
	serviceName string
	logger      *slog.Logger
}

// NewHandlers creates a Handlers struct. serviceName is reported by the
// health check.
func NewHandlers(dispatcher *usecase.Dispatcher, serviceName string, logger *slog.Logger) *Handlers {
	return &Handlers{
		dispatcher:  dispatcher,
		serviceName: serviceName,
		logger:      logger.With("component", "mcphttp_handler"),
	}
}

// Handler returns the catch-all HTTP handler. Routing matches on path
// substrings so that gateway stage prefixes and trailing segments pass
// through: GET anything containing /health answers the health check without
// auth, POST anything containing /mcp runs authMiddleware and then the
// JSON-RPC dispatcher, everything else is 404. Panics anywhere below are
// recovered to a 500 JSON body.
func (h *Handlers) Handler(authMiddleware func(http.Handler) http.Handler) http.Handler {
	mcpHandler := http.Handler(http.HandlerFunc(h.handleMCP))
	if authMiddleware != nil {
		mcpHandler = authMiddleware(mcpHandler)
	}

	return h.recoverPanics(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodGet && strings.Contains(r.URL.Path, "/health"):
			h.handleHealth(w, r)
		case r.Method == http.MethodPost && strings.Contains(r.URL.Path, "/mcp"):
			mcpHandler.ServeHTTP(w, r)
		default:
			h.logger.Debug("Unmatched request",
				slog.String("method", r.Method), slog.String("path", r.URL.Path))
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "Not found"})
		}
	}))
}

type healthResponse struct {
	Status    string `json:"status"`
	Service   string `json:"service"`
	Timestamp string `json:"timestamp"`
}

func (h *Handlers) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, healthResponse{
		Status:    "healthy",
		Service:   h.serviceName,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}

func (h *Handlers) handleMCP(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()
	body, err := io.ReadAll(r.Body)
	if err != nil {
		h.logger.Warn("Failed to read request body", slog.Any("error", err))
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Invalid JSON in request body"})
		return
	}

	req, err := decodeRequest(body)
	if err != nil {
		h.logger.Warn("Failed to decode JSON-RPC request", slog.Any("error", err))
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Invalid JSON in request body"})
		return
	}

	resp := h.dispatcher.Dispatch(r.Context(), req)
	writeJSON(w, http.StatusOK, resp)
}

// decodeRequest parses the body as JSON, falling back to base64-wrapped
// JSON (gateway integrations deliver binary bodies that way). An empty body
// decodes to an empty request, which the dispatcher rejects as an unknown
// method.
func decodeRequest(body []byte) (*mcpjsonrpc.Request, error) {
	var req mcpjsonrpc.Request
	if len(body) == 0 {
		return &req, nil
	}
	if err := json.Unmarshal(body, &req); err == nil {
		return &req, nil
	}

	decoded, err := base64.StdEncoding.DecodeString(strings.TrimSpace(string(body)))
	if err != nil {
		return nil, fmt.Errorf("body is neither JSON nor base64: %w", err)
	}
	if err := json.Unmarshal(decoded, &req); err != nil {
		return nil, fmt.Errorf("base64 body does not contain JSON: %w", err)
	}
	return &req, nil
}

func (h *Handlers) recoverPanics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				h.logger.Error("Panic while serving request",
					slog.String("path", r.URL.Path), slog.Any("panic", rec))
				writeJSON(w, http.StatusInternalServerError,
					map[string]string{"error": fmt.Sprintf("%v", rec)})
			}
		}()
		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		// Headers are already out; nothing left to do but note it.
		slog.Default().Error("Failed to encode response", slog.Any("error", err))
	}
}
