// Package handler serves search reports over HTTP. Every GET path is a
// query: /cat/dog searches for "cat" and "dog".
package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/Adithya-Monish-Kumar-K/corpus-search/internal/cache"
	"github.com/Adithya-Monish-Kumar-K/corpus-search/internal/searcher"
	apperrors "github.com/Adithya-Monish-Kumar-K/corpus-search/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/corpus-search/pkg/logger"
	"golang.org/x/net/html"
)

type Searcher interface {
	Handle(ctx context.Context, req searcher.Request) (string, error)
	CacheStats() cache.Stats
}

type Handler struct {
	searcher Searcher
	logger   *slog.Logger
}

func New(s Searcher) *Handler {
	return &Handler{
		searcher: s,
		logger:   slog.Default().With("component", "search-handler"),
	}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		w.Header().Set("Allow", "GET, HEAD")
		h.writeError(w, http.StatusMethodNotAllowed, "only GET is supported")
		return
	}

	log := logger.FromContext(r.Context())
	report, err := h.searcher.Handle(r.Context(), searcher.Request{
		Segments:   searcher.SplitPath(r.URL.Path),
		Method:     r.Method,
		RemoteAddr: r.RemoteAddr,
	})
	if err != nil {
		status := apperrors.HTTPStatusCode(err)
		message := http.StatusText(status)
		if status < http.StatusInternalServerError {
			message = err.Error()
		}
		h.writeError(w, status, message)
		log.Info("request processed", "path", r.URL.Path, "status", status)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write([]byte(report)); err != nil {
		log.Error("failed to write response", "error", err)
	}
	log.Info("request processed", "path", r.URL.Path, "status", http.StatusOK)
}

// CacheStats serves the response cache counters as JSON.
func (h *Handler) CacheStats(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(h.searcher.CacheStats()); err != nil {
		h.logger.Error("failed to write response", "error", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	body := "<html><body><h1>" + html.EscapeString(http.StatusText(status)) + "</h1><p>" +
		html.EscapeString(message) + "</p></body></html>"
	if _, err := w.Write([]byte(body)); err != nil {
		h.logger.Error("failed to write error response", "error", err)
	}
}
