package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"strconv"

	"github.com/AlienServices/unfurl/internal/domain"
	"github.com/AlienServices/unfurl/internal/engine"
	"github.com/AlienServices/unfurl/internal/httpserver/deps"
	"github.com/AlienServices/unfurl/internal/logger"
	"github.com/AlienServices/unfurl/internal/utils"
)

const maxPreviewRequestBytes = 16 << 10

type previewRequest struct {
	URL    string `json:"url"`
	PostID string `json:"postId,omitempty"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// Preview handles POST /api/preview.
func Preview(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxPreviewRequestBytes)

		var req previewRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			d.Logger.Debug("unparseable preview request", logger.Error(err))
			writeError(w, http.StatusBadRequest, "Invalid URL format")
			return
		}

		ctx := r.Context()
		if d.RequestTimeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, d.RequestTimeout)
			defer cancel()
		}

		p, err := d.Previews.Resolve(ctx, engine.Request{
			URL:      req.URL,
			ClientID: utils.ClientIP(r, d.TrustProxy),
			PostID:   req.PostID,
		})
		if err != nil {
			writePreviewError(w, d, err)
			return
		}
		writeJSON(w, http.StatusOK, p)
	}
}

func writePreviewError(w http.ResponseWriter, d deps.Deps, err error) {
	var rl *domain.RateLimitError
	switch {
	case errors.Is(err, domain.ErrURLRequired):
		writeError(w, http.StatusBadRequest, "URL is required")
	case errors.Is(err, domain.ErrInvalidURL):
		writeError(w, http.StatusBadRequest, "Invalid URL format")
	case errors.Is(err, domain.ErrBlockedDomain):
		writeError(w, http.StatusForbidden, "Domain not allowed")
	case errors.As(err, &rl):
		w.Header().Set("Retry-After", strconv.Itoa(int(math.Ceil(rl.RetryAfter.Seconds()))))
		w.Header().Set("X-RateLimit-Limit", strconv.Itoa(rl.Limit))
		w.Header().Set("X-RateLimit-Remaining", "0")
		writeError(w, http.StatusTooManyRequests, "Rate limit exceeded")
	case errors.Is(err, domain.ErrGenericFetch):
		writeError(w, http.StatusInternalServerError, "Failed to fetch URL")
	default:
		d.Logger.Error("preview request failed", logger.Error(err))
		writeError(w, http.StatusInternalServerError, "Internal server error")
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
