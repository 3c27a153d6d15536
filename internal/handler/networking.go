package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/capitalize-ai/powerlunch/internal/middleware"
	"github.com/capitalize-ai/powerlunch/internal/model"
	"github.com/capitalize-ai/powerlunch/internal/service"
	"github.com/capitalize-ai/powerlunch/pkg/logger"
)

// maxToolInputBytes bounds the body of a forwarded tool call.
const maxToolInputBytes = 64 << 10

// Networker ranks attendees for networking.
type Networker interface {
	Suggest(ctx context.Context, conferenceID, lunchDate string, in *model.NetworkingInput, limit int) ([]model.NetworkingSuggestion, error)
	SuggestFromToolCall(ctx context.Context, conferenceID, lunchDate string, raw json.RawMessage, limit int) ([]model.NetworkingSuggestion, error)
}

// NetworkingHandler serves networking suggestions.
type NetworkingHandler struct {
	networker Networker
	logger    *logger.Logger
}

// NewNetworkingHandler creates a new networking handler.
func NewNetworkingHandler(networker Networker, log *logger.Logger) *NetworkingHandler {
	return &NetworkingHandler{networker: networker, logger: log}
}

// Suggest handles GET /api/ai/suggest-networking
//
// Query: conferenceId, lunchDate, interests (comma separated, required),
// role, goals (comma separated), track, userId, limit.
func (h *NetworkingHandler) Suggest(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	conferenceID, lunchDate, ok := h.scope(w, r)
	if !ok {
		return
	}

	in := &model.NetworkingInput{
		UserID:          q.Get("userId"),
		UserInterests:   splitList(q.Get("interests")),
		UserRole:        q.Get("role"),
		NetworkingGoals: splitList(q.Get("goals")),
		ConferenceTrack: q.Get("track"),
	}
	if len(in.UserInterests) == 0 {
		writeNetworkingError(w, http.StatusBadRequest, "Interests are required")
		return
	}

	suggestions, err := h.networker.Suggest(r.Context(), conferenceID, lunchDate, in, parseLimit(q.Get("limit")))
	h.respond(w, r, suggestions, err)
}

// SuggestFromToolCall handles POST /api/ai/suggest-networking. The body is the
// input of a generate_networking_suggestions tool call.
func (h *NetworkingHandler) SuggestFromToolCall(w http.ResponseWriter, r *http.Request) {
	conferenceID, lunchDate, ok := h.scope(w, r)
	if !ok {
		return
	}

	raw, err := io.ReadAll(io.LimitReader(r.Body, maxToolInputBytes))
	if err != nil || !json.Valid(raw) {
		writeNetworkingError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	suggestions, err := h.networker.SuggestFromToolCall(r.Context(), conferenceID, lunchDate, raw, parseLimit(r.URL.Query().Get("limit")))
	h.respond(w, r, suggestions, err)
}

func (h *NetworkingHandler) scope(w http.ResponseWriter, r *http.Request) (string, string, bool) {
	q := r.URL.Query()
	conferenceID, lunchDate := q.Get("conferenceId"), q.Get("lunchDate")
	if err := middleware.ValidateConferenceID(conferenceID); err != nil {
		writeNetworkingError(w, http.StatusBadRequest, validationMessage(err))
		return "", "", false
	}
	if err := middleware.ValidateLunchDate(lunchDate); err != nil {
		writeNetworkingError(w, http.StatusBadRequest, validationMessage(err))
		return "", "", false
	}
	return conferenceID, lunchDate, true
}

func (h *NetworkingHandler) respond(w http.ResponseWriter, r *http.Request, suggestions []model.NetworkingSuggestion, err error) {
	switch {
	case errors.Is(err, service.ErrInterestsRequired):
		writeNetworkingError(w, http.StatusBadRequest, "Interests are required")
	case errors.Is(err, service.ErrInvalidToolInput):
		writeNetworkingError(w, http.StatusBadRequest, err.Error())
	case err != nil:
		h.logger.WithRequest(middleware.GetCorrelationID(r.Context())).Error("failed to suggest connections", zap.Error(err))
		writeNetworkingError(w, http.StatusInternalServerError, "Failed to generate suggestions")
	default:
		if suggestions == nil {
			suggestions = []model.NetworkingSuggestion{}
		}
		writeJSON(w, http.StatusOK, model.NetworkingResponse{Success: true, Suggestions: suggestions})
	}
}

func writeNetworkingError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, model.NetworkingError{Success: false, Error: message})
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func parseLimit(s string) int {
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return 0
	}
	return n
}
