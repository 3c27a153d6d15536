package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/capitalize-ai/powerlunch/internal/model"
	"github.com/capitalize-ai/powerlunch/internal/service"
	"github.com/capitalize-ai/powerlunch/internal/store"
	"github.com/capitalize-ai/powerlunch/pkg/logger"
)

type fakeNetworker struct {
	suggestions []model.NetworkingSuggestion
	err         error
	input       *model.NetworkingInput
	raw         json.RawMessage
	limit       int
	calls       int
}

func (n *fakeNetworker) Suggest(ctx context.Context, conferenceID, lunchDate string, in *model.NetworkingInput, limit int) ([]model.NetworkingSuggestion, error) {
	n.calls++
	n.input = in
	n.limit = limit
	return n.suggestions, n.err
}

func (n *fakeNetworker) SuggestFromToolCall(ctx context.Context, conferenceID, lunchDate string, raw json.RawMessage, limit int) ([]model.NetworkingSuggestion, error) {
	n.calls++
	n.raw = raw
	n.limit = limit
	return n.suggestions, n.err
}

func newNetworkingRouter(h *NetworkingHandler) http.Handler {
	r := chi.NewRouter()
	r.Get("/api/ai/suggest-networking", h.Suggest)
	r.Post("/api/ai/suggest-networking", h.SuggestFromToolCall)
	return r
}

func TestNetworking_SuggestQuery(t *testing.T) {
	tests := []struct {
		name      string
		query     string
		networker *fakeNetworker
		wantCode  int
		wantError string
		wantCalls int
	}{
		{
			name:      "missing interests",
			query:     "conferenceId=conf-1&lunchDate=2025-03-14",
			networker: &fakeNetworker{},
			wantCode:  http.StatusBadRequest,
			wantError: "Interests are required",
		},
		{
			name:      "blank interests",
			query:     "conferenceId=conf-1&lunchDate=2025-03-14&interests=%20,%20",
			networker: &fakeNetworker{},
			wantCode:  http.StatusBadRequest,
			wantError: "Interests are required",
		},
		{
			name:      "missing conference",
			query:     "lunchDate=2025-03-14&interests=ai",
			networker: &fakeNetworker{},
			wantCode:  http.StatusBadRequest,
			wantError: "Missing or invalid conferenceId",
		},
		{
			name:      "store down",
			query:     "conferenceId=conf-1&lunchDate=2025-03-14&interests=ai",
			networker: &fakeNetworker{err: store.ErrStoreUnavailable},
			wantCode:  http.StatusInternalServerError,
			wantError: "Failed to generate suggestions",
			wantCalls: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := newNetworkingRouter(NewNetworkingHandler(tt.networker, logger.NewNop()))

			rec := doRequest(t, router, http.MethodGet, "/api/ai/suggest-networking?"+tt.query, "")
			require.Equal(t, tt.wantCode, rec.Code)

			var body model.NetworkingError
			require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
			assert.False(t, body.Success)
			assert.Equal(t, tt.wantError, body.Error)
			assert.Equal(t, tt.wantCalls, tt.networker.calls)
		})
	}
}

func TestNetworking_SuggestReturnsRanking(t *testing.T) {
	networker := &fakeNetworker{suggestions: []model.NetworkingSuggestion{{
		ID: "a", Name: "Ada", MatchScore: 70, SharedInterests: []string{"AI"},
	}}}
	router := newNetworkingRouter(NewNetworkingHandler(networker, logger.NewNop()))

	rec := doRequest(t, router, http.MethodGet,
		"/api/ai/suggest-networking?conferenceId=conf-1&lunchDate=2025-03-14&interests=ai,%20go&goals=hiring&role=CTO&track=main&userId=u1&limit=3", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var body model.NetworkingResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.True(t, body.Success)
	require.Len(t, body.Suggestions, 1)
	assert.Equal(t, 70, body.Suggestions[0].MatchScore)

	assert.Equal(t, &model.NetworkingInput{
		UserID:          "u1",
		UserInterests:   []string{"ai", "go"},
		UserRole:        "CTO",
		NetworkingGoals: []string{"hiring"},
		ConferenceTrack: "main",
	}, networker.input)
	assert.Equal(t, 3, networker.limit)
}

func TestNetworking_EmptyRankingIsArray(t *testing.T) {
	router := newNetworkingRouter(NewNetworkingHandler(&fakeNetworker{}, logger.NewNop()))

	rec := doRequest(t, router, http.MethodGet,
		"/api/ai/suggest-networking?conferenceId=conf-1&lunchDate=2025-03-14&interests=ai", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"success":true,"suggestions":[]}`, rec.Body.String())
}

func TestNetworking_SuggestFromToolCall(t *testing.T) {
	tests := []struct {
		name      string
		body      string
		err       error
		wantCode  int
		wantCalls int
	}{
		{name: "tool input", body: `{"user_interests":["ai"]}`, wantCode: http.StatusOK, wantCalls: 1},
		{name: "malformed json", body: `{"user_interests":`, wantCode: http.StatusBadRequest},
		{name: "empty body", body: "", wantCode: http.StatusBadRequest},
		{name: "wrong types", body: `{"user_interests":"ai"}`, err: service.ErrInvalidToolInput, wantCode: http.StatusBadRequest, wantCalls: 1},
		{name: "no interests", body: `{}`, err: service.ErrInterestsRequired, wantCode: http.StatusBadRequest, wantCalls: 1},
		{name: "backend failure", body: `{"user_interests":["ai"]}`, err: errors.New("boom"), wantCode: http.StatusInternalServerError, wantCalls: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			networker := &fakeNetworker{err: tt.err}
			router := newNetworkingRouter(NewNetworkingHandler(networker, logger.NewNop()))

			req := httptest.NewRequest(http.MethodPost,
				"/api/ai/suggest-networking?conferenceId=conf-1&lunchDate=2025-03-14", strings.NewReader(tt.body))
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)

			assert.Equal(t, tt.wantCode, rec.Code)
			assert.Equal(t, tt.wantCalls, networker.calls)
			if tt.wantCalls > 0 {
				assert.JSONEq(t, tt.body, string(networker.raw))
			}
		})
	}
}
