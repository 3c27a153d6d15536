// Package handler provides HTTP handlers for the API.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/capitalize-ai/powerlunch/internal/middleware"
	"github.com/capitalize-ai/powerlunch/internal/model"
	"github.com/capitalize-ai/powerlunch/internal/service"
	"github.com/capitalize-ai/powerlunch/internal/store"
	"github.com/capitalize-ai/powerlunch/pkg/logger"
)

// Matcher runs a matching pass for one conference day.
type Matcher interface {
	Run(ctx context.Context, conferenceID, lunchDate string) *model.MatchingResult
}

// GroupNotifier delivers group notifications and reminders.
type GroupNotifier interface {
	Notify(ctx context.Context, conferenceID string, groups []model.Group) *model.NotificationSummary
	SendReminder(ctx context.Context, conferenceID, groupID string, minutesBefore int) *model.ReminderResult
	GroupWithMembers(ctx context.Context, conferenceID, groupID string) (*model.GroupDetails, error)
}

// EventReader replays the events of a conference day.
type EventReader interface {
	Events(ctx context.Context, conferenceID, lunchDate string, limit int) ([]model.MatchEvent, error)
}

const (
	defaultEventLimit = 100
	maxEventLimit     = 1000
)

// AdminHandler handles the Power Lunch admin endpoints.
type AdminHandler struct {
	matcher  Matcher
	notifier GroupNotifier
	events   EventReader
	logger   *logger.Logger
}

// NewAdminHandler creates a new admin handler. events may be nil when the
// event stream is disabled.
func NewAdminHandler(matcher Matcher, notifier GroupNotifier, events EventReader, log *logger.Logger) *AdminHandler {
	return &AdminHandler{
		matcher:  matcher,
		notifier: notifier,
		events:   events,
		logger:   log,
	}
}

// MatchLunches handles POST /api/admin/match-lunches
func (h *AdminHandler) MatchLunches(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := h.logger.WithRequest(middleware.GetCorrelationID(ctx))

	var req model.MatchLunchesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := middleware.ValidateConferenceID(req.ConferenceID); err != nil {
		writeValidationError(w, err)
		return
	}
	if err := middleware.ValidateLunchDate(req.LunchDate); err != nil {
		writeValidationError(w, err)
		return
	}

	log.Info("starting power lunch matching",
		zap.String("conference_id", req.ConferenceID),
		zap.String("lunch_date", req.LunchDate),
		zap.String("actor", middleware.GetActor(ctx)),
	)

	// A client disconnect must not abort a pass that is already committing.
	runCtx := context.WithoutCancel(ctx)
	result := h.matcher.Run(runCtx, req.ConferenceID, req.LunchDate)
	if !result.Success {
		writeJSON(w, http.StatusInternalServerError, model.ErrorEvent{
			Error:   "Matching failed",
			Details: result.Error,
		})
		return
	}

	resp := model.MatchLunchesResponse{
		Success:                  true,
		ConferenceID:             req.ConferenceID,
		LunchDate:                req.LunchDate,
		Groups:                   make([]model.GroupSummary, len(result.Groups)),
		Stats:                    result.Stats,
		UnmatchedRegistrationIDs: result.UnmatchedRegistrationIDs,
	}
	for i, g := range result.Groups {
		resp.Groups[i] = model.GroupSummary{
			ID:             g.ID,
			MemberCount:    g.MemberCount,
			TimeSlot:       g.TimeSlot,
			CommonTopics:   g.CommonTopics,
			MatchRationale: g.MatchRationale,
		}
	}

	if req.ShouldNotify() && len(result.Groups) > 0 {
		log.Info("sending notifications", zap.Int("groups", len(result.Groups)))
		summary := h.notifier.Notify(runCtx, req.ConferenceID, result.Groups)
		resp.Notifications = &model.NotificationCounts{
			Sent:   summary.SuccessCount,
			Failed: summary.FailureCount,
			Total:  summary.TotalNotifications,
		}
	}

	writeJSON(w, http.StatusOK, resp)
}

// Docs handles GET /api/admin/match-lunches
func (h *AdminHandler) Docs(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"endpoint":    "/api/admin/match-lunches",
		"method":      "POST",
		"description": "Trigger Power Lunch matching for a conference",
		"headers": map[string]string{
			middleware.AdminAPIKeyHeader: "Required unless a bearer token with the " + middleware.AdminScope + " scope is sent.",
			"Content-Type":               "application/json",
		},
		"body": map[string]interface{}{
			"conferenceId": map[string]interface{}{
				"type":        "string",
				"required":    true,
				"description": "The conference identifier",
			},
			"lunchDate": map[string]interface{}{
				"type":        "string",
				"required":    true,
				"format":      "YYYY-MM-DD",
				"description": "The date for Power Lunch matching",
			},
			"sendNotifications": map[string]interface{}{
				"type":        "boolean",
				"required":    false,
				"default":     true,
				"description": "Whether to send push notifications to matched users",
			},
		},
		"responses": map[string]string{
			"200": "Matching completed successfully",
			"400": "Invalid request body",
			"401": "Unauthorized - invalid or missing API key",
			"500": "Internal server error",
		},
	})
}

// Reminder handles POST /api/admin/power-lunches/reminders
func (h *AdminHandler) Reminder(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req model.ReminderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := middleware.ValidateConferenceID(req.ConferenceID); err != nil {
		writeValidationError(w, err)
		return
	}
	if err := middleware.ValidateGroupID(req.GroupID); err != nil {
		writeValidationError(w, err)
		return
	}

	minutes := service.DefaultReminderMinutes
	if req.MinutesBefore != nil {
		if err := middleware.ValidateMinutesBefore(*req.MinutesBefore); err != nil {
			writeValidationError(w, err)
			return
		}
		minutes = *req.MinutesBefore
	}

	writeJSON(w, http.StatusOK, h.notifier.SendReminder(ctx, req.ConferenceID, req.GroupID, minutes))
}

// GroupDetails handles GET /api/admin/power-lunches/{conferenceId}/groups/{groupId}
func (h *AdminHandler) GroupDetails(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	conferenceID := chi.URLParam(r, "conferenceId")
	groupID := chi.URLParam(r, "groupId")

	if err := middleware.ValidateConferenceID(conferenceID); err != nil {
		writeValidationError(w, err)
		return
	}
	if err := middleware.ValidateGroupID(groupID); err != nil {
		writeValidationError(w, err)
		return
	}

	details, err := h.notifier.GroupWithMembers(ctx, conferenceID, groupID)
	if errors.Is(err, store.ErrGroupNotFound) {
		writeError(w, http.StatusNotFound, "Group not found")
		return
	}
	if err != nil {
		h.logger.Error("failed to load group",
			zap.String("conference_id", conferenceID),
			zap.String("group_id", groupID),
			zap.Error(err),
		)
		writeError(w, http.StatusInternalServerError, "failed to load group")
		return
	}

	writeJSON(w, http.StatusOK, details)
}

// Events handles GET /api/admin/power-lunches/{conferenceId}/events
func (h *AdminHandler) Events(w http.ResponseWriter, r *http.Request) {
	if h.events == nil {
		writeError(w, http.StatusServiceUnavailable, "event stream disabled")
		return
	}

	ctx := r.Context()
	conferenceID := chi.URLParam(r, "conferenceId")
	lunchDate := r.URL.Query().Get("lunchDate")

	if err := middleware.ValidateConferenceID(conferenceID); err != nil {
		writeValidationError(w, err)
		return
	}
	if err := middleware.ValidateLunchDate(lunchDate); err != nil {
		writeValidationError(w, err)
		return
	}

	limit := defaultEventLimit
	if l := r.URL.Query().Get("limit"); l != "" {
		if parsed, err := strconv.Atoi(l); err == nil && parsed > 0 && parsed <= maxEventLimit {
			limit = parsed
		}
	}

	events, err := h.events.Events(ctx, conferenceID, lunchDate, limit)
	if err != nil {
		h.logger.Error("failed to read events",
			zap.String("conference_id", conferenceID),
			zap.String("lunch_date", lunchDate),
			zap.Error(err),
		)
		writeError(w, http.StatusInternalServerError, "failed to read events")
		return
	}
	if events == nil {
		events = []model.MatchEvent{}
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"conferenceId": conferenceID,
		"lunchDate":    lunchDate,
		"events":       events,
	})
}
