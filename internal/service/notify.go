package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/capitalize-ai/powerlunch/internal/model"
	"github.com/capitalize-ai/powerlunch/internal/push"
	"github.com/capitalize-ai/powerlunch/internal/store"
	"github.com/capitalize-ai/powerlunch/pkg/logger"
	"github.com/capitalize-ai/powerlunch/pkg/metrics"
)

const (
	// NotificationTypeMatch tags match notifications in the data payload.
	NotificationTypeMatch = "power_lunch_match"

	// NotificationTypeReminder tags reminder notifications in the data payload.
	NotificationTypeReminder = "power_lunch_reminder"

	// DefaultReminderMinutes is used when a reminder names no lead time.
	DefaultReminderMinutes = 30
)

// Notifier sends push notifications to the members of committed groups.
type Notifier struct {
	store       store.Store
	sender      push.Sender
	events      EventPublisher
	concurrency int
	logger      *logger.Logger
}

// NewNotifier creates a notifier that sends at most concurrency groups at once.
func NewNotifier(st store.Store, sender push.Sender, events EventPublisher, concurrency int, log *logger.Logger) *Notifier {
	if st == nil {
		st = store.Unavailable{}
	}
	if sender == nil {
		sender = push.Disabled{}
	}
	if concurrency < 1 {
		concurrency = 1
	}
	return &Notifier{
		store:       st,
		sender:      sender,
		events:      events,
		concurrency: concurrency,
		logger:      log,
	}
}

// Notify sends one match notification per group. Groups are independent: an
// error in one group is recorded in its result and the others still run.
// Results are returned in the order of groups.
func (n *Notifier) Notify(ctx context.Context, conferenceID string, groups []model.Group) *model.NotificationSummary {
	ctx, span := tracer.Start(ctx, "powerlunch.notify", trace.WithAttributes(
		attribute.String("conference.id", conferenceID),
		attribute.Int("groups", len(groups)),
	))
	defer span.End()

	results := make([]model.GroupNotificationResult, len(groups))

	var eg errgroup.Group
	eg.SetLimit(n.concurrency)
	for i := range groups {
		i := i
		eg.Go(func() error {
			results[i] = n.notifyGroup(ctx, conferenceID, &groups[i])
			return nil
		})
	}
	_ = eg.Wait()

	summary := &model.NotificationSummary{GroupResults: results}
	for _, r := range results {
		summary.SuccessCount += r.NotificationsSent
		summary.FailureCount += r.NotificationsFailed
	}
	summary.TotalNotifications = summary.SuccessCount + summary.FailureCount

	metrics.RecordNotifications("match", summary.SuccessCount, summary.FailureCount)
	n.logger.Info("match notifications sent",
		zap.String("conference_id", conferenceID),
		zap.String("step", "notify"),
		zap.Int("groups", len(groups)),
		zap.Int("sent", summary.SuccessCount),
		zap.Int("failed", summary.FailureCount),
	)

	if n.events != nil && len(groups) > 0 {
		event := &model.MatchEvent{
			Type:          model.EventTypeNotified,
			ConferenceID:  conferenceID,
			LunchDate:     groups[0].LunchDate,
			Notifications: model.NewNotificationTally(summary),
			CreatedAt:     time.Now().UTC(),
		}
		for _, g := range groups {
			event.GroupIDs = append(event.GroupIDs, g.ID)
		}
		if _, err := n.events.PublishMatchEvent(context.WithoutCancel(ctx), event); err != nil {
			n.logger.Warn("failed to publish event", zap.String("event_type", string(event.Type)), zap.Error(err))
		}
	}

	return summary
}

func (n *Notifier) notifyGroup(ctx context.Context, conferenceID string, g *model.Group) model.GroupNotificationResult {
	result := model.GroupNotificationResult{
		GroupID:      g.ID,
		MemberCount:  g.MemberCount,
		FailedTokens: []string{},
	}
	log := n.logger.WithGroup(conferenceID, g.ID, "notify")

	members, err := n.store.RegistrationsByID(ctx, conferenceID, g.MemberIDs)
	if err != nil {
		log.Error("failed to load group members", zap.Error(err))
		result.Error = err.Error()
		return result
	}

	tokens := pushTokens(members)
	if len(tokens) == 0 {
		log.Info("no push tokens for group")
		return result
	}

	msg, err := MatchNotification(conferenceID, g, members, tokens)
	if err != nil {
		log.Error("failed to build notification", zap.Error(err))
		result.Error = err.Error()
		return result
	}

	sent, err := n.sender.SendMulticast(ctx, msg)
	if err != nil {
		log.Error("failed to send match notification", zap.Int("tokens", len(tokens)), zap.Error(err))
		result.Error = err.Error()
		if sent == nil {
			return result
		}
	}

	result.NotificationsSent = sent.SuccessCount
	result.NotificationsFailed = sent.FailureCount
	if sent.FailedTokens != nil {
		result.FailedTokens = sent.FailedTokens
	}
	log.Info("group notified", zap.Int("sent", sent.SuccessCount), zap.Int("failed", sent.FailureCount))
	return result
}

// SendReminder sends a reminder to the members of one group. An unknown group
// is a soft failure reported in the result, not an error.
func (n *Notifier) SendReminder(ctx context.Context, conferenceID, groupID string, minutesBefore int) *model.ReminderResult {
	if minutesBefore <= 0 {
		minutesBefore = DefaultReminderMinutes
	}
	log := n.logger.WithGroup(conferenceID, groupID, "reminder")

	details, err := n.GroupWithMembers(ctx, conferenceID, groupID)
	if errors.Is(err, store.ErrGroupNotFound) {
		return &model.ReminderResult{Error: "Group not found"}
	}
	if err != nil {
		log.Error("failed to load group", zap.Error(err))
		return &model.ReminderResult{Error: err.Error()}
	}

	tokens := pushTokens(details.Members)
	if len(tokens) == 0 {
		return &model.ReminderResult{Success: true}
	}

	sent, err := n.sender.SendMulticast(ctx, ReminderNotification(conferenceID, &details.Group, minutesBefore, tokens))
	if err != nil {
		log.Error("failed to send reminder", zap.Int("tokens", len(tokens)), zap.Error(err))
		result := &model.ReminderResult{Error: err.Error()}
		if sent != nil {
			result.NotificationsSent = sent.SuccessCount
			metrics.RecordNotifications("reminder", sent.SuccessCount, sent.FailureCount)
		} else {
			metrics.RecordNotifications("reminder", 0, len(tokens))
		}
		return result
	}

	metrics.RecordNotifications("reminder", sent.SuccessCount, sent.FailureCount)
	log.Info("reminder sent", zap.Int("sent", sent.SuccessCount), zap.Int("failed", sent.FailureCount))
	return &model.ReminderResult{Success: true, NotificationsSent: sent.SuccessCount}
}

// GroupWithMembers returns a group and the member registrations that still
// exist. It returns store.ErrGroupNotFound for an unknown group.
func (n *Notifier) GroupWithMembers(ctx context.Context, conferenceID, groupID string) (*model.GroupDetails, error) {
	g, err := n.store.Group(ctx, conferenceID, groupID)
	if err != nil {
		return nil, err
	}
	members, err := n.store.RegistrationsByID(ctx, conferenceID, g.MemberIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to load group members: %w", err)
	}
	if members == nil {
		members = []model.Registration{}
	}
	return &model.GroupDetails{Group: *g, Members: members}, nil
}

// MatchNotification builds the push message announcing a new group.
func MatchNotification(conferenceID string, g *model.Group, members []model.Registration, tokens []string) (*push.Message, error) {
	names := make([]string, len(members))
	for i, m := range members {
		names[i] = m.UserName
	}

	payload, err := json.Marshal(model.PowerLunchNotification{
		GroupID:              g.ID,
		LunchDate:            g.LunchDate,
		TimeSlot:             g.TimeSlot,
		Venue:                g.Venue,
		MemberNames:          names,
		CommonTopics:         g.CommonTopics,
		SuggestedIcebreakers: g.SuggestedIcebreakers,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal notification data: %w", err)
	}

	return &push.Message{
		Tokens: tokens,
		Title:  "🍽️ Power Lunch Match!",
		Body:   fmt.Sprintf("You've been matched with %d other attendees for %s. Tap to see your group!", g.MemberCount-1, g.LunchDate),
		Data: map[string]string{
			"type":             NotificationTypeMatch,
			"groupId":          g.ID,
			"conferenceId":     conferenceID,
			"lunchDate":        g.LunchDate,
			"timeSlot":         g.TimeSlot,
			"notificationData": string(payload),
		},
	}, nil
}

// ReminderNotification builds the push message sent shortly before a lunch.
func ReminderNotification(conferenceID string, g *model.Group, minutesBefore int, tokens []string) *push.Message {
	venue := g.Venue
	if venue == "" {
		venue = "the designated venue"
	}
	return &push.Message{
		Tokens: tokens,
		Title:  "⏰ Power Lunch Starting Soon!",
		Body:   fmt.Sprintf("Your Power Lunch at %s starts in %d minutes. Time slot: %s", venue, minutesBefore, g.TimeSlot),
		Data: map[string]string{
			"type":         NotificationTypeReminder,
			"groupId":      g.ID,
			"conferenceId": conferenceID,
			"timeSlot":     g.TimeSlot,
		},
	}
}

func pushTokens(members []model.Registration) []string {
	tokens := make([]string, 0, len(members))
	for i := range members {
		if members[i].HasPushToken() {
			tokens = append(tokens, members[i].FCMToken)
		}
	}
	return tokens
}
