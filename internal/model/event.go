package model

import (
	"time"
)

// EventType represents the type of Power Lunch domain event.
type EventType string

const (
	EventTypeMatched     EventType = "matched"
	EventTypeMatchFailed EventType = "match_failed"
	EventTypeNotified    EventType = "notified"
)

// MatchEvent is published to the event stream after pipeline milestones.
type MatchEvent struct {
	ID            string             `json:"id"`
	Type          EventType          `json:"type"`
	ConferenceID  string             `json:"conferenceId"`
	LunchDate     string             `json:"lunchDate"`
	GroupIDs      []string           `json:"groupIds,omitempty"`
	Stats         *MatchingStats     `json:"stats,omitempty"`
	Notifications *NotificationTally `json:"notifications,omitempty"`
	Reason        string             `json:"reason,omitempty"`
	CreatedAt     time.Time          `json:"createdAt"`
	Sequence      uint64             `json:"sequence,omitempty"`
}

// GroupNotificationTally is the per-group part of a NotificationTally.
type GroupNotificationTally struct {
	GroupID string `json:"groupId"`
	Sent    int    `json:"sent"`
	Failed  int    `json:"failed"`
	Error   string `json:"error,omitempty"`
}

// NotificationTally is the count-only view of a NotificationSummary carried
// on events. Push tokens never leave the process.
type NotificationTally struct {
	Sent   int                      `json:"sent"`
	Failed int                      `json:"failed"`
	Total  int                      `json:"total"`
	Groups []GroupNotificationTally `json:"groups"`
}

// NewNotificationTally counts s without copying any token.
func NewNotificationTally(s *NotificationSummary) *NotificationTally {
	t := &NotificationTally{
		Sent:   s.SuccessCount,
		Failed: s.FailureCount,
		Total:  s.TotalNotifications,
		Groups: make([]GroupNotificationTally, len(s.GroupResults)),
	}
	for i, r := range s.GroupResults {
		t.Groups[i] = GroupNotificationTally{
			GroupID: r.GroupID,
			Sent:    r.NotificationsSent,
			Failed:  r.NotificationsFailed,
			Error:   r.Error,
		}
	}
	return t
}
