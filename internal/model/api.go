package model

// MatchLunchesRequest is the body of the admin matching trigger.
type MatchLunchesRequest struct {
	ConferenceID      string `json:"conferenceId"`
	LunchDate         string `json:"lunchDate"`
	SendNotifications *bool  `json:"sendNotifications,omitempty"`
}

// ShouldNotify returns the requested notification flag, defaulting to true.
func (r *MatchLunchesRequest) ShouldNotify() bool {
	if r.SendNotifications == nil {
		return true
	}
	return *r.SendNotifications
}

// GroupSummary is the trimmed group shape returned to trigger callers.
type GroupSummary struct {
	ID             string   `json:"id"`
	MemberCount    int      `json:"memberCount"`
	TimeSlot       string   `json:"timeSlot"`
	CommonTopics   []string `json:"commonTopics"`
	MatchRationale string   `json:"matchRationale"`
}

// NotificationCounts is the notification block of the trigger response.
type NotificationCounts struct {
	Sent   int `json:"sent"`
	Failed int `json:"failed"`
	Total  int `json:"total"`
}

// MatchLunchesResponse is the successful trigger response.
type MatchLunchesResponse struct {
	Success                  bool                `json:"success"`
	ConferenceID             string              `json:"conferenceId"`
	LunchDate                string              `json:"lunchDate"`
	Groups                   []GroupSummary      `json:"groups"`
	Stats                    MatchingStats       `json:"stats"`
	UnmatchedRegistrationIDs []string            `json:"unmatchedRegistrationIds"`
	Notifications            *NotificationCounts `json:"notifications,omitempty"`
}

// ReminderRequest is the body of the admin reminder trigger.
type ReminderRequest struct {
	ConferenceID  string `json:"conferenceId"`
	GroupID       string `json:"groupId"`
	MinutesBefore *int   `json:"minutesBefore,omitempty"`
}

// ErrorEvent is the JSON error body returned by the API.
type ErrorEvent struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}
