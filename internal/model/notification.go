package model

// PowerLunchNotification is the group summary embedded in match notifications.
type PowerLunchNotification struct {
	GroupID              string   `json:"groupId"`
	LunchDate            string   `json:"lunchDate"`
	TimeSlot             string   `json:"timeSlot"`
	Venue                string   `json:"venue,omitempty"`
	MemberNames          []string `json:"memberNames"`
	CommonTopics         []string `json:"commonTopics"`
	SuggestedIcebreakers []string `json:"suggestedIcebreakers,omitempty"`
}

// GroupNotificationResult records delivery for a single group.
// NotificationsFailed counts tokens not delivered by an attempted send;
// FailedTokens lists only the tokens FCM rejected individually, which are
// safe to prune.
type GroupNotificationResult struct {
	GroupID             string   `json:"groupId"`
	MemberCount         int      `json:"memberCount"`
	NotificationsSent   int      `json:"notificationsSent"`
	NotificationsFailed int      `json:"notificationsFailed"`
	FailedTokens        []string `json:"failedTokens"`
	Error               string   `json:"error,omitempty"`
}

// NotificationSummary aggregates delivery across all groups of a run.
type NotificationSummary struct {
	TotalNotifications int                       `json:"totalNotifications"`
	SuccessCount       int                       `json:"successCount"`
	FailureCount       int                       `json:"failureCount"`
	GroupResults       []GroupNotificationResult `json:"groupResults"`
}

// ReminderResult is the outcome of a single reminder send.
type ReminderResult struct {
	Success           bool   `json:"success"`
	NotificationsSent int    `json:"notificationsSent"`
	Error             string `json:"error,omitempty"`
}
