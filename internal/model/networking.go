package model

// NetworkingInput is the input of the networking suggestion tool. Field names
// follow the tool schema.
type NetworkingInput struct {
	UserID          string   `json:"user_id,omitempty"`
	UserInterests   []string `json:"user_interests"`
	UserRole        string   `json:"user_role,omitempty"`
	NetworkingGoals []string `json:"networking_goals,omitempty"`
	ConferenceTrack string   `json:"conference_track,omitempty"`
}

// NetworkingSuggestion is one attendee worth meeting.
type NetworkingSuggestion struct {
	ID                  string   `json:"id"`
	Name                string   `json:"name"`
	Role                string   `json:"role"`
	Company             string   `json:"company"`
	MatchScore          int      `json:"matchScore"`
	MatchReasons        []string `json:"matchReasons"`
	SharedInterests     []string `json:"sharedInterests"`
	SuggestedIcebreaker string   `json:"suggestedIcebreaker"`
	LinkedInURL         string   `json:"linkedInUrl,omitempty"`
}

// NetworkingResponse is the success body of the networking suggestion endpoint.
type NetworkingResponse struct {
	Success     bool                   `json:"success"`
	Suggestions []NetworkingSuggestion `json:"suggestions"`
}

// NetworkingError is the failure body of the networking suggestion endpoint.
type NetworkingError struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}
