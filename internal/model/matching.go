package model

// MatchingConstraints are policy knobs passed to the matching oracle.
type MatchingConstraints struct {
	MinGroupSize                int  `json:"minGroupSize"`
	MaxGroupSize                int  `json:"maxGroupSize"`
	PrioritizeTopicOverlap      bool `json:"prioritizeTopicOverlap"`
	PrioritizeDiverseExperience bool `json:"prioritizeDiverseExperience"`
}

// DefaultConstraints returns the standard group sizing policy.
func DefaultConstraints() MatchingConstraints {
	return MatchingConstraints{
		MinGroupSize:                3,
		MaxGroupSize:                6,
		PrioritizeTopicOverlap:      true,
		PrioritizeDiverseExperience: true,
	}
}

// MatchingCandidate is the subset of a registration the oracle sees.
type MatchingCandidate struct {
	ID                  string   `json:"id"`
	UserID              string   `json:"userId"`
	UserName            string   `json:"userName"`
	Company             string   `json:"company,omitempty"`
	Role                string   `json:"role,omitempty"`
	Industry            string   `json:"industry,omitempty"`
	Topics              []string `json:"topics"`
	Goals               []string `json:"goals"`
	ExperienceLevel     string   `json:"experienceLevel,omitempty"`
	DietaryRestrictions []string `json:"dietaryRestrictions,omitempty"`
	TimeSlotPreference  string   `json:"timeSlotPreference,omitempty"`
}

// MatchingRequest is the registration pool plus constraints sent to the oracle.
type MatchingRequest struct {
	ConferenceID  string              `json:"conferenceId"`
	LunchDate     string              `json:"lunchDate"`
	Registrations []MatchingCandidate `json:"registrations"`
	Constraints   MatchingConstraints `json:"constraints"`
}

// NewMatchingRequest builds an oracle request from pending registrations.
func NewMatchingRequest(conferenceID, lunchDate string, regs []Registration, constraints MatchingConstraints) *MatchingRequest {
	candidates := make([]MatchingCandidate, len(regs))
	for i, r := range regs {
		candidates[i] = MatchingCandidate{
			ID:                  r.ID,
			UserID:              r.UserID,
			UserName:            r.UserName,
			Company:             r.UserCompany,
			Role:                r.UserRole,
			Industry:            r.UserIndustry,
			Topics:              r.Topics,
			Goals:               r.Goals,
			ExperienceLevel:     r.ExperienceLevel,
			DietaryRestrictions: r.DietaryRestrictions,
			TimeSlotPreference:  r.TimeSlotPreference,
		}
	}
	return &MatchingRequest{
		ConferenceID:  conferenceID,
		LunchDate:     lunchDate,
		Registrations: candidates,
		Constraints:   constraints,
	}
}

// ProposedGroup is one group suggested by the oracle.
type ProposedGroup struct {
	MemberIDs            []string `json:"memberIds"`
	TimeSlot             string   `json:"timeSlot"`
	MatchRationale       string   `json:"matchRationale"`
	CommonTopics         []string `json:"commonTopics"`
	SuggestedIcebreakers []string `json:"suggestedIcebreakers"`
}

// MatchingResponse is the structured payload returned through the matching tool.
type MatchingResponse struct {
	Groups                   []ProposedGroup `json:"groups"`
	UnmatchedRegistrationIDs []string        `json:"unmatchedRegistrationIds"`
	MatchingNotes            string          `json:"matchingNotes,omitempty"`
}

// MatchingStats aggregates the outcome of a matching run.
type MatchingStats struct {
	TotalRegistrations     int     `json:"totalRegistrations"`
	MatchedRegistrations   int     `json:"matchedRegistrations"`
	UnmatchedRegistrations int     `json:"unmatchedRegistrations"`
	GroupsCreated          int     `json:"groupsCreated"`
	AverageGroupSize       float64 `json:"averageGroupSize"`
}

// MatchingResult describes the outcome of one orchestration run.
type MatchingResult struct {
	Success                  bool          `json:"success"`
	ConferenceID             string        `json:"conferenceId"`
	LunchDate                string        `json:"lunchDate"`
	Groups                   []Group       `json:"groups"`
	Stats                    MatchingStats `json:"stats"`
	UnmatchedRegistrationIDs []string      `json:"unmatchedRegistrationIds"`
	Notes                    string        `json:"notes,omitempty"`
	Error                    string        `json:"error,omitempty"`
}

// NewMatchingResult returns an empty successful result for the given run.
func NewMatchingResult(conferenceID, lunchDate string) *MatchingResult {
	return &MatchingResult{
		Success:                  true,
		ConferenceID:             conferenceID,
		LunchDate:                lunchDate,
		Groups:                   []Group{},
		UnmatchedRegistrationIDs: []string{},
	}
}
