package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/capitalize-ai/powerlunch/internal/llm"
	"github.com/capitalize-ai/powerlunch/internal/model"
	"github.com/capitalize-ai/powerlunch/internal/store"
	"github.com/capitalize-ai/powerlunch/pkg/logger"
	"github.com/capitalize-ai/powerlunch/pkg/metrics"
)

// NetworkingToolName is the tool chat clients call for connection suggestions.
const NetworkingToolName = "generate_networking_suggestions"

const (
	DefaultSuggestionLimit = 5
	MaxSuggestionLimit     = 20

	interestWeight = 60
	goalWeight     = 25
	trackWeight    = 15
)

var (
	// ErrInterestsRequired is returned when a suggestion request names no interests.
	ErrInterestsRequired = errors.New("interests are required")

	// ErrInvalidToolInput is returned when a tool call input does not decode.
	ErrInvalidToolInput = errors.New("invalid networking tool input")
)

// NetworkingTool is the structured contract for networking suggestions.
var NetworkingTool = llm.ToolDefinition{
	Name:        NetworkingToolName,
	Description: "Generates personalized networking connection suggestions based on user profile, interests, and conference context. Analyzes attendee data to find meaningful professional connections.",
	Properties: map[string]interface{}{
		"user_interests": map[string]interface{}{
			"type":        "array",
			"items":       map[string]interface{}{"type": "string"},
			"description": "User's professional interests and topics",
		},
		"user_role": map[string]interface{}{
			"type":        "string",
			"description": "User's current role or position",
		},
		"networking_goals": map[string]interface{}{
			"type":        "array",
			"items":       map[string]interface{}{"type": "string"},
			"description": "What the user hopes to achieve through networking",
		},
		"conference_track": map[string]interface{}{
			"type":        "string",
			"description": "Current conference track or session",
		},
	},
	Required: []string{"user_interests"},
}

// NetworkingService ranks the attendees of a conference day against one
// attendee's interests.
type NetworkingService struct {
	store  store.Store
	logger *logger.Logger
}

// NewNetworkingService creates a networking service.
func NewNetworkingService(st store.Store, log *logger.Logger) *NetworkingService {
	if st == nil {
		st = store.Unavailable{}
	}
	return &NetworkingService{store: st, logger: log}
}

// SuggestFromToolCall decodes raw as the input of NetworkingTool and runs
// Suggest with it.
func (s *NetworkingService) SuggestFromToolCall(ctx context.Context, conferenceID, lunchDate string, raw json.RawMessage, limit int) ([]model.NetworkingSuggestion, error) {
	var in model.NetworkingInput
	if err := json.Unmarshal(raw, &in); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToolInput, err)
	}
	return s.Suggest(ctx, conferenceID, lunchDate, &in, limit)
}

// Suggest returns up to limit attendees registered for lunchDate, best match
// first. Attendees sharing nothing with the input are left out, as is the
// caller's own registration.
func (s *NetworkingService) Suggest(ctx context.Context, conferenceID, lunchDate string, in *model.NetworkingInput, limit int) ([]model.NetworkingSuggestion, error) {
	interests := normalizeTerms(in.UserInterests)
	if len(interests) == 0 {
		return nil, ErrInterestsRequired
	}
	if limit <= 0 {
		limit = DefaultSuggestionLimit
	}
	if limit > MaxSuggestionLimit {
		limit = MaxSuggestionLimit
	}

	regs, err := s.store.PendingRegistrations(ctx, conferenceID, lunchDate)
	if err != nil {
		return nil, fmt.Errorf("failed to load attendees: %w", err)
	}

	goals := normalizeTerms(in.NetworkingGoals)
	track := strings.ToLower(strings.TrimSpace(in.ConferenceTrack))

	suggestions := make([]model.NetworkingSuggestion, 0, len(regs))
	for i := range regs {
		r := &regs[i]
		if in.UserID != "" && r.UserID == in.UserID {
			continue
		}
		if sg, ok := scoreAttendee(r, interests, goals, track, in.ConferenceTrack); ok {
			suggestions = append(suggestions, sg)
		}
	}

	sort.SliceStable(suggestions, func(i, j int) bool {
		a, b := suggestions[i], suggestions[j]
		if a.MatchScore != b.MatchScore {
			return a.MatchScore > b.MatchScore
		}
		if a.Name != b.Name {
			return a.Name < b.Name
		}
		return a.ID < b.ID
	})
	if len(suggestions) > limit {
		suggestions = suggestions[:limit]
	}

	metrics.NetworkingSuggestions.Observe(float64(len(suggestions)))
	s.logger.Debug("networking suggestions ranked",
		zap.String("conference_id", conferenceID),
		zap.String("lunch_date", lunchDate),
		zap.Int("candidates", len(regs)),
		zap.Int("returned", len(suggestions)),
	)
	return suggestions, nil
}

func scoreAttendee(r *model.Registration, interests, goals []string, track, trackLabel string) (model.NetworkingSuggestion, bool) {
	terms := termIndex(r.Topics, r.LinkedInSkills)
	var shared []string
	for _, t := range interests {
		if label, ok := terms[t]; ok {
			shared = append(shared, label)
		}
	}

	goalIndex := termIndex(r.Goals)
	var sharedGoals []string
	for _, g := range goals {
		if label, ok := goalIndex[g]; ok {
			sharedGoals = append(sharedGoals, label)
		}
	}

	inTrack := false
	if track != "" {
		_, inTrack = terms[track]
		inTrack = inTrack || strings.EqualFold(r.UserIndustry, track)
	}

	score := float64(interestWeight*len(shared)) / float64(len(interests))
	if len(goals) > 0 {
		score += float64(goalWeight*len(sharedGoals)) / float64(len(goals))
	}
	if inTrack {
		score += trackWeight
	}
	if score <= 0 {
		return model.NetworkingSuggestion{}, false
	}

	var reasons []string
	if len(shared) > 0 {
		reasons = append(reasons, "Shared interests: "+strings.Join(shared, ", "))
	}
	if len(sharedGoals) > 0 {
		reasons = append(reasons, "Shared goals: "+strings.Join(sharedGoals, ", "))
	}
	if inTrack {
		reasons = append(reasons, "Active in the "+strings.TrimSpace(trackLabel)+" track")
	}
	if shared == nil {
		shared = []string{}
	}

	return model.NetworkingSuggestion{
		ID:                  r.ID,
		Name:                r.UserName,
		Role:                r.UserRole,
		Company:             r.UserCompany,
		MatchScore:          int(math.Round(score)),
		MatchReasons:        reasons,
		SharedInterests:     shared,
		SuggestedIcebreaker: icebreaker(r, shared, sharedGoals),
		LinkedInURL:         r.UserLinkedInURL,
	}, true
}

func icebreaker(r *model.Registration, shared, sharedGoals []string) string {
	switch {
	case len(shared) > 0:
		return fmt.Sprintf("What are you working on in %s these days?", shared[0])
	case len(sharedGoals) > 0:
		return fmt.Sprintf("How are you approaching %s this year?", sharedGoals[0])
	case r.UserCompany != "":
		return fmt.Sprintf("What brought you to the conference from %s?", r.UserCompany)
	default:
		return "What brought you to the conference?"
	}
}

// normalizeTerms lowercases, trims and dedupes terms, keeping first-seen order.
func normalizeTerms(terms []string) []string {
	seen := make(map[string]bool, len(terms))
	out := make([]string, 0, len(terms))
	for _, t := range terms {
		k := strings.ToLower(strings.TrimSpace(t))
		if k == "" || seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, k)
	}
	return out
}

// termIndex maps lowercased terms to their first spelling.
func termIndex(lists ...[]string) map[string]string {
	idx := make(map[string]string)
	for _, list := range lists {
		for _, t := range list {
			label := strings.TrimSpace(t)
			k := strings.ToLower(label)
			if k == "" {
				continue
			}
			if _, ok := idx[k]; !ok {
				idx[k] = label
			}
		}
	}
	return idx
}
