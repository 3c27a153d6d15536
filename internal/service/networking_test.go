package service

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/capitalize-ai/powerlunch/internal/model"
	"github.com/capitalize-ai/powerlunch/internal/store"
	"github.com/capitalize-ai/powerlunch/pkg/logger"
)

func networkingFixture() *store.MemoryStore {
	st := store.NewMemoryStore()
	for _, r := range []model.Registration{
		{ID: "a", UserID: "user-a", UserName: "Ada", UserCompany: "Acme", UserRole: "CTO", UserIndustry: "Finance",
			UserLinkedInURL: "https://linkedin.com/in/ada", Topics: []string{"AI", "Fintech"}, Goals: []string{"hiring"}},
		{ID: "b", UserID: "user-b", UserName: "Bob", Topics: []string{"ai"}, LinkedInSkills: []string{"Go"}},
		{ID: "c", UserID: "user-c", UserName: "Cy", Topics: []string{"gardening"}},
		{ID: "d", UserID: "user-self", UserName: "Self", Topics: []string{"AI"}},
	} {
		r.LunchDate = testDate
		r.Status = model.RegistrationPending
		st.PutRegistration(testConference, r)
	}
	st.PutRegistration(testConference, model.Registration{
		ID: "e", UserID: "user-e", UserName: "Eve", LunchDate: testDate,
		Status: model.RegistrationMatched, Topics: []string{"AI"},
	})
	return st
}

func TestNetworking_Suggest(t *testing.T) {
	svc := NewNetworkingService(networkingFixture(), logger.NewNop())

	got, err := svc.Suggest(context.Background(), testConference, testDate, &model.NetworkingInput{
		UserID:          "user-self",
		UserInterests:   []string{"ai", "go", " AI "},
		NetworkingGoals: []string{"Hiring"},
		ConferenceTrack: "fintech",
	}, 0)
	require.NoError(t, err)
	require.Len(t, got, 2)

	assert.Equal(t, "a", got[0].ID)
	assert.Equal(t, 70, got[0].MatchScore)
	assert.Equal(t, []string{"AI"}, got[0].SharedInterests)
	assert.Equal(t, []string{
		"Shared interests: AI",
		"Shared goals: hiring",
		"Active in the fintech track",
	}, got[0].MatchReasons)
	assert.Equal(t, "What are you working on in AI these days?", got[0].SuggestedIcebreaker)
	assert.Equal(t, "Acme", got[0].Company)
	assert.Equal(t, "https://linkedin.com/in/ada", got[0].LinkedInURL)

	assert.Equal(t, "b", got[1].ID)
	assert.Equal(t, 60, got[1].MatchScore)
	assert.Equal(t, []string{"ai", "Go"}, got[1].SharedInterests)
}

func TestNetworking_SuggestLimits(t *testing.T) {
	svc := NewNetworkingService(networkingFixture(), logger.NewNop())
	in := &model.NetworkingInput{UserInterests: []string{"AI", "Go"}}

	tests := []struct {
		name    string
		limit   int
		wantIDs []string
	}{
		{"default", 0, []string{"b", "a", "d"}},
		{"one", 1, []string{"b"}},
		{"above max", MaxSuggestionLimit + 5, []string{"b", "a", "d"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := svc.Suggest(context.Background(), testConference, testDate, in, tt.limit)
			require.NoError(t, err)

			ids := make([]string, len(got))
			for i, s := range got {
				ids[i] = s.ID
			}
			assert.Equal(t, tt.wantIDs, ids)
		})
	}
}

func TestNetworking_SuggestErrors(t *testing.T) {
	tests := []struct {
		name    string
		st      store.Store
		in      *model.NetworkingInput
		wantErr error
	}{
		{"no interests", networkingFixture(), &model.NetworkingInput{}, ErrInterestsRequired},
		{"blank interests", networkingFixture(), &model.NetworkingInput{UserInterests: []string{" ", ""}}, ErrInterestsRequired},
		{"store down", store.Unavailable{}, &model.NetworkingInput{UserInterests: []string{"ai"}}, store.ErrStoreUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := NewNetworkingService(tt.st, logger.NewNop())
			_, err := svc.Suggest(context.Background(), testConference, testDate, tt.in, 0)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestNetworking_SuggestFromToolCall(t *testing.T) {
	svc := NewNetworkingService(networkingFixture(), logger.NewNop())

	got, err := svc.SuggestFromToolCall(context.Background(), testConference, testDate,
		json.RawMessage(`{"user_interests":["go"],"user_role":"CTO","conference_track":"main"}`), 0)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "b", got[0].ID)
	assert.Equal(t, 60, got[0].MatchScore)

	_, err = svc.SuggestFromToolCall(context.Background(), testConference, testDate,
		json.RawMessage(`{"user_interests":"go"}`), 0)
	assert.ErrorIs(t, err, ErrInvalidToolInput)

	_, err = svc.SuggestFromToolCall(context.Background(), testConference, testDate,
		json.RawMessage(`{"user_role":"CTO"}`), 0)
	assert.ErrorIs(t, err, ErrInterestsRequired)
}

func TestNetworkingTool_Schema(t *testing.T) {
	schema := NetworkingTool.Schema()

	assert.Equal(t, NetworkingToolName, NetworkingTool.Name)
	assert.Equal(t, "object", schema["type"])
	assert.Equal(t, []string{"user_interests"}, schema["required"])

	props, ok := schema["properties"].(map[string]interface{})
	require.True(t, ok)
	for _, key := range []string{"user_interests", "user_role", "networking_goals", "conference_track"} {
		assert.Contains(t, props, key)
	}

	var in model.NetworkingInput
	require.NoError(t, json.Unmarshal([]byte(`{"user_interests":["ai"],"networking_goals":["hiring"]}`), &in))
	assert.Equal(t, []string{"ai"}, in.UserInterests)
	assert.Equal(t, []string{"hiring"}, in.NetworkingGoals)
}
