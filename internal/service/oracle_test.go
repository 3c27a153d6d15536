package service

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/capitalize-ai/powerlunch/internal/llm"
	"github.com/capitalize-ai/powerlunch/internal/model"
	"github.com/capitalize-ai/powerlunch/pkg/logger"
)

func TestLLMStrategy_Propose(t *testing.T) {
	client := &fakeLLM{resp: &llm.ToolResponse{
		ToolName: MatchToolName,
		Input: json.RawMessage(`{
			"groups": [{"memberIds": ["a","b","c"], "timeSlot": "12:00", "matchRationale": "AI", "commonTopics": ["AI"], "suggestedIcebreakers": ["Why AI?"]}],
			"unmatchedRegistrationIds": ["d"],
			"matchingNotes": "ok"
		}`),
		Model:     "fake-model",
		TokensIn:  100,
		TokensOut: 50,
	}}
	strategy := NewLLMStrategy(client, "fake-model", logger.NewNop())

	req := poolRequest("a", "b", "c", "d")
	resp, err := strategy.Propose(context.Background(), req)
	require.NoError(t, err)

	require.Len(t, resp.Groups, 1)
	assert.Equal(t, []string{"a", "b", "c"}, resp.Groups[0].MemberIDs)
	assert.Equal(t, []string{"d"}, resp.UnmatchedRegistrationIDs)
	assert.Equal(t, "ok", resp.MatchingNotes)

	require.NotNil(t, client.req)
	assert.Equal(t, MatchToolName, client.req.Tool.Name)
	assert.Equal(t, "fake-model", client.req.Model)
	assert.Contains(t, client.req.System, "Create groups of 3-6 people.")
	require.Len(t, client.req.Messages, 1)
	assert.Contains(t, client.req.Messages[0].Content, "these 4 registrations for the 2025-03-01 Power Lunch at conference conf-1")
	assert.Contains(t, client.req.Messages[0].Content, `"id": "a"`)
}

func TestLLMStrategy_NoToolInvocation(t *testing.T) {
	client := &fakeLLM{resp: &llm.ToolResponse{Text: "sorry"}, err: llm.ErrNoToolInvocation}

	_, err := NewLLMStrategy(client, "", logger.NewNop()).Propose(context.Background(), poolRequest("a"))
	assert.ErrorIs(t, err, llm.ErrNoToolInvocation)
	assert.NotErrorIs(t, err, ErrOracleTransport)
}

func TestLLMStrategy_TransportFailure(t *testing.T) {
	client := &fakeLLM{err: errors.New("401 unauthorized")}

	_, err := NewLLMStrategy(client, "", logger.NewNop()).Propose(context.Background(), poolRequest("a"))
	assert.ErrorIs(t, err, ErrOracleTransport)
	assert.Contains(t, err.Error(), "401 unauthorized")
}

func TestLLMStrategy_UndecodableInput(t *testing.T) {
	client := &fakeLLM{resp: &llm.ToolResponse{
		ToolName: MatchToolName,
		Input:    json.RawMessage(`{"groups": "not-a-list"}`),
	}}

	_, err := NewLLMStrategy(client, "", logger.NewNop()).Propose(context.Background(), poolRequest("a"))
	assert.ErrorIs(t, err, ErrOracleOutputInvalid)
}

func TestLLMStrategy_NoClient(t *testing.T) {
	_, err := NewLLMStrategy(nil, "", logger.NewNop()).Propose(context.Background(), poolRequest("a"))
	assert.ErrorIs(t, err, ErrOracleTransport)
}

func TestMatchToolSchema(t *testing.T) {
	schema := MatchTool.Schema()
	assert.Equal(t, []string{"groups", "unmatchedRegistrationIds"}, schema["required"])

	props := schema["properties"].(map[string]interface{})
	assert.Contains(t, props, "groups")
	assert.Contains(t, props, "unmatchedRegistrationIds")
	assert.Contains(t, props, "matchingNotes")
}

func TestNewMatchingRequestCarriesCandidates(t *testing.T) {
	regs := []model.Registration{{ID: "a", UserName: "Ada", UserCompany: "ACME", Topics: []string{"AI"}}}
	req := model.NewMatchingRequest(testConference, testDate, regs, model.DefaultConstraints())

	require.Len(t, req.Registrations, 1)
	assert.Equal(t, "ACME", req.Registrations[0].Company)
	assert.Equal(t, 3, req.Constraints.MinGroupSize)
	assert.Equal(t, 6, req.Constraints.MaxGroupSize)
}
