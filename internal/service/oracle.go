package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/capitalize-ai/powerlunch/internal/llm"
	"github.com/capitalize-ai/powerlunch/internal/model"
	"github.com/capitalize-ai/powerlunch/pkg/logger"
	"github.com/capitalize-ai/powerlunch/pkg/metrics"
)

// MatchToolName is the tool the oracle must answer through.
const MatchToolName = "match_power_lunch_group"

// MatchingStrategy proposes lunch groups for a registration pool.
//
// Propose returns llm.ErrNoToolInvocation when the oracle produced no
// structured answer; any other error is a transport failure.
type MatchingStrategy interface {
	Propose(ctx context.Context, req *model.MatchingRequest) (*model.MatchingResponse, error)
}

// MatchTool is the structured contract the oracle answers through.
var MatchTool = llm.ToolDefinition{
	Name:        MatchToolName,
	Description: "Create Power Lunch group assignments based on registration analysis",
	Properties: map[string]interface{}{
		"groups": map[string]interface{}{
			"type":        "array",
			"description": "Array of matched groups",
			"items": map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"memberIds": map[string]interface{}{
						"type":        "array",
						"items":       map[string]interface{}{"type": "string"},
						"description": "Registration IDs of group members",
					},
					"timeSlot": map[string]interface{}{
						"type":        "string",
						"description": `Recommended time slot (e.g., "12:00 PM - 1:00 PM")`,
					},
					"matchRationale": map[string]interface{}{
						"type":        "string",
						"description": "Explanation of why these people were matched",
					},
					"commonTopics": map[string]interface{}{
						"type":        "array",
						"items":       map[string]interface{}{"type": "string"},
						"description": "Topics this group has in common",
					},
					"suggestedIcebreakers": map[string]interface{}{
						"type":        "array",
						"items":       map[string]interface{}{"type": "string"},
						"description": "Customized icebreaker questions for this group",
					},
				},
				"required": []string{"memberIds", "timeSlot", "matchRationale", "commonTopics", "suggestedIcebreakers"},
			},
		},
		"unmatchedRegistrationIds": map[string]interface{}{
			"type":        "array",
			"items":       map[string]interface{}{"type": "string"},
			"description": "IDs of registrations that could not be matched",
		},
		"matchingNotes": map[string]interface{}{
			"type":        "string",
			"description": "Optional notes about the matching process",
		},
	},
	Required: []string{"groups", "unmatchedRegistrationIds"},
}

// LLMStrategy is a MatchingStrategy backed by an LLM tool call.
type LLMStrategy struct {
	client    llm.Client
	model     string
	maxTokens int
	logger    *logger.Logger
}

// NewLLMStrategy creates a strategy that asks client to call MatchTool.
func NewLLMStrategy(client llm.Client, model string, log *logger.Logger) *LLMStrategy {
	return &LLMStrategy{
		client:    client,
		model:     model,
		maxTokens: 4096,
		logger:    log,
	}
}

// Propose implements MatchingStrategy.
func (s *LLMStrategy) Propose(ctx context.Context, req *model.MatchingRequest) (*model.MatchingResponse, error) {
	if s.client == nil {
		return nil, fmt.Errorf("%w: no LLM provider configured", ErrOracleTransport)
	}

	userPrompt, err := matchingUserPrompt(req)
	if err != nil {
		return nil, fmt.Errorf("failed to build matching prompt: %w", err)
	}

	start := time.Now()
	resp, err := s.client.InvokeTool(ctx, &llm.ToolRequest{
		Model:     s.model,
		System:    matchingSystemPrompt(req.Constraints),
		Messages:  []llm.ChatMessage{{Role: "user", Content: userPrompt}},
		Tool:      MatchTool,
		MaxTokens: s.maxTokens,
	})

	modelName := s.model
	var tokensIn, tokensOut int
	var stopReason string
	if resp != nil {
		if resp.Model != "" {
			modelName = resp.Model
		}
		tokensIn, tokensOut, stopReason = resp.TokensIn, resp.TokensOut, resp.StopReason
	}

	switch {
	case errors.Is(err, llm.ErrNoToolInvocation):
		metrics.RecordOracle(modelName, "no_tool", time.Since(start).Seconds(), tokensIn, tokensOut)
		s.logger.Warn("oracle answered without the matching tool",
			zap.String("provider", s.client.Name()),
			zap.String("stop_reason", stopReason),
		)
		return nil, err
	case err != nil:
		metrics.RecordOracle(modelName, "error", time.Since(start).Seconds(), 0, 0)
		return nil, fmt.Errorf("%w: %w", ErrOracleTransport, err)
	}

	metrics.RecordOracle(modelName, "ok", time.Since(start).Seconds(), tokensIn, tokensOut)

	var out model.MatchingResponse
	if err := resp.Decode(&out); err != nil {
		return nil, fmt.Errorf("%w: tool input does not match schema: %v", ErrOracleOutputInvalid, err)
	}

	s.logger.Info("oracle proposal received",
		zap.String("provider", s.client.Name()),
		zap.String("model", modelName),
		zap.Int("groups", len(out.Groups)),
		zap.Int("unmatched", len(out.UnmatchedRegistrationIDs)),
		zap.Int("tokens_in", tokensIn),
		zap.Int("tokens_out", tokensOut),
	)

	return &out, nil
}

func matchingSystemPrompt(c model.MatchingConstraints) string {
	return fmt.Sprintf(`You are an expert at creating meaningful professional networking matches.
Your goal is to group conference attendees for Power Lunch sessions that maximize networking value.

Consider these factors when matching:
1. Topic overlap - Group people with shared interests
2. Experience diversity - Mix experience levels for mentorship opportunities
3. Industry connections - Create cross-pollination opportunities
4. Goal alignment - Match people with complementary objectives
5. Dietary restrictions - Ensure compatible venue options for each group

Create groups of %d-%d people.
Every registration id must appear in exactly one group or in unmatchedRegistrationIds.
Each group should have a clear rationale for why these specific people were matched.
Suggest 2-3 icebreaker questions customized for each group's common interests.`, c.MinGroupSize, c.MaxGroupSize)
}

func matchingUserPrompt(req *model.MatchingRequest) (string, error) {
	pool, err := json.MarshalIndent(req.Registrations, "", "  ")
	if err != nil {
		return "", err
	}

	return fmt.Sprintf(`Please analyze these %d registrations for the %s Power Lunch at conference %s and create optimal groups.

Registrations:
%s

Use the %s tool to return the matched groups.`, len(req.Registrations), req.LunchDate, req.ConferenceID, pool, MatchToolName), nil
}
