package service

import (
	"fmt"

	"github.com/capitalize-ai/powerlunch/internal/model"
)

// ValidateProposal checks resp against the pool and constraints of req. Every
// group must be within [MinGroupSize, MaxGroupSize], every id must come from
// the pool, and no id may be placed twice or be both grouped and unmatched.
//
// The returned response is normalized: unmatched ids are de-duplicated and
// pool ids the oracle left out entirely are appended to the unmatched list,
// so grouped plus unmatched always partitions the pool.
func ValidateProposal(req *model.MatchingRequest, resp *model.MatchingResponse) (*model.MatchingResponse, error) {
	if resp == nil {
		return nil, fmt.Errorf("%w: empty proposal", ErrOracleOutputInvalid)
	}

	known := make(map[string]bool, len(req.Registrations))
	for _, r := range req.Registrations {
		known[r.ID] = true
	}

	minSize, maxSize := req.Constraints.MinGroupSize, req.Constraints.MaxGroupSize
	placed := make(map[string]int)

	for i, g := range resp.Groups {
		if len(g.MemberIDs) < minSize || (maxSize > 0 && len(g.MemberIDs) > maxSize) {
			return nil, fmt.Errorf("%w: group %d has %d members, want %d-%d",
				ErrOracleOutputInvalid, i, len(g.MemberIDs), minSize, maxSize)
		}
		if len(g.MemberIDs) == 0 {
			return nil, fmt.Errorf("%w: group %d has no members", ErrOracleOutputInvalid, i)
		}
		for _, id := range g.MemberIDs {
			if !known[id] {
				return nil, fmt.Errorf("%w: group %d references unknown registration %q", ErrOracleOutputInvalid, i, id)
			}
			if prev, ok := placed[id]; ok {
				return nil, fmt.Errorf("%w: registration %q placed in groups %d and %d", ErrOracleOutputInvalid, id, prev, i)
			}
			placed[id] = i
		}
	}

	unmatched := make([]string, 0, len(req.Registrations)-len(placed))
	listed := make(map[string]bool, len(resp.UnmatchedRegistrationIDs))
	for _, id := range resp.UnmatchedRegistrationIDs {
		if !known[id] {
			return nil, fmt.Errorf("%w: unmatched list references unknown registration %q", ErrOracleOutputInvalid, id)
		}
		if g, ok := placed[id]; ok {
			return nil, fmt.Errorf("%w: registration %q is both in group %d and unmatched", ErrOracleOutputInvalid, id, g)
		}
		if listed[id] {
			continue
		}
		listed[id] = true
		unmatched = append(unmatched, id)
	}

	for _, r := range req.Registrations {
		if _, ok := placed[r.ID]; !ok && !listed[r.ID] {
			unmatched = append(unmatched, r.ID)
		}
	}

	return &model.MatchingResponse{
		Groups:                   resp.Groups,
		UnmatchedRegistrationIDs: unmatched,
		MatchingNotes:            resp.MatchingNotes,
	}, nil
}
