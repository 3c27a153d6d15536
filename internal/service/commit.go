package service

import (
	"context"
	"fmt"
	"time"

	"github.com/capitalize-ai/powerlunch/internal/model"
	"github.com/capitalize-ai/powerlunch/internal/store"
)

// CommitEngine turns an oracle proposal into group documents and registration
// transitions and writes them as one store batch.
type CommitEngine struct {
	store store.Store
	now   func() time.Time
}

// NewCommitEngine creates a commit engine writing to st.
func NewCommitEngine(st store.Store) *CommitEngine {
	return &CommitEngine{store: st, now: time.Now}
}

// Commit creates one scheduled group per proposed group and marks every member
// matched. Either all writes are applied or none; the returned groups are the
// records that were written, not a re-read.
func (e *CommitEngine) Commit(ctx context.Context, conferenceID, lunchDate string, proposal *model.MatchingResponse) ([]model.Group, error) {
	now := e.now().UTC()
	batch := store.NewBatch()
	groups := make([]model.Group, 0, len(proposal.Groups))

	for _, pg := range proposal.Groups {
		g := model.Group{
			ID:                   e.store.NewGroupID(),
			ConferenceID:         conferenceID,
			LunchDate:            lunchDate,
			TimeSlot:             pg.TimeSlot,
			MemberIDs:            append([]string(nil), pg.MemberIDs...),
			MemberCount:          len(pg.MemberIDs),
			MatchRationale:       pg.MatchRationale,
			CommonTopics:         nonNil(pg.CommonTopics),
			SuggestedIcebreakers: nonNil(pg.SuggestedIcebreakers),
			Status:               model.GroupScheduled,
			CreatedAt:            now,
			UpdatedAt:            now,
		}

		batch.CreateGroup(g)
		for _, id := range g.MemberIDs {
			batch.MarkMatched(id, g.ID, lunchDate, now)
		}
		groups = append(groups, g)
	}

	if err := e.store.Commit(ctx, conferenceID, batch); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCommitFailure, err)
	}

	return groups, nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
