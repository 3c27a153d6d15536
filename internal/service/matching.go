package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/capitalize-ai/powerlunch/internal/llm"
	"github.com/capitalize-ai/powerlunch/internal/model"
	"github.com/capitalize-ai/powerlunch/internal/store"
	"github.com/capitalize-ai/powerlunch/pkg/logger"
	"github.com/capitalize-ai/powerlunch/pkg/metrics"
)

var tracer = otel.Tracer("github.com/capitalize-ai/powerlunch/internal/service")

// EventPublisher publishes pipeline events. Publishing is best effort.
type EventPublisher interface {
	PublishMatchEvent(ctx context.Context, event *model.MatchEvent) (uint64, error)
}

// MatchingConfig holds the policy of a MatchingService.
type MatchingConfig struct {
	Constraints   model.MatchingConstraints
	OracleTimeout time.Duration
	CommitTimeout time.Duration
	LockTTL       time.Duration
}

// DefaultMatchingConfig returns the standard matching policy.
func DefaultMatchingConfig() MatchingConfig {
	return MatchingConfig{
		Constraints:   model.DefaultConstraints(),
		OracleTimeout: 90 * time.Second,
		CommitTimeout: 15 * time.Second,
		LockTTL:       5 * time.Minute,
	}
}

// MatchingService runs the fetch, oracle, commit sequence for one conference day.
type MatchingService struct {
	store    store.Store
	strategy MatchingStrategy
	commit   *CommitEngine
	locker   Locker
	events   EventPublisher
	cfg      MatchingConfig
	logger   *logger.Logger
}

// NewMatchingService creates a matching service. A nil locker grants every
// run; a nil publisher disables events.
func NewMatchingService(
	st store.Store,
	strategy MatchingStrategy,
	locker Locker,
	events EventPublisher,
	cfg MatchingConfig,
	log *logger.Logger,
) *MatchingService {
	if st == nil {
		st = store.Unavailable{}
	}
	if locker == nil {
		locker = NoopLocker{}
	}
	return &MatchingService{
		store:    st,
		strategy: strategy,
		commit:   NewCommitEngine(st),
		locker:   locker,
		events:   events,
		cfg:      cfg,
		logger:   log,
	}
}

// Run matches the pending registrations of conferenceID for lunchDate. It
// never returns an error: fatal failures come back as Success=false with
// Error set and zero stats, and nothing is written in that case.
func (s *MatchingService) Run(ctx context.Context, conferenceID, lunchDate string) *model.MatchingResult {
	start := time.Now()
	log := s.logger.WithRun(conferenceID, lunchDate)

	ctx, span := tracer.Start(ctx, "powerlunch.run", trace.WithAttributes(
		attribute.String("conference.id", conferenceID),
		attribute.String("lunch.date", lunchDate),
	))
	defer span.End()

	fail := func(step string, err error) *model.MatchingResult {
		log.Error("matching run failed", zap.String("step", step), zap.Error(err))
		span.RecordError(err)
		span.SetStatus(codes.Error, step)

		result := model.NewMatchingResult(conferenceID, lunchDate)
		result.Success = false
		result.Error = err.Error()

		s.publish(ctx, log, &model.MatchEvent{
			Type:         model.EventTypeMatchFailed,
			ConferenceID: conferenceID,
			LunchDate:    lunchDate,
			Reason:       err.Error(),
		})
		metrics.RecordMatchingRun("failed", time.Since(start).Seconds(), 0, 0, 0)
		return result
	}

	unlock, ok, err := s.locker.Acquire(ctx, RunLockKey(conferenceID, lunchDate), s.cfg.LockTTL)
	switch {
	case err != nil:
		log.Warn("run lock unavailable, relying on transactional commit", zap.String("step", "lock"), zap.Error(err))
	case !ok:
		return fail("lock", ErrRunInProgress)
	default:
		defer func() {
			if err := unlock(context.WithoutCancel(ctx)); err != nil {
				log.Warn("failed to release run lock", zap.Error(err))
			}
		}()
	}

	regs, err := s.fetchPending(ctx, conferenceID, lunchDate)
	if err != nil {
		return fail("fetch", err)
	}

	result := model.NewMatchingResult(conferenceID, lunchDate)
	if len(regs) == 0 {
		log.Info("no pending registrations", zap.String("step", "fetch"))
		metrics.RecordMatchingRun("empty", time.Since(start).Seconds(), 0, 0, 0)
		return result
	}
	log.Info("pending registrations fetched", zap.String("step", "fetch"), zap.Int("count", len(regs)))

	req := model.NewMatchingRequest(conferenceID, lunchDate, regs, s.cfg.Constraints)
	proposal, err := s.propose(ctx, req)
	switch {
	case errors.Is(err, llm.ErrNoToolInvocation):
		return s.noMatches(start, log, result, regs, "matching oracle did not use the matching tool")
	case errors.Is(err, ErrOracleOutputInvalid):
		log.Warn("discarding oracle proposal", zap.String("step", "oracle"), zap.Error(err))
		return s.noMatches(start, log, result, regs, err.Error())
	case err != nil:
		return fail("oracle", err)
	}

	proposal, err = ValidateProposal(req, proposal)
	if err != nil {
		log.Warn("discarding oracle proposal", zap.String("step", "validate"), zap.Error(err))
		return s.noMatches(start, log, result, regs, err.Error())
	}
	if len(proposal.Groups) == 0 {
		return s.noMatches(start, log, result, regs, proposal.MatchingNotes)
	}

	groups, err := s.commitGroups(ctx, conferenceID, lunchDate, proposal)
	if err != nil {
		return fail("commit", err)
	}

	matched := 0
	for _, g := range groups {
		matched += g.MemberCount
	}

	result.Groups = groups
	result.UnmatchedRegistrationIDs = proposal.UnmatchedRegistrationIDs
	result.Notes = proposal.MatchingNotes
	result.Stats = model.MatchingStats{
		TotalRegistrations:     len(regs),
		MatchedRegistrations:   matched,
		UnmatchedRegistrations: len(proposal.UnmatchedRegistrationIDs),
		GroupsCreated:          len(groups),
		AverageGroupSize:       float64(matched) / float64(len(groups)),
	}

	log.Info("matching completed",
		zap.String("step", "done"),
		zap.Int("groups", result.Stats.GroupsCreated),
		zap.Int("matched", result.Stats.MatchedRegistrations),
		zap.Int("unmatched", result.Stats.UnmatchedRegistrations),
	)
	span.SetAttributes(attribute.Int("groups.created", len(groups)))

	groupIDs := make([]string, len(groups))
	for i, g := range groups {
		groupIDs[i] = g.ID
	}
	stats := result.Stats
	s.publish(ctx, log, &model.MatchEvent{
		Type:         model.EventTypeMatched,
		ConferenceID: conferenceID,
		LunchDate:    lunchDate,
		GroupIDs:     groupIDs,
		Stats:        &stats,
	})
	metrics.RecordMatchingRun("matched", time.Since(start).Seconds(), len(groups), matched, len(proposal.UnmatchedRegistrationIDs))

	return result
}

func (s *MatchingService) fetchPending(ctx context.Context, conferenceID, lunchDate string) ([]model.Registration, error) {
	ctx, span := tracer.Start(ctx, "powerlunch.fetch")
	defer span.End()

	regs, err := s.store.PendingRegistrations(ctx, conferenceID, lunchDate)
	if err != nil {
		span.RecordError(err)
		if errors.Is(err, store.ErrStoreUnavailable) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %w", store.ErrStoreUnavailable, err)
	}
	span.SetAttributes(attribute.Int("registrations.pending", len(regs)))
	return regs, nil
}

func (s *MatchingService) propose(ctx context.Context, req *model.MatchingRequest) (*model.MatchingResponse, error) {
	ctx, span := tracer.Start(ctx, "powerlunch.oracle")
	defer span.End()

	if s.strategy == nil {
		return nil, fmt.Errorf("%w: no matching strategy configured", ErrOracleTransport)
	}

	if s.cfg.OracleTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.OracleTimeout)
		defer cancel()
	}

	proposal, err := s.strategy.Propose(ctx, req)
	if err != nil {
		span.RecordError(err)
		if errors.Is(err, llm.ErrNoToolInvocation) || errors.Is(err, ErrOracleOutputInvalid) || errors.Is(err, ErrOracleTransport) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %w", ErrOracleTransport, err)
	}
	if proposal == nil {
		return nil, llm.ErrNoToolInvocation
	}
	return proposal, nil
}

func (s *MatchingService) commitGroups(ctx context.Context, conferenceID, lunchDate string, proposal *model.MatchingResponse) ([]model.Group, error) {
	ctx, span := tracer.Start(ctx, "powerlunch.commit")
	defer span.End()

	if s.cfg.CommitTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.CommitTimeout)
		defer cancel()
	}

	groups, err := s.commit.Commit(ctx, conferenceID, lunchDate, proposal)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "commit failed")
		return nil, err
	}
	return groups, nil
}

// noMatches finishes a run that produced no groups: every fetched
// registration is reported unmatched and nothing is written.
func (s *MatchingService) noMatches(start time.Time, log *logger.Logger, result *model.MatchingResult, regs []model.Registration, notes string) *model.MatchingResult {
	result.UnmatchedRegistrationIDs = model.RegistrationIDs(regs)
	result.Notes = notes
	result.Stats = model.MatchingStats{
		TotalRegistrations:     len(regs),
		UnmatchedRegistrations: len(regs),
	}

	log.Info("no groups created", zap.String("step", "oracle"), zap.Int("unmatched", len(regs)))
	metrics.RecordMatchingRun("no_groups", time.Since(start).Seconds(), 0, 0, len(regs))
	return result
}

func (s *MatchingService) publish(ctx context.Context, log *logger.Logger, event *model.MatchEvent) {
	if s.events == nil {
		return
	}
	if event.ID == "" {
		event.ID = uuid.Must(uuid.NewV7()).String()
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now().UTC()
	}
	if _, err := s.events.PublishMatchEvent(context.WithoutCancel(ctx), event); err != nil {
		log.Warn("failed to publish event", zap.String("event_type", string(event.Type)), zap.Error(err))
	}
}
