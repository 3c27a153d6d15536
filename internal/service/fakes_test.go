package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/capitalize-ai/powerlunch/internal/llm"
	"github.com/capitalize-ai/powerlunch/internal/model"
	"github.com/capitalize-ai/powerlunch/internal/push"
	"github.com/capitalize-ai/powerlunch/internal/store"
	"github.com/capitalize-ai/powerlunch/pkg/logger"
)

const (
	testConference = "conf-1"
	testDate       = "2025-03-01"
)

type strategyFunc func(ctx context.Context, req *model.MatchingRequest) (*model.MatchingResponse, error)

func (f strategyFunc) Propose(ctx context.Context, req *model.MatchingRequest) (*model.MatchingResponse, error) {
	return f(ctx, req)
}

func staticStrategy(resp *model.MatchingResponse, err error) (MatchingStrategy, *int) {
	calls := new(int)
	return strategyFunc(func(ctx context.Context, req *model.MatchingRequest) (*model.MatchingResponse, error) {
		*calls++
		return resp, err
	}), calls
}

type fakeLLM struct {
	resp *llm.ToolResponse
	err  error
	req  *llm.ToolRequest
}

func (f *fakeLLM) InvokeTool(ctx context.Context, req *llm.ToolRequest) (*llm.ToolResponse, error) {
	f.req = req
	return f.resp, f.err
}

func (f *fakeLLM) Name() string     { return "fake" }
func (f *fakeLLM) Models() []string { return []string{"fake-model"} }

type fakeLocker struct {
	mu       sync.Mutex
	held     map[string]bool
	err      error
	released []string
}

func newFakeLocker() *fakeLocker {
	return &fakeLocker{held: make(map[string]bool)}
}

func (l *fakeLocker) Acquire(ctx context.Context, key string, ttl time.Duration) (func(context.Context) error, bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.err != nil {
		return nil, false, l.err
	}
	if l.held[key] {
		return nil, false, nil
	}
	l.held[key] = true
	return func(context.Context) error {
		l.mu.Lock()
		defer l.mu.Unlock()
		delete(l.held, key)
		l.released = append(l.released, key)
		return nil
	}, true, nil
}

type fakePublisher struct {
	mu     sync.Mutex
	events []model.MatchEvent
	err    error
}

func (p *fakePublisher) PublishMatchEvent(ctx context.Context, event *model.MatchEvent) (uint64, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.err != nil {
		return 0, p.err
	}
	p.events = append(p.events, *event)
	return uint64(len(p.events)), nil
}

type sendFunc func(ctx context.Context, msg *push.Message) (*push.Result, error)

type fakeSender struct {
	mu   sync.Mutex
	msgs []*push.Message
	fn   sendFunc
}

func (s *fakeSender) SendMulticast(ctx context.Context, msg *push.Message) (*push.Result, error) {
	s.mu.Lock()
	s.msgs = append(s.msgs, msg)
	s.mu.Unlock()

	if s.fn != nil {
		return s.fn(ctx, msg)
	}
	return &push.Result{SuccessCount: len(msg.Tokens), FailedTokens: []string{}}, nil
}

// failingStore fails selected operations and delegates the rest.
type failingStore struct {
	*store.MemoryStore
	fetchErr  error
	commitErr error
	readErr   error
}

func (s *failingStore) PendingRegistrations(ctx context.Context, conferenceID, lunchDate string) ([]model.Registration, error) {
	if s.fetchErr != nil {
		return nil, s.fetchErr
	}
	return s.MemoryStore.PendingRegistrations(ctx, conferenceID, lunchDate)
}

func (s *failingStore) RegistrationsByID(ctx context.Context, conferenceID string, ids []string) ([]model.Registration, error) {
	if s.readErr != nil {
		return nil, s.readErr
	}
	return s.MemoryStore.RegistrationsByID(ctx, conferenceID, ids)
}

func (s *failingStore) Commit(ctx context.Context, conferenceID string, batch *store.Batch) error {
	if s.commitErr != nil {
		return s.commitErr
	}
	return s.MemoryStore.Commit(ctx, conferenceID, batch)
}

func seedRegistrations(st *store.MemoryStore, topics map[string]string) {
	for id, topic := range topics {
		st.PutRegistration(testConference, model.Registration{
			ID:        id,
			UserID:    "user-" + id,
			UserName:  "User " + id,
			FCMToken:  "token-" + id,
			LunchDate: testDate,
			Topics:    []string{topic},
			Status:    model.RegistrationPending,
		})
	}
}

func newTestService(st store.Store, strategy MatchingStrategy, locker Locker, events EventPublisher) *MatchingService {
	return NewMatchingService(st, strategy, locker, events, DefaultMatchingConfig(), logger.NewNop())
}

func sequentialIDs() func() string {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("group-%d", n)
	}
}
