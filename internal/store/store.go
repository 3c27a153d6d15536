// Package store provides document storage for Power Lunch registrations and groups.
//
// Records are scoped by conference and collection, mirroring the
// conferences/{conferenceId}/{collection}/{id} document layout. Writes are only
// exposed through Commit, which applies a Batch atomically: every group create
// and every registration transition succeeds, or none do.
package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/capitalize-ai/powerlunch/internal/model"
)

const (
	// RegistrationsCollection holds Power Lunch registrations.
	RegistrationsCollection = "power-lunch-registrations"

	// GroupsCollection holds committed Power Lunch groups.
	GroupsCollection = "power-lunch-groups"
)

var (
	// ErrStoreUnavailable is returned when the store is not configured or reachable.
	ErrStoreUnavailable = errors.New("store unavailable")

	// ErrGroupNotFound is returned when a group id does not exist.
	ErrGroupNotFound = errors.New("group not found")

	// ErrPreconditionFailed is returned when a staged transition no longer
	// applies, e.g. the registration is missing or no longer pending.
	ErrPreconditionFailed = errors.New("precondition failed")

	// ErrBatchTooLarge is returned when a batch exceeds the backend's
	// transaction size limit.
	ErrBatchTooLarge = errors.New("batch exceeds transaction limit")
)

// Store is the document store used by the matching pipeline.
type Store interface {
	// PendingRegistrations returns registrations for lunchDate with status pending.
	PendingRegistrations(ctx context.Context, conferenceID, lunchDate string) ([]model.Registration, error)

	// RegistrationsByID returns the registrations that still exist; missing ids are dropped.
	RegistrationsByID(ctx context.Context, conferenceID string, ids []string) ([]model.Registration, error)

	// Group returns a single group or ErrGroupNotFound.
	Group(ctx context.Context, conferenceID, groupID string) (*model.Group, error)

	// NewGroupID allocates an identifier for a group document.
	NewGroupID() string

	// Commit applies every operation in the batch atomically.
	Commit(ctx context.Context, conferenceID string, batch *Batch) error

	// Ping checks that the backend is reachable.
	Ping(ctx context.Context) error
}

// Transition moves a pending registration to matched.
type Transition struct {
	RegistrationID string
	GroupID        string
	LunchDate      string
	UpdatedAt      time.Time
}

// checkTransition verifies that current, the stored registration read for t,
// still allows t. A nil current means the document does not exist.
func checkTransition(t Transition, current *model.Registration) error {
	if current == nil {
		return fmt.Errorf("%w: registration %s does not exist", ErrPreconditionFailed, t.RegistrationID)
	}
	if current.Status != model.RegistrationPending || current.LunchDate != t.LunchDate {
		return fmt.Errorf("%w: registration %s is %s", ErrPreconditionFailed, t.RegistrationID, current.Status)
	}
	return nil
}

// Batch collects group creates and registration transitions for one commit.
type Batch struct {
	groups      []model.Group
	transitions []Transition
}

// NewBatch creates an empty batch.
func NewBatch() *Batch {
	return &Batch{}
}

// CreateGroup stages a group document create.
func (b *Batch) CreateGroup(g model.Group) {
	b.groups = append(b.groups, g)
}

// MarkMatched stages registrationID -> matched with groupID. The store applies it
// only if the registration exists, is pending, and belongs to lunchDate.
func (b *Batch) MarkMatched(registrationID, groupID, lunchDate string, at time.Time) {
	b.transitions = append(b.transitions, Transition{
		RegistrationID: registrationID,
		GroupID:        groupID,
		LunchDate:      lunchDate,
		UpdatedAt:      at,
	})
}

// Groups returns the staged group creates.
func (b *Batch) Groups() []model.Group {
	return b.groups
}

// Transitions returns the staged registration updates.
func (b *Batch) Transitions() []Transition {
	return b.transitions
}

// Len returns the number of staged write operations.
func (b *Batch) Len() int {
	return len(b.groups) + len(b.transitions)
}

// ConferencePath returns the document path of a conference collection.
func ConferencePath(conferenceID, collection string) string {
	return fmt.Sprintf("conferences/%s/%s", conferenceID, collection)
}

func newGroupID() string {
	return uuid.Must(uuid.NewV7()).String()
}

// Unavailable is a Store that fails every call with ErrStoreUnavailable. It
// stands in when no backend could be configured at startup.
type Unavailable struct {
	Reason error
}

func (u Unavailable) err() error {
	if u.Reason != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, u.Reason)
	}
	return ErrStoreUnavailable
}

func (u Unavailable) PendingRegistrations(ctx context.Context, conferenceID, lunchDate string) ([]model.Registration, error) {
	return nil, u.err()
}

func (u Unavailable) RegistrationsByID(ctx context.Context, conferenceID string, ids []string) ([]model.Registration, error) {
	return nil, u.err()
}

func (u Unavailable) Group(ctx context.Context, conferenceID, groupID string) (*model.Group, error) {
	return nil, u.err()
}

func (u Unavailable) NewGroupID() string {
	return newGroupID()
}

func (u Unavailable) Commit(ctx context.Context, conferenceID string, batch *Batch) error {
	return u.err()
}

func (u Unavailable) Ping(ctx context.Context) error {
	return u.err()
}
