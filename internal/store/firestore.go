package store

import (
	"context"
	"errors"
	"fmt"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/capitalize-ai/powerlunch/internal/model"
)

// Maximum number of writes in a single Firestore transaction.
const maxFirestoreWrites = 500

// FirestoreStore stores documents under conferences/{conferenceId}/{collection}.
type FirestoreStore struct {
	client *firestore.Client
}

// NewFirestoreStore creates a store backed by a Firestore client.
func NewFirestoreStore(client *firestore.Client) *FirestoreStore {
	return &FirestoreStore{client: client}
}

func (s *FirestoreStore) collection(conferenceID, name string) *firestore.CollectionRef {
	return s.client.Collection("conferences").Doc(conferenceID).Collection(name)
}

// PendingRegistrations implements Store.
func (s *FirestoreStore) PendingRegistrations(ctx context.Context, conferenceID, lunchDate string) ([]model.Registration, error) {
	iter := s.collection(conferenceID, RegistrationsCollection).
		Where("status", "==", string(model.RegistrationPending)).
		Where("lunchDate", "==", lunchDate).
		Documents(ctx)
	defer iter.Stop()

	var regs []model.Registration
	for {
		doc, err := iter.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to query registrations: %w", err)
		}
		var r model.Registration
		if err := doc.DataTo(&r); err != nil {
			return nil, fmt.Errorf("failed to decode registration %s: %w", doc.Ref.ID, err)
		}
		r.ID = doc.Ref.ID
		regs = append(regs, r)
	}
	return regs, nil
}

// RegistrationsByID implements Store.
func (s *FirestoreStore) RegistrationsByID(ctx context.Context, conferenceID string, ids []string) ([]model.Registration, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	coll := s.collection(conferenceID, RegistrationsCollection)
	refs := make([]*firestore.DocumentRef, len(ids))
	for i, id := range ids {
		refs[i] = coll.Doc(id)
	}

	snaps, err := s.client.GetAll(ctx, refs)
	if err != nil {
		return nil, fmt.Errorf("failed to read registrations: %w", err)
	}

	regs := make([]model.Registration, 0, len(snaps))
	for _, snap := range snaps {
		if !snap.Exists() {
			continue
		}
		var r model.Registration
		if err := snap.DataTo(&r); err != nil {
			return nil, fmt.Errorf("failed to decode registration %s: %w", snap.Ref.ID, err)
		}
		r.ID = snap.Ref.ID
		regs = append(regs, r)
	}
	return regs, nil
}

// Group implements Store.
func (s *FirestoreStore) Group(ctx context.Context, conferenceID, groupID string) (*model.Group, error) {
	snap, err := s.collection(conferenceID, GroupsCollection).Doc(groupID).Get(ctx)
	if status.Code(err) == codes.NotFound {
		return nil, ErrGroupNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get group: %w", err)
	}

	var g model.Group
	if err := snap.DataTo(&g); err != nil {
		return nil, fmt.Errorf("failed to decode group: %w", err)
	}
	g.ID = snap.Ref.ID
	return &g, nil
}

// NewGroupID implements Store using Firestore's client-side id allocation.
func (s *FirestoreStore) NewGroupID() string {
	return s.client.Collection(GroupsCollection).NewDoc().ID
}

// Commit implements Store. Registration snapshots are read inside the
// transaction and re-checked before any write is staged, so a registration
// matched by a concurrent run aborts this commit.
func (s *FirestoreStore) Commit(ctx context.Context, conferenceID string, batch *Batch) error {
	if batch.Len() == 0 {
		return nil
	}
	if batch.Len() > maxFirestoreWrites {
		return fmt.Errorf("%w: %d operations, limit %d", ErrBatchTooLarge, batch.Len(), maxFirestoreWrites)
	}

	groups := s.collection(conferenceID, GroupsCollection)
	registrations := s.collection(conferenceID, RegistrationsCollection)
	transitions := batch.Transitions()

	refs := make([]*firestore.DocumentRef, len(transitions))
	for i, t := range transitions {
		refs[i] = registrations.Doc(t.RegistrationID)
	}

	err := s.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		snaps, err := tx.GetAll(refs)
		if err != nil {
			return err
		}
		current := make([]*model.Registration, len(snaps))
		for i, snap := range snaps {
			if !snap.Exists() {
				continue
			}
			var r model.Registration
			if err := snap.DataTo(&r); err != nil {
				return err
			}
			current[i] = &r
		}
		return applyCommit(batch, current, &firestoreTxWriter{
			tx:            tx,
			groups:        groups,
			registrations: registrations,
		})
	})
	if err != nil {
		if errors.Is(err, ErrPreconditionFailed) {
			return err
		}
		return fmt.Errorf("failed to commit batch: %w", err)
	}
	return nil
}

// commitWriter stages the writes of a verified batch.
type commitWriter interface {
	CreateGroup(g model.Group) error
	MarkMatched(t Transition) error
}

// applyCommit checks every transition against current, the registrations
// read in the same transaction in transition order, and stages the batch on w
// only when all of them pass.
func applyCommit(batch *Batch, current []*model.Registration, w commitWriter) error {
	transitions := batch.Transitions()
	if len(current) != len(transitions) {
		return fmt.Errorf("read %d registrations for %d transitions", len(current), len(transitions))
	}

	seen := make(map[string]bool, len(transitions))
	for i, t := range transitions {
		if err := checkTransition(t, current[i]); err != nil {
			return err
		}
		if seen[t.RegistrationID] {
			return fmt.Errorf("%w: registration %s staged twice", ErrPreconditionFailed, t.RegistrationID)
		}
		seen[t.RegistrationID] = true
	}

	for _, g := range batch.Groups() {
		if err := w.CreateGroup(g); err != nil {
			return err
		}
	}
	for _, t := range transitions {
		if err := w.MarkMatched(t); err != nil {
			return err
		}
	}
	return nil
}

type firestoreTxWriter struct {
	tx            *firestore.Transaction
	groups        *firestore.CollectionRef
	registrations *firestore.CollectionRef
}

func (w *firestoreTxWriter) CreateGroup(g model.Group) error {
	return w.tx.Create(w.groups.Doc(g.ID), g)
}

func (w *firestoreTxWriter) MarkMatched(t Transition) error {
	return w.tx.Update(w.registrations.Doc(t.RegistrationID), []firestore.Update{
		{Path: "status", Value: string(model.RegistrationMatched)},
		{Path: "groupId", Value: t.GroupID},
		{Path: "updatedAt", Value: t.UpdatedAt},
	})
}

// Ping implements Store.
func (s *FirestoreStore) Ping(ctx context.Context) error {
	iter := s.client.Collection("conferences").Limit(1).Documents(ctx)
	defer iter.Stop()

	if _, err := iter.Next(); err != nil && !errors.Is(err, iterator.Done) {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return nil
}
