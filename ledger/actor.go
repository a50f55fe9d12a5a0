/*
actor.go - Request-scoped acting identity

PURPOSE:
  Every core call is scoped to an acting person: listings and sweeps only
  touch entries the actor is party to, and mutations on someone else's
  records report not-found. The actor travels as an explicit context value
  threaded from the API layer - never ambient global state - so the
  reconciliation and sweep functions stay pure with respect to their inputs.

VISIBILITY RULE:
  Person borrower: the actor must be the lender XOR the borrower (never
  both, never neither - borrower == lender is rejected at creation).
  Group borrower: membership stands in for "is borrower"; the actor must be
  the lender or a member of the borrower group.
*/
package ledger

import (
	"context"

	"github.com/google/uuid"
)

type actorKey struct{}

// WithActorName returns a context carrying the acting person's full name.
// The API layer sets this from the identity header, falling back to the
// configured default actor.
func WithActorName(ctx context.Context, name string) context.Context {
	return context.WithValue(ctx, actorKey{}, name)
}

// ActorName extracts the acting person's name, empty when absent.
func ActorName(ctx context.Context) string {
	name, _ := ctx.Value(actorKey{}).(string)
	return name
}

// entryVisibleTo reports whether the actor is party to the entry.
func (s *Service) entryVisibleTo(ctx context.Context, entry *Entry, actorID uuid.UUID) (bool, error) {
	isLender := entry.LenderPersonID == actorID
	isBorrower := entry.BorrowerPersonID != nil && *entry.BorrowerPersonID == actorID

	if entry.BorrowerGroupID != nil {
		if isLender {
			return true, nil
		}
		return s.store.IsGroupMember(ctx, *entry.BorrowerGroupID, actorID)
	}

	// Exactly one of lender/borrower.
	return isLender != isBorrower, nil
}
