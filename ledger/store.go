/*
store.go - Persistence interface consumed by the ledger core

PURPOSE:
  Defines the contract between the domain logic and the database. Different
  implementations can use SQLite or in-memory storage; the core never touches
  SQL directly.

KEY POINTS:
  - Save* methods upsert by primary key.
  - Get* methods return (nil, nil) when the record does not exist; the
    service layer turns that into ErrNotFound so visibility rules stay in
    one place.
  - WithTx wraps a unit of work in one atomic step. The sweeps call it per
    entry so a failure partway leaves processed entries valid and the
    remainder untouched.

IMPLEMENTATIONS:
  - store/sqlite: production store with schema migration
  - ledger/store: in-memory store for tests and development
*/
package ledger

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// EntryTotals is the aggregate the dashboard asks the store for. A nil
// result means the aggregate was unavailable (no rows, null sums) and the
// caller must fall back to recomputing from raw entries.
type EntryTotals struct {
	Borrowed  decimal.Decimal
	Remaining decimal.Decimal
}

// Store handles persistence for all ledger records.
type Store interface {
	// People
	SavePerson(ctx context.Context, p *Person) error
	GetPerson(ctx context.Context, id uuid.UUID) (*Person, error)
	GetPersonByName(ctx context.Context, fullName string) (*Person, error)
	ListPeople(ctx context.Context) ([]*Person, error)

	// Groups
	SaveGroup(ctx context.Context, g *Group) error
	GetGroup(ctx context.Context, id uuid.UUID) (*Group, error)
	ListGroups(ctx context.Context) ([]*Group, error)
	AddGroupMember(ctx context.Context, groupID, personID uuid.UUID) error
	GroupMembers(ctx context.Context, groupID uuid.UUID) ([]*Person, error)
	IsGroupMember(ctx context.Context, groupID, personID uuid.UUID) (bool, error)

	// Entries
	SaveEntry(ctx context.Context, e *Entry) error
	GetEntry(ctx context.Context, id uuid.UUID) (*Entry, error)
	ListEntries(ctx context.Context) ([]*Entry, error)
	DeleteEntry(ctx context.Context, id uuid.UUID) error
	ReferenceIDExists(ctx context.Context, ref string) (bool, error)
	SumEntryAmounts(ctx context.Context, ids []uuid.UUID) (*EntryTotals, error)

	// Installment plans and terms
	SavePlan(ctx context.Context, p *InstallmentPlan) error
	GetPlan(ctx context.Context, id uuid.UUID) (*InstallmentPlan, error)
	GetPlanByEntry(ctx context.Context, entryID uuid.UUID) (*InstallmentPlan, error)
	SaveTerm(ctx context.Context, t *InstallmentTerm) error
	GetTerm(ctx context.Context, id uuid.UUID) (*InstallmentTerm, error)
	TermsByPlan(ctx context.Context, planID uuid.UUID) ([]*InstallmentTerm, error)

	// Payments and links
	SavePayment(ctx context.Context, p *Payment) error
	GetPayment(ctx context.Context, id uuid.UUID) (*Payment, error)
	ListPayments(ctx context.Context) ([]*Payment, error)
	DeletePayment(ctx context.Context, id uuid.UUID) error
	LinkPaymentToEntry(ctx context.Context, paymentID, entryID uuid.UUID) error
	PaymentsByEntry(ctx context.Context, entryID uuid.UUID) ([]*Payment, error)
	EntriesByPayment(ctx context.Context, paymentID uuid.UUID) ([]*Entry, error)

	// Allocations and links
	SaveAllocation(ctx context.Context, a *Allocation) error
	GetAllocation(ctx context.Context, id uuid.UUID) (*Allocation, error)
	AllocationsByEntry(ctx context.Context, entryID uuid.UUID) ([]*Allocation, error)
	ListAllocations(ctx context.Context) ([]*Allocation, error)
	DeleteAllocation(ctx context.Context, id uuid.UUID) error
	LinkPaymentToAllocation(ctx context.Context, link AllocationPayment) error
	AllocationPayments(ctx context.Context, allocationID uuid.UUID) ([]AllocationPayment, error)
	DeleteAllocationLinks(ctx context.Context, allocationID uuid.UUID) error

	// Attachments (opaque proof blobs)
	SaveAttachment(ctx context.Context, a *Attachment) error
	AttachmentsByPayment(ctx context.Context, paymentID uuid.UUID) ([]*Attachment, error)

	// WithTx executes fn within a transaction. If fn returns an error the
	// transaction is rolled back, otherwise committed.
	WithTx(ctx context.Context, fn func(Store) error) error
}
