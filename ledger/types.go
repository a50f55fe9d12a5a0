/*
Package ledger provides the financial reconciliation core for informal loans.

PURPOSE:
  This package contains the domain types and algorithms that keep a loan
  entry's balance and status consistent: generating installment schedules,
  transitioning term state over time (delinquency detection and penalty
  assessment), reconciling an entry's remaining balance from its payments,
  and deriving per-person allocation status on group-split entries.

KEY CONCEPTS IN THIS FILE (types.go):
  - Entry: A single loan/expense record between a lender and a borrower
  - InstallmentPlan/InstallmentTerm: The repayment schedule for an entry
  - Payment: An independently created payment, linked to entries/allocations
  - Allocation: A line-item split of a group entry assigned to one person

DESIGN PRINCIPLES:
  1. Precision: Uses decimal.Decimal to avoid floating-point errors
  2. Derived state: Allocation status/percentage are never stored, always
     recomputed from (entry, allocations, payments)
  3. One formula: Every penalty site calls LateFee, nothing else
  4. Idempotent reconciliation: re-running with the same payment set yields
     the same (remaining, status)

SEE ALSO:
  - schedule.go: Installment schedule generation
  - terms.go: Term lifecycle engine
  - reconcile.go: Balance/status reconciliation
  - allocation.go: Group-split status resolver
*/
package ledger

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// =============================================================================
// ENTRY - A loan/expense record
// =============================================================================

type EntryKind string

const (
	StraightExpense    EntryKind = "STRAIGHT_EXPENSE"
	GroupExpense       EntryKind = "GROUP_EXPENSE"
	InstallmentExpense EntryKind = "INSTALLMENT_EXPENSE"
)

type PayStatus string

const (
	StatusUnpaid        PayStatus = "UNPAID"
	StatusPartiallyPaid PayStatus = "PARTIALLY_PAID"
	StatusPaid          PayStatus = "PAID"
)

type PaymentMethod string

const (
	MethodCash         PaymentMethod = "CASH"
	MethodBankTransfer PaymentMethod = "BANK_TRANSFER"
	MethodEWallet      PaymentMethod = "E_WALLET"
)

// Entry is a loan between a lender person and a borrower. The borrower is
// exactly one of BorrowerPersonID / BorrowerGroupID - never both, never
// neither. AmountRemaining is maintained by the reconciliation engine and by
// penalty assessment; intermediate writes may transiently violate
// status==Paid <=> remaining==0 until a reconciliation pass runs.
type Entry struct {
	ID              uuid.UUID
	ReferenceID     string
	Name            string
	Description     string
	Kind            EntryKind
	DateBorrowed    time.Time
	DateFullyPaid   *time.Time
	AmountBorrowed  decimal.Decimal
	AmountRemaining decimal.Decimal
	Status          PayStatus
	Method          PaymentMethod
	BorrowerPersonID *uuid.UUID
	BorrowerGroupID  *uuid.UUID
	LenderPersonID   uuid.UUID
	Notes           string
	PaymentNotes    string
	Proof           []byte
	CreatedAt       time.Time
}

// =============================================================================
// INSTALLMENT PLAN / TERM
// =============================================================================

type Frequency string

const (
	Weekly  Frequency = "WEEKLY"
	Monthly Frequency = "MONTHLY"
)

// InstallmentPlan is 1:1 with an InstallmentExpense entry. FrequencyDay is
// the optional explicit day selector: a weekday name for Weekly plans, a
// day-of-month "1".."28" for Monthly plans. Invalid values are ignored and
// the plan falls back to plain start-date spacing.
type InstallmentPlan struct {
	ID            uuid.UUID
	EntryID       uuid.UUID
	StartDate     time.Time
	Frequency     Frequency
	FrequencyDay  string
	TermCount     int
	AmountPerTerm decimal.Decimal
	Notes         string
}

type TermStatus string

const (
	TermNotStarted TermStatus = "NOT_STARTED"
	TermUnpaid     TermStatus = "UNPAID"
	TermDelinquent TermStatus = "DELINQUENT"
	TermPaid       TermStatus = "PAID"
	TermSkipped    TermStatus = "SKIPPED"
)

// Terminal reports whether no further automatic transition applies.
func (s TermStatus) Terminal() bool { return s == TermPaid || s == TermSkipped }

// InstallmentTerm is one scheduled installment within a plan. PenaltyApplied
// is zero until assessed.
type InstallmentTerm struct {
	ID             uuid.UUID
	PlanID         uuid.UUID
	Number         int
	DueDate        time.Time
	Status         TermStatus
	PenaltyApplied decimal.Decimal
}

// =============================================================================
// PAYMENT - Independently created, then linked to entries/allocations
// =============================================================================

// Payment records money handed over by a payee person. ChangeAmount is the
// informational excess over the entry's remaining balance at creation time;
// it never feeds back into the balance.
type Payment struct {
	ID            uuid.UUID
	Date          time.Time
	Amount        decimal.Decimal
	ChangeAmount  decimal.Decimal
	PayeePersonID uuid.UUID
	Notes         string
	Proof         []byte
	CreatedAt     time.Time
}

// AllocationPayment links a payment to a specific allocation, carrying the
// amount of that payment attributed to the allocation.
type AllocationPayment struct {
	PaymentID    uuid.UUID
	AllocationID uuid.UUID
	Amount       decimal.Decimal
}

// =============================================================================
// ALLOCATION - Group-split line item (status is derived, never stored)
// =============================================================================

type Allocation struct {
	ID          uuid.UUID
	EntryID     uuid.UUID
	PersonID    uuid.UUID
	Description string
	Amount      decimal.Decimal
	Notes       string
}

// =============================================================================
// DIRECTORY - People and groups the core consults
// =============================================================================

type Person struct {
	ID        uuid.UUID
	FullName  string
	CreatedAt time.Time
}

type Group struct {
	ID        uuid.UUID
	Name      string
	CreatedAt time.Time
}

// =============================================================================
// ATTACHMENT - Opaque proof blobs (content is never interpreted)
// =============================================================================

type Attachment struct {
	ID          uuid.UUID
	EntryID     *uuid.UUID
	PaymentID   *uuid.UUID
	Filename    string
	ContentType string
	Size        int64
	Data        []byte
	CreatedAt   time.Time
}
