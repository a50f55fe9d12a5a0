/*
service.go - Orchestration of the ledger core over a Store

PURPOSE:
  The Service wires the pure engines (schedule, terms, reconcile,
  allocation) to persistence and identity. Each exported method is one
  external call: it validates input before any mutation, loads records,
  applies transitions, and persists the result as a single atomic step.

ATOMICITY:
  Mutations run inside Store.WithTx. The sweeps (delinquency,
  auto-complete) commit per entry and log-and-continue on failure, so a
  partial sweep leaves processed entries valid and the rest untouched.

VISIBILITY:
  Listings and sweeps are scoped to the acting person (see actor.go).
  Direct reads by ID are unscoped so a just-created record is immediately
  fetchable; mutations on records the actor is not party to report
  ErrNotFound, never "forbidden".

SEE ALSO:
  - store.go: The persistence contract
  - api/handlers.go: HTTP mapping of these operations
*/
package ledger

import (
	"context"
	"fmt"
	"log"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// DefaultActorName is used when no acting identity reaches the service.
const DefaultActorName = "Parent User"

// Service exposes every ledger operation. Now is injectable for tests;
// everything that asks "what day is it" goes through it.
type Service struct {
	store Store
	Now   func() time.Time

	// FallbackActor is the identity used when the context carries none.
	FallbackActor string
}

func NewService(store Store) *Service {
	return &Service{
		store:         store,
		Now:           time.Now,
		FallbackActor: DefaultActorName,
	}
}

// =============================================================================
// ACTING IDENTITY
// =============================================================================

// CurrentActor resolves (get-or-create) the acting person for this call.
func (s *Service) CurrentActor(ctx context.Context) (*Person, error) {
	name := strings.TrimSpace(ActorName(ctx))
	if name == "" {
		name = s.FallbackActor
	}
	return s.GetOrCreatePerson(ctx, name)
}

// GetOrCreatePerson finds a person by full name, creating one if absent.
func (s *Service) GetOrCreatePerson(ctx context.Context, fullName string) (*Person, error) {
	fullName = strings.TrimSpace(fullName)
	if fullName == "" {
		return nil, validationf("person name is required")
	}
	p, err := s.store.GetPersonByName(ctx, fullName)
	if err != nil {
		return nil, err
	}
	if p != nil {
		return p, nil
	}
	p = &Person{ID: uuid.New(), FullName: fullName, CreatedAt: s.Now()}
	if err := s.store.SavePerson(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

// =============================================================================
// ENTRIES
// =============================================================================

// CreateEntryInput carries everything needed to open an entry, including the
// optional installment plan fields.
type CreateEntryInput struct {
	Name             string
	Description      string
	Kind             EntryKind
	DateBorrowed     time.Time
	AmountBorrowed   decimal.Decimal
	Method           PaymentMethod
	BorrowerPersonID *uuid.UUID
	BorrowerGroupID  *uuid.UUID
	LenderPersonID   uuid.UUID
	Notes            string
	PaymentNotes     string

	InstallmentStartDate time.Time
	PaymentFrequency     string
	PaymentFrequencyDay  string
	PaymentTerms         int
}

// ProofFile is an opaque proof blob handed in alongside a create.
type ProofFile struct {
	Filename    string
	ContentType string
	Data        []byte
}

// CreateEntry validates, persists the entry, generates its installment plan
// and terms when applicable, and attaches proof. Proof storage failure
// aborts the whole create.
func (s *Service) CreateEntry(ctx context.Context, in CreateEntryInput, proof *ProofFile) (*Entry, error) {
	if err := s.validateCreateEntry(ctx, in); err != nil {
		return nil, err
	}

	lender, err := s.store.GetPerson(ctx, in.LenderPersonID)
	if err != nil {
		return nil, err
	}
	if lender == nil {
		return nil, validationf("lender not found")
	}

	entry := &Entry{
		ID:               uuid.New(),
		Name:             in.Name,
		Description:      in.Description,
		Kind:             in.Kind,
		DateBorrowed:     Day(in.DateBorrowed),
		AmountBorrowed:   RoundCents(in.AmountBorrowed),
		AmountRemaining:  RoundCents(in.AmountBorrowed),
		Status:           StatusUnpaid,
		Method:           in.Method,
		BorrowerPersonID: in.BorrowerPersonID,
		BorrowerGroupID:  in.BorrowerGroupID,
		LenderPersonID:   in.LenderPersonID,
		Notes:            in.Notes,
		PaymentNotes:     in.PaymentNotes,
		CreatedAt:        s.Now(),
	}
	if entry.Method == "" && in.Kind == StraightExpense {
		entry.Method = MethodCash
	}

	if in.BorrowerPersonID != nil {
		borrower, err := s.store.GetPerson(ctx, *in.BorrowerPersonID)
		if err != nil {
			return nil, err
		}
		if borrower == nil {
			return nil, validationf("borrower person not found")
		}
		entry.ReferenceID = ReferenceID(borrower.FullName, lender.FullName)
	} else {
		group, err := s.store.GetGroup(ctx, *in.BorrowerGroupID)
		if err != nil {
			return nil, err
		}
		if group == nil {
			return nil, validationf("borrower group not found")
		}
		entry.ReferenceID = GroupReferenceID(group.Name, lender.FullName)
	}

	if proof != nil && len(proof.Data) > 0 {
		entry.Proof = proof.Data
	}

	err = s.store.WithTx(ctx, func(tx Store) error {
		ref, err := s.uniqueReferenceID(ctx, tx, entry.ReferenceID)
		if err != nil {
			return err
		}
		entry.ReferenceID = ref

		if err := tx.SaveEntry(ctx, entry); err != nil {
			return err
		}
		if proof != nil && len(proof.Data) > 0 {
			if err := s.saveProofAttachment(ctx, tx, proof, &entry.ID, nil); err != nil {
				return err
			}
		}
		if in.Kind == InstallmentExpense && !in.InstallmentStartDate.IsZero() {
			if err := s.createPlan(ctx, tx, entry, in); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return entry, nil
}

func (s *Service) validateCreateEntry(ctx context.Context, in CreateEntryInput) error {
	switch in.Kind {
	case StraightExpense, GroupExpense, InstallmentExpense:
	default:
		return validationf("invalid entry kind %q", in.Kind)
	}
	if in.Method != "" {
		switch in.Method {
		case MethodCash, MethodBankTransfer, MethodEWallet:
		default:
			return validationf("invalid payment method %q", in.Method)
		}
	}
	if in.BorrowerPersonID != nil && in.BorrowerGroupID != nil {
		return validationf("entry cannot have both borrower person and borrower group")
	}
	if in.BorrowerPersonID == nil && in.BorrowerGroupID == nil {
		return validationf("entry must have either borrower person or borrower group")
	}
	if in.BorrowerPersonID != nil && *in.BorrowerPersonID == in.LenderPersonID {
		return validationf("borrower and lender cannot be the same person")
	}
	if in.BorrowerGroupID != nil {
		member, err := s.store.IsGroupMember(ctx, *in.BorrowerGroupID, in.LenderPersonID)
		if err != nil {
			return err
		}
		if member {
			return validationf("lender cannot be a member of the borrower group")
		}
	}
	if in.Kind == InstallmentExpense && in.BorrowerGroupID != nil {
		return validationf("entry cannot be installment type with group borrower")
	}
	if in.Kind == StraightExpense && in.Method != "" && in.Method != MethodCash {
		return validationf("straight payment entries only allow cash as payment method")
	}
	if !in.AmountBorrowed.IsPositive() {
		return validationf("amount borrowed must be greater than 0")
	}
	return nil
}

func (s *Service) createPlan(ctx context.Context, tx Store, entry *Entry, in CreateEntryInput) error {
	spec := PlanSpec{
		StartDate:    in.InstallmentStartDate,
		Frequency:    Frequency(strings.ToUpper(strings.TrimSpace(in.PaymentFrequency))),
		FrequencyDay: strings.TrimSpace(in.PaymentFrequencyDay),
		TermCount:    in.PaymentTerms,
		Total:        entry.AmountBorrowed,
	}
	schedule, err := GenerateTerms(spec)
	if err != nil {
		return err
	}

	plan := &InstallmentPlan{
		ID:            uuid.New(),
		EntryID:       entry.ID,
		StartDate:     Day(spec.StartDate),
		Frequency:     spec.Frequency,
		FrequencyDay:  spec.FrequencyDay,
		TermCount:     spec.TermCount,
		AmountPerTerm: AmountPerTerm(spec.Total, spec.TermCount),
		Notes:         in.Notes,
	}
	if err := tx.SavePlan(ctx, plan); err != nil {
		return err
	}
	for _, st := range schedule {
		term := &InstallmentTerm{
			ID:             uuid.New(),
			PlanID:         plan.ID,
			Number:         st.Number,
			DueDate:        st.DueDate,
			Status:         TermNotStarted,
			PenaltyApplied: decimal.Zero,
		}
		if err := tx.SaveTerm(ctx, term); err != nil {
			return err
		}
	}
	return nil
}

func (s *Service) uniqueReferenceID(ctx context.Context, tx Store, base string) (string, error) {
	ref := base
	for counter := 1; ; counter++ {
		exists, err := tx.ReferenceIDExists(ctx, ref)
		if err != nil {
			return "", err
		}
		if !exists {
			return ref, nil
		}
		ref = fmt.Sprintf("%s%d", base, counter)
	}
}

func (s *Service) saveProofAttachment(ctx context.Context, tx Store, proof *ProofFile, entryID, paymentID *uuid.UUID) error {
	att := &Attachment{
		ID:          uuid.New(),
		EntryID:     entryID,
		PaymentID:   paymentID,
		Filename:    proof.Filename,
		ContentType: proof.ContentType,
		Size:        int64(len(proof.Data)),
		Data:        proof.Data,
		CreatedAt:   s.Now(),
	}
	if err := tx.SaveAttachment(ctx, att); err != nil {
		return fmt.Errorf("%w: %v", ErrProofStorage, err)
	}
	return nil
}

// GetEntry fetches an entry by ID. Deliberately unscoped: a creator who is
// not party to the entry can still view it right after creation. Listings
// remain actor-filtered.
func (s *Service) GetEntry(ctx context.Context, id uuid.UUID) (*Entry, error) {
	entry, err := s.store.GetEntry(ctx, id)
	if err != nil {
		return nil, err
	}
	if entry == nil {
		return nil, ErrNotFound
	}
	return entry, nil
}

// ListEntries returns the entries the acting person is party to.
func (s *Service) ListEntries(ctx context.Context) ([]*Entry, error) {
	actor, err := s.CurrentActor(ctx)
	if err != nil {
		return nil, err
	}
	all, err := s.store.ListEntries(ctx)
	if err != nil {
		return nil, err
	}
	visible := make([]*Entry, 0, len(all))
	for _, e := range all {
		ok, err := s.entryVisibleTo(ctx, e, actor.ID)
		if err != nil {
			return nil, err
		}
		if ok {
			visible = append(visible, e)
		}
	}
	return visible, nil
}

// UpdateEntryInput covers the editable descriptive fields. Amounts, parties
// and kind are fixed at creation.
type UpdateEntryInput struct {
	Name         string
	Description  string
	DateBorrowed time.Time
	Notes        string
	PaymentNotes string
}

func (s *Service) UpdateEntry(ctx context.Context, id uuid.UUID, in UpdateEntryInput) (*Entry, error) {
	entry, err := s.visibleEntry(ctx, id)
	if err != nil {
		return nil, err
	}
	entry.Name = in.Name
	entry.Description = in.Description
	if !in.DateBorrowed.IsZero() {
		entry.DateBorrowed = Day(in.DateBorrowed)
	}
	entry.Notes = in.Notes
	entry.PaymentNotes = in.PaymentNotes
	if err := s.store.SaveEntry(ctx, entry); err != nil {
		return nil, err
	}
	return entry, nil
}

// DeleteEntry removes an entry respecting referential ordering: allocation
// payment links first, then allocations, then the entry (which cascades its
// plan, terms, payment links, and attachments).
func (s *Service) DeleteEntry(ctx context.Context, id uuid.UUID) error {
	entry, err := s.visibleEntry(ctx, id)
	if err != nil {
		return err
	}
	return s.store.WithTx(ctx, func(tx Store) error {
		allocations, err := tx.AllocationsByEntry(ctx, entry.ID)
		if err != nil {
			return err
		}
		for _, a := range allocations {
			if err := tx.DeleteAllocationLinks(ctx, a.ID); err != nil {
				return err
			}
			if err := tx.DeleteAllocation(ctx, a.ID); err != nil {
				return err
			}
		}
		return tx.DeleteEntry(ctx, entry.ID)
	})
}

// CompleteEntry marks an entry fully paid directly. For installment entries
// every non-terminal term is forced to Paid with no penalty assessment -
// early completion intentionally waives further fees.
func (s *Service) CompleteEntry(ctx context.Context, id uuid.UUID) (*Entry, error) {
	entry, err := s.visibleEntry(ctx, id)
	if err != nil {
		return nil, err
	}
	err = s.store.WithTx(ctx, func(tx Store) error {
		ForceComplete(entry, s.Now())
		if err := tx.SaveEntry(ctx, entry); err != nil {
			return err
		}
		if entry.Kind != InstallmentExpense {
			return nil
		}
		plan, err := tx.GetPlanByEntry(ctx, entry.ID)
		if err != nil || plan == nil {
			return err
		}
		terms, err := tx.TermsByPlan(ctx, plan.ID)
		if err != nil {
			return err
		}
		for _, term := range terms {
			if term.Status.Terminal() {
				continue
			}
			term.Status = TermPaid
			if err := tx.SaveTerm(ctx, term); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return entry, nil
}

// AutoCompleteEntries recomputes every not-yet-paid entry of the acting
// person from its raw payment records and marks the fully covered ones
// Paid. Returns the number of entries completed by this pass. Per-entry
// failures are logged and skipped; the sweep keeps going.
func (s *Service) AutoCompleteEntries(ctx context.Context) (int, error) {
	entries, err := s.ListEntries(ctx)
	if err != nil {
		return 0, err
	}

	completed := 0
	for _, entry := range entries {
		if entry.Status == StatusPaid {
			continue
		}
		entry := entry
		err := s.store.WithTx(ctx, func(tx Store) error {
			payments, err := tx.PaymentsByEntry(ctx, entry.ID)
			if err != nil {
				return err
			}
			if Reconcile(entry, SumPayments(payments), s.Now()) {
				completed++
			}
			return tx.SaveEntry(ctx, entry)
		})
		if err != nil {
			log.Printf("auto-complete: entry %s skipped: %v", entry.ID, err)
		}
	}
	return completed, nil
}

// visibleEntry loads an entry and enforces that the actor is party to it,
// collapsing not-authorized into ErrNotFound.
func (s *Service) visibleEntry(ctx context.Context, id uuid.UUID) (*Entry, error) {
	entry, err := s.store.GetEntry(ctx, id)
	if err != nil {
		return nil, err
	}
	if entry == nil {
		return nil, ErrNotFound
	}
	actor, err := s.CurrentActor(ctx)
	if err != nil {
		return nil, err
	}
	ok, err := s.entryVisibleTo(ctx, entry, actor.ID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrNotFound
	}
	return entry, nil
}

// =============================================================================
// PAYMENTS
// =============================================================================

type CreatePaymentInput struct {
	EntryID       uuid.UUID
	PayeePersonID uuid.UUID
	Amount        decimal.Decimal
	Date          time.Time
	Notes         string

	// AllocationID optionally targets a group-split line item; the
	// allocation must belong to the same entry and its payee must match.
	AllocationID *uuid.UUID
}

// CreatePayment records a payment, links it to its entry (and optionally an
// allocation), applies the amount to the entry via the reconciliation
// contract, and re-sweeps the entry's terms when it is an installment.
func (s *Service) CreatePayment(ctx context.Context, in CreatePaymentInput, proof *ProofFile) (*Payment, error) {
	if !in.Amount.IsPositive() {
		return nil, validationf("payment amount must be greater than 0")
	}
	entry, err := s.GetEntry(ctx, in.EntryID)
	if err != nil {
		return nil, err
	}
	payee, err := s.store.GetPerson(ctx, in.PayeePersonID)
	if err != nil {
		return nil, err
	}
	if payee == nil {
		return nil, validationf("payee not found")
	}

	payment := &Payment{
		ID:            uuid.New(),
		Date:          Day(in.Date),
		Amount:        RoundCents(in.Amount),
		ChangeAmount:  ChangeAmount(entry.AmountRemaining, RoundCents(in.Amount)),
		PayeePersonID: in.PayeePersonID,
		Notes:         in.Notes,
		CreatedAt:     s.Now(),
	}
	if proof != nil && len(proof.Data) > 0 {
		payment.Proof = proof.Data
	}

	err = s.store.WithTx(ctx, func(tx Store) error {
		if err := tx.SavePayment(ctx, payment); err != nil {
			return err
		}
		if proof != nil && len(proof.Data) > 0 {
			if err := s.saveProofAttachment(ctx, tx, proof, &entry.ID, &payment.ID); err != nil {
				return err
			}
		}
		if err := tx.LinkPaymentToEntry(ctx, payment.ID, entry.ID); err != nil {
			return err
		}
		if in.AllocationID != nil {
			if err := s.linkPaymentToAllocation(ctx, tx, payment, entry, *in.AllocationID); err != nil {
				return err
			}
		}

		ApplyPaymentDelta(entry, payment.Amount, s.Now())
		if err := tx.SaveEntry(ctx, entry); err != nil {
			return err
		}
		if entry.Kind == InstallmentExpense {
			return s.sweepEntry(ctx, tx, entry)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return payment, nil
}

func (s *Service) linkPaymentToAllocation(ctx context.Context, tx Store, payment *Payment, entry *Entry, allocationID uuid.UUID) error {
	allocation, err := tx.GetAllocation(ctx, allocationID)
	if err != nil {
		return err
	}
	if allocation == nil {
		return validationf("payment allocation not found")
	}
	if allocation.EntryID != entry.ID {
		return validationf("payment allocation does not belong to this entry")
	}
	if allocation.PersonID != payment.PayeePersonID {
		return validationf("payee must match the person in the payment allocation")
	}
	return tx.LinkPaymentToAllocation(ctx, AllocationPayment{
		PaymentID:    payment.ID,
		AllocationID: allocationID,
		Amount:       payment.Amount,
	})
}

type UpdatePaymentInput struct {
	EntryID       uuid.UUID
	PayeePersonID *uuid.UUID
	Amount        decimal.Decimal
	Date          time.Time
	Notes         string
}

// UpdatePayment edits a payment and applies the amount difference to the
// entry through the same delta path as creation, so edits and the
// auto-complete sweep converge on the same totals.
func (s *Service) UpdatePayment(ctx context.Context, id uuid.UUID, in UpdatePaymentInput) (*Payment, error) {
	payment, err := s.visiblePayment(ctx, id)
	if err != nil {
		return nil, err
	}
	if !in.Amount.IsPositive() {
		return nil, validationf("payment amount must be greater than 0")
	}

	oldAmount := payment.Amount
	payment.Date = Day(in.Date)
	payment.Amount = RoundCents(in.Amount)
	payment.Notes = in.Notes
	if in.PayeePersonID != nil {
		payee, err := s.store.GetPerson(ctx, *in.PayeePersonID)
		if err != nil {
			return nil, err
		}
		if payee == nil {
			return nil, validationf("payee not found")
		}
		payment.PayeePersonID = *in.PayeePersonID
	}

	err = s.store.WithTx(ctx, func(tx Store) error {
		if err := tx.SavePayment(ctx, payment); err != nil {
			return err
		}
		if oldAmount.Equal(payment.Amount) {
			return nil
		}
		entry, err := tx.GetEntry(ctx, in.EntryID)
		if err != nil {
			return err
		}
		if entry == nil {
			return ErrNotFound
		}
		ApplyPaymentDelta(entry, payment.Amount.Sub(oldAmount), s.Now())
		return tx.SaveEntry(ctx, entry)
	})
	if err != nil {
		return nil, err
	}
	return payment, nil
}

// DeletePayment removes a payment and reconciles every entry it was linked
// to from the remaining payment records.
func (s *Service) DeletePayment(ctx context.Context, id uuid.UUID) error {
	payment, err := s.visiblePayment(ctx, id)
	if err != nil {
		return err
	}
	return s.store.WithTx(ctx, func(tx Store) error {
		entries, err := tx.EntriesByPayment(ctx, payment.ID)
		if err != nil {
			return err
		}
		if err := tx.DeletePayment(ctx, payment.ID); err != nil {
			return err
		}
		for _, entry := range entries {
			payments, err := tx.PaymentsByEntry(ctx, entry.ID)
			if err != nil {
				return err
			}
			Reconcile(entry, SumPayments(payments), s.Now())
			if err := tx.SaveEntry(ctx, entry); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *Service) GetPayment(ctx context.Context, id uuid.UUID) (*Payment, error) {
	return s.visiblePayment(ctx, id)
}

// ListPayments returns payments linked to at least one entry the actor is
// party to.
func (s *Service) ListPayments(ctx context.Context) ([]*Payment, error) {
	actor, err := s.CurrentActor(ctx)
	if err != nil {
		return nil, err
	}
	all, err := s.store.ListPayments(ctx)
	if err != nil {
		return nil, err
	}
	visible := make([]*Payment, 0, len(all))
	for _, p := range all {
		ok, err := s.paymentVisibleTo(ctx, p, actor.ID)
		if err != nil {
			return nil, err
		}
		if ok {
			visible = append(visible, p)
		}
	}
	return visible, nil
}

// PaymentsByEntry lists an entry's payments. Unscoped like GetEntry.
func (s *Service) PaymentsByEntry(ctx context.Context, entryID uuid.UUID) ([]*Payment, error) {
	if _, err := s.GetEntry(ctx, entryID); err != nil {
		return nil, err
	}
	return s.store.PaymentsByEntry(ctx, entryID)
}

// PaymentProof returns the proof bytes and content type for a payment: the
// payment's own blob first, then the attachment table as fallback.
func (s *Service) PaymentProof(ctx context.Context, paymentID uuid.UUID) ([]byte, string, error) {
	payment, err := s.visiblePayment(ctx, paymentID)
	if err != nil {
		return nil, "", err
	}
	if len(payment.Proof) > 0 {
		return payment.Proof, "image/jpeg", nil
	}
	attachments, err := s.store.AttachmentsByPayment(ctx, paymentID)
	if err != nil {
		return nil, "", err
	}
	for _, att := range attachments {
		if len(att.Data) > 0 {
			ct := att.ContentType
			if strings.TrimSpace(ct) == "" {
				ct = "image/jpeg"
			}
			return att.Data, ct, nil
		}
	}
	return nil, "", ErrNotFound
}

// HasProof reports whether a payment carries proof, directly or via an
// attachment row. Content is never interpreted.
func (s *Service) HasProof(ctx context.Context, payment *Payment) (bool, error) {
	if len(payment.Proof) > 0 {
		return true, nil
	}
	attachments, err := s.store.AttachmentsByPayment(ctx, payment.ID)
	if err != nil {
		return false, err
	}
	return len(attachments) > 0, nil
}

func (s *Service) visiblePayment(ctx context.Context, id uuid.UUID) (*Payment, error) {
	payment, err := s.store.GetPayment(ctx, id)
	if err != nil {
		return nil, err
	}
	if payment == nil {
		return nil, ErrNotFound
	}
	actor, err := s.CurrentActor(ctx)
	if err != nil {
		return nil, err
	}
	ok, err := s.paymentVisibleTo(ctx, payment, actor.ID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrNotFound
	}
	return payment, nil
}

func (s *Service) paymentVisibleTo(ctx context.Context, payment *Payment, actorID uuid.UUID) (bool, error) {
	entries, err := s.store.EntriesByPayment(ctx, payment.ID)
	if err != nil {
		return false, err
	}
	for _, e := range entries {
		ok, err := s.entryVisibleTo(ctx, e, actorID)
		if err != nil {
			return false, err
		}
		if ok {
			return true, nil
		}
	}
	return false, nil
}

// =============================================================================
// INSTALLMENT TERMS
// =============================================================================

// SkipTerm marks a term skipped, recomputing and applying the penalty.
func (s *Service) SkipTerm(ctx context.Context, termID uuid.UUID) (*InstallmentTerm, error) {
	term, plan, entry, err := s.visibleTerm(ctx, termID)
	if err != nil {
		return nil, err
	}
	err = s.store.WithTx(ctx, func(tx Store) error {
		Skip(term, plan, entry)
		if err := tx.SaveTerm(ctx, term); err != nil {
			return err
		}
		return tx.SaveEntry(ctx, entry)
	})
	if err != nil {
		return nil, err
	}
	return term, nil
}

// UpdateTermStatus overwrites a term's status, applying the delinquent-pay
// late fee rule.
func (s *Service) UpdateTermStatus(ctx context.Context, termID uuid.UUID, status TermStatus) (*InstallmentTerm, error) {
	switch status {
	case TermNotStarted, TermUnpaid, TermDelinquent, TermPaid, TermSkipped:
	default:
		return nil, validationf("invalid term status %q", status)
	}
	term, plan, entry, err := s.visibleTerm(ctx, termID)
	if err != nil {
		return nil, err
	}
	err = s.store.WithTx(ctx, func(tx Store) error {
		SetStatus(term, plan, entry, status)
		if err := tx.SaveTerm(ctx, term); err != nil {
			return err
		}
		return tx.SaveEntry(ctx, entry)
	})
	if err != nil {
		return nil, err
	}
	return term, nil
}

// SkipPenaltyPreviewFor returns the penalty skipping the term would apply.
// Preview only; nothing is persisted.
func (s *Service) SkipPenaltyPreviewFor(ctx context.Context, termID uuid.UUID) (decimal.Decimal, error) {
	_, plan, err := s.termWithPlan(ctx, termID)
	if err != nil {
		return decimal.Zero, err
	}
	return SkipPenaltyPreview(plan), nil
}

// DelinquentFeePreviewFor returns the fee paying the term now would assess;
// zero unless the term is currently delinquent.
func (s *Service) DelinquentFeePreviewFor(ctx context.Context, termID uuid.UUID) (decimal.Decimal, error) {
	term, plan, err := s.termWithPlan(ctx, termID)
	if err != nil {
		return decimal.Zero, err
	}
	return DelinquentFeePreview(term, plan), nil
}

// SweepDelinquentTerms runs the delinquency sweep across every installment
// entry the acting person is party to. Each entry commits independently;
// failures are logged and the sweep continues.
func (s *Service) SweepDelinquentTerms(ctx context.Context) error {
	entries, err := s.ListEntries(ctx)
	if err != nil {
		return err
	}
	for _, entry := range entries {
		if entry.Kind != InstallmentExpense {
			continue
		}
		entry := entry
		err := s.store.WithTx(ctx, func(tx Store) error {
			return s.sweepEntry(ctx, tx, entry)
		})
		if err != nil {
			log.Printf("delinquency sweep: entry %s skipped: %v", entry.ID, err)
		}
	}
	return nil
}

// SweepEntryTerms runs the delinquency sweep for one entry. Unscoped: it is
// triggered when viewing an entry or after a payment, both of which are
// allowed regardless of involvement.
func (s *Service) SweepEntryTerms(ctx context.Context, entryID uuid.UUID) error {
	entry, err := s.GetEntry(ctx, entryID)
	if err != nil {
		return err
	}
	if entry.Kind != InstallmentExpense {
		return nil
	}
	return s.store.WithTx(ctx, func(tx Store) error {
		return s.sweepEntry(ctx, tx, entry)
	})
}

func (s *Service) sweepEntry(ctx context.Context, tx Store, entry *Entry) error {
	plan, err := tx.GetPlanByEntry(ctx, entry.ID)
	if err != nil || plan == nil {
		return err
	}
	terms, err := tx.TermsByPlan(ctx, plan.ID)
	if err != nil {
		return err
	}

	today := s.Now()
	changed := false
	for _, term := range terms {
		if SweepTerm(term, plan, entry, today) {
			if err := tx.SaveTerm(ctx, term); err != nil {
				return err
			}
			changed = true
		}
	}
	if changed {
		return tx.SaveEntry(ctx, entry)
	}
	return nil
}

// PlanForEntry returns an entry's installment plan and terms, ordered by
// term number.
func (s *Service) PlanForEntry(ctx context.Context, entryID uuid.UUID) (*InstallmentPlan, []*InstallmentTerm, error) {
	plan, err := s.store.GetPlanByEntry(ctx, entryID)
	if err != nil {
		return nil, nil, err
	}
	if plan == nil {
		return nil, nil, nil
	}
	terms, err := s.store.TermsByPlan(ctx, plan.ID)
	if err != nil {
		return nil, nil, err
	}
	sort.Slice(terms, func(i, j int) bool { return terms[i].Number < terms[j].Number })
	return plan, terms, nil
}

func (s *Service) visibleTerm(ctx context.Context, termID uuid.UUID) (*InstallmentTerm, *InstallmentPlan, *Entry, error) {
	term, plan, err := s.termWithPlan(ctx, termID)
	if err != nil {
		return nil, nil, nil, err
	}
	entry, err := s.store.GetEntry(ctx, plan.EntryID)
	if err != nil {
		return nil, nil, nil, err
	}
	if entry == nil {
		return nil, nil, nil, ErrNotFound
	}
	actor, err := s.CurrentActor(ctx)
	if err != nil {
		return nil, nil, nil, err
	}
	ok, err := s.entryVisibleTo(ctx, entry, actor.ID)
	if err != nil {
		return nil, nil, nil, err
	}
	if !ok {
		return nil, nil, nil, ErrNotFound
	}
	return term, plan, entry, nil
}

func (s *Service) termWithPlan(ctx context.Context, termID uuid.UUID) (*InstallmentTerm, *InstallmentPlan, error) {
	term, err := s.store.GetTerm(ctx, termID)
	if err != nil {
		return nil, nil, err
	}
	if term == nil {
		return nil, nil, ErrNotFound
	}
	plan, err := s.store.GetPlan(ctx, term.PlanID)
	if err != nil {
		return nil, nil, err
	}
	if plan == nil {
		return nil, nil, ErrNotFound
	}
	return term, plan, nil
}

// =============================================================================
// ALLOCATIONS
// =============================================================================

type AllocationInput struct {
	PersonID    uuid.UUID
	Description string
	Amount      decimal.Decimal
	Notes       string
}

// AllocationView is an allocation with its derived fields attached.
type AllocationView struct {
	Allocation
	PersonName        string
	Status            PayStatus
	PercentageOfTotal decimal.Decimal
}

// CreateAllocations adds group-split line items to an entry.
func (s *Service) CreateAllocations(ctx context.Context, entryID uuid.UUID, items []AllocationInput) ([]*AllocationView, error) {
	entry, err := s.GetEntry(ctx, entryID)
	if err != nil {
		return nil, err
	}

	var views []*AllocationView
	err = s.store.WithTx(ctx, func(tx Store) error {
		for _, item := range items {
			person, err := tx.GetPerson(ctx, item.PersonID)
			if err != nil {
				return err
			}
			if person == nil {
				return validationf("person not found: %s", item.PersonID)
			}
			if !item.Amount.IsPositive() {
				return validationf("allocation amount must be greater than 0")
			}
			a := &Allocation{
				ID:          uuid.New(),
				EntryID:     entry.ID,
				PersonID:    item.PersonID,
				Description: item.Description,
				Amount:      RoundCents(item.Amount),
				Notes:       item.Notes,
			}
			if err := tx.SaveAllocation(ctx, a); err != nil {
				return err
			}
			view, err := s.allocationView(ctx, tx, a, entry, person.FullName)
			if err != nil {
				return err
			}
			views = append(views, view)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return views, nil
}

type UpdateAllocationInput struct {
	PersonID    *uuid.UUID
	Description *string
	Amount      *decimal.Decimal
	Notes       *string
}

func (s *Service) UpdateAllocation(ctx context.Context, id uuid.UUID, in UpdateAllocationInput) (*AllocationView, error) {
	allocation, err := s.store.GetAllocation(ctx, id)
	if err != nil {
		return nil, err
	}
	if allocation == nil {
		return nil, ErrNotFound
	}
	if in.PersonID != nil && *in.PersonID != allocation.PersonID {
		person, err := s.store.GetPerson(ctx, *in.PersonID)
		if err != nil {
			return nil, err
		}
		if person == nil {
			return nil, validationf("person not found: %s", *in.PersonID)
		}
		allocation.PersonID = *in.PersonID
	}
	if in.Description != nil {
		allocation.Description = *in.Description
	}
	if in.Amount != nil {
		if !in.Amount.IsPositive() {
			return nil, validationf("allocation amount must be greater than 0")
		}
		allocation.Amount = RoundCents(*in.Amount)
	}
	if in.Notes != nil {
		allocation.Notes = *in.Notes
	}
	if err := s.store.SaveAllocation(ctx, allocation); err != nil {
		return nil, err
	}
	entry, err := s.GetEntry(ctx, allocation.EntryID)
	if err != nil {
		return nil, err
	}
	return s.allocationViewWithName(ctx, s.store, allocation, entry)
}

// DeleteAllocation removes a line item, dropping its payment links first.
func (s *Service) DeleteAllocation(ctx context.Context, id uuid.UUID) error {
	allocation, err := s.store.GetAllocation(ctx, id)
	if err != nil {
		return err
	}
	if allocation == nil {
		return ErrNotFound
	}
	return s.store.WithTx(ctx, func(tx Store) error {
		if err := tx.DeleteAllocationLinks(ctx, allocation.ID); err != nil {
			return err
		}
		return tx.DeleteAllocation(ctx, allocation.ID)
	})
}

// AllocationsForEntry returns an entry's allocations with derived status and
// percentage. Unscoped like GetEntry.
func (s *Service) AllocationsForEntry(ctx context.Context, entryID uuid.UUID) ([]*AllocationView, error) {
	entry, err := s.GetEntry(ctx, entryID)
	if err != nil {
		return nil, err
	}
	allocations, err := s.store.AllocationsByEntry(ctx, entryID)
	if err != nil {
		return nil, err
	}
	views := make([]*AllocationView, 0, len(allocations))
	for _, a := range allocations {
		view, err := s.allocationViewWithName(ctx, s.store, a, entry)
		if err != nil {
			return nil, err
		}
		views = append(views, view)
	}
	return views, nil
}

// ListAllocations returns allocations on entries the actor is party to.
func (s *Service) ListAllocations(ctx context.Context) ([]*AllocationView, error) {
	actor, err := s.CurrentActor(ctx)
	if err != nil {
		return nil, err
	}
	all, err := s.store.ListAllocations(ctx)
	if err != nil {
		return nil, err
	}
	var views []*AllocationView
	for _, a := range all {
		entry, err := s.store.GetEntry(ctx, a.EntryID)
		if err != nil {
			return nil, err
		}
		if entry == nil {
			continue
		}
		ok, err := s.entryVisibleTo(ctx, entry, actor.ID)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		view, err := s.allocationViewWithName(ctx, s.store, a, entry)
		if err != nil {
			return nil, err
		}
		views = append(views, view)
	}
	return views, nil
}

func (s *Service) allocationViewWithName(ctx context.Context, store Store, a *Allocation, entry *Entry) (*AllocationView, error) {
	person, err := store.GetPerson(ctx, a.PersonID)
	if err != nil {
		return nil, err
	}
	name := ""
	if person != nil {
		name = person.FullName
	}
	return s.allocationView(ctx, store, a, entry, name)
}

func (s *Service) allocationView(ctx context.Context, store Store, a *Allocation, entry *Entry, personName string) (*AllocationView, error) {
	linked, err := store.AllocationPayments(ctx, a.ID)
	if err != nil {
		return nil, err
	}
	entryPayments, err := store.PaymentsByEntry(ctx, entry.ID)
	if err != nil {
		return nil, err
	}
	return &AllocationView{
		Allocation:        *a,
		PersonName:        personName,
		Status:            ResolveAllocationStatus(entry, a, linked, entryPayments),
		PercentageOfTotal: PercentageOfTotal(a.Amount, entry.AmountBorrowed),
	}, nil
}

// =============================================================================
// PENALTY TOTALS AND DASHBOARD
// =============================================================================

// TotalPaidPenalties sums the penalties the acting person's entries have
// actually settled: every assessed penalty of a Paid entry, or only the
// penalties on Paid terms otherwise.
func (s *Service) TotalPaidPenalties(ctx context.Context) (decimal.Decimal, error) {
	entries, err := s.ListEntries(ctx)
	if err != nil {
		return decimal.Zero, err
	}

	total := decimal.Zero
	for _, entry := range entries {
		if entry.Kind != InstallmentExpense {
			continue
		}
		plan, terms, err := s.PlanForEntry(ctx, entry.ID)
		if err != nil {
			return decimal.Zero, err
		}
		if plan == nil {
			continue
		}
		for _, term := range terms {
			if term.PenaltyApplied.IsZero() {
				continue
			}
			if entry.Status == StatusPaid || term.Status == TermPaid {
				total = total.Add(term.PenaltyApplied)
			}
		}
	}
	return total, nil
}

// DashboardSummary aggregates the acting person's entries.
type DashboardSummary struct {
	TotalEntries       int
	UnpaidCount        int
	PartiallyPaidCount int
	PaidCount          int
	TotalBorrowed      decimal.Decimal
	TotalRemaining     decimal.Decimal
	TotalPaidPenalties decimal.Decimal
	RecentEntries      []*Entry
}

// Dashboard builds the summary. When the store's aggregate is unavailable
// (nil totals) the amounts are recomputed from the raw entries instead of
// failing the read.
func (s *Service) Dashboard(ctx context.Context) (*DashboardSummary, error) {
	entries, err := s.ListEntries(ctx)
	if err != nil {
		return nil, err
	}

	summary := &DashboardSummary{TotalEntries: len(entries)}
	ids := make([]uuid.UUID, 0, len(entries))
	for _, e := range entries {
		ids = append(ids, e.ID)
		switch e.Status {
		case StatusUnpaid:
			summary.UnpaidCount++
		case StatusPartiallyPaid:
			summary.PartiallyPaidCount++
		case StatusPaid:
			summary.PaidCount++
		}
	}

	totals, err := s.store.SumEntryAmounts(ctx, ids)
	if err != nil || totals == nil {
		// Aggregate unavailable: recompute from raw records.
		borrowed, remaining := decimal.Zero, decimal.Zero
		for _, e := range entries {
			borrowed = borrowed.Add(e.AmountBorrowed)
			remaining = remaining.Add(e.AmountRemaining)
		}
		summary.TotalBorrowed = borrowed
		summary.TotalRemaining = remaining
	} else {
		summary.TotalBorrowed = totals.Borrowed
		summary.TotalRemaining = totals.Remaining
	}

	penalties, err := s.TotalPaidPenalties(ctx)
	if err != nil {
		return nil, err
	}
	summary.TotalPaidPenalties = penalties

	sorted := make([]*Entry, len(entries))
	copy(sorted, entries)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].CreatedAt.After(sorted[j].CreatedAt) })
	if len(sorted) > 5 {
		sorted = sorted[:5]
	}
	summary.RecentEntries = sorted

	return summary, nil
}

// =============================================================================
// DIRECTORY
// =============================================================================

func (s *Service) ListPeople(ctx context.Context) ([]*Person, error) {
	return s.store.ListPeople(ctx)
}

func (s *Service) CreateGroup(ctx context.Context, name string, memberIDs []uuid.UUID) (*Group, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, validationf("group name is required")
	}
	group := &Group{ID: uuid.New(), Name: name, CreatedAt: s.Now()}
	err := s.store.WithTx(ctx, func(tx Store) error {
		if err := tx.SaveGroup(ctx, group); err != nil {
			return err
		}
		for _, pid := range memberIDs {
			person, err := tx.GetPerson(ctx, pid)
			if err != nil {
				return err
			}
			if person == nil {
				return validationf("person not found: %s", pid)
			}
			if err := tx.AddGroupMember(ctx, group.ID, pid); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return group, nil
}

func (s *Service) ListGroups(ctx context.Context) ([]*Group, error) {
	return s.store.ListGroups(ctx)
}

func (s *Service) GroupMembers(ctx context.Context, groupID uuid.UUID) ([]*Person, error) {
	group, err := s.store.GetGroup(ctx, groupID)
	if err != nil {
		return nil, err
	}
	if group == nil {
		return nil, ErrNotFound
	}
	return s.store.GroupMembers(ctx, groupID)
}
