/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the internal domain model from the external API contract.

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients

AMOUNTS:
  Monetary fields marshal as quoted decimal strings ("1050.00") via
  shopspring/decimal, never as binary floats.

VALIDATION:
  Validation is done in the service layer, not in DTOs. DTOs are pure data
  carriers.

SEE ALSO:
  - handlers.go: Uses these types
  - ledger/service.go: The operations behind them
*/
package api

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/warp/loan-ledger/ledger"
)

// =============================================================================
// ENTRY TYPES
// =============================================================================

// EntryDTO represents a loan/expense entry in API responses.
type EntryDTO struct {
	ID               string          `json:"id"`
	ReferenceID      string          `json:"reference_id"`
	Name             string          `json:"name"`
	Description      string          `json:"description,omitempty"`
	Kind             string          `json:"kind"`
	DateBorrowed     string          `json:"date_borrowed"`
	DateFullyPaid    *string         `json:"date_fully_paid,omitempty"`
	AmountBorrowed   decimal.Decimal `json:"amount_borrowed"`
	AmountRemaining  decimal.Decimal `json:"amount_remaining"`
	Status           string          `json:"status"`
	Method           string          `json:"method,omitempty"`
	BorrowerPersonID *string         `json:"borrower_person_id,omitempty"`
	BorrowerGroupID  *string         `json:"borrower_group_id,omitempty"`
	LenderPersonID   string          `json:"lender_person_id"`
	Notes            string          `json:"notes,omitempty"`
	PaymentNotes     string          `json:"payment_notes,omitempty"`
	CreatedAt        string          `json:"created_at,omitempty"`
}

// CreateEntryRequest is the request to create an entry. When creating an
// installment entry, the installment_* fields define the schedule.
type CreateEntryRequest struct {
	Name             string          `json:"name"`
	Description      string          `json:"description,omitempty"`
	Kind             string          `json:"kind"`
	DateBorrowed     string          `json:"date_borrowed"`
	AmountBorrowed   decimal.Decimal `json:"amount_borrowed"`
	Method           string          `json:"method,omitempty"`
	BorrowerPersonID *string         `json:"borrower_person_id,omitempty"`
	BorrowerGroupID  *string         `json:"borrower_group_id,omitempty"`
	LenderPersonID   string          `json:"lender_person_id"`
	Notes            string          `json:"notes,omitempty"`
	PaymentNotes     string          `json:"payment_notes,omitempty"`

	InstallmentStartDate string `json:"installment_start_date,omitempty"`
	PaymentFrequency     string `json:"payment_frequency,omitempty"`
	PaymentFrequencyDay  string `json:"payment_frequency_day,omitempty"`
	PaymentTerms         int    `json:"payment_terms,omitempty"`
}

// UpdateEntryRequest covers the editable descriptive fields.
type UpdateEntryRequest struct {
	Name         string `json:"name"`
	Description  string `json:"description,omitempty"`
	DateBorrowed string `json:"date_borrowed,omitempty"`
	Notes        string `json:"notes,omitempty"`
	PaymentNotes string `json:"payment_notes,omitempty"`
}

// =============================================================================
// PAYMENT TYPES
// =============================================================================

// PaymentDTO represents a payment in API responses. HasProof lets clients
// decide whether to fetch the proof endpoint.
type PaymentDTO struct {
	ID            string          `json:"id"`
	Date          string          `json:"date"`
	Amount        decimal.Decimal `json:"amount"`
	ChangeAmount  decimal.Decimal `json:"change_amount"`
	PayeePersonID string          `json:"payee_person_id"`
	Notes         string          `json:"notes,omitempty"`
	HasProof      bool            `json:"has_proof"`
	CreatedAt     string          `json:"created_at,omitempty"`
}

// CreatePaymentRequest is the request to record a payment against an entry.
type CreatePaymentRequest struct {
	EntryID       string          `json:"entry_id"`
	PayeePersonID string          `json:"payee_person_id"`
	Amount        decimal.Decimal `json:"amount"`
	Date          string          `json:"date"`
	Notes         string          `json:"notes,omitempty"`
	AllocationID  *string         `json:"allocation_id,omitempty"`
}

// UpdatePaymentRequest edits a payment; entry_id names the entry the amount
// difference is applied to.
type UpdatePaymentRequest struct {
	EntryID       string          `json:"entry_id"`
	PayeePersonID *string         `json:"payee_person_id,omitempty"`
	Amount        decimal.Decimal `json:"amount"`
	Date          string          `json:"date"`
	Notes         string          `json:"notes,omitempty"`
}

// =============================================================================
// INSTALLMENT TYPES
// =============================================================================

// InstallmentPlanDTO represents a plan with its generated terms.
type InstallmentPlanDTO struct {
	ID            string               `json:"id"`
	EntryID       string               `json:"entry_id"`
	StartDate     string               `json:"start_date"`
	Frequency     string               `json:"frequency"`
	FrequencyDay  string               `json:"frequency_day,omitempty"`
	TermCount     int                  `json:"term_count"`
	AmountPerTerm decimal.Decimal      `json:"amount_per_term"`
	Terms         []InstallmentTermDTO `json:"terms"`
}

// InstallmentTermDTO represents one scheduled term.
type InstallmentTermDTO struct {
	ID             string          `json:"id"`
	Number         int             `json:"number"`
	DueDate        string          `json:"due_date"`
	Status         string          `json:"status"`
	PenaltyApplied decimal.Decimal `json:"penalty_applied"`
}

// UpdateTermStatusRequest overwrites a term status.
type UpdateTermStatusRequest struct {
	Status string `json:"status"`
}

// PenaltyPreviewDTO is a what-if fee amount; nothing is persisted.
type PenaltyPreviewDTO struct {
	TermID  string          `json:"term_id"`
	Penalty decimal.Decimal `json:"penalty"`
}

// =============================================================================
// ALLOCATION TYPES
// =============================================================================

// AllocationDTO is a group-split line item with its derived fields.
type AllocationDTO struct {
	ID                string          `json:"id"`
	EntryID           string          `json:"entry_id"`
	PersonID          string          `json:"person_id"`
	PersonName        string          `json:"person_name,omitempty"`
	Description       string          `json:"description,omitempty"`
	Amount            decimal.Decimal `json:"amount"`
	Notes             string          `json:"notes,omitempty"`
	Status            string          `json:"status"`
	PercentageOfTotal decimal.Decimal `json:"percentage_of_total"`
}

// CreateAllocationsRequest adds line items to an entry in one batch.
type CreateAllocationsRequest struct {
	Allocations []AllocationItemRequest `json:"allocations"`
}

// AllocationItemRequest is one line item in a batch create.
type AllocationItemRequest struct {
	PersonID    string          `json:"person_id"`
	Description string          `json:"description,omitempty"`
	Amount      decimal.Decimal `json:"amount"`
	Notes       string          `json:"notes,omitempty"`
}

// UpdateAllocationRequest partially updates a line item.
type UpdateAllocationRequest struct {
	PersonID    *string          `json:"person_id,omitempty"`
	Description *string          `json:"description,omitempty"`
	Amount      *decimal.Decimal `json:"amount,omitempty"`
	Notes       *string          `json:"notes,omitempty"`
}

// =============================================================================
// DIRECTORY TYPES
// =============================================================================

// PersonDTO represents a person in API responses.
type PersonDTO struct {
	ID        string `json:"id"`
	FullName  string `json:"full_name"`
	CreatedAt string `json:"created_at,omitempty"`
}

// CreatePersonRequest creates (or finds) a person by name.
type CreatePersonRequest struct {
	FullName string `json:"full_name"`
}

// GroupDTO represents a borrower group.
type GroupDTO struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	CreatedAt string `json:"created_at,omitempty"`
}

// CreateGroupRequest creates a group with an initial member list.
type CreateGroupRequest struct {
	Name      string   `json:"name"`
	MemberIDs []string `json:"member_ids,omitempty"`
}

// =============================================================================
// DASHBOARD AND ERRORS
// =============================================================================

// DashboardDTO is the aggregate summary for the acting person.
type DashboardDTO struct {
	TotalEntries       int             `json:"total_entries"`
	UnpaidCount        int             `json:"unpaid_count"`
	PartiallyPaidCount int             `json:"partially_paid_count"`
	PaidCount          int             `json:"paid_count"`
	TotalBorrowed      decimal.Decimal `json:"total_borrowed"`
	TotalRemaining     decimal.Decimal `json:"total_remaining"`
	TotalPaidPenalties decimal.Decimal `json:"total_paid_penalties"`
	RecentEntries      []EntryDTO      `json:"recent_entries"`
}

// ErrorResponse is the standard error response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details any    `json:"details,omitempty"`
}

// =============================================================================
// CONVERSION HELPERS
// =============================================================================

const dayLayout = "2006-01-02"

func toEntryDTO(e *ledger.Entry) EntryDTO {
	dto := EntryDTO{
		ID:              e.ID.String(),
		ReferenceID:     e.ReferenceID,
		Name:            e.Name,
		Description:     e.Description,
		Kind:            string(e.Kind),
		DateBorrowed:    e.DateBorrowed.Format(dayLayout),
		AmountBorrowed:  e.AmountBorrowed,
		AmountRemaining: e.AmountRemaining,
		Status:          string(e.Status),
		Method:          string(e.Method),
		LenderPersonID:  e.LenderPersonID.String(),
		Notes:           e.Notes,
		PaymentNotes:    e.PaymentNotes,
		CreatedAt:       e.CreatedAt.Format(time.RFC3339),
	}
	if e.DateFullyPaid != nil {
		d := e.DateFullyPaid.Format(dayLayout)
		dto.DateFullyPaid = &d
	}
	if e.BorrowerPersonID != nil {
		s := e.BorrowerPersonID.String()
		dto.BorrowerPersonID = &s
	}
	if e.BorrowerGroupID != nil {
		s := e.BorrowerGroupID.String()
		dto.BorrowerGroupID = &s
	}
	return dto
}

func toEntryDTOs(entries []*ledger.Entry) []EntryDTO {
	dtos := make([]EntryDTO, len(entries))
	for i, e := range entries {
		dtos[i] = toEntryDTO(e)
	}
	return dtos
}

func toPaymentDTO(p *ledger.Payment, hasProof bool) PaymentDTO {
	return PaymentDTO{
		ID:            p.ID.String(),
		Date:          p.Date.Format(dayLayout),
		Amount:        p.Amount,
		ChangeAmount:  p.ChangeAmount,
		PayeePersonID: p.PayeePersonID.String(),
		Notes:         p.Notes,
		HasProof:      hasProof,
		CreatedAt:     p.CreatedAt.Format(time.RFC3339),
	}
}

func toTermDTO(t *ledger.InstallmentTerm) InstallmentTermDTO {
	return InstallmentTermDTO{
		ID:             t.ID.String(),
		Number:         t.Number,
		DueDate:        t.DueDate.Format(dayLayout),
		Status:         string(t.Status),
		PenaltyApplied: t.PenaltyApplied,
	}
}

func toPlanDTO(p *ledger.InstallmentPlan, terms []*ledger.InstallmentTerm) InstallmentPlanDTO {
	dto := InstallmentPlanDTO{
		ID:            p.ID.String(),
		EntryID:       p.EntryID.String(),
		StartDate:     p.StartDate.Format(dayLayout),
		Frequency:     string(p.Frequency),
		FrequencyDay:  p.FrequencyDay,
		TermCount:     p.TermCount,
		AmountPerTerm: p.AmountPerTerm,
		Terms:         make([]InstallmentTermDTO, len(terms)),
	}
	for i, t := range terms {
		dto.Terms[i] = toTermDTO(t)
	}
	return dto
}

func toAllocationDTO(v *ledger.AllocationView) AllocationDTO {
	return AllocationDTO{
		ID:                v.ID.String(),
		EntryID:           v.EntryID.String(),
		PersonID:          v.PersonID.String(),
		PersonName:        v.PersonName,
		Description:       v.Description,
		Amount:            v.Amount,
		Notes:             v.Notes,
		Status:            string(v.Status),
		PercentageOfTotal: v.PercentageOfTotal,
	}
}

func toAllocationDTOs(views []*ledger.AllocationView) []AllocationDTO {
	dtos := make([]AllocationDTO, len(views))
	for i, v := range views {
		dtos[i] = toAllocationDTO(v)
	}
	return dtos
}

func toPersonDTO(p *ledger.Person) PersonDTO {
	return PersonDTO{
		ID:        p.ID.String(),
		FullName:  p.FullName,
		CreatedAt: p.CreatedAt.Format(time.RFC3339),
	}
}

func toGroupDTO(g *ledger.Group) GroupDTO {
	return GroupDTO{
		ID:        g.ID.String(),
		Name:      g.Name,
		CreatedAt: g.CreatedAt.Format(time.RFC3339),
	}
}

func parseUUIDPtr(s *string) (*uuid.UUID, error) {
	if s == nil || *s == "" {
		return nil, nil
	}
	id, err := uuid.Parse(*s)
	if err != nil {
		return nil, err
	}
	return &id, nil
}
