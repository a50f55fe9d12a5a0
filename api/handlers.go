/*
handlers.go - HTTP API handlers for the loan ledger

PURPOSE:
  Exposes the ledger service via REST API. Handles HTTP request/response,
  JSON serialization, and delegates to the service layer.

ENDPOINTS:
  Entries:
    GET    /api/entries                    List entries for the acting person
    POST   /api/entries                    Create entry (JSON or multipart with proof)
    GET    /api/entries/{id}               Get entry (sweeps its terms first)
    PUT    /api/entries/{id}               Update descriptive fields
    DELETE /api/entries/{id}               Delete entry and dependents
    POST   /api/entries/{id}/complete      Mark entry fully paid
    POST   /api/entries/auto-complete      Reconcile all entries from payments
    GET    /api/entries/{id}/payments      Payments linked to the entry
    GET    /api/entries/{id}/installments  Plan and terms
    GET    /api/entries/{id}/allocations   Group-split line items
    POST   /api/entries/{id}/allocations   Add line items

  Payments:
    GET    /api/payments                   List payments for the acting person
    POST   /api/payments                   Record payment (JSON or multipart)
    GET    /api/payments/{id}              Get payment
    PUT    /api/payments/{id}              Edit payment
    DELETE /api/payments/{id}              Delete payment
    GET    /api/payments/{id}/proof        Proof blob

  Installments:
    POST   /api/installments/terms/{id}/skip            Skip a term
    PUT    /api/installments/terms/{id}/status          Overwrite a term status
    GET    /api/installments/terms/{id}/skip-penalty    Preview skip penalty
    GET    /api/installments/terms/{id}/delinquent-fee  Preview delinquent-pay fee
    POST   /api/installments/sweep                      Run the delinquency sweep
    GET    /api/installments/penalties/total            Sum of settled penalties

  Allocations:
    GET    /api/allocations                List allocations for the acting person
    PUT    /api/allocations/{id}           Edit a line item
    DELETE /api/allocations/{id}           Delete a line item

  Directory and dashboard:
    GET/POST /api/people                   People
    GET/POST /api/groups                   Groups
    GET      /api/groups/{id}/members      Group members
    GET      /api/dashboard                Aggregate summary

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: Validation errors, invalid input
  - 404: Record not found (including not-authorized, deliberately)
  - 500: Internal errors

SEE ALSO:
  - dto.go: Request/response data structures
  - server.go: Router setup and middleware
  - ledger/service.go: The operations behind the handlers
*/
package api

import (
	"encoding/json"
	"errors"
	"io"
	"mime"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/warp/loan-ledger/ledger"
)

// maxProofBytes caps uploaded proof files at 10 MB.
const maxProofBytes = 10 << 20

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Service *ledger.Service
}

// NewHandler creates a new handler over the given service.
func NewHandler(svc *ledger.Service) *Handler {
	return &Handler{Service: svc}
}

// =============================================================================
// ENTRY HANDLERS
// =============================================================================

// ListEntries returns the acting person's entries.
func (h *Handler) ListEntries(w http.ResponseWriter, r *http.Request) {
	entries, err := h.Service.ListEntries(r.Context())
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toEntryDTOs(entries))
}

// CreateEntry creates an entry. Accepts plain JSON, or multipart/form-data
// with a "payload" JSON part and an optional "proof" file part.
func (h *Handler) CreateEntry(w http.ResponseWriter, r *http.Request) {
	var req CreateEntryRequest
	proof, err := decodeWithProof(r, &req)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	in := ledger.CreateEntryInput{
		Name:           req.Name,
		Description:    req.Description,
		Kind:           ledger.EntryKind(req.Kind),
		AmountBorrowed: req.AmountBorrowed,
		Method:         ledger.PaymentMethod(req.Method),
		Notes:          req.Notes,
		PaymentNotes:   req.PaymentNotes,

		PaymentFrequency:    req.PaymentFrequency,
		PaymentFrequencyDay: req.PaymentFrequencyDay,
		PaymentTerms:        req.PaymentTerms,
	}
	in.DateBorrowed, err = time.Parse(dayLayout, req.DateBorrowed)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid date_borrowed format (use YYYY-MM-DD)", err)
		return
	}
	if req.InstallmentStartDate != "" {
		in.InstallmentStartDate, err = time.Parse(dayLayout, req.InstallmentStartDate)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid installment_start_date format (use YYYY-MM-DD)", err)
			return
		}
	}
	in.LenderPersonID, err = uuid.Parse(req.LenderPersonID)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid lender_person_id", err)
		return
	}
	if in.BorrowerPersonID, err = parseUUIDPtr(req.BorrowerPersonID); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid borrower_person_id", err)
		return
	}
	if in.BorrowerGroupID, err = parseUUIDPtr(req.BorrowerGroupID); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid borrower_group_id", err)
		return
	}

	entry, err := h.Service.CreateEntry(r.Context(), in, proof)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toEntryDTO(entry))
}

// GetEntry returns one entry. Viewing an installment entry first runs its
// delinquency sweep so the client always sees current term state.
func (h *Handler) GetEntry(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	if err := h.Service.SweepEntryTerms(r.Context(), id); err != nil {
		h.writeServiceError(w, err)
		return
	}
	entry, err := h.Service.GetEntry(r.Context(), id)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toEntryDTO(entry))
}

// UpdateEntry updates an entry's descriptive fields.
func (h *Handler) UpdateEntry(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	var req UpdateEntryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	in := ledger.UpdateEntryInput{
		Name:         req.Name,
		Description:  req.Description,
		Notes:        req.Notes,
		PaymentNotes: req.PaymentNotes,
	}
	if req.DateBorrowed != "" {
		d, err := time.Parse(dayLayout, req.DateBorrowed)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid date_borrowed format (use YYYY-MM-DD)", err)
			return
		}
		in.DateBorrowed = d
	}

	entry, err := h.Service.UpdateEntry(r.Context(), id, in)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toEntryDTO(entry))
}

// DeleteEntry deletes an entry and its dependents.
func (h *Handler) DeleteEntry(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	if err := h.Service.DeleteEntry(r.Context(), id); err != nil {
		h.writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// CompleteEntry marks an entry fully paid.
func (h *Handler) CompleteEntry(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	entry, err := h.Service.CompleteEntry(r.Context(), id)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toEntryDTO(entry))
}

// AutoCompleteEntries recomputes every entry from raw payments.
func (h *Handler) AutoCompleteEntries(w http.ResponseWriter, r *http.Request) {
	completed, err := h.Service.AutoCompleteEntries(r.Context())
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"completed": completed})
}

// EntryPayments lists payments linked to the entry.
func (h *Handler) EntryPayments(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	payments, err := h.Service.PaymentsByEntry(r.Context(), id)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	dtos := make([]PaymentDTO, 0, len(payments))
	for _, p := range payments {
		hasProof, err := h.Service.HasProof(r.Context(), p)
		if err != nil {
			h.writeServiceError(w, err)
			return
		}
		dtos = append(dtos, toPaymentDTO(p, hasProof))
	}
	writeJSON(w, http.StatusOK, dtos)
}

// EntryInstallments returns the plan and terms of an installment entry.
func (h *Handler) EntryInstallments(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	if _, err := h.Service.GetEntry(r.Context(), id); err != nil {
		h.writeServiceError(w, err)
		return
	}
	plan, terms, err := h.Service.PlanForEntry(r.Context(), id)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	if plan == nil {
		writeError(w, http.StatusNotFound, "Entry has no installment plan", nil)
		return
	}
	writeJSON(w, http.StatusOK, toPlanDTO(plan, terms))
}

// EntryAllocations lists an entry's allocations with derived fields.
func (h *Handler) EntryAllocations(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	views, err := h.Service.AllocationsForEntry(r.Context(), id)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toAllocationDTOs(views))
}

// CreateEntryAllocations adds line items to an entry.
func (h *Handler) CreateEntryAllocations(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	var req CreateAllocationsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	items := make([]ledger.AllocationInput, 0, len(req.Allocations))
	for _, item := range req.Allocations {
		personID, err := uuid.Parse(item.PersonID)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid person_id", err)
			return
		}
		items = append(items, ledger.AllocationInput{
			PersonID:    personID,
			Description: item.Description,
			Amount:      item.Amount,
			Notes:       item.Notes,
		})
	}

	views, err := h.Service.CreateAllocations(r.Context(), id, items)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toAllocationDTOs(views))
}

// =============================================================================
// PAYMENT HANDLERS
// =============================================================================

// ListPayments returns payments visible to the acting person.
func (h *Handler) ListPayments(w http.ResponseWriter, r *http.Request) {
	payments, err := h.Service.ListPayments(r.Context())
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	dtos := make([]PaymentDTO, 0, len(payments))
	for _, p := range payments {
		hasProof, err := h.Service.HasProof(r.Context(), p)
		if err != nil {
			h.writeServiceError(w, err)
			return
		}
		dtos = append(dtos, toPaymentDTO(p, hasProof))
	}
	writeJSON(w, http.StatusOK, dtos)
}

// CreatePayment records a payment. Accepts plain JSON, or multipart with a
// "payload" JSON part and an optional "proof" file part.
func (h *Handler) CreatePayment(w http.ResponseWriter, r *http.Request) {
	var req CreatePaymentRequest
	proof, err := decodeWithProof(r, &req)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	in := ledger.CreatePaymentInput{
		Amount: req.Amount,
		Notes:  req.Notes,
	}
	in.EntryID, err = uuid.Parse(req.EntryID)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid entry_id", err)
		return
	}
	in.PayeePersonID, err = uuid.Parse(req.PayeePersonID)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid payee_person_id", err)
		return
	}
	in.Date, err = time.Parse(dayLayout, req.Date)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid date format (use YYYY-MM-DD)", err)
		return
	}
	if in.AllocationID, err = parseUUIDPtr(req.AllocationID); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid allocation_id", err)
		return
	}

	payment, err := h.Service.CreatePayment(r.Context(), in, proof)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toPaymentDTO(payment, proof != nil))
}

// GetPayment returns one payment.
func (h *Handler) GetPayment(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	payment, err := h.Service.GetPayment(r.Context(), id)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	hasProof, err := h.Service.HasProof(r.Context(), payment)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toPaymentDTO(payment, hasProof))
}

// UpdatePayment edits a payment and re-applies its amount to the entry.
func (h *Handler) UpdatePayment(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	var req UpdatePaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	in := ledger.UpdatePaymentInput{
		Amount: req.Amount,
		Notes:  req.Notes,
	}
	var err error
	in.EntryID, err = uuid.Parse(req.EntryID)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid entry_id", err)
		return
	}
	in.Date, err = time.Parse(dayLayout, req.Date)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid date format (use YYYY-MM-DD)", err)
		return
	}
	if in.PayeePersonID, err = parseUUIDPtr(req.PayeePersonID); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid payee_person_id", err)
		return
	}

	payment, err := h.Service.UpdatePayment(r.Context(), id, in)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	hasProof, err := h.Service.HasProof(r.Context(), payment)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toPaymentDTO(payment, hasProof))
}

// DeletePayment removes a payment and reconciles its entries.
func (h *Handler) DeletePayment(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	if err := h.Service.DeletePayment(r.Context(), id); err != nil {
		h.writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// PaymentProof streams the payment's proof blob.
func (h *Handler) PaymentProof(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	data, contentType, err := h.Service.PaymentProof(r.Context(), id)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	w.Header().Set("Content-Type", contentType)
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

// =============================================================================
// INSTALLMENT HANDLERS
// =============================================================================

// SkipTerm skips a term, assessing the skip penalty.
func (h *Handler) SkipTerm(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	term, err := h.Service.SkipTerm(r.Context(), id)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toTermDTO(term))
}

// UpdateTermStatus overwrites a term's status.
func (h *Handler) UpdateTermStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	var req UpdateTermStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	term, err := h.Service.UpdateTermStatus(r.Context(), id, ledger.TermStatus(req.Status))
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toTermDTO(term))
}

// SkipPenaltyPreview returns the penalty skipping the term would apply.
func (h *Handler) SkipPenaltyPreview(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	penalty, err := h.Service.SkipPenaltyPreviewFor(r.Context(), id)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, PenaltyPreviewDTO{TermID: id.String(), Penalty: penalty})
}

// DelinquentFeePreview returns the fee paying the term now would assess.
func (h *Handler) DelinquentFeePreview(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	fee, err := h.Service.DelinquentFeePreviewFor(r.Context(), id)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, PenaltyPreviewDTO{TermID: id.String(), Penalty: fee})
}

// SweepDelinquentTerms runs the delinquency sweep across the acting
// person's installment entries.
func (h *Handler) SweepDelinquentTerms(w http.ResponseWriter, r *http.Request) {
	if err := h.Service.SweepDelinquentTerms(r.Context()); err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok"})
}

// TotalPaidPenalties returns the sum of settled penalties.
func (h *Handler) TotalPaidPenalties(w http.ResponseWriter, r *http.Request) {
	total, err := h.Service.TotalPaidPenalties(r.Context())
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"total_paid_penalties": total})
}

// =============================================================================
// ALLOCATION HANDLERS
// =============================================================================

// ListAllocations returns allocations on entries the acting person is party to.
func (h *Handler) ListAllocations(w http.ResponseWriter, r *http.Request) {
	views, err := h.Service.ListAllocations(r.Context())
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toAllocationDTOs(views))
}

// UpdateAllocation edits a line item.
func (h *Handler) UpdateAllocation(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	var req UpdateAllocationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	in := ledger.UpdateAllocationInput{
		Description: req.Description,
		Amount:      req.Amount,
		Notes:       req.Notes,
	}
	var err error
	if in.PersonID, err = parseUUIDPtr(req.PersonID); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid person_id", err)
		return
	}

	view, err := h.Service.UpdateAllocation(r.Context(), id, in)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toAllocationDTO(view))
}

// DeleteAllocation removes a line item.
func (h *Handler) DeleteAllocation(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	if err := h.Service.DeleteAllocation(r.Context(), id); err != nil {
		h.writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// =============================================================================
// DIRECTORY HANDLERS
// =============================================================================

// ListPeople returns everyone in the directory.
func (h *Handler) ListPeople(w http.ResponseWriter, r *http.Request) {
	people, err := h.Service.ListPeople(r.Context())
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	dtos := make([]PersonDTO, len(people))
	for i, p := range people {
		dtos[i] = toPersonDTO(p)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// CreatePerson creates (or finds) a person by full name.
func (h *Handler) CreatePerson(w http.ResponseWriter, r *http.Request) {
	var req CreatePersonRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	person, err := h.Service.GetOrCreatePerson(r.Context(), req.FullName)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toPersonDTO(person))
}

// ListGroups returns all borrower groups.
func (h *Handler) ListGroups(w http.ResponseWriter, r *http.Request) {
	groups, err := h.Service.ListGroups(r.Context())
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	dtos := make([]GroupDTO, len(groups))
	for i, g := range groups {
		dtos[i] = toGroupDTO(g)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// CreateGroup creates a group with an initial member list.
func (h *Handler) CreateGroup(w http.ResponseWriter, r *http.Request) {
	var req CreateGroupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	memberIDs := make([]uuid.UUID, 0, len(req.MemberIDs))
	for _, s := range req.MemberIDs {
		id, err := uuid.Parse(s)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid member id", err)
			return
		}
		memberIDs = append(memberIDs, id)
	}
	group, err := h.Service.CreateGroup(r.Context(), req.Name, memberIDs)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toGroupDTO(group))
}

// GroupMembers lists a group's members.
func (h *Handler) GroupMembers(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	people, err := h.Service.GroupMembers(r.Context(), id)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	dtos := make([]PersonDTO, len(people))
	for i, p := range people {
		dtos[i] = toPersonDTO(p)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// =============================================================================
// DASHBOARD
// =============================================================================

// GetDashboard returns the aggregate summary for the acting person.
func (h *Handler) GetDashboard(w http.ResponseWriter, r *http.Request) {
	summary, err := h.Service.Dashboard(r.Context())
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, DashboardDTO{
		TotalEntries:       summary.TotalEntries,
		UnpaidCount:        summary.UnpaidCount,
		PartiallyPaidCount: summary.PartiallyPaidCount,
		PaidCount:          summary.PaidCount,
		TotalBorrowed:      summary.TotalBorrowed,
		TotalRemaining:     summary.TotalRemaining,
		TotalPaidPenalties: summary.TotalPaidPenalties,
		RecentEntries:      toEntryDTOs(summary.RecentEntries),
	})
}

// =============================================================================
// HELPERS
// =============================================================================

// decodeWithProof decodes the request into dst, supporting either a plain
// JSON body or multipart/form-data with a "payload" JSON part and an
// optional "proof" file part.
func decodeWithProof(r *http.Request, dst any) (*ledger.ProofFile, error) {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType != "multipart/form-data" {
		return nil, json.NewDecoder(r.Body).Decode(dst)
	}

	if err := r.ParseMultipartForm(maxProofBytes); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(r.FormValue("payload")), dst); err != nil {
		return nil, err
	}

	file, header, err := r.FormFile("proof")
	if err == http.ErrMissingFile {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, maxProofBytes))
	if err != nil {
		return nil, err
	}
	return &ledger.ProofFile{
		Filename:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Data:        data,
	}, nil
}

func pathUUID(w http.ResponseWriter, r *http.Request, param string) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, param))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid id", err)
		return uuid.Nil, false
	}
	return id, true
}

// writeServiceError maps service errors to HTTP statuses. Not-authorized is
// already collapsed into ErrNotFound by the service.
func (h *Handler) writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case ledger.IsValidation(err):
		writeError(w, http.StatusBadRequest, err.Error(), nil)
	case errors.Is(err, ledger.ErrNotFound):
		writeError(w, http.StatusNotFound, "Record not found", nil)
	default:
		writeError(w, http.StatusInternalServerError, "Internal error", err)
	}
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}
