/*
memory.go - In-memory Store for tests and development

PURPOSE:
  A map-backed implementation of ledger.Store. Records are copied on the
  way in and out so callers never share memory with the store.

LIMITATIONS:
  WithTx provides the same call shape as the SQLite store but no rollback;
  a failing unit of work may leave earlier writes applied. Tests that need
  real transactional behavior use the SQLite store against :memory:.
*/
package store

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/warp/loan-ledger/ledger"
)

// Memory is a thread-safe in-memory ledger.Store.
type Memory struct {
	mu sync.RWMutex

	people      map[uuid.UUID]ledger.Person
	groups      map[uuid.UUID]ledger.Group
	members     map[uuid.UUID][]uuid.UUID // groupID -> personIDs
	entries     map[uuid.UUID]ledger.Entry
	plans       map[uuid.UUID]ledger.InstallmentPlan
	terms       map[uuid.UUID]ledger.InstallmentTerm
	payments    map[uuid.UUID]ledger.Payment
	paymentLink map[uuid.UUID][]uuid.UUID // paymentID -> entryIDs
	allocations map[uuid.UUID]ledger.Allocation
	allocLinks  []ledger.AllocationPayment
	attachments map[uuid.UUID]ledger.Attachment
}

func NewMemory() *Memory {
	return &Memory{
		people:      make(map[uuid.UUID]ledger.Person),
		groups:      make(map[uuid.UUID]ledger.Group),
		members:     make(map[uuid.UUID][]uuid.UUID),
		entries:     make(map[uuid.UUID]ledger.Entry),
		plans:       make(map[uuid.UUID]ledger.InstallmentPlan),
		terms:       make(map[uuid.UUID]ledger.InstallmentTerm),
		payments:    make(map[uuid.UUID]ledger.Payment),
		paymentLink: make(map[uuid.UUID][]uuid.UUID),
		allocations: make(map[uuid.UUID]ledger.Allocation),
		attachments: make(map[uuid.UUID]ledger.Attachment),
	}
}

var _ ledger.Store = (*Memory)(nil)

// =============================================================================
// PEOPLE
// =============================================================================

func (m *Memory) SavePerson(_ context.Context, p *ledger.Person) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.people[p.ID] = *p
	return nil
}

func (m *Memory) GetPerson(_ context.Context, id uuid.UUID) (*ledger.Person, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if p, ok := m.people[id]; ok {
		cp := p
		return &cp, nil
	}
	return nil, nil
}

func (m *Memory) GetPersonByName(_ context.Context, fullName string) (*ledger.Person, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, p := range m.people {
		if strings.EqualFold(p.FullName, fullName) {
			cp := p
			return &cp, nil
		}
	}
	return nil, nil
}

func (m *Memory) ListPeople(_ context.Context) ([]*ledger.Person, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*ledger.Person, 0, len(m.people))
	for _, p := range m.people {
		cp := p
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].FullName < out[j].FullName })
	return out, nil
}

// =============================================================================
// GROUPS
// =============================================================================

func (m *Memory) SaveGroup(_ context.Context, g *ledger.Group) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.groups[g.ID] = *g
	return nil
}

func (m *Memory) GetGroup(_ context.Context, id uuid.UUID) (*ledger.Group, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if g, ok := m.groups[id]; ok {
		cp := g
		return &cp, nil
	}
	return nil, nil
}

func (m *Memory) ListGroups(_ context.Context) ([]*ledger.Group, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*ledger.Group, 0, len(m.groups))
	for _, g := range m.groups {
		cp := g
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (m *Memory) AddGroupMember(_ context.Context, groupID, personID uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, pid := range m.members[groupID] {
		if pid == personID {
			return nil
		}
	}
	m.members[groupID] = append(m.members[groupID], personID)
	return nil
}

func (m *Memory) GroupMembers(_ context.Context, groupID uuid.UUID) ([]*ledger.Person, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*ledger.Person
	for _, pid := range m.members[groupID] {
		if p, ok := m.people[pid]; ok {
			cp := p
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *Memory) IsGroupMember(_ context.Context, groupID, personID uuid.UUID) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, pid := range m.members[groupID] {
		if pid == personID {
			return true, nil
		}
	}
	return false, nil
}

// =============================================================================
// ENTRIES
// =============================================================================

func (m *Memory) SaveEntry(_ context.Context, e *ledger.Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[e.ID] = *e
	return nil
}

func (m *Memory) GetEntry(_ context.Context, id uuid.UUID) (*ledger.Entry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if e, ok := m.entries[id]; ok {
		cp := e
		return &cp, nil
	}
	return nil, nil
}

func (m *Memory) ListEntries(_ context.Context) ([]*ledger.Entry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*ledger.Entry, 0, len(m.entries))
	for _, e := range m.entries {
		cp := e
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

// DeleteEntry cascades the entry's plan, terms, payment links, and
// attachments, mirroring the SQLite foreign keys.
func (m *Memory) DeleteEntry(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, id)
	for planID, plan := range m.plans {
		if plan.EntryID != id {
			continue
		}
		for termID, term := range m.terms {
			if term.PlanID == planID {
				delete(m.terms, termID)
			}
		}
		delete(m.plans, planID)
	}
	for paymentID, entryIDs := range m.paymentLink {
		kept := entryIDs[:0]
		for _, eid := range entryIDs {
			if eid != id {
				kept = append(kept, eid)
			}
		}
		m.paymentLink[paymentID] = kept
	}
	for attID, att := range m.attachments {
		if att.EntryID != nil && *att.EntryID == id {
			delete(m.attachments, attID)
		}
	}
	for allocID, alloc := range m.allocations {
		if alloc.EntryID == id {
			delete(m.allocations, allocID)
		}
	}
	return nil
}

func (m *Memory) ReferenceIDExists(_ context.Context, ref string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, e := range m.entries {
		if e.ReferenceID == ref {
			return true, nil
		}
	}
	return false, nil
}

func (m *Memory) SumEntryAmounts(_ context.Context, ids []uuid.UUID) (*ledger.EntryTotals, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if len(ids) == 0 {
		return nil, nil
	}
	totals := &ledger.EntryTotals{}
	found := false
	for _, id := range ids {
		if e, ok := m.entries[id]; ok {
			totals.Borrowed = totals.Borrowed.Add(e.AmountBorrowed)
			totals.Remaining = totals.Remaining.Add(e.AmountRemaining)
			found = true
		}
	}
	if !found {
		return nil, nil
	}
	return totals, nil
}

// =============================================================================
// INSTALLMENT PLANS AND TERMS
// =============================================================================

func (m *Memory) SavePlan(_ context.Context, p *ledger.InstallmentPlan) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.plans[p.ID] = *p
	return nil
}

func (m *Memory) GetPlan(_ context.Context, id uuid.UUID) (*ledger.InstallmentPlan, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if p, ok := m.plans[id]; ok {
		cp := p
		return &cp, nil
	}
	return nil, nil
}

func (m *Memory) GetPlanByEntry(_ context.Context, entryID uuid.UUID) (*ledger.InstallmentPlan, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, p := range m.plans {
		if p.EntryID == entryID {
			cp := p
			return &cp, nil
		}
	}
	return nil, nil
}

func (m *Memory) SaveTerm(_ context.Context, t *ledger.InstallmentTerm) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.terms[t.ID] = *t
	return nil
}

func (m *Memory) GetTerm(_ context.Context, id uuid.UUID) (*ledger.InstallmentTerm, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if t, ok := m.terms[id]; ok {
		cp := t
		return &cp, nil
	}
	return nil, nil
}

func (m *Memory) TermsByPlan(_ context.Context, planID uuid.UUID) ([]*ledger.InstallmentTerm, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*ledger.InstallmentTerm
	for _, t := range m.terms {
		if t.PlanID == planID {
			cp := t
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Number < out[j].Number })
	return out, nil
}

// =============================================================================
// PAYMENTS AND LINKS
// =============================================================================

func (m *Memory) SavePayment(_ context.Context, p *ledger.Payment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.payments[p.ID] = *p
	return nil
}

func (m *Memory) GetPayment(_ context.Context, id uuid.UUID) (*ledger.Payment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if p, ok := m.payments[id]; ok {
		cp := p
		return &cp, nil
	}
	return nil, nil
}

func (m *Memory) ListPayments(_ context.Context) ([]*ledger.Payment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*ledger.Payment, 0, len(m.payments))
	for _, p := range m.payments {
		cp := p
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (m *Memory) DeletePayment(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.payments, id)
	delete(m.paymentLink, id)
	kept := m.allocLinks[:0]
	for _, link := range m.allocLinks {
		if link.PaymentID != id {
			kept = append(kept, link)
		}
	}
	m.allocLinks = kept
	for attID, att := range m.attachments {
		if att.PaymentID != nil && *att.PaymentID == id {
			delete(m.attachments, attID)
		}
	}
	return nil
}

func (m *Memory) LinkPaymentToEntry(_ context.Context, paymentID, entryID uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, eid := range m.paymentLink[paymentID] {
		if eid == entryID {
			return nil
		}
	}
	m.paymentLink[paymentID] = append(m.paymentLink[paymentID], entryID)
	return nil
}

func (m *Memory) PaymentsByEntry(_ context.Context, entryID uuid.UUID) ([]*ledger.Payment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*ledger.Payment
	for paymentID, entryIDs := range m.paymentLink {
		for _, eid := range entryIDs {
			if eid != entryID {
				continue
			}
			if p, ok := m.payments[paymentID]; ok {
				cp := p
				out = append(out, &cp)
			}
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (m *Memory) EntriesByPayment(_ context.Context, paymentID uuid.UUID) ([]*ledger.Entry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*ledger.Entry
	for _, eid := range m.paymentLink[paymentID] {
		if e, ok := m.entries[eid]; ok {
			cp := e
			out = append(out, &cp)
		}
	}
	return out, nil
}

// =============================================================================
// ALLOCATIONS AND LINKS
// =============================================================================

func (m *Memory) SaveAllocation(_ context.Context, a *ledger.Allocation) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.allocations[a.ID] = *a
	return nil
}

func (m *Memory) GetAllocation(_ context.Context, id uuid.UUID) (*ledger.Allocation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if a, ok := m.allocations[id]; ok {
		cp := a
		return &cp, nil
	}
	return nil, nil
}

func (m *Memory) AllocationsByEntry(_ context.Context, entryID uuid.UUID) ([]*ledger.Allocation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*ledger.Allocation
	for _, a := range m.allocations {
		if a.EntryID == entryID {
			cp := a
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID.String() < out[j].ID.String() })
	return out, nil
}

func (m *Memory) ListAllocations(_ context.Context) ([]*ledger.Allocation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*ledger.Allocation, 0, len(m.allocations))
	for _, a := range m.allocations {
		cp := a
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID.String() < out[j].ID.String() })
	return out, nil
}

func (m *Memory) DeleteAllocation(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.allocations, id)
	return nil
}

func (m *Memory) LinkPaymentToAllocation(_ context.Context, link ledger.AllocationPayment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.allocLinks = append(m.allocLinks, link)
	return nil
}

func (m *Memory) AllocationPayments(_ context.Context, allocationID uuid.UUID) ([]ledger.AllocationPayment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []ledger.AllocationPayment
	for _, link := range m.allocLinks {
		if link.AllocationID == allocationID {
			out = append(out, link)
		}
	}
	return out, nil
}

func (m *Memory) DeleteAllocationLinks(_ context.Context, allocationID uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	kept := m.allocLinks[:0]
	for _, link := range m.allocLinks {
		if link.AllocationID != allocationID {
			kept = append(kept, link)
		}
	}
	m.allocLinks = kept
	return nil
}

// =============================================================================
// ATTACHMENTS
// =============================================================================

func (m *Memory) SaveAttachment(_ context.Context, a *ledger.Attachment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.attachments[a.ID] = *a
	return nil
}

func (m *Memory) AttachmentsByPayment(_ context.Context, paymentID uuid.UUID) ([]*ledger.Attachment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*ledger.Attachment
	for _, a := range m.attachments {
		if a.PaymentID != nil && *a.PaymentID == paymentID {
			cp := a
			out = append(out, &cp)
		}
	}
	return out, nil
}

// WithTx runs fn against the store directly; there is no rollback.
func (m *Memory) WithTx(_ context.Context, fn func(ledger.Store) error) error {
	return fn(m)
}
