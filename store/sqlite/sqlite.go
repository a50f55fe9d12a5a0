/*
Package sqlite provides the SQLite-backed implementation of ledger.Store.

PURPOSE:
  Production persistence for the ledger. In production the same patterns
  apply to PostgreSQL - only minor SQL dialect differences.

KEY TABLES:
  entries:            Loan/expense records, one row per entry
  installment_plans:  1:1 with installment entries
  installment_terms:  The generated schedule rows
  payments:           Payment records, independent of entries
  payment_entries:    Payment-to-entry links (many-to-many)
  allocations:        Group-split line items
  allocation_payments: Payment-to-allocation links with attributed amounts
  persons / person_groups / group_members: The directory
  attachments:        Opaque proof blobs

REPRESENTATION:
  UUIDs and decimal amounts are stored as TEXT so no precision is lost in
  SQLite's numeric affinity; day-granularity dates as YYYY-MM-DD and
  timestamps as RFC3339. Derived allocation fields (status, percentage)
  are never stored.

WAL MODE:
  SQLite is opened with WAL and foreign keys on. ON DELETE CASCADE
  mirrors the referential ordering the service enforces explicitly.

MIGRATION:
  Schema is auto-migrated on New(). For production, use a proper
  migration tool (golang-migrate, goose) with versioned migrations.

SEE ALSO:
  - ledger/store.go: Interface definition
  - ledger/store/memory.go: In-memory implementation for tests
*/
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"

	"github.com/warp/loan-ledger/ledger"
)

const (
	dayLayout = "2006-01-02"
)

// dbtx is satisfied by both *sql.DB and *sql.Tx so every query method works
// inside and outside WithTx.
type dbtx interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Store implements ledger.Store using SQLite.
type Store struct {
	db *sql.DB
	q  dbtx
}

var _ ledger.Store = (*Store)(nil)

// New opens (or creates) the database at dbPath and migrates the schema.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &Store{db: db, q: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	schema := `
	-- Directory
	CREATE TABLE IF NOT EXISTS persons (
		id TEXT PRIMARY KEY,
		full_name TEXT NOT NULL COLLATE NOCASE,
		created_at TEXT NOT NULL
	);
	CREATE UNIQUE INDEX IF NOT EXISTS idx_persons_name ON persons(full_name);

	CREATE TABLE IF NOT EXISTS person_groups (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		created_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS group_members (
		group_id TEXT NOT NULL REFERENCES person_groups(id) ON DELETE CASCADE,
		person_id TEXT NOT NULL REFERENCES persons(id) ON DELETE CASCADE,
		PRIMARY KEY (group_id, person_id)
	);

	-- Entries
	CREATE TABLE IF NOT EXISTS entries (
		id TEXT PRIMARY KEY,
		reference_id TEXT NOT NULL UNIQUE,
		name TEXT NOT NULL,
		description TEXT,
		kind TEXT NOT NULL,
		date_borrowed TEXT NOT NULL,
		date_fully_paid TEXT,
		amount_borrowed TEXT NOT NULL,
		amount_remaining TEXT NOT NULL,
		status TEXT NOT NULL,
		method TEXT,
		borrower_person_id TEXT REFERENCES persons(id),
		borrower_group_id TEXT REFERENCES person_groups(id),
		lender_person_id TEXT NOT NULL REFERENCES persons(id),
		notes TEXT,
		payment_notes TEXT,
		proof BLOB,
		created_at TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_entries_lender ON entries(lender_person_id);
	CREATE INDEX IF NOT EXISTS idx_entries_borrower ON entries(borrower_person_id);

	-- Installment plans and terms
	CREATE TABLE IF NOT EXISTS installment_plans (
		id TEXT PRIMARY KEY,
		entry_id TEXT NOT NULL UNIQUE REFERENCES entries(id) ON DELETE CASCADE,
		start_date TEXT NOT NULL,
		frequency TEXT NOT NULL,
		frequency_day TEXT,
		term_count INTEGER NOT NULL,
		amount_per_term TEXT NOT NULL,
		notes TEXT
	);

	CREATE TABLE IF NOT EXISTS installment_terms (
		id TEXT PRIMARY KEY,
		plan_id TEXT NOT NULL REFERENCES installment_plans(id) ON DELETE CASCADE,
		number INTEGER NOT NULL,
		due_date TEXT NOT NULL,
		status TEXT NOT NULL,
		penalty_applied TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_terms_plan ON installment_terms(plan_id);

	-- Payments and links
	CREATE TABLE IF NOT EXISTS payments (
		id TEXT PRIMARY KEY,
		date TEXT NOT NULL,
		amount TEXT NOT NULL,
		change_amount TEXT NOT NULL,
		payee_person_id TEXT NOT NULL REFERENCES persons(id),
		notes TEXT,
		proof BLOB,
		created_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS payment_entries (
		payment_id TEXT NOT NULL REFERENCES payments(id) ON DELETE CASCADE,
		entry_id TEXT NOT NULL REFERENCES entries(id) ON DELETE CASCADE,
		PRIMARY KEY (payment_id, entry_id)
	);
	CREATE INDEX IF NOT EXISTS idx_payment_entries_entry ON payment_entries(entry_id);

	-- Allocations and links
	CREATE TABLE IF NOT EXISTS allocations (
		id TEXT PRIMARY KEY,
		entry_id TEXT NOT NULL REFERENCES entries(id) ON DELETE CASCADE,
		person_id TEXT NOT NULL REFERENCES persons(id),
		description TEXT,
		amount TEXT NOT NULL,
		notes TEXT
	);
	CREATE INDEX IF NOT EXISTS idx_allocations_entry ON allocations(entry_id);

	CREATE TABLE IF NOT EXISTS allocation_payments (
		payment_id TEXT NOT NULL REFERENCES payments(id) ON DELETE CASCADE,
		allocation_id TEXT NOT NULL REFERENCES allocations(id) ON DELETE CASCADE,
		amount TEXT NOT NULL,
		PRIMARY KEY (payment_id, allocation_id)
	);
	CREATE INDEX IF NOT EXISTS idx_allocation_payments_alloc ON allocation_payments(allocation_id);

	-- Attachments (opaque proof blobs)
	CREATE TABLE IF NOT EXISTS attachments (
		id TEXT PRIMARY KEY,
		entry_id TEXT REFERENCES entries(id) ON DELETE CASCADE,
		payment_id TEXT REFERENCES payments(id) ON DELETE CASCADE,
		filename TEXT,
		content_type TEXT,
		size INTEGER NOT NULL,
		data BLOB NOT NULL,
		created_at TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_attachments_payment ON attachments(payment_id);
	`

	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// PEOPLE
// =============================================================================

func (s *Store) SavePerson(ctx context.Context, p *ledger.Person) error {
	query := `
		INSERT INTO persons (id, full_name, created_at)
		VALUES (?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET full_name = excluded.full_name
	`
	_, err := s.q.ExecContext(ctx, query,
		p.ID.String(), p.FullName, p.CreatedAt.UTC().Format(time.RFC3339))
	return err
}

func (s *Store) GetPerson(ctx context.Context, id uuid.UUID) (*ledger.Person, error) {
	row := s.q.QueryRowContext(ctx,
		"SELECT id, full_name, created_at FROM persons WHERE id = ?", id.String())
	return scanPerson(row)
}

func (s *Store) GetPersonByName(ctx context.Context, fullName string) (*ledger.Person, error) {
	row := s.q.QueryRowContext(ctx,
		"SELECT id, full_name, created_at FROM persons WHERE full_name = ?", fullName)
	return scanPerson(row)
}

func (s *Store) ListPeople(ctx context.Context) ([]*ledger.Person, error) {
	rows, err := s.q.QueryContext(ctx,
		"SELECT id, full_name, created_at FROM persons ORDER BY full_name")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var people []*ledger.Person
	for rows.Next() {
		p, err := scanPerson(rows)
		if err != nil {
			return nil, err
		}
		people = append(people, p)
	}
	return people, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanPerson(row scanner) (*ledger.Person, error) {
	var p ledger.Person
	var id, createdAt string
	err := row.Scan(&id, &p.FullName, &createdAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	p.ID, _ = uuid.Parse(id)
	p.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	return &p, nil
}

// =============================================================================
// GROUPS
// =============================================================================

func (s *Store) SaveGroup(ctx context.Context, g *ledger.Group) error {
	query := `
		INSERT INTO person_groups (id, name, created_at)
		VALUES (?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET name = excluded.name
	`
	_, err := s.q.ExecContext(ctx, query,
		g.ID.String(), g.Name, g.CreatedAt.UTC().Format(time.RFC3339))
	return err
}

func (s *Store) GetGroup(ctx context.Context, id uuid.UUID) (*ledger.Group, error) {
	var g ledger.Group
	var gid, createdAt string
	err := s.q.QueryRowContext(ctx,
		"SELECT id, name, created_at FROM person_groups WHERE id = ?", id.String(),
	).Scan(&gid, &g.Name, &createdAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	g.ID, _ = uuid.Parse(gid)
	g.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	return &g, nil
}

func (s *Store) ListGroups(ctx context.Context) ([]*ledger.Group, error) {
	rows, err := s.q.QueryContext(ctx,
		"SELECT id, name, created_at FROM person_groups ORDER BY name")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var groups []*ledger.Group
	for rows.Next() {
		var g ledger.Group
		var gid, createdAt string
		if err := rows.Scan(&gid, &g.Name, &createdAt); err != nil {
			return nil, err
		}
		g.ID, _ = uuid.Parse(gid)
		g.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
		groups = append(groups, &g)
	}
	return groups, rows.Err()
}

func (s *Store) AddGroupMember(ctx context.Context, groupID, personID uuid.UUID) error {
	_, err := s.q.ExecContext(ctx,
		"INSERT OR IGNORE INTO group_members (group_id, person_id) VALUES (?, ?)",
		groupID.String(), personID.String())
	return err
}

func (s *Store) GroupMembers(ctx context.Context, groupID uuid.UUID) ([]*ledger.Person, error) {
	rows, err := s.q.QueryContext(ctx, `
		SELECT p.id, p.full_name, p.created_at
		FROM persons p
		JOIN group_members gm ON gm.person_id = p.id
		WHERE gm.group_id = ?
		ORDER BY p.full_name
	`, groupID.String())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var people []*ledger.Person
	for rows.Next() {
		p, err := scanPerson(rows)
		if err != nil {
			return nil, err
		}
		people = append(people, p)
	}
	return people, rows.Err()
}

func (s *Store) IsGroupMember(ctx context.Context, groupID, personID uuid.UUID) (bool, error) {
	var count int
	err := s.q.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM group_members WHERE group_id = ? AND person_id = ?",
		groupID.String(), personID.String(),
	).Scan(&count)
	return count > 0, err
}

// =============================================================================
// ENTRIES
// =============================================================================

const entryColumns = `id, reference_id, name, description, kind, date_borrowed,
	date_fully_paid, amount_borrowed, amount_remaining, status, method,
	borrower_person_id, borrower_group_id, lender_person_id, notes,
	payment_notes, proof, created_at`

func (s *Store) SaveEntry(ctx context.Context, e *ledger.Entry) error {
	query := `
		INSERT INTO entries (` + entryColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			reference_id = excluded.reference_id,
			name = excluded.name,
			description = excluded.description,
			date_borrowed = excluded.date_borrowed,
			date_fully_paid = excluded.date_fully_paid,
			amount_borrowed = excluded.amount_borrowed,
			amount_remaining = excluded.amount_remaining,
			status = excluded.status,
			method = excluded.method,
			notes = excluded.notes,
			payment_notes = excluded.payment_notes,
			proof = excluded.proof
	`
	_, err := s.q.ExecContext(ctx, query,
		e.ID.String(),
		e.ReferenceID,
		e.Name,
		e.Description,
		string(e.Kind),
		e.DateBorrowed.Format(dayLayout),
		nullDay(e.DateFullyPaid),
		e.AmountBorrowed.String(),
		e.AmountRemaining.String(),
		string(e.Status),
		string(e.Method),
		nullUUID(e.BorrowerPersonID),
		nullUUID(e.BorrowerGroupID),
		e.LenderPersonID.String(),
		e.Notes,
		e.PaymentNotes,
		e.Proof,
		e.CreatedAt.UTC().Format(time.RFC3339),
	)
	return err
}

func (s *Store) GetEntry(ctx context.Context, id uuid.UUID) (*ledger.Entry, error) {
	row := s.q.QueryRowContext(ctx,
		"SELECT "+entryColumns+" FROM entries WHERE id = ?", id.String())
	e, err := scanEntry(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return e, err
}

func (s *Store) ListEntries(ctx context.Context) ([]*ledger.Entry, error) {
	return s.queryEntries(ctx,
		"SELECT "+entryColumns+" FROM entries ORDER BY created_at ASC")
}

func (s *Store) DeleteEntry(ctx context.Context, id uuid.UUID) error {
	_, err := s.q.ExecContext(ctx, "DELETE FROM entries WHERE id = ?", id.String())
	return err
}

func (s *Store) ReferenceIDExists(ctx context.Context, ref string) (bool, error) {
	var count int
	err := s.q.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM entries WHERE reference_id = ?", ref).Scan(&count)
	return count > 0, err
}

// SumEntryAmounts sums borrowed/remaining over the given entries. Amounts
// are stored as TEXT for precision, so the sum happens here with decimals
// rather than in SQL. Returns nil when no listed entry exists, signalling
// the caller's fallback path.
func (s *Store) SumEntryAmounts(ctx context.Context, ids []uuid.UUID) (*ledger.EntryTotals, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	placeholders := make([]string, len(ids))
	args := make([]any, len(ids))
	for i, id := range ids {
		placeholders[i] = "?"
		args[i] = id.String()
	}
	query := "SELECT amount_borrowed, amount_remaining FROM entries WHERE id IN (" +
		strings.Join(placeholders, ", ") + ")"

	rows, err := s.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	totals := &ledger.EntryTotals{}
	found := false
	for rows.Next() {
		var borrowed, remaining string
		if err := rows.Scan(&borrowed, &remaining); err != nil {
			return nil, err
		}
		b, err := decimal.NewFromString(borrowed)
		if err != nil {
			return nil, fmt.Errorf("bad amount_borrowed %q: %w", borrowed, err)
		}
		r, err := decimal.NewFromString(remaining)
		if err != nil {
			return nil, fmt.Errorf("bad amount_remaining %q: %w", remaining, err)
		}
		totals.Borrowed = totals.Borrowed.Add(b)
		totals.Remaining = totals.Remaining.Add(r)
		found = true
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if !found {
		return nil, nil
	}
	return totals, nil
}

func (s *Store) queryEntries(ctx context.Context, query string, args ...any) ([]*ledger.Entry, error) {
	rows, err := s.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []*ledger.Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func scanEntry(row scanner) (*ledger.Entry, error) {
	var (
		e                ledger.Entry
		id, lenderID     string
		kind, status     string
		method           sql.NullString
		dateBorrowed     string
		dateFullyPaid    sql.NullString
		borrowed, remain string
		borrowerPerson   sql.NullString
		borrowerGroup    sql.NullString
		desc, notes      sql.NullString
		paymentNotes     sql.NullString
		createdAt        string
	)

	err := row.Scan(
		&id, &e.ReferenceID, &e.Name, &desc, &kind, &dateBorrowed,
		&dateFullyPaid, &borrowed, &remain, &status, &method,
		&borrowerPerson, &borrowerGroup, &lenderID, &notes,
		&paymentNotes, &e.Proof, &createdAt,
	)
	if err != nil {
		return nil, err
	}

	e.ID, _ = uuid.Parse(id)
	e.LenderPersonID, _ = uuid.Parse(lenderID)
	e.Kind = ledger.EntryKind(kind)
	e.Status = ledger.PayStatus(status)
	e.Method = ledger.PaymentMethod(method.String)
	e.Description = desc.String
	e.Notes = notes.String
	e.PaymentNotes = paymentNotes.String
	e.DateBorrowed, _ = time.Parse(dayLayout, dateBorrowed)
	e.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	if dateFullyPaid.Valid {
		t, _ := time.Parse(dayLayout, dateFullyPaid.String)
		e.DateFullyPaid = &t
	}
	if borrowerPerson.Valid {
		pid, _ := uuid.Parse(borrowerPerson.String)
		e.BorrowerPersonID = &pid
	}
	if borrowerGroup.Valid {
		gid, _ := uuid.Parse(borrowerGroup.String)
		e.BorrowerGroupID = &gid
	}
	e.AmountBorrowed, err = decimal.NewFromString(borrowed)
	if err != nil {
		return nil, fmt.Errorf("bad amount_borrowed %q: %w", borrowed, err)
	}
	e.AmountRemaining, err = decimal.NewFromString(remain)
	if err != nil {
		return nil, fmt.Errorf("bad amount_remaining %q: %w", remain, err)
	}
	return &e, nil
}

// =============================================================================
// INSTALLMENT PLANS AND TERMS
// =============================================================================

func (s *Store) SavePlan(ctx context.Context, p *ledger.InstallmentPlan) error {
	query := `
		INSERT INTO installment_plans
		(id, entry_id, start_date, frequency, frequency_day, term_count, amount_per_term, notes)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			start_date = excluded.start_date,
			frequency = excluded.frequency,
			frequency_day = excluded.frequency_day,
			term_count = excluded.term_count,
			amount_per_term = excluded.amount_per_term,
			notes = excluded.notes
	`
	_, err := s.q.ExecContext(ctx, query,
		p.ID.String(), p.EntryID.String(),
		p.StartDate.Format(dayLayout),
		string(p.Frequency), p.FrequencyDay,
		p.TermCount, p.AmountPerTerm.String(), p.Notes,
	)
	return err
}

func (s *Store) GetPlan(ctx context.Context, id uuid.UUID) (*ledger.InstallmentPlan, error) {
	row := s.q.QueryRowContext(ctx, `
		SELECT id, entry_id, start_date, frequency, frequency_day, term_count, amount_per_term, notes
		FROM installment_plans WHERE id = ?`, id.String())
	return scanPlan(row)
}

func (s *Store) GetPlanByEntry(ctx context.Context, entryID uuid.UUID) (*ledger.InstallmentPlan, error) {
	row := s.q.QueryRowContext(ctx, `
		SELECT id, entry_id, start_date, frequency, frequency_day, term_count, amount_per_term, notes
		FROM installment_plans WHERE entry_id = ?`, entryID.String())
	return scanPlan(row)
}

func scanPlan(row scanner) (*ledger.InstallmentPlan, error) {
	var (
		p               ledger.InstallmentPlan
		id, entryID     string
		startDate, freq string
		freqDay, notes  sql.NullString
		amountPerTerm   string
	)
	err := row.Scan(&id, &entryID, &startDate, &freq, &freqDay, &p.TermCount, &amountPerTerm, &notes)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	p.ID, _ = uuid.Parse(id)
	p.EntryID, _ = uuid.Parse(entryID)
	p.StartDate, _ = time.Parse(dayLayout, startDate)
	p.Frequency = ledger.Frequency(freq)
	p.FrequencyDay = freqDay.String
	p.Notes = notes.String
	p.AmountPerTerm, err = decimal.NewFromString(amountPerTerm)
	if err != nil {
		return nil, fmt.Errorf("bad amount_per_term %q: %w", amountPerTerm, err)
	}
	return &p, nil
}

func (s *Store) SaveTerm(ctx context.Context, t *ledger.InstallmentTerm) error {
	query := `
		INSERT INTO installment_terms (id, plan_id, number, due_date, status, penalty_applied)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			due_date = excluded.due_date,
			status = excluded.status,
			penalty_applied = excluded.penalty_applied
	`
	_, err := s.q.ExecContext(ctx, query,
		t.ID.String(), t.PlanID.String(), t.Number,
		t.DueDate.Format(dayLayout), string(t.Status), t.PenaltyApplied.String(),
	)
	return err
}

func (s *Store) GetTerm(ctx context.Context, id uuid.UUID) (*ledger.InstallmentTerm, error) {
	row := s.q.QueryRowContext(ctx, `
		SELECT id, plan_id, number, due_date, status, penalty_applied
		FROM installment_terms WHERE id = ?`, id.String())
	t, err := scanTerm(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return t, err
}

func (s *Store) TermsByPlan(ctx context.Context, planID uuid.UUID) ([]*ledger.InstallmentTerm, error) {
	rows, err := s.q.QueryContext(ctx, `
		SELECT id, plan_id, number, due_date, status, penalty_applied
		FROM installment_terms WHERE plan_id = ?
		ORDER BY number ASC`, planID.String())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var terms []*ledger.InstallmentTerm
	for rows.Next() {
		t, err := scanTerm(rows)
		if err != nil {
			return nil, err
		}
		terms = append(terms, t)
	}
	return terms, rows.Err()
}

func scanTerm(row scanner) (*ledger.InstallmentTerm, error) {
	var (
		t               ledger.InstallmentTerm
		id, planID      string
		dueDate, status string
		penalty         string
	)
	err := row.Scan(&id, &planID, &t.Number, &dueDate, &status, &penalty)
	if err != nil {
		return nil, err
	}
	t.ID, _ = uuid.Parse(id)
	t.PlanID, _ = uuid.Parse(planID)
	t.DueDate, _ = time.Parse(dayLayout, dueDate)
	t.Status = ledger.TermStatus(status)
	t.PenaltyApplied, err = decimal.NewFromString(penalty)
	if err != nil {
		return nil, fmt.Errorf("bad penalty_applied %q: %w", penalty, err)
	}
	return &t, nil
}

// =============================================================================
// PAYMENTS AND LINKS
// =============================================================================

const paymentColumns = `id, date, amount, change_amount, payee_person_id, notes, proof, created_at`

func (s *Store) SavePayment(ctx context.Context, p *ledger.Payment) error {
	query := `
		INSERT INTO payments (` + paymentColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			date = excluded.date,
			amount = excluded.amount,
			change_amount = excluded.change_amount,
			payee_person_id = excluded.payee_person_id,
			notes = excluded.notes,
			proof = excluded.proof
	`
	_, err := s.q.ExecContext(ctx, query,
		p.ID.String(),
		p.Date.Format(dayLayout),
		p.Amount.String(),
		p.ChangeAmount.String(),
		p.PayeePersonID.String(),
		p.Notes,
		p.Proof,
		p.CreatedAt.UTC().Format(time.RFC3339),
	)
	return err
}

func (s *Store) GetPayment(ctx context.Context, id uuid.UUID) (*ledger.Payment, error) {
	row := s.q.QueryRowContext(ctx,
		"SELECT "+paymentColumns+" FROM payments WHERE id = ?", id.String())
	p, err := scanPayment(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return p, err
}

func (s *Store) ListPayments(ctx context.Context) ([]*ledger.Payment, error) {
	return s.queryPayments(ctx,
		"SELECT "+paymentColumns+" FROM payments ORDER BY created_at ASC")
}

func (s *Store) DeletePayment(ctx context.Context, id uuid.UUID) error {
	_, err := s.q.ExecContext(ctx, "DELETE FROM payments WHERE id = ?", id.String())
	return err
}

func (s *Store) LinkPaymentToEntry(ctx context.Context, paymentID, entryID uuid.UUID) error {
	_, err := s.q.ExecContext(ctx,
		"INSERT OR IGNORE INTO payment_entries (payment_id, entry_id) VALUES (?, ?)",
		paymentID.String(), entryID.String())
	return err
}

func (s *Store) PaymentsByEntry(ctx context.Context, entryID uuid.UUID) ([]*ledger.Payment, error) {
	query := `
		SELECT p.id, p.date, p.amount, p.change_amount, p.payee_person_id, p.notes, p.proof, p.created_at
		FROM payments p
		JOIN payment_entries pe ON pe.payment_id = p.id
		WHERE pe.entry_id = ?
		ORDER BY p.created_at ASC
	`
	return s.queryPayments(ctx, query, entryID.String())
}

func (s *Store) EntriesByPayment(ctx context.Context, paymentID uuid.UUID) ([]*ledger.Entry, error) {
	query := `
		SELECT e.id, e.reference_id, e.name, e.description, e.kind, e.date_borrowed,
		       e.date_fully_paid, e.amount_borrowed, e.amount_remaining, e.status, e.method,
		       e.borrower_person_id, e.borrower_group_id, e.lender_person_id, e.notes,
		       e.payment_notes, e.proof, e.created_at
		FROM entries e
		JOIN payment_entries pe ON pe.entry_id = e.id
		WHERE pe.payment_id = ?
	`
	return s.queryEntries(ctx, query, paymentID.String())
}

func (s *Store) queryPayments(ctx context.Context, query string, args ...any) ([]*ledger.Payment, error) {
	rows, err := s.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var payments []*ledger.Payment
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, err
		}
		payments = append(payments, p)
	}
	return payments, rows.Err()
}

func scanPayment(row scanner) (*ledger.Payment, error) {
	var (
		p               ledger.Payment
		id, payeeID     string
		date, createdAt string
		amount, change  string
		notes           sql.NullString
	)
	err := row.Scan(&id, &date, &amount, &change, &payeeID, &notes, &p.Proof, &createdAt)
	if err != nil {
		return nil, err
	}
	p.ID, _ = uuid.Parse(id)
	p.PayeePersonID, _ = uuid.Parse(payeeID)
	p.Date, _ = time.Parse(dayLayout, date)
	p.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	p.Notes = notes.String
	p.Amount, err = decimal.NewFromString(amount)
	if err != nil {
		return nil, fmt.Errorf("bad amount %q: %w", amount, err)
	}
	p.ChangeAmount, err = decimal.NewFromString(change)
	if err != nil {
		return nil, fmt.Errorf("bad change_amount %q: %w", change, err)
	}
	return &p, nil
}

// =============================================================================
// ALLOCATIONS AND LINKS
// =============================================================================

func (s *Store) SaveAllocation(ctx context.Context, a *ledger.Allocation) error {
	query := `
		INSERT INTO allocations (id, entry_id, person_id, description, amount, notes)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			person_id = excluded.person_id,
			description = excluded.description,
			amount = excluded.amount,
			notes = excluded.notes
	`
	_, err := s.q.ExecContext(ctx, query,
		a.ID.String(), a.EntryID.String(), a.PersonID.String(),
		a.Description, a.Amount.String(), a.Notes)
	return err
}

func (s *Store) GetAllocation(ctx context.Context, id uuid.UUID) (*ledger.Allocation, error) {
	row := s.q.QueryRowContext(ctx, `
		SELECT id, entry_id, person_id, description, amount, notes
		FROM allocations WHERE id = ?`, id.String())
	a, err := scanAllocation(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return a, err
}

func (s *Store) AllocationsByEntry(ctx context.Context, entryID uuid.UUID) ([]*ledger.Allocation, error) {
	return s.queryAllocations(ctx, `
		SELECT id, entry_id, person_id, description, amount, notes
		FROM allocations WHERE entry_id = ?
		ORDER BY id`, entryID.String())
}

func (s *Store) ListAllocations(ctx context.Context) ([]*ledger.Allocation, error) {
	return s.queryAllocations(ctx, `
		SELECT id, entry_id, person_id, description, amount, notes
		FROM allocations ORDER BY id`)
}

func (s *Store) DeleteAllocation(ctx context.Context, id uuid.UUID) error {
	_, err := s.q.ExecContext(ctx, "DELETE FROM allocations WHERE id = ?", id.String())
	return err
}

func (s *Store) LinkPaymentToAllocation(ctx context.Context, link ledger.AllocationPayment) error {
	query := `
		INSERT INTO allocation_payments (payment_id, allocation_id, amount)
		VALUES (?, ?, ?)
		ON CONFLICT(payment_id, allocation_id) DO UPDATE SET amount = excluded.amount
	`
	_, err := s.q.ExecContext(ctx, query,
		link.PaymentID.String(), link.AllocationID.String(), link.Amount.String())
	return err
}

func (s *Store) AllocationPayments(ctx context.Context, allocationID uuid.UUID) ([]ledger.AllocationPayment, error) {
	rows, err := s.q.QueryContext(ctx, `
		SELECT payment_id, allocation_id, amount
		FROM allocation_payments WHERE allocation_id = ?`, allocationID.String())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var links []ledger.AllocationPayment
	for rows.Next() {
		var link ledger.AllocationPayment
		var paymentID, allocID, amount string
		if err := rows.Scan(&paymentID, &allocID, &amount); err != nil {
			return nil, err
		}
		link.PaymentID, _ = uuid.Parse(paymentID)
		link.AllocationID, _ = uuid.Parse(allocID)
		link.Amount, err = decimal.NewFromString(amount)
		if err != nil {
			return nil, fmt.Errorf("bad allocation payment amount %q: %w", amount, err)
		}
		links = append(links, link)
	}
	return links, rows.Err()
}

func (s *Store) DeleteAllocationLinks(ctx context.Context, allocationID uuid.UUID) error {
	_, err := s.q.ExecContext(ctx,
		"DELETE FROM allocation_payments WHERE allocation_id = ?", allocationID.String())
	return err
}

func (s *Store) queryAllocations(ctx context.Context, query string, args ...any) ([]*ledger.Allocation, error) {
	rows, err := s.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var allocations []*ledger.Allocation
	for rows.Next() {
		a, err := scanAllocation(rows)
		if err != nil {
			return nil, err
		}
		allocations = append(allocations, a)
	}
	return allocations, rows.Err()
}

func scanAllocation(row scanner) (*ledger.Allocation, error) {
	var (
		a                   ledger.Allocation
		id, entryID, person string
		desc, notes         sql.NullString
		amount              string
	)
	err := row.Scan(&id, &entryID, &person, &desc, &amount, &notes)
	if err != nil {
		return nil, err
	}
	a.ID, _ = uuid.Parse(id)
	a.EntryID, _ = uuid.Parse(entryID)
	a.PersonID, _ = uuid.Parse(person)
	a.Description = desc.String
	a.Notes = notes.String
	a.Amount, err = decimal.NewFromString(amount)
	if err != nil {
		return nil, fmt.Errorf("bad allocation amount %q: %w", amount, err)
	}
	return &a, nil
}

// =============================================================================
// ATTACHMENTS
// =============================================================================

func (s *Store) SaveAttachment(ctx context.Context, a *ledger.Attachment) error {
	query := `
		INSERT INTO attachments (id, entry_id, payment_id, filename, content_type, size, data, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			filename = excluded.filename,
			content_type = excluded.content_type,
			size = excluded.size,
			data = excluded.data
	`
	_, err := s.q.ExecContext(ctx, query,
		a.ID.String(), nullUUID(a.EntryID), nullUUID(a.PaymentID),
		a.Filename, a.ContentType, a.Size, a.Data,
		a.CreatedAt.UTC().Format(time.RFC3339))
	return err
}

func (s *Store) AttachmentsByPayment(ctx context.Context, paymentID uuid.UUID) ([]*ledger.Attachment, error) {
	rows, err := s.q.QueryContext(ctx, `
		SELECT id, entry_id, payment_id, filename, content_type, size, data, created_at
		FROM attachments WHERE payment_id = ?
		ORDER BY created_at ASC`, paymentID.String())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var attachments []*ledger.Attachment
	for rows.Next() {
		var (
			a                  ledger.Attachment
			id                 string
			entryID, payID     sql.NullString
			filename, contentT sql.NullString
			createdAt          string
		)
		if err := rows.Scan(&id, &entryID, &payID, &filename, &contentT, &a.Size, &a.Data, &createdAt); err != nil {
			return nil, err
		}
		a.ID, _ = uuid.Parse(id)
		a.Filename = filename.String
		a.ContentType = contentT.String
		a.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
		if entryID.Valid {
			eid, _ := uuid.Parse(entryID.String)
			a.EntryID = &eid
		}
		if payID.Valid {
			pid, _ := uuid.Parse(payID.String)
			a.PaymentID = &pid
		}
		attachments = append(attachments, &a)
	}
	return attachments, rows.Err()
}

// =============================================================================
// TRANSACTIONS
// =============================================================================

// WithTx executes fn within a database transaction. Nested calls reuse the
// outer transaction; SQLite has no savepoint support here.
func (s *Store) WithTx(ctx context.Context, fn func(ledger.Store) error) error {
	if _, nested := s.q.(*sql.Tx); nested {
		return fn(s)
	}

	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer sqlTx.Rollback()

	if err := fn(&Store{db: s.db, q: sqlTx}); err != nil {
		return err
	}
	return sqlTx.Commit()
}

// Helper functions

func nullUUID(id *uuid.UUID) any {
	if id == nil {
		return nil
	}
	return id.String()
}

func nullDay(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.Format(dayLayout)
}
