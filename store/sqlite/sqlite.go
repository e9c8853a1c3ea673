/*
Package sqlite provides SQLite-backed persistence for billing records and
recognition output.

PURPOSE:
  The recognition engine itself is pure; this package is the external
  collaborator that stores its inputs (invoices, items, payments, refunds,
  term extensions) and its persisted output (monthly entries). In
  production, the same patterns apply to PostgreSQL - only minor SQL
  dialect differences.

KEY TABLES:
  invoices:         Billing documents
  invoice_items:    Fee lines with service windows
  payments:         Cash received per invoice
  refunds:          Cash returned, with cancellation flag
  term_extensions:  Service window extensions
  monthly_entries:  Persisted monthly rollups, one row per item-month

OBSERVATION DATE:
  Loaders take an as-of date so a recognition run can exclude events that
  occur after the reporting date. Payments, refunds, and extensions dated
  later simply don't load.

MONEY AND DATES:
  Monetary values are stored as decimal TEXT, never floats. Dates are
  stored as "YYYY-MM-DD" TEXT, which sorts and compares correctly as a
  string.

ATOMIC REPLACEMENT:
  ReplaceMonthlyEntries deletes and reinserts an item's rows in one
  transaction. A recognition rerun replaces the whole rollup or nothing;
  there is no partial persistence.

CONCURRENCY:
  Uses sync.RWMutex for thread-safety. In production with PostgreSQL,
  database-level concurrency control handles this instead.

WAL MODE:
  SQLite is opened with WAL (Write-Ahead Logging) for better concurrency:
  - Multiple readers don't block
  - Single writer at a time
  - Better crash recovery

USAGE:
  store, err := sqlite.New("./data/revrec.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

MIGRATION:
  Schema is auto-migrated on New(). For production, use a proper
  migration tool (golang-migrate, goose) with versioned migrations.

SEE ALSO:
  - revrec: the pure engine these records feed
  - api: the HTTP layer that orchestrates recognition runs through this store
*/
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"

	"github.com/clearledger/revrec-engine/revrec"
)

// Store persists billing records and monthly recognition entries.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &Store{db: db}
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

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS invoices (
		id TEXT PRIMARY KEY,
		account_id TEXT NOT NULL,
		invoice_date TEXT NOT NULL,
		amount TEXT NOT NULL,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_invoices_date ON invoices(invoice_date);

	CREATE TABLE IF NOT EXISTS invoice_items (
		id TEXT PRIMARY KEY,
		invoice_id TEXT NOT NULL,
		account_id TEXT NOT NULL,
		charge_name TEXT,
		plan TEXT,
		amount TEXT NOT NULL,
		service_start TEXT NOT NULL,
		service_end TEXT NOT NULL,
		billing_period TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_items_invoice ON invoice_items(invoice_id);

	CREATE TABLE IF NOT EXISTS payments (
		id TEXT PRIMARY KEY,
		invoice_id TEXT NOT NULL,
		payment_date TEXT NOT NULL,
		amount TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_payments_invoice ON payments(invoice_id, payment_date);

	CREATE TABLE IF NOT EXISTS refunds (
		id TEXT PRIMARY KEY,
		invoice_id TEXT NOT NULL,
		refund_date TEXT NOT NULL,
		amount TEXT NOT NULL,
		cancellation INTEGER NOT NULL DEFAULT 0
	);

	CREATE INDEX IF NOT EXISTS idx_refunds_invoice ON refunds(invoice_id, refund_date);

	CREATE TABLE IF NOT EXISTS term_extensions (
		id TEXT PRIMARY KEY,
		invoice_id TEXT NOT NULL,
		grant_date TEXT NOT NULL,
		service_end TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_extensions_invoice ON term_extensions(invoice_id, grant_date);

	-- Persisted recognition output, one row per item-month. Replaced
	-- wholesale on every rerun; never the source of truth for the
	-- daily schedule.
	CREATE TABLE IF NOT EXISTS monthly_entries (
		account_id TEXT NOT NULL,
		invoice_item_id TEXT NOT NULL,
		year INTEGER NOT NULL,
		month INTEGER NOT NULL,
		cr_rev TEXT NOT NULL,
		ending_defrev TEXT NOT NULL,
		cr_ref_payable TEXT NOT NULL,
		dr_reserve_ref TEXT NOT NULL,
		dr_contra_rev TEXT NOT NULL,
		dr_defrev TEXT NOT NULL,
		dr_reserve_graceperiod TEXT NOT NULL,
		cr_contra_rev TEXT NOT NULL,
		PRIMARY KEY (invoice_item_id, year, month)
	);

	CREATE INDEX IF NOT EXISTS idx_monthly_entries_period ON monthly_entries(year, month);
	`

	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// INVOICES
// =============================================================================

func (s *Store) SaveInvoice(ctx context.Context, inv revrec.Invoice) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO invoices (id, account_id, invoice_date, amount, created_at)
		VALUES (?, ?, ?, ?, ?)`,
		inv.ID, inv.AccountID, inv.Date.String(), inv.Amount.String(),
		time.Now().UTC().Format(time.RFC3339))
	return err
}

// ListInvoices returns invoices dated on or before asOf, oldest first.
func (s *Store) ListInvoices(ctx context.Context, asOf revrec.Date) ([]revrec.Invoice, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, account_id, invoice_date, amount
		FROM invoices WHERE invoice_date <= ? ORDER BY invoice_date, id`,
		asOf.String())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var invoices []revrec.Invoice
	for rows.Next() {
		inv, err := scanInvoice(rows)
		if err != nil {
			return nil, err
		}
		invoices = append(invoices, inv)
	}
	return invoices, rows.Err()
}

// GetInvoice returns the invoice with the given id, or nil if absent.
func (s *Store) GetInvoice(ctx context.Context, id string) (*revrec.Invoice, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx, `
		SELECT id, account_id, invoice_date, amount FROM invoices WHERE id = ?`, id)

	inv, err := scanInvoice(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &inv, nil
}

// =============================================================================
// INVOICE ITEMS
// =============================================================================

func (s *Store) SaveInvoiceItem(ctx context.Context, item revrec.InvoiceItem) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO invoice_items
			(id, invoice_id, account_id, charge_name, plan, amount, service_start, service_end, billing_period)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		item.ID, item.InvoiceID, item.AccountID, item.ChargeName, item.Plan,
		item.Amount.String(), item.ServiceStart.String(), item.ServiceEnd.String(),
		string(item.BillingPeriod))
	return err
}

func (s *Store) ItemsForInvoice(ctx context.Context, invoiceID string) ([]revrec.InvoiceItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, invoice_id, account_id, charge_name, plan, amount, service_start, service_end, billing_period
		FROM invoice_items WHERE invoice_id = ? ORDER BY id`, invoiceID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []revrec.InvoiceItem
	for rows.Next() {
		var item revrec.InvoiceItem
		var amount, start, end, period string
		if err := rows.Scan(&item.ID, &item.InvoiceID, &item.AccountID,
			&item.ChargeName, &item.Plan, &amount, &start, &end, &period); err != nil {
			return nil, err
		}
		if item.Amount, err = decimal.NewFromString(amount); err != nil {
			return nil, err
		}
		if item.ServiceStart, err = revrec.ParseDate(start); err != nil {
			return nil, err
		}
		if item.ServiceEnd, err = revrec.ParseDate(end); err != nil {
			return nil, err
		}
		item.BillingPeriod = revrec.BillingPeriod(period)
		items = append(items, item)
	}
	return items, rows.Err()
}

// =============================================================================
// PAYMENTS, REFUNDS, TERM EXTENSIONS
// =============================================================================

func (s *Store) SavePayment(ctx context.Context, p revrec.Payment) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO payments (id, invoice_id, payment_date, amount)
		VALUES (?, ?, ?, ?)`,
		p.ID, p.InvoiceID, p.Date.String(), p.Amount.String())
	return err
}

// PaymentForInvoice returns the earliest payment dated on or before asOf,
// or nil if the invoice is unpaid as of that date.
func (s *Store) PaymentForInvoice(ctx context.Context, invoiceID string, asOf revrec.Date) (*revrec.Payment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx, `
		SELECT id, invoice_id, payment_date, amount
		FROM payments WHERE invoice_id = ? AND payment_date <= ?
		ORDER BY payment_date LIMIT 1`,
		invoiceID, asOf.String())

	var p revrec.Payment
	var date, amount string
	err := row.Scan(&p.ID, &p.InvoiceID, &date, &amount)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if p.Date, err = revrec.ParseDate(date); err != nil {
		return nil, err
	}
	if p.Amount, err = decimal.NewFromString(amount); err != nil {
		return nil, err
	}
	return &p, nil
}

func (s *Store) SaveRefund(ctx context.Context, r revrec.Refund) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cancellation := 0
	if r.Cancellation {
		cancellation = 1
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO refunds (id, invoice_id, refund_date, amount, cancellation)
		VALUES (?, ?, ?, ?, ?)`,
		r.ID, r.InvoiceID, r.Date.String(), r.Amount.String(), cancellation)
	return err
}

// RefundsForInvoice returns refunds dated on or before asOf in
// chronological order, which is the order the engine applies them.
func (s *Store) RefundsForInvoice(ctx context.Context, invoiceID string, asOf revrec.Date) ([]revrec.Refund, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, invoice_id, refund_date, amount, cancellation
		FROM refunds WHERE invoice_id = ? AND refund_date <= ?
		ORDER BY refund_date, id`,
		invoiceID, asOf.String())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var refunds []revrec.Refund
	for rows.Next() {
		var r revrec.Refund
		var date, amount string
		var cancellation int
		if err := rows.Scan(&r.ID, &r.InvoiceID, &date, &amount, &cancellation); err != nil {
			return nil, err
		}
		if r.Date, err = revrec.ParseDate(date); err != nil {
			return nil, err
		}
		if r.Amount, err = decimal.NewFromString(amount); err != nil {
			return nil, err
		}
		r.Cancellation = cancellation != 0
		refunds = append(refunds, r)
	}
	return refunds, rows.Err()
}

func (s *Store) SaveTermExtension(ctx context.Context, ext revrec.TermExtension) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO term_extensions (id, invoice_id, grant_date, service_end)
		VALUES (?, ?, ?, ?)`,
		ext.ID, ext.InvoiceID, ext.GrantDate.String(), ext.ServiceEnd.String())
	return err
}

// ExtensionsForInvoice returns term extensions granted on or before asOf
// in chronological order.
func (s *Store) ExtensionsForInvoice(ctx context.Context, invoiceID string, asOf revrec.Date) ([]revrec.TermExtension, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, invoice_id, grant_date, service_end
		FROM term_extensions WHERE invoice_id = ? AND grant_date <= ?
		ORDER BY grant_date, id`,
		invoiceID, asOf.String())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var exts []revrec.TermExtension
	for rows.Next() {
		var ext revrec.TermExtension
		var grant, end string
		if err := rows.Scan(&ext.ID, &ext.InvoiceID, &grant, &end); err != nil {
			return nil, err
		}
		if ext.GrantDate, err = revrec.ParseDate(grant); err != nil {
			return nil, err
		}
		if ext.ServiceEnd, err = revrec.ParseDate(end); err != nil {
			return nil, err
		}
		exts = append(exts, ext)
	}
	return exts, rows.Err()
}

// =============================================================================
// MONTHLY ENTRIES
// =============================================================================

// MonthlyTotal is one month's aggregate across all invoice items, the
// report the monthly_entries table exists to serve.
type MonthlyTotal struct {
	Year                    int
	Month                   int
	CreditRevenue           decimal.Decimal
	EndingDeferredRevenue   decimal.Decimal
	CreditRefundPayable     decimal.Decimal
	DebitReserveRefund      decimal.Decimal
	DebitContraRevenue      decimal.Decimal
	DebitDeferredRevenue    decimal.Decimal
	DebitReserveGracePeriod decimal.Decimal
	CreditContraRevenue     decimal.Decimal
}

// ReplaceMonthlyEntries atomically replaces an item's persisted rollup.
// Values are rounded to cents at this boundary; the engine's
// full-precision schedule is the source of truth.
func (s *Store) ReplaceMonthlyEntries(ctx context.Context, accountID, itemID string, months revrec.MonthlyRollup) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM monthly_entries WHERE invoice_item_id = ?`, itemID); err != nil {
		return err
	}

	for _, ym := range months.Months() {
		m := months[ym]
		_, err := tx.ExecContext(ctx, `
			INSERT INTO monthly_entries
				(account_id, invoice_item_id, year, month,
				 cr_rev, ending_defrev, cr_ref_payable, dr_reserve_ref,
				 dr_contra_rev, dr_defrev, dr_reserve_graceperiod, cr_contra_rev)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			accountID, itemID, ym.Year, int(ym.Month),
			m.CreditRevenue.Round(2).String(),
			m.EndingDeferredRevenue.Round(2).String(),
			m.CreditRefundPayable.Round(2).String(),
			m.DebitReserveRefund.Round(2).String(),
			m.DebitContraRevenue.Round(2).String(),
			m.DebitDeferredRevenue.Round(2).String(),
			m.DebitReserveGracePeriod.Round(2).String(),
			m.CreditContraRevenue.Round(2).String())
		if err != nil {
			return err
		}
	}

	return tx.Commit()
}

// MonthlyEntriesForItem returns an item's persisted rollup in
// chronological order. Used to inspect a single item's recognition run.
func (s *Store) MonthlyEntriesForItem(ctx context.Context, itemID string) ([]MonthlyTotal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT year, month, cr_rev, ending_defrev, cr_ref_payable, dr_reserve_ref,
		       dr_contra_rev, dr_defrev, dr_reserve_graceperiod, cr_contra_rev
		FROM monthly_entries WHERE invoice_item_id = ?
		ORDER BY year, month`, itemID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []MonthlyTotal
	for rows.Next() {
		var t MonthlyTotal
		var cols [8]string
		if err := rows.Scan(&t.Year, &t.Month, &cols[0], &cols[1], &cols[2],
			&cols[3], &cols[4], &cols[5], &cols[6], &cols[7]); err != nil {
			return nil, err
		}
		dst := []*decimal.Decimal{
			&t.CreditRevenue, &t.EndingDeferredRevenue, &t.CreditRefundPayable,
			&t.DebitReserveRefund, &t.DebitContraRevenue, &t.DebitDeferredRevenue,
			&t.DebitReserveGracePeriod, &t.CreditContraRevenue,
		}
		for i, col := range cols {
			if *dst[i], err = decimal.NewFromString(col); err != nil {
				return nil, err
			}
		}
		entries = append(entries, t)
	}
	return entries, rows.Err()
}

// MonthlyTotals aggregates persisted entries across all items, grouped by
// calendar month in chronological order.
func (s *Store) MonthlyTotals(ctx context.Context) ([]MonthlyTotal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	// Rows are stored as cent-rounded decimal TEXT, so summing as REAL
	// stays well inside float64 exactness for realistic data volumes.
	rows, err := s.db.QueryContext(ctx, `
		SELECT year, month,
			SUM(CAST(cr_rev AS REAL)),
			SUM(CAST(ending_defrev AS REAL)),
			SUM(CAST(cr_ref_payable AS REAL)),
			SUM(CAST(dr_reserve_ref AS REAL)),
			SUM(CAST(dr_contra_rev AS REAL)),
			SUM(CAST(dr_defrev AS REAL)),
			SUM(CAST(dr_reserve_graceperiod AS REAL)),
			SUM(CAST(cr_contra_rev AS REAL))
		FROM monthly_entries
		GROUP BY year, month
		ORDER BY year, month`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var totals []MonthlyTotal
	for rows.Next() {
		var t MonthlyTotal
		var sums [8]float64
		if err := rows.Scan(&t.Year, &t.Month, &sums[0], &sums[1], &sums[2],
			&sums[3], &sums[4], &sums[5], &sums[6], &sums[7]); err != nil {
			return nil, err
		}
		t.CreditRevenue = decimal.NewFromFloat(sums[0]).Round(2)
		t.EndingDeferredRevenue = decimal.NewFromFloat(sums[1]).Round(2)
		t.CreditRefundPayable = decimal.NewFromFloat(sums[2]).Round(2)
		t.DebitReserveRefund = decimal.NewFromFloat(sums[3]).Round(2)
		t.DebitContraRevenue = decimal.NewFromFloat(sums[4]).Round(2)
		t.DebitDeferredRevenue = decimal.NewFromFloat(sums[5]).Round(2)
		t.DebitReserveGracePeriod = decimal.NewFromFloat(sums[6]).Round(2)
		t.CreditContraRevenue = decimal.NewFromFloat(sums[7]).Round(2)
		totals = append(totals, t)
	}
	return totals, rows.Err()
}

// =============================================================================
// MAINTENANCE
// =============================================================================

// Reset clears every table. Development and demo use only.
func (s *Store) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, table := range []string{
		"invoices", "invoice_items", "payments", "refunds",
		"term_extensions", "monthly_entries",
	} {
		if _, err := s.db.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return err
		}
	}
	return nil
}

// =============================================================================
// SCAN HELPERS
// =============================================================================

type rowScanner interface {
	Scan(dest ...any) error
}

func scanInvoice(row rowScanner) (revrec.Invoice, error) {
	var inv revrec.Invoice
	var date, amount string
	if err := row.Scan(&inv.ID, &inv.AccountID, &date, &amount); err != nil {
		return revrec.Invoice{}, err
	}
	var err error
	if inv.Date, err = revrec.ParseDate(date); err != nil {
		return revrec.Invoice{}, err
	}
	if inv.Amount, err = decimal.NewFromString(amount); err != nil {
		return revrec.Invoice{}, err
	}
	return inv, nil
}
