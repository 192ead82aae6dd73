/*
Package sqlite provides a SQLite-backed implementation of expense.Store.

PURPOSE:
  Durable storage for bills, payment methods, categories and owners. It is
  also an expense.TxStore, so the ledger engine writes a bill and its payment
  method in one database transaction instead of compensating by hand.

KEY TABLES:
  bills:            One row per bill; category ids as a JSON array
  payment_methods:  Tagged rows; credit_* columns or balance, by account_type
  categories:       id, name
  owners:           id, name

MONEY:
  Decimals are stored as TEXT and parsed back with shopspring/decimal, so
  values round-trip exactly.

CONCURRENCY:
  The pool is capped at one connection. SQLite serializes writers anyway,
  and a single connection keeps ":memory:" databases alive across calls.
  While WithTx runs, other callers wait for the connection.

MIGRATION:
  Schema is applied on New() from the embedded migrations/ directory using
  golang-migrate.

USAGE:
  store, err := sqlite.New("./data/ledger.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

  engine := expense.NewEngine(store)

SEE ALSO:
  - expense/store.go: Interface definitions
  - store/memory: In-memory implementation for testing
*/
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"
	"github.com/warp/household-ledger/expense"
)

// queryer is satisfied by both *sql.DB and *sql.Tx.
type queryer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Store implements expense.TxStore using SQLite.
type Store struct {
	queries
	db *sql.DB
}

// New opens (creating if needed) the database at dbPath and migrates it.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)

	if err := runMigrations(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return &Store{queries: queries{q: db}, db: db}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// =============================================================================
// TRANSACTIONAL STORE (expense.TxStore interface)
// =============================================================================

// WithTx executes fn within a database transaction. The Store passed to fn
// reads and writes through the transaction.
func (s *Store) WithTx(ctx context.Context, fn func(expense.Store) error) error {
	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer sqlTx.Rollback()

	if err := fn(&queries{q: sqlTx}); err != nil {
		return err
	}

	return sqlTx.Commit()
}

// Reset clears all data (for testing/demo).
func (s *Store) Reset(ctx context.Context) error {
	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer sqlTx.Rollback()

	for _, table := range []string{"bills", "payment_methods", "categories", "owners"} {
		if _, err := sqlTx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return fmt.Errorf("failed to clear %s: %w", table, err)
		}
	}
	return sqlTx.Commit()
}

// =============================================================================
// QUERIES - expense.Store over a queryer
// =============================================================================

type queries struct {
	q queryer
}

// ---- bills ----

const billColumns = `id, amount, payment_method_id, category_ids_json, owner_id, note, created_at, updated_at`

func (s *queries) ListBills(ctx context.Context) ([]expense.Bill, error) {
	rows, err := s.q.QueryContext(ctx, "SELECT "+billColumns+" FROM bills ORDER BY rowid")
	if err != nil {
		return nil, fmt.Errorf("failed to query bills: %w", err)
	}
	defer rows.Close()

	bills := []expense.Bill{}
	for rows.Next() {
		b, err := scanBill(rows)
		if err != nil {
			return nil, err
		}
		bills = append(bills, b)
	}
	return bills, rows.Err()
}

func (s *queries) GetBill(ctx context.Context, id expense.BillID) (expense.Bill, bool, error) {
	row := s.q.QueryRowContext(ctx, "SELECT "+billColumns+" FROM bills WHERE id = ?", id)
	b, err := scanBill(row)
	if errors.Is(err, sql.ErrNoRows) {
		return expense.Bill{}, false, nil
	}
	if err != nil {
		return expense.Bill{}, false, err
	}
	return b, true, nil
}

func (s *queries) SaveBill(ctx context.Context, b expense.Bill) error {
	catsJSON, err := json.Marshal(b.CategoryIDs)
	if err != nil {
		return fmt.Errorf("failed to encode category ids: %w", err)
	}

	query := `
		INSERT INTO bills (` + billColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			amount = excluded.amount,
			payment_method_id = excluded.payment_method_id,
			category_ids_json = excluded.category_ids_json,
			owner_id = excluded.owner_id,
			note = excluded.note,
			updated_at = excluded.updated_at
	`
	_, err = s.q.ExecContext(ctx, query,
		b.ID, b.Amount.String(), b.PaymentMethodID, string(catsJSON), b.OwnerID,
		nullString(b.Note), formatTime(b.CreatedAt), formatTime(b.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to save bill: %w", err)
	}
	return nil
}

func (s *queries) UpdateBill(ctx context.Context, b expense.Bill) error {
	catsJSON, err := json.Marshal(b.CategoryIDs)
	if err != nil {
		return fmt.Errorf("failed to encode category ids: %w", err)
	}

	res, err := s.q.ExecContext(ctx, `
		UPDATE bills SET amount = ?, payment_method_id = ?, category_ids_json = ?,
			owner_id = ?, note = ?, created_at = ?, updated_at = ?
		WHERE id = ?`,
		b.Amount.String(), b.PaymentMethodID, string(catsJSON), b.OwnerID,
		nullString(b.Note), formatTime(b.CreatedAt), formatTime(b.UpdatedAt), b.ID,
	)
	return checkAffected(res, err, "bill", string(b.ID))
}

func (s *queries) DeleteBill(ctx context.Context, id expense.BillID) error {
	res, err := s.q.ExecContext(ctx, "DELETE FROM bills WHERE id = ?", id)
	return checkAffected(res, err, "bill", string(id))
}

type scanner interface {
	Scan(dest ...any) error
}

func scanBill(row scanner) (expense.Bill, error) {
	var (
		b                    expense.Bill
		amount, catsJSON     string
		note                 sql.NullString
		createdAt, updatedAt string
	)
	err := row.Scan(&b.ID, &amount, &b.PaymentMethodID, &catsJSON, &b.OwnerID, &note, &createdAt, &updatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return b, err
		}
		return b, fmt.Errorf("failed to scan bill: %w", err)
	}

	if b.Amount, err = decimal.NewFromString(amount); err != nil {
		return b, fmt.Errorf("bill %s: bad amount %q: %w", b.ID, amount, err)
	}
	if err := json.Unmarshal([]byte(catsJSON), &b.CategoryIDs); err != nil {
		return b, fmt.Errorf("bill %s: bad category ids: %w", b.ID, err)
	}
	b.Note = note.String
	if b.CreatedAt, err = parseTime(createdAt); err != nil {
		return b, err
	}
	if b.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return b, err
	}
	return b, nil
}

// ---- payment methods ----

const methodColumns = `id, name, transaction_type, account_type, credit_limit, outstanding_balance, billing_day, balance`

func (s *queries) ListPaymentMethods(ctx context.Context) ([]expense.PaymentMethod, error) {
	rows, err := s.q.QueryContext(ctx, "SELECT "+methodColumns+" FROM payment_methods ORDER BY rowid")
	if err != nil {
		return nil, fmt.Errorf("failed to query payment methods: %w", err)
	}
	defer rows.Close()

	methods := []expense.PaymentMethod{}
	for rows.Next() {
		pm, err := scanMethod(rows)
		if err != nil {
			return nil, err
		}
		methods = append(methods, pm)
	}
	return methods, rows.Err()
}

func (s *queries) GetPaymentMethod(ctx context.Context, id expense.PaymentMethodID) (expense.PaymentMethod, bool, error) {
	row := s.q.QueryRowContext(ctx, "SELECT "+methodColumns+" FROM payment_methods WHERE id = ?", id)
	pm, err := scanMethod(row)
	if errors.Is(err, sql.ErrNoRows) {
		return expense.PaymentMethod{}, false, nil
	}
	if err != nil {
		return expense.PaymentMethod{}, false, err
	}
	return pm, true, nil
}

func (s *queries) SavePaymentMethod(ctx context.Context, pm expense.PaymentMethod) error {
	args, err := methodArgs(pm)
	if err != nil {
		return err
	}
	query := `
		INSERT INTO payment_methods (` + methodColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			transaction_type = excluded.transaction_type,
			account_type = excluded.account_type,
			credit_limit = excluded.credit_limit,
			outstanding_balance = excluded.outstanding_balance,
			billing_day = excluded.billing_day,
			balance = excluded.balance
	`
	if _, err := s.q.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to save payment method: %w", err)
	}
	return nil
}

func (s *queries) UpdatePaymentMethod(ctx context.Context, pm expense.PaymentMethod) error {
	args, err := methodArgs(pm)
	if err != nil {
		return err
	}
	// id moves from first to last for the WHERE clause.
	args = append(args[1:], args[0])
	res, err := s.q.ExecContext(ctx, `
		UPDATE payment_methods SET name = ?, transaction_type = ?, account_type = ?,
			credit_limit = ?, outstanding_balance = ?, billing_day = ?, balance = ?
		WHERE id = ?`, args...)
	return checkAffected(res, err, "payment method", string(pm.ID))
}

func (s *queries) DeletePaymentMethod(ctx context.Context, id expense.PaymentMethodID) error {
	res, err := s.q.ExecContext(ctx, "DELETE FROM payment_methods WHERE id = ?", id)
	return checkAffected(res, err, "payment method", string(id))
}

// methodArgs flattens the variant into column values in methodColumns order.
func methodArgs(pm expense.PaymentMethod) ([]any, error) {
	if err := pm.Validate(); err != nil {
		return nil, err
	}
	var (
		limit, outstanding, balance sql.NullString
		billingDay                  sql.NullInt64
	)
	switch pm.Account {
	case expense.AccountCredit:
		limit = nullString(pm.Credit.Limit.String())
		outstanding = nullString(pm.Credit.Outstanding.String())
		billingDay = sql.NullInt64{Int64: int64(pm.Credit.BillingDay), Valid: true}
	case expense.AccountSavings:
		balance = nullString(pm.Savings.Balance.String())
	}
	return []any{pm.ID, pm.Name, pm.TransactionType, pm.Account, limit, outstanding, billingDay, balance}, nil
}

func scanMethod(row scanner) (expense.PaymentMethod, error) {
	var (
		pm                          expense.PaymentMethod
		limit, outstanding, balance sql.NullString
		billingDay                  sql.NullInt64
	)
	err := row.Scan(&pm.ID, &pm.Name, &pm.TransactionType, &pm.Account, &limit, &outstanding, &billingDay, &balance)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return pm, err
		}
		return pm, fmt.Errorf("failed to scan payment method: %w", err)
	}

	switch pm.Account {
	case expense.AccountCredit:
		terms := expense.CreditTerms{BillingDay: int(billingDay.Int64)}
		if terms.Limit, err = parseDecimal(limit); err != nil {
			return pm, fmt.Errorf("payment method %s: credit_limit: %w", pm.ID, err)
		}
		if terms.Outstanding, err = parseDecimal(outstanding); err != nil {
			return pm, fmt.Errorf("payment method %s: outstanding_balance: %w", pm.ID, err)
		}
		pm.Credit = &terms
	case expense.AccountSavings:
		terms := expense.SavingsTerms{}
		if terms.Balance, err = parseDecimal(balance); err != nil {
			return pm, fmt.Errorf("payment method %s: balance: %w", pm.ID, err)
		}
		pm.Savings = &terms
	default:
		return pm, fmt.Errorf("payment method %s: unknown account type %q", pm.ID, pm.Account)
	}
	return pm, nil
}

// ---- categories / owners ----

func (s *queries) ListCategories(ctx context.Context) ([]expense.Category, error) {
	cats := []expense.Category{}
	err := s.listNamed(ctx, "categories", func(id, name string) {
		cats = append(cats, expense.Category{ID: expense.CategoryID(id), Name: name})
	})
	return cats, err
}

func (s *queries) GetCategory(ctx context.Context, id expense.CategoryID) (expense.Category, bool, error) {
	name, ok, err := s.getNamed(ctx, "categories", string(id))
	return expense.Category{ID: id, Name: name}, ok, err
}

func (s *queries) SaveCategory(ctx context.Context, c expense.Category) error {
	return s.saveNamed(ctx, "categories", string(c.ID), c.Name)
}

func (s *queries) UpdateCategory(ctx context.Context, c expense.Category) error {
	return s.updateNamed(ctx, "categories", string(c.ID), c.Name)
}

func (s *queries) DeleteCategory(ctx context.Context, id expense.CategoryID) error {
	return s.deleteNamed(ctx, "categories", string(id))
}

func (s *queries) ListOwners(ctx context.Context) ([]expense.Owner, error) {
	owners := []expense.Owner{}
	err := s.listNamed(ctx, "owners", func(id, name string) {
		owners = append(owners, expense.Owner{ID: expense.OwnerID(id), Name: name})
	})
	return owners, err
}

func (s *queries) GetOwner(ctx context.Context, id expense.OwnerID) (expense.Owner, bool, error) {
	name, ok, err := s.getNamed(ctx, "owners", string(id))
	return expense.Owner{ID: id, Name: name}, ok, err
}

func (s *queries) SaveOwner(ctx context.Context, o expense.Owner) error {
	return s.saveNamed(ctx, "owners", string(o.ID), o.Name)
}

func (s *queries) UpdateOwner(ctx context.Context, o expense.Owner) error {
	return s.updateNamed(ctx, "owners", string(o.ID), o.Name)
}

func (s *queries) DeleteOwner(ctx context.Context, id expense.OwnerID) error {
	return s.deleteNamed(ctx, "owners", string(id))
}

// table is always one of the two constants above, never user input.
func (s *queries) listNamed(ctx context.Context, table string, add func(id, name string)) error {
	rows, err := s.q.QueryContext(ctx, "SELECT id, name FROM "+table+" ORDER BY rowid")
	if err != nil {
		return fmt.Errorf("failed to query %s: %w", table, err)
	}
	defer rows.Close()

	for rows.Next() {
		var id, name string
		if err := rows.Scan(&id, &name); err != nil {
			return fmt.Errorf("failed to scan %s: %w", table, err)
		}
		add(id, name)
	}
	return rows.Err()
}

func (s *queries) getNamed(ctx context.Context, table, id string) (string, bool, error) {
	var name string
	err := s.q.QueryRowContext(ctx, "SELECT name FROM "+table+" WHERE id = ?", id).Scan(&name)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to load %s %s: %w", table, id, err)
	}
	return name, true, nil
}

func (s *queries) saveNamed(ctx context.Context, table, id, name string) error {
	_, err := s.q.ExecContext(ctx,
		"INSERT INTO "+table+" (id, name) VALUES (?, ?) ON CONFLICT(id) DO UPDATE SET name = excluded.name",
		id, name)
	if err != nil {
		return fmt.Errorf("failed to save %s %s: %w", table, id, err)
	}
	return nil
}

func (s *queries) updateNamed(ctx context.Context, table, id, name string) error {
	res, err := s.q.ExecContext(ctx, "UPDATE "+table+" SET name = ? WHERE id = ?", name, id)
	return checkAffected(res, err, table, id)
}

func (s *queries) deleteNamed(ctx context.Context, table, id string) error {
	res, err := s.q.ExecContext(ctx, "DELETE FROM "+table+" WHERE id = ?", id)
	return checkAffected(res, err, table, id)
}

// =============================================================================
// UTILITIES
// =============================================================================

// checkAffected maps "no row touched" to expense.ErrNotFound.
func checkAffected(res sql.Result, err error, kind, id string) error {
	if err != nil {
		return fmt.Errorf("failed to write %s %s: %w", kind, id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to write %s %s: %w", kind, id, err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s %s", expense.ErrNotFound, kind, id)
	}
	return nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func parseDecimal(s sql.NullString) (decimal.Decimal, error) {
	if !s.Valid {
		return decimal.Zero, nil
	}
	return decimal.NewFromString(s.String)
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("bad timestamp %q: %w", s, err)
	}
	return t, nil
}

var (
	_ expense.TxStore  = (*Store)(nil)
	_ expense.Resetter = (*Store)(nil)
)
