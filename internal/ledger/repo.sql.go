package ledger

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/ledgerline/ledgerline/internal/platform/db"
)

// Repository persists ledger entities.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// TxRepository exposes transactional operations.
type TxRepository interface {
	GetAccount(ctx context.Context, tenantID uuid.UUID, accountID int64) (Account, error)
	GetAccountForUpdate(ctx context.Context, tenantID uuid.UUID, accountID int64) (Account, error)
	GetAccountByCode(ctx context.Context, tenantID uuid.UUID, code string) (Account, error)
	GetAccountAnyTenant(ctx context.Context, accountID int64) (Account, error)
	InsertAccount(ctx context.Context, in CreateAccountInput, isSystem bool) (Account, error)
	UpdateAccount(ctx context.Context, account Account) (Account, error)
	DeleteAccount(ctx context.Context, tenantID uuid.UUID, accountID int64) error
	CountChildren(ctx context.Context, tenantID uuid.UUID, accountID int64) (int64, error)
	CountEntries(ctx context.Context, tenantID uuid.UUID, accountID int64) (int64, error)
	ListAccounts(ctx context.Context, tenantID uuid.UUID) ([]Account, error)
	AdjustBalance(ctx context.Context, tenantID uuid.UUID, accountID int64, delta decimal.Decimal) error
	InsertEntry(ctx context.Context, entry JournalEntry) (JournalEntry, error)
	DeleteEntry(ctx context.Context, tenantID uuid.UUID, entryID int64) error
	ListEntriesByRef(ctx context.Context, tenantID uuid.UUID, refType string, refID uuid.UUID) ([]JournalEntry, error)
	ListEntriesInRange(ctx context.Context, tenantID uuid.UUID, accountID int64, from, to time.Time) ([]JournalEntry, error)
	SumEntriesSince(ctx context.Context, tenantID uuid.UUID, accountID int64, from time.Time) (decimal.Decimal, error)
}

type txRepository struct {
	tx pgx.Tx
}

// WithTx executes fn within a repeatable-read transaction. Serialization
// failures and deadlocks surface as ErrPostingConflict so callers can retry
// the whole unit.
func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	if r == nil {
		return errors.New("ledger repository not initialised")
	}
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &txRepository{tx: tx})
	})
	return mapConflict(err)
}

func mapConflict(err error) error {
	if err == nil {
		return nil
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		// 40001 serialization_failure, 40P01 deadlock_detected
		if pgErr.Code == "40001" || pgErr.Code == "40P01" {
			return ErrPostingConflict
		}
	}
	return err
}

const accountColumns = `id, tenant_id, code, name, type, sub_type, description, parent_id, balance, is_system, is_active, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAccount(row rowScanner) (Account, error) {
	var a Account
	var balance string
	err := row.Scan(&a.ID, &a.TenantID, &a.Code, &a.Name, &a.Type, &a.SubType, &a.Description, &a.ParentID, &balance, &a.IsSystem, &a.IsActive, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return Account{}, err
	}
	a.Balance, err = decimal.NewFromString(balance)
	if err != nil {
		return Account{}, err
	}
	return a, nil
}

func (r *txRepository) GetAccount(ctx context.Context, tenantID uuid.UUID, accountID int64) (Account, error) {
	row := r.tx.QueryRow(ctx, `SELECT `+accountColumns+` FROM accounts WHERE tenant_id=$1 AND id=$2`, tenantID, accountID)
	account, err := scanAccount(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Account{}, ErrAccountNotFound
	}
	return account, err
}

func (r *txRepository) GetAccountForUpdate(ctx context.Context, tenantID uuid.UUID, accountID int64) (Account, error) {
	row := r.tx.QueryRow(ctx, `SELECT `+accountColumns+` FROM accounts WHERE tenant_id=$1 AND id=$2 FOR UPDATE`, tenantID, accountID)
	account, err := scanAccount(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Account{}, ErrAccountNotFound
	}
	return account, err
}

func (r *txRepository) GetAccountByCode(ctx context.Context, tenantID uuid.UUID, code string) (Account, error) {
	row := r.tx.QueryRow(ctx, `SELECT `+accountColumns+` FROM accounts WHERE tenant_id=$1 AND code=$2`, tenantID, code)
	account, err := scanAccount(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Account{}, ErrAccountNotFound
	}
	return account, err
}

// GetAccountAnyTenant resolves an account regardless of owner. Used to
// distinguish a missing parent from a cross-tenant parent reference.
func (r *txRepository) GetAccountAnyTenant(ctx context.Context, accountID int64) (Account, error) {
	row := r.tx.QueryRow(ctx, `SELECT `+accountColumns+` FROM accounts WHERE id=$1`, accountID)
	account, err := scanAccount(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Account{}, ErrAccountNotFound
	}
	return account, err
}

func (r *txRepository) InsertAccount(ctx context.Context, in CreateAccountInput, isSystem bool) (Account, error) {
	row := r.tx.QueryRow(ctx, `INSERT INTO accounts (tenant_id, code, name, type, sub_type, description, parent_id, is_system)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8) RETURNING `+accountColumns,
		in.TenantID, in.Code, in.Name, in.Type, in.SubType, in.Description, in.ParentID, isSystem)
	account, err := scanAccount(row)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.ConstraintName == "uq_accounts_tenant_code" {
			return Account{}, ErrDuplicateCode
		}
		return Account{}, err
	}
	return account, nil
}

func (r *txRepository) UpdateAccount(ctx context.Context, account Account) (Account, error) {
	row := r.tx.QueryRow(ctx, `UPDATE accounts SET name=$3, description=$4, is_active=$5, updated_at=NOW()
WHERE tenant_id=$1 AND id=$2 RETURNING `+accountColumns,
		account.TenantID, account.ID, account.Name, account.Description, account.IsActive)
	updated, err := scanAccount(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Account{}, ErrAccountNotFound
	}
	return updated, err
}

func (r *txRepository) DeleteAccount(ctx context.Context, tenantID uuid.UUID, accountID int64) error {
	cmd, err := r.tx.Exec(ctx, `DELETE FROM accounts WHERE tenant_id=$1 AND id=$2`, tenantID, accountID)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrAccountNotFound
	}
	return nil
}

func (r *txRepository) CountChildren(ctx context.Context, tenantID uuid.UUID, accountID int64) (int64, error) {
	var count int64
	err := r.tx.QueryRow(ctx, `SELECT COUNT(*) FROM accounts WHERE tenant_id=$1 AND parent_id=$2`, tenantID, accountID).Scan(&count)
	return count, err
}

func (r *txRepository) CountEntries(ctx context.Context, tenantID uuid.UUID, accountID int64) (int64, error) {
	var count int64
	err := r.tx.QueryRow(ctx, `SELECT COUNT(*) FROM journal_entries WHERE tenant_id=$1 AND account_id=$2`, tenantID, accountID).Scan(&count)
	return count, err
}

func (r *txRepository) ListAccounts(ctx context.Context, tenantID uuid.UUID) ([]Account, error) {
	rows, err := r.tx.Query(ctx, `SELECT `+accountColumns+` FROM accounts WHERE tenant_id=$1 ORDER BY code`, tenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var accounts []Account
	for rows.Next() {
		account, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		accounts = append(accounts, account)
	}
	return accounts, rows.Err()
}

// AdjustBalance increments the cached balance as a single atomic
// read-modify-write on the storage side. Never read-then-write in application
// code; concurrent postings against the same account serialize on the row.
func (r *txRepository) AdjustBalance(ctx context.Context, tenantID uuid.UUID, accountID int64, delta decimal.Decimal) error {
	cmd, err := r.tx.Exec(ctx, `UPDATE accounts SET balance = balance + $3::numeric, updated_at=NOW() WHERE tenant_id=$1 AND id=$2`,
		tenantID, accountID, delta.String())
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrAccountNotFound
	}
	return nil
}

const entryColumns = `id, tenant_id, account_id, date, debit, credit, description, ref_type, ref_id, created_by, created_at`

func scanEntry(row rowScanner) (JournalEntry, error) {
	var e JournalEntry
	var debit, credit string
	err := row.Scan(&e.ID, &e.TenantID, &e.AccountID, &e.Date, &debit, &credit, &e.Description, &e.RefType, &e.RefID, &e.CreatedBy, &e.CreatedAt)
	if err != nil {
		return JournalEntry{}, err
	}
	if e.Debit, err = decimal.NewFromString(debit); err != nil {
		return JournalEntry{}, err
	}
	if e.Credit, err = decimal.NewFromString(credit); err != nil {
		return JournalEntry{}, err
	}
	return e, nil
}

func (r *txRepository) InsertEntry(ctx context.Context, entry JournalEntry) (JournalEntry, error) {
	row := r.tx.QueryRow(ctx, `INSERT INTO journal_entries (tenant_id, account_id, date, debit, credit, description, ref_type, ref_id, created_by)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9) RETURNING `+entryColumns,
		entry.TenantID, entry.AccountID, entry.Date, entry.Debit.String(), entry.Credit.String(), entry.Description, entry.RefType, entry.RefID, entry.CreatedBy)
	return scanEntry(row)
}

func (r *txRepository) DeleteEntry(ctx context.Context, tenantID uuid.UUID, entryID int64) error {
	cmd, err := r.tx.Exec(ctx, `DELETE FROM journal_entries WHERE tenant_id=$1 AND id=$2`, tenantID, entryID)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return errors.New("ledger: journal entry not found")
	}
	return nil
}

func (r *txRepository) ListEntriesByRef(ctx context.Context, tenantID uuid.UUID, refType string, refID uuid.UUID) ([]JournalEntry, error) {
	rows, err := r.tx.Query(ctx, `SELECT `+entryColumns+` FROM journal_entries WHERE tenant_id=$1 AND ref_type=$2 AND ref_id=$3 ORDER BY id`,
		tenantID, refType, refID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectEntries(rows)
}

func (r *txRepository) ListEntriesInRange(ctx context.Context, tenantID uuid.UUID, accountID int64, from, to time.Time) ([]JournalEntry, error) {
	rows, err := r.tx.Query(ctx, `SELECT `+entryColumns+` FROM journal_entries
WHERE tenant_id=$1 AND account_id=$2 AND date >= $3 AND date <= $4 ORDER BY date, id`,
		tenantID, accountID, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectEntries(rows)
}

func (r *txRepository) SumEntriesSince(ctx context.Context, tenantID uuid.UUID, accountID int64, from time.Time) (decimal.Decimal, error) {
	var net string
	err := r.tx.QueryRow(ctx, `SELECT COALESCE(SUM(debit - credit), 0)::text FROM journal_entries
WHERE tenant_id=$1 AND account_id=$2 AND date >= $3`, tenantID, accountID, from).Scan(&net)
	if err != nil {
		return decimal.Zero, err
	}
	return decimal.NewFromString(net)
}

func collectEntries(rows pgx.Rows) ([]JournalEntry, error) {
	var entries []JournalEntry
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}
