package ledger

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// AccountType enumerates CoA categories.
type AccountType string

const (
	AccountTypeAsset     AccountType = "ASSET"
	AccountTypeLiability AccountType = "LIABILITY"
	AccountTypeEquity    AccountType = "EQUITY"
	AccountTypeIncome    AccountType = "INCOME"
	AccountTypeExpense   AccountType = "EXPENSE"
)

// Valid reports whether the account type is one of the five CoA classes.
func (t AccountType) Valid() bool {
	switch t {
	case AccountTypeAsset, AccountTypeLiability, AccountTypeEquity, AccountTypeIncome, AccountTypeExpense:
		return true
	}
	return false
}

// Account models a chart of accounts node. Balance is the cached aggregate of
// every journal entry posted against the account; it is mutated only through
// the posting engine, never patched directly.
type Account struct {
	ID          int64
	TenantID    uuid.UUID
	Code        string
	Name        string
	Type        AccountType
	SubType     string
	Description string
	ParentID    *int64
	Balance     decimal.Decimal
	IsSystem    bool
	IsActive    bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// JournalEntry is an immutable record of one monetary effect against one
// account. Entries are appended by the posting engine and removed only when
// the originating business record is reversed; they are never updated.
type JournalEntry struct {
	ID          int64
	TenantID    uuid.UUID
	AccountID   int64
	Date        time.Time
	Debit       decimal.Decimal
	Credit      decimal.Decimal
	Description string
	RefType     string
	RefID       uuid.UUID
	CreatedBy   *int64
	CreatedAt   time.Time
}

// Net returns the signed balance effect of the entry (debit minus credit).
func (e JournalEntry) Net() decimal.Decimal {
	return e.Debit.Sub(e.Credit)
}

var (
	// ErrAccountNotFound indicates the account does not exist for the tenant.
	ErrAccountNotFound = errors.New("ledger: account not found")
	// ErrDuplicateCode indicates a code collision within the tenant.
	ErrDuplicateCode = errors.New("ledger: account code already exists")
	// ErrSystemAccount indicates a mutation attempt on a protected account.
	ErrSystemAccount = errors.New("ledger: system account is protected")
	// ErrHasChildren blocks deletion of accounts with child accounts.
	ErrHasChildren = errors.New("ledger: account has child accounts")
	// ErrHasTransactions blocks deletion of accounts with journal entries.
	ErrHasTransactions = errors.New("ledger: account has journal entries")
	// ErrCrossTenantReference indicates a foreign id owned by another tenant.
	ErrCrossTenantReference = errors.New("ledger: reference belongs to another tenant")
	// ErrPostingConflict indicates the atomic balance+entry transaction could
	// not commit due to storage contention. Retryable.
	ErrPostingConflict = errors.New("ledger: posting conflict")
	// ErrInvalidInput wraps deterministic validation failures. Never retried.
	ErrInvalidInput = errors.New("ledger: invalid input")
)

// CreateAccountInput groups fields required to create an account.
type CreateAccountInput struct {
	TenantID    uuid.UUID
	Code        string
	Name        string
	Type        AccountType
	SubType     string
	Description string
	ParentID    *int64
}

// Validate ensures account input meets minimum criteria.
func (in CreateAccountInput) Validate() error {
	if in.TenantID == uuid.Nil {
		return fmt.Errorf("%w: tenant required", ErrInvalidInput)
	}
	if in.Code == "" {
		return fmt.Errorf("%w: account code required", ErrInvalidInput)
	}
	if in.Name == "" {
		return fmt.Errorf("%w: account name required", ErrInvalidInput)
	}
	if !in.Type.Valid() {
		return fmt.Errorf("%w: invalid account type %q", ErrInvalidInput, in.Type)
	}
	return nil
}

// UpdateAccountInput carries the mutable account fields. Balance, code and
// type are never patched this way; balance changes flow through postings only.
type UpdateAccountInput struct {
	Name        *string
	Description *string
	IsActive    *bool
}

// PostingInput groups fields required to post one monetary effect. By
// convention exactly one of Debit/Credit is non-zero.
type PostingInput struct {
	TenantID    uuid.UUID
	AccountID   int64
	Debit       decimal.Decimal
	Credit      decimal.Decimal
	Date        time.Time
	Description string
	RefType     string
	RefID       uuid.UUID
	CreatedBy   *int64
}

// Validate ensures posting input meets minimum criteria.
func (in PostingInput) Validate() error {
	if in.TenantID == uuid.Nil {
		return fmt.Errorf("%w: tenant required", ErrInvalidInput)
	}
	if in.AccountID == 0 {
		return fmt.Errorf("%w: account required", ErrInvalidInput)
	}
	if in.Debit.IsNegative() || in.Credit.IsNegative() {
		return fmt.Errorf("%w: amounts must not be negative", ErrInvalidInput)
	}
	if in.Debit.IsPositive() && in.Credit.IsPositive() {
		return fmt.Errorf("%w: posting cannot be both debit and credit", ErrInvalidInput)
	}
	if in.Debit.IsZero() && in.Credit.IsZero() {
		return fmt.Errorf("%w: posting amount required", ErrInvalidInput)
	}
	if in.Date.IsZero() {
		return fmt.Errorf("%w: posting date required", ErrInvalidInput)
	}
	if in.RefType == "" {
		return fmt.Errorf("%w: ref type required", ErrInvalidInput)
	}
	if in.RefID == uuid.Nil {
		return fmt.Errorf("%w: ref id required", ErrInvalidInput)
	}
	return nil
}

// Net returns the signed balance effect of the posting.
func (in PostingInput) Net() decimal.Decimal {
	return in.Debit.Sub(in.Credit)
}
