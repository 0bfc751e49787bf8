package ledger

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ledgerline/ledgerline/internal/shared"
)

// mockRepository is an in-memory RepositoryPort with transactional semantics:
// each WithTx runs against a deep copy of the state and the copy is swapped in
// only on success, so a mid-transaction failure rolls everything back.
// Commits are serialized by the mutex.
type mockRepository struct {
	mu    sync.Mutex
	state mockState

	// conflictsLeft injects ErrPostingConflict for the next N commits.
	conflictsLeft int
	// failInsertEntry makes InsertEntry fail inside the transaction.
	failInsertEntry error
}

type mockState struct {
	accounts      map[int64]Account
	entries       map[int64]JournalEntry
	nextAccountID int64
	nextEntryID   int64
}

func newMockRepository() *mockRepository {
	return &mockRepository{
		state: mockState{
			accounts:      make(map[int64]Account),
			entries:       make(map[int64]JournalEntry),
			nextAccountID: 1,
			nextEntryID:   1,
		},
	}
}

func (m *mockRepository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.conflictsLeft > 0 {
		m.conflictsLeft--
		return ErrPostingConflict
	}
	working := m.state.clone()
	tx := &mockTx{state: &working, failInsertEntry: m.failInsertEntry}
	if err := fn(ctx, tx); err != nil {
		return err
	}
	m.state = working
	return nil
}

func (s mockState) clone() mockState {
	out := mockState{
		accounts:      make(map[int64]Account, len(s.accounts)),
		entries:       make(map[int64]JournalEntry, len(s.entries)),
		nextAccountID: s.nextAccountID,
		nextEntryID:   s.nextEntryID,
	}
	for id, account := range s.accounts {
		out.accounts[id] = account
	}
	for id, entry := range s.entries {
		out.entries[id] = entry
	}
	return out
}

// account returns the committed account, bypassing transactions. Test helper.
func (m *mockRepository) account(id int64) Account {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state.accounts[id]
}

func (m *mockRepository) entryCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.state.entries)
}

type mockTx struct {
	state           *mockState
	failInsertEntry error
}

func (t *mockTx) GetAccount(ctx context.Context, tenantID uuid.UUID, accountID int64) (Account, error) {
	account, ok := t.state.accounts[accountID]
	if !ok || account.TenantID != tenantID {
		return Account{}, ErrAccountNotFound
	}
	return account, nil
}

func (t *mockTx) GetAccountForUpdate(ctx context.Context, tenantID uuid.UUID, accountID int64) (Account, error) {
	return t.GetAccount(ctx, tenantID, accountID)
}

func (t *mockTx) GetAccountByCode(ctx context.Context, tenantID uuid.UUID, code string) (Account, error) {
	for _, account := range t.state.accounts {
		if account.TenantID == tenantID && account.Code == code {
			return account, nil
		}
	}
	return Account{}, ErrAccountNotFound
}

func (t *mockTx) GetAccountAnyTenant(ctx context.Context, accountID int64) (Account, error) {
	account, ok := t.state.accounts[accountID]
	if !ok {
		return Account{}, ErrAccountNotFound
	}
	return account, nil
}

func (t *mockTx) InsertAccount(ctx context.Context, in CreateAccountInput, isSystem bool) (Account, error) {
	for _, existing := range t.state.accounts {
		if existing.TenantID == in.TenantID && existing.Code == in.Code {
			return Account{}, ErrDuplicateCode
		}
	}
	now := time.Now()
	account := Account{
		ID:          t.state.nextAccountID,
		TenantID:    in.TenantID,
		Code:        in.Code,
		Name:        in.Name,
		Type:        in.Type,
		SubType:     in.SubType,
		Description: in.Description,
		ParentID:    in.ParentID,
		Balance:     decimal.Zero,
		IsSystem:    isSystem,
		IsActive:    true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	t.state.nextAccountID++
	t.state.accounts[account.ID] = account
	return account, nil
}

func (t *mockTx) UpdateAccount(ctx context.Context, account Account) (Account, error) {
	current, ok := t.state.accounts[account.ID]
	if !ok || current.TenantID != account.TenantID {
		return Account{}, ErrAccountNotFound
	}
	current.Name = account.Name
	current.Description = account.Description
	current.IsActive = account.IsActive
	current.UpdatedAt = time.Now()
	t.state.accounts[current.ID] = current
	return current, nil
}

func (t *mockTx) DeleteAccount(ctx context.Context, tenantID uuid.UUID, accountID int64) error {
	account, ok := t.state.accounts[accountID]
	if !ok || account.TenantID != tenantID {
		return ErrAccountNotFound
	}
	delete(t.state.accounts, accountID)
	return nil
}

func (t *mockTx) CountChildren(ctx context.Context, tenantID uuid.UUID, accountID int64) (int64, error) {
	var count int64
	for _, account := range t.state.accounts {
		if account.TenantID == tenantID && account.ParentID != nil && *account.ParentID == accountID {
			count++
		}
	}
	return count, nil
}

func (t *mockTx) CountEntries(ctx context.Context, tenantID uuid.UUID, accountID int64) (int64, error) {
	var count int64
	for _, entry := range t.state.entries {
		if entry.TenantID == tenantID && entry.AccountID == accountID {
			count++
		}
	}
	return count, nil
}

func (t *mockTx) ListAccounts(ctx context.Context, tenantID uuid.UUID) ([]Account, error) {
	var accounts []Account
	for _, account := range t.state.accounts {
		if account.TenantID == tenantID {
			accounts = append(accounts, account)
		}
	}
	sort.Slice(accounts, func(i, j int) bool {
		return accounts[i].Code < accounts[j].Code
	})
	return accounts, nil
}

func (t *mockTx) AdjustBalance(ctx context.Context, tenantID uuid.UUID, accountID int64, delta decimal.Decimal) error {
	account, ok := t.state.accounts[accountID]
	if !ok || account.TenantID != tenantID {
		return ErrAccountNotFound
	}
	account.Balance = account.Balance.Add(delta)
	account.UpdatedAt = time.Now()
	t.state.accounts[accountID] = account
	return nil
}

func (t *mockTx) InsertEntry(ctx context.Context, entry JournalEntry) (JournalEntry, error) {
	if t.failInsertEntry != nil {
		return JournalEntry{}, t.failInsertEntry
	}
	entry.ID = t.state.nextEntryID
	entry.CreatedAt = time.Now()
	t.state.nextEntryID++
	t.state.entries[entry.ID] = entry
	return entry, nil
}

func (t *mockTx) DeleteEntry(ctx context.Context, tenantID uuid.UUID, entryID int64) error {
	entry, ok := t.state.entries[entryID]
	if !ok || entry.TenantID != tenantID {
		return errors.New("entry not found")
	}
	delete(t.state.entries, entryID)
	return nil
}

func (t *mockTx) ListEntriesByRef(ctx context.Context, tenantID uuid.UUID, refType string, refID uuid.UUID) ([]JournalEntry, error) {
	var entries []JournalEntry
	for _, entry := range t.state.entries {
		if entry.TenantID == tenantID && entry.RefType == refType && entry.RefID == refID {
			entries = append(entries, entry)
		}
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].ID < entries[j].ID })
	return entries, nil
}

func (t *mockTx) ListEntriesInRange(ctx context.Context, tenantID uuid.UUID, accountID int64, from, to time.Time) ([]JournalEntry, error) {
	var entries []JournalEntry
	for _, entry := range t.state.entries {
		if entry.TenantID != tenantID || entry.AccountID != accountID {
			continue
		}
		if entry.Date.Before(from) || entry.Date.After(to) {
			continue
		}
		entries = append(entries, entry)
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Date.Equal(entries[j].Date) {
			return entries[i].ID < entries[j].ID
		}
		return entries[i].Date.Before(entries[j].Date)
	})
	return entries, nil
}

func (t *mockTx) SumEntriesSince(ctx context.Context, tenantID uuid.UUID, accountID int64, from time.Time) (decimal.Decimal, error) {
	sum := decimal.Zero
	for _, entry := range t.state.entries {
		if entry.TenantID != tenantID || entry.AccountID != accountID {
			continue
		}
		if entry.Date.Before(from) {
			continue
		}
		sum = sum.Add(entry.Net())
	}
	return sum, nil
}

func mustDate(s string) time.Time {
	d, err := time.Parse(dateLayout, s)
	if err != nil {
		panic(err)
	}
	return d
}

// mockAudit captures audit records for assertions.
type mockAudit struct {
	mu      sync.Mutex
	records []string
}

func (a *mockAudit) Record(ctx context.Context, log shared.AuditLog) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.records = append(a.records, log.Action)
	return nil
}

func (a *mockAudit) actions() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]string(nil), a.records...)
}
