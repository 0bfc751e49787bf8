package ledger

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/ledgerline/ledgerline/internal/shared"
)

// RepositoryPort abstracts transactional repository behaviour.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
}

// AuditPort records ledger events for compliance.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Service owns the chart of accounts and is the only path by which account
// balances change.
type Service struct {
	repo  RepositoryPort
	audit AuditPort
	cache *TreeCache
	now   func() time.Time
}

// NewService constructs the ledger service.
func NewService(repo RepositoryPort, audit AuditPort) *Service {
	return &Service{repo: repo, audit: audit, now: time.Now}
}

// WithNow overrides the clock for testing.
func (s *Service) WithNow(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

// WithTreeCache attaches a cache for account tree reads.
func (s *Service) WithTreeCache(cache *TreeCache) {
	s.cache = cache
}

// CreateAccount registers a new chart of accounts node for the tenant.
func (s *Service) CreateAccount(ctx context.Context, in CreateAccountInput) (Account, error) {
	if err := in.Validate(); err != nil {
		return Account{}, err
	}
	var account Account
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		if in.ParentID != nil {
			parent, err := tx.GetAccountAnyTenant(ctx, *in.ParentID)
			if err != nil {
				return err
			}
			if parent.TenantID != in.TenantID {
				return ErrCrossTenantReference
			}
		}
		var err error
		account, err = tx.InsertAccount(ctx, in, false)
		return err
	})
	if err != nil {
		return Account{}, err
	}
	s.cache.Invalidate(ctx, in.TenantID)
	s.recordAudit(ctx, in.TenantID, 0, "account.create", "account", fmt.Sprintf("%d", account.ID), map[string]any{
		"code": account.Code,
		"type": string(account.Type),
	})
	return account, nil
}

// GetAccount resolves an account owned by the tenant.
func (s *Service) GetAccount(ctx context.Context, tenantID uuid.UUID, accountID int64) (Account, error) {
	var account Account
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		var err error
		account, err = tx.GetAccount(ctx, tenantID, accountID)
		return err
	})
	return account, err
}

// AccountByCode resolves an account by its tenant-scoped code.
func (s *Service) AccountByCode(ctx context.Context, tenantID uuid.UUID, code string) (Account, error) {
	if code == "" {
		return Account{}, fmt.Errorf("%w: account code required", ErrInvalidInput)
	}
	var account Account
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		var err error
		account, err = tx.GetAccountByCode(ctx, tenantID, code)
		return err
	})
	return account, err
}

// UpdateAccount patches the mutable account fields. System accounts are
// protected; balance, code and type are never patched here.
func (s *Service) UpdateAccount(ctx context.Context, tenantID uuid.UUID, accountID int64, patch UpdateAccountInput) (Account, error) {
	var account Account
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		current, err := tx.GetAccountForUpdate(ctx, tenantID, accountID)
		if err != nil {
			return err
		}
		if current.IsSystem {
			return ErrSystemAccount
		}
		if patch.Name != nil {
			if *patch.Name == "" {
				return fmt.Errorf("%w: account name required", ErrInvalidInput)
			}
			current.Name = *patch.Name
		}
		if patch.Description != nil {
			current.Description = *patch.Description
		}
		if patch.IsActive != nil {
			current.IsActive = *patch.IsActive
		}
		account, err = tx.UpdateAccount(ctx, current)
		return err
	})
	if err != nil {
		return Account{}, err
	}
	s.cache.Invalidate(ctx, tenantID)
	s.recordAudit(ctx, tenantID, 0, "account.update", "account", fmt.Sprintf("%d", account.ID), nil)
	return account, nil
}

// DeleteAccount removes a childless, transaction-free, non-system account.
// Guards are checked in order: system protection, children, entries.
func (s *Service) DeleteAccount(ctx context.Context, tenantID uuid.UUID, accountID int64) error {
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		current, err := tx.GetAccountForUpdate(ctx, tenantID, accountID)
		if err != nil {
			return err
		}
		if current.IsSystem {
			return ErrSystemAccount
		}
		children, err := tx.CountChildren(ctx, tenantID, accountID)
		if err != nil {
			return err
		}
		if children > 0 {
			return ErrHasChildren
		}
		entries, err := tx.CountEntries(ctx, tenantID, accountID)
		if err != nil {
			return err
		}
		if entries > 0 {
			return ErrHasTransactions
		}
		return tx.DeleteAccount(ctx, tenantID, accountID)
	})
	if err != nil {
		return err
	}
	s.cache.Invalidate(ctx, tenantID)
	s.recordAudit(ctx, tenantID, 0, "account.delete", "account", fmt.Sprintf("%d", accountID), nil)
	return nil
}

// Tree returns the tenant's chart of accounts as a forest of root nodes with
// children eagerly nested, ordered by code at every level.
func (s *Service) Tree(ctx context.Context, tenantID uuid.UUID) ([]AccountNode, error) {
	if forest, ok := s.cache.Get(ctx, tenantID); ok {
		return forest, nil
	}
	var accounts []Account
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		var err error
		accounts, err = tx.ListAccounts(ctx, tenantID)
		return err
	})
	if err != nil {
		return nil, err
	}
	forest := BuildForest(accounts)
	s.cache.Set(ctx, tenantID, forest)
	return forest, nil
}

func (s *Service) recordAudit(ctx context.Context, tenantID uuid.UUID, actorID int64, action, entity, entityID string, meta map[string]any) {
	if s.audit == nil {
		return
	}
	if actorID == 0 {
		actorID = shared.ActorIDFromContext(ctx)
	}
	_ = s.audit.Record(ctx, shared.AuditLog{
		TenantID: tenantID,
		ActorID:  actorID,
		Action:   action,
		Entity:   entity,
		EntityID: entityID,
		Meta:     meta,
		At:       s.now(),
	})
}
