package ledger

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// postingRetryLimit bounds retries on storage contention. The whole
// transaction is re-attempted, so the increment is never applied twice.
const postingRetryLimit = 3

// Post applies one monetary effect to an account: the cached balance
// adjustment and the journal entry append commit as one atomic unit. A debit
// increases the cached balance, a credit decreases it.
func (s *Service) Post(ctx context.Context, in PostingInput) (JournalEntry, error) {
	if err := in.Validate(); err != nil {
		return JournalEntry{}, err
	}
	var entry JournalEntry
	err := s.withPostingRetry(ctx, func(ctx context.Context, tx TxRepository) error {
		account, err := tx.GetAccountForUpdate(ctx, in.TenantID, in.AccountID)
		if err != nil {
			return err
		}
		if err := tx.AdjustBalance(ctx, in.TenantID, account.ID, in.Net()); err != nil {
			return err
		}
		entry, err = tx.InsertEntry(ctx, JournalEntry{
			TenantID:    in.TenantID,
			AccountID:   account.ID,
			Date:        in.Date,
			Debit:       in.Debit,
			Credit:      in.Credit,
			Description: in.Description,
			RefType:     in.RefType,
			RefID:       in.RefID,
			CreatedBy:   in.CreatedBy,
		})
		return err
	})
	if err != nil {
		return JournalEntry{}, err
	}
	s.recordAudit(ctx, in.TenantID, actorOrZero(in.CreatedBy), "posting.post", "journal_entry", fmt.Sprintf("%d", entry.ID), map[string]any{
		"ref_type": in.RefType,
		"ref_id":   in.RefID.String(),
		"net":      in.Net().String(),
	})
	return entry, nil
}

// ReversePosting undoes every journal entry recorded for the originating
// business record: each entry's inverse balance delta is applied and the
// entry is deleted, all within one transaction. Returns the number of entries
// reversed.
func (s *Service) ReversePosting(ctx context.Context, tenantID uuid.UUID, refType string, refID uuid.UUID) (int, error) {
	if refType == "" || refID == uuid.Nil {
		return 0, fmt.Errorf("%w: ref type and ref id required", ErrInvalidInput)
	}
	var reversed int
	err := s.withPostingRetry(ctx, func(ctx context.Context, tx TxRepository) error {
		reversed = 0
		entries, err := tx.ListEntriesByRef(ctx, tenantID, refType, refID)
		if err != nil {
			return err
		}
		for _, entry := range entries {
			if _, err := tx.GetAccountForUpdate(ctx, tenantID, entry.AccountID); err != nil {
				return err
			}
			if err := tx.AdjustBalance(ctx, tenantID, entry.AccountID, entry.Net().Neg()); err != nil {
				return err
			}
			if err := tx.DeleteEntry(ctx, tenantID, entry.ID); err != nil {
				return err
			}
			reversed++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	if reversed > 0 {
		s.recordAudit(ctx, tenantID, 0, "posting.reverse", "journal_entry", refID.String(), map[string]any{
			"ref_type": refType,
			"count":    reversed,
		})
	}
	return reversed, nil
}

// Repost replaces the effect of an originating record whose amount changed:
// the prior entries are reversed and the new effect posted inside a single
// transaction, so the account is never observed at a half-adjusted balance.
func (s *Service) Repost(ctx context.Context, in PostingInput) (JournalEntry, error) {
	if err := in.Validate(); err != nil {
		return JournalEntry{}, err
	}
	var entry JournalEntry
	err := s.withPostingRetry(ctx, func(ctx context.Context, tx TxRepository) error {
		entries, err := tx.ListEntriesByRef(ctx, in.TenantID, in.RefType, in.RefID)
		if err != nil {
			return err
		}
		for _, prior := range entries {
			if _, err := tx.GetAccountForUpdate(ctx, in.TenantID, prior.AccountID); err != nil {
				return err
			}
			if err := tx.AdjustBalance(ctx, in.TenantID, prior.AccountID, prior.Net().Neg()); err != nil {
				return err
			}
			if err := tx.DeleteEntry(ctx, in.TenantID, prior.ID); err != nil {
				return err
			}
		}
		account, err := tx.GetAccountForUpdate(ctx, in.TenantID, in.AccountID)
		if err != nil {
			return err
		}
		if err := tx.AdjustBalance(ctx, in.TenantID, account.ID, in.Net()); err != nil {
			return err
		}
		entry, err = tx.InsertEntry(ctx, JournalEntry{
			TenantID:    in.TenantID,
			AccountID:   account.ID,
			Date:        in.Date,
			Debit:       in.Debit,
			Credit:      in.Credit,
			Description: in.Description,
			RefType:     in.RefType,
			RefID:       in.RefID,
			CreatedBy:   in.CreatedBy,
		})
		return err
	})
	if err != nil {
		return JournalEntry{}, err
	}
	s.recordAudit(ctx, in.TenantID, actorOrZero(in.CreatedBy), "posting.repost", "journal_entry", fmt.Sprintf("%d", entry.ID), map[string]any{
		"ref_type": in.RefType,
		"ref_id":   in.RefID.String(),
		"net":      in.Net().String(),
	})
	return entry, nil
}

// withPostingRetry re-runs the transaction on storage contention. Validation
// failures are deterministic and never retried.
func (s *Service) withPostingRetry(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	var err error
	for attempt := 0; attempt < postingRetryLimit; attempt++ {
		err = s.repo.WithTx(ctx, fn)
		if !errors.Is(err, ErrPostingConflict) {
			return err
		}
	}
	return err
}

func actorOrZero(createdBy *int64) int64 {
	if createdBy == nil {
		return 0
	}
	return *createdBy
}
