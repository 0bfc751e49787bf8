package ledger

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// StatementLine pairs a journal entry with the cumulative balance after it.
type StatementLine struct {
	Entry          JournalEntry
	RunningBalance decimal.Decimal
}

// Statement is a point-in-time, range-bounded reconstruction of an account's
// activity.
type Statement struct {
	Account        Account
	From           time.Time
	To             time.Time
	OpeningBalance decimal.Decimal
	ClosingBalance decimal.Decimal
	TotalDebit     decimal.Decimal
	TotalCredit    decimal.Decimal
	Lines          []StatementLine
}

// Statement reconstructs an account statement for [from, to].
//
// The opening balance is derived backward from the current cached balance by
// subtracting the net effect of every entry dated on or after `from`. That
// reconstruction is only exact when no entries are dated after `to`; callers
// producing historical statements should keep `to` at or beyond the latest
// posting date.
func (s *Service) Statement(ctx context.Context, tenantID uuid.UUID, accountID int64, from, to time.Time) (Statement, error) {
	if to.Before(from) {
		return Statement{}, fmt.Errorf("%w: statement range end precedes start", ErrInvalidInput)
	}
	var (
		account  Account
		entries  []JournalEntry
		netSince decimal.Decimal
	)
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		var err error
		if account, err = tx.GetAccount(ctx, tenantID, accountID); err != nil {
			return err
		}
		if entries, err = tx.ListEntriesInRange(ctx, tenantID, accountID, from, to); err != nil {
			return err
		}
		netSince, err = tx.SumEntriesSince(ctx, tenantID, accountID, from)
		return err
	})
	if err != nil {
		return Statement{}, err
	}
	opening := account.Balance.Sub(netSince)
	return BuildStatement(account, opening, from, to, entries), nil
}

// BuildStatement forward-accumulates running balances over entries already
// sorted ascending by date.
func BuildStatement(account Account, opening decimal.Decimal, from, to time.Time, entries []JournalEntry) Statement {
	stmt := Statement{
		Account:        account,
		From:           from,
		To:             to,
		OpeningBalance: opening,
		ClosingBalance: opening,
		TotalDebit:     decimal.Zero,
		TotalCredit:    decimal.Zero,
	}
	running := opening
	for _, entry := range entries {
		running = running.Add(entry.Net())
		stmt.Lines = append(stmt.Lines, StatementLine{Entry: entry, RunningBalance: running})
		stmt.TotalDebit = stmt.TotalDebit.Add(entry.Debit)
		stmt.TotalCredit = stmt.TotalCredit.Add(entry.Credit)
	}
	stmt.ClosingBalance = running
	return stmt
}
