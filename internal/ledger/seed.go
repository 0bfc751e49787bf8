package ledger

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// ChartTemplateEntry is one row of the compiled-in default chart of accounts.
type ChartTemplateEntry struct {
	Code       string
	Name       string
	Type       AccountType
	SubType    string
	ParentCode string
}

// DefaultChartTemplate is the starter chart materialized for every new
// tenant: five top-level classes, each with a small set of standard children.
// Read-only configuration; no runtime mutation path exists.
var DefaultChartTemplate = []ChartTemplateEntry{
	{Code: "1000", Name: "Assets", Type: AccountTypeAsset},
	{Code: "2000", Name: "Liabilities", Type: AccountTypeLiability},
	{Code: "3000", Name: "Equity", Type: AccountTypeEquity},
	{Code: "4000", Name: "Income", Type: AccountTypeIncome},
	{Code: "5000", Name: "Expenses", Type: AccountTypeExpense},

	{Code: "1100", Name: "Cash", Type: AccountTypeAsset, SubType: "CASH", ParentCode: "1000"},
	{Code: "1200", Name: "Bank", Type: AccountTypeAsset, SubType: "BANK", ParentCode: "1000"},
	{Code: "1300", Name: "Accounts Receivable", Type: AccountTypeAsset, SubType: "RECEIVABLE", ParentCode: "1000"},
	{Code: "1400", Name: "Inventory", Type: AccountTypeAsset, SubType: "INVENTORY", ParentCode: "1000"},
	{Code: "2100", Name: "Accounts Payable", Type: AccountTypeLiability, SubType: "PAYABLE", ParentCode: "2000"},
	{Code: "2200", Name: "Tax Payable", Type: AccountTypeLiability, SubType: "TAX", ParentCode: "2000"},
	{Code: "3100", Name: "Owner Capital", Type: AccountTypeEquity, SubType: "CAPITAL", ParentCode: "3000"},
	{Code: "3200", Name: "Retained Earnings", Type: AccountTypeEquity, SubType: "RETAINED_EARNINGS", ParentCode: "3000"},
	{Code: "4100", Name: "Sales Revenue", Type: AccountTypeIncome, SubType: "SALES", ParentCode: "4000"},
	{Code: "5100", Name: "Cost of Goods Sold", Type: AccountTypeExpense, SubType: "COGS", ParentCode: "5000"},
	{Code: "5200", Name: "Operating Expenses", Type: AccountTypeExpense, SubType: "OPERATING", ParentCode: "5000"},
	{Code: "5300", Name: "Salaries and Wages", Type: AccountTypeExpense, SubType: "SALARY", ParentCode: "5000"},
}

// SeedDefaultChart idempotently materializes the default chart for a tenant.
// Accounts are matched by code, so repeated runs create no duplicates. Seeded
// accounts are system-protected and start at zero balance; no journal entries
// are written. Returns the number of accounts created.
func (s *Service) SeedDefaultChart(ctx context.Context, tenantID uuid.UUID) (int, error) {
	if tenantID == uuid.Nil {
		return 0, fmt.Errorf("%w: tenant required", ErrInvalidInput)
	}
	var created int
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		created = 0
		parentIDs := make(map[string]int64)
		for _, tpl := range DefaultChartTemplate {
			if tpl.ParentCode != "" {
				continue
			}
			existing, err := tx.GetAccountByCode(ctx, tenantID, tpl.Code)
			if err == nil {
				parentIDs[tpl.Code] = existing.ID
				continue
			}
			if !errors.Is(err, ErrAccountNotFound) {
				return err
			}
			inserted, err := tx.InsertAccount(ctx, CreateAccountInput{
				TenantID: tenantID,
				Code:     tpl.Code,
				Name:     tpl.Name,
				Type:     tpl.Type,
				SubType:  tpl.SubType,
			}, true)
			if err != nil {
				return err
			}
			parentIDs[tpl.Code] = inserted.ID
			created++
		}
		for _, tpl := range DefaultChartTemplate {
			if tpl.ParentCode == "" {
				continue
			}
			parentID, ok := parentIDs[tpl.ParentCode]
			if !ok {
				return fmt.Errorf("ledger: template parent %s missing", tpl.ParentCode)
			}
			_, err := tx.GetAccountByCode(ctx, tenantID, tpl.Code)
			if err == nil {
				continue
			}
			if !errors.Is(err, ErrAccountNotFound) {
				return err
			}
			if _, err := tx.InsertAccount(ctx, CreateAccountInput{
				TenantID: tenantID,
				Code:     tpl.Code,
				Name:     tpl.Name,
				Type:     tpl.Type,
				SubType:  tpl.SubType,
				ParentID: &parentID,
			}, true); err != nil {
				return err
			}
			created++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	if created > 0 {
		s.cache.Invalidate(ctx, tenantID)
	}
	s.recordAudit(ctx, tenantID, 0, "chart.seed", "chart", tenantID.String(), map[string]any{
		"created": created,
	})
	return created, nil
}
