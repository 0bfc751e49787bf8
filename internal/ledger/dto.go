package ledger

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const dateLayout = "2006-01-02"

type createAccountRequest struct {
	Code        string `json:"code" validate:"required,alphanum,max=16"`
	Name        string `json:"name" validate:"required,max=120"`
	Type        string `json:"type" validate:"required,oneof=ASSET LIABILITY EQUITY INCOME EXPENSE"`
	SubType     string `json:"subType" validate:"omitempty,max=40"`
	Description string `json:"description" validate:"omitempty,max=500"`
	ParentID    *int64 `json:"parentId" validate:"omitempty,gt=0"`
}

type updateAccountRequest struct {
	Name        *string `json:"name" validate:"omitempty,min=1,max=120"`
	Description *string `json:"description" validate:"omitempty,max=500"`
	IsActive    *bool   `json:"isActive"`
}

type postingRequest struct {
	AccountID   int64  `json:"accountId" validate:"required,gt=0"`
	Debit       string `json:"debit" validate:"omitempty"`
	Credit      string `json:"credit" validate:"omitempty"`
	Date        string `json:"date" validate:"required,datetime=2006-01-02"`
	Description string `json:"description" validate:"omitempty,max=500"`
	RefType     string `json:"refType" validate:"required,max=32"`
	RefID       string `json:"refId" validate:"required,uuid"`
	CreatedBy   *int64 `json:"createdBy" validate:"omitempty,gt=0"`
}

type reverseRequest struct {
	RefType string `json:"refType" validate:"required,max=32"`
	RefID   string `json:"refId" validate:"required,uuid"`
}

func (req postingRequest) toInput(tenantID uuid.UUID) (PostingInput, error) {
	debit, err := parseAmount(req.Debit)
	if err != nil {
		return PostingInput{}, fmt.Errorf("invalid debit: %w", err)
	}
	credit, err := parseAmount(req.Credit)
	if err != nil {
		return PostingInput{}, fmt.Errorf("invalid credit: %w", err)
	}
	date, err := time.Parse(dateLayout, req.Date)
	if err != nil {
		return PostingInput{}, fmt.Errorf("invalid date: %w", err)
	}
	refID, err := uuid.Parse(req.RefID)
	if err != nil {
		return PostingInput{}, fmt.Errorf("invalid ref id: %w", err)
	}
	return PostingInput{
		TenantID:    tenantID,
		AccountID:   req.AccountID,
		Debit:       debit,
		Credit:      credit,
		Date:        date,
		Description: req.Description,
		RefType:     req.RefType,
		RefID:       refID,
		CreatedBy:   req.CreatedBy,
	}, nil
}

func parseAmount(raw string) (decimal.Decimal, error) {
	if raw == "" {
		return decimal.Zero, nil
	}
	return decimal.NewFromString(raw)
}

type accountResponse struct {
	ID          int64  `json:"id"`
	Code        string `json:"code"`
	Name        string `json:"name"`
	Type        string `json:"type"`
	SubType     string `json:"subType,omitempty"`
	Description string `json:"description,omitempty"`
	ParentID    *int64 `json:"parentId,omitempty"`
	Balance     string `json:"balance"`
	IsSystem    bool   `json:"isSystem"`
	IsActive    bool   `json:"isActive"`
}

func toAccountResponse(a Account) accountResponse {
	return accountResponse{
		ID:          a.ID,
		Code:        a.Code,
		Name:        a.Name,
		Type:        string(a.Type),
		SubType:     a.SubType,
		Description: a.Description,
		ParentID:    a.ParentID,
		Balance:     a.Balance.StringFixed(2),
		IsSystem:    a.IsSystem,
		IsActive:    a.IsActive,
	}
}

type treeNodeResponse struct {
	accountResponse
	Children []treeNodeResponse `json:"children,omitempty"`
}

func toTreeResponse(forest []AccountNode) []treeNodeResponse {
	out := make([]treeNodeResponse, 0, len(forest))
	for _, node := range forest {
		out = append(out, treeNodeResponse{
			accountResponse: toAccountResponse(node.Account),
			Children:        toTreeResponse(node.Children),
		})
	}
	return out
}

type entryResponse struct {
	ID          int64  `json:"id"`
	AccountID   int64  `json:"accountId"`
	Date        string `json:"date"`
	Debit       string `json:"debit"`
	Credit      string `json:"credit"`
	Description string `json:"description,omitempty"`
	RefType     string `json:"refType"`
	RefID       string `json:"refId"`
	CreatedBy   *int64 `json:"createdBy,omitempty"`
}

func toEntryResponse(e JournalEntry) entryResponse {
	return entryResponse{
		ID:          e.ID,
		AccountID:   e.AccountID,
		Date:        e.Date.Format(dateLayout),
		Debit:       e.Debit.StringFixed(2),
		Credit:      e.Credit.StringFixed(2),
		Description: e.Description,
		RefType:     e.RefType,
		RefID:       e.RefID.String(),
		CreatedBy:   e.CreatedBy,
	}
}

type statementLineResponse struct {
	entryResponse
	RunningBalance string `json:"runningBalance"`
}

type statementResponse struct {
	Account        accountResponse         `json:"account"`
	From           string                  `json:"from"`
	To             string                  `json:"to"`
	OpeningBalance string                  `json:"openingBalance"`
	ClosingBalance string                  `json:"closingBalance"`
	TotalDebit     string                  `json:"totalDebit"`
	TotalCredit    string                  `json:"totalCredit"`
	Lines          []statementLineResponse `json:"lines"`
}

func toStatementResponse(stmt Statement) statementResponse {
	out := statementResponse{
		Account:        toAccountResponse(stmt.Account),
		From:           stmt.From.Format(dateLayout),
		To:             stmt.To.Format(dateLayout),
		OpeningBalance: stmt.OpeningBalance.StringFixed(2),
		ClosingBalance: stmt.ClosingBalance.StringFixed(2),
		TotalDebit:     stmt.TotalDebit.StringFixed(2),
		TotalCredit:    stmt.TotalCredit.StringFixed(2),
		Lines:          make([]statementLineResponse, 0, len(stmt.Lines)),
	}
	for _, line := range stmt.Lines {
		out.Lines = append(out.Lines, statementLineResponse{
			entryResponse:  toEntryResponse(line.Entry),
			RunningBalance: line.RunningBalance.StringFixed(2),
		})
	}
	return out
}
