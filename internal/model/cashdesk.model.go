package model

import (
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// DriftTolerance is the rounding slack allowed between a desk's stored
// baseline balance and the balance implied by its operations before the
// difference is reported as a discrepancy.
var DriftTolerance = decimal.NewFromFloat(0.01)

// CashDesk is a named money pool. BaselineBalance is operator-asserted and
// stored independently of the operation log; it is never derived.
type CashDesk struct {
	ID              int64           `json:"id"`
	Name            string          `json:"name"`
	BaselineBalance decimal.Decimal `json:"baseline_balance"`
	Description     string          `json:"description"`
	IsActive        bool            `json:"is_active"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

// CashDeskSummary pairs the stored baseline with figures derived from the
// operation log so callers can see both and detect drift.
type CashDeskSummary struct {
	CashDesk
	TransactionsCount int64           `json:"transactions_count"`
	ActualIncome      decimal.Decimal `json:"actual_income"`
	ActualExpense     decimal.Decimal `json:"actual_expense"`
	CalculatedBalance decimal.Decimal `json:"calculated_balance"`
	// Discrepancy is CalculatedBalance - BaselineBalance, present only when
	// the difference exceeds DriftTolerance. It is reported, never corrected.
	Discrepancy *decimal.Decimal `json:"discrepancy,omitempty"`
}

type CashDeskCreateRequest struct {
	Name            string          `json:"name"`
	BaselineBalance decimal.Decimal `json:"baseline_balance"`
	Description     string          `json:"description"`
	IsActive        *bool           `json:"is_active"`
}

func (p CashDeskCreateRequest) Validate() error {
	if strings.TrimSpace(p.Name) == "" {
		return errors.New("name is required")
	}
	return nil
}

// CashDeskUpdateRequest updates only the fields that are set.
type CashDeskUpdateRequest struct {
	Name            *string          `json:"name"`
	BaselineBalance *decimal.Decimal `json:"baseline_balance"`
	Description     *string          `json:"description"`
	IsActive        *bool            `json:"is_active"`
}

func (p CashDeskUpdateRequest) Empty() bool {
	return p.Name == nil && p.BaselineBalance == nil && p.Description == nil && p.IsActive == nil
}

// CashDeskFilter controls List queries.
type CashDeskFilter struct {
	Search     *string
	ActiveOnly bool
}
