package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// SummaryStats aggregates the finance log over an optional date range.
// Transfer legs are counted separately and excluded from the income/expense
// figures, since a transfer moves money between desks without changing the
// overall position.
type SummaryStats struct {
	TotalOperations   int64           `json:"total_operations"`
	ActualOperations  int64           `json:"actual_operations"`
	PlannedOperations int64           `json:"planned_operations"`
	ActualIncome      decimal.Decimal `json:"actual_income"`
	ActualExpense     decimal.Decimal `json:"actual_expense"`
	ActualBalance     decimal.Decimal `json:"actual_balance"`
	PlannedIncome     decimal.Decimal `json:"planned_income"`
	PlannedExpense    decimal.Decimal `json:"planned_expense"`
	PlannedBalance    decimal.Decimal `json:"planned_balance"`
	TransferCount     int64           `json:"transfer_operations"`
	TransferAmount    decimal.Decimal `json:"total_transfer_amount"`
}

// CategoryTotal is one category's contribution within Analytics.
type CategoryTotal struct {
	Amount          decimal.Decimal `json:"amount"`
	OperationsCount int64           `json:"operations_count"`
}

// Analytics covers actual income/expense operations over a validated period.
// Ratio and margin are nil when their denominator is zero.
type Analytics struct {
	PeriodDays         int                      `json:"period"`
	StartDate          time.Time                `json:"start_date"`
	EndDate            time.Time                `json:"end_date"`
	TotalIncome        decimal.Decimal          `json:"total_income"`
	TotalExpense       decimal.Decimal          `json:"total_expense"`
	Profit             decimal.Decimal          `json:"profit"`
	IncomeExpenseRatio *decimal.Decimal         `json:"income_expense_ratio"`
	ProfitMargin       *decimal.Decimal         `json:"profit_margin"`
	TotalOperations    int64                    `json:"total_operations"`
	IncomeByCategory   map[string]CategoryTotal `json:"income_by_category"`
	ExpenseByCategory  map[string]CategoryTotal `json:"expense_by_category"`
}
