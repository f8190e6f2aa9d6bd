package model

import (
	"time"

	"github.com/shopspring/decimal"
)

type Trend string

const (
	TrendGrowing   Trend = "growing"
	TrendDeclining Trend = "declining"
	TrendStable    Trend = "stable"
)

// ValidPeriods are the period lengths accepted by analytics queries.
var ValidPeriods = []int{7, 14, 30, 60, 90, 180, 365}

func IsValidPeriod(days int) bool {
	for _, p := range ValidPeriods {
		if p == days {
			return true
		}
	}
	return false
}

// DayTransaction is the per-operation detail attached to a history point.
type DayTransaction struct {
	Amount      decimal.Decimal `json:"amount"`
	Type        OperationType   `json:"type"`
	Description string          `json:"description"`
}

// BalancePoint is one day of a reconstructed balance series. Days with no
// operations carry a zero DailyChange and repeat the prior balance.
type BalancePoint struct {
	Date              time.Time        `json:"date"`
	Balance           decimal.Decimal  `json:"balance"`
	DailyChange       decimal.Decimal  `json:"daily_change"`
	TransactionsCount int              `json:"transactions_count"`
	Transactions      []DayTransaction `json:"transactions"`
}

// BalanceHistoryStats summarizes a produced series.
type BalanceHistoryStats struct {
	PeriodDays        int             `json:"period_days"`
	StartDate         time.Time       `json:"start_date"`
	EndDate           time.Time       `json:"end_date"`
	FirstBalance      decimal.Decimal `json:"first_balance"`
	LastBalance       decimal.Decimal `json:"last_balance"`
	MinBalance        decimal.Decimal `json:"min_balance"`
	MaxBalance        decimal.Decimal `json:"max_balance"`
	TotalChange       decimal.Decimal `json:"total_change"`
	ChangePercentage  decimal.Decimal `json:"change_percentage"`
	TotalTransactions int             `json:"total_transactions"`
	AverageBalance    decimal.Decimal `json:"average_balance"`
	Trend             Trend           `json:"trend"`
}

// BalanceHistory is the full reconstruction result. AnchorBalance is the
// desk's stored baseline at reconstruction time; the series is anchored on
// it, so its provenance is reported rather than left implicit.
type BalanceHistory struct {
	CashDeskID    int64               `json:"cash_desk_id"`
	CashDeskName  string              `json:"cash_desk_name"`
	AnchorBalance decimal.Decimal     `json:"anchor_balance"`
	Points        []BalancePoint      `json:"balance_history"`
	Stats         BalanceHistoryStats `json:"statistics"`
}
