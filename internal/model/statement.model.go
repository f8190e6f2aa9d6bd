package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// StatementRow is one income or expense line of a statement, joined with
// counterparty and desk display names.
type StatementRow struct {
	Date           time.Time       `json:"date"`
	Amount         decimal.Decimal `json:"amount"`
	Category       string          `json:"category"`
	ClientName     string          `json:"client_name"`
	ClientTelegram string          `json:"client_telegram"`
	ClientEmail    string          `json:"client_email"`
	WorkerName     string          `json:"worker_name"`
	WorkerTelegram string          `json:"worker_telegram"`
	CashDeskName   string          `json:"cash_desk_name"`
	Description    string          `json:"description"`
}

// TransferDetail is a merged transfer pair: one row per pair, amount always
// positive, legs identified by the sign of their stored amounts.
type TransferDetail struct {
	Date             time.Time       `json:"date"`
	Amount           decimal.Decimal `json:"amount"`
	Category         string          `json:"category"`
	SenderCashDesk   string          `json:"sender_cash_desk"`
	ReceiverCashDesk string          `json:"receiver_cash_desk"`
	Description      string          `json:"description"`
}

// DeskClosing is the net signed sum of the statement's own rows for one
// desk. It is a statement-period figure, not the desk's all-time balance.
type DeskClosing struct {
	CashDeskName string          `json:"cash_desk_name"`
	Balance      decimal.Decimal `json:"balance"`
}

// Statement is the reconciled report over one date range. Totals are literal
// sums of the emitted rows, so the report stays internally consistent even if
// the underlying data changes mid-export.
type Statement struct {
	DateFrom     time.Time        `json:"date_from"`
	DateTo       time.Time        `json:"date_to"`
	Income       []StatementRow   `json:"income"`
	TotalIncome  decimal.Decimal  `json:"total_income"`
	Expense      []StatementRow   `json:"expense"`
	TotalExpense decimal.Decimal  `json:"total_expense"`
	Transfers    []TransferDetail `json:"transfers"`
	DeskClosings []DeskClosing    `json:"desk_closings"`
	OrphanedLegs int              `json:"orphaned_legs"`
}
