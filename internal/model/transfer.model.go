package model

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

// TransferCategory is stamped on both legs of every transfer pair.
const TransferCategory = "inter-desk transfer"

// TransferRequest is the input for creating a transfer pair between two
// cash desks.
type TransferRequest struct {
	Amount         decimal.Decimal
	Date           time.Time
	FromCashDeskID int64
	ToCashDeskID   int64
	Description    string
}

func (p TransferRequest) Validate() error {
	if p.Date.IsZero() {
		return errors.New("date is required")
	}
	if !p.Amount.IsPositive() {
		return errors.New("amount must be positive")
	}
	if p.FromCashDeskID == 0 || p.ToCashDeskID == 0 {
		return errors.New("both cash desks are required")
	}
	return nil
}

// TransferResult reports both created legs plus a human-oriented summary.
type TransferResult struct {
	Outgoing         *Operation      `json:"outgoing"`
	Incoming         *Operation      `json:"incoming"`
	Amount           decimal.Decimal `json:"amount"`
	FromCashDeskName string          `json:"from_cash_desk"`
	ToCashDeskName   string          `json:"to_cash_desk"`
}
