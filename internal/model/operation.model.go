package model

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

type OperationType string

const (
	OperationTypeIncome   OperationType = "income"
	OperationTypeExpense  OperationType = "expense"
	OperationTypeTransfer OperationType = "transfer"
)

type OperationStatus string

const (
	OperationStatusActual  OperationStatus = "actual"
	OperationStatusPlanned OperationStatus = "planned"
)

// DateLayout is the calendar-date wire format. Operation dates carry no
// time-of-day component.
const DateLayout = "2006-01-02"

// Operation is a single row of the finance log. Amount is signed: income
// positive, expense negative, transfer legs signed by direction. Sign
// normalization happens once, in the writer.
type Operation struct {
	ID             int64           `json:"id"`
	Date           time.Time       `json:"date"`
	Amount         decimal.Decimal `json:"amount"`
	Type           OperationType   `json:"type"`
	Status         OperationStatus `json:"status"`
	Description    string          `json:"description"`
	Category       string          `json:"category"`
	ClientID       *int64          `json:"client_id,omitempty"`
	WorkerID       *int64          `json:"worker_id,omitempty"`
	CashDeskID     int64           `json:"cash_desk_id"`
	TransferPairID *int64          `json:"transfer_pair_id,omitempty"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

// IsTransferLeg reports whether the row is one side of a transfer pair.
func (o *Operation) IsTransferLeg() bool {
	return o.Type == OperationTypeTransfer && o.TransferPairID != nil
}

// OperationDetail is an operation joined with display names of its
// counterparties and desk.
type OperationDetail struct {
	Operation
	ClientName     string `json:"client_name,omitempty"`
	ClientEmail    string `json:"client_email,omitempty"`
	ClientTelegram string `json:"client_telegram,omitempty"`
	CashDeskName   string `json:"cash_desk_name,omitempty"`
	WorkerName     string `json:"worker_name,omitempty"`
	WorkerTelegram string `json:"worker_telegram,omitempty"`
}

// OperationCreateRequest is the input for a single-leg income/expense
// operation. Amount is always supplied positive; the writer applies the sign.
// The client may be referenced by id or email, the worker by id or telegram
// handle.
type OperationCreateRequest struct {
	Date           time.Time
	Amount         decimal.Decimal
	Type           OperationType
	Status         OperationStatus
	Description    string
	Category       string
	ClientID       *int64
	ClientEmail    string
	WorkerID       *int64
	WorkerTelegram string
	CashDeskID     int64
}

func (p OperationCreateRequest) Validate() error {
	if p.Date.IsZero() {
		return errors.New("date is required")
	}
	if !p.Amount.IsPositive() {
		return errors.New("amount must be positive")
	}
	if p.Type != OperationTypeIncome && p.Type != OperationTypeExpense {
		return errors.New("type must be income or expense")
	}
	if p.Status != OperationStatusActual && p.Status != OperationStatusPlanned {
		return errors.New("status must be actual or planned")
	}
	return nil
}

// OperationUpdateRequest carries the full replacement state for an existing
// single-leg operation, mirroring the create shape.
type OperationUpdateRequest struct {
	Date        time.Time
	Amount      decimal.Decimal
	Type        OperationType
	Status      OperationStatus
	Description string
	Category    string
	ClientID    *int64
	CashDeskID  int64
}

func (p OperationUpdateRequest) Validate() error {
	if p.Date.IsZero() {
		return errors.New("date is required")
	}
	if !p.Amount.IsPositive() {
		return errors.New("amount must be positive")
	}
	if p.Type != OperationTypeIncome && p.Type != OperationTypeExpense {
		return errors.New("type must be income or expense")
	}
	if p.Status != OperationStatusActual && p.Status != OperationStatusPlanned {
		return errors.New("status must be actual or planned")
	}
	return nil
}

// OperationFilter controls List queries.
type OperationFilter struct {
	Status          *OperationStatus
	DateFrom        *time.Time
	DateTo          *time.Time
	CashDeskID      *int64
	ClientID        *int64
	Category        *string
	DescriptionLike *string
}
