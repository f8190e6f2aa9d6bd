package model

import (
	"time"

	"github.com/shopspring/decimal"
)

type EventKind string

const (
	EventOperationCreated EventKind = "operation.created"
	EventOperationUpdated EventKind = "operation.updated"
	EventOperationDeleted EventKind = "operation.deleted"
	EventTransferCreated  EventKind = "transfer.created"
	EventTransferDeleted  EventKind = "transfer.deleted"
)

// OperationEvent is published to the event queue after a successful write.
// Publishing is best-effort and never rolls back the financial write.
type OperationEvent struct {
	Kind        EventKind       `json:"kind"`
	OperationID int64           `json:"operation_id"`
	Type        OperationType   `json:"type"`
	Amount      decimal.Decimal `json:"amount"`
	CashDeskID  int64           `json:"cash_desk_id"`
	Date        time.Time       `json:"date"`
	OccurredAt  time.Time       `json:"occurred_at"`
}
