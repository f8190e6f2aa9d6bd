package repository

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/kassaflow/ledger/internal/model"
)

type OperationEntity struct {
	ID             int64           `db:"id"               gorm:"primaryKey;autoIncrement;column:id"`
	Date           time.Time       `db:"date"             gorm:"column:date;not null;index"`
	Amount         decimal.Decimal `db:"amount"           gorm:"column:amount;type:numeric(14,2);not null"`
	Type           string          `db:"type"             gorm:"column:type;not null;index"`
	Status         string          `db:"status"           gorm:"column:status;not null;index"`
	Description    string          `db:"description"      gorm:"column:description"`
	Category       string          `db:"category"         gorm:"column:category"`
	ClientID       *int64          `db:"client_id"        gorm:"column:client_id;index"`
	WorkerID       *int64          `db:"worker_id"        gorm:"column:worker_id;index"`
	CashDeskID     int64           `db:"cash_desk_id"     gorm:"column:cash_desk_id;not null;index"`
	TransferPairID *int64          `db:"transfer_pair_id" gorm:"column:transfer_pair_id;index"`
	CreatedAt      time.Time       `db:"created_at"       gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time       `db:"updated_at"       gorm:"column:updated_at;autoUpdateTime"`
}

func (OperationEntity) TableName() string {
	return "finances"
}

func toOperationEntity(m *model.Operation) *OperationEntity {
	if m == nil {
		return nil
	}
	return &OperationEntity{
		ID:             m.ID,
		Date:           m.Date,
		Amount:         m.Amount,
		Type:           string(m.Type),
		Status:         string(m.Status),
		Description:    m.Description,
		Category:       m.Category,
		ClientID:       m.ClientID,
		WorkerID:       m.WorkerID,
		CashDeskID:     m.CashDeskID,
		TransferPairID: m.TransferPairID,
		CreatedAt:      m.CreatedAt,
		UpdatedAt:      m.UpdatedAt,
	}
}

func toOperationModel(e *OperationEntity) *model.Operation {
	if e == nil {
		return nil
	}
	return &model.Operation{
		ID:             e.ID,
		Date:           e.Date,
		Amount:         e.Amount,
		Type:           model.OperationType(e.Type),
		Status:         model.OperationStatus(e.Status),
		Description:    e.Description,
		Category:       e.Category,
		ClientID:       e.ClientID,
		WorkerID:       e.WorkerID,
		CashDeskID:     e.CashDeskID,
		TransferPairID: e.TransferPairID,
		CreatedAt:      e.CreatedAt,
		UpdatedAt:      e.UpdatedAt,
	}
}

func toOperationModels(entities []*OperationEntity) []*model.Operation {
	if entities == nil {
		return nil
	}
	models := make([]*model.Operation, len(entities))
	for i, e := range entities {
		models[i] = toOperationModel(e)
	}
	return models
}

// operationDetailRow is the scan target for queries joining operations with
// client/desk/worker display names.
type operationDetailRow struct {
	OperationEntity
	ClientName     *string `gorm:"column:client_name"`
	ClientEmail    *string `gorm:"column:client_email"`
	ClientTelegram *string `gorm:"column:client_telegram"`
	CashDeskName   *string `gorm:"column:cash_desk_name"`
	WorkerName     *string `gorm:"column:worker_name"`
	WorkerTelegram *string `gorm:"column:worker_telegram"`
}

func toOperationDetail(r *operationDetailRow) *model.OperationDetail {
	if r == nil {
		return nil
	}
	d := &model.OperationDetail{
		Operation: *toOperationModel(&r.OperationEntity),
	}
	if r.ClientName != nil {
		d.ClientName = *r.ClientName
	}
	if r.ClientEmail != nil {
		d.ClientEmail = *r.ClientEmail
	}
	if r.ClientTelegram != nil {
		d.ClientTelegram = *r.ClientTelegram
	}
	if r.CashDeskName != nil {
		d.CashDeskName = *r.CashDeskName
	}
	if r.WorkerName != nil {
		d.WorkerName = *r.WorkerName
	}
	if r.WorkerTelegram != nil {
		d.WorkerTelegram = *r.WorkerTelegram
	}
	return d
}

func toOperationDetails(rows []*operationDetailRow) []*model.OperationDetail {
	if rows == nil {
		return nil
	}
	details := make([]*model.OperationDetail, len(rows))
	for i, r := range rows {
		details[i] = toOperationDetail(r)
	}
	return details
}

// summaryStatsRow is the scan target for the summary aggregate query.
type summaryStatsRow struct {
	TotalOperations   int64           `gorm:"column:total_operations"`
	ActualOperations  int64           `gorm:"column:actual_operations"`
	PlannedOperations int64           `gorm:"column:planned_operations"`
	ActualIncome      decimal.Decimal `gorm:"column:actual_income"`
	ActualExpense     decimal.Decimal `gorm:"column:actual_expense"`
	ActualBalance     decimal.Decimal `gorm:"column:actual_balance"`
	PlannedIncome     decimal.Decimal `gorm:"column:planned_income"`
	PlannedExpense    decimal.Decimal `gorm:"column:planned_expense"`
	PlannedBalance    decimal.Decimal `gorm:"column:planned_balance"`
	TransferCount     int64           `gorm:"column:transfer_operations"`
	TransferAmount    decimal.Decimal `gorm:"column:total_transfer_amount"`
}

type categoryTotalRow struct {
	Category        string          `gorm:"column:category"`
	Type            string          `gorm:"column:type"`
	TotalAmount     decimal.Decimal `gorm:"column:total_amount"`
	OperationsCount int64           `gorm:"column:operations_count"`
}
