package repository

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/kassaflow/ledger/internal/model"
)

type CashDeskEntity struct {
	ID              int64           `db:"id"               gorm:"primaryKey;autoIncrement;column:id"`
	Name            string          `db:"name"             gorm:"column:name;not null;unique"`
	BaselineBalance decimal.Decimal `db:"baseline_balance" gorm:"column:baseline_balance;type:numeric(14,2);not null;default:0"`
	Description     string          `db:"description"      gorm:"column:description"`
	IsActive        bool            `db:"is_active"        gorm:"column:is_active;not null;default:true"`
	CreatedAt       time.Time       `db:"created_at"       gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time       `db:"updated_at"       gorm:"column:updated_at;autoUpdateTime"`
}

func (CashDeskEntity) TableName() string {
	return "cash_desks"
}

func toCashDeskEntity(m *model.CashDesk) *CashDeskEntity {
	if m == nil {
		return nil
	}
	return &CashDeskEntity{
		ID:              m.ID,
		Name:            m.Name,
		BaselineBalance: m.BaselineBalance,
		Description:     m.Description,
		IsActive:        m.IsActive,
		CreatedAt:       m.CreatedAt,
		UpdatedAt:       m.UpdatedAt,
	}
}

func toCashDeskModel(e *CashDeskEntity) *model.CashDesk {
	if e == nil {
		return nil
	}
	return &model.CashDesk{
		ID:              e.ID,
		Name:            e.Name,
		BaselineBalance: e.BaselineBalance,
		Description:     e.Description,
		IsActive:        e.IsActive,
		CreatedAt:       e.CreatedAt,
		UpdatedAt:       e.UpdatedAt,
	}
}

func toCashDeskModels(entities []*CashDeskEntity) []*model.CashDesk {
	if entities == nil {
		return nil
	}
	models := make([]*model.CashDesk, len(entities))
	for i, e := range entities {
		models[i] = toCashDeskModel(e)
	}
	return models
}

// cashDeskAggregateRow is the scan target for the summary query joining the
// desk with its operation aggregates.
type cashDeskAggregateRow struct {
	ID                int64           `gorm:"column:id"`
	Name              string          `gorm:"column:name"`
	BaselineBalance   decimal.Decimal `gorm:"column:baseline_balance"`
	Description       string          `gorm:"column:description"`
	IsActive          bool            `gorm:"column:is_active"`
	CreatedAt         time.Time       `gorm:"column:created_at"`
	UpdatedAt         time.Time       `gorm:"column:updated_at"`
	TransactionsCount int64           `gorm:"column:transactions_count"`
	ActualIncome      decimal.Decimal `gorm:"column:actual_income"`
	ActualExpense     decimal.Decimal `gorm:"column:actual_expense"`
	CalculatedBalance decimal.Decimal `gorm:"column:calculated_balance"`
}

func toCashDeskSummary(r *cashDeskAggregateRow) *model.CashDeskSummary {
	if r == nil {
		return nil
	}
	s := &model.CashDeskSummary{
		CashDesk: model.CashDesk{
			ID:              r.ID,
			Name:            r.Name,
			BaselineBalance: r.BaselineBalance,
			Description:     r.Description,
			IsActive:        r.IsActive,
			CreatedAt:       r.CreatedAt,
			UpdatedAt:       r.UpdatedAt,
		},
		TransactionsCount: r.TransactionsCount,
		ActualIncome:      r.ActualIncome,
		ActualExpense:     r.ActualExpense.Abs(),
		CalculatedBalance: r.CalculatedBalance,
	}
	drift := r.CalculatedBalance.Sub(r.BaselineBalance)
	if drift.Abs().GreaterThan(model.DriftTolerance) {
		s.Discrepancy = &drift
	}
	return s
}
