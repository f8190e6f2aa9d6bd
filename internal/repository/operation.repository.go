package repository

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/kassaflow/ledger/internal/apperr"
	"github.com/kassaflow/ledger/internal/model"
	"github.com/kassaflow/ledger/pkg/pg"
)

type OperationRepository struct {
	*pg.DB
}

func NewOperationRepository(db *pg.DB) *OperationRepository {
	return &OperationRepository{
		db,
	}
}

func (r *OperationRepository) Create(ctx context.Context, op *model.Operation) (*model.Operation, error) {
	entity := toOperationEntity(op)

	if err := r.Write(ctx).WithContext(ctx).Create(entity).Error; err != nil {
		return nil, apperr.Persistence("create operation", err)
	}

	return toOperationModel(entity), nil
}

func (r *OperationRepository) GetByID(ctx context.Context, id int64) (*model.Operation, error) {
	var entity OperationEntity
	err := r.Read(ctx).WithContext(ctx).
		Where("id = ?", id).
		First(&entity).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("operation %d not found", id)
		}
		return nil, apperr.Persistence("load operation", err)
	}
	return toOperationModel(&entity), nil
}

func (r *OperationRepository) GetDetail(ctx context.Context, id int64) (*model.OperationDetail, error) {
	var row operationDetailRow
	res := r.buildDetailQuery(ctx).Where("f.id = ?", id).Scan(&row)
	if res.Error != nil {
		return nil, apperr.Persistence("load operation", res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, apperr.NotFound("operation %d not found", id)
	}
	return toOperationDetail(&row), nil
}

func (r *OperationRepository) List(ctx context.Context, f model.OperationFilter) ([]*model.OperationDetail, error) {
	q := r.buildDetailQuery(ctx)

	if f.Status != nil {
		q = q.Where("f.status = ?", string(*f.Status))
	}
	if f.DateFrom != nil {
		q = q.Where("f.date >= ?", *f.DateFrom)
	}
	if f.DateTo != nil {
		q = q.Where("f.date <= ?", *f.DateTo)
	}
	if f.CashDeskID != nil {
		q = q.Where("f.cash_desk_id = ?", *f.CashDeskID)
	}
	if f.ClientID != nil {
		q = q.Where("f.client_id = ?", *f.ClientID)
	}
	if f.Category != nil && *f.Category != "" {
		q = q.Where("f.category = ?", *f.Category)
	}
	if f.DescriptionLike != nil && *f.DescriptionLike != "" {
		q = q.Where("LOWER(f.description) LIKE ?", "%"+*f.DescriptionLike+"%")
	}

	var rows []*operationDetailRow
	if err := q.Order("f.date DESC, f.created_at DESC").Scan(&rows).Error; err != nil {
		return nil, apperr.Persistence("list operations", err)
	}
	return toOperationDetails(rows), nil
}

// Update replaces the mutable columns of a single row and stamps updated_at.
// Transfer-leg immutability is enforced by the service before this is called.
func (r *OperationRepository) Update(ctx context.Context, id int64, op *model.Operation) (*model.Operation, error) {
	updates := map[string]any{
		"date":         op.Date,
		"amount":       op.Amount,
		"type":         string(op.Type),
		"status":       string(op.Status),
		"description":  op.Description,
		"category":     op.Category,
		"client_id":    op.ClientID,
		"cash_desk_id": op.CashDeskID,
		"updated_at":   time.Now().UTC(),
	}

	res := r.Write(ctx).WithContext(ctx).Model(&OperationEntity{}).
		Where("id = ?", id).Updates(updates)
	if res.Error != nil {
		return nil, apperr.Persistence("update operation", res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, apperr.NotFound("operation %d not found", id)
	}
	return r.GetByID(ctx, id)
}

func (r *OperationRepository) Delete(ctx context.Context, id int64) error {
	res := r.Write(ctx).WithContext(ctx).
		Where("id = ?", id).Delete(&OperationEntity{})
	if res.Error != nil {
		return apperr.Persistence("delete operation", res.Error)
	}
	if res.RowsAffected == 0 {
		return apperr.NotFound("operation %d not found", id)
	}
	return nil
}

// GetPairLeg loads the sibling of a transfer leg and verifies the mutual
// reference: the sibling's transfer_pair_id must point back at the leg. The
// pairing invariant is validated here, in one place, rather than by callers.
func (r *OperationRepository) GetPairLeg(ctx context.Context, leg *model.Operation) (*model.Operation, error) {
	if leg.TransferPairID == nil {
		return nil, apperr.InvalidTransfer("operation %d has no transfer pair reference", leg.ID)
	}

	var sibling OperationEntity
	err := r.Read(ctx).WithContext(ctx).
		Where("id = ? AND transfer_pair_id = ? AND type = ?", *leg.TransferPairID, leg.ID, string(model.OperationTypeTransfer)).
		First(&sibling).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.InvalidTransfer("transfer leg %d has no mutual sibling", leg.ID)
		}
		return nil, apperr.Persistence("load transfer sibling", err)
	}
	return toOperationModel(&sibling), nil
}

// SetTransferPairID closes the 2-cycle after both legs exist.
func (r *OperationRepository) SetTransferPairID(ctx context.Context, id, pairID int64) error {
	res := r.Write(ctx).WithContext(ctx).Model(&OperationEntity{}).
		Where("id = ?", id).Update("transfer_pair_id", pairID)
	if res.Error != nil {
		return apperr.Persistence("link transfer pair", res.Error)
	}
	if res.RowsAffected == 0 {
		return apperr.NotFound("operation %d not found", id)
	}
	return nil
}

// DeleteBoth removes both rows of a pair. Callers wrap this in a transaction
// together with the sibling lookup.
func (r *OperationRepository) DeleteBoth(ctx context.Context, idA, idB int64) (int64, error) {
	res := r.Write(ctx).WithContext(ctx).
		Where("id IN ?", []int64{idA, idB}).Delete(&OperationEntity{})
	if res.Error != nil {
		return 0, apperr.Persistence("delete transfer pair", res.Error)
	}
	return res.RowsAffected, nil
}

// ListActualByDeskUpTo fetches every actual-status operation of a desk dated
// on or before end, ordered by date then creation order. This is the history
// reconstruction read path.
func (r *OperationRepository) ListActualByDeskUpTo(ctx context.Context, deskID int64, end time.Time) ([]*model.Operation, error) {
	var entities []*OperationEntity
	err := r.Read(ctx).WithContext(ctx).
		Where("cash_desk_id = ? AND date <= ? AND status = ?", deskID, end, string(model.OperationStatusActual)).
		Order("date ASC, created_at ASC").
		Find(&entities).
		Error
	if err != nil {
		return nil, apperr.Persistence("load desk operations", err)
	}
	return toOperationModels(entities), nil
}

// ListActualDetailsInRange fetches every actual-status operation in
// [from, to] joined with display names, newest first. This is the statement
// read path.
func (r *OperationRepository) ListActualDetailsInRange(ctx context.Context, from, to time.Time) ([]*model.OperationDetail, error) {
	var rows []*operationDetailRow
	err := r.buildDetailQuery(ctx).
		Where("f.status = ? AND f.date >= ? AND f.date <= ?", string(model.OperationStatusActual), from, to).
		Order("f.date DESC, f.created_at DESC").
		Scan(&rows).
		Error
	if err != nil {
		return nil, apperr.Persistence("load statement operations", err)
	}
	return toOperationDetails(rows), nil
}

// SummaryStats aggregates the whole log over an optional date range.
func (r *OperationRepository) SummaryStats(ctx context.Context, from, to *time.Time) (*model.SummaryStats, error) {
	q := r.Read(ctx).WithContext(ctx).
		Table("finances").
		Select(`
            COUNT(*)                                                                                          AS total_operations,
            COUNT(CASE WHEN status = 'actual' THEN 1 END)                                                     AS actual_operations,
            COUNT(CASE WHEN status = 'planned' THEN 1 END)                                                    AS planned_operations,
            COALESCE(SUM(CASE WHEN type = 'income'  AND status = 'actual'  THEN amount ELSE 0 END), 0)        AS actual_income,
            COALESCE(SUM(CASE WHEN type = 'expense' AND status = 'actual'  THEN amount ELSE 0 END), 0)        AS actual_expense,
            COALESCE(SUM(CASE WHEN type IN ('income','expense') AND status = 'actual'  THEN amount ELSE 0 END), 0) AS actual_balance,
            COALESCE(SUM(CASE WHEN type = 'income'  AND status = 'planned' THEN amount ELSE 0 END), 0)        AS planned_income,
            COALESCE(SUM(CASE WHEN type = 'expense' AND status = 'planned' THEN amount ELSE 0 END), 0)        AS planned_expense,
            COALESCE(SUM(CASE WHEN type IN ('income','expense') AND status = 'planned' THEN amount ELSE 0 END), 0) AS planned_balance,
            COUNT(CASE WHEN type = 'transfer' THEN 1 END)                                                     AS transfer_operations,
            COALESCE(SUM(CASE WHEN type = 'transfer' AND amount > 0 THEN amount ELSE 0 END), 0)               AS total_transfer_amount
        `)

	if from != nil {
		q = q.Where("date >= ?", *from)
	}
	if to != nil {
		q = q.Where("date <= ?", *to)
	}

	var row summaryStatsRow
	if err := q.Scan(&row).Error; err != nil {
		return nil, apperr.Persistence("load summary stats", err)
	}

	return &model.SummaryStats{
		// Transfer legs are excluded from the headline counts; a transfer is
		// not income or expense.
		TotalOperations:   row.TotalOperations - row.TransferCount,
		ActualOperations:  row.ActualOperations - row.TransferCount,
		PlannedOperations: row.PlannedOperations,
		ActualIncome:      row.ActualIncome,
		ActualExpense:     row.ActualExpense.Abs(),
		ActualBalance:     row.ActualBalance,
		PlannedIncome:     row.PlannedIncome,
		PlannedExpense:    row.PlannedExpense.Abs(),
		PlannedBalance:    row.PlannedBalance,
		TransferCount:     row.TransferCount,
		TransferAmount:    row.TransferAmount,
	}, nil
}

// CategoryTotals aggregates actual income/expense operations per category
// over [from, to].
func (r *OperationRepository) CategoryTotals(ctx context.Context, from, to time.Time) (map[string]model.CategoryTotal, map[string]model.CategoryTotal, error) {
	var rows []*categoryTotalRow
	err := r.Read(ctx).WithContext(ctx).
		Table("finances").
		Select(`category, type, SUM(amount) AS total_amount, COUNT(*) AS operations_count`).
		Where("status = ? AND type IN ? AND date >= ? AND date <= ?",
			string(model.OperationStatusActual),
			[]string{string(model.OperationTypeIncome), string(model.OperationTypeExpense)},
			from, to).
		Group("category, type").
		Order("category, type").
		Scan(&rows).
		Error
	if err != nil {
		return nil, nil, apperr.Persistence("load category totals", err)
	}

	income := map[string]model.CategoryTotal{}
	expense := map[string]model.CategoryTotal{}
	for _, row := range rows {
		t := model.CategoryTotal{Amount: row.TotalAmount, OperationsCount: row.OperationsCount}
		if row.Type == string(model.OperationTypeIncome) {
			income[row.Category] = t
		} else {
			expense[row.Category] = t
		}
	}
	return income, expense, nil
}

func (r *OperationRepository) buildDetailQuery(ctx context.Context) *gorm.DB {
	return r.Read(ctx).WithContext(ctx).
		Table("finances AS f").
		Select(`
            f.id                   AS id,
            f.date                 AS date,
            f.amount               AS amount,
            f.type                 AS type,
            f.status               AS status,
            f.description          AS description,
            f.category             AS category,
            f.client_id            AS client_id,
            f.worker_id            AS worker_id,
            f.cash_desk_id         AS cash_desk_id,
            f.transfer_pair_id     AS transfer_pair_id,
            f.created_at           AS created_at,
            f.updated_at           AS updated_at,
            c.name                 AS client_name,
            c.email                AS client_email,
            c.telegram             AS client_telegram,
            cd.name                AS cash_desk_name,
            w.full_name            AS worker_name,
            w.telegram_username    AS worker_telegram
        `).
		Joins("LEFT JOIN clients AS c ON f.client_id = c.id").
		Joins("LEFT JOIN cash_desks AS cd ON f.cash_desk_id = cd.id").
		Joins("LEFT JOIN workers AS w ON f.worker_id = w.id")
}
