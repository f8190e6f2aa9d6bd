package repository

import (
	"context"
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/kassaflow/ledger/internal/apperr"
	"github.com/kassaflow/ledger/internal/model"
	"github.com/kassaflow/ledger/pkg/pg"
)

type CashDeskRepository struct {
	*pg.DB
}

func NewCashDeskRepository(db *pg.DB) *CashDeskRepository {
	return &CashDeskRepository{
		db,
	}
}

func (r *CashDeskRepository) Create(ctx context.Context, desk *model.CashDesk) (*model.CashDesk, error) {
	name := strings.TrimSpace(desk.Name)

	var count int64
	if err := r.Read(ctx).WithContext(ctx).Model(&CashDeskEntity{}).
		Where("name = ?", name).Count(&count).Error; err != nil {
		return nil, apperr.Persistence("check cash desk name", err)
	}
	if count > 0 {
		return nil, apperr.DuplicateName("cash desk %q already exists", name)
	}

	entity := toCashDeskEntity(desk)
	entity.Name = name

	if err := r.Write(ctx).WithContext(ctx).Create(entity).Error; err != nil {
		return nil, apperr.Persistence("create cash desk", err)
	}

	return toCashDeskModel(entity), nil
}

func (r *CashDeskRepository) GetByID(ctx context.Context, id int64) (*model.CashDesk, error) {
	var entity CashDeskEntity
	err := r.Read(ctx).WithContext(ctx).
		Where("id = ?", id).
		First(&entity).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("cash desk %d not found", id)
		}
		return nil, apperr.Persistence("load cash desk", err)
	}
	return toCashDeskModel(&entity), nil
}

// GetForUpdate loads a desk row under SELECT ... FOR UPDATE. Only meaningful
// inside a WithinTransaction scope; multi-step writes that depend on a desk
// snapshot lock the row until commit.
func (r *CashDeskRepository) GetForUpdate(ctx context.Context, id int64) (*model.CashDesk, error) {
	var entity CashDeskEntity
	err := r.Write(ctx).WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id).
		First(&entity).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("cash desk %d not found", id)
		}
		return nil, apperr.Persistence("lock cash desk", err)
	}
	return toCashDeskModel(&entity), nil
}

func (r *CashDeskRepository) List(ctx context.Context, f model.CashDeskFilter) ([]*model.CashDesk, error) {
	q := r.Read(ctx).WithContext(ctx).Model(&CashDeskEntity{})

	if f.Search != nil && *f.Search != "" {
		q = q.Where("LOWER(name) LIKE ?", "%"+strings.ToLower(*f.Search)+"%")
	}
	if f.ActiveOnly {
		q = q.Where("is_active = ?", true)
	}

	var entities []*CashDeskEntity
	if err := q.Order("created_at DESC").Find(&entities).Error; err != nil {
		return nil, apperr.Persistence("list cash desks", err)
	}
	return toCashDeskModels(entities), nil
}

// Update applies only the fields set in the request and stamps updated_at.
// Renaming to an existing name is refused.
func (r *CashDeskRepository) Update(ctx context.Context, id int64, p model.CashDeskUpdateRequest) (*model.CashDesk, error) {
	var existing CashDeskEntity
	err := r.Write(ctx).WithContext(ctx).
		Where("id = ?", id).
		First(&existing).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("cash desk %d not found", id)
		}
		return nil, apperr.Persistence("load cash desk", err)
	}

	updates := map[string]any{}

	if p.Name != nil {
		name := strings.TrimSpace(*p.Name)
		if name != existing.Name {
			var count int64
			if err := r.Read(ctx).WithContext(ctx).Model(&CashDeskEntity{}).
				Where("name = ? AND id != ?", name, id).Count(&count).Error; err != nil {
				return nil, apperr.Persistence("check cash desk name", err)
			}
			if count > 0 {
				return nil, apperr.DuplicateName("cash desk %q already exists", name)
			}
		}
		updates["name"] = name
	}
	if p.BaselineBalance != nil {
		updates["baseline_balance"] = *p.BaselineBalance
	}
	if p.Description != nil {
		updates["description"] = strings.TrimSpace(*p.Description)
	}
	if p.IsActive != nil {
		updates["is_active"] = *p.IsActive
	}

	if len(updates) == 0 {
		return nil, apperr.BusinessRule("no fields to update")
	}
	updates["updated_at"] = time.Now().UTC()

	if err := r.Write(ctx).WithContext(ctx).Model(&CashDeskEntity{}).
		Where("id = ?", id).Updates(updates).Error; err != nil {
		return nil, apperr.Persistence("update cash desk", err)
	}

	return r.GetByID(ctx, id)
}

// Delete removes a desk. It is refused while any operation references the
// desk; operations must be moved or deleted first.
func (r *CashDeskRepository) Delete(ctx context.Context, id int64) (*model.CashDesk, error) {
	desk, err := r.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	var dependents int64
	if err := r.Read(ctx).WithContext(ctx).Model(&OperationEntity{}).
		Where("cash_desk_id = ?", id).Count(&dependents).Error; err != nil {
		return nil, apperr.Persistence("count dependent operations", err)
	}
	if dependents > 0 {
		return nil, apperr.BusinessRule("cash desk %q has %d dependent operations", desk.Name, dependents)
	}

	if err := r.Write(ctx).WithContext(ctx).
		Where("id = ?", id).Delete(&CashDeskEntity{}).Error; err != nil {
		return nil, apperr.Persistence("delete cash desk", err)
	}
	return desk, nil
}

// GetSummary returns the desk with its operation aggregates: transaction
// count, actual income/expense and the calculated balance over all
// actual-status amounts. The stored baseline stays untouched next to them.
func (r *CashDeskRepository) GetSummary(ctx context.Context, id int64) (*model.CashDeskSummary, error) {
	var row cashDeskAggregateRow
	res := r.buildSummaryQuery(ctx).Where("cd.id = ?", id).Scan(&row)
	if res.Error != nil {
		return nil, apperr.Persistence("load cash desk summary", res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, apperr.NotFound("cash desk %d not found", id)
	}
	return toCashDeskSummary(&row), nil
}

func (r *CashDeskRepository) ListSummaries(ctx context.Context, f model.CashDeskFilter) ([]*model.CashDeskSummary, error) {
	q := r.buildSummaryQuery(ctx)

	if f.Search != nil && *f.Search != "" {
		q = q.Where("LOWER(cd.name) LIKE ?", "%"+strings.ToLower(*f.Search)+"%")
	}
	if f.ActiveOnly {
		q = q.Where("cd.is_active = ?", true)
	}

	var rows []*cashDeskAggregateRow
	if err := q.Order("cd.created_at DESC").Scan(&rows).Error; err != nil {
		return nil, apperr.Persistence("list cash desk summaries", err)
	}

	summaries := make([]*model.CashDeskSummary, len(rows))
	for i, row := range rows {
		summaries[i] = toCashDeskSummary(row)
	}
	return summaries, nil
}

func (r *CashDeskRepository) buildSummaryQuery(ctx context.Context) *gorm.DB {
	return r.Read(ctx).WithContext(ctx).
		Table("cash_desks AS cd").
		Select(`
            cd.id                                   AS id,
            cd.name                                 AS name,
            cd.baseline_balance                     AS baseline_balance,
            cd.description                          AS description,
            cd.is_active                            AS is_active,
            cd.created_at                           AS created_at,
            cd.updated_at                           AS updated_at,
            COUNT(f.id)                             AS transactions_count,
            COALESCE(SUM(CASE WHEN f.type = 'income'  AND f.status = 'actual' THEN f.amount ELSE 0 END), 0) AS actual_income,
            COALESCE(SUM(CASE WHEN f.type = 'expense' AND f.status = 'actual' THEN f.amount ELSE 0 END), 0) AS actual_expense,
            COALESCE(SUM(CASE WHEN f.status = 'actual' THEN f.amount ELSE 0 END), 0)                        AS calculated_balance
        `).
		Joins("LEFT JOIN finances AS f ON f.cash_desk_id = cd.id").
		Group(`
            cd.id,
            cd.name,
            cd.baseline_balance,
            cd.description,
            cd.is_active,
            cd.created_at,
            cd.updated_at
        `)
}
