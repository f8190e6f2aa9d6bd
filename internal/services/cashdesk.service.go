package services

import (
	"context"
	"strings"

	"github.com/kassaflow/ledger/internal/apperr"
	"github.com/kassaflow/ledger/internal/model"
	"github.com/kassaflow/ledger/pkg/logger"
)

type CashDeskRegistry interface {
	Create(ctx context.Context, desk *model.CashDesk) (*model.CashDesk, error)
	GetByID(ctx context.Context, id int64) (*model.CashDesk, error)
	List(ctx context.Context, f model.CashDeskFilter) ([]*model.CashDesk, error)
	Update(ctx context.Context, id int64, p model.CashDeskUpdateRequest) (*model.CashDesk, error)
	Delete(ctx context.Context, id int64) (*model.CashDesk, error)
	GetSummary(ctx context.Context, id int64) (*model.CashDeskSummary, error)
	ListSummaries(ctx context.Context, f model.CashDeskFilter) ([]*model.CashDeskSummary, error)
}

// CashDeskService manages the registry of named money pools and exposes the
// derived-balance read path next to each desk's stored baseline.
type CashDeskService struct {
	deskRepo      CashDeskRegistry
	operationRepo OperationRepository
}

func NewCashDeskService(deskRepo CashDeskRegistry, operationRepo OperationRepository) *CashDeskService {
	return &CashDeskService{
		deskRepo:      deskRepo,
		operationRepo: operationRepo,
	}
}

func (s *CashDeskService) Create(ctx context.Context, p model.CashDeskCreateRequest) (*model.CashDesk, error) {
	if err := p.Validate(); err != nil {
		return nil, apperr.Validation("%s", err.Error())
	}

	active := true
	if p.IsActive != nil {
		active = *p.IsActive
	}

	desk := &model.CashDesk{
		Name:            strings.TrimSpace(p.Name),
		BaselineBalance: p.BaselineBalance,
		Description:     strings.TrimSpace(p.Description),
		IsActive:        active,
	}

	created, err := s.deskRepo.Create(ctx, desk)
	if err != nil {
		return nil, err
	}

	logger.Info("cash desk created", "id", created.ID, "name", created.Name)
	return created, nil
}

func (s *CashDeskService) Update(ctx context.Context, id int64, p model.CashDeskUpdateRequest) (*model.CashDesk, error) {
	if p.Empty() {
		return nil, apperr.BusinessRule("no fields to update")
	}
	return s.deskRepo.Update(ctx, id, p)
}

func (s *CashDeskService) Delete(ctx context.Context, id int64) (*model.CashDesk, error) {
	deleted, err := s.deskRepo.Delete(ctx, id)
	if err != nil {
		return nil, err
	}
	logger.Info("cash desk deleted", "id", id, "name", deleted.Name)
	return deleted, nil
}

// Get returns the desk with its derived figures: operation count, actual
// income/expense and the calculated balance, side by side with the stored
// baseline. A drift beyond the tolerance is reported as a discrepancy.
func (s *CashDeskService) Get(ctx context.Context, id int64) (*model.CashDeskSummary, error) {
	return s.deskRepo.GetSummary(ctx, id)
}

func (s *CashDeskService) List(ctx context.Context, f model.CashDeskFilter) ([]*model.CashDeskSummary, error) {
	return s.deskRepo.ListSummaries(ctx, f)
}

// ListOperations returns every operation of one desk, newest first.
func (s *CashDeskService) ListOperations(ctx context.Context, deskID int64) ([]*model.OperationDetail, error) {
	if _, err := s.deskRepo.GetByID(ctx, deskID); err != nil {
		return nil, err
	}
	return s.operationRepo.List(ctx, model.OperationFilter{CashDeskID: &deskID})
}
