package services

import (
	"context"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/kassaflow/ledger/internal/apperr"
	"github.com/kassaflow/ledger/internal/model"
	"github.com/kassaflow/ledger/pkg/logger"
	"github.com/kassaflow/ledger/pkg/prom"
)

type OperationRepository interface {
	Create(ctx context.Context, op *model.Operation) (*model.Operation, error)
	GetByID(ctx context.Context, id int64) (*model.Operation, error)
	GetDetail(ctx context.Context, id int64) (*model.OperationDetail, error)
	List(ctx context.Context, f model.OperationFilter) ([]*model.OperationDetail, error)
	Update(ctx context.Context, id int64, op *model.Operation) (*model.Operation, error)
	Delete(ctx context.Context, id int64) error
	GetPairLeg(ctx context.Context, leg *model.Operation) (*model.Operation, error)
	SetTransferPairID(ctx context.Context, id, pairID int64) error
	DeleteBoth(ctx context.Context, idA, idB int64) (int64, error)
	SummaryStats(ctx context.Context, from, to *time.Time) (*model.SummaryStats, error)
	CategoryTotals(ctx context.Context, from, to time.Time) (map[string]model.CategoryTotal, map[string]model.CategoryTotal, error)
}

type CashDeskRepository interface {
	GetByID(ctx context.Context, id int64) (*model.CashDesk, error)
	GetForUpdate(ctx context.Context, id int64) (*model.CashDesk, error)
	WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

type ClientRepository interface {
	GetByID(ctx context.Context, id int64) (*model.Client, error)
	FindByEmail(ctx context.Context, email string) (*model.Client, error)
}

type WorkerRepository interface {
	GetByID(ctx context.Context, id int64) (*model.Worker, error)
	FindByTelegram(ctx context.Context, handle string) (*model.Worker, error)
}

// EventPublisher pushes operation events onto the notification queue.
type EventPublisher interface {
	PublishJSON(ctx context.Context, data interface{}, metadata map[string]string) (string, error)
}

// OperationService is the only write path into the finance log: single-leg
// income/expense operations and transfer pairs between desks.
type OperationService struct {
	operationRepo OperationRepository
	cashDeskRepo  CashDeskRepository
	clientRepo    ClientRepository
	workerRepo    WorkerRepository
	events        EventPublisher
}

func NewOperationService(operationRepo OperationRepository, cashDeskRepo CashDeskRepository, clientRepo ClientRepository, workerRepo WorkerRepository, events EventPublisher) *OperationService {
	return &OperationService{
		operationRepo: operationRepo,
		cashDeskRepo:  cashDeskRepo,
		clientRepo:    clientRepo,
		workerRepo:    workerRepo,
		events:        events,
	}
}

// Create records a single-leg income/expense operation. The client may be
// referenced by id or email, the worker by id or telegram handle; unresolved
// references fail before anything is written. The stored amount is negated
// for expenses — this is the single place the sign convention is applied.
func (s *OperationService) Create(ctx context.Context, p model.OperationCreateRequest) (*model.OperationDetail, error) {
	if err := p.Validate(); err != nil {
		return nil, apperr.Validation("%s", err.Error())
	}

	clientID := p.ClientID
	if clientID == nil && p.ClientEmail != "" {
		client, err := s.clientRepo.FindByEmail(ctx, p.ClientEmail)
		if err != nil {
			return nil, err
		}
		clientID = &client.ID
	}

	workerID := p.WorkerID
	if workerID == nil && p.WorkerTelegram != "" {
		worker, err := s.workerRepo.FindByTelegram(ctx, p.WorkerTelegram)
		if err != nil {
			return nil, err
		}
		workerID = &worker.ID
	}

	if clientID != nil {
		if _, err := s.clientRepo.GetByID(ctx, *clientID); err != nil {
			return nil, err
		}
	}
	if workerID != nil {
		if _, err := s.workerRepo.GetByID(ctx, *workerID); err != nil {
			return nil, err
		}
	}

	if p.CashDeskID == 0 {
		return nil, apperr.BusinessRule("cash desk is required")
	}
	if _, err := s.cashDeskRepo.GetByID(ctx, p.CashDeskID); err != nil {
		return nil, err
	}

	op := &model.Operation{
		Date:        p.Date,
		Amount:      normalizeAmount(p.Type, p.Amount),
		Type:        p.Type,
		Status:      p.Status,
		Description: p.Description,
		Category:    p.Category,
		ClientID:    clientID,
		WorkerID:    workerID,
		CashDeskID:  p.CashDeskID,
	}

	created, err := s.operationRepo.Create(ctx, op)
	if err != nil {
		return nil, err
	}

	prom.OperationCreated(string(created.Type))
	s.publish(ctx, model.EventOperationCreated, created)

	return s.operationRepo.GetDetail(ctx, created.ID)
}

// Update replaces a single-leg operation. Transfer legs are immutable
// through this path; the whole pair must be deleted instead.
func (s *OperationService) Update(ctx context.Context, id int64, p model.OperationUpdateRequest) (*model.OperationDetail, error) {
	if err := p.Validate(); err != nil {
		return nil, apperr.Validation("%s", err.Error())
	}

	existing, err := s.operationRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if existing.Type == model.OperationTypeTransfer {
		return nil, apperr.BusinessRule("transfer operations cannot be edited; delete the pair instead")
	}

	if p.ClientID != nil {
		if _, err := s.clientRepo.GetByID(ctx, *p.ClientID); err != nil {
			return nil, err
		}
	}
	if p.CashDeskID == 0 {
		return nil, apperr.BusinessRule("cash desk is required")
	}
	if _, err := s.cashDeskRepo.GetByID(ctx, p.CashDeskID); err != nil {
		return nil, err
	}

	op := &model.Operation{
		Date:        p.Date,
		Amount:      normalizeAmount(p.Type, p.Amount),
		Type:        p.Type,
		Status:      p.Status,
		Description: p.Description,
		Category:    p.Category,
		ClientID:    p.ClientID,
		CashDeskID:  p.CashDeskID,
	}

	updated, err := s.operationRepo.Update(ctx, id, op)
	if err != nil {
		return nil, err
	}

	s.publish(ctx, model.EventOperationUpdated, updated)

	return s.operationRepo.GetDetail(ctx, updated.ID)
}

// Delete removes an operation. Deleting either leg of a transfer pair
// removes both legs atomically.
func (s *OperationService) Delete(ctx context.Context, id int64) (int64, error) {
	existing, err := s.operationRepo.GetByID(ctx, id)
	if err != nil {
		return 0, err
	}

	if existing.IsTransferLeg() {
		return s.deleteTransferPair(ctx, existing)
	}

	if err := s.operationRepo.Delete(ctx, id); err != nil {
		return 0, err
	}

	s.publish(ctx, model.EventOperationDeleted, existing)
	return 1, nil
}

func (s *OperationService) Get(ctx context.Context, id int64) (*model.OperationDetail, error) {
	return s.operationRepo.GetDetail(ctx, id)
}

func (s *OperationService) List(ctx context.Context, f model.OperationFilter) ([]*model.OperationDetail, error) {
	return s.operationRepo.List(ctx, f)
}

// ListByClient returns a client's operations; the client must exist.
func (s *OperationService) ListByClient(ctx context.Context, clientID int64) ([]*model.OperationDetail, error) {
	if _, err := s.clientRepo.GetByID(ctx, clientID); err != nil {
		return nil, err
	}
	return s.operationRepo.List(ctx, model.OperationFilter{ClientID: &clientID})
}

// CreateTransferPair moves money between two desks as a pair of mutually
// referencing transfer legs. The three writes (outgoing insert, incoming
// insert, cross-reference update) run inside one transaction; both desk rows
// are locked for its duration. Either both legs exist afterwards or neither.
func (s *OperationService) CreateTransferPair(ctx context.Context, p model.TransferRequest) (*model.TransferResult, error) {
	if err := p.Validate(); err != nil {
		return nil, apperr.Validation("%s", err.Error())
	}
	if p.FromCashDeskID == p.ToCashDeskID {
		return nil, apperr.InvalidTransfer("source and destination cash desks must differ")
	}

	from, err := s.cashDeskRepo.GetByID(ctx, p.FromCashDeskID)
	if err != nil {
		if apperr.IsKind(err, apperr.KindNotFound) {
			return nil, apperr.NotFound("source cash desk %d not found", p.FromCashDeskID)
		}
		return nil, err
	}
	to, err := s.cashDeskRepo.GetByID(ctx, p.ToCashDeskID)
	if err != nil {
		if apperr.IsKind(err, apperr.KindNotFound) {
			return nil, apperr.NotFound("destination cash desk %d not found", p.ToCashDeskID)
		}
		return nil, err
	}

	amount := p.Amount.Abs()
	description := strings.TrimSpace(p.Description)
	outDescription := description
	inDescription := description
	if description == "" {
		outDescription = "transfer (outgoing)"
		inDescription = "transfer (incoming)"
	}

	var outgoing, incoming *model.Operation
	err = s.cashDeskRepo.WithinTransaction(ctx, func(ctx context.Context) error {
		// Lock both desk rows in id order so two concurrent transfers
		// between the same desks cannot deadlock.
		firstID, secondID := p.FromCashDeskID, p.ToCashDeskID
		if secondID < firstID {
			firstID, secondID = secondID, firstID
		}
		if _, err := s.cashDeskRepo.GetForUpdate(ctx, firstID); err != nil {
			return err
		}
		if _, err := s.cashDeskRepo.GetForUpdate(ctx, secondID); err != nil {
			return err
		}

		outgoing, err = s.operationRepo.Create(ctx, &model.Operation{
			Date:        p.Date,
			Amount:      amount.Neg(),
			Type:        model.OperationTypeTransfer,
			Status:      model.OperationStatusActual,
			Description: outDescription,
			Category:    model.TransferCategory,
			CashDeskID:  p.FromCashDeskID,
		})
		if err != nil {
			return err
		}

		incoming, err = s.operationRepo.Create(ctx, &model.Operation{
			Date:           p.Date,
			Amount:         amount,
			Type:           model.OperationTypeTransfer,
			Status:         model.OperationStatusActual,
			Description:    inDescription,
			Category:       model.TransferCategory,
			CashDeskID:     p.ToCashDeskID,
			TransferPairID: &outgoing.ID,
		})
		if err != nil {
			return err
		}

		return s.operationRepo.SetTransferPairID(ctx, outgoing.ID, incoming.ID)
	})
	if err != nil {
		return nil, err
	}
	outgoing.TransferPairID = &incoming.ID

	prom.TransferCreated()
	s.publish(ctx, model.EventTransferCreated, outgoing)

	logger.Info("transfer pair created",
		"outgoing_id", outgoing.ID,
		"incoming_id", incoming.ID,
		"amount", amount.String(),
		"from", from.Name,
		"to", to.Name,
	)

	return &model.TransferResult{
		Outgoing:         outgoing,
		Incoming:         incoming,
		Amount:           amount,
		FromCashDeskName: from.Name,
		ToCashDeskName:   to.Name,
	}, nil
}

// deleteTransferPair removes both legs of a pair in one transaction and
// returns the number of rows removed (always 2 on success).
func (s *OperationService) deleteTransferPair(ctx context.Context, leg *model.Operation) (int64, error) {
	sibling, err := s.operationRepo.GetPairLeg(ctx, leg)
	if err != nil {
		return 0, err
	}

	var removed int64
	err = s.cashDeskRepo.WithinTransaction(ctx, func(ctx context.Context) error {
		removed, err = s.operationRepo.DeleteBoth(ctx, leg.ID, sibling.ID)
		return err
	})
	if err != nil {
		return 0, err
	}

	s.publish(ctx, model.EventTransferDeleted, leg)
	return removed, nil
}

// SummaryStats aggregates the log over an optional date range.
func (s *OperationService) SummaryStats(ctx context.Context, from, to *time.Time) (*model.SummaryStats, error) {
	return s.operationRepo.SummaryStats(ctx, from, to)
}

// Analytics computes profitability metrics over a validated period. Either a
// known period length or both explicit dates must be supplied.
func (s *OperationService) Analytics(ctx context.Context, periodDays int, start, end *time.Time) (*model.Analytics, error) {
	var startDate, endDate time.Time
	switch {
	case start != nil && end != nil:
		startDate, endDate = *start, *end
	default:
		if !model.IsValidPeriod(periodDays) {
			return nil, apperr.Validation("invalid period %d, valid values: 7, 14, 30, 60, 90, 180, 365", periodDays)
		}
		endDate = time.Now().UTC().Truncate(24 * time.Hour)
		startDate = endDate.AddDate(0, 0, -periodDays+1)
	}

	stats, err := s.operationRepo.SummaryStats(ctx, &startDate, &endDate)
	if err != nil {
		return nil, err
	}
	incomeCats, expenseCats, err := s.operationRepo.CategoryTotals(ctx, startDate, endDate)
	if err != nil {
		return nil, err
	}

	a := &model.Analytics{
		PeriodDays:        periodDays,
		StartDate:         startDate,
		EndDate:           endDate,
		TotalIncome:       stats.ActualIncome,
		TotalExpense:      stats.ActualExpense,
		Profit:            stats.ActualIncome.Sub(stats.ActualExpense),
		TotalOperations:   stats.ActualOperations,
		IncomeByCategory:  incomeCats,
		ExpenseByCategory: expenseCats,
	}
	if stats.ActualExpense.IsPositive() {
		ratio := stats.ActualIncome.DivRound(stats.ActualExpense, 2)
		a.IncomeExpenseRatio = &ratio
	}
	if stats.ActualIncome.IsPositive() {
		margin := a.Profit.DivRound(stats.ActualIncome, 4).Mul(decimal.NewFromInt(100)).Round(2)
		a.ProfitMargin = &margin
	}
	return a, nil
}

// normalizeAmount applies the sign convention: expenses are stored negative,
// income positive. Downstream aggregation relies on amounts being signed
// correctly here.
func normalizeAmount(t model.OperationType, amount decimal.Decimal) decimal.Decimal {
	if t == model.OperationTypeExpense {
		return amount.Abs().Neg()
	}
	return amount.Abs()
}

// publish sends an operation event best-effort after the write committed. A
// failed publish is logged and never fails the financial write.
func (s *OperationService) publish(ctx context.Context, kind model.EventKind, op *model.Operation) {
	if s.events == nil {
		return
	}
	event := model.OperationEvent{
		Kind:        kind,
		OperationID: op.ID,
		Type:        op.Type,
		Amount:      op.Amount,
		CashDeskID:  op.CashDeskID,
		Date:        op.Date,
		OccurredAt:  time.Now().UTC(),
	}
	if _, err := s.events.PublishJSON(ctx, event, nil); err != nil {
		logger.Warn("failed to publish operation event", "kind", kind, "operation_id", op.ID, "error", err)
	}
}
