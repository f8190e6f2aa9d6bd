package services

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/kassaflow/ledger/internal/apperr"
	"github.com/kassaflow/ledger/internal/model"
	"github.com/kassaflow/ledger/pkg/logger"
	"github.com/kassaflow/ledger/pkg/prom"
)

type HistoryOperationReader interface {
	ListActualByDeskUpTo(ctx context.Context, deskID int64, end time.Time) ([]*model.Operation, error)
}

type HistoryDeskReader interface {
	GetByID(ctx context.Context, id int64) (*model.CashDesk, error)
}

// HistoryService reconstructs a desk's daily balance series. The series is
// anchored on the desk's stored baseline balance at reconstruction time, so
// two runs over the same window can differ if the baseline was adjusted in
// between.
type HistoryService struct {
	operationRepo HistoryOperationReader
	deskRepo      HistoryDeskReader
}

func NewHistoryService(operationRepo HistoryOperationReader, deskRepo HistoryDeskReader) *HistoryService {
	return &HistoryService{
		operationRepo: operationRepo,
		deskRepo:      deskRepo,
	}
}

// Reconstruct builds the daily series for the window of windowDays ending at
// endDate (today when zero), startDate = endDate - windowDays + 1, both ends
// inclusive. A window of one day yields exactly one point.
func (s *HistoryService) Reconstruct(ctx context.Context, deskID int64, windowDays int, endDate time.Time) (*model.BalanceHistory, error) {
	if windowDays < 1 {
		return nil, apperr.Validation("window must be at least 1 day, got %d", windowDays)
	}

	desk, err := s.deskRepo.GetByID(ctx, deskID)
	if err != nil {
		return nil, err
	}

	if endDate.IsZero() {
		endDate = time.Now().UTC()
	}
	endDate = truncateToDay(endDate)
	startDate := endDate.AddDate(0, 0, -windowDays+1)

	operations, err := s.operationRepo.ListActualByDeskUpTo(ctx, deskID, endDate)
	if err != nil {
		return nil, err
	}

	// Fold every operation dated strictly before the window into the anchor
	// to obtain the balance as of startDate. The operations are ordered by
	// date, so the first in-window index also marks the fold boundary.
	running := desk.BaselineBalance
	firstInWindow := len(operations)
	for i, op := range operations {
		if !truncateToDay(op.Date).Before(startDate) {
			firstInWindow = i
			break
		}
		running = running.Add(op.Amount)
	}

	byDay := make(map[string][]*model.Operation)
	for _, op := range operations[firstInWindow:] {
		key := truncateToDay(op.Date).Format(model.DateLayout)
		byDay[key] = append(byDay[key], op)
	}

	points := make([]model.BalancePoint, 0, windowDays)
	for day := startDate; !day.After(endDate); day = day.AddDate(0, 0, 1) {
		dayOps := byDay[day.Format(model.DateLayout)]

		change := decimal.Zero
		transactions := make([]model.DayTransaction, 0, len(dayOps))
		for _, op := range dayOps {
			change = change.Add(op.Amount)
			transactions = append(transactions, model.DayTransaction{
				Amount:      op.Amount,
				Type:        op.Type,
				Description: op.Description,
			})
		}

		running = running.Add(change)
		points = append(points, model.BalancePoint{
			Date:              day,
			Balance:           running.Round(2),
			DailyChange:       change.Round(2),
			TransactionsCount: len(dayOps),
			Transactions:      transactions,
		})
	}

	history := &model.BalanceHistory{
		CashDeskID:    desk.ID,
		CashDeskName:  desk.Name,
		AnchorBalance: desk.BaselineBalance,
		Points:        points,
		Stats:         summarize(points, windowDays, startDate, endDate),
	}

	prom.HistoryReconstructed()
	logger.Debug("balance history reconstructed",
		"cash_desk_id", deskID,
		"window_days", windowDays,
		"points", len(points),
	)

	return history, nil
}

// summarize derives the window statistics from the produced series.
func summarize(points []model.BalancePoint, windowDays int, startDate, endDate time.Time) model.BalanceHistoryStats {
	stats := model.BalanceHistoryStats{
		PeriodDays: windowDays,
		StartDate:  startDate,
		EndDate:    endDate,
		Trend:      model.TrendStable,
	}
	if len(points) == 0 {
		return stats
	}

	first := points[0].Balance
	last := points[len(points)-1].Balance
	min, max := first, first
	sum := decimal.Zero
	total := 0
	for _, p := range points {
		if p.Balance.LessThan(min) {
			min = p.Balance
		}
		if p.Balance.GreaterThan(max) {
			max = p.Balance
		}
		sum = sum.Add(p.Balance)
		total += p.TransactionsCount
	}

	stats.FirstBalance = first
	stats.LastBalance = last
	stats.MinBalance = min
	stats.MaxBalance = max
	stats.TotalChange = last.Sub(first)
	stats.TotalTransactions = total
	stats.AverageBalance = sum.DivRound(decimal.NewFromInt(int64(len(points))), 2)
	if !first.IsZero() {
		stats.ChangePercentage = stats.TotalChange.DivRound(first.Abs(), 4).Mul(decimal.NewFromInt(100)).Round(2)
	}

	switch {
	case last.GreaterThan(first):
		stats.Trend = model.TrendGrowing
	case last.LessThan(first):
		stats.Trend = model.TrendDeclining
	}

	return stats
}

func truncateToDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
