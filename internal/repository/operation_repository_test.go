package repository

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kassaflow/ledger/internal/apperr"
	"github.com/kassaflow/ledger/internal/model"
)

func seedDesk(t *testing.T, repo *CashDeskRepository, name string) *model.CashDesk {
	t.Helper()
	desk, err := repo.Create(context.Background(), &model.CashDesk{Name: name, IsActive: true})
	require.NoError(t, err)
	return desk
}

func TestOperationRepository_CreateAndGet(t *testing.T) {
	db := setupTestDB(t).DB
	deskRepo := NewCashDeskRepository(db)
	repo := NewOperationRepository(db)
	ctx := context.Background()

	desk := seedDesk(t, deskRepo, "Main")

	t.Run("create and load", func(t *testing.T) {
		op, err := repo.Create(ctx, &model.Operation{
			Date:        time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC),
			Amount:      decimal.NewFromFloat(150.25),
			Type:        model.OperationTypeIncome,
			Status:      model.OperationStatusActual,
			Description: "invoice 42",
			Category:    "sales",
			CashDeskID:  desk.ID,
		})
		require.NoError(t, err)
		assert.NotZero(t, op.ID)

		loaded, err := repo.GetByID(ctx, op.ID)
		require.NoError(t, err)
		assert.True(t, loaded.Amount.Equal(decimal.NewFromFloat(150.25)))
		assert.Equal(t, model.OperationTypeIncome, loaded.Type)
		assert.Nil(t, loaded.TransferPairID)
	})

	t.Run("detail joins desk name", func(t *testing.T) {
		op, err := repo.Create(ctx, &model.Operation{
			Date:       time.Date(2024, 5, 2, 0, 0, 0, 0, time.UTC),
			Amount:     decimal.NewFromInt(-40),
			Type:       model.OperationTypeExpense,
			Status:     model.OperationStatusActual,
			Category:   "office",
			CashDeskID: desk.ID,
		})
		require.NoError(t, err)

		detail, err := repo.GetDetail(ctx, op.ID)
		require.NoError(t, err)
		assert.Equal(t, "Main", detail.CashDeskName)
	})

	t.Run("missing operation", func(t *testing.T) {
		_, err := repo.GetByID(ctx, 9999)
		require.Error(t, err)
		assert.True(t, apperr.IsKind(err, apperr.KindNotFound))
	})
}

func TestOperationRepository_List(t *testing.T) {
	db := setupTestDB(t).DB
	deskRepo := NewCashDeskRepository(db)
	repo := NewOperationRepository(db)
	ctx := context.Background()

	main := seedDesk(t, deskRepo, "Main")
	safe := seedDesk(t, deskRepo, "Safe")

	seed := []struct {
		date     time.Time
		amount   decimal.Decimal
		opType   model.OperationType
		status   model.OperationStatus
		category string
		desc     string
		deskID   int64
	}{
		{time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC), decimal.NewFromInt(100), model.OperationTypeIncome, model.OperationStatusActual, "sales", "first invoice", main.ID},
		{time.Date(2024, 5, 2, 0, 0, 0, 0, time.UTC), decimal.NewFromInt(-30), model.OperationTypeExpense, model.OperationStatusActual, "office", "paper", main.ID},
		{time.Date(2024, 5, 3, 0, 0, 0, 0, time.UTC), decimal.NewFromInt(200), model.OperationTypeIncome, model.OperationStatusPlanned, "sales", "expected payment", safe.ID},
	}
	for _, s := range seed {
		_, err := repo.Create(ctx, &model.Operation{
			Date: s.date, Amount: s.amount, Type: s.opType, Status: s.status,
			Category: s.category, Description: s.desc, CashDeskID: s.deskID,
		})
		require.NoError(t, err)
	}

	t.Run("no filter returns everything newest first", func(t *testing.T) {
		items, err := repo.List(ctx, model.OperationFilter{})
		require.NoError(t, err)
		require.Len(t, items, 3)
		assert.Equal(t, "expected payment", items[0].Description)
	})

	t.Run("status filter", func(t *testing.T) {
		status := model.OperationStatusActual
		items, err := repo.List(ctx, model.OperationFilter{Status: &status})
		require.NoError(t, err)
		assert.Len(t, items, 2)
	})

	t.Run("date range filter", func(t *testing.T) {
		from := time.Date(2024, 5, 2, 0, 0, 0, 0, time.UTC)
		to := time.Date(2024, 5, 2, 0, 0, 0, 0, time.UTC)
		items, err := repo.List(ctx, model.OperationFilter{DateFrom: &from, DateTo: &to})
		require.NoError(t, err)
		require.Len(t, items, 1)
		assert.Equal(t, "paper", items[0].Description)
	})

	t.Run("desk filter", func(t *testing.T) {
		items, err := repo.List(ctx, model.OperationFilter{CashDeskID: &safe.ID})
		require.NoError(t, err)
		require.Len(t, items, 1)
		assert.Equal(t, "Safe", items[0].CashDeskName)
	})

	t.Run("category filter", func(t *testing.T) {
		category := "office"
		items, err := repo.List(ctx, model.OperationFilter{Category: &category})
		require.NoError(t, err)
		assert.Len(t, items, 1)
	})

	t.Run("description search", func(t *testing.T) {
		search := "invoice"
		items, err := repo.List(ctx, model.OperationFilter{DescriptionLike: &search})
		require.NoError(t, err)
		assert.Len(t, items, 1)
	})
}

func TestOperationRepository_TransferPairLinking(t *testing.T) {
	db := setupTestDB(t).DB
	deskRepo := NewCashDeskRepository(db)
	repo := NewOperationRepository(db)
	ctx := context.Background()

	main := seedDesk(t, deskRepo, "Main")
	safe := seedDesk(t, deskRepo, "Safe")
	day := time.Date(2024, 5, 10, 0, 0, 0, 0, time.UTC)

	createPair := func(t *testing.T) (*model.Operation, *model.Operation) {
		t.Helper()
		outgoing, err := repo.Create(ctx, &model.Operation{
			Date: day, Amount: decimal.NewFromInt(-500),
			Type: model.OperationTypeTransfer, Status: model.OperationStatusActual,
			Category: model.TransferCategory, CashDeskID: main.ID,
		})
		require.NoError(t, err)

		incoming, err := repo.Create(ctx, &model.Operation{
			Date: day, Amount: decimal.NewFromInt(500),
			Type: model.OperationTypeTransfer, Status: model.OperationStatusActual,
			Category: model.TransferCategory, CashDeskID: safe.ID,
			TransferPairID: &outgoing.ID,
		})
		require.NoError(t, err)

		require.NoError(t, repo.SetTransferPairID(ctx, outgoing.ID, incoming.ID))
		outgoing.TransferPairID = &incoming.ID
		return outgoing, incoming
	}

	t.Run("mutual references resolve in both directions", func(t *testing.T) {
		outgoing, incoming := createPair(t)

		sibling, err := repo.GetPairLeg(ctx, outgoing)
		require.NoError(t, err)
		assert.Equal(t, incoming.ID, sibling.ID)
		assert.True(t, sibling.Amount.Equal(outgoing.Amount.Neg()), "legs are additive inverses")

		sibling, err = repo.GetPairLeg(ctx, incoming)
		require.NoError(t, err)
		assert.Equal(t, outgoing.ID, sibling.ID)
	})

	t.Run("one-directional reference does not qualify", func(t *testing.T) {
		orphanTarget, err := repo.Create(ctx, &model.Operation{
			Date: day, Amount: decimal.NewFromInt(100),
			Type: model.OperationTypeTransfer, Status: model.OperationStatusActual,
			CashDeskID: safe.ID,
		})
		require.NoError(t, err)

		orphan, err := repo.Create(ctx, &model.Operation{
			Date: day, Amount: decimal.NewFromInt(-100),
			Type: model.OperationTypeTransfer, Status: model.OperationStatusActual,
			CashDeskID: main.ID, TransferPairID: &orphanTarget.ID,
		})
		require.NoError(t, err)

		_, err = repo.GetPairLeg(ctx, orphan)
		require.Error(t, err)
		assert.True(t, apperr.IsKind(err, apperr.KindInvalidTransfer))
	})

	t.Run("leg without pair reference", func(t *testing.T) {
		plain, err := repo.Create(ctx, &model.Operation{
			Date: day, Amount: decimal.NewFromInt(10),
			Type: model.OperationTypeIncome, Status: model.OperationStatusActual,
			CashDeskID: main.ID,
		})
		require.NoError(t, err)

		_, err = repo.GetPairLeg(ctx, plain)
		require.Error(t, err)
		assert.True(t, apperr.IsKind(err, apperr.KindInvalidTransfer))
	})

	t.Run("DeleteBoth removes exactly the pair", func(t *testing.T) {
		outgoing, incoming := createPair(t)

		removed, err := repo.DeleteBoth(ctx, outgoing.ID, incoming.ID)
		require.NoError(t, err)
		assert.Equal(t, int64(2), removed)

		_, err = repo.GetByID(ctx, outgoing.ID)
		assert.True(t, apperr.IsKind(err, apperr.KindNotFound))
		_, err = repo.GetByID(ctx, incoming.ID)
		assert.True(t, apperr.IsKind(err, apperr.KindNotFound))
	})
}

func TestOperationRepository_TransferPairRollback(t *testing.T) {
	db := setupTestDB(t).DB
	deskRepo := NewCashDeskRepository(db)
	repo := NewOperationRepository(db)
	ctx := context.Background()

	main := seedDesk(t, deskRepo, "Main")
	safe := seedDesk(t, deskRepo, "Safe")
	day := time.Date(2024, 5, 10, 0, 0, 0, 0, time.UTC)

	var outgoingID, incomingID int64
	err := repo.WithinTransaction(ctx, func(ctx context.Context) error {
		outgoing, err := repo.Create(ctx, &model.Operation{
			Date: day, Amount: decimal.NewFromInt(-500),
			Type: model.OperationTypeTransfer, Status: model.OperationStatusActual,
			Category: model.TransferCategory, CashDeskID: main.ID,
		})
		if err != nil {
			return err
		}
		outgoingID = outgoing.ID

		incoming, err := repo.Create(ctx, &model.Operation{
			Date: day, Amount: decimal.NewFromInt(500),
			Type: model.OperationTypeTransfer, Status: model.OperationStatusActual,
			Category: model.TransferCategory, CashDeskID: safe.ID,
			TransferPairID: &outgoing.ID,
		})
		if err != nil {
			return err
		}
		incomingID = incoming.ID

		// linking a row that does not exist fails the final step
		return repo.SetTransferPairID(ctx, incoming.ID+1000, outgoing.ID)
	})
	require.Error(t, err)
	assert.True(t, apperr.IsKind(err, apperr.KindNotFound))

	_, err = repo.GetByID(ctx, outgoingID)
	assert.True(t, apperr.IsKind(err, apperr.KindNotFound), "outgoing leg must not survive the rollback")
	_, err = repo.GetByID(ctx, incomingID)
	assert.True(t, apperr.IsKind(err, apperr.KindNotFound), "incoming leg must not survive the rollback")

	rows, err := repo.List(ctx, model.OperationFilter{})
	require.NoError(t, err)
	assert.Empty(t, rows, "a failed pair creation leaves zero rows")
}

func TestOperationRepository_ListActualByDeskUpTo(t *testing.T) {
	db := setupTestDB(t).DB
	deskRepo := NewCashDeskRepository(db)
	repo := NewOperationRepository(db)
	ctx := context.Background()

	desk := seedDesk(t, deskRepo, "Main")
	other := seedDesk(t, deskRepo, "Safe")

	dates := []time.Time{
		time.Date(2024, 5, 3, 0, 0, 0, 0, time.UTC),
		time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2024, 5, 2, 0, 0, 0, 0, time.UTC),
	}
	for i, d := range dates {
		_, err := repo.Create(ctx, &model.Operation{
			Date: d, Amount: decimal.NewFromInt(int64(i + 1)),
			Type: model.OperationTypeIncome, Status: model.OperationStatusActual,
			CashDeskID: desk.ID,
		})
		require.NoError(t, err)
	}
	// Noise: planned row and a foreign desk row, both excluded.
	_, err := repo.Create(ctx, &model.Operation{
		Date: dates[0], Amount: decimal.NewFromInt(99),
		Type: model.OperationTypeIncome, Status: model.OperationStatusPlanned,
		CashDeskID: desk.ID,
	})
	require.NoError(t, err)
	_, err = repo.Create(ctx, &model.Operation{
		Date: dates[0], Amount: decimal.NewFromInt(77),
		Type: model.OperationTypeIncome, Status: model.OperationStatusActual,
		CashDeskID: other.ID,
	})
	require.NoError(t, err)

	ops, err := repo.ListActualByDeskUpTo(ctx, desk.ID, time.Date(2024, 5, 2, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	require.Len(t, ops, 2)
	assert.True(t, ops[0].Date.Before(ops[1].Date), "ordered by date ascending")
}

func TestOperationRepository_SummaryStats(t *testing.T) {
	db := setupTestDB(t).DB
	deskRepo := NewCashDeskRepository(db)
	repo := NewOperationRepository(db)
	ctx := context.Background()

	main := seedDesk(t, deskRepo, "Main")
	safe := seedDesk(t, deskRepo, "Safe")
	day := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)

	seed := []struct {
		amount decimal.Decimal
		opType model.OperationType
		status model.OperationStatus
		deskID int64
	}{
		{decimal.NewFromInt(1000), model.OperationTypeIncome, model.OperationStatusActual, main.ID},
		{decimal.NewFromInt(-400), model.OperationTypeExpense, model.OperationStatusActual, main.ID},
		{decimal.NewFromInt(250), model.OperationTypeIncome, model.OperationStatusPlanned, main.ID},
		{decimal.NewFromInt(-300), model.OperationTypeTransfer, model.OperationStatusActual, main.ID},
		{decimal.NewFromInt(300), model.OperationTypeTransfer, model.OperationStatusActual, safe.ID},
	}
	for _, s := range seed {
		_, err := repo.Create(ctx, &model.Operation{
			Date: day, Amount: s.amount, Type: s.opType, Status: s.status, CashDeskID: s.deskID,
		})
		require.NoError(t, err)
	}

	stats, err := repo.SummaryStats(ctx, nil, nil)
	require.NoError(t, err)

	assert.Equal(t, int64(3), stats.TotalOperations, "transfer legs excluded from headline count")
	assert.Equal(t, int64(2), stats.ActualOperations)
	assert.Equal(t, int64(1), stats.PlannedOperations)
	assert.True(t, stats.ActualIncome.Equal(decimal.NewFromInt(1000)))
	assert.True(t, stats.ActualExpense.Equal(decimal.NewFromInt(400)), "expense reported absolute")
	assert.True(t, stats.ActualBalance.Equal(decimal.NewFromInt(600)))
	assert.Equal(t, int64(2), stats.TransferCount)
	assert.True(t, stats.TransferAmount.Equal(decimal.NewFromInt(300)), "one direction counted once")
}

func TestOperationRepository_CategoryTotals(t *testing.T) {
	db := setupTestDB(t).DB
	deskRepo := NewCashDeskRepository(db)
	repo := NewOperationRepository(db)
	ctx := context.Background()

	desk := seedDesk(t, deskRepo, "Main")
	day := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)

	seed := []struct {
		amount   decimal.Decimal
		opType   model.OperationType
		category string
	}{
		{decimal.NewFromInt(100), model.OperationTypeIncome, "sales"},
		{decimal.NewFromInt(200), model.OperationTypeIncome, "sales"},
		{decimal.NewFromInt(-50), model.OperationTypeExpense, "office"},
	}
	for _, s := range seed {
		_, err := repo.Create(ctx, &model.Operation{
			Date: day, Amount: s.amount, Type: s.opType,
			Status: model.OperationStatusActual, Category: s.category, CashDeskID: desk.ID,
		})
		require.NoError(t, err)
	}

	income, expense, err := repo.CategoryTotals(ctx, day, day)
	require.NoError(t, err)

	require.Contains(t, income, "sales")
	assert.True(t, income["sales"].Amount.Equal(decimal.NewFromInt(300)))
	assert.Equal(t, int64(2), income["sales"].OperationsCount)

	require.Contains(t, expense, "office")
	assert.True(t, expense["office"].Amount.Equal(decimal.NewFromInt(-50)))
}
