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

func TestCashDeskRepository_Create(t *testing.T) {
	db := setupTestDB(t).DB
	repo := NewCashDeskRepository(db)
	ctx := context.Background()

	t.Run("create cash desk successfully", func(t *testing.T) {
		desk := &model.CashDesk{
			Name:            "Main",
			BaselineBalance: decimal.NewFromInt(1000),
			Description:     "front office",
			IsActive:        true,
		}

		created, err := repo.Create(ctx, desk)
		require.NoError(t, err)
		assert.NotZero(t, created.ID)
		assert.Equal(t, "Main", created.Name)
		assert.True(t, created.BaselineBalance.Equal(decimal.NewFromInt(1000)))
		assert.NotZero(t, created.CreatedAt)
	})

	t.Run("duplicate name refused", func(t *testing.T) {
		_, err := repo.Create(ctx, &model.CashDesk{Name: "Main", IsActive: true})
		require.Error(t, err)
		assert.True(t, apperr.IsKind(err, apperr.KindDuplicateName))
	})

	t.Run("name is trimmed before uniqueness check", func(t *testing.T) {
		_, err := repo.Create(ctx, &model.CashDesk{Name: "  Main  ", IsActive: true})
		require.Error(t, err)
		assert.True(t, apperr.IsKind(err, apperr.KindDuplicateName))
	})
}

func TestCashDeskRepository_Update(t *testing.T) {
	db := setupTestDB(t).DB
	repo := NewCashDeskRepository(db)
	ctx := context.Background()

	first, err := repo.Create(ctx, &model.CashDesk{Name: "Main", IsActive: true})
	require.NoError(t, err)
	_, err = repo.Create(ctx, &model.CashDesk{Name: "Safe", IsActive: true})
	require.NoError(t, err)

	t.Run("partial update keeps other fields", func(t *testing.T) {
		balance := decimal.NewFromFloat(250.50)
		updated, err := repo.Update(ctx, first.ID, model.CashDeskUpdateRequest{
			BaselineBalance: &balance,
		})
		require.NoError(t, err)
		assert.Equal(t, "Main", updated.Name)
		assert.True(t, updated.BaselineBalance.Equal(balance))
	})

	t.Run("update stamps updated_at", func(t *testing.T) {
		before, err := repo.GetByID(ctx, first.ID)
		require.NoError(t, err)

		time.Sleep(10 * time.Millisecond)

		desc := "updated"
		updated, err := repo.Update(ctx, first.ID, model.CashDeskUpdateRequest{Description: &desc})
		require.NoError(t, err)
		assert.True(t, updated.UpdatedAt.After(before.UpdatedAt))
	})

	t.Run("rename to existing name refused", func(t *testing.T) {
		name := "Safe"
		_, err := repo.Update(ctx, first.ID, model.CashDeskUpdateRequest{Name: &name})
		require.Error(t, err)
		assert.True(t, apperr.IsKind(err, apperr.KindDuplicateName))
	})

	t.Run("rename to own name allowed", func(t *testing.T) {
		name := "Main"
		updated, err := repo.Update(ctx, first.ID, model.CashDeskUpdateRequest{Name: &name})
		require.NoError(t, err)
		assert.Equal(t, "Main", updated.Name)
	})

	t.Run("missing desk", func(t *testing.T) {
		name := "Ghost"
		_, err := repo.Update(ctx, 9999, model.CashDeskUpdateRequest{Name: &name})
		require.Error(t, err)
		assert.True(t, apperr.IsKind(err, apperr.KindNotFound))
	})
}

func TestCashDeskRepository_Delete(t *testing.T) {
	db := setupTestDB(t).DB
	repo := NewCashDeskRepository(db)
	opRepo := NewOperationRepository(db)
	ctx := context.Background()

	t.Run("delete empty desk", func(t *testing.T) {
		desk, err := repo.Create(ctx, &model.CashDesk{Name: "Temporary", IsActive: true})
		require.NoError(t, err)

		deleted, err := repo.Delete(ctx, desk.ID)
		require.NoError(t, err)
		assert.Equal(t, desk.ID, deleted.ID)

		_, err = repo.GetByID(ctx, desk.ID)
		assert.True(t, apperr.IsKind(err, apperr.KindNotFound))
	})

	t.Run("delete refused while operations reference the desk", func(t *testing.T) {
		desk, err := repo.Create(ctx, &model.CashDesk{Name: "Busy", IsActive: true})
		require.NoError(t, err)

		_, err = opRepo.Create(ctx, &model.Operation{
			Date:       time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC),
			Amount:     decimal.NewFromInt(100),
			Type:       model.OperationTypeIncome,
			Status:     model.OperationStatusActual,
			CashDeskID: desk.ID,
		})
		require.NoError(t, err)

		_, err = repo.Delete(ctx, desk.ID)
		require.Error(t, err)
		assert.True(t, apperr.IsKind(err, apperr.KindBusinessRule))

		// Still there
		_, err = repo.GetByID(ctx, desk.ID)
		require.NoError(t, err)
	})
}

func TestCashDeskRepository_GetSummary(t *testing.T) {
	db := setupTestDB(t).DB
	repo := NewCashDeskRepository(db)
	opRepo := NewOperationRepository(db)
	ctx := context.Background()

	desk, err := repo.Create(ctx, &model.CashDesk{
		Name:            "Main",
		BaselineBalance: decimal.NewFromInt(300),
		IsActive:        true,
	})
	require.NoError(t, err)

	day := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	seed := []struct {
		amount decimal.Decimal
		opType model.OperationType
		status model.OperationStatus
	}{
		{decimal.NewFromInt(500), model.OperationTypeIncome, model.OperationStatusActual},
		{decimal.NewFromInt(-200), model.OperationTypeExpense, model.OperationStatusActual},
		{decimal.NewFromInt(100), model.OperationTypeIncome, model.OperationStatusPlanned},
	}
	for _, s := range seed {
		_, err := opRepo.Create(ctx, &model.Operation{
			Date:       day,
			Amount:     s.amount,
			Type:       s.opType,
			Status:     s.status,
			CashDeskID: desk.ID,
		})
		require.NoError(t, err)
	}

	t.Run("aggregates next to stored baseline", func(t *testing.T) {
		summary, err := repo.GetSummary(ctx, desk.ID)
		require.NoError(t, err)

		assert.Equal(t, int64(3), summary.TransactionsCount)
		assert.True(t, summary.ActualIncome.Equal(decimal.NewFromInt(500)), "actual income %s", summary.ActualIncome)
		assert.True(t, summary.ActualExpense.Equal(decimal.NewFromInt(200)), "actual expense reported absolute, got %s", summary.ActualExpense)
		assert.True(t, summary.CalculatedBalance.Equal(decimal.NewFromInt(300)), "calculated balance %s", summary.CalculatedBalance)
		assert.True(t, summary.BaselineBalance.Equal(decimal.NewFromInt(300)))
		assert.Nil(t, summary.Discrepancy, "baseline matches the ledger, no discrepancy expected")
	})

	t.Run("drift beyond tolerance surfaces a discrepancy", func(t *testing.T) {
		newBaseline := decimal.NewFromInt(250)
		_, err := repo.Update(ctx, desk.ID, model.CashDeskUpdateRequest{BaselineBalance: &newBaseline})
		require.NoError(t, err)

		summary, err := repo.GetSummary(ctx, desk.ID)
		require.NoError(t, err)
		require.NotNil(t, summary.Discrepancy)
		assert.True(t, summary.Discrepancy.Equal(decimal.NewFromInt(50)), "got %s", summary.Discrepancy)
	})

	t.Run("desk with no operations", func(t *testing.T) {
		empty, err := repo.Create(ctx, &model.CashDesk{
			Name:            "Empty",
			BaselineBalance: decimal.NewFromInt(10),
			IsActive:        true,
		})
		require.NoError(t, err)

		summary, err := repo.GetSummary(ctx, empty.ID)
		require.NoError(t, err)
		assert.Equal(t, int64(0), summary.TransactionsCount)
		assert.True(t, summary.CalculatedBalance.IsZero())
		require.NotNil(t, summary.Discrepancy)
		assert.True(t, summary.Discrepancy.Equal(decimal.NewFromInt(-10)))
	})

	t.Run("missing desk", func(t *testing.T) {
		_, err := repo.GetSummary(ctx, 9999)
		require.Error(t, err)
		assert.True(t, apperr.IsKind(err, apperr.KindNotFound))
	})
}

func TestCashDeskRepository_ListSummaries(t *testing.T) {
	db := setupTestDB(t).DB
	repo := NewCashDeskRepository(db)
	ctx := context.Background()

	_, err := repo.Create(ctx, &model.CashDesk{Name: "Main office", IsActive: true})
	require.NoError(t, err)
	_, err = repo.Create(ctx, &model.CashDesk{Name: "Safe", IsActive: false})
	require.NoError(t, err)

	t.Run("all desks", func(t *testing.T) {
		summaries, err := repo.ListSummaries(ctx, model.CashDeskFilter{})
		require.NoError(t, err)
		assert.Len(t, summaries, 2)
	})

	t.Run("active only", func(t *testing.T) {
		summaries, err := repo.ListSummaries(ctx, model.CashDeskFilter{ActiveOnly: true})
		require.NoError(t, err)
		require.Len(t, summaries, 1)
		assert.Equal(t, "Main office", summaries[0].Name)
	})

	t.Run("search is case-insensitive", func(t *testing.T) {
		search := "main"
		summaries, err := repo.ListSummaries(ctx, model.CashDeskFilter{Search: &search})
		require.NoError(t, err)
		require.Len(t, summaries, 1)
		assert.Equal(t, "Main office", summaries[0].Name)
	})
}
