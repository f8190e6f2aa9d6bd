package services

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/kassaflow/ledger/internal/apperr"
	"github.com/kassaflow/ledger/internal/model"
)

type MockOperationRepository struct {
	mock.Mock
}

func (m *MockOperationRepository) Create(ctx context.Context, op *model.Operation) (*model.Operation, error) {
	args := m.Called(ctx, op)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Operation), args.Error(1)
}

func (m *MockOperationRepository) GetByID(ctx context.Context, id int64) (*model.Operation, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Operation), args.Error(1)
}

func (m *MockOperationRepository) GetDetail(ctx context.Context, id int64) (*model.OperationDetail, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.OperationDetail), args.Error(1)
}

func (m *MockOperationRepository) List(ctx context.Context, f model.OperationFilter) ([]*model.OperationDetail, error) {
	args := m.Called(ctx, f)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.OperationDetail), args.Error(1)
}

func (m *MockOperationRepository) Update(ctx context.Context, id int64, op *model.Operation) (*model.Operation, error) {
	args := m.Called(ctx, id, op)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Operation), args.Error(1)
}

func (m *MockOperationRepository) Delete(ctx context.Context, id int64) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockOperationRepository) GetPairLeg(ctx context.Context, leg *model.Operation) (*model.Operation, error) {
	args := m.Called(ctx, leg)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Operation), args.Error(1)
}

func (m *MockOperationRepository) SetTransferPairID(ctx context.Context, id, pairID int64) error {
	args := m.Called(ctx, id, pairID)
	return args.Error(0)
}

func (m *MockOperationRepository) DeleteBoth(ctx context.Context, idA, idB int64) (int64, error) {
	args := m.Called(ctx, idA, idB)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockOperationRepository) SummaryStats(ctx context.Context, from, to *time.Time) (*model.SummaryStats, error) {
	args := m.Called(ctx, from, to)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.SummaryStats), args.Error(1)
}

func (m *MockOperationRepository) CategoryTotals(ctx context.Context, from, to time.Time) (map[string]model.CategoryTotal, map[string]model.CategoryTotal, error) {
	args := m.Called(ctx, from, to)
	if args.Get(0) == nil {
		return nil, nil, args.Error(2)
	}
	return args.Get(0).(map[string]model.CategoryTotal), args.Get(1).(map[string]model.CategoryTotal), args.Error(2)
}

func (m *MockOperationRepository) ListActualByDeskUpTo(ctx context.Context, deskID int64, upTo time.Time) ([]*model.Operation, error) {
	args := m.Called(ctx, deskID, upTo)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.Operation), args.Error(1)
}

func (m *MockOperationRepository) ListActualDetailsInRange(ctx context.Context, from, to time.Time) ([]*model.OperationDetail, error) {
	args := m.Called(ctx, from, to)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.OperationDetail), args.Error(1)
}

type MockDeskRepository struct {
	mock.Mock
}

func (m *MockDeskRepository) GetByID(ctx context.Context, id int64) (*model.CashDesk, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.CashDesk), args.Error(1)
}

func (m *MockDeskRepository) GetForUpdate(ctx context.Context, id int64) (*model.CashDesk, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.CashDesk), args.Error(1)
}

func (m *MockDeskRepository) WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	args := m.Called(ctx, fn)
	if args.Error(0) != nil {
		return args.Error(0)
	}
	return fn(ctx)
}

type MockClientRepository struct {
	mock.Mock
}

func (m *MockClientRepository) GetByID(ctx context.Context, id int64) (*model.Client, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Client), args.Error(1)
}

func (m *MockClientRepository) FindByEmail(ctx context.Context, email string) (*model.Client, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Client), args.Error(1)
}

type MockWorkerRepository struct {
	mock.Mock
}

func (m *MockWorkerRepository) GetByID(ctx context.Context, id int64) (*model.Worker, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Worker), args.Error(1)
}

func (m *MockWorkerRepository) FindByTelegram(ctx context.Context, handle string) (*model.Worker, error) {
	args := m.Called(ctx, handle)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Worker), args.Error(1)
}

func newOperationService() (*OperationService, *MockOperationRepository, *MockDeskRepository, *MockClientRepository, *MockWorkerRepository) {
	opRepo := new(MockOperationRepository)
	deskRepo := new(MockDeskRepository)
	clientRepo := new(MockClientRepository)
	workerRepo := new(MockWorkerRepository)
	svc := NewOperationService(opRepo, deskRepo, clientRepo, workerRepo, nil)
	return svc, opRepo, deskRepo, clientRepo, workerRepo
}

func TestOperationService_Create_Validation(t *testing.T) {
	svc, opRepo, _, _, _ := newOperationService()
	ctx := context.Background()

	_, err := svc.Create(ctx, model.OperationCreateRequest{
		Date:       time.Now(),
		Amount:     decimal.Zero,
		Type:       model.OperationTypeIncome,
		Status:     model.OperationStatusActual,
		CashDeskID: 1,
	})
	require.Error(t, err)
	assert.True(t, apperr.IsKind(err, apperr.KindValidation))
	opRepo.AssertNotCalled(t, "Create")
}

func TestOperationService_Create_ExpenseStoredNegative(t *testing.T) {
	svc, opRepo, deskRepo, _, _ := newOperationService()
	ctx := context.Background()
	day := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)

	deskRepo.On("GetByID", ctx, int64(3)).Return(&model.CashDesk{ID: 3, Name: "Main"}, nil)
	opRepo.On("Create", ctx, mock.MatchedBy(func(op *model.Operation) bool {
		return op.Amount.Equal(decimal.NewFromInt(-120)) && op.Type == model.OperationTypeExpense
	})).Return(&model.Operation{ID: 10, Amount: decimal.NewFromInt(-120), Type: model.OperationTypeExpense, CashDeskID: 3}, nil)
	opRepo.On("GetDetail", ctx, int64(10)).Return(&model.OperationDetail{
		Operation: model.Operation{ID: 10, Amount: decimal.NewFromInt(-120)},
	}, nil)

	detail, err := svc.Create(ctx, model.OperationCreateRequest{
		Date:       day,
		Amount:     decimal.NewFromInt(120),
		Type:       model.OperationTypeExpense,
		Status:     model.OperationStatusActual,
		Category:   "office",
		CashDeskID: 3,
	})
	require.NoError(t, err)
	assert.True(t, detail.Amount.Equal(decimal.NewFromInt(-120)))
	opRepo.AssertExpectations(t)
}

func TestOperationService_Create_ResolvesClientByEmail(t *testing.T) {
	svc, opRepo, deskRepo, clientRepo, _ := newOperationService()
	ctx := context.Background()
	clientID := int64(7)

	clientRepo.On("FindByEmail", ctx, "a@b.c").Return(&model.Client{ID: clientID, Email: "a@b.c"}, nil)
	clientRepo.On("GetByID", ctx, clientID).Return(&model.Client{ID: clientID}, nil)
	deskRepo.On("GetByID", ctx, int64(1)).Return(&model.CashDesk{ID: 1}, nil)
	opRepo.On("Create", ctx, mock.MatchedBy(func(op *model.Operation) bool {
		return op.ClientID != nil && *op.ClientID == clientID
	})).Return(&model.Operation{ID: 11, ClientID: &clientID}, nil)
	opRepo.On("GetDetail", ctx, int64(11)).Return(&model.OperationDetail{}, nil)

	_, err := svc.Create(ctx, model.OperationCreateRequest{
		Date:        time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC),
		Amount:      decimal.NewFromInt(50),
		Type:        model.OperationTypeIncome,
		Status:      model.OperationStatusActual,
		ClientEmail: "a@b.c",
		CashDeskID:  1,
	})
	require.NoError(t, err)
	clientRepo.AssertExpectations(t)
}

func TestOperationService_Create_RequiresCashDesk(t *testing.T) {
	svc, opRepo, _, _, _ := newOperationService()
	ctx := context.Background()

	_, err := svc.Create(ctx, model.OperationCreateRequest{
		Date:   time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC),
		Amount: decimal.NewFromInt(50),
		Type:   model.OperationTypeIncome,
		Status: model.OperationStatusActual,
	})
	require.Error(t, err)
	assert.True(t, apperr.IsKind(err, apperr.KindBusinessRule))
	opRepo.AssertNotCalled(t, "Create")
}

func TestOperationService_Update_TransferLegRefused(t *testing.T) {
	svc, opRepo, _, _, _ := newOperationService()
	ctx := context.Background()
	pairID := int64(21)

	opRepo.On("GetByID", ctx, int64(20)).Return(&model.Operation{
		ID: 20, Type: model.OperationTypeTransfer, TransferPairID: &pairID,
	}, nil)

	_, err := svc.Update(ctx, 20, model.OperationUpdateRequest{
		Date:       time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC),
		Amount:     decimal.NewFromInt(10),
		Type:       model.OperationTypeIncome,
		Status:     model.OperationStatusActual,
		CashDeskID: 1,
	})
	require.Error(t, err)
	assert.True(t, apperr.IsKind(err, apperr.KindBusinessRule))
	opRepo.AssertNotCalled(t, "Update")
}

func TestOperationService_Delete_SingleLeg(t *testing.T) {
	svc, opRepo, _, _, _ := newOperationService()
	ctx := context.Background()

	opRepo.On("GetByID", ctx, int64(5)).Return(&model.Operation{ID: 5, Type: model.OperationTypeIncome}, nil)
	opRepo.On("Delete", ctx, int64(5)).Return(nil)

	removed, err := svc.Delete(ctx, 5)
	require.NoError(t, err)
	assert.Equal(t, int64(1), removed)
}

func TestOperationService_Delete_TransferPairCascades(t *testing.T) {
	svc, opRepo, deskRepo, _, _ := newOperationService()
	ctx := context.Background()
	siblingID := int64(31)
	leg := &model.Operation{ID: 30, Type: model.OperationTypeTransfer, TransferPairID: &siblingID}

	opRepo.On("GetByID", ctx, int64(30)).Return(leg, nil)
	opRepo.On("GetPairLeg", ctx, leg).Return(&model.Operation{ID: siblingID}, nil)
	deskRepo.On("WithinTransaction", ctx, mock.AnythingOfType("func(context.Context) error")).Return(nil)
	opRepo.On("DeleteBoth", ctx, int64(30), siblingID).Return(int64(2), nil)

	removed, err := svc.Delete(ctx, 30)
	require.NoError(t, err)
	assert.Equal(t, int64(2), removed, "deleting one leg removes both")
	opRepo.AssertExpectations(t)
}

func TestOperationService_CreateTransferPair_SameDesk(t *testing.T) {
	svc, _, deskRepo, _, _ := newOperationService()
	ctx := context.Background()

	_, err := svc.CreateTransferPair(ctx, model.TransferRequest{
		Amount:         decimal.NewFromInt(100),
		Date:           time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC),
		FromCashDeskID: 1,
		ToCashDeskID:   1,
	})
	require.Error(t, err)
	assert.True(t, apperr.IsKind(err, apperr.KindInvalidTransfer))
	deskRepo.AssertNotCalled(t, "GetByID")
}

func TestOperationService_CreateTransferPair_MissingSource(t *testing.T) {
	svc, _, deskRepo, _, _ := newOperationService()
	ctx := context.Background()

	deskRepo.On("GetByID", ctx, int64(1)).Return(nil, apperr.NotFound("cash desk 1 not found"))

	_, err := svc.CreateTransferPair(ctx, model.TransferRequest{
		Amount:         decimal.NewFromInt(100),
		Date:           time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC),
		FromCashDeskID: 1,
		ToCashDeskID:   2,
	})
	require.Error(t, err)
	assert.True(t, apperr.IsKind(err, apperr.KindNotFound))
	assert.Contains(t, err.Error(), "source")
}

func TestOperationService_CreateTransferPair_Success(t *testing.T) {
	svc, opRepo, deskRepo, _, _ := newOperationService()
	ctx := context.Background()
	day := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)

	deskRepo.On("GetByID", ctx, int64(2)).Return(&model.CashDesk{ID: 2, Name: "Main"}, nil)
	deskRepo.On("GetByID", ctx, int64(1)).Return(&model.CashDesk{ID: 1, Name: "Safe"}, nil)
	deskRepo.On("WithinTransaction", ctx, mock.AnythingOfType("func(context.Context) error")).Return(nil)
	// Desks are locked in id order regardless of transfer direction.
	deskRepo.On("GetForUpdate", ctx, int64(1)).Return(&model.CashDesk{ID: 1}, nil)
	deskRepo.On("GetForUpdate", ctx, int64(2)).Return(&model.CashDesk{ID: 2}, nil)

	outgoingID, incomingID := int64(40), int64(41)
	opRepo.On("Create", ctx, mock.MatchedBy(func(op *model.Operation) bool {
		return op.Amount.Equal(decimal.NewFromInt(-500)) && op.CashDeskID == 2 && op.TransferPairID == nil
	})).Return(&model.Operation{ID: outgoingID, Amount: decimal.NewFromInt(-500), Type: model.OperationTypeTransfer, CashDeskID: 2}, nil)
	opRepo.On("Create", ctx, mock.MatchedBy(func(op *model.Operation) bool {
		return op.Amount.Equal(decimal.NewFromInt(500)) && op.CashDeskID == 1 &&
			op.TransferPairID != nil && *op.TransferPairID == outgoingID
	})).Return(&model.Operation{ID: incomingID, Amount: decimal.NewFromInt(500), Type: model.OperationTypeTransfer, CashDeskID: 1, TransferPairID: &outgoingID}, nil)
	opRepo.On("SetTransferPairID", ctx, outgoingID, incomingID).Return(nil)

	result, err := svc.CreateTransferPair(ctx, model.TransferRequest{
		Amount:         decimal.NewFromInt(500),
		Date:           day,
		FromCashDeskID: 2,
		ToCashDeskID:   1,
	})
	require.NoError(t, err)

	assert.True(t, result.Outgoing.Amount.Equal(result.Incoming.Amount.Neg()), "legs are additive inverses")
	require.NotNil(t, result.Outgoing.TransferPairID)
	require.NotNil(t, result.Incoming.TransferPairID)
	assert.Equal(t, incomingID, *result.Outgoing.TransferPairID)
	assert.Equal(t, outgoingID, *result.Incoming.TransferPairID)
	assert.Equal(t, "Main", result.FromCashDeskName)
	assert.Equal(t, "Safe", result.ToCashDeskName)
	opRepo.AssertExpectations(t)
	deskRepo.AssertExpectations(t)
}

func TestOperationService_Analytics(t *testing.T) {
	svc, opRepo, _, _, _ := newOperationService()
	ctx := context.Background()

	opRepo.On("SummaryStats", ctx, mock.AnythingOfType("*time.Time"), mock.AnythingOfType("*time.Time")).Return(&model.SummaryStats{
		ActualIncome:     decimal.NewFromInt(1000),
		ActualExpense:    decimal.NewFromInt(400),
		ActualOperations: 12,
	}, nil)
	opRepo.On("CategoryTotals", ctx, mock.AnythingOfType("time.Time"), mock.AnythingOfType("time.Time")).Return(
		map[string]model.CategoryTotal{"sales": {Amount: decimal.NewFromInt(1000), OperationsCount: 8}},
		map[string]model.CategoryTotal{"office": {Amount: decimal.NewFromInt(-400), OperationsCount: 4}},
		nil,
	)

	a, err := svc.Analytics(ctx, 30, nil, nil)
	require.NoError(t, err)

	assert.True(t, a.Profit.Equal(decimal.NewFromInt(600)))
	require.NotNil(t, a.IncomeExpenseRatio)
	assert.True(t, a.IncomeExpenseRatio.Equal(decimal.NewFromFloat(2.5)))
	require.NotNil(t, a.ProfitMargin)
	assert.True(t, a.ProfitMargin.Equal(decimal.NewFromInt(60)))
}

func TestOperationService_Analytics_InvalidPeriod(t *testing.T) {
	svc, _, _, _, _ := newOperationService()

	_, err := svc.Analytics(context.Background(), 13, nil, nil)
	require.Error(t, err)
	assert.True(t, apperr.IsKind(err, apperr.KindValidation))
}
