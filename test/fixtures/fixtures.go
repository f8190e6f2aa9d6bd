package fixtures

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/kassaflow/ledger/internal/model"
)

var (
	TestDeskMain = model.CashDesk{
		ID:              1,
		Name:            "Main",
		BaselineBalance: decimal.Zero,
		IsActive:        true,
	}

	TestDeskSafe = model.CashDesk{
		ID:              2,
		Name:            "Safe",
		BaselineBalance: decimal.NewFromInt(1000),
		IsActive:        true,
	}

	TestDeskInactive = model.CashDesk{
		ID:       3,
		Name:     "Archived",
		IsActive: false,
	}

	TestClient = model.Client{
		ID:    1,
		Name:  "Acme",
		Email: "acme@example.com",
	}

	TestWorker = model.Worker{
		ID:               1,
		FullName:         "Dana Reeve",
		TelegramUsername: "@dana",
	}
)

func NewOperationCreateRequest(deskID int64, amount decimal.Decimal, opType model.OperationType) model.OperationCreateRequest {
	return model.OperationCreateRequest{
		Date:       time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC),
		Amount:     amount,
		Type:       opType,
		Status:     model.OperationStatusActual,
		Category:   "general",
		CashDeskID: deskID,
	}
}

func NewIncomeRequest(deskID int64, amount int64) model.OperationCreateRequest {
	return NewOperationCreateRequest(deskID, decimal.NewFromInt(amount), model.OperationTypeIncome)
}

func NewExpenseRequest(deskID int64, amount int64) model.OperationCreateRequest {
	return NewOperationCreateRequest(deskID, decimal.NewFromInt(amount), model.OperationTypeExpense)
}

func NewTransferRequest(fromID, toID int64, amount int64) model.TransferRequest {
	return model.TransferRequest{
		Amount:         decimal.NewFromInt(amount),
		Date:           time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC),
		FromCashDeskID: fromID,
		ToCashDeskID:   toID,
	}
}

func NewCashDeskCreateRequest(name string) model.CashDeskCreateRequest {
	return model.CashDeskCreateRequest{
		Name:            name,
		BaselineBalance: decimal.Zero,
	}
}

var ValidCategories = []string{
	"sales",
	"office",
	"salary",
	"marketing",
	"general",
}

func FilterByDesk(deskID int64) model.OperationFilter {
	return model.OperationFilter{CashDeskID: &deskID}
}

func FilterByDateRange(from, to time.Time) model.OperationFilter {
	return model.OperationFilter{DateFrom: &from, DateTo: &to}
}

func FilterByStatus(status model.OperationStatus) model.OperationFilter {
	return model.OperationFilter{Status: &status}
}
