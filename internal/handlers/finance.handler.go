package handlers

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/fasthttp/router"
	"github.com/shopspring/decimal"

	"github.com/kassaflow/ledger/internal/model"
	xhttp "github.com/kassaflow/ledger/pkg/http"
)

type OperationService interface {
	Create(ctx context.Context, p model.OperationCreateRequest) (*model.OperationDetail, error)
	Update(ctx context.Context, id int64, p model.OperationUpdateRequest) (*model.OperationDetail, error)
	Delete(ctx context.Context, id int64) (int64, error)
	Get(ctx context.Context, id int64) (*model.OperationDetail, error)
	List(ctx context.Context, f model.OperationFilter) ([]*model.OperationDetail, error)
	CreateTransferPair(ctx context.Context, p model.TransferRequest) (*model.TransferResult, error)
	SummaryStats(ctx context.Context, from, to *time.Time) (*model.SummaryStats, error)
	Analytics(ctx context.Context, periodDays int, start, end *time.Time) (*model.Analytics, error)
}

type StatementService interface {
	Build(ctx context.Context, dateFrom, dateTo time.Time) (*model.Statement, error)
	ExportCSV(ctx context.Context, dateFrom, dateTo time.Time) ([]byte, error)
}

type FinanceHandler struct {
	svc       OperationService
	statement StatementService
}

func NewFinanceHandler(operationService OperationService, statementService StatementService) *FinanceHandler {
	return &FinanceHandler{
		svc:       operationService,
		statement: statementService,
	}
}

func RegisterFinanceRoutes(e *router.Group, h *FinanceHandler) {
	e.POST("/finances", h.CreateOperation)
	e.GET("/finances", h.ListOperations)
	e.GET("/finances/summary/stats", h.SummaryStats)
	e.GET("/finances/analytics", h.Analytics)
	e.GET("/finances/statement", h.Statement)
	e.POST("/finances/transfer", h.CreateTransfer)
	e.GET("/finances/{id}", h.GetOperation)
	e.PUT("/finances/{id}", h.UpdateOperation)
	e.DELETE("/finances/{id}", h.DeleteOperation)
}

type createOperationRequest struct {
	Date           string          `json:"date"`
	Amount         decimal.Decimal `json:"amount"`
	Type           string          `json:"type"`
	Status         string          `json:"status"`
	Description    string          `json:"description"`
	Category       string          `json:"category"`
	ClientID       *int64          `json:"client_id"`
	ClientEmail    string          `json:"client_email"`
	WorkerID       *int64          `json:"worker_id"`
	WorkerTelegram string          `json:"worker_telegram"`
	CashDeskID     int64           `json:"cash_desk_id"`
}

type createTransferRequest struct {
	Amount         decimal.Decimal `json:"amount"`
	Date           string          `json:"date"`
	CashDeskFromID int64           `json:"cash_desk_from_id"`
	CashDeskToID   int64           `json:"cash_desk_to_id"`
	Description    string          `json:"description"`
}

type deleteOperationResponse struct {
	DeletedCount int64 `json:"deleted_count"`
}

/* --------------------------------- Routes ----------------------------------- */

func (h *FinanceHandler) CreateOperation(ctx *xhttp.RequestCtx) {
	var req createOperationRequest
	if err := readJSON(ctx, &req); err != nil {
		writeError(ctx, 400, "invalid JSON: "+err.Error())
		return
	}
	date, err := parseDate(req.Date)
	if err != nil {
		writeError(ctx, 400, "invalid date, expected YYYY-MM-DD")
		return
	}

	p := model.OperationCreateRequest{
		Date:           date,
		Amount:         req.Amount,
		Type:           model.OperationType(req.Type),
		Status:         model.OperationStatus(req.Status),
		Description:    req.Description,
		Category:       req.Category,
		ClientID:       req.ClientID,
		ClientEmail:    req.ClientEmail,
		WorkerID:       req.WorkerID,
		WorkerTelegram: req.WorkerTelegram,
		CashDeskID:     req.CashDeskID,
	}
	if p.Status == "" {
		p.Status = model.OperationStatusActual
	}

	op, err := h.svc.Create(ctx, p)
	if err != nil {
		writeAppError(ctx, err)
		return
	}
	writeJSON(ctx, 201, op)
}

func (h *FinanceHandler) UpdateOperation(ctx *xhttp.RequestCtx) {
	id, err := pathInt64(ctx, "id")
	if err != nil {
		writeError(ctx, 400, "invalid operation id")
		return
	}
	var req createOperationRequest
	if err := readJSON(ctx, &req); err != nil {
		writeError(ctx, 400, "invalid JSON: "+err.Error())
		return
	}
	date, err := parseDate(req.Date)
	if err != nil {
		writeError(ctx, 400, "invalid date, expected YYYY-MM-DD")
		return
	}

	p := model.OperationUpdateRequest{
		Date:        date,
		Amount:      req.Amount,
		Type:        model.OperationType(req.Type),
		Status:      model.OperationStatus(req.Status),
		Description: req.Description,
		Category:    req.Category,
		ClientID:    req.ClientID,
		CashDeskID:  req.CashDeskID,
	}
	if p.Status == "" {
		p.Status = model.OperationStatusActual
	}

	op, err := h.svc.Update(ctx, id, p)
	if err != nil {
		writeAppError(ctx, err)
		return
	}
	writeJSON(ctx, 200, op)
}

func (h *FinanceHandler) DeleteOperation(ctx *xhttp.RequestCtx) {
	id, err := pathInt64(ctx, "id")
	if err != nil {
		writeError(ctx, 400, "invalid operation id")
		return
	}
	count, err := h.svc.Delete(ctx, id)
	if err != nil {
		writeAppError(ctx, err)
		return
	}
	writeJSON(ctx, 200, deleteOperationResponse{DeletedCount: count})
}

func (h *FinanceHandler) GetOperation(ctx *xhttp.RequestCtx) {
	id, err := pathInt64(ctx, "id")
	if err != nil {
		writeError(ctx, 400, "invalid operation id")
		return
	}
	op, err := h.svc.Get(ctx, id)
	if err != nil {
		writeAppError(ctx, err)
		return
	}
	writeJSON(ctx, 200, op)
}

func (h *FinanceHandler) ListOperations(ctx *xhttp.RequestCtx) {
	var f model.OperationFilter

	if v := query(ctx, "status"); v != "" {
		status := model.OperationStatus(v)
		f.Status = &status
	}
	if v := query(ctx, "date_from"); v != "" {
		if t, e := parseDate(v); e == nil {
			f.DateFrom = &t
		}
	}
	if v := query(ctx, "date_to"); v != "" {
		if t, e := parseDate(v); e == nil {
			f.DateTo = &t
		}
	}
	if v := query(ctx, "cash_desk_id"); v != "" {
		if id, e := strconv.ParseInt(v, 10, 64); e == nil {
			f.CashDeskID = &id
		}
	}
	if v := query(ctx, "client_id"); v != "" {
		if id, e := strconv.ParseInt(v, 10, 64); e == nil {
			f.ClientID = &id
		}
	}
	if v := query(ctx, "category"); v != "" {
		f.Category = &v
	}
	if v := query(ctx, "search"); v != "" {
		f.DescriptionLike = &v
	}

	items, err := h.svc.List(ctx, f)
	if err != nil {
		writeAppError(ctx, err)
		return
	}
	writeJSON(ctx, 200, items)
}

func (h *FinanceHandler) CreateTransfer(ctx *xhttp.RequestCtx) {
	var req createTransferRequest
	if err := readJSON(ctx, &req); err != nil {
		writeError(ctx, 400, "invalid JSON: "+err.Error())
		return
	}
	date, err := parseDate(req.Date)
	if err != nil {
		writeError(ctx, 400, "invalid date, expected YYYY-MM-DD")
		return
	}

	result, err := h.svc.CreateTransferPair(ctx, model.TransferRequest{
		Amount:         req.Amount,
		Date:           date,
		FromCashDeskID: req.CashDeskFromID,
		ToCashDeskID:   req.CashDeskToID,
		Description:    req.Description,
	})
	if err != nil {
		writeAppError(ctx, err)
		return
	}
	writeJSON(ctx, 201, result)
}

func (h *FinanceHandler) SummaryStats(ctx *xhttp.RequestCtx) {
	var from, to *time.Time
	if v := query(ctx, "date_from"); v != "" {
		t, e := parseDate(v)
		if e != nil {
			writeError(ctx, 400, "invalid date_from, expected YYYY-MM-DD")
			return
		}
		from = &t
	}
	if v := query(ctx, "date_to"); v != "" {
		t, e := parseDate(v)
		if e != nil {
			writeError(ctx, 400, "invalid date_to, expected YYYY-MM-DD")
			return
		}
		to = &t
	}

	stats, err := h.svc.SummaryStats(ctx, from, to)
	if err != nil {
		writeAppError(ctx, err)
		return
	}
	writeJSON(ctx, 200, stats)
}

func (h *FinanceHandler) Analytics(ctx *xhttp.RequestCtx) {
	periodDays := 30
	if v := query(ctx, "period"); v != "" {
		n, e := strconv.Atoi(v)
		if e != nil {
			writeError(ctx, 400, "invalid period")
			return
		}
		periodDays = n
	}

	var start, end *time.Time
	if v := query(ctx, "start_date"); v != "" {
		if t, e := parseDate(v); e == nil {
			start = &t
		}
	}
	if v := query(ctx, "end_date"); v != "" {
		if t, e := parseDate(v); e == nil {
			end = &t
		}
	}

	analytics, err := h.svc.Analytics(ctx, periodDays, start, end)
	if err != nil {
		writeAppError(ctx, err)
		return
	}
	writeJSON(ctx, 200, analytics)
}

// Statement returns the reconciled report as JSON, or as the flat CSV export
// when format=csv is requested.
func (h *FinanceHandler) Statement(ctx *xhttp.RequestCtx) {
	var dateFrom, dateTo time.Time
	if v := query(ctx, "date_from"); v != "" {
		t, e := parseDate(v)
		if e != nil {
			writeError(ctx, 400, "invalid date_from, expected YYYY-MM-DD")
			return
		}
		dateFrom = t
	}
	if v := query(ctx, "date_to"); v != "" {
		t, e := parseDate(v)
		if e != nil {
			writeError(ctx, 400, "invalid date_to, expected YYYY-MM-DD")
			return
		}
		dateTo = t
	}

	if query(ctx, "format") == "csv" {
		data, err := h.statement.ExportCSV(ctx, dateFrom, dateTo)
		if err != nil {
			writeAppError(ctx, err)
			return
		}
		filename := fmt.Sprintf("statement_%s_%s.csv",
			dateFrom.Format(model.DateLayout), dateTo.Format(model.DateLayout))
		ctx.Response.Header.Set("Content-Type", "text/csv; charset=utf-8")
		ctx.Response.Header.Set("Content-Disposition", `attachment; filename="`+filename+`"`)
		ctx.Response.SetStatusCode(200)
		ctx.Response.SetBodyRaw(data)
		return
	}

	statement, err := h.statement.Build(ctx, dateFrom, dateTo)
	if err != nil {
		writeAppError(ctx, err)
		return
	}
	writeJSON(ctx, 200, statement)
}
