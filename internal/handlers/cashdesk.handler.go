package handlers

import (
	"context"
	"strconv"
	"time"

	"github.com/fasthttp/router"
	"github.com/kassaflow/ledger/internal/model"
	xhttp "github.com/kassaflow/ledger/pkg/http"
)

type CashDeskService interface {
	Create(ctx context.Context, p model.CashDeskCreateRequest) (*model.CashDesk, error)
	Update(ctx context.Context, id int64, p model.CashDeskUpdateRequest) (*model.CashDesk, error)
	Delete(ctx context.Context, id int64) (*model.CashDesk, error)
	Get(ctx context.Context, id int64) (*model.CashDeskSummary, error)
	List(ctx context.Context, f model.CashDeskFilter) ([]*model.CashDeskSummary, error)
	ListOperations(ctx context.Context, deskID int64) ([]*model.OperationDetail, error)
}

type HistoryService interface {
	Reconstruct(ctx context.Context, deskID int64, windowDays int, endDate time.Time) (*model.BalanceHistory, error)
}

type CashDeskHandler struct {
	svc     CashDeskService
	history HistoryService
}

func NewCashDeskHandler(cashDeskService CashDeskService, historyService HistoryService) *CashDeskHandler {
	return &CashDeskHandler{
		svc:     cashDeskService,
		history: historyService,
	}
}

func RegisterCashDeskRoutes(e *router.Group, h *CashDeskHandler) {
	e.POST("/cash-desks", h.CreateCashDesk)
	e.GET("/cash-desks", h.ListCashDesks)
	e.GET("/cash-desks/{id}", h.GetCashDesk)
	e.PUT("/cash-desks/{id}", h.UpdateCashDesk)
	e.DELETE("/cash-desks/{id}", h.DeleteCashDesk)
	e.GET("/cash-desks/{id}/transactions", h.ListCashDeskOperations)
	e.GET("/cash-desks/{id}/balance-history", h.GetBalanceHistory)
}

type deleteCashDeskResponse struct {
	Deleted *model.CashDesk `json:"deleted"`
}

/* --------------------------------- Routes ----------------------------------- */

func (h *CashDeskHandler) CreateCashDesk(ctx *xhttp.RequestCtx) {
	var req model.CashDeskCreateRequest
	if err := readJSON(ctx, &req); err != nil {
		writeError(ctx, 400, "invalid JSON: "+err.Error())
		return
	}
	desk, err := h.svc.Create(ctx, req)
	if err != nil {
		writeAppError(ctx, err)
		return
	}
	writeJSON(ctx, 201, desk)
}

func (h *CashDeskHandler) ListCashDesks(ctx *xhttp.RequestCtx) {
	var f model.CashDeskFilter
	if v := query(ctx, "search"); v != "" {
		f.Search = &v
	}
	if query(ctx, "active") == "true" {
		f.ActiveOnly = true
	}

	desks, err := h.svc.List(ctx, f)
	if err != nil {
		writeAppError(ctx, err)
		return
	}
	writeJSON(ctx, 200, desks)
}

func (h *CashDeskHandler) GetCashDesk(ctx *xhttp.RequestCtx) {
	id, err := pathInt64(ctx, "id")
	if err != nil {
		writeError(ctx, 400, "invalid cash desk id")
		return
	}
	desk, err := h.svc.Get(ctx, id)
	if err != nil {
		writeAppError(ctx, err)
		return
	}
	writeJSON(ctx, 200, desk)
}

func (h *CashDeskHandler) UpdateCashDesk(ctx *xhttp.RequestCtx) {
	id, err := pathInt64(ctx, "id")
	if err != nil {
		writeError(ctx, 400, "invalid cash desk id")
		return
	}
	var req model.CashDeskUpdateRequest
	if err := readJSON(ctx, &req); err != nil {
		writeError(ctx, 400, "invalid JSON: "+err.Error())
		return
	}
	desk, err := h.svc.Update(ctx, id, req)
	if err != nil {
		writeAppError(ctx, err)
		return
	}
	writeJSON(ctx, 200, desk)
}

func (h *CashDeskHandler) DeleteCashDesk(ctx *xhttp.RequestCtx) {
	id, err := pathInt64(ctx, "id")
	if err != nil {
		writeError(ctx, 400, "invalid cash desk id")
		return
	}
	desk, err := h.svc.Delete(ctx, id)
	if err != nil {
		writeAppError(ctx, err)
		return
	}
	writeJSON(ctx, 200, deleteCashDeskResponse{Deleted: desk})
}

func (h *CashDeskHandler) ListCashDeskOperations(ctx *xhttp.RequestCtx) {
	id, err := pathInt64(ctx, "id")
	if err != nil {
		writeError(ctx, 400, "invalid cash desk id")
		return
	}
	items, err := h.svc.ListOperations(ctx, id)
	if err != nil {
		writeAppError(ctx, err)
		return
	}
	writeJSON(ctx, 200, items)
}

func (h *CashDeskHandler) GetBalanceHistory(ctx *xhttp.RequestCtx) {
	id, err := pathInt64(ctx, "id")
	if err != nil {
		writeError(ctx, 400, "invalid cash desk id")
		return
	}

	windowDays := 30
	if v := query(ctx, "period"); v != "" {
		n, e := strconv.Atoi(v)
		if e != nil {
			writeError(ctx, 400, "invalid period")
			return
		}
		windowDays = n
	}

	var endDate time.Time
	if v := query(ctx, "end_date"); v != "" {
		t, e := parseDate(v)
		if e != nil {
			writeError(ctx, 400, "invalid end_date, expected YYYY-MM-DD")
			return
		}
		endDate = t
	}

	history, err := h.history.Reconstruct(ctx, id, windowDays, endDate)
	if err != nil {
		writeAppError(ctx, err)
		return
	}
	writeJSON(ctx, 200, history)
}
