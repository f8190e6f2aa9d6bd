package handlers

import (
	"encoding/json"
	"strconv"
	"time"

	"github.com/kassaflow/ledger/internal/apperr"
	"github.com/kassaflow/ledger/internal/model"
	xhttp "github.com/kassaflow/ledger/pkg/http"
)

func readJSON(ctx *xhttp.RequestCtx, dst any) error {
	body := ctx.PostBody()
	return json.Unmarshal(body, dst)
}

func writeJSON(ctx *xhttp.RequestCtx, status int, v any) {
	b, _ := json.Marshal(v)
	ctx.Response.Header.Set("Content-Type", "application/json; charset=utf-8")
	ctx.Response.SetStatusCode(status)
	ctx.Response.SetBodyRaw(b)
}

func writeError(ctx *xhttp.RequestCtx, status int, msg string) {
	writeJSON(ctx, status, map[string]string{"error": msg})
}

// writeAppError maps an error kind onto its HTTP status.
func writeAppError(ctx *xhttp.RequestCtx, err error) {
	status := 500
	switch apperr.KindOf(err) {
	case apperr.KindValidation:
		status = 400
	case apperr.KindNotFound:
		status = 404
	case apperr.KindDuplicateName, apperr.KindInvalidTransfer:
		status = 409
	case apperr.KindBusinessRule:
		status = 422
	}
	writeError(ctx, status, err.Error())
}

// pathInt64 reads a route parameter such as {id}.
func pathInt64(ctx *xhttp.RequestCtx, name string) (int64, error) {
	v, _ := ctx.UserValue(name).(string)
	return strconv.ParseInt(v, 10, 64)
}

func query(ctx *xhttp.RequestCtx, key string) string {
	return string(ctx.QueryArgs().Peek(key))
}

func parseDate(s string) (time.Time, error) {
	return time.Parse(model.DateLayout, s)
}
