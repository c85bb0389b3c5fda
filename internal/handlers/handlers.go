package handlers

import (
	"encoding/json"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/nimasrn/academy-ledger/internal/apperr"
	"github.com/nimasrn/academy-ledger/internal/model"
	"github.com/nimasrn/academy-ledger/internal/services"
	xhttp "github.com/nimasrn/academy-ledger/pkg/http"
	"github.com/nimasrn/academy-ledger/pkg/logger"
)

const actorKey = "actor"

type listResponse[T any] struct {
	Items []T   `json:"items"`
	Total int64 `json:"total"`
}

type errorResponse struct {
	Error  string            `json:"error"`
	Fields map[string]string `json:"fields,omitempty"`
}

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
	writeJSON(ctx, status, errorResponse{Error: msg})
}

// writeAppError maps the service error taxonomy onto status codes. Anything
// unrecognised is logged and reported as a 500 without its details.
func writeAppError(ctx *xhttp.RequestCtx, err error) {
	var (
		ve *apperr.ValidationError
		ne *apperr.NotFoundError
		pe *apperr.PermissionError
		ie *apperr.IntegrityError
	)
	switch {
	case errors.As(err, &ve):
		writeJSON(ctx, xhttp.StatusBadRequest, errorResponse{Error: ve.Error(), Fields: ve.Fields})
	case errors.As(err, &ne):
		writeError(ctx, xhttp.StatusNotFound, ne.Error())
	case errors.As(err, &pe):
		writeError(ctx, xhttp.StatusForbidden, pe.Error())
	case errors.As(err, &ie):
		writeError(ctx, xhttp.StatusConflict, ie.Error())
	case errors.Is(err, services.ErrInvalidCredentials), errors.Is(err, services.ErrUnauthenticated):
		writeError(ctx, xhttp.StatusUnauthorized, err.Error())
	default:
		logger.Error("request failed", "path", string(ctx.Path()), "request_id", xhttp.RequestID(ctx), "error", err)
		writeError(ctx, xhttp.StatusInternalServerError, xhttp.StatusText(xhttp.StatusInternalServerError))
	}
}

func actorOf(ctx *xhttp.RequestCtx) *model.Actor {
	a, _ := ctx.UserValue(actorKey).(*model.Actor)
	return a
}

// allow writes the error response and returns false when the caller's role
// may not perform the action.
func allow(ctx *xhttp.RequestCtx, action services.Action) bool {
	if err := services.Authorize(actorOf(ctx), action); err != nil {
		writeAppError(ctx, err)
		return false
	}
	return true
}

// actorID is nil for unauthenticated calls so created_by stays empty.
func actorID(ctx *xhttp.RequestCtx) *uuid.UUID {
	if a := actorOf(ctx); a != nil {
		id := a.UserID
		return &id
	}
	return nil
}

func pathUUID(ctx *xhttp.RequestCtx, name string) (uuid.UUID, bool) {
	raw, _ := ctx.UserValue(name).(string)
	id, err := uuid.Parse(raw)
	if err != nil {
		writeError(ctx, xhttp.StatusBadRequest, "invalid "+name)
		return uuid.Nil, false
	}
	return id, true
}

func pathString(ctx *xhttp.RequestCtx, name string) string {
	s, _ := ctx.UserValue(name).(string)
	return s
}

func query(ctx *xhttp.RequestCtx, key string) string {
	return string(ctx.QueryArgs().Peek(key))
}

// queryUUID ignores malformed values the way the list filters always have.
func queryUUID(ctx *xhttp.RequestCtx, key string) *uuid.UUID {
	v := query(ctx, key)
	if v == "" {
		return nil
	}
	id, err := uuid.Parse(v)
	if err != nil {
		return nil
	}
	return &id
}

func queryTime(ctx *xhttp.RequestCtx, key string) *time.Time {
	v := query(ctx, key)
	if v == "" {
		return nil
	}
	t, err := parseTime(v)
	if err != nil {
		return nil
	}
	return &t
}

func paging(ctx *xhttp.RequestCtx) (limit, offset int) {
	if v := query(ctx, "limit"); v != "" {
		if n, e := strconv.Atoi(v); e == nil {
			limit = n
		}
	}
	if v := query(ctx, "offset"); v != "" {
		if n, e := strconv.Atoi(v); e == nil {
			offset = n
		}
	}
	return limit, offset
}

func parseTime(s string) (time.Time, error) {
	// Accept RFC3339 or YYYY-MM-DD
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02", s)
}

func bearerToken(ctx *xhttp.RequestCtx) string {
	h := string(ctx.Request.Header.Peek("Authorization"))
	if len(h) > 7 && strings.EqualFold(h[:7], "bearer ") {
		return strings.TrimSpace(h[7:])
	}
	return ""
}

func writeFile(ctx *xhttp.RequestCtx, contentType, fileName string, body []byte) {
	ctx.Response.Header.Set("Content-Type", contentType)
	ctx.Response.Header.Set("Content-Disposition", `attachment; filename="`+fileName+`"`)
	ctx.Response.SetStatusCode(xhttp.StatusOK)
	ctx.Response.SetBodyRaw(body)
}
