package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/alanyoungcy/liquidrouter/internal/domain"
)

const maxListLimit = 500

// writeJSON marshals v and writes it with status. If marshaling fails it
// falls back to a plain 500.
func writeJSON(w http.ResponseWriter, status int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		http.Error(w, `{"error":"internal server error"}`, http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	w.Write(data)
}

// writeError sends {"error": msg}.
func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorBody{Error: msg})
}

type errorBody struct {
	Error    string              `json:"error"`
	Field    string              `json:"field,omitempty"`
	Kind     string              `json:"kind,omitempty"`
	Failures []domain.FetchError `json:"failures,omitempty"`
}

// statusFor maps service errors onto HTTP status codes.
func statusFor(err error) int {
	var (
		fe *domain.FetchError
		ve *domain.ValidationError
	)
	switch {
	case errors.As(err, &ve):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrUnknownSymbol),
		errors.Is(err, domain.ErrSourceNotFound),
		errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrSourceDisabled):
		return http.StatusConflict
	case errors.Is(err, domain.ErrInsufficientLiquidity):
		return http.StatusUnprocessableEntity
	case errors.Is(err, domain.ErrNoLiquidity):
		return http.StatusServiceUnavailable
	case errors.Is(err, domain.ErrRateLimited):
		return http.StatusTooManyRequests
	case errors.Is(err, domain.ErrNotConfigured):
		return http.StatusNotImplemented
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return http.StatusGatewayTimeout
	case errors.As(err, &fe):
		if fe.Kind == domain.FetchTimeout {
			return http.StatusGatewayTimeout
		}
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// writeServiceError maps err to a status and a JSON body. Unexpected errors
// are logged and hidden from the client.
func writeServiceError(w http.ResponseWriter, r *http.Request, logger *slog.Logger, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		logger.ErrorContext(r.Context(), "request failed", slog.String("error", err.Error()))
		writeError(w, status, "internal server error")
		return
	}

	body := errorBody{Error: err.Error()}
	var (
		ae *domain.AggregationError
		ve *domain.ValidationError
		re *domain.RouteError
		fe *domain.FetchError
	)
	switch {
	case errors.As(err, &ae):
		body.Failures = ae.Failures
	case errors.As(err, &ve):
		body.Field = ve.Field
		body.Error = ve.Message
	case errors.As(err, &re):
		body.Kind = string(re.Kind)
	case errors.As(err, &fe):
		body.Kind = string(fe.Kind)
	}
	writeJSON(w, status, body)
}

// parseListOpts reads limit (default 50, max 500) and offset.
func parseListOpts(r *http.Request) domain.ListOpts {
	q := r.URL.Query()
	limit := 50
	if n, err := strconv.Atoi(q.Get("limit")); err == nil && n > 0 {
		limit = min(n, maxListLimit)
	}
	offset := 0
	if n, err := strconv.Atoi(q.Get("offset")); err == nil && n >= 0 {
		offset = n
	}
	return domain.ListOpts{Limit: limit, Offset: offset}
}

// parseDepth reads ?depth=N. Missing means 0, which lets the service use its
// default.
func parseDepth(r *http.Request) (int, error) {
	v := r.URL.Query().Get("depth")
	if v == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return 0, &domain.ValidationError{Field: "depth", Message: fmt.Sprintf("must be a positive integer, got %q", v)}
	}
	return n, nil
}

// splitCSV splits a comma list and drops empty entries. It returns nil for
// an empty value.
func splitCSV(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// parseDecimals parses a comma list of positive decimals. It returns nil
// for an empty value.
func parseDecimals(field, v string) ([]decimal.Decimal, error) {
	parts := splitCSV(v)
	if parts == nil {
		return nil, nil
	}
	out := make([]decimal.Decimal, 0, len(parts))
	for _, p := range parts {
		d, err := decimal.NewFromString(p)
		if err != nil || !d.IsPositive() {
			return nil, &domain.ValidationError{Field: field, Message: fmt.Sprintf("invalid value %q", p)}
		}
		out = append(out, d)
	}
	return out, nil
}

func logHandler(logger *slog.Logger, handler string) *slog.Logger {
	return logger.With(slog.String("handler", handler))
}
