package domain

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrNotFound              = errors.New("not found")
	ErrSourceNotFound        = errors.New("source not found")
	ErrUnknownSymbol         = errors.New("unknown symbol")
	ErrInsufficientLiquidity = errors.New("insufficient liquidity")
	ErrNoLiquidity           = errors.New("no liquidity available")
	ErrInvalidRequest        = errors.New("invalid request")
	ErrSourceDisabled        = errors.New("source disabled")
	ErrRateLimited           = errors.New("rate limited")
	ErrLockHeld              = errors.New("lock already held")
	ErrNotConfigured         = errors.New("feature not configured")
)

// FetchErrorKind classifies why a source could not produce a snapshot.
type FetchErrorKind string

const (
	FetchTimeout  FetchErrorKind = "timeout"
	FetchNetwork  FetchErrorKind = "network"
	FetchProtocol FetchErrorKind = "protocol"
	FetchDisabled FetchErrorKind = "disabled"
)

// FetchError is the only error a SourceAdapter returns. Venue specific
// failures are folded into one of the four kinds.
type FetchError struct {
	SourceID string         `json:"source_id"`
	Kind     FetchErrorKind `json:"kind"`
	Detail   string         `json:"detail"`
}

func (e *FetchError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("source %s: %s", e.SourceID, e.Kind)
	}
	return fmt.Sprintf("source %s: %s: %s", e.SourceID, e.Kind, e.Detail)
}

// Is lets errors.Is(err, ErrSourceDisabled) match disabled fetches.
func (e *FetchError) Is(target error) bool {
	return target == ErrSourceDisabled && e.Kind == FetchDisabled
}

// AggregationError reports that no source produced a snapshot for Symbol.
type AggregationError struct {
	Symbol   string       `json:"symbol"`
	Failures []FetchError `json:"failures"`
}

func (e *AggregationError) Error() string {
	if len(e.Failures) == 0 {
		return fmt.Sprintf("%s: %s (no active sources)", e.Symbol, ErrNoLiquidity)
	}
	parts := make([]string, 0, len(e.Failures))
	for _, f := range e.Failures {
		parts = append(parts, f.SourceID+"="+string(f.Kind))
	}
	return fmt.Sprintf("%s: %s (%s)", e.Symbol, ErrNoLiquidity, strings.Join(parts, ", "))
}

func (e *AggregationError) Is(target error) bool {
	return target == ErrNoLiquidity
}

// RouteErrorKind classifies fatal routing failures.
type RouteErrorKind string

const (
	RouteInsufficientLiquidity RouteErrorKind = "insufficient_liquidity"
	RouteSymbolUnknown         RouteErrorKind = "symbol_unknown"
)

// RouteError is returned when a route cannot produce any fill.
type RouteError struct {
	Kind   RouteErrorKind `json:"kind"`
	Symbol string         `json:"symbol"`
	Detail string         `json:"detail,omitempty"`
}

func (e *RouteError) Error() string {
	msg := fmt.Sprintf("route %s: %s", e.Symbol, e.Kind)
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	return msg
}

func (e *RouteError) Is(target error) bool {
	switch e.Kind {
	case RouteInsufficientLiquidity:
		return target == ErrInsufficientLiquidity
	case RouteSymbolUnknown:
		return target == ErrUnknownSymbol
	}
	return false
}

// ValidationError carries the field that failed validation.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrInvalidRequest
}
