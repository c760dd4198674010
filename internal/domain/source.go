package domain

import (
	"context"
	"time"
)

// Environment selects between a venue's sandbox and production endpoints.
type Environment string

const (
	EnvSandbox Environment = "sandbox"
	EnvLive    Environment = "live"
)

// SourceAdapter normalises one upstream venue's order book into an
// OrderBookSnapshot. Every error it returns is a *FetchError.
type SourceAdapter interface {
	ID() string
	FetchBook(ctx context.Context, symbol string, depth int) (OrderBookSnapshot, error)
}

// SourceStatus describes a configured source and its last observed health.
type SourceStatus struct {
	ID            string         `json:"id"`
	Kind          string         `json:"kind"`
	Enabled       bool           `json:"enabled"`
	Environment   Environment    `json:"environment"`
	Healthy       bool           `json:"healthy"`
	LastErrorKind FetchErrorKind `json:"last_error_kind,omitempty"`
	LastError     string         `json:"last_error,omitempty"`
	LastLatencyMs int64          `json:"last_latency_ms"`
	LastSuccessAt *time.Time     `json:"last_success_at,omitempty"`
	LastCheckedAt *time.Time     `json:"last_checked_at,omitempty"`
}
