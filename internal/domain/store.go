package domain

import (
	"context"
	"time"
)

// ListOpts provides pagination and filtering for list queries.
type ListOpts struct {
	Limit  int
	Offset int
	Since  *time.Time
	Until  *time.Time
}

// AuditEntry is a single audit log row.
type AuditEntry struct {
	ID        int64          `json:"id"`
	Event     string         `json:"event"`
	Detail    map[string]any `json:"detail"`
	CreatedAt time.Time      `json:"created_at"`
}

// AuditStore persists an append-only audit log.
type AuditStore interface {
	Log(ctx context.Context, event string, detail map[string]any) error
	List(ctx context.Context, opts ListOpts) ([]AuditEntry, error)
	ListBefore(ctx context.Context, before time.Time) ([]AuditEntry, error)
	DeleteBefore(ctx context.Context, before time.Time) (int64, error)
}

// RouteStore persists routing decisions.
type RouteStore interface {
	Save(ctx context.Context, result RouteResult) error
	GetByID(ctx context.Context, id string) (RouteResult, error)
	List(ctx context.Context, opts ListOpts) ([]RouteResult, error)
	ListBefore(ctx context.Context, before time.Time) ([]RouteResult, error)
	DeleteBefore(ctx context.Context, before time.Time) (int64, error)
}
