package s3blob

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/alanyoungcy/liquidrouter/internal/domain"
)

const (
	jsonlContentType = "application/x-ndjson"

	// payloads above this go through the multipart uploader
	multipartThreshold = 8 << 20
)

// Archiver implements domain.Archiver. Rows older than the cutoff are
// grouped by UTC day, written to archive/<kind>/<YYYY-MM-DD>.jsonl, and
// deleted from the primary store once every day file is in place. A day
// file that already exists is left untouched.
type Archiver struct {
	writer  domain.BlobWriter
	checker domain.BlobChecker
	routes  domain.RouteStore
	audit   domain.AuditStore
}

// NewArchiver creates an Archiver. routes or audit may be nil to skip that
// kind.
func NewArchiver(writer domain.BlobWriter, checker domain.BlobChecker, routes domain.RouteStore, audit domain.AuditStore) *Archiver {
	return &Archiver{writer: writer, checker: checker, routes: routes, audit: audit}
}

// ArchiveRoutes moves routing decisions created before the cutoff.
func (a *Archiver) ArchiveRoutes(ctx context.Context, before time.Time) (int64, error) {
	if a.routes == nil {
		return 0, nil
	}
	rows, err := a.routes.ListBefore(ctx, before)
	if err != nil {
		return 0, fmt.Errorf("s3blob: archive routes: %w", err)
	}
	n, err := archiveDays(ctx, a, "routes", rows, func(r domain.RouteResult) time.Time { return r.CreatedAt })
	if err != nil || n == 0 {
		return n, err
	}
	if _, err := a.routes.DeleteBefore(ctx, before); err != nil {
		return n, fmt.Errorf("s3blob: archive routes: %w", err)
	}
	a.record(ctx, "archive.routes", n, before)
	return n, nil
}

// ArchiveAudit moves audit entries created before the cutoff.
func (a *Archiver) ArchiveAudit(ctx context.Context, before time.Time) (int64, error) {
	if a.audit == nil {
		return 0, nil
	}
	rows, err := a.audit.ListBefore(ctx, before)
	if err != nil {
		return 0, fmt.Errorf("s3blob: archive audit: %w", err)
	}
	n, err := archiveDays(ctx, a, "audit", rows, func(e domain.AuditEntry) time.Time { return e.CreatedAt })
	if err != nil || n == 0 {
		return n, err
	}
	if _, err := a.audit.DeleteBefore(ctx, before); err != nil {
		return n, fmt.Errorf("s3blob: archive audit: %w", err)
	}
	a.record(ctx, "archive.audit", n, before)
	return n, nil
}

// record writes the archive run to the audit log after the delete, so the
// entry itself survives until the next window.
func (a *Archiver) record(ctx context.Context, event string, count int64, before time.Time) {
	if a.audit == nil {
		return
	}
	_ = a.audit.Log(ctx, event, map[string]any{
		"count":  count,
		"before": before.UTC().Format(time.RFC3339),
	})
}

func archiveDays[T any](ctx context.Context, a *Archiver, kind string, rows []T, createdAt func(T) time.Time) (int64, error) {
	if len(rows) == 0 {
		return 0, nil
	}
	days := groupByDay(rows, createdAt)

	keys := make([]string, 0, len(days))
	for day := range days {
		keys = append(keys, day)
	}
	sort.Strings(keys)

	for _, day := range keys {
		path := archivePath(kind, day)
		exists, err := a.checker.Exists(ctx, path)
		if err != nil {
			return 0, fmt.Errorf("s3blob: archive %s: %w", kind, err)
		}
		if exists {
			continue
		}
		buf, err := marshalJSONL(days[day])
		if err != nil {
			return 0, fmt.Errorf("s3blob: archive %s %s: %w", kind, day, err)
		}
		if len(buf) > multipartThreshold {
			err = a.writer.PutMultipart(ctx, path, bytes.NewReader(buf), minPartSize)
		} else {
			err = a.writer.Put(ctx, path, bytes.NewReader(buf), jsonlContentType)
		}
		if err != nil {
			return 0, fmt.Errorf("s3blob: archive %s: %w", kind, err)
		}
	}
	return int64(len(rows)), nil
}

func groupByDay[T any](rows []T, createdAt func(T) time.Time) map[string][]T {
	out := make(map[string][]T)
	for _, r := range rows {
		day := createdAt(r).UTC().Format(time.DateOnly)
		out[day] = append(out[day], r)
	}
	return out
}

// archivePath returns archive/<kind>/<YYYY-MM-DD>.jsonl.
func archivePath(kind, day string) string {
	return fmt.Sprintf("archive/%s/%s.jsonl", kind, day)
}

func marshalJSONL[T any](records []T) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	for i, rec := range records {
		if err := enc.Encode(rec); err != nil {
			return nil, fmt.Errorf("encode record %d: %w", i, err)
		}
	}
	return buf.Bytes(), nil
}

var _ domain.Archiver = (*Archiver)(nil)
