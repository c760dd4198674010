package service

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/liquidrouter/internal/domain"
)

type fakeArchiver struct {
	cutoffs []time.Time
	err     error
}

func (a *fakeArchiver) ArchiveRoutes(_ context.Context, before time.Time) (int64, error) {
	a.cutoffs = append(a.cutoffs, before)
	return 3, a.err
}

func (a *fakeArchiver) ArchiveAudit(_ context.Context, before time.Time) (int64, error) {
	a.cutoffs = append(a.cutoffs, before)
	return 2, nil
}

type fakeLocks struct {
	held     bool
	err      error
	released int
}

func (l *fakeLocks) Acquire(_ context.Context, key string, _ time.Duration) (func(), error) {
	if l.err != nil {
		return nil, l.err
	}
	if l.held {
		return nil, fmt.Errorf("%s: %w", key, domain.ErrLockHeld)
	}
	return func() { l.released++ }, nil
}

func TestArchiveJobRunOnce(t *testing.T) {
	arch := &fakeArchiver{}
	locks := &fakeLocks{}
	job, err := NewArchiveJob(arch, locks, "0 3 * * *", 30, discardLogger())
	require.NoError(t, err)
	now := time.Date(2026, 6, 30, 3, 0, 0, 0, time.UTC)
	job.now = func() time.Time { return now }

	require.NoError(t, job.RunOnce(context.Background()))
	want := time.Date(2026, 5, 31, 3, 0, 0, 0, time.UTC)
	assert.Equal(t, []time.Time{want, want}, arch.cutoffs)
	assert.Equal(t, 1, locks.released)
}

func TestArchiveJobSkipsWhenLockHeld(t *testing.T) {
	arch := &fakeArchiver{}
	job, err := NewArchiveJob(arch, &fakeLocks{held: true}, "0 3 * * *", 30, discardLogger())
	require.NoError(t, err)

	require.NoError(t, job.RunOnce(context.Background()))
	assert.Empty(t, arch.cutoffs)
}

func TestArchiveJobErrors(t *testing.T) {
	_, err := NewArchiveJob(&fakeArchiver{}, nil, "bad", 30, discardLogger())
	assert.Error(t, err)
	_, err = NewArchiveJob(&fakeArchiver{}, nil, "0 3 * * *", 0, discardLogger())
	assert.Error(t, err)

	job, err := NewArchiveJob(&fakeArchiver{}, &fakeLocks{err: errors.New("redis down")}, "0 3 * * *", 1, discardLogger())
	require.NoError(t, err)
	assert.Error(t, job.RunOnce(context.Background()))

	failing := &fakeArchiver{err: errors.New("s3 down")}
	job, err = NewArchiveJob(failing, nil, "0 3 * * *", 1, discardLogger())
	require.NoError(t, err)
	assert.ErrorContains(t, job.RunOnce(context.Background()), "s3 down")
}
