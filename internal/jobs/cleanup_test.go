package jobs

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pdf-form-drafts/pkg/logger"
)

type fakeSweeper struct {
	calls  atomic.Int32
	maxAge atomic.Int64
	err    error
}

func (f *fakeSweeper) SweepTemp(maxAge time.Duration) (int, error) {
	f.calls.Add(1)
	f.maxAge.Store(int64(maxAge))
	return 2, f.err
}

func TestSweepOnce_UsesMaxAge(t *testing.T) {
	sw := &fakeSweeper{}
	NewScheduler(sw, logger.Nop()).SweepOnce()

	assert.Equal(t, int32(1), sw.calls.Load())
	assert.Equal(t, int64(TempMaxAge), sw.maxAge.Load())
}

func TestSweepOnce_ErrorIsLogged(t *testing.T) {
	sw := &fakeSweeper{err: errors.New("permission denied")}
	assert.NotPanics(t, NewScheduler(sw, logger.Nop()).SweepOnce)
}

func TestStart_RejectsBadSchedule(t *testing.T) {
	err := NewScheduler(&fakeSweeper{}, logger.Nop()).Start("every tuesday")
	require.Error(t, err)
}

func TestStart_RunsOnSchedule(t *testing.T) {
	sw := &fakeSweeper{}
	s := NewScheduler(sw, logger.Nop())
	require.NoError(t, s.Start("* * * * * *"))

	assert.Eventually(t, func() bool { return sw.calls.Load() > 0 }, 3*time.Second, 50*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	s.Stop(ctx)
}
