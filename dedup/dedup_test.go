package dedup

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/krisalay/resilient-client/types"
)

type bot struct{ ID int }

func TestRun_ConcurrentCallersShareOneCall(t *testing.T) {
	d := New(nil, nil)

	var calls atomic.Int32
	release := make(chan struct{})
	fetchBots := func(ctx context.Context) (any, error) {
		calls.Add(1)
		<-release
		return []*bot{{ID: 1}}, nil
	}

	const callers = 5
	results := make([]any, callers)
	errs := make([]error, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = d.Run(context.Background(), "bots", fetchBots)
		}(i)
	}

	require.Eventually(t, func() bool { return d.Waiters("bots") == callers }, time.Second, time.Millisecond)
	close(release)
	wg.Wait()

	assert.EqualValues(t, 1, calls.Load())
	first := results[0].([]*bot)
	for i := 0; i < callers; i++ {
		require.NoError(t, errs[i])
		got := results[i].([]*bot)
		assert.Same(t, first[0], got[0], "caller %d got a different instance", i)
	}
	assert.Zero(t, d.Waiters("bots"))
}

func TestRun_TwoCallersScenario(t *testing.T) {
	d := New(nil, nil)

	var calls atomic.Int32
	fetchBots := func(ctx context.Context) (any, error) {
		calls.Add(1)
		time.Sleep(500 * time.Millisecond)
		return []*bot{{ID: 1}}, nil
	}

	start := time.Now()
	var a, b any
	var wg sync.WaitGroup
	wg.Add(2)
	go func() { defer wg.Done(); a, _ = d.Run(context.Background(), "bots", fetchBots) }()
	go func() { defer wg.Done(); b, _ = d.Run(context.Background(), "bots", fetchBots) }()
	wg.Wait()

	assert.Less(t, time.Since(start), 900*time.Millisecond)
	assert.EqualValues(t, 1, calls.Load())
	assert.Same(t, a.([]*bot)[0], b.([]*bot)[0])
}

func TestRun_FailureIsSharedAndNotRetried(t *testing.T) {
	d := New(nil, nil)
	boom := errors.New("503 from gateway")

	var calls atomic.Int32
	release := make(chan struct{})
	op := func(ctx context.Context) (any, error) {
		calls.Add(1)
		<-release
		return nil, boom
	}

	errs := make(chan error, 3)
	for i := 0; i < 3; i++ {
		go func() {
			_, err := d.Run(context.Background(), "stats", op)
			errs <- err
		}()
	}
	require.Eventually(t, func() bool { return d.Waiters("stats") == 3 }, time.Second, time.Millisecond)
	close(release)

	for i := 0; i < 3; i++ {
		assert.Same(t, boom, <-errs)
	}
	assert.EqualValues(t, 1, calls.Load())
}

func TestRun_AfterSettlementStartsFreshCall(t *testing.T) {
	d := New(nil, nil)

	v, err := d.Run(context.Background(), "k", func(ctx context.Context) (any, error) { return "first", nil })
	require.NoError(t, err)
	assert.Equal(t, "first", v)

	v, err = d.Run(context.Background(), "k", func(ctx context.Context) (any, error) { return "second", nil })
	require.NoError(t, err)
	assert.Equal(t, "second", v)

	_, err = d.Run(context.Background(), "k", func(ctx context.Context) (any, error) { return nil, errors.New("x") })
	require.Error(t, err)

	v, err = d.Run(context.Background(), "k", func(ctx context.Context) (any, error) { return "third", nil })
	require.NoError(t, err)
	assert.Equal(t, "third", v)
}

func TestRun_DifferentKeysDoNotShare(t *testing.T) {
	d := New(nil, nil)
	var calls atomic.Int32
	op := func(ctx context.Context) (any, error) { calls.Add(1); return nil, nil }

	_, _ = d.Run(context.Background(), "a", op)
	_, _ = d.Run(context.Background(), "b", op)
	assert.EqualValues(t, 2, calls.Load())
}

func TestRun_CallerCancelDoesNotAbortOthers(t *testing.T) {
	d := New(nil, nil)

	release := make(chan struct{})
	var opCtxErr atomic.Value
	op := func(ctx context.Context) (any, error) {
		<-release
		opCtxErr.Store(ctx.Err() == nil)
		return "ok", nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	abandoned := make(chan error, 1)
	go func() {
		_, err := d.Run(ctx, "k", op)
		abandoned <- err
	}()

	kept := make(chan any, 1)
	go func() {
		v, _ := d.Run(context.Background(), "k", op)
		kept <- v
	}()

	require.Eventually(t, func() bool { return d.Waiters("k") == 2 }, time.Second, time.Millisecond)
	cancel()
	assert.ErrorIs(t, <-abandoned, context.Canceled)

	close(release)
	assert.Equal(t, "ok", <-kept)
	assert.Equal(t, true, opCtxErr.Load())
}

func TestDo_Typed(t *testing.T) {
	d := New(nil, nil)

	bots, err := Do(context.Background(), d, "bots", func(ctx context.Context) ([]bot, error) {
		return []bot{{ID: 7}}, nil
	})
	require.NoError(t, err)
	assert.Equal(t, []bot{{ID: 7}}, bots)

	_, err = Do(context.Background(), d, "bots", func(ctx context.Context) (int, error) {
		return 0, errors.New("down")
	})
	assert.EqualError(t, err, "down")
}

type sharedCounter struct {
	types.NoopMetrics
	shared atomic.Int32
}

func (m *sharedCounter) Shared() { m.shared.Add(1) }

func TestRun_SharedCountsOnlyJoiningCallers(t *testing.T) {
	m := &sharedCounter{}
	d := New(m, nil)

	release := make(chan struct{})
	op := func(ctx context.Context) (any, error) {
		<-release
		return "stats", nil
	}

	const callers = 4
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = d.Run(context.Background(), "stats", op)
		}()
	}
	require.Eventually(t, func() bool { return d.Waiters("stats") == callers }, time.Second, time.Millisecond)
	close(release)
	wg.Wait()

	assert.EqualValues(t, callers-1, m.shared.Load())

	_, err := d.Run(context.Background(), "stats", func(ctx context.Context) (any, error) { return "again", nil })
	require.NoError(t, err)
	assert.EqualValues(t, callers-1, m.shared.Load(), "a lone call is not shared")
}

func TestForgetAll_LaterCallersStartFreshCall(t *testing.T) {
	d := New(nil, nil)

	release := make(chan struct{})
	stale := make(chan any, 1)
	go func() {
		v, _ := d.Run(context.Background(), "bots", func(ctx context.Context) (any, error) {
			<-release
			return "old", nil
		})
		stale <- v
	}()
	require.Eventually(t, func() bool { return d.Waiters("bots") == 1 }, time.Second, time.Millisecond)

	d.ForgetAll()
	v, err := d.Run(context.Background(), "bots", func(ctx context.Context) (any, error) { return "new", nil })
	require.NoError(t, err)
	assert.Equal(t, "new", v)

	close(release)
	assert.Equal(t, "old", <-stale)
}
