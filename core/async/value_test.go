package async

import (
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turingvideo/couchbase-lite-core/core/diag"
)

func TestValue_resolve(t *testing.T) {
	p := NewProvider[int]()
	v := p.Value()
	require.False(t, v.Ready())

	var got []int
	v.Wait(func(n int, err error) { got = append(got, n) })
	v.Wait(func(n int, err error) { got = append(got, n*10) })
	require.Empty(t, got)

	p.Resolve(4)
	require.True(t, v.Ready())
	require.Equal(t, []int{4, 40}, got)

	n, err := v.Result()
	require.NoError(t, err)
	require.Equal(t, 4, n)
}

func TestValue_doubleResolve(t *testing.T) {
	p := NewProvider[string]()
	calls := 0
	p.Value().Wait(func(string, error) { calls++ })
	p.Resolve("first")

	require.PanicsWithError(t,
		"async: contract violation in Resolve: value already resolved",
		func() { p.Resolve("second") },
	)
	require.Panics(t, func() { p.Reject(errors.New("late")) })

	s, _ := p.Value().Result()
	assert.Equal(t, "first", s)
	assert.Equal(t, 1, calls)
}

func TestValue_resultBeforeReady(t *testing.T) {
	p := NewProvider[string]()
	require.Panics(t, func() { _, _ = p.Value().Result() })
}

func TestValue_waitAfterResolve(t *testing.T) {
	v := Resolved("done")
	calls := 0
	var got string
	v.Wait(func(s string, err error) {
		calls++
		got = s
	})
	require.Equal(t, 1, calls)
	require.Equal(t, "done", got)
}

func TestValue_reject(t *testing.T) {
	p := NewProvider[int]()
	var gotErr error
	p.Value().Wait(func(_ int, err error) { gotErr = err })

	boom := errors.New("boom")
	p.Reject(boom)
	require.ErrorIs(t, gotErr, boom)

	_, err := p.Value().Result()
	require.ErrorIs(t, err, boom)

	require.Panics(t, func() { NewProvider[int]().Reject(nil) })
}

func TestValue_droppedProvider(t *testing.T) {
	fired := false
	NewProvider[int]().Value().Wait(func(int, error) { fired = true })
	require.False(t, fired)
}

func TestValue_concurrentWaitResolve(t *testing.T) {
	for i := 0; i < 200; i++ {
		p := NewProvider[int]()
		var (
			mu    sync.Mutex
			calls int
			wg    sync.WaitGroup
		)
		wg.Add(2)
		go func() {
			defer wg.Done()
			p.Value().Wait(func(int, error) {
				mu.Lock()
				calls++
				mu.Unlock()
			})
		}()
		go func() {
			defer wg.Done()
			p.Resolve(i)
		}()
		wg.Wait()
		require.Equal(t, 1, calls)
	}
}

// A deadline is composed by racing two values; the first to resolve wins.
func TestValue_firstOf(t *testing.T) {
	first := func(vs ...*Value[string]) *Value[string] {
		p := NewProvider[string]()
		var once sync.Once
		for _, v := range vs {
			v.Wait(func(s string, err error) {
				once.Do(func() { p.Settle(s, err) })
			})
		}
		return p.Value()
	}

	work := NewProvider[string]()
	timeout := NewProvider[string]()
	res := first(work.Value(), timeout.Value())
	require.False(t, res.Ready())

	timeout.Reject(errors.New("deadline exceeded"))
	work.Resolve("late")

	_, err := res.Result()
	require.EqualError(t, err, "deadline exceeded")
}

func TestThen(t *testing.T) {
	p := NewProvider[string]()
	n := Then(p.Value(), func(s string) (int, error) { return len(s), nil })
	require.False(t, n.Ready())
	p.Resolve("hello")

	got, err := n.Result()
	require.NoError(t, err)
	require.Equal(t, 5, got)

	failed := Then(Rejected[string](errors.New("nope")), func(s string) (int, error) {
		t.Fatal("must not be called")
		return 0, nil
	})
	_, err = failed.Result()
	require.EqualError(t, err, "nope")
}

func TestThen_panicRejectsDerivedValue(t *testing.T) {
	p := NewProvider[int]()
	derived := Then(p.Value(), func(int) (string, error) { panic("mapper bug") })

	require.NotPanics(t, func() { p.Resolve(1) })
	require.True(t, derived.Ready())
	_, err := derived.Result()
	require.ErrorIs(t, err, ErrChainPanic)
	require.ErrorContains(t, err, "mapper bug")
}

func TestThen_contractViolationStillPanics(t *testing.T) {
	p := NewProvider[int]()
	pending := NewProvider[int]().Value()
	Then(p.Value(), func(int) (int, error) { return pending.Result() })

	require.PanicsWithError(t,
		"async: contract violation in Result: value not ready",
		func() { p.Resolve(1) },
	)
}

func TestValue_panickingObserverDoesNotStarveOthers(t *testing.T) {
	var reg diag.Registry
	p := NewProvider[int]()

	var seen []int
	p.Value().Wait(func(int, error) { panic("observer bug") })
	p.Value().Wait(func(n int, _ error) { seen = append(seen, n) })

	var got int
	chain := BeginIn(&reg, func(f *Frame[int]) {
		switch f.At() {
		case 0:
			Await(f, 1, p.Value(), &got)
		case 1:
			f.Return(got * 2)
		}
	})
	require.Equal(t, int64(1), reg.LiveFrames())

	require.PanicsWithValue(t, "observer bug", func() { p.Resolve(21) })

	require.Equal(t, []int{21}, seen)
	require.True(t, chain.Ready())
	n, err := chain.Result()
	require.NoError(t, err)
	require.Equal(t, 42, n)
	require.Zero(t, reg.LiveFrames())
}
