package actor

import (
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turingvideo/couchbase-lite-core/core/async"
)

type (
	getDoc  struct{ ID string }
	saveDoc struct{ ID, Body string }
	closeDb struct{}
	unknown struct{}
	doc     struct{ ID, Body string }
)

func TestHandlers_request(t *testing.T) {
	docs := map[string]*doc{"1": {ID: "1", Body: "hello"}}
	a := newTestActor(t, newTestPool(t),
		HandleRequest[getDoc, *doc](func(hc HandlerCtx, q getDoc) (*doc, error) {
			assert.NotNil(t, hc.Actor())
			d, ok := docs[q.ID]
			if !ok {
				return nil, errors.New("not found")
			}
			return d, nil
		}),
	)

	d, err := await(t, Request[getDoc, *doc](a, getDoc{ID: "1"}))
	require.NoError(t, err)
	require.Equal(t, "hello", d.Body)

	_, err = await(t, Request[getDoc, *doc](a, getDoc{ID: "2"}))
	require.EqualError(t, err, "not found")
}

func TestHandlers_noHandler(t *testing.T) {
	a := newTestActor(t, newTestPool(t), HandleMsg[closeDb](func(HandlerCtx, closeDb) error { return nil }))
	_, err := await(t, Request[unknown, any](a, unknown{}))
	require.ErrorIs(t, err, ErrNoHandler)

	plain := newTestActor(t, newTestPool(t))
	_, err = await(t, Request[unknown, any](plain, unknown{}))
	require.ErrorIs(t, err, ErrNoHandler)
}

func TestHandlers_defaultHandler(t *testing.T) {
	a := newTestActor(t, newTestPool(t),
		DefaultHandler(func(_ HandlerCtx, msg any) (any, error) {
			_, ok := msg.(unknown)
			return ok, nil
		}),
	)
	ok, err := await(t, Request[unknown, bool](a, unknown{}))
	require.NoError(t, err)
	require.True(t, ok)
}

func TestHandlers_badResultType(t *testing.T) {
	a := newTestActor(t, newTestPool(t),
		HandleRequest[getDoc, string](func(HandlerCtx, getDoc) (string, error) { return "x", nil }),
	)
	_, err := await(t, Request[getDoc, int](a, getDoc{}))
	require.ErrorIs(t, err, ErrBadResultType)
}

func TestHandlers_panicOnlyRejectsReply(t *testing.T) {
	var closed atomic.Bool
	a := newTestActor(t, newTestPool(t),
		HandleMsg[saveDoc](func(HandlerCtx, saveDoc) error { panic("disk on fire") }),
		HandleMsg[closeDb](func(HandlerCtx, closeDb) error { closed.Store(true); return nil }),
	)

	_, err := await(t, Publish(a, saveDoc{ID: "1"}))
	require.ErrorIs(t, err, ErrHandlerPanic)

	_, err = await(t, Publish(a, closeDb{}))
	require.NoError(t, err)
	require.True(t, closed.Load())
}

func TestHandlers_async(t *testing.T) {
	greeting := async.NewProvider[string]()
	a := newTestActor(t, newTestPool(t),
		HandleAsync[getDoc, string](func(hc HandlerCtx, q getDoc) *async.Value[string] {
			var g string
			return async.Begin(func(f *async.Frame[string]) {
				switch f.At() {
				case 0:
					async.Await(f, 1, Hop(hc.Actor(), greeting.Value()), &g)
				case 1:
					f.Return(g + " " + q.ID)
				}
			})
		}),
	)

	v := Request[getDoc, string](a, getDoc{ID: "there"})
	require.False(t, v.Ready())
	greeting.Resolve("hi")

	got, err := await(t, v)
	require.NoError(t, err)
	require.Equal(t, "hi there", got)
}

func TestHandlers_init(t *testing.T) {
	var order []string
	a := New(Options{Executor: Inline()},
		Init(func(HandlerCtx) error { order = append(order, "init"); return nil }),
		HandleMsg[closeDb](func(HandlerCtx, closeDb) error { order = append(order, "close"); return nil }),
	)
	Publish(a, closeDb{})
	require.Equal(t, []string{"init", "close"}, order)
}

func TestHandlers_messageTypeOverride(t *testing.T) {
	a := New(Options{Executor: Inline()},
		HandleRequest[getDoc, string](func(HandlerCtx, getDoc) (string, error) { return "ok", nil },
			WithMessageType("doc.get")),
	)
	_, err := Request[getDoc, string](a, getDoc{}).Result()
	require.ErrorIs(t, err, ErrNoHandler)

	v := a.handlers.HandleMessage(a.hc, "doc.get", getDoc{})
	out, err := v.Result()
	require.NoError(t, err)
	require.Equal(t, "ok", out)
}

func TestHandlers_every(t *testing.T) {
	var ticks atomic.Int32
	a := newTestActor(t, newTestPool(t),
		HandleEvery(5*time.Millisecond, func(HandlerCtx) error {
			ticks.Add(1)
			return nil
		}),
	)
	require.Eventually(t, func() bool { return ticks.Load() >= 3 }, 2*time.Second, 5*time.Millisecond)
	require.NotEmpty(t, a.ID())
}
