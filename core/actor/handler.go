package actor

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/turingvideo/couchbase-lite-core/core/async"
)

type (
	// MsgHandlerFunc handles one typed message on the actor's mailbox and
	// returns the eventual reply.
	MsgHandlerFunc func(hc HandlerCtx, msg any) *async.Value[any]

	// HandlerInitFunc runs as the actor's first mailbox entry.
	HandlerInitFunc func(hc HandlerCtx) error

	// HandlerRegistrar allows registering message handlers with the actor.
	HandlerRegistrar interface {
		// Register adds a handler for a message type. Either part may be nil.
		Register(msgType string, handle MsgHandlerFunc, init HandlerInitFunc)
	}

	// HandlerRegistration registers handlers with a registrar. Create these
	// using [HandleMsg], [HandleRequest], [HandleAsync], [HandleEvery], etc.
	HandlerRegistration func(registrar HandlerRegistrar)
)

// TypedHandlerRegistry dispatches typed messages by type name.
type TypedHandlerRegistry struct {
	mu             sync.RWMutex
	inits          []HandlerInitFunc
	handlers       map[string]MsgHandlerFunc
	defaultHandler MsgHandlerFunc
}

const defaultMsgType = "*"

// TypedHandlers creates a registry with the given handlers:
//
//	a := actor.New(actor.Options{Name: "db"},
//	    actor.HandleMsg[CloseCmd](handleClose),
//	    actor.HandleRequest[GetDoc, *Doc](handleGet),
//	    actor.HandleAsync[SaveDoc, Revision](handleSave),
//	)
func TypedHandlers(handlers ...HandlerRegistration) *TypedHandlerRegistry {
	th := &TypedHandlerRegistry{
		handlers: make(map[string]MsgHandlerFunc),
	}
	for _, h := range handlers {
		h(th)
	}
	return th
}

func (t *TypedHandlerRegistry) Register(msgType string, handle MsgHandlerFunc, init HandlerInitFunc) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if msgType != "" && handle != nil {
		t.handlers[msgType] = handle
	}
	if init != nil {
		t.inits = append(t.inits, init)
	}
}

// InitHandler runs every registered init function, stopping at the first
// error.
func (t *TypedHandlerRegistry) InitHandler(hc HandlerCtx) error {
	t.mu.Lock()
	if dh, ok := t.handlers[defaultMsgType]; ok {
		t.defaultHandler = dh
	}
	inits := t.inits
	t.mu.Unlock()

	for _, i := range inits {
		if err := i(hc); err != nil {
			return fmt.Errorf("failed to init handler: %w", err)
		}
	}
	return nil
}

// HandleMessage dispatches msg to the handler registered for mt.
func (t *TypedHandlerRegistry) HandleMessage(hc HandlerCtx, mt string, msg any) *async.Value[any] {
	t.mu.RLock()
	h, ok := t.handlers[mt]
	if !ok {
		h = t.defaultHandler
	}
	t.mu.RUnlock()

	if h == nil {
		return async.Rejected[any](fmt.Errorf("%w: msg_type=%s go_type=%T", ErrNoHandler, mt, msg))
	}
	return h(hc, msg)
}

// HandleOpts configures handler registration.
type HandleOpts struct {
	// MessageType overrides the type name derived from the Go type.
	MessageType string
}

type HandleOption func(*HandleOpts)

// WithMessageType overrides the message type name used for routing.
func WithMessageType(msgType string) HandleOption {
	return func(o *HandleOpts) { o.MessageType = msgType }
}

func handleOpts[IN any](opts []HandleOption) HandleOpts {
	key, _ := msgTypeFor[IN]()
	o := HandleOpts{MessageType: key}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// DefaultHandler registers a fallback for messages without a specific
// handler.
func DefaultHandler(h func(HandlerCtx, any) (any, error)) HandlerRegistration {
	return func(registrar HandlerRegistrar) {
		registrar.Register(defaultMsgType, func(hc HandlerCtx, msg any) *async.Value[any] {
			out, err := h(hc, msg)
			if err != nil {
				return async.Rejected[any](err)
			}
			return async.Resolved(out)
		}, nil)
	}
}

// Init registers a function run as the actor's first mailbox entry.
func Init(initFunc HandlerInitFunc) HandlerRegistration {
	return func(registrar HandlerRegistrar) {
		registrar.Register("", nil, initFunc)
	}
}

// HandleMsg registers a one-way message handler for type IN.
func HandleMsg[IN any](h func(hc HandlerCtx, msg IN) error, opts ...HandleOption) HandlerRegistration {
	return HandleRequest[IN, async.Void](func(hc HandlerCtx, msg IN) (async.Void, error) {
		return async.Void{}, h(hc, msg)
	}, opts...)
}

// HandleRequest registers a handler that replies synchronously.
func HandleRequest[IN, OUT any](h func(hc HandlerCtx, msg IN) (OUT, error), opts ...HandleOption) HandlerRegistration {
	return HandleAsync[IN, OUT](func(hc HandlerCtx, msg IN) *async.Value[OUT] {
		out, err := h(hc, msg)
		if err != nil {
			return async.Rejected[OUT](err)
		}
		return async.Resolved(out)
	}, opts...)
}

// HandleAsync registers a handler whose reply is an async value, typically
// a chain started with async.Begin.
func HandleAsync[IN, OUT any](h func(hc HandlerCtx, msg IN) *async.Value[OUT], opts ...HandleOption) HandlerRegistration {
	o := handleOpts[IN](opts)
	return func(registrar HandlerRegistrar) {
		registrar.Register(o.MessageType, func(hc HandlerCtx, msg any) *async.Value[any] {
			in, ok := msg.(IN)
			if !ok {
				return async.Rejected[any](fmt.Errorf("invalid request message type: %T", msg))
			}
			v := h(hc, in)
			if v == nil {
				return async.Rejected[any](fmt.Errorf("handler for %s returned no value", o.MessageType))
			}
			return async.Then(v, func(out OUT) (any, error) { return out, nil })
		}, nil)
	}
}

// HandleEvery runs h on the mailbox every interval until the actor's
// context is done.
func HandleEvery(interval time.Duration, h func(hc HandlerCtx) error) HandlerRegistration {
	return Init(func(hc HandlerCtx) error {
		a := hc.Actor()
		var tick func()
		tick = func() {
			if hc.Err() != nil {
				return
			}
			a.EnqueueAfter(interval, "every", tick)
			if err := h(hc); err != nil {
				hc.Log().Warn("periodic handler failed", slog.Any("error", err))
			}
		}
		a.EnqueueAfter(interval, "every", tick)
		return nil
	})
}
