package actor

import (
	"context"
	"log/slog"
)

type (
	// HandlerCtx is passed to typed handlers. It is only valid while the
	// handler's mailbox entry runs.
	HandlerCtx interface {
		context.Context
		Log() *slog.Logger
		Actor() *Actor
	}
)

type handlerCtx struct {
	context.Context
	log   *slog.Logger
	actor *Actor
}

func (hc *handlerCtx) Log() *slog.Logger { return hc.log }
func (hc *handlerCtx) Actor() *Actor     { return hc.actor }

var _ HandlerCtx = (*handlerCtx)(nil)
