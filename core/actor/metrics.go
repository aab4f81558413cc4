package actor

import "github.com/turingvideo/couchbase-lite-core/core/metrics"

// ActorMetrics is what actors and executors report. Implementations must be
// safe for concurrent use.
type ActorMetrics interface {
	// Mailbox entries
	MessageDuration(name string) metrics.Timer
	MessageProcessed(name string, success bool)
	MessagePanic(name string)

	// Mailbox
	MailboxDepth(actorID string, depth int)
	DrainYield(actorID string)
	Stalled(actorID string)

	// Executor
	ExecutorInflight(executor string, count int)
	ExecutorTaskDuration(executor string) metrics.Timer
	ExecutorTaskCompleted(executor string, success bool)
}

type nopActorMetrics struct{}

func (nopActorMetrics) MessageDuration(string) metrics.Timer { return metrics.NopTimer() }
func (nopActorMetrics) MessageProcessed(string, bool)        {}
func (nopActorMetrics) MessagePanic(string)                  {}

func (nopActorMetrics) MailboxDepth(string, int) {}
func (nopActorMetrics) DrainYield(string)        {}
func (nopActorMetrics) Stalled(string)           {}

func (nopActorMetrics) ExecutorInflight(string, int)              {}
func (nopActorMetrics) ExecutorTaskDuration(string) metrics.Timer { return metrics.NopTimer() }
func (nopActorMetrics) ExecutorTaskCompleted(string, bool)        {}

// NopActorMetrics returns an ActorMetrics that discards everything.
func NopActorMetrics() ActorMetrics { return nopActorMetrics{} }
