// Package metrics defines the instruments the engine reports through, so
// that the core packages do not depend on a particular metrics backend.
// See adapters/prometheus for the Prometheus implementation.
package metrics

// Timer measures one operation. Call ObserveDuration when it completes:
//
//	defer m.MessageDuration("save").ObserveDuration()
type Timer interface {
	ObserveDuration()
}

// TimerFunc adapts a function to Timer.
type TimerFunc func()

func (f TimerFunc) ObserveDuration() { f() }
