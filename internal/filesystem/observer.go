package filesystem

import "sync/atomic"

// Observer records filesystem operation metrics. Implementations are provided
// by the metrics package to break the import cycle between filesystem and metrics.
type Observer interface {
	// ObserveOperation records duration and error status for an operation:
	// "stat", "read" or "write".
	ObserveOperation(operation string, durationSeconds float64, err error)
	ObserveRetryAttempt(operation string)
	ObserveRetryFailure(operation string)
}

type observerHolder struct {
	o Observer
}

// defaultObserver is set at startup. When unset, metric recording is skipped.
var defaultObserver atomic.Pointer[observerHolder]

// SetObserver sets the package-level metrics observer.
func SetObserver(o Observer) {
	defaultObserver.Store(&observerHolder{o: o})
}

// observe is a nil-safe accessor for the package-level observer.
func observe() Observer {
	if h := defaultObserver.Load(); h != nil {
		return h.o
	}
	return nil
}
