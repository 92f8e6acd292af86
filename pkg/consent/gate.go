package consent

import (
	"github.com/benmeehan/location-agent/pkg/location"
)

// Gate wraps a location watcher so it only runs while consent is granted.
// Without consent StartWatch fails with location.ErrPermissionDenied, and a
// revocation during a watch turns the next fix into that same error.
type Gate struct {
	checker Checker
	watcher location.Watcher
}

// NewGate creates a Gate around watcher.
func NewGate(checker Checker, watcher location.Watcher) *Gate {
	return &Gate{checker: checker, watcher: watcher}
}

func (g *Gate) StartWatch(opts location.WatchOptions, onSample func(location.PositionSample), onError func(error)) (location.WatchID, error) {
	if !g.checker.Status().Granted {
		return "", location.ErrPermissionDenied
	}

	guarded := func(sample location.PositionSample) {
		if !g.checker.Status().Granted {
			onError(location.ErrPermissionDenied)
			return
		}
		onSample(sample)
	}
	return g.watcher.StartWatch(opts, guarded, onError)
}

func (g *Gate) CancelWatch(id location.WatchID) {
	g.watcher.CancelWatch(id)
}
