package location

import "time"

// WatchID identifies an active watch so it can be cancelled.
type WatchID string

// Watcher is the platform location capability. Implementations deliver fixes
// to onSample and failures to onError until CancelWatch is called.
type Watcher interface {
	StartWatch(opts WatchOptions, onSample func(PositionSample), onError func(error)) (WatchID, error)
	CancelWatch(id WatchID)
}

// Timer is a pending callback scheduled by a Clock.
type Timer interface {
	Stop() bool
}

// Clock schedules deadline callbacks.
type Clock interface {
	Now() time.Time
	AfterFunc(d time.Duration, f func()) Timer
}
