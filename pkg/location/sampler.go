package location

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// SessionState is the lifecycle position of a sampling session.
type SessionState int

const (
	StatePending SessionState = iota
	StateResolved
	StateRejected
)

func (s SessionState) String() string {
	switch s {
	case StatePending:
		return "pending"
	case StateResolved:
		return "resolved"
	case StateRejected:
		return "rejected"
	default:
		return "unknown"
	}
}

// Sampler watches a location source and settles on the most accurate fix it
// can get within a fixed time budget.
type Sampler struct {
	watcher Watcher
	clock   Clock
	config  SamplerConfig
	logger  zerolog.Logger
}

// NewSampler creates a Sampler. A nil watcher is allowed; every session will
// then fail with ErrNoLocationCapability. Zero config fields fall back to
// DefaultSamplerConfig.
func NewSampler(watcher Watcher, clock Clock, config SamplerConfig, logger zerolog.Logger) *Sampler {
	defaults := DefaultSamplerConfig()
	if config.Deadline <= 0 {
		config.Deadline = defaults.Deadline
	}
	if config.GoodEnoughMeters <= 0 {
		config.GoodEnoughMeters = defaults.GoodEnoughMeters
	}
	if config.PerFixTimeout <= 0 {
		config.PerFixTimeout = defaults.PerFixTimeout
	}
	if clock == nil {
		clock = RealClock()
	}

	return &Sampler{
		watcher: watcher,
		clock:   clock,
		config:  config,
		logger:  logger,
	}
}

// AcquireBestEffortLocation runs one sampling session and blocks until it settles.
func (s *Sampler) AcquireBestEffortLocation(ctx context.Context) (PositionSample, error) {
	session, err := s.Begin()
	if err != nil {
		return PositionSample{}, err
	}
	return session.Wait(ctx)
}

// Begin starts a session: the deadline timer and the watch are opened together.
// Callers must not run sessions on the same watcher concurrently.
func (s *Sampler) Begin() (*Session, error) {
	if s.watcher == nil {
		s.logger.Error().Msg("No location watcher configured")
		return nil, ErrNoLocationCapability
	}

	session := &Session{
		watcher:   s.watcher,
		clock:     s.clock,
		threshold: s.config.GoodEnoughMeters,
		startedAt: s.clock.Now(),
		logger:    s.logger,
		done:      make(chan struct{}),
	}

	session.mu.Lock()
	session.timer = s.clock.AfterFunc(s.config.Deadline, session.onDeadline)
	session.mu.Unlock()

	opts := WatchOptions{
		HighAccuracy:  true,
		MaxCacheAge:   0,
		PerFixTimeout: s.config.PerFixTimeout,
	}

	id, err := s.watcher.StartWatch(opts, session.onSample, session.onError)
	if err != nil {
		// No watch was opened, so nobody else will close done.
		session.onError(err)
		close(session.done)
		return session, nil
	}

	session.mu.Lock()
	session.watchID = id
	session.watching = true
	settled := session.state != StatePending
	session.mu.Unlock()

	// The watcher may have delivered a settling callback before StartWatch returned.
	if settled {
		s.watcher.CancelWatch(id)
		close(session.done)
	}

	s.logger.Debug().
		Str("watch_id", string(id)).
		Dur("deadline", s.config.Deadline).
		Float64("good_enough_m", s.config.GoodEnoughMeters).
		Msg("Location sampling started")
	return session, nil
}

// Session is one sampling run. It moves from StatePending to exactly one of
// StateResolved or StateRejected; done is closed only after the timer is
// stopped and the watch cancelled.
type Session struct {
	watcher   Watcher
	clock     Clock
	threshold float64
	startedAt time.Time
	logger    zerolog.Logger

	mu       sync.Mutex
	state    SessionState
	best     PositionSample
	hasBest  bool
	received int
	result   PositionSample
	err      error
	timer    Timer
	watchID  WatchID
	watching bool
	done     chan struct{}
}

// Wait blocks until the session settles or ctx is done. Cancelling ctx rejects
// a pending session with ctx.Err().
func (s *Session) Wait(ctx context.Context) (PositionSample, error) {
	select {
	case <-s.done:
	case <-ctx.Done():
		s.abort(ctx.Err())
		<-s.done
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.result, s.err
}

// State returns the current lifecycle state.
func (s *Session) State() SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Best returns the most accurate sample recorded so far.
func (s *Session) Best() (PositionSample, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.best, s.hasBest
}

// Received returns how many samples were accepted while pending.
func (s *Session) Received() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.received
}

// Done is closed once the session has settled and released its resources.
func (s *Session) Done() <-chan struct{} {
	return s.done
}

func (s *Session) onSample(sample PositionSample) {
	s.mu.Lock()
	if s.state != StatePending {
		s.mu.Unlock()
		return
	}

	s.received++
	// Strictly better only, so ties keep the earliest sample.
	if !s.hasBest || sample.AccuracyMeters < s.best.AccuracyMeters {
		s.best = sample
		s.hasBest = true
	}

	if sample.AccuracyMeters > s.threshold {
		s.mu.Unlock()
		return
	}

	release := s.settleLocked(StateResolved, sample, nil)
	s.mu.Unlock()
	release("good_enough")
}

func (s *Session) onError(err error) {
	s.mu.Lock()
	if s.state != StatePending {
		s.mu.Unlock()
		return
	}

	var release func(string)
	if s.hasBest {
		release = s.settleLocked(StateResolved, s.best, nil)
	} else {
		release = s.settleLocked(StateRejected, PositionSample{}, &SignalError{Cause: err})
	}
	s.mu.Unlock()
	release("watch_error")
}

func (s *Session) onDeadline() {
	s.mu.Lock()
	if s.state != StatePending {
		s.mu.Unlock()
		return
	}

	var release func(string)
	if s.hasBest {
		release = s.settleLocked(StateResolved, s.best, nil)
	} else {
		release = s.settleLocked(StateRejected, PositionSample{}, &SignalError{Cause: ErrSamplingDeadline})
	}
	s.mu.Unlock()
	release("deadline")
}

func (s *Session) abort(err error) {
	s.mu.Lock()
	if s.state != StatePending {
		s.mu.Unlock()
		return
	}

	release := s.settleLocked(StateRejected, PositionSample{}, err)
	s.mu.Unlock()
	release("cancelled")
}

// settleLocked records the outcome and returns the teardown to run once s.mu
// is released. Watchers may block in CancelWatch until their in-flight
// callback returns, so the watch must not be cancelled under the lock.
func (s *Session) settleLocked(state SessionState, sample PositionSample, err error) func(string) {
	s.state = state
	s.result = sample
	s.err = err

	timer, id, watching := s.timer, s.watchID, s.watching
	received := s.received

	return func(reason string) {
		if timer != nil {
			timer.Stop()
		}
		if watching {
			s.watcher.CancelWatch(id)
		}

		var event *zerolog.Event
		if state == StateRejected {
			event = s.logger.Warn().Err(err)
		} else {
			event = s.logger.Info().
				Float64("accuracy_m", sample.AccuracyMeters).
				Str("source", sample.Source)
		}
		event.
			Str("state", state.String()).
			Str("reason", reason).
			Int("samples", received).
			Dur("elapsed", s.clock.Now().Sub(s.startedAt)).
			Msg("Location sampling finished")

		// Before the watch handle is known, Begin closes done itself.
		if watching {
			close(s.done)
		}
	}
}
