// Package schedule decides when open documents get validated. Every URI
// owns a small state machine (idle, pending, validating) driven by
// document-changed events: each event restarts a per-URI debounce timer
// whose delay comes from the document's effective settings, and only the
// newest version survives the window. Configuration changes are
// debounced separately and fan out as a re-validation of every tracked
// document. Validation work runs on its own goroutine per dispatch and
// is cancelled when a newer version supersedes it.
package schedule

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/dshills/spelld/internal/resolve"
)

// Fixed debounce windows for configuration-change handling. The
// per-document validation delay is not fixed: it is re-read from the
// latest request's effective settings on every event.
const (
	DefaultConfigChangeDebounce = 100 * time.Millisecond
	DefaultRevalidateDebounce   = 250 * time.Millisecond
)

// State is the lifecycle position of one document's machine.
type State int

const (
	StateIdle State = iota
	StatePending
	StateValidating
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StatePending:
		return "pending"
	case StateValidating:
		return "validating"
	default:
		return "unknown"
	}
}

// Request is one document-changed event. Version must increase (or stay
// equal, for re-validation of unchanged content) per URI; older versions
// are dropped.
type Request struct {
	URI        string
	LanguageID string
	Version    int
	Text       string
}

// Result carries the issues for one completed validation, tagged with
// the version that produced them. A nil Issues slice clears previously
// published findings.
type Result struct {
	URI     string
	Version int
	Issues  []Issue
}

// EmitFunc receives validation results. It is invoked with the
// scheduler's internal lock held so same-URI results keep version
// order; implementations must not call back into the Scheduler.
type EmitFunc func(Result)

// Stats are cumulative scheduler counters.
type Stats struct {
	Scheduled   int64
	Validations int64
	Cleared     int64
	Discarded   int64
	Failures    int64
}

type docState struct {
	state   State
	version int
	gen     int64
	timer   *time.Timer
	pending Request
	cancel  context.CancelFunc
}

// Scheduler owns all per-URI validation state. All methods are safe for
// concurrent use.
type Scheduler struct {
	mu        sync.Mutex
	resolver  *resolve.Resolver
	validator Validator
	emit      EmitFunc
	log       zerolog.Logger

	docs   map[string]*docState
	closed bool
	wg     sync.WaitGroup

	configDebounce time.Duration
	revalDebounce  time.Duration
	configTimer    *time.Timer
	configGen      int64
	revalTimer     *time.Timer
	revalGen       int64

	scheduled   atomic.Int64
	validations atomic.Int64
	cleared     atomic.Int64
	discarded   atomic.Int64
	failures    atomic.Int64
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithLogger sets the scheduler's logger.
func WithLogger(log zerolog.Logger) Option {
	return func(s *Scheduler) { s.log = log }
}

// WithConfigChangeDebounce overrides the configuration-change window.
func WithConfigChangeDebounce(d time.Duration) Option {
	return func(s *Scheduler) { s.configDebounce = d }
}

// WithRevalidateDebounce overrides the validate-all window.
func WithRevalidateDebounce(d time.Duration) Option {
	return func(s *Scheduler) { s.revalDebounce = d }
}

// New creates a Scheduler that resolves settings through res and checks
// documents with validator. Results flow to emit.
func New(res *resolve.Resolver, validator Validator, emit EmitFunc, opts ...Option) *Scheduler {
	s := &Scheduler{
		resolver:       res,
		validator:      validator,
		emit:           emit,
		log:            zerolog.Nop(),
		docs:           make(map[string]*docState),
		configDebounce: DefaultConfigChangeDebounce,
		revalDebounce:  DefaultRevalidateDebounce,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Enqueue records a document-changed event and restarts the URI's
// debounce timer. Only the newest request per URI survives the window;
// intermediate versions are never validated.
func (s *Scheduler) Enqueue(req Request) {
	delay := s.resolver.GetURISettings(req.URI).Delay()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.enqueueLocked(req, delay)
}

func (s *Scheduler) enqueueLocked(req Request, delay time.Duration) {
	if s.closed {
		return
	}
	d := s.docs[req.URI]
	if d == nil {
		d = &docState{}
		s.docs[req.URI] = d
	}
	if req.Version < d.version {
		return
	}
	d.version = req.Version
	d.pending = req
	if d.cancel != nil {
		// Supersede the in-flight run; its result will be discarded.
		d.cancel()
		d.cancel = nil
	}
	if d.timer != nil {
		d.timer.Stop()
	}
	d.state = StatePending
	d.gen++
	gen := d.gen
	uri := req.URI
	d.timer = time.AfterFunc(delay, func() { s.fire(uri, d, gen) })
	s.scheduled.Add(1)
	s.log.Debug().Str("uri", uri).Int("version", req.Version).Dur("delay", delay).Msg("validation scheduled")
}

// fire runs when a URI's debounce window elapses. The generation guard
// makes a stopped-but-already-fired timer harmless.
func (s *Scheduler) fire(uri string, d *docState, gen int64) {
	s.mu.Lock()
	if s.closed || d.gen != gen {
		s.mu.Unlock()
		return
	}
	req := d.pending
	d.timer = nil
	s.mu.Unlock()

	// Settings are re-read after the wait so a configuration change
	// during the window is honored.
	eff := s.resolver.GetURISettings(uri)
	if !eff.Enabled() || !eff.LanguageEnabled(req.LanguageID) || eff.Exclusions.MatchURI(uri) {
		s.clear(uri, d, gen, req.Version)
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	runID := uuid.NewString()

	s.mu.Lock()
	if s.closed || d.gen != gen {
		s.mu.Unlock()
		cancel()
		return
	}
	d.state = StateValidating
	d.cancel = cancel
	s.wg.Add(1)
	s.mu.Unlock()

	go s.run(ctx, d, req, eff, gen, runID)
}

// clear publishes an empty result for a document that is gated off by
// its effective settings.
func (s *Scheduler) clear(uri string, d *docState, gen int64, version int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || d.gen != gen {
		return
	}
	d.state = StateIdle
	s.cleared.Add(1)
	s.log.Debug().Str("uri", uri).Int("version", version).Msg("validation gated off; clearing diagnostics")
	if s.emit != nil {
		s.emit(Result{URI: uri, Version: version})
	}
}

func (s *Scheduler) run(ctx context.Context, d *docState, req Request, eff *resolve.Effective, gen int64, runID string) {
	defer s.wg.Done()

	start := time.Now()
	s.log.Debug().Str("run_id", runID).Str("uri", req.URI).Int("version", req.Version).Msg("validation started")
	issues, ok := s.safeValidate(ctx, req, eff, runID)

	s.mu.Lock()
	defer s.mu.Unlock()
	if !ok {
		// Validator failure is isolated to this document; its machine
		// returns to idle and prior diagnostics stay as they were.
		if !s.closed && d.gen == gen {
			d.state = StateIdle
			d.cancel = nil
		}
		return
	}
	s.validations.Add(1)
	if s.closed || d.gen != gen || ctx.Err() != nil {
		s.discarded.Add(1)
		s.log.Debug().Str("run_id", runID).Str("uri", req.URI).Int("version", req.Version).Msg("validation superseded; result discarded")
		return
	}
	d.state = StateIdle
	d.cancel = nil
	s.log.Debug().
		Str("run_id", runID).
		Str("uri", req.URI).
		Int("version", req.Version).
		Int("issues", len(issues)).
		Dur("elapsed", time.Since(start)).
		Msg("validation completed")
	if s.emit != nil {
		s.emit(Result{URI: req.URI, Version: req.Version, Issues: issues})
	}
}

// safeValidate invokes the validator and converts a panic into a logged
// failure so one document cannot take the scheduler down.
func (s *Scheduler) safeValidate(ctx context.Context, req Request, eff *resolve.Effective, runID string) (issues []Issue, ok bool) {
	defer func() {
		if r := recover(); r != nil {
			s.failures.Add(1)
			s.log.Error().Str("run_id", runID).Str("uri", req.URI).Interface("panic", r).Msg("validator panicked")
			issues, ok = nil, false
		}
	}()
	return s.validator.Validate(ctx, req.Text, req.LanguageID, eff), true
}

// ConfigChanged signals that configuration state may have moved: pushed
// client settings, a registered file, or an on-disk edit. Bursts are
// coalesced; after the window the settings cache is invalidated and
// every tracked document is re-validated.
func (s *Scheduler) ConfigChanged() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	if s.configTimer != nil {
		s.configTimer.Stop()
	}
	s.configGen++
	gen := s.configGen
	s.configTimer = time.AfterFunc(s.configDebounce, func() { s.applyConfigChange(gen) })
}

func (s *Scheduler) applyConfigChange(gen int64) {
	s.mu.Lock()
	if s.closed || s.configGen != gen {
		s.mu.Unlock()
		return
	}
	s.configTimer = nil
	s.mu.Unlock()

	s.resolver.ResetSettings()
	s.log.Debug().Msg("settings cache invalidated")

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || s.configGen != gen {
		return
	}
	if s.revalTimer != nil {
		s.revalTimer.Stop()
	}
	s.revalGen++
	rv := s.revalGen
	s.revalTimer = time.AfterFunc(s.revalDebounce, func() { s.revalidateAll(rv) })
}

// revalidateAll re-enqueues the last request of every tracked document.
func (s *Scheduler) revalidateAll(gen int64) {
	s.mu.Lock()
	if s.closed || s.revalGen != gen {
		s.mu.Unlock()
		return
	}
	s.revalTimer = nil
	reqs := make([]Request, 0, len(s.docs))
	for _, d := range s.docs {
		reqs = append(reqs, d.pending)
	}
	s.mu.Unlock()

	s.log.Debug().Int("documents", len(reqs)).Msg("re-validating open documents")
	for _, req := range reqs {
		delay := s.resolver.GetURISettings(req.URI).Delay()
		s.mu.Lock()
		if d, ok := s.docs[req.URI]; ok && req.Version >= d.version {
			s.enqueueLocked(req, delay)
		}
		s.mu.Unlock()
	}
}

// Forget drops a document's state: its pending timer is cancelled, any
// in-flight run is superseded, and re-validation waves skip it.
func (s *Scheduler) Forget(uri string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d := s.docs[uri]
	if d == nil {
		return
	}
	d.gen++
	if d.timer != nil {
		d.timer.Stop()
	}
	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	delete(s.docs, uri)
}

// DocumentState reports the state machine position for uri. Unknown
// URIs are idle.
func (s *Scheduler) DocumentState(uri string) State {
	s.mu.Lock()
	defer s.mu.Unlock()
	if d := s.docs[uri]; d != nil {
		return d.state
	}
	return StateIdle
}

// Stats returns a snapshot of the scheduler counters.
func (s *Scheduler) Stats() Stats {
	return Stats{
		Scheduled:   s.scheduled.Load(),
		Validations: s.validations.Load(),
		Cleared:     s.cleared.Load(),
		Discarded:   s.discarded.Load(),
		Failures:    s.failures.Load(),
	}
}

// Close cancels every pending timer, supersedes in-flight runs, and
// waits for them to drain. No result is emitted after Close returns.
func (s *Scheduler) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	for _, d := range s.docs {
		if d.timer != nil {
			d.timer.Stop()
		}
		if d.cancel != nil {
			d.cancel()
			d.cancel = nil
		}
	}
	if s.configTimer != nil {
		s.configTimer.Stop()
	}
	if s.revalTimer != nil {
		s.revalTimer.Stop()
	}
	s.mu.Unlock()

	s.wg.Wait()
}
