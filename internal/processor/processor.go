// Package processor runs the background email ingestion loop.
package processor

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/time/rate"

	"workorder-engine/internal/config"
	"workorder-engine/internal/domain"
	"workorder-engine/internal/events"
	"workorder-engine/internal/store"
)

const (
	statusLogLimit     = 10
	defaultJoinTimeout = 5 * time.Second
)

// Source discovers inbound items.
type Source interface {
	Poll(ctx context.Context) ([]domain.Item, error)
}

// Handler processes one item.
type Handler interface {
	Handle(ctx context.Context, item domain.Item) error
}

type HandlerFunc func(ctx context.Context, item domain.Item) error

func (f HandlerFunc) Handle(ctx context.Context, item domain.Item) error { return f(ctx, item) }

// SourceFactory builds the item source for a run from the config snapshot.
type SourceFactory func(cfg config.Config, settings config.ProcessorSettings) (Source, error)

// ReloadFunc refreshes run-scoped dependencies, such as extraction rules,
// from the settings read at Start.
type ReloadFunc func(settings config.ProcessorSettings) error

type ConfigLoader interface {
	Load() (config.Config, error)
}

type AttemptLog interface {
	Append(ctx context.Context, itemID string, outcome store.Outcome, detail string) (store.Attempt, error)
	Recent(ctx context.Context, limit int) ([]store.Attempt, error)
}

// Entry status values, as reported by Status.
const (
	EntrySuccess = "success"
	EntryError   = "error"
	EntryInfo    = "info"
)

type LogEntry struct {
	Timestamp time.Time `json:"timestamp"`
	Message   string    `json:"message"`
	Status    string    `json:"status"`
}

type Status struct {
	Running         bool       `json:"running"`
	LastCheck       *time.Time `json:"last_check"`
	EmailsProcessed int64      `json:"emails_processed"`
	Logs            []LogEntry `json:"logs"`
}

// Result is the outcome of Start or Stop. Status is "success" when the state
// changed and "info" when it was already as requested.
type Result struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

type Options struct {
	Config      ConfigLoader
	Logs        AttemptLog
	Handler     Handler
	NewSource   SourceFactory
	Reload      ReloadFunc
	Hub         *events.Hub
	Metrics     *Metrics
	Log         zerolog.Logger
	JoinTimeout time.Duration
}

// Processor owns the IDLE/RUNNING state machine. At most one loop runs at a
// time; a run id keeps a loop that outlived Stop from touching the state of
// the next run.
type Processor struct {
	cfg         ConfigLoader
	logs        AttemptLog
	handler     Handler
	newSource   SourceFactory
	reload      ReloadFunc
	hub         *events.Hub
	metrics     *Metrics
	log         zerolog.Logger
	joinTimeout time.Duration
	now         func() time.Time

	mu           sync.Mutex
	running      bool
	runID        uint64
	lastCheck    time.Time
	itemsHandled int64
	buf          *ring
	cancel       context.CancelFunc
	done         chan struct{}
}

func New(opts Options) *Processor {
	if opts.NewSource == nil {
		opts.NewSource = DefaultSourceFactory(opts.Log)
	}
	if opts.Metrics == nil {
		opts.Metrics = NewMetrics(nil)
	}
	if opts.JoinTimeout <= 0 {
		opts.JoinTimeout = defaultJoinTimeout
	}
	return &Processor{
		cfg:         opts.Config,
		logs:        opts.Logs,
		handler:     opts.Handler,
		newSource:   opts.NewSource,
		reload:      opts.Reload,
		hub:         opts.Hub,
		metrics:     opts.Metrics,
		log:         opts.Log,
		joinTimeout: opts.JoinTimeout,
		now:         time.Now,
		buf:         newRing(statusLogLimit),
	}
}

// Start begins a run. It returns immediately; the loop runs in its own
// goroutine until Stop.
func (p *Processor) Start() (Result, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.running {
		return Result{Status: "info", Message: "Email processor is already running"}, nil
	}

	cfg, err := p.cfg.Load()
	if err != nil {
		return Result{}, &StartupError{Op: "load config", Err: err}
	}
	settings := cfg.ProcessorSettings()

	if p.reload != nil {
		if err := p.reload(settings); err != nil {
			return Result{}, &StartupError{Op: "reload", Err: err}
		}
	}

	src, err := p.newSource(cfg, settings)
	if err != nil {
		return Result{}, &StartupError{Op: "build " + settings.Source + " source", Err: err}
	}

	ctx, cancel := context.WithCancel(context.Background())
	p.runID++
	p.running = true
	p.itemsHandled = 0
	p.buf.reset()
	p.cancel = cancel
	p.done = make(chan struct{})

	go p.run(ctx, p.runID, p.done, src, settings)

	p.metrics.Running.Set(1)
	p.log.Info().
		Str("source", settings.Source).
		Dur("interval", settings.PollInterval).
		Msg("processor started")
	p.hub.Emit("", events.TypeProcessorStarted, events.ProcessorStarted{
		Source:   settings.Source,
		Interval: settings.PollInterval,
	})

	return Result{Status: "success", Message: "Email processor started"}, nil
}

// Stop cancels the loop and waits up to the join timeout for it to exit.
func (p *Processor) Stop() Result {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return Result{Status: "info", Message: "Email processor is not running"}
	}
	p.running = false
	runID, cancel, done := p.runID, p.cancel, p.done
	p.cancel = nil
	p.mu.Unlock()

	cancel()
	select {
	case <-done:
	case <-time.After(p.joinTimeout):
		p.log.Warn().Dur("timeout", p.joinTimeout).Msg("processor loop did not exit in time")
	}

	// a Start during the join owns the gauge and the event order from here
	p.mu.Lock()
	if p.runID == runID {
		p.metrics.Running.Set(0)
		p.hub.Emit("", events.TypeProcessorStopped, nil)
	}
	p.mu.Unlock()
	p.log.Info().Msg("processor stopped")

	return Result{Status: "success", Message: "Email processor stopped"}
}

// Running reports the state without touching the log store.
func (p *Processor) Running() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.running
}

// Status merges this run's entries with the most recent stored attempts.
func (p *Processor) Status(ctx context.Context) (Status, error) {
	p.mu.Lock()
	st := Status{
		Running:         p.running,
		EmailsProcessed: p.itemsHandled,
	}
	if !p.lastCheck.IsZero() {
		lc := p.lastCheck
		st.LastCheck = &lc
	}
	entries := p.buf.snapshot()
	p.mu.Unlock()

	attempts, err := p.logs.Recent(ctx, statusLogLimit)
	if err != nil {
		return Status{}, err
	}
	for _, a := range attempts {
		entries = append(entries, attemptEntry(a))
	}

	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Timestamp.After(entries[j].Timestamp)
	})
	if len(entries) > statusLogLimit {
		entries = entries[:statusLogLimit]
	}
	st.Logs = entries
	return st, nil
}

func attemptEntry(a store.Attempt) LogEntry {
	if a.Outcome == store.OutcomeSuccess {
		return LogEntry{Timestamp: a.Timestamp, Message: fmt.Sprintf("Email %s processed", a.ItemID), Status: EntrySuccess}
	}
	return LogEntry{Timestamp: a.Timestamp, Message: fmt.Sprintf("Email %s: %s", a.ItemID, a.Detail), Status: EntryError}
}

func (p *Processor) run(ctx context.Context, runID uint64, done chan struct{}, src Source, settings config.ProcessorSettings) {
	defer close(done)
	log := p.log.With().Uint64("run", runID).Logger()

	limit := rate.Inf
	if settings.ItemsPerSecond > 0 {
		limit = rate.Limit(settings.ItemsPerSecond)
	}
	limiter := rate.NewLimiter(limit, 1)

	for {
		if ctx.Err() != nil {
			return
		}

		wait := settings.PollInterval
		if err := p.cycle(ctx, runID, src, limiter, log); err != nil {
			if ctx.Err() != nil {
				return
			}
			p.metrics.CycleErrorsTotal.Inc()
			log.Error().Err(err).Dur("backoff", settings.ErrorBackoff).Msg("poll cycle failed")
			p.record(runID, EntryError, "Error in email processor: "+err.Error())
			wait = settings.ErrorBackoff
		}

		if !sleep(ctx, wait) {
			return
		}
	}
}

// cycle runs one check. Only a failing source is returned as an error;
// per-item failures are logged and the cycle moves on.
func (p *Processor) cycle(ctx context.Context, runID uint64, src Source, limiter *rate.Limiter, log zerolog.Logger) (err error) {
	ctx, span := startCycleSpan(ctx, runID)
	defer func() { endSpan(span, err) }()

	now := p.now()
	p.mu.Lock()
	if p.runID == runID {
		p.lastCheck = now
	}
	p.mu.Unlock()
	p.metrics.CyclesTotal.Inc()
	p.metrics.LastCheck.Set(float64(now.Unix()))
	p.record(runID, EntryInfo, "Checking for new emails...")

	items, err := src.Poll(ctx)
	if err != nil {
		return fmt.Errorf("poll source: %w", err)
	}
	span.SetAttributes(attribute.Int(attrItems, len(items)))

	for _, item := range items {
		// cancellation is sampled between items, never during one
		if err := limiter.Wait(ctx); err != nil {
			return ctx.Err()
		}
		p.handle(context.WithoutCancel(ctx), runID, item, log)
	}

	p.record(runID, EntryInfo, fmt.Sprintf("Processed %d new emails", len(items)))
	return nil
}

func (p *Processor) handle(ctx context.Context, runID uint64, item domain.Item, log zerolog.Logger) {
	ctx, span := startItemSpan(ctx, item.ID)
	err := p.handler.Handle(ctx, item)

	outcome, detail := store.OutcomeSuccess, ""
	if err != nil {
		outcome, detail = store.OutcomeError, err.Error()
	}
	span.SetAttributes(attribute.String(attrOutcome, string(outcome)))
	endSpan(span, err)

	if err != nil {
		failure := &HandlingFailure{ItemID: item.ID, Err: err}
		log.Warn().Err(failure).Str("item_id", item.ID).Msg("item failed")
	} else {
		p.mu.Lock()
		if p.runID == runID {
			p.itemsHandled++
		}
		p.mu.Unlock()
	}
	p.metrics.ItemsTotal.WithLabelValues(string(outcome)).Inc()

	if _, err := p.logs.Append(ctx, item.ID, outcome, detail); err != nil {
		log.Error().Err(err).Str("item_id", item.ID).Msg("could not record attempt")
	}
	p.hub.Emit("", events.TypeItemProcessed, events.ItemProcessed{
		ItemID:  item.ID,
		Outcome: string(outcome),
		Detail:  detail,
	})
}

// record adds an entry to the current run's buffer.
func (p *Processor) record(runID uint64, status, msg string) {
	e := LogEntry{Timestamp: p.now(), Message: msg, Status: status}

	p.mu.Lock()
	stale := p.runID != runID
	if !stale {
		p.buf.add(e)
	}
	p.mu.Unlock()

	if !stale {
		p.hub.Emit("", events.TypeProcessorLog, e)
	}
}

// sleep waits for d and reports false if ctx ended first.
func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return ctx.Err() == nil
	}
}
