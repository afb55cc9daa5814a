// internal/schedule/scheduler.go
package schedule

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/pumpbundle/internal/engine"
	"github.com/rovshanmuradov/pumpbundle/internal/events"
	"github.com/rovshanmuradov/pumpbundle/internal/relay"
	"github.com/rovshanmuradov/pumpbundle/internal/trade"
	"github.com/rovshanmuradov/pumpbundle/internal/wallet"
)

const (
	DefaultInterval     = time.Hour
	DefaultCooldown     = time.Minute
	DefaultStopTimeout  = 5 * time.Second
	DefaultTradeTimeout = 2 * time.Minute
)

// ErrNoCredential is reported by an iteration whose user has no stored key.
var ErrNoCredential = errors.New("no credential stored for user")

// Key identifies one recurring purchase.
type Key struct {
	UserID string
	Mint   string
}

func (k Key) String() string {
	return k.UserID + "/" + k.Mint
}

// State is the lifecycle of a schedule handle.
type State int

const (
	StateIdle State = iota
	StateRunning
	StateCancelled
)

func (s State) String() string {
	switch s {
	case StateRunning:
		return "running"
	case StateCancelled:
		return "cancelled"
	default:
		return "idle"
	}
}

// Trader executes one single-trade submission. The gate is checked after quoting and signing.
type Trader interface {
	SubmitGatedTrade(ctx context.Context, userID string, w *wallet.Wallet, intent trade.Intent, gate engine.Gate) relay.Result
}

// Credentials resolves a user's wallet at the moment of each trade.
type Credentials interface {
	Get(userID string) (*wallet.Wallet, bool)
}

// Recorder receives iteration outcomes and the active schedule count.
type Recorder interface {
	ObserveIteration(success bool)
	SetActiveSchedules(n int)
}

// Config controls loop timing.
type Config struct {
	Interval     time.Duration
	Cooldown     time.Duration
	StopTimeout  time.Duration
	TradeTimeout time.Duration
}

// Ack confirms a started schedule.
type Ack struct {
	Key       Key
	HandleID  string
	Replaced  bool
	StartedAt time.Time
	Interval  time.Duration
}

// Info describes a live schedule.
type Info struct {
	Key        Key
	HandleID   string
	State      State
	StartedAt  time.Time
	Iterations int
	LastError  string
}

type handle struct {
	id        string
	key       Key
	intent    trade.Intent
	startedAt time.Time
	cancel    context.CancelFunc
	done      chan struct{}

	mu         sync.Mutex
	state      State
	iterations int
	lastErr    string
	inflight   sync.WaitGroup
}

// Enter admits a submission only while the handle is running.
// Add happens under mu before cancelAndWait can observe the cancelled state.
func (h *handle) Enter() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.state != StateRunning {
		return false
	}
	h.inflight.Add(1)
	return true
}

func (h *handle) Leave() {
	h.inflight.Done()
}

func (h *handle) setState(s State) {
	h.mu.Lock()
	h.state = s
	h.mu.Unlock()
}

func (h *handle) info() Info {
	h.mu.Lock()
	defer h.mu.Unlock()
	return Info{
		Key:        h.key,
		HandleID:   h.id,
		State:      h.state,
		StartedAt:  h.startedAt,
		Iterations: h.iterations,
		LastError:  h.lastErr,
	}
}

// Scheduler owns at most one running purchase loop per key.
type Scheduler struct {
	mu      sync.Mutex
	handles map[Key]*handle

	cfg       Config
	trader    Trader
	creds     Credentials
	publisher events.Publisher
	recorder  Recorder
	logger    *zap.Logger
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithPublisher reports outcomes as events.
func WithPublisher(p events.Publisher) Option {
	return func(s *Scheduler) { s.publisher = p }
}

// WithRecorder records iteration metrics.
func WithRecorder(r Recorder) Option {
	return func(s *Scheduler) { s.recorder = r }
}

// New creates a scheduler. Zero durations in cfg take the defaults.
func New(cfg Config, trader Trader, creds Credentials, logger *zap.Logger, opts ...Option) *Scheduler {
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultInterval
	}
	if cfg.Cooldown <= 0 {
		cfg.Cooldown = DefaultCooldown
	}
	if cfg.StopTimeout <= 0 {
		cfg.StopTimeout = DefaultStopTimeout
	}
	if cfg.TradeTimeout <= 0 {
		cfg.TradeTimeout = DefaultTradeTimeout
	}
	s := &Scheduler{
		handles: make(map[Key]*handle),
		cfg:     cfg,
		trader:  trader,
		creds:   creds,
		logger:  logger.Named("scheduler"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start runs intent for key every interval. A schedule already running for key
// is cancelled and waited for before the new loop begins.
func (s *Scheduler) Start(key Key, intent trade.Intent) (Ack, error) {
	if key.UserID == "" || key.Mint == "" {
		return Ack{}, &trade.ValidationError{Field: "key", Reason: "user and mint are required"}
	}
	if intent.Action == trade.ActionCreate {
		return Ack{}, &trade.ValidationError{Field: "action", Reason: "create cannot be scheduled"}
	}
	intent = intent.WithMint(key.Mint)

	ctx, cancel := context.WithCancel(context.Background())
	h := &handle{
		id:        uuid.NewString(),
		key:       key,
		intent:    intent,
		startedAt: time.Now(),
		cancel:    cancel,
		done:      make(chan struct{}),
		state:     StateRunning,
	}

	// Замена под одной блокировкой: между проверкой и записью нет точек ожидания.
	s.mu.Lock()
	prev, replaced := s.handles[key]
	s.handles[key] = h
	active := len(s.handles)
	s.mu.Unlock()

	if replaced {
		s.cancelAndWait(prev)
	}

	go s.run(ctx, h)

	s.setActive(active)
	s.logger.Info("Schedule started",
		zap.String("key", key.String()),
		zap.String("handle_id", h.id),
		zap.Bool("replaced", replaced),
		zap.Duration("interval", s.cfg.Interval))
	s.publish(events.ScheduleEvent{
		BaseEvent: events.NewBase(events.ScheduleStarted),
		UserID:    key.UserID,
		Mint:      key.Mint,
		HandleID:  h.id,
		Replaced:  replaced,
	})

	return Ack{Key: key, HandleID: h.id, Replaced: replaced, StartedAt: h.startedAt, Interval: s.cfg.Interval}, nil
}

// Stop cancels the schedule for key. It returns false when no schedule was running.
// When Stop returns, the loop submits no further trades.
func (s *Scheduler) Stop(key Key) bool {
	s.mu.Lock()
	h, ok := s.handles[key]
	if ok {
		delete(s.handles, key)
	}
	active := len(s.handles)
	s.mu.Unlock()

	if !ok {
		return false
	}

	s.cancelAndWait(h)
	s.setActive(active)
	s.logger.Info("Schedule stopped", zap.String("key", key.String()), zap.String("handle_id", h.id))
	s.publish(events.ScheduleEvent{
		BaseEvent: events.NewBase(events.ScheduleStopped),
		UserID:    key.UserID,
		Mint:      key.Mint,
		HandleID:  h.id,
		Iteration: h.info().Iterations,
	})
	return true
}

// StopUser cancels every schedule owned by userID and returns how many were stopped.
func (s *Scheduler) StopUser(userID string) int {
	n := 0
	for _, info := range s.List(userID) {
		if s.Stop(info.Key) {
			n++
		}
	}
	return n
}

// List returns live schedules, optionally filtered by user, sorted by key.
func (s *Scheduler) List(userID string) []Info {
	s.mu.Lock()
	out := make([]Info, 0, len(s.handles))
	for k, h := range s.handles {
		if userID != "" && k.UserID != userID {
			continue
		}
		out = append(out, h.info())
	}
	s.mu.Unlock()

	sort.Slice(out, func(i, j int) bool { return out[i].Key.String() < out[j].Key.String() })
	return out
}

// Status returns the state of key. Unknown keys are idle.
func (s *Scheduler) Status(key Key) State {
	s.mu.Lock()
	h, ok := s.handles[key]
	s.mu.Unlock()
	if !ok {
		return StateIdle
	}
	return h.info().State
}

// Close stops every schedule. It implements io.Closer for the shutdown handler.
func (s *Scheduler) Close() error {
	s.mu.Lock()
	all := make([]*handle, 0, len(s.handles))
	for k, h := range s.handles {
		all = append(all, h)
		delete(s.handles, k)
	}
	s.mu.Unlock()

	var wg sync.WaitGroup
	for _, h := range all {
		wg.Add(1)
		go func(h *handle) {
			defer wg.Done()
			s.cancelAndWait(h)
		}(h)
	}
	wg.Wait()
	s.setActive(0)
	return nil
}

func (s *Scheduler) cancelAndWait(h *handle) {
	h.setState(StateCancelled)
	h.cancel()
	// Начатая отправка завершается до возврата; новые уже не пройдут Enter.
	h.inflight.Wait()

	select {
	case <-h.done:
	case <-time.After(s.cfg.StopTimeout):
		s.logger.Warn("Schedule did not stop in time",
			zap.String("key", h.key.String()),
			zap.String("handle_id", h.id),
			zap.Duration("timeout", s.cfg.StopTimeout))
	}
}

func (s *Scheduler) run(ctx context.Context, h *handle) {
	defer close(h.done)

	log := s.logger.With(
		zap.String("key", h.key.String()),
		zap.String("handle_id", h.id))

	for {
		if ctx.Err() != nil {
			return
		}

		opLog := log.With(
			zap.String("operation", "schedule_iteration"),
			zap.String("correlation_id", uuid.NewString()))

		res, err := s.iterate(ctx, h)
		if ctx.Err() != nil {
			// Отменено во время сетевого вызова: результат отбрасываем.
			opLog.Debug("Discarding result of cancelled iteration")
			return
		}

		wait := s.cfg.Interval
		if err != nil {
			wait = s.cfg.Cooldown
			opLog.Warn("Iteration failed, cooling down", zap.Error(err), zap.Duration("cooldown", wait))
		} else {
			opLog.Info("Iteration succeeded", zap.String("signature", res.Signature))
		}
		s.report(h, res, err)

		select {
		case <-ctx.Done():
			return
		case <-time.After(wait):
		}
	}
}

// iterate runs one trade. Any failure, including a panic in a collaborator, becomes an error.
func (s *Scheduler) iterate(ctx context.Context, h *handle) (res relay.Result, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("iteration panic: %v", r)
		}
	}()

	w, ok := s.creds.Get(h.key.UserID)
	if !ok {
		return relay.Failure(relay.ModeSingle, ErrNoCredential), ErrNoCredential
	}

	// Сетевой вызов не прерывается отменой расписания, только таймаутом.
	tradeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.cfg.TradeTimeout)
	defer cancel()

	res = s.trader.SubmitGatedTrade(tradeCtx, h.key.UserID, w, h.intent, h)
	if !res.Success {
		if res.Err == nil {
			res.Err = errors.New("trade failed")
		}
		return res, res.Err
	}
	return res, nil
}

func (s *Scheduler) report(h *handle, res relay.Result, err error) {
	h.mu.Lock()
	h.iterations++
	n := h.iterations
	if err != nil {
		h.lastErr = err.Error()
	} else {
		h.lastErr = ""
	}
	h.mu.Unlock()

	if s.recorder != nil {
		s.recorder.ObserveIteration(err == nil)
	}

	ev := events.ScheduleEvent{
		BaseEvent:   events.NewBase(events.ScheduleIteration),
		UserID:      h.key.UserID,
		Mint:        h.key.Mint,
		HandleID:    h.id,
		Iteration:   n,
		Success:     err == nil,
		Signature:   res.Signature,
		ExplorerURL: res.ExplorerURL,
	}
	if err != nil {
		ev.Error = err.Error()
	}
	s.publish(ev)
}

func (s *Scheduler) setActive(n int) {
	if s.recorder != nil {
		s.recorder.SetActiveSchedules(n)
	}
}

func (s *Scheduler) publish(ev events.Event) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(ev); err != nil {
		s.logger.Debug("Event not published", zap.String("event_type", string(ev.Type())), zap.Error(err))
	}
}
