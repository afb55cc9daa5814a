package schedule

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/rovshanmuradov/pumpbundle/internal/engine"
	"github.com/rovshanmuradov/pumpbundle/internal/events"
	"github.com/rovshanmuradov/pumpbundle/internal/relay"
	"github.com/rovshanmuradov/pumpbundle/internal/trade"
	"github.com/rovshanmuradov/pumpbundle/internal/wallet"
)

const testMint = "So11111111111111111111111111111111111111112"

type fakeTrader struct {
	calls   atomic.Int32
	mu      sync.Mutex
	results []relay.Result
	block   chan struct{}
	panicOn int32
	intents []trade.Intent
}

func (f *fakeTrader) SubmitGatedTrade(_ context.Context, _ string, _ *wallet.Wallet, intent trade.Intent, gate engine.Gate) relay.Result {
	n := f.calls.Add(1)
	if f.block != nil {
		<-f.block
	}
	if !gate.Enter() {
		return relay.Failure(relay.ModeSingle, engine.ErrDiscarded)
	}
	defer gate.Leave()
	if f.panicOn != 0 && n == f.panicOn {
		panic("collaborator blew up")
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.intents = append(f.intents, intent)
	if len(f.results) == 0 {
		return relay.Result{Mode: relay.ModeSingle, Success: true, Signature: "sig"}
	}
	res := f.results[0]
	if len(f.results) > 1 {
		f.results = f.results[1:]
	}
	return res
}

type staticCreds struct {
	w *wallet.Wallet
}

func (c staticCreds) Get(string) (*wallet.Wallet, bool) {
	return c.w, c.w != nil
}

type eventLog struct {
	mu     sync.Mutex
	events []events.ScheduleEvent
}

func (l *eventLog) Publish(e events.Event) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if se, ok := e.(events.ScheduleEvent); ok {
		l.events = append(l.events, se)
	}
	return nil
}

func (l *eventLog) iterations() []events.ScheduleEvent {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []events.ScheduleEvent
	for _, e := range l.events {
		if e.Type() == events.ScheduleIteration {
			out = append(out, e)
		}
	}
	return out
}

func newCreds(t *testing.T) staticCreds {
	t.Helper()
	w, err := wallet.NewTokenIdentity()
	require.NoError(t, err)
	return staticCreds{w: w}
}

func buyIntent() trade.Intent {
	return trade.Intent{Action: trade.ActionBuy, Amount: decimal.RequireFromString("0.001"), Pool: trade.PoolRaydium}
}

func fastConfig() Config {
	return Config{
		Interval:     20 * time.Millisecond,
		Cooldown:     5 * time.Millisecond,
		StopTimeout:  time.Second,
		TradeTimeout: time.Second,
	}
}

func TestScheduler_RunsRepeatedly(t *testing.T) {
	trader := &fakeTrader{}
	log := &eventLog{}
	s := New(fastConfig(), trader, newCreds(t), zaptest.NewLogger(t), WithPublisher(log))
	key := Key{UserID: "u1", Mint: testMint}

	ack, err := s.Start(key, buyIntent())
	require.NoError(t, err)
	assert.False(t, ack.Replaced)
	assert.NotEmpty(t, ack.HandleID)
	assert.Equal(t, StateRunning, s.Status(key))

	require.Eventually(t, func() bool { return trader.calls.Load() >= 3 }, 2*time.Second, 5*time.Millisecond)
	assert.True(t, s.Stop(key))

	trader.mu.Lock()
	assert.Equal(t, testMint, trader.intents[0].Mint)
	trader.mu.Unlock()
	iters := log.iterations()
	require.NotEmpty(t, iters)
	assert.True(t, iters[0].Success)
	assert.Equal(t, 1, iters[0].Iteration)
}

func TestScheduler_StartTwiceLeavesOneHandle(t *testing.T) {
	trader := &fakeTrader{}
	s := New(fastConfig(), trader, newCreds(t), zaptest.NewLogger(t))
	key := Key{UserID: "u1", Mint: testMint}

	first, err := s.Start(key, buyIntent())
	require.NoError(t, err)
	second, err := s.Start(key, buyIntent())
	require.NoError(t, err)
	defer s.Close()

	assert.True(t, second.Replaced)
	assert.NotEqual(t, first.HandleID, second.HandleID)

	list := s.List("")
	require.Len(t, list, 1)
	assert.Equal(t, second.HandleID, list[0].HandleID)
}

func TestScheduler_StopUnknownKey(t *testing.T) {
	s := New(fastConfig(), &fakeTrader{}, newCreds(t), zaptest.NewLogger(t))
	assert.NotPanics(t, func() {
		assert.False(t, s.Stop(Key{UserID: "nobody", Mint: testMint}))
	})
	assert.Equal(t, StateIdle, s.Status(Key{UserID: "nobody", Mint: testMint}))
}

func TestScheduler_NoTradeAfterStop(t *testing.T) {
	trader := &fakeTrader{}
	s := New(fastConfig(), trader, newCreds(t), zaptest.NewLogger(t))
	key := Key{UserID: "u1", Mint: testMint}

	_, err := s.Start(key, buyIntent())
	require.NoError(t, err)
	require.Eventually(t, func() bool { return trader.calls.Load() >= 1 }, time.Second, time.Millisecond)

	require.True(t, s.Stop(key))
	after := trader.calls.Load()

	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, after, trader.calls.Load())
	assert.Empty(t, s.List("u1"))
}

func TestScheduler_FailureDoesNotEndSchedule(t *testing.T) {
	trader := &fakeTrader{results: []relay.Result{
		relay.Failure(relay.ModeSingle, errors.New("quote api down")),
		{Mode: relay.ModeSingle, Success: true, Signature: "recovered"},
	}}
	log := &eventLog{}
	cfg := fastConfig()
	cfg.Interval = time.Hour
	s := New(cfg, trader, newCreds(t), zaptest.NewLogger(t), WithPublisher(log))
	key := Key{UserID: "u1", Mint: testMint}

	_, err := s.Start(key, buyIntent())
	require.NoError(t, err)
	defer s.Close()

	// Only the cooldown can produce a second call within the test's lifetime.
	require.Eventually(t, func() bool { return trader.calls.Load() >= 2 }, 2*time.Second, time.Millisecond)
	assert.Equal(t, StateRunning, s.Status(key))

	require.Eventually(t, func() bool { return len(log.iterations()) >= 2 }, time.Second, time.Millisecond)
	iters := log.iterations()
	assert.False(t, iters[0].Success)
	assert.Contains(t, iters[0].Error, "quote api down")
	assert.True(t, iters[1].Success)
	assert.Equal(t, "recovered", iters[1].Signature)
}

func TestScheduler_PanicIsContained(t *testing.T) {
	trader := &fakeTrader{panicOn: 1}
	s := New(fastConfig(), trader, newCreds(t), zaptest.NewLogger(t))
	key := Key{UserID: "u1", Mint: testMint}

	_, err := s.Start(key, buyIntent())
	require.NoError(t, err)
	defer s.Close()

	require.Eventually(t, func() bool { return trader.calls.Load() >= 2 }, 2*time.Second, time.Millisecond)
	info := s.List("u1")
	require.Len(t, info, 1)
	assert.GreaterOrEqual(t, info[0].Iterations, 1)
}

func TestScheduler_MissingCredentialCoolsDown(t *testing.T) {
	trader := &fakeTrader{}
	log := &eventLog{}
	s := New(fastConfig(), trader, staticCreds{}, zaptest.NewLogger(t), WithPublisher(log))
	key := Key{UserID: "u1", Mint: testMint}

	_, err := s.Start(key, buyIntent())
	require.NoError(t, err)
	defer s.Close()

	require.Eventually(t, func() bool { return len(log.iterations()) >= 2 }, time.Second, time.Millisecond)
	assert.Equal(t, int32(0), trader.calls.Load())
	assert.Contains(t, log.iterations()[0].Error, ErrNoCredential.Error())
}

func TestScheduler_CancelledInFlightResultDiscarded(t *testing.T) {
	trader := &fakeTrader{block: make(chan struct{})}
	log := &eventLog{}
	cfg := fastConfig()
	cfg.StopTimeout = 20 * time.Millisecond
	s := New(cfg, trader, newCreds(t), zaptest.NewLogger(t), WithPublisher(log))
	key := Key{UserID: "u1", Mint: testMint}

	_, err := s.Start(key, buyIntent())
	require.NoError(t, err)
	require.Eventually(t, func() bool { return trader.calls.Load() == 1 }, time.Second, time.Millisecond)

	require.True(t, s.Stop(key))
	close(trader.block)

	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, int32(1), trader.calls.Load())
	assert.Empty(t, log.iterations())
}

func TestScheduler_StartValidation(t *testing.T) {
	s := New(fastConfig(), &fakeTrader{}, newCreds(t), zaptest.NewLogger(t))

	_, err := s.Start(Key{UserID: "u1"}, buyIntent())
	var vErr *trade.ValidationError
	assert.True(t, errors.As(err, &vErr))

	_, err = s.Start(Key{UserID: "u1", Mint: testMint}, trade.Intent{Action: trade.ActionCreate})
	assert.True(t, errors.As(err, &vErr))
}

func TestScheduler_StopUserAndClose(t *testing.T) {
	s := New(fastConfig(), &fakeTrader{}, newCreds(t), zaptest.NewLogger(t))

	for _, k := range []Key{{"u1", "a"}, {"u1", "b"}, {"u2", "a"}} {
		_, err := s.Start(k, buyIntent())
		require.NoError(t, err)
	}
	assert.Len(t, s.List(""), 3)
	assert.Equal(t, 2, s.StopUser("u1"))
	assert.Len(t, s.List(""), 1)

	require.NoError(t, s.Close())
	assert.Empty(t, s.List(""))
}
