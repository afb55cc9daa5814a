package schedule

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/rovshanmuradov/pumpbundle/internal/engine"
	"github.com/rovshanmuradov/pumpbundle/internal/relay"
	"github.com/rovshanmuradov/pumpbundle/internal/testutil"
	"github.com/rovshanmuradov/pumpbundle/internal/trade"
	"github.com/rovshanmuradov/pumpbundle/internal/txpipeline"
)

// slowQuotes returns a valid template once release is closed.
type slowQuotes struct {
	t       *testing.T
	entered chan struct{}
	release chan struct{}
	calls   atomic.Int32
}

func (q *slowQuotes) TradeLocal(_ context.Context, p trade.Payload) ([]byte, error) {
	if q.calls.Add(1) == 1 {
		close(q.entered)
	}
	<-q.release
	return testutil.Template(q.t, solana.MustPublicKeyFromBase58(p.PublicKey)), nil
}

func (q *slowQuotes) TradeLocalBundle(context.Context, []trade.Payload) ([][]byte, error) {
	return nil, nil
}

// countingSubmitter blocks each submission until release is closed when release is set.
type countingSubmitter struct {
	entered chan struct{}
	release chan struct{}
	calls   atomic.Int32
}

func (s *countingSubmitter) SubmitSingle(context.Context, *txpipeline.Signed) relay.Result {
	if s.calls.Add(1) == 1 && s.entered != nil {
		close(s.entered)
	}
	if s.release != nil {
		<-s.release
	}
	return relay.Result{Mode: relay.ModeSingle, Success: true, Signature: "sig"}
}

func (s *countingSubmitter) SubmitBundle(context.Context, []*txpipeline.Signed) relay.Result {
	return relay.Result{Mode: relay.ModeBundle}
}

func stopConfig() Config {
	cfg := fastConfig()
	cfg.StopTimeout = 50 * time.Millisecond
	cfg.TradeTimeout = 5 * time.Second
	return cfg
}

func TestScheduler_StopDuringQuoteSubmitsNothing(t *testing.T) {
	quotes := &slowQuotes{t: t, entered: make(chan struct{}), release: make(chan struct{})}
	sub := &countingSubmitter{}
	logger := zaptest.NewLogger(t)
	eng := engine.New(quotes, nil, txpipeline.New(logger), sub, logger)
	log := &eventLog{}
	s := New(stopConfig(), eng, newCreds(t), logger, WithPublisher(log))
	key := Key{UserID: "u1", Mint: testMint}

	_, err := s.Start(key, buyIntent())
	require.NoError(t, err)
	<-quotes.entered

	require.True(t, s.Stop(key))
	assert.Equal(t, int32(0), sub.calls.Load())

	close(quotes.release)
	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, int32(0), sub.calls.Load(), "trade submitted after Stop returned")
	assert.Empty(t, log.iterations())
}

func TestScheduler_StopWaitsForStartedSubmission(t *testing.T) {
	quotes := &slowQuotes{t: t, entered: make(chan struct{}), release: make(chan struct{})}
	close(quotes.release)
	sub := &countingSubmitter{entered: make(chan struct{}), release: make(chan struct{})}
	logger := zaptest.NewLogger(t)
	eng := engine.New(quotes, nil, txpipeline.New(logger), sub, logger)
	s := New(stopConfig(), eng, newCreds(t), logger)
	key := Key{UserID: "u1", Mint: testMint}

	_, err := s.Start(key, buyIntent())
	require.NoError(t, err)
	<-sub.entered

	stopped := make(chan struct{})
	go func() {
		s.Stop(key)
		close(stopped)
	}()

	select {
	case <-stopped:
		t.Fatal("Stop returned while a submission was in flight")
	case <-time.After(150 * time.Millisecond):
	}

	close(sub.release)
	select {
	case <-stopped:
	case <-time.After(2 * time.Second):
		t.Fatal("Stop did not return after the submission finished")
	}
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, int32(1), sub.calls.Load())
}

func TestScheduler_ReplacedLoopSubmitsNothing(t *testing.T) {
	quotes := &slowQuotes{t: t, entered: make(chan struct{}), release: make(chan struct{})}
	sub := &countingSubmitter{}
	logger := zaptest.NewLogger(t)
	eng := engine.New(quotes, nil, txpipeline.New(logger), sub, logger)
	cfg := stopConfig()
	cfg.Interval = time.Hour
	s := New(cfg, eng, newCreds(t), logger)
	key := Key{UserID: "u1", Mint: testMint}

	first, err := s.Start(key, buyIntent())
	require.NoError(t, err)
	<-quotes.entered

	second, err := s.Start(key, buyIntent())
	require.NoError(t, err)
	defer s.Close()
	require.True(t, second.Replaced)
	assert.NotEqual(t, first.HandleID, second.HandleID)

	close(quotes.release)
	// Only the second loop may submit.
	require.Eventually(t, func() bool { return sub.calls.Load() >= 1 }, 2*time.Second, time.Millisecond)
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, int32(1), sub.calls.Load())
}
