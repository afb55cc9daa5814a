// internal/engine/engine.go
package engine

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/rovshanmuradov/pumpbundle/internal/bundle"
	"github.com/rovshanmuradov/pumpbundle/internal/events"
	"github.com/rovshanmuradov/pumpbundle/internal/relay"
	"github.com/rovshanmuradov/pumpbundle/internal/trade"
	"github.com/rovshanmuradov/pumpbundle/internal/txpipeline"
	"github.com/rovshanmuradov/pumpbundle/internal/wallet"
)

// QuoteClient returns unsigned transaction templates for trade payloads.
type QuoteClient interface {
	TradeLocal(ctx context.Context, payload trade.Payload) ([]byte, error)
	TradeLocalBundle(ctx context.Context, payloads []trade.Payload) ([][]byte, error)
}

// Submitter sends signed transactions.
type Submitter interface {
	SubmitSingle(ctx context.Context, signed *txpipeline.Signed) relay.Result
	SubmitBundle(ctx context.Context, signed []*txpipeline.Signed) relay.Result
}

// UploadRecorder receives metadata upload outcomes.
type UploadRecorder interface {
	ObserveUpload(success bool)
}

// ErrDiscarded reports a signed trade that its gate refused to send.
var ErrDiscarded = errors.New("trade discarded before submission")

// Gate is consulted after quoting and signing, right before submission.
// Enter returning false drops the trade; a true Enter is paired with Leave once the submission returns.
type Gate interface {
	Enter() bool
	Leave()
}

// Engine wires quoting, signing and submission into the operations exposed to callers.
type Engine struct {
	quotes    QuoteClient
	composer  *bundle.Composer
	pipeline  *txpipeline.Pipeline
	submitter Submitter
	publisher events.Publisher
	uploads   UploadRecorder
	quoteURL  string
	logger    *zap.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithPublisher sends outcome events to p.
func WithPublisher(p events.Publisher) Option {
	return func(e *Engine) { e.publisher = p }
}

// WithUploadRecorder records metadata upload outcomes.
func WithUploadRecorder(r UploadRecorder) Option {
	return func(e *Engine) { e.uploads = r }
}

// WithQuoteEndpoint sets the endpoint reported in quote failures.
func WithQuoteEndpoint(url string) Option {
	return func(e *Engine) { e.quoteURL = url }
}

// New creates an engine.
func New(quotes QuoteClient, composer *bundle.Composer, pipeline *txpipeline.Pipeline, submitter Submitter, logger *zap.Logger, opts ...Option) *Engine {
	e := &Engine{
		quotes:    quotes,
		composer:  composer,
		pipeline:  pipeline,
		submitter: submitter,
		quoteURL:  "trade-local",
		logger:    logger.Named("engine"),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// BuildBundle composes a launch bundle. It fails with *bundle.MetadataUploadError
// or *trade.ValidationError before any template is requested.
func (e *Engine) BuildBundle(ctx context.Context, md bundle.Metadata, buyers []bundle.Buyer) (*bundle.Request, error) {
	req, err := e.composer.Compose(ctx, md, buyers)

	var uploadErr *bundle.MetadataUploadError
	switch {
	case err == nil:
		e.observeUpload(true)
	case errors.As(err, &uploadErr):
		e.observeUpload(false)
	}
	return req, err
}

// SubmitBundle quotes, signs and submits every leg of req as one atomic bundle.
func (e *Engine) SubmitBundle(ctx context.Context, userID string, req *bundle.Request) relay.Result {
	log := e.logger.With(zap.String("user_id", userID), zap.String("mint", req.Mint()))

	templates, err := e.quotes.TradeLocalBundle(ctx, req.Payloads())
	if err != nil {
		log.Error("Bundle quote failed", zap.Error(err))
		res := relay.Failure(relay.ModeBundle, &relay.SubmissionError{Mode: relay.ModeBundle, Endpoint: e.quoteURL, Err: err})
		e.publishBundle(userID, req.Mint(), res)
		return res
	}

	signed, err := e.pipeline.SignBundle(req, templates)
	if err != nil {
		log.Error("Bundle signing failed", zap.Error(err))
		res := relay.Failure(relay.ModeBundle, err)
		e.publishBundle(userID, req.Mint(), res)
		return res
	}

	res := e.submitter.SubmitBundle(ctx, signed)
	if res.Success {
		log.Info("Bundle landed at relay", zap.String("bundle_id", res.BundleID))
	}
	e.publishBundle(userID, req.Mint(), res)
	return res
}

// Launch builds and submits a launch bundle in one call.
func (e *Engine) Launch(ctx context.Context, userID string, md bundle.Metadata, buyers []bundle.Buyer) (*bundle.Request, relay.Result, error) {
	req, err := e.BuildBundle(ctx, md, buyers)
	if err != nil {
		return nil, relay.Result{}, err
	}
	return req, e.SubmitBundle(ctx, userID, req), nil
}

// SubmitSingleTrade quotes, signs and submits one buy or sell for w.
func (e *Engine) SubmitSingleTrade(ctx context.Context, userID string, w *wallet.Wallet, intent trade.Intent) relay.Result {
	return e.SubmitGatedTrade(ctx, userID, w, intent, nil)
}

// SubmitGatedTrade is SubmitSingleTrade with a last check before the transaction leaves the process.
// A refused trade returns a failure wrapping ErrDiscarded and publishes nothing.
func (e *Engine) SubmitGatedTrade(ctx context.Context, userID string, w *wallet.Wallet, intent trade.Intent, gate Gate) relay.Result {
	log := e.logger.With(
		zap.String("user_id", userID),
		zap.String("action", string(intent.Action)),
		zap.String("mint", intent.Mint))

	if w == nil {
		res := relay.Failure(relay.ModeSingle, &trade.ValidationError{Field: "wallet", Reason: "no credential for user"})
		e.publishTrade(userID, intent, res)
		return res
	}

	template, err := e.quotes.TradeLocal(ctx, intent.Payload(w.PublicKey.String()))
	if err != nil {
		log.Error("Trade quote failed", zap.Error(err))
		res := relay.Failure(relay.ModeSingle, &relay.SubmissionError{Mode: relay.ModeSingle, Endpoint: e.quoteURL, Err: err})
		e.publishTrade(userID, intent, res)
		return res
	}

	signed, err := e.pipeline.SignSingle(intent, w, template)
	if err != nil {
		log.Error("Trade signing failed", zap.Error(err))
		res := relay.Failure(relay.ModeSingle, err)
		e.publishTrade(userID, intent, res)
		return res
	}

	if gate != nil {
		if !gate.Enter() {
			log.Info("Trade discarded before submission", zap.String("signature", signed.Signature.String()))
			return relay.Failure(relay.ModeSingle, ErrDiscarded)
		}
		defer gate.Leave()
	}

	res := e.submitter.SubmitSingle(ctx, signed)
	e.publishTrade(userID, intent, res)
	return res
}

func (e *Engine) observeUpload(success bool) {
	if e.uploads != nil {
		e.uploads.ObserveUpload(success)
	}
}

func (e *Engine) publishTrade(userID string, intent trade.Intent, res relay.Result) {
	if e.publisher == nil {
		return
	}
	typ := events.TradeSubmitted
	if !res.Success {
		typ = events.TradeFailed
	}
	e.publish(events.TradeEvent{
		BaseEvent:   events.NewBase(typ),
		UserID:      userID,
		Mint:        intent.Mint,
		Action:      string(intent.Action),
		Signature:   res.Signature,
		ExplorerURL: res.ExplorerURL,
		Error:       res.ErrorDetail(),
	})
}

func (e *Engine) publishBundle(userID, mint string, res relay.Result) {
	if e.publisher == nil {
		return
	}
	typ := events.BundleSubmitted
	if !res.Success {
		typ = events.BundleFailed
	}
	e.publish(events.BundleEvent{
		BaseEvent:   events.NewBase(typ),
		UserID:      userID,
		Mint:        mint,
		BundleID:    res.BundleID,
		Signatures:  res.Signatures,
		ExplorerURL: res.ExplorerURL,
		Error:       res.ErrorDetail(),
	})
}

func (e *Engine) publish(ev events.Event) {
	if err := e.publisher.Publish(ev); err != nil {
		e.logger.Debug("Event not published", zap.String("event_type", string(ev.Type())), zap.Error(err))
	}
}
