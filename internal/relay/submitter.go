// internal/relay/submitter.go
package relay

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/pumpbundle/internal/txpipeline"
)

const (
	DefaultRPCURL        = "https://api.mainnet-beta.solana.com"
	DefaultRelayURL      = "https://mainnet.block-engine.jito.wtf/api/v1/bundles"
	DefaultExplorerTxURL = "https://solscan.io/tx/"
)

// TransactionSender sends one signed transaction to an RPC node. *rpc.Client implements it.
type TransactionSender interface {
	SendTransactionWithOpts(ctx context.Context, tx *solana.Transaction, opts rpc.TransactionOpts) (solana.Signature, error)
}

// Recorder receives submission timings.
type Recorder interface {
	ObserveSubmission(mode string, success bool, d time.Duration)
}

type nopRecorder struct{}

func (nopRecorder) ObserveSubmission(string, bool, time.Duration) {}

// Config holds endpoints for both submission paths.
type Config struct {
	RPCURL        string
	RelayURL      string
	ExplorerTxURL string
	SkipPreflight bool
	Timeout       time.Duration
}

// Submitter отправляет подписанные транзакции в RPC или в Jito block engine.
type Submitter struct {
	cfg      Config
	sender   TransactionSender
	bundles  *bundleClient
	recorder Recorder
	logger   *zap.Logger
}

// Option configures a Submitter.
type Option func(*Submitter)

// WithSender replaces the RPC sender.
func WithSender(s TransactionSender) Option {
	return func(sub *Submitter) {
		sub.sender = s
	}
}

// WithRecorder sets the metrics recorder.
func WithRecorder(r Recorder) Option {
	return func(sub *Submitter) {
		if r != nil {
			sub.recorder = r
		}
	}
}

// New creates a submitter. Without WithSender it talks to cfg.RPCURL via solana-go.
func New(cfg Config, logger *zap.Logger, opts ...Option) *Submitter {
	if cfg.RPCURL == "" {
		cfg.RPCURL = DefaultRPCURL
	}
	if cfg.RelayURL == "" {
		cfg.RelayURL = DefaultRelayURL
	}
	if cfg.ExplorerTxURL == "" {
		cfg.ExplorerTxURL = DefaultExplorerTxURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}

	s := &Submitter{
		cfg:      cfg,
		bundles:  newBundleClient(cfg.RelayURL, &http.Client{Timeout: cfg.Timeout}),
		recorder: nopRecorder{},
		logger:   logger.Named("relay"),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.sender == nil {
		s.sender = rpc.New(cfg.RPCURL)
	}
	return s
}

// ExplorerURL returns the explorer link for a signature.
func (s *Submitter) ExplorerURL(signature string) string {
	return strings.TrimRight(s.cfg.ExplorerTxURL, "/") + "/" + signature
}

// SubmitSingle sends one transaction with preflight at confirmed commitment.
func (s *Submitter) SubmitSingle(ctx context.Context, signed *txpipeline.Signed) Result {
	start := time.Now()
	res := s.submitSingle(ctx, signed)
	s.recorder.ObserveSubmission(string(ModeSingle), res.Success, time.Since(start))
	return res
}

func (s *Submitter) submitSingle(ctx context.Context, signed *txpipeline.Signed) Result {
	if signed == nil || signed.Tx == nil {
		return Failure(ModeSingle, &SubmissionError{Mode: ModeSingle, Endpoint: s.cfg.RPCURL, Err: errors.New("nothing to submit")})
	}

	sig, err := s.sender.SendTransactionWithOpts(ctx, signed.Tx, rpc.TransactionOpts{
		SkipPreflight:       s.cfg.SkipPreflight,
		PreflightCommitment: rpc.CommitmentConfirmed,
	})
	if err == nil && sig == (solana.Signature{}) {
		err = errMissingResult
	}
	if err != nil {
		s.logger.Error("Transaction submission failed",
			zap.String("signature", signed.Signature.String()),
			zap.Error(err))
		return Failure(ModeSingle, &SubmissionError{Mode: ModeSingle, Endpoint: s.cfg.RPCURL, Err: err})
	}

	signature := sig.String()
	s.logger.Info("Transaction submitted", zap.String("signature", signature))
	return Result{
		Mode:        ModeSingle,
		Success:     true,
		Signature:   signature,
		Signatures:  []string{signature},
		ExplorerURL: s.ExplorerURL(signature),
	}
}

// SubmitBundle sends the whole ordered set to the block engine in one call.
// The relay lands all transactions or none, so signatures are only reported on success.
func (s *Submitter) SubmitBundle(ctx context.Context, signed []*txpipeline.Signed) Result {
	start := time.Now()
	res := s.submitBundle(ctx, signed)
	s.recorder.ObserveSubmission(string(ModeBundle), res.Success, time.Since(start))
	return res
}

func (s *Submitter) submitBundle(ctx context.Context, signed []*txpipeline.Signed) Result {
	if len(signed) == 0 {
		return Failure(ModeBundle, &SubmissionError{Mode: ModeBundle, Endpoint: s.cfg.RelayURL, Err: errors.New("empty bundle")})
	}

	encoded := make([]string, len(signed))
	signatures := make([]string, len(signed))
	for i, tx := range signed {
		encoded[i] = tx.Base58()
		signatures[i] = tx.Signature.String()
	}

	bundleID, err := s.bundles.sendBundle(ctx, encoded)
	if err != nil {
		s.logger.Error("Bundle submission failed",
			zap.Int("transactions", len(signed)),
			zap.Error(err))
		return Failure(ModeBundle, &SubmissionError{Mode: ModeBundle, Endpoint: s.cfg.RelayURL, Err: err})
	}

	s.logger.Info("Bundle submitted",
		zap.String("bundle_id", bundleID),
		zap.Strings("signatures", signatures))
	return Result{
		Mode:        ModeBundle,
		Success:     true,
		Signature:   signatures[0],
		Signatures:  signatures,
		BundleID:    bundleID,
		ExplorerURL: s.ExplorerURL(signatures[0]),
	}
}
