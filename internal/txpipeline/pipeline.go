// internal/txpipeline/pipeline.go
package txpipeline

import (
	"errors"
	"fmt"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
	"github.com/mr-tron/base58"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/pumpbundle/internal/bundle"
	"github.com/rovshanmuradov/pumpbundle/internal/trade"
	"github.com/rovshanmuradov/pumpbundle/internal/wallet"
)

// Signed is a signed transaction ready for submission.
type Signed struct {
	Tx        *solana.Transaction
	Raw       []byte
	Signature solana.Signature
}

// Base58 returns the wire bytes in the encoding the bundle relay expects.
func (s *Signed) Base58() string {
	return base58.Encode(s.Raw)
}

// SigningError means a template could not be signed. The request is not retried.
type SigningError struct {
	Index  int
	Reason string
	Err    error
}

func (e *SigningError) Error() string {
	msg := "signing failed"
	if e.Index >= 0 {
		msg = fmt.Sprintf("signing failed for template %d", e.Index)
	}
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *SigningError) Unwrap() error {
	return e.Err
}

// SignerSet returns who must sign a transaction for the given action:
// the token identity and the wallet for create, the wallet alone otherwise.
func SignerSet(action trade.Action, w, token *wallet.Wallet) ([]*wallet.Wallet, error) {
	if w == nil {
		return nil, errors.New("wallet is required")
	}
	signers := []*wallet.Wallet{w}
	if action == trade.ActionCreate {
		if token == nil {
			return nil, errors.New("create requires a token identity")
		}
		signers = []*wallet.Wallet{token, w}
	}
	for _, s := range signers {
		if s.Discarded() {
			return nil, fmt.Errorf("%s: %w", s.PublicKey, wallet.ErrKeyDiscarded)
		}
	}
	return signers, nil
}

// Pipeline signs unsigned templates returned by the quote API.
type Pipeline struct {
	logger *zap.Logger
}

// New creates a signing pipeline.
func New(logger *zap.Logger) *Pipeline {
	return &Pipeline{logger: logger.Named("tx_pipeline")}
}

// SignSingle signs a buy or sell template with the wallet key.
func (p *Pipeline) SignSingle(intent trade.Intent, w *wallet.Wallet, template []byte) (*Signed, error) {
	if intent.Action == trade.ActionCreate {
		return nil, &SigningError{Index: 0, Reason: "create must go through a bundle"}
	}
	signers, err := SignerSet(intent.Action, w, nil)
	if err != nil {
		return nil, &SigningError{Index: 0, Err: err}
	}
	return p.sign(0, template, signers)
}

// SignBundle signs every template of the bundle in order. templates[i] must
// belong to req.Legs[i]. The token identity is discarded afterwards, whatever the outcome.
func (p *Pipeline) SignBundle(req *bundle.Request, templates [][]byte) ([]*Signed, error) {
	if err := req.Consume(); err != nil {
		return nil, &SigningError{Index: -1, Err: err}
	}
	defer req.DiscardToken()

	if len(templates) != len(req.Legs) {
		return nil, &SigningError{
			Index:  -1,
			Reason: fmt.Sprintf("template count %d does not match intent count %d", len(templates), len(req.Legs)),
		}
	}
	if len(req.Legs) == 0 {
		return nil, &SigningError{Index: -1, Reason: "bundle has no legs"}
	}

	signed := make([]*Signed, 0, len(templates))
	for i, leg := range req.Legs {
		isCreate := leg.Intent.Action == trade.ActionCreate
		if (i == 0) != isCreate {
			return nil, &SigningError{Index: i, Reason: "create must be the first and only create leg"}
		}

		signers, err := SignerSet(leg.Intent.Action, leg.Wallet, req.Token)
		if err != nil {
			return nil, &SigningError{Index: i, Err: err}
		}
		s, err := p.sign(i, templates[i], signers)
		if err != nil {
			return nil, err
		}
		signed = append(signed, s)
	}

	p.logger.Debug("Bundle signed",
		zap.String("mint", req.Mint()),
		zap.Int("transactions", len(signed)))
	return signed, nil
}

func (p *Pipeline) sign(index int, template []byte, signers []*wallet.Wallet) (*Signed, error) {
	if len(template) == 0 {
		return nil, &SigningError{Index: index, Reason: "empty template"}
	}

	tx, err := solana.TransactionFromDecoder(bin.NewBinDecoder(template))
	if err != nil {
		return nil, &SigningError{Index: index, Reason: "template does not decode", Err: err}
	}

	required := int(tx.Message.Header.NumRequiredSignatures)
	if required == 0 || required > len(tx.Message.AccountKeys) {
		return nil, &SigningError{Index: index, Reason: fmt.Sprintf("malformed header: %d required signatures", required)}
	}
	if err := matchSigners(tx.Message.AccountKeys[:required], signers); err != nil {
		return nil, &SigningError{Index: index, Err: err}
	}

	// Шаблон приходит с пустыми подписями, подписываем сообщение заново.
	tx.Signatures = nil
	if _, err := tx.Sign(wallet.Keyring(signers...)); err != nil {
		return nil, &SigningError{Index: index, Reason: "sign", Err: err}
	}

	raw, err := tx.MarshalBinary()
	if err != nil {
		return nil, &SigningError{Index: index, Reason: "encode", Err: err}
	}

	return &Signed{
		Tx:        tx,
		Raw:       raw,
		Signature: tx.Signatures[0],
	}, nil
}

// matchSigners checks that the template requires exactly the keys we hold.
func matchSigners(required []solana.PublicKey, signers []*wallet.Wallet) error {
	if len(required) != len(signers) {
		return fmt.Errorf("template requires %d signers, signer set has %d", len(required), len(signers))
	}
	for _, key := range required {
		found := false
		for _, s := range signers {
			if s.PublicKey.Equals(key) {
				found = true
				break
			}
		}
		if !found {
			return fmt.Errorf("template requires signer %s outside the signer set", key)
		}
	}
	return nil
}
