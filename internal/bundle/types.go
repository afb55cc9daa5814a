// internal/bundle/types.go
package bundle

import (
	"errors"
	"sync/atomic"

	"github.com/shopspring/decimal"

	"github.com/rovshanmuradov/pumpbundle/internal/trade"
	"github.com/rovshanmuradov/pumpbundle/internal/wallet"
)

// ErrConsumed is returned when a bundle request is signed a second time.
var ErrConsumed = errors.New("bundle request already consumed")

// Policy holds the fee and slippage applied to each leg of a launch bundle.
// The create leg runs with tighter slippage and a higher priority fee than the buys.
type Policy struct {
	CreateSlippage    int
	CreatePriorityFee decimal.Decimal
	BuySlippage       int
	BuyPriorityFee    decimal.Decimal
	Pool              trade.Pool
	DenominatedInSol  bool
}

// DefaultPolicy returns the launch policy used by the bot.
func DefaultPolicy() Policy {
	return Policy{
		CreateSlippage:    10,
		CreatePriorityFee: decimal.RequireFromString("0.0005"),
		BuySlippage:       50,
		BuyPriorityFee:    decimal.RequireFromString("0.0001"),
		Pool:              trade.PoolPump,
		DenominatedInSol:  false,
	}
}

// Image is the token picture uploaded alongside the metadata.
type Image struct {
	Name        string
	ContentType string
	Data        []byte
}

// Metadata describes the token being launched.
type Metadata struct {
	Name        string
	Symbol      string
	Description string
	Twitter     string
	Telegram    string
	Website     string
	Image       Image
}

// Buyer is one wallet taking part in the launch and the amount it buys.
type Buyer struct {
	Wallet *wallet.Wallet
	Amount decimal.Decimal
}

// Leg is one transaction of the bundle.
type Leg struct {
	Intent trade.Intent
	Wallet *wallet.Wallet
}

// Request is an ordered launch bundle. Legs[0] is always the create leg.
type Request struct {
	Token       *wallet.Wallet
	MetadataURI string
	Legs        []Leg

	consumed atomic.Bool
}

// Mint returns the address of the token being created.
func (r *Request) Mint() string {
	return r.Token.PublicKey.String()
}

// Payloads returns the trade-local bodies for every leg, in order.
func (r *Request) Payloads() []trade.Payload {
	out := make([]trade.Payload, len(r.Legs))
	for i, leg := range r.Legs {
		out[i] = leg.Intent.Payload(leg.Wallet.PublicKey.String())
	}
	return out
}

// Consume marks the request as used. Only the first call succeeds.
func (r *Request) Consume() error {
	if !r.consumed.CompareAndSwap(false, true) {
		return ErrConsumed
	}
	return nil
}

// DiscardToken wipes the token identity's private key once the create leg is signed.
func (r *Request) DiscardToken() {
	if r.Token != nil {
		r.Token.Discard()
	}
}

// MetadataUploadError reports that the metadata service gave no usable URI.
// Nothing has been signed or requested when it is returned.
type MetadataUploadError struct {
	Err error
}

func (e *MetadataUploadError) Error() string {
	return "metadata upload failed: " + e.Err.Error()
}

func (e *MetadataUploadError) Unwrap() error {
	return e.Err
}
