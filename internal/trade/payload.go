// internal/trade/payload.go
package trade

import (
	"encoding/json"
	"strconv"

	"github.com/shopspring/decimal"
)

// Payload is the trade-local request body for one intent.
// Amounts stay JSON numbers carrying the exact decimal digits.
type Payload struct {
	PublicKey        string         `json:"publicKey"`
	Action           string         `json:"action"`
	Mint             string         `json:"mint,omitempty"`
	TokenMetadata    *TokenMetadata `json:"tokenMetadata,omitempty"`
	DenominatedInSol string         `json:"denominatedInSol"`
	Amount           json.Number    `json:"amount"`
	Slippage         int            `json:"slippage"`
	PriorityFee      json.Number    `json:"priorityFee"`
	Pool             string         `json:"pool"`
}

// Payload serializes the intent for the given signer public key.
func (i Intent) Payload(publicKey string) Payload {
	return Payload{
		PublicKey:        publicKey,
		Action:           string(i.Action),
		Mint:             i.Mint,
		TokenMetadata:    i.Metadata,
		DenominatedInSol: strconv.FormatBool(i.DenominatedInSol),
		Amount:           json.Number(i.Amount.String()),
		Slippage:         i.Slippage,
		PriorityFee:      json.Number(i.PriorityFee.String()),
		Pool:             string(i.Pool),
	}
}

// Intent parses a wire payload back into an intent.
func (p Payload) Intent() (Intent, error) {
	action, err := ParseAction(p.Action)
	if err != nil {
		return Intent{}, err
	}
	pool, err := ParsePool(p.Pool)
	if err != nil {
		return Intent{}, err
	}
	inSol, err := strconv.ParseBool(p.DenominatedInSol)
	if err != nil {
		return Intent{}, &ValidationError{Field: "denominatedInSol", Reason: "expected \"true\" or \"false\""}
	}

	amount, err := wireDecimal("amount", p.Amount)
	if err != nil {
		return Intent{}, err
	}
	fee, err := wireDecimal("priorityFee", p.PriorityFee)
	if err != nil {
		return Intent{}, err
	}

	intent := Intent{
		Action:           action,
		Mint:             p.Mint,
		Amount:           amount,
		DenominatedInSol: inSol,
		Slippage:         p.Slippage,
		PriorityFee:      fee,
		Pool:             pool,
	}
	if p.TokenMetadata != nil {
		md := *p.TokenMetadata
		intent.Metadata = &md
	}
	return intent, nil
}

func wireDecimal(field string, n json.Number) (decimal.Decimal, error) {
	if n == "" {
		return decimal.Zero, nil
	}
	d, err := decimal.NewFromString(n.String())
	if err != nil {
		return decimal.Zero, &ValidationError{Field: field, Reason: "not a number"}
	}
	return d, nil
}
