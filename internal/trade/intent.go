// internal/trade/intent.go
package trade

import (
	"fmt"
	"strings"

	"github.com/gagliardetto/solana-go"
	"github.com/shopspring/decimal"
)

// Intent is one validated trade request. Values are copied on construction
// and the struct is passed by value, so an Intent never changes after Build.
type Intent struct {
	Action           Action
	Mint             string
	Amount           decimal.Decimal
	DenominatedInSol bool
	Slippage         int
	PriorityFee      decimal.Decimal
	Pool             Pool
	Metadata         *TokenMetadata
}

// Params is raw caller input for Builder.Build. Empty fields fall back to the builder defaults.
type Params struct {
	Action           string
	Mint             string
	Amount           string
	DenominatedInSol *bool
	Slippage         *int
	PriorityFee      string
	Pool             string
	Metadata         *TokenMetadata
}

// Defaults is the policy applied when the caller leaves a field blank.
type Defaults struct {
	Amount           decimal.Decimal
	DenominatedInSol bool
	Slippage         int
	PriorityFee      decimal.Decimal
	Pool             Pool
}

// DefaultDefaults returns the single-trade policy: 0.001 SOL, 10% slippage,
// 0.00001 SOL priority fee on raydium.
func DefaultDefaults() Defaults {
	return Defaults{
		Amount:           decimal.RequireFromString("0.001"),
		DenominatedInSol: true,
		Slippage:         10,
		PriorityFee:      decimal.RequireFromString("0.00001"),
		Pool:             PoolRaydium,
	}
}

// Builder turns caller input into validated intents. It performs no I/O.
type Builder struct {
	defaults Defaults
}

// NewBuilder creates a builder with the given default policy.
func NewBuilder(defaults Defaults) *Builder {
	return &Builder{defaults: defaults}
}

// Defaults returns the builder's default policy.
func (b *Builder) Defaults() Defaults {
	return b.defaults
}

// Build validates p and returns the resulting intent.
func (b *Builder) Build(p Params) (Intent, error) {
	action, err := ParseAction(strings.TrimSpace(p.Action))
	if err != nil {
		return Intent{}, err
	}

	intent := Intent{
		Action:           action,
		Mint:             strings.TrimSpace(p.Mint),
		Amount:           b.defaults.Amount,
		DenominatedInSol: b.defaults.DenominatedInSol,
		Slippage:         b.defaults.Slippage,
		PriorityFee:      b.defaults.PriorityFee,
		Pool:             b.defaults.Pool,
	}

	if action != ActionCreate || intent.Mint != "" {
		if err := validateMint(intent.Mint); err != nil {
			return Intent{}, err
		}
	}

	if s := strings.TrimSpace(p.Amount); s != "" {
		amount, err := ParseAmount(s)
		if err != nil {
			return Intent{}, err
		}
		intent.Amount = amount
	}
	if !intent.Amount.IsPositive() {
		return Intent{}, &ValidationError{Field: "amount", Reason: "must be positive"}
	}

	if p.DenominatedInSol != nil {
		intent.DenominatedInSol = *p.DenominatedInSol
	}

	if p.Slippage != nil {
		intent.Slippage = *p.Slippage
	}
	if intent.Slippage < 0 || intent.Slippage > 100 {
		return Intent{}, &ValidationError{Field: "slippage", Reason: fmt.Sprintf("%d is outside 0..100", intent.Slippage)}
	}

	if s := strings.TrimSpace(p.PriorityFee); s != "" {
		fee, err := decimal.NewFromString(s)
		if err != nil {
			return Intent{}, &ValidationError{Field: "priority_fee", Reason: fmt.Sprintf("%q is not a number", s)}
		}
		intent.PriorityFee = fee
	}
	if intent.PriorityFee.IsNegative() {
		return Intent{}, &ValidationError{Field: "priority_fee", Reason: "must not be negative"}
	}

	if s := strings.TrimSpace(p.Pool); s != "" {
		pool, err := ParsePool(s)
		if err != nil {
			return Intent{}, err
		}
		intent.Pool = pool
	}

	if p.Metadata != nil {
		if action != ActionCreate {
			return Intent{}, &ValidationError{Field: "token_metadata", Reason: "only allowed on create"}
		}
		md := *p.Metadata
		intent.Metadata = &md
	}
	if action == ActionCreate && intent.Metadata == nil {
		return Intent{}, &ValidationError{Field: "token_metadata", Reason: "required on create"}
	}

	return intent, nil
}

// ParseAmount parses a user-entered positive amount.
func ParseAmount(s string) (decimal.Decimal, error) {
	amount, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return decimal.Zero, &ValidationError{Field: "amount", Reason: fmt.Sprintf("%q is not a number", s)}
	}
	if !amount.IsPositive() {
		return decimal.Zero, &ValidationError{Field: "amount", Reason: "must be positive"}
	}
	return amount, nil
}

func validateMint(mint string) error {
	if mint == "" {
		return &ValidationError{Field: "mint", Reason: "required"}
	}
	if _, err := solana.PublicKeyFromBase58(mint); err != nil {
		return &ValidationError{Field: "mint", Reason: fmt.Sprintf("%q is not a valid address", mint)}
	}
	return nil
}

// WithMint returns a copy of the intent bound to a token address.
func (i Intent) WithMint(mint string) Intent {
	i.Mint = mint
	if i.Metadata != nil {
		md := *i.Metadata
		i.Metadata = &md
	}
	return i
}
