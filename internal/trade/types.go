// internal/trade/types.go
package trade

import "fmt"

// Action is the trade operation requested from the quote API.
type Action string

const (
	ActionBuy    Action = "buy"
	ActionSell   Action = "sell"
	ActionCreate Action = "create"
)

// ParseAction validates a raw action string.
func ParseAction(s string) (Action, error) {
	switch a := Action(s); a {
	case ActionBuy, ActionSell, ActionCreate:
		return a, nil
	}
	return "", &ValidationError{Field: "action", Reason: fmt.Sprintf("unknown action %q", s)}
}

// Pool is the liquidity venue a trade executes against.
type Pool string

const (
	PoolPump        Pool = "pump"
	PoolRaydium     Pool = "raydium"
	PoolPumpAMM     Pool = "pump-amm"
	PoolLaunchLab   Pool = "launchlab"
	PoolRaydiumCPMM Pool = "raydium-cpmm"
	PoolBonk        Pool = "bonk"
	PoolAuto        Pool = "auto"
)

var knownPools = map[Pool]struct{}{
	PoolPump:        {},
	PoolRaydium:     {},
	PoolPumpAMM:     {},
	PoolLaunchLab:   {},
	PoolRaydiumCPMM: {},
	PoolBonk:        {},
	PoolAuto:        {},
}

// ParsePool validates a raw venue string.
func ParsePool(s string) (Pool, error) {
	p := Pool(s)
	if _, ok := knownPools[p]; !ok {
		return "", &ValidationError{Field: "pool", Reason: fmt.Sprintf("unknown pool %q", s)}
	}
	return p, nil
}

// TokenMetadata is the on-chain metadata reference attached to a create intent.
type TokenMetadata struct {
	Name   string `json:"name"`
	Symbol string `json:"symbol"`
	URI    string `json:"uri"`
}

// ValidationError reports bad caller input. It is never retried.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return "validation error: " + e.Reason
	}
	return fmt.Sprintf("validation error: %s: %s", e.Field, e.Reason)
}
