package trade

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testMint = "So11111111111111111111111111111111111111112"

func intPtr(v int) *int    { return &v }
func boolPtr(v bool) *bool { return &v }

func TestBuilder_Build(t *testing.T) {
	b := NewBuilder(DefaultDefaults())

	tests := []struct {
		name      string
		params    Params
		wantField string
		check     func(t *testing.T, in Intent)
	}{
		{
			name:   "defaults applied",
			params: Params{Action: "buy", Mint: testMint},
			check: func(t *testing.T, in Intent) {
				assert.Equal(t, ActionBuy, in.Action)
				assert.True(t, in.Amount.Equal(decimal.RequireFromString("0.001")))
				assert.True(t, in.DenominatedInSol)
				assert.Equal(t, 10, in.Slippage)
				assert.Equal(t, PoolRaydium, in.Pool)
			},
		},
		{
			name: "explicit values",
			params: Params{
				Action: "sell", Mint: testMint, Amount: "2.5", DenominatedInSol: boolPtr(false),
				Slippage: intPtr(25), PriorityFee: "0.001", Pool: "pump",
			},
			check: func(t *testing.T, in Intent) {
				assert.Equal(t, ActionSell, in.Action)
				assert.True(t, in.Amount.Equal(decimal.RequireFromString("2.5")))
				assert.False(t, in.DenominatedInSol)
				assert.Equal(t, 25, in.Slippage)
				assert.Equal(t, PoolPump, in.Pool)
			},
		},
		{
			name:   "create without mint",
			params: Params{Action: "create", Amount: "1000000", Metadata: &TokenMetadata{Name: "A", Symbol: "B", URI: "ipfs://x"}},
			check: func(t *testing.T, in Intent) {
				assert.Empty(t, in.Mint)
				require.NotNil(t, in.Metadata)
				assert.Equal(t, "ipfs://x", in.Metadata.URI)
			},
		},
		{name: "unknown action", params: Params{Action: "swap", Mint: testMint}, wantField: "action"},
		{name: "missing mint", params: Params{Action: "buy"}, wantField: "mint"},
		{name: "invalid mint", params: Params{Action: "buy", Mint: "not-an-address"}, wantField: "mint"},
		{name: "zero amount", params: Params{Action: "buy", Mint: testMint, Amount: "0"}, wantField: "amount"},
		{name: "negative amount", params: Params{Action: "buy", Mint: testMint, Amount: "-1"}, wantField: "amount"},
		{name: "non-numeric amount", params: Params{Action: "buy", Mint: testMint, Amount: "lots"}, wantField: "amount"},
		{name: "slippage above range", params: Params{Action: "buy", Mint: testMint, Slippage: intPtr(101)}, wantField: "slippage"},
		{name: "negative fee", params: Params{Action: "buy", Mint: testMint, PriorityFee: "-0.1"}, wantField: "priority_fee"},
		{name: "unknown pool", params: Params{Action: "buy", Mint: testMint, Pool: "orca"}, wantField: "pool"},
		{name: "metadata on buy", params: Params{Action: "buy", Mint: testMint, Metadata: &TokenMetadata{}}, wantField: "token_metadata"},
		{name: "create without metadata", params: Params{Action: "create"}, wantField: "token_metadata"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in, err := b.Build(tt.params)
			if tt.wantField != "" {
				var vErr *ValidationError
				require.True(t, errors.As(err, &vErr), "expected ValidationError, got %v", err)
				assert.Equal(t, tt.wantField, vErr.Field)
				return
			}
			require.NoError(t, err)
			tt.check(t, in)
		})
	}
}

func TestIntent_PayloadRoundTrip(t *testing.T) {
	b := NewBuilder(DefaultDefaults())
	pools := []string{"pump", "raydium", "pump-amm", "launchlab", "raydium-cpmm", "bonk", "auto"}

	for _, pool := range pools {
		for _, action := range []string{"buy", "sell"} {
			in, err := b.Build(Params{Action: action, Mint: testMint, Amount: "0.5", Pool: pool, PriorityFee: "0.0005"})
			require.NoError(t, err)

			raw, err := json.Marshal(in.Payload("wallet-pub"))
			require.NoError(t, err)

			var wire Payload
			require.NoError(t, json.Unmarshal(raw, &wire))
			assert.Equal(t, "wallet-pub", wire.PublicKey)

			back, err := wire.Intent()
			require.NoError(t, err)
			assert.Equal(t, in.Action, back.Action)
			assert.Equal(t, in.Mint, back.Mint)
			assert.True(t, in.Amount.Equal(back.Amount))
			assert.Equal(t, in.DenominatedInSol, back.DenominatedInSol)
			assert.Equal(t, in.Slippage, back.Slippage)
			assert.True(t, in.PriorityFee.Equal(back.PriorityFee))
			assert.Equal(t, in.Pool, back.Pool)
		}
	}
}

func TestIntent_PayloadRoundTripHighPrecision(t *testing.T) {
	b := NewBuilder(DefaultDefaults())
	tests := []struct {
		name   string
		amount string
		fee    string
	}{
		{name: "large integer", amount: "12345678901234567891", fee: "0.00001"},
		{name: "long fraction", amount: "0.12345678901234567891", fee: "0.000000000123456789123"},
		{name: "token units", amount: "999999999999.999999", fee: "0.0005"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in, err := b.Build(Params{Action: "buy", Mint: testMint, Amount: tt.amount, PriorityFee: tt.fee})
			require.NoError(t, err)

			raw, err := json.Marshal(in.Payload("pub"))
			require.NoError(t, err)
			assert.Contains(t, string(raw), `"amount":`+tt.amount)

			var wire Payload
			require.NoError(t, json.Unmarshal(raw, &wire))
			back, err := wire.Intent()
			require.NoError(t, err)
			assert.True(t, in.Amount.Equal(back.Amount), "amount %s came back as %s", in.Amount, back.Amount)
			assert.True(t, in.PriorityFee.Equal(back.PriorityFee), "fee %s came back as %s", in.PriorityFee, back.PriorityFee)
		})
	}
}

func TestPayload_IntentRejectsBadNumber(t *testing.T) {
	_, err := Payload{Action: "buy", Pool: "pump", DenominatedInSol: "true", Amount: "lots"}.Intent()
	var vErr *ValidationError
	require.True(t, errors.As(err, &vErr))
	assert.Equal(t, "amount", vErr.Field)
}

func TestPayload_WireShape(t *testing.T) {
	in, err := NewBuilder(DefaultDefaults()).Build(Params{
		Action:           "create",
		Mint:             testMint,
		Amount:           "1000000",
		DenominatedInSol: boolPtr(false),
		Pool:             "pump",
		Metadata:         &TokenMetadata{Name: "Token", Symbol: "TKN", URI: "https://ipfs.io/x"},
	})
	require.NoError(t, err)

	raw, err := json.Marshal(in.Payload("pub"))
	require.NoError(t, err)

	var m map[string]interface{}
	require.NoError(t, json.Unmarshal(raw, &m))
	assert.Equal(t, "false", m["denominatedInSol"])
	assert.Equal(t, "create", m["action"])
	assert.Equal(t, float64(1000000), m["amount"])
	assert.Contains(t, string(raw), `"amount":1000000`)
	assert.Equal(t, map[string]interface{}{"name": "Token", "symbol": "TKN", "uri": "https://ipfs.io/x"}, m["tokenMetadata"])

	buy, err := NewBuilder(DefaultDefaults()).Build(Params{Action: "buy", Mint: testMint})
	require.NoError(t, err)
	raw, err = json.Marshal(buy.Payload("pub"))
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "tokenMetadata")
}

func TestIntent_WithMintCopiesMetadata(t *testing.T) {
	md := &TokenMetadata{Name: "A", Symbol: "B", URI: "u"}
	in := Intent{Action: ActionCreate, Metadata: md}

	bound := in.WithMint(testMint)
	bound.Metadata.Name = "changed"

	assert.Equal(t, testMint, bound.Mint)
	assert.Empty(t, in.Mint)
	assert.Equal(t, "A", md.Name)
}
