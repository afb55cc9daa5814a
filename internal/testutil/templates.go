// Package testutil builds real unsigned Solana transactions shaped like the
// templates the quote API returns.
package testutil

import (
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/programs/system"
	"github.com/stretchr/testify/require"
)

// Template returns a serialized legacy transaction paid by payer that also
// requires a signature from every extra signer. Signature slots are zeroed.
func Template(t testing.TB, payer solana.PublicKey, extraSigners ...solana.PublicKey) []byte {
	t.Helper()

	recipient := solana.NewWallet().PublicKey()
	instructions := []solana.Instruction{
		system.NewTransferInstruction(1000, payer, recipient).Build(),
	}
	for _, s := range extraSigners {
		instructions = append(instructions, system.NewTransferInstruction(1, s, payer).Build())
	}

	tx, err := solana.NewTransaction(instructions, solana.Hash{7, 7, 7}, solana.TransactionPayer(payer))
	require.NoError(t, err)

	tx.Signatures = make([]solana.Signature, tx.Message.Header.NumRequiredSignatures)
	raw, err := tx.MarshalBinary()
	require.NoError(t, err)
	return raw
}

// VerifySignatures checks every required signature of tx against its message.
func VerifySignatures(t testing.TB, tx *solana.Transaction) {
	t.Helper()

	msg, err := tx.Message.MarshalBinary()
	require.NoError(t, err)

	required := int(tx.Message.Header.NumRequiredSignatures)
	require.Len(t, tx.Signatures, required)
	for i := 0; i < required; i++ {
		key := tx.Message.AccountKeys[i]
		require.True(t, tx.Signatures[i].Verify(key, msg), "signature %d does not verify for %s", i, key)
	}
}
