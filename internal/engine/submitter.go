package engine

import (
	"context"
	"fmt"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/programs/system"
	"github.com/ghaleb-d/sol-transfer/internal/signer"
)

// Submitter moves lamports on the ledger and returns the transaction signature
type Submitter interface {
	Submit(ctx context.Context, from *signer.Identity, to solana.PublicKey, lamports uint64) (solana.Signature, error)
}

// SubmitterFunc adapts a plain function to Submitter
type SubmitterFunc func(ctx context.Context, from *signer.Identity, to solana.PublicKey, lamports uint64) (solana.Signature, error)

// Submit calls f
func (f SubmitterFunc) Submit(ctx context.Context, from *signer.Identity, to solana.PublicKey, lamports uint64) (solana.Signature, error) {
	return f(ctx, from, to, lamports)
}

// LedgerAPI is the part of the ledger client a LedgerSubmitter needs
type LedgerAPI interface {
	LatestBlockhash(ctx context.Context) (solana.Hash, error)
	SubmitSignedTransfer(ctx context.Context, tx *solana.Transaction) (solana.Signature, error)
}

// LedgerSubmitter builds a system transfer, signs it with the sender key and
// sends it to the ledger node.
type LedgerSubmitter struct {
	ledger LedgerAPI
}

// NewLedgerSubmitter creates the production submitter
func NewLedgerSubmitter(ledger LedgerAPI) *LedgerSubmitter {
	return &LedgerSubmitter{ledger: ledger}
}

// Submit implements Submitter
func (s *LedgerSubmitter) Submit(ctx context.Context, from *signer.Identity, to solana.PublicKey, lamports uint64) (solana.Signature, error) {
	blockhash, err := s.ledger.LatestBlockhash(ctx)
	if err != nil {
		return solana.Signature{}, err
	}

	tx, err := BuildTransfer(from, to, lamports, blockhash)
	if err != nil {
		return solana.Signature{}, err
	}

	return s.ledger.SubmitSignedTransfer(ctx, tx)
}

// BuildTransfer creates a transaction paid and signed by from that moves lamports to to
func BuildTransfer(from *signer.Identity, to solana.PublicKey, lamports uint64, blockhash solana.Hash) (*solana.Transaction, error) {
	tx, err := solana.NewTransaction(
		[]solana.Instruction{
			system.NewTransferInstruction(lamports, from.PublicKey, to).Build(),
		},
		blockhash,
		solana.TransactionPayer(from.PublicKey),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to build transaction: %w", err)
	}

	_, err = tx.Sign(func(key solana.PublicKey) *solana.PrivateKey {
		if key.Equals(from.PublicKey) {
			return &from.PrivateKey
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to sign transaction: %w", err)
	}

	return tx, nil
}
