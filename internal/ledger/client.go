package ledger

import (
	"context"
	"fmt"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/ghaleb-d/sol-transfer/internal/telemetry"
)

// DevnetEndpoint is the ledger node every production request goes to
const DevnetEndpoint = rpc.DevNet_RPC

const (
	defaultConfirmInterval = 500 * time.Millisecond
	// A blockhash stays valid for roughly 150 slots, so a transaction that has not
	// landed after this many status checks never will.
	maxConfirmChecks = 150
)

// Client wraps the JSON-RPC calls made against a ledger node.
// None of the calls retry and no timeout is applied beyond what ctx carries.
type Client struct {
	rpc             *rpc.Client
	commitment      rpc.CommitmentType
	confirmInterval time.Duration
}

// NewClient creates a client for the given RPC endpoint
func NewClient(endpoint string) *Client {
	return &Client{
		rpc:             rpc.New(endpoint),
		commitment:      rpc.CommitmentFinalized,
		confirmInterval: defaultConfirmInterval,
	}
}

// GetBalance returns the balance of account in lamports
func (c *Client) GetBalance(ctx context.Context, account solana.PublicKey) (balance uint64, err error) {
	defer observe("getBalance", time.Now(), &err)

	out, err := c.rpc.GetBalance(ctx, account, c.commitment)
	if err != nil {
		return 0, fmt.Errorf("failed to get balance of %s: %w", account, err)
	}
	return out.Value, nil
}

// LatestBlockhash returns the most recent blockhash a transaction can reference
func (c *Client) LatestBlockhash(ctx context.Context) (hash solana.Hash, err error) {
	defer observe("getLatestBlockhash", time.Now(), &err)

	out, err := c.rpc.GetLatestBlockhash(ctx, c.commitment)
	if err != nil {
		return solana.Hash{}, fmt.Errorf("failed to get latest blockhash: %w", err)
	}
	if out == nil || out.Value == nil {
		return solana.Hash{}, fmt.Errorf("failed to get latest blockhash: empty response")
	}
	return out.Value.Blockhash, nil
}

// SubmitSignedTransfer sends a signed transaction once and waits until the
// ledger reports it at the client's commitment, the same level balances are
// read at.
func (c *Client) SubmitSignedTransfer(ctx context.Context, tx *solana.Transaction) (sig solana.Signature, err error) {
	defer observe("sendTransaction", time.Now(), &err)

	sig, err = c.rpc.SendTransactionWithOpts(ctx, tx, rpc.TransactionOpts{
		PreflightCommitment: c.commitment,
	})
	if err != nil {
		return solana.Signature{}, fmt.Errorf("failed to send transaction: %w", err)
	}

	if err := c.awaitConfirmation(ctx, sig); err != nil {
		return solana.Signature{}, err
	}
	return sig, nil
}

func (c *Client) awaitConfirmation(ctx context.Context, sig solana.Signature) error {
	ticker := time.NewTicker(c.confirmInterval)
	defer ticker.Stop()

	for i := 0; i < maxConfirmChecks; i++ {
		out, err := c.rpc.GetSignatureStatuses(ctx, false, sig)
		if err != nil {
			return fmt.Errorf("failed to get status of transaction %s: %w", sig, err)
		}

		if len(out.Value) > 0 && out.Value[0] != nil {
			status := out.Value[0]
			if status.Err != nil {
				return fmt.Errorf("transaction %s failed: %v", sig, status.Err)
			}
			if reached(status.ConfirmationStatus, c.commitment) {
				return nil
			}
		}

		select {
		case <-ctx.Done():
			return fmt.Errorf("transaction %s not confirmed: %w", sig, ctx.Err())
		case <-ticker.C:
		}
	}

	return fmt.Errorf("transaction %s not confirmed after %d status checks", sig, maxConfirmChecks)
}

// reached reports whether status satisfies the commitment level want
func reached(status rpc.ConfirmationStatusType, want rpc.CommitmentType) bool {
	switch want {
	case rpc.CommitmentFinalized:
		return status == rpc.ConfirmationStatusFinalized
	case rpc.CommitmentConfirmed:
		return status == rpc.ConfirmationStatusConfirmed || status == rpc.ConfirmationStatusFinalized
	default:
		return status != ""
	}
}

func observe(method string, start time.Time, err *error) {
	status := "ok"
	if *err != nil {
		status = "error"
	}
	telemetry.LedgerCallDuration.WithLabelValues(method, status).Observe(time.Since(start).Seconds())
}
