package domain

import (
	"github.com/gagliardetto/solana-go"
)

// TransferRequest is a request to move lamports from the configured signer to To.
type TransferRequest struct {
	TransferID string
	// From is what the client claimed as sender. The configured signer always pays.
	From   string
	To     string
	Amount uint64 // lamports
}

// OutcomeStatus classifies the result of a transfer execution
type OutcomeStatus int

const (
	StatusSuccess OutcomeStatus = iota
	StatusRejected
	StatusInternalFailure
)

func (s OutcomeStatus) String() string {
	switch s {
	case StatusSuccess:
		return "success"
	case StatusRejected:
		return "rejected"
	default:
		return "internal_failure"
	}
}

// Outcome is the tagged result of a transfer execution.
// Reason is only set for rejections and is safe to show to clients.
// Err carries the internal cause of a failure and must never leave the process.
type Outcome struct {
	Status    OutcomeStatus
	Signature solana.Signature
	Reason    string
	Err       error
}

// Success builds a successful outcome
func Success(sig solana.Signature) Outcome {
	return Outcome{Status: StatusSuccess, Signature: sig}
}

// Rejected builds a domain rejection carrying a client facing reason
func Rejected(reason string) Outcome {
	return Outcome{Status: StatusRejected, Reason: reason}
}

// InternalFailure builds an outcome for faults unrelated to the request itself
func InternalFailure(err error) Outcome {
	return Outcome{Status: StatusInternalFailure, Err: err}
}
