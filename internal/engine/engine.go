package engine

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/ghaleb-d/sol-transfer/internal/domain"
	"github.com/ghaleb-d/sol-transfer/internal/ledger"
	"github.com/ghaleb-d/sol-transfer/internal/signer"
	"github.com/ghaleb-d/sol-transfer/internal/telemetry"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// ReasonInvalidAddress is the rejection reason for a recipient that does not decode
const ReasonInvalidAddress = "invalid address format"

// BalanceReader reports the current balance of an account in lamports
type BalanceReader interface {
	GetBalance(ctx context.Context, account solana.PublicKey) (uint64, error)
}

// EventHandler is a function that handles events emitted after each transfer
type EventHandler func(event domain.Event)

// TransferEngine runs the balance check then submit protocol for one transfer request.
//
// The balance check and the submission are not atomic: another spend from the
// same account can land in between. The local check only avoids submitting
// transfers that are already known to be unfunded; the ledger still has the
// final say on sufficiency.
type TransferEngine struct {
	balances  BalanceReader
	signers   signer.Source
	submitter Submitter

	eventHandlers []EventHandler
	mu            sync.RWMutex
}

// NewTransferEngine creates a new transfer engine
func NewTransferEngine(balances BalanceReader, signers signer.Source, submitter Submitter) *TransferEngine {
	return &TransferEngine{
		balances:      balances,
		signers:       signers,
		submitter:     submitter,
		eventHandlers: make([]EventHandler, 0),
	}
}

// RegisterEventHandler registers a handler to receive transfer events
func (e *TransferEngine) RegisterEventHandler(handler EventHandler) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.eventHandlers = append(e.eventHandlers, handler)
}

// Execute validates and performs a transfer. It never returns an error: every
// failure is classified into the returned outcome.
func (e *TransferEngine) Execute(ctx context.Context, req domain.TransferRequest) (outcome domain.Outcome) {
	start := time.Now()

	ctx, span := telemetry.Tracer.Start(ctx, "engine.Execute",
		trace.WithAttributes(
			attribute.String("transfer_id", req.TransferID),
			attribute.String("to", req.To),
			attribute.String("amount", strconv.FormatUint(req.Amount, 10)),
		),
	)
	defer span.End()

	var sender string
	defer func() {
		if r := recover(); r != nil {
			outcome = domain.InternalFailure(fmt.Errorf("transfer execution panicked: %v", r))
		}
		e.finish(ctx, span, req, sender, outcome, time.Since(start))
	}()

	outcome, sender = e.execute(ctx, req)
	return outcome
}

func (e *TransferEngine) execute(ctx context.Context, req domain.TransferRequest) (domain.Outcome, string) {
	to, err := ledger.ParseAddress(req.To)
	if err != nil {
		return domain.Rejected(ReasonInvalidAddress), ""
	}

	identity, err := e.signers.Load()
	if err != nil {
		return domain.InternalFailure(fmt.Errorf("failed to load signer identity: %w", err)), ""
	}
	sender := identity.PublicKey.String()

	if req.From != "" && req.From != sender {
		telemetry.Logger.WarnContext(ctx, "ignoring client supplied sender",
			"transfer_id", req.TransferID,
			"claimed_from", req.From,
			"signer", sender,
		)
	}

	balance, err := e.balances.GetBalance(ctx, identity.PublicKey)
	if err != nil {
		return domain.Rejected(fmt.Sprintf("Failed to fetch sender balance: %v", err)), sender
	}

	trace.SpanFromContext(ctx).SetAttributes(attribute.String("current_balance", strconv.FormatUint(balance, 10)))

	if balance < req.Amount {
		return domain.Rejected(fmt.Sprintf("Insufficient balance: have %d lamports, need %d", balance, req.Amount)), sender
	}

	sig, err := e.submitter.Submit(ctx, identity, to, req.Amount)
	if err != nil {
		return domain.Rejected(fmt.Sprintf("Transfer failed: %v", err)), sender
	}

	return domain.Success(sig), sender
}

func (e *TransferEngine) finish(ctx context.Context, span trace.Span, req domain.TransferRequest, sender string, outcome domain.Outcome, elapsed time.Duration) {
	status := outcome.Status.String()
	telemetry.TransfersTotal.WithLabelValues(status).Inc()
	telemetry.TransferAmount.WithLabelValues(status).Observe(float64(req.Amount))
	telemetry.TransferProcessingDuration.Observe(elapsed.Seconds())

	span.SetAttributes(attribute.String("outcome", status))

	switch outcome.Status {
	case domain.StatusSuccess:
		span.SetStatus(codes.Ok, "")
		telemetry.Logger.InfoContext(ctx, "transfer confirmed",
			"transfer_id", req.TransferID,
			"to", req.To,
			"amount", req.Amount,
			"signature", outcome.Signature.String(),
		)
		e.notifyEventHandlers(domain.TransferSubmitted{
			TransferID: req.TransferID,
			From:       sender,
			To:         req.To,
			Amount:     req.Amount,
			Signature:  outcome.Signature.String(),
		})
	case domain.StatusRejected:
		span.SetStatus(codes.Error, outcome.Reason)
		telemetry.Logger.InfoContext(ctx, "transfer rejected",
			"transfer_id", req.TransferID,
			"to", req.To,
			"amount", req.Amount,
			"reason", outcome.Reason,
		)
		e.notifyEventHandlers(domain.TransferRejected{
			TransferID: req.TransferID,
			To:         req.To,
			Amount:     req.Amount,
			Reason:     outcome.Reason,
		})
	default:
		span.RecordError(outcome.Err)
		span.SetStatus(codes.Error, "internal failure")
		telemetry.Logger.ErrorContext(ctx, "transfer failed internally",
			"transfer_id", req.TransferID,
			"error", outcome.Err,
		)
	}
}

// notifyEventHandlers sends the event to all registered handlers.
// The outcome is already decided here, so a failing handler is only logged.
func (e *TransferEngine) notifyEventHandlers(event domain.Event) {
	e.mu.RLock()
	handlers := make([]EventHandler, len(e.eventHandlers))
	copy(handlers, e.eventHandlers)
	e.mu.RUnlock()

	for _, handler := range handlers {
		e.dispatch(handler, event)
	}
}

func (e *TransferEngine) dispatch(handler EventHandler, event domain.Event) {
	defer func() {
		if r := recover(); r != nil {
			telemetry.Logger.Error("event handler panicked",
				"type", event.GetType(),
				"transfer_id", event.GetTransferID(),
				"panic", r,
			)
		}
	}()
	handler(event)
}
