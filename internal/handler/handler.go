package handler

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/ghaleb-d/sol-transfer/internal/domain"
	"github.com/ghaleb-d/sol-transfer/internal/engine"
	"github.com/ghaleb-d/sol-transfer/internal/ledger"
	"github.com/ghaleb-d/sol-transfer/internal/telemetry"
	"github.com/ghaleb-d/sol-transfer/internal/worker"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	greeting            = "Hello, Solana!"
	msgInvalidPublicKey = "Invalid public key format"
	msgInvalidBody      = "Invalid request body"
	msgInternalError    = "Internal server error"
)

// TransferExecutor runs one transfer request to a classified outcome
type TransferExecutor interface {
	Execute(ctx context.Context, req domain.TransferRequest) domain.Outcome
}

// Handler contains all HTTP handlers
type Handler struct {
	transfers TransferExecutor
	balances  engine.BalanceReader
	pool      *worker.Pool
}

// NewHandler creates a new handler. Ledger calls from every route share pool.
func NewHandler(transfers TransferExecutor, balances engine.BalanceReader, pool *worker.Pool) *Handler {
	return &Handler{
		transfers: transfers,
		balances:  balances,
		pool:      pool,
	}
}

// Root handles GET /
func (h *Handler) Root(c *gin.Context) {
	c.String(http.StatusOK, greeting)
}

// HealthResponse is the response for health check endpoint
type HealthResponse struct {
	Status string `json:"status"`
	Time   string `json:"time"`
}

// Health handles GET /health
func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, HealthResponse{
		Status: "ok",
		Time:   time.Now().UTC().Format(time.RFC3339),
	})
}

type balanceResult struct {
	lamports uint64
	err      error
}

// GetBalance handles GET /balance/:address
func (h *Handler) GetBalance(c *gin.Context) {
	ctx := c.Request.Context()

	account, err := ledger.ParseAddress(c.Param("address"))
	if err != nil {
		c.String(http.StatusBadRequest, msgInvalidPublicKey)
		return
	}

	// The ledger error travels inside the result so that Run only fails for pool faults.
	res, err := worker.Run(ctx, h.pool, func(ctx context.Context) (balanceResult, error) {
		lamports, err := h.balances.GetBalance(ctx, account)
		return balanceResult{lamports: lamports, err: err}, nil
	})
	if err != nil {
		telemetry.Logger.ErrorContext(ctx, "balance lookup did not complete",
			"address", account.String(),
			"error", err,
		)
		c.String(http.StatusInternalServerError, msgInternalError)
		return
	}

	if res.err != nil {
		c.String(http.StatusBadRequest, fmt.Sprintf("Failed to fetch balance: %v", res.err))
		return
	}

	c.String(http.StatusOK, fmt.Sprintf("Balance: %d lamports", res.lamports))
}

// TransferRequest is the request body for the transfer endpoint.
// Pointers separate a missing field from its zero value.
type TransferRequest struct {
	To     *string `json:"to" binding:"required"`
	Amount *uint64 `json:"amount" binding:"required"`
	From   string  `json:"from"` // Accepted and ignored, the signer is server-configured
}

// Transfer handles POST /transfer
func (h *Handler) Transfer(c *gin.Context) {
	ctx := c.Request.Context()

	var body TransferRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		telemetry.Logger.DebugContext(ctx, "rejecting malformed transfer body", "error", err)
		c.String(http.StatusBadRequest, msgInvalidBody)
		return
	}

	req := domain.TransferRequest{
		TransferID: uuid.Must(uuid.NewV7()).String(),
		From:       body.From,
		To:         *body.To,
		Amount:     *body.Amount,
	}

	outcome, err := worker.Run(ctx, h.pool, func(ctx context.Context) (domain.Outcome, error) {
		return h.transfers.Execute(ctx, req), nil
	})
	if err != nil {
		outcome = domain.InternalFailure(err)
	}

	switch outcome.Status {
	case domain.StatusSuccess:
		c.String(http.StatusOK, fmt.Sprintf("Transfer successful. Signature: %s", outcome.Signature))
	case domain.StatusRejected:
		c.String(http.StatusBadRequest, outcome.Reason)
	default:
		telemetry.Logger.ErrorContext(ctx, "transfer request failed",
			"transfer_id", req.TransferID,
			"error", outcome.Err,
		)
		c.String(http.StatusInternalServerError, msgInternalError)
	}
}

// SetupRoutes configures all API routes. transferMiddleware runs only in front of POST /transfer.
func SetupRoutes(r *gin.Engine, h *Handler, transferMiddleware ...gin.HandlerFunc) {
	r.GET("/", h.Root)
	r.GET("/health", h.Health)
	r.GET("/balance/:address", h.GetBalance)

	transfer := append(append([]gin.HandlerFunc{}, transferMiddleware...), h.Transfer)
	r.POST("/transfer", transfer...)
}
