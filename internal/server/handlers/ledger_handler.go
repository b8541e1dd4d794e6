package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/NelsonWelser1/dairyledger/internal/domain/models"
	"github.com/NelsonWelser1/dairyledger/internal/service/withdrawal"
)

// sessionHeader identifies the caller session for throttling. Callers that
// do not send it are keyed by client IP instead.
const sessionHeader = "X-Session-ID"

// LedgerHandler exposes the tank ledger over HTTP.
type LedgerHandler struct {
	svc    *withdrawal.Service
	logger *zap.Logger
}

// NewLedgerHandler constructs the HTTP handler adapter.
func NewLedgerHandler(svc *withdrawal.Service, logger *zap.Logger) *LedgerHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LedgerHandler{svc: svc, logger: logger}
}

// Balances returns the derived balance of every configured tank.
func (h *LedgerHandler) Balances(c *gin.Context) {
	balances, err := h.svc.Balances(c.Request.Context())
	if err != nil {
		h.logger.Error("failed reading balances", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to read balances"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"balances": balances})
}

// Prefill returns a withdrawal request seeded from the tank's latest deposit.
func (h *LedgerHandler) Prefill(c *gin.Context) {
	req, err := h.svc.Prefill(c.Request.Context(), c.Param("tank"))
	if err != nil {
		if errors.Is(err, withdrawal.ErrUnknownTank) {
			c.JSON(http.StatusNotFound, gin.H{"error": "unknown tank"})
			return
		}
		h.logger.Error("prefill lookup failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to build prefill"})
		return
	}

	c.JSON(http.StatusOK, req)
}

// Validate answers the live-feedback question while a caller edits the
// requested quantity. Nothing is written and the throttle is not consulted.
func (h *LedgerHandler) Validate(c *gin.Context) {
	var req models.ValidateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("invalid validate payload", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	result, err := h.svc.Validate(c.Request.Context(), req)
	if err != nil {
		h.respondInputError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// Withdraw commits a withdrawal for the caller's session.
func (h *LedgerHandler) Withdraw(c *gin.Context) {
	var req models.WithdrawalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("invalid withdrawal payload", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	outcome, err := h.svc.Withdraw(c.Request.Context(), h.sessionKey(c), req)
	if err != nil {
		h.respondInputError(c, err)
		return
	}

	c.JSON(statusForOutcome(outcome), outcome)
}

// Deposit records milk received into a tank.
func (h *LedgerHandler) Deposit(c *gin.Context) {
	var req models.DepositRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("invalid deposit payload", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	outcome, err := h.svc.Deposit(c.Request.Context(), h.sessionKey(c), req)
	if err != nil {
		h.respondInputError(c, err)
		return
	}

	c.JSON(statusForOutcome(outcome), outcome)
}

func (h *LedgerHandler) sessionKey(c *gin.Context) string {
	if session := c.GetHeader(sessionHeader); session != "" {
		return session
	}
	return c.ClientIP()
}

func (h *LedgerHandler) respondInputError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, withdrawal.ErrUnknownTank),
		errors.Is(err, withdrawal.ErrInvalidQuantity),
		errors.Is(err, withdrawal.ErrMissingDestination):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		h.logger.Error("request failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

// statusForOutcome maps the four outcome shapes onto distinct status codes so
// callers can branch without parsing the body.
func statusForOutcome(outcome models.CommitOutcome) int {
	switch outcome.Status {
	case models.OutcomeCommitted:
		return http.StatusCreated
	case models.OutcomeRejected:
		return http.StatusUnprocessableEntity
	case models.OutcomeThrottled:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}
