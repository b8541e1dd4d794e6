package webhook

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	"github.com/NelsonWelser1/dairyledger/internal/domain/models"
)

// Event is the payload posted to the configured webhook endpoint.
type Event struct {
	Type       string                   `json:"type"`
	Tank       string                   `json:"tank"`
	OccurredAt time.Time                `json:"occurred_at"`
	Transfer   *models.TransferRecord   `json:"transfer,omitempty"`
	Shortfall  *models.ValidationResult `json:"shortfall,omitempty"`
}

const (
	eventWithdrawalCommitted = "withdrawal_committed"
	eventWithdrawalRejected  = "withdrawal_rejected"
)

// Client posts ledger events to an external webhook. Delivery is best-effort:
// failures are logged and never surfaced to the commit path.
type Client struct {
	httpClient *resty.Client
	logger     *zap.Logger
}

// NewClient builds a webhook notifier targeting the given URL.
func NewClient(url string, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}

	restyClient := resty.New()
	restyClient.
		SetBaseURL(url).
		SetHeader("Content-Type", "application/json").
		SetTimeout(10 * time.Second)

	return &Client{
		httpClient: restyClient,
		logger:     logger,
	}
}

// WithdrawalCommitted announces a committed withdrawal.
func (c *Client) WithdrawalCommitted(ctx context.Context, transfer models.TransferRecord) {
	c.post(ctx, Event{
		Type:       eventWithdrawalCommitted,
		Tank:       transfer.SourceTank,
		OccurredAt: transfer.CreatedAt,
		Transfer:   &transfer,
	})
}

// WithdrawalRejected announces a shortfall rejection.
func (c *Client) WithdrawalRejected(ctx context.Context, sourceTank string, result models.ValidationResult) {
	c.post(ctx, Event{
		Type:       eventWithdrawalRejected,
		Tank:       sourceTank,
		OccurredAt: time.Now().UTC(),
		Shortfall:  &result,
	})
}

func (c *Client) post(ctx context.Context, event Event) {
	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetBody(event).
		Post("")
	if err != nil {
		c.logger.Warn("webhook delivery failed", zap.String("event", event.Type), zap.Error(err))
		return
	}

	if resp.StatusCode() >= http.StatusBadRequest {
		c.logger.Warn("webhook delivery rejected",
			zap.String("event", event.Type),
			zap.String("status", fmt.Sprintf("%d", resp.StatusCode())))
	}
}
