package webhook

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/NelsonWelser1/dairyledger/internal/domain/models"
)

func TestWithdrawalCommittedPostsEvent(t *testing.T) {
	var received Event

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&received))
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	client := NewClient(srv.URL, nil)

	transfer := models.TransferRecord{
		SourceTank:  "Tank A",
		Destination: "Direct-Processing",
		Quantity:    decimal.RequireFromString("200"),
		CreatedAt:   time.Now().UTC(),
	}

	client.WithdrawalCommitted(context.Background(), transfer)

	assert.Equal(t, "withdrawal_committed", received.Type)
	assert.Equal(t, "Tank A", received.Tank)
	require.NotNil(t, received.Transfer)
	assert.True(t, received.Transfer.Quantity.Equal(transfer.Quantity))
}

func TestWithdrawalRejectedPostsShortfall(t *testing.T) {
	var received Event

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&received))
	}))
	defer srv.Close()

	client := NewClient(srv.URL, nil)

	client.WithdrawalRejected(context.Background(), "Tank A", models.ValidationResult{
		Deficit: decimal.RequireFromString("50"),
	})

	assert.Equal(t, "withdrawal_rejected", received.Type)
	require.NotNil(t, received.Shortfall)
	assert.True(t, received.Shortfall.Deficit.Equal(decimal.RequireFromString("50")))
}

func TestDeliveryFailureDoesNotPanic(t *testing.T) {
	client := NewClient("http://127.0.0.1:1", nil)

	client.WithdrawalCommitted(context.Background(), models.TransferRecord{SourceTank: "Tank A"})
}
