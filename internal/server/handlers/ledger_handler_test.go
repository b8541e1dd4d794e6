package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/NelsonWelser1/dairyledger/internal/domain/models"
	"github.com/NelsonWelser1/dairyledger/internal/repository/memory"
	"github.com/NelsonWelser1/dairyledger/internal/server/handlers"
	"github.com/NelsonWelser1/dairyledger/internal/server/router"
	"github.com/NelsonWelser1/dairyledger/internal/service/withdrawal"
	"github.com/NelsonWelser1/dairyledger/internal/throttle"
)

var testTanks = []string{"Tank A", "Tank B", "Direct-Processing"}

func newTestEngine(t *testing.T, repo *memory.LedgerRepository) *gin.Engine {
	t.Helper()

	withdrawKeeper := throttle.NewKeeper(30*time.Second, nil)
	t.Cleanup(withdrawKeeper.Stop)

	depositKeeper := throttle.NewKeeper(20*time.Second, nil)
	t.Cleanup(depositKeeper.Stop)

	svc := withdrawal.NewService(repo, testTanks, withdrawKeeper, depositKeeper, nil, nil)

	return router.New(handlers.NewLedgerHandler(svc, nil), nil)
}

func seededRepo(t *testing.T) *memory.LedgerRepository {
	t.Helper()

	repo := memory.NewLedgerRepository()
	_, err := repo.InsertTransaction(context.Background(), models.TankTransaction{
		Tank:       "Tank A",
		Quantity:   decimal.RequireFromString("500"),
		Attributes: models.MilkAttributes{TemperatureC: 4.0, Grade: "A"},
		CreatedAt:  time.Now().UTC(),
	})
	require.NoError(t, err)

	return repo
}

func doJSON(engine *gin.Engine, method, path, session string, payload any) *httptest.ResponseRecorder {
	var body bytes.Buffer
	if payload != nil {
		_ = json.NewEncoder(&body).Encode(payload)
	}

	req := httptest.NewRequest(method, path, &body)
	req.Header.Set("Content-Type", "application/json")
	if session != "" {
		req.Header.Set("X-Session-ID", session)
	}

	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, req)

	return rec
}

func TestBalancesEndpoint(t *testing.T) {
	engine := newTestEngine(t, seededRepo(t))

	rec := doJSON(engine, http.MethodGet, "/balances", "", nil)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Balances []models.TankAvailability `json:"balances"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Len(t, resp.Balances, len(testTanks))
}

func TestValidateEndpointAuthorized(t *testing.T) {
	engine := newTestEngine(t, seededRepo(t))

	rec := doJSON(engine, http.MethodPost, "/validate", "", gin.H{
		"source_tank": "Tank A",
		"quantity":    "100",
	})

	require.Equal(t, http.StatusOK, rec.Code)

	var result models.ValidationResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.True(t, result.Authorized)
}

func TestValidateEndpointShortfall(t *testing.T) {
	engine := newTestEngine(t, seededRepo(t))

	rec := doJSON(engine, http.MethodPost, "/validate", "", gin.H{
		"source_tank": "Tank A",
		"quantity":    "600",
	})

	require.Equal(t, http.StatusOK, rec.Code)

	var result models.ValidationResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.False(t, result.Authorized)
	assert.True(t, result.Deficit.Equal(decimal.RequireFromString("100")))
}

func TestWithdrawEndpointOutcomeStatuses(t *testing.T) {
	engine := newTestEngine(t, seededRepo(t))

	payload := gin.H{
		"source_tank": "Tank A",
		"destination": "Direct-Processing",
		"quantity":    "200",
	}

	first := doJSON(engine, http.MethodPost, "/withdrawals", "sess-1", payload)
	assert.Equal(t, http.StatusCreated, first.Code)

	// Same session inside the cooldown window is throttled before validation.
	second := doJSON(engine, http.MethodPost, "/withdrawals", "sess-1", payload)
	assert.Equal(t, http.StatusTooManyRequests, second.Code)

	var throttled models.CommitOutcome
	require.NoError(t, json.Unmarshal(second.Body.Bytes(), &throttled))
	assert.Equal(t, models.OutcomeThrottled, throttled.Status)
	assert.Positive(t, throttled.RemainingSeconds)

	// A different session is not throttled but hits the shortfall.
	third := doJSON(engine, http.MethodPost, "/withdrawals", "sess-2", gin.H{
		"source_tank": "Tank A",
		"destination": "Direct-Processing",
		"quantity":    "400",
	})
	assert.Equal(t, http.StatusUnprocessableEntity, third.Code)

	var rejected models.CommitOutcome
	require.NoError(t, json.Unmarshal(third.Body.Bytes(), &rejected))
	assert.Equal(t, models.OutcomeRejected, rejected.Status)
	assert.True(t, rejected.Deficit.Equal(decimal.RequireFromString("100")))
}

func TestWithdrawEndpointBadRequest(t *testing.T) {
	engine := newTestEngine(t, seededRepo(t))

	rec := doJSON(engine, http.MethodPost, "/withdrawals", "sess-1", gin.H{
		"source_tank": "Tank Z",
		"destination": "Direct-Processing",
		"quantity":    "10",
	})

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestPrefillEndpoint(t *testing.T) {
	engine := newTestEngine(t, seededRepo(t))

	rec := doJSON(engine, http.MethodGet, "/tanks/Tank%20A/prefill", "", nil)

	require.Equal(t, http.StatusOK, rec.Code)

	var req models.WithdrawalRequest
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &req))
	assert.Equal(t, "Tank A", req.SourceTank)
	assert.Equal(t, "A", req.Attributes.Grade)
}

func TestPrefillEndpointUnknownTank(t *testing.T) {
	engine := newTestEngine(t, seededRepo(t))

	rec := doJSON(engine, http.MethodGet, "/tanks/Nowhere/prefill", "", nil)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestDepositEndpoint(t *testing.T) {
	repo := memory.NewLedgerRepository()
	engine := newTestEngine(t, repo)

	rec := doJSON(engine, http.MethodPost, "/deposits", "sess-1", gin.H{
		"tank":     "Tank B",
		"quantity": "120",
		"attributes": gin.H{
			"temperature_c": 4.1,
			"grade":         "A",
		},
	})

	require.Equal(t, http.StatusCreated, rec.Code)

	history, err := repo.ListTransactions(context.Background())
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, "Tank B", history[0].Tank)
}
