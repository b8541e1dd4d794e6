// Package withdrawal orchestrates the commit path: throttle gate first, then
// re-validation against a freshly read history, then the paired conditional
// writes. Validation results from earlier live feedback are never reused.
package withdrawal

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/NelsonWelser1/dairyledger/internal/domain/models"
	"github.com/NelsonWelser1/dairyledger/internal/ledger"
	"github.com/NelsonWelser1/dairyledger/internal/repository"
	"github.com/NelsonWelser1/dairyledger/internal/throttle"
)

// ErrUnknownTank indicates a tank name outside the configured set.
var ErrUnknownTank = errors.New("unknown tank")

// ErrInvalidQuantity indicates a zero or negative requested quantity.
var ErrInvalidQuantity = errors.New("quantity must be positive")

// ErrMissingDestination indicates a withdrawal without a destination.
var ErrMissingDestination = errors.New("destination must be provided")

// Notifier delivers ledger events to interested listeners. Implementations
// must not block the commit path on delivery.
type Notifier interface {
	WithdrawalCommitted(ctx context.Context, transfer models.TransferRecord)
	WithdrawalRejected(ctx context.Context, sourceTank string, result models.ValidationResult)
}

// Service implements the withdrawal and deposit flows over a ledger store.
type Service struct {
	store            repository.Ledger
	tanks            []string
	withdrawThrottle *throttle.Keeper
	depositThrottle  *throttle.Keeper
	notifier         Notifier
	logger           *zap.Logger
	now              func() time.Time
}

// NewService wires a withdrawal service. notifier may be nil.
func NewService(store repository.Ledger, tanks []string, withdrawThrottle, depositThrottle *throttle.Keeper, notifier Notifier, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		store:            store,
		tanks:            tanks,
		withdrawThrottle: withdrawThrottle,
		depositThrottle:  depositThrottle,
		notifier:         notifier,
		logger:           logger,
		now:              time.Now,
	}
}

// Balances derives the current balance of every configured tank from a fresh
// read of the history.
func (s *Service) Balances(ctx context.Context) ([]models.TankAvailability, error) {
	history, err := s.store.ListTransactions(ctx)
	if err != nil {
		return nil, fmt.Errorf("read history: %w", err)
	}

	balances := make([]models.TankAvailability, 0, len(s.tanks))
	for _, tank := range s.tanks {
		balances = append(balances, models.TankAvailability{
			Tank:      tank,
			Available: ledger.Balance(history, tank),
		})
	}

	return balances, nil
}

// Prefill builds a withdrawal request seeded with the quality attributes of
// the tank's most recent deposit, the values a caller starts editing from.
func (s *Service) Prefill(ctx context.Context, tank string) (models.WithdrawalRequest, error) {
	if !s.knownTank(tank) {
		return models.WithdrawalRequest{}, ErrUnknownTank
	}

	latest, err := s.store.LatestDeposit(ctx, tank)
	if err != nil {
		return models.WithdrawalRequest{}, fmt.Errorf("latest deposit for %s: %w", tank, err)
	}

	req := models.WithdrawalRequest{SourceTank: tank}
	if latest != nil {
		req.Attributes = latest.Attributes
	}

	return req, nil
}

// Validate answers whether the withdrawal would currently be authorized. It
// reads the history fresh on every call; both the live-feedback path and the
// commit path go through the same logic.
func (s *Service) Validate(ctx context.Context, req models.ValidateRequest) (models.ValidationResult, error) {
	if !s.knownTank(req.SourceTank) {
		return models.ValidationResult{}, ErrUnknownTank
	}
	if !req.Quantity.IsPositive() {
		return models.ValidationResult{}, ErrInvalidQuantity
	}

	history, err := s.store.ListTransactions(ctx)
	if err != nil {
		return models.ValidationResult{}, fmt.Errorf("read history: %w", err)
	}

	return ledger.Validate(history, s.tanks, req.SourceTank, req.Quantity), nil
}

// Withdraw runs the full commit sequence for one session. The throttle is
// consulted before anything else: a cooling-down session is turned away
// without a history read even when its request would be valid. The returned
// error covers malformed input only; every domain result is an outcome.
func (s *Service) Withdraw(ctx context.Context, session string, req models.WithdrawalRequest) (models.CommitOutcome, error) {
	if remaining := s.withdrawThrottle.Remaining(session); remaining > 0 {
		return models.CommitOutcome{Status: models.OutcomeThrottled, RemainingSeconds: remaining}, nil
	}

	if !s.knownTank(req.SourceTank) {
		return models.CommitOutcome{}, ErrUnknownTank
	}
	if !req.Quantity.IsPositive() {
		return models.CommitOutcome{}, ErrInvalidQuantity
	}
	if req.Destination == "" {
		return models.CommitOutcome{}, ErrMissingDestination
	}

	history, err := s.store.ListTransactions(ctx)
	if err != nil {
		s.logger.Error("history read failed before commit", zap.Error(err))
		return models.CommitOutcome{Status: models.OutcomeFailed, Reason: err.Error()}, nil
	}

	result := ledger.Validate(history, s.tanks, req.SourceTank, req.Quantity)
	if !result.Authorized {
		return s.reject(ctx, req.SourceTank, result), nil
	}

	now := s.now().UTC()
	entry := models.TankTransaction{
		Tank:       req.SourceTank,
		Quantity:   req.Quantity.Neg(),
		Attributes: req.Attributes,
		CreatedAt:  now,
	}
	transfer := models.TransferRecord{
		SourceTank:  req.SourceTank,
		Destination: req.Destination,
		Quantity:    req.Quantity,
		Attributes:  req.Attributes,
		CreatedAt:   now,
	}

	id, err := s.store.CommitWithdrawal(ctx, entry, transfer)
	if err != nil {
		return s.commitFailure(ctx, req, err), nil
	}

	s.withdrawThrottle.Trip(session)

	if s.notifier != nil {
		s.notifier.WithdrawalCommitted(ctx, transfer)
	}

	s.logger.Info("withdrawal committed",
		zap.String("tank", req.SourceTank),
		zap.String("destination", req.Destination),
		zap.String("quantity", req.Quantity.String()),
		zap.String("transfer_id", id))

	return models.CommitOutcome{Status: models.OutcomeCommitted, ID: id}, nil
}

// Deposit records milk received into a tank, guarded by its own cooldown
// window. Deposits need no balance check.
func (s *Service) Deposit(ctx context.Context, session string, req models.DepositRequest) (models.CommitOutcome, error) {
	if remaining := s.depositThrottle.Remaining(session); remaining > 0 {
		return models.CommitOutcome{Status: models.OutcomeThrottled, RemainingSeconds: remaining}, nil
	}

	if !s.knownTank(req.Tank) {
		return models.CommitOutcome{}, ErrUnknownTank
	}
	if !req.Quantity.IsPositive() {
		return models.CommitOutcome{}, ErrInvalidQuantity
	}

	entry := models.TankTransaction{
		Tank:       req.Tank,
		Quantity:   req.Quantity,
		Attributes: req.Attributes,
		CreatedAt:  s.now().UTC(),
	}

	id, err := s.store.InsertTransaction(ctx, entry)
	if err != nil {
		s.logger.Error("deposit insert failed", zap.String("tank", req.Tank), zap.Error(err))
		return models.CommitOutcome{Status: models.OutcomeFailed, Reason: err.Error()}, nil
	}

	s.depositThrottle.Trip(session)

	s.logger.Info("deposit recorded",
		zap.String("tank", req.Tank),
		zap.String("quantity", req.Quantity.String()),
		zap.String("id", id))

	return models.CommitOutcome{Status: models.OutcomeCommitted, ID: id}, nil
}

func (s *Service) reject(ctx context.Context, sourceTank string, result models.ValidationResult) models.CommitOutcome {
	if s.notifier != nil {
		s.notifier.WithdrawalRejected(ctx, sourceTank, result)
	}

	s.logger.Info("withdrawal rejected",
		zap.String("tank", sourceTank),
		zap.String("deficit", result.Deficit.String()))

	return models.CommitOutcome{
		Status:     models.OutcomeRejected,
		Deficit:    result.Deficit,
		Suggestion: result.Suggestion,
	}
}

// commitFailure maps storage errors to their outcome shapes. An overdraw
// detected at write time means another session drained the tank after our
// validation read, so the request is re-validated to produce an up-to-date
// rejection. A partial commit keeps its distinct shape: the ledger already
// reflects the withdrawal and the caller has to know that.
func (s *Service) commitFailure(ctx context.Context, req models.WithdrawalRequest, err error) models.CommitOutcome {
	if errors.Is(err, repository.ErrInsufficientBalance) {
		history, readErr := s.store.ListTransactions(ctx)
		if readErr != nil {
			return models.CommitOutcome{Status: models.OutcomeFailed, Reason: readErr.Error()}
		}
		return s.reject(ctx, req.SourceTank, ledger.Validate(history, s.tanks, req.SourceTank, req.Quantity))
	}

	var partial *repository.PartialCommitError
	if errors.As(err, &partial) {
		s.logger.Error("partial commit, ledger entry written without transfer record",
			zap.String("tank", req.SourceTank),
			zap.String("quantity", req.Quantity.String()),
			zap.Error(err))
		return models.CommitOutcome{Status: models.OutcomeFailed, Reason: err.Error(), LedgerWritten: true}
	}

	s.logger.Error("commit failed", zap.String("tank", req.SourceTank), zap.Error(err))

	return models.CommitOutcome{Status: models.OutcomeFailed, Reason: err.Error()}
}

func (s *Service) knownTank(name string) bool {
	for _, tank := range s.tanks {
		if tank == name {
			return true
		}
	}
	return false
}
