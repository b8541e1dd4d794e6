package scheduler

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/NelsonWelser1/dairyledger/internal/config"
	"github.com/NelsonWelser1/dairyledger/internal/domain/models"
	"github.com/NelsonWelser1/dairyledger/internal/ledger"
	"github.com/NelsonWelser1/dairyledger/internal/repository"
)

// Scheduler runs the nightly reconciliation: balances recomputed from the
// full transaction log and persisted as a snapshot. The recompute-from-log
// path stays the source of truth; the snapshot exists so drift or negative
// balances are caught on a schedule instead of during a withdrawal.
type Scheduler struct {
	cron   *cron.Cron
	store  repository.Ledger
	tanks  []string
	cfg    config.ReconcileConfig
	logger *zap.Logger
}

// NewScheduler creates a new scheduler instance.
func NewScheduler(cfg config.ReconcileConfig, store repository.Ledger, tanks []string, logger *zap.Logger) *Scheduler {
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Scheduler{
		cron:   cron.New(),
		store:  store,
		tanks:  tanks,
		cfg:    cfg,
		logger: logger,
	}
}

// Start registers the reconciliation job and starts the cron loop.
func (s *Scheduler) Start() {
	s.logger.Info("starting scheduler", zap.String("schedule", s.cfg.CronSchedule))

	if _, err := s.cron.AddFunc(s.cfg.CronSchedule, s.reconcile); err != nil {
		s.logger.Error("failed to schedule reconciliation", zap.Error(err))
	}

	s.cron.Start()
}

// Stop stops the scheduler.
func (s *Scheduler) Stop() {
	s.logger.Info("stopping scheduler")
	s.cron.Stop()
}

func (s *Scheduler) reconcile() {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	snapshot, err := s.Reconcile(ctx)
	if err != nil {
		s.logger.Error("reconciliation failed", zap.Error(err))
		return
	}

	s.logger.Info("reconciliation snapshot saved",
		zap.Time("taken_at", snapshot.TakenAt),
		zap.Int("tanks", len(snapshot.Balances)),
		zap.Strings("negative", snapshot.Negative))
}

// Reconcile recomputes every tank balance from the log and persists the
// snapshot. Exposed so an operator can trigger it outside the schedule.
func (s *Scheduler) Reconcile(ctx context.Context) (models.BalanceSnapshot, error) {
	history, err := s.store.ListTransactions(ctx)
	if err != nil {
		return models.BalanceSnapshot{}, err
	}

	snapshot := models.BalanceSnapshot{
		TakenAt:  time.Now().UTC(),
		Balances: make(map[string]string, len(s.tanks)),
	}

	for _, tank := range s.tanks {
		balance := ledger.Balance(history, tank)
		snapshot.Balances[tank] = balance.String()

		if balance.IsNegative() {
			s.logger.Warn("tank balance is negative", zap.String("tank", tank), zap.String("balance", balance.String()))
			snapshot.Negative = append(snapshot.Negative, tank)
		}
	}

	if err := s.store.SaveSnapshot(ctx, snapshot); err != nil {
		return models.BalanceSnapshot{}, err
	}

	return snapshot, nil
}
