// Package memory provides an in-memory repository.Ledger used by tests and
// local development. The conditional commit holds the mutex across the
// balance re-check and both appends, giving the same overdraw protection the
// MongoDB transaction does.
package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/NelsonWelser1/dairyledger/internal/domain/models"
	"github.com/NelsonWelser1/dairyledger/internal/ledger"
	"github.com/NelsonWelser1/dairyledger/internal/repository"
)

// LedgerRepository stores transactions, transfers and snapshots in memory.
type LedgerRepository struct {
	mu           sync.Mutex
	transactions []models.TankTransaction
	transfers    []models.TransferRecord
	snapshots    []models.BalanceSnapshot
	nextID       int
}

var _ repository.Ledger = (*LedgerRepository)(nil)

// NewLedgerRepository creates an empty in-memory repository.
func NewLedgerRepository() *LedgerRepository {
	return &LedgerRepository{}
}

// ListTransactions returns a copy of the full ledger history.
func (r *LedgerRepository) ListTransactions(_ context.Context) ([]models.TankTransaction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]models.TankTransaction, len(r.transactions))
	copy(out, r.transactions)

	return out, nil
}

// LatestDeposit returns the newest positive entry for the tank, or nil.
func (r *LedgerRepository) LatestDeposit(_ context.Context, tank string) (*models.TankTransaction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i := len(r.transactions) - 1; i >= 0; i-- {
		txn := r.transactions[i]
		if txn.Tank == tank && txn.IsDeposit() {
			return &txn, nil
		}
	}

	return nil, nil
}

// InsertTransaction appends a single ledger entry.
func (r *LedgerRepository) InsertTransaction(_ context.Context, txn models.TankTransaction) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	txn.ID = r.newID()
	r.transactions = append(r.transactions, txn)

	return txn.ID, nil
}

// CommitWithdrawal re-checks the source tank balance and appends both records
// under one lock, refusing the pair when the balance no longer covers it.
func (r *LedgerRepository) CommitWithdrawal(_ context.Context, txn models.TankTransaction, transfer models.TransferRecord) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	balance := ledger.Balance(r.transactions, txn.Tank)
	if balance.LessThan(txn.Quantity.Abs()) {
		return "", repository.ErrInsufficientBalance
	}

	txn.ID = r.newID()
	r.transactions = append(r.transactions, txn)

	transfer.ID = r.newID()
	r.transfers = append(r.transfers, transfer)

	return transfer.ID, nil
}

// SaveSnapshot records a reconciliation snapshot.
func (r *LedgerRepository) SaveSnapshot(_ context.Context, snapshot models.BalanceSnapshot) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.snapshots = append(r.snapshots, snapshot)

	return nil
}

// Transfers returns a copy of the stored transfer records.
func (r *LedgerRepository) Transfers() []models.TransferRecord {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]models.TransferRecord, len(r.transfers))
	copy(out, r.transfers)

	return out
}

// Snapshots returns a copy of the stored snapshots.
func (r *LedgerRepository) Snapshots() []models.BalanceSnapshot {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]models.BalanceSnapshot, len(r.snapshots))
	copy(out, r.snapshots)

	return out
}

func (r *LedgerRepository) newID() string {
	r.nextID++
	return fmt.Sprintf("mem-%d", r.nextID)
}
