// Package repository defines the persistence contract for the tank ledger.
package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/NelsonWelser1/dairyledger/internal/domain/models"
)

// ErrInsufficientBalance is returned by CommitWithdrawal when the balance
// re-checked at write time no longer covers the withdrawal.
var ErrInsufficientBalance = errors.New("balance at write time no longer covers withdrawal")

// PartialCommitError reports that the ledger entry was written but the
// paired transfer record was not. The ledger already reflects the withdrawal;
// the discrepancy is left for manual reconciliation rather than rolled back.
type PartialCommitError struct {
	Cause error
}

func (e *PartialCommitError) Error() string {
	return fmt.Sprintf("transfer record not written after ledger entry committed: %v", e.Cause)
}

func (e *PartialCommitError) Unwrap() error {
	return e.Cause
}

// Ledger is the storage interface the service layer depends on. Reads return
// the append-only transaction history; CommitWithdrawal performs the paired
// withdrawal writes as a single conditional operation that verifies balance
// at write time, closing the window between an advisory read and the insert.
type Ledger interface {
	// ListTransactions returns the full transaction history.
	ListTransactions(ctx context.Context) ([]models.TankTransaction, error)

	// LatestDeposit returns the most recent positive entry for the tank, or
	// nil when the tank has never received a deposit.
	LatestDeposit(ctx context.Context, tank string) (*models.TankTransaction, error)

	// InsertTransaction appends a single ledger entry and returns its id.
	InsertTransaction(ctx context.Context, txn models.TankTransaction) (string, error)

	// CommitWithdrawal writes the negative ledger entry and the transfer
	// record together, only if the source tank balance still covers the
	// withdrawal. Returns the transfer record id, ErrInsufficientBalance on
	// an overdraw, or *PartialCommitError when only the ledger entry landed.
	CommitWithdrawal(ctx context.Context, txn models.TankTransaction, transfer models.TransferRecord) (string, error)

	// SaveSnapshot persists a reconciliation balance snapshot.
	SaveSnapshot(ctx context.Context, snapshot models.BalanceSnapshot) error
}
