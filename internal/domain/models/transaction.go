package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// MilkAttributes carries the quality measurements attached to a ledger entry.
// They travel with the milk through deposits, withdrawals and transfers but
// never participate in balance math.
type MilkAttributes struct {
	TemperatureC   float64 `json:"temperature_c"`
	FatPercent     float64 `json:"fat_percent"`
	ProteinPercent float64 `json:"protein_percent"`
	Grade          string  `json:"grade"`
	Notes          string  `json:"notes,omitempty"`
}

// TankTransaction is a single signed ledger entry for one tank. A positive
// quantity is a deposit into the tank, a negative quantity a withdrawal from
// it. The sum of all entries for a tank is its current available balance.
type TankTransaction struct {
	ID         string          `json:"id,omitempty"`
	Tank       string          `json:"tank"`
	Quantity   decimal.Decimal `json:"quantity"`
	Attributes MilkAttributes  `json:"attributes"`
	CreatedAt  time.Time       `json:"created_at"`
}

// IsDeposit reports whether the entry added milk to its tank.
func (t TankTransaction) IsDeposit() bool {
	return t.Quantity.IsPositive()
}

// TransferRecord describes an authorized withdrawal for downstream reporting,
// separate from the raw ledger. Quantity is stored as a positive magnitude.
type TransferRecord struct {
	ID          string          `json:"id,omitempty"`
	SourceTank  string          `json:"source_tank"`
	Destination string          `json:"destination"`
	Quantity    decimal.Decimal `json:"quantity"`
	Attributes  MilkAttributes  `json:"attributes"`
	CreatedAt   time.Time       `json:"created_at"`
}

// BalanceSnapshot is the nightly reconciliation document: per-tank balances
// recomputed from the full transaction log.
type BalanceSnapshot struct {
	TakenAt  time.Time         `json:"taken_at"`
	Balances map[string]string `json:"balances"`
	Negative []string          `json:"negative,omitempty"`
}
