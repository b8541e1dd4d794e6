package models

import "github.com/shopspring/decimal"

// WithdrawalRequest is the ephemeral request a caller builds up before
// committing. It is never persisted itself; only the two records derived from
// it are. Attributes default to the latest deposit at the source tank and may
// be edited before commit.
type WithdrawalRequest struct {
	SourceTank  string          `json:"source_tank" binding:"required"`
	Destination string          `json:"destination" binding:"required"`
	Quantity    decimal.Decimal `json:"quantity" binding:"required"`
	Attributes  MilkAttributes  `json:"attributes"`
}

// DepositRequest records milk received into a tank.
type DepositRequest struct {
	Tank       string          `json:"tank" binding:"required"`
	Quantity   decimal.Decimal `json:"quantity" binding:"required"`
	Attributes MilkAttributes  `json:"attributes"`
}

// ValidateRequest asks whether a withdrawal would currently be authorized,
// without committing anything. Used for live feedback while the caller edits
// the quantity.
type ValidateRequest struct {
	SourceTank string          `json:"source_tank" binding:"required"`
	Quantity   decimal.Decimal `json:"quantity" binding:"required"`
}
