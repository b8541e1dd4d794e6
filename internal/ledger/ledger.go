// Package ledger derives tank balances from the raw transaction log and
// decides whether withdrawals are covered. Balances are never stored: every
// question is answered by re-summing the history it is handed, so the answer
// always reflects the latest log state.
package ledger

import (
	"sort"

	"github.com/shopspring/decimal"

	"github.com/NelsonWelser1/dairyledger/internal/domain/models"
)

// Balance returns the net available quantity for tank: deposits minus the
// magnitude of withdrawals over the full history. Entries for other tanks are
// ignored. A tank with no history has balance zero; so does a name outside
// the configured set, since validity of tank names is a configuration
// concern, not a ledger one.
func Balance(history []models.TankTransaction, tank string) decimal.Decimal {
	received := decimal.Zero
	withdrawn := decimal.Zero

	for _, txn := range history {
		if txn.Tank != tank {
			continue
		}
		if txn.Quantity.IsPositive() {
			received = received.Add(txn.Quantity)
		} else {
			withdrawn = withdrawn.Add(txn.Quantity.Abs())
		}
	}

	return received.Sub(withdrawn)
}

// FindAlternative looks for another tank able to cover required on its own.
// Candidates are every configured tank except exclude, filtered to those with
// balance >= required and ranked by descending availability. Picking the
// fullest sufficient tank rather than the tightest fit is deliberate: it
// keeps the most headroom for the next request at the cost of fragmenting
// small balances.
func FindAlternative(history []models.TankTransaction, tanks []string, exclude string, required decimal.Decimal) *models.TankAvailability {
	var candidates []models.TankAvailability

	for _, tank := range tanks {
		if tank == exclude {
			continue
		}
		available := Balance(history, tank)
		if available.GreaterThanOrEqual(required) {
			candidates = append(candidates, models.TankAvailability{Tank: tank, Available: available})
		}
	}

	if len(candidates) == 0 {
		return nil
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Available.GreaterThan(candidates[j].Available)
	})

	return &candidates[0]
}

// Validate decides whether withdrawing requested from source is covered by
// the supplied history. The boundary is inclusive: a request for exactly the
// available balance is authorized. On shortfall the result carries the
// deficit and, when some other tank could cover the request, a suggestion.
func Validate(history []models.TankTransaction, tanks []string, source string, requested decimal.Decimal) models.ValidationResult {
	available := Balance(history, source)

	if requested.LessThanOrEqual(available) {
		return models.ValidationResult{Authorized: true, Available: available, Deficit: decimal.Zero}
	}

	return models.ValidationResult{
		Available:  available,
		Deficit:    requested.Sub(available),
		Suggestion: FindAlternative(history, tanks, source, requested),
	}
}
