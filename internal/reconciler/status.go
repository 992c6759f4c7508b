// Package reconciler owns the payer transitions and the collection status
// recomputation that follows every one of them.
package reconciler

import "github.com/amaykorade/zakapay-hackathon/pkg/enums"

// StatusCounts is the number of payers of a collection in each status.
type StatusCounts struct {
	Unpaid    int64 `json:"unpaid"`
	Paid      int64 `json:"paid"`
	Cancelled int64 `json:"cancelled"`
}

// NextCollectionStatus derives a collection's status from its payer counts.
// PENDING is only ever the initial status: once left it is never returned.
// COMPLETED and CANCELLED never move.
func NextCollectionStatus(current enums.CollectionStatus, counts StatusCounts) enums.CollectionStatus {
	if current.IsTerminal() {
		return current
	}
	if counts.Unpaid == 0 {
		if counts.Paid > 0 {
			return enums.CollectionStatusCompleted
		}
		return enums.CollectionStatusCancelled
	}
	if counts.Paid > 0 {
		return enums.CollectionStatusPartial
	}
	return current
}
