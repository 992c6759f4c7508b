package enums

// CollectionStatus is derived from the payers: PENDING until the first
// payer pays, PARTIAL until all have, then COMPLETED.
type CollectionStatus string

const (
	CollectionStatusPending   CollectionStatus = "PENDING"
	CollectionStatusPartial   CollectionStatus = "PARTIAL"
	CollectionStatusCompleted CollectionStatus = "COMPLETED"
	CollectionStatusCancelled CollectionStatus = "CANCELLED"
)

var collectionStatuses = []CollectionStatus{
	CollectionStatusPending,
	CollectionStatusPartial,
	CollectionStatusCompleted,
	CollectionStatusCancelled,
}

func (c CollectionStatus) String() string { return string(c) }

func (c CollectionStatus) IsValid() bool { return oneOf(c, collectionStatuses) }

// IsTerminal reports whether the collection can no longer change.
func (c CollectionStatus) IsTerminal() bool {
	return c == CollectionStatusCompleted || c == CollectionStatusCancelled
}

func ParseCollectionStatus(value string) (CollectionStatus, error) {
	return parse("collection status", value, collectionStatuses, nil)
}
