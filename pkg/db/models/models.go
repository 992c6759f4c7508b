package models

// All lists every persisted model in dependency order.
func All() []any {
	return []any{
		&User{},
		&Collection{},
		&Payer{},
		&PaymentMethod{},
		&Payment{},
		&PaymentAllocation{},
		&OutboxEvent{},
		&OutboxDLQ{},
	}
}
