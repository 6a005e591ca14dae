package models

// All lists every model for gorm AutoMigrate in sqlite mode.
func All() []any {
	return []any{
		&User{},
		&Cart{},
		&CartItem{},
		&Order{},
		&OrderItem{},
		&Request{},
		&SequenceCounter{},
		&OutboxEvent{},
	}
}
