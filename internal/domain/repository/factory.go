package repository

import "context"

// UnitOfWork executes fn inside a single transaction: commit when fn
// returns nil, rollback when it returns an error. Nested calls reuse
// the already-open transaction.
type UnitOfWork interface {
	WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

// Factory describes access to the domain repositories.
type Factory interface {
	Orders() OrderRepository
	Merchants() MerchantRepository
	Waters() WaterRepository
	Failures() FailureRepository
}
