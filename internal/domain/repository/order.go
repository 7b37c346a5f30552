package repository

import (
	"context"
	"time"

	"paygate/internal/domain/model"
)

// OrderRepository describes persistence operations with payment orders.
// GetByCodeForUpdate takes a row lock and must run inside a transaction
// opened through UnitOfWork.
type OrderRepository interface {
	GetByCode(ctx context.Context, code string) (*model.Order, error)
	GetByCodeForUpdate(ctx context.Context, code string) (*model.Order, error)
	Insert(ctx context.Context, order *model.Order) error
	UpdateByCode(ctx context.Context, order *model.Order) error
	SelectExpiredPending(ctx context.Context, olderThan time.Time, limit int) ([]model.Order, error)
}
