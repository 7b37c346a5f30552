package repository

import (
	"context"

	"paygate/internal/domain/model"
)

// WaterRepository appends and lists per-order audit entries.
type WaterRepository interface {
	Append(ctx context.Context, water *model.OrderWater) error
	ListByOrder(ctx context.Context, orderCode string) ([]model.OrderWater, error)
}

// FailureRepository stores callbacks that failed authentication.
type FailureRepository interface {
	Append(ctx context.Context, record *model.FailureRecord) error
}
