package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	domainErrors "paygate/internal/domain/errors"
	"paygate/internal/domain/model"
	"paygate/internal/domain/repository"
	"paygate/internal/pkg/lock"
	"paygate/internal/provider"
)

const writeAttempts = 3

// RetryWriter persists callback outcomes with a bounded retry: each
// attempt re-reads the order fresh so the mutation never overwrites a
// state a concurrent flow changed in between. Only transient write
// conflicts are retried; business rejections return immediately.
type RetryWriter struct {
	repos repository.Factory
	uow   repository.UnitOfWork
	now   func() time.Time
}

// NewRetryWriter assembles a writer over the given repositories.
func NewRetryWriter(repos repository.Factory, uow repository.UnitOfWork) *RetryWriter {
	return &RetryWriter{repos: repos, uow: uow, now: time.Now}
}

// Write applies mutate to a fresh copy of the order and persists it.
// mutate returns false when the order already carries the outcome, in
// which case nothing is written and Write succeeds.
func (w *RetryWriter) Write(ctx context.Context, orderCode string, mutate func(*model.Order) (bool, error)) error {
	var lastErr error
	for attempt := 0; attempt < writeAttempts; attempt++ {
		err := w.uow.WithinTransaction(ctx, func(ctx context.Context) error {
			order, err := w.repos.Orders().GetByCodeForUpdate(ctx, orderCode)
			if err != nil {
				return err
			}
			changed, err := mutate(order)
			if err != nil {
				return err
			}
			if !changed {
				return nil
			}
			order.UpdatedAt = w.now()
			if err := w.repos.Orders().UpdateByCode(ctx, order); err != nil {
				return err
			}
			return w.repos.Waters().Append(ctx, &model.OrderWater{
				WaterCode: newWaterCode(),
				OrderCode: order.Code,
				Status:    order.Status,
				CreatedAt: w.now(),
			})
		})
		if err == nil {
			return nil
		}
		if !errors.Is(err, domainErrors.ErrWriteConflict) {
			return err
		}
		lastErr = err
	}
	return fmt.Errorf("write retries exhausted: %w", lastErr)
}

// CallbackService authenticates provider webhooks and applies their
// outcomes to orders.
type CallbackService struct {
	repos    repository.Factory
	registry *provider.Registry
	locks    lock.Manager
	mapper   *StatusMapper
	writer   *RetryWriter
	logger   *slog.Logger
	now      func() time.Time
}

// NewCallbackService assembles the callback application pipeline.
func NewCallbackService(repos repository.Factory, registry *provider.Registry, locks lock.Manager, writer *RetryWriter, logger *slog.Logger) *CallbackService {
	return &CallbackService{
		repos:    repos,
		registry: registry,
		locks:    locks,
		mapper:   &StatusMapper{},
		writer:   writer,
		logger:   logger,
		now:      time.Now,
	}
}

// Handle processes one webhook delivery. A nil return means the caller
// should ack success; any error means a failure ack so the provider
// redelivers.
func (s *CallbackService) Handle(ctx context.Context, providerName string, kind provider.CallbackKind, orderCode string, req provider.CallbackRequest) error {
	// Shares the per-order key with the lifecycle flows so a callback
	// never races a concurrent cancel or refund.
	release, err := s.locks.Acquire(ctx, "order:"+orderCode, lockTTL)
	if err != nil {
		return err
	}
	defer release()

	order, err := s.repos.Orders().GetByCode(ctx, orderCode)
	if err != nil {
		return err
	}
	prov, err := s.registry.ByName(providerName)
	if err != nil {
		return err
	}
	parser, ok := prov.Callbacks[kind]
	if !ok {
		return fmt.Errorf("%w: provider %s has no %s callbacks", domainErrors.ErrUnsupportedTradeType, providerName, kind)
	}
	cfg, err := s.repos.Merchants().GetConfig(ctx, order.MerchantCode, order.TradeType)
	if err != nil {
		return err
	}

	notification, err := parser.Parse(ctx, cfg, order, req)
	if err != nil {
		if errors.Is(err, domainErrors.ErrSignatureInvalid) || errors.Is(err, domainErrors.ErrDecryptFailed) {
			s.recordFailure(ctx, providerName, orderCode, req, err)
		}
		return err
	}

	outcome, err := s.mapper.Map(providerName, notification)
	if err != nil {
		return err
	}
	return s.ApplyOutcome(ctx, orderCode, outcome)
}

// recordFailure preserves a callback that failed authentication for
// tampering investigation. Best effort: a storage error is logged, it
// never masks the authentication failure.
func (s *CallbackService) recordFailure(ctx context.Context, providerName, orderCode string, req provider.CallbackRequest, cause error) {
	signature := req.Headers[provider.HeaderSignature]
	if signature == "" {
		signature = req.Params["sign"]
	}
	record := &model.FailureRecord{
		OrderCode:     orderCode,
		Provider:      providerName,
		Body:          string(req.Body),
		Signature:     signature,
		SignatureType: req.Headers[provider.HeaderSignatureType],
		Nonce:         req.Headers[provider.HeaderNonce],
		Serial:        req.Headers[provider.HeaderSerial],
		Reason:        cause.Error(),
		CreatedAt:     s.now(),
	}
	if err := s.repos.Failures().Append(ctx, record); err != nil {
		s.logger.Error("persisting callback failure record",
			slog.String("order", orderCode),
			slog.Any("error", err),
		)
	}
	s.logger.Warn("callback failed authentication",
		slog.String("order", orderCode),
		slog.String("provider", providerName),
		slog.Any("error", cause),
	)
}

// ApplyOutcome applies a canonical outcome to the order. Applying an
// already-applied outcome is a no-op that still succeeds, so provider
// redelivery stops.
func (s *CallbackService) ApplyOutcome(ctx context.Context, orderCode string, outcome *model.Outcome) error {
	if outcome.Kind == model.OutcomeIgnore {
		return nil
	}
	return s.writer.Write(ctx, orderCode, func(order *model.Order) (bool, error) {
		return applyOutcome(order, outcome)
	})
}

func applyOutcome(order *model.Order, outcome *model.Outcome) (bool, error) {
	switch outcome.Kind {
	case model.OutcomeSuccess:
		if order.Status == model.StatusPaid {
			return false, nil
		}
		if !order.Status.InPendingFamily() {
			return false, domainErrors.NewState(order.Code, string(order.Status), "abnormal status")
		}
		order.Status = model.StatusPaid
		order.TransactionID = outcome.TransactionID
		order.PayTime = outcome.PayTime
		order.FinishedTime = outcome.FinishedTime
		return true, nil

	case model.OutcomeFailure:
		if order.Status == model.StatusPayFailed {
			return false, nil
		}
		if order.Status.InPaidFamily() {
			return false, domainErrors.NewState(order.Code, string(order.Status), "already paid")
		}
		if !order.Status.InPendingFamily() {
			return false, domainErrors.NewState(order.Code, string(order.Status), "abnormal status")
		}
		order.Status = model.StatusPayFailed
		order.FailMessage = outcome.FailMessage
		return true, nil

	case model.OutcomeRefundSuccess:
		if order.Status == model.StatusRefundSuccess || order.Status == model.StatusCancelled {
			return false, nil
		}
		if !order.Status.InRefundFamily() && !order.Status.InPaidFamily() {
			return false, domainErrors.NewState(order.Code, string(order.Status), "abnormal status")
		}
		order.Status = model.StatusRefundSuccess
		order.RefundSuccessTime = outcome.RefundSuccessTime
		return true, nil

	case model.OutcomeRefundAbnormal:
		if order.Status == model.StatusRefundAbnormal {
			return false, nil
		}
		if !order.Status.InRefundFamily() && !order.Status.InPaidFamily() {
			return false, domainErrors.NewState(order.Code, string(order.Status), "abnormal status")
		}
		order.Status = model.StatusRefundAbnormal
		return true, nil

	case model.OutcomeRefundClosed:
		if order.Status == model.StatusClosed {
			return false, nil
		}
		if !order.Status.InRefundFamily() && !order.Status.InPaidFamily() {
			return false, domainErrors.NewState(order.Code, string(order.Status), "abnormal status")
		}
		order.Status = model.StatusClosed
		return true, nil
	}
	return false, fmt.Errorf("unknown outcome kind %d", outcome.Kind)
}
