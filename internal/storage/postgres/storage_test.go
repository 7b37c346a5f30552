package postgres

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	pgxmockv3 "github.com/pashagolub/pgxmock/v3"

	domainErrors "paygate/internal/domain/errors"
	"paygate/internal/domain/model"
)

func newMockStorage(t *testing.T) (*Storage, pgxmockv3.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmockv3.NewPool()
	if err != nil {
		t.Fatalf("failed to create mock pool: %v", err)
	}
	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))
	return NewWithDB(mock, logger), mock
}

// anyArgs builds a WithArgs list matching any n arguments; pgxmock
// requires the expected and actual argument counts to agree.
func anyArgs(n int) []any {
	args := make([]any, n)
	for i := range args {
		args[i] = pgxmockv3.AnyArg()
	}
	return args
}

var orderColumnNames = []string{
	"id", "code", "merchant_code", "trade_type", "status",
	"price", "total_price", "coupon_code", "product_name", "attach", "remark",
	"origin", "browser", "browser_system", "transaction_id", "fail_message",
	"pay_time", "finished_time", "refund_code", "refund_reason",
	"refund_create_time", "refund_success_time", "version", "created_at", "updated_at",
}

func orderRow(code string, status model.OrderStatus, version int) *pgxmockv3.Rows {
	now := time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)
	return pgxmockv3.NewRows(orderColumnNames).AddRow(
		int64(1), code, "m-1", "wechat_native", status,
		"19.90", "19.90", "", "widget", "", "",
		"", "", "", "", "",
		(*time.Time)(nil), (*time.Time)(nil), "", "",
		(*time.Time)(nil), (*time.Time)(nil), version, now, now,
	)
}

func TestGetByCode(t *testing.T) {
	storage, mock := newMockStorage(t)
	defer mock.Close()

	mock.ExpectQuery("SELECT (.+) FROM orders WHERE code=").
		WithArgs("P1").
		WillReturnRows(orderRow("P1", model.StatusPending, 0))

	order, err := storage.Orders().GetByCode(context.Background(), "P1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if order.Code != "P1" || order.Status != model.StatusPending {
		t.Errorf("order = %+v", order)
	}
	if order.TotalPrice.String() != "19.9" {
		t.Errorf("total price = %s", order.TotalPrice)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("expectations: %v", err)
	}
}

func TestGetByCodeNotFound(t *testing.T) {
	storage, mock := newMockStorage(t)
	defer mock.Close()

	mock.ExpectQuery("SELECT (.+) FROM orders WHERE code=").
		WithArgs("P404").
		WillReturnRows(pgxmockv3.NewRows(orderColumnNames))

	_, err := storage.Orders().GetByCode(context.Background(), "P404")
	if !errors.Is(err, domainErrors.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestGetByCodeForUpdateLocksRow(t *testing.T) {
	storage, mock := newMockStorage(t)
	defer mock.Close()

	mock.ExpectQuery("SELECT (.+) FROM orders WHERE code=(.+) FOR UPDATE").
		WithArgs("P1").
		WillReturnRows(orderRow("P1", model.StatusPaid, 2))

	order, err := storage.Orders().GetByCodeForUpdate(context.Background(), "P1")
	if err != nil {
		t.Fatalf("get for update: %v", err)
	}
	if order.Version != 2 {
		t.Errorf("version = %d", order.Version)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("expectations: %v", err)
	}
}

func TestInsertDuplicateCode(t *testing.T) {
	storage, mock := newMockStorage(t)
	defer mock.Close()

	mock.ExpectQuery("INSERT INTO orders").
		WithArgs(anyArgs(15)...).
		WillReturnError(&pgconn.PgError{Code: "23505"})

	order := &model.Order{Code: "P1", MerchantCode: "m-1", Status: model.StatusPending}
	if err := storage.Orders().Insert(context.Background(), order); !errors.Is(err, domainErrors.ErrAlreadyExists) {
		t.Fatalf("err = %v, want ErrAlreadyExists", err)
	}
}

func TestUpdateByCodeBumpsVersion(t *testing.T) {
	storage, mock := newMockStorage(t)
	defer mock.Close()

	mock.ExpectExec("UPDATE orders SET").
		WithArgs(anyArgs(12)...).
		WillReturnResult(pgxmockv3.NewResult("UPDATE", 1))

	order := &model.Order{Code: "P1", Status: model.StatusPaid, Version: 3}
	if err := storage.Orders().UpdateByCode(context.Background(), order); err != nil {
		t.Fatalf("update: %v", err)
	}
	if order.Version != 4 {
		t.Errorf("version = %d, want 4", order.Version)
	}
}

func TestUpdateByCodeVersionConflict(t *testing.T) {
	storage, mock := newMockStorage(t)
	defer mock.Close()

	mock.ExpectExec("UPDATE orders SET").
		WithArgs(anyArgs(12)...).
		WillReturnResult(pgxmockv3.NewResult("UPDATE", 0))

	order := &model.Order{Code: "P1", Status: model.StatusPaid, Version: 3}
	err := storage.Orders().UpdateByCode(context.Background(), order)
	if !errors.Is(err, domainErrors.ErrWriteConflict) {
		t.Fatalf("err = %v, want ErrWriteConflict", err)
	}
	if order.Version != 3 {
		t.Errorf("version bumped on conflict")
	}
}

func TestUpdateByCodeSerializationFailure(t *testing.T) {
	storage, mock := newMockStorage(t)
	defer mock.Close()

	mock.ExpectExec("UPDATE orders SET").
		WithArgs(anyArgs(12)...).
		WillReturnError(&pgconn.PgError{Code: "40001"})

	order := &model.Order{Code: "P1", Status: model.StatusPaid}
	if err := storage.Orders().UpdateByCode(context.Background(), order); !errors.Is(err, domainErrors.ErrWriteConflict) {
		t.Fatalf("err = %v, want ErrWriteConflict", err)
	}
}

func TestGetConfigParsesSettings(t *testing.T) {
	storage, mock := newMockStorage(t)
	defer mock.Close()

	mock.ExpectQuery("SELECT settings FROM merchant_configs").
		WithArgs("m-1", "wechat_native").
		WillReturnRows(pgxmockv3.NewRows([]string{"settings"}).
			AddRow([]byte(`{"mch_id":"1230000109","gateway_url":"https://api.example.com"}`)))

	cfg, err := storage.Merchants().GetConfig(context.Background(), "m-1", "wechat_native")
	if err != nil {
		t.Fatalf("get config: %v", err)
	}
	if cfg.Setting("mch_id") != "1230000109" {
		t.Errorf("settings = %v", cfg.Settings)
	}
}

func TestGetConfigNotFound(t *testing.T) {
	storage, mock := newMockStorage(t)
	defer mock.Close()

	mock.ExpectQuery("SELECT settings FROM merchant_configs").
		WithArgs("m-1", "carrier_pigeon").
		WillReturnRows(pgxmockv3.NewRows([]string{"settings"}))

	_, err := storage.Merchants().GetConfig(context.Background(), "m-1", "carrier_pigeon")
	if !errors.Is(err, domainErrors.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestGetMerchantByCode(t *testing.T) {
	storage, mock := newMockStorage(t)
	defer mock.Close()

	now := time.Now()
	mock.ExpectQuery("SELECT id, code, name, status, secret_hash, created_at FROM merchants").
		WithArgs("m-1").
		WillReturnRows(pgxmockv3.NewRows([]string{"id", "code", "name", "status", "secret_hash", "created_at"}).
			AddRow(int64(7), "m-1", "Acme", model.MerchantEnabled, "$2a$10$hash", now))

	merchant, err := storage.Merchants().GetByCode(context.Background(), "m-1")
	if err != nil {
		t.Fatalf("get merchant: %v", err)
	}
	if merchant.Name != "Acme" || merchant.Status != model.MerchantEnabled {
		t.Errorf("merchant = %+v", merchant)
	}
}

func TestWithinTransactionCommits(t *testing.T) {
	storage, mock := newMockStorage(t)
	defer mock.Close()

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE orders SET").WithArgs(anyArgs(12)...).WillReturnResult(pgxmockv3.NewResult("UPDATE", 1))
	mock.ExpectCommit()

	err := storage.WithinTransaction(context.Background(), func(ctx context.Context) error {
		order := &model.Order{Code: "P1", Status: model.StatusPaid}
		return storage.Orders().UpdateByCode(ctx, order)
	})
	if err != nil {
		t.Fatalf("transaction: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("expectations: %v", err)
	}
}

func TestWithinTransactionRollsBackOnError(t *testing.T) {
	storage, mock := newMockStorage(t)
	defer mock.Close()

	mock.ExpectBegin()
	mock.ExpectRollback()

	wantErr := errors.New("business rejection")
	err := storage.WithinTransaction(context.Background(), func(ctx context.Context) error {
		return wantErr
	})
	if !errors.Is(err, wantErr) {
		t.Fatalf("err = %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("expectations: %v", err)
	}
}

func TestWithinTransactionNestedReusesTx(t *testing.T) {
	storage, mock := newMockStorage(t)
	defer mock.Close()

	mock.ExpectBegin()
	mock.ExpectCommit()

	err := storage.WithinTransaction(context.Background(), func(ctx context.Context) error {
		return storage.WithinTransaction(ctx, func(ctx context.Context) error {
			return nil
		})
	})
	if err != nil {
		t.Fatalf("nested transaction: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("expectations: %v", err)
	}
}

func TestSelectExpiredPending(t *testing.T) {
	storage, mock := newMockStorage(t)
	defer mock.Close()

	cutoff := time.Date(2026, 9, 1, 11, 30, 0, 0, time.UTC)
	mock.ExpectQuery("SELECT (.+) FROM orders(.+)FOR UPDATE SKIP LOCKED").
		WithArgs(cutoff, 10).
		WillReturnRows(orderRow("P1", model.StatusPending, 0))

	orders, err := storage.Orders().SelectExpiredPending(context.Background(), cutoff, 10)
	if err != nil {
		t.Fatalf("select expired: %v", err)
	}
	if len(orders) != 1 || orders[0].Code != "P1" {
		t.Errorf("orders = %+v", orders)
	}
}

func TestAppendWater(t *testing.T) {
	storage, mock := newMockStorage(t)
	defer mock.Close()

	mock.ExpectQuery("INSERT INTO order_waters").
		WithArgs(anyArgs(4)...).
		WillReturnRows(pgxmockv3.NewRows([]string{"id"}).AddRow(int64(11)))

	water := &model.OrderWater{WaterCode: "W1", OrderCode: "P1", Status: model.StatusPaid, CreatedAt: time.Now()}
	if err := storage.Waters().Append(context.Background(), water); err != nil {
		t.Fatalf("append: %v", err)
	}
	if water.ID != 11 {
		t.Errorf("id = %d", water.ID)
	}
}

func TestAppendFailureRecord(t *testing.T) {
	storage, mock := newMockStorage(t)
	defer mock.Close()

	mock.ExpectQuery("INSERT INTO failure_records").
		WithArgs(anyArgs(9)...).
		WillReturnRows(pgxmockv3.NewRows([]string{"id"}).AddRow(int64(3)))

	record := &model.FailureRecord{OrderCode: "P1", Provider: "wechat", Reason: "bad signature", CreatedAt: time.Now()}
	if err := storage.Failures().Append(context.Background(), record); err != nil {
		t.Fatalf("append: %v", err)
	}
	if record.ID != 3 {
		t.Errorf("id = %d", record.ID)
	}
}
