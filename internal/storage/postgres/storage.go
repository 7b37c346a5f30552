package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	domainErrors "paygate/internal/domain/errors"
	"paygate/internal/domain/model"
	"paygate/internal/domain/repository"
)

// DB is the subset of pgxpool.Pool the storage uses; pgxmock satisfies
// it in tests.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	BeginTx(ctx context.Context, txOptions pgx.TxOptions) (pgx.Tx, error)
	Ping(ctx context.Context) error
	Close()
}

type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Storage acts as repository facade backed by PostgreSQL.
type Storage struct {
	db     DB
	logger *slog.Logger
}

type orderRepository struct {
	storage *Storage
}

type merchantRepository struct {
	storage *Storage
}

type waterRepository struct {
	storage *Storage
}

type failureRepository struct {
	storage *Storage
}

// New creates storage with schema initialization.
func New(ctx context.Context, dsn string, logger *slog.Logger) (*Storage, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse dsn: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connect db: %w", err)
	}

	storage := &Storage{db: pool, logger: logger}
	if err := storage.initSchema(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	return storage, nil
}

// NewWithDB wraps an existing connection, used by tests.
func NewWithDB(db DB, logger *slog.Logger) *Storage {
	return &Storage{db: db, logger: logger}
}

// Close releases database resources.
func (s *Storage) Close() {
	if s.db != nil {
		s.db.Close()
	}
}

// Factory methods for domain repositories.
func (s *Storage) Orders() repository.OrderRepository {
	return &orderRepository{storage: s}
}

func (s *Storage) Merchants() repository.MerchantRepository {
	return &merchantRepository{storage: s}
}

func (s *Storage) Waters() repository.WaterRepository {
	return &waterRepository{storage: s}
}

func (s *Storage) Failures() repository.FailureRepository {
	return &failureRepository{storage: s}
}

func (s *Storage) initSchema(ctx context.Context) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS merchants (
            id SERIAL PRIMARY KEY,
            code TEXT UNIQUE NOT NULL,
            name TEXT NOT NULL,
            status TEXT NOT NULL,
            secret_hash TEXT NOT NULL,
            created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
        )`,
		`CREATE TABLE IF NOT EXISTS merchant_configs (
            id SERIAL PRIMARY KEY,
            merchant_code TEXT NOT NULL REFERENCES merchants(code),
            trade_type TEXT NOT NULL,
            settings JSONB NOT NULL,
            UNIQUE (merchant_code, trade_type)
        )`,
		`CREATE TABLE IF NOT EXISTS orders (
            id SERIAL PRIMARY KEY,
            code TEXT UNIQUE NOT NULL,
            merchant_code TEXT NOT NULL REFERENCES merchants(code),
            trade_type TEXT NOT NULL,
            status TEXT NOT NULL,
            price NUMERIC(20,2) NOT NULL DEFAULT 0,
            total_price NUMERIC(20,2) NOT NULL DEFAULT 0,
            coupon_code TEXT NOT NULL DEFAULT '',
            product_name TEXT NOT NULL DEFAULT '',
            attach TEXT NOT NULL DEFAULT '',
            remark TEXT NOT NULL DEFAULT '',
            origin TEXT NOT NULL DEFAULT '',
            browser TEXT NOT NULL DEFAULT '',
            browser_system TEXT NOT NULL DEFAULT '',
            transaction_id TEXT NOT NULL DEFAULT '',
            fail_message TEXT NOT NULL DEFAULT '',
            pay_time TIMESTAMPTZ,
            finished_time TIMESTAMPTZ,
            refund_code TEXT NOT NULL DEFAULT '',
            refund_reason TEXT NOT NULL DEFAULT '',
            refund_create_time TIMESTAMPTZ,
            refund_success_time TIMESTAMPTZ,
            version INT NOT NULL DEFAULT 0,
            created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
            updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
        )`,
		`CREATE TABLE IF NOT EXISTS order_waters (
            id SERIAL PRIMARY KEY,
            water_code TEXT UNIQUE NOT NULL,
            order_code TEXT NOT NULL,
            status TEXT NOT NULL,
            created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
        )`,
		`CREATE TABLE IF NOT EXISTS failure_records (
            id SERIAL PRIMARY KEY,
            order_code TEXT NOT NULL,
            provider TEXT NOT NULL,
            body TEXT NOT NULL DEFAULT '',
            signature TEXT NOT NULL DEFAULT '',
            signature_type TEXT NOT NULL DEFAULT '',
            nonce TEXT NOT NULL DEFAULT '',
            serial TEXT NOT NULL DEFAULT '',
            reason TEXT NOT NULL DEFAULT '',
            created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
        )`,
		`CREATE INDEX IF NOT EXISTS idx_orders_merchant ON orders(merchant_code, created_at DESC)`,
		`CREATE INDEX IF NOT EXISTS idx_orders_status ON orders(status, created_at)`,
		`CREATE INDEX IF NOT EXISTS idx_waters_order ON order_waters(order_code, created_at)`,
	}

	for _, stmt := range statements {
		if _, err := s.db.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("init schema: %w", err)
		}
	}

	return nil
}

type txKey struct{}

// WithinTransaction executes fn inside a transaction boundary. Nested
// calls reuse the already-open transaction from the context.
func (s *Storage) WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) (err error) {
	if txFrom(ctx) != nil {
		return fn(ctx)
	}

	tx, err := s.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		} else {
			err = mapError(tx.Commit(ctx))
		}
	}()

	err = fn(context.WithValue(ctx, txKey{}, tx))
	return err
}

func txFrom(ctx context.Context) pgx.Tx {
	tx, _ := ctx.Value(txKey{}).(pgx.Tx)
	return tx
}

func (s *Storage) querier(ctx context.Context) querier {
	if tx := txFrom(ctx); tx != nil {
		return tx
	}
	return s.db
}

func mapError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return domainErrors.ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505":
			return fmt.Errorf("%w: %v", domainErrors.ErrAlreadyExists, err)
		case "40001", "40P01":
			return fmt.Errorf("%w: %v", domainErrors.ErrWriteConflict, err)
		}
	}
	return err
}

// HealthCheck verifies database connectivity.
func (s *Storage) HealthCheck(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	return s.db.Ping(ctx)
}

// --- OrderRepository implementation ---

const orderColumns = `id, code, merchant_code, trade_type, status,
        price::text, total_price::text, coupon_code, product_name, attach, remark,
        origin, browser, browser_system, transaction_id, fail_message,
        pay_time, finished_time, refund_code, refund_reason,
        refund_create_time, refund_success_time, version, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanOrder(row rowScanner) (*model.Order, error) {
	var (
		o          model.Order
		price      string
		totalPrice string
	)
	err := row.Scan(&o.ID, &o.Code, &o.MerchantCode, &o.TradeType, &o.Status,
		&price, &totalPrice, &o.CouponCode, &o.ProductName, &o.Attach, &o.Remark,
		&o.Origin, &o.Browser, &o.BrowserSystem, &o.TransactionID, &o.FailMessage,
		&o.PayTime, &o.FinishedTime, &o.RefundCode, &o.RefundReason,
		&o.RefundCreateTime, &o.RefundSuccessTime, &o.Version, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		return nil, mapError(err)
	}
	if o.Price, err = decimal.NewFromString(price); err != nil {
		return nil, fmt.Errorf("parse price: %w", err)
	}
	if o.TotalPrice, err = decimal.NewFromString(totalPrice); err != nil {
		return nil, fmt.Errorf("parse total price: %w", err)
	}
	return &o, nil
}

func (r *orderRepository) GetByCode(ctx context.Context, code string) (*model.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE code=$1`
	return scanOrder(r.storage.querier(ctx).QueryRow(ctx, query, code))
}

func (r *orderRepository) GetByCodeForUpdate(ctx context.Context, code string) (*model.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE code=$1 FOR UPDATE`
	return scanOrder(r.storage.querier(ctx).QueryRow(ctx, query, code))
}

func (r *orderRepository) Insert(ctx context.Context, order *model.Order) error {
	const query = `INSERT INTO orders (
            code, merchant_code, trade_type, status, price, total_price,
            coupon_code, product_name, attach, remark, origin, browser,
            browser_system, created_at, updated_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15)
        RETURNING id`
	err := r.storage.querier(ctx).QueryRow(ctx, query,
		order.Code, order.MerchantCode, order.TradeType, order.Status,
		order.Price.String(), order.TotalPrice.String(),
		order.CouponCode, order.ProductName, order.Attach, order.Remark,
		order.Origin, order.Browser, order.BrowserSystem,
		order.CreatedAt, order.UpdatedAt,
	).Scan(&order.ID)
	return mapError(err)
}

// UpdateByCode writes the mutable order fields with an optimistic
// version check; a concurrent writer shows up as zero affected rows.
func (r *orderRepository) UpdateByCode(ctx context.Context, order *model.Order) error {
	const query = `UPDATE orders SET
            status=$1, transaction_id=$2, fail_message=$3,
            pay_time=$4, finished_time=$5,
            refund_code=$6, refund_reason=$7,
            refund_create_time=$8, refund_success_time=$9,
            version=version+1, updated_at=$10
        WHERE code=$11 AND version=$12`
	tag, err := r.storage.querier(ctx).Exec(ctx, query,
		order.Status, order.TransactionID, order.FailMessage,
		order.PayTime, order.FinishedTime,
		order.RefundCode, order.RefundReason,
		order.RefundCreateTime, order.RefundSuccessTime,
		order.UpdatedAt, order.Code, order.Version,
	)
	if err != nil {
		return mapError(err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: order %s version %d", domainErrors.ErrWriteConflict, order.Code, order.Version)
	}
	order.Version++
	return nil
}

func (r *orderRepository) SelectExpiredPending(ctx context.Context, olderThan time.Time, limit int) ([]model.Order, error) {
	query := `SELECT ` + orderColumns + `
        FROM orders
        WHERE status LIKE '1%' AND created_at < $1
        ORDER BY created_at
        LIMIT $2
        FOR UPDATE SKIP LOCKED`
	rows, err := r.storage.querier(ctx).Query(ctx, query, olderThan, limit)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	var result []model.Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *o)
	}
	if err := rows.Err(); err != nil {
		return nil, mapError(err)
	}
	return result, nil
}

// --- MerchantRepository implementation ---

func (r *merchantRepository) GetByCode(ctx context.Context, code string) (*model.Merchant, error) {
	const query = `SELECT id, code, name, status, secret_hash, created_at FROM merchants WHERE code=$1`
	var m model.Merchant
	err := r.storage.querier(ctx).QueryRow(ctx, query, code).Scan(
		&m.ID, &m.Code, &m.Name, &m.Status, &m.SecretHash, &m.CreatedAt)
	if err != nil {
		return nil, mapError(err)
	}
	return &m, nil
}

func (r *merchantRepository) GetConfig(ctx context.Context, merchantCode, tradeType string) (*model.ProviderConfig, error) {
	const query = `SELECT settings FROM merchant_configs WHERE merchant_code=$1 AND trade_type=$2`
	var raw []byte
	err := r.storage.querier(ctx).QueryRow(ctx, query, merchantCode, tradeType).Scan(&raw)
	if err != nil {
		return nil, mapError(err)
	}
	cfg := &model.ProviderConfig{
		MerchantCode: merchantCode,
		TradeType:    tradeType,
		Settings:     map[string]string{},
	}
	if err := json.Unmarshal(raw, &cfg.Settings); err != nil {
		return nil, fmt.Errorf("parse settings: %w", err)
	}
	return cfg, nil
}

// --- WaterRepository implementation ---

func (r *waterRepository) Append(ctx context.Context, water *model.OrderWater) error {
	const query = `INSERT INTO order_waters (water_code, order_code, status, created_at)
        VALUES ($1, $2, $3, $4) RETURNING id`
	err := r.storage.querier(ctx).QueryRow(ctx, query,
		water.WaterCode, water.OrderCode, water.Status, water.CreatedAt,
	).Scan(&water.ID)
	return mapError(err)
}

func (r *waterRepository) ListByOrder(ctx context.Context, orderCode string) ([]model.OrderWater, error) {
	const query = `SELECT id, water_code, order_code, status, created_at
        FROM order_waters WHERE order_code=$1 ORDER BY created_at, id`
	rows, err := r.storage.querier(ctx).Query(ctx, query, orderCode)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	var result []model.OrderWater
	for rows.Next() {
		var w model.OrderWater
		if err := rows.Scan(&w.ID, &w.WaterCode, &w.OrderCode, &w.Status, &w.CreatedAt); err != nil {
			return nil, err
		}
		result = append(result, w)
	}
	if err := rows.Err(); err != nil {
		return nil, mapError(err)
	}
	return result, nil
}

// --- FailureRepository implementation ---

func (r *failureRepository) Append(ctx context.Context, record *model.FailureRecord) error {
	const query = `INSERT INTO failure_records (
            order_code, provider, body, signature, signature_type,
            nonce, serial, reason, created_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9) RETURNING id`
	err := r.storage.querier(ctx).QueryRow(ctx, query,
		record.OrderCode, record.Provider, record.Body, record.Signature,
		record.SignatureType, record.Nonce, record.Serial, record.Reason,
		record.CreatedAt,
	).Scan(&record.ID)
	return mapError(err)
}
