package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	domainErrors "github.com/polkiloo/growthmart/internal/domain/errors"
	"github.com/polkiloo/growthmart/internal/domain/model"
	"github.com/polkiloo/growthmart/internal/domain/repository"
)

type pgxPool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	BeginTx(ctx context.Context, opts pgx.TxOptions) (pgx.Tx, error)
	Ping(ctx context.Context) error
	Close()
}

var newPgxPool = func(ctx context.Context, cfg *pgxpool.Config) (pgxPool, error) {
	return pgxpool.NewWithConfig(ctx, cfg)
}

const (
	codeUniqueViolation = "23505"
	codeCheckViolation  = "23514"
)

// Storage acts as repository facade backed by PostgreSQL.
type Storage struct {
	pool   pgxPool
	logger *slog.Logger
}

type orderRepository struct {
	storage *Storage
}

// New creates storage with schema initialization.
func New(ctx context.Context, dsn string, logger *slog.Logger) (*Storage, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse dsn: %w", err)
	}

	pool, err := newPgxPool(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connect db: %w", err)
	}

	storage := &Storage{pool: pool, logger: logger}
	if err := storage.initSchema(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	return storage, nil
}

// Close releases database resources.
func (s *Storage) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

func (s *Storage) Orders() repository.OrderRepository {
	return &orderRepository{storage: s}
}

func (s *Storage) initSchema(ctx context.Context) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS orders (
            id TEXT PRIMARY KEY,
            user_id TEXT NOT NULL,
            service_id TEXT NOT NULL,
            target_url TEXT NOT NULL,
            quantity INTEGER NOT NULL CHECK (quantity > 0),
            price_per_unit NUMERIC(14,4) NOT NULL DEFAULT 0,
            base_amount NUMERIC(14,2) NOT NULL DEFAULT 0,
            discount_amount NUMERIC(14,2) NOT NULL DEFAULT 0,
            charge NUMERIC(14,2) NOT NULL CHECK (charge >= 0),
            final_price NUMERIC(14,2) NOT NULL,
            status TEXT NOT NULL,
            api_order_id TEXT,
            api_error TEXT,
            progress INTEGER NOT NULL DEFAULT 0 CHECK (progress BETWEEN 0 AND 100),
            attempts INTEGER NOT NULL DEFAULT 0,
            claim_token TEXT,
            claimed_at TIMESTAMPTZ,
            processed_at TIMESTAMPTZ,
            created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
            updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
        )`,
		`CREATE INDEX IF NOT EXISTS idx_orders_status_created ON orders(status, created_at)`,
		`CREATE INDEX IF NOT EXISTS idx_orders_user ON orders(user_id, created_at DESC)`,
	}

	for _, stmt := range statements {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("init schema: %w", err)
		}
	}

	s.logger.Debug("postgres schema ready")
	return nil
}

// Numeric columns are read as text so that decimal values keep their exact scale.
const orderColumns = `id, user_id, service_id, target_url, quantity,
    price_per_unit::text, base_amount::text, discount_amount::text, charge::text, final_price::text,
    status, api_order_id, api_error, progress, attempts, COALESCE(claim_token, ''),
    claimed_at, processed_at, created_at, updated_at`

func scanOrder(row pgx.Row) (*model.Order, error) {
	var (
		o                                  model.Order
		price, base, discount, charge, fin string
	)
	err := row.Scan(&o.ID, &o.UserID, &o.ServiceID, &o.TargetURL, &o.Quantity,
		&price, &base, &discount, &charge, &fin,
		&o.Status, &o.APIOrderID, &o.APIError, &o.Progress, &o.Attempts, &o.ClaimToken,
		&o.ClaimedAt, &o.ProcessedAt, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		return nil, err
	}

	amounts := []struct {
		raw string
		dst *decimal.Decimal
	}{
		{price, &o.PricePerUnit},
		{base, &o.BaseAmount},
		{discount, &o.DiscountAmount},
		{charge, &o.Charge},
		{fin, &o.FinalPrice},
	}
	for _, a := range amounts {
		if *a.dst, err = decimal.NewFromString(a.raw); err != nil {
			return nil, fmt.Errorf("decode amount %q: %w", a.raw, err)
		}
	}
	return &o, nil
}

func mapError(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return domainErrors.ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case codeCheckViolation, codeUniqueViolation:
			return fmt.Errorf("%w: %s", domainErrors.ErrInvalidOrder, pgErr.ConstraintName)
		}
	}
	return err
}

// --- OrderRepository implementation ---

func (r *orderRepository) Create(ctx context.Context, order *model.Order) (*model.Order, error) {
	query := `INSERT INTO orders (id, user_id, service_id, target_url, quantity,
                   price_per_unit, base_amount, discount_amount, charge, final_price,
                   status, progress, created_at, updated_at)
                   VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
                   RETURNING ` + orderColumns
	created, err := scanOrder(r.storage.pool.QueryRow(ctx, query,
		order.ID, order.UserID, order.ServiceID, order.TargetURL, order.Quantity,
		order.PricePerUnit.String(), order.BaseAmount.String(), order.DiscountAmount.String(),
		order.Charge.String(), order.FinalPrice.String(),
		order.Status, order.Progress, order.CreatedAt, order.UpdatedAt))
	if err != nil {
		return nil, mapError(err)
	}
	return created, nil
}

func (r *orderRepository) Get(ctx context.Context, id string) (*model.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE id=$1`
	order, err := scanOrder(r.storage.pool.QueryRow(ctx, query, id))
	if err != nil {
		return nil, mapError(err)
	}
	return order, nil
}

// likeEscaper makes search text match literally inside an ILIKE pattern.
var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func buildFilter(filter model.OrderFilter) (string, []any) {
	var (
		conds []string
		args  []any
	)
	if filter.Status != "" {
		args = append(args, filter.Status)
		conds = append(conds, fmt.Sprintf("status = $%d", len(args)))
	}
	if filter.UserID != "" {
		args = append(args, filter.UserID)
		conds = append(conds, fmt.Sprintf("user_id = $%d", len(args)))
	}
	if filter.Search != "" {
		args = append(args, "%"+likeEscaper.Replace(filter.Search)+"%")
		conds = append(conds, fmt.Sprintf(`(id ILIKE $%d ESCAPE '\' OR target_url ILIKE $%d ESCAPE '\')`, len(args), len(args)))
	}
	if len(conds) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

func (r *orderRepository) List(ctx context.Context, filter model.OrderFilter) ([]model.Order, int, error) {
	where, args := buildFilter(filter)

	var (
		total  int
		result []model.Order
	)
	err := r.storage.WithinTransaction(ctx, func(tx pgx.Tx) error {
		if err := tx.QueryRow(ctx, `SELECT COUNT(*) FROM orders`+where, args...).Scan(&total); err != nil {
			return err
		}

		query := `SELECT ` + orderColumns + ` FROM orders` + where + ` ORDER BY created_at DESC`
		pageArgs := args
		if filter.Limit > 0 {
			pageArgs = append(pageArgs, filter.Limit, filter.Offset())
			query += fmt.Sprintf(" LIMIT $%d OFFSET $%d", len(pageArgs)-1, len(pageArgs))
		}
		rows, err := tx.Query(ctx, query, pageArgs...)
		if err != nil {
			return err
		}
		defer rows.Close()

		result, err = collectOrders(rows)
		return err
	})
	if err != nil {
		return nil, 0, err
	}
	return result, total, nil
}

func collectOrders(rows pgx.Rows) ([]model.Order, error) {
	result := []model.Order{}
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *o)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (r *orderRepository) ListStalePending(ctx context.Context, olderThan time.Time, limit int) ([]model.Order, error) {
	query := `SELECT ` + orderColumns + `
                   FROM orders
                   WHERE status = $1 AND created_at < $2
                   ORDER BY created_at ASC
                   LIMIT $3`
	rows, err := r.storage.pool.Query(ctx, query, model.OrderStatusPending, olderThan, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectOrders(rows)
}

func (r *orderRepository) Claim(ctx context.Context, id, token string, now, staleBefore time.Time) (*model.Order, error) {
	query := `UPDATE orders
                   SET claim_token = $2, claimed_at = $3, attempts = attempts + 1, updated_at = $3
                   WHERE id = $1 AND status = $4 AND (claimed_at IS NULL OR claimed_at < $5)
                   RETURNING ` + orderColumns
	order, err := scanOrder(r.storage.pool.QueryRow(ctx, query, id, token, now, model.OrderStatusPending, staleBefore))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, r.missingOrConflict(ctx, id)
		}
		return nil, err
	}
	return order, nil
}

func (r *orderRepository) UpdateConditional(ctx context.Context, id string, expected model.OrderStatus, token string, update model.OrderUpdate) (*model.Order, error) {
	query := `UPDATE orders
                   SET status = $4,
                       api_order_id = COALESCE($5, api_order_id),
                       api_error = $6,
                       progress = COALESCE($7, progress),
                       processed_at = COALESCE($8, processed_at),
                       claim_token = NULL,
                       claimed_at = NULL,
                       updated_at = NOW()
                   WHERE id = $1 AND status = $2 AND ($3::text = '' OR claim_token = $3)
                   RETURNING ` + orderColumns
	order, err := scanOrder(r.storage.pool.QueryRow(ctx, query,
		id, expected, token, update.Status, update.APIOrderID, update.APIError, update.Progress, update.ProcessedAt))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, r.missingOrConflict(ctx, id)
		}
		return nil, mapError(err)
	}
	return order, nil
}

// missingOrConflict explains a guarded update that matched no row.
func (r *orderRepository) missingOrConflict(ctx context.Context, id string) error {
	var exists bool
	if err := r.storage.pool.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM orders WHERE id=$1)`, id).Scan(&exists); err != nil {
		return err
	}
	if !exists {
		return domainErrors.ErrNotFound
	}
	return domainErrors.ErrStatusConflict
}

// WithinTransaction executes function inside transaction boundary.
func (s *Storage) WithinTransaction(ctx context.Context, fn func(pgx.Tx) error) (err error) {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		} else {
			err = tx.Commit(ctx)
		}
	}()

	err = fn(tx)
	return err
}

// HealthCheck verifies database connectivity.
func (s *Storage) HealthCheck(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	return s.pool.Ping(ctx)
}
