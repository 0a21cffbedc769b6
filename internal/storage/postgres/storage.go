package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	pgxdecimal "github.com/jackc/pgx-shopspring-decimal"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	domainErrors "github.com/polkiloo/marketpay/internal/domain/errors"
	"github.com/polkiloo/marketpay/internal/domain/model"
	"github.com/polkiloo/marketpay/internal/domain/repository"
)

// DBPool is the subset of pgxpool.Pool the storage depends on. Tests
// substitute a pgxmock pool.
type DBPool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	BeginTx(ctx context.Context, txOptions pgx.TxOptions) (pgx.Tx, error)
	Ping(ctx context.Context) error
	Close()
}

// Storage acts as repository facade backed by PostgreSQL.
type Storage struct {
	pool   DBPool
	logger *slog.Logger
}

type orderRepository struct {
	storage *Storage
}

type paymentRepository struct {
	storage *Storage
}

type purchaseOrderRepository struct {
	storage *Storage
}

type supplierRepository struct {
	storage *Storage
}

type activityRepository struct {
	storage *Storage
}

// New creates storage with schema initialization. NUMERIC columns are read
// and written as shopspring decimals via the registered pgx codec.
func New(ctx context.Context, dsn string, logger *slog.Logger) (*Storage, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse dsn: %w", err)
	}
	cfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		pgxdecimal.Register(conn.TypeMap())
		return nil
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
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

// Factory methods for domain repositories.
func (s *Storage) Orders() repository.OrderRepository {
	return &orderRepository{storage: s}
}

func (s *Storage) Payments() repository.PaymentRepository {
	return &paymentRepository{storage: s}
}

func (s *Storage) PurchaseOrders() repository.PurchaseOrderRepository {
	return &purchaseOrderRepository{storage: s}
}

func (s *Storage) Suppliers() repository.SupplierRepository {
	return &supplierRepository{storage: s}
}

func (s *Storage) Activities() repository.ActivityRepository {
	return &activityRepository{storage: s}
}

func (s *Storage) initSchema(ctx context.Context) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS users (
            id SERIAL PRIMARY KEY,
            name TEXT NOT NULL DEFAULT '',
            created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
        )`,
		`CREATE TABLE IF NOT EXISTS suppliers (
            id SERIAL PRIMARY KEY,
            name TEXT NOT NULL,
            kind TEXT NOT NULL,
            payout_percent INT NOT NULL DEFAULT 70,
            destination TEXT NOT NULL DEFAULT '',
            created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
        )`,
		`CREATE TABLE IF NOT EXISTS orders (
            id SERIAL PRIMARY KEY,
            user_id BIGINT NOT NULL,
            subtotal NUMERIC(20,2) NOT NULL,
            tax NUMERIC(20,2) NOT NULL DEFAULT 0,
            shipping NUMERIC(20,2) NOT NULL DEFAULT 0,
            service_fee NUMERIC(20,2) NOT NULL DEFAULT 0,
            total NUMERIC(20,2) NOT NULL,
            status TEXT NOT NULL,
            dispatch_status TEXT NOT NULL DEFAULT 'NONE',
            dispatch_attempts INT NOT NULL DEFAULT 0,
            created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
            updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
        )`,
		`CREATE TABLE IF NOT EXISTS order_items (
            id SERIAL PRIMARY KEY,
            order_id BIGINT NOT NULL REFERENCES orders(id),
            supplier_id BIGINT NOT NULL,
            product_ref TEXT NOT NULL,
            quantity INT NOT NULL,
            unit_price NUMERIC(20,2) NOT NULL,
            supplier_cost NUMERIC(20,2),
            commission_pct INT NOT NULL DEFAULT 30
        )`,
		`CREATE TABLE IF NOT EXISTS payments (
            id SERIAL PRIMARY KEY,
            order_id BIGINT NOT NULL REFERENCES orders(id),
            user_id BIGINT NOT NULL,
            reference TEXT UNIQUE NOT NULL,
            channel TEXT NOT NULL,
            provider TEXT NOT NULL DEFAULT '',
            amount NUMERIC(20,2) NOT NULL,
            fee NUMERIC(20,2) NOT NULL DEFAULT 0,
            refunded NUMERIC(20,2) NOT NULL DEFAULT 0,
            status TEXT NOT NULL,
            redirect_url TEXT NOT NULL DEFAULT '',
            provider_ref TEXT NOT NULL DEFAULT '',
            provider_raw JSONB,
            paid_at TIMESTAMPTZ,
            created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
            updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
        )`,
		`CREATE TABLE IF NOT EXISTS payment_events (
            id SERIAL PRIMARY KEY,
            payment_id BIGINT NOT NULL REFERENCES payments(id),
            type TEXT NOT NULL,
            payload JSONB,
            created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
        )`,
		`CREATE TABLE IF NOT EXISTS order_activities (
            id SERIAL PRIMARY KEY,
            order_id BIGINT NOT NULL REFERENCES orders(id),
            type TEXT NOT NULL,
            message TEXT NOT NULL,
            meta JSONB,
            created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
        )`,
		`CREATE TABLE IF NOT EXISTS purchase_orders (
            id SERIAL PRIMARY KEY,
            order_id BIGINT NOT NULL REFERENCES orders(id),
            supplier_id BIGINT NOT NULL REFERENCES suppliers(id),
            subtotal NUMERIC(20,2) NOT NULL,
            platform_fee NUMERIC(20,2) NOT NULL,
            supplier_amount NUMERIC(20,2) NOT NULL,
            payout_percent INT NOT NULL,
            status TEXT NOT NULL,
            created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
            updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
            UNIQUE (order_id, supplier_id)
        )`,
		`CREATE TABLE IF NOT EXISTS purchase_order_items (
            id SERIAL PRIMARY KEY,
            purchase_order_id BIGINT NOT NULL REFERENCES purchase_orders(id),
            order_item_id BIGINT NOT NULL REFERENCES order_items(id),
            external_ref TEXT NOT NULL DEFAULT '',
            step_status TEXT NOT NULL DEFAULT 'PENDING',
            receipt_url TEXT NOT NULL DEFAULT '',
            updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
        )`,
		`CREATE INDEX IF NOT EXISTS idx_payments_order ON payments(order_id, created_at DESC)`,
		`CREATE INDEX IF NOT EXISTS idx_payments_paid_at ON payments(paid_at) WHERE paid_at IS NOT NULL`,
		`CREATE INDEX IF NOT EXISTS idx_orders_dispatch ON orders(dispatch_status, updated_at) WHERE dispatch_status = 'PENDING'`,
		`CREATE INDEX IF NOT EXISTS idx_payment_events_payment ON payment_events(payment_id, created_at)`,
		`CREATE INDEX IF NOT EXISTS idx_order_activities_order ON order_activities(order_id, created_at)`,
	}

	for _, stmt := range statements {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("init schema: %w", err)
		}
	}

	return nil
}

// --- OrderRepository implementation ---

const orderColumns = `id, user_id, subtotal, tax, shipping, service_fee, total, status, created_at, updated_at`

func scanOrder(row pgx.Row, o *model.Order) error {
	return row.Scan(&o.ID, &o.UserID, &o.Subtotal, &o.Tax, &o.Shipping, &o.ServiceFee, &o.Total, &o.Status, &o.CreatedAt, &o.UpdatedAt)
}

// rowQuerier lets item loading run on the pool or inside a transaction.
type rowQuerier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

func (r *orderRepository) Create(ctx context.Context, order *model.Order) (*model.Order, error) {
	err := r.storage.WithinTransaction(ctx, func(tx pgx.Tx) error {
		const insertOrder = `INSERT INTO orders (user_id, subtotal, tax, shipping, service_fee, total, status)
                             VALUES ($1, $2, $3, $4, $5, $6, $7)
                             RETURNING id, created_at, updated_at`
		order.Status = model.OrderStatusPending
		if err := tx.QueryRow(ctx, insertOrder,
			order.UserID, order.Subtotal, order.Tax, order.Shipping, order.ServiceFee, order.Total, order.Status,
		).Scan(&order.ID, &order.CreatedAt, &order.UpdatedAt); err != nil {
			return err
		}

		const insertItem = `INSERT INTO order_items (order_id, supplier_id, product_ref, quantity, unit_price, supplier_cost, commission_pct)
                            VALUES ($1, $2, $3, $4, $5, $6, $7)
                            RETURNING id`
		for i := range order.Items {
			item := &order.Items[i]
			item.OrderID = order.ID
			if err := tx.QueryRow(ctx, insertItem,
				order.ID, item.SupplierID, item.ProductRef, item.Quantity, item.UnitPrice, item.SupplierCost, item.CommissionPct,
			).Scan(&item.ID); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return order, nil
}

func (r *orderRepository) GetByID(ctx context.Context, id int64) (*model.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE id=$1`
	var order model.Order
	if err := scanOrder(r.storage.pool.QueryRow(ctx, query, id), &order); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domainErrors.ErrNotFound
		}
		return nil, err
	}
	if err := r.attachItems(ctx, r.storage.pool, []*model.Order{&order}); err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *orderRepository) ListByUser(ctx context.Context, userID int64) ([]model.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE user_id=$1 ORDER BY created_at DESC`
	return r.listWithItems(ctx, query, userID)
}

func (r *orderRepository) ListCreatedBetween(ctx context.Context, from, to time.Time) ([]model.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE created_at >= $1 AND created_at < $2 ORDER BY created_at`
	return r.listWithItems(ctx, query, from, to)
}

func (r *orderRepository) ListByIDs(ctx context.Context, ids []int64) ([]model.Order, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	query := `SELECT ` + orderColumns + ` FROM orders WHERE id = ANY($1) ORDER BY id`
	return r.listWithItems(ctx, query, ids)
}

func (r *orderRepository) listWithItems(ctx context.Context, query string, args ...any) ([]model.Order, error) {
	rows, err := r.storage.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []model.Order
	for rows.Next() {
		var o model.Order
		if err := scanOrder(rows, &o); err != nil {
			return nil, err
		}
		result = append(result, o)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	refs := make([]*model.Order, len(result))
	for i := range result {
		refs[i] = &result[i]
	}
	if err := r.attachItems(ctx, r.storage.pool, refs); err != nil {
		return nil, err
	}
	return result, nil
}

func (r *orderRepository) attachItems(ctx context.Context, q rowQuerier, orders []*model.Order) error {
	if len(orders) == 0 {
		return nil
	}
	ids := make([]int64, 0, len(orders))
	byID := make(map[int64]*model.Order, len(orders))
	for _, o := range orders {
		ids = append(ids, o.ID)
		byID[o.ID] = o
	}

	const query = `SELECT id, order_id, supplier_id, product_ref, quantity, unit_price, supplier_cost, commission_pct
                   FROM order_items WHERE order_id = ANY($1) ORDER BY id`
	rows, err := q.Query(ctx, query, ids)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var item model.OrderItem
		if err := rows.Scan(&item.ID, &item.OrderID, &item.SupplierID, &item.ProductRef, &item.Quantity, &item.UnitPrice, &item.SupplierCost, &item.CommissionPct); err != nil {
			return err
		}
		if o, ok := byID[item.OrderID]; ok {
			o.Items = append(o.Items, item)
		}
	}
	return rows.Err()
}

func (r *orderRepository) SelectBatchForDispatch(ctx context.Context, limit int) ([]model.Order, error) {
	// A claim whose outcome was never recorded (crash between claim and
	// finish) leaves the row RUNNING; hand it back once it goes stale.
	const reclaimStale = `UPDATE orders SET dispatch_status='PENDING', updated_at=NOW()
                          WHERE dispatch_status = 'RUNNING' AND updated_at < NOW() - INTERVAL '10 minutes'`

	const selectQuery = `SELECT ` + orderColumns + `
                         FROM orders
                         WHERE status = 'AWAITING_FULFILLMENT' AND dispatch_status = 'PENDING'
                         ORDER BY updated_at
                         LIMIT $1
                         FOR UPDATE SKIP LOCKED`

	var orders []model.Order
	err := r.storage.WithinTransaction(ctx, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, reclaimStale); err != nil {
			return err
		}

		rows, err := tx.Query(ctx, selectQuery, limit)
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			var o model.Order
			if err := scanOrder(rows, &o); err != nil {
				return err
			}
			orders = append(orders, o)
		}
		if err := rows.Err(); err != nil {
			return err
		}

		for i := range orders {
			if _, err := tx.Exec(ctx, `UPDATE orders SET dispatch_status='RUNNING', updated_at=NOW() WHERE id=$1`, orders[i].ID); err != nil {
				return err
			}
		}

		refs := make([]*model.Order, len(orders))
		for i := range orders {
			refs[i] = &orders[i]
		}
		return r.attachItems(ctx, tx, refs)
	})
	if err != nil {
		return nil, err
	}
	return orders, nil
}

func (r *orderRepository) MarkDispatched(ctx context.Context, orderID int64) error {
	_, err := r.storage.pool.Exec(ctx, `UPDATE orders SET dispatch_status='DONE', updated_at=NOW() WHERE id=$1`, orderID)
	return err
}

func (r *orderRepository) ReleaseDispatch(ctx context.Context, orderID int64) error {
	// Hands the order back for another attempt; the attempt counter caps
	// retries so a poison order ends up FAILED instead of looping forever.
	const query = `UPDATE orders
                   SET dispatch_attempts = dispatch_attempts + 1,
                       dispatch_status = CASE WHEN dispatch_attempts + 1 >= 5 THEN 'FAILED' ELSE 'PENDING' END,
                       updated_at = NOW()
                   WHERE id=$1`
	_, err := r.storage.pool.Exec(ctx, query, orderID)
	return err
}

// --- PaymentRepository implementation ---

const paymentColumns = `id, order_id, user_id, reference, channel, provider, amount, fee, refunded, status, redirect_url, provider_ref, provider_raw, paid_at, created_at, updated_at`

func scanPayment(row pgx.Row, p *model.Payment) error {
	return row.Scan(&p.ID, &p.OrderID, &p.UserID, &p.Reference, &p.Channel, &p.Provider, &p.Amount, &p.Fee, &p.Refunded, &p.Status, &p.RedirectURL, &p.ProviderRef, &p.ProviderRaw, &p.PaidAt, &p.CreatedAt, &p.UpdatedAt)
}

func (r *paymentRepository) Create(ctx context.Context, payment *model.Payment) (*model.Payment, error) {
	const query = `INSERT INTO payments (order_id, user_id, reference, channel, provider, amount, status, redirect_url, provider_ref, provider_raw)
                   VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
                   RETURNING id, created_at, updated_at`
	payment.Status = model.PaymentStatusPending
	err := r.storage.pool.QueryRow(ctx, query,
		payment.OrderID, payment.UserID, payment.Reference, payment.Channel, payment.Provider,
		payment.Amount, payment.Status, payment.RedirectURL, payment.ProviderRef, payment.ProviderRaw,
	).Scan(&payment.ID, &payment.CreatedAt, &payment.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return nil, domainErrors.ErrAlreadyExists
		}
		return nil, err
	}
	return payment, nil
}

func (r *paymentRepository) GetByReference(ctx context.Context, reference string) (*model.Payment, error) {
	query := `SELECT ` + paymentColumns + ` FROM payments WHERE reference=$1`
	var p model.Payment
	if err := scanPayment(r.storage.pool.QueryRow(ctx, query, reference), &p); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domainErrors.ErrNotFound
		}
		return nil, err
	}
	return &p, nil
}

func (r *paymentRepository) LatestPending(ctx context.Context, orderID int64, channel model.PaymentChannel) (*model.Payment, error) {
	query := `SELECT ` + paymentColumns + ` FROM payments
              WHERE order_id=$1 AND channel=$2 AND status='PENDING'
              ORDER BY created_at DESC LIMIT 1`
	var p model.Payment
	if err := scanPayment(r.storage.pool.QueryRow(ctx, query, orderID, channel), &p); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domainErrors.ErrNotFound
		}
		return nil, err
	}
	return &p, nil
}

func (r *paymentRepository) HasPaid(ctx context.Context, orderID int64) (bool, error) {
	const query = `SELECT EXISTS (SELECT 1 FROM payments WHERE order_id=$1 AND status IN ('PAID', 'REFUNDED'))`
	var paid bool
	if err := r.storage.pool.QueryRow(ctx, query, orderID).Scan(&paid); err != nil {
		return false, err
	}
	return paid, nil
}

func (r *paymentRepository) SetRedirect(ctx context.Context, paymentID int64, redirectURL, providerRef string, raw json.RawMessage) error {
	const query = `UPDATE payments SET redirect_url=$2, provider_ref=$3, provider_raw=$4, updated_at=NOW() WHERE id=$1`
	_, err := r.storage.pool.Exec(ctx, query, paymentID, redirectURL, providerRef, raw)
	return err
}

func (r *paymentRepository) Cancel(ctx context.Context, paymentID int64) error {
	_, err := r.storage.pool.Exec(ctx, `UPDATE payments SET status='CANCELED', updated_at=NOW() WHERE id=$1 AND status='PENDING'`, paymentID)
	return err
}

func (r *paymentRepository) MarkFailed(ctx context.Context, paymentID int64, raw json.RawMessage) (bool, error) {
	const query = `UPDATE payments SET status='FAILED', provider_raw=COALESCE($2, provider_raw), updated_at=NOW()
                   WHERE id=$1 AND status='PENDING'`
	tag, err := r.storage.pool.Exec(ctx, query, paymentID, raw)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// errSettleLost aborts the settle transaction when the conditional update
// finds the payment no longer PENDING.
var errSettleLost = errors.New("settle lost")

func (r *paymentRepository) Settle(ctx context.Context, params repository.SettleParams) (bool, error) {
	err := r.storage.WithinTransaction(ctx, func(tx pgx.Tx) error {
		const markPaid = `UPDATE payments SET status='PAID', paid_at=$2, fee=$3, provider_ref=$4, provider_raw=COALESCE($5, provider_raw), updated_at=NOW()
                          WHERE id=$1 AND status='PENDING'`
		tag, err := tx.Exec(ctx, markPaid, params.PaymentID, params.PaidAt, params.Fee, params.ProviderRef, params.ProviderRaw)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return errSettleLost
		}

		const cancelSiblings = `UPDATE payments SET status='CANCELED', updated_at=NOW()
                                WHERE order_id=$1 AND id<>$2 AND status='PENDING'`
		if _, err := tx.Exec(ctx, cancelSiblings, params.OrderID, params.PaymentID); err != nil {
			return err
		}

		const advanceOrder = `UPDATE orders SET status='AWAITING_FULFILLMENT', dispatch_status='PENDING', updated_at=NOW()
                              WHERE id=$1 AND status='PENDING'`
		if _, err := tx.Exec(ctx, advanceOrder, params.OrderID); err != nil {
			return err
		}

		const insertEvent = `INSERT INTO payment_events (payment_id, type, payload) VALUES ($1, $2, $3)`
		if _, err := tx.Exec(ctx, insertEvent, params.PaymentID, params.EventType, params.ProviderRaw); err != nil {
			return err
		}

		const insertActivity = `INSERT INTO order_activities (order_id, type, message, meta) VALUES ($1, $2, $3, $4)`
		meta, _ := json.Marshal(map[string]int64{"payment_id": params.PaymentID})
		if _, err := tx.Exec(ctx, insertActivity, params.OrderID, model.ActivityPaymentReceived, params.Activity, meta); err != nil {
			return err
		}
		return nil
	})
	if errors.Is(err, errSettleLost) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (r *paymentRepository) Refund(ctx context.Context, paymentID int64, amount decimal.Decimal) (bool, error) {
	err := r.storage.WithinTransaction(ctx, func(tx pgx.Tx) error {
		const markRefunded = `UPDATE payments SET status='REFUNDED', refunded=$2, updated_at=NOW()
                              WHERE id=$1 AND status='PAID'`
		tag, err := tx.Exec(ctx, markRefunded, paymentID, amount)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return errSettleLost
		}

		var orderID int64
		if err := tx.QueryRow(ctx, `SELECT order_id FROM payments WHERE id=$1`, paymentID).Scan(&orderID); err != nil {
			return err
		}

		payload, _ := json.Marshal(map[string]string{"amount": amount.String()})
		if _, err := tx.Exec(ctx, `INSERT INTO payment_events (payment_id, type, payload) VALUES ($1, $2, $3)`, paymentID, model.EventRefunded, payload); err != nil {
			return err
		}
		if _, err := tx.Exec(ctx, `INSERT INTO order_activities (order_id, type, message, meta) VALUES ($1, $2, $3, $4)`,
			orderID, model.ActivityPaymentRefunded, fmt.Sprintf("payment refunded: %s", amount.String()), payload); err != nil {
			return err
		}
		return nil
	})
	if errors.Is(err, errSettleLost) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (r *paymentRepository) AppendEvent(ctx context.Context, paymentID int64, eventType model.PaymentEventType, payload json.RawMessage) error {
	_, err := r.storage.pool.Exec(ctx, `INSERT INTO payment_events (payment_id, type, payload) VALUES ($1, $2, $3)`, paymentID, eventType, payload)
	return err
}

func (r *paymentRepository) ListSettledBetween(ctx context.Context, from, to time.Time) ([]model.Payment, error) {
	query := `SELECT ` + paymentColumns + ` FROM payments
              WHERE status IN ('PAID', 'REFUNDED') AND paid_at >= $1 AND paid_at < $2
              ORDER BY paid_at`
	return r.list(ctx, query, from, to)
}

func (r *paymentRepository) ListByOrderIDs(ctx context.Context, orderIDs []int64) ([]model.Payment, error) {
	if len(orderIDs) == 0 {
		return nil, nil
	}
	query := `SELECT ` + paymentColumns + ` FROM payments WHERE order_id = ANY($1) ORDER BY id`
	return r.list(ctx, query, orderIDs)
}

func (r *paymentRepository) list(ctx context.Context, query string, args ...any) ([]model.Payment, error) {
	rows, err := r.storage.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []model.Payment
	for rows.Next() {
		var p model.Payment
		if err := scanPayment(rows, &p); err != nil {
			return nil, err
		}
		result = append(result, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// --- PurchaseOrderRepository implementation ---

const purchaseOrderColumns = `id, order_id, supplier_id, subtotal, platform_fee, supplier_amount, payout_percent, status, created_at, updated_at`

func scanPurchaseOrder(row pgx.Row, po *model.PurchaseOrder) error {
	return row.Scan(&po.ID, &po.OrderID, &po.SupplierID, &po.Subtotal, &po.PlatformFee, &po.SupplierAmount, &po.PayoutPercent, &po.Status, &po.CreatedAt, &po.UpdatedAt)
}

func (r *purchaseOrderRepository) Create(ctx context.Context, po *model.PurchaseOrder) (*model.PurchaseOrder, error) {
	err := r.storage.WithinTransaction(ctx, func(tx pgx.Tx) error {
		const insertPO = `INSERT INTO purchase_orders (order_id, supplier_id, subtotal, platform_fee, supplier_amount, payout_percent, status)
                          VALUES ($1, $2, $3, $4, $5, $6, $7)
                          ON CONFLICT (order_id, supplier_id) DO NOTHING
                          RETURNING id, created_at, updated_at`
		err := tx.QueryRow(ctx, insertPO,
			po.OrderID, po.SupplierID, po.Subtotal, po.PlatformFee, po.SupplierAmount, po.PayoutPercent, po.Status,
		).Scan(&po.ID, &po.CreatedAt, &po.UpdatedAt)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return domainErrors.ErrAlreadyExists
			}
			return err
		}

		const insertItem = `INSERT INTO purchase_order_items (purchase_order_id, order_item_id, step_status)
                            VALUES ($1, $2, $3)
                            RETURNING id, updated_at`
		for i := range po.Items {
			item := &po.Items[i]
			item.PurchaseOrderID = po.ID
			if item.StepStatus == "" {
				item.StepStatus = model.ItemStepPending
			}
			if err := tx.QueryRow(ctx, insertItem, po.ID, item.OrderItemID, item.StepStatus).Scan(&item.ID, &item.UpdatedAt); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return po, nil
}

func (r *purchaseOrderRepository) GetByOrderAndSupplier(ctx context.Context, orderID, supplierID int64) (*model.PurchaseOrder, error) {
	query := `SELECT ` + purchaseOrderColumns + ` FROM purchase_orders WHERE order_id=$1 AND supplier_id=$2`
	var po model.PurchaseOrder
	if err := scanPurchaseOrder(r.storage.pool.QueryRow(ctx, query, orderID, supplierID), &po); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domainErrors.ErrNotFound
		}
		return nil, err
	}

	const itemsQuery = `SELECT id, purchase_order_id, order_item_id, external_ref, step_status, receipt_url, updated_at
                        FROM purchase_order_items WHERE purchase_order_id=$1 ORDER BY id`
	rows, err := r.storage.pool.Query(ctx, itemsQuery, po.ID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var item model.PurchaseOrderItem
		if err := rows.Scan(&item.ID, &item.PurchaseOrderID, &item.OrderItemID, &item.ExternalRef, &item.StepStatus, &item.ReceiptURL, &item.UpdatedAt); err != nil {
			return nil, err
		}
		po.Items = append(po.Items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return &po, nil
}

func (r *purchaseOrderRepository) ListByOrderIDs(ctx context.Context, orderIDs []int64) ([]model.PurchaseOrder, error) {
	if len(orderIDs) == 0 {
		return nil, nil
	}
	query := `SELECT ` + purchaseOrderColumns + ` FROM purchase_orders WHERE order_id = ANY($1) ORDER BY id`
	rows, err := r.storage.pool.Query(ctx, query, orderIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []model.PurchaseOrder
	for rows.Next() {
		var po model.PurchaseOrder
		if err := scanPurchaseOrder(rows, &po); err != nil {
			return nil, err
		}
		result = append(result, po)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (r *purchaseOrderRepository) UpdateStatus(ctx context.Context, poID int64, status model.PurchaseOrderStatus) error {
	_, err := r.storage.pool.Exec(ctx, `UPDATE purchase_orders SET status=$1, updated_at=NOW() WHERE id=$2`, status, poID)
	return err
}

func (r *purchaseOrderRepository) UpdateItemStep(ctx context.Context, itemID int64, step model.ItemStepStatus, externalRef, receiptURL string) error {
	const query = `UPDATE purchase_order_items
                   SET step_status=$1,
                       external_ref=CASE WHEN $2 <> '' THEN $2 ELSE external_ref END,
                       receipt_url=CASE WHEN $3 <> '' THEN $3 ELSE receipt_url END,
                       updated_at=NOW()
                   WHERE id=$4`
	_, err := r.storage.pool.Exec(ctx, query, step, externalRef, receiptURL, itemID)
	return err
}

// --- SupplierRepository implementation ---

const supplierColumns = `id, name, kind, payout_percent, destination, created_at`

func (r *supplierRepository) GetByID(ctx context.Context, id int64) (*model.Supplier, error) {
	query := `SELECT ` + supplierColumns + ` FROM suppliers WHERE id=$1`
	var s model.Supplier
	err := r.storage.pool.QueryRow(ctx, query, id).Scan(&s.ID, &s.Name, &s.Kind, &s.PayoutPercent, &s.Destination, &s.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domainErrors.ErrNotFound
		}
		return nil, err
	}
	return &s, nil
}

func (r *supplierRepository) ListByIDs(ctx context.Context, ids []int64) ([]model.Supplier, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	query := `SELECT ` + supplierColumns + ` FROM suppliers WHERE id = ANY($1) ORDER BY id`
	rows, err := r.storage.pool.Query(ctx, query, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []model.Supplier
	for rows.Next() {
		var s model.Supplier
		if err := rows.Scan(&s.ID, &s.Name, &s.Kind, &s.PayoutPercent, &s.Destination, &s.CreatedAt); err != nil {
			return nil, err
		}
		result = append(result, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// --- ActivityRepository implementation ---

func (r *activityRepository) Append(ctx context.Context, activity *model.OrderActivity) error {
	const query = `INSERT INTO order_activities (order_id, type, message, meta) VALUES ($1, $2, $3, $4) RETURNING id, created_at`
	return r.storage.pool.QueryRow(ctx, query, activity.OrderID, activity.Type, activity.Message, activity.Meta).Scan(&activity.ID, &activity.CreatedAt)
}

func (r *activityRepository) ListByOrder(ctx context.Context, orderID int64) ([]model.OrderActivity, error) {
	const query = `SELECT id, order_id, type, message, meta, created_at
                   FROM order_activities WHERE order_id=$1 ORDER BY created_at`
	rows, err := r.storage.pool.Query(ctx, query, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []model.OrderActivity
	for rows.Next() {
		var a model.OrderActivity
		if err := rows.Scan(&a.ID, &a.OrderID, &a.Type, &a.Message, &a.Meta, &a.CreatedAt); err != nil {
			return nil, err
		}
		result = append(result, a)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
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

// Logger returns storage logger.
func (s *Storage) Logger() *slog.Logger {
	return s.logger
}
