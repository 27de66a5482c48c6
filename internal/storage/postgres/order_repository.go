package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/Binweiwang/nestFunko/internal/domain"
)

type orderRepository struct {
	db *sql.DB
}

// NewOrderRepository создаёт PostgreSQL-реализацию OrderRepository.
func NewOrderRepository(store *Store) domain.OrderRepository {
	return &orderRepository{db: store.DB()}
}

func (r *orderRepository) Create(ctx context.Context, order domain.Order) error {
	queryCtx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	tx, err := r.db.BeginTx(queryCtx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}

	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	_, err = tx.ExecContext(queryCtx, `
		INSERT INTO orders (
			id, customer_id, customer_snapshot, total_minor, total_items, version, created_at, updated_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
	`,
		order.ID, order.CustomerID, nullableJSON(order.CustomerSnapshot),
		order.TotalMinor, order.TotalItems, order.Version, order.CreatedAt, order.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrOrderVersionConflict
		}
		return fmt.Errorf("insert order: %w", err)
	}

	if err = insertLines(queryCtx, tx, order.ID, order.Lines); err != nil {
		return err
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit create order: %w", err)
	}

	return nil
}

func (r *orderRepository) Get(ctx context.Context, id string) (domain.Order, error) {
	queryCtx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	order, err := r.scanOrder(r.db.QueryRowContext(queryCtx, `
		SELECT id, customer_id, customer_snapshot, total_minor, total_items, version, created_at, updated_at
		FROM orders
		WHERE id = $1
	`, id))
	if err != nil {
		return domain.Order{}, err
	}

	lines, err := r.loadLines(queryCtx, order.ID)
	if err != nil {
		return domain.Order{}, err
	}
	order.Lines = lines

	return order, nil
}

// Save перезаписывает заказ и его строки с optimistic locking по version и
// возвращает сохранённое состояние с новой версией.
func (r *orderRepository) Save(ctx context.Context, order domain.Order) (domain.Order, error) {
	queryCtx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	tx, err := r.db.BeginTx(queryCtx, nil)
	if err != nil {
		return domain.Order{}, fmt.Errorf("begin tx: %w", err)
	}

	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	res, err := tx.ExecContext(queryCtx, `
		UPDATE orders
		SET customer_id = $1,
		    customer_snapshot = $2,
		    total_minor = $3,
		    total_items = $4,
		    version = version + 1,
		    updated_at = $5
		WHERE id = $6
		  AND version = $7
	`,
		order.CustomerID, nullableJSON(order.CustomerSnapshot),
		order.TotalMinor, order.TotalItems, order.UpdatedAt,
		order.ID, order.Version,
	)
	if err != nil {
		return domain.Order{}, fmt.Errorf("update order: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return domain.Order{}, fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		exists, checkErr := orderExistsTx(queryCtx, tx, order.ID)
		if checkErr != nil {
			err = checkErr
			return domain.Order{}, err
		}
		if !exists {
			err = domain.ErrOrderNotFound
			return domain.Order{}, err
		}
		err = domain.ErrOrderVersionConflict
		return domain.Order{}, err
	}

	if _, err = tx.ExecContext(queryCtx, `DELETE FROM order_lines WHERE order_id = $1`, order.ID); err != nil {
		return domain.Order{}, fmt.Errorf("delete order lines: %w", err)
	}
	if err = insertLines(queryCtx, tx, order.ID, order.Lines); err != nil {
		return domain.Order{}, err
	}

	if err = tx.Commit(); err != nil {
		return domain.Order{}, fmt.Errorf("commit save order: %w", err)
	}

	// Состояние после UPDATE: та же запись с инкрементированной версией.
	order.Version++
	return order, nil
}

// Delete жёстко удаляет заказ; строки уходят каскадом.
func (r *orderRepository) Delete(ctx context.Context, id string) error {
	queryCtx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	res, err := r.db.ExecContext(queryCtx, `DELETE FROM orders WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete order: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return domain.ErrOrderNotFound
	}

	return nil
}

func (r *orderRepository) ListByCustomer(ctx context.Context, customerID string, limit int) ([]domain.Order, error) {
	queryCtx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	query := `
		SELECT id, customer_id, customer_snapshot, total_minor, total_items, version, created_at, updated_at
		FROM orders
		WHERE customer_id = $1
		ORDER BY created_at DESC, id DESC
	`

	var (
		rows *sql.Rows
		err  error
	)
	if limit > 0 {
		rows, err = r.db.QueryContext(queryCtx, query+" LIMIT $2", customerID, limit)
	} else {
		rows, err = r.db.QueryContext(queryCtx, query, customerID)
	}
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	defer rows.Close()

	return r.collectOrders(queryCtx, rows)
}

func (r *orderRepository) List(ctx context.Context, params domain.PageParams) (domain.Page, error) {
	if params.Page <= 0 {
		params.Page = 1
	}
	if params.Limit <= 0 {
		params.Limit = 20
	}

	queryCtx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	page := domain.Page{
		Page:   params.Page,
		Limit:  params.Limit,
		Orders: []domain.Order{},
	}

	if err := r.db.QueryRowContext(queryCtx, `SELECT COUNT(*) FROM orders`).Scan(&page.TotalCount); err != nil {
		return domain.Page{}, fmt.Errorf("count orders: %w", err)
	}

	rows, err := r.db.QueryContext(queryCtx, `
		SELECT id, customer_id, customer_snapshot, total_minor, total_items, version, created_at, updated_at
		FROM orders
		ORDER BY created_at DESC, id DESC
		LIMIT $1 OFFSET $2
	`, params.Limit, (params.Page-1)*params.Limit)
	if err != nil {
		return domain.Page{}, fmt.Errorf("list orders page: %w", err)
	}
	defer rows.Close()

	orders, err := r.collectOrders(queryCtx, rows)
	if err != nil {
		return domain.Page{}, err
	}
	page.Orders = orders

	return page, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func (r *orderRepository) scanOrder(row rowScanner) (domain.Order, error) {
	var (
		order    domain.Order
		snapshot []byte
	)
	err := row.Scan(
		&order.ID, &order.CustomerID, &snapshot,
		&order.TotalMinor, &order.TotalItems, &order.Version,
		&order.CreatedAt, &order.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Order{}, domain.ErrOrderNotFound
		}
		return domain.Order{}, fmt.Errorf("scan order: %w", err)
	}
	order.CustomerSnapshot = snapshot
	return order, nil
}

func (r *orderRepository) collectOrders(ctx context.Context, rows *sql.Rows) ([]domain.Order, error) {
	orders := make([]domain.Order, 0)
	for rows.Next() {
		order, err := r.scanOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, order)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate order rows: %w", err)
	}

	for i := range orders {
		lines, err := r.loadLines(ctx, orders[i].ID)
		if err != nil {
			return nil, err
		}
		orders[i].Lines = lines
	}

	return orders, nil
}

func (r *orderRepository) loadLines(ctx context.Context, orderID string) ([]domain.OrderLine, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT item_id, qty, price_minor, total_minor
		FROM order_lines
		WHERE order_id = $1
		ORDER BY id ASC
	`, orderID)
	if err != nil {
		return nil, fmt.Errorf("load order lines: %w", err)
	}
	defer rows.Close()

	lines := make([]domain.OrderLine, 0)
	for rows.Next() {
		var line domain.OrderLine
		if err := rows.Scan(&line.ItemID, &line.Qty, &line.PriceMinor, &line.TotalMinor); err != nil {
			return nil, fmt.Errorf("scan order line: %w", err)
		}
		lines = append(lines, line)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate order lines: %w", err)
	}

	return lines, nil
}

func insertLines(ctx context.Context, tx *sql.Tx, orderID string, lines []domain.OrderLine) error {
	for _, line := range lines {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO order_lines (order_id, item_id, qty, price_minor, total_minor)
			VALUES ($1,$2,$3,$4,$5)
		`, orderID, line.ItemID, line.Qty, line.PriceMinor, line.TotalMinor); err != nil {
			return fmt.Errorf("insert order line: %w", err)
		}
	}
	return nil
}

func orderExistsTx(ctx context.Context, tx *sql.Tx, orderID string) (bool, error) {
	var id string
	err := tx.QueryRowContext(ctx, `SELECT id FROM orders WHERE id = $1`, orderID).Scan(&id)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	return false, fmt.Errorf("check order exists: %w", err)
}

// nullableJSON превращает пустой snapshot в NULL, чтобы не хранить пустые строки в JSONB.
func nullableJSON(raw []byte) any {
	if len(raw) == 0 {
		return nil
	}
	return []byte(raw)
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}

var _ domain.OrderRepository = (*orderRepository)(nil)
