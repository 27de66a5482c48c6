package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/Binweiwang/nestFunko/internal/domain"
)

const opTimeout = 5 * time.Second

type catalogStore struct {
	db *sql.DB
}

// NewCatalogStore создаёт PostgreSQL-реализацию CatalogStore.
func NewCatalogStore(store *Store) domain.CatalogStore {
	return &catalogStore{db: store.DB()}
}

func (s *catalogStore) GetItem(ctx context.Context, id int64) (domain.Item, error) {
	queryCtx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	var (
		item       domain.Item
		categoryID sql.NullString
	)
	err := s.db.QueryRowContext(queryCtx, `
		SELECT id, name, quantity, price_minor, category_id, active, created_at, updated_at
		FROM items
		WHERE id = $1
	`, id).Scan(
		&item.ID, &item.Name, &item.Quantity, &item.PriceMinor,
		&categoryID, &item.Active, &item.CreatedAt, &item.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Item{}, &domain.ItemNotFoundError{ItemID: id}
		}
		return domain.Item{}, fmt.Errorf("select item: %w", err)
	}
	if categoryID.Valid {
		item.CategoryID = categoryID.String
	}

	return item, nil
}

// ConditionalDecrement списывает остаток условным UPDATE: проверка достаточности
// и списание выполняются одним оператором, поэтому два конкурентных заказа
// не могут увести остаток в минус.
func (s *catalogStore) ConditionalDecrement(ctx context.Context, id int64, qty int32) error {
	queryCtx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	res, err := s.db.ExecContext(queryCtx, `
		UPDATE items
		SET quantity = quantity - $2,
		    updated_at = NOW()
		WHERE id = $1
		  AND quantity >= $2
	`, id, qty)
	if err != nil {
		return fmt.Errorf("decrement item stock: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected > 0 {
		return nil
	}

	// Списание не прошло: различаем отсутствие товара и нехватку остатка.
	var available int32
	err = s.db.QueryRowContext(queryCtx, `SELECT quantity FROM items WHERE id = $1`, id).Scan(&available)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return &domain.ItemNotFoundError{ItemID: id}
		}
		return fmt.Errorf("check item stock: %w", err)
	}

	return &domain.InsufficientStockError{
		ItemID:    id,
		Requested: qty,
		Available: available,
	}
}

func (s *catalogStore) Increment(ctx context.Context, id int64, qty int32) error {
	queryCtx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	res, err := s.db.ExecContext(queryCtx, `
		UPDATE items
		SET quantity = quantity + $2,
		    updated_at = NOW()
		WHERE id = $1
	`, id, qty)
	if err != nil {
		return fmt.Errorf("increment item stock: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return &domain.ItemNotFoundError{ItemID: id}
	}

	return nil
}

var _ domain.CatalogStore = (*catalogStore)(nil)
