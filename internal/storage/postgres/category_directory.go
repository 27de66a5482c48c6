package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/Binweiwang/nestFunko/internal/domain"
)

type categoryDirectory struct {
	db *sql.DB
}

// NewCategoryDirectory создаёт PostgreSQL-реализацию CategoryDirectory.
func NewCategoryDirectory(store *Store) domain.CategoryDirectory {
	return &categoryDirectory{db: store.DB()}
}

func (d *categoryDirectory) GetCategory(ctx context.Context, id string) (domain.Category, error) {
	queryCtx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	return d.scanOne(d.db.QueryRowContext(queryCtx, `
		SELECT id, name, deleted, created_at, updated_at
		FROM categories
		WHERE id = $1
		  AND NOT deleted
	`, id))
}

// GetCategoryByName ищет категорию по имени без учёта регистра.
func (d *categoryDirectory) GetCategoryByName(ctx context.Context, name string) (domain.Category, error) {
	queryCtx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	return d.scanOne(d.db.QueryRowContext(queryCtx, `
		SELECT id, name, deleted, created_at, updated_at
		FROM categories
		WHERE LOWER(name) = LOWER($1)
		  AND NOT deleted
	`, name))
}

func (d *categoryDirectory) scanOne(row *sql.Row) (domain.Category, error) {
	var category domain.Category
	err := row.Scan(
		&category.ID, &category.Name, &category.Deleted,
		&category.CreatedAt, &category.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Category{}, domain.ErrCategoryNotFound
		}
		return domain.Category{}, fmt.Errorf("select category: %w", err)
	}
	return category, nil
}

var _ domain.CategoryDirectory = (*categoryDirectory)(nil)
