package memory

import (
	"context"
	"strings"
	"sync"

	"github.com/Binweiwang/nestFunko/internal/domain"
)

// categoryDirectoryInMemory — простая in-memory реализация CategoryDirectory.
type categoryDirectoryInMemory struct {
	mu         sync.RWMutex
	categories map[string]domain.Category
}

// NewCategoryDirectory возвращает пустой in-memory справочник категорий.
func NewCategoryDirectory() *categoryDirectoryInMemory {
	return &categoryDirectoryInMemory{categories: make(map[string]domain.Category)}
}

// Seed наполняет справочник начальными категориями.
func (d *categoryDirectoryInMemory) Seed(categories ...domain.Category) {
	d.mu.Lock()
	defer d.mu.Unlock()

	for _, category := range categories {
		d.categories[category.ID] = category
	}
}

// GetCategory возвращает категорию или ErrCategoryNotFound.
func (d *categoryDirectoryInMemory) GetCategory(_ context.Context, id string) (domain.Category, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	category, ok := d.categories[id]
	if !ok || category.Deleted {
		return domain.Category{}, domain.ErrCategoryNotFound
	}
	return category, nil
}

// GetCategoryByName ищет категорию по имени без учёта регистра.
func (d *categoryDirectoryInMemory) GetCategoryByName(_ context.Context, name string) (domain.Category, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	for _, category := range d.categories {
		if category.Deleted {
			continue
		}
		if strings.EqualFold(category.Name, name) {
			return category, nil
		}
	}
	return domain.Category{}, domain.ErrCategoryNotFound
}

var _ domain.CategoryDirectory = (*categoryDirectoryInMemory)(nil)
