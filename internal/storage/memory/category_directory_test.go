package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Binweiwang/nestFunko/internal/domain"
)

func TestCategoryDirectoryLookup(t *testing.T) {
	ctx := context.Background()
	dir := NewCategoryDirectory()
	dir.Seed(
		domain.Category{ID: "cat-1", Name: "MARVEL", CreatedAt: time.Now().UTC()},
		domain.Category{ID: "cat-2", Name: "DC", Deleted: true},
	)

	category, err := dir.GetCategory(ctx, "cat-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if category.Name != "MARVEL" {
		t.Fatalf("unexpected category: %+v", category)
	}

	// Поиск по имени без учёта регистра.
	byName, err := dir.GetCategoryByName(ctx, "marvel")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if byName.ID != "cat-1" {
		t.Fatalf("unexpected category: %+v", byName)
	}

	// Удалённые категории не видны ни по ID, ни по имени.
	if _, err := dir.GetCategory(ctx, "cat-2"); !errors.Is(err, domain.ErrCategoryNotFound) {
		t.Fatalf("expected ErrCategoryNotFound, got %v", err)
	}
	if _, err := dir.GetCategoryByName(ctx, "dc"); !errors.Is(err, domain.ErrCategoryNotFound) {
		t.Fatalf("expected ErrCategoryNotFound, got %v", err)
	}

	if _, err := dir.GetCategory(ctx, "missing"); !errors.Is(err, domain.ErrCategoryNotFound) {
		t.Fatalf("expected ErrCategoryNotFound, got %v", err)
	}
}
