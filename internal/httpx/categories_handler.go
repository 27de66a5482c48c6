package httpx

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	log "github.com/sirupsen/logrus"

	"github.com/Binweiwang/nestFunko/internal/domain"
)

// CategoriesHandler публикует read-only доступ к справочнику категорий.
type CategoriesHandler struct {
	Directory domain.CategoryDirectory
	Logger    *log.Entry
}

// Register навешивает маршруты категорий на роутер.
func (h *CategoriesHandler) Register(r chi.Router) {
	r.Get("/categories", h.getCategoryByName)
	r.Get("/categories/{id}", h.getCategory)
}

type categoryResp struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	CreatedAt string `json:"created_at"`
	UpdatedAt string `json:"updated_at"`
}

func toCategoryResp(c domain.Category) categoryResp {
	return categoryResp{
		ID:        c.ID,
		Name:      c.Name,
		CreatedAt: c.CreatedAt.Format("2006-01-02T15:04:05.000Z07:00"),
		UpdatedAt: c.UpdatedAt.Format("2006-01-02T15:04:05.000Z07:00"),
	}
}

func (h *CategoriesHandler) getCategory(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	category, err := h.Directory.GetCategory(r.Context(), id)
	if err != nil {
		h.writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toCategoryResp(category))
}

func (h *CategoriesHandler) getCategoryByName(w http.ResponseWriter, r *http.Request) {
	name := r.URL.Query().Get("name")
	if name == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "name query parameter is required"})
		return
	}

	category, err := h.Directory.GetCategoryByName(r.Context(), name)
	if err != nil {
		h.writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toCategoryResp(category))
}

func (h *CategoriesHandler) writeError(w http.ResponseWriter, err error) {
	if errors.Is(err, domain.ErrCategoryNotFound) {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": err.Error()})
		return
	}
	if h.Logger != nil {
		h.Logger.WithError(err).Error("internal error")
	}
	writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
}
