package httpx

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"github.com/Binweiwang/nestFunko/internal/domain"
	"github.com/Binweiwang/nestFunko/internal/storage/memory"
)

func newCategoriesServer(t *testing.T) *httptest.Server {
	t.Helper()

	baseLogger := log.New()
	baseLogger.SetLevel(log.PanicLevel)
	logger := baseLogger.WithField("component", "httpx-test")

	directory := memory.NewCategoryDirectory()
	directory.Seed(
		domain.Category{ID: "cat-1", Name: "MARVEL", CreatedAt: time.Now().UTC()},
		domain.Category{ID: "cat-2", Name: "DC", Deleted: true},
	)

	router := NewRouter()
	handler := &CategoriesHandler{Directory: directory, Logger: logger}
	handler.Register(router)

	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)
	return srv
}

func TestGetCategory(t *testing.T) {
	srv := newCategoriesServer(t)

	resp, err := http.Get(srv.URL + "/categories/cat-1")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body categoryResp
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	require.Equal(t, "cat-1", body.ID)
	require.Equal(t, "MARVEL", body.Name)
}

func TestGetCategoryByName(t *testing.T) {
	srv := newCategoriesServer(t)

	// Поиск по имени без учёта регистра.
	resp, err := http.Get(srv.URL + "/categories?name=marvel")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body categoryResp
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	require.Equal(t, "cat-1", body.ID)
}

func TestGetCategoryErrors(t *testing.T) {
	srv := newCategoriesServer(t)

	tests := []struct {
		name string
		path string
		code int
	}{
		{name: "missing category", path: "/categories/unknown", code: http.StatusNotFound},
		{name: "deleted category invisible", path: "/categories/cat-2", code: http.StatusNotFound},
		{name: "deleted category invisible by name", path: "/categories?name=dc", code: http.StatusNotFound},
		{name: "name query required", path: "/categories", code: http.StatusBadRequest},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			resp, err := http.Get(srv.URL + tc.path)
			require.NoError(t, err)
			defer resp.Body.Close()
			require.Equal(t, tc.code, resp.StatusCode)
		})
	}
}
