package catalog

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"
)

func newTestRouter(repo *memoryRepo) http.Handler {
	h := NewHandler(slog.New(slog.NewTextHandler(io.Discard, nil)), NewService(repo, nil, nil))
	r := chi.NewRouter()
	r.Route("/api/products", h.MountRoutes)
	r.Route("/api/settings/products", h.MountSettingsRoutes)
	return r
}

func TestAdjustStockEndpoint(t *testing.T) {
	repo := newMemoryRepo()
	p := repo.seed("A", 3)
	router := newTestRouter(repo)
	path := "/api/products/" + strconv.FormatInt(p.ID, 10) + "/adjust-stock"

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, path, strings.NewReader(`{"delta":-5}`)))
	require.Equal(t, http.StatusBadRequest, rr.Code)
	var problem struct {
		Error string `json:"error"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &problem))
	require.Contains(t, problem.Error, `"A"`)
	require.Contains(t, problem.Error, "available 3")
	require.Contains(t, problem.Error, "required 5")

	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, path, strings.NewReader(`{"delta":2,"note":"count"}`)))
	require.Equal(t, http.StatusOK, rr.Code)
	var product Product
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &product))
	require.EqualValues(t, 5, product.Stock)

	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, path, strings.NewReader(`{"delta":0}`)))
	require.Equal(t, http.StatusBadRequest, rr.Code)

	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/api/products/42/adjust-stock", strings.NewReader(`{"delta":1}`)))
	require.Equal(t, http.StatusNotFound, rr.Code)
}

func TestSettingsProductEndpoints(t *testing.T) {
	repo := newMemoryRepo()
	router := newTestRouter(repo)

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/api/settings/products", strings.NewReader(`{"name":"Tea","stock":8}`)))
	require.Equal(t, http.StatusCreated, rr.Code)
	var created Product
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &created))

	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/api/settings/products", strings.NewReader(`{"name":"Tea"}`)))
	require.Equal(t, http.StatusBadRequest, rr.Code)
	require.Contains(t, rr.Body.String(), "product name already exists")

	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodPut, "/api/settings/products/"+strconv.FormatInt(created.ID, 10), strings.NewReader(`{"stock":10}`)))
	require.Equal(t, http.StatusOK, rr.Code)

	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/products/"+strconv.FormatInt(created.ID, 10)+"/movements", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	var movements []Movement
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &movements))
	require.Len(t, movements, 2)
	require.EqualValues(t, 2, movements[0].Quantity)
	require.Equal(t, RefSettings, movements[0].Ref)

	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/products", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	var products []Product
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &products))
	require.Len(t, products, 1)
	require.EqualValues(t, 10, products[0].Stock)
}
