package orders

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

	"github.com/carecrm/carecrm/internal/shared"
)

func newTestRouter(svc *Service) http.Handler {
	h := NewHandler(slog.New(slog.NewTextHandler(io.Discard, nil)), svc)
	r := chi.NewRouter()
	r.Route("/api/orders", h.MountRoutes)
	return r
}

func serve(t *testing.T, router http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(method, path, strings.NewReader(body)))
	return rr
}

func problemText(t *testing.T, rr *httptest.ResponseRecorder) string {
	t.Helper()
	var problem struct {
		Error string `json:"error"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &problem))
	return problem.Error
}

func TestCreateOrderEndpoint(t *testing.T) {
	repo := newMemoryRepo()
	repo.seedProduct("A", 3)
	svc, _, _ := newTestService(repo)
	router := newTestRouter(svc)

	rr := serve(t, router, http.MethodPost, "/api/orders", `{"orderId":"T1","name":"Lin","phone":"0911111111","items":[{"productName":"A","quantity":5}]}`)
	require.Equal(t, http.StatusBadRequest, rr.Code)
	msg := problemText(t, rr)
	require.Contains(t, msg, `"A"`)
	require.Contains(t, msg, "available 3")
	require.Contains(t, msg, "required 5")

	rr = serve(t, router, http.MethodPost, "/api/orders", `{"name":"Lin","phone":"0911","items":[{"productName":"Nope","quantity":1}]}`)
	require.Equal(t, http.StatusBadRequest, rr.Code)
	require.Contains(t, problemText(t, rr), "Nope")

	rr = serve(t, router, http.MethodPost, "/api/orders", `{"name":"Lin","phone":"0911","amount":-1,"items":[{"productName":"A","quantity":1}]}`)
	require.Equal(t, http.StatusBadRequest, rr.Code)

	rr = serve(t, router, http.MethodPost, "/api/orders", `{"orderId":"T1","date":"2024-03-02","name":"Lin","phone":"0911111111","amount":600,"items":[{"productName":"A","quantity":2}]}`)
	require.Equal(t, http.StatusCreated, rr.Code)
	var order Order
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &order))
	require.Equal(t, "T1", order.OrderID)
	require.Equal(t, "2024-03-02", order.Date.String())
	require.Equal(t, "A", order.ProductName)
	require.EqualValues(t, 2, order.Quantity)
	require.Nil(t, order.ArrivalDate)

	rr = serve(t, router, http.MethodPost, "/api/orders", `{"orderId":"T1","name":"Lin","phone":"0911111111","items":[{"productName":"A","quantity":1}]}`)
	require.Equal(t, http.StatusBadRequest, rr.Code)
	require.Equal(t, "order id already exists", problemText(t, rr))
	require.EqualValues(t, 1, repo.product("A").Stock)
}

func TestUpdateOrderEndpointClearsArrival(t *testing.T) {
	repo := newMemoryRepo()
	repo.seedProduct("A", 3)
	svc, _, _ := newTestService(repo)
	router := newTestRouter(svc)

	placed, err := svc.PlaceOrder(t.Context(), PlaceOrderRequest{OrderID: "P1", Name: "Lin", Phone: "0911", ArrivalDate: day(2024, 3, 1), Channel: "Shop", Items: []ItemInput{{ProductName: "A", Quantity: 1}}})
	require.NoError(t, err)
	path := "/api/orders/" + strconv.FormatInt(placed.ID, 10)

	rr := serve(t, router, http.MethodPut, path, `{"arrivalDate":null,"logistics":"Post"}`)
	require.Equal(t, http.StatusOK, rr.Code)
	var order Order
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &order))
	require.Nil(t, order.ArrivalDate)
	require.Equal(t, "Post", *order.Logistics)
	require.Equal(t, "Shop", *order.Channel)
	require.Contains(t, rr.Body.String(), `"arrivalDate":null`)
	require.EqualValues(t, 2, repo.product("A").Stock)

	rr = serve(t, router, http.MethodPut, "/api/orders/999", `{"remarks":"x"}`)
	require.Equal(t, http.StatusNotFound, rr.Code)

	rr = serve(t, router, http.MethodPut, path, `{"date":"not-a-date"}`)
	require.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestAfterSalesEndpoints(t *testing.T) {
	repo := newMemoryRepo()
	repo.seedProduct("A", 3)
	svc, _, _ := newTestService(repo)
	router := newTestRouter(svc)

	rr := serve(t, router, http.MethodGet, "/api/orders/pending-after-sales", "")
	require.Equal(t, http.StatusOK, rr.Code)
	require.JSONEq(t, `[]`, rr.Body.String())

	placed, err := svc.PlaceOrder(t.Context(), PlaceOrderRequest{OrderID: "P2", Name: "Lin", Phone: "0911", ArrivalDate: day(2024, 3, 5), Items: []ItemInput{{ProductName: "A", Quantity: 1}}})
	require.NoError(t, err)

	rr = serve(t, router, http.MethodGet, "/api/orders/pending-after-sales", "")
	var pending []Order
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &pending))
	require.Len(t, pending, 1)
	require.Equal(t, "P2", pending[0].OrderID)

	path := "/api/orders/" + strconv.FormatInt(placed.ID, 10) + "/after-sales"
	rr = serve(t, router, http.MethodPost, path, `{"notes":"  "}`)
	require.Equal(t, http.StatusBadRequest, rr.Code)
	require.Equal(t, "after-sales notes are required", problemText(t, rr))

	rr = serve(t, router, http.MethodPost, path, `{"notes":"called, all good"}`)
	require.Equal(t, http.StatusOK, rr.Code)

	rr = serve(t, router, http.MethodGet, "/api/orders/pending-after-sales", "")
	require.JSONEq(t, `[]`, rr.Body.String())
}

func TestListOrdersEndpoint(t *testing.T) {
	repo := newMemoryRepo()
	repo.seedProduct("Tea", 10)
	repo.seedProduct("Herb", 10)
	svc, _, _ := newTestService(repo)
	router := newTestRouter(svc)
	for i, product := range []string{"Tea", "Herb", "Tea"} {
		_, err := svc.PlaceOrder(t.Context(), PlaceOrderRequest{
			OrderID: "L" + strconv.Itoa(i), Date: day(2024, 3, 1+i), Name: "Lin", Phone: "0911",
			Items: []ItemInput{{ProductName: product, Quantity: 1}},
		})
		require.NoError(t, err)
	}

	rr := serve(t, router, http.MethodGet, "/api/orders?page=1&limit=2", "")
	require.Equal(t, http.StatusOK, rr.Code)
	var page shared.Page[Order]
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &page))
	require.Len(t, page.Data, 2)
	require.Equal(t, "L2", page.Data[0].OrderID)
	require.Equal(t, 3, page.Pagination.Total)
	require.Equal(t, 2, page.Pagination.TotalPages)

	rr = serve(t, router, http.MethodGet, "/api/orders?search=Herb", "")
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &page))
	require.Len(t, page.Data, 1)
	require.Equal(t, "L1", page.Data[0].OrderID)
}
