package customers

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/carecrm/carecrm/internal/platform/httpx"
	"github.com/carecrm/carecrm/internal/shared"
)

type Handler struct {
	logger  *slog.Logger
	service *Service
}

func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	page := shared.NewPageRequest(httpx.QueryInt(r, "page", 1), httpx.QueryInt(r, "limit", 20))
	result, err := h.service.List(r.Context(), strings.TrimSpace(r.URL.Query().Get("search")), page)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, result)
}

func (h *Handler) Lookup(w http.ResponseWriter, r *http.Request) {
	customer, err := h.service.LookupByPhone(r.Context(), r.URL.Query().Get("phone"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	// a miss encodes as JSON null
	httpx.JSON(w, http.StatusOK, customer)
}

func (h *Handler) Show(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.URLParamInt64(r, "id")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	customer, err := h.service.Get(r.Context(), id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, customer)
}

func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.URLParamInt64(r, "id")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	var req UpdateCustomerRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	customer, err := h.service.Update(r.Context(), id, req)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, customer)
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	if status, _ := httpx.StatusFor(err); status >= http.StatusInternalServerError {
		h.logger.Error("customer request failed", slog.String("path", r.URL.Path), slog.Any("error", err))
	}
	httpx.RespondError(w, err)
}
