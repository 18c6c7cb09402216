package exchange

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"
	"mime/multipart"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/carecrm/carecrm/internal/platform/httpx"
	"github.com/carecrm/carecrm/internal/shared"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// Handler exposes /export and /import.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	maxBytes int64
}

// NewHandler constructs Handler. maxBytes caps the multipart upload.
func NewHandler(logger *slog.Logger, service *Service, maxBytes int64) *Handler {
	if maxBytes <= 0 {
		maxBytes = 10 << 20
	}
	return &Handler{logger: logger, service: service, maxBytes: maxBytes}
}

func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/export/orders", h.ExportOrders)
	r.Get("/export/customers", h.ExportCustomers)
	r.Post("/import/orders", h.ImportOrders)
	r.Post("/import/customers", h.ImportCustomers)
}

func (h *Handler) ExportOrders(w http.ResponseWriter, r *http.Request) {
	var buf bytes.Buffer
	if err := h.service.ExportOrders(r.Context(), &buf); err != nil {
		h.fail(w, r, err)
		return
	}
	h.attachment(w, "orders", &buf)
}

func (h *Handler) ExportCustomers(w http.ResponseWriter, r *http.Request) {
	var buf bytes.Buffer
	if err := h.service.ExportCustomers(r.Context(), &buf); err != nil {
		h.fail(w, r, err)
		return
	}
	h.attachment(w, "customers", &buf)
}

func (h *Handler) attachment(w http.ResponseWriter, name string, buf *bytes.Buffer) {
	filename := fmt.Sprintf("%s-%s.xlsx", name, time.Now().In(h.service.loc).Format("20060102"))
	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
}

func (h *Handler) ImportOrders(w http.ResponseWriter, r *http.Request) {
	file, err := h.upload(w, r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	defer file.Close()
	result, err := h.service.ImportOrders(r.Context(), file)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.logger.Info("orders imported", slog.Int("count", result.Count), slog.Int("skipped", len(result.Skipped)))
	httpx.JSON(w, http.StatusOK, result)
}

func (h *Handler) ImportCustomers(w http.ResponseWriter, r *http.Request) {
	file, err := h.upload(w, r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	defer file.Close()
	result, err := h.service.ImportCustomers(r.Context(), file)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.logger.Info("customers imported", slog.Int("count", result.Count), slog.Int("skipped", len(result.Skipped)))
	httpx.JSON(w, http.StatusOK, result)
}

func (h *Handler) upload(w http.ResponseWriter, r *http.Request) (multipart.File, error) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxBytes)
	if err := r.ParseMultipartForm(h.maxBytes); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, shared.Validation("file", "file is too large")
		}
		return nil, shared.Validation("file", "file is required")
	}
	file, _, err := r.FormFile("file")
	if err != nil {
		return nil, shared.Validation("file", "file is required")
	}
	return file, nil
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	if IsFileError(err) {
		httpx.Problem(w, http.StatusBadRequest, "Invalid File", err.Error())
		return
	}
	if status, _ := httpx.StatusFor(err); status >= http.StatusInternalServerError {
		h.logger.Error("exchange request failed", slog.String("path", r.URL.Path), slog.Any("error", err))
	}
	httpx.RespondError(w, err)
}
