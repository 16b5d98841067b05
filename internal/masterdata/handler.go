package masterdata

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/tillpoint/tillpoint/internal/platform/httpx"
	"github.com/tillpoint/tillpoint/internal/shared"
)

// Handler exposes customer and supplier endpoints.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	validator *validator.Validate
}

// NewHandler constructs a Handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validator: validator.New()}
}

// MountRoutes registers customer and supplier routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Route("/customers", func(r chi.Router) {
		r.Get("/", h.handleListCustomers)
		r.Post("/", h.handleCreateCustomer)
		r.Get("/{id}", h.handleGetCustomer)
		r.Put("/{id}", h.handleUpdateCustomer)
		r.Delete("/{id}", h.handleDeleteCustomer)
	})
	r.Route("/suppliers", func(r chi.Router) {
		r.Get("/", h.handleListSuppliers)
		r.Post("/", h.handleCreateSupplier)
		r.Get("/{id}", h.handleGetSupplier)
		r.Put("/{id}", h.handleUpdateSupplier)
		r.Delete("/{id}", h.handleDeleteSupplier)
	})
}

func pathID(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	return id, err == nil && id > 0
}

func (h *Handler) handleListCustomers(w http.ResponseWriter, r *http.Request) {
	rc, _ := shared.RequestContextFromContext(r.Context())
	list, err := h.service.ListCustomers(r.Context(), rc)
	if err != nil {
		h.respondErr(w, "list customers", err)
		return
	}
	httpx.JSON(w, http.StatusOK, list)
}

func (h *Handler) handleGetCustomer(w http.ResponseWriter, r *http.Request) {
	rc, _ := shared.RequestContextFromContext(r.Context())
	id, ok := pathID(r)
	if !ok {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid customer id")
		return
	}
	c, err := h.service.GetCustomer(r.Context(), rc, id)
	if err != nil {
		h.respondErr(w, "get customer", err)
		return
	}
	httpx.JSON(w, http.StatusOK, c)
}

func (h *Handler) handleCreateCustomer(w http.ResponseWriter, r *http.Request) {
	rc, _ := shared.RequestContextFromContext(r.Context())
	var in CustomerInput
	if err := httpx.DecodeJSON(r, &in); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "malformed JSON body")
		return
	}
	if err := h.validator.Struct(in); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	c, err := h.service.CreateCustomer(r.Context(), rc, in)
	if err != nil {
		h.respondErr(w, "create customer", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, c)
}

func (h *Handler) handleUpdateCustomer(w http.ResponseWriter, r *http.Request) {
	rc, _ := shared.RequestContextFromContext(r.Context())
	id, ok := pathID(r)
	if !ok {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid customer id")
		return
	}
	var in CustomerInput
	if err := httpx.DecodeJSON(r, &in); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "malformed JSON body")
		return
	}
	if err := h.validator.Struct(in); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	c, err := h.service.UpdateCustomer(r.Context(), rc, id, in)
	if err != nil {
		h.respondErr(w, "update customer", err)
		return
	}
	httpx.JSON(w, http.StatusOK, c)
}

func (h *Handler) handleDeleteCustomer(w http.ResponseWriter, r *http.Request) {
	rc, _ := shared.RequestContextFromContext(r.Context())
	id, ok := pathID(r)
	if !ok {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid customer id")
		return
	}
	if err := h.service.DeleteCustomer(r.Context(), rc, id); err != nil {
		h.respondErr(w, "delete customer", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (h *Handler) handleListSuppliers(w http.ResponseWriter, r *http.Request) {
	rc, _ := shared.RequestContextFromContext(r.Context())
	list, err := h.service.ListSuppliers(r.Context(), rc)
	if err != nil {
		h.respondErr(w, "list suppliers", err)
		return
	}
	httpx.JSON(w, http.StatusOK, list)
}

func (h *Handler) handleGetSupplier(w http.ResponseWriter, r *http.Request) {
	rc, _ := shared.RequestContextFromContext(r.Context())
	id, ok := pathID(r)
	if !ok {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid supplier id")
		return
	}
	s, err := h.service.GetSupplier(r.Context(), rc, id)
	if err != nil {
		h.respondErr(w, "get supplier", err)
		return
	}
	httpx.JSON(w, http.StatusOK, s)
}

func (h *Handler) handleCreateSupplier(w http.ResponseWriter, r *http.Request) {
	rc, _ := shared.RequestContextFromContext(r.Context())
	var in SupplierInput
	if err := httpx.DecodeJSON(r, &in); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "malformed JSON body")
		return
	}
	if err := h.validator.Struct(in); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	s, err := h.service.CreateSupplier(r.Context(), rc, in)
	if err != nil {
		h.respondErr(w, "create supplier", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, s)
}

func (h *Handler) handleUpdateSupplier(w http.ResponseWriter, r *http.Request) {
	rc, _ := shared.RequestContextFromContext(r.Context())
	id, ok := pathID(r)
	if !ok {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid supplier id")
		return
	}
	var in SupplierInput
	if err := httpx.DecodeJSON(r, &in); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "malformed JSON body")
		return
	}
	if err := h.validator.Struct(in); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	s, err := h.service.UpdateSupplier(r.Context(), rc, id, in)
	if err != nil {
		h.respondErr(w, "update supplier", err)
		return
	}
	httpx.JSON(w, http.StatusOK, s)
}

func (h *Handler) handleDeleteSupplier(w http.ResponseWriter, r *http.Request) {
	rc, _ := shared.RequestContextFromContext(r.Context())
	id, ok := pathID(r)
	if !ok {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid supplier id")
		return
	}
	if err := h.service.DeleteSupplier(r.Context(), rc, id); err != nil {
		h.respondErr(w, "delete supplier", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (h *Handler) respondErr(w http.ResponseWriter, op string, err error) {
	if h.logger != nil {
		h.logger.Error(op, slog.Any("error", err))
	}
	httpx.RespondError(w, err)
}
