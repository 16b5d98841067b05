package org

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/tillpoint/tillpoint/internal/platform/httpx"
	"github.com/tillpoint/tillpoint/internal/shared"
)

// Handler exposes tenant and department endpoints.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	validator *validator.Validate
}

// NewHandler constructs a Handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validator: validator.New()}
}

// MountRoutes registers org routes; callers mount them behind the tenant
// context middleware.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.handleGetCurrent)
	r.Get("/departments", h.handleListDepartments)
	r.Post("/departments", h.handleCreateDepartment)
	r.Delete("/departments/{id}", h.handleDeleteDepartment)
}

func (h *Handler) handleGetCurrent(w http.ResponseWriter, r *http.Request) {
	rc, _ := shared.RequestContextFromContext(r.Context())
	organization, err := h.service.GetCurrent(r.Context(), rc)
	if err != nil {
		h.respondErr(w, "get organization", err)
		return
	}
	httpx.JSON(w, http.StatusOK, organization)
}

type createDepartmentRequest struct {
	Name string `json:"name" validate:"required"`
}

func (h *Handler) handleCreateDepartment(w http.ResponseWriter, r *http.Request) {
	rc, _ := shared.RequestContextFromContext(r.Context())
	var req createDepartmentRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "malformed JSON body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "name is required")
		return
	}
	department, err := h.service.CreateDepartment(r.Context(), rc, req.Name)
	if err != nil {
		h.respondErr(w, "create department", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, department)
}

func (h *Handler) handleListDepartments(w http.ResponseWriter, r *http.Request) {
	rc, _ := shared.RequestContextFromContext(r.Context())
	departments, err := h.service.ListDepartments(r.Context(), rc)
	if err != nil {
		h.respondErr(w, "list departments", err)
		return
	}
	httpx.JSON(w, http.StatusOK, departments)
}

func (h *Handler) handleDeleteDepartment(w http.ResponseWriter, r *http.Request) {
	rc, _ := shared.RequestContextFromContext(r.Context())
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid department id")
		return
	}
	if err := h.service.DeleteDepartment(r.Context(), rc, id); err != nil {
		h.respondErr(w, "delete department", err)
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
