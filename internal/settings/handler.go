package settings

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/tillpoint/tillpoint/internal/authz"
	"github.com/tillpoint/tillpoint/internal/platform/httpx"
	"github.com/tillpoint/tillpoint/internal/shared"
)

// Handler exposes tenant settings endpoints.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	resolver  *authz.Resolver
	validator *validator.Validate
}

// NewHandler constructs a Handler.
func NewHandler(logger *slog.Logger, service *Service, resolver *authz.Resolver) *Handler {
	return &Handler{logger: logger, service: service, resolver: resolver, validator: validator.New()}
}

// MountRoutes registers settings routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.handleGet)
	r.Put("/", h.handleUpdate)
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	rc, _ := shared.RequestContextFromContext(r.Context())
	s, err := h.service.Get(r.Context(), rc)
	if err != nil {
		h.respondErr(w, "get settings", err)
		return
	}
	httpx.JSON(w, http.StatusOK, s)
}

func (h *Handler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	rc, _ := shared.RequestContextFromContext(r.Context())
	var in UpdateInput
	if err := httpx.DecodeJSON(r, &in); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "malformed JSON body")
		return
	}
	if err := h.validator.Struct(in); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	perms, err := h.resolver.Resolve(r.Context(), rc.Role, rc.UserID)
	if err != nil {
		h.respondErr(w, "resolve permissions", err)
		return
	}
	s, err := h.service.Update(r.Context(), rc, perms, in)
	if err != nil {
		h.respondErr(w, "update settings", err)
		return
	}
	httpx.JSON(w, http.StatusOK, s)
}

func (h *Handler) respondErr(w http.ResponseWriter, op string, err error) {
	if h.logger != nil {
		h.logger.Error(op, slog.Any("error", err))
	}
	httpx.RespondError(w, err)
}
