package users

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/portalkota/portalkota/internal/authz"
	"github.com/portalkota/portalkota/internal/platform/httpx"
	"github.com/portalkota/portalkota/internal/shared"
)

// Handler manages user management endpoints.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	guard     authz.Middleware
	validator *validator.Validate
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service, guard authz.Middleware) *Handler {
	return &Handler{logger: logger, service: service, guard: guard, validator: validator.New()}
}

// MountRoutes registers user management routes. The page guard is the coarse
// first line; the service re-checks every predicate per request.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.guard.RequirePage(authz.PageUserManagement))
		r.Get("/", h.listUsers)
		r.Post("/", h.createUser)
		r.Get("/options", h.creationOptions)
		r.Get("/{userID}", h.getUser)
		r.Put("/{userID}", h.updateUser)
		r.Delete("/{userID}", h.deleteUser)
		r.Post("/{userID}/password", h.resetPassword)
		r.Get("/{userID}/grants", h.listGrants)
		r.Put("/{userID}/grants", h.replaceGrants)
	})
}

type userResponse struct {
	ID        int64     `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	Role      string    `json:"role"`
	RoleLabel string    `json:"role_label"`
	IsActive  bool      `json:"is_active"`
	CreatedBy *int64    `json:"created_by,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func toUserResponse(u *User) userResponse {
	return userResponse{
		ID:        u.ID,
		Email:     u.Email,
		Name:      u.Name,
		Role:      string(u.Role),
		RoleLabel: u.Role.Label(),
		IsActive:  u.IsActive,
		CreatedBy: u.CreatedBy,
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
	}
}

func (h *Handler) listUsers(w http.ResponseWriter, r *http.Request) {
	actor, ok := authz.IdentityFromSession(shared.SessionFromContext(r.Context()))
	if !ok {
		httpx.RespondError(w, httpx.ErrUnauthorized)
		return
	}
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	perPage, _ := strconv.Atoi(r.URL.Query().Get("per_page"))

	visible, pagination, err := h.service.List(r.Context(), actor, page, perPage)
	if err != nil {
		h.respondServiceError(w, "list users", err)
		return
	}
	items := make([]userResponse, 0, len(visible))
	for i := range visible {
		items = append(items, toUserResponse(&visible[i]))
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"items":       items,
		"page":        pagination.Page,
		"per_page":    pagination.PerPage,
		"total":       pagination.Total,
		"total_pages": pagination.TotalPages,
	})
}

type createUserRequest struct {
	Email    string   `json:"email" validate:"required,email"`
	Name     string   `json:"name" validate:"required,min=3"`
	Password string   `json:"password" validate:"required,min=8"`
	Role     string   `json:"role" validate:"required"`
	Pages    []string `json:"pages" validate:"dive,min=1"`
}

func (h *Handler) createUser(w http.ResponseWriter, r *http.Request) {
	actor, ok := authz.IdentityFromSession(shared.SessionFromContext(r.Context()))
	if !ok {
		httpx.RespondError(w, httpx.ErrUnauthorized)
		return
	}
	var req createUserRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Payload", "body must be valid JSON")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	role, ok := authz.ParseRole(req.Role)
	if !ok {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "unknown role")
		return
	}

	user, err := h.service.Create(r.Context(), actor, CreateInput{
		Email:    req.Email,
		Name:     req.Name,
		Password: req.Password,
		Role:     role,
		Pages:    toPages(req.Pages),
	})
	if err != nil {
		h.respondServiceError(w, "create user", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, toUserResponse(user))
}

// creationOptions reports what the acting role may provision: the creatable
// roles and the page category it assigns from. The UI renders its forms from
// this instead of re-deriving the rules.
func (h *Handler) creationOptions(w http.ResponseWriter, r *http.Request) {
	actor, ok := authz.IdentityFromSession(shared.SessionFromContext(r.Context()))
	if !ok {
		httpx.RespondError(w, httpx.ErrUnauthorized)
		return
	}
	roles := make([]string, 0, 1)
	for _, role := range authz.CreatableRoles(actor.Role) {
		roles = append(roles, string(role))
	}
	payload := map[string]any{"creatable_roles": roles}
	if category, ok := authz.AssignableCategory(actor.Role); ok {
		pages := authz.CategoryPages(category)
		if actor.Role == authz.RoleAdminUnit {
			// An admin_unit only delegates from its own grant set.
			held := make([]authz.Page, 0, len(pages))
			for _, p := range pages {
				if actor.Pages.Has(p) {
					held = append(held, p)
				}
			}
			pages = held
		}
		options := make([]map[string]string, 0, len(pages))
		for _, p := range pages {
			options = append(options, map[string]string{"code": string(p), "label": p.Label()})
		}
		payload["category"] = string(category)
		payload["pages"] = options
	}
	httpx.JSON(w, http.StatusOK, payload)
}

func (h *Handler) getUser(w http.ResponseWriter, r *http.Request) {
	actor, id, ok := h.actorAndTarget(w, r)
	if !ok {
		return
	}
	user, rights, err := h.service.Get(r.Context(), actor, id)
	if err != nil {
		h.respondServiceError(w, "get user", err)
		return
	}
	grants, err := h.service.Grants(r.Context(), actor, id)
	if err != nil {
		h.respondServiceError(w, "get user grants", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"user":   toUserResponse(user),
		"grants": grants,
		"rights": map[string]bool{
			"view":           rights.View,
			"edit_profile":   rights.EditProfile,
			"edit_role":      rights.EditRole,
			"edit_grants":    rights.EditGrants,
			"delete":         rights.Delete,
			"reset_password": rights.ResetPassword,
		},
	})
}

type updateUserRequest struct {
	Name     *string `json:"name" validate:"omitempty,min=3"`
	IsActive *bool   `json:"is_active"`
	Role     *string `json:"role"`
}

func (h *Handler) updateUser(w http.ResponseWriter, r *http.Request) {
	actor, id, ok := h.actorAndTarget(w, r)
	if !ok {
		return
	}
	var req updateUserRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Payload", "body must be valid JSON")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	in := UpdateInput{Name: req.Name, IsActive: req.IsActive}
	if req.Role != nil {
		role, ok := authz.ParseRole(*req.Role)
		if !ok {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "unknown role")
			return
		}
		in.Role = &role
	}
	user, err := h.service.Update(r.Context(), actor, id, in)
	if err != nil {
		h.respondServiceError(w, "update user", err)
		return
	}
	httpx.JSON(w, http.StatusOK, toUserResponse(user))
}

func (h *Handler) deleteUser(w http.ResponseWriter, r *http.Request) {
	actor, id, ok := h.actorAndTarget(w, r)
	if !ok {
		return
	}
	if err := h.service.Delete(r.Context(), actor, id); err != nil {
		h.respondServiceError(w, "delete user", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type resetPasswordRequest struct {
	Password string `json:"password" validate:"required,min=8"`
}

func (h *Handler) resetPassword(w http.ResponseWriter, r *http.Request) {
	actor, id, ok := h.actorAndTarget(w, r)
	if !ok {
		return
	}
	var req resetPasswordRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Payload", "body must be valid JSON")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	if err := h.service.ResetPassword(r.Context(), actor, id, req.Password); err != nil {
		h.respondServiceError(w, "reset password", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) listGrants(w http.ResponseWriter, r *http.Request) {
	actor, id, ok := h.actorAndTarget(w, r)
	if !ok {
		return
	}
	grants, err := h.service.Grants(r.Context(), actor, id)
	if err != nil {
		h.respondServiceError(w, "list grants", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"grants": grants})
}

type replaceGrantsRequest struct {
	Pages []string `json:"pages"`
}

func (h *Handler) replaceGrants(w http.ResponseWriter, r *http.Request) {
	actor, id, ok := h.actorAndTarget(w, r)
	if !ok {
		return
	}
	var req replaceGrantsRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Payload", "body must be valid JSON")
		return
	}
	grants, err := h.service.ReplaceGrants(r.Context(), actor, id, toPages(req.Pages))
	if err != nil {
		h.respondServiceError(w, "replace grants", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"grants": grants})
}

func (h *Handler) actorAndTarget(w http.ResponseWriter, r *http.Request) (authz.Identity, int64, bool) {
	actor, ok := authz.IdentityFromSession(shared.SessionFromContext(r.Context()))
	if !ok {
		httpx.RespondError(w, httpx.ErrUnauthorized)
		return authz.Identity{}, 0, false
	}
	id, err := strconv.ParseInt(chi.URLParam(r, "userID"), 10, 64)
	if err != nil || id <= 0 {
		httpx.RespondError(w, httpx.ErrForbidden)
		return authz.Identity{}, 0, false
	}
	return actor, id, true
}

// respondServiceError maps service errors onto problem responses. Denials and
// missing rows share one answer so callers cannot probe for existence.
func (h *Handler) respondServiceError(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, shared.ErrAuthenticationRequired):
		httpx.RespondError(w, httpx.ErrUnauthorized)
	case errors.Is(err, shared.ErrPermissionDenied):
		httpx.RespondError(w, httpx.ErrForbidden)
	case errors.Is(err, shared.ErrUpstreamUnavailable):
		if h.logger != nil {
			h.logger.Error(op, slog.Any("error", err))
		}
		httpx.RespondError(w, httpx.ErrForbidden)
	case errors.Is(err, ErrDuplicateEmail):
		httpx.RespondError(w, httpx.ErrDuplicate)
	case errors.Is(err, ErrUnknownPage):
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
	default:
		if h.logger != nil {
			h.logger.Error(op, slog.Any("error", err))
		}
		httpx.RespondError(w, err)
	}
}

func toPages(codes []string) []authz.Page {
	pages := make([]authz.Page, len(codes))
	for i, c := range codes {
		pages[i] = authz.Page(c)
	}
	return pages
}
