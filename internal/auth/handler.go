package auth

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httprate"
	"github.com/go-playground/validator/v10"

	"github.com/portalkota/portalkota/internal/authz"
	"github.com/portalkota/portalkota/internal/platform/httpx"
	"github.com/portalkota/portalkota/internal/shared"
)

// LoginObserver records login attempt outcomes for metrics.
type LoginObserver interface {
	ObserveLogin(result string)
}

// Handler wires HTTP endpoints for authentication flows.
type Handler struct {
	logger         *slog.Logger
	service        *Service
	sessionManager *shared.SessionManager
	validator      *validator.Validate
	observer       LoginObserver
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, service *Service, sessions *shared.SessionManager) *Handler {
	return &Handler{
		logger:         logger,
		service:        service,
		sessionManager: sessions,
		validator:      validator.New(),
	}
}

// SetLoginObserver installs an optional metrics hook for login outcomes.
func (h *Handler) SetLoginObserver(obs LoginObserver) {
	h.observer = obs
}

func (h *Handler) observe(result string) {
	if h.observer != nil {
		h.observer.ObserveLogin(result)
	}
}

// MountRoutes registers auth routes on provided router. Login gets its own
// tight rate limit on top of the global one.
func (h *Handler) MountRoutes(r chi.Router) {
	r.With(httprate.Limit(10, time.Minute, httprate.WithKeyFuncs(httprate.KeyByIP))).
		Post("/login", h.handleLogin)
	r.Post("/logout", h.handleLogout)
	r.Get("/session", h.handleSession)
	r.Post("/refresh", h.handleRefresh)
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
}

type identityResponse struct {
	UserID    int64      `json:"user_id"`
	Role      string     `json:"role"`
	RoleLabel string     `json:"role_label"`
	Pages     []pageInfo `json:"pages"`
}

type pageInfo struct {
	Code  string `json:"code"`
	Label string `json:"label"`
}

func toIdentityResponse(id authz.Identity) identityResponse {
	pages := make([]pageInfo, 0, len(id.Pages))
	for _, p := range id.Pages.Sorted() {
		pages = append(pages, pageInfo{Code: string(p), Label: p.Label()})
	}
	return identityResponse{
		UserID:    id.UserID,
		Role:      string(id.Role),
		RoleLabel: id.Role.Label(),
		Pages:     pages,
	}
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	sess := shared.SessionFromContext(r.Context())
	if sess == nil {
		h.logger.Error("session missing during login")
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}

	var req loginRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Payload", "body must be valid JSON")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "Email atau password tidak valid")
		return
	}

	user, err := h.service.Authenticate(r.Context(), req.Email, req.Password)
	if err != nil {
		h.observe("invalid")
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "Email atau password tidak valid")
		return
	}

	identity, err := h.service.BuildIdentity(r.Context(), user.ID)
	if err != nil {
		h.logger.Error("build identity", slog.Any("error", err))
		h.observe("denied")
		httpx.RespondError(w, httpx.ErrForbidden)
		return
	}
	h.observe("success")

	sess.SetIdentity(strconv.FormatInt(identity.UserID, 10), string(identity.Role), pageCodes(identity))

	expiresAt := time.Now().Add(h.sessionManager.TTL())
	if sess.ID != "" {
		if err := h.service.RegisterSession(r.Context(), sess.ID, user.ID, expiresAt, r.RemoteAddr, r.UserAgent()); err != nil {
			h.logger.Warn("register session", slog.Any("error", err))
		}
	}
	httpx.JSON(w, http.StatusOK, toIdentityResponse(identity))
}

func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	sess := shared.SessionFromContext(r.Context())
	if sess != nil {
		if err := h.service.RemoveSession(r.Context(), sess.ID); err != nil {
			h.logger.Warn("remove session", slog.Any("error", err))
		}
		h.sessionManager.Destroy(sess)
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleSession reports the cached identity for the current session.
func (h *Handler) handleSession(w http.ResponseWriter, r *http.Request) {
	identity, ok := authz.IdentityFromSession(shared.SessionFromContext(r.Context()))
	if !ok {
		httpx.RespondError(w, httpx.ErrUnauthorized)
		return
	}
	httpx.JSON(w, http.StatusOK, toIdentityResponse(identity))
}

// handleRefresh re-materializes role and grants from the store and replaces
// the session identity wholesale.
func (h *Handler) handleRefresh(w http.ResponseWriter, r *http.Request) {
	sess := shared.SessionFromContext(r.Context())
	identity, ok := authz.IdentityFromSession(sess)
	if !ok {
		httpx.RespondError(w, httpx.ErrUnauthorized)
		return
	}
	fresh, err := h.service.BuildIdentity(r.Context(), identity.UserID)
	if err != nil {
		if errors.Is(err, shared.ErrPermissionDenied) {
			httpx.RespondError(w, httpx.ErrForbidden)
			return
		}
		h.logger.Error("refresh identity", slog.Any("error", err))
		httpx.RespondError(w, httpx.ErrForbidden)
		return
	}
	sess.SetIdentity(strconv.FormatInt(fresh.UserID, 10), string(fresh.Role), pageCodes(fresh))
	httpx.JSON(w, http.StatusOK, toIdentityResponse(fresh))
}

func pageCodes(id authz.Identity) []string {
	codes := make([]string, 0, len(id.Pages))
	for _, p := range id.Pages.Sorted() {
		codes = append(codes, string(p))
	}
	return codes
}

// HandleLoginForTest exposes the login handler for tests.
func (h *Handler) HandleLoginForTest(w http.ResponseWriter, r *http.Request) {
	h.handleLogin(w, r)
}

// HandleSessionForTest exposes the session handler for tests.
func (h *Handler) HandleSessionForTest(w http.ResponseWriter, r *http.Request) {
	h.handleSession(w, r)
}

// HandleRefreshForTest exposes the refresh handler for tests.
func (h *Handler) HandleRefreshForTest(w http.ResponseWriter, r *http.Request) {
	h.handleRefresh(w, r)
}
