package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	syncmodels "contribution-metrics/internal/githubsync/models"
	"contribution-metrics/internal/organization/models"
	"contribution-metrics/internal/organization/service"
	id "contribution-metrics/pkg/domain"
	dErrors "contribution-metrics/pkg/domain-errors"
	"contribution-metrics/pkg/platform/httputil"
	"contribution-metrics/pkg/platform/middleware/admin"
	"contribution-metrics/pkg/requestcontext"
)

// Service is the organization application service as seen by HTTP.
type Service interface {
	CreateOrganization(ctx context.Context, params service.CreateParams) (*models.Organization, error)
	ListOrganizations(ctx context.Context) ([]*models.Organization, error)
	GetOrganization(ctx context.Context, orgID id.OrganizationID) (*models.Organization, error)
	GetOrganizationByName(ctx context.Context, name string) (*models.Organization, error)
	UpdateOrganization(ctx context.Context, orgID id.OrganizationID, params service.UpdateParams) (*models.Organization, error)
	DeleteOrganization(ctx context.Context, orgID id.OrganizationID) error
}

// Syncer runs GitHub-backed operations for a registered organization.
type Syncer interface {
	SyncOrganization(ctx context.Context, orgID id.OrganizationID) (*syncmodels.Report, error)
	RefreshToken(ctx context.Context, orgID id.OrganizationID) (*models.Organization, error)
}

// Handler serves /api/github-organizations. Responses never carry the access
// token.
type Handler struct {
	orgs       Service
	syncer     Syncer
	adminToken string
	logger     *slog.Logger
}

type Option func(*Handler)

// WithAdminToken guards mutating routes with X-Admin-Token.
func WithAdminToken(token string) Option {
	return func(h *Handler) {
		h.adminToken = token
	}
}

func WithSyncer(s Syncer) Option {
	return func(h *Handler) {
		h.syncer = s
	}
}

func New(orgs Service, logger *slog.Logger, opts ...Option) *Handler {
	h := &Handler{orgs: orgs, logger: logger}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

func (h *Handler) Register(r chi.Router) {
	r.Route("/api/github-organizations", func(r chi.Router) {
		r.Get("/", h.handleList)
		r.Get("/name/{name}", h.handleGetByName)
		r.Get("/{id}", h.handleGet)

		r.Group(func(r chi.Router) {
			r.Use(admin.RequireAdminToken(h.adminToken, h.logger))
			r.Post("/", h.handleCreate)
			r.Put("/{id}", h.handleUpdate)
			r.Delete("/{id}", h.handleDelete)
			r.Post("/{id}/sync", h.handleSync)
			r.Post("/{id}/token/refresh", h.handleRefreshToken)
		})
	})
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	orgs, err := h.orgs.ListOrganizations(ctx)
	if err != nil {
		h.writeError(ctx, w, "failed to list organizations", err)
		return
	}
	now := requestcontext.Now(ctx)
	views := make([]models.View, 0, len(orgs))
	for _, org := range orgs {
		views = append(views, org.View(now))
	}
	httputil.WriteJSON(w, http.StatusOK, views)
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req createOrganizationRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		h.writeError(ctx, w, "invalid create organization request", err)
		return
	}
	org, err := h.orgs.CreateOrganization(ctx, req.toParams())
	if err != nil {
		h.writeError(ctx, w, "failed to create organization", err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, org.View(requestcontext.Now(ctx)))
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	orgID, ok := h.parseID(w, r)
	if !ok {
		return
	}
	org, err := h.orgs.GetOrganization(ctx, orgID)
	if err != nil {
		h.writeError(ctx, w, "failed to get organization", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, org.View(requestcontext.Now(ctx)))
}

func (h *Handler) handleGetByName(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	org, err := h.orgs.GetOrganizationByName(ctx, chi.URLParam(r, "name"))
	if err != nil {
		h.writeError(ctx, w, "failed to get organization by name", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, org.View(requestcontext.Now(ctx)))
}

func (h *Handler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	orgID, ok := h.parseID(w, r)
	if !ok {
		return
	}
	var req updateOrganizationRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		h.writeError(ctx, w, "invalid update organization request", err)
		return
	}
	org, err := h.orgs.UpdateOrganization(ctx, orgID, req.toParams())
	if err != nil {
		h.writeError(ctx, w, "failed to update organization", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, org.View(requestcontext.Now(ctx)))
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	orgID, ok := h.parseID(w, r)
	if !ok {
		return
	}
	if err := h.orgs.DeleteOrganization(ctx, orgID); err != nil {
		h.writeError(ctx, w, "failed to delete organization", err)
		return
	}
	httputil.WriteNoContent(w)
}

func (h *Handler) handleSync(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	orgID, ok := h.parseID(w, r)
	if !ok {
		return
	}
	if h.syncer == nil {
		h.writeError(ctx, w, "sync requested without github integration", errSyncDisabled())
		return
	}
	report, err := h.syncer.SyncOrganization(ctx, orgID)
	if err != nil {
		h.writeError(ctx, w, "failed to sync organization", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, report)
}

func (h *Handler) handleRefreshToken(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	orgID, ok := h.parseID(w, r)
	if !ok {
		return
	}
	if h.syncer == nil {
		h.writeError(ctx, w, "token refresh requested without github integration", errSyncDisabled())
		return
	}
	org, err := h.syncer.RefreshToken(ctx, orgID)
	if err != nil {
		h.writeError(ctx, w, "failed to refresh organization token", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, org.View(requestcontext.Now(ctx)))
}

func (h *Handler) parseID(w http.ResponseWriter, r *http.Request) (id.OrganizationID, bool) {
	orgID, err := id.ParseOrganizationID(chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(r.Context(), w, "invalid organization id", err)
		return id.OrganizationID{}, false
	}
	return orgID, true
}

func (h *Handler) writeError(ctx context.Context, w http.ResponseWriter, msg string, err error) {
	level := slog.LevelWarn
	if code := dErrors.CodeOf(err); code == dErrors.CodeInternal || code == dErrors.CodeUnavailable {
		level = slog.LevelError
	}
	h.logger.Log(ctx, level, msg,
		"request_id", requestcontext.RequestID(ctx),
		"error", err.Error(),
	)
	httputil.WriteError(w, err)
}

func errSyncDisabled() error {
	return dErrors.New(dErrors.CodeUnavailable, "GitHub integration is not configured")
}
