package handler

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"contribution-metrics/internal/contributor/models"
	"contribution-metrics/internal/contributor/service"
	id "contribution-metrics/pkg/domain"
	dErrors "contribution-metrics/pkg/domain-errors"
	"contribution-metrics/pkg/platform/httputil"
	"contribution-metrics/pkg/requestcontext"
)

// Service is the contributor application service as seen by HTTP.
type Service interface {
	CreateContributor(ctx context.Context, params service.CreateParams) (*models.Contributor, error)
	ListContributors(ctx context.Context, params service.ListParams) (*models.Page, error)
	GetContributor(ctx context.Context, contributorID id.ContributorID) (*models.Contributor, error)
	GetContributorByUsername(ctx context.Context, username string) (*models.Contributor, error)
	UpdateContributor(ctx context.Context, contributorID id.ContributorID, params service.UpdateParams) (*models.Contributor, error)
	LinkToUser(ctx context.Context, contributorID id.ContributorID, userID id.UserID) (*models.Contributor, error)
	UnlinkFromUser(ctx context.Context, contributorID id.ContributorID) (*models.Contributor, error)
	DeleteContributor(ctx context.Context, contributorID id.ContributorID) error
}

// Handler serves /api/github-contributors.
type Handler struct {
	contributors Service
	logger       *slog.Logger
}

func New(contributors Service, logger *slog.Logger) *Handler {
	return &Handler{contributors: contributors, logger: logger}
}

func (h *Handler) Register(r chi.Router) {
	r.Route("/api/github-contributors", func(r chi.Router) {
		r.Get("/", h.handleList)
		r.Post("/", h.handleCreate)
		r.Get("/username/{username}", h.handleGetByUsername)
		r.Get("/{id}", h.handleGet)
		r.Put("/{id}", h.handleUpdate)
		r.Delete("/{id}", h.handleDelete)
		r.Put("/{id}/user", h.handleLink)
		r.Delete("/{id}/user", h.handleUnlink)
	})
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	params, err := listParams(r)
	if err != nil {
		h.writeError(ctx, w, "invalid list contributors query", err)
		return
	}
	page, err := h.contributors.ListContributors(ctx, params)
	if err != nil {
		h.writeError(ctx, w, "failed to list contributors", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, page)
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req createContributorRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		h.writeError(ctx, w, "invalid create contributor request", err)
		return
	}
	c, err := h.contributors.CreateContributor(ctx, req.toParams())
	if err != nil {
		h.writeError(ctx, w, "failed to create contributor", err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, c)
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	contributorID, ok := h.parseID(w, r)
	if !ok {
		return
	}
	c, err := h.contributors.GetContributor(ctx, contributorID)
	if err != nil {
		h.writeError(ctx, w, "failed to get contributor", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, c)
}

func (h *Handler) handleGetByUsername(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	c, err := h.contributors.GetContributorByUsername(ctx, chi.URLParam(r, "username"))
	if err != nil {
		h.writeError(ctx, w, "failed to get contributor by username", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, c)
}

func (h *Handler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	contributorID, ok := h.parseID(w, r)
	if !ok {
		return
	}
	var req updateContributorRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		h.writeError(ctx, w, "invalid update contributor request", err)
		return
	}
	c, err := h.contributors.UpdateContributor(ctx, contributorID, req.toParams())
	if err != nil {
		h.writeError(ctx, w, "failed to update contributor", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, c)
}

func (h *Handler) handleLink(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	contributorID, ok := h.parseID(w, r)
	if !ok {
		return
	}
	var req linkUserRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		h.writeError(ctx, w, "invalid link user request", err)
		return
	}
	c, err := h.contributors.LinkToUser(ctx, contributorID, req.UserID)
	if err != nil {
		h.writeError(ctx, w, "failed to link contributor", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, c)
}

func (h *Handler) handleUnlink(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	contributorID, ok := h.parseID(w, r)
	if !ok {
		return
	}
	c, err := h.contributors.UnlinkFromUser(ctx, contributorID)
	if err != nil {
		h.writeError(ctx, w, "failed to unlink contributor", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, c)
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	contributorID, ok := h.parseID(w, r)
	if !ok {
		return
	}
	if err := h.contributors.DeleteContributor(ctx, contributorID); err != nil {
		h.writeError(ctx, w, "failed to delete contributor", err)
		return
	}
	httputil.WriteNoContent(w)
}

func listParams(r *http.Request) (service.ListParams, error) {
	q := r.URL.Query()
	params := service.ListParams{
		Username: q.Get("username"),
		Email:    q.Get("email"),
	}
	if raw := q.Get("userId"); raw != "" {
		userID, err := id.ParseUserID(raw)
		if err != nil {
			return service.ListParams{}, err
		}
		params.UserID = &userID
	}
	var err error
	if params.Limit, err = intParam(q.Get("limit"), "limit"); err != nil {
		return service.ListParams{}, err
	}
	if params.Offset, err = intParam(q.Get("offset"), "offset"); err != nil {
		return service.ListParams{}, err
	}
	return params, nil
}

func intParam(raw, name string) (*int, error) {
	if raw == "" {
		return nil, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return nil, dErrors.New(dErrors.CodeValidation, fmt.Sprintf("%s must be an integer", name))
	}
	return &n, nil
}

func (h *Handler) parseID(w http.ResponseWriter, r *http.Request) (id.ContributorID, bool) {
	contributorID, err := id.ParseContributorID(chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(r.Context(), w, "invalid contributor id", err)
		return id.ContributorID{}, false
	}
	return contributorID, true
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
