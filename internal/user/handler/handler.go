package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"contribution-metrics/internal/user/models"
	id "contribution-metrics/pkg/domain"
	dErrors "contribution-metrics/pkg/domain-errors"
	"contribution-metrics/pkg/platform/httputil"
	"contribution-metrics/pkg/requestcontext"
)

// Service is the user application service as seen by HTTP.
type Service interface {
	CreateUser(ctx context.Context, params models.NewUserParams) (*models.User, error)
	ListUsers(ctx context.Context) ([]*models.User, error)
	GetUser(ctx context.Context, userID id.UserID) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	UpdateUser(ctx context.Context, userID id.UserID, upd models.ProfileUpdate) (*models.User, error)
	UpdateUserEmail(ctx context.Context, userID id.UserID, email string) (*models.User, error)
	DeleteUser(ctx context.Context, userID id.UserID) error
	ListReports(ctx context.Context, managerID id.UserID) ([]*models.User, error)
}

// Handler serves /api/users.
type Handler struct {
	users  Service
	logger *slog.Logger
}

func New(users Service, logger *slog.Logger) *Handler {
	return &Handler{users: users, logger: logger}
}

func (h *Handler) Register(r chi.Router) {
	r.Route("/api/users", func(r chi.Router) {
		r.Get("/", h.handleList)
		r.Post("/", h.handleCreate)
		r.Get("/email/{email}", h.handleGetByEmail)
		r.Get("/{id}", h.handleGet)
		r.Put("/{id}", h.handleUpdate)
		r.Delete("/{id}", h.handleDelete)
		r.Put("/{id}/email", h.handleUpdateEmail)
		r.Get("/{id}/reports", h.handleReports)
	})
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	users, err := h.users.ListUsers(r.Context())
	if err != nil {
		h.writeError(r.Context(), w, "failed to list users", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, users)
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req createUserRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		h.writeError(ctx, w, "invalid create user request", err)
		return
	}
	user, err := h.users.CreateUser(ctx, req.toParams())
	if err != nil {
		h.writeError(ctx, w, "failed to create user", err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, user)
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID, err := id.ParseUserID(chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(ctx, w, "invalid user id", err)
		return
	}
	user, err := h.users.GetUser(ctx, userID)
	if err != nil {
		h.writeError(ctx, w, "failed to get user", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, user)
}

func (h *Handler) handleGetByEmail(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	user, err := h.users.GetUserByEmail(ctx, chi.URLParam(r, "email"))
	if err != nil {
		h.writeError(ctx, w, "failed to get user by email", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, user)
}

func (h *Handler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID, err := id.ParseUserID(chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(ctx, w, "invalid user id", err)
		return
	}
	var req updateUserRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		h.writeError(ctx, w, "invalid update user request", err)
		return
	}
	user, err := h.users.UpdateUser(ctx, userID, req.toUpdate())
	if err != nil {
		h.writeError(ctx, w, "failed to update user", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, user)
}

func (h *Handler) handleUpdateEmail(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID, err := id.ParseUserID(chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(ctx, w, "invalid user id", err)
		return
	}
	var req updateEmailRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		h.writeError(ctx, w, "invalid update email request", err)
		return
	}
	user, err := h.users.UpdateUserEmail(ctx, userID, req.Email)
	if err != nil {
		h.writeError(ctx, w, "failed to update user email", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, user)
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID, err := id.ParseUserID(chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(ctx, w, "invalid user id", err)
		return
	}
	if err := h.users.DeleteUser(ctx, userID); err != nil {
		h.writeError(ctx, w, "failed to delete user", err)
		return
	}
	httputil.WriteNoContent(w)
}

func (h *Handler) handleReports(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	managerID, err := id.ParseUserID(chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(ctx, w, "invalid manager id", err)
		return
	}
	reports, err := h.users.ListReports(ctx, managerID)
	if err != nil {
		h.writeError(ctx, w, "failed to list reports", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, reports)
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
