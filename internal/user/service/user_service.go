package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.opentelemetry.io/otel/attribute"

	"contribution-metrics/internal/platform/events"
	"contribution-metrics/internal/user/models"
	id "contribution-metrics/pkg/domain"
	dErrors "contribution-metrics/pkg/domain-errors"
	"contribution-metrics/pkg/email"
	"contribution-metrics/pkg/platform/sentinel"
	"contribution-metrics/pkg/platform/tracing"
	"contribution-metrics/pkg/requestcontext"
)

func (s *Service) CreateUser(ctx context.Context, params models.NewUserParams) (_ *models.User, err error) {
	ctx, span := tracing.Start(ctx, s.tracer, "user.CreateUser")
	defer tracing.End(span, &err)

	if strings.TrimSpace(params.Email) == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "Email is required")
	}
	if strings.TrimSpace(params.Name) == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "Name is required")
	}
	normalized := email.Normalize(params.Email)
	duplicate := dErrors.New(dErrors.CodeValidation, fmt.Sprintf("User with email '%s' already exists", normalized))

	if _, err := s.findByEmail(ctx, normalized); err == nil {
		return nil, duplicate
	} else if !errors.Is(err, sentinel.ErrNotFound) {
		return nil, wrapStoreErr(err, "failed to check email")
	}
	if params.ManagerID != nil {
		if err := s.requireManager(ctx, *params.ManagerID); err != nil {
			return nil, err
		}
	}

	user, err := models.NewUser(id.NewUserID(), params, requestcontext.Now(ctx))
	if err != nil {
		return nil, invalid(err)
	}

	done := s.observe("create")
	err = s.users.Create(ctx, user)
	done()
	if err != nil {
		if errors.Is(err, sentinel.ErrAlreadyUsed) {
			return nil, duplicate
		}
		return nil, wrapStoreErr(err, "failed to create user")
	}

	s.logger.InfoContext(ctx, "user created",
		"user_id", user.ID.String(),
		"request_id", requestcontext.RequestID(ctx),
	)
	s.emit(ctx, events.UserCreated, user)
	if s.metrics != nil {
		s.metrics.IncrementUsers()
	}
	return user, nil
}

func (s *Service) ListUsers(ctx context.Context) (_ []*models.User, err error) {
	ctx, span := tracing.Start(ctx, s.tracer, "user.ListUsers")
	defer tracing.End(span, &err)

	done := s.observe("list")
	users, err := s.users.List(ctx)
	done()
	if err != nil {
		return nil, wrapStoreErr(err, "failed to fetch users")
	}
	return users, nil
}

func (s *Service) GetUser(ctx context.Context, userID id.UserID) (_ *models.User, err error) {
	ctx, span := tracing.Start(ctx, s.tracer, "user.GetUser", attribute.String("user.id", userID.String()))
	defer tracing.End(span, &err)

	if userID.IsNil() {
		return nil, dErrors.New(dErrors.CodeValidation, "User ID cannot be empty")
	}
	done := s.observe("find_by_id")
	user, err := s.users.FindByID(ctx, userID)
	done()
	if err != nil {
		return nil, s.notFoundOr(err, userID)
	}
	return user, nil
}

func (s *Service) GetUserByEmail(ctx context.Context, address string) (_ *models.User, err error) {
	ctx, span := tracing.Start(ctx, s.tracer, "user.GetUserByEmail")
	defer tracing.End(span, &err)

	if strings.TrimSpace(address) == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "Email cannot be empty")
	}
	normalized := email.Normalize(address)
	user, err := s.findByEmail(ctx, normalized)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, fmt.Sprintf("User with email '%s' not found", normalized))
		}
		return nil, wrapStoreErr(err, "failed to fetch user")
	}
	return user, nil
}

// UpdateUser applies a profile update. The email address is changed only
// through UpdateUserEmail.
func (s *Service) UpdateUser(ctx context.Context, userID id.UserID, upd models.ProfileUpdate) (_ *models.User, err error) {
	ctx, span := tracing.Start(ctx, s.tracer, "user.UpdateUser", attribute.String("user.id", userID.String()))
	defer tracing.End(span, &err)

	if userID.IsNil() {
		return nil, dErrors.New(dErrors.CodeValidation, "User ID cannot be empty")
	}
	if upd.ManagerID != nil && !upd.ClearManager && *upd.ManagerID != userID {
		if err := s.requireManager(ctx, *upd.ManagerID); err != nil {
			return nil, err
		}
	}

	now := requestcontext.Now(ctx)
	done := s.observe("update")
	user, err := s.users.Execute(ctx, userID, func(current *models.User) (*models.User, error) {
		return current.UpdateProfile(upd, now)
	})
	done()
	if err != nil {
		if dErrors.HasCode(err, dErrors.CodeInvariantViolation) {
			return nil, invalid(err)
		}
		return nil, s.notFoundOr(err, userID)
	}

	s.emit(ctx, events.UserUpdated, user)
	return user, nil
}

// UpdateUserEmail moves a user to a new address. Re-submitting the user's own
// current address succeeds without a write.
func (s *Service) UpdateUserEmail(ctx context.Context, userID id.UserID, address string) (_ *models.User, err error) {
	ctx, span := tracing.Start(ctx, s.tracer, "user.UpdateUserEmail", attribute.String("user.id", userID.String()))
	defer tracing.End(span, &err)

	if userID.IsNil() {
		return nil, dErrors.New(dErrors.CodeValidation, "User ID cannot be empty")
	}
	if strings.TrimSpace(address) == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "Email cannot be empty")
	}
	normalized := email.Normalize(address)
	taken := dErrors.New(dErrors.CodeValidation, fmt.Sprintf("Email '%s' is already taken", normalized))

	existing, err := s.findByEmail(ctx, normalized)
	switch {
	case err == nil && existing.ID == userID:
		return existing, nil
	case err == nil:
		return nil, taken
	case !errors.Is(err, sentinel.ErrNotFound):
		return nil, wrapStoreErr(err, "failed to check email")
	}

	now := requestcontext.Now(ctx)
	done := s.observe("update_email")
	user, err := s.users.Execute(ctx, userID, func(current *models.User) (*models.User, error) {
		return current.UpdateEmail(normalized, now)
	})
	done()
	if err != nil {
		switch {
		case dErrors.HasCode(err, dErrors.CodeInvariantViolation):
			return nil, invalid(err)
		case errors.Is(err, sentinel.ErrAlreadyUsed):
			return nil, taken
		}
		return nil, s.notFoundOr(err, userID)
	}

	s.emit(ctx, events.UserUpdated, user)
	return user, nil
}

func (s *Service) DeleteUser(ctx context.Context, userID id.UserID) (err error) {
	ctx, span := tracing.Start(ctx, s.tracer, "user.DeleteUser", attribute.String("user.id", userID.String()))
	defer tracing.End(span, &err)

	if userID.IsNil() {
		return dErrors.New(dErrors.CodeValidation, "User ID cannot be empty")
	}
	// Unlink first: once the row is gone the foreign key clears user_id and
	// the affected contributors can no longer be found.
	if s.unlinker != nil {
		if err := s.unlinker.UnlinkUser(ctx, userID); err != nil {
			s.logger.WarnContext(ctx, "failed to unlink contributors before deleting user",
				"user_id", userID.String(),
				"error", err,
			)
			return err
		}
	}
	done := s.observe("delete")
	err = s.users.Delete(ctx, userID)
	done()
	if err != nil {
		return s.notFoundOr(err, userID)
	}

	s.logger.InfoContext(ctx, "user deleted",
		"user_id", userID.String(),
		"request_id", requestcontext.RequestID(ctx),
	)
	events.Emit(ctx, s.publisher, s.logger, events.New(ctx, events.UserDeleted, userID.String(), nil))
	if s.metrics != nil {
		s.metrics.DecrementUsers()
	}
	return nil
}

// ListReports returns the direct reports of an existing manager.
func (s *Service) ListReports(ctx context.Context, managerID id.UserID) (_ []*models.User, err error) {
	ctx, span := tracing.Start(ctx, s.tracer, "user.ListReports", attribute.String("user.id", managerID.String()))
	defer tracing.End(span, &err)

	if managerID.IsNil() {
		return nil, dErrors.New(dErrors.CodeValidation, "Manager ID cannot be empty")
	}
	if _, err := s.GetUser(ctx, managerID); err != nil {
		return nil, err
	}
	done := s.observe("list_by_manager")
	reports, err := s.users.ListByManager(ctx, managerID)
	done()
	if err != nil {
		return nil, wrapStoreErr(err, "failed to fetch users by manager")
	}
	return reports, nil
}

func (s *Service) findByEmail(ctx context.Context, normalized string) (*models.User, error) {
	done := s.observe("find_by_email")
	defer done()
	return s.users.FindByEmail(ctx, normalized)
}

func (s *Service) requireManager(ctx context.Context, managerID id.UserID) error {
	done := s.observe("find_by_id")
	_, err := s.users.FindByID(ctx, managerID)
	done()
	if err == nil {
		return nil
	}
	if errors.Is(err, sentinel.ErrNotFound) {
		return dErrors.New(dErrors.CodeValidation, "Manager not found")
	}
	return wrapStoreErr(err, "failed to check manager")
}

func (s *Service) notFoundOr(err error, userID id.UserID) error {
	if errors.Is(err, sentinel.ErrNotFound) {
		return dErrors.New(dErrors.CodeNotFound, fmt.Sprintf("User with ID '%s' not found", userID))
	}
	return wrapStoreErr(err, "failed to access user")
}
