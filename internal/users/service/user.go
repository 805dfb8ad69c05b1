package service

import (
	"context"
	"errors"
	"strconv"
	"sync"

	userserrors "roombook/internal/users/errors"
	"roombook/internal/users/repository"
	"roombook/internal/users/validator"
	"roombook/pkg/config"
	apperrors "roombook/pkg/errors"
	"roombook/pkg/model"
	"roombook/pkg/sanitizer"
)

// BookingDetacher clears a deleted user from the bookings it holds.
type BookingDetacher interface {
	ClearUser(ctx context.Context, userID int64) (int64, error)
}

// MembershipRemover drops a deleted user from the teams it belongs to.
type MembershipRemover interface {
	RemoveMember(ctx context.Context, userID int64) (int64, error)
}

type UserService interface {
	Create(ctx context.Context, user *model.User) error
	GetByID(ctx context.Context, id int64) (*model.User, error)
	GetAll(ctx context.Context, limit int, offset int64) ([]*model.User, int64, error)
	Delete(ctx context.Context, id int64) error
}

type userService struct {
	repo      repository.UserRepository
	bookings  BookingDetacher
	teams     MembershipRemover
	validator *validator.UserValidator
	cfg       *config.Config
}

func NewUserService(
	repo repository.UserRepository,
	bookings BookingDetacher,
	teams MembershipRemover,
	validator *validator.UserValidator,
	cfg *config.Config,
) UserService {
	return &userService{
		repo:      repo,
		bookings:  bookings,
		teams:     teams,
		validator: validator,
		cfg:       cfg,
	}
}

func (s *userService) Create(ctx context.Context, user *model.User) error {
	user.Name = sanitizer.NormalizeName(user.Name)
	user.Gender = sanitizer.NormalizeCode(user.Gender)

	if err := s.validator.Validate(user); err != nil {
		s.cfg.Log.Warn("User validation failed", "error", err)
		return apperrors.Validation("User validation failed", map[string]any{"errors": err})
	}

	if err := s.repo.Create(ctx, user); err != nil {
		s.cfg.Log.Error("Failed to create user", "error", err)
		return apperrors.Internal("Failed to create user", err)
	}

	s.cfg.Log.Info("User created successfully", "user_id", user.ID)
	return nil
}

func (s *userService) GetByID(ctx context.Context, id int64) (*model.User, error) {
	user, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, userserrors.ErrNotFound) {
			return nil, apperrors.NotFoundWithID("User", strconv.FormatInt(id, 10))
		}
		s.cfg.Log.Error("Failed to retrieve user", "user_id", id, "error", err)
		return nil, apperrors.Internal("Failed to retrieve user", err)
	}
	return user, nil
}

func (s *userService) GetAll(ctx context.Context, limit int, offset int64) ([]*model.User, int64, error) {
	limit = config.NormalizePaginationLimit(limit)
	offset = config.NormalizeOffset(offset)

	var count int64
	var users []*model.User
	var errCount, errFind error
	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		count, errCount = s.repo.Count(ctx)
		if errCount != nil {
			s.cfg.Log.Error("Failed to count users", "error", errCount)
			errCount = apperrors.Internal("Failed to count users", errCount)
		}
	}()

	go func() {
		defer wg.Done()
		users, errFind = s.repo.FindAll(ctx, limit, offset)
		if errFind != nil {
			s.cfg.Log.Error("Failed to list users", "error", errFind)
			errFind = apperrors.Internal("Failed to retrieve users", errFind)
		}
	}()

	wg.Wait()
	if errCount != nil {
		return nil, 0, errCount
	}
	if errFind != nil {
		return nil, 0, errFind
	}

	return users, count, nil
}

// Delete removes the user, detaches it from its bookings and drops it from
// every team, in one transaction.
func (s *userService) Delete(ctx context.Context, id int64) error {
	var detached, teams int64
	err := s.repo.ExecuteTransaction(ctx, func(ctx context.Context) error {
		if err := s.repo.Delete(ctx, id); err != nil {
			if errors.Is(err, userserrors.ErrNotFound) {
				return apperrors.NotFoundWithID("User", strconv.FormatInt(id, 10))
			}
			return apperrors.Internal("Failed to delete user", err)
		}

		var err error
		if detached, err = s.bookings.ClearUser(ctx, id); err != nil {
			return apperrors.Internal("Failed to detach user bookings", err)
		}
		if teams, err = s.teams.RemoveMember(ctx, id); err != nil {
			return apperrors.Internal("Failed to remove user from teams", err)
		}
		return nil
	})
	if err != nil {
		if !apperrors.HasCode(err, apperrors.CodeNotFound) {
			s.cfg.Log.Error("Failed to delete user", "user_id", id, "error", err)
		}
		return err
	}

	s.cfg.Log.Info("User deleted successfully",
		"user_id", id,
		"bookings_detached", detached,
		"teams_updated", teams,
	)
	return nil
}
