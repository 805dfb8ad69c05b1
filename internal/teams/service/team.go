package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"

	teamserrors "roombook/internal/teams/errors"
	"roombook/internal/teams/repository"
	"roombook/internal/teams/validator"
	"roombook/pkg/config"
	apperrors "roombook/pkg/errors"
	"roombook/pkg/model"
	"roombook/pkg/sanitizer"
)

// MemberDirectory resolves which user ids exist.
type MemberDirectory interface {
	ExistingIDs(ctx context.Context, ids []int64) ([]int64, error)
}

// BookingDetacher clears a deleted team from the bookings it holds.
type BookingDetacher interface {
	ClearTeam(ctx context.Context, teamID int64) (int64, error)
}

type TeamService interface {
	Create(ctx context.Context, team *model.Team) error
	GetByID(ctx context.Context, id int64) (*model.Team, error)
	GetAll(ctx context.Context, limit int, offset int64) ([]*model.Team, int64, error)
	AddMembers(ctx context.Context, id int64, update *model.TeamMembersUpdate) (*model.Team, error)
	Delete(ctx context.Context, id int64) error
}

type teamService struct {
	repo      repository.TeamRepository
	users     MemberDirectory
	bookings  BookingDetacher
	validator *validator.TeamValidator
	cfg       *config.Config
}

func NewTeamService(
	repo repository.TeamRepository,
	users MemberDirectory,
	bookings BookingDetacher,
	validator *validator.TeamValidator,
	cfg *config.Config,
) TeamService {
	return &teamService{
		repo:      repo,
		users:     users,
		bookings:  bookings,
		validator: validator,
		cfg:       cfg,
	}
}

func (s *teamService) Create(ctx context.Context, team *model.Team) error {
	team.Name = sanitizer.NormalizeName(team.Name)

	if err := s.validator.Validate(team); err != nil {
		s.cfg.Log.Warn("Team validation failed", "error", err)
		return apperrors.Validation("Team validation failed", map[string]any{"errors": err})
	}
	team.Members = sanitizer.NormalizeIDs(team.Members)

	if err := s.verifyMembers(ctx, team.Members); err != nil {
		return err
	}

	if err := s.repo.Create(ctx, team); err != nil {
		s.cfg.Log.Error("Failed to create team", "error", err)
		return apperrors.Internal("Failed to create team", err)
	}

	s.cfg.Log.Info("Team created successfully",
		"team_id", team.ID,
		"members", team.MemberCount(),
	)
	return nil
}

func (s *teamService) GetByID(ctx context.Context, id int64) (*model.Team, error) {
	team, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, teamserrors.ErrNotFound) {
			return nil, apperrors.NotFoundWithID("Team", strconv.FormatInt(id, 10))
		}
		s.cfg.Log.Error("Failed to retrieve team", "team_id", id, "error", err)
		return nil, apperrors.Internal("Failed to retrieve team", err)
	}
	return team, nil
}

func (s *teamService) GetAll(ctx context.Context, limit int, offset int64) ([]*model.Team, int64, error) {
	limit = config.NormalizePaginationLimit(limit)
	offset = config.NormalizeOffset(offset)

	var count int64
	var teams []*model.Team
	var errCount, errFind error
	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		count, errCount = s.repo.Count(ctx)
		if errCount != nil {
			s.cfg.Log.Error("Failed to count teams", "error", errCount)
			errCount = apperrors.Internal("Failed to count teams", errCount)
		}
	}()

	go func() {
		defer wg.Done()
		teams, errFind = s.repo.FindAll(ctx, limit, offset)
		if errFind != nil {
			s.cfg.Log.Error("Failed to list teams", "error", errFind)
			errFind = apperrors.Internal("Failed to retrieve teams", errFind)
		}
	}()

	wg.Wait()
	if errCount != nil {
		return nil, 0, errCount
	}
	if errFind != nil {
		return nil, 0, errFind
	}

	return teams, count, nil
}

func (s *teamService) AddMembers(ctx context.Context, id int64, update *model.TeamMembersUpdate) (*model.Team, error) {
	if err := s.validator.ValidateMembers(update); err != nil {
		s.cfg.Log.Warn("Team members validation failed", "team_id", id, "error", err)
		return nil, apperrors.Validation("Invalid members input", map[string]any{"errors": err})
	}
	members := sanitizer.NormalizeIDs(update.Members)

	if err := s.verifyMembers(ctx, members); err != nil {
		return nil, err
	}

	team, err := s.repo.AddMembers(ctx, id, members)
	if err != nil {
		if errors.Is(err, teamserrors.ErrNotFound) {
			return nil, apperrors.NotFoundWithID("Team", strconv.FormatInt(id, 10))
		}
		s.cfg.Log.Error("Failed to add team members", "team_id", id, "error", err)
		return nil, apperrors.Internal("Failed to add team members", err)
	}

	s.cfg.Log.Info("Team members added",
		"team_id", id,
		"members", team.MemberCount(),
	)
	return team, nil
}

// Delete removes the team and detaches it from its bookings in one
// transaction.
func (s *teamService) Delete(ctx context.Context, id int64) error {
	var detached int64
	err := s.repo.ExecuteTransaction(ctx, func(ctx context.Context) error {
		if err := s.repo.Delete(ctx, id); err != nil {
			if errors.Is(err, teamserrors.ErrNotFound) {
				return apperrors.NotFoundWithID("Team", strconv.FormatInt(id, 10))
			}
			return apperrors.Internal("Failed to delete team", err)
		}

		n, err := s.bookings.ClearTeam(ctx, id)
		if err != nil {
			return apperrors.Internal("Failed to detach team bookings", err)
		}
		detached = n
		return nil
	})
	if err != nil {
		if !apperrors.HasCode(err, apperrors.CodeNotFound) {
			s.cfg.Log.Error("Failed to delete team", "team_id", id, "error", err)
		}
		return err
	}

	s.cfg.Log.Info("Team deleted successfully", "team_id", id, "bookings_detached", detached)
	return nil
}

func (s *teamService) verifyMembers(ctx context.Context, members []int64) error {
	if len(members) == 0 {
		return nil
	}

	found, err := s.users.ExistingIDs(ctx, members)
	if err != nil {
		s.cfg.Log.Error("Failed to verify team members", "error", err)
		return apperrors.Internal("Failed to verify team members", err)
	}
	if len(found) == len(members) {
		return nil
	}

	known := make(map[int64]bool, len(found))
	for _, id := range found {
		known[id] = true
	}
	var missing []int64
	for _, id := range members {
		if !known[id] {
			missing = append(missing, id)
		}
	}

	s.cfg.Log.Warn("Team references unknown users", "missing", missing)
	return apperrors.InvalidInput(fmt.Sprintf("%s: %v", teamserrors.ErrUnknownMember, missing)).
		WithDetails(map[string]any{"missing_members": missing})
}
