package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"

	roomserrors "roombook/internal/rooms/errors"
	"roombook/internal/rooms/repository"
	"roombook/internal/rooms/validator"
	"roombook/pkg/config"
	mongotx "roombook/pkg/db/mongo"
	apperrors "roombook/pkg/errors"
	"roombook/pkg/model"
)

// Locker runs fn while holding an exclusive lock on key.
type Locker interface {
	WithLock(ctx context.Context, key string, fn func(ctx context.Context) error) error
}

// BookingCascade removes the bookings of a room being deleted.
type BookingCascade interface {
	DeleteByRoom(ctx context.Context, roomID int64) (int64, error)
}

type RoomService interface {
	Create(ctx context.Context, room *model.Room) error
	GetByID(ctx context.Context, id int64) (*model.Room, error)
	GetAll(ctx context.Context, limit int, offset int64) ([]*model.Room, int64, error)
	Delete(ctx context.Context, id int64) error
}

type roomService struct {
	repo      repository.RoomRepository
	bookings  BookingCascade
	locker    Locker
	governor  *CapacityGovernor
	validator *validator.RoomValidator
	cfg       *config.Config
}

func NewRoomService(
	repo repository.RoomRepository,
	bookings BookingCascade,
	locker Locker,
	validator *validator.RoomValidator,
	cfg *config.Config,
) RoomService {
	return &roomService{
		repo:      repo,
		bookings:  bookings,
		locker:    locker,
		governor:  NewCapacityGovernor(cfg.RoomTypeLimits, repo),
		validator: validator,
		cfg:       cfg,
	}
}

func CreateLockKey(roomType model.RoomType) string {
	return fmt.Sprintf("room_create_%s", roomType)
}

func (s *roomService) Create(ctx context.Context, room *model.Room) error {
	if err := s.validator.Validate(room); err != nil {
		s.cfg.Log.Warn("Room validation failed", "error", err)
		return apperrors.Validation("Room validation failed", map[string]any{"errors": err})
	}

	// Count and insert must not interleave with another creation of the
	// same type, or two requests could both pass the ceiling check.
	err := s.locker.WithLock(ctx, CreateLockKey(room.RoomType), func(ctx context.Context) error {
		if err := s.governor.Admit(ctx, room.RoomType); err != nil {
			return err
		}
		if err := s.repo.Create(ctx, room); err != nil {
			return apperrors.Internal("Failed to create room", err)
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, mongotx.ErrLockTimeout) {
			s.cfg.Log.Warn("Room creation lock timed out", "room_type", room.RoomType)
			return apperrors.Conflict("Another room of this type is being created. Please try again.")
		}
		if apperrors.HasCode(err, apperrors.CodeCapacityExceeded) {
			s.cfg.Log.Warn("Room ceiling reached", "room_type", room.RoomType, "error", err)
			return err
		}
		s.cfg.Log.Error("Failed to create room", "room_type", room.RoomType, "error", err)
		if apperrors.IsAppError(err) {
			return err
		}
		return apperrors.Internal("Failed to create room", err)
	}

	s.cfg.Log.Info("Room created successfully",
		"room_id", room.ID,
		"room_type", room.RoomType,
		"capacity", room.Capacity,
	)
	return nil
}

func (s *roomService) GetByID(ctx context.Context, id int64) (*model.Room, error) {
	room, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, roomserrors.ErrNotFound) {
			return nil, apperrors.NotFoundWithID("Room", strconv.FormatInt(id, 10))
		}
		s.cfg.Log.Error("Failed to retrieve room", "room_id", id, "error", err)
		return nil, apperrors.Internal("Failed to retrieve room", err)
	}
	return room, nil
}

func (s *roomService) GetAll(ctx context.Context, limit int, offset int64) ([]*model.Room, int64, error) {
	limit = config.NormalizePaginationLimit(limit)
	offset = config.NormalizeOffset(offset)

	var count int64
	var rooms []*model.Room
	var errCount, errFind error
	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		count, errCount = s.repo.Count(ctx)
		if errCount != nil {
			s.cfg.Log.Error("Failed to count rooms", "error", errCount)
			errCount = apperrors.Internal("Failed to count rooms", errCount)
		}
	}()

	go func() {
		defer wg.Done()
		rooms, errFind = s.repo.FindAll(ctx, limit, offset)
		if errFind != nil {
			s.cfg.Log.Error("Failed to list rooms", "error", errFind)
			errFind = apperrors.Internal("Failed to retrieve rooms", errFind)
		}
	}()

	wg.Wait()
	if errCount != nil {
		return nil, 0, errCount
	}
	if errFind != nil {
		return nil, 0, errFind
	}

	return rooms, count, nil
}

// Delete removes the room and every booking held on it.
func (s *roomService) Delete(ctx context.Context, id int64) error {
	var removed int64
	err := s.repo.ExecuteTransaction(ctx, func(ctx context.Context) error {
		if err := s.repo.Delete(ctx, id); err != nil {
			if errors.Is(err, roomserrors.ErrNotFound) {
				return apperrors.NotFoundWithID("Room", strconv.FormatInt(id, 10))
			}
			return apperrors.Internal("Failed to delete room", err)
		}

		n, err := s.bookings.DeleteByRoom(ctx, id)
		if err != nil {
			return apperrors.Internal("Failed to delete room bookings", err)
		}
		removed = n
		return nil
	})
	if err != nil {
		if !apperrors.HasCode(err, apperrors.CodeNotFound) {
			s.cfg.Log.Error("Failed to delete room", "room_id", id, "error", err)
		}
		return err
	}

	s.cfg.Log.Info("Room deleted successfully", "room_id", id, "bookings_removed", removed)
	return nil
}
