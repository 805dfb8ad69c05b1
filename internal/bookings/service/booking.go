package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"

	bookingserrors "roombook/internal/bookings/errors"
	"roombook/internal/bookings/repository"
	"roombook/internal/bookings/validator"
	teamserrors "roombook/internal/teams/errors"
	userserrors "roombook/internal/users/errors"
	"roombook/pkg/config"
	mongotx "roombook/pkg/db/mongo"
	apperrors "roombook/pkg/errors"
	"roombook/pkg/model"
	"roombook/pkg/sanitizer"
)

type RoomReader interface {
	// FindByType returns every room of the type ordered by id.
	FindByType(ctx context.Context, roomType model.RoomType) ([]*model.Room, error)
}

type UserReader interface {
	FindByID(ctx context.Context, id int64) (*model.User, error)
}

type TeamReader interface {
	FindByID(ctx context.Context, id int64) (*model.Team, error)
}

// SlotLocker runs fn while holding an exclusive lock on key. Waiters queue up
// to a bounded wait, after which mongotx.ErrLockTimeout is returned.
type SlotLocker interface {
	WithLock(ctx context.Context, key string, fn func(ctx context.Context) error) error
}

// EventPublisher receives committed booking changes. Publishing is best
// effort and never affects the booking outcome.
type EventPublisher interface {
	BookingCreated(ctx context.Context, booking *model.Booking) error
	BookingCancelled(ctx context.Context, booking *model.Booking) error
}

type BookingService interface {
	Book(ctx context.Context, req *model.BookingRequest) (*model.Booking, error)
	Cancel(ctx context.Context, id int64) error
	GetByID(ctx context.Context, id int64) (*model.Booking, error)
	GetAll(ctx context.Context, limit int, offset int64) ([]*model.Booking, int64, error)
	FindAvailable(ctx context.Context, roomType model.RoomType, date, slot string) ([]*model.Room, error)
	ListAvailable(ctx context.Context, date, slot string) ([]*model.Room, error)
}

type bookingService struct {
	repo      repository.BookingRepository
	rooms     RoomReader
	users     UserReader
	teams     TeamReader
	locker    SlotLocker
	events    EventPublisher
	validator *validator.BookingValidator
	cfg       *config.Config
}

// NewBookingService wires the allocation engine. events may be nil.
func NewBookingService(
	repo repository.BookingRepository,
	rooms RoomReader,
	users UserReader,
	teams TeamReader,
	locker SlotLocker,
	events EventPublisher,
	validator *validator.BookingValidator,
	cfg *config.Config,
) BookingService {
	return &bookingService{
		repo:      repo,
		rooms:     rooms,
		users:     users,
		teams:     teams,
		locker:    locker,
		events:    events,
		validator: validator,
		cfg:       cfg,
	}
}

// SlotLockKey names the lock serializing allocations for one room type, date
// and slot.
func SlotLockKey(roomType model.RoomType, date, slot string) string {
	return fmt.Sprintf("booking_lock_%s_%s_%s", roomType, date, slot)
}

func (s *bookingService) Book(ctx context.Context, req *model.BookingRequest) (*model.Booking, error) {
	s.sanitize(req)

	booking, requester, err := s.parseRequest(req)
	if err != nil {
		return nil, err
	}

	err = s.locker.WithLock(ctx, SlotLockKey(booking.RoomType, booking.Date, booking.Slot), func(ctx context.Context) error {
		id, err := s.repo.NextID(ctx)
		if err != nil {
			return apperrors.Internal("Failed to allocate booking id", err)
		}
		booking.ID = id

		return s.repo.ExecuteTransaction(ctx, func(ctx context.Context) error {
			if err := s.checkRequester(ctx, requester, booking.Date, booking.Slot); err != nil {
				return err
			}

			room, err := s.selectRoom(ctx, booking.RoomType, booking.Date, booking.Slot)
			if err != nil {
				return err
			}
			booking.RoomID = room.ID

			if err := s.repo.Create(ctx, booking); err != nil {
				if errors.Is(err, bookingserrors.ErrSlotTaken) {
					return apperrors.BookingConflict(err)
				}
				return apperrors.Internal("Failed to create booking", err)
			}
			return nil
		})
	})
	if err != nil {
		return nil, s.bookingFailure(err, booking, requester)
	}

	s.cfg.Log.Info("Booking created successfully",
		"booking_id", booking.ID,
		"room_id", booking.RoomID,
		"room_type", booking.RoomType,
		"date", booking.Date,
		"slot", booking.Slot,
		"requester", requester.String(),
	)

	if s.events != nil {
		if err := s.events.BookingCreated(ctx, booking); err != nil {
			s.cfg.Log.Warn("Failed to publish booking event",
				"event", "booking.created",
				"booking_id", booking.ID,
				"error", err,
			)
		}
	}
	return booking, nil
}

// parseRequest validates the raw request and returns the booking to insert
// with canonical date and slot, plus its requester.
func (s *bookingService) parseRequest(req *model.BookingRequest) (*model.Booking, model.Requester, error) {
	if err := s.validator.ValidateRequest(req); err != nil {
		s.cfg.Log.Warn("Booking request validation failed", "error", err)
		message := "Invalid booking request"
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && verrs.HasMissing() {
			message = "Missing required fields"
		}
		return nil, nil, apperrors.InvalidInput(message).WithDetails(map[string]any{"errors": err})
	}

	roomType, _ := model.ParseRoomType(req.RoomType)
	date, _ := model.ParseDate(req.Date)
	slot, _ := model.ParseSlot(req.Slot)

	requester, err := model.ResolveRequester(roomType, req.UserID, req.TeamID)
	if err != nil {
		s.cfg.Log.Warn("Booking requester does not match room type", "room_type", roomType)
		return nil, nil, apperrors.InvalidInput("Invalid data or room type")
	}

	booking := &model.Booking{
		RoomType:  roomType,
		Exclusive: !roomType.IsShared(),
		Date:      date,
		Slot:      slot,
	}
	switch r := requester.(type) {
	case model.UserRequester:
		booking.UserID = &r.UserID
	case model.TeamRequester:
		booking.TeamID = &r.TeamID
	}
	return booking, requester, nil
}

func (s *bookingService) checkRequester(ctx context.Context, requester model.Requester, date, slot string) error {
	switch r := requester.(type) {
	case model.UserRequester:
		if _, err := s.users.FindByID(ctx, r.UserID); err != nil {
			if errors.Is(err, userserrors.ErrNotFound) {
				return apperrors.RequesterNotFound("User not found")
			}
			return apperrors.Internal("Failed to retrieve user", err)
		}

		taken, err := s.repo.ExistsForUser(ctx, r.UserID, date, slot)
		if err != nil {
			return apperrors.Internal("Failed to check existing bookings", err)
		}
		if taken {
			return apperrors.DuplicateRequesterBooking("User already has a booking for this slot")
		}

	case model.TeamRequester:
		team, err := s.teams.FindByID(ctx, r.TeamID)
		if err != nil {
			if errors.Is(err, teamserrors.ErrNotFound) {
				return apperrors.RequesterNotFound("Team not found")
			}
			return apperrors.Internal("Failed to retrieve team", err)
		}
		if team.MemberCount() < model.MinConferenceTeamSize {
			return apperrors.TeamTooSmall(model.MinConferenceTeamSize)
		}

		taken, err := s.repo.ExistsForTeam(ctx, r.TeamID, date, slot)
		if err != nil {
			return apperrors.Internal("Failed to check existing bookings", err)
		}
		if taken {
			return apperrors.DuplicateRequesterBooking("Team already has a booking for this slot")
		}
	}
	return nil
}

// selectRoom picks the lowest-id eligible room of the type.
func (s *bookingService) selectRoom(ctx context.Context, roomType model.RoomType, date, slot string) (*model.Room, error) {
	rooms, err := s.eligible(ctx, []model.RoomType{roomType}, date, slot)
	if err != nil {
		return nil, err
	}
	if len(rooms) == 0 {
		return nil, apperrors.NoRoomAvailable(noRoomMessage(roomType))
	}
	return rooms[0], nil
}

func noRoomMessage(roomType model.RoomType) string {
	if roomType.IsShared() {
		return "No available shared desk for the selected slot"
	}
	return fmt.Sprintf("No available %s room for the selected slot", strings.ToLower(string(roomType)))
}

func (s *bookingService) bookingFailure(err error, booking *model.Booking, requester model.Requester) error {
	attrs := []any{
		"room_type", booking.RoomType,
		"date", booking.Date,
		"slot", booking.Slot,
		"requester", requester.String(),
	}

	switch {
	case errors.Is(err, mongotx.ErrLockTimeout):
		s.cfg.Log.Warn("Timed out waiting for booking slot lock", attrs...)
		return apperrors.BookingConflict(err)
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		s.cfg.Log.Warn("Booking request cancelled", append(attrs, "error", err)...)
		return apperrors.Timeout("Booking request timed out")
	case apperrors.HasCode(err, apperrors.CodeInternal):
		s.cfg.Log.Error("Failed to create booking", append(attrs, "error", err)...)
		return err
	case apperrors.IsAppError(err):
		s.cfg.Log.Warn("Booking rejected", append(attrs, "code", apperrors.AsAppError(err).Code)...)
		return err
	default:
		s.cfg.Log.Error("Failed to create booking", append(attrs, "error", err)...)
		return apperrors.Internal("Failed to create booking", err)
	}
}

func (s *bookingService) Cancel(ctx context.Context, id int64) error {
	booking, err := s.repo.Delete(ctx, id)
	if err != nil {
		if errors.Is(err, bookingserrors.ErrNotFound) {
			s.cfg.Log.Warn("Booking to cancel not found", "booking_id", id)
			return apperrors.BookingNotFound()
		}
		s.cfg.Log.Error("Failed to cancel booking", "booking_id", id, "error", err)
		return apperrors.Internal("Failed to cancel booking", err)
	}

	s.cfg.Log.Info("Booking cancelled successfully",
		"booking_id", booking.ID,
		"room_id", booking.RoomID,
		"date", booking.Date,
		"slot", booking.Slot,
	)

	if s.events != nil {
		if err := s.events.BookingCancelled(ctx, booking); err != nil {
			s.cfg.Log.Warn("Failed to publish booking event",
				"event", "booking.cancelled",
				"booking_id", booking.ID,
				"error", err,
			)
		}
	}
	return nil
}

func (s *bookingService) GetByID(ctx context.Context, id int64) (*model.Booking, error) {
	booking, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, bookingserrors.ErrNotFound) {
			return nil, apperrors.NotFoundWithID("Booking", strconv.FormatInt(id, 10))
		}
		s.cfg.Log.Error("Failed to retrieve booking", "booking_id", id, "error", err)
		return nil, apperrors.Internal("Failed to retrieve booking", err)
	}
	return booking, nil
}

func (s *bookingService) GetAll(ctx context.Context, limit int, offset int64) ([]*model.Booking, int64, error) {
	limit = config.NormalizePaginationLimit(limit)
	offset = config.NormalizeOffset(offset)

	var count int64
	var bookings []*model.Booking
	var errCount, errFind error
	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		count, errCount = s.repo.Count(ctx)
		if errCount != nil {
			s.cfg.Log.Error("Failed to count bookings", "error", errCount)
			errCount = apperrors.Internal("Failed to count bookings", errCount)
		}
	}()

	go func() {
		defer wg.Done()
		bookings, errFind = s.repo.FindAll(ctx, limit, offset)
		if errFind != nil {
			s.cfg.Log.Error("Failed to list bookings", "error", errFind)
			errFind = apperrors.Internal("Failed to retrieve bookings", errFind)
		}
	}()

	wg.Wait()
	if errCount != nil {
		return nil, 0, errCount
	}
	if errFind != nil {
		return nil, 0, errFind
	}

	return bookings, count, nil
}

func (s *bookingService) sanitize(req *model.BookingRequest) {
	req.RoomType = sanitizer.TrimAndNormalize(req.RoomType)
	req.Date = sanitizer.TrimAndNormalize(req.Date)
	req.Slot = sanitizer.TrimAndNormalize(req.Slot)
}
