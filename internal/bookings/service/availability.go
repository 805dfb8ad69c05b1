package service

import (
	"cmp"
	"context"
	"slices"

	apperrors "roombook/pkg/errors"
	"roombook/pkg/model"
)

// FindAvailable lists the rooms of roomType that can take one more booking on
// date and slot, ordered by id.
func (s *bookingService) FindAvailable(ctx context.Context, roomType model.RoomType, date, slot string) ([]*model.Room, error) {
	if !roomType.Valid() {
		return nil, apperrors.InvalidInput("Invalid room type")
	}
	date, slot, err := parseDateSlot(date, slot)
	if err != nil {
		return nil, err
	}
	return s.eligible(ctx, []model.RoomType{roomType}, date, slot)
}

// ListAvailable is FindAvailable across every room type.
func (s *bookingService) ListAvailable(ctx context.Context, date, slot string) ([]*model.Room, error) {
	date, slot, err := parseDateSlot(date, slot)
	if err != nil {
		return nil, err
	}
	return s.eligible(ctx, model.RoomTypes, date, slot)
}

func parseDateSlot(date, slot string) (string, string, error) {
	if date == "" || slot == "" {
		return "", "", apperrors.InvalidInput("Provide date and slot as query params")
	}
	d, err := model.ParseDate(date)
	if err != nil {
		return "", "", apperrors.InvalidInput("Invalid date or time format")
	}
	t, err := model.ParseSlot(slot)
	if err != nil {
		return "", "", apperrors.InvalidInput("Invalid date or time format")
	}
	return d, t, nil
}

func (s *bookingService) eligible(ctx context.Context, roomTypes []model.RoomType, date, slot string) ([]*model.Room, error) {
	occupancy, err := s.repo.OccupancyBySlot(ctx, date, slot)
	if err != nil {
		s.cfg.Log.Error("Failed to read slot occupancy", "date", date, "slot", slot, "error", err)
		return nil, apperrors.Internal("Failed to read room availability", err)
	}

	available := []*model.Room{}
	for _, roomType := range roomTypes {
		rooms, err := s.rooms.FindByType(ctx, roomType)
		if err != nil {
			s.cfg.Log.Error("Failed to list rooms", "room_type", roomType, "error", err)
			return nil, apperrors.Internal("Failed to read room availability", err)
		}
		for _, room := range rooms {
			if room.HasRoomFor(occupancy[room.ID]) {
				available = append(available, room)
			}
		}
	}

	slices.SortFunc(available, func(a, b *model.Room) int {
		return cmp.Compare(a.ID, b.ID)
	})
	return available, nil
}
