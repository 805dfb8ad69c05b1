package service

import (
	"context"

	apperrors "roombook/pkg/errors"
	"roombook/pkg/model"
)

type roomCounter interface {
	CountByType(ctx context.Context, roomType model.RoomType) (int64, error)
}

// CapacityGovernor caps how many rooms of each type may exist. Types missing
// from the limits map are unbounded. It is consulted on room creation only.
type CapacityGovernor struct {
	limits map[model.RoomType]int
	rooms  roomCounter
}

func NewCapacityGovernor(limits map[model.RoomType]int, rooms roomCounter) *CapacityGovernor {
	return &CapacityGovernor{limits: limits, rooms: rooms}
}

func (g *CapacityGovernor) Limit(roomType model.RoomType) (int, bool) {
	limit, ok := g.limits[roomType]
	return limit, ok
}

// Admit reports whether one more room of roomType may be created. The caller
// must hold the creation lock for roomType until the room is inserted.
func (g *CapacityGovernor) Admit(ctx context.Context, roomType model.RoomType) error {
	limit, ok := g.Limit(roomType)
	if !ok {
		return nil
	}

	count, err := g.rooms.CountByType(ctx, roomType)
	if err != nil {
		return apperrors.Internal("Failed to count rooms", err)
	}
	if count >= int64(limit) {
		return apperrors.CapacityExceeded(string(roomType), limit)
	}
	return nil
}
