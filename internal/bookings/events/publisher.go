package events

import (
	"context"
	"strconv"
	"time"

	"roombook/pkg/kafka"
	"roombook/pkg/logger"
	"roombook/pkg/middleware"
	"roombook/pkg/model"
)

const (
	EventBookingCreated   = "booking.created"
	EventBookingCancelled = "booking.cancelled"

	SchemaVersion = "1"
	Source        = "roombook"
)

// BookingEvent is the payload of booking.created and booking.cancelled.
type BookingEvent struct {
	BookingID  int64          `json:"booking_id"`
	RoomID     int64          `json:"room_id"`
	RoomType   model.RoomType `json:"room_type"`
	UserID     *int64         `json:"user_id,omitempty"`
	TeamID     *int64         `json:"team_id,omitempty"`
	Date       string         `json:"date"`
	Slot       string         `json:"slot"`
	OccurredAt time.Time      `json:"occurred_at"`
}

type MessagePublisher interface {
	Publish(ctx context.Context, msg kafka.Message) error
}

type BookingEventPublisher struct {
	publisher MessagePublisher
	log       *logger.Logger
}

func NewBookingEventPublisher(publisher MessagePublisher, log *logger.Logger) *BookingEventPublisher {
	return &BookingEventPublisher{
		publisher: publisher,
		log:       log,
	}
}

func (p *BookingEventPublisher) BookingCreated(ctx context.Context, booking *model.Booking) error {
	return p.publish(ctx, EventBookingCreated, booking)
}

func (p *BookingEventPublisher) BookingCancelled(ctx context.Context, booking *model.Booking) error {
	return p.publish(ctx, EventBookingCancelled, booking)
}

func (p *BookingEventPublisher) publish(ctx context.Context, eventType string, booking *model.Booking) error {
	msg, err := kafka.NewMessage().
		WithKey(strconv.FormatInt(booking.ID, 10)).
		WithValue(BookingEvent{
			BookingID:  booking.ID,
			RoomID:     booking.RoomID,
			RoomType:   booking.RoomType,
			UserID:     booking.UserID,
			TeamID:     booking.TeamID,
			Date:       booking.Date,
			Slot:       booking.Slot,
			OccurredAt: time.Now().UTC(),
		}).
		WithEventType(eventType).
		WithSchemaVersion(SchemaVersion).
		WithSource(Source).
		WithCorrelationID(middleware.RequestIDFromContext(ctx)).
		Build()
	if err != nil {
		return err
	}

	if err := p.publisher.Publish(ctx, msg); err != nil {
		return err
	}

	p.log.Debug("Booking event published",
		"event", eventType,
		"booking_id", booking.ID,
		"event_id", msg.GetEventID(),
	)
	return nil
}
