package commands

import (
	"context"
	"strconv"

	apperrors "roombook/pkg/errors"
	"roombook/pkg/kafka"
	"roombook/pkg/logger"
	"roombook/pkg/middleware"
	"roombook/pkg/model"
)

const (
	CommandBookRoom      = "book_room"
	CommandCancelBooking = "cancel_booking"

	ReplySuffix = ".reply"
)

// Allocator is the subset of the booking service commands run through.
type Allocator interface {
	Book(ctx context.Context, req *model.BookingRequest) (*model.Booking, error)
	Cancel(ctx context.Context, id int64) error
}

type ReplyPublisher interface {
	Publish(ctx context.Context, msg kafka.Message) error
}

type CancelBooking struct {
	BookingID int64 `json:"booking_id"`
}

// Reply answers one command. Exactly one of BookingID/Message or Error is set.
type Reply struct {
	Command   string                   `json:"command"`
	OK        bool                     `json:"ok"`
	BookingID int64                    `json:"booking_id,omitempty"`
	Message   string                   `json:"message,omitempty"`
	Error     *apperrors.ErrorResponse `json:"error,omitempty"`
}

// Handler consumes booking commands and publishes a reply for each, keyed and
// correlated like the command.
type Handler struct {
	allocator Allocator
	replies   ReplyPublisher
	log       *logger.Logger
}

func NewHandler(allocator Allocator, replies ReplyPublisher, log *logger.Logger) *Handler {
	return &Handler{
		allocator: allocator,
		replies:   replies,
		log:       log,
	}
}

// Handle implements kafka.MessageHandler. Business rejections are replied to,
// internal failures are returned so the consumer retries them.
func (h *Handler) Handle(ctx context.Context, msg kafka.Message) error {
	command := msg.GetEventType()
	correlationID := msg.GetCorrelationID()
	if correlationID == "" {
		correlationID = msg.GetEventID()
	}
	ctx = context.WithValue(ctx, middleware.RequestIDKey, correlationID)

	var reply Reply
	var err error
	switch command {
	case CommandBookRoom:
		reply, err = h.bookRoom(ctx, msg)
	case CommandCancelBooking:
		reply, err = h.cancelBooking(ctx, msg)
	default:
		h.log.Warn("Unknown booking command", "command", command, "event_id", msg.GetEventID())
		return kafka.NewPermanentError("unknown command "+strconv.Quote(command), nil)
	}
	if err != nil {
		return err
	}
	reply.Command = command

	return h.reply(ctx, msg, correlationID, reply)
}

func (h *Handler) bookRoom(ctx context.Context, msg kafka.Message) (Reply, error) {
	var req model.BookingRequest
	if err := msg.DecodeValue(&req); err != nil {
		return rejected(apperrors.InvalidInput("Invalid request body")), nil
	}

	booking, err := h.allocator.Book(ctx, &req)
	if err != nil {
		return h.outcome(err)
	}
	return Reply{OK: true, BookingID: booking.ID}, nil
}

func (h *Handler) cancelBooking(ctx context.Context, msg kafka.Message) (Reply, error) {
	var cmd CancelBooking
	if err := msg.DecodeValue(&cmd); err != nil || cmd.BookingID <= 0 {
		return rejected(apperrors.InvalidInput("Invalid request body")), nil
	}

	if err := h.allocator.Cancel(ctx, cmd.BookingID); err != nil {
		return h.outcome(err)
	}
	return Reply{OK: true, BookingID: cmd.BookingID, Message: "Booking cancelled successfully"}, nil
}

func (h *Handler) outcome(err error) (Reply, error) {
	appErr := apperrors.AsAppError(err)
	if appErr == nil || appErr.Code == apperrors.CodeInternal {
		return Reply{}, kafka.NewTransientError("booking command failed", err)
	}
	return rejected(appErr), nil
}

func rejected(appErr *apperrors.AppError) Reply {
	resp := appErr.Response()
	return Reply{OK: false, Error: &resp}
}

func (h *Handler) reply(ctx context.Context, cmd kafka.Message, correlationID string, reply Reply) error {
	out, err := kafka.NewMessage().
		WithKey(cmd.Key).
		WithValue(reply).
		WithEventType(reply.Command + ReplySuffix).
		WithCorrelationID(correlationID).
		WithSource("roombook").
		Build()
	if err != nil {
		return kafka.NewPermanentError("encode reply", err)
	}

	// A failed reply is not retried: re-running the command would not be
	// idempotent for book_room.
	if err := h.replies.Publish(ctx, out); err != nil {
		h.log.Error("Failed to publish command reply",
			"command", reply.Command,
			"correlation_id", correlationID,
			"error", err,
		)
		return nil
	}

	h.log.Info("Booking command handled",
		"command", reply.Command,
		"ok", reply.OK,
		"booking_id", reply.BookingID,
		"correlation_id", correlationID,
	)
	return nil
}

// EncodeBookRoom builds a book_room command, for producers and tests.
func EncodeBookRoom(req *model.BookingRequest, correlationID string) (kafka.Message, error) {
	return kafka.NewMessage().
		WithKey(req.RoomType + "_" + req.Date + "_" + req.Slot).
		WithValue(req).
		WithEventType(CommandBookRoom).
		WithCorrelationID(correlationID).
		Build()
}

func EncodeCancelBooking(bookingID int64, correlationID string) (kafka.Message, error) {
	return kafka.NewMessage().
		WithKey(strconv.FormatInt(bookingID, 10)).
		WithValue(CancelBooking{BookingID: bookingID}).
		WithEventType(CommandCancelBooking).
		WithCorrelationID(correlationID).
		Build()
}
