package commands

import (
	"context"
	"errors"
	"io"
	"testing"

	apperrors "roombook/pkg/errors"
	"roombook/pkg/kafka"
	"roombook/pkg/logger"
	"roombook/pkg/middleware"
	"roombook/pkg/model"
)

type mockAllocator struct {
	bookFunc   func(ctx context.Context, req *model.BookingRequest) (*model.Booking, error)
	cancelFunc func(ctx context.Context, id int64) error
}

func (m *mockAllocator) Book(ctx context.Context, req *model.BookingRequest) (*model.Booking, error) {
	return m.bookFunc(ctx, req)
}

func (m *mockAllocator) Cancel(ctx context.Context, id int64) error {
	return m.cancelFunc(ctx, id)
}

type captureReplies struct {
	messages []kafka.Message
	err      error
}

func (c *captureReplies) Publish(ctx context.Context, msg kafka.Message) error {
	if c.err != nil {
		return c.err
	}
	c.messages = append(c.messages, msg)
	return nil
}

func newHandler(alloc Allocator, replies ReplyPublisher) *Handler {
	return NewHandler(alloc, replies, logger.New(logger.Config{Level: "error", Output: io.Discard}))
}

func decodeReply(t *testing.T, msg kafka.Message) Reply {
	t.Helper()
	var reply Reply
	if err := msg.DecodeValue(&reply); err != nil {
		t.Fatalf("decode reply: %v", err)
	}
	return reply
}

func TestHandle_BookRoom(t *testing.T) {
	userID := int64(5)
	var seenCorrelation string
	alloc := &mockAllocator{
		bookFunc: func(ctx context.Context, req *model.BookingRequest) (*model.Booking, error) {
			seenCorrelation = middleware.RequestIDFromContext(ctx)
			if req.UserID == nil || *req.UserID != userID || req.Slot != "10:00" {
				t.Errorf("unexpected request %+v", req)
			}
			return &model.Booking{ID: 11}, nil
		},
	}
	replies := &captureReplies{}
	h := newHandler(alloc, replies)

	cmd, err := EncodeBookRoom(&model.BookingRequest{RoomType: "PRIVATE", Date: "2025-06-25", Slot: "10:00", UserID: &userID}, "corr-1")
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if err := h.Handle(context.Background(), cmd); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if seenCorrelation != "corr-1" {
		t.Errorf("expected correlation id in context, got %q", seenCorrelation)
	}
	if len(replies.messages) != 1 {
		t.Fatalf("expected one reply, got %d", len(replies.messages))
	}
	out := replies.messages[0]
	if out.GetCorrelationID() != "corr-1" || out.GetEventType() != "book_room.reply" || out.Key != cmd.Key {
		t.Errorf("unexpected reply headers %+v key %q", out.Headers, out.Key)
	}
	reply := decodeReply(t, out)
	if !reply.OK || reply.BookingID != 11 || reply.Command != CommandBookRoom {
		t.Errorf("unexpected reply %+v", reply)
	}
}

func TestHandle_BookRoomRejected(t *testing.T) {
	alloc := &mockAllocator{
		bookFunc: func(ctx context.Context, req *model.BookingRequest) (*model.Booking, error) {
			return nil, apperrors.NoRoomAvailable("No available private room for the selected slot")
		},
	}
	replies := &captureReplies{}
	h := newHandler(alloc, replies)

	cmd, _ := EncodeBookRoom(&model.BookingRequest{RoomType: "PRIVATE", Date: "2025-06-25", Slot: "10:00"}, "")
	if err := h.Handle(context.Background(), cmd); err != nil {
		t.Fatalf("business rejection must not fail the message: %v", err)
	}

	reply := decodeReply(t, replies.messages[0])
	if reply.OK || reply.Error == nil || reply.Error.Code != apperrors.CodeNoRoomAvailable {
		t.Errorf("unexpected reply %+v", reply)
	}
	// Falls back to the event id for correlation.
	if replies.messages[0].GetCorrelationID() != cmd.GetEventID() {
		t.Errorf("expected event id as correlation id")
	}
}

func TestHandle_InternalFailureIsRetried(t *testing.T) {
	alloc := &mockAllocator{
		bookFunc: func(ctx context.Context, req *model.BookingRequest) (*model.Booking, error) {
			return nil, apperrors.Internal("Failed to create booking", errors.New("connection reset"))
		},
	}
	replies := &captureReplies{}
	h := newHandler(alloc, replies)

	cmd, _ := EncodeBookRoom(&model.BookingRequest{RoomType: "PRIVATE", Date: "2025-06-25", Slot: "10:00"}, "c")
	err := h.Handle(context.Background(), cmd)
	if kafka.ClassifyError(err) != kafka.ErrorTypeTransient {
		t.Fatalf("expected transient error, got %v", err)
	}
	if len(replies.messages) != 0 {
		t.Fatal("no reply expected before the command settles")
	}
}

func TestHandle_CancelBooking(t *testing.T) {
	tests := []struct {
		name      string
		cancelErr error
		wantOK    bool
		wantCode  string
	}{
		{name: "cancelled", wantOK: true},
		{name: "not found", cancelErr: apperrors.BookingNotFound(), wantCode: apperrors.CodeBookingNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			alloc := &mockAllocator{
				cancelFunc: func(ctx context.Context, id int64) error {
					if id != 9 {
						t.Errorf("unexpected id %d", id)
					}
					return tt.cancelErr
				},
			}
			replies := &captureReplies{}
			h := newHandler(alloc, replies)

			cmd, _ := EncodeCancelBooking(9, "c-9")
			if err := h.Handle(context.Background(), cmd); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			reply := decodeReply(t, replies.messages[0])
			if reply.OK != tt.wantOK {
				t.Fatalf("ok = %v, want %v", reply.OK, tt.wantOK)
			}
			if tt.wantCode != "" && (reply.Error == nil || reply.Error.Code != tt.wantCode) {
				t.Errorf("unexpected reply error %+v", reply.Error)
			}
		})
	}
}

func TestHandle_MalformedAndUnknown(t *testing.T) {
	replies := &captureReplies{}
	h := newHandler(&mockAllocator{}, replies)

	bad, _ := kafka.NewMessage().WithKey("k").WithValue("not an object").WithEventType(CommandBookRoom).Build()
	if err := h.Handle(context.Background(), bad); err != nil {
		t.Fatalf("malformed payload is replied to, got %v", err)
	}
	reply := decodeReply(t, replies.messages[0])
	if reply.OK || reply.Error.Code != apperrors.CodeInvalidInput {
		t.Errorf("unexpected reply %+v", reply)
	}

	unknown, _ := kafka.NewMessage().WithKey("k").WithValue(map[string]int{"a": 1}).WithEventType("move_room").Build()
	err := h.Handle(context.Background(), unknown)
	if kafka.ClassifyError(err) != kafka.ErrorTypePermanent {
		t.Fatalf("expected permanent error, got %v", err)
	}
}

func TestHandle_ReplyFailureIsNotRetried(t *testing.T) {
	alloc := &mockAllocator{
		bookFunc: func(ctx context.Context, req *model.BookingRequest) (*model.Booking, error) {
			return &model.Booking{ID: 1}, nil
		},
	}
	h := newHandler(alloc, &captureReplies{err: errors.New("broker down")})

	cmd, _ := EncodeBookRoom(&model.BookingRequest{RoomType: "SHARED", Date: "2025-06-25", Slot: "10:00"}, "c")
	if err := h.Handle(context.Background(), cmd); err != nil {
		t.Fatalf("expected nil, got %v", err)
	}
}
