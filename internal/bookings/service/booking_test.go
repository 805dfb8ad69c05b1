package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"testing"
	"time"

	bookingserrors "roombook/internal/bookings/errors"
	"roombook/internal/bookings/validator"
	"roombook/pkg/config"
	mongotx "roombook/pkg/db/mongo"
	apperrors "roombook/pkg/errors"
	"roombook/pkg/logger"
	"roombook/pkg/model"
)

const (
	testDate = "2025-06-25"
	testSlot = "10:00"
)

func int64Ptr(v int64) *int64 { return &v }

func testLogger() *logger.Logger {
	return logger.New(logger.Config{Level: "error", Output: io.Discard})
}

func newTestService(store *memStore, events EventPublisher) BookingService {
	log := testLogger()
	locker := mongotx.NewLockManager(&memLockStore{}, mongotx.LockOptions{
		TTL:           5 * time.Second,
		WaitTimeout:   5 * time.Second,
		RetryInterval: time.Millisecond,
	}, log)
	return NewBookingService(store, roomsView{store}, usersView{store}, teamsView{store},
		locker, events, validator.NewBookingValidator(log), &config.Config{Log: log})
}

func userRequest(roomType model.RoomType, userID int64) *model.BookingRequest {
	return &model.BookingRequest{RoomType: string(roomType), Date: testDate, Slot: testSlot, UserID: int64Ptr(userID)}
}

func teamRequest(teamID int64) *model.BookingRequest {
	return &model.BookingRequest{RoomType: string(model.RoomTypeConference), Date: testDate, Slot: testSlot, TeamID: int64Ptr(teamID)}
}

func expectCode(t *testing.T, err error, code string) {
	t.Helper()
	if !apperrors.HasCode(err, code) {
		t.Fatalf("expected %s, got %v", code, err)
	}
}

func roomIDs(rooms []*model.Room) []int64 {
	ids := make([]int64, 0, len(rooms))
	for _, r := range rooms {
		ids = append(ids, r.ID)
	}
	return ids
}

// ────────────────────────────────────────────────
// Allocation
// ────────────────────────────────────────────────

func TestBook_AliceScenario(t *testing.T) {
	store := newMemStore()
	for id := int64(1); id <= 8; id++ {
		store.addRoom(id, model.RoomTypePrivate, 1)
	}
	store.addUser(1)
	svc := newTestService(store, nil)
	ctx := context.Background()

	booking, err := svc.Book(ctx, userRequest(model.RoomTypePrivate, 1))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if booking.ID <= 0 || booking.RoomID != 1 {
		t.Fatalf("expected a booking on room 1, got %+v", booking)
	}

	_, err = svc.Book(ctx, userRequest(model.RoomTypePrivate, 1))
	expectCode(t, err, apperrors.CodeDuplicateRequesterBooking)
	if store.bookingCount() != 1 {
		t.Fatalf("rejection must not store a booking, have %d", store.bookingCount())
	}
}

func TestBook_ConcurrentPrivateRequests(t *testing.T) {
	store := newMemStore()
	for id := int64(1); id <= 8; id++ {
		store.addRoom(id, model.RoomTypePrivate, 1)
	}
	for id := int64(1); id <= 9; id++ {
		store.addUser(id)
	}
	svc := newTestService(store, nil)
	ctx := context.Background()

	results := make([]*model.Booking, 8)
	errs := make([]error, 8)
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = svc.Book(ctx, userRequest(model.RoomTypePrivate, int64(i+1)))
		}(i)
	}
	wg.Wait()

	rooms := map[int64]bool{}
	for i, err := range errs {
		if err != nil {
			t.Fatalf("request %d: unexpected error: %v", i, err)
		}
		if rooms[results[i].RoomID] {
			t.Fatalf("room %d allocated twice", results[i].RoomID)
		}
		rooms[results[i].RoomID] = true
	}
	if len(rooms) != 8 {
		t.Fatalf("expected 8 distinct rooms, got %d", len(rooms))
	}

	_, err := svc.Book(ctx, userRequest(model.RoomTypePrivate, 9))
	expectCode(t, err, apperrors.CodeNoRoomAvailable)
	if msg := apperrors.AsAppError(err).Message; msg != "No available private room for the selected slot" {
		t.Errorf("unexpected message %q", msg)
	}
}

func TestBook_TeamGrowsIntoConferenceRoom(t *testing.T) {
	store := newMemStore()
	store.addRoom(1, model.RoomTypeConference, 10)
	store.addTeam(1, 1, 2)
	svc := newTestService(store, nil)
	ctx := context.Background()

	_, err := svc.Book(ctx, teamRequest(1))
	expectCode(t, err, apperrors.CodeTeamTooSmall)

	store.addMember(1, 3)
	booking, err := svc.Book(ctx, teamRequest(1))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if booking.TeamID == nil || *booking.TeamID != 1 || booking.UserID != nil {
		t.Fatalf("expected a team booking, got %+v", booking)
	}

	_, err = svc.Book(ctx, teamRequest(1))
	expectCode(t, err, apperrors.CodeDuplicateRequesterBooking)
}

func TestBook_SharedDeskCapacity(t *testing.T) {
	store := newMemStore()
	store.addRoom(1, model.RoomTypeShared, 4)
	for id := int64(1); id <= 5; id++ {
		store.addUser(id)
	}
	svc := newTestService(store, nil)
	ctx := context.Background()

	for id := int64(1); id <= 4; id++ {
		booking, err := svc.Book(ctx, userRequest(model.RoomTypeShared, id))
		if err != nil {
			t.Fatalf("user %d: unexpected error: %v", id, err)
		}
		if booking.RoomID != 1 {
			t.Fatalf("user %d: expected room 1, got %d", id, booking.RoomID)
		}
	}

	_, err := svc.Book(ctx, userRequest(model.RoomTypeShared, 5))
	expectCode(t, err, apperrors.CodeNoRoomAvailable)
	if msg := apperrors.AsAppError(err).Message; msg != "No available shared desk for the selected slot" {
		t.Errorf("unexpected message %q", msg)
	}

	rooms, err := svc.FindAvailable(ctx, model.RoomTypeShared, testDate, testSlot)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(rooms) != 0 {
		t.Fatalf("full shared desk must not be available, got %v", roomIDs(rooms))
	}
}

func TestBook_LowestRoomIDWins(t *testing.T) {
	store := newMemStore()
	store.addRoom(3, model.RoomTypePrivate, 1)
	store.addRoom(1, model.RoomTypePrivate, 1)
	store.addRoom(2, model.RoomTypePrivate, 1)
	for id := int64(1); id <= 3; id++ {
		store.addUser(id)
	}
	svc := newTestService(store, nil)
	ctx := context.Background()

	first, err := svc.Book(ctx, userRequest(model.RoomTypePrivate, 1))
	if err != nil || first.RoomID != 1 {
		t.Fatalf("expected room 1, got %+v, %v", first, err)
	}
	second, err := svc.Book(ctx, userRequest(model.RoomTypePrivate, 2))
	if err != nil || second.RoomID != 2 {
		t.Fatalf("expected room 2, got %+v, %v", second, err)
	}

	if err := svc.Cancel(ctx, first.ID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	third, err := svc.Book(ctx, userRequest(model.RoomTypePrivate, 3))
	if err != nil || third.RoomID != 1 {
		t.Fatalf("expected freed room 1, got %+v, %v", third, err)
	}
}

func TestBook_OneBookingPerUserAcrossTypes(t *testing.T) {
	store := newMemStore()
	store.addRoom(1, model.RoomTypePrivate, 1)
	store.addRoom(2, model.RoomTypeShared, 4)
	store.addUser(1)
	svc := newTestService(store, nil)
	ctx := context.Background()

	if _, err := svc.Book(ctx, userRequest(model.RoomTypePrivate, 1)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	_, err := svc.Book(ctx, userRequest(model.RoomTypeShared, 1))
	expectCode(t, err, apperrors.CodeDuplicateRequesterBooking)

	// Another slot is fine.
	other := userRequest(model.RoomTypeShared, 1)
	other.Slot = "11:00"
	if _, err := svc.Book(ctx, other); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestBook_CanonicalSlot(t *testing.T) {
	store := newMemStore()
	store.addRoom(1, model.RoomTypePrivate, 1)
	store.addRoom(2, model.RoomTypePrivate, 1)
	store.addUser(1)
	svc := newTestService(store, nil)
	ctx := context.Background()

	req := userRequest(model.RoomTypePrivate, 1)
	req.Slot = " 9:00 "
	booking, err := svc.Book(ctx, req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if booking.Slot != "09:00" {
		t.Fatalf("expected canonical slot 09:00, got %q", booking.Slot)
	}

	req = userRequest(model.RoomTypePrivate, 1)
	req.Slot = "09:00"
	_, err = svc.Book(ctx, req)
	expectCode(t, err, apperrors.CodeDuplicateRequesterBooking)
}

func TestBook_Rejections(t *testing.T) {
	tests := []struct {
		name     string
		req      *model.BookingRequest
		wantCode string
		wantMsg  string
	}{
		{
			name:     "missing fields",
			req:      &model.BookingRequest{UserID: int64Ptr(1)},
			wantCode: apperrors.CodeInvalidInput,
			wantMsg:  "Missing required fields",
		},
		{
			name:     "bad date",
			req:      &model.BookingRequest{RoomType: "PRIVATE", Date: "2025-13-01", Slot: testSlot, UserID: int64Ptr(1)},
			wantCode: apperrors.CodeInvalidInput,
			wantMsg:  "Invalid booking request",
		},
		{
			name:     "unknown room type",
			req:      &model.BookingRequest{RoomType: "OFFICE", Date: testDate, Slot: testSlot, UserID: int64Ptr(1)},
			wantCode: apperrors.CodeInvalidInput,
		},
		{
			name:     "private with team only",
			req:      &model.BookingRequest{RoomType: "PRIVATE", Date: testDate, Slot: testSlot, TeamID: int64Ptr(1)},
			wantCode: apperrors.CodeInvalidInput,
			wantMsg:  "Invalid data or room type",
		},
		{
			name:     "conference with user only",
			req:      &model.BookingRequest{RoomType: "CONFERENCE", Date: testDate, Slot: testSlot, UserID: int64Ptr(1)},
			wantCode: apperrors.CodeInvalidInput,
			wantMsg:  "Invalid data or room type",
		},
		{
			name:     "unknown user",
			req:      userRequest(model.RoomTypePrivate, 42),
			wantCode: apperrors.CodeRequesterNotFound,
			wantMsg:  "User not found",
		},
		{
			name:     "unknown team",
			req:      teamRequest(42),
			wantCode: apperrors.CodeRequesterNotFound,
			wantMsg:  "Team not found",
		},
		{
			name:     "no shared desk exists",
			req:      userRequest(model.RoomTypeShared, 1),
			wantCode: apperrors.CodeNoRoomAvailable,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newMemStore()
			store.addRoom(1, model.RoomTypePrivate, 1)
			store.addRoom(2, model.RoomTypeConference, 8)
			store.addUser(1)
			svc := newTestService(store, nil)

			_, err := svc.Book(context.Background(), tt.req)
			expectCode(t, err, tt.wantCode)
			if tt.wantMsg != "" && apperrors.AsAppError(err).Message != tt.wantMsg {
				t.Errorf("message = %q, want %q", apperrors.AsAppError(err).Message, tt.wantMsg)
			}
			if store.bookingCount() != 0 {
				t.Errorf("rejection must not store a booking")
			}
		})
	}
}

func TestBook_ConflictSignals(t *testing.T) {
	t.Run("uniqueness violation at insert", func(t *testing.T) {
		store := newMemStore()
		store.addRoom(1, model.RoomTypePrivate, 1)
		store.addUser(1)
		store.createErr = fmt.Errorf("%w: E11000 duplicate key", bookingserrors.ErrSlotTaken)
		svc := newTestService(store, nil)

		_, err := svc.Book(context.Background(), userRequest(model.RoomTypePrivate, 1))
		expectCode(t, err, apperrors.CodeBookingConflict)
		if apperrors.AsAppError(err).StatusCode() != 409 {
			t.Errorf("expected 409, got %d", apperrors.AsAppError(err).StatusCode())
		}
	})

	t.Run("lock wait timeout", func(t *testing.T) {
		store := newMemStore()
		log := testLogger()
		svc := NewBookingService(store, roomsView{store}, usersView{store}, teamsView{store},
			failingLocker{err: fmt.Errorf("%w: key", mongotx.ErrLockTimeout)}, nil,
			validator.NewBookingValidator(log), &config.Config{Log: log})

		_, err := svc.Book(context.Background(), userRequest(model.RoomTypePrivate, 1))
		expectCode(t, err, apperrors.CodeBookingConflict)
	})

	t.Run("storage fault", func(t *testing.T) {
		store := newMemStore()
		store.addRoom(1, model.RoomTypePrivate, 1)
		store.addUser(1)
		store.occupancyErr = errors.New("connection reset")
		svc := newTestService(store, nil)

		_, err := svc.Book(context.Background(), userRequest(model.RoomTypePrivate, 1))
		expectCode(t, err, apperrors.CodeInternal)
	})
}

// ────────────────────────────────────────────────
// Cancellation and availability
// ────────────────────────────────────────────────

func TestCancel(t *testing.T) {
	store := newMemStore()
	store.addRoom(1, model.RoomTypePrivate, 1)
	store.addRoom(2, model.RoomTypeShared, 2)
	store.addUser(1)
	events := &recordingPublisher{}
	svc := newTestService(store, events)
	ctx := context.Background()

	before, err := svc.ListAvailable(ctx, testDate, testSlot)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	booking, err := svc.Book(ctx, userRequest(model.RoomTypePrivate, 1))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	during, _ := svc.ListAvailable(ctx, testDate, testSlot)
	if len(during) != len(before)-1 {
		t.Fatalf("booked room must leave the available set: before %v, during %v", roomIDs(before), roomIDs(during))
	}

	if err := svc.Cancel(ctx, booking.ID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	after, _ := svc.ListAvailable(ctx, testDate, testSlot)
	if fmt.Sprint(roomIDs(after)) != fmt.Sprint(roomIDs(before)) {
		t.Fatalf("cancel must restore availability: before %v, after %v", roomIDs(before), roomIDs(after))
	}

	if len(events.created) != 1 || len(events.cancelled) != 1 || events.cancelled[0] != booking.ID {
		t.Fatalf("expected created and cancelled events, got %+v", events)
	}
}

func TestCancel_UnknownBooking(t *testing.T) {
	store := newMemStore()
	store.addRoom(1, model.RoomTypePrivate, 1)
	store.addUser(1)
	svc := newTestService(store, nil)
	ctx := context.Background()

	if _, err := svc.Book(ctx, userRequest(model.RoomTypePrivate, 1)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	err := svc.Cancel(ctx, 999)
	if !errors.Is(err, apperrors.BookingNotFound()) {
		t.Fatalf("expected BOOKING_NOT_FOUND, got %v", err)
	}
	if apperrors.AsAppError(err).StatusCode() != 404 {
		t.Errorf("expected 404")
	}
	if store.bookingCount() != 1 {
		t.Fatalf("failed cancel must not change state")
	}
}

func TestListAvailable(t *testing.T) {
	store := newMemStore()
	store.addRoom(1, model.RoomTypePrivate, 1)
	store.addRoom(2, model.RoomTypeConference, 6)
	store.addRoom(3, model.RoomTypeShared, 2)
	store.addRoom(4, model.RoomTypePrivate, 1)
	store.addUser(1)
	store.addUser(2)
	store.addTeam(1, 1, 2, 3)
	svc := newTestService(store, nil)
	ctx := context.Background()

	all, err := svc.ListAvailable(ctx, testDate, testSlot)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := fmt.Sprint(roomIDs(all)); got != "[1 2 3 4]" {
		t.Fatalf("expected all rooms ordered by id, got %s", got)
	}

	mustBook := func(req *model.BookingRequest) {
		t.Helper()
		if _, err := svc.Book(ctx, req); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	mustBook(userRequest(model.RoomTypePrivate, 1))
	mustBook(teamRequest(1))
	mustBook(userRequest(model.RoomTypeShared, 2))

	all, _ = svc.ListAvailable(ctx, testDate, testSlot)
	if got := fmt.Sprint(roomIDs(all)); got != "[3 4]" {
		t.Fatalf("expected shared desk with one seat left and room 4, got %s", got)
	}

	private, _ := svc.FindAvailable(ctx, model.RoomTypePrivate, testDate, testSlot)
	if got := fmt.Sprint(roomIDs(private)); got != "[4]" {
		t.Fatalf("expected private room 4, got %s", got)
	}

	otherSlot, _ := svc.ListAvailable(ctx, testDate, "11:00")
	if len(otherSlot) != 4 {
		t.Fatalf("other slots are unaffected, got %v", roomIDs(otherSlot))
	}
}

func TestAvailability_InvalidInput(t *testing.T) {
	svc := newTestService(newMemStore(), nil)
	ctx := context.Background()

	_, err := svc.ListAvailable(ctx, "", testSlot)
	expectCode(t, err, apperrors.CodeInvalidInput)

	_, err = svc.ListAvailable(ctx, testDate, "25:00")
	expectCode(t, err, apperrors.CodeInvalidInput)

	_, err = svc.FindAvailable(ctx, "OFFICE", testDate, testSlot)
	expectCode(t, err, apperrors.CodeInvalidInput)
}

func TestBook_EventFailureDoesNotFailBooking(t *testing.T) {
	store := newMemStore()
	store.addRoom(1, model.RoomTypePrivate, 1)
	store.addUser(1)
	events := &recordingPublisher{err: errors.New("broker down")}
	svc := newTestService(store, events)

	if _, err := svc.Book(context.Background(), userRequest(model.RoomTypePrivate, 1)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if store.bookingCount() != 1 || len(events.created) != 1 {
		t.Fatalf("booking must be stored and publish attempted")
	}
}

func TestGetAll(t *testing.T) {
	store := newMemStore()
	store.addRoom(1, model.RoomTypeShared, 10)
	for id := int64(1); id <= 3; id++ {
		store.addUser(id)
	}
	svc := newTestService(store, nil)
	ctx := context.Background()

	for id := int64(1); id <= 3; id++ {
		if _, err := svc.Book(ctx, userRequest(model.RoomTypeShared, id)); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	bookings, total, err := svc.GetAll(ctx, 2, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if total != 3 || len(bookings) != 2 {
		t.Fatalf("expected 2 of 3 bookings, got %d of %d", len(bookings), total)
	}

	if _, err := svc.GetByID(ctx, bookings[0].ID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	_, err = svc.GetByID(ctx, 999)
	expectCode(t, err, apperrors.CodeNotFound)
}
