package errors

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestAppError_Error(t *testing.T) {
	tests := []struct {
		name     string
		appErr   *AppError
		expected string
	}{
		{
			name:     "without underlying error",
			appErr:   BookingNotFound(),
			expected: "BOOKING_NOT_FOUND: Booking not found",
		},
		{
			name:     "with underlying error",
			appErr:   Internal("internal error", errors.New("database connection failed")),
			expected: "INTERNAL_ERROR: internal error (caused by: database connection failed)",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.appErr.Error(); got != tt.expected {
				t.Errorf("Error() = %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestDomainErrorStatus(t *testing.T) {
	tests := []struct {
		name       string
		err        *AppError
		wantCode   string
		wantStatus int
	}{
		{"invalid input", InvalidInput("Missing required fields"), CodeInvalidInput, http.StatusBadRequest},
		{"requester not found", RequesterNotFound("User not found"), CodeRequesterNotFound, http.StatusBadRequest},
		{"team too small", TeamTooSmall(3), CodeTeamTooSmall, http.StatusBadRequest},
		{"duplicate requester", DuplicateRequesterBooking("User already has a booking for this slot"), CodeDuplicateRequesterBooking, http.StatusBadRequest},
		{"no room", NoRoomAvailable("No available private room for the selected slot"), CodeNoRoomAvailable, http.StatusBadRequest},
		{"conflict", BookingConflict(nil), CodeBookingConflict, http.StatusConflict},
		{"booking not found", BookingNotFound(), CodeBookingNotFound, http.StatusNotFound},
		{"capacity", CapacityExceeded("PRIVATE", 8), CodeCapacityExceeded, http.StatusConflict},
		{"validation", Validation("Validation failed", nil), CodeValidation, http.StatusUnprocessableEntity},
		{"rate limited", RateLimited("slow down"), CodeRateLimited, http.StatusTooManyRequests},
		{"unavailable", Unavailable("mongo"), CodeUnavailable, http.StatusServiceUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.err.Code != tt.wantCode {
				t.Errorf("code = %s, want %s", tt.err.Code, tt.wantCode)
			}
			if tt.err.StatusCode() != tt.wantStatus {
				t.Errorf("status = %d, want %d", tt.err.StatusCode(), tt.wantStatus)
			}
		})
	}
}

func TestTeamTooSmallMessage(t *testing.T) {
	err := TeamTooSmall(3)
	if err.Message != "Team must have at least 3 members" {
		t.Errorf("unexpected message %q", err.Message)
	}
	if err.Details["min_members"] != 3 {
		t.Errorf("expected min_members detail, got %v", err.Details)
	}
}

func TestAppError_Is(t *testing.T) {
	wrapped := fmt.Errorf("cancel: %w", BookingNotFound())

	if !errors.Is(wrapped, BookingNotFound()) {
		t.Error("expected wrapped booking-not-found to match by code")
	}
	if errors.Is(wrapped, NotFound("Booking")) {
		t.Error("generic NOT_FOUND must not match BOOKING_NOT_FOUND")
	}
}

func TestHasCode(t *testing.T) {
	err := fmt.Errorf("book: %w", NoRoomAvailable("none"))

	if !HasCode(err, CodeNoRoomAvailable) {
		t.Error("HasCode should see through wrapping")
	}
	if HasCode(errors.New("plain"), CodeNoRoomAvailable) {
		t.Error("HasCode should be false for non-AppError")
	}
}

func TestAsAppError(t *testing.T) {
	appErr := NotFound("User")
	regularErr := errors.New("regular error")

	if result := AsAppError(appErr); result != appErr {
		t.Errorf("AsAppError() should return same AppError")
	}
	if result := AsAppError(fmt.Errorf("outer: %w", appErr)); result != appErr {
		t.Errorf("AsAppError() should unwrap to the inner AppError")
	}

	result := AsAppError(regularErr)
	if result.Code != CodeInternal {
		t.Errorf("AsAppError() should wrap regular error as internal error")
	}
	if result.Err != regularErr {
		t.Errorf("AsAppError() should wrap the original error")
	}
}

func TestAppError_Unwrap(t *testing.T) {
	cause := errors.New("duplicate key")
	appErr := BookingConflict(cause)

	if !errors.Is(appErr, cause) {
		t.Errorf("expected BookingConflict to unwrap to its cause")
	}
}

func TestAppError_ToJSON(t *testing.T) {
	err := NotFoundWithID("Room", "12")

	var body map[string]any
	if jsonErr := json.Unmarshal(err.ToJSON(), &body); jsonErr != nil {
		t.Fatalf("ToJSON() produced invalid JSON: %v", jsonErr)
	}
	if body["error"] != "Room not found" {
		t.Errorf("error = %v, want 'Room not found'", body["error"])
	}
	if body["code"] != CodeNotFound {
		t.Errorf("code = %v, want %s", body["code"], CodeNotFound)
	}
	details, ok := body["details"].(map[string]any)
	if !ok || details["id"] != "12" {
		t.Errorf("details = %v, want id 12", body["details"])
	}
}
