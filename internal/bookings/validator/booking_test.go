package validator

import (
	"errors"
	"io"
	"testing"

	"roombook/pkg/logger"
	"roombook/pkg/model"
)

func newTestValidator() *BookingValidator {
	return NewBookingValidator(logger.New(logger.Config{Level: "error", Output: io.Discard}))
}

func int64Ptr(v int64) *int64 { return &v }

func TestValidateRequest(t *testing.T) {
	v := newTestValidator()

	tests := []struct {
		name        string
		req         model.BookingRequest
		wantFields  []string
		wantMissing bool
	}{
		{
			name: "valid private",
			req:  model.BookingRequest{RoomType: "PRIVATE", Date: "2025-06-25", Slot: "10:00", UserID: int64Ptr(1)},
		},
		{
			name: "single digit hour",
			req:  model.BookingRequest{RoomType: "SHARED", Date: "2025-06-25", Slot: "9:00", UserID: int64Ptr(1)},
		},
		{
			name:        "missing everything",
			req:         model.BookingRequest{},
			wantFields:  []string{"room_type", "date", "slot"},
			wantMissing: true,
		},
		{
			name:       "unknown room type",
			req:        model.BookingRequest{RoomType: "OFFICE", Date: "2025-06-25", Slot: "10:00"},
			wantFields: []string{"room_type"},
		},
		{
			name:       "lower case room type",
			req:        model.BookingRequest{RoomType: "private", Date: "2025-06-25", Slot: "10:00"},
			wantFields: []string{"room_type"},
		},
		{
			name:       "bad date and slot",
			req:        model.BookingRequest{RoomType: "PRIVATE", Date: "25-06-2025", Slot: "25:00"},
			wantFields: []string{"date", "slot"},
		},
		{
			name:       "non positive user",
			req:        model.BookingRequest{RoomType: "PRIVATE", Date: "2025-06-25", Slot: "10:00", UserID: int64Ptr(-1)},
			wantFields: []string{"user"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.ValidateRequest(&tt.req)
			if len(tt.wantFields) == 0 {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}

			var verrs ValidationErrors
			if !errors.As(err, &verrs) {
				t.Fatalf("expected ValidationErrors, got %v", err)
			}
			if len(verrs) != len(tt.wantFields) {
				t.Fatalf("expected %d errors, got %d: %v", len(tt.wantFields), len(verrs), verrs)
			}
			for i, field := range tt.wantFields {
				if verrs[i].Field != field {
					t.Errorf("error %d: field = %q, want %q", i, verrs[i].Field, field)
				}
			}
			if verrs.HasMissing() != tt.wantMissing {
				t.Errorf("HasMissing() = %v, want %v", verrs.HasMissing(), tt.wantMissing)
			}
		})
	}
}
