package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	apperrors "roombook/pkg/errors"

	"github.com/julienschmidt/httprouter"
)

func TestWriteError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
		wantError  string
	}{
		{
			name:       "booking not found",
			err:        apperrors.BookingNotFound(),
			wantStatus: http.StatusNotFound,
			wantCode:   apperrors.CodeBookingNotFound,
			wantError:  "Booking not found",
		},
		{
			name:       "no room",
			err:        apperrors.NoRoomAvailable("No available private room for the selected slot"),
			wantStatus: http.StatusBadRequest,
			wantCode:   apperrors.CodeNoRoomAvailable,
			wantError:  "No available private room for the selected slot",
		},
		{
			name:       "plain error hides cause",
			err:        errors.New("connection reset by peer"),
			wantStatus: http.StatusInternalServerError,
			wantCode:   apperrors.CodeInternal,
			wantError:  "Internal server error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			if err := WriteError(rec, tt.err); err != nil {
				t.Fatalf("WriteError() error = %v", err)
			}
			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			var body ErrorResponse
			if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if body.Code != tt.wantCode {
				t.Errorf("code = %s, want %s", body.Code, tt.wantCode)
			}
			if body.Error != tt.wantError {
				t.Errorf("error = %q, want %q", body.Error, tt.wantError)
			}
		})
	}
}

func TestExtractLimitOffset(t *testing.T) {
	tests := []struct {
		name       string
		query      string
		wantLimit  int
		wantOffset int64
		wantErr    bool
	}{
		{name: "defaults", query: "", wantLimit: 10, wantOffset: 0},
		{name: "explicit", query: "limit=5&offset=20", wantLimit: 5, wantOffset: 20},
		{name: "limit capped", query: "limit=5000", wantLimit: 1000, wantOffset: 0},
		{name: "negative offset", query: "offset=-3", wantLimit: 10, wantOffset: 0},
		{name: "bad limit", query: "limit=abc", wantErr: true},
		{name: "bad offset", query: "offset=x", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/api/v1/bookings?"+tt.query, nil)
			limit, offset, err := ExtractLimitOffset(r)
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if limit != tt.wantLimit || offset != tt.wantOffset {
				t.Errorf("got (%d, %d), want (%d, %d)", limit, offset, tt.wantLimit, tt.wantOffset)
			}
		})
	}
}

func TestExtractID(t *testing.T) {
	if id, err := ExtractID(httprouter.Params{{Key: "id", Value: "42"}}); err != nil || id != 42 {
		t.Errorf("ExtractID(42) = %d, %v", id, err)
	}
	for _, raw := range []string{"", "0", "-1", "abc"} {
		if _, err := ExtractID(httprouter.Params{{Key: "id", Value: raw}}); err == nil {
			t.Errorf("ExtractID(%q) expected error", raw)
		}
	}
}
