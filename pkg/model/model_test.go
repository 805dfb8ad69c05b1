package model

import (
	"errors"
	"testing"
)

func int64Ptr(v int64) *int64 { return &v }

func TestResolveRequester(t *testing.T) {
	tests := []struct {
		name     string
		roomType RoomType
		userID   *int64
		teamID   *int64
		want     Requester
		wantErr  bool
	}{
		{name: "private uses user", roomType: RoomTypePrivate, userID: int64Ptr(4), want: UserRequester{UserID: 4}},
		{name: "shared uses user", roomType: RoomTypeShared, userID: int64Ptr(9), want: UserRequester{UserID: 9}},
		{name: "conference uses team", roomType: RoomTypeConference, teamID: int64Ptr(2), want: TeamRequester{TeamID: 2}},
		{name: "conference ignores user when team given", roomType: RoomTypeConference, userID: int64Ptr(1), teamID: int64Ptr(2), want: TeamRequester{TeamID: 2}},
		{name: "private ignores team when user given", roomType: RoomTypePrivate, userID: int64Ptr(1), teamID: int64Ptr(2), want: UserRequester{UserID: 1}},
		{name: "private with only team", roomType: RoomTypePrivate, teamID: int64Ptr(2), wantErr: true},
		{name: "conference with only user", roomType: RoomTypeConference, userID: int64Ptr(1), wantErr: true},
		{name: "neither", roomType: RoomTypeShared, wantErr: true},
		{name: "zero id", roomType: RoomTypePrivate, userID: int64Ptr(0), wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ResolveRequester(tt.roomType, tt.userID, tt.teamID)
			if tt.wantErr {
				if !errors.Is(err, ErrRequesterMismatch) {
					t.Fatalf("expected ErrRequesterMismatch, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("got %#v, want %#v", got, tt.want)
			}
		})
	}
}

func TestParseSlot(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{in: "09:00", want: "09:00"},
		{in: "9:00", want: "09:00"},
		{in: "23:59", want: "23:59"},
		{in: "24:00", wantErr: true},
		{in: "12:60", wantErr: true},
		{in: "noon", wantErr: true},
		{in: "", wantErr: true},
	}
	for _, tt := range tests {
		got, err := ParseSlot(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseSlot(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseSlot(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestParseDate(t *testing.T) {
	tests := []struct {
		in      string
		wantErr bool
	}{
		{in: "2025-03-01"},
		{in: "2024-02-29"},
		{in: "2025-02-29", wantErr: true},
		{in: "01-03-2025", wantErr: true},
		{in: "2025/03/01", wantErr: true},
	}
	for _, tt := range tests {
		got, err := ParseDate(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseDate(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if !tt.wantErr && got != tt.in {
			t.Errorf("ParseDate(%q) = %q", tt.in, got)
		}
	}
}

func TestRoomHasRoomFor(t *testing.T) {
	private := Room{ID: 1, RoomType: RoomTypePrivate, Capacity: 1}
	conference := Room{ID: 2, RoomType: RoomTypeConference, Capacity: 10}
	shared := Room{ID: 3, RoomType: RoomTypeShared, Capacity: 4}

	if !private.HasRoomFor(0) || private.HasRoomFor(1) {
		t.Error("private room must be exclusive")
	}
	if !conference.HasRoomFor(0) || conference.HasRoomFor(1) {
		t.Error("conference room must be exclusive regardless of capacity")
	}
	if !shared.HasRoomFor(3) || shared.HasRoomFor(4) {
		t.Error("shared desk must admit up to capacity")
	}
}

func TestRoomTypeParsing(t *testing.T) {
	for _, rt := range RoomTypes {
		got, ok := ParseRoomType(string(rt))
		if !ok || got != rt {
			t.Errorf("ParseRoomType(%q) = %q, %v", rt, got, ok)
		}
	}
	if _, ok := ParseRoomType("private"); ok {
		t.Error("room type parsing is case sensitive")
	}
	if RoomType("OFFICE").Valid() {
		t.Error("unknown room type must be invalid")
	}
	if !RoomTypeConference.RequiresTeam() || RoomTypePrivate.RequiresTeam() {
		t.Error("only conference requires a team")
	}
}

func TestUserIsChild(t *testing.T) {
	if !(&User{Age: 9}).IsChild() {
		t.Error("age 9 is a child")
	}
	if (&User{Age: 10}).IsChild() {
		t.Error("age 10 is not a child")
	}
}
