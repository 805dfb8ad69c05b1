package model

import (
	"fmt"
	"time"
)

const (
	DateLayout = "2006-01-02"
	SlotLayout = "15:04"
)

// ParseDate validates a YYYY-MM-DD date and returns its canonical form.
func ParseDate(s string) (string, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return "", fmt.Errorf("invalid date %q: expected YYYY-MM-DD", s)
	}
	return t.Format(DateLayout), nil
}

// ParseSlot validates an HH:MM time of day and returns its canonical
// zero-padded form, so "9:00" and "09:00" name the same slot.
func ParseSlot(s string) (string, error) {
	t, err := time.Parse(SlotLayout, s)
	if err != nil {
		return "", fmt.Errorf("invalid slot %q: expected HH:MM", s)
	}
	return t.Format(SlotLayout), nil
}
