package models

import "time"

// CalendarEntry is an event a user saved to their personal calendar.
// The event title and dates are snapshotted at save time; deleting the
// source event removes the entry.
type CalendarEntry struct {
	ID           string    `db:"id" json:"id"`
	UserID       string    `db:"user_id" json:"user_id"`
	EventID      string    `db:"event_id" json:"event_id"`
	EventTitle   string    `db:"event_title" json:"event_title"`
	EventDate    string    `db:"event_date" json:"event_date"`
	EventEndDate *string   `db:"event_end_date" json:"event_end_date,omitempty"`
	AddedAt      time.Time `db:"added_at" json:"added_at"`
}

// End returns the effective last day of the entry's event.
func (e CalendarEntry) End() string {
	if e.EventEndDate != nil && *e.EventEndDate != "" {
		return *e.EventEndDate
	}
	return e.EventDate
}

// MultiDay reports whether the saved event spans more than one day.
func (e CalendarEntry) MultiDay() bool {
	return e.EventEndDate != nil && *e.EventEndDate != "" && *e.EventEndDate != e.EventDate
}

// SaveCalendarEntryRequest adds an event to the caller's calendar.
type SaveCalendarEntryRequest struct {
	EventID string `json:"event_id" validate:"required"`
}

// GridEvent is an event placed on a grid cell. Saved marks events the
// caller keeps on their personal calendar.
type GridEvent struct {
	Event
	Saved bool `json:"saved"`
}

// GridCell is one slot in a month view. Blank leading cells carry
// Day == 0 so the first day of the month lands on its weekday column.
type GridCell struct {
	Day     int         `json:"day"`
	Date    string      `json:"date,omitempty"`
	IsToday bool        `json:"is_today"`
	IsPast  bool        `json:"is_past"`
	Events  []GridEvent `json:"events,omitempty"`
}

// MonthGrid is a Sunday-first month view of the campus event schedule.
type MonthGrid struct {
	Year  int        `json:"year"`
	Month int        `json:"month"`
	Cells []GridCell `json:"cells"`
}
