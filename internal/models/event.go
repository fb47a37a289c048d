package models

import "time"

// DefaultEventLocation is used for events spawned from approved
// announcements that carry no explicit location.
const DefaultEventLocation = "Kampus"

// Event represents a campus event. Dates are ISO calendar dates
// (YYYY-MM-DD); EndDate equals StartDate for single-day events.
type Event struct {
	ID                   string    `db:"id" json:"id"`
	Title                string    `db:"title" json:"title"`
	Description          string    `db:"description" json:"description"`
	StartDate            string    `db:"start_date" json:"start_date"`
	EndDate              string    `db:"end_date" json:"end_date"`
	Location             string    `db:"location" json:"location"`
	SourceAnnouncementID *string   `db:"source_announcement_id" json:"source_announcement_id,omitempty"`
	CreatedBy            string    `db:"created_by" json:"created_by"`
	CreatedAt            time.Time `db:"created_at" json:"created_at"`
	UpdatedAt            time.Time `db:"updated_at" json:"updated_at"`
}

// MultiDay reports whether the event spans more than one calendar day.
func (e Event) MultiDay() bool {
	return e.EndDate != "" && e.EndDate != e.StartDate
}

// End returns the effective last day of the event.
func (e Event) End() string {
	if e.EndDate != "" {
		return e.EndDate
	}
	return e.StartDate
}

// CreateEventRequest lets an admin schedule an event directly.
type CreateEventRequest struct {
	Title       string  `json:"title" validate:"required,min=3,max=200"`
	Description string  `json:"description"`
	StartDate   string  `json:"start_date" validate:"required,datetime=2006-01-02"`
	EndDate     *string `json:"end_date,omitempty" validate:"omitempty,datetime=2006-01-02"`
	Location    string  `json:"location"`
}

// EventFilter narrows event listings.
type EventFilter struct {
	FromDate string
	ToDate   string
	Page     int
	PageSize int
}
