package models

import "time"

// AnnouncementCategory groups announcements on the board.
type AnnouncementCategory string

const (
	CategoryAkademik    AnnouncementCategory = "Akademik"
	CategoryBeasiswa    AnnouncementCategory = "Beasiswa"
	CategoryNonAkademik AnnouncementCategory = "Non-Akademik"
	CategorySeminar     AnnouncementCategory = "Seminar"
	CategoryLomba       AnnouncementCategory = "Lomba"
)

// Categories lists every valid announcement category.
var Categories = []AnnouncementCategory{
	CategoryAkademik,
	CategoryBeasiswa,
	CategoryNonAkademik,
	CategorySeminar,
	CategoryLomba,
}

// ValidCategory reports whether c is a known category.
func ValidCategory(c AnnouncementCategory) bool {
	for _, known := range Categories {
		if c == known {
			return true
		}
	}
	return false
}

// AnnouncementStatus tracks the approval lifecycle.
type AnnouncementStatus string

const (
	StatusPending   AnnouncementStatus = "pending"
	StatusPublished AnnouncementStatus = "published"
	StatusRejected  AnnouncementStatus = "rejected"
)

// Announcement represents a persisted announcement row. StartDate and
// EndDate are ISO calendar dates (YYYY-MM-DD) so they compare correctly
// as plain strings.
type Announcement struct {
	ID         string               `db:"id" json:"id"`
	Title      string               `db:"title" json:"title"`
	Content    string               `db:"content" json:"content"`
	Category   AnnouncementCategory `db:"category" json:"category"`
	Status     AnnouncementStatus   `db:"status" json:"status"`
	ImagePath  *string              `db:"image_path" json:"image_path,omitempty"`
	VideoURL   *string              `db:"video_url" json:"video_url,omitempty"`
	StartDate  *string              `db:"start_date" json:"start_date,omitempty"`
	EndDate    *string              `db:"end_date" json:"end_date,omitempty"`
	Location   *string              `db:"location" json:"location,omitempty"`
	AuthorID   string               `db:"author_id" json:"author_id"`
	AuthorName string               `db:"author_name" json:"author_name"`
	ApprovedBy *string              `db:"approved_by" json:"approved_by,omitempty"`
	ApprovedAt *time.Time           `db:"approved_at" json:"approved_at,omitempty"`
	CreatedAt  time.Time            `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time            `db:"updated_at" json:"updated_at"`
}

// CreateAnnouncementRequest submits a new announcement. An optional image
// arrives base64 encoded and is persisted to media storage.
type CreateAnnouncementRequest struct {
	Title     string               `json:"title" validate:"required,min=3,max=200"`
	Content   string               `json:"content" validate:"required"`
	Category  AnnouncementCategory `json:"category" validate:"required"`
	Image     string               `json:"image,omitempty"`
	VideoURL  *string              `json:"video_url,omitempty" validate:"omitempty,url"`
	StartDate *string              `json:"start_date,omitempty" validate:"omitempty,datetime=2006-01-02"`
	EndDate   *string              `json:"end_date,omitempty" validate:"omitempty,datetime=2006-01-02"`
	Location  *string              `json:"location,omitempty" validate:"omitempty,max=200"`
}

// AnnouncementFilter narrows board and admin listings. CreatedFrom and
// CreatedTo bound the creation date, inclusive, as ISO dates.
type AnnouncementFilter struct {
	Status      *AnnouncementStatus
	Category    *AnnouncementCategory
	AuthorID    string
	Search      string
	CreatedFrom string
	CreatedTo   string
	Page        int
	PageSize    int
}
