package models

import (
	"time"

	"github.com/lib/pq"
)

// Comment belongs to an announcement. Author fields are snapshotted at
// write time so comments keep rendering after profile changes.
type Comment struct {
	ID              string         `db:"id" json:"id"`
	AnnouncementID  string         `db:"announcement_id" json:"announcement_id"`
	AuthorID        string         `db:"author_id" json:"author_id"`
	AuthorName      string         `db:"author_name" json:"author_name"`
	AuthorRole      UserRole       `db:"author_role" json:"author_role"`
	AuthorPhotoPath *string        `db:"author_photo_path" json:"author_photo_path,omitempty"`
	Content         string         `db:"content" json:"content"`
	Reports         pq.StringArray `db:"reports" json:"-"`
	IsReported      bool           `db:"is_reported" json:"is_reported"`
	CreatedAt       time.Time      `db:"created_at" json:"created_at"`
}

// ReportCount exposes how many distinct users flagged the comment.
func (c Comment) ReportCount() int {
	return len(c.Reports)
}

// ReportedBy reports whether userID already flagged the comment.
func (c Comment) ReportedBy(userID string) bool {
	for _, id := range c.Reports {
		if id == userID {
			return true
		}
	}
	return false
}

// CreateCommentRequest posts a comment under an announcement.
type CreateCommentRequest struct {
	Content string `json:"content" validate:"required,min=1,max=1000"`
}
