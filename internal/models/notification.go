package models

// NotificationType distinguishes the notification feeds.
type NotificationType string

const (
	NotificationReminder NotificationType = "reminder"
	NotificationApproval NotificationType = "approval"
	NotificationReport   NotificationType = "report"
)

// Notification is a computed, non-persisted item in a user's feed.
// TargetView and TargetTab hint where the client should navigate.
type Notification struct {
	Type        NotificationType `json:"type"`
	Title       string           `json:"title"`
	Description string           `json:"description"`
	IsToday     bool             `json:"is_today"`
	TargetView  string           `json:"target_view"`
	TargetTab   string           `json:"target_tab,omitempty"`
	EventID     string           `json:"event_id,omitempty"`
	ResourceID  string           `json:"resource_id,omitempty"`
}
