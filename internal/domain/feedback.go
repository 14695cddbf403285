package domain

import "time"

// Feedback statuses a dispatcher can assign to an anomaly.
const (
	StatusConfirmed  = "confirmed"
	StatusDismissed  = "dismissed"
	StatusUnreviewed = "unreviewed"
)

// ValidStatus reports whether s is an accepted feedback status.
func ValidStatus(s string) bool {
	switch s {
	case StatusConfirmed, StatusDismissed, StatusUnreviewed:
		return true
	}
	return false
}

// FeedbackEntry records a dispatcher's verdict on one anomaly. Comment is
// empty when the dispatcher left none. Context carries the telemetry row the
// anomaly was derived from, denormalized so the feedback file is readable on
// its own.
type FeedbackEntry struct {
	AnomalyID string
	Status    string
	Comment   string
	UpdatedAt time.Time
	Context   AnomalyContext
}
