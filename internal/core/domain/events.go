package domain

import "time"

// SecurityAlertEvent is the payload fanned out for critical audit entries,
// both to the alert webhook and onto the security event stream.
type SecurityAlertEvent struct {
	EventID   string
	Action    string
	RiskLevel RiskLevel
	Outcome   Outcome
	UserID    string
	Resource  string
	IPAddress string
	At        time.Time
	Details   map[string]any
}
