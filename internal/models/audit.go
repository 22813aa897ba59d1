package models

import "time"

// AuditEntry is one immutable record of a state-changing or read event.
// Seq is the append sequence assigned by the store; entries are totally
// ordered by Seq and timestamps are non-decreasing along it.
type AuditEntry struct {
	Seq       int64     `json:"seq"`
	Timestamp time.Time `json:"timestamp"`
	Username  string    `json:"username"`
	Role      Role      `json:"role"`
	Action    Action    `json:"action"`
	Target    string    `json:"target,omitempty"`
}
