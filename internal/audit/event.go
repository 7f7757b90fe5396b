// Package audit carries authentication activity events from the session
// manager to the append-only activity log.  Events travel over a durable
// RabbitMQ queue; the publisher is fire-and-forget and the consumer
// persists rows into MySQL.
package audit

import "time"

const queueName = "auth.activity"

// Event is published for every authentication-related action.  It holds
// enough detail for the activity log without requiring the consumer to
// query back into the primary database.
type Event struct {
	UserID    uint64    `json:"user_id"`
	Action    string    `json:"action"`
	Success   bool      `json:"success"`
	Detail    string    `json:"detail,omitempty"`
	IP        string    `json:"ip,omitempty"`
	UserAgent string    `json:"user_agent,omitempty"`
	At        time.Time `json:"at"`
}
