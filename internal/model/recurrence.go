package model

import "time"

// RecurrenceRule is a named, reusable rule that editors can pick from.
type RecurrenceRule struct {
	ID             int       `db:"id"              json:"id"`
	Description    string    `db:"description"     json:"description"`
	RecurrenceRule string    `db:"recurrence_rule" json:"recurrence_rule"`
	CreatedAt      time.Time `db:"created_at"      json:"created_at"`
}
