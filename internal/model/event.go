package model

import (
	"errors"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// Event is either an original, a variation (an edited occurrence that keeps a
// parent reference) or a repeat generated from the parent's recurrence rule.
//
// All-day events use DateStarts/DateEnds and timed events use Starts/Ends.
// Dates are stored as midnight UTC and carry no zone meaning.
type Event struct {
	ID             int        `db:"id"               json:"id"`
	TypeID         int        `db:"type_id"          json:"type_id"`
	Title          string     `db:"title"            json:"title"`
	AllDay         bool       `db:"all_day"          json:"all_day"`
	Starts         *time.Time `db:"starts"           json:"starts"`
	Ends           *time.Time `db:"ends"             json:"ends"`
	DateStarts     *time.Time `db:"date_starts"      json:"date_starts"`
	DateEnds       *time.Time `db:"date_ends"        json:"date_ends"`
	IsRepeat       bool       `db:"is_repeat"        json:"is_repeat"`
	ParentID       *int       `db:"parent_id"        json:"parent_id"`
	ShowInCalendar bool       `db:"show_in_calendar" json:"show_in_calendar"`
	RecurrenceRule *string    `db:"recurrence_rule"  json:"recurrence_rule"`
	CreatedAt      time.Time  `db:"created_at"       json:"created_at"`
	UpdatedAt      time.Time  `db:"updated_at"       json:"updated_at"`
}

func (e *Event) Validate() error {
	err := validation.ValidateStruct(e,
		validation.Field(&e.Title, validation.Required.Error("title is required"), validation.Length(1, 255)),
		validation.Field(&e.TypeID, validation.Required.Error("type_id is required")),
		validation.Field(&e.DateStarts,
			validation.When(e.AllDay, validation.Required.Error("all-day events need date_starts")).
				Else(validation.Nil.Error("timed events cannot have date bounds")),
		),
		validation.Field(&e.DateEnds,
			validation.When(!e.AllDay, validation.Nil.Error("timed events cannot have date bounds")),
			validation.By(notBefore(e.DateStarts, "date_ends cannot be before date_starts")),
		),
		validation.Field(&e.Starts,
			validation.When(!e.AllDay, validation.Required.Error("timed events need starts")).
				Else(validation.Nil.Error("all-day events cannot have time bounds")),
		),
		validation.Field(&e.Ends,
			validation.When(e.AllDay, validation.Nil.Error("all-day events cannot have time bounds")),
			validation.By(notBefore(e.Starts, "ends cannot be before starts")),
		),
	)
	return asValidationError(err)
}

// Duration of a timed event; zero for all-day events or open-ended ones.
func (e *Event) Duration() time.Duration {
	if e.AllDay || e.Starts == nil || e.Ends == nil {
		return 0
	}
	return e.Ends.Sub(*e.Starts)
}

func notBefore(start *time.Time, msg string) validation.RuleFunc {
	return func(value any) error {
		end, _ := value.(*time.Time)
		if start == nil || end == nil {
			return nil
		}
		if end.Before(*start) {
			return errors.New(msg)
		}
		return nil
	}
}
