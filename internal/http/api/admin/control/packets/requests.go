package packets

import "github.com/Nixie-Tech-LLC/almanac/internal/model"

// REQUESTS FOR /api/admin/items/*

type CreateItemRequest struct {
	TypeID int          `json:"type_id" binding:"required"`
	Title  string       `json:"title" binding:"required"`
	Slug   string       `json:"slug" binding:"required"`
	Body   string       `json:"body"`
	Data   model.Fields `json:"data"`
}

type UpdateItemRequest struct {
	TypeID *int          `json:"type_id"`
	Title  *string       `json:"title"`
	Slug   *string       `json:"slug"`
	Body   *string       `json:"body"`
	Data   *model.Fields `json:"data"`
}

// BulkItemsRequest names the drafts a bulk publish or unpublish acts on.
type BulkItemsRequest struct {
	IDs []int `json:"ids" binding:"required,min=1,max=100,dive,gt=0"`
}

// REQUESTS FOR /api/admin/events/*

// EventRequest carries dates as YYYY-MM-DD and times as RFC 3339.
type EventRequest struct {
	TypeID         int     `json:"type_id" binding:"required"`
	Title          string  `json:"title" binding:"required"`
	AllDay         bool    `json:"all_day"`
	Starts         *string `json:"starts"`
	Ends           *string `json:"ends"`
	DateStarts     *string `json:"date_starts"`
	DateEnds       *string `json:"date_ends"`
	ParentID       *int    `json:"parent_id"`
	ShowInCalendar *bool   `json:"show_in_calendar"`
	RecurrenceRule *string `json:"recurrence_rule"`
}

type ExportCalendarRequest struct {
	Start    string `json:"start" binding:"required"`
	End      string `json:"end" binding:"required"`
	Timezone string `json:"timezone"`
}

// REQUESTS FOR /api/admin/recurrence-rules/*

type CreateRecurrenceRuleRequest struct {
	Description    string `json:"description" binding:"required"`
	RecurrenceRule string `json:"recurrence_rule" binding:"required"`
}

type PreviewRequest struct {
	RecurrenceRule string `json:"recurrence_rule"`
	Limit          int    `json:"limit"`
}
