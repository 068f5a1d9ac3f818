package packets

import (
	"time"

	"github.com/Nixie-Tech-LLC/almanac/internal/events"
	"github.com/Nixie-Tech-LLC/almanac/internal/model"
	"github.com/Nixie-Tech-LLC/almanac/internal/publishing"
)

// RESPONSES FOR /api/admin/items/*

type ItemResponse struct {
	ID                   int                    `json:"id"`
	TypeID               int                    `json:"type_id"`
	Title                string                 `json:"title"`
	Slug                 string                 `json:"slug"`
	Body                 string                 `json:"body"`
	Data                 model.Fields           `json:"data"`
	Status               model.PublishingStatus `json:"status"`
	IsDirty              bool                   `json:"is_dirty"`
	HasBeenPublished     bool                   `json:"has_been_published"`
	PublishedID          *int                   `json:"published_id"`
	PublisherModifiedAt  string                 `json:"publisher_modified_at"`
	PublisherPublishedAt *string                `json:"publisher_published_at"`
	Actions              publishing.ActionSet   `json:"actions"`
	CreatedAt            string                 `json:"created_at"`
}

func NewItemResponse(it model.PublishableItem) ItemResponse {
	resp := ItemResponse{
		ID:                  it.ID,
		TypeID:              it.TypeID,
		Title:               it.Title,
		Slug:                it.Slug,
		Body:                it.Body,
		Data:                it.Data,
		Status:              publishing.StatusOf(it),
		IsDirty:             publishing.IsDirty(it),
		HasBeenPublished:    it.HasBeenPublished(),
		PublishedID:         it.PublisherLinkedID,
		PublisherModifiedAt: it.PublisherModifiedAt.Format(time.RFC3339),
		Actions:             publishing.Actions(it),
		CreatedAt:           it.CreatedAt.Format(time.RFC3339),
	}
	if it.PublisherPublishedAt != nil {
		s := it.PublisherPublishedAt.Format(time.RFC3339)
		resp.PublisherPublishedAt = &s
	}
	return resp
}

type RenderResponse struct {
	HTML string `json:"html"`
}

// RESPONSES FOR /api/admin/events/*

type EventResponse struct {
	ID             int     `json:"id"`
	TypeID         int     `json:"type_id"`
	Title          string  `json:"title"`
	AllDay         bool    `json:"all_day"`
	Starts         *string `json:"starts"`
	Ends           *string `json:"ends"`
	DateStarts     *string `json:"date_starts"`
	DateEnds       *string `json:"date_ends"`
	Classification string  `json:"classification"`
	ParentID       *int    `json:"parent_id"`
	ShowInCalendar bool    `json:"show_in_calendar"`
	RecurrenceRule *string `json:"recurrence_rule"`
	CreatedAt      string  `json:"created_at"`
	UpdatedAt      string  `json:"updated_at"`
}

func NewEventResponse(e model.Event) EventResponse {
	return EventResponse{
		ID:             e.ID,
		TypeID:         e.TypeID,
		Title:          e.Title,
		AllDay:         e.AllDay,
		Starts:         formatTime(e.Starts, time.RFC3339),
		Ends:           formatTime(e.Ends, time.RFC3339),
		DateStarts:     formatTime(e.DateStarts, time.DateOnly),
		DateEnds:       formatTime(e.DateEnds, time.DateOnly),
		Classification: string(events.Classify(e)),
		ParentID:       e.ParentID,
		ShowInCalendar: e.ShowInCalendar,
		RecurrenceRule: e.RecurrenceRule,
		CreatedAt:      e.CreatedAt.Format(time.RFC3339),
		UpdatedAt:      e.UpdatedAt.Format(time.RFC3339),
	}
}

func formatTime(t *time.Time, layout string) *string {
	if t == nil {
		return nil
	}
	s := t.Format(layout)
	return &s
}

type SaveEventResponse struct {
	Event      EventResponse `json:"event"`
	Repeats    int           `json:"repeats"`
	Propagated int64         `json:"propagated"`
}

// RESPONSES FOR /api/admin/recurrence-rules/*

type RecurrenceRuleResponse struct {
	ID             int    `json:"id"`
	Description    string `json:"description"`
	RecurrenceRule string `json:"recurrence_rule"`
	CreatedAt      string `json:"created_at"`
}

func NewRecurrenceRuleResponse(r model.RecurrenceRule) RecurrenceRuleResponse {
	return RecurrenceRuleResponse{
		ID:             r.ID,
		Description:    r.Description,
		RecurrenceRule: r.RecurrenceRule,
		CreatedAt:      r.CreatedAt.Format(time.RFC3339),
	}
}

// BulkItemResult is the outcome for one draft of a bulk action. Error is
// empty on success.
type BulkItemResult struct {
	ID    int           `json:"id"`
	Item  *ItemResponse `json:"item,omitempty"`
	Error string        `json:"error,omitempty"`
}

type BulkItemsResponse struct {
	Succeeded int              `json:"succeeded"`
	Failed    int              `json:"failed"`
	Results   []BulkItemResult `json:"results"`
}
