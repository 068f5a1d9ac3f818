package endpoints

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/Nixie-Tech-LLC/almanac/internal/db"
	"github.com/Nixie-Tech-LLC/almanac/internal/events"
	"github.com/Nixie-Tech-LLC/almanac/internal/http/api"
	"github.com/Nixie-Tech-LLC/almanac/internal/http/api/admin/control/packets"
	"github.com/Nixie-Tech-LLC/almanac/internal/http/api/admin/control/utils"
	"github.com/Nixie-Tech-LLC/almanac/internal/jobs"
	"github.com/Nixie-Tech-LLC/almanac/internal/metrics"
	"github.com/Nixie-Tech-LLC/almanac/internal/model"
	"github.com/Nixie-Tech-LLC/almanac/internal/plugins"
)

// EventStore is what the event endpoints need from the database. Writes go
// through InEventTx so an event and its repeats are saved together.
type EventStore interface {
	GetEvent(ctx context.Context, id int) (*model.Event, error)
	DeleteEvent(ctx context.Context, id int) error
	ListEvents(ctx context.Context) ([]model.Event, error)
	InEventTx(ctx context.Context, fn func(tx db.EventTx) error) error
}

// EventSettings are the deployment-wide defaults the event endpoints use.
type EventSettings struct {
	Timezone      *time.Location
	RepeatHorizon time.Duration
	Metrics       *metrics.Collector
}

type EventController struct {
	store    EventStore
	calendar *events.Calendar
	exporter *jobs.ICSExporter
	registry *plugins.Registry
	settings EventSettings
}

// EventModule mounts all authenticated /events endpoints
func EventModule(store EventStore, calendar *events.Calendar, exporter *jobs.ICSExporter, registry *plugins.Registry, settings EventSettings) api.Module {
	if settings.Timezone == nil {
		settings.Timezone = time.UTC
	}
	ctl := &EventController{store: store, calendar: calendar, exporter: exporter, registry: registry, settings: settings}
	return api.ModuleFunc(func(c *api.Controller) {
		c.GET("/events", ctl.listEvents)
		c.POST("/events", ctl.createEvent)
		c.GET("/events/calendar", ctl.calendarFeed)
		c.POST("/events/calendar/export", ctl.exportCalendar)
		c.GET("/events/:id", ctl.getEvent)
		c.PUT("/events/:id", ctl.updateEvent)
		c.DELETE("/events/:id", ctl.deleteEvent)
	})
}

// GET /api/admin/events
func (c *EventController) listEvents(ctx *gin.Context, user *model.User) (any, *api.APIError) {
	all, err := c.store.ListEvents(ctx.Request.Context())
	if err != nil {
		return nil, api.FromError(err)
	}
	out := make([]packets.EventResponse, 0, len(all))
	for _, e := range all {
		out = append(out, packets.NewEventResponse(e))
	}
	return out, nil
}

// GET /api/admin/events/:id
func (c *EventController) getEvent(ctx *gin.Context, user *model.User) (any, *api.APIError) {
	id, apiErr := utils.ParamID(ctx)
	if apiErr != nil {
		return nil, apiErr
	}
	e, err := c.store.GetEvent(ctx.Request.Context(), id)
	if err != nil {
		return nil, api.FromError(err)
	}
	return packets.NewEventResponse(*e), nil
}

// POST /api/admin/events
func (c *EventController) createEvent(ctx *gin.Context, user *model.User) (any, *api.APIError) {
	var request packets.EventRequest
	if err := ctx.ShouldBindJSON(&request); err != nil {
		return nil, api.BadRequest(err.Error())
	}
	e := &model.Event{ShowInCalendar: true}
	if apiErr := c.apply(e, request); apiErr != nil {
		return nil, apiErr
	}
	if e.ParentID != nil {
		if _, err := c.store.GetEvent(ctx.Request.Context(), *e.ParentID); err != nil {
			return nil, api.FromError(model.NewValidationError("parent_id", "parent event does not exist"))
		}
	}
	repeats, err := c.generateRepeats(*e)
	if err != nil {
		return nil, api.FromError(err)
	}

	var created *model.Event
	err = c.store.InEventTx(ctx.Request.Context(), func(tx db.EventTx) error {
		var err error
		if created, err = tx.CreateEvent(ctx.Request.Context(), e); err != nil {
			return err
		}
		if len(repeats) == 0 {
			return nil
		}
		return tx.ReplaceRepeats(ctx.Request.Context(), created.ID, repeats)
	})
	if err != nil {
		return nil, api.FromError(err)
	}
	c.calendar.Invalidate(ctx.Request.Context())

	log.Info().Int("event_id", created.ID).Int("repeats", len(repeats)).Int("user_id", user.ID).Msg("event created")
	return packets.SaveEventResponse{Event: packets.NewEventResponse(*created), Repeats: len(repeats)}, nil
}

// PUT /api/admin/events/:id?propagate=true
//
// Editing a repeat turns it into a variation. Changing an original's rule or
// timing regenerates its repeats; otherwise propagate=true copies the shared
// fields onto them.
func (c *EventController) updateEvent(ctx *gin.Context, user *model.User) (any, *api.APIError) {
	id, apiErr := utils.ParamID(ctx)
	if apiErr != nil {
		return nil, apiErr
	}
	var request packets.EventRequest
	if err := ctx.ShouldBindJSON(&request); err != nil {
		return nil, api.BadRequest(err.Error())
	}

	existing, err := c.store.GetEvent(ctx.Request.Context(), id)
	if err != nil {
		return nil, api.FromError(err)
	}
	e := *existing
	request.ParentID = existing.ParentID
	if apiErr := c.apply(&e, request); apiErr != nil {
		return nil, apiErr
	}
	e.IsRepeat = false

	reschedule := e.ParentID == nil && scheduleChanged(*existing, e)
	var repeats []model.Event
	if reschedule {
		if repeats, err = c.generateRepeats(e); err != nil {
			return nil, api.FromError(err)
		}
	}

	propagate := ctx.Query("propagate") == "true"
	var resp packets.SaveEventResponse
	err = c.store.InEventTx(ctx.Request.Context(), func(tx db.EventTx) error {
		updated, err := tx.UpdateEvent(ctx.Request.Context(), &e)
		if err != nil {
			return err
		}
		resp = packets.SaveEventResponse{Event: packets.NewEventResponse(*updated)}
		switch {
		case reschedule:
			if err := tx.ReplaceRepeats(ctx.Request.Context(), updated.ID, repeats); err != nil {
				return err
			}
			resp.Repeats = len(repeats)
		case propagate && updated.ParentID == nil:
			n, err := tx.PropagateToRepeats(ctx.Request.Context(), updated)
			if err != nil {
				return err
			}
			resp.Propagated = n
		}
		return nil
	})
	if err != nil {
		return nil, api.FromError(err)
	}
	c.calendar.Invalidate(ctx.Request.Context())
	return resp, nil
}

// DELETE /api/admin/events/:id
func (c *EventController) deleteEvent(ctx *gin.Context, user *model.User) (any, *api.APIError) {
	id, apiErr := utils.ParamID(ctx)
	if apiErr != nil {
		return nil, apiErr
	}
	if err := c.store.DeleteEvent(ctx.Request.Context(), id); err != nil {
		return nil, api.FromError(err)
	}
	c.calendar.Invalidate(ctx.Request.Context())
	log.Info().Int("event_id", id).Int("user_id", user.ID).Msg("event deleted")
	return gin.H{"deleted": id}, nil
}

// GET /api/admin/events/calendar?start=YYYY-MM-DD&end=YYYY-MM-DD&timezone=
func (c *EventController) calendarFeed(ctx *gin.Context, user *model.User) (any, *api.APIError) {
	w, loc, apiErr := c.window(ctx.Query("start"), ctx.Query("end"), ctx.Query("timezone"))
	if apiErr != nil {
		return nil, apiErr
	}
	raw, err := c.calendar.FeedJSON(ctx.Request.Context(), w, loc)
	if err != nil {
		return nil, api.FromError(err)
	}
	return api.RawJSON(raw), nil
}

// POST /api/admin/events/calendar/export
func (c *EventController) exportCalendar(ctx *gin.Context, user *model.User) (any, *api.APIError) {
	var request packets.ExportCalendarRequest
	if err := ctx.ShouldBindJSON(&request); err != nil {
		return nil, api.BadRequest(err.Error())
	}
	w, loc, apiErr := c.window(request.Start, request.End, request.Timezone)
	if apiErr != nil {
		return nil, apiErr
	}
	res, err := c.exporter.Export(ctx.Request.Context(), w, loc)
	if err != nil {
		return nil, api.FromError(err)
	}
	return res, nil
}

func (c *EventController) window(start, end, tz string) (events.Window, *time.Location, *api.APIError) {
	loc, apiErr := utils.Location(tz, c.settings.Timezone)
	if apiErr != nil {
		return events.Window{}, nil, apiErr
	}
	s, apiErr := utils.Date("start", start, loc)
	if apiErr != nil {
		return events.Window{}, nil, apiErr
	}
	e, apiErr := utils.Date("end", end, loc)
	if apiErr != nil {
		return events.Window{}, nil, apiErr
	}
	return events.Window{Start: s, End: e}, loc, nil
}

// apply copies a request onto e and validates the result.
func (c *EventController) apply(e *model.Event, r packets.EventRequest) *api.APIError {
	if _, ok := c.registry.LookupKind(r.TypeID, plugins.KindEvent); !ok {
		return api.FromError(model.NewValidationError("type_id", "unknown event type"))
	}

	var apiErr *api.APIError
	if e.Starts, apiErr = utils.OptionalTime("starts", r.Starts); apiErr != nil {
		return apiErr
	}
	if e.Ends, apiErr = utils.OptionalTime("ends", r.Ends); apiErr != nil {
		return apiErr
	}
	if e.DateStarts, apiErr = utils.OptionalDate("date_starts", r.DateStarts); apiErr != nil {
		return apiErr
	}
	if e.DateEnds, apiErr = utils.OptionalDate("date_ends", r.DateEnds); apiErr != nil {
		return apiErr
	}

	e.TypeID = r.TypeID
	e.Title = r.Title
	e.AllDay = r.AllDay
	e.ParentID = r.ParentID
	e.RecurrenceRule = r.RecurrenceRule
	if e.RecurrenceRule != nil && *e.RecurrenceRule == "" {
		e.RecurrenceRule = nil
	}
	if r.ShowInCalendar != nil {
		e.ShowInCalendar = *r.ShowInCalendar
	}

	if e.ParentID != nil && e.RecurrenceRule != nil {
		return api.FromError(model.NewValidationError("recurrence_rule", "only original events can recur"))
	}
	if err := e.Validate(); err != nil {
		return api.FromError(err)
	}
	return nil
}

func (c *EventController) generateRepeats(e model.Event) ([]model.Event, error) {
	start := time.Now()
	repeats, err := events.GenerateRepeats(e, c.settings.RepeatHorizon, c.settings.Timezone)
	if err == nil {
		c.settings.Metrics.ObserveExpansion(time.Since(start), len(repeats))
	}
	return repeats, err
}

func scheduleChanged(before, after model.Event) bool {
	return !sameString(before.RecurrenceRule, after.RecurrenceRule) ||
		before.AllDay != after.AllDay ||
		!sameTime(before.Starts, after.Starts) ||
		!sameTime(before.Ends, after.Ends) ||
		!sameTime(before.DateStarts, after.DateStarts) ||
		!sameTime(before.DateEnds, after.DateEnds)
}

func sameString(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func sameTime(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Equal(*b)
}
