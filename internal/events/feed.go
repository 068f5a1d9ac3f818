package events

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/Nixie-Tech-LLC/almanac/internal/metrics"
	"github.com/Nixie-Tech-LLC/almanac/internal/model"
	"github.com/Nixie-Tech-LLC/almanac/internal/plugins"
)

// EventSource loads the events that fall in a window: timed events starting
// in [start, end) and all-day events whose first date is between the two
// dates, inclusive.
type EventSource interface {
	ListEventsInRange(ctx context.Context, start, end time.Time) ([]model.Event, error)
}

// FeedCache stores rendered feeds. A miss is reported as ok == false; errors
// are the cache's own business.
//
// Invalidate must advance Generation. Keys carry the generation read before
// the feed was loaded, so a feed rendered from data older than the latest
// Invalidate is stored under a key nobody reads again.
type FeedCache interface {
	Generation(ctx context.Context) (string, bool)
	Get(ctx context.Context, key string) ([]byte, bool)
	Set(ctx context.Context, key string, value []byte)
	Invalidate(ctx context.Context)
}

// Excluded summarizes the events dropped because their type is not
// registered.
type Excluded struct {
	Count   int   `json:"count"`
	TypeIDs []int `json:"type_ids"`
}

type Feed struct {
	Entries  []Entry
	Items    []CalendarItem
	Excluded Excluded
}

type Calendar struct {
	events   EventSource
	registry *plugins.Registry
	cache    FeedCache
	metrics  *metrics.Collector
}

type CalendarOption func(*Calendar)

func WithCache(c FeedCache) CalendarOption {
	return func(cal *Calendar) { cal.cache = c }
}

func WithCalendarMetrics(m *metrics.Collector) CalendarOption {
	return func(cal *Calendar) { cal.metrics = m }
}

func NewCalendar(events EventSource, registry *plugins.Registry, opts ...CalendarOption) *Calendar {
	c := &Calendar{events: events, registry: registry}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Feed loads the window's events, drops those of unknown type and localizes
// the rest into loc.
func (c *Calendar) Feed(ctx context.Context, w Window, loc *time.Location) (*Feed, error) {
	if !w.End.After(w.Start) {
		return nil, model.NewValidationError("end", "end must be after start")
	}
	if loc == nil {
		loc = time.UTC
	}

	evs, err := c.events.ListEventsInRange(ctx, w.Start, w.End)
	if err != nil {
		return nil, fmt.Errorf("load calendar events: %w", err)
	}

	feed := &Feed{Entries: []Entry{}, Items: []CalendarItem{}, Excluded: Excluded{TypeIDs: []int{}}}
	unknown := map[int]int{}
	for _, e := range evs {
		d, ok := c.registry.LookupKind(e.TypeID, plugins.KindEvent)
		if !ok {
			unknown[e.TypeID]++
			continue
		}
		entry := ToCalendarEntry(e, loc)
		feed.Entries = append(feed.Entries, entry)
		feed.Items = append(feed.Items, NewCalendarItem(entry, d.VerboseName))
	}

	if len(unknown) > 0 {
		c.reportUnknown(unknown, &feed.Excluded)
	}
	return feed, nil
}

func (c *Calendar) reportUnknown(unknown map[int]int, ex *Excluded) {
	ids := make([]string, 0, len(unknown))
	for id, n := range unknown {
		ex.Count += n
		ex.TypeIDs = append(ex.TypeIDs, id)
		c.metrics.AddExcludedEvents(id, n)
	}
	sort.Ints(ex.TypeIDs)
	for _, id := range ex.TypeIDs {
		ids = append(ids, strconv.Itoa(id))
	}
	log.Warn().
		Int("count", ex.Count).
		Str("types", strings.Join(ids, ";")).
		Msgf("%d events of unknown type (%s) are being ignored.", ex.Count, strings.Join(ids, ";"))
}

// FeedJSON is Feed rendered as the calendar JSON array, served from the cache
// when one is configured.
func (c *Calendar) FeedJSON(ctx context.Context, w Window, loc *time.Location) ([]byte, error) {
	if loc == nil {
		loc = time.UTC
	}
	var key string
	if c.cache != nil {
		if gen, ok := c.cache.Generation(ctx); ok {
			key = gen + ":" + cacheKey(w, loc)
			if raw, ok := c.cache.Get(ctx, key); ok {
				c.metrics.ObserveCacheLookup(true)
				return raw, nil
			}
			c.metrics.ObserveCacheLookup(false)
		}
	}

	feed, err := c.Feed(ctx, w, loc)
	if err != nil {
		return nil, err
	}
	raw, err := json.Marshal(feed.Items)
	if err != nil {
		return nil, err
	}
	if key != "" {
		c.cache.Set(ctx, key, raw)
	}
	return raw, nil
}

// Invalidate drops cached feeds; call it after any event write.
func (c *Calendar) Invalidate(ctx context.Context) {
	if c.cache != nil {
		c.cache.Invalidate(ctx)
	}
}

func cacheKey(w Window, loc *time.Location) string {
	return fmt.Sprintf("%s:%s:%s", w.Start.Format(time.RFC3339), w.End.Format(time.RFC3339), loc.String())
}

// TypeName is the verbose name of an event type, empty when unregistered.
func (c *Calendar) TypeName(typeID int) string {
	d, _ := c.registry.LookupKind(typeID, plugins.KindEvent)
	return d.VerboseName
}
