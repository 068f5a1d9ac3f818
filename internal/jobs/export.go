// Package jobs runs the calendar ICS export, on demand and on a cron
// schedule.
package jobs

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/Nixie-Tech-LLC/almanac/internal/events"
	"github.com/Nixie-Tech-LLC/almanac/internal/storage"
)

// DefaultExportDays is how far ahead a scheduled export reaches.
const DefaultExportDays = 90

type ExportResult struct {
	URL      string          `json:"url"`
	Entries  int             `json:"entries"`
	Excluded events.Excluded `json:"excluded"`
}

// ICSExporter writes the calendar feed of a window to storage as an .ics
// file.
type ICSExporter struct {
	calendar *events.Calendar
	storage  storage.Storage
	name     string
	now      func() time.Time
}

func NewICSExporter(calendar *events.Calendar, store storage.Storage, name string) *ICSExporter {
	return &ICSExporter{calendar: calendar, storage: store, name: name, now: time.Now}
}

func (x *ICSExporter) Export(ctx context.Context, w events.Window, loc *time.Location) (*ExportResult, error) {
	feed, err := x.calendar.Feed(ctx, w, loc)
	if err != nil {
		return nil, err
	}

	raw := events.ExportICS(x.name, feed.Entries, x.calendar.TypeName, x.now())
	url, err := x.storage.SaveObject(x.filename(w), bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("save calendar export: %w", err)
	}

	log.Info().
		Str("url", url).
		Int("entries", len(feed.Entries)).
		Int("excluded", feed.Excluded.Count).
		Msg("calendar exported")
	return &ExportResult{URL: url, Entries: len(feed.Entries), Excluded: feed.Excluded}, nil
}

// Upcoming exports the next days days, starting today in loc.
func (x *ICSExporter) Upcoming(ctx context.Context, days int, loc *time.Location) (*ExportResult, error) {
	y, m, d := x.now().In(loc).Date()
	start := time.Date(y, m, d, 0, 0, 0, 0, loc)
	return x.Export(ctx, events.Window{Start: start, End: start.AddDate(0, 0, days)}, loc)
}

func (x *ICSExporter) filename(w events.Window) string {
	return fmt.Sprintf("calendar_%s_%s.ics", w.Start.Format("20060102"), w.End.Format("20060102"))
}
