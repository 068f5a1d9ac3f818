package db

import (
	"context"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog/log"

	"github.com/Nixie-Tech-LLC/almanac/internal/model"
)

const eventColumns = `id, type_id, title, all_day, starts, ends, date_starts, date_ends,
	is_repeat, parent_id, show_in_calendar, recurrence_rule, created_at, updated_at`

// CreateEvent, UpdateEvent, ReplaceRepeats and PropagateToRepeats are the
// event writes. On the store each runs on its own; InEventTx runs several of
// them in one transaction.
func (s *pgStore) CreateEvent(ctx context.Context, e *model.Event) (*model.Event, error) {
	return eventWriter{q: s.db}.CreateEvent(ctx, e)
}

func (s *pgStore) UpdateEvent(ctx context.Context, e *model.Event) (*model.Event, error) {
	return eventWriter{q: s.db}.UpdateEvent(ctx, e)
}

func (s *pgStore) ReplaceRepeats(ctx context.Context, parentID int, repeats []model.Event) error {
	return s.InEventTx(ctx, func(tx EventTx) error {
		return tx.ReplaceRepeats(ctx, parentID, repeats)
	})
}

func (s *pgStore) PropagateToRepeats(ctx context.Context, parent *model.Event) (int64, error) {
	return eventWriter{q: s.db}.PropagateToRepeats(ctx, parent)
}

func (s *pgStore) InEventTx(ctx context.Context, fn func(tx EventTx) error) (err error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
		if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil {
				log.Error().Err(rbErr).Msg("event transaction rollback failed")
			}
			return
		}
		err = tx.Commit()
	}()

	return fn(eventWriter{q: tx})
}

// eventWriter runs the event writes on a pool or a transaction.
type eventWriter struct {
	q sqlx.ExtContext
}

var _ EventTx = eventWriter{}

func (w eventWriter) CreateEvent(ctx context.Context, e *model.Event) (*model.Event, error) {
	var out model.Event
	query := `
	INSERT INTO events (type_id, title, all_day, starts, ends, date_starts, date_ends,
	                    is_repeat, parent_id, show_in_calendar, recurrence_rule, created_at, updated_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, now(), now())
	RETURNING ` + eventColumns + `;`
	err := sqlx.GetContext(ctx, w.q, &out, query,
		e.TypeID, e.Title, e.AllDay, e.Starts, e.Ends, e.DateStarts, e.DateEnds,
		e.IsRepeat, e.ParentID, e.ShowInCalendar, e.RecurrenceRule,
	)
	if err != nil {
		log.Error().Err(err).Str("title", e.Title).Msg("CreateEvent failed")
		return nil, mapError(err)
	}
	return &out, nil
}

func (w eventWriter) UpdateEvent(ctx context.Context, e *model.Event) (*model.Event, error) {
	var out model.Event
	query := `
	UPDATE events
	   SET type_id = $2, title = $3, all_day = $4, starts = $5, ends = $6,
	       date_starts = $7, date_ends = $8, show_in_calendar = $9, recurrence_rule = $10,
	       is_repeat = $11, updated_at = now()
	 WHERE id = $1
	RETURNING ` + eventColumns + `;`
	err := sqlx.GetContext(ctx, w.q, &out, query,
		e.ID, e.TypeID, e.Title, e.AllDay, e.Starts, e.Ends, e.DateStarts, e.DateEnds,
		e.ShowInCalendar, e.RecurrenceRule, e.IsRepeat,
	)
	if err != nil {
		err = mapError(err)
		if !errors.Is(err, model.ErrNotFound) {
			log.Error().Err(err).Int("event_id", e.ID).Msg("UpdateEvent failed")
		}
		return nil, err
	}
	return &out, nil
}

// ReplaceRepeats drops the generated repeats of parentID and inserts the given
// ones. Variations (edited occurrences) are kept.
func (w eventWriter) ReplaceRepeats(ctx context.Context, parentID int, repeats []model.Event) error {
	if _, err := w.q.ExecContext(ctx, `DELETE FROM events WHERE parent_id = $1 AND is_repeat;`, parentID); err != nil {
		log.Error().Err(err).Int("parent_id", parentID).Msg("ReplaceRepeats delete failed")
		return err
	}

	query := `
	INSERT INTO events (type_id, title, all_day, starts, ends, date_starts, date_ends,
	                    is_repeat, parent_id, show_in_calendar, created_at, updated_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, TRUE, $8, $9, now(), now());`
	for _, r := range repeats {
		if _, err := w.q.ExecContext(ctx, query,
			r.TypeID, r.Title, r.AllDay, r.Starts, r.Ends, r.DateStarts, r.DateEnds, parentID, r.ShowInCalendar,
		); err != nil {
			log.Error().Err(err).Int("parent_id", parentID).Msg("ReplaceRepeats insert failed")
			return mapError(err)
		}
	}
	return nil
}

// PropagateToRepeats copies the shared fields of parent onto its repeats.
func (w eventWriter) PropagateToRepeats(ctx context.Context, parent *model.Event) (int64, error) {
	res, err := w.q.ExecContext(ctx, `
	UPDATE events
	   SET title = $2, type_id = $3, show_in_calendar = $4, updated_at = now()
	 WHERE parent_id = $1 AND is_repeat;`, parent.ID, parent.Title, parent.TypeID, parent.ShowInCalendar)
	if err != nil {
		log.Error().Err(err).Int("parent_id", parent.ID).Msg("PropagateToRepeats failed")
		return 0, err
	}
	return res.RowsAffected()
}

func (s *pgStore) GetEvent(ctx context.Context, id int) (*model.Event, error) {
	var out model.Event
	if err := s.db.GetContext(ctx, &out, `SELECT `+eventColumns+` FROM events WHERE id = $1;`, id); err != nil {
		return nil, mapError(err)
	}
	return &out, nil
}

func (s *pgStore) DeleteEvent(ctx context.Context, id int) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM events WHERE id = $1;`, id)
	if err != nil {
		log.Error().Err(err).Int("event_id", id).Msg("DeleteEvent failed")
		return err
	}
	return requireRow(res)
}

func (s *pgStore) ListEvents(ctx context.Context) ([]model.Event, error) {
	var out []model.Event
	query := `
	SELECT ` + eventColumns + `
	  FROM events
	 WHERE NOT is_repeat
	 ORDER BY COALESCE(starts, date_starts::timestamptz), id;`
	if err := s.db.SelectContext(ctx, &out, query); err != nil {
		log.Error().Err(err).Msg("ListEvents failed")
		return nil, err
	}
	return out, nil
}

// ListEventsInRange is exclusive at end for timed events and inclusive of the
// end date for all-day events.
func (s *pgStore) ListEventsInRange(ctx context.Context, start, end time.Time) ([]model.Event, error) {
	var out []model.Event
	query := `
	SELECT ` + eventColumns + `
	  FROM events
	 WHERE (NOT all_day AND starts >= $1 AND starts < $2)
	    OR (all_day AND date_starts >= $3::date AND date_starts <= $4::date)
	 ORDER BY COALESCE(starts, date_starts::timestamptz), id;`
	err := s.db.SelectContext(ctx, &out, query,
		start, end, start.Format(time.DateOnly), end.Format(time.DateOnly),
	)
	if err != nil {
		log.Error().Err(err).Time("start", start).Time("end", end).Msg("ListEventsInRange failed")
		return nil, err
	}
	return out, nil
}

func (s *pgStore) ListRepeats(ctx context.Context, parentID int) ([]model.Event, error) {
	var out []model.Event
	query := `SELECT ` + eventColumns + ` FROM events WHERE parent_id = $1 AND is_repeat ORDER BY starts, date_starts, id;`
	if err := s.db.SelectContext(ctx, &out, query, parentID); err != nil {
		log.Error().Err(err).Int("parent_id", parentID).Msg("ListRepeats failed")
		return nil, err
	}
	return out, nil
}
