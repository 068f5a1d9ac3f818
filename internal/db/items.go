package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog/log"

	"github.com/Nixie-Tech-LLC/almanac/internal/model"
)

const itemColumns = `id, type_id, title, slug, body, data, is_draft,
	publisher_linked_id, publisher_modified_at, publisher_published_at, created_at`

// status predicates over drafts d left-joined to their linked copy l
var statusFilters = map[model.PublishingStatus]string{
	"":                      "TRUE",
	model.StatusUnpublished: "d.publisher_linked_id IS NULL",
	model.StatusPublished:   "d.publisher_linked_id IS NOT NULL",
	model.StatusOutOfDate:   "l.id IS NOT NULL AND d.publisher_modified_at > l.publisher_modified_at",
	model.StatusUpToDate:    "l.id IS NOT NULL AND d.publisher_modified_at <= l.publisher_modified_at",
}

func (s *pgStore) CreateDraft(ctx context.Context, item *model.PublishableItem) (*model.PublishableItem, error) {
	var out model.PublishableItem
	query := `
	INSERT INTO items (type_id, title, slug, body, data, is_draft, publisher_modified_at, created_at)
	VALUES ($1, $2, $3, $4, $5, TRUE, now(), now())
	RETURNING ` + itemColumns + `;`
	if err := s.db.GetContext(ctx, &out, query, item.TypeID, item.Title, item.Slug, item.Body, item.Data); err != nil {
		log.Error().Err(err).Str("slug", item.Slug).Msg("CreateDraft failed")
		return nil, mapError(err)
	}
	return &out, nil
}

// UpdateDraft saves editable fields and bumps publisher_modified_at, which is
// what makes a published draft dirty.
func (s *pgStore) UpdateDraft(ctx context.Context, item *model.PublishableItem) (*model.PublishableItem, error) {
	var out model.PublishableItem
	query := `
	UPDATE items
	   SET type_id = $2, title = $3, slug = $4, body = $5, data = $6,
	       publisher_modified_at = now()
	 WHERE id = $1 AND is_draft
	RETURNING ` + itemColumns + `;`
	if err := s.db.GetContext(ctx, &out, query, item.ID, item.TypeID, item.Title, item.Slug, item.Body, item.Data); err != nil {
		err = mapError(err)
		if !errors.Is(err, model.ErrNotFound) {
			log.Error().Err(err).Int("item_id", item.ID).Msg("UpdateDraft failed")
		}
		return nil, err
	}
	return &out, nil
}

func (s *pgStore) GetItem(ctx context.Context, id int) (*model.PublishableItem, error) {
	return getItem(ctx, s.db, id)
}

// ListItems returns drafts matching status, each with the linked copy's
// modification time so dirtiness can be computed without another query.
func (s *pgStore) ListItems(ctx context.Context, status model.PublishingStatus) ([]model.PublishableItem, error) {
	where, ok := statusFilters[status]
	if !ok {
		return nil, model.NewValidationError("status", fmt.Sprintf("unknown status %q", status))
	}
	query := `
	SELECT d.id, d.type_id, d.title, d.slug, d.body, d.data, d.is_draft,
	       d.publisher_linked_id, d.publisher_modified_at, d.publisher_published_at, d.created_at,
	       l.publisher_modified_at AS linked_modified_at
	  FROM items d
	  LEFT JOIN items l ON l.id = d.publisher_linked_id
	 WHERE d.is_draft AND ` + where + `
	 ORDER BY d.id;`
	var out []model.PublishableItem
	if err := s.db.SelectContext(ctx, &out, query); err != nil {
		log.Error().Err(err).Str("status", string(status)).Msg("ListItems failed")
		return nil, err
	}
	return out, nil
}

func (s *pgStore) InItemTx(ctx context.Context, fn func(tx ItemTx) error) (err error) {
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
				log.Error().Err(rbErr).Msg("item transaction rollback failed")
			}
			return
		}
		err = tx.Commit()
	}()

	return fn(&pgItemTx{tx: tx})
}

type pgItemTx struct {
	tx *sqlx.Tx
}

var _ ItemTx = (*pgItemTx)(nil)

func (t *pgItemTx) LockDraft(ctx context.Context, id int) (*model.PublishableItem, error) {
	var out model.PublishableItem
	query := `SELECT ` + itemColumns + ` FROM items WHERE id = $1 AND is_draft FOR UPDATE;`
	if err := t.tx.GetContext(ctx, &out, query, id); err != nil {
		return nil, mapError(err)
	}
	return &out, nil
}

func (t *pgItemTx) GetItem(ctx context.Context, id int) (*model.PublishableItem, error) {
	return getItem(ctx, t.tx, id)
}

func (t *pgItemTx) InsertPublishedCopy(ctx context.Context, draft *model.PublishableItem, modifiedAt time.Time) (int, error) {
	var id int
	query := `
	INSERT INTO items (type_id, title, slug, body, data, is_draft,
	                   publisher_linked_id, publisher_modified_at, publisher_published_at, created_at)
	VALUES ($1, $2, $3, $4, $5, FALSE, $6, $7, $7, now())
	RETURNING id;`
	err := t.tx.QueryRowxContext(ctx, query,
		draft.TypeID, draft.Title, draft.Slug, draft.Body, draft.Data, draft.ID, modifiedAt,
	).Scan(&id)
	if err != nil {
		log.Error().Err(err).Int("draft_id", draft.ID).Msg("InsertPublishedCopy failed")
		return 0, mapError(err)
	}
	return id, nil
}

func (t *pgItemTx) OverwritePublishedCopy(ctx context.Context, publishedID int, draft *model.PublishableItem, modifiedAt time.Time) error {
	query := `
	UPDATE items
	   SET type_id = $2, title = $3, slug = $4, body = $5, data = $6,
	       publisher_linked_id = $7, publisher_modified_at = $8
	 WHERE id = $1 AND NOT is_draft;`
	res, err := t.tx.ExecContext(ctx, query,
		publishedID, draft.TypeID, draft.Title, draft.Slug, draft.Body, draft.Data, draft.ID, modifiedAt,
	)
	if err != nil {
		log.Error().Err(err).Int("published_id", publishedID).Msg("OverwritePublishedCopy failed")
		return mapError(err)
	}
	return requireRow(res)
}

func (t *pgItemTx) DeleteItem(ctx context.Context, id int) error {
	res, err := t.tx.ExecContext(ctx, `DELETE FROM items WHERE id = $1;`, id)
	if err != nil {
		log.Error().Err(err).Int("item_id", id).Msg("DeleteItem failed")
		return err
	}
	return requireRow(res)
}

func (t *pgItemTx) SetLink(ctx context.Context, draftID int, linkedID *int, publishedAt *time.Time) error {
	res, err := t.tx.ExecContext(ctx, `
	UPDATE items
	   SET publisher_linked_id = $2, publisher_published_at = $3
	 WHERE id = $1 AND is_draft;`, draftID, linkedID, publishedAt)
	if err != nil {
		log.Error().Err(err).Int("draft_id", draftID).Msg("SetLink failed")
		return err
	}
	return requireRow(res)
}

// RestoreDraft copies the published copy's content back onto the draft,
// including its modification time so the draft is clean afterwards.
func (t *pgItemTx) RestoreDraft(ctx context.Context, draftID int, from *model.PublishableItem) error {
	res, err := t.tx.ExecContext(ctx, `
	UPDATE items
	   SET type_id = $2, title = $3, slug = $4, body = $5, data = $6,
	       publisher_modified_at = $7
	 WHERE id = $1 AND is_draft;`,
		draftID, from.TypeID, from.Title, from.Slug, from.Body, from.Data, from.PublisherModifiedAt,
	)
	if err != nil {
		log.Error().Err(err).Int("draft_id", draftID).Msg("RestoreDraft failed")
		return mapError(err)
	}
	return requireRow(res)
}

func getItem(ctx context.Context, q sqlx.QueryerContext, id int) (*model.PublishableItem, error) {
	var out model.PublishableItem
	query := `SELECT ` + itemColumns + ` FROM items WHERE id = $1;`
	if err := sqlx.GetContext(ctx, q, &out, query, id); err != nil {
		return nil, mapError(err)
	}
	return &out, nil
}

type rowsAffected interface {
	RowsAffected() (int64, error)
}

func requireRow(res rowsAffected) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return model.ErrNotFound
	}
	return nil
}
