// Package publishing implements the draft/published workflow: publish,
// unpublish and revert transitions over locked draft rows, and the derived
// dirty and status queries.
package publishing

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/Nixie-Tech-LLC/almanac/internal/db"
	"github.com/Nixie-Tech-LLC/almanac/internal/metrics"
	"github.com/Nixie-Tech-LLC/almanac/internal/model"
	"github.com/Nixie-Tech-LLC/almanac/internal/notify"
)

// Store is the part of db.Store the manager needs.
type Store interface {
	GetItem(ctx context.Context, id int) (*model.PublishableItem, error)
	InItemTx(ctx context.Context, fn func(tx db.ItemTx) error) error
}

type Manager struct {
	store    Store
	notifier notify.Notifier
	metrics  *metrics.Collector
	now      func() time.Time
}

type Option func(*Manager)

func WithNotifier(n notify.Notifier) Option {
	return func(m *Manager) { m.notifier = n }
}

func WithMetrics(c *metrics.Collector) Option {
	return func(m *Manager) { m.metrics = c }
}

func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

func NewManager(store Store, opts ...Option) *Manager {
	m := &Manager{
		store:    store,
		notifier: notify.Nop{},
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Publish copies the draft's fields into its published copy, creating the
// copy on first publish. The draft row stays locked until commit so double
// submissions serialize instead of creating two copies.
func (m *Manager) Publish(ctx context.Context, user *model.User, id int) (*model.PublishableItem, error) {
	var draft *model.PublishableItem
	err := m.store.InItemTx(ctx, func(tx db.ItemTx) error {
		d, err := lockForUser(ctx, tx, user, id)
		if err != nil {
			return err
		}

		// the copy must never look older than the draft
		modifiedAt := m.now().UTC()
		if d.PublisherModifiedAt.After(modifiedAt) {
			modifiedAt = d.PublisherModifiedAt
		}

		publishedAt := modifiedAt
		var copyID int
		if d.PublisherLinkedID != nil {
			copyID = *d.PublisherLinkedID
			if err := tx.OverwritePublishedCopy(ctx, copyID, d, modifiedAt); err != nil {
				return err
			}
			if d.PublisherPublishedAt != nil {
				publishedAt = *d.PublisherPublishedAt
			}
		} else {
			if copyID, err = tx.InsertPublishedCopy(ctx, d, modifiedAt); err != nil {
				return err
			}
		}

		if err := tx.SetLink(ctx, d.ID, &copyID, &publishedAt); err != nil {
			return err
		}

		d.PublisherLinkedID = &copyID
		d.PublisherPublishedAt = &publishedAt
		d.LinkedModifiedAt = &modifiedAt
		draft = d
		return nil
	})
	m.finish(ctx, notify.ActionPublish, user, id, draft, err)
	if err != nil {
		return nil, err
	}
	return draft, nil
}

// Unpublish deletes the published copy. Unpublishing a draft that has no copy
// succeeds without changes.
func (m *Manager) Unpublish(ctx context.Context, user *model.User, id int) error {
	var draft *model.PublishableItem
	err := m.store.InItemTx(ctx, func(tx db.ItemTx) error {
		d, err := lockForUser(ctx, tx, user, id)
		if err != nil {
			return err
		}
		draft = d
		if d.PublisherLinkedID == nil {
			return nil
		}

		if err := tx.DeleteItem(ctx, *d.PublisherLinkedID); err != nil && !errors.Is(err, model.ErrNotFound) {
			return err
		}
		if err := tx.SetLink(ctx, d.ID, nil, nil); err != nil {
			return err
		}
		d.PublisherLinkedID = nil
		d.PublisherPublishedAt = nil
		d.LinkedModifiedAt = nil
		return nil
	})
	m.finish(ctx, notify.ActionUnpublish, user, id, draft, err)
	return err
}

// Revert discards draft edits by copying the published copy back over the
// draft. It fails with model.ErrConflict if nothing was published.
func (m *Manager) Revert(ctx context.Context, user *model.User, id int) (*model.PublishableItem, error) {
	var draft *model.PublishableItem
	err := m.store.InItemTx(ctx, func(tx db.ItemTx) error {
		d, err := lockForUser(ctx, tx, user, id)
		if err != nil {
			return err
		}
		if d.PublisherLinkedID == nil {
			return model.ErrConflict
		}

		published, err := tx.GetItem(ctx, *d.PublisherLinkedID)
		if err != nil {
			if errors.Is(err, model.ErrNotFound) {
				return model.ErrConflict
			}
			return err
		}
		if err := tx.RestoreDraft(ctx, d.ID, published); err != nil {
			return err
		}

		d.TypeID = published.TypeID
		d.Title = published.Title
		d.Slug = published.Slug
		d.Body = published.Body
		d.Data = published.Data.Clone()
		d.PublisherModifiedAt = published.PublisherModifiedAt
		d.LinkedModifiedAt = &published.PublisherModifiedAt
		draft = d
		return nil
	})
	m.finish(ctx, notify.ActionRevert, user, id, draft, err)
	if err != nil {
		return nil, err
	}
	return draft, nil
}

// IsDirty reads the item and its linked copy without locking.
func (m *Manager) IsDirty(ctx context.Context, id int) (bool, error) {
	item, err := m.Load(ctx, id)
	if err != nil {
		return false, err
	}
	return IsDirty(*item), nil
}

// Load fetches an item with LinkedModifiedAt filled in.
func (m *Manager) Load(ctx context.Context, id int) (*model.PublishableItem, error) {
	item, err := m.store.GetItem(ctx, id)
	if err != nil {
		return nil, err
	}
	if item.PublisherLinkedID == nil {
		return item, nil
	}
	linked, err := m.store.GetItem(ctx, *item.PublisherLinkedID)
	switch {
	case errors.Is(err, model.ErrNotFound):
		return item, nil
	case err != nil:
		return nil, err
	}
	item.LinkedModifiedAt = &linked.PublisherModifiedAt
	return item, nil
}

// lockForUser locks the draft first so that a missing item reports not found
// regardless of who asks.
func lockForUser(ctx context.Context, tx db.ItemTx, user *model.User, id int) (*model.PublishableItem, error) {
	d, err := tx.LockDraft(ctx, id)
	if err != nil {
		return nil, err
	}
	if !CanPublish(user) {
		return nil, model.ErrPermissionDenied
	}
	return d, nil
}

func (m *Manager) finish(ctx context.Context, action notify.Action, user *model.User, id int, draft *model.PublishableItem, err error) {
	m.metrics.ObserveTransition(string(action), outcome(err))
	if err != nil {
		log.Warn().Err(err).Str("action", string(action)).Int("item_id", id).Msg("publishing transition failed")
		return
	}

	t := notify.Transition{
		Action: action,
		ItemID: id,
		At:     m.now().UTC(),
	}
	if draft != nil {
		t.TypeID = draft.TypeID
		t.Slug = draft.Slug
		t.PublishedID = draft.PublisherLinkedID
	}
	if user != nil {
		t.UserID = user.ID
	}
	if err := m.notifier.Notify(ctx, t); err != nil {
		log.Warn().Err(err).Str("action", string(action)).Int("item_id", id).Msg("failed to send publishing notification")
	}
	log.Info().Str("action", string(action)).Int("item_id", id).Msg("publishing transition")
}

func outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, model.ErrPermissionDenied):
		return "denied"
	case errors.Is(err, model.ErrNotFound):
		return "not_found"
	case errors.Is(err, model.ErrConflict):
		return "conflict"
	default:
		return "error"
	}
}
