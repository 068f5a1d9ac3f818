// Package publishingtest provides an in-memory item store for tests of code
// built on the publishing manager.
package publishingtest

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/Nixie-Tech-LLC/almanac/internal/db"
	"github.com/Nixie-Tech-LLC/almanac/internal/model"
)

// Store keeps items in a map. A transaction holds the store mutex from start
// to finish, which is a coarser version of the row lock the postgres store
// takes, and rolls the map back when the callback fails.
type Store struct {
	mu     sync.Mutex
	items  map[int]model.PublishableItem
	nextID int
	now    func() time.Time
}

func NewStore() *Store {
	return &Store{items: map[int]model.PublishableItem{}, nextID: 1, now: time.Now}
}

// SetClock controls the modification times written by CreateDraft and
// UpdateDraft.
func (s *Store) SetClock(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}

func (s *Store) CreateDraft(_ context.Context, item *model.PublishableItem) (*model.PublishableItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.slugTaken(item.Slug, true, 0) {
		return nil, model.NewValidationError("slug", "an item with this slug already exists")
	}
	it := *item
	it.ID = s.nextID
	s.nextID++
	it.IsDraft = true
	it.PublisherLinkedID = nil
	it.PublisherPublishedAt = nil
	it.Data = item.Data.Clone()
	it.PublisherModifiedAt = s.now().UTC()
	it.CreatedAt = it.PublisherModifiedAt
	s.items[it.ID] = it
	return copyItem(it), nil
}

func (s *Store) UpdateDraft(_ context.Context, item *model.PublishableItem) (*model.PublishableItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	it, ok := s.items[item.ID]
	if !ok || !it.IsDraft {
		return nil, model.ErrNotFound
	}
	if s.slugTaken(item.Slug, true, item.ID) {
		return nil, model.NewValidationError("slug", "an item with this slug already exists")
	}
	it.TypeID = item.TypeID
	it.Title = item.Title
	it.Slug = item.Slug
	it.Body = item.Body
	it.Data = item.Data.Clone()
	it.PublisherModifiedAt = s.now().UTC()
	s.items[it.ID] = it
	return copyItem(it), nil
}

func (s *Store) GetItem(_ context.Context, id int) (*model.PublishableItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.get(id)
}

// ListItems mirrors the SQL status filters of the postgres store.
func (s *Store) ListItems(_ context.Context, status model.PublishingStatus) ([]model.PublishableItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ids := make([]int, 0, len(s.items))
	for id, it := range s.items {
		if it.IsDraft {
			ids = append(ids, id)
		}
	}
	sort.Ints(ids)

	out := make([]model.PublishableItem, 0, len(ids))
	for _, id := range ids {
		it := s.items[id]
		var linked *model.PublishableItem
		if it.PublisherLinkedID != nil {
			if l, ok := s.items[*it.PublisherLinkedID]; ok {
				linked = &l
				mod := l.PublisherModifiedAt
				it.LinkedModifiedAt = &mod
			}
		}
		keep := false
		switch status {
		case "":
			keep = true
		case model.StatusUnpublished:
			keep = it.PublisherLinkedID == nil
		case model.StatusPublished:
			keep = it.PublisherLinkedID != nil
		case model.StatusOutOfDate:
			keep = linked != nil && it.PublisherModifiedAt.After(linked.PublisherModifiedAt)
		case model.StatusUpToDate:
			keep = linked != nil && !it.PublisherModifiedAt.After(linked.PublisherModifiedAt)
		default:
			return nil, model.NewValidationError("status", "unknown status")
		}
		if keep {
			out = append(out, *copyItem(it))
		}
	}
	return out, nil
}

func (s *Store) InItemTx(_ context.Context, fn func(tx db.ItemTx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := make(map[int]model.PublishableItem, len(s.items))
	for k, v := range s.items {
		snapshot[k] = v
	}
	nextID := s.nextID

	if err := fn(&memTx{s: s}); err != nil {
		s.items = snapshot
		s.nextID = nextID
		return err
	}
	return nil
}

// Len counts all rows, drafts and published copies alike.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items)
}

func (s *Store) get(id int) (*model.PublishableItem, error) {
	it, ok := s.items[id]
	if !ok {
		return nil, model.ErrNotFound
	}
	return copyItem(it), nil
}

func (s *Store) slugTaken(slug string, draft bool, except int) bool {
	for id, it := range s.items {
		if id != except && it.IsDraft == draft && it.Slug == slug {
			return true
		}
	}
	return false
}

type memTx struct {
	s *Store
}

func (t *memTx) LockDraft(_ context.Context, id int) (*model.PublishableItem, error) {
	it, ok := t.s.items[id]
	if !ok || !it.IsDraft {
		return nil, model.ErrNotFound
	}
	return copyItem(it), nil
}

func (t *memTx) GetItem(_ context.Context, id int) (*model.PublishableItem, error) {
	return t.s.get(id)
}

func (t *memTx) InsertPublishedCopy(_ context.Context, draft *model.PublishableItem, modifiedAt time.Time) (int, error) {
	if t.s.slugTaken(draft.Slug, false, 0) {
		return 0, model.NewValidationError("slug", "an item with this slug already exists")
	}
	id := t.s.nextID
	t.s.nextID++
	draftID := draft.ID
	published := modifiedAt
	t.s.items[id] = model.PublishableItem{
		ID:                   id,
		TypeID:               draft.TypeID,
		Title:                draft.Title,
		Slug:                 draft.Slug,
		Body:                 draft.Body,
		Data:                 draft.Data.Clone(),
		IsDraft:              false,
		PublisherLinkedID:    &draftID,
		PublisherModifiedAt:  modifiedAt,
		PublisherPublishedAt: &published,
		CreatedAt:            modifiedAt,
	}
	return id, nil
}

func (t *memTx) OverwritePublishedCopy(_ context.Context, publishedID int, draft *model.PublishableItem, modifiedAt time.Time) error {
	it, ok := t.s.items[publishedID]
	if !ok || it.IsDraft {
		return model.ErrNotFound
	}
	if t.s.slugTaken(draft.Slug, false, publishedID) {
		return model.NewValidationError("slug", "an item with this slug already exists")
	}
	draftID := draft.ID
	it.TypeID = draft.TypeID
	it.Title = draft.Title
	it.Slug = draft.Slug
	it.Body = draft.Body
	it.Data = draft.Data.Clone()
	it.PublisherLinkedID = &draftID
	it.PublisherModifiedAt = modifiedAt
	t.s.items[publishedID] = it
	return nil
}

func (t *memTx) DeleteItem(_ context.Context, id int) error {
	if _, ok := t.s.items[id]; !ok {
		return model.ErrNotFound
	}
	delete(t.s.items, id)
	// ON DELETE SET NULL
	for k, it := range t.s.items {
		if it.PublisherLinkedID != nil && *it.PublisherLinkedID == id {
			it.PublisherLinkedID = nil
			t.s.items[k] = it
		}
	}
	return nil
}

func (t *memTx) SetLink(_ context.Context, draftID int, linkedID *int, publishedAt *time.Time) error {
	it, ok := t.s.items[draftID]
	if !ok || !it.IsDraft {
		return model.ErrNotFound
	}
	it.PublisherLinkedID = copyInt(linkedID)
	it.PublisherPublishedAt = copyTime(publishedAt)
	t.s.items[draftID] = it
	return nil
}

func (t *memTx) RestoreDraft(_ context.Context, draftID int, from *model.PublishableItem) error {
	it, ok := t.s.items[draftID]
	if !ok || !it.IsDraft {
		return model.ErrNotFound
	}
	it.TypeID = from.TypeID
	it.Title = from.Title
	it.Slug = from.Slug
	it.Body = from.Body
	it.Data = from.Data.Clone()
	it.PublisherModifiedAt = from.PublisherModifiedAt
	t.s.items[draftID] = it
	return nil
}

func copyItem(it model.PublishableItem) *model.PublishableItem {
	it.Data = it.Data.Clone()
	it.PublisherLinkedID = copyInt(it.PublisherLinkedID)
	it.PublisherPublishedAt = copyTime(it.PublisherPublishedAt)
	it.LinkedModifiedAt = copyTime(it.LinkedModifiedAt)
	return &it
}

func copyInt(p *int) *int {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func copyTime(p *time.Time) *time.Time {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
