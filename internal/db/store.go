// exposes a Store interface that is passed to API calls w/ param requirements
package db

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/Nixie-Tech-LLC/almanac/internal/model"
)

type Store interface {
	// user functions
	CreateUser(ctx context.Context, email, hashedPassword string, name *string) (int, error)
	GetUserByEmail(ctx context.Context, email string) (*model.User, error)
	GetUserByID(ctx context.Context, id int) (*model.User, error)
	UpdateUserProfile(ctx context.Context, id int, email string, name *string) error

	// item functions
	CreateDraft(ctx context.Context, item *model.PublishableItem) (*model.PublishableItem, error)
	UpdateDraft(ctx context.Context, item *model.PublishableItem) (*model.PublishableItem, error)
	GetItem(ctx context.Context, id int) (*model.PublishableItem, error)
	ListItems(ctx context.Context, status model.PublishingStatus) ([]model.PublishableItem, error)
	InItemTx(ctx context.Context, fn func(tx ItemTx) error) error

	// event functions
	CreateEvent(ctx context.Context, e *model.Event) (*model.Event, error)
	UpdateEvent(ctx context.Context, e *model.Event) (*model.Event, error)
	GetEvent(ctx context.Context, id int) (*model.Event, error)
	DeleteEvent(ctx context.Context, id int) error
	ListEvents(ctx context.Context) ([]model.Event, error)
	ListEventsInRange(ctx context.Context, start, end time.Time) ([]model.Event, error)
	ListRepeats(ctx context.Context, parentID int) ([]model.Event, error)
	ReplaceRepeats(ctx context.Context, parentID int, repeats []model.Event) error
	PropagateToRepeats(ctx context.Context, parent *model.Event) (int64, error)
	InEventTx(ctx context.Context, fn func(tx EventTx) error) error

	// recurrence rule functions
	CreateRecurrenceRule(ctx context.Context, description, rule string) (*model.RecurrenceRule, error)
	GetRecurrenceRule(ctx context.Context, id int) (*model.RecurrenceRule, error)
	ListRecurrenceRules(ctx context.Context) ([]model.RecurrenceRule, error)
	DeleteRecurrenceRule(ctx context.Context, id int) error
}

// ItemTx is the set of item operations that run inside one transaction while
// the draft row is locked.
type ItemTx interface {
	// LockDraft selects the draft FOR UPDATE. The lock is held until the
	// surrounding transaction ends.
	LockDraft(ctx context.Context, id int) (*model.PublishableItem, error)
	GetItem(ctx context.Context, id int) (*model.PublishableItem, error)
	InsertPublishedCopy(ctx context.Context, draft *model.PublishableItem, modifiedAt time.Time) (int, error)
	OverwritePublishedCopy(ctx context.Context, publishedID int, draft *model.PublishableItem, modifiedAt time.Time) error
	DeleteItem(ctx context.Context, id int) error
	SetLink(ctx context.Context, draftID int, linkedID *int, publishedAt *time.Time) error
	RestoreDraft(ctx context.Context, draftID int, from *model.PublishableItem) error
}

// EventTx is the set of event writes that commit or roll back together, so an
// event is never stored without the repeats its rule implies.
type EventTx interface {
	CreateEvent(ctx context.Context, e *model.Event) (*model.Event, error)
	UpdateEvent(ctx context.Context, e *model.Event) (*model.Event, error)
	ReplaceRepeats(ctx context.Context, parentID int, repeats []model.Event) error
	PropagateToRepeats(ctx context.Context, parent *model.Event) (int64, error)
}

type pgStore struct {
	db *sqlx.DB
}

// compile-time check that pgStore implements Store
// required so linter doesn't complain
var _ Store = (*pgStore)(nil)

func NewStore(db *sqlx.DB) Store {
	return &pgStore{db: db}
}
