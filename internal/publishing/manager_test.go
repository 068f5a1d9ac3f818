package publishing_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Nixie-Tech-LLC/almanac/internal/metrics"
	"github.com/Nixie-Tech-LLC/almanac/internal/model"
	"github.com/Nixie-Tech-LLC/almanac/internal/notify"
	"github.com/Nixie-Tech-LLC/almanac/internal/publishing"
	"github.com/Nixie-Tech-LLC/almanac/internal/publishing/publishingtest"
)

type clock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

type recordingNotifier struct {
	mu   sync.Mutex
	sent []notify.Transition
	err  error
}

func (r *recordingNotifier) Notify(_ context.Context, t notify.Transition) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, t)
	return r.err
}

type fixture struct {
	store    *publishingtest.Store
	clock    *clock
	notifier *recordingNotifier
	metrics  *metrics.Collector
	registry *prometheus.Registry
	mgr      *publishing.Manager
	editor   *model.User
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	c := &clock{t: time.Date(2024, 1, 10, 9, 0, 0, 0, time.UTC)}
	store := publishingtest.NewStore()
	store.SetClock(c.Now)
	reg := prometheus.NewRegistry()
	col := metrics.NewCollector(reg)
	n := &recordingNotifier{}
	return &fixture{
		store:    store,
		clock:    c,
		notifier: n,
		metrics:  col,
		registry: reg,
		mgr: publishing.NewManager(store,
			publishing.WithClock(c.Now),
			publishing.WithNotifier(n),
			publishing.WithMetrics(col),
		),
		editor: &model.User{ID: 1, IsActive: true, CanPublish: true},
	}
}

func (f *fixture) draft(t *testing.T, slug string) *model.PublishableItem {
	t.Helper()
	it, err := f.store.CreateDraft(context.Background(), &model.PublishableItem{
		TypeID: 1,
		Title:  "Title " + slug,
		Slug:   slug,
		Body:   "<p>body</p>",
		Data:   model.Fields{"share_url": "https://example.com"},
	})
	require.NoError(t, err)
	f.clock.Advance(time.Minute)
	return it
}

func (f *fixture) edit(t *testing.T, id int, title string) {
	t.Helper()
	it, err := f.store.GetItem(context.Background(), id)
	require.NoError(t, err)
	it.Title = title
	it.Data = model.Fields{"share_url": "https://example.org/changed"}
	_, err = f.store.UpdateDraft(context.Background(), it)
	require.NoError(t, err)
	f.clock.Advance(time.Minute)
}

func TestPublishMakesDraftCleanAndPublished(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	d := f.draft(t, "about")

	dirty, err := f.mgr.IsDirty(ctx, d.ID)
	require.NoError(t, err)
	assert.True(t, dirty, "never published drafts are dirty")

	out, err := f.mgr.Publish(ctx, f.editor, d.ID)
	require.NoError(t, err)
	assert.True(t, out.HasBeenPublished())
	assert.False(t, publishing.IsDirty(*out))

	dirty, err = f.mgr.IsDirty(ctx, d.ID)
	require.NoError(t, err)
	assert.False(t, dirty)

	copyItem, err := f.store.GetItem(ctx, *out.PublisherLinkedID)
	require.NoError(t, err)
	assert.False(t, copyItem.IsDraft)
	assert.Equal(t, d.ID, *copyItem.PublisherLinkedID, "link is stored on both sides")
	assert.Equal(t, d.Title, copyItem.Title)
	assert.Equal(t, d.Data, copyItem.Data)
	assert.True(t, copyItem.HasBeenPublished())
}

func TestRepublishOverwritesSameCopy(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	d := f.draft(t, "about")

	first, err := f.mgr.Publish(ctx, f.editor, d.ID)
	require.NoError(t, err)
	firstPublishedAt := *first.PublisherPublishedAt

	f.clock.Advance(time.Minute)
	f.edit(t, d.ID, "Changed")
	dirty, err := f.mgr.IsDirty(ctx, d.ID)
	require.NoError(t, err)
	assert.True(t, dirty)

	second, err := f.mgr.Publish(ctx, f.editor, d.ID)
	require.NoError(t, err)

	assert.Equal(t, *first.PublisherLinkedID, *second.PublisherLinkedID)
	assert.Equal(t, firstPublishedAt, *second.PublisherPublishedAt)
	assert.Equal(t, 2, f.store.Len())

	copyItem, err := f.store.GetItem(ctx, *second.PublisherLinkedID)
	require.NoError(t, err)
	assert.Equal(t, "Changed", copyItem.Title)
}

func TestUnpublishRemovesCopyAndRevertConflicts(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	d := f.draft(t, "about")

	out, err := f.mgr.Publish(ctx, f.editor, d.ID)
	require.NoError(t, err)
	copyID := *out.PublisherLinkedID

	require.NoError(t, f.mgr.Unpublish(ctx, f.editor, d.ID))

	_, err = f.store.GetItem(ctx, copyID)
	assert.ErrorIs(t, err, model.ErrNotFound)

	item, err := f.store.GetItem(ctx, d.ID)
	require.NoError(t, err)
	assert.Nil(t, item.PublisherLinkedID)
	assert.False(t, item.HasBeenPublished())

	_, err = f.mgr.Revert(ctx, f.editor, d.ID)
	assert.ErrorIs(t, err, model.ErrConflict)

	// unpublishing again is a successful no-op
	assert.NoError(t, f.mgr.Unpublish(ctx, f.editor, d.ID))
	assert.Equal(t, 1, f.store.Len())
}

func TestRevertRestoresPublishedFields(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	d := f.draft(t, "about")

	_, err := f.mgr.Publish(ctx, f.editor, d.ID)
	require.NoError(t, err)
	f.clock.Advance(time.Minute)
	f.edit(t, d.ID, "Scratch edit")

	reverted, err := f.mgr.Revert(ctx, f.editor, d.ID)
	require.NoError(t, err)

	stored, err := f.store.GetItem(ctx, d.ID)
	require.NoError(t, err)
	copyItem, err := f.store.GetItem(ctx, *stored.PublisherLinkedID)
	require.NoError(t, err)

	for _, got := range []*model.PublishableItem{reverted, stored} {
		assert.Equal(t, copyItem.Title, got.Title)
		assert.Equal(t, copyItem.Slug, got.Slug)
		assert.Equal(t, copyItem.Body, got.Body)
		assert.Equal(t, copyItem.TypeID, got.TypeID)
		assert.Equal(t, copyItem.Data, got.Data)
	}

	dirty, err := f.mgr.IsDirty(ctx, d.ID)
	require.NoError(t, err)
	assert.False(t, dirty)
}

func TestTransitionsRequirePermission(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	d := f.draft(t, "about")
	reader := &model.User{ID: 2, IsActive: true}

	_, err := f.mgr.Publish(ctx, reader, d.ID)
	assert.ErrorIs(t, err, model.ErrPermissionDenied)
	assert.Equal(t, 1, f.store.Len(), "no copy on denied publish")

	_, err = f.mgr.Publish(ctx, f.editor, d.ID)
	require.NoError(t, err)

	assert.ErrorIs(t, f.mgr.Unpublish(ctx, reader, d.ID), model.ErrPermissionDenied)
	_, err = f.mgr.Revert(ctx, reader, d.ID)
	assert.ErrorIs(t, err, model.ErrPermissionDenied)
	assert.Equal(t, 2, f.store.Len())
}

func TestTransitionsOnMissingItem(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.mgr.Publish(ctx, f.editor, 404)
	assert.ErrorIs(t, err, model.ErrNotFound)
	assert.ErrorIs(t, f.mgr.Unpublish(ctx, f.editor, 404), model.ErrNotFound)
	_, err = f.mgr.Revert(ctx, f.editor, 404)
	assert.ErrorIs(t, err, model.ErrNotFound)

	// published copies cannot be transitioned directly
	d := f.draft(t, "about")
	out, err := f.mgr.Publish(ctx, f.editor, d.ID)
	require.NoError(t, err)
	_, err = f.mgr.Publish(ctx, f.editor, *out.PublisherLinkedID)
	assert.ErrorIs(t, err, model.ErrNotFound)
}

func TestConcurrentPublishCreatesOneCopy(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	d := f.draft(t, "about")

	var wg sync.WaitGroup
	errs := make(chan error, 10)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.mgr.Publish(ctx, f.editor, d.ID)
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		assert.NoError(t, err)
	}
	assert.Equal(t, 2, f.store.Len())
}

func TestTransitionsAreNotifiedAndCounted(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	d := f.draft(t, "about")

	_, err := f.mgr.Publish(ctx, f.editor, d.ID)
	require.NoError(t, err)
	require.NoError(t, f.mgr.Unpublish(ctx, f.editor, d.ID))
	_, err = f.mgr.Revert(ctx, f.editor, d.ID)
	require.ErrorIs(t, err, model.ErrConflict)

	require.Len(t, f.notifier.sent, 2)
	assert.Equal(t, notify.ActionPublish, f.notifier.sent[0].Action)
	assert.Equal(t, d.ID, f.notifier.sent[0].ItemID)
	assert.NotNil(t, f.notifier.sent[0].PublishedID)
	assert.Equal(t, notify.ActionUnpublish, f.notifier.sent[1].Action)

	n, err := testutil.GatherAndCount(f.registry, "almanac_publishing_transitions_total")
	require.NoError(t, err)
	assert.Equal(t, 3, n)
}

func TestNotifierFailureDoesNotFailTransition(t *testing.T) {
	f := newFixture(t)
	f.notifier.err = errors.New("broker down")
	d := f.draft(t, "about")

	_, err := f.mgr.Publish(context.Background(), f.editor, d.ID)
	assert.NoError(t, err)
}
