package store_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/notifsync/apiclient"
	"github.com/dmitrymomot/notifsync/notification"
	"github.com/dmitrymomot/notifsync/store"
)

// fakeAPI implements store.API with overridable behavior per method.
type fakeAPI struct {
	listFn        func(ctx context.Context) ([]notification.Notification, error)
	countFn       func(ctx context.Context) (int, error)
	markReadFn    func(ctx context.Context, id string) error
	markAllReadFn func(ctx context.Context) error
	deleteFn      func(ctx context.Context, id string) error
	createFn      func(ctx context.Context, in apiclient.CreateInput) ([]notification.Notification, error)
}

func (f *fakeAPI) ListUserNotifications(ctx context.Context) ([]notification.Notification, error) {
	if f.listFn != nil {
		return f.listFn(ctx)
	}
	return nil, nil
}

func (f *fakeAPI) UnreadCount(ctx context.Context) (int, error) {
	if f.countFn != nil {
		return f.countFn(ctx)
	}
	return 0, nil
}

func (f *fakeAPI) MarkRead(ctx context.Context, id string) error {
	if f.markReadFn != nil {
		return f.markReadFn(ctx, id)
	}
	return nil
}

func (f *fakeAPI) MarkAllRead(ctx context.Context) error {
	if f.markAllReadFn != nil {
		return f.markAllReadFn(ctx)
	}
	return nil
}

func (f *fakeAPI) Delete(ctx context.Context, id string) error {
	if f.deleteFn != nil {
		return f.deleteFn(ctx, id)
	}
	return nil
}

func (f *fakeAPI) Create(ctx context.Context, in apiclient.CreateInput) ([]notification.Notification, error) {
	if f.createFn != nil {
		return f.createFn(ctx, in)
	}
	return nil, nil
}

func (f *fakeAPI) CreateForAll(ctx context.Context, in apiclient.CreateInput) ([]notification.Notification, error) {
	return f.Create(ctx, in)
}

func (f *fakeAPI) CreateByRole(ctx context.Context, in apiclient.CreateInput, role string) ([]notification.Notification, error) {
	return f.Create(ctx, in)
}

func (f *fakeAPI) CreateFromTemplate(ctx context.Context, name string, recipientIDs []string, vars map[string]string) ([]notification.Notification, error) {
	if f.createFn != nil {
		return f.createFn(ctx, apiclient.CreateInput{Title: name})
	}
	return nil, nil
}

func TestGetAll_HydratesFromREST(t *testing.T) {
	t.Parallel()

	calls := 0
	api := &fakeAPI{
		listFn: func(ctx context.Context) ([]notification.Notification, error) {
			calls++
			return []notification.Notification{
				{ID: "n1", CreatedAt: time.Now().Add(-time.Minute)},
				{ID: "n2", CreatedAt: time.Now()},
			}, nil
		},
	}
	s := store.New(api)

	list, err := s.GetAll(context.Background())
	require.NoError(t, err)
	require.Len(t, list, 2)
	// Display order is newest-first.
	assert.Equal(t, "n2", list[0].ID)

	// Second call is served from cache.
	_, err = s.GetAll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, calls)
}

func TestGetAll_FallbackOnFailure(t *testing.T) {
	t.Parallel()

	api := &fakeAPI{
		listFn: func(ctx context.Context) ([]notification.Notification, error) {
			return nil, errors.New("network down")
		},
	}
	s := store.New(api)

	list, err := s.GetAll(context.Background())
	require.NoError(t, err, "read path must not surface hard errors")
	require.Len(t, list, 3, "built-in placeholder set has exactly three items")
	for _, n := range list {
		assert.True(t, store.IsFallback(n), "placeholder entries must be distinguishable from real data")
	}
}

func TestApply_NewThenRead(t *testing.T) {
	t.Parallel()

	s := store.New(&fakeAPI{})

	s.Apply(notification.Event{
		Name:         notification.EventNew,
		Notification: &notification.Notification{ID: "n1", Title: "Hi"},
	})
	s.Apply(notification.Event{Name: notification.EventRead, ID: "n1"})

	list, err := s.GetAll(context.Background())
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.True(t, list[0].Read)

	count, err := s.UnreadCount(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, count)
}

func TestApply_DuplicateNewIsIdempotent(t *testing.T) {
	t.Parallel()

	s := store.New(&fakeAPI{})
	ev := notification.Event{
		Name:         notification.EventNew,
		Notification: &notification.Notification{ID: "n2", Title: "Dup"},
	}

	s.Apply(ev)
	s.Apply(ev)

	list, err := s.GetAll(context.Background())
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "n2", list[0].ID)
}

func TestApply_ReadIsMonotonic(t *testing.T) {
	t.Parallel()

	s := store.New(&fakeAPI{})
	s.Apply(notification.Event{
		Name:         notification.EventNew,
		Notification: &notification.Notification{ID: "n1"},
	})
	s.Apply(notification.Event{Name: notification.EventRead, ID: "n1"})

	// An update carrying isRead=false must not revert the flag.
	s.Apply(notification.Event{
		Name:         notification.EventUpdated,
		Notification: &notification.Notification{ID: "n1", Title: "Edited", Read: false},
	})

	list, err := s.GetAll(context.Background())
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "Edited", list[0].Title)
	assert.True(t, list[0].Read)
}

func TestApply_UnknownIDIsDropped(t *testing.T) {
	t.Parallel()

	s := store.New(&fakeAPI{})
	s.Apply(notification.Event{
		Name:         notification.EventNew,
		Notification: &notification.Notification{ID: "n1"},
	})

	s.Apply(notification.Event{
		Name:         notification.EventUpdated,
		Notification: &notification.Notification{ID: "ghost", Title: "Boo"},
	})
	s.Apply(notification.Event{Name: notification.EventDeleted, ID: "ghost"})

	list, err := s.GetAll(context.Background())
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "n1", list[0].ID)
}

func TestApply_DeleteIsIdempotent(t *testing.T) {
	t.Parallel()

	s := store.New(&fakeAPI{})
	s.Apply(notification.Event{
		Name:         notification.EventNew,
		Notification: &notification.Notification{ID: "n1"},
	})

	s.Apply(notification.Event{Name: notification.EventDeleted, ID: "n1"})
	s.Apply(notification.Event{Name: notification.EventDeleted, ID: "n1"})

	list, err := s.GetAll(context.Background())
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestApply_AllRead(t *testing.T) {
	t.Parallel()

	s := store.New(&fakeAPI{})
	for _, id := range []string{"a", "b", "c"} {
		s.Apply(notification.Event{
			Name:         notification.EventNew,
			Notification: &notification.Notification{ID: id},
		})
	}

	s.Apply(notification.Event{Name: notification.EventAllRead, Count: 99})

	list, err := s.GetAll(context.Background())
	require.NoError(t, err)
	require.Len(t, list, 3)
	for _, n := range list {
		assert.True(t, n.Read)
	}
}

func TestApply_UnreadCountHint(t *testing.T) {
	t.Parallel()

	s := store.New(&fakeAPI{})
	s.Apply(notification.Event{
		Name:         notification.EventNew,
		Notification: &notification.Notification{ID: "n1"},
	})

	var counts []int
	unsub := s.SubscribeToUnreadCount(func(c int) { counts = append(counts, c) })
	defer unsub()

	var listChanges int
	unsubList := s.Subscribe(func([]notification.Notification) { listChanges++ })
	defer unsubList()

	s.Apply(notification.Event{Name: notification.EventUnreadCount, Count: 12})

	// The hint reaches count listeners without mutating the list.
	require.NotEmpty(t, counts)
	assert.Equal(t, 12, counts[len(counts)-1])
	assert.Equal(t, 1, listChanges, "only the immediate initial invoke, no list change")
}

func TestMarkRead_OfflineKeepsOptimisticState(t *testing.T) {
	t.Parallel()

	api := &fakeAPI{
		markReadFn: func(ctx context.Context, id string) error {
			return errors.New("offline")
		},
	}
	s := store.New(api)
	s.Apply(notification.Event{
		Name:         notification.EventNew,
		Notification: &notification.Notification{ID: "n3"},
	})

	require.NoError(t, s.MarkRead(context.Background(), "n3"))

	list, err := s.GetAll(context.Background())
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.True(t, list[0].Read, "optimistic mutation survives a failed REST call")
}

func TestDelete_OfflineKeepsOptimisticState(t *testing.T) {
	t.Parallel()

	api := &fakeAPI{
		deleteFn: func(ctx context.Context, id string) error {
			return errors.New("offline")
		},
	}
	s := store.New(api)
	s.Apply(notification.Event{
		Name:         notification.EventNew,
		Notification: &notification.Notification{ID: "n4"},
	})

	require.NoError(t, s.Delete(context.Background(), "n4"))

	list, err := s.GetAll(context.Background())
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestMarkAllRead_Optimistic(t *testing.T) {
	t.Parallel()

	api := &fakeAPI{
		markAllReadFn: func(ctx context.Context) error { return errors.New("offline") },
	}
	s := store.New(api)
	for _, id := range []string{"a", "b"} {
		s.Apply(notification.Event{
			Name:         notification.EventNew,
			Notification: &notification.Notification{ID: id},
		})
	}

	require.NoError(t, s.MarkAllRead(context.Background()))

	count, err := s.UnreadCount(context.Background())
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestCreate_PrependsServerResult(t *testing.T) {
	t.Parallel()

	api := &fakeAPI{
		createFn: func(ctx context.Context, in apiclient.CreateInput) ([]notification.Notification, error) {
			return []notification.Notification{
				{ID: "srv-1", Title: in.Title, CreatedAt: time.Now()},
			}, nil
		},
	}
	s := store.New(api)
	s.Apply(notification.Event{
		Name:         notification.EventNew,
		Notification: &notification.Notification{ID: "old", CreatedAt: time.Now().Add(-time.Hour)},
	})

	created, err := s.Create(context.Background(), apiclient.CreateInput{Title: "Fresh"})
	require.NoError(t, err)
	require.Len(t, created, 1)

	list, err := s.GetAll(context.Background())
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "srv-1", list[0].ID)
}

func TestCreate_FailureDoesNotEcho(t *testing.T) {
	t.Parallel()

	api := &fakeAPI{
		createFn: func(ctx context.Context, in apiclient.CreateInput) ([]notification.Notification, error) {
			return nil, errors.New("rejected")
		},
	}
	s := store.New(api)

	_, err := s.Create(context.Background(), apiclient.CreateInput{Title: "Nope"})
	require.Error(t, err)

	list, err := s.GetAll(context.Background())
	require.NoError(t, err)
	assert.Empty(t, list, "no optimistic echo for creation")
}

func TestSubscribe_FanOut(t *testing.T) {
	t.Parallel()

	s := store.New(&fakeAPI{})

	var aCalls, bCalls [][]notification.Notification
	unsubA := s.Subscribe(func(list []notification.Notification) { aCalls = append(aCalls, list) })
	defer unsubA()
	unsubB := s.Subscribe(func(list []notification.Notification) { bCalls = append(bCalls, list) })
	defer unsubB()

	// Immediate initial invoke for both.
	require.Len(t, aCalls, 1)
	require.Len(t, bCalls, 1)

	s.Apply(notification.Event{
		Name:         notification.EventNew,
		Notification: &notification.Notification{ID: "n1"},
	})

	require.Len(t, aCalls, 2, "single mutation notifies each subscriber exactly once")
	require.Len(t, bCalls, 2)
	assert.Equal(t, aCalls[1], bCalls[1])
}

func TestSubscribe_Unsubscribe(t *testing.T) {
	t.Parallel()

	s := store.New(&fakeAPI{})

	calls := 0
	unsub := s.Subscribe(func([]notification.Notification) { calls++ })
	unsub()

	s.Apply(notification.Event{
		Name:         notification.EventNew,
		Notification: &notification.Notification{ID: "n1"},
	})

	assert.Equal(t, 1, calls, "only the initial invoke before unsubscribe")
}

func TestUnreadCount_PrefersServer(t *testing.T) {
	t.Parallel()

	api := &fakeAPI{
		countFn: func(ctx context.Context) (int, error) { return 42, nil },
	}
	s := store.New(api)

	count, err := s.UnreadCount(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 42, count)
}

func TestUnreadCount_FallsBackToLocal(t *testing.T) {
	t.Parallel()

	api := &fakeAPI{
		countFn: func(ctx context.Context) (int, error) { return 0, errors.New("offline") },
	}
	s := store.New(api)
	s.Apply(notification.Event{
		Name:         notification.EventNew,
		Notification: &notification.Notification{ID: "n1"},
	})

	count, err := s.UnreadCount(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestUnreadCount_ConsistentAfterGetAll(t *testing.T) {
	t.Parallel()

	api := &fakeAPI{
		listFn: func(ctx context.Context) ([]notification.Notification, error) {
			return []notification.Notification{
				{ID: "n1"},
				{ID: "n2", Read: true},
				{ID: "n3"},
			}, nil
		},
		countFn: func(ctx context.Context) (int, error) { return 0, errors.New("offline") },
	}
	s := store.New(api)

	list, err := s.GetAll(context.Background())
	require.NoError(t, err)

	count, err := s.UnreadCount(context.Background())
	require.NoError(t, err)
	assert.Equal(t, notification.CountUnread(list), count)
	assert.Equal(t, 2, count)
}

func TestRefresh_ReplacesCache(t *testing.T) {
	t.Parallel()

	snapshot := []notification.Notification{{ID: "n1"}}
	api := &fakeAPI{
		listFn: func(ctx context.Context) ([]notification.Notification, error) {
			return snapshot, nil
		},
	}
	s := store.New(api)

	_, err := s.GetAll(context.Background())
	require.NoError(t, err)

	snapshot = []notification.Notification{{ID: "n1"}, {ID: "n2"}}
	require.NoError(t, s.Refresh(context.Background()))

	list, err := s.GetAll(context.Background())
	require.NoError(t, err)
	assert.Len(t, list, 2)
}

func TestRefresh_KeepsStateOnFailure(t *testing.T) {
	t.Parallel()

	fail := false
	api := &fakeAPI{
		listFn: func(ctx context.Context) ([]notification.Notification, error) {
			if fail {
				return nil, errors.New("offline")
			}
			return []notification.Notification{{ID: "n1"}}, nil
		},
	}
	s := store.New(api)

	_, err := s.GetAll(context.Background())
	require.NoError(t, err)

	fail = true
	require.Error(t, s.Refresh(context.Background()))

	list, err := s.GetAll(context.Background())
	require.NoError(t, err)
	require.Len(t, list, 1, "last known good state survives a failed refresh")
}

func TestClose_DropsLateMutations(t *testing.T) {
	t.Parallel()

	s := store.New(&fakeAPI{})
	s.Apply(notification.Event{
		Name:         notification.EventNew,
		Notification: &notification.Notification{ID: "n1"},
	})

	s.Close()

	s.Apply(notification.Event{
		Name:         notification.EventNew,
		Notification: &notification.Notification{ID: "n2"},
	})
	assert.ErrorIs(t, s.MarkRead(context.Background(), "n1"), store.ErrClosed)

	_, err := s.GetAll(context.Background())
	assert.ErrorIs(t, err, store.ErrClosed)
}
