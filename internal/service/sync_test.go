package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/timmy/amtracker/internal/domain"
	"github.com/timmy/amtracker/internal/repository"
	"github.com/timmy/amtracker/internal/source"
)

type syncFixture struct {
	src   *fakeSource
	store repository.StateStore
	state *repository.CatalogStateRepository
	runs  *memoryRuns
	svc   *SyncService
}

func newSyncFixture(t *testing.T, pagesPerKind int) *syncFixture {
	t.Helper()
	f := &syncFixture{
		src:   newFakeSource(),
		store: repository.NewMemoryStateStore(),
		runs:  &memoryRuns{},
	}
	f.state = repository.NewCatalogStateRepository(f.store, "")
	f.svc = NewSyncService(f.src, f.state, f.runs, SyncConfig{PagesPerKind: pagesPerKind, PageSize: 50})
	return f
}

func (f *syncFixture) load(t *testing.T) *repository.CatalogState {
	t.Helper()
	st, err := f.state.Load(context.Background())
	require.NoError(t, err)
	return st
}

func TestSyncMore_AdvancesCursorAndPersists(t *testing.T) {
	f := newSyncFixture(t, 2)

	summary, err := f.svc.SyncMore(context.Background())
	require.NoError(t, err)

	assert.Equal(t, domain.SortPopularityDesc, summary.Mode)
	assert.Equal(t, 2, summary.Counts[domain.KindAnime])
	assert.Equal(t, 2, summary.Counts[domain.KindManga])
	assert.Equal(t, 4, summary.Fetched)
	assert.Equal(t, 4, summary.RemoteTotal)
	assert.Equal(t, domain.Cursor{domain.KindAnime: 3, domain.KindManga: 3}, summary.NextCursor)
	assert.NotEmpty(t, summary.SyncID)

	want := []source.PageRequest{
		{Kind: domain.KindAnime, Sort: domain.SortPopularityDesc, Page: 1, PerPage: 50},
		{Kind: domain.KindAnime, Sort: domain.SortPopularityDesc, Page: 2, PerPage: 50},
		{Kind: domain.KindManga, Sort: domain.SortPopularityDesc, Page: 1, PerPage: 50},
		{Kind: domain.KindManga, Sort: domain.SortPopularityDesc, Page: 2, PerPage: 50},
	}
	assert.Equal(t, want, f.src.pageRequests())

	st := f.load(t)
	assert.Equal(t, summary.NextCursor, st.Cursor)
	require.Len(t, st.Remote, 4)
	assert.Equal(t, "anilist:1000", st.Remote[0].ID)
	assert.Equal(t, "anilist:1000", st.Remote[0].Key)

	latest, err := f.runs.Latest(context.Background())
	require.NoError(t, err)
	assert.Equal(t, domain.SyncStatusCompleted, latest.Status)
	assert.Equal(t, summary.SyncID, latest.ID)
	assert.Equal(t, 4, latest.RemoteTotal)
	assert.NotNil(t, latest.CompletedAt)
}

func TestSyncMore_ContinuesFromCursorAndPrependsFreshItems(t *testing.T) {
	f := newSyncFixture(t, 1)
	ctx := context.Background()

	_, err := f.svc.SyncMore(ctx)
	require.NoError(t, err)
	_, err = f.svc.SyncMore(ctx)
	require.NoError(t, err)

	reqs := f.src.pageRequests()
	require.Len(t, reqs, 4)
	assert.Equal(t, 2, reqs[2].Page)
	assert.Equal(t, 2, reqs[3].Page)

	st := f.load(t)
	ids := make([]string, 0, len(st.Remote))
	for _, it := range st.Remote {
		ids = append(ids, it.ID)
	}
	assert.Equal(t, []string{"anilist:2000", "anilist:2500", "anilist:1000", "anilist:1500"}, ids)

	// a reset re-fetches page 1; the fresh copies move to the front without duplicates
	require.NoError(t, f.svc.ResetCursor(ctx))
	_, err = f.svc.SyncMore(ctx)
	require.NoError(t, err)

	st = f.load(t)
	require.Len(t, st.Remote, 4)
	assert.Equal(t, "anilist:1000", st.Remote[0].ID)
	assert.Equal(t, "anilist:1500", st.Remote[1].ID)
}

func TestSyncMore_StopsKindWhenNoNextPage(t *testing.T) {
	f := newSyncFixture(t, 5)
	f.src.lastPage[domain.KindManga] = 3

	summary, err := f.svc.SyncMore(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 6, summary.NextCursor[domain.KindAnime])
	assert.Equal(t, 4, summary.NextCursor[domain.KindManga])
	assert.Equal(t, 3, summary.Counts[domain.KindManga])
}

func TestSyncMore_PageFailurePersistsNothing(t *testing.T) {
	f := newSyncFixture(t, 5)
	f.src.failOn[domain.KindManga] = 2

	summary, err := f.svc.SyncMore(context.Background())

	require.Error(t, err)
	assert.Nil(t, summary)
	assert.True(t, domain.IsRemoteFetchError(err))

	st := f.load(t)
	assert.Empty(t, st.Remote)
	assert.Equal(t, domain.DefaultCursor(), st.Cursor)

	latest, _ := f.runs.Latest(context.Background())
	require.NotNil(t, latest)
	assert.Equal(t, domain.SyncStatusFailed, latest.Status)
	assert.Contains(t, latest.ErrorLog, "upstream down")
	assert.False(t, f.svc.IsRunning())
}

func TestSyncMore_SaveFailureReported(t *testing.T) {
	f := newSyncFixture(t, 1)
	svc := NewSyncService(f.src, repository.NewCatalogStateRepository(failingStore{f.store}, ""), nil, SyncConfig{PagesPerKind: 1, PageSize: 10})

	_, err := svc.SyncMore(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")
	assert.Empty(t, f.load(t).Remote)

	status, err := svc.Status(context.Background())
	require.NoError(t, err)
	require.NotNil(t, status.LastRun)
	assert.Equal(t, domain.SyncStatusFailed, status.LastRun.Status)
}

func TestSyncMore_CancelledContextPersistsNothing(t *testing.T) {
	f := newSyncFixture(t, 3)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := f.svc.SyncMore(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, domain.DefaultCursor(), f.load(t).Cursor)
}

func TestSyncMore_RejectsOverlappingMutations(t *testing.T) {
	f := newSyncFixture(t, 1)
	f.src.block = make(chan struct{})
	f.src.started = make(chan struct{}, 1)

	done := make(chan error, 1)
	go func() {
		_, err := f.svc.SyncMore(context.Background())
		done <- err
	}()
	<-f.src.started

	ctx := context.Background()
	_, err := f.svc.SyncMore(ctx)
	assert.ErrorIs(t, err, ErrSyncInProgress)
	assert.ErrorIs(t, f.svc.ChangeCrawlMode(ctx, domain.SortIDDesc), ErrSyncInProgress)
	assert.ErrorIs(t, f.svc.ResetCursor(ctx), ErrSyncInProgress)
	assert.ErrorIs(t, f.svc.ClearRemote(ctx), ErrSyncInProgress)
	assert.True(t, f.svc.IsRunning())

	status, err := f.svc.Status(ctx)
	require.NoError(t, err)
	assert.True(t, status.Running)

	close(f.src.block)
	require.NoError(t, <-done)

	// the rejected calls did no work
	assert.Len(t, f.src.pageRequests(), 2)
	assert.Equal(t, domain.SortPopularityDesc, f.load(t).Mode)
	assert.False(t, f.svc.IsRunning())
}

func TestChangeCrawlMode_ResetsCursorAtomically(t *testing.T) {
	f := newSyncFixture(t, 2)
	ctx := context.Background()

	_, err := f.svc.SyncMore(ctx)
	require.NoError(t, err)
	require.Equal(t, 3, f.load(t).Cursor[domain.KindAnime])

	require.NoError(t, f.svc.ChangeCrawlMode(ctx, domain.SortIDDesc))

	st := f.load(t)
	assert.Equal(t, domain.SortIDDesc, st.Mode)
	assert.Equal(t, domain.DefaultCursor(), st.Cursor)
	assert.Len(t, st.Remote, 4)

	_, err = f.svc.SyncMore(ctx)
	require.NoError(t, err)
	last := f.src.pageRequests()[4]
	assert.Equal(t, domain.SortIDDesc, last.Sort)
	assert.Equal(t, 1, last.Page)
}

func TestChangeCrawlMode_RejectsUnknownMode(t *testing.T) {
	f := newSyncFixture(t, 1)

	err := f.svc.ChangeCrawlMode(context.Background(), domain.SortTrendingDesc)
	assert.True(t, errors.Is(err, domain.ErrInvalidArgument))
	assert.Equal(t, domain.SortPopularityDesc, f.load(t).Mode)
}

func TestChangeCrawlMode_SaveFailureLeavesStateUntouched(t *testing.T) {
	f := newSyncFixture(t, 1)
	ctx := context.Background()
	_, err := f.svc.SyncMore(ctx)
	require.NoError(t, err)

	broken := NewSyncService(f.src, repository.NewCatalogStateRepository(failingStore{f.store}, ""), nil, SyncConfig{PagesPerKind: 1, PageSize: 10})
	require.Error(t, broken.ChangeCrawlMode(ctx, domain.SortIDDesc))

	st := f.load(t)
	assert.Equal(t, domain.SortPopularityDesc, st.Mode)
	assert.Equal(t, 2, st.Cursor[domain.KindAnime])
}

func TestClearRemote(t *testing.T) {
	f := newSyncFixture(t, 1)
	ctx := context.Background()
	_, err := f.svc.SyncMore(ctx)
	require.NoError(t, err)
	require.NoError(t, f.svc.ChangeCrawlMode(ctx, domain.SortIDDesc))
	_, err = f.svc.SyncMore(ctx)
	require.NoError(t, err)

	require.NoError(t, f.svc.ClearRemote(ctx))

	st := f.load(t)
	assert.Empty(t, st.Remote)
	assert.Equal(t, domain.DefaultCursor(), st.Cursor)
	assert.Equal(t, domain.SortIDDesc, st.Mode)
}

func TestStatus(t *testing.T) {
	f := newSyncFixture(t, 1)
	ctx := context.Background()

	status, err := f.svc.Status(ctx)
	require.NoError(t, err)
	assert.False(t, status.Running)
	assert.Nil(t, status.LastRun)
	assert.Equal(t, domain.DefaultCursor(), status.Cursor)

	_, err = f.svc.SyncMore(ctx)
	require.NoError(t, err)

	status, err = f.svc.Status(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, status.RemoteTotal)
	assert.Equal(t, 2, status.Cursor[domain.KindManga])
	require.NotNil(t, status.LastRun)
	assert.Equal(t, domain.SyncStatusCompleted, status.LastRun.Status)
}
