package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/timmy/amtracker/internal/domain"
	"github.com/timmy/amtracker/internal/storage"
)

func newSnapshotFixture(t *testing.T) (*SnapshotService, *syncFixture) {
	t.Helper()
	f := newSyncFixture(t, 1)
	store, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	svc := NewSnapshotService(store, f.state, f.svc, "snapshots")
	svc.now = func() time.Time { return time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC) }
	return svc, f
}

func TestSnapshot_ExportImportRoundTrip(t *testing.T) {
	snaps, f := newSnapshotFixture(t)
	ctx := context.Background()

	require.NoError(t, f.svc.ChangeCrawlMode(ctx, domain.SortIDDesc))
	_, err := f.svc.SyncMore(ctx)
	require.NoError(t, err)
	before := f.load(t)

	key, snap, err := snaps.Export(ctx)
	require.NoError(t, err)
	assert.Equal(t, "snapshots/amtracker-20261019T120000Z.json", key)
	assert.Equal(t, SnapshotVersion, snap.Version)
	assert.Len(t, snap.Remote, 2)

	listed, err := snaps.List(ctx)
	require.NoError(t, err)
	require.Len(t, listed, 1)
	assert.Equal(t, key, listed[0].Key)
	assert.Positive(t, listed[0].Size)

	require.NoError(t, f.svc.ClearRemote(ctx))
	require.NoError(t, f.svc.ChangeCrawlMode(ctx, domain.SortPopularityDesc))

	imported, err := snaps.Import(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, domain.SortIDDesc, imported.Mode)

	after := f.load(t)
	assert.Equal(t, before.Mode, after.Mode)
	assert.Equal(t, before.Cursor, after.Cursor)
	assert.Equal(t, before.Remote, after.Remote)
}

func TestSnapshot_ImportMissingObject(t *testing.T) {
	snaps, _ := newSnapshotFixture(t)

	_, err := snaps.Import(context.Background(), "snapshots/missing.json")
	assert.ErrorIs(t, err, storage.ErrObjectNotFound)
}

func TestSnapshot_ImportRejectedWhileSyncRuns(t *testing.T) {
	snaps, f := newSnapshotFixture(t)
	ctx := context.Background()
	key, _, err := snaps.Export(ctx)
	require.NoError(t, err)

	f.src.block = make(chan struct{})
	f.src.started = make(chan struct{}, 1)
	done := make(chan error, 1)
	go func() {
		_, err := f.svc.SyncMore(ctx)
		done <- err
	}()
	<-f.src.started

	_, err = snaps.Import(ctx, key)
	assert.ErrorIs(t, err, ErrSyncInProgress)

	close(f.src.block)
	require.NoError(t, <-done)
}

func TestDecodeSnapshot(t *testing.T) {
	t.Run("normalizes and deduplicates", func(t *testing.T) {
		body := `{"version":1,"mode":"id_desc","cursor":{"ANIME":4},"remote":[
			{"id":"anilist:1","key":"stale","source":"anilist","sourceId":1,"title":"One","type":"anime"},
			{"id":"anilist:2","source":"anilist","sourceId":2,"title":"Two","type":"MANGA"},
			{"id":"anilist:1","source":"anilist","sourceId":1,"title":"One again","type":"ANIME"}]}`

		snap, err := DecodeSnapshot([]byte(body))
		require.NoError(t, err)
		assert.Equal(t, domain.SortIDDesc, snap.Mode)
		assert.Equal(t, domain.Cursor{domain.KindAnime: 4, domain.KindManga: 1}, snap.Cursor)
		require.Len(t, snap.Remote, 2)
		assert.Equal(t, "anilist:1", snap.Remote[0].Key)
		assert.Equal(t, "One", snap.Remote[0].Title)
		assert.Equal(t, domain.KindAnime, snap.Remote[0].Kind)
		assert.Equal(t, domain.KindManga, snap.Remote[1].Kind)
	})

	rejects := map[string]string{
		"malformed":       `{"version":`,
		"unknown version": `{"version":2,"mode":"ID_DESC"}`,
		"unknown mode":    `{"version":1,"mode":"TRENDING_DESC"}`,
		"unknown kind":    `{"version":1,"mode":"ID_DESC","remote":[{"id":"x","title":"x","type":"NOVEL"}]}`,
	}
	for name, body := range rejects {
		t.Run(name, func(t *testing.T) {
			_, err := DecodeSnapshot([]byte(body))
			assert.ErrorIs(t, err, domain.ErrInvalidArgument)
		})
	}
}
