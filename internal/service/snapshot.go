package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"github.com/timmy/amtracker/internal/catalog"
	"github.com/timmy/amtracker/internal/domain"
	"github.com/timmy/amtracker/internal/logger"
	"github.com/timmy/amtracker/internal/repository"
	"github.com/timmy/amtracker/internal/storage"
)

// SnapshotVersion is the only snapshot document version understood by Import.
const SnapshotVersion = 1

// Snapshot is the exported form of the synced catalog state.
type Snapshot struct {
	Version    int                  `json:"version"`
	ExportedAt time.Time            `json:"exported_at"`
	Mode       domain.SortMode      `json:"mode"`
	Cursor     domain.Cursor        `json:"cursor"`
	Remote     []domain.CatalogItem `json:"remote"`
}

// SnapshotService exports and restores the synced catalog state through object storage.
type SnapshotService struct {
	store  storage.ObjectStorage
	state  *repository.CatalogStateRepository
	sync   *SyncService
	prefix string
	now    func() time.Time
}

// NewSnapshotService creates a snapshot service. Objects are written under prefix.
func NewSnapshotService(store storage.ObjectStorage, state *repository.CatalogStateRepository, syncSvc *SyncService, prefix string) *SnapshotService {
	return &SnapshotService{
		store:  store,
		state:  state,
		sync:   syncSvc,
		prefix: prefix,
		now:    time.Now,
	}
}

// Export writes the current state as a new snapshot object and returns its key.
func (s *SnapshotService) Export(ctx context.Context) (string, *Snapshot, error) {
	state, err := s.state.Load(ctx)
	if err != nil {
		return "", nil, err
	}

	snap := &Snapshot{
		Version:    SnapshotVersion,
		ExportedAt: s.now().UTC().Truncate(time.Second),
		Mode:       state.Mode,
		Cursor:     state.Cursor,
		Remote:     state.Remote,
	}
	body, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return "", nil, fmt.Errorf("failed to encode snapshot: %w", err)
	}

	key := path.Join(s.prefix, fmt.Sprintf("amtracker-%s.json", snap.ExportedAt.Format("20060102T150405Z")))
	if err := s.store.Upload(ctx, key, bytes.NewReader(body), int64(len(body)), "application/json"); err != nil {
		return "", nil, err
	}

	logger.With(logger.Fields{logger.FieldComponent: "snapshot"}).
		WithCount(len(snap.Remote)).
		Info(ctx, "Snapshot exported: key=%s, bytes=%d", key, len(body))
	return key, snap, nil
}

// List returns the stored snapshots, oldest first.
func (s *SnapshotService) List(ctx context.Context) ([]storage.ObjectInfo, error) {
	prefix := s.prefix
	if prefix != "" && !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}
	return s.store.List(ctx, prefix)
}

// Import reads a snapshot, validates it and replaces the persisted state.
// Remote items are re-keyed and deduplicated before they are stored.
func (s *SnapshotService) Import(ctx context.Context, key string) (*Snapshot, error) {
	rc, err := s.store.Download(ctx, key)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	body, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("failed to read snapshot: %w", err)
	}
	snap, err := DecodeSnapshot(body)
	if err != nil {
		return nil, err
	}

	if err := s.sync.Restore(ctx, &repository.CatalogState{
		Remote: snap.Remote,
		Cursor: snap.Cursor,
		Mode:   snap.Mode,
	}); err != nil {
		return nil, err
	}

	logger.With(logger.Fields{logger.FieldComponent: "snapshot"}).
		WithCount(len(snap.Remote)).
		Info(ctx, "Snapshot imported: key=%s, mode=%s", key, snap.Mode)
	return snap, nil
}

// DecodeSnapshot parses and normalizes a snapshot document.
func DecodeSnapshot(body []byte) (*Snapshot, error) {
	var snap Snapshot
	if err := json.Unmarshal(body, &snap); err != nil {
		return nil, fmt.Errorf("%w: malformed snapshot: %v", domain.ErrInvalidArgument, err)
	}
	if snap.Version != SnapshotVersion {
		return nil, fmt.Errorf("%w: unsupported snapshot version %d", domain.ErrInvalidArgument, snap.Version)
	}
	mode, err := domain.ParseSortMode(string(snap.Mode))
	if err != nil {
		return nil, err
	}
	snap.Mode = mode
	snap.Cursor = snap.Cursor.Normalize()

	for i := range snap.Remote {
		kind, err := domain.ParseKind(string(snap.Remote[i].Kind))
		if err != nil {
			return nil, fmt.Errorf("snapshot item %q: %w", snap.Remote[i].ID, err)
		}
		snap.Remote[i].Kind = kind
		snap.Remote[i].Key = ""
	}
	snap.Remote = catalog.DedupeBySourceID(catalog.AssignKeys(snap.Remote))
	return &snap, nil
}
