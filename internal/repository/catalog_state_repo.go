package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/timmy/amtracker/internal/catalog"
	"github.com/timmy/amtracker/internal/domain"
	"github.com/timmy/amtracker/internal/logger"
)

// CatalogState is everything the sync core persists between runs.
type CatalogState struct {
	Remote []domain.CatalogItem
	Cursor domain.Cursor
	Mode   domain.SortMode
}

// CatalogStateRepository reads and writes the three typed slots on top of a
// StateStore. Missing or malformed slots load as their defaults.
type CatalogStateRepository struct {
	store       StateStore
	defaultMode domain.SortMode
}

// NewCatalogStateRepository creates a repository over store. defaultMode is
// used when no valid mode is persisted; empty means POPULARITY_DESC.
func NewCatalogStateRepository(store StateStore, defaultMode domain.SortMode) *CatalogStateRepository {
	if defaultMode == "" {
		defaultMode = domain.DefaultSortMode
	}
	return &CatalogStateRepository{store: store, defaultMode: defaultMode}
}

// Load reads all three slots.
func (r *CatalogStateRepository) Load(ctx context.Context) (*CatalogState, error) {
	remote, err := r.LoadRemote(ctx)
	if err != nil {
		return nil, err
	}
	cursor, err := r.LoadCursor(ctx)
	if err != nil {
		return nil, err
	}
	mode, err := r.LoadMode(ctx)
	if err != nil {
		return nil, err
	}
	return &CatalogState{Remote: remote, Cursor: cursor, Mode: mode}, nil
}

// LoadRemote returns the persisted remote list with stable keys assigned.
func (r *CatalogStateRepository) LoadRemote(ctx context.Context) ([]domain.CatalogItem, error) {
	raw, found, err := r.store.Load(ctx, domain.SlotRemoteCatalog)
	if err != nil {
		return nil, err
	}
	if !found {
		return []domain.CatalogItem{}, nil
	}

	var items []domain.CatalogItem
	if err := json.Unmarshal([]byte(raw), &items); err != nil {
		logger.CtxWarn(ctx, "Malformed remote catalog slot, using empty list: %v", err)
		return []domain.CatalogItem{}, nil
	}
	if items == nil {
		items = []domain.CatalogItem{}
	}
	return catalog.AssignKeys(items), nil
}

// LoadCursor returns the persisted cursor, or page 1 for both kinds.
func (r *CatalogStateRepository) LoadCursor(ctx context.Context) (domain.Cursor, error) {
	raw, found, err := r.store.Load(ctx, domain.SlotCursor)
	if err != nil {
		return nil, err
	}
	if !found {
		return domain.DefaultCursor(), nil
	}

	var cursor domain.Cursor
	if err := cursor.Scan(raw); err != nil || cursor == nil {
		logger.CtxWarn(ctx, "Malformed cursor slot %q, resetting to page 1", raw)
		return domain.DefaultCursor(), nil
	}
	return cursor.Normalize(), nil
}

// LoadMode returns the persisted crawl mode, or the default mode.
// Both a JSON string and a bare mode name are accepted.
func (r *CatalogStateRepository) LoadMode(ctx context.Context) (domain.SortMode, error) {
	raw, found, err := r.store.Load(ctx, domain.SlotMode)
	if err != nil {
		return "", err
	}
	if !found {
		return r.defaultMode, nil
	}

	value := strings.TrimSpace(raw)
	var decoded string
	if err := json.Unmarshal([]byte(value), &decoded); err == nil {
		value = decoded
	}
	mode, err := domain.ParseSortMode(value)
	if err != nil {
		logger.CtxWarn(ctx, "Malformed mode slot %q, using %s", raw, r.defaultMode)
		return r.defaultMode, nil
	}
	return mode, nil
}

// SaveSyncResult persists the grown remote list and the advanced cursor together.
func (r *CatalogStateRepository) SaveSyncResult(ctx context.Context, remote []domain.CatalogItem, cursor domain.Cursor) error {
	values, err := encodeSlots(remote, cursor, "")
	if err != nil {
		return err
	}
	return r.store.SaveMany(ctx, values)
}

// ChangeMode persists a new crawl mode and a reset cursor in one write.
func (r *CatalogStateRepository) ChangeMode(ctx context.Context, mode domain.SortMode) error {
	values, err := encodeSlots(nil, domain.DefaultCursor(), mode)
	if err != nil {
		return err
	}
	return r.store.SaveMany(ctx, values)
}

// ResetCursor sets both kinds back to page 1.
func (r *CatalogStateRepository) ResetCursor(ctx context.Context) error {
	values, err := encodeSlots(nil, domain.DefaultCursor(), "")
	if err != nil {
		return err
	}
	return r.store.SaveMany(ctx, values)
}

// ClearRemote empties the remote list and resets the cursor.
func (r *CatalogStateRepository) ClearRemote(ctx context.Context) error {
	values, err := encodeSlots([]domain.CatalogItem{}, domain.DefaultCursor(), "")
	if err != nil {
		return err
	}
	return r.store.SaveMany(ctx, values)
}

// Replace overwrites all three slots, as done by a snapshot import.
func (r *CatalogStateRepository) Replace(ctx context.Context, state *CatalogState) error {
	remote := state.Remote
	if remote == nil {
		remote = []domain.CatalogItem{}
	}
	mode := state.Mode
	if mode == "" {
		mode = r.defaultMode
	}
	values, err := encodeSlots(remote, state.Cursor.Normalize(), mode)
	if err != nil {
		return err
	}
	return r.store.SaveMany(ctx, values)
}

// encodeSlots encodes the non-empty arguments; a nil remote or empty mode is skipped.
func encodeSlots(remote []domain.CatalogItem, cursor domain.Cursor, mode domain.SortMode) (map[string]string, error) {
	values := make(map[string]string, 3)
	if remote != nil {
		b, err := json.Marshal(remote)
		if err != nil {
			return nil, fmt.Errorf("failed to encode remote catalog: %w", err)
		}
		values[domain.SlotRemoteCatalog] = string(b)
	}
	if cursor != nil {
		v, err := cursor.Value()
		if err != nil {
			return nil, fmt.Errorf("failed to encode cursor: %w", err)
		}
		values[domain.SlotCursor] = v.(string)
	}
	if mode != "" {
		b, err := json.Marshal(string(mode))
		if err != nil {
			return nil, fmt.Errorf("failed to encode mode: %w", err)
		}
		values[domain.SlotMode] = string(b)
	}
	return values, nil
}
