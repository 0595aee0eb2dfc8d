package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/timmy/amtracker/internal/catalog"
	"github.com/timmy/amtracker/internal/domain"
	"github.com/timmy/amtracker/internal/logger"
	"github.com/timmy/amtracker/internal/repository"
	"github.com/timmy/amtracker/internal/source"
)

// ErrSyncInProgress is returned when a sync, mode change, reset, clear or
// restore is requested while another one is still running.
var ErrSyncInProgress = errors.New("sync already in progress")

// RunRecorder stores sync history. *repository.SyncRunRepository implements it.
type RunRecorder interface {
	Create(ctx context.Context, run *domain.SyncRun) error
	Update(ctx context.Context, run *domain.SyncRun) error
	Latest(ctx context.Context) (*domain.SyncRun, error)
}

// SyncConfig holds the batch shape of one sync.
type SyncConfig struct {
	PagesPerKind int
	PageSize     int
}

// SyncSummary reports the outcome of one successful sync.
type SyncSummary struct {
	SyncID      string              `json:"sync_id"`
	Mode        domain.SortMode     `json:"mode"`
	Counts      map[domain.Kind]int `json:"counts"`
	Fetched     int                 `json:"fetched"`
	NextCursor  domain.Cursor       `json:"next_cursor"`
	RemoteTotal int                 `json:"remote_total"`
	DurationMs  int64               `json:"duration_ms"`
}

// SyncStatus is the current state of the sync core.
type SyncStatus struct {
	Running     bool            `json:"running"`
	Mode        domain.SortMode `json:"mode"`
	Cursor      domain.Cursor   `json:"cursor"`
	RemoteTotal int             `json:"remote_total"`
	LastRun     *domain.SyncRun `json:"last_run,omitempty"`
}

// SyncService runs fetch-and-merge cycles and owns every mutation of the
// persisted catalog state. At most one mutation runs at a time.
type SyncService struct {
	source source.MediaSource
	state  *repository.CatalogStateRepository
	runs   RunRecorder
	cfg    SyncConfig
	now    func() time.Time

	mu        sync.Mutex
	isRunning bool
	lastRun   *domain.SyncRun
}

// NewSyncService creates a sync service. runs may be nil.
func NewSyncService(src source.MediaSource, state *repository.CatalogStateRepository, runs RunRecorder, cfg SyncConfig) *SyncService {
	return &SyncService{
		source: src,
		state:  state,
		runs:   runs,
		cfg:    cfg,
		now:    time.Now,
	}
}

func (s *SyncService) acquire() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.isRunning {
		return false
	}
	s.isRunning = true
	return true
}

func (s *SyncService) release() {
	s.mu.Lock()
	s.isRunning = false
	s.mu.Unlock()
}

// IsRunning reports whether a mutation is in flight.
func (s *SyncService) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.isRunning
}

// SyncMore fetches the next pages for both kinds with the persisted mode and
// cursor, prepends the fresh items to the remote list and persists the list
// and the advanced cursor together. On any failure nothing is persisted.
func (s *SyncService) SyncMore(ctx context.Context) (*SyncSummary, error) {
	if !s.acquire() {
		return nil, ErrSyncInProgress
	}
	defer s.release()

	syncID := uuid.NewString()
	ctx = logger.WithFields(ctx, logger.Fields{
		logger.FieldSyncID:    syncID,
		logger.FieldComponent: "sync",
		logger.FieldSource:    s.source.GetSourceID(),
	})
	start := s.now()

	state, err := s.state.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load catalog state: %w", err)
	}

	run := &domain.SyncRun{
		ID:          syncID,
		Mode:        state.Mode,
		Status:      domain.SyncStatusRunning,
		StartCursor: state.Cursor.Clone(),
		StartedAt:   start.UTC(),
	}
	s.recordStart(ctx, run)

	logger.CtxInfo(ctx, "Starting sync: mode=%s, anime_page=%d, manga_page=%d, pages_per_kind=%d",
		state.Mode, state.Cursor.Page(domain.KindAnime), state.Cursor.Page(domain.KindManga), s.cfg.PagesPerKind)

	res, err := source.FetchBatch(ctx, s.source, source.BatchRequest{
		PagesPerKind: s.cfg.PagesPerKind,
		PerPage:      s.cfg.PageSize,
		Sort:         state.Mode,
		StartCursor:  state.Cursor,
	})
	if err != nil {
		s.recordFailure(ctx, run, err)
		return nil, err
	}

	fresh := catalog.AssignKeys(res.Items)
	remote := catalog.Prepend(fresh, state.Remote)

	if err := s.state.SaveSyncResult(ctx, remote, res.NextCursor); err != nil {
		err = fmt.Errorf("failed to persist sync result: %w", err)
		s.recordFailure(ctx, run, err)
		return nil, err
	}

	elapsed := s.now().Sub(start)
	summary := &SyncSummary{
		SyncID:      syncID,
		Mode:        state.Mode,
		Counts:      res.Counts,
		Fetched:     len(res.Items),
		NextCursor:  res.NextCursor,
		RemoteTotal: len(remote),
		DurationMs:  elapsed.Milliseconds(),
	}

	completed := s.now().UTC()
	run.Status = domain.SyncStatusCompleted
	run.NextCursor = res.NextCursor.Clone()
	run.AnimeCount = res.Counts[domain.KindAnime]
	run.MangaCount = res.Counts[domain.KindManga]
	run.RemoteTotal = len(remote)
	run.CompletedAt = &completed
	s.recordFinish(ctx, run)

	logger.With(logger.Fields{logger.FieldStatus: string(domain.SyncStatusCompleted)}).
		WithCount(summary.Fetched).
		WithDuration(summary.DurationMs).
		Info(ctx, "Sync completed: anime=%d, manga=%d, next_anime=%d, next_manga=%d, remote_total=%d",
			run.AnimeCount, run.MangaCount,
			res.NextCursor[domain.KindAnime], res.NextCursor[domain.KindManga], summary.RemoteTotal)

	return summary, nil
}

// ChangeCrawlMode persists a new mode and a reset cursor in one write.
func (s *SyncService) ChangeCrawlMode(ctx context.Context, mode domain.SortMode) error {
	mode, err := domain.ParseSortMode(string(mode))
	if err != nil {
		return err
	}
	return s.exclusive(ctx, "change mode", func(ctx context.Context) error {
		return s.state.ChangeMode(ctx, mode)
	})
}

// ResetCursor sets both kinds back to page 1 and keeps the remote list.
func (s *SyncService) ResetCursor(ctx context.Context) error {
	return s.exclusive(ctx, "reset cursor", s.state.ResetCursor)
}

// ClearRemote empties the remote list and resets the cursor. The seed
// catalog is unaffected.
func (s *SyncService) ClearRemote(ctx context.Context) error {
	return s.exclusive(ctx, "clear remote", s.state.ClearRemote)
}

// Restore replaces the whole persisted state, as done by a snapshot import.
func (s *SyncService) Restore(ctx context.Context, state *repository.CatalogState) error {
	return s.exclusive(ctx, "restore", func(ctx context.Context) error {
		return s.state.Replace(ctx, state)
	})
}

func (s *SyncService) exclusive(ctx context.Context, op string, fn func(context.Context) error) error {
	if !s.acquire() {
		return ErrSyncInProgress
	}
	defer s.release()

	if err := fn(ctx); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	logger.CtxInfo(ctx, "Catalog state updated: op=%s", op)
	return nil
}

// Status reports the persisted mode and cursor, the remote list size and the latest run.
func (s *SyncService) Status(ctx context.Context) (*SyncStatus, error) {
	state, err := s.state.Load(ctx)
	if err != nil {
		return nil, err
	}

	status := &SyncStatus{
		Running:     s.IsRunning(),
		Mode:        state.Mode,
		Cursor:      state.Cursor,
		RemoteTotal: len(state.Remote),
	}

	if s.runs != nil {
		latest, err := s.runs.Latest(ctx)
		if err != nil {
			logger.CtxWarn(ctx, "Failed to load latest sync run: %v", err)
		} else {
			status.LastRun = latest
		}
	}
	if status.LastRun == nil {
		s.mu.Lock()
		status.LastRun = s.lastRun
		s.mu.Unlock()
	}
	return status, nil
}

// remember keeps a copy of run for Status when no recorder is configured.
func (s *SyncService) remember(run *domain.SyncRun) {
	cp := *run
	s.mu.Lock()
	s.lastRun = &cp
	s.mu.Unlock()
}

func (s *SyncService) recordStart(ctx context.Context, run *domain.SyncRun) {
	s.remember(run)
	if s.runs == nil {
		return
	}
	if err := s.runs.Create(ctx, run); err != nil {
		logger.CtxWarn(ctx, "Failed to record sync run: %v", err)
	}
}

func (s *SyncService) recordFailure(ctx context.Context, run *domain.SyncRun, cause error) {
	completed := s.now().UTC()
	run.Status = domain.SyncStatusFailed
	run.ErrorLog = cause.Error()
	run.CompletedAt = &completed
	s.recordFinish(ctx, run)

	logger.With(logger.Fields{logger.FieldStatus: string(domain.SyncStatusFailed)}).
		WithDuration(completed.Sub(run.StartedAt).Milliseconds()).
		Error(ctx, "Sync failed, nothing persisted: %v", cause)
}

func (s *SyncService) recordFinish(ctx context.Context, run *domain.SyncRun) {
	s.remember(run)
	if s.runs == nil {
		return
	}
	// the run is history only; a cancelled request must not lose it
	if err := s.runs.Update(context.WithoutCancel(ctx), run); err != nil {
		logger.CtxWarn(ctx, "Failed to update sync run: %v", err)
	}
}
