package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/timmy/amtracker/internal/catalog"
	"github.com/timmy/amtracker/internal/domain"
	"github.com/timmy/amtracker/internal/logger"
	"github.com/timmy/amtracker/internal/repository"
	"github.com/timmy/amtracker/internal/source"
)

// SeedProvider supplies the bundled catalog. *seed.Adapter implements it.
type SeedProvider interface {
	Items() ([]domain.CatalogItem, error)
}

// AiringConfig shapes the "airing soon" window.
type AiringConfig struct {
	Lookback time.Duration
	Horizon  time.Duration
	PageSize int
	MaxPages int
}

// Where an airing entry's media details came from.
const (
	ResolvedCatalog  = "catalog"
	ResolvedLookup   = "lookup"
	ResolvedSchedule = "schedule"
)

// AiringEntry is an airing slot whose media has been resolved to the best
// available record.
type AiringEntry struct {
	domain.AiringSlot
	Resolution string `json:"resolution"`
}

// AiringOptions controls one AiringSoon call.
type AiringOptions struct {
	Now time.Time
	// Lookup fetches records missing from the local catalog by id. Without
	// it such slots keep the schedule's own media record.
	Lookup bool
}

// maxLookups bounds concurrent by-id requests while resolving airing entries.
const maxLookups = 4

// CatalogService serves the merged catalog and the read-only remote views.
type CatalogService struct {
	seed   SeedProvider
	state  *repository.CatalogStateRepository
	source source.MediaSource
	airing AiringConfig
	// recentPageSize is the page size of the trending lists.
	recentPageSize int

	lookups singleflight.Group
}

// NewCatalogService creates a catalog service.
func NewCatalogService(seed SeedProvider, state *repository.CatalogStateRepository, src source.MediaSource, airing AiringConfig, recentPageSize int) *CatalogService {
	if recentPageSize < 1 || recentPageSize > source.MaxPageSize {
		recentPageSize = source.MaxPageSize
	}
	return &CatalogService{
		seed:           seed,
		state:          state,
		source:         src,
		airing:         airing,
		recentPageSize: recentPageSize,
	}
}

// Catalog returns the merged catalog, optionally restricted to one kind.
// An empty kind returns every item.
func (s *CatalogService) Catalog(ctx context.Context, kind domain.Kind) ([]domain.CatalogItem, error) {
	seedItems, err := s.seed.Items()
	if err != nil {
		return nil, fmt.Errorf("failed to load seed catalog: %w", err)
	}
	remote, err := s.state.LoadRemote(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load remote catalog: %w", err)
	}

	merged := catalog.Merge(seedItems, remote)
	if kind == "" {
		return merged, nil
	}
	return catalog.FilterKind(merged, kind), nil
}

// Genres returns the sorted distinct genres of the merged catalog.
func (s *CatalogService) Genres(ctx context.Context) ([]string, error) {
	items, err := s.Catalog(ctx, "")
	if err != nil {
		return nil, err
	}
	return catalog.Genres(items), nil
}

// Item returns one item of the merged catalog. Ids of the form
// "anilist:<n>" that are not held locally are looked up remotely.
func (s *CatalogService) Item(ctx context.Context, id string) (*domain.CatalogItem, error) {
	items, err := s.Catalog(ctx, "")
	if err != nil {
		return nil, err
	}
	if it, ok := catalog.FindByID(items, id); ok {
		return &it, nil
	}

	nativeID, ok := parseNativeID(id, s.source.GetSourceID())
	if !ok {
		return nil, fmt.Errorf("catalog item %q: %w", id, domain.ErrNotFound)
	}
	return s.Lookup(ctx, nativeID)
}

// Lookup fetches a record by its native id. Concurrent lookups of the same
// id share one request. The shared request is detached from the caller that
// started it; each caller stops waiting when its own ctx is done.
func (s *CatalogService) Lookup(ctx context.Context, nativeID int) (*domain.CatalogItem, error) {
	flight := context.WithoutCancel(ctx)
	ch := s.lookups.DoChan(strconv.Itoa(nativeID), func() (interface{}, error) {
		return s.source.FetchByID(flight, nativeID)
	})

	var res singleflight.Result
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res = <-ch:
	}
	if res.Err != nil {
		return nil, res.Err
	}
	item := *res.Val.(*domain.CatalogItem)
	if res.Shared {
		logger.CtxDebug(ctx, "Lookup shared with a concurrent request: id=%d", nativeID)
	}
	item.Key = catalog.KeyOf(item)
	return &item, nil
}

// AiringSoon returns episodes airing from Lookback before now until Horizon
// after now, soonest first. Each entry's media is resolved
// from the local catalog, then by id lookup when enabled, then falls back to
// the schedule's own record.
func (s *CatalogService) AiringSoon(ctx context.Context, opts AiringOptions) ([]AiringEntry, error) {
	now := opts.Now
	if now.IsZero() {
		now = time.Now()
	}
	from := now.Add(-s.airing.Lookback).Unix()
	to := now.Add(s.airing.Horizon).Unix()

	slots, err := s.source.FetchAiringWindow(ctx, source.AiringRequest{
		From:     from,
		To:       to,
		PerPage:  s.airing.PageSize,
		MaxPages: s.airing.MaxPages,
	})
	if err != nil {
		return nil, err
	}

	local, err := s.Catalog(ctx, "")
	if err != nil {
		return nil, err
	}
	byID := make(map[string]domain.CatalogItem, len(local))
	for _, it := range local {
		byID[it.ID] = it
	}

	entries := make([]AiringEntry, len(slots))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxLookups)
	for i := range slots {
		i := i
		entries[i] = AiringEntry{AiringSlot: slots[i], Resolution: ResolvedSchedule}
		if it, ok := byID[slots[i].Media.ID]; ok {
			entries[i].Media = it
			entries[i].Resolution = ResolvedCatalog
			continue
		}
		if !opts.Lookup || slots[i].Media.SourceID == 0 {
			continue
		}
		g.Go(func() error {
			item, err := s.Lookup(gctx, entries[i].Media.SourceID)
			if err != nil {
				// the schedule record stays as the fallback
				logger.CtxDebug(ctx, "Airing lookup failed, using schedule record: id=%d, err=%v", entries[i].Media.SourceID, err)
				return nil
			}
			entries[i].Media = *item
			entries[i].Resolution = ResolvedLookup
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return entries, nil
}

// Recent returns one page of currently trending items of a kind.
func (s *CatalogService) Recent(ctx context.Context, kind domain.Kind, page int) ([]domain.CatalogItem, error) {
	if page < 1 {
		page = 1
	}
	res, err := s.source.FetchPage(ctx, source.PageRequest{
		Kind:    kind,
		Sort:    domain.SortTrendingDesc,
		Page:    page,
		PerPage: s.recentPageSize,
	})
	if err != nil {
		return nil, err
	}
	return catalog.AssignKeys(res.Items), nil
}

// parseNativeID accepts "<sourceID>:<n>".
func parseNativeID(id, sourceID string) (int, bool) {
	rest, ok := strings.CutPrefix(id, sourceID+":")
	if !ok {
		return 0, false
	}
	n, err := strconv.Atoi(rest)
	if err != nil || n <= 0 {
		return 0, false
	}
	return n, true
}

// IsLookupMiss reports whether err means a by-id lookup found nothing usable.
func IsLookupMiss(err error) bool {
	return errors.Is(err, domain.ErrNotFound) || errors.Is(err, domain.ErrFiltered)
}
