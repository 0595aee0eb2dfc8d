package service

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/timmy/amtracker/internal/domain"
	"github.com/timmy/amtracker/internal/repository"
	"github.com/timmy/amtracker/internal/source"
)

// fakeSource serves lastPage pages per kind, one item per page, with
// SourceID = page*1000 + kind offset so every page is distinct.
type fakeSource struct {
	mu       sync.Mutex
	lastPage map[domain.Kind]int
	failOn   map[domain.Kind]int
	requests []source.PageRequest

	// block, when set, holds FetchPage until it is closed
	block   chan struct{}
	started chan struct{}

	airing    []domain.AiringSlot
	byID      map[int]*domain.CatalogItem
	byIDCalls int32
	byIDGate  chan struct{}
}

func newFakeSource() *fakeSource {
	return &fakeSource{
		lastPage: map[domain.Kind]int{domain.KindAnime: 100, domain.KindManga: 100},
		failOn:   map[domain.Kind]int{},
		byID:     map[int]*domain.CatalogItem{},
	}
}

func (f *fakeSource) GetSourceID() string { return "anilist" }

func (f *fakeSource) FetchPage(ctx context.Context, req source.PageRequest) (*source.Page, error) {
	f.mu.Lock()
	f.requests = append(f.requests, req)
	block, started := f.block, f.started
	f.mu.Unlock()

	if started != nil {
		select {
		case started <- struct{}{}:
		default:
		}
	}
	if block != nil {
		select {
		case <-block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	if f.failOn[req.Kind] == req.Page {
		return nil, &domain.RemoteFetchError{StatusCode: 500, Message: "upstream down"}
	}
	offset := 0
	if req.Kind == domain.KindManga {
		offset = 500
	}
	id := req.Page*1000 + offset
	item := domain.CatalogItem{
		ID:       fmt.Sprintf("anilist:%d", id),
		Source:   "anilist",
		SourceID: id,
		Title:    fmt.Sprintf("%s %s p%d", req.Sort, req.Kind, req.Page),
		Kind:     req.Kind,
		Genres:   []string{"Action"},
	}
	return &source.Page{
		Items:       []domain.CatalogItem{item},
		HasNextPage: req.Page < f.lastPage[req.Kind],
		CurrentPage: req.Page,
	}, nil
}

func (f *fakeSource) FetchAiringWindow(_ context.Context, req source.AiringRequest) ([]domain.AiringSlot, error) {
	out := make([]domain.AiringSlot, 0, len(f.airing))
	for _, s := range f.airing {
		if s.AiringAt > req.From && s.AiringAt < req.To {
			out = append(out, s)
		}
	}
	return out, nil
}

func (f *fakeSource) FetchByID(ctx context.Context, id int) (*domain.CatalogItem, error) {
	atomic.AddInt32(&f.byIDCalls, 1)
	if f.byIDGate != nil {
		select {
		case <-f.byIDGate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	it, ok := f.byID[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *it
	return &cp, nil
}

func (f *fakeSource) pageRequests() []source.PageRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]source.PageRequest(nil), f.requests...)
}

// failingStore fails SaveMany, leaving everything else to the wrapped store.
type failingStore struct {
	repository.StateStore
}

func (failingStore) SaveMany(context.Context, map[string]string) error {
	return fmt.Errorf("disk full")
}

// staticSeed is a fixed seed list.
type staticSeed []domain.CatalogItem

func (s staticSeed) Items() ([]domain.CatalogItem, error) { return s, nil }

// memoryRuns records sync runs in memory.
type memoryRuns struct {
	mu   sync.Mutex
	runs []domain.SyncRun
}

func (m *memoryRuns) Create(_ context.Context, run *domain.SyncRun) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.runs = append(m.runs, *run)
	return nil
}

func (m *memoryRuns) Update(_ context.Context, run *domain.SyncRun) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.runs {
		if m.runs[i].ID == run.ID {
			m.runs[i] = *run
			return nil
		}
	}
	return fmt.Errorf("run %s not found", run.ID)
}

func (m *memoryRuns) Latest(context.Context) (*domain.SyncRun, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.runs) == 0 {
		return nil, nil
	}
	cp := m.runs[len(m.runs)-1]
	return &cp, nil
}
