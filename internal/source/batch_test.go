package source

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/timmy/amtracker/internal/domain"
)

// pagedSource serves a fixed number of pages per kind and records every request.
type pagedSource struct {
	lastPage map[domain.Kind]int
	failOn   map[domain.Kind]int
	omitPage bool
	requests []PageRequest
}

func (s *pagedSource) GetSourceID() string { return "fake" }

func (s *pagedSource) FetchPage(ctx context.Context, req PageRequest) (*Page, error) {
	s.requests = append(s.requests, req)
	if s.failOn[req.Kind] == req.Page {
		return nil, &domain.RemoteFetchError{StatusCode: 500, Message: "boom"}
	}
	items := []domain.CatalogItem{{
		ID:       fmt.Sprintf("fake:%s-%d", req.Kind, req.Page),
		Source:   "fake",
		SourceID: req.Page,
		Kind:     req.Kind,
	}}
	current := req.Page
	if s.omitPage {
		current = 0
	}
	return &Page{Items: items, HasNextPage: req.Page < s.lastPage[req.Kind], CurrentPage: current}, nil
}

func (s *pagedSource) FetchAiringWindow(context.Context, AiringRequest) ([]domain.AiringSlot, error) {
	return nil, nil
}

func (s *pagedSource) FetchByID(context.Context, int) (*domain.CatalogItem, error) {
	return nil, domain.ErrNotFound
}

func TestFetchBatch_StopsWhenNoNextPage(t *testing.T) {
	src := &pagedSource{lastPage: map[domain.Kind]int{domain.KindAnime: 3, domain.KindManga: 100}}

	res, err := FetchBatch(context.Background(), src, BatchRequest{
		PagesPerKind: 5,
		PerPage:      50,
		Sort:         domain.SortPopularityDesc,
		StartCursor:  domain.DefaultCursor(),
	})

	require.NoError(t, err)
	assert.Equal(t, 4, res.NextCursor[domain.KindAnime])
	assert.Equal(t, 6, res.NextCursor[domain.KindManga])
	assert.Equal(t, 3, res.Counts[domain.KindAnime])
	assert.Equal(t, 5, res.Counts[domain.KindManga])
	assert.Len(t, res.Items, 8)
	assert.Len(t, src.requests, 8)
}

func TestFetchBatch_PageFailureAbortsWholeBatch(t *testing.T) {
	src := &pagedSource{
		lastPage: map[domain.Kind]int{domain.KindAnime: 100, domain.KindManga: 100},
		failOn:   map[domain.Kind]int{domain.KindAnime: 2},
	}

	res, err := FetchBatch(context.Background(), src, BatchRequest{
		PagesPerKind: 5,
		PerPage:      50,
		StartCursor:  domain.DefaultCursor(),
	})

	require.Error(t, err)
	assert.Nil(t, res)
	assert.True(t, domain.IsRemoteFetchError(err))
	// manga is never reached once anime fails
	assert.Len(t, src.requests, 2)
}

func TestFetchBatch_RequestsAreSequentialFromCursor(t *testing.T) {
	src := &pagedSource{lastPage: map[domain.Kind]int{domain.KindAnime: 100, domain.KindManga: 100}}

	_, err := FetchBatch(context.Background(), src, BatchRequest{
		PagesPerKind: 2,
		PerPage:      10,
		Sort:         domain.SortIDDesc,
		StartCursor:  domain.Cursor{domain.KindAnime: 7, domain.KindManga: 3},
	})

	require.NoError(t, err)
	want := []PageRequest{
		{Kind: domain.KindAnime, Sort: domain.SortIDDesc, Page: 7, PerPage: 10},
		{Kind: domain.KindAnime, Sort: domain.SortIDDesc, Page: 8, PerPage: 10},
		{Kind: domain.KindManga, Sort: domain.SortIDDesc, Page: 3, PerPage: 10},
		{Kind: domain.KindManga, Sort: domain.SortIDDesc, Page: 4, PerPage: 10},
	}
	assert.Equal(t, want, src.requests)
}

func TestFetchBatch_CursorMonotonic(t *testing.T) {
	for pages := 0; pages <= 4; pages++ {
		t.Run(fmt.Sprintf("pages=%d", pages), func(t *testing.T) {
			src := &pagedSource{
				lastPage: map[domain.Kind]int{domain.KindAnime: 2, domain.KindManga: 100},
				omitPage: pages%2 == 1,
			}
			start := domain.Cursor{domain.KindAnime: 1, domain.KindManga: 9}

			res, err := FetchBatch(context.Background(), src, BatchRequest{PagesPerKind: pages, PerPage: 5, StartCursor: start})

			require.NoError(t, err)
			for _, k := range domain.Kinds {
				if pages == 0 {
					assert.Equal(t, start[k], res.NextCursor[k])
				} else {
					assert.Greater(t, res.NextCursor[k], start[k])
				}
			}
		})
	}
}

func TestFetchBatch_HugePageCountStopsAtLastPage(t *testing.T) {
	src := &pagedSource{lastPage: map[domain.Kind]int{domain.KindAnime: 2, domain.KindManga: 1}}

	res, err := FetchBatch(context.Background(), src, BatchRequest{
		PagesPerKind: 1 << 50,
		PerPage:      MaxPageSize,
		StartCursor:  domain.DefaultCursor(),
	})

	require.NoError(t, err)
	assert.Len(t, res.Items, 3)
	assert.Equal(t, 3, res.NextCursor[domain.KindAnime])
	assert.Equal(t, 2, res.NextCursor[domain.KindManga])
}

func TestFetchBatch_RejectsInvalidPageSize(t *testing.T) {
	_, err := FetchBatch(context.Background(), &pagedSource{}, BatchRequest{PagesPerKind: 1, PerPage: 51})
	assert.True(t, errors.Is(err, domain.ErrInvalidArgument))

	_, err = FetchBatch(context.Background(), &pagedSource{}, BatchRequest{PagesPerKind: 1, PerPage: 0})
	assert.True(t, errors.Is(err, domain.ErrInvalidArgument))
}

func TestFetchBatch_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := FetchBatch(ctx, &pagedSource{}, BatchRequest{PagesPerKind: 1, PerPage: 1})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestIsSafe(t *testing.T) {
	assert.True(t, IsSafe(false, []string{"Action"}))
	assert.False(t, IsSafe(true, nil))
	assert.False(t, IsSafe(false, []string{"Romance", "Hentai"}))
	assert.False(t, IsSafe(false, []string{"Erotica"}))
}

func TestValidatePageRequest(t *testing.T) {
	assert.NoError(t, ValidatePageRequest(PageRequest{Page: 1, PerPage: 50}))
	assert.ErrorIs(t, ValidatePageRequest(PageRequest{Page: 0, PerPage: 10}), domain.ErrInvalidArgument)
	assert.ErrorIs(t, ValidatePageRequest(PageRequest{Page: 1, PerPage: 51}), domain.ErrInvalidArgument)
}
