package source

import (
	"context"
	"fmt"

	"github.com/timmy/amtracker/internal/domain"
	"github.com/timmy/amtracker/internal/logger"
)

// BatchRequest drives one multi-page crawl across both kinds.
type BatchRequest struct {
	PagesPerKind int
	PerPage      int
	Sort         domain.SortMode
	StartCursor  domain.Cursor
}

// BatchResult aggregates every accepted item of a batch.
type BatchResult struct {
	Items      []domain.CatalogItem
	NextCursor domain.Cursor
	Counts     map[domain.Kind]int
}

// FetchBatch crawls up to PagesPerKind pages per kind, anime first, one page
// at a time. A kind stops early once a page reports no next page. Any page
// failure aborts the whole batch and no items are returned.
func FetchBatch(ctx context.Context, src MediaSource, req BatchRequest) (*BatchResult, error) {
	if req.PagesPerKind < 0 {
		return nil, invalidf("pages per kind must be >= 0, got %d", req.PagesPerKind)
	}
	if req.PerPage < 1 || req.PerPage > MaxPageSize {
		return nil, invalidf("page size must be within 1..%d, got %d", MaxPageSize, req.PerPage)
	}

	start := req.StartCursor.Normalize()
	result := &BatchResult{
		Items:      make([]domain.CatalogItem, 0, req.PerPage*len(domain.Kinds)),
		NextCursor: start.Clone(),
		Counts:     make(map[domain.Kind]int, len(domain.Kinds)),
	}

	for _, kind := range domain.Kinds {
		next := start.Page(kind)
		result.Counts[kind] = 0

		for i := 0; i < req.PagesPerKind; i++ {
			if err := ctx.Err(); err != nil {
				return nil, err
			}

			page, err := src.FetchPage(ctx, PageRequest{
				Kind:    kind,
				Sort:    req.Sort,
				Page:    next,
				PerPage: req.PerPage,
			})
			if err != nil {
				return nil, fmt.Errorf("fetch %s page %d: %w", kind, next, err)
			}

			logger.CtxDebug(ctx, "Fetched page: kind=%s, page=%d, items=%d, has_next=%v",
				kind, next, len(page.Items), page.HasNextPage)

			result.Items = append(result.Items, page.Items...)
			result.Counts[kind] += len(page.Items)

			// a missing or stale currentPage falls back to the page we asked for
			current := page.CurrentPage
			if current < next {
				current = next
			}
			next = current + 1

			if !page.HasNextPage {
				break
			}
		}
		result.NextCursor[kind] = next
	}

	return result, nil
}

func invalidf(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", domain.ErrInvalidArgument, fmt.Sprintf(format, args...))
}
