package source

import (
	"context"

	"github.com/timmy/amtracker/internal/domain"
)

// MaxPageSize is the origin API's practical per-page ceiling.
const MaxPageSize = 50

// PageRequest selects one page of media of a single kind.
type PageRequest struct {
	Kind    domain.Kind
	Sort    domain.SortMode
	Page    int
	PerPage int
}

// Page is one safety-filtered, normalized page of media.
type Page struct {
	Items       []domain.CatalogItem
	HasNextPage bool
	CurrentPage int
}

// AiringRequest selects scheduled episodes airing strictly between From and To.
type AiringRequest struct {
	From     int64
	To       int64
	PerPage  int
	MaxPages int
}

// MediaSource is implemented by every external media catalog.
type MediaSource interface {
	// GetSourceID returns the stable source identifier used in item ids.
	GetSourceID() string

	// FetchPage fetches a single page of media for one kind.
	// Parameters:
	//   - ctx: context for cancellation and deadlines.
	//   - req: kind, sort mode, page number (>= 1) and page size (1..MaxPageSize).
	// Returns:
	//   - *Page: filtered items plus the origin's pagination info.
	//   - err: *domain.RemoteFetchError on HTTP or API failure.
	FetchPage(ctx context.Context, req PageRequest) (*Page, error)

	// FetchAiringWindow returns scheduled episodes sorted by airing time, soonest first.
	FetchAiringWindow(ctx context.Context, req AiringRequest) ([]domain.AiringSlot, error)

	// FetchByID looks a single record up by the origin's native id.
	// Returns domain.ErrNotFound or domain.ErrFiltered when no usable record exists.
	FetchByID(ctx context.Context, nativeID int) (*domain.CatalogItem, error)
}

// ValidatePageRequest checks page and page size bounds.
func ValidatePageRequest(req PageRequest) error {
	if req.Page < 1 {
		return invalidf("page must be >= 1, got %d", req.Page)
	}
	if req.PerPage < 1 || req.PerPage > MaxPageSize {
		return invalidf("page size must be within 1..%d, got %d", MaxPageSize, req.PerPage)
	}
	return nil
}
