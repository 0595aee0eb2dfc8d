package domain

import (
	"fmt"
	"strings"
)

// Kind is the media category handled by the tracker.
// Values mirror the origin API's MediaType.
type Kind string

const (
	// KindAnime is episodic video media.
	KindAnime Kind = "ANIME"
	// KindManga is chaptered print media.
	KindManga Kind = "MANGA"
)

// Kinds lists every kind in crawl order.
var Kinds = []Kind{KindAnime, KindManga}

// ParseKind accepts "anime", "ANIME", "Anime" and the manga equivalents.
func ParseKind(s string) (Kind, error) {
	switch Kind(strings.ToUpper(strings.TrimSpace(s))) {
	case KindAnime:
		return KindAnime, nil
	case KindManga:
		return KindManga, nil
	default:
		return "", fmt.Errorf("%w: unknown kind %q", ErrInvalidArgument, s)
	}
}

// Label returns the display label used by seed data and clients.
func (k Kind) Label() string {
	if k == KindManga {
		return "Manga"
	}
	return "Anime"
}

// SortMode is the crawl order requested from the origin API.
type SortMode string

const (
	SortPopularityDesc SortMode = "POPULARITY_DESC"
	SortIDDesc         SortMode = "ID_DESC"
	// SortTrendingDesc is only used for the recent-activity lists, never as a crawl mode.
	SortTrendingDesc SortMode = "TRENDING_DESC"
)

// DefaultSortMode is used when no mode has been persisted.
const DefaultSortMode = SortPopularityDesc

// ParseSortMode validates a crawl mode.
func ParseSortMode(s string) (SortMode, error) {
	switch SortMode(strings.ToUpper(strings.TrimSpace(s))) {
	case SortPopularityDesc:
		return SortPopularityDesc, nil
	case SortIDDesc:
		return SortIDDesc, nil
	default:
		return "", fmt.Errorf("%w: unknown sort mode %q", ErrInvalidArgument, s)
	}
}

// NextAiring describes the next scheduled episode of a video item.
type NextAiring struct {
	Episode  int   `json:"episode" yaml:"episode"`
	AiringAt int64 `json:"airingAt" yaml:"airingAt"`
}

// CatalogItem is a normalized media record, either bundled (seed) or fetched (remote).
type CatalogItem struct {
	ID         string      `json:"id" yaml:"id"`
	Key        string      `json:"key,omitempty" yaml:"key,omitempty"`
	Source     string      `json:"source,omitempty" yaml:"source,omitempty"`
	SourceID   int         `json:"sourceId,omitempty" yaml:"sourceId,omitempty"`
	Title      string      `json:"title" yaml:"title"`
	Kind       Kind        `json:"type" yaml:"type"`
	Year       *int        `json:"year" yaml:"year"`
	Genres     []string    `json:"genres" yaml:"genres"`
	Image      string      `json:"image" yaml:"image"`
	Synopsis   string      `json:"synopsis" yaml:"synopsis"`
	NextAiring *NextAiring `json:"nextAiring,omitempty" yaml:"nextAiring,omitempty"`
}

// IsRemote reports whether the item came from an external source.
func (c CatalogItem) IsRemote() bool {
	return c.Source != "" && c.SourceID != 0
}

// SourceKey returns "<source>:<sourceId>" for remote items and "" otherwise.
func (c CatalogItem) SourceKey() string {
	if !c.IsRemote() {
		return ""
	}
	return fmt.Sprintf("%s:%d", c.Source, c.SourceID)
}

// AiringSlot is one scheduled episode from the airing schedule.
type AiringSlot struct {
	ID       string      `json:"id"`
	Episode  int         `json:"episode"`
	AiringAt int64       `json:"airingAt"`
	Media    CatalogItem `json:"media"`
}

// IntPtr is a small helper for optional years.
func IntPtr(v int) *int {
	return &v
}
