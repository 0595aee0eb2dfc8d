package catalog

import (
	"sort"

	"github.com/timmy/amtracker/internal/domain"
)

// Merge builds the unified catalog. Remote items are admitted first, in
// order, so they shadow seed items sharing a key; seed items fill the gaps.
// Within each list the first occurrence of a key wins.
func Merge(seed, remote []domain.CatalogItem) []domain.CatalogItem {
	seen := make(map[string]struct{}, len(seed)+len(remote))
	out := make([]domain.CatalogItem, 0, len(seed)+len(remote))

	admit := func(items []domain.CatalogItem) {
		for _, it := range items {
			key := KeyOf(it)
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}
			out = append(out, it)
		}
	}

	admit(remote)
	admit(seed)
	return out
}

// DedupeBySourceID drops later items whose source key already appeared.
// Used when fresh pages are prepended to the persisted remote list.
func DedupeBySourceID(list []domain.CatalogItem) []domain.CatalogItem {
	seen := make(map[string]struct{}, len(list))
	out := make([]domain.CatalogItem, 0, len(list))
	for _, it := range list {
		key := it.SourceKey()
		if key == "" {
			key = KeyOf(it)
		}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, it)
	}
	return out
}

// Prepend puts fresh items in front of the existing list and dedupes the result,
// so a re-fetched record replaces its older copy.
func Prepend(fresh, existing []domain.CatalogItem) []domain.CatalogItem {
	combined := make([]domain.CatalogItem, 0, len(fresh)+len(existing))
	combined = append(combined, fresh...)
	combined = append(combined, existing...)
	return DedupeBySourceID(combined)
}

// FilterKind returns the items of one kind, preserving order.
func FilterKind(items []domain.CatalogItem, kind domain.Kind) []domain.CatalogItem {
	out := make([]domain.CatalogItem, 0, len(items))
	for _, it := range items {
		if it.Kind == kind {
			out = append(out, it)
		}
	}
	return out
}

// FindByID looks an item up by id.
func FindByID(items []domain.CatalogItem, id string) (domain.CatalogItem, bool) {
	for _, it := range items {
		if it.ID == id {
			return it, true
		}
	}
	return domain.CatalogItem{}, false
}

// Genres returns the sorted, distinct genres across items.
func Genres(items []domain.CatalogItem) []string {
	set := make(map[string]struct{})
	for _, it := range items {
		for _, g := range it.Genres {
			set[g] = struct{}{}
		}
	}
	out := make([]string, 0, len(set))
	for g := range set {
		out = append(out, g)
	}
	sort.Strings(out)
	return out
}
