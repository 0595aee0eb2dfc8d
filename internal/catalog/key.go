// Package catalog reconciles the bundled seed list with the remote list
// accumulated from the external catalog.
package catalog

import (
	"strconv"
	"strings"
	"unicode"

	"github.com/timmy/amtracker/internal/domain"
)

// KeyOf returns the stable key of an item. Items loaded through AssignKeys
// carry it already; otherwise it is derived with the same rules.
//
// Remote items are keyed by "<source>:<sourceId>". Seed items use their
// literal id, or "<normalized title>:<year>" when no id is present.
func KeyOf(item domain.CatalogItem) string {
	if item.Key != "" {
		return item.Key
	}
	return deriveKey(item)
}

func deriveKey(item domain.CatalogItem) string {
	if k := item.SourceKey(); k != "" {
		return k
	}
	if id := strings.TrimSpace(item.ID); id != "" {
		return id
	}
	year := ""
	if item.Year != nil {
		year = strconv.Itoa(*item.Year)
	}
	return normalizeTitle(item.Title) + ":" + year
}

// AssignKeys computes the stable key of every item in place and returns the slice.
// An existing key is kept.
func AssignKeys(items []domain.CatalogItem) []domain.CatalogItem {
	for i := range items {
		if items[i].Key == "" {
			items[i].Key = deriveKey(items[i])
		}
	}
	return items
}

// normalizeTitle lowercases, keeps letters and digits and collapses
// everything else into single spaces.
func normalizeTitle(s string) string {
	s = strings.ToLower(s)
	var b strings.Builder
	b.Grow(len(s))

	prevSpace := false
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
			prevSpace = false
			continue
		}
		if !prevSpace {
			b.WriteRune(' ')
			prevSpace = true
		}
	}
	return strings.TrimSpace(b.String())
}
