package anilist

import (
	"fmt"
	"strings"

	"github.com/timmy/amtracker/internal/domain"
	"github.com/timmy/amtracker/internal/source"
)

func (m *rawMedia) safe() bool {
	return source.IsSafe(m.IsAdult, m.Genres)
}

func (m *rawMedia) title() string {
	for _, t := range []string{m.Title.English, m.Title.Romaji, m.Title.Native} {
		if t = strings.TrimSpace(t); t != "" {
			return t
		}
	}
	return "Untitled"
}

func (m *rawMedia) year() *int {
	if m.SeasonYear != nil {
		return domain.IntPtr(*m.SeasonYear)
	}
	if m.StartDate != nil && m.StartDate.Year != nil {
		return domain.IntPtr(*m.StartDate.Year)
	}
	return nil
}

// normalize maps a raw record onto a catalog item. fallback is used when the
// record does not state its own type.
func normalize(m *rawMedia, fallback domain.Kind) domain.CatalogItem {
	kind := fallback
	if k, err := domain.ParseKind(m.Type); err == nil {
		kind = k
	}

	item := domain.CatalogItem{
		ID:       fmt.Sprintf("%s:%d", SourceID, m.ID),
		Source:   SourceID,
		SourceID: m.ID,
		Title:    m.title(),
		Kind:     kind,
		Year:     m.year(),
		Genres:   append([]string{}, m.Genres...),
		Synopsis: m.Description,
	}
	if m.CoverImage != nil {
		item.Image = m.CoverImage.Large
	}
	if m.NextAiringEpisode != nil && kind == domain.KindAnime {
		item.NextAiring = &domain.NextAiring{
			Episode:  m.NextAiringEpisode.Episode,
			AiringAt: m.NextAiringEpisode.AiringAt,
		}
	}
	return item
}
