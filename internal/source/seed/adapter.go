// Package seed loads the bundled catalog that is always shown, with or
// without a remote sync.
package seed

import (
	_ "embed"
	"fmt"
	"os"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/timmy/amtracker/internal/catalog"
	"github.com/timmy/amtracker/internal/domain"
)

//go:embed seed.yaml
var embedded []byte

// Adapter serves the seed catalog from a file, or the embedded list when no
// path is configured. Items are loaded once and keyed at load time.
type Adapter struct {
	path string

	once  sync.Once
	items []domain.CatalogItem
	err   error
}

// NewAdapter creates a seed adapter. An empty path selects the embedded list.
func NewAdapter(path string) *Adapter {
	return &Adapter{path: path}
}

// GetSourceID returns "seed" or "seed:<path>".
func (a *Adapter) GetSourceID() string {
	if a.path == "" {
		return "seed"
	}
	return "seed:" + a.path
}

// Items returns the loaded seed list. Callers must not modify it.
func (a *Adapter) Items() ([]domain.CatalogItem, error) {
	a.once.Do(func() {
		a.items, a.err = a.load()
	})
	return a.items, a.err
}

func (a *Adapter) load() ([]domain.CatalogItem, error) {
	data := embedded
	if a.path != "" {
		b, err := os.ReadFile(a.path)
		if err != nil {
			return nil, fmt.Errorf("failed to read seed file: %w", err)
		}
		data = b
	}
	return Parse(data)
}

// Parse decodes a YAML (or JSON) seed list, normalizes kinds, assigns keys
// and rejects duplicate keys. An item without an id takes its key as id.
func Parse(data []byte) ([]domain.CatalogItem, error) {
	var items []domain.CatalogItem
	if err := yaml.Unmarshal(data, &items); err != nil {
		return nil, fmt.Errorf("failed to parse seed catalog: %w", err)
	}

	seen := make(map[string]int, len(items))
	for i := range items {
		it := &items[i]
		it.ID = strings.TrimSpace(it.ID)
		if strings.TrimSpace(it.Title) == "" {
			return nil, fmt.Errorf("seed item %d: title is required", i)
		}
		kind, err := domain.ParseKind(string(it.Kind))
		if err != nil {
			return nil, fmt.Errorf("seed item %q: %w", it.Title, err)
		}
		it.Kind = kind
		if it.Genres == nil {
			it.Genres = []string{}
		}
	}

	catalog.AssignKeys(items)
	for i := range items {
		it := &items[i]
		// items without an id are addressed by their title:year key
		if it.ID == "" {
			it.ID = it.Key
		}
		if prev, dup := seen[it.Key]; dup {
			return nil, fmt.Errorf("seed items %d and %d share key %q", prev, i, it.Key)
		}
		seen[it.Key] = i
	}
	return items, nil
}
