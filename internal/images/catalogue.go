// Package images implements the Image Resolver: translating abstract
// LLM-produced image references into concrete, preloadable image
// descriptors drawn from a static catalogue (spec §4.5).
package images

import (
	"fmt"
	"os"
	"sync/atomic"

	"gopkg.in/yaml.v3"
)

// Descriptor is a concrete, preloadable image drawn from the catalogue.
type Descriptor struct {
	ID       string   `yaml:"id" json:"id"`
	Title    string   `yaml:"title" json:"title"`
	CDNURL   string   `yaml:"cdn_url" json:"cdn_url"`
	Keywords []string `yaml:"keywords" json:"-"`
	Era      string   `yaml:"era" json:"era"`
	Category string   `yaml:"category" json:"category"`
}

// catalogueDoc mirrors the on-disk structured document format from spec §6:
// { collections: { category_name: [ {id, title, cdn_url, keywords, era, category}, ... ] } }
type catalogueDoc struct {
	Collections map[string][]Descriptor `yaml:"collections"`
}

// Catalogue is an immutable, loaded generation of the image catalogue.
// Entries are ordered by category name, then by declaration order within
// each category, which gives a stable order for tie-breaking.
type Catalogue struct {
	entries []Descriptor
}

// Entries returns the catalogue's entries in catalogue order (category
// name, then declaration order within the category).
func (c *Catalogue) Entries() []Descriptor {
	return c.entries
}

// LoadCatalogue reads and parses the catalogue document at path.
func LoadCatalogue(path string) (*Catalogue, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("images: read catalogue %s: %w", path, err)
	}

	var doc catalogueDoc
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("images: parse catalogue %s: %w", path, err)
	}

	cat := &Catalogue{}
	for _, category := range sortedKeys(doc.Collections) {
		for _, entry := range doc.Collections[category] {
			if entry.Category == "" {
				entry.Category = category
			}
			cat.entries = append(cat.entries, entry)
		}
	}
	return cat, nil
}

// sortedKeys returns m's keys in a stable order so catalogue loading is
// deterministic across runs (map iteration order is not).
func sortedKeys(m map[string][]Descriptor) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	for i := 1; i < len(keys); i++ {
		for j := i; j > 0 && keys[j-1] > keys[j]; j-- {
			keys[j-1], keys[j] = keys[j], keys[j-1]
		}
	}
	return keys
}

// Store holds the current catalogue generation behind an atomic pointer,
// so Reload can atomically swap in a freshly parsed document while
// in-flight Resolve calls keep using whichever generation they already
// observed (spec §4.5: "in-flight resolutions may use either version").
type Store struct {
	current atomic.Pointer[Catalogue]
	path    string
}

// NewStore loads path once and returns a Store serving that generation.
func NewStore(path string) (*Store, error) {
	cat, err := LoadCatalogue(path)
	if err != nil {
		return nil, err
	}
	s := &Store{path: path}
	s.current.Store(cat)
	return s, nil
}

// Current returns the presently active Catalogue generation.
func (s *Store) Current() *Catalogue {
	return s.current.Load()
}

// Reload re-reads the catalogue document from disk and atomically installs
// it as the current generation. The previous generation remains valid for
// any resolution already in flight against it.
func (s *Store) Reload() error {
	cat, err := LoadCatalogue(s.path)
	if err != nil {
		return err
	}
	s.current.Store(cat)
	return nil
}
