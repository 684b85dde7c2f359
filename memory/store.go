package memory

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	// ErrDuplicateKey is returned by Add when (category, key) already exists.
	ErrDuplicateKey = errors.New("memory item already exists")
	// ErrNotFound is returned by Update for a missing (category, key).
	ErrNotFound = errors.New("memory item not found")
)

// Item is one long-term fact the model chose to remember.
type Item struct {
	Category string `json:"category"`
	Key      string `json:"key"`
	Value    string `json:"value"`
}

// Store is a categorized key/value store rendered into every prompt.
// It has no size cap; the model is expected to remove stale items itself.
//
// Store is not safe for concurrent use; the turn loop is its only writer.
type Store struct {
	items map[string]map[string]string
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{items: make(map[string]map[string]string)}
}

// Add inserts a new item. Existing items must be changed with Update.
func (s *Store) Add(category, key, value string) error {
	if _, ok := s.items[category][key]; ok {
		return fmt.Errorf("%w: [%s] %s", ErrDuplicateKey, category, key)
	}
	cat, ok := s.items[category]
	if !ok {
		cat = make(map[string]string)
		s.items[category] = cat
	}
	cat[key] = value
	return nil
}

// Update replaces the value of an existing item.
func (s *Store) Update(category, key, value string) error {
	cat, ok := s.items[category]
	if !ok {
		return fmt.Errorf("%w: [%s] %s", ErrNotFound, category, key)
	}
	if _, ok := cat[key]; !ok {
		return fmt.Errorf("%w: [%s] %s", ErrNotFound, category, key)
	}
	cat[key] = value
	return nil
}

// Remove deletes an item and reports whether it existed.
func (s *Store) Remove(category, key string) bool {
	cat, ok := s.items[category]
	if !ok {
		return false
	}
	if _, ok := cat[key]; !ok {
		return false
	}
	delete(cat, key)
	if len(cat) == 0 {
		delete(s.items, category)
	}
	return true
}

// Get returns the value stored under (category, key).
func (s *Store) Get(category, key string) (string, bool) {
	v, ok := s.items[category][key]
	return v, ok
}

// Len is the total number of items across categories.
func (s *Store) Len() int {
	n := 0
	for _, cat := range s.items {
		n += len(cat)
	}
	return n
}

// Items returns every item ordered by category, then key.
func (s *Store) Items() []Item {
	out := make([]Item, 0, s.Len())
	for _, category := range sortedKeys(s.items) {
		cat := s.items[category]
		for _, key := range sortedKeys(cat) {
			out = append(out, Item{Category: category, Key: key, Value: cat[key]})
		}
	}
	return out
}

// Search returns items whose key or value contains query (case-insensitive),
// optionally limited to one category. Results keep the Items order.
func (s *Store) Search(query, category string) []Item {
	q := strings.ToLower(strings.TrimSpace(query))
	var out []Item
	for _, it := range s.Items() {
		if category != "" && it.Category != category {
			continue
		}
		if q == "" || strings.Contains(strings.ToLower(it.Key), q) || strings.Contains(strings.ToLower(it.Value), q) {
			out = append(out, it)
		}
	}
	return out
}

// Render produces the prompt rendering of the store: one upper-cased header
// per category, then "key: value" lines, all sorted. An empty store renders
// as the empty string.
func (s *Store) Render() string {
	if len(s.items) == 0 {
		return ""
	}
	var sb strings.Builder
	sb.WriteString("Memory:\n")
	for _, category := range sortedKeys(s.items) {
		cat := s.items[category]
		fmt.Fprintf(&sb, "\n[%s]\n", strings.ToUpper(category))
		for _, key := range sortedKeys(cat) {
			fmt.Fprintf(&sb, "- %s: %s\n", key, cat[key])
		}
	}
	return sb.String()
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
