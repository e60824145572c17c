// Package questions manages imported question sets and random,
// non-repeating selection from them.
package questions

import (
	"math/rand/v2"
	"os"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/bluffparty/bluffparty/internal/apperr"
)

// DefaultSetID is the fixed id of the bundled question set.
const DefaultSetID = "default"

// Entry is a single question/answer pair within a set.
type Entry struct {
	Question   string `json:"question"`
	Answer     string `json:"answer"`
	Category   string `json:"category,omitempty"`
	Difficulty string `json:"difficulty,omitempty"`
}

// Set is a named collection of questions imported from one CSV file.
type Set struct {
	ID        string    `json:"set_id"`
	Name      string    `json:"name"`
	Category  string    `json:"category"`
	Entries   []Entry   `json:"questions"`
	CreatedAt time.Time `json:"created_at"`
}

// Catalog holds question sets and serves random draws. Safe for
// concurrent use.
type Catalog struct {
	mu   sync.RWMutex
	sets map[string]*Set
}

// NewCatalog returns an empty catalog.
func NewCatalog() *Catalog {
	return &Catalog{sets: make(map[string]*Set)}
}

// LoadDefault parses the CSV file at path and installs it under
// DefaultSetID. A missing or malformed file is logged and skipped; the
// server runs fine without a bundled set.
func (c *Catalog) LoadDefault(path string) {
	data, err := os.ReadFile(path)
	if err != nil {
		log.Warn().Err(err).Str("path", path).Msg("no default question set loaded")
		return
	}

	set, err := c.AddFromCSV(string(data), "Default Questions")
	if err != nil {
		log.Warn().Err(err).Str("path", path).Msg("default question set rejected")
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.sets, set.ID)
	set.ID = DefaultSetID
	c.sets[DefaultSetID] = set
	log.Info().Int("questions", len(set.Entries)).Msg("default question set loaded")
}

// AddFromCSV parses CSV content, registers the resulting set, and
// returns it.
func (c *Catalog) AddFromCSV(content, name string) (*Set, error) {
	entries, err := parseCSV(content)
	if err != nil {
		return nil, err
	}

	set := &Set{
		ID:        uuid.New().String(),
		Name:      name,
		Category:  dominantCategory(entries),
		Entries:   entries,
		CreatedAt: time.Now(),
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.sets[set.ID] = set
	return set, nil
}

// Get returns the set with the given id.
func (c *Catalog) Get(setID string) (*Set, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	set, ok := c.sets[setID]
	if !ok {
		return nil, apperr.Newf(apperr.CodeNotFound, "question set %s not found", setID)
	}
	return set, nil
}

// List returns all registered sets, oldest first.
func (c *Catalog) List() []*Set {
	c.mu.RLock()
	defer c.mu.RUnlock()
	sets := make([]*Set, 0, len(c.sets))
	for _, s := range c.sets {
		sets = append(sets, s)
	}
	sort.Slice(sets, func(i, j int) bool {
		if !sets[i].CreatedAt.Equal(sets[j].CreatedAt) {
			return sets[i].CreatedAt.Before(sets[j].CreatedAt)
		}
		return sets[i].ID < sets[j].ID
	})
	return sets
}

// Delete removes a set. Returns NotFound if the id is unknown.
func (c *Catalog) Delete(setID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.sets[setID]; !ok {
		return apperr.Newf(apperr.CodeNotFound, "question set %s not found", setID)
	}
	delete(c.sets, setID)
	return nil
}

// GetRandom draws a random question from the set, skipping indices in
// exclude. When every index has been used the exclusion set is treated
// as empty, so play wraps around rather than halting.
func (c *Catalog) GetRandom(setID string, exclude map[int]struct{}) (Entry, int, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	set, ok := c.sets[setID]
	if !ok {
		return Entry{}, 0, apperr.Newf(apperr.CodeNotFound, "question set %s not found", setID)
	}

	available := make([]int, 0, len(set.Entries))
	for i := range set.Entries {
		if _, used := exclude[i]; !used {
			available = append(available, i)
		}
	}
	if len(available) == 0 {
		for i := range set.Entries {
			available = append(available, i)
		}
	}

	idx := available[rand.IntN(len(available))]
	return set.Entries[idx], idx, nil
}

func dominantCategory(entries []Entry) string {
	counts := make(map[string]int)
	for _, e := range entries {
		if e.Category != "" {
			counts[e.Category]++
		}
	}
	best, bestCount := "Mixed", 0
	for category, count := range counts {
		if count > bestCount {
			best, bestCount = category, count
		}
	}
	return best
}
