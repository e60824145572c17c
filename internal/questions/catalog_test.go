package questions

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/bluffparty/bluffparty/internal/apperr"
)

const sampleCSV = `question,answer,category,difficulty
What metal is liquid at room temperature?,Mercury,Science,easy
Which planet rotates on its side in our solar system?,Uranus,Science,medium
What is the national animal of Scotland?,Unicorn,Culture,medium
`

func TestAddFromCSV(t *testing.T) {
	c := NewCatalog()
	set, err := c.AddFromCSV(sampleCSV, "sample")
	if err != nil {
		t.Fatalf("add from csv: %v", err)
	}

	if len(set.Entries) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(set.Entries))
	}
	if set.Category != "Science" {
		t.Fatalf("expected dominant category Science, got %q", set.Category)
	}
	if set.Entries[0].Answer != "Mercury" {
		t.Fatalf("unexpected first answer %q", set.Entries[0].Answer)
	}

	got, err := c.Get(set.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Name != "sample" {
		t.Fatalf("expected name sample, got %q", got.Name)
	}
}

func TestParseCSVValidation(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{
			name:    "missing answer header",
			content: "question,category\nWhat metal is liquid at room temperature?,Science\n",
		},
		{
			name:    "question too short",
			content: "question,answer\nshort?,Yes\n",
		},
		{
			name:    "empty answer",
			content: "question,answer\nWhat metal is liquid at room temperature?,\n",
		},
		{
			name:    "question too long",
			content: "question,answer\n" + strings.Repeat("a", 501) + ",Yes\n",
		},
		{
			name:    "no rows",
			content: "question,answer\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewCatalog()
			if _, err := c.AddFromCSV(tt.content, "bad"); !errors.Is(err, apperr.ErrValidation) {
				t.Fatalf("expected validation error, got %v", err)
			}
		})
	}
}

func TestGetRandomUnknownSet(t *testing.T) {
	c := NewCatalog()
	if _, _, err := c.GetRandom("missing", nil); !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestGetRandomNeverRepeatsUntilExhausted(t *testing.T) {
	c := NewCatalog()
	set, err := c.AddFromCSV(sampleCSV, "sample")
	if err != nil {
		t.Fatalf("add from csv: %v", err)
	}

	used := make(map[int]struct{})
	for i := 0; i < len(set.Entries); i++ {
		_, idx, err := c.GetRandom(set.ID, used)
		if err != nil {
			t.Fatalf("draw %d: %v", i, err)
		}
		if _, seen := used[idx]; seen {
			t.Fatalf("draw %d repeated index %d before exhaustion", i, idx)
		}
		used[idx] = struct{}{}
	}

	// Every index is used; the next draw wraps instead of failing.
	if _, _, err := c.GetRandom(set.ID, used); err != nil {
		t.Fatalf("exhausted set should wrap, got %v", err)
	}
}

func TestListOrderedByCreation(t *testing.T) {
	c := NewCatalog()
	names := []string{"first", "second", "third"}
	sets := make([]*Set, len(names))
	for i, name := range names {
		set, err := c.AddFromCSV(sampleCSV, name)
		if err != nil {
			t.Fatalf("add %s: %v", name, err)
		}
		sets[i] = set
	}
	// Pin creation times in reverse insertion order so the sort has to
	// do the work.
	base := time.Date(2026, time.August, 1, 12, 0, 0, 0, time.UTC)
	for i, set := range sets {
		set.CreatedAt = base.Add(time.Duration(len(sets)-i) * time.Minute)
	}

	listed := c.List()
	if len(listed) != 3 {
		t.Fatalf("expected 3 sets, got %d", len(listed))
	}
	want := []string{"third", "second", "first"}
	for i, set := range listed {
		if set.Name != want[i] {
			t.Fatalf("position %d: expected %q, got %q", i, want[i], set.Name)
		}
	}
}

func TestDelete(t *testing.T) {
	c := NewCatalog()
	set, err := c.AddFromCSV(sampleCSV, "sample")
	if err != nil {
		t.Fatalf("add from csv: %v", err)
	}

	if err := c.Delete(set.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := c.Delete(set.ID); !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("expected not found on second delete, got %v", err)
	}
	if len(c.List()) != 0 {
		t.Fatalf("catalog should be empty after delete")
	}
}
