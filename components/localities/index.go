package localities

import (
	"strings"

	"github.com/goliatone/go-leadform/pkg/levenshtein"
)

const (
	// DefaultSuggestionLimit caps autocomplete suggestions when no limit is given.
	DefaultSuggestionLimit = 8
	// AutocorrectThreshold is the largest edit distance accepted as a typo.
	AutocorrectThreshold = 1
)

// Match is the closest commune to some input.
type Match struct {
	Entry
	Distance int
}

// Correction is the outcome of resolving free text typed into a commune field.
type Correction struct {
	Value     string
	Region    string
	Distance  int
	Corrected bool
	Valid     bool
}

// Index answers lookups over an immutable, name-sorted commune table.
type Index struct {
	entries []Entry
	folded  []string
	regions map[string]string
}

// NewIndex builds an index over entries. The slice is copied and sorted by name.
func NewIndex(entries []Entry) *Index {
	sorted := append([]Entry{}, entries...)
	sortEntries(sorted)

	idx := &Index{
		entries: sorted,
		folded:  make([]string, len(sorted)),
		regions: make(map[string]string, len(sorted)),
	}
	for i, e := range sorted {
		idx.folded[i] = Normalize(e.Name)
		if _, ok := idx.regions[e.Name]; !ok {
			idx.regions[e.Name] = e.Region
		}
	}
	return idx
}

// DefaultIndex builds an index over the embedded commune table.
func DefaultIndex() (*Index, error) {
	entries, err := DefaultEntries()
	if err != nil {
		return nil, err
	}
	return NewIndex(entries), nil
}

// Len returns the number of communes in the index.
func (x *Index) Len() int {
	if x == nil {
		return 0
	}
	return len(x.entries)
}

// Entries returns a copy of the sorted table.
func (x *Index) Entries() []Entry {
	if x == nil {
		return nil
	}
	return append([]Entry{}, x.entries...)
}

// Suggestions returns communes whose folded name contains the folded prefix,
// in table order, truncated to limit. A limit <= 0 uses DefaultSuggestionLimit.
func (x *Index) Suggestions(prefix string, limit int) []Entry {
	if x == nil || strings.TrimSpace(prefix) == "" {
		return nil
	}
	if limit <= 0 {
		limit = DefaultSuggestionLimit
	}

	needle := Normalize(prefix)
	out := make([]Entry, 0, limit)
	for i, folded := range x.folded {
		if !strings.Contains(folded, needle) {
			continue
		}
		out = append(out, x.entries[i])
		if len(out) == limit {
			break
		}
	}
	return out
}

// NearestMatch scans the table in order and returns the commune with the
// smallest edit distance to input after folding. Ties keep the earlier name.
func (x *Index) NearestMatch(input string) (Match, bool) {
	input = strings.TrimSpace(input)
	if x == nil || len(x.entries) == 0 || input == "" {
		return Match{}, false
	}

	needle := Normalize(input)
	best := Match{Distance: -1}
	for i, folded := range x.folded {
		d := levenshtein.Distance(needle, folded)
		if best.Distance < 0 || d < best.Distance {
			best = Match{Entry: x.entries[i], Distance: d}
		}
		if d == 0 {
			break
		}
	}
	return best, true
}

// ResolveRegion returns the region for an exact commune name.
func (x *Index) ResolveRegion(name string) (string, bool) {
	if x == nil {
		return "", false
	}
	region, ok := x.regions[name]
	return region, ok
}

// Contains reports whether name is exactly a commune in the table.
func (x *Index) Contains(name string) bool {
	_, ok := x.ResolveRegion(name)
	return ok
}

// Autocorrect resolves what a user left in the commune field. A nearest match
// within AutocorrectThreshold replaces the input; anything further keeps the
// raw text, which is then valid only when it names a commune exactly.
func (x *Index) Autocorrect(input string) Correction {
	if strings.TrimSpace(input) == "" {
		return Correction{Value: input}
	}

	if m, ok := x.NearestMatch(input); ok && m.Distance <= AutocorrectThreshold {
		return Correction{
			Value:     m.Name,
			Region:    m.Region,
			Distance:  m.Distance,
			Corrected: m.Name != input,
			Valid:     true,
		}
	}

	region, ok := x.ResolveRegion(input)
	return Correction{Value: input, Region: region, Distance: -1, Valid: ok}
}
