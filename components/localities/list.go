package localities

import (
	"bufio"
	"embed"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
)

//go:embed data/comunas.txt
var dataFS embed.FS

const defaultListPath = "data/comunas.txt"

// Entry is a commune and the region it belongs to.
type Entry struct {
	Name   string `json:"name"`
	Region string `json:"region"`
}

var (
	defaultOnce    sync.Once
	defaultEntries []Entry
	defaultErr     error
)

// DefaultEntries returns a copy of the embedded commune table sorted by name.
func DefaultEntries() ([]Entry, error) {
	defaultOnce.Do(func() {
		f, err := dataFS.Open(defaultListPath)
		if err != nil {
			defaultErr = err
			return
		}
		defer func() { _ = f.Close() }()

		entries, err := LoadEntries(f)
		if err != nil {
			defaultErr = err
			return
		}
		defaultEntries = entries
	})

	if defaultErr != nil {
		return nil, defaultErr
	}
	return append([]Entry{}, defaultEntries...), nil
}

// LoadEntries reads "Region|Commune" lines. Blank lines and lines starting with
// '#' are skipped; a repeated commune keeps its first region.
func LoadEntries(r io.Reader) ([]Entry, error) {
	if r == nil {
		return nil, fmt.Errorf("localities: missing reader")
	}

	scanner := bufio.NewScanner(r)
	entries := make([]Entry, 0, 360)
	seen := map[string]struct{}{}
	lineNo := 0

	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		region, name, ok := strings.Cut(line, "|")
		region = strings.TrimSpace(region)
		name = strings.TrimSpace(name)
		if !ok || region == "" || name == "" {
			return nil, fmt.Errorf("localities: line %d: expected Region|Commune, got %q", lineNo, line)
		}
		if _, dup := seen[name]; dup {
			continue
		}
		seen[name] = struct{}{}
		entries = append(entries, Entry{Name: name, Region: region})
	}

	if err := scanner.Err(); err != nil {
		return nil, err
	}

	sortEntries(entries)
	return entries, nil
}

func sortEntries(entries []Entry) {
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name < entries[j].Name })
}
