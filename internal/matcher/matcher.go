// Package matcher links a ROM file to a catalog entry by fuzzy title search
// confirmed with the ROM's content hash.
package matcher

import (
	"slices"
	"strings"

	"romverify/internal/catalog"
	"romverify/internal/textutil"
)

// DefaultExcludedMarkers flag catalog titles that describe add-on sets or
// unofficial releases rather than the base game.
var DefaultExcludedMarkers = []string{"[Subset", "~Hack~", "~Homebrew~"}

// Matcher holds the tuning for Match.
type Matcher struct {
	// Threshold is the minimum similarity a candidate needs. Equal scores pass.
	Threshold float64
	// TopN bounds how many ranked candidates are considered.
	TopN int
	// ExcludedMarkers are case-sensitive title substrings that disqualify a
	// candidate.
	ExcludedMarkers []string
}

// Default returns the matcher used for multi-system scans.
func Default() Matcher {
	return Matcher{
		Threshold:       0.4,
		TopN:            5,
		ExcludedMarkers: slices.Clone(DefaultExcludedMarkers),
	}
}

// Legacy returns the permissive single-candidate matcher.
func Legacy() Matcher {
	return Matcher{Threshold: 0.1, TopN: 1}
}

// Result is the outcome of Match. Entry points into the slice passed to Match.
type Result struct {
	Index     int
	Entry     *catalog.Entry
	Score     float64
	Confirmed bool
}

// Unmatched is the Result for a ROM no candidate survived for.
var Unmatched = Result{Index: -1}

// Matched reports whether an entry was selected.
func (r Result) Matched() bool {
	return r.Index >= 0 && r.Entry != nil
}

// Match ranks entries by title similarity to fileName and returns the first
// surviving candidate, confirmed when hash is one of its hashes. An empty hash
// can still match by name but is never confirmed.
func (m Matcher) Match(fileName, hash string, entries []catalog.Entry) Result {
	if len(entries) == 0 {
		return Unmatched
	}
	query := textutil.NormalizeQuery(fileName)
	if query == "" {
		return Unmatched
	}

	titles := make([]string, len(entries))
	for i, e := range entries {
		titles[i] = textutil.NormalizeTitle(e.Title)
	}

	for _, candidate := range textutil.BestN(query, titles, m.topN()) {
		if candidate.Score < m.Threshold {
			continue
		}
		title := entries[candidate.Index].Title
		if m.excluded(title) {
			continue
		}
		idx := resolveTitle(entries, title)
		if idx < 0 {
			continue
		}
		entry := &entries[idx]
		return Result{
			Index:     idx,
			Entry:     entry,
			Score:     candidate.Score,
			Confirmed: entry.HasHash(hash),
		}
	}
	return Unmatched
}

func (m Matcher) topN() int {
	if m.TopN <= 0 {
		return 1
	}
	return m.TopN
}

func (m Matcher) excluded(title string) bool {
	for _, marker := range m.ExcludedMarkers {
		if marker != "" && strings.Contains(title, marker) {
			return true
		}
	}
	return false
}

// resolveTitle returns the first entry whose title equals title.
func resolveTitle(entries []catalog.Entry, title string) int {
	return slices.IndexFunc(entries, func(e catalog.Entry) bool {
		return e.Title == title
	})
}
