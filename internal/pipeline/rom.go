package pipeline

import (
	"romverify/internal/catalog"
	"romverify/internal/system"
)

// Rom is the per-file identification record. It is filled once by Process
// and not modified afterwards.
type Rom struct {
	Path     string
	FileName string
	// System is Unknown when the file was not recognized.
	System system.System
	// Hash is empty when hashing failed or was skipped.
	Hash    string
	HashErr error
	// MatchIndex indexes the Entries of the System's catalog; -1 means no
	// match.
	MatchIndex int
	Confirmed  bool
	Score      float64
	// Note explains why processing stopped early, if it did.
	Note string
}

// Matched reports whether a catalog entry was selected.
func (r Rom) Matched() bool { return r.MatchIndex >= 0 }

// Entry resolves the matched entry in set.
func (r Rom) Entry(set catalog.Set) *catalog.Entry {
	if !r.Matched() {
		return nil
	}
	cat, ok := set.Get(r.System)
	if !ok {
		return nil
	}
	return cat.Entry(r.MatchIndex)
}

// Result is the reportable outcome for one input path.
type Result struct {
	FileName     string        `json:"file_name"`
	Path         string        `json:"path"`
	System       system.System `json:"system,omitempty"`
	MatchedTitle string        `json:"matched_title,omitempty"`
	MatchedID    int           `json:"matched_id,omitempty"`
	Score        float64       `json:"score,omitempty"`
	Confirmed    bool          `json:"confirmed"`
	Hash         string        `json:"hash,omitempty"`
	Error        string        `json:"error,omitempty"`
	Note         string        `json:"note,omitempty"`
}

// Matched reports whether a catalog title was linked.
func (r Result) Matched() bool { return r.MatchedTitle != "" }

// Summary counts results by how far identification got.
type Summary struct {
	Total      int `json:"total"`
	Classified int `json:"classified"`
	Hashed     int `json:"hashed"`
	Matched    int `json:"matched"`
	Confirmed  int `json:"confirmed"`
}

// Summarize tallies results.
func Summarize(results []Result) Summary {
	s := Summary{Total: len(results)}
	for _, r := range results {
		if r.System.Valid() {
			s.Classified++
		}
		if r.Hash != "" {
			s.Hashed++
		}
		if r.Matched() {
			s.Matched++
		}
		if r.Confirmed {
			s.Confirmed++
		}
	}
	return s
}
