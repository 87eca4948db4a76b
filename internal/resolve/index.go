package resolve

import (
	"fmt"
	"sort"
	"strings"
)

// Strategies recorded in a Resolution, in the order they are attempted.
const (
	StrategyExact   = "exact"
	StrategyVariant = "variant"
	StrategyFuzzy   = "fuzzy"
	StrategyNone    = "none"
)

// Candidate is one ranked fuzzy match, kept for diagnostics.
type Candidate struct {
	Entry    Entry  `json:"entry"`
	Source   Source `json:"source"`
	Distance int    `json:"distance"`
	Prefix   int    `json:"prefix"`
}

// Resolution is the outcome of one lookup. Match is nil on a miss; a miss
// still carries Diagnostics explaining what was tried.
type Resolution struct {
	Query       string      `json:"query"`
	Normalized  string      `json:"normalized"`
	Match       *Entry      `json:"match,omitempty"`
	Candidates  []Candidate `json:"candidates,omitempty"`
	Strategy    string      `json:"strategy"`
	Source      Source      `json:"source"`
	Diagnostics string      `json:"diagnostics"`
}

// Ranker orders fuzzy candidates; lower is better. The default ranks by
// edit distance ascending, common-prefix length descending, then name
// ascending. The tie-break order is deliberately swappable: it is a policy,
// not a protocol invariant.
type Ranker func(query string, a, b Candidate) bool

func defaultRanker(query string, a, b Candidate) bool {
	if a.Distance != b.Distance {
		return a.Distance < b.Distance
	}
	if a.Prefix != b.Prefix {
		return a.Prefix > b.Prefix
	}
	return NormalizeName(a.Entry.Name) < NormalizeName(b.Entry.Name)
}

type indexed struct {
	entry  Entry
	norm   string
	source Source
}

// Index is an immutable snapshot of the cache layers. Build one per
// resolution batch (or hold one and Reload on demand); the underlying files
// may be rewritten by other processes at any time, which is why lookups
// never touch disk.
type Index struct {
	entries []indexed
	byNorm  map[string][]int
	rank    Ranker
}

// NewIndex builds a snapshot from per-layer entry lists. Later layers are
// shadowed by earlier ones per URI (user cache first, then seed cache).
func NewIndex(user, seed []Entry) *Index {
	idx := &Index{byNorm: make(map[string][]int), rank: defaultRanker}
	seen := make(map[string]bool)
	add := func(entries []Entry, src Source) {
		for _, e := range entries {
			if e.URI != "" && seen[e.URI] {
				continue
			}
			if e.URI != "" {
				seen[e.URI] = true
			}
			i := len(idx.entries)
			norm := StripNoise(NormalizeName(e.Name))
			idx.entries = append(idx.entries, indexed{entry: e, norm: norm, source: src})
			idx.byNorm[norm] = append(idx.byNorm[norm], i)
		}
	}
	add(user, SourceUserCache)
	add(seed, SourceFSCache)
	return idx
}

// SetRanker replaces the fuzzy tie-break policy.
func (x *Index) SetRanker(r Ranker) {
	if r != nil {
		x.rank = r
	}
}

// Len reports the number of indexed entries.
func (x *Index) Len() int { return len(x.entries) }

// Resolve runs the full strategy ladder for q: exact match on the
// noise-stripped name, then exact match on progressively shortened
// variants, then ranked fuzzy containment. It never errors: an empty
// Resolution with diagnostics is the normal shape of a miss.
func (x *Index) Resolve(q Query) Resolution {
	norm := StripNoise(NormalizeName(q.RawName))
	res := Resolution{Query: q.RawName, Normalized: norm, Strategy: StrategyNone, Source: SourceNone}
	if norm == "" {
		res.Diagnostics = "empty query after normalization"
		return res
	}

	// Exact, then variant cleaning.
	for vi, variant := range Variants(norm) {
		if hit, src, ok := x.exact(variant, q.Category); ok {
			res.Match = &hit
			res.Source = src
			if vi == 0 {
				res.Strategy = StrategyExact
				res.Diagnostics = fmt.Sprintf("exact match for %q in %s", variant, src)
			} else {
				res.Strategy = StrategyVariant
				res.Diagnostics = fmt.Sprintf("variant match: %q reduced to %q (%s)", norm, variant, src)
			}
			return res
		}
	}

	// Fuzzy containment, ranked.
	cands := x.fuzzy(norm, q.Category)
	if len(cands) > 0 {
		best := cands[0]
		res.Match = &best.Entry
		res.Candidates = cands
		res.Strategy = StrategyFuzzy
		res.Source = best.Source
		res.Diagnostics = fmt.Sprintf("fuzzy match %q for %q (distance %d, %d candidate(s)); a live browser search may rank differently",
			best.Entry.Name, q.RawName, best.Distance, len(cands))
		return res
	}

	res.Diagnostics = fmt.Sprintf("no cached entry matches %q (normalized %q, category %s); a live browser scan would refresh the index",
		q.RawName, norm, categoryLabel(q.Category))
	return res
}

func (x *Index) exact(norm, category string) (Entry, Source, bool) {
	for _, i := range x.byNorm[norm] {
		e := x.entries[i]
		if categoryOK(e.entry, category) {
			return e.entry, e.source, true
		}
	}
	return Entry{}, SourceNone, false
}

func (x *Index) fuzzy(norm, category string) []Candidate {
	var cands []Candidate
	for _, e := range x.entries {
		if !categoryOK(e.entry, category) {
			continue
		}
		if !strings.Contains(e.norm, norm) && !strings.Contains(norm, e.norm) {
			continue
		}
		cands = append(cands, Candidate{
			Entry:    e.entry,
			Source:   e.source,
			Distance: levenshtein(norm, e.norm),
			Prefix:   commonPrefixLen(norm, e.norm),
		})
	}
	sort.SliceStable(cands, func(i, j int) bool { return x.rank(norm, cands[i], cands[j]) })
	return cands
}

// categoryOK matches the Python cache semantics: an entry with no recorded
// category matches any requested one.
func categoryOK(e Entry, category string) bool {
	return category == "" || e.Category == "" || e.Category == category
}

func categoryLabel(category string) string {
	if category == "" {
		return "all"
	}
	return category
}
