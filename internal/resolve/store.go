package resolve

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/soundops/dawlink/core/logx"
	"github.com/soundops/dawlink/internal/params"
)

// indexFile is the on-disk shape of one category index.
type indexFile struct {
	Items []Entry `json:"items"`
}

// paramsFile is the on-disk shape of a per-device parameter dump.
type paramsFile struct {
	Name       string        `json:"name"`
	URI        string        `json:"uri"`
	Parameters []params.Spec `json:"parameters"`
}

// Store owns the on-disk cache layout: one JSON index per category under
// the user root, plus per-device parameter dumps, over an optional
// read-only seed root. All writes go through a temp file and an atomic
// rename, so an interrupted scan never corrupts an index. Writers within a
// process serialize on the store mutex; concurrent writers across processes
// for the same category are not supported.
type Store struct {
	mu   sync.Mutex
	root string
	seed string
}

// NewStore opens a store rooted at root with an optional seed layer.
func NewStore(root, seed string) (*Store, error) {
	if root == "" {
		return nil, fmt.Errorf("resolve: cache root is required")
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("resolve: create cache root: %w", err)
	}
	return &Store{root: root, seed: seed}, nil
}

// Root returns the writable cache root.
func (s *Store) Root() string { return s.root }

func categoryFile(root, category string) string {
	return filepath.Join(root, "browser_"+category+".json")
}

func paramsPath(root, device string) string {
	return filepath.Join(root, "params_"+SanitizeName(device)+".json")
}

// LoadCategory reads one category index from a single layer. A missing file
// is an empty index, not an error.
func loadCategory(root, category string) ([]Entry, error) {
	if root == "" {
		return nil, nil
	}
	b, err := os.ReadFile(categoryFile(root, category))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var f indexFile
	if err := json.Unmarshal(b, &f); err != nil {
		return nil, fmt.Errorf("resolve: parse %s index: %w", category, err)
	}
	return f.Items, nil
}

// Snapshot builds an immutable index over the given categories (all known
// categories when none are named). Layer precedence is user over seed.
func (s *Store) Snapshot(categories ...string) (*Index, error) {
	if len(categories) == 0 {
		categories = Categories
	}
	var user, seed []Entry
	for _, cat := range categories {
		u, err := loadCategory(s.root, cat)
		if err != nil {
			return nil, err
		}
		user = append(user, u...)
		f, err := loadCategory(s.seed, cat)
		if err != nil {
			// A broken seed layer degrades to user-only resolution.
			logx.Log.Warn().Err(err).Str("category", cat).Msg("skipping seed cache layer")
			continue
		}
		seed = append(seed, f...)
	}
	return NewIndex(user, seed), nil
}

// Merge folds incoming entries into a category index, overwriting by URI
// and merging parameter metadata, then atomically replaces the file.
func (s *Store) Merge(category string, incoming []Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, err := loadCategory(s.root, category)
	if err != nil {
		// A corrupt index is rebuilt rather than wedging every scan.
		logx.Log.Warn().Err(err).Str("category", category).Msg("rebuilding corrupt index")
		existing = nil
	}

	byURI := make(map[string]int, len(existing))
	for i, e := range existing {
		byURI[e.URI] = i
	}
	for _, in := range incoming {
		if in.URI == "" {
			continue
		}
		if in.Category == "" {
			in.Category = category
		}
		if i, ok := byURI[in.URI]; ok {
			prior := existing[i]
			in.Parameters = mergeParams(prior.Parameters, in.Parameters)
			if in.Path == "" {
				in.Path = prior.Path
			}
			existing[i] = in
		} else {
			byURI[in.URI] = len(existing)
			existing = append(existing, in)
		}
	}
	return s.writeJSON(categoryFile(s.root, category), indexFile{Items: existing})
}

// WriteParams stores a per-device parameter dump keyed by sanitized name.
func (s *Store) WriteParams(name, uri string, specs []params.Spec) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writeJSON(paramsPath(s.root, name), paramsFile{Name: name, URI: uri, Parameters: specs})
}

// LoadParams reads a per-device parameter dump, checking the user layer
// then the seed layer. ok is false when neither has one.
func (s *Store) LoadParams(name string) (uri string, specs []params.Spec, ok bool) {
	for _, root := range []string{s.root, s.seed} {
		if root == "" {
			continue
		}
		b, err := os.ReadFile(paramsPath(root, name))
		if err != nil {
			continue
		}
		var f paramsFile
		if json.Unmarshal(b, &f) != nil {
			continue
		}
		return f.URI, f.Parameters, true
	}
	return "", nil, false
}

// writeJSON writes v to path via a sibling temp file and an atomic rename.
// Readers see either the old complete file or the new complete file.
func (s *Store) writeJSON(path string, v any) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(append(b, '\n')); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), path)
}

// mergeParams merges parameter lists by lowercased name, preserving order
// and keeping the richest metadata available for each parameter.
func mergeParams(existing, incoming []params.Spec) []params.Spec {
	if len(incoming) == 0 {
		return existing
	}
	if len(existing) == 0 {
		return incoming
	}
	pos := make(map[string]int, len(existing))
	merged := append([]params.Spec(nil), existing...)
	for i, p := range merged {
		pos[strings.ToLower(p.Name)] = i
	}
	for _, in := range incoming {
		key := strings.ToLower(in.Name)
		i, ok := pos[key]
		if !ok {
			pos[key] = len(merged)
			merged = append(merged, in)
			continue
		}
		prior := merged[i]
		if len(in.ValueItems) == 0 {
			in.ValueItems = prior.ValueItems
			in.IsQuantized = in.IsQuantized || prior.IsQuantized
		}
		if in.UnitHint == "" {
			in.UnitHint = prior.UnitHint
		}
		if in.Min == 0 && in.Max == 0 {
			in.Min, in.Max = prior.Min, prior.Max
		}
		merged[i] = in
	}
	return merged
}
