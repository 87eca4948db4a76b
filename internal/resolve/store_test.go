package resolve

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/soundops/dawlink/internal/params"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := NewStore(t.TempDir(), "")
	require.NoError(t, err)
	return s
}

func TestMergeOverwritesByURI(t *testing.T) {
	s := newTestStore(t)

	require.NoError(t, s.Merge(CategoryDrums, []Entry{
		{Name: "Kick", URI: "device:kick"},
		{Name: "Snare", URI: "device:snare"},
	}))
	require.NoError(t, s.Merge(CategoryDrums, []Entry{
		{Name: "Kick 909", URI: "device:kick", Path: "Drums/909"},
	}))

	idx, err := s.Snapshot(CategoryDrums)
	require.NoError(t, err)
	require.Equal(t, 2, idx.Len())

	res := idx.Resolve(Query{RawName: "kick 909"})
	require.NotNil(t, res.Match)
	require.Equal(t, "device:kick", res.Match.URI)
	require.Equal(t, "Drums/909", res.Match.Path)
}

func TestMergeKeepsRichestParameters(t *testing.T) {
	s := newTestStore(t)

	rich := []params.Spec{{
		Name: "Mode", Min: 0, Max: 2, IsQuantized: true,
		ValueItems: []string{"Off", "Low", "High"},
	}}
	require.NoError(t, s.Merge(CategoryAudioEffects, []Entry{
		{Name: "Crusher", URI: "device:crusher", Parameters: rich},
	}))
	// A later shallow scan without parameter metadata must not erase it.
	require.NoError(t, s.Merge(CategoryAudioEffects, []Entry{
		{Name: "Crusher", URI: "device:crusher", Parameters: []params.Spec{{Name: "Mode"}}},
	}))

	idx, err := s.Snapshot(CategoryAudioEffects)
	require.NoError(t, err)
	res := idx.Resolve(Query{RawName: "crusher"})
	require.NotNil(t, res.Match)
	require.Len(t, res.Match.Parameters, 1)
	require.True(t, res.Match.Parameters[0].IsQuantized)
	require.Equal(t, []string{"Off", "Low", "High"}, res.Match.Parameters[0].ValueItems)
}

func TestParamsDumpRoundTrip(t *testing.T) {
	s := newTestStore(t)

	specs := []params.Spec{
		{Name: "Frequency", Min: 0, Max: 1, UnitHint: params.UnitHz},
		{Name: "Gain", Min: 0, Max: 1, UnitHint: params.UnitDB},
	}
	require.NoError(t, s.WriteParams("Auto Filter", "device:autofilter", specs))

	uri, got, ok := s.LoadParams("Auto Filter")
	require.True(t, ok)
	require.Equal(t, "device:autofilter", uri)
	require.Equal(t, specs, got)

	// The dump file is keyed by sanitized name.
	_, err := os.Stat(filepath.Join(s.Root(), "params_auto_filter.json"))
	require.NoError(t, err)

	_, _, ok = s.LoadParams("No Such Device")
	require.False(t, ok)
}

// TestAtomicWrites hammers one category with merges while readers re-parse
// the file from disk. Every observed file must be complete, valid JSON:
// either the old index or the new one, never a truncated intermediate.
func TestAtomicWrites(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.Merge(CategorySamples, []Entry{{Name: "Seed", URI: "sample:seed"}}))
	path := categoryFile(s.Root(), CategorySamples)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 50; i++ {
			_ = s.Merge(CategorySamples, []Entry{{
				Name: "Kick", URI: "sample:kick",
				Path: string(rune('a' + i%26)),
			}})
		}
	}()

	for i := 0; i < 200; i++ {
		b, err := os.ReadFile(path)
		require.NoError(t, err)
		var f indexFile
		require.NoError(t, json.Unmarshal(b, &f), "reader observed a partial write")
		require.NotEmpty(t, f.Items)
	}
	wg.Wait()
}

func TestSnapshotLayers(t *testing.T) {
	seedRoot := t.TempDir()
	seedIdx := indexFile{Items: []Entry{{Name: "Operator", URI: "device:operator", Category: CategoryInstruments}}}
	b, err := json.Marshal(seedIdx)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(categoryFile(seedRoot, CategoryInstruments), b, 0o644))

	s, err := NewStore(t.TempDir(), seedRoot)
	require.NoError(t, err)
	require.NoError(t, s.Merge(CategoryInstruments, []Entry{{Name: "Wavetable", URI: "device:wavetable"}}))

	idx, err := s.Snapshot(CategoryInstruments)
	require.NoError(t, err)

	res := idx.Resolve(Query{RawName: "operator"})
	require.NotNil(t, res.Match)
	require.Equal(t, SourceFSCache, res.Source)

	res = idx.Resolve(Query{RawName: "wavetable"})
	require.NotNil(t, res.Match)
	require.Equal(t, SourceUserCache, res.Source)
}
