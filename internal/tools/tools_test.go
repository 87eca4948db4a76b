package tools

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/soundops/dawlink/internal/params"
	"github.com/soundops/dawlink/internal/resolve"
)

func newService(t *testing.T) *Service {
	t.Helper()
	store, err := resolve.NewStore(t.TempDir(), "")
	require.NoError(t, err)
	return New(nil, store, "test")
}

func TestPlanItemOffline(t *testing.T) {
	s := newService(t)
	require.NoError(t, s.store.Merge(resolve.CategoryDrums, []resolve.Entry{
		{Name: "Kick", URI: "device:kick"},
	}))

	res, err := s.PlanItem("Kick_128bpm", "")
	require.NoError(t, err)
	require.NotNil(t, res.Match)
	require.Equal(t, "device:kick", res.Match.URI)
	require.Equal(t, resolve.SourceUserCache, res.Source)

	// A miss is a normal result with diagnostics, not an error.
	res, err = s.PlanItem("Snare", "")
	require.NoError(t, err)
	require.Nil(t, res.Match)
	require.NotEmpty(t, res.Diagnostics)
}

func TestPlanItemRejectsUnknownCategory(t *testing.T) {
	s := newService(t)
	_, err := s.PlanItem("Kick", "vegetables")
	require.Error(t, err)
	require.Contains(t, err.Error(), "vegetables")
}

func TestEntriesFromResult(t *testing.T) {
	// The shape list_loadable_devices returns after a JSON round trip.
	result := map[string]any{
		"category": "drums",
		"items": []any{
			map[string]any{"name": "Kick 909", "uri": "device:kick909", "category": "drums"},
			map[string]any{"name": "Snare 909", "uri": "device:snare909", "category": "drums"},
		},
	}
	entries, err := entriesFromResult(result)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	require.Equal(t, "device:kick909", entries[0].URI)
}

func TestCacheItemsGroupsByCategory(t *testing.T) {
	s := newService(t)
	n, err := s.cacheItems(map[string]any{
		"items": []any{
			map[string]any{"name": "Kick", "uri": "device:kick", "category": "drums"},
			map[string]any{"name": "Reverb", "uri": "device:reverb", "category": "audio_effects"},
			map[string]any{"name": "Stray", "uri": "sample:stray"},
		},
	})
	require.NoError(t, err)
	require.Equal(t, 3, n)

	idx, err := s.store.Snapshot(resolve.CategoryAudioEffects)
	require.NoError(t, err)
	res := idx.Resolve(resolve.Query{RawName: "reverb"})
	require.NotNil(t, res.Match)

	// Items without a category land in the default bucket.
	idx, err = s.store.Snapshot(resolve.CategorySounds)
	require.NoError(t, err)
	require.Equal(t, 1, idx.Len())
}

func TestCacheDeviceParamsWritesDump(t *testing.T) {
	s := newService(t)
	specs := []params.Spec{
		{Name: "Device On", Min: 0, Max: 1, IsQuantized: true, ValueItems: []string{"Off", "On"}},
		{Name: "1 Gain A", Min: -15, Max: 15, UnitHint: params.UnitDB},
	}
	require.NoError(t, s.cacheDeviceParams("EQ Eight", "device:audio_effect:eq_eight",
		resolve.CategoryAudioEffects, specs))

	// The per-device dump lands on disk under the sanitized name.
	_, err := os.Stat(filepath.Join(s.store.Root(), "params_eq_eight.json"))
	require.NoError(t, err)
	uri, got, ok := s.store.LoadParams("EQ Eight")
	require.True(t, ok)
	require.Equal(t, "device:audio_effect:eq_eight", uri)
	require.Len(t, got, 2)

	// The category index picked up the parameter metadata too.
	idx, err := s.store.Snapshot(resolve.CategoryAudioEffects)
	require.NoError(t, err)
	res := idx.Resolve(resolve.Query{RawName: "eq eight"})
	require.NotNil(t, res.Match)
	require.Len(t, res.Match.Parameters, 2)
}

func TestPlanItemBackfillsParameters(t *testing.T) {
	s := newService(t)
	require.NoError(t, s.store.Merge(resolve.CategoryAudioEffects, []resolve.Entry{
		{Name: "Reverb", URI: "device:audio_effect:reverb"},
	}))
	require.NoError(t, s.store.WriteParams("Reverb", "device:audio_effect:reverb",
		[]params.Spec{{Name: "Dry/Wet", Min: 0, Max: 1, UnitHint: params.UnitPercent}}))

	res, err := s.PlanItem("reverb", "")
	require.NoError(t, err)
	require.NotNil(t, res.Match)
	require.Len(t, res.Match.Parameters, 1)
	require.Equal(t, "Dry/Wet", res.Match.Parameters[0].Name)
}

func TestDeviceParamsFromResult(t *testing.T) {
	// The shape get_device_parameters returns after a JSON round trip.
	name, uri, specs, err := deviceParamsFromResult(map[string]any{
		"device_name": "EQ Eight",
		"uri":         "device:audio_effect:eq_eight",
		"parameters": []any{
			map[string]any{"index": 0, "name": "1 Gain A", "min": -15.0, "max": 15.0,
				"unit_hint": "dB", "value": 0.0},
			map[string]any{"index": 1, "name": "1 Frequency A", "min": 0.0, "max": 1.0,
				"unit_hint": "Hz", "display": map[string]any{"lo": 10.0, "hi": 22000.0}},
		},
	})
	require.NoError(t, err)
	require.Equal(t, "EQ Eight", name)
	require.Equal(t, "device:audio_effect:eq_eight", uri)
	require.Len(t, specs, 2)
	require.NotNil(t, specs[1].Display)
	require.Equal(t, 22000.0, specs[1].Display.Hi)
}

func TestParamRef(t *testing.T) {
	require.Equal(t, float64(3), paramRef("3"))
	require.Equal(t, "Dry/Wet", paramRef("Dry/Wet"))
}
