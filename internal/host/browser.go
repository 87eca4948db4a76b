package host

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/soundops/dawlink/internal/params"
)

// LoadBrowserFile reads a browser fixture: a JSON array of browser items.
// The daemon serves it in place of the built-in set, which lets deployments
// mirror their actual library.
func LoadBrowserFile(path string) ([]BrowserItem, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var items []BrowserItem
	if err := json.Unmarshal(b, &items); err != nil {
		return nil, fmt.Errorf("host: parse browser file %s: %w", path, err)
	}
	for i := range items {
		if items[i].URI == "" {
			return nil, fmt.Errorf("host: browser item %d (%q) has no uri", i, items[i].Name)
		}
	}
	return items, nil
}

// StockBrowser returns the built-in browser contents: a small library of
// devices and samples covering every parameter shape the normalizer handles.
func StockBrowser() []BrowserItem {
	gain := func(name string) params.Spec {
		return params.Spec{Name: name, Min: -15, Max: 15, UnitHint: params.UnitDB}
	}
	toggle := func(name string) params.Spec {
		return params.Spec{Name: name, Min: 0, Max: 1, IsQuantized: true, ValueItems: []string{"Off", "On"}}
	}
	// Frequency knobs are normalized controls behind a log-scaled display
	// range, so they accept "180hz" requests.
	freq := func(name string, lo, hi float64) params.Spec {
		return params.Spec{Name: name, Min: 0, Max: 1, UnitHint: params.UnitHz,
			Display: &params.Range{Lo: lo, Hi: hi}}
	}
	return []BrowserItem{
		{
			Name: "Analog", URI: "device:instrument:analog", Category: "instruments",
			Path: "Instruments/Analog", IsLoadable: true,
			Parameters: []params.Spec{
				toggle("Device On"),
				{Name: "Volume", Min: 0, Max: 1, UnitHint: params.UnitPercent},
				{Name: "Osc 1 Shape", Min: 0, Max: 3, IsQuantized: true,
					ValueItems: []string{"Sine", "Saw", "Square", "Noise"}},
				freq("Filter Freq", 20, 20000),
			},
		},
		{
			Name: "Drift", URI: "device:instrument:drift", Category: "instruments",
			Path: "Instruments/Drift", IsLoadable: true,
			Parameters: []params.Spec{
				toggle("Device On"),
				{Name: "Volume", Min: 0, Max: 1, UnitHint: params.UnitPercent},
				{Name: "Voice Mode", Min: 0, Max: 2, IsQuantized: true,
					ValueItems: []string{"Poly", "Mono", "Unison"}},
			},
		},
		{
			Name: "Reverb", URI: "device:audio_effect:reverb", Category: "audio_effects",
			Path: "Audio Effects/Reverb", IsLoadable: true,
			Parameters: []params.Spec{
				toggle("Device On"),
				{Name: "Dry/Wet", Min: 0, Max: 1, UnitHint: params.UnitPercent},
				{Name: "Decay Time", Min: 0, Max: 1, UnitHint: params.UnitRaw},
				{Name: "Size", Min: 0, Max: 1, UnitHint: params.UnitPercent},
			},
		},
		{
			Name: "EQ Eight", URI: "device:audio_effect:eq_eight", Category: "audio_effects",
			Path: "Audio Effects/EQ Eight", IsLoadable: true,
			Parameters: []params.Spec{
				toggle("Device On"),
				gain("1 Gain A"),
				freq("1 Frequency A", 10, 22000),
				{Name: "1 Filter Type A", Min: 0, Max: 5, IsQuantized: true,
					ValueItems: []string{"Low Cut", "Low Shelf", "Bell", "Notch", "High Shelf", "High Cut"}},
			},
		},
		{
			Name: "Compressor", URI: "device:audio_effect:compressor", Category: "audio_effects",
			Path: "Audio Effects/Compressor", IsLoadable: true,
			Parameters: []params.Spec{
				toggle("Device On"),
				gain("Threshold"),
				{Name: "Ratio", Min: 1, Max: 20, UnitHint: params.UnitRaw},
				gain("Output Gain"),
			},
		},
		{
			Name: "Arpeggiator", URI: "device:midi_effect:arpeggiator", Category: "midi_effects",
			Path: "MIDI Effects/Arpeggiator", IsLoadable: true,
			Parameters: []params.Spec{
				toggle("Device On"),
				{Name: "Style", Min: 0, Max: 3, IsQuantized: true,
					ValueItems: []string{"Up", "Down", "UpDown", "Random"}},
			},
		},
		{
			Name: "Kick 909", URI: "sample:drums/kick_909", Category: "drums",
			Path: "Drums/909/Kick 909.wav", IsLoadable: true,
		},
		{
			Name: "Snare 909", URI: "sample:drums/snare_909", Category: "drums",
			Path: "Drums/909/Snare 909.wav", IsLoadable: true,
		},
		{
			Name: "Hat Closed 909", URI: "sample:drums/hat_closed_909", Category: "drums",
			Path: "Drums/909/Hat Closed 909.wav", IsLoadable: true,
		},
		{
			Name: "Ambient Pad", URI: "preset:pads/ambient_pad", Category: "presets",
			Path: "Presets/Pads/Ambient Pad", IsLoadable: true,
		},
	}
}
