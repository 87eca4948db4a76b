// Package resolve maps fuzzy human-supplied names (devices, samples,
// presets) to canonical host identifiers using layered on-disk indexes.
// Resolution is pure over an in-memory snapshot; a miss is a normal result,
// never an error. Nothing in this package contacts the host, which is what
// makes offline planning possible.
package resolve

import (
	"strings"

	"github.com/soundops/dawlink/internal/params"
)

// Browser categories mirrored from the host's browser roots.
const (
	CategoryInstruments  = "instruments"
	CategorySounds       = "sounds"
	CategoryDrums        = "drums"
	CategoryAudioEffects = "audio_effects"
	CategoryMIDIEffects  = "midi_effects"
	CategorySamples      = "samples"
	CategoryPresets      = "presets"
)

// Categories lists every known index category, in scan order.
var Categories = []string{
	CategoryInstruments, CategorySounds, CategoryDrums,
	CategoryAudioEffects, CategoryMIDIEffects, CategorySamples,
	CategoryPresets,
}

// Entry is one browsable host resource. URI is the canonical, host-stable
// identifier; Name is the display string fuzzy matching runs against.
// Entries are immutable once written; re-scans overwrite by URI.
type Entry struct {
	Name       string        `json:"name"`
	URI        string        `json:"uri"`
	Category   string        `json:"category,omitempty"`
	Path       string        `json:"path,omitempty"`
	Parameters []params.Spec `json:"parameters,omitempty"`
}

// Source names the cache layer a resolution came from.
type Source string

const (
	// SourceUserCache is the read-write cache owned by this install.
	SourceUserCache Source = "user_cache"
	// SourceFSCache is the optional read-only seed shipped alongside the
	// binary (factory browser snapshots).
	SourceFSCache Source = "fs_cache"
	// SourceNone means no layer produced a match.
	SourceNone Source = "none"
)

// Query is one lookup request. Constructed per call, never persisted.
type Query struct {
	RawName  string
	Category string // empty searches all categories
}

// SanitizeName flattens a display name into a filesystem-safe token for
// per-device parameter dump files.
func SanitizeName(name string) string {
	var b strings.Builder
	lastUnderscore := true
	for _, r := range strings.ToLower(strings.TrimSpace(name)) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			lastUnderscore = false
		default:
			if !lastUnderscore {
				b.WriteByte('_')
				lastUnderscore = true
			}
		}
	}
	return strings.TrimSuffix(b.String(), "_")
}
