package host

import (
	"fmt"
	"strings"

	"github.com/soundops/dawlink/internal/params"
	"github.com/soundops/dawlink/internal/wire"
)

// Session is the root of the host object model: transport state plus the
// track list. All access must happen on the tick loop.
type Session struct {
	Tempo        float64
	SigNumerator int
	SigDenom     int
	Playing      bool
	Tracks       []*Track
	Browser      []BrowserItem
}

// Track is one mixer strip with its device chain.
type Track struct {
	Name    string
	IsMIDI  bool
	Volume  float64 // normalized [0,1]
	Pan     float64 // [-1,1]
	Sends   []float64
	Mute    bool
	Solo    bool
	Arm     bool
	Devices []*Device
}

// Device is one loaded device instance and its parameter bank.
type Device struct {
	Name   string
	URI    string
	Params []*Param
}

// Param couples a parameter spec with its current control value.
type Param struct {
	Spec  params.Spec
	Value float64
}

// BrowserItem is one loadable resource in the host browser, the raw
// material browser scans feed into the resolution cache.
type BrowserItem struct {
	Name       string        `json:"name"`
	URI        string        `json:"uri"`
	Category   string        `json:"category"`
	Path       string        `json:"path,omitempty"`
	IsLoadable bool          `json:"is_loadable"`
	Parameters []params.Spec `json:"parameters,omitempty"`
}

// NewSession returns a session with host defaults: 120 BPM, 4/4, no tracks.
func NewSession() *Session {
	return &Session{Tempo: 120, SigNumerator: 4, SigDenom: 4}
}

// TrackAt resolves a track index with host_state semantics.
func (s *Session) TrackAt(i int) (*Track, error) {
	if i < 0 || i >= len(s.Tracks) {
		return nil, wire.Errorf(wire.KindHostState, "track index %d out of range (have %d tracks)", i, len(s.Tracks))
	}
	return s.Tracks[i], nil
}

// DeviceAt resolves a device index on a track.
func (s *Session) DeviceAt(trackIndex, deviceIndex int) (*Device, error) {
	t, err := s.TrackAt(trackIndex)
	if err != nil {
		return nil, err
	}
	if deviceIndex < 0 || deviceIndex >= len(t.Devices) {
		return nil, wire.Errorf(wire.KindHostState, "device index %d out of range on track %q (have %d devices)",
			deviceIndex, t.Name, len(t.Devices))
	}
	return t.Devices[deviceIndex], nil
}

// ParamByRef resolves a device parameter by numeric index or
// case-insensitive name, the two addressing forms the wire accepts.
func (d *Device) ParamByRef(ref any) (*Param, error) {
	switch v := ref.(type) {
	case float64:
		i := int(v)
		if i < 0 || i >= len(d.Params) {
			return nil, wire.Errorf(wire.KindHostState, "parameter index %d out of range on %q", i, d.Name)
		}
		return d.Params[i], nil
	case string:
		for _, p := range d.Params {
			if strings.EqualFold(p.Spec.Name, v) {
				return p, nil
			}
		}
		return nil, wire.Errorf(wire.KindHostState, "no parameter %q on %q (have %s)", v, d.Name, d.paramNames())
	default:
		return nil, wire.InvalidParam("parameter", "must be an index or a name, got %T", ref)
	}
}

func (d *Device) paramNames() string {
	names := ""
	for i, p := range d.Params {
		if i > 0 {
			names += ", "
		}
		names += p.Spec.Name
	}
	return names
}

// InsertTrack creates a track at index (or appends for -1) and returns its
// final position.
func (s *Session) InsertTrack(index int, midi bool) int {
	name := fmt.Sprintf("%d Audio", len(s.Tracks)+1)
	if midi {
		name = fmt.Sprintf("%d MIDI", len(s.Tracks)+1)
	}
	t := &Track{Name: name, IsMIDI: midi, Volume: 0.85}
	if index < 0 || index >= len(s.Tracks) {
		s.Tracks = append(s.Tracks, t)
		return len(s.Tracks) - 1
	}
	s.Tracks = append(s.Tracks[:index], append([]*Track{t}, s.Tracks[index:]...)...)
	return index
}

// RemoveTrack deletes the track at index.
func (s *Session) RemoveTrack(index int) error {
	if _, err := s.TrackAt(index); err != nil {
		return err
	}
	s.Tracks = append(s.Tracks[:index], s.Tracks[index+1:]...)
	return nil
}
