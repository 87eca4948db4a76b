package handlers

import (
	"github.com/soundops/dawlink/internal/host"
	"github.com/soundops/dawlink/internal/params"
	"github.com/soundops/dawlink/internal/wire"
)

var volumeSpec = params.Spec{Name: "Volume", Min: 0, Max: 1}
var panSpec = params.Spec{Name: "Pan", Min: -1, Max: 1}
var sendSpec = params.Spec{Name: "Send", Min: 0, Max: 1}

var trackDefs = []def{
	{
		name:     "create_midi_track",
		mutating: true,
		fn:       func(s *Service, p map[string]any) (any, error) { return createTrack(s, p, true) },
	},
	{
		name:     "create_audio_track",
		mutating: true,
		fn:       func(s *Service, p map[string]any) (any, error) { return createTrack(s, p, false) },
	},
	{
		name:     "delete_track",
		mutating: true,
		required: []string{"track_index"},
		fn: func(s *Service, p map[string]any) (any, error) {
			i, err := intArg(p, "track_index", -1)
			if err != nil {
				return nil, err
			}
			if err := s.Session.RemoveTrack(i); err != nil {
				return nil, err
			}
			return map[string]any{"deleted": i, "track_count": len(s.Session.Tracks)}, nil
		},
	},
	{
		name:     "set_track_name",
		mutating: true,
		required: []string{"track_index", "name"},
		fn: func(s *Service, p map[string]any) (any, error) {
			t, i, err := trackFromParams(s, p)
			if err != nil {
				return nil, err
			}
			name, err := strArg(p, "name", "")
			if err != nil {
				return nil, err
			}
			if name == "" {
				return nil, wire.InvalidParam("name", "track name must not be empty")
			}
			t.Name = name
			return map[string]any{"track_index": i, "name": name}, nil
		},
	},
	{
		name: "get_track_info",
		required: []string{"track_index"},
		fn: func(s *Service, p map[string]any) (any, error) {
			t, i, err := trackFromParams(s, p)
			if err != nil {
				return nil, err
			}
			devices := make([]map[string]any, len(t.Devices))
			for di, d := range t.Devices {
				devices[di] = map[string]any{"index": di, "name": d.Name, "uri": d.URI}
			}
			return map[string]any{
				"track_index": i,
				"name":        t.Name,
				"is_midi":     t.IsMIDI,
				"volume":      t.Volume,
				"panning":     t.Pan,
				"sends":       t.Sends,
				"mute":        t.Mute,
				"solo":        t.Solo,
				"arm":         t.Arm,
				"devices":     devices,
			}, nil
		},
	},
	{
		name:     "set_track_volume",
		mutating: true,
		required: []string{"track_index", "volume"},
		fn: func(s *Service, p map[string]any) (any, error) {
			t, i, err := trackFromParams(s, p)
			if err != nil {
				return nil, err
			}
			res, err := applyValue(volumeSpec, p["volume"])
			if err != nil {
				return nil, err
			}
			t.Volume = res.Value
			return map[string]any{"track_index": i, "volume": res.Value, "clamped": res.Clamped, "requested": res.Requested}, nil
		},
	},
	{
		name:     "set_track_panning",
		mutating: true,
		required: []string{"track_index", "panning"},
		fn: func(s *Service, p map[string]any) (any, error) {
			t, i, err := trackFromParams(s, p)
			if err != nil {
				return nil, err
			}
			res, err := applyValue(panSpec, p["panning"])
			if err != nil {
				return nil, err
			}
			t.Pan = res.Value
			return map[string]any{"track_index": i, "panning": res.Value, "clamped": res.Clamped}, nil
		},
	},
	{
		name:     "set_send_level",
		mutating: true,
		required: []string{"track_index", "send_index", "level"},
		fn: func(s *Service, p map[string]any) (any, error) {
			t, i, err := trackFromParams(s, p)
			if err != nil {
				return nil, err
			}
			si, err := intArg(p, "send_index", -1)
			if err != nil {
				return nil, err
			}
			if si < 0 {
				return nil, wire.InvalidParam("send_index", "send index must be >= 0")
			}
			for len(t.Sends) <= si {
				t.Sends = append(t.Sends, 0)
			}
			res, err := applyValue(sendSpec, p["level"])
			if err != nil {
				return nil, err
			}
			t.Sends[si] = res.Value
			return map[string]any{"track_index": i, "send_index": si, "level": res.Value, "clamped": res.Clamped}, nil
		},
	},
	{
		name:     "set_track_mute",
		mutating: true,
		required: []string{"track_index", "mute"},
		fn: func(s *Service, p map[string]any) (any, error) {
			return setTrackBool(s, p, "mute")
		},
	},
	{
		name:     "set_track_solo",
		mutating: true,
		required: []string{"track_index", "solo"},
		fn: func(s *Service, p map[string]any) (any, error) {
			return setTrackBool(s, p, "solo")
		},
	},
	{
		name:     "set_track_arm",
		mutating: true,
		required: []string{"track_index", "arm"},
		fn: func(s *Service, p map[string]any) (any, error) {
			return setTrackBool(s, p, "arm")
		},
	},
}

func createTrack(s *Service, p map[string]any, midi bool) (any, error) {
	index, err := intArg(p, "index", -1)
	if err != nil {
		return nil, err
	}
	at := s.Session.InsertTrack(index, midi)
	t := s.Session.Tracks[at]
	return map[string]any{"track_index": at, "name": t.Name, "is_midi": midi}, nil
}

func trackFromParams(s *Service, p map[string]any) (*host.Track, int, error) {
	i, err := intArg(p, "track_index", -1)
	if err != nil {
		return nil, 0, err
	}
	t, err := s.Session.TrackAt(i)
	if err != nil {
		return nil, 0, err
	}
	return t, i, nil
}

func setTrackBool(s *Service, p map[string]any, field string) (any, error) {
	t, i, err := trackFromParams(s, p)
	if err != nil {
		return nil, err
	}
	v, err := boolArg(p, field, false)
	if err != nil {
		return nil, err
	}
	switch field {
	case "mute":
		t.Mute = v
	case "solo":
		t.Solo = v
	case "arm":
		t.Arm = v
	}
	return map[string]any{"track_index": i, field: v}, nil
}

// applyValue runs the human-unit pipeline: parse the raw wire value, then
// apply it to the spec with clamping and quantization.
func applyValue(spec params.Spec, raw any) (params.Result, error) {
	v, err := params.Parse(raw)
	if err != nil {
		return params.Result{}, err
	}
	return params.Apply(spec, v)
}
