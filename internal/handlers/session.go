package handlers

import (
	"github.com/soundops/dawlink/internal/wire"
)

var sessionDefs []def

// Assigned in init to break the initialization cycle between sessionDefs
// and allDefs (list_commands closes over allDefs).
func init() {
	sessionDefs = []def{
		{
			name: "get_session_info",
			fn: func(s *Service, p map[string]any) (any, error) {
				sess := s.Session
				return map[string]any{
					"tempo":                 sess.Tempo,
					"signature_numerator":   sess.SigNumerator,
					"signature_denominator": sess.SigDenom,
					"is_playing":            sess.Playing,
					"track_count":           len(sess.Tracks),
					"version":               s.Version,
				}, nil
			},
		},
		{
			name:     "set_tempo",
			mutating: true,
			required: []string{"tempo"},
			fn: func(s *Service, p map[string]any) (any, error) {
				tempo, err := floatArg(p, "tempo", 0)
				if err != nil {
					return nil, err
				}
				if tempo < 20 || tempo > 999 {
					return nil, wire.InvalidParam("tempo", "tempo %g outside 20..999 BPM", tempo)
				}
				s.Session.Tempo = tempo
				return map[string]any{"tempo": tempo}, nil
			},
		},
		{
			name:     "set_time_signature",
			mutating: true,
			required: []string{"numerator", "denominator"},
			fn: func(s *Service, p map[string]any) (any, error) {
				num, err := intArg(p, "numerator", 4)
				if err != nil {
					return nil, err
				}
				den, err := intArg(p, "denominator", 4)
				if err != nil {
					return nil, err
				}
				if num < 1 || num > 99 {
					return nil, wire.InvalidParam("numerator", "numerator %d outside 1..99", num)
				}
				switch den {
				case 1, 2, 4, 8, 16:
				default:
					return nil, wire.InvalidParam("denominator", "denominator %d must be 1, 2, 4, 8 or 16", den)
				}
				s.Session.SigNumerator = num
				s.Session.SigDenom = den
				return map[string]any{"numerator": num, "denominator": den}, nil
			},
		},
		{
			name:     "start_playback",
			mutating: true,
			fn: func(s *Service, p map[string]any) (any, error) {
				s.Session.Playing = true
				return map[string]any{"playing": true}, nil
			},
		},
		{
			name:     "stop_playback",
			mutating: true,
			fn: func(s *Service, p map[string]any) (any, error) {
				s.Session.Playing = false
				return map[string]any{"playing": false}, nil
			},
		},
		{
			name: "list_commands",
			fn: func(s *Service, p map[string]any) (any, error) {
				names := make([]string, 0, len(allDefs()))
				mutating := map[string]bool{}
				for _, d := range allDefs() {
					names = append(names, d.name)
					mutating[d.name] = d.mutating
				}
				return map[string]any{"commands": names, "mutating": mutating}, nil
			},
		},
	}
}
