package host

import (
	"testing"

	"github.com/soundops/dawlink/internal/params"
	"github.com/soundops/dawlink/internal/wire"
)

func TestTrackAtOutOfRange(t *testing.T) {
	s := NewSession()
	s.InsertTrack(-1, true)

	if _, err := s.TrackAt(0); err != nil {
		t.Fatalf("TrackAt(0): %v", err)
	}
	for _, i := range []int{-1, 1, 99} {
		_, err := s.TrackAt(i)
		if !wire.IsKind(err, wire.KindHostState) {
			t.Fatalf("TrackAt(%d): got %v, want host_state", i, err)
		}
	}
}

func TestInsertTrackAtIndex(t *testing.T) {
	s := NewSession()
	s.InsertTrack(-1, false)
	s.InsertTrack(-1, false)
	at := s.InsertTrack(1, true)
	if at != 1 {
		t.Fatalf("InsertTrack(1) placed at %d", at)
	}
	if !s.Tracks[1].IsMIDI {
		t.Fatal("inserted track is not MIDI")
	}
	if len(s.Tracks) != 3 {
		t.Fatalf("track count = %d, want 3", len(s.Tracks))
	}
}

func TestRemoveTrack(t *testing.T) {
	s := NewSession()
	s.InsertTrack(-1, true)
	s.InsertTrack(-1, false)
	if err := s.RemoveTrack(0); err != nil {
		t.Fatalf("RemoveTrack: %v", err)
	}
	if len(s.Tracks) != 1 || s.Tracks[0].IsMIDI {
		t.Fatal("wrong track removed")
	}
	if err := s.RemoveTrack(5); !wire.IsKind(err, wire.KindHostState) {
		t.Fatalf("RemoveTrack(5): got %v, want host_state", err)
	}
}

func TestParamByRef(t *testing.T) {
	d := &Device{
		Name: "EQ Eight",
		Params: []*Param{
			{Spec: params.Spec{Name: "1 Frequency A", Min: 0, Max: 1}},
			{Spec: params.Spec{Name: "1 Gain A", Min: 0, Max: 1}},
		},
	}

	p, err := d.ParamByRef(float64(1))
	if err != nil || p.Spec.Name != "1 Gain A" {
		t.Fatalf("ParamByRef(1): %v %v", p, err)
	}
	p, err = d.ParamByRef("1 gain a")
	if err != nil || p.Spec.Name != "1 Gain A" {
		t.Fatalf("ParamByRef by name: %v %v", p, err)
	}
	if _, err := d.ParamByRef("Threshold"); !wire.IsKind(err, wire.KindHostState) {
		t.Fatalf("unknown name: got %v, want host_state", err)
	}
	if _, err := d.ParamByRef(true); !wire.IsKind(err, wire.KindInvalidParams) {
		t.Fatalf("bad ref type: got %v, want invalid_params", err)
	}
}
