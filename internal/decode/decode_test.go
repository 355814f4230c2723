package decode

import (
	"testing"

	"github.com/clipforge/exporter/internal/demux"
	"github.com/clipforge/exporter/internal/errors"
)

func TestDecodeWithoutConfigureFails(t *testing.T) {
	d := New(4)
	err := d.Decode(demux.EncodedChunk{FrameIdx: 0})
	if err == nil {
		t.Fatal("expected error decoding before Configure")
	}
	if !errors.IsKind(err, errors.KindDecoder) {
		t.Errorf("expected KindDecoder, got %v", err)
	}
}

func TestCloseIsIdempotentAndReleasesWaiters(t *testing.T) {
	d := New(1)
	d.Close()
	d.Close()

	err := d.Decode(demux.EncodedChunk{FrameIdx: 0})
	if !errors.IsCancelled(err) {
		t.Errorf("expected cancelled error after Close, got %v", err)
	}
}

func TestStatsEmptyDecoder(t *testing.T) {
	d := New(4)
	s := d.Stats()
	if s.FramesDecoded != 0 || s.IsHWAccelerated {
		t.Errorf("expected zero stats for fresh decoder, got %+v", s)
	}
}

func TestLastErrorLatchedAfterFailure(t *testing.T) {
	d := New(1)
	d.failAll(errors.New(errors.KindDecoder, "boom"))
	if d.LastError() == nil {
		t.Error("expected LastError to be latched")
	}
	err := d.Decode(demux.EncodedChunk{FrameIdx: 0})
	if err == nil {
		t.Error("expected Decode to surface the latched error")
	}
}
