package trim

import (
	"testing"

	"github.com/clipforge/exporter/internal/config"
)

func TestMapNoTrims(t *testing.T) {
	m := NewMapper(nil)
	for _, x := range []int64{0, 100, 9999} {
		if got := m.MapMS(x); got != x {
			t.Errorf("MapMS(%d) = %d, want %d", x, got, x)
		}
	}
}

func TestMapSingleTrimAtZero(t *testing.T) {
	// "if a trim has start = 0, effective 0 maps to trim.end"
	m := NewMapper([]config.TrimRegion{{StartMS: 0, EndMS: 2000}})
	if got := m.MapMS(0); got != 2000 {
		t.Errorf("MapMS(0) = %d, want 2000", got)
	}
}

func TestMapTwoTrimsPiecewise(t *testing.T) {
	// trims [(a,b),(c,d)] with b <= c:
	//   map(x) = x                      for x < a
	//          = x + (b-a)              for a <= x < c-(b-a)
	//          = x + (b-a) + (d-c)      thereafter
	a, b := int64(1000), int64(2000)
	c, d := int64(5000), int64(6000)
	m := NewMapper([]config.TrimRegion{{StartMS: a, EndMS: b}, {StartMS: c, EndMS: d}})

	cases := []struct {
		x    int64
		want int64
	}{
		{500, 500},                     // x < a
		{999, 999},                     // x < a
		{1000, 2000},                   // x == a: first region applies
		{3000, 3000 + (b - a)},         // a <= x < c-(b-a) == 4000
		{3999, 3999 + (b - a)},         // just under the second boundary
		{4000, 4000 + (b - a) + (d - c)}, // x == c-(b-a): second region applies
		{5000, 5000 + (b - a) + (d - c)},
	}

	for _, tc := range cases {
		if got := m.MapMS(tc.x); got != tc.want {
			t.Errorf("MapMS(%d) = %d, want %d", tc.x, got, tc.want)
		}
	}
}

func TestMapSortsUnsortedInput(t *testing.T) {
	m := NewMapper([]config.TrimRegion{
		{StartMS: 5000, EndMS: 6000},
		{StartMS: 1000, EndMS: 2000},
	})
	// Same as the sorted two-trim case at x=3000.
	if got := m.MapMS(3000); got != 3000+1000 {
		t.Errorf("MapMS(3000) = %d, want %d", got, 4000)
	}
}

func TestEffectiveDuration(t *testing.T) {
	m := NewMapper([]config.TrimRegion{
		{StartMS: 1000, EndMS: 2000},
		{StartMS: 5000, EndMS: 6000},
	})
	if got := m.EffectiveDurationMS(10000); got != 8000 {
		t.Errorf("EffectiveDurationMS(10000) = %d, want 8000", got)
	}
}

func TestEffectiveDurationNeverNegative(t *testing.T) {
	m := NewMapper([]config.TrimRegion{{StartMS: 0, EndMS: 10000}})
	if got := m.EffectiveDurationMS(5000); got != 0 {
		t.Errorf("EffectiveDurationMS should floor at 0, got %d", got)
	}
}

func TestMapMicroseconds(t *testing.T) {
	m := NewMapper([]config.TrimRegion{{StartMS: 2000, EndMS: 4000}})
	// effective 1_000_000us == 1000ms < trim start, passthrough.
	if got := m.Map(1_000_000); got != 1_000_000 {
		t.Errorf("Map(1_000_000) = %d, want 1_000_000", got)
	}
	// effective 2_000_000us == 2000ms, trim applies: +2000ms.
	if got := m.Map(2_000_000); got != 4_000_000 {
		t.Errorf("Map(2_000_000) = %d, want 4_000_000", got)
	}
}
