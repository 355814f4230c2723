// Package trim maps timestamps between the effective (trimmed) output
// timeline and the original source timeline.
package trim

import (
	"sort"

	"github.com/clipforge/exporter/internal/config"
)

// Mapper converts effective timestamps to source timestamps through a
// sorted list of half-open trim regions. A Mapper is immutable after
// construction and safe for concurrent use by multiple render workers.
type Mapper struct {
	regions []config.TrimRegion
}

// NewMapper builds a Mapper from an unsorted trim region list. The regions
// are sorted once, here, by start time.
func NewMapper(regions []config.TrimRegion) *Mapper {
	sorted := append([]config.TrimRegion(nil), regions...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].StartMS < sorted[j].StartMS })
	return &Mapper{regions: sorted}
}

// MapMS converts an effective-timeline millisecond offset to the
// corresponding source-timeline offset by walking the sorted trim list and
// adding the length of every trim region whose start lies at or before the
// running source offset.
func (m *Mapper) MapMS(effectiveMS int64) int64 {
	source := effectiveMS
	for _, r := range m.regions {
		if r.StartMS <= source {
			source += r.EndMS - r.StartMS
		} else {
			break
		}
	}
	return source
}

// Map converts an effective-timeline microsecond timestamp to a
// source-timeline microsecond timestamp.
func (m *Mapper) Map(effectiveUS int64) int64 {
	return usFromMS(m.MapMS(msFromUS(effectiveUS)))
}

// EffectiveDurationMS returns the output duration after removing every trim
// region's length from sourceDurationMS.
func (m *Mapper) EffectiveDurationMS(sourceDurationMS int64) int64 {
	total := sourceDurationMS
	for _, r := range m.regions {
		total -= r.EndMS - r.StartMS
	}
	if total < 0 {
		return 0
	}
	return total
}

// Regions returns the sorted trim regions backing this mapper.
func (m *Mapper) Regions() []config.TrimRegion {
	return append([]config.TrimRegion(nil), m.regions...)
}

func msFromUS(us int64) int64 { return us / 1000 }
func usFromMS(ms int64) int64 { return ms * 1000 }
