// Package layout assigns concurrent timed events of a single day to
// side-by-side visual tracks and maps intervals and click positions to
// lane geometry. It is toolkit-independent and operates on raw
// intervals only.
package layout

import (
	"sort"
	"time"

	"calweb/internal/model"
)

// Placed is one event with its track assignment for a single render
// pass. TrackCount is uniform across the whole day, so columns keep
// the same width even where fewer events overlap.
type Placed struct {
	Pair       model.CalendarEventPair
	TrackIndex int
	TrackCount int
}

// Assign distributes the given pairs over tracks using greedy first-fit
// interval partitioning:
//
//  1. sort by start ascending, ties by end ascending
//  2. place each event into the first track whose last event has ended
//     (last.End <= ev.Start)
//  3. open a new track when none fits
//
// The result is deterministic for any input permutation. This is not a
// minimum-coloring of the interval graph; it trades column count for
// stable left-to-right placement. Zero- or negative-duration events are
// passed through unfiltered and occupy whichever track fits first.
func Assign(pairs []model.CalendarEventPair) []Placed {
	sorted := make([]model.CalendarEventPair, len(pairs))
	copy(sorted, pairs)
	sort.SliceStable(sorted, func(i, j int) bool {
		a, b := sorted[i].Event, sorted[j].Event
		if !a.Start.Equal(b.Start) {
			return a.Start.Before(b.Start)
		}
		return a.End.Before(b.End)
	})

	// trackEnds holds the end time of the last event placed per track.
	trackEnds := make([]time.Time, 0, 4)
	placed := make([]Placed, 0, len(sorted))

	for _, p := range sorted {
		idx := -1
		for i, end := range trackEnds {
			if !end.After(p.Event.Start) {
				idx = i
				break
			}
		}
		if idx == -1 {
			trackEnds = append(trackEnds, p.Event.End)
			idx = len(trackEnds) - 1
		} else {
			trackEnds[idx] = p.Event.End
		}
		placed = append(placed, Placed{Pair: p, TrackIndex: idx})
	}

	count := len(trackEnds)
	if count < 1 {
		count = 1
	}
	for i := range placed {
		placed[i].TrackCount = count
	}
	return placed
}

// Geometry maps event intervals and tracks onto lane pixels and
// percentages. Defaults match the original UI (48px per hour, 20px
// minimum block height).
type Geometry struct {
	HourHeightPx     float64
	MinBlockHeightPx float64
}

// DefaultGeometry returns the stock lane geometry.
func DefaultGeometry() Geometry {
	return Geometry{HourHeightPx: 48, MinBlockHeightPx: 20}
}

// MinutesFromMidnight returns t's minute-of-day.
func MinutesFromMidnight(t time.Time) int {
	return t.Hour()*60 + t.Minute()
}

// TopPx is the vertical offset of an event starting at t.
func (g Geometry) TopPx(t time.Time) float64 {
	return float64(MinutesFromMidnight(t)) / 60 * g.HourHeightPx
}

// BlockHeightPx is the rendered height for the [start, end) interval.
// A floor keeps very short events clickable.
func (g Geometry) BlockHeightPx(start, end time.Time) float64 {
	minutes := float64(MinutesFromMidnight(end) - MinutesFromMidnight(start))
	h := minutes / 60 * g.HourHeightPx
	if h < g.MinBlockHeightPx {
		return g.MinBlockHeightPx
	}
	return h
}

// TrackSpan returns the horizontal (offset, width) of a track in
// percent of the lane width.
func TrackSpan(trackIndex, trackCount int) (leftPct, widthPct float64) {
	if trackCount < 1 {
		trackCount = 1
	}
	widthPct = 100 / float64(trackCount)
	return widthPct * float64(trackIndex), widthPct
}

// DefaultSnapMinutes is the click-to-time rounding step of the timed
// lane.
const DefaultSnapMinutes = 30

// SnapToMinutes converts a click's vertical offset within a 24h lane
// into a minute-of-day, rounded to the nearest snap step and clamped to
// [0, 1439].
func SnapToMinutes(offsetPx, laneHeightPx float64, snap int) int {
	if snap <= 0 {
		snap = DefaultSnapMinutes
	}
	if laneHeightPx <= 0 {
		return 0
	}
	minutes := int(offsetPx/laneHeightPx*1440 + 0.5)
	if minutes < 0 {
		minutes = 0
	}
	if minutes > 1439 {
		minutes = 1439
	}
	snapped := (minutes + snap/2) / snap * snap
	if snapped > 1439 {
		snapped = 1439
	}
	return snapped
}
