// Package projection turns the per-calendar event snapshot into the
// flat, day-keyed structures the view renderers consume.
package projection

import (
	"sort"

	"calweb/internal/dateutil"
	"calweb/internal/model"
)

// SelectVisible flattens the snapshot into (calendar, event) pairs,
// keeping only calendars whose URL is in selected. Order is calendar
// iteration order, then event order as received.
func SelectVisible(calendars []model.Calendar, selected map[string]bool, eventsByCal map[string][]model.Event) []model.CalendarEventPair {
	pairs := make([]model.CalendarEventPair, 0)
	for _, cal := range calendars {
		if !selected[cal.URL] {
			continue
		}
		for _, ev := range eventsByCal[cal.URL] {
			pairs = append(pairs, model.CalendarEventPair{Calendar: cal, Event: ev})
		}
	}
	return pairs
}

// FilterRange keeps pairs whose event start falls within [r.Start,
// r.End]. Events that merely extend into the range are dropped; there
// is no clipping of multi-day spans. Applying the same range twice
// returns an identical list.
func FilterRange(pairs []model.CalendarEventPair, r model.VisibleRange) []model.CalendarEventPair {
	out := make([]model.CalendarEventPair, 0, len(pairs))
	for _, p := range pairs {
		if r.Contains(p.Event.Start) {
			out = append(out, p)
		}
	}
	return out
}

// GroupByDateKey buckets pairs by the local-time date key of each
// event's start. Within a bucket, pairs are sorted ascending by start,
// ties broken ascending by end; the sort is stable.
func GroupByDateKey(pairs []model.CalendarEventPair) map[string][]model.CalendarEventPair {
	byKey := make(map[string][]model.CalendarEventPair)
	for _, p := range pairs {
		key := dateutil.DateKey(p.Event.Start)
		byKey[key] = append(byKey[key], p)
	}
	for key := range byKey {
		bucket := byKey[key]
		sort.SliceStable(bucket, func(i, j int) bool {
			a, b := bucket[i].Event, bucket[j].Event
			if !a.Start.Equal(b.Start) {
				return a.Start.Before(b.Start)
			}
			return a.End.Before(b.End)
		})
	}
	return byKey
}

// SortedKeys returns the bucket keys in ascending (lexical = date)
// order.
func SortedKeys(byKey map[string][]model.CalendarEventPair) []string {
	keys := make([]string, 0, len(byKey))
	for k := range byKey {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
