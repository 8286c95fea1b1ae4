package activity

import "sort"

// Merge concatenates bet and market events, sorts them newest first and
// truncates to limit. Equal timestamps keep input order, bets before markets.
// limit <= 0 returns every event.
func Merge(betEvents, marketEvents []Event, limit int) []Event {
	out := make([]Event, 0, len(betEvents)+len(marketEvents))
	out = append(out, betEvents...)
	out = append(out, marketEvents...)

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Timestamp > out[j].Timestamp
	})

	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}
