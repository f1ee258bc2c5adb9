package record

import (
	"sort"
	"time"
)

// Cleanup keeps only complete visits and normalizes whitespace-only text
// fields to absent. The section tag is reset since construction is over.
func Cleanup(visits []Visit) []Visit {
	out := make([]Visit, 0, len(visits))
	for _, v := range visits {
		if !v.Complete() {
			continue
		}
		clean := Visit{Timestamp: v.Timestamp, Department: v.Department}
		for _, s := range TextSections {
			*clean.Field(s) = blankToAbsent(*v.Field(s))
		}
		out = append(out, clean)
	}
	return out
}

// Merge collapses visits sharing a (timestamp, department) key into one.
// Groups appear in order of first occurrence and each merged field is the
// line-break join of the group's non-empty fields in source order.
func Merge(visits []Visit) []Visit {
	order := make([]Key, 0, len(visits))
	groups := make(map[Key][]int, len(visits))
	for i := range visits {
		k := visits[i].Key()
		if _, seen := groups[k]; !seen {
			order = append(order, k)
		}
		groups[k] = append(groups[k], i)
	}

	out := make([]Visit, 0, len(order))
	for _, k := range order {
		idx := groups[k]
		if len(idx) == 1 {
			out = append(out, visits[idx[0]])
			continue
		}
		merged := Visit{Timestamp: k.Timestamp, Department: k.Department}
		for _, i := range idx {
			for _, s := range TextSections {
				merged.Append(s, *visits[i].Field(s))
			}
		}
		out = append(out, merged)
	}
	return out
}

// Sort orders visits by timestamp, ascending. Visits whose timestamp does not
// parse sort first so ambiguous data surfaces at the top. The sort is stable
// and the input slice is left untouched.
func Sort(visits []Visit) []Visit {
	type keyed struct {
		v  Visit
		ok bool
		at time.Time
	}
	ks := make([]keyed, len(visits))
	for i, v := range visits {
		at, err := time.Parse(time.RFC3339, v.Timestamp)
		ks[i] = keyed{v: v, ok: err == nil, at: at}
	}
	sort.SliceStable(ks, func(a, b int) bool {
		if ks[a].ok != ks[b].ok {
			return !ks[a].ok
		}
		return ks[a].at.Before(ks[b].at)
	})

	out := make([]Visit, len(ks))
	for i := range ks {
		out[i] = ks[i].v
	}
	return out
}

// Process runs Cleanup, Merge and Sort in that order.
func Process(visits []Visit) []Visit {
	return Sort(Merge(Cleanup(visits)))
}
