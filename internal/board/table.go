package board

import "sort"

// Capacity bounds the number of records a RankedTable retains.
const Capacity = 10

// RankedTable is an immutable, capacity-bounded view over a set of records.
// Order is always a function of the record tuples, never insertion order.
type RankedTable struct {
	records []Record
}

// NewRankedTable sorts and truncates an arbitrary candidate set. An empty or
// nil input yields an empty table.
func NewRankedTable(records []Record) RankedTable {
	ranked := make([]Record, len(records))
	copy(ranked, records)
	sort.SliceStable(ranked, func(i, j int) bool {
		return outranks(ranked[i], ranked[j])
	})
	if len(ranked) > Capacity {
		ranked = ranked[:Capacity]
	}
	return RankedTable{records: ranked}
}

// Insert returns a new table with the record merged in, re-sorted, and
// truncated to capacity. The receiver is left unchanged.
func (t RankedTable) Insert(record Record) RankedTable {
	merged := make([]Record, 0, len(t.records)+1)
	merged = append(merged, t.records...)
	merged = append(merged, record)
	return NewRankedTable(merged)
}

// ReplaceAll discards the current contents and ranks the supplied set.
func (t RankedTable) ReplaceAll(records []Record) RankedTable {
	return NewRankedTable(records)
}

// Records returns the ranked contents, best first. The slice is a copy.
func (t RankedTable) Records() []Record {
	out := make([]Record, len(t.records))
	copy(out, t.records)
	return out
}

// Len reports the number of retained records.
func (t RankedTable) Len() int {
	return len(t.records)
}

// outranks reports whether a places ahead of b: higher level, then higher
// round, then more passages passed. Among equal performance the earlier
// date wins; the date string is caller-supplied, so the tie-break trusts
// the client clock.
func outranks(a, b Record) bool {
	if a.Level != b.Level {
		return a.Level > b.Level
	}
	if a.Round != b.Round {
		return a.Round > b.Round
	}
	if a.PassagesPassed != b.PassagesPassed {
		return a.PassagesPassed > b.PassagesPassed
	}
	return a.Date < b.Date
}
