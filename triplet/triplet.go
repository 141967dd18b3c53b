// Package triplet implements the ordered triplet tables that are the
// foundation the exchange-plan builder and field transfer engine are
// built on. Table favors three parallel int64 slices with a typed field
// selector over a flat-buffer-plus-field-index design.
/*
 * Copyright (c) 2024, NVIDIA CORPORATION. All rights reserved.
 */
package triplet

import "sort"

// Field selects one of the three columns of a Table for Sort and Search.
type Field int

const (
	PeerRank Field = iota
	LocalSlot
	ElementID
)

// Table is an ordered sequence of triplets (peer_rank, local_slot,
// element_id), stored column-major. The zero value is an empty table.
type Table struct {
	PeerRanks  []int64
	LocalSlots []int64
	ElementIDs []int64
}

// New preallocates a Table of the given length with all columns zeroed.
func New(n int) *Table {
	return &Table{
		PeerRanks:  make([]int64, n),
		LocalSlots: make([]int64, n),
		ElementIDs: make([]int64, n),
	}
}

// Len returns the number of triplets in the table.
func (t *Table) Len() int { return len(t.PeerRanks) }

// Set writes triplet i. Callers (exchange.BuildPlan) preallocate with New
// and fill by index rather than appending, so construction is
// allocation-bounded.
func (t *Table) Set(i int, peerRank, localSlot, elementID int64) {
	t.PeerRanks[i] = peerRank
	t.LocalSlots[i] = localSlot
	t.ElementIDs[i] = elementID
}

// Get returns triplet i as (peer_rank, local_slot, element_id).
func (t *Table) Get(i int) (peerRank, localSlot, elementID int64) {
	return t.PeerRanks[i], t.LocalSlots[i], t.ElementIDs[i]
}

func (t *Table) column(f Field) []int64 {
	switch f {
	case PeerRank:
		return t.PeerRanks
	case LocalSlot:
		return t.LocalSlots
	case ElementID:
		return t.ElementIDs
	default:
		panic("triplet: invalid field")
	}
}

// Sort stably sorts the table in place by the chosen field, which becomes
// the primary comparison key (so a subsequent Search(field, ...) is a valid
// binary search). Ties on the key are broken by element_id, then peer_rank,
// then local_slot, skipping whichever of those is the key itself. Element_id
// is tried first among the tie-breakers because callers that re-sort by
// peer_rank (transfer's comp_list/io_list alignment) need the per-peer order
// to agree on element_id regardless of each table's local_slot convention.
func (t *Table) Sort(key Field) {
	sort.Stable(&byField{t: t, key: key})
}

// tieBreakOrder lists the fields Less falls back to, in priority order,
// after the sort key itself.
var tieBreakOrder = []Field{ElementID, PeerRank, LocalSlot}

type byField struct {
	t   *Table
	key Field
}

func (s *byField) Len() int { return s.t.Len() }

func (s *byField) Swap(i, j int) {
	t := s.t
	t.PeerRanks[i], t.PeerRanks[j] = t.PeerRanks[j], t.PeerRanks[i]
	t.LocalSlots[i], t.LocalSlots[j] = t.LocalSlots[j], t.LocalSlots[i]
	t.ElementIDs[i], t.ElementIDs[j] = t.ElementIDs[j], t.ElementIDs[i]
}

func (s *byField) Less(i, j int) bool {
	if col := s.t.column(s.key); col[i] != col[j] {
		return col[i] < col[j]
	}
	for _, f := range tieBreakOrder {
		if f == s.key {
			continue
		}
		col := s.t.column(f)
		if col[i] != col[j] {
			return col[i] < col[j]
		}
	}
	return false
}

// NotFound is the sentinel index Search returns when no triplet has the
// requested key in the requested field.
const NotFound = -1

// Search performs a binary search over a table already sorted by field
// (via Sort(field)) and returns the index of any triplet whose field
// equals key, or NotFound. When multiple triplets match, which one is
// returned is unspecified — only existence is guaranteed to callers.
func Search(table *Table, field Field, key int64) int {
	col := table.column(field)
	n := len(col)
	lo, hi := 0, n
	for lo < hi {
		mid := lo + (hi-lo)/2
		if col[mid] < key {
			lo = mid + 1
		} else {
			hi = mid
		}
	}
	if lo < n && col[lo] == key {
		return lo
	}
	return NotFound
}
