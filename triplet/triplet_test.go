/*
 * Copyright (c) 2024, NVIDIA CORPORATION. All rights reserved.
 */
package triplet_test

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/NVIDIA/decomp/triplet"
)

func build(rows [][3]int64) *triplet.Table {
	t := triplet.New(len(rows))
	for i, r := range rows {
		t.Set(i, r[0], r[1], r[2])
	}
	return t
}

func TestSortByElementIDThenSearch(t *testing.T) {
	tbl := build([][3]int64{
		{2, 0, 30},
		{0, 1, 10},
		{1, 0, 20},
		{0, 0, 5},
	})
	tbl.Sort(triplet.ElementID)

	got := make([]int64, tbl.Len())
	for i := 0; i < tbl.Len(); i++ {
		_, _, got[i] = tbl.Get(i)
	}
	require.Equal(t, []int64{5, 10, 20, 30}, got)

	idx := triplet.Search(tbl, triplet.ElementID, 20)
	require.NotEqual(t, triplet.NotFound, idx)
	peer, slot, elem := tbl.Get(idx)
	require.Equal(t, int64(1), peer)
	require.Equal(t, int64(0), slot)
	require.Equal(t, int64(20), elem)

	require.Equal(t, triplet.NotFound, triplet.Search(tbl, triplet.ElementID, 999))
}

func TestSortByPeerRankTieBreak(t *testing.T) {
	// local_slot deliberately disagrees with element_id order within each
	// peer group, so this only passes if the tie-break key is element_id.
	tbl := build([][3]int64{
		{1, 1, 100},
		{0, 2, 10},
		{1, 5, 20},
		{0, 0, 50},
	})
	tbl.Sort(triplet.PeerRank)

	var rows [][3]int64
	for i := 0; i < tbl.Len(); i++ {
		p, s, e := tbl.Get(i)
		rows = append(rows, [3]int64{p, s, e})
	}
	// within peer_rank, tie-break ascends by element_id, not local_slot.
	require.Equal(t, [][3]int64{
		{0, 2, 10},
		{0, 0, 50},
		{1, 5, 20},
		{1, 1, 100},
	}, rows)
}

func TestSearchEmptyTable(t *testing.T) {
	tbl := triplet.New(0)
	require.Equal(t, triplet.NotFound, triplet.Search(tbl, triplet.ElementID, 0))
}

func TestSortThenSearchRandomized(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	for trial := 0; trial < 20; trial++ {
		n := rng.Intn(200)
		rows := make([][3]int64, n)
		elems := make(map[int64]bool, n)
		for i := range rows {
			var e int64
			for {
				e = rng.Int63n(10000)
				if !elems[e] {
					elems[e] = true
					break
				}
			}
			rows[i] = [3]int64{rng.Int63n(8), int64(i), e}
		}
		tbl := build(rows)
		tbl.Sort(triplet.ElementID)

		for i := 1; i < tbl.Len(); i++ {
			_, _, prev := tbl.Get(i - 1)
			_, _, cur := tbl.Get(i)
			require.LessOrEqual(t, prev, cur, "element_id column must be monotonic after Sort(ElementID)")
		}

		for e := range elems {
			idx := triplet.Search(tbl, triplet.ElementID, e)
			require.NotEqual(t, triplet.NotFound, idx, "element %d must be found", e)
			_, _, got := tbl.Get(idx)
			require.Equal(t, e, got)
		}
	}
}

// TestSortByPeerRankThenElementIDAscendingPerPeer exercises the exact
// shape exchange.BuildPlan relies on: a comp_list whose local_slot (the
// compute buffer's raw index) is deliberately out of step with element_id
// within a peer group. Sort(PeerRank) must still leave element_id
// ascending within each peer run so a paired io_list sorted the same way
// lines up slot-for-slot with it.
func TestSortByPeerRankThenElementIDAscendingPerPeer(t *testing.T) {
	tbl := build([][3]int64{
		{0, 0, 40}, // peer 0, local_slot 0, element 40
		{0, 1, 10}, // peer 0, local_slot 1, element 10
		{0, 2, 30}, // peer 0, local_slot 2, element 30
		{1, 0, 99},
	})
	tbl.Sort(triplet.PeerRank)

	var peerZeroElems []int64
	for i := 0; i < tbl.Len(); i++ {
		peer, _, elem := tbl.Get(i)
		if peer == 0 {
			peerZeroElems = append(peerZeroElems, elem)
		}
	}
	require.Equal(t, []int64{10, 30, 40}, peerZeroElems)
}
