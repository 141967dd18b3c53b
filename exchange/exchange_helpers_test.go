/*
 * Copyright (c) 2024, NVIDIA CORPORATION. All rights reserved.
 */
package exchange_test

import (
	"context"

	"github.com/NVIDIA/decomp/config"
	"github.com/NVIDIA/decomp/group"
	"github.com/NVIDIA/decomp/handle"
	"github.com/NVIDIA/decomp/triplet"
)

// interleaved returns, for a group of the given size, each rank's
// compute_ids laid out round-robin across [0, 4*size).
func interleaved(size int) [][]int64 {
	const perRank = 4
	ids := make([][]int64, size)
	for r := 0; r < size; r++ {
		ids[r] = make([]int64, perRank)
		for i := 0; i < perRank; i++ {
			ids[r][i] = int64(i*size + r)
		}
	}
	return ids
}

func buildAll(computeIDsByRank [][]int64, numIOTasks, ioStride int) ([]*handle.DecompHandle, error) {
	size := len(computeIDsByRank)
	grp := group.New(size)
	opID := group.NewOpID()
	handles := make([]*handle.DecompHandle, size)

	var firstErr error
	err := grp.Run(context.Background(), func(ctx context.Context, rank int) error {
		h, err := handle.CreateDecomp(ctx, grp, config.Default(), opID, rank, computeIDsByRank[rank], numIOTasks, ioStride)
		if err != nil {
			firstErr = err
			return err
		}
		handles[rank] = h
		return nil
	})
	if err != nil {
		if firstErr != nil {
			return nil, firstErr
		}
		return nil, err
	}
	return handles, nil
}

// isPerfectMatching checks that across all ranks, comp_list and io_list
// define a bijection on global element IDs — every ID appears
// exactly once as a compute-side claim and exactly once as an I/O-side
// claim, and the two claims agree on which rank owns the element on the
// other side.
func isPerfectMatching(handles []*handle.DecompHandle, idsByRank [][]int64) bool {
	compOwner := make(map[int64]int64)  // element -> io-owning rank, from comp_list
	ioOwner := make(map[int64]int64)    // element -> compute-owning rank, from io_list
	compHolder := make(map[int64]int64) // element -> rank whose comp_list holds it
	ioHolder := make(map[int64]int64)   // element -> rank whose io_list holds it

	for r, h := range handles {
		for i := 0; i < h.CompList.Len(); i++ {
			peer, _, elementID := h.CompList.Get(i)
			if _, dup := compOwner[elementID]; dup {
				return false
			}
			compOwner[elementID] = peer
			compHolder[elementID] = int64(r)
		}
		for i := 0; i < h.IOList.Len(); i++ {
			peer, _, elementID := h.IOList.Get(i)
			if _, dup := ioOwner[elementID]; dup {
				return false
			}
			ioOwner[elementID] = peer
			ioHolder[elementID] = int64(r)
		}
	}

	total := 0
	for _, ids := range idsByRank {
		total += len(ids)
	}
	if len(compOwner) != total || len(ioOwner) != total {
		return false
	}
	for elementID, ioRank := range compOwner {
		compRank, ok := ioOwner[elementID]
		if !ok {
			return false
		}
		if ioHolder[elementID] != ioRank || compHolder[elementID] != compRank {
			return false
		}
	}
	return true
}

func isSortedByPeer(t *triplet.Table) bool {
	for i := 1; i < t.Len(); i++ {
		prevPeer, _, _ := t.Get(i - 1)
		peer, _, _ := t.Get(i)
		if peer < prevPeer {
			return false
		}
	}
	return true
}
