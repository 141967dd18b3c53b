// Package exchange implements the collective exchange-plan builder: from
// each rank's compute-side and I/O-side element IDs, derive the two
// triplet tables (comp_list, io_list) that drive the field transfer
// engine in either direction.
//
// The collective shape here — a round that every rank of the group enters
// in lockstep, reaching every peer once — is grown from xact/xs/tcb.go's
// tcbFactory/XactTCB: a bucket-copy xaction that counts down a refc as
// every other active target finishes, over a bundle.DataMover opened once
// and closed once. BuildPlan keeps only the fan-out to every peer, with
// group.Group's mailboxes standing in for the DataMover; it keeps no
// refcount and simply runs P sequential steps.
/*
 * Copyright (c) 2024, NVIDIA CORPORATION. All rights reserved.
 */
package exchange

import (
	"context"
	"fmt"

	"github.com/NVIDIA/decomp/config"
	"github.com/NVIDIA/decomp/dcerr"
	"github.com/NVIDIA/decomp/dlog"
	"github.com/NVIDIA/decomp/group"
	"github.com/NVIDIA/decomp/triplet"
)

const smoduleExchange = "exchange"

// Plan is the pair of triplet tables one rank owns after BuildPlan: the
// decomp handle's comp_list and io_list, already sorted by PeerRank as a
// permanent invariant.
type Plan struct {
	CompList *triplet.Table
	IOList   *triplet.Table
}

// BuildPlan runs the plan-building algorithm for one rank: a circulant
// round-robin broadcast of compute_ids over exactly P steps, with a
// same-round ownership ack back to the sender. Every rank of grp must
// call BuildPlan with the same opID in the same program order; opID
// should come from group.NewOpID(), minted once and distributed to every
// rank before any of them call BuildPlan.
//
// computeIDs is this rank's compute-side element IDs. ioStart/ioCount is
// this rank's I/O window (both zero on ranks that are not I/O ranks).
// cfg.RoundRobinTimeout bounds the whole P-step round-robin; a nil cfg
// falls back to config.Default().
func BuildPlan(ctx context.Context, grp *group.Group, cfg *config.GroupConfig, opID string, rank int, computeIDs []int64, ioStart, ioCount int64) (*Plan, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	if cfg.RoundRobinTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.RoundRobinTimeout)
		defer cancel()
	}

	size := grp.Size()
	if rank < 0 || rank >= size {
		return nil, dcerr.InvalidArgument(fmt.Errorf("rank %d out of range [0,%d)", rank, size))
	}

	ioMatches := make([]compMatch, 0, ioCount)
	compMatches := make([]compMatch, 0, len(computeIDs))

	bcastOp := opID + ":bcast"
	ackOp := opID + ":ack"

	for s := 0; s < size; s++ {
		dst := (rank + s) % size
		src := (rank - s + size) % size

		if err := grp.Send(ctx, bcastOp, s, dst, encodeIDs(computeIDs)); err != nil {
			return nil, err
		}
		payload, err := grp.Recv(ctx, bcastOp, s, rank)
		if err != nil {
			return nil, err
		}
		recvIDs := decodeIDs(payload)

		var matches []ackEntry
		for idx, id := range recvIDs {
			if id >= ioStart && id < ioStart+ioCount {
				ioLocalSlot := id - ioStart
				ioMatches = append(ioMatches, compMatch{peerRank: int64(src), localSlot: ioLocalSlot, elementID: id})
				matches = append(matches, ackEntry{index: int64(idx), elementID: id})
				group.TripletsMatched.Inc()
			}
		}
		if err := grp.Send(ctx, ackOp, s, src, encodeAck(matches)); err != nil {
			return nil, err
		}
		ackPayload, err := grp.Recv(ctx, ackOp, s, rank)
		if err != nil {
			return nil, err
		}
		for _, m := range decodeAck(ackPayload) {
			compMatches = append(compMatches, compMatch{peerRank: int64(dst), localSlot: m.index, elementID: m.elementID})
		}
		group.RoundRobinSteps.Inc()
	}

	if len(compMatches) != len(computeIDs) {
		return nil, dcerr.InvalidArgument(fmt.Errorf(
			"rank %d: %d of %d compute IDs were claimed by exactly one I/O owner (duplicate or dangling element IDs)",
			rank, len(compMatches), len(computeIDs)))
	}

	seenIO := make(map[int64]bool, len(ioMatches))
	for _, m := range ioMatches {
		if seenIO[m.elementID] {
			return nil, dcerr.InvalidArgument(fmt.Errorf(
				"rank %d: element ID %d claimed by more than one compute rank", rank, m.elementID))
		}
		seenIO[m.elementID] = true
	}

	compList := triplet.New(len(compMatches))
	for i, m := range compMatches {
		compList.Set(i, m.peerRank, m.localSlot, m.elementID)
	}
	ioList := triplet.New(len(ioMatches))
	for i, m := range ioMatches {
		ioList.Set(i, m.peerRank, m.localSlot, m.elementID)
	}

	// Sort by element_id and use Search as a consistency check — every
	// compute-side ID must appear exactly once among the ack'd matches.
	compList.Sort(triplet.ElementID)
	seen := make(map[int64]bool, len(computeIDs))
	for _, id := range computeIDs {
		if seen[id] {
			return nil, dcerr.InvalidArgument(fmt.Errorf("rank %d: duplicate compute element ID %d", rank, id))
		}
		seen[id] = true
		if idx := triplet.Search(compList, triplet.ElementID, id); idx == triplet.NotFound {
			return nil, dcerr.InvalidArgument(fmt.Errorf("rank %d: compute element ID %d has no I/O owner", rank, id))
		}
	}

	// Re-sort both tables by peer rank as the permanent invariant, with
	// the ascending-element_id tie-break within a peer group enforced
	// identically on both sides so the transfer engine's ordering
	// guarantee holds.
	compList.Sort(triplet.PeerRank)
	ioList.Sort(triplet.PeerRank)

	if dlog.FastV(4, smoduleExchange) {
		dlog.Infof("rank %d: plan built, comp_list=%d io_list=%d", rank, compList.Len(), ioList.Len())
	}

	return &Plan{CompList: compList, IOList: ioList}, nil
}

type compMatch struct {
	peerRank  int64
	localSlot int64
	elementID int64
}

type ackEntry struct {
	index     int64
	elementID int64
}
