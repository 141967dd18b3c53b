// Package handle implements the decomposition handle: CreateDecomp drives
// the partitioner then the plan builder and attaches io_start/io_count;
// FreeDecomp releases both tables.
/*
 * Copyright (c) 2024, NVIDIA CORPORATION. All rights reserved.
 */
package handle

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/NVIDIA/decomp/config"
	"github.com/NVIDIA/decomp/dcerr"
	"github.com/NVIDIA/decomp/dlog"
	"github.com/NVIDIA/decomp/exchange"
	"github.com/NVIDIA/decomp/group"
	"github.com/NVIDIA/decomp/partition"
	"github.com/NVIDIA/decomp/triplet"
)

const smoduleHandle = "handle"

// DecompHandle bundles the two triplet tables plus the I/O window, owned
// exclusively by the rank that created it. Immutable after construction;
// read-only to transfer.Transfer.
type DecompHandle struct {
	id string

	CompList *triplet.Table
	IOList   *triplet.Table
	IOStart  int64
	IOCount  int64

	rank       int
	numIOTasks int
	ioStride   int
	groupSize  int
}

// ID returns a stable, loggable token for this handle, the way an
// aistore xaction carries a UUID() — minted once at construction, never
// recomputed.
func (h *DecompHandle) ID() string { return h.id }

// CreateDecomp is the create_decomp entry point for one rank. Every rank
// of grp must call CreateDecomp with the same opID, numIOTasks, and
// ioStride in the same program order; opID must come from
// group.NewOpID(), minted once by whichever rank coordinates the run and
// distributed to every rank before any of them call CreateDecomp.
//
// n_global is not a caller input — create_decomp takes n_compute and
// compute_ids, not n_global — so it is derived collectively here via an
// all-reduce sum of n_compute across the whole group, which holds given
// that the global ID set covers the global range exactly once with no
// overlap.
func CreateDecomp(ctx context.Context, grp *group.Group, cfg *config.GroupConfig, opID string, rank int, computeIDs []int64, numIOTasks, ioStride int) (*DecompHandle, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	if computeIDs == nil {
		return nil, dcerr.InvalidArgument(fmt.Errorf("compute_ids must not be nil"))
	}
	if err := partition.BoundsCheck(numIOTasks, ioStride, grp.Size()); err != nil {
		return nil, err
	}

	nGlobal, err := grp.AllReduceSum(ctx, opID+":nglobal", rank, int64(len(computeIDs)))
	if err != nil {
		return nil, dcerr.MPI(err)
	}

	ioStart, ioCount, err := partition.IOElements(rank, numIOTasks, ioStride, nGlobal)
	if err != nil {
		return nil, err
	}

	plan, err := exchange.BuildPlan(ctx, grp, cfg, opID+":plan", rank, computeIDs, ioStart, ioCount)
	if err != nil {
		return nil, err
	}

	h := &DecompHandle{
		id:         uuid.NewString(),
		CompList:   plan.CompList,
		IOList:     plan.IOList,
		IOStart:    ioStart,
		IOCount:    ioCount,
		rank:       rank,
		numIOTasks: numIOTasks,
		ioStride:   ioStride,
		groupSize:  grp.Size(),
	}
	if dlog.FastV(3, smoduleHandle) {
		dlog.Infof("rank %d: decomp %s created, io_start=%d io_count=%d comp_list=%d io_list=%d",
			rank, h.id, h.IOStart, h.IOCount, h.CompList.Len(), h.IOList.Len())
	}
	return h, nil
}

// FreeDecomp releases h's tables. Idempotent and safe on a nil handle
// pointer; free_decomp never reports an error.
func FreeDecomp(h **DecompHandle) {
	if h == nil || *h == nil {
		return
	}
	(*h).CompList = nil
	(*h).IOList = nil
	*h = nil
}
