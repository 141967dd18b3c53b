// Package partition implements the pure I/O partitioner: given a rank
// and a policy, derive that rank's contiguous window of the global index
// space when acting as an I/O rank.
/*
 * Copyright (c) 2024, NVIDIA CORPORATION. All rights reserved.
 */
package partition

import (
	"fmt"

	"github.com/NVIDIA/decomp/dcerr"
)

// IsIOTask reports whether rank is one of the numIOTasks I/O ranks chosen
// by the policy (numIOTasks, ioStride): ranks 0, ioStride, 2*ioStride, ...
// up to numIOTasks of them.
func IsIOTask(rank, numIOTasks, ioStride int) bool {
	if ioStride <= 0 || numIOTasks <= 0 {
		return false
	}
	return rank%ioStride == 0 && rank/ioStride < numIOTasks
}

// IOElements maps (rank, numIOTasks, ioStride, nGlobal) to this rank's
// contiguous, disjoint, exhaustive block of the global index space.
// Non-I/O ranks get (0, 0). The first nGlobal mod numIOTasks I/O ranks (in
// ascending I/O-rank order) receive ceil(nGlobal/numIOTasks) elements;
// the rest receive floor(nGlobal/numIOTasks) — largest blocks go to the
// lowest I/O ranks.
func IOElements(rank, numIOTasks, ioStride int, nGlobal int64) (ioStart, ioCount int64, err error) {
	if numIOTasks <= 0 {
		return 0, 0, dcerr.InvalidArgument(fmt.Errorf("num_io_tasks must be positive, got %d", numIOTasks))
	}
	if ioStride <= 0 {
		return 0, 0, dcerr.InvalidArgument(fmt.Errorf("io_stride must be positive, got %d", ioStride))
	}
	if !IsIOTask(rank, numIOTasks, ioStride) {
		return 0, 0, nil
	}
	ioRankIndex := rank / ioStride // 0-based position among I/O ranks, ascending rank order

	base := nGlobal / int64(numIOTasks)
	remainder := nGlobal % int64(numIOTasks)

	if int64(ioRankIndex) < remainder {
		ioCount = base + 1
		ioStart = int64(ioRankIndex) * ioCount
	} else {
		ioCount = base
		ioStart = remainder*(base+1) + (int64(ioRankIndex)-remainder)*base
	}
	return ioStart, ioCount, nil
}

// BoundsCheck validates numIOTasks*ioStride against the actual group
// size, the one piece of an impossible-policy check IOElements cannot
// make on its own (it has no way to know the group size from its
// arguments alone). create_decomp calls this before IOElements.
func BoundsCheck(numIOTasks, ioStride, groupSize int) error {
	if numIOTasks <= 0 {
		return dcerr.InvalidArgument(fmt.Errorf("num_io_tasks must be positive, got %d", numIOTasks))
	}
	if ioStride <= 0 {
		return dcerr.InvalidArgument(fmt.Errorf("io_stride must be positive, got %d", ioStride))
	}
	if numIOTasks*ioStride > groupSize {
		return dcerr.InvalidArgument(fmt.Errorf(
			"num_io_tasks(%d) * io_stride(%d) = %d exceeds group size %d",
			numIOTasks, ioStride, numIOTasks*ioStride, groupSize))
	}
	return nil
}
