// Package transfer implements the field transfer engine: pack each
// rank's contribution into per-peer regions in peer-rank order,
// drive one collective all-to-all, and unpack. The engine is oblivious to
// the scalar type of what it moves — it only knows elementSize bytes.
//
// The pending-buffer-per-peer, pack/unpack, strict-abort-on-error shape
// here is grown from xact/xs/tcobjs.go's XactTCObjs/tcowi: a multi-object
// copy xaction that tracks one pending work item per destination and
// copies object bytes through a per-peer stream, generalized from "one
// object at a time" to "one contiguous peer region at a time".
/*
 * Copyright (c) 2024, NVIDIA CORPORATION. All rights reserved.
 */
package transfer

import (
	"context"
	"fmt"
	"time"

	"github.com/OneOfOne/xxhash"

	"github.com/NVIDIA/decomp/config"
	"github.com/NVIDIA/decomp/dcerr"
	"github.com/NVIDIA/decomp/dlog"
	"github.com/NVIDIA/decomp/exchange"
	"github.com/NVIDIA/decomp/group"
	"github.com/NVIDIA/decomp/triplet"
)

const smoduleTransfer = "transfer"

// Direction chooses which of the decomposition's two tables drives the
// send side and which drives the receive side.
type Direction int

const (
	CompToIO Direction = iota
	IOToComp
)

// Options tunes one Transfer call.
type Options struct {
	// VerifyChecksum, when true, has the sender hash each per-peer packed
	// region with xxhash and has the receiver verify it before unpacking.
	// The engine stays byte-oblivious: it hashes the packed bytes, never
	// any typed interpretation of them.
	VerifyChecksum bool
}

const checksumSuffixLen = 8

// Transfer executes one collective all-to-all exchange for rank. Every
// rank of grp must call Transfer with the same opID, direction, and
// elementSize, in the same program order. cfg.SlabSize rounds each
// per-peer send region's allocation up to a fixed granularity; a nil cfg
// falls back to config.Default().
func Transfer(ctx context.Context, grp *group.Group, cfg *config.GroupConfig, opID string, rank int, plan *exchange.Plan, direction Direction, elementSize int, in, out []byte, opts Options) error {
	if cfg == nil {
		cfg = config.Default()
	}
	if elementSize <= 0 {
		return dcerr.InvalidArgument(fmt.Errorf("element_size must be positive, got %d", elementSize))
	}
	start := time.Now()
	defer func() { group.TransferSeconds.Observe(time.Since(start).Seconds()) }()

	sendTable, recvTable := tablesFor(plan, direction)

	sendByPeer := pack(sendTable, elementSize, in, grp.Size(), cfg.SlabSize)
	if opts.VerifyChecksum {
		for p, buf := range sendByPeer {
			if len(buf) == 0 {
				continue
			}
			sendByPeer[p] = appendChecksum(buf)
		}
	}
	for _, buf := range sendByPeer {
		group.BytesPacked.Add(float64(len(buf)))
	}

	recvByPeer, err := grp.AllToAllv(ctx, opID, rank, sendByPeer)
	if err != nil {
		return err
	}

	if opts.VerifyChecksum {
		for p, buf := range recvByPeer {
			if len(buf) == 0 {
				continue
			}
			payload, ok := verifyAndStripChecksum(buf)
			if !ok {
				return dcerr.InvalidArgument(fmt.Errorf("rank %d: checksum mismatch in region received from peer %d", rank, p))
			}
			recvByPeer[p] = payload
		}
	}

	if err := unpack(recvTable, elementSize, recvByPeer, out); err != nil {
		return err
	}

	if dlog.FastV(4, smoduleTransfer) {
		dlog.Infof("rank %d: transfer done, direction=%d element_size=%d", rank, direction, elementSize)
	}
	return nil
}

// slabRound rounds n up to the next multiple of slabSize. A non-positive
// slabSize disables rounding.
func slabRound(n, slabSize int) int {
	if slabSize <= 0 {
		return n
	}
	if rem := n % slabSize; rem != 0 {
		n += slabSize - rem
	}
	return n
}

func tablesFor(plan *exchange.Plan, direction Direction) (send, recv *triplet.Table) {
	if direction == CompToIO {
		return plan.CompList, plan.IOList
	}
	return plan.IOList, plan.CompList
}

// pack walks a peer-rank-sorted table and gathers elementSize bytes from
// src at each triplet's local_slot into a per-peer contiguous region, in
// table order — the ascending-element_id tie-break within a peer run is
// already baked into the table's sort order, so pack never re-sorts. Each
// region's backing array is rounded up to slabSize bytes so a run of
// same-size transfers reuses the allocator's size classes instead of
// forcing a bespoke allocation per call.
func pack(table *triplet.Table, elementSize int, src []byte, groupSize, slabSize int) [][]byte {
	counts := make([]int, groupSize)
	for i := 0; i < table.Len(); i++ {
		peer, _, _ := table.Get(i)
		counts[peer]++
	}
	byPeer := make([][]byte, groupSize)
	for p, c := range counts {
		if c > 0 {
			byPeer[p] = make([]byte, 0, slabRound(c*elementSize, slabSize))
		}
	}
	for i := 0; i < table.Len(); i++ {
		peer, localSlot, _ := table.Get(i)
		off := int(localSlot) * elementSize
		byPeer[peer] = append(byPeer[peer], src[off:off+elementSize]...)
	}
	return byPeer
}

// unpack is pack's inverse: walk the peer-rank-sorted recv table in the
// same order the sender packed it, consuming each peer's incoming region
// sequentially.
func unpack(table *triplet.Table, elementSize int, recvByPeer [][]byte, dst []byte) error {
	cursor := make([]int, len(recvByPeer))
	for i := 0; i < table.Len(); i++ {
		peer, localSlot, elementID := table.Get(i)
		buf := recvByPeer[peer]
		c := cursor[peer]
		if c+elementSize > len(buf) {
			return dcerr.InvalidArgument(fmt.Errorf(
				"region from peer %d exhausted while unpacking element %d (need %d more bytes, have %d)",
				peer, elementID, elementSize, len(buf)-c))
		}
		off := int(localSlot) * elementSize
		copy(dst[off:off+elementSize], buf[c:c+elementSize])
		cursor[peer] = c + elementSize
	}
	return nil
}

func appendChecksum(payload []byte) []byte {
	sum := xxhash.Checksum64(payload)
	out := make([]byte, len(payload)+checksumSuffixLen)
	copy(out, payload)
	putUint64(out[len(payload):], sum)
	return out
}

func verifyAndStripChecksum(buf []byte) (payload []byte, ok bool) {
	if len(buf) < checksumSuffixLen {
		return nil, false
	}
	payload = buf[:len(buf)-checksumSuffixLen]
	want := getUint64(buf[len(buf)-checksumSuffixLen:])
	return payload, xxhash.Checksum64(payload) == want
}

func putUint64(b []byte, v uint64) {
	for i := 0; i < 8; i++ {
		b[i] = byte(v >> (8 * i))
	}
}

func getUint64(b []byte) uint64 {
	var v uint64
	for i := 0; i < 8; i++ {
		v |= uint64(b[i]) << (8 * i)
	}
	return v
}
