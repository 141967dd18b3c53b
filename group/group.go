// Package group implements the group communicator: the thing every
// collective (all-reduce during partitioning, paired send/receive during
// plan construction, all-to-all during transfer) runs over. With no MPI
// binding available, Group is an in-process stand-in — one goroutine per
// simulated rank, talking over mailboxes — playing the same role a
// transport.DataMover plays for a bucket-copy xaction: a named,
// opened-once data mover fanning work out to every peer and tracking
// completion with a refcount.
/*
 * Copyright (c) 2024, NVIDIA CORPORATION. All rights reserved.
 */
package group

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/NVIDIA/decomp/dcerr"
)

// Group is a loopback communicator of fixed Size ranks. The zero value is
// not usable; construct with New. A Group has no notion of which rank
// "owns" it — every rank-scoped call takes rank explicitly; the caller,
// not the Group, is responsible for every rank entering each collective
// in the same program order.
type Group struct {
	size int

	mu   sync.Mutex
	bars map[string]*barrier
	mail map[mailKey]chan []byte
}

type barrier struct {
	values  []int64
	arrived int
	ready   chan struct{}
}

type mailKey struct {
	op  string
	step int
	dst int
}

// New constructs a loopback group of the given size. size must be >= 1.
func New(size int) *Group {
	return &Group{
		size: size,
		bars: make(map[string]*barrier),
		mail: make(map[mailKey]chan []byte),
	}
}

func (g *Group) Size() int { return g.size }

// NewOpID mints a call-scoped identifier so two unrelated collectives
// (e.g. two CreateDecomp calls sharing one Group) never collide on the
// same barrier or mailbox key. Exactly one rank should mint it and the
// caller is responsible for distributing it to every rank before the
// collective begins (in this module, the driver that spawns one goroutine
// per rank does this once, up front).
func NewOpID() string { return uuid.NewString() }

// AllReduceSum is the all-reduce-during-partitioning primitive: every
// rank contributes value under opID and every rank receives the sum
// across the whole group. Blocks until all Size ranks have called it for
// opID, or until ctx is done.
func (g *Group) AllReduceSum(ctx context.Context, opID string, rank int, value int64) (int64, error) {
	vals, err := g.enter(ctx, "allreduce:"+opID, rank, value)
	if err != nil {
		return 0, err
	}
	var sum int64
	for _, v := range vals {
		sum += v
	}
	return sum, nil
}

// Run spawns one goroutine per rank executing fn(rank), fanning out with
// errgroup and returning the first error any rank produced — an
// abort-on-first-error discipline generalized from a single failing peer
// to every rank.
func (g *Group) Run(ctx context.Context, fn func(ctx context.Context, rank int) error) error {
	eg, ctx := errgroup.WithContext(ctx)
	for r := 0; r < g.size; r++ {
		r := r
		eg.Go(func() error { return fn(ctx, r) })
	}
	if err := eg.Wait(); err != nil {
		return dcerr.MPI(err)
	}
	return nil
}

func (g *Group) enter(ctx context.Context, op string, rank int, val int64) ([]int64, error) {
	g.mu.Lock()
	b, ok := g.bars[op]
	if !ok {
		b = &barrier{values: make([]int64, g.size), ready: make(chan struct{})}
		g.bars[op] = b
	}
	b.values[rank] = val
	b.arrived++
	done := b.arrived == g.size
	if done {
		delete(g.bars, op)
	}
	g.mu.Unlock()

	if done {
		close(b.ready)
		return b.values, nil
	}
	select {
	case <-b.ready:
		return b.values, nil
	case <-ctx.Done():
		return nil, dcerr.MPI(ctx.Err())
	}
}

// Send posts payload to the mailbox (opID, step, dst); exactly one Recv
// on the same key consumes it. Non-blocking once posted (buffered by
// one): the caller only blocks if the mailbox already holds an
// unconsumed message, which cannot happen under the one-sender-per-key
// discipline BuildPlan uses.
func (g *Group) Send(ctx context.Context, opID string, step, dst int, payload []byte) error {
	ch := g.mailbox(opID, step, dst)
	select {
	case ch <- payload:
		return nil
	case <-ctx.Done():
		return dcerr.MPI(ctx.Err())
	}
}

// Recv blocks until a payload has been Sent to (opID, step, myRank).
func (g *Group) Recv(ctx context.Context, opID string, step, myRank int) ([]byte, error) {
	ch := g.mailbox(opID, step, myRank)
	select {
	case payload := <-ch:
		return payload, nil
	case <-ctx.Done():
		return nil, dcerr.MPI(ctx.Err())
	}
}

func (g *Group) mailbox(op string, step, dst int) chan []byte {
	key := mailKey{op: op, step: step, dst: dst}
	g.mu.Lock()
	defer g.mu.Unlock()
	ch, ok := g.mail[key]
	if !ok {
		ch = make(chan []byte, 1)
		g.mail[key] = ch
	}
	return ch
}

// AllToAllv exchanges variable-length byte payloads between every pair of
// ranks in one collective: sendByPeer[p] is what rank `rank` sends to peer
// p (possibly empty), and the returned slice is indexed the same way for
// what rank `rank` received from each peer. This is the primitive
// transfer/ drives its pack/unpack loop through.
func (g *Group) AllToAllv(ctx context.Context, opID string, rank int, sendByPeer [][]byte) ([][]byte, error) {
	if len(sendByPeer) != g.size {
		return nil, dcerr.InvalidArgument(errSizeMismatch)
	}
	for peer := 0; peer < g.size; peer++ {
		if peer == rank {
			continue
		}
		if err := g.Send(ctx, opID, rank, peer, sendByPeer[peer]); err != nil {
			return nil, err
		}
	}
	recv := make([][]byte, g.size)
	recv[rank] = sendByPeer[rank]
	for peer := 0; peer < g.size; peer++ {
		if peer == rank {
			continue
		}
		payload, err := g.Recv(ctx, opID, peer, rank)
		if err != nil {
			return nil, err
		}
		recv[peer] = payload
	}
	return recv, nil
}

var errSizeMismatch = &sizeMismatchErr{}

type sizeMismatchErr struct{}

func (*sizeMismatchErr) Error() string { return "sendByPeer length must equal group size" }
