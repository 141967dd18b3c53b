// Command decompctl is a diagnostic CLI for validating a decomposition
// policy before wiring it into a real run: it simulates a group of ranks
// in-process over the loopback communicator and prints the resulting
// io_start/io_count windows and triplet-table sizes.
/*
 * Copyright (c) 2024, NVIDIA CORPORATION. All rights reserved.
 */
package main

import (
	"context"
	"fmt"
	"math/rand"
	"os"

	"github.com/olekukonko/tablewriter"
	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/urfave/cli/v2"

	"github.com/NVIDIA/decomp/config"
	"github.com/NVIDIA/decomp/dlog"
	"github.com/NVIDIA/decomp/group"
	"github.com/NVIDIA/decomp/handle"
)

func main() {
	app := &cli.App{
		Name:  "decompctl",
		Usage: "inspect decomposition policies without a real deployment",
		Commands: []*cli.Command{
			planCmd(),
		},
	}
	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "decompctl:", err)
		os.Exit(1)
	}
}

func planCmd() *cli.Command {
	return &cli.Command{
		Name:  "plan",
		Usage: "simulate create_decomp for a group and print the resulting plan",
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "group-size", Aliases: []string{"g"}, Value: 4, Usage: "number of simulated ranks"},
			&cli.IntFlag{Name: "per-rank", Value: 4, Usage: "compute elements held by each rank"},
			&cli.IntFlag{Name: "num-io-tasks", Aliases: []string{"n"}, Value: 1, Usage: "number of I/O ranks"},
			&cli.IntFlag{Name: "io-stride", Aliases: []string{"s"}, Value: 1, Usage: "spacing between I/O ranks"},
			&cli.BoolFlag{Name: "metrics", Usage: "print accumulated prometheus counters after the run"},
			&cli.IntFlag{Name: "verbosity", Aliases: []string{"v"}, Value: 0, Usage: "dlog verbosity"},
		},
		Action: runPlan,
	}
}

func runPlan(c *cli.Context) error {
	dlog.SetVerbosity(c.Int("verbosity"))

	groupSize := c.Int("group-size")
	perRank := c.Int("per-rank")
	numIOTasks := c.Int("num-io-tasks")
	ioStride := c.Int("io-stride")

	if groupSize <= 0 || perRank < 0 {
		return cli.Exit("group-size must be positive and per-rank must be non-negative", 1)
	}

	computeIDsByRank := scatterIDs(groupSize, perRank)

	grp := group.New(groupSize)
	opID := group.NewOpID()
	cfg := config.Default()

	handles := make([]*handle.DecompHandle, groupSize)
	errs := make([]error, groupSize)
	_ = grp.Run(context.Background(), func(ctx context.Context, rank int) error {
		h, err := handle.CreateDecomp(ctx, grp, cfg, opID, rank, computeIDsByRank[rank], numIOTasks, ioStride)
		errs[rank] = err
		handles[rank] = h
		return err
	})

	for rank, err := range errs {
		if err != nil {
			return cli.Exit(fmt.Sprintf("rank %d: %v", rank, err), 1)
		}
	}

	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"rank", "n_compute", "io_start", "io_count", "comp_list", "io_list"})
	for rank, h := range handles {
		table.Append([]string{
			fmt.Sprintf("%d", rank),
			fmt.Sprintf("%d", len(computeIDsByRank[rank])),
			fmt.Sprintf("%d", h.IOStart),
			fmt.Sprintf("%d", h.IOCount),
			fmt.Sprintf("%d", h.CompList.Len()),
			fmt.Sprintf("%d", h.IOList.Len()),
		})
	}
	table.Render()

	if c.Bool("metrics") {
		printMetrics()
	}
	return nil
}

// scatterIDs hands each rank a disjoint, randomly interleaved slice of
// [0, groupSize*perRank) so decompctl plan exercises the round-robin
// matching instead of always handing back a trivially contiguous layout.
func scatterIDs(groupSize, perRank int) [][]int64 {
	n := groupSize * perRank
	ids := make([]int64, n)
	for i := range ids {
		ids[i] = int64(i)
	}
	rng := rand.New(rand.NewSource(1))
	rng.Shuffle(n, func(i, j int) { ids[i], ids[j] = ids[j], ids[i] })

	out := make([][]int64, groupSize)
	for r := 0; r < groupSize; r++ {
		out[r] = append([]int64(nil), ids[r*perRank:(r+1)*perRank]...)
	}
	return out
}

func printMetrics() {
	fmt.Println()
	fmt.Println("metrics:")
	fmt.Printf("  triplets_matched_total  %s\n", metricValue(group.TripletsMatched))
	fmt.Printf("  round_robin_steps_total %s\n", metricValue(group.RoundRobinSteps))
	fmt.Printf("  bytes_packed_total      %s\n", metricValue(group.BytesPacked))
}

func metricValue(c prometheus.Metric) string {
	m := &dto.Metric{}
	if err := c.Write(m); err != nil {
		return "n/a"
	}
	if m.Counter != nil {
		return fmt.Sprintf("%.0f", m.Counter.GetValue())
	}
	return "n/a"
}
