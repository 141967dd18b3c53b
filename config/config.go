// Package config holds the tunables threaded explicitly through every
// collective call, mirroring aistore's cmn.Config snapshot but passed by
// the caller rather than read from a package-level global — the engine
// owns no process-wide mutable state.
/*
 * Copyright (c) 2024, NVIDIA CORPORATION. All rights reserved.
 */
package config

import (
	"os"
	"strconv"
	"time"

	"github.com/BurntSushi/toml"
)

// GroupConfig tunes one run of create_decomp/transfer_field over a single
// group communicator. Zero value is a usable default.
type GroupConfig struct {
	// RoundRobinTimeout bounds the whole P-step round-robin in BuildPlan
	// (one deadline for all steps, not one per peer reply); when it
	// expires BuildPlan fails MPI_ERROR.
	RoundRobinTimeout time.Duration `toml:"round_robin_timeout"`
	// SlabSize is the per-peer send-region allocation granularity used by
	// transfer/ when packing: each region's capacity is rounded up to a
	// multiple of this size. Regions are still allocated afresh on every
	// transfer.
	SlabSize int `toml:"slab_size"`
	// Verbosity is forwarded to dlog.SetVerbosity by LoadEnv callers.
	Verbosity int `toml:"verbosity"`
}

// Default returns the configuration used when a caller supplies none.
func Default() *GroupConfig {
	return &GroupConfig{
		RoundRobinTimeout: 30 * time.Second,
		SlabSize:          64 * 1024,
		Verbosity:         0,
	}
}

// Load decodes a GroupConfig from a TOML file, starting from Default() so
// a partial file only overrides what it names.
func Load(path string) (*GroupConfig, error) {
	cfg := Default()
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadEnv overlays DECOMP_ROUND_ROBIN_TIMEOUT_MS, DECOMP_SLAB_SIZE, and
// DECOMP_VERBOSITY environment variables onto cfg, the way aistore's
// cmn.Config resolves a handful of knobs from the environment at startup.
func LoadEnv(cfg *GroupConfig) *GroupConfig {
	if v, ok := os.LookupEnv("DECOMP_ROUND_ROBIN_TIMEOUT_MS"); ok {
		if ms, err := strconv.Atoi(v); err == nil {
			cfg.RoundRobinTimeout = time.Duration(ms) * time.Millisecond
		}
	}
	if v, ok := os.LookupEnv("DECOMP_SLAB_SIZE"); ok {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.SlabSize = n
		}
	}
	if v, ok := os.LookupEnv("DECOMP_VERBOSITY"); ok {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Verbosity = n
		}
	}
	return cfg
}
