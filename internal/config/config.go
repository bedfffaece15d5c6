// Copyright ©2020 Dan Kortschak. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package config loads engine-wide defaults from an optional JWCC
// (JSON-with-Comments, trailing commas allowed) file and resolves them
// against per-request overrides into concrete orchestrator.Parameters,
// per spec.md §6.
package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/tailscale/hujson"

	"github.com/sirnaoff/offtarget/internal/orchestrator"
)

// Config holds the engine-wide settings a deployment may fix in a config
// file: defaults for any analysis request field the request itself
// leaves unset, plus settings with no per-request equivalent (worker
// pool size, candidate cap, database paths).
type Config struct {
	MaxSeedMismatches *int     `json:"max_seed_mismatches,omitempty"`
	EnergyThreshold   *float64 `json:"energy_threshold,omitempty"`
	IncludeStructure  *bool    `json:"include_structure,omitempty"`
	AllowWobble       *bool    `json:"allow_wobble,omitempty"`

	MaxCandidates int `json:"max_candidates,omitempty"`
	Workers       int `json:"workers,omitempty"`

	TranscriptDBPath string `json:"transcript_db_path,omitempty"`
	SeedIndexDBPath  string `json:"seed_index_db_path,omitempty"`
}

// Default returns the engine's documented defaults.
func Default() Config {
	mm := 1
	energy := -10.0
	structure := true
	wobble := true
	return Config{
		MaxSeedMismatches: &mm,
		EnergyThreshold:   &energy,
		IncludeStructure:  &structure,
		AllowWobble:       &wobble,
		MaxCandidates:     50000,
		Workers:           4,
		TranscriptDBPath:  "transcripts.db",
		SeedIndexDBPath:   "seeds.db",
	}
}

// Load reads the optional JWCC file at path and merges it over Default();
// a missing file is not an error and yields the unmodified defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return Config{}, fmt.Errorf("config: read %s: %w", path, err)
	}

	standardized, err := hujson.Standardize(data)
	if err != nil {
		return Config{}, fmt.Errorf("config: %s is not valid JWCC: %w", path, err)
	}

	var file Config
	if err := json.Unmarshal(standardized, &file); err != nil {
		return Config{}, fmt.Errorf("config: %s: %w", path, err)
	}
	return merge(cfg, file), nil
}

// merge overlays every field overlay sets onto base; db paths, worker
// count, and the candidate cap only take the overlay value when it is
// non-zero, matching the "the file overrides compiled-in defaults" half
// of the precedence rule.
func merge(base, overlay Config) Config {
	if overlay.MaxSeedMismatches != nil {
		base.MaxSeedMismatches = overlay.MaxSeedMismatches
	}
	if overlay.EnergyThreshold != nil {
		base.EnergyThreshold = overlay.EnergyThreshold
	}
	if overlay.IncludeStructure != nil {
		base.IncludeStructure = overlay.IncludeStructure
	}
	if overlay.AllowWobble != nil {
		base.AllowWobble = overlay.AllowWobble
	}
	if overlay.MaxCandidates != 0 {
		base.MaxCandidates = overlay.MaxCandidates
	}
	if overlay.Workers != 0 {
		base.Workers = overlay.Workers
	}
	if overlay.TranscriptDBPath != "" {
		base.TranscriptDBPath = overlay.TranscriptDBPath
	}
	if overlay.SeedIndexDBPath != "" {
		base.SeedIndexDBPath = overlay.SeedIndexDBPath
	}
	return base
}

// RequestOverrides mirrors the optional fields of an analysis request
// (spec.md §6): any field left nil defers to the engine Config.
type RequestOverrides struct {
	MaxSeedMismatches *int
	EnergyThreshold   *float64
	IncludeStructure  *bool
}

// Resolve builds the concrete orchestrator.Parameters for one request,
// letting any field the request sets explicitly override the engine
// config's value — the same override-precedence idiom the config file
// itself uses over the compiled-in defaults, one level up.
func (c Config) Resolve(o RequestOverrides) orchestrator.Parameters {
	p := orchestrator.Parameters{
		MaxSeedMismatches: valueOrInt(o.MaxSeedMismatches, c.MaxSeedMismatches),
		// allow_wobble has no per-request override (spec.md §6 only lists
		// max_seed_mismatches, energy_threshold, and include_structure as
		// per-request fields), so it always comes from the engine config.
		AllowWobble:     valueOrBool(nil, c.AllowWobble),
		EnergyThreshold: valueOrFloat(o.EnergyThreshold, c.EnergyThreshold),
		IncludeStructure:  valueOrBool(o.IncludeStructure, c.IncludeStructure),
		MaxCandidates:     c.MaxCandidates,
		Workers:           c.Workers,
	}
	return p
}

func valueOrInt(override, fallback *int) int {
	if override != nil {
		return *override
	}
	if fallback != nil {
		return *fallback
	}
	return 0
}

func valueOrFloat(override, fallback *float64) float64 {
	if override != nil {
		return *override
	}
	if fallback != nil {
		return *fallback
	}
	return 0
}

func valueOrBool(override, fallback *bool) bool {
	if override != nil {
		return *override
	}
	if fallback != nil {
		return *fallback
	}
	return false
}
