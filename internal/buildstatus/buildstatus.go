// Copyright ©2020 Dan Kortschak. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package buildstatus implements the build_status commit record that gates
// index readiness. A build is atomic: the status file is written through
// github.com/natefinch/atomic so that a crash mid-write can never leave a
// torn or half-updated status document behind, and readiness is never
// observable until the final, fully-formed "ready" write lands.
package buildstatus

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"

	"github.com/natefinch/atomic"

	"github.com/sirnaoff/offtarget/internal/xerrors"
)

// State is the build lifecycle state of one index generation.
type State string

// Build states, monotonic within a generation: empty -> building -> ready.
const (
	StateEmpty    State = "empty"
	StateBuilding State = "building"
	StateReady    State = "ready"
)

// Status is the persisted commit-point record for one index generation.
type Status struct {
	Generation      int   `json:"generation"`
	State           State `json:"state"`
	TranscriptCount int   `json:"transcript_count"`
	SeedCount       int   `json:"seed_count"`
}

// Ready reports whether the index generation described by s may be
// searched.
func (s Status) Ready() bool { return s.State == StateReady }

// Read loads the status record at path. A missing file is reported as a
// StateEmpty, generation-0 status rather than an error, since "no build has
// ever run" is a valid, common starting state.
func Read(path string) (Status, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Status{State: StateEmpty}, nil
		}
		return Status{}, fmt.Errorf("buildstatus: read %s: %w", path, err)
	}
	var st Status
	if err := json.Unmarshal(b, &st); err != nil {
		return Status{}, fmt.Errorf("buildstatus: decode %s: %w", path, err)
	}
	return st, nil
}

// Write atomically persists st to path, so partial writes are never
// observable by a concurrent reader.
func Write(path string, st Status) error {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetIndent("", "  ")
	if err := enc.Encode(st); err != nil {
		return fmt.Errorf("buildstatus: encode: %w", err)
	}
	if err := atomic.WriteFile(path, &buf); err != nil {
		return fmt.Errorf("buildstatus: write %s: %w", path, err)
	}
	return nil
}

// NextGeneration returns the generation number a new build at path should
// commit as, one past whatever generation (if any) is currently recorded.
func NextGeneration(path string) (int, error) {
	st, err := Read(path)
	if err != nil {
		return 0, err
	}
	return st.Generation + 1, nil
}

// RequireReady returns xerrors.ErrIndexNotReady if the status at path does
// not describe a ready, committed build.
func RequireReady(path string) (Status, error) {
	st, err := Read(path)
	if err != nil {
		return Status{}, err
	}
	if !st.Ready() {
		return Status{}, xerrors.ErrIndexNotReady
	}
	return st, nil
}
