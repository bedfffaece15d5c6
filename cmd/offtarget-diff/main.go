// Copyright ©2020 Dan Kortschak. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// offtarget-diff compares two JSON analysis-result sets (for example,
// before and after a parameter change) and reports base-level
// concordance between their risk classifications. If a -dot prefix is
// given, the discordant classification pairs are also rendered as a DOT
// graph.
//
// usage: offtarget-diff -a before.json -b after.json [-dot prefix]
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/sirnaoff/offtarget/internal/diffreport"
	"github.com/sirnaoff/offtarget/internal/orchestrator"
)

func main() {
	aFile := flag.String("a", "", "first analysis-result JSON file (required)")
	bFile := flag.String("b", "", "second analysis-result JSON file (required)")
	dotPrefix := flag.String("dot", "", "write <prefix>.dot describing discordant classifications")
	none := flag.String("none", "none", "label for \"no hit\" in the DOT graph")
	flag.Usage = func() {
		fmt.Fprintln(os.Stderr, "usage: offtarget-diff -a before.json -b after.json [-dot prefix]")
		flag.PrintDefaults()
	}
	flag.Parse()
	if *aFile == "" || *bFile == "" {
		flag.Usage()
		os.Exit(2)
	}

	if err := run(*aFile, *bFile, *dotPrefix, *none); err != nil {
		log.Fatal(err)
	}
}

func run(aFile, bFile, dotPrefix, none string) error {
	a, err := readResults(aFile)
	if err != nil {
		return fmt.Errorf("offtarget-diff: %w", err)
	}
	b, err := readResults(bFile)
	if err != nil {
		return fmt.Errorf("offtarget-diff: %w", err)
	}

	tally, mismatches, err := diffreport.Compare(a, b)
	if err != nil {
		return fmt.Errorf("offtarget-diff: %w", err)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(tally); err != nil {
		return fmt.Errorf("offtarget-diff: %w", err)
	}

	if dotPrefix == "" {
		return nil
	}
	b2, err := diffreport.WriteDOT(mismatches, none)
	if err != nil {
		return fmt.Errorf("offtarget-diff: %w", err)
	}
	if err := os.WriteFile(dotPrefix+".dot", b2, 0o644); err != nil {
		return fmt.Errorf("offtarget-diff: %w", err)
	}
	return nil
}

// readResults decodes a JSON file as either a single analysis result or
// an array of them, matching the two shapes offtarget-search can emit.
func readResults(path string) ([]*orchestrator.AnalysisResult, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var batch []*orchestrator.AnalysisResult
	if err := json.Unmarshal(b, &batch); err == nil {
		return batch, nil
	}
	var single orchestrator.AnalysisResult
	if err := json.Unmarshal(b, &single); err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return []*orchestrator.AnalysisResult{&single}, nil
}
